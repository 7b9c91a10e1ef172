package emailsvc

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizly/backend/assets"
	"github.com/quizly/backend/core"
	logsvc "github.com/quizly/backend/services/logger"
)

func testConfig() *core.Config {
	return &core.Config{
		AppName:          "Quizly",
		FrontendBaseURL:  "https://quizly.test",
		DefaultFromEmail: "Quizly <noreply@quizly.test>",
		TestMode:         true,
	}
}

func expiredMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Acme", Address: "owner@acme.test"}},
		Subject:      "Your quiz has expired",
		Tag:          "quiz_expired",
		TemplateName: "quiz_expired",
		TemplateData: map[string]interface{}{
			"CompanyName": "Acme",
			"Title":       "Go basics",
			"ExpiredAt":   "Oct 1, 2026",
			"QuizID":      "q1",
		},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(assets.FS, conf, logger)
	svc := NewConsoleServiceMock(conf, logger)

	svc.SendMessages(
		expiredMessage(),
		&core.EmailMessage{Subject: "no recipients", BodyStr: "hello"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@b.test"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, `Your quiz "Go basics" expired on Oct 1, 2026`)
	assert.Contains(t, sent[0].TextContent, "https://quizly.test/dashboard/quizzes/q1/results")
	assert.Contains(t, sent[0].HTMLContent, "<strong>Go basics</strong>")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleServiceMock_MissingKey(t *testing.T) {
	conf := testConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(assets.FS, conf, logger)
	svc := NewConsoleServiceMock(conf, logger)

	msg := expiredMessage()
	msg.TemplateData = map[string]interface{}{"Title": "Go basics"}
	svc.SendMessages(msg)
	assert.Empty(t, svc.SentMessages())
}

type senderMock struct {
	deliveries chan Delivery
}

func (s *senderMock) Deliver(_ context.Context, d Delivery) error {
	s.deliveries <- d
	return nil
}

func TestUpstreamService(t *testing.T) {
	conf := testConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(assets.FS, conf, logger)
	sender := &senderMock{deliveries: make(chan Delivery, 1)}
	svc := NewUpstreamService(sender, conf, logger)

	msg := expiredMessage()
	msg.ReplyTo = &mail.Address{Address: "support@quizly.test"}
	svc.SendMessages(msg)

	select {
	case d := <-sender.deliveries:
		assert.Equal(t, []string{`"Acme" <owner@acme.test>`}, d.To)
		assert.Equal(t, "[Quizly] Your quiz has expired", d.Subject)
		assert.Equal(t, "quiz_expired", d.Tag)
		assert.Equal(t, "<support@quizly.test>", d.ReplyTo)
		assert.NotEmpty(t, d.Text)
		assert.NotEmpty(t, d.HTML)
		assert.Nil(t, d.Cc)
	case <-time.After(2 * time.Second):
		t.Fatal("email was not delivered")
	}
}

func TestNew(t *testing.T) {
	logger := logsvc.NewNopLogger()
	tests := []struct {
		name     string
		provider string
		sgKey    string
		sender   Sender
		wantErr  bool
	}{
		{name: "default console", provider: ""},
		{name: "sendgrid", provider: "sendgrid", sgKey: "SG.key"},
		{name: "sendgrid without key", provider: "sendgrid", wantErr: true},
		{name: "service", provider: "service", sender: &senderMock{}},
		{name: "service without sender", provider: "service", wantErr: true},
		{name: "unknown", provider: "pigeon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := testConfig()
			conf.Email.Provider = tt.provider
			conf.Email.SendgridAPIKey = tt.sgKey
			svc, err := New(conf, tt.sender, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}
