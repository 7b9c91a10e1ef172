package emailsvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/services/metrics"
)

const providerService = "service"

// Delivery is the payload accepted by the email microservice.
type Delivery struct {
	To      []string `json:"to"`
	Cc      []string `json:"cc,omitempty"`
	Bcc     []string `json:"bcc,omitempty"`
	ReplyTo string   `json:"replyTo,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
	Tag     string   `json:"tag,omitempty"`
}

// Sender is implemented by storage/upstream.
type Sender interface {
	Deliver(ctx context.Context, d Delivery) error
}

type upstreamService struct {
	sender     Sender
	subjPrefix string
	timeout    time.Duration
	logger     core.Logger
	wg         sync.WaitGroup
}

var _ core.EmailService = (*upstreamService)(nil)

func NewUpstreamService(sender Sender, conf *core.Config, logger core.Logger) core.EmailService {
	timeout := conf.Services.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &upstreamService{
		sender:     sender,
		subjPrefix: "[" + conf.AppName + "] ",
		timeout:    timeout,
		logger:     logger,
	}
}

func (svc *upstreamService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				metrics.EmailsSent.WithLabelValues(providerService, "error").Inc()
				return
			}
			if !msg.HasRecipients() || !msg.HasContent() {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), svc.timeout)
			defer cancel()
			if err := svc.sender.Deliver(ctx, svc.prepare(*msg)); err != nil {
				svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.Subject, err), err)
				metrics.EmailsSent.WithLabelValues(providerService, "error").Inc()
				return
			}
			metrics.EmailsSent.WithLabelValues(providerService, "sent").Inc()
		}()
	}
}

func (svc *upstreamService) Wait() { svc.wg.Wait() }

func (svc *upstreamService) prepare(msg core.EmailMessage) Delivery {
	d := Delivery{
		To:      addressList(msg.To),
		Cc:      addressList(msg.Cc),
		Bcc:     addressList(msg.Bcc),
		Subject: svc.subjPrefix + msg.Subject,
		Text:    msg.TextContent,
		HTML:    msg.HTMLContent,
		Tag:     msg.Tag,
	}
	if msg.ReplyTo != nil {
		d.ReplyTo = msg.ReplyTo.String()
	}
	return d
}
