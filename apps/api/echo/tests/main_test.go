package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/quizly/backend/apps/api/echo"
	"github.com/quizly/backend/assets"
	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/publish"
	"github.com/quizly/backend/core/quiz"
	"github.com/quizly/backend/core/result"
	"github.com/quizly/backend/core/support"
	emailsvc "github.com/quizly/backend/services/email"
	logsvc "github.com/quizly/backend/services/logger"
	"github.com/quizly/backend/storage/cache"
	"github.com/quizly/backend/storage/upstream"
	"github.com/quizly/backend/tests"
)

const jwtSecret = "test-secret"

var (
	errMissingToken = httpErr{Error: "missing or malformed token"}
	errInvalidToken = httpErr{Error: "invalid or expired token"}
	errNotFound     = httpErr{Error: "not found"}
)

type fixture struct {
	app    *Server
	up     *testutil.Upstream
	mailer *emailsvc.ConsoleServiceMock
}

func testConfig() *core.Config {
	conf := &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Quizly",
		FrontendBaseURL:  "https://quizly.test",
		SupportEmail:     "support@quizly.test",
		DefaultFromEmail: "noreply@quizly.test",
	}
	conf.Server.DisableReqLogs = true
	conf.Server.CORSOrigins = []string{"*"}
	conf.Auth.JWTSecret = jwtSecret
	conf.Cache.PlanTTL = time.Minute
	conf.Cache.PublicationTTL = time.Minute
	return conf
}

func setup(t *testing.T, configure ...func(*core.Config)) *fixture {
	return setupWithLogger(t, logsvc.NewNopLogger(), configure...)
}

func setupWithLogger(t *testing.T, logger core.Logger, configure ...func(*core.Config)) *fixture {
	conf := testConfig()
	for _, fn := range configure {
		fn(conf)
	}
	core.ParseEmailTemplates(assets.FS, conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	plan.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	f := &fixture{
		up:     testutil.NewUpstream(t),
		mailer: emailsvc.NewConsoleServiceMock(conf, logger),
	}
	svcConf := f.up.Config()
	if conf.Services.Timeout > 0 {
		svcConf.Timeout = conf.Services.Timeout
	}
	repos := upstream.NewRepositories(svcConf)
	memCache := cache.NewMemoryCache(256)

	companySvc := company.NewService(repos.Companies)
	planSvc := plan.NewService(repos.Plans, memCache, conf, logger)
	pubSvc := publish.NewService(repos.Publications, repos.Quizzes, planSvc, companySvc, memCache, f.mailer, conf, logger)
	quizSvc := quiz.NewService(repos.Quizzes, companySvc, planSvc, pubSvc, logger)

	app, err := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Cache:      memCache,
		CompanySvc: companySvc,
		PlanSvc:    planSvc,
		QuizSvc:    quizSvc,
		PublishSvc: pubSvc,
		ResultSvc:  result.NewService(repos.Results, pubSvc, quizSvc, planSvc, f.mailer, logger),
		SupportSvc: support.NewService(f.mailer, conf),
		Validate:   validate,
		Translator: translator,
	})
	if err != nil {
		t.Fatalf("NewServer(): %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	f.app = app
	return f
}

// recordingLogger keeps the messages logged at error level.
type recordingLogger struct {
	core.Logger

	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (f *fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, userID string) string {
	token, err := GenerateToken(jwtSecret, userID, userID+"@quizly.test", time.Hour)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarchall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, isList := j1.([]interface{}); !isList {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
