package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/publish"
	"github.com/quizly/backend/core/quiz"
	"github.com/quizly/backend/core/result"
	"github.com/quizly/backend/core/support"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Cache      core.Cache
		CompanySvc *company.Service
		PlanSvc    *plan.Service
		QuizSvc    *quiz.Service
		PublishSvc *publish.Service
		ResultSvc  *result.Service
		SupportSvc *support.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		limiter  *rateLimiter
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	if err := s.setup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setup() error {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(requestIDMiddleware())
	if !conf.Server.DisableReqLogs {
		s.app.Use(requestLoggerMiddleware(s.deps.Logger))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(corsMiddleware(conf.Server.CORSOrigins))
	s.app.Use(metricsMiddleware(s.deps.Translator))

	auth, err := newAuthMiddleware(conf.Auth)
	if err != nil {
		return errors.Wrap(err, "configuring auth")
	}
	s.limiter = newRateLimiter(conf.RateLimit)

	registerHealthAPI(s.app, s.deps.Cache, conf)

	v1 := s.app.Group("/v1")
	pub := v1.Group("/public", s.limiter.middleware())
	authed := v1.Group("", auth)

	registerCompanyAPI(authed, s.deps.CompanySvc, s.deps.Validate)
	registerPlanAPI(authed, s.deps.PlanSvc, s.deps.Validate)
	registerQuizAPI(authed, s.deps.QuizSvc, s.deps.Validate)
	registerPublishAPI(authed, pub, s.deps.PublishSvc, s.deps.Validate)
	registerResultAPI(authed, pub, s.deps.ResultSvc, s.deps.Validate)
	registerSupportAPI(authed, pub, s.deps.SupportSvc, s.deps.Validate)
	return nil
}

// Start blocks until the server stops. Unexpected errors are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	s.limiter.stop()
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	s.limiter.stop()
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
