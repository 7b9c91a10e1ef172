package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/quizly/backend/apps/api/echo"
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
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZapLogger("api", conf.Debug)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	// set up cache
	appCache, closeCache, err := cache.New(context.Background(), conf.Cache, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	defer func() {
		if err = closeCache(); err != nil {
			logger.Error(fmt.Sprintf("closing cache: %v", err), err)
		}
	}()

	// set up upstream repositories
	repos := upstream.NewRepositories(conf.Services)

	// set up services
	var sender emailsvc.Sender
	if repos.Emails != nil {
		sender = repos.Emails
	}
	mailSvc, err := emailsvc.New(conf, sender, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}
	defer emailsvc.Flush(mailSvc)

	companySvc := company.NewService(repos.Companies)
	planSvc := plan.NewService(repos.Plans, appCache, conf, logger)
	pubSvc := publish.NewService(repos.Publications, repos.Quizzes, planSvc, companySvc, appCache, mailSvc, conf, logger)
	quizSvc := quiz.NewService(repos.Quizzes, companySvc, planSvc, pubSvc, logger)
	resultSvc := result.NewService(repos.Results, pubSvc, quizSvc, planSvc, mailSvc, logger)
	supportSvc := support.NewService(mailSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	plan.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)

	core.ParseEmailTemplates(assets.FS, conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server, err := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Cache:      appCache,
			CompanySvc: companySvc,
			PlanSvc:    planSvc,
			QuizSvc:    quizSvc,
			PublishSvc: pubSvc,
			ResultSvc:  resultSvc,
			SupportSvc: supportSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
