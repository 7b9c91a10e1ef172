package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/quizly/backend/assets"
	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/company"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/publish"
	emailsvc "github.com/quizly/backend/services/email"
	logsvc "github.com/quizly/backend/services/logger"
	"github.com/quizly/backend/storage/cache"
	"github.com/quizly/backend/storage/upstream"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger("admin", conf.Debug)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug)

	appCache, closeCache, err := cache.New(context.Background(), conf.Cache, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}

	repos := upstream.NewRepositories(conf.Services)
	var sender emailsvc.Sender
	if repos.Emails != nil {
		sender = repos.Emails
	}
	mailSvc, err := emailsvc.New(conf, sender, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}
	core.ParseEmailTemplates(assets.FS, conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	plan.InitValidators(validate, translator)

	companySvc := company.NewService(repos.Companies)
	planSvc := plan.NewService(repos.Plans, appCache, conf, logger)

	// start CLI
	cli := commandLine{
		conf:     conf,
		planSvc:  planSvc,
		pubSvc:   publish.NewService(repos.Publications, repos.Quizzes, planSvc, companySvc, appCache, mailSvc, conf, logger),
		mailer:   mailSvc,
		validate: validate,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)

	if cerr := closeCache(); cerr != nil {
		logger.Error(fmt.Sprintf("closing cache: %v", cerr), cerr)
	}
	logger.Sync()

	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
