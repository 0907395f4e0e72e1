package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"

	echoportal "github.com/trezcool/studentportal/apps/portal/echo"
	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/student"
	backendsvc "github.com/trezcool/studentportal/services/backend"
	emailsvc "github.com/trezcool/studentportal/services/email"
	logsvc "github.com/trezcool/studentportal/services/logger"
	pdfsvc "github.com/trezcool/studentportal/services/pdf"
	"github.com/trezcool/studentportal/storage"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewConsoleWriter(conf).With().Str("app", "PORTAL").Logger(), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	storeLogger := logsvc.NewRollbarLogger(logsvc.NewConsoleWriter(conf).With().Str("app", "STORAGE").Logger(), conf)
	storeLogger.Enable(!conf.Debug)

	// set up local storage
	localStorage, closeStorage, err := storage.Open(context.Background(), conf)
	if err != nil {
		storeLogger.Fatal(fmt.Sprintf("setting up local storage: %v", err), err)
	}
	defer func() {
		if err = closeStorage(); err != nil {
			storeLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	backend := backendsvc.NewClient(conf)
	accountSvc := account.NewService(backend, mailSvc, logger)
	studentSvc := student.NewService(backend)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.RegisterValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Portal Service

	server := echoportal.NewServer(
		echoportal.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Storage:    localStorage,
			AccountSvc: accountSvc,
			StudentSvc: studentSvc,
			Exporter:   pdfsvc.NewExporter(conf),
			Validate:   validate,
			Translator: translator,
		},
	)

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
