package dig_container

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoportal "github.com/trezcool/studentportal/apps/portal/echo"
	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	"github.com/trezcool/studentportal/core/session"
	"github.com/trezcool/studentportal/core/student"
	backendsvc "github.com/trezcool/studentportal/services/backend"
	emailsvc "github.com/trezcool/studentportal/services/email"
	logsvc "github.com/trezcool/studentportal/services/logger"
	pdfsvc "github.com/trezcool/studentportal/services/pdf"
	"github.com/trezcool/studentportal/storage"
)

type (
	StoreLoggerParam struct {
		dig.In
		Logger core.Logger `name:"storeLogger"`
	}

	// StorageParam gives the app what it needs to release the local storage on exit.
	StorageParam struct {
		dig.In
		Logger core.Logger  `name:"storeLogger"`
		Close  func() error `name:"closeStorage"`
	}

	storageResult struct {
		dig.Out
		Storage session.Storage
		Close   func() error `name:"closeStorage"`
	}
)

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewConsoleWriter(conf).With().Str("app", "PORTAL").Logger(), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStoreLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewConsoleWriter(conf).With().Str("app", "STORAGE").Logger(), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam StoreLoggerParam) storageResult {
	localStorage, closeStorage, err := storage.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up local storage: %v", err), err)
	}
	return storageResult{Storage: localStorage, Close: closeStorage}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(backendsvc.NewClient, dig.As(new(account.Backend), new(student.Backend))))
	must(c.Provide(account.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(pdfsvc.NewExporter))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(echoportal.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
