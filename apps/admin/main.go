package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/account"
	backendsvc "github.com/trezcool/studentportal/services/backend"
	logsvc "github.com/trezcool/studentportal/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewConsoleWriter(conf).With().Str("app", "ADMIN").Logger(), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.RegisterValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		backend:  backendsvc.NewClient(conf),
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			err = core.TranslateValidationErrors(err, translator)
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		logger.Close()
		os.Exit(1)
	}
}
