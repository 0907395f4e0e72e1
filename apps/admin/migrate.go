package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/storage/database"
)

var (
	dbOpenFunc   = database.Open          // mockable
	gooseRunFunc = database.RunMigrations // mockable
)

// migrate runs a goose command on the local storage database of the SQL engines.
func (cli *commandLine) migrate(args []string) error {
	switch cli.conf.Storage.Engine {
	case "sqlite", "postgres":
	default:
		return errors.Errorf("storage engine %q has no migrations", cli.conf.Storage.Engine)
	}

	db, err := dbOpenFunc(cli.conf)
	if err != nil {
		return errors.Wrap(err, "opening local storage")
	}
	defer db.Close()

	if err = gooseRunFunc(db, args[0], args[1:]...); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "migrate %s: done\n", args[0])
	return nil
}
