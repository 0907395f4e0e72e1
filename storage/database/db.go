package database

import (
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/studentportal/core"
	appfs "github.com/trezcool/studentportal/fs"
)

const migrationsDir = "migrations"

// driverName maps a storage engine to its database/sql driver.
func driverName(engine string) (string, error) {
	switch engine {
	case "sqlite":
		return "sqlite3", nil
	case "postgres":
		return "postgres", nil
	}
	return "", errors.Errorf("unsupported SQL storage engine %q", engine)
}

// Open connects to the configured SQL engine and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	driver, err := driverName(conf.Storage.Engine)
	if err != nil {
		return nil, err
	}
	dsn := conf.Storage.DSN
	if dsn == "" && driver == "sqlite3" {
		dsn = "file:portal.db?cache=shared"
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1) // sqlite does not handle concurrent writers
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

var gooseMu sync.Mutex // goose keeps its dialect and base FS in package state

// Migrate applies the pending embedded migrations.
func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}

// RunMigrations runs a goose command (up, down, status, redo, version...) on the embedded migrations.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(db.DriverName()); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	goose.SetBaseFS(appfs.FS)
	if err := goose.Run(command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
