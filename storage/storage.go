// Package storage opens the local storage backend selected by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/session"
	"github.com/trezcool/studentportal/storage/database"
	inmemdb "github.com/trezcool/studentportal/storage/database/inmem"
	redisdb "github.com/trezcool/studentportal/storage/database/redis"
	sqlxrepos "github.com/trezcool/studentportal/storage/database/sqlx"
)

// Open returns the configured session.Storage and a func releasing its resources.
func Open(ctx context.Context, conf *core.Config) (session.Storage, func() error, error) {
	noop := func() error { return nil }

	switch conf.Storage.Engine {
	case "", "memory":
		return inmemdb.NewLocalStorage(), noop, nil

	case "redis":
		client, err := redisdb.Open(ctx, conf)
		if err != nil {
			return nil, noop, err
		}
		return redisdb.NewLocalStorage(client), client.Close, nil

	case "sqlite", "postgres":
		db, err := database.Open(conf)
		if err != nil {
			return nil, noop, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return sqlxrepos.NewLocalStorage(db), db.Close, nil
	}
	return nil, noop, errors.Errorf("unknown storage engine %q", conf.Storage.Engine)
}
