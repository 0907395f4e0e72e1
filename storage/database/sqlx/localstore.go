package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studentportal/core/session"
)

type localStorage struct {
	db *sqlx.DB

	getQuery    string
	upsertQuery string
	deleteQuery string
}

var _ session.Storage = (*localStorage)(nil)

// NewLocalStorage returns a session.Storage on the `local_storage` table.
// Bind variables are rebound for the db driver (? for sqlite, $n for postgres).
func NewLocalStorage(db *sqlx.DB) session.Storage {
	return &localStorage{
		db:       db,
		getQuery: db.Rebind(`SELECT item_value FROM local_storage WHERE client_id = ? AND item_key = ?`),
		upsertQuery: db.Rebind(`
			INSERT INTO local_storage (client_id, item_key, item_value, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (client_id, item_key)
			DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at`),
		deleteQuery: db.Rebind(`DELETE FROM local_storage WHERE client_id = ? AND item_key = ?`),
	}
}

func (s *localStorage) GetItem(ctx context.Context, clientID, key string) (string, error) {
	var val string
	if err := s.db.GetContext(ctx, &val, s.getQuery, clientID, key); err != nil {
		if err == sql.ErrNoRows {
			return "", session.ErrNoItem
		}
		return "", errors.Wrap(err, "selecting local_storage item")
	}
	return val, nil
}

func (s *localStorage) SetItem(ctx context.Context, clientID, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, clientID, key, value); err != nil {
		return errors.Wrap(err, "upserting local_storage item")
	}
	return nil
}

func (s *localStorage) RemoveItem(ctx context.Context, clientID, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, clientID, key); err != nil {
		return errors.Wrap(err, "deleting local_storage item")
	}
	return nil
}
