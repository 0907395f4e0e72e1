package database

import (
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentportal/core"
)

func sqliteConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{Storage: core.StorageConfig{Engine: "sqlite", DSN: ":memory:"}}
}

func TestMigrate(t *testing.T) {
	db, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// applied migrations are recorded: a second run is a noop
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	version, err := goose.GetDBVersion(db.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	_, err = db.Exec(`INSERT INTO local_storage (client_id, item_key, item_value) VALUES ('c1', 'token', 'abc')`)
	require.NoError(t, err)
}

func TestRunMigrations(t *testing.T) {
	db, err := Open(sqliteConfig(t))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	tests := []struct {
		name        string
		command     string
		args        []string
		wantErr     bool
		wantVersion int64
	}{
		{name: "up", command: "up", wantVersion: 1},
		{name: "status", command: "status", wantVersion: 1},
		{name: "down", command: "down", wantVersion: 0},
		{name: "up-to", command: "up-to", args: []string{"1"}, wantVersion: 1},
		{name: "redo", command: "redo", wantVersion: 1},
		{name: "up-to: non-int arg", command: "up-to", args: []string{"lol"}, wantErr: true, wantVersion: 1},
		{name: "unknown command", command: "lol", wantErr: true, wantVersion: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunMigrations(db, tt.command, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			version, err := goose.GetDBVersion(db.DB)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestOpen_unsupportedEngine(t *testing.T) {
	_, err := Open(&core.Config{Storage: core.StorageConfig{Engine: "mysql"}})
	assert.EqualError(t, err, `unsupported SQL storage engine "mysql"`)
}
