package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studentportal/core"
	"github.com/trezcool/studentportal/core/session"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		storage core.StorageConfig
		skip    bool
	}{
		{name: "memory", storage: core.StorageConfig{Engine: "memory"}},
		{name: "sqlite", storage: core.StorageConfig{Engine: "sqlite", DSN: ":memory:"}},
		{
			name:    "redis",
			storage: core.StorageConfig{Engine: "redis", RedisAddr: os.Getenv("REDIS_ADDR"), RedisDB: 15},
			skip:    os.Getenv("REDIS_ADDR") == "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.skip {
				t.Skip("REDIS_ADDR not set")
			}
			ctx := context.Background()
			store, closeFn, err := Open(ctx, &core.Config{Storage: tt.storage})
			require.NoError(t, err)
			defer func() { _ = closeFn() }()

			checkStorage(t, store)
		})
	}
}

func TestOpen_unknownEngine(t *testing.T) {
	_, closeFn, err := Open(context.Background(), &core.Config{Storage: core.StorageConfig{Engine: "mongo"}})
	assert.Error(t, err)
	assert.NoError(t, closeFn())
}

func checkStorage(t *testing.T, store session.Storage) {
	t.Helper()
	ctx := context.Background()
	c1, c2 := "client-1", "client-2"

	_, err := store.GetItem(ctx, c1, "token")
	assert.Equal(t, session.ErrNoItem, err)

	require.NoError(t, store.SetItem(ctx, c1, "token", "abc"))
	require.NoError(t, store.SetItem(ctx, c2, "token", "xyz"))

	val, err := store.GetItem(ctx, c1, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	// overwrite
	require.NoError(t, store.SetItem(ctx, c1, "token", "def"))
	val, err = store.GetItem(ctx, c1, "token")
	require.NoError(t, err)
	assert.Equal(t, "def", val)

	require.NoError(t, store.RemoveItem(ctx, c1, "token"))
	_, err = store.GetItem(ctx, c1, "token")
	assert.Equal(t, session.ErrNoItem, err)

	// removing a missing item is a noop
	assert.NoError(t, store.RemoveItem(ctx, c1, "token"))

	// other clients are untouched
	val, err = store.GetItem(ctx, c2, "token")
	require.NoError(t, err)
	assert.Equal(t, "xyz", val)
	require.NoError(t, store.RemoveItem(ctx, c2, "token"))
}
