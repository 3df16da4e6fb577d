package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/tokenstore"
	"github.com/jrsteele09/go-auth-session/tokenstore/sqlitestore"
	"github.com/stretchr/testify/require"
)

func openStorage(t *testing.T, path string) *sqlitestore.Storage {
	t.Helper()
	storage, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlitestore.Open("  ")
	require.Error(t, err)
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := openStorage(t, filepath.Join(t.TempDir(), "tokens.db"))

	_, ok, err := storage.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, storage.Set(ctx, tokenstore.KeyAccessToken, "first"))
	require.NoError(t, storage.Set(ctx, tokenstore.KeyAccessToken, "second"))

	value, ok, err := storage.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", value)

	require.NoError(t, storage.Remove(ctx, tokenstore.KeyAccessToken))
	require.NoError(t, storage.Remove(ctx, tokenstore.KeyAccessToken))

	_, ok, err = storage.Get(ctx, tokenstore.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestStorage_SurvivesReopen tests that a persisted session is still valid after a restart
func TestStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.db")

	first, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, tokenstore.New(first).Persist(ctx, "access", "id", time.Hour))
	require.NoError(t, first.Close())

	store := tokenstore.New(openStorage(t, path))
	require.True(t, store.IsValid(ctx))

	access, ok := store.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, "access", access)

	store.Clear(ctx)
	require.False(t, store.IsValid(ctx))
}
