package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/tokenstore"
	"github.com/jrsteele09/go-auth-session/tokenstore/redisstore"
	"github.com/stretchr/testify/require"
)

// connect returns a storage against SESSION_TEST_REDIS_URL, namespaced per test run
func connect(t *testing.T) *redisstore.Storage {
	t.Helper()
	url := os.Getenv("SESSION_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SESSION_TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	storage, err := redisstore.Connect(ctx, url, redisstore.WithKeyPrefix("test:"+uuid.NewString()+":"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := redisstore.Connect(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := connect(t)

	_, ok, err := storage.Get(ctx, tokenstore.KeyIDToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, storage.Set(ctx, tokenstore.KeyIDToken, "id-token"))

	value, ok, err := storage.Get(ctx, tokenstore.KeyIDToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "id-token", value)

	require.NoError(t, storage.Remove(ctx, tokenstore.KeyIDToken))
	_, ok, err = storage.Get(ctx, tokenstore.KeyIDToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStorage_BacksTokenStore(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.New(connect(t))

	require.NoError(t, store.Persist(ctx, "access", "id", time.Hour))
	require.True(t, store.IsValid(ctx))

	store.Clear(ctx)
	require.False(t, store.IsValid(ctx))
}
