package tokenstore

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/rs/zerolog/log"
)

// Store persists, retrieves and clears the session's credential material.
// It is the sole durable owner of the session: controllers rebuild their in-memory
// state from it on start up. Store does no locking of its own, writers serialise
// through the owning session controller.
type Store struct {
	storage Storage
	nowTime func() time.Time
}

// Option defines a function type to modify the Store instance.
type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// New creates a token store on top of storage
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Persist writes the access token, the id token and the absolute expiry
// (now + expiresIn, epoch milliseconds) to storage. The expiry is written last so
// a partially written session never reads as valid.
func (s *Store) Persist(ctx context.Context, accessToken, idToken string, expiresIn time.Duration) error {
	expiresAt := s.nowTime().Add(expiresIn).UnixMilli()

	writes := []struct{ key, value string }{
		{KeyAccessToken, accessToken},
		{KeyIDToken, idToken},
		{KeyExpiresAt, strconv.FormatInt(expiresAt, 10)},
	}
	for _, w := range writes {
		if err := s.storage.Set(ctx, w.key, w.value); err != nil {
			s.Clear(ctx)
			return autherrors.Wrapf(autherrors.ErrStorage, "[TokenStore Persist] write %s: %v", w.key, err)
		}
	}
	return nil
}

// IsValid reports whether an expiry entry exists and lies in the future.
// No network call is made. A missing, unreadable or malformed expiry is invalid.
func (s *Store) IsValid(ctx context.Context) bool {
	expiresAt, ok := s.ExpiresAt(ctx)
	if !ok {
		return false
	}
	return s.nowTime().Before(expiresAt)
}

// ExpiresAt returns the stored absolute expiry
func (s *Store) ExpiresAt(ctx context.Context) (time.Time, bool) {
	raw, ok := s.get(ctx, KeyExpiresAt)
	if !ok {
		return time.Time{}, false
	}
	millis, ok := parseMillis(raw)
	if !ok {
		log.Warn().Str("key", KeyExpiresAt).Msg("Ignoring malformed stored expiry")
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// AccessToken returns the stored access token
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyAccessToken)
}

// IDToken returns the stored id token
func (s *Store) IDToken(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyIDToken)
}

// Clear removes all three entries. It is idempotent and never fails, storage
// errors are logged.
func (s *Store) Clear(ctx context.Context) {
	for _, key := range Keys {
		if err := s.storage.Remove(ctx, key); err != nil {
			log.Err(err).Str("key", key).Msg("Failed to remove token store entry")
		}
	}
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		log.Err(err).Str("key", key).Msg("Failed to read token store entry")
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// parseMillis accepts integer epoch milliseconds and, for values written by other
// clients as JSON numbers, a float representation.
func parseMillis(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return millis, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
