// Package redisstore provides a Redis-backed token storage for consoles that keep
// their session outside the local filesystem.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the token entries
const DefaultKeyPrefix = "authsession:"

// Storage implements tokenstore.Storage over Redis strings
type Storage struct {
	client *redis.Client
	prefix string
}

// Option configures a Storage instance.
type Option func(*Storage)

// WithKeyPrefix overrides the key prefix
func WithKeyPrefix(prefix string) Option {
	return func(s *Storage) {
		s.prefix = prefix
	}
}

// New wraps an existing client
func New(client *redis.Client, opts ...Option) *Storage {
	s := &Storage{
		client: client,
		prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connect parses a redis:// URL, verifies the connection and returns the storage
func Connect(ctx context.Context, url string, opts ...Option) (*Storage, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(client, opts...), nil
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Get retrieves the value stored under key
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set creates or replaces the value stored under key. Entries do not expire in
// Redis, expiry is evaluated by the token store.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
