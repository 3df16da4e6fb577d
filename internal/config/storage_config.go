package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// StorageBackend names the durable token storage implementation
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageSQLite StorageBackend = "sqlite"
	StorageRedis  StorageBackend = "redis"
)

type Storage struct {
	Backend        StorageBackend `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	Path           string         `env:"STORAGE_PATH" envDefault:"./data/session.db"`
	RedisURL       string         `env:"REDIS_URL"`
	RedisKeyPrefix string         `env:"REDIS_KEY_PREFIX" envDefault:"authsession:"`
}

var _ StorageConfig = Storage{}

// LoadStorage parses the storage settings from the environment
func LoadStorage() (Storage, error) {
	var s Storage
	if err := env.Parse(&s); err != nil {
		return Storage{}, fmt.Errorf("parse storage env: %w", err)
	}
	switch s.Backend {
	case StorageMemory, StorageSQLite, StorageRedis:
	default:
		return Storage{}, fmt.Errorf("unknown STORAGE_BACKEND %q", s.Backend)
	}
	return s, nil
}

func (s Storage) GetStorageBackend() StorageBackend { return s.Backend }
func (s Storage) GetStoragePath() string { return s.Path }
func (s Storage) GetRedisURL() string { return s.RedisURL }
func (s Storage) GetRedisKeyPrefix() string { return s.RedisKeyPrefix }
