package config

import (
	"fmt"
	"time"
)

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
	StorageConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type ProviderConfig interface {
	GetStrategy() Strategy
	GetDomain() string
	GetClientID() string
	GetClientSecret() string
	GetScope() string
	GetAudience() string
	GetConnection() string
	GetHTTPTimeout() time.Duration
}

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetStoragePath() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

type mainConfig struct {
	EnvVars
	Cors
	Provider
	Storage
	Security
}

// New loads the configuration from the environment
func New() (Config, error) {
	provider, err := LoadProvider()
	if err != nil {
		return nil, err
	}
	storage, err := LoadStorage()
	if err != nil {
		return nil, err
	}

	cfg := mainConfig{
		Provider: provider,
		Storage:  storage,
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings a running console cannot do without
func Validate(cfg Config) error {
	if cfg.GetDomain() == "" {
		return fmt.Errorf("%s is required", domainEnvVar)
	}
	if cfg.GetClientID() == "" {
		return fmt.Errorf("%s is required", clientIDEnvVar)
	}
	switch cfg.GetStorageBackend() {
	case StorageSQLite:
		if cfg.GetStoragePath() == "" {
			return fmt.Errorf("STORAGE_PATH is required for the sqlite backend")
		}
	case StorageRedis:
		if cfg.GetRedisURL() == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	}
	return nil
}
