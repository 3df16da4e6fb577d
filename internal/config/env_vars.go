package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	envEnvVar     = "ENV"
	defaultDevEnv = "DEV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Secure Console")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envEnvVar, defaultDevEnv)
}

// GetBaseURL returns the console's origin (e.g., "https://console.example.com").
// The redirect flow's callback and the provider logout returnTo are built from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

// IsDev reports whether cfg runs in the development environment
func IsDev(cfg EnvConfig) bool {
	return strings.EqualFold(cfg.GetEnv(), defaultDevEnv)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
