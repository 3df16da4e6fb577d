package config

import "time"

type SecurityConfig interface {
	GetAuthFlowTTL() time.Duration
	GetCallbackTimeout() time.Duration
	GetProviderLogout() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAuthFlowTTL bounds how long a started redirect login may wait for its callback
func (Security) GetAuthFlowTTL() time.Duration {
	return 10 * time.Minute
}

// GetCallbackTimeout bounds the code exchange performed while handling a callback
func (Security) GetCallbackTimeout() time.Duration {
	return 15 * time.Second
}

// GetProviderLogout makes the direct strategy also end the provider's session on logout
func (Security) GetProviderLogout() bool {
	return GetEnv("AUTH_PROVIDER_LOGOUT", "false") == "true"
}
