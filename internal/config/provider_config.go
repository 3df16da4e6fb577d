package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	domainEnvVar   = "AUTH_DOMAIN"
	clientIDEnvVar = "AUTH_CLIENT_ID"
)

// Strategy selects how credentials are acquired
type Strategy string

const (
	// StrategyDirect posts the user's credentials to the provider's token endpoint
	StrategyDirect Strategy = "direct"
	// StrategyRedirect delegates login to the provider's hosted page
	StrategyRedirect Strategy = "redirect"
)

// Provider holds the identity provider settings
type Provider struct {
	Strategy     Strategy      `env:"AUTH_STRATEGY" envDefault:"direct"`
	Domain       string        `env:"AUTH_DOMAIN"`
	ClientID     string        `env:"AUTH_CLIENT_ID"`
	ClientSecret string        `env:"AUTH_CLIENT_SECRET"`
	Scope        string        `env:"AUTH_SCOPE" envDefault:"openid profile email"`
	Audience     string        `env:"AUTH_AUDIENCE"`
	Connection   string        `env:"AUTH_CONNECTION"`
	HTTPTimeout  time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"10s"`
}

var _ ProviderConfig = Provider{}

// LoadProvider parses the provider settings from the environment
func LoadProvider() (Provider, error) {
	var p Provider
	if err := env.Parse(&p); err != nil {
		return Provider{}, fmt.Errorf("parse provider env: %w", err)
	}
	switch p.Strategy {
	case StrategyDirect, StrategyRedirect:
	default:
		return Provider{}, fmt.Errorf("unknown AUTH_STRATEGY %q", p.Strategy)
	}
	return p, nil
}

func (p Provider) GetStrategy() Strategy { return p.Strategy }
func (p Provider) GetDomain() string { return p.Domain }
func (p Provider) GetClientID() string { return p.ClientID }
func (p Provider) GetClientSecret() string { return p.ClientSecret }
func (p Provider) GetScope() string { return p.Scope }
func (p Provider) GetAudience() string { return p.Audience }
func (p Provider) GetConnection() string { return p.Connection }
func (p Provider) GetHTTPTimeout() time.Duration { return p.HTTPTimeout }

// ProviderURL returns the provider's origin for domain. A bare host is served
// over https, a value that already carries a scheme is used as is.
func ProviderURL(domain string) string {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	if strings.HasPrefix(domain, "https://") || strings.HasPrefix(domain, "http://") {
		return domain
	}
	return "https://" + domain
}
