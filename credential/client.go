// Package credential exchanges a user's credentials for provider tokens using the
// resource owner password grant. Every failure comes back as a typed
// *errors.AuthError, the client never panics and never returns a raw transport error.
package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// TokenPath is the provider's token endpoint
	TokenPath = "/oauth/token"

	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// Config holds the provider settings used to build the token request
type Config struct {
	Domain     string
	ClientID   string
	Scope      string
	Audience   string
	Connection string
	Timeout    time.Duration
}

// Grant is the credential material acquired by a successful exchange
type Grant struct {
	AccessToken string
	IDToken     string
	ExpiresIn   time.Duration
}

// Client performs the password grant against the provider's token endpoint
type Client struct {
	cfg        Config
	tokenURL   string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (primarily for testing)
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithMetrics records provider latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger replaces the global logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a credential client for cfg
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		cfg:        cfg,
		tokenURL:   config.ProviderURL(cfg.Domain) + TokenPath,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exchange posts username and secret to the token endpoint and returns the grant.
// Errors are *errors.AuthError values of kind ErrNetworkFailure,
// ErrInvalidCredentials, ErrProviderRejected or ErrMalformedProviderResponse.
func (c *Client) Exchange(ctx context.Context, username, secret string) (*Grant, error) {
	request := oauthmodel.PasswordGrantRequest{
		GrantType:  oauthmodel.PasswordGrant,
		Username:   username,
		Password:   secret,
		ClientID:   c.cfg.ClientID,
		Scope:      c.cfg.Scope,
		Audience:   c.cfg.Audience,
		Connection: c.cfg.Connection,
	}

	redacted := request.Redacted()
	c.logger.Debug().
		Str("url", c.tokenURL).
		Str("grant_type", string(redacted.GrantType)).
		Str("username", redacted.Username).
		Str("password", redacted.Password).
		Str("client_id", redacted.ClientID).
		Str("scope", redacted.Scope).
		Msg("Requesting token")

	status, body, err := c.post(ctx, request)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", c.tokenURL).Msg("Token request failed")
		return nil, autherrors.NewAuthError(autherrors.ErrNetworkFailure, autherrors.MessageUnexpected, err)
	}

	c.logger.Debug().Int("status", status).Msg("Token response received")

	if status < 200 || status > 299 {
		return nil, c.providerError(status, body)
	}
	return c.grant(body)
}

func (c *Client) post(ctx context.Context, request oauthmodel.PasswordGrantRequest) (int, []byte, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return 0, nil, fmt.Errorf("[Credential Exchange] encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("[Credential Exchange] build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveProvider(string(oauthmodel.PasswordGrant), start)
	if err != nil {
		return 0, nil, fmt.Errorf("[Credential Exchange] send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, fmt.Errorf("[Credential Exchange] read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) grant(body []byte) (*Grant, error) {
	var tokens oauthmodel.TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		c.logger.Warn().Err(err).Msg("Undecodable token response")
		return nil, autherrors.NewAuthError(autherrors.ErrNetworkFailure, autherrors.MessageUnexpected,
			fmt.Errorf("[Credential Exchange] decode response: %w", err))
	}

	if missing := tokens.MissingFields(); len(missing) > 0 {
		c.logger.Warn().Strs("missing", missing).Msg("Token response is missing required fields")
		return nil, autherrors.NewAuthError(autherrors.ErrMalformedProviderResponse, autherrors.MessageLoginFailed,
			fmt.Errorf("[Credential Exchange] response missing %v", missing))
	}

	return &Grant{
		AccessToken: *tokens.AccessToken,
		IDToken:     *tokens.IdToken,
		ExpiresIn:   time.Duration(*tokens.ExpiresIn) * time.Second,
	}, nil
}

// providerError maps a non-2xx response to a user-facing failure. The provider's
// description wins, then the fixed bad-credentials message, then the generic one.
// A body that is not a provider error (a proxy's HTML page) is a retryable failure.
func (c *Client) providerError(status int, body []byte) error {
	var providerErr oauthmodel.ErrorResponse
	if err := json.Unmarshal(body, &providerErr); err != nil {
		c.logger.Warn().Err(err).Int("status", status).Msg("Token endpoint returned an unstructured error")
		return autherrors.NewAuthError(autherrors.ErrNetworkFailure, autherrors.MessageUnexpected,
			fmt.Errorf("[Credential Exchange] status %d, decode error body: %w", status, err))
	}

	c.logger.Info().
		Int("status", status).
		Str("error", string(providerErr.Error)).
		Msg("Token endpoint rejected the login")

	kind := autherrors.ErrProviderRejected
	message := autherrors.MessageLoginFailed
	if providerErr.Error == oauthmodel.ErrorInvalidGrant {
		kind = autherrors.ErrInvalidCredentials
		message = autherrors.MessageInvalidCredentials
	}
	if providerErr.ErrorDescription != "" {
		message = providerErr.ErrorDescription
	}

	return autherrors.NewAuthError(kind, message,
		fmt.Errorf("[Credential Exchange] status %d: %s", status, providerErr.Error))
}
