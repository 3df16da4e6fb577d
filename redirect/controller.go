// Package redirect implements the delegated redirect strategy: the provider's hosted
// page collects the credentials and the console completes the authorization code
// flow (PKCE S256) on its callback.
package redirect

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-session/credential"
	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/config"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/redirect/authflowrepo"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/tokenstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// StrategyRedirect labels the redirect controller in logs and metrics
	StrategyRedirect = "redirect"

	defaultFlowTTL         = 10 * time.Minute
	defaultCallbackTimeout = 15 * time.Second
)

// Config holds the provider and console settings of the redirect flow
type Config struct {
	Domain          string
	ClientID        string
	ClientSecret    string
	Scopes          []string
	Audience        string
	BaseURL         string
	FlowTTL         time.Duration
	CallbackTimeout time.Duration
}

// CallbackParams are the query parameters the provider returns with
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackParamsFromQuery extracts the callback parameters from a query
func CallbackParamsFromQuery(q url.Values) CallbackParams {
	return CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Resolution is where a callback sends the user. Err is set when the callback
// failed definitively.
type Resolution struct {
	Location string
	Err      *autherrors.AuthError
}

// Controller is the redirect strategy session controller
type Controller struct {
	*session.Machine
	cfg          Config
	providerURL  string
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	flows        authflowrepo.Repo
	httpClient   *http.Client
	nowTime      func() time.Time
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	machineOpts  []session.MachineOption
}

var _ session.Provider = (*Controller)(nil)

// Option defines a function type to modify the Controller instance.
type Option func(*Controller)

// WithFlowRepo replaces the in-memory flow repository
func WithFlowRepo(repo authflowrepo.Repo) Option {
	return func(c *Controller) {
		c.flows = repo
	}
}

// WithHTTPClient sets the client used for discovery, key fetches and the code exchange
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Controller) {
		c.httpClient = httpClient
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithVerifier replaces the discovered id token verifier
func WithVerifier(verifier *oidc.IDTokenVerifier) Option {
	return func(c *Controller) {
		c.verifier = verifier
	}
}

// WithMetrics records login and callback outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
		c.machineOpts = append(c.machineOpts, session.WithMachineMetrics(m))
	}
}

// WithLogger replaces the global logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
		c.machineOpts = append(c.machineOpts, session.WithMachineLogger(logger))
	}
}

// New discovers the provider's endpoints and restores any stored session
func New(ctx context.Context, cfg Config, store *tokenstore.Store, opts ...Option) (*Controller, error) {
	if cfg.FlowTTL <= 0 {
		cfg.FlowTTL = defaultFlowTTL
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = defaultCallbackTimeout
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	c := &Controller{
		cfg:         cfg,
		providerURL: config.ProviderURL(cfg.Domain),
		flows:       authflowrepo.NewInMemoryRepo(),
		httpClient:  &http.Client{Timeout: cfg.CallbackTimeout},
		nowTime:     time.Now,
		logger:      log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), c.providerURL+"/")
	if err != nil {
		return nil, fmt.Errorf("[Redirect New] failed to create OIDC provider: %w", err)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	c.oauth2Config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  cfg.BaseURL + guard.CallbackPath,
		Scopes:       cfg.Scopes,
	}
	if c.verifier == nil {
		c.verifier = provider.Verifier(&oidc.Config{
			ClientID: cfg.ClientID,
			Now:      c.nowTime,
		})
	}

	c.Machine = session.NewMachine(ctx, store, StrategyRedirect, c.machineOpts...)
	return c, nil
}

// BeginLogin records a new flow and returns the provider authorization URL.
// The session state is untouched until the callback arrives.
func (c *Controller) BeginLogin(_ context.Context, returnTo string) (string, error) {
	now := c.nowTime()
	if purged := c.flows.Purge(now.Add(-c.cfg.FlowTTL)); purged > 0 {
		c.logger.Debug().Int("purged", purged).Msg("Removed abandoned login flows")
	}

	state := randomString(32)
	nonce := randomString(32)
	verifier := oauth2.GenerateVerifier()

	if err := c.flows.Upsert(state, &authflowrepo.AuthFlowState{
		CodeVerifier: verifier,
		Nonce:        nonce,
		ReturnURL:    guard.SafeReturnTo(returnTo),
		CreatedAt:    now,
	}); err != nil {
		return "", fmt.Errorf("[Redirect BeginLogin] failed to store flow: %w", err)
	}

	params := []oauth2.AuthCodeOption{
		oauth2.S256ChallengeOption(verifier),
		oidc.Nonce(nonce),
	}
	if c.cfg.Audience != "" {
		params = append(params, oauth2.SetAuthURLParam("audience", c.cfg.Audience))
	}

	c.logger.Info().Str("strategy", StrategyRedirect).Msg("Redirecting to provider login")
	return c.oauth2Config.AuthCodeURL(state, params...), nil
}

// CollectsCredentials is false: the provider's hosted page collects them
func (c *Controller) CollectsCredentials() bool {
	return false
}

// StartLogin hands over to the provider's hosted login. The session state does
// not change until the callback arrives.
func (c *Controller) StartLogin(ctx context.Context, req session.LoginRequest) (session.Navigation, error) {
	authURL, err := c.BeginLogin(ctx, req.ReturnTo)
	if err != nil {
		return session.Navigation{}, err
	}
	return session.Navigation{Location: authURL, External: true}, nil
}

// HandleCallback evaluates a callback exactly once. A consumed or unknown state
// (re-invocation, back navigation) resolves from the current session without any
// network call: the dashboard when authenticated, otherwise login.
func (c *Controller) HandleCallback(ctx context.Context, params CallbackParams) Resolution {
	resolution := c.handleCallback(ctx, params)
	c.metrics.IncrementCallback(resolution.Location)
	return resolution
}

func (c *Controller) handleCallback(ctx context.Context, params CallbackParams) Resolution {
	// Only a pending flow may change the session, error callbacks included
	flow, err := c.flows.Consume(params.State)
	if err != nil {
		c.logger.Info().Str("strategy", StrategyRedirect).Bool("provider_error", params.Error != "").Msg("Callback without a pending flow")
		return c.resolveFromState(ctx)
	}

	attempt := c.Begin(ctx)
	if params.Error != "" {
		message := params.ErrorDescription
		if message == "" {
			message = autherrors.MessageAuthorization
		}
		return c.fail(attempt, autherrors.NewAuthError(autherrors.ErrAuthorizationDeny, message,
			fmt.Errorf("[Redirect HandleCallback] provider returned %s", params.Error)))
	}
	if flow.Expired(c.nowTime(), c.cfg.FlowTTL) {
		return c.fail(attempt, autherrors.NewAuthError(autherrors.ErrFlowExpired, autherrors.MessageAuthorization, nil))
	}
	if params.Code == "" {
		return c.fail(attempt, autherrors.NewAuthError(autherrors.ErrInvalidState, autherrors.MessageAuthorization,
			errors.New("[Redirect HandleCallback] missing code")))
	}

	grant, authErr := c.exchange(ctx, params.Code, flow)
	if authErr != nil {
		return c.fail(attempt, authErr)
	}

	if err := c.Succeed(ctx, attempt, grant); err != nil {
		if errors.Is(err, autherrors.ErrSuperseded) {
			return c.resolveFromState(ctx)
		}
		return Resolution{Location: session.LoginPath, Err: autherrors.AsAuthError(err)}
	}
	return Resolution{Location: guard.SafeReturnTo(flow.ReturnURL)}
}

// exchange trades the code for tokens and verifies the id token and its nonce
func (c *Controller) exchange(ctx context.Context, code string, flow *authflowrepo.AuthFlowState) (*credential.Grant, *autherrors.AuthError) {
	ctx, cancel := context.WithTimeout(oidc.ClientContext(ctx, c.httpClient), c.cfg.CallbackTimeout)
	defer cancel()

	start := time.Now()
	token, err := c.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(flow.CodeVerifier))
	c.metrics.ObserveProvider("authorization_code", start)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			message := retrieveErr.ErrorDescription
			if message == "" {
				message = autherrors.MessageAuthorization
			}
			return nil, autherrors.NewAuthError(autherrors.ErrProviderRejected, message, err)
		}
		return nil, autherrors.NewAuthError(autherrors.ErrNetworkFailure, autherrors.MessageUnexpected, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	expiresIn := time.Until(token.Expiry).Round(time.Second)
	if !ok || rawIDToken == "" || token.AccessToken == "" || token.Expiry.IsZero() || expiresIn <= 0 {
		return nil, autherrors.NewAuthError(autherrors.ErrMalformedProviderResponse, autherrors.MessageLoginFailed,
			errors.New("[Redirect HandleCallback] token response missing required fields"))
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, autherrors.NewAuthError(autherrors.ErrAuthorizationDeny, autherrors.MessageAuthorization,
			fmt.Errorf("[Redirect HandleCallback] id token verification failed: %w", err))
	}
	if idToken.Nonce != flow.Nonce {
		return nil, autherrors.NewAuthError(autherrors.ErrAuthorizationDeny, autherrors.MessageAuthorization,
			errors.New("[Redirect HandleCallback] nonce mismatch"))
	}

	return &credential.Grant{
		AccessToken: token.AccessToken,
		IDToken:     rawIDToken,
		ExpiresIn:   expiresIn,
	}, nil
}

func (c *Controller) fail(attempt session.Attempt, authErr *autherrors.AuthError) Resolution {
	if err := c.Fail(attempt, authErr); errors.Is(err, autherrors.ErrSuperseded) {
		return Resolution{Location: session.LoginPath}
	}
	return Resolution{Location: session.LoginPath, Err: authErr}
}

func (c *Controller) resolveFromState(ctx context.Context) Resolution {
	if c.State(ctx).IsAuthenticated() {
		return Resolution{Location: guard.DefaultReturnTo}
	}
	return Resolution{Location: session.LoginPath}
}

// Logout clears the session and returns the provider's logout location, which
// sends the user back to the console's login page.
func (c *Controller) Logout(ctx context.Context) session.Navigation {
	c.Reset(ctx)
	return session.Navigation{
		Location: session.ProviderLogoutURL(c.providerURL, c.cfg.ClientID, c.cfg.BaseURL+session.LoginPath),
		External: true,
	}
}

func randomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
