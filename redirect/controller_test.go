package redirect_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/fakeidp"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/redirect"
	"github.com/jrsteele09/go-auth-session/redirect/authflowrepo"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/tokenstore"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "console-client"
	testBaseURL  = "http://console.test"
)

var testUser = fakeidp.User{
	Username: "ada@example.com",
	Password: "correct-horse",
	Subject:  "auth0|ada",
	Name:     "Ada Lovelace",
	Email:    "ada@example.com",
}

type fixture struct {
	idp     *fakeidp.Provider
	server  *httptest.Server
	storage *tokenstore.InMemoryStorage
	store   *tokenstore.Store
	flows   *authflowrepo.InMemoryRepo
}

func newFixture(t *testing.T) *fixture {
	idp, err := fakeidp.New(testClientID, fakeidp.WithUser(testUser))
	require.NoError(t, err)

	server := httptest.NewServer(idp.Handler())
	t.Cleanup(server.Close)
	idp.SetIssuer(server.URL + "/")

	storage := tokenstore.NewInMemoryStorage()
	return &fixture{
		idp:     idp,
		server:  server,
		storage: storage,
		store:   tokenstore.New(storage),
		flows:   authflowrepo.NewInMemoryRepo(),
	}
}

func (f *fixture) controller(t *testing.T, opts ...redirect.Option) *redirect.Controller {
	opts = append([]redirect.Option{redirect.WithFlowRepo(f.flows)}, opts...)
	c, err := redirect.New(context.Background(), redirect.Config{
		Domain:   f.server.URL,
		ClientID: testClientID,
		BaseURL:  testBaseURL,
	}, f.store, opts...)
	require.NoError(t, err)
	return c
}

// authorize follows the authorization URL to the provider and returns the
// callback parameters it redirects back with
func authorize(t *testing.T, authURL string) redirect.CallbackParams {
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/callback", location.Path)
	return redirect.CallbackParamsFromQuery(location.Query())
}

func TestBeginLogin_BuildsAuthorizationURL(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)

	authURL, err := c.BeginLogin(context.Background(), "/dashboard/events")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	require.Equal(t, f.server.URL+fakeidp.RouteAuthorize, parsed.Scheme+"://"+parsed.Host+parsed.Path)
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testBaseURL+"/callback", q.Get("redirect_uri"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.NotEmpty(t, q.Get("nonce"))
	require.Contains(t, q.Get("scope"), "openid")
	require.Empty(t, q.Get("audience"))

	flow, err := f.flows.Get(q.Get("state"))
	require.NoError(t, err)
	require.Equal(t, "/dashboard/events", flow.ReturnURL)

	// Starting the redirect does not touch the session
	require.Equal(t, session.StatusUnauthenticated, c.State(context.Background()).Status)
}

func TestStartLogin_HandsOverToProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var provider session.Provider = f.controller(t)
	require.False(t, provider.CollectsCredentials())
	require.Equal(t, redirect.StrategyRedirect, provider.Strategy())

	nav, err := provider.StartLogin(ctx, session.LoginRequest{Email: "ignored", ReturnTo: "/dashboard"})
	require.NoError(t, err)
	require.True(t, nav.External)
	require.Contains(t, nav.Location, f.server.URL+fakeidp.RouteAuthorize)
	require.Equal(t, session.StatusUnauthenticated, provider.State(ctx).Status)
	require.Equal(t, 1, f.flows.Len())
}

func TestBeginLogin_SanitisesReturnTo(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)

	authURL, err := c.BeginLogin(context.Background(), "https://evil.example.com")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	flow, err := f.flows.Get(parsed.Query().Get("state"))
	require.NoError(t, err)
	require.Equal(t, "/dashboard", flow.ReturnURL)
}

func TestHandleCallback_CompletesLogin(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard/events")
	require.NoError(t, err)

	resolution := c.HandleCallback(ctx, authorize(t, authURL))
	require.Nil(t, resolution.Err)
	require.Equal(t, "/dashboard/events", resolution.Location)

	state := c.State(ctx)
	require.True(t, state.IsAuthenticated())
	require.NotNil(t, state.User)
	require.Equal(t, testUser.Subject, state.User.Subject)
	require.Equal(t, "Ada Lovelace", state.User.DisplayName())

	token, ok := c.AccessToken(ctx)
	require.True(t, ok)
	require.NotEmpty(t, token)
	require.True(t, f.store.IsValid(ctx))
	require.Equal(t, 0, f.flows.Len())
}

func TestHandleCallback_ReplayDoesNotExchangeAgain(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	params := authorize(t, authURL)

	require.Equal(t, "/dashboard", c.HandleCallback(ctx, params).Location)
	require.Equal(t, 1, f.idp.TokenRequests())

	replay := c.HandleCallback(ctx, params)
	require.Nil(t, replay.Err)
	require.Equal(t, "/dashboard", replay.Location)
	require.Equal(t, 1, f.idp.TokenRequests())
	require.True(t, c.State(ctx).IsAuthenticated())
}

func TestHandleCallback_UnknownStateWhenSignedOut(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)

	resolution := c.HandleCallback(context.Background(), redirect.CallbackParams{Code: "abc", State: "unknown"})
	require.Nil(t, resolution.Err)
	require.Equal(t, session.LoginPath, resolution.Location)
	require.Equal(t, session.StatusUnauthenticated, c.State(context.Background()).Status)
	require.Equal(t, 0, f.idp.TokenRequests())
}

func TestHandleCallback_ProviderError(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)

	resolution := c.HandleCallback(ctx, redirect.CallbackParams{
		State:            parsed.Query().Get("state"),
		Error:            "access_denied",
		ErrorDescription: "User cancelled the login",
	})
	require.Equal(t, session.LoginPath, resolution.Location)
	require.NotNil(t, resolution.Err)
	require.ErrorIs(t, resolution.Err, autherrors.ErrAuthorizationDeny)

	state := c.State(ctx)
	require.Equal(t, session.StatusError, state.Status)
	require.Equal(t, "User cancelled the login", state.ErrorMessage())
	require.Equal(t, 0, f.flows.Len())
}

// TestHandleCallback_ErrorWithoutPendingFlow tests that an error callback for an
// unknown or already consumed state leaves an authenticated session untouched
func TestHandleCallback_ErrorWithoutPendingFlow(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	params := authorize(t, authURL)
	require.Nil(t, c.HandleCallback(ctx, params).Err)
	require.True(t, c.State(ctx).IsAuthenticated())

	for _, state := range []string{"stale", params.State, ""} {
		resolution := c.HandleCallback(ctx, redirect.CallbackParams{
			State:            state,
			Error:            "access_denied",
			ErrorDescription: "Injected description",
		})
		require.Equal(t, "/dashboard", resolution.Location)
		require.Nil(t, resolution.Err)

		current := c.State(ctx)
		require.True(t, current.IsAuthenticated())
		require.Empty(t, current.ErrorMessage())
		require.True(t, f.store.IsValid(ctx))
	}
	require.Equal(t, 1, f.idp.TokenRequests())
}

// TestHandleCallback_FailedReloginClearsSession tests that a failed attempt never
// leaves the previous session's tokens behind, in process or after a restart
func TestHandleCallback_FailedReloginClearsSession(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	c.HandleCallback(ctx, authorize(t, authURL))
	require.True(t, c.State(ctx).IsAuthenticated())

	authURL, err = c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	params := authorize(t, authURL)
	params.Code = "forged"

	resolution := c.HandleCallback(ctx, params)
	require.ErrorIs(t, resolution.Err, autherrors.ErrProviderRejected)
	require.Equal(t, session.StatusError, c.State(ctx).Status)
	require.False(t, f.store.IsValid(ctx))

	restarted := f.controller(t)
	require.Equal(t, session.StatusUnauthenticated, restarted.State(ctx).Status)
}

func TestHandleCallback_ExpiredFlow(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	c := f.controller(t, redirect.WithNowTime(func() time.Time { return now }))
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	params := authorize(t, authURL)

	now = now.Add(11 * time.Minute)
	resolution := c.HandleCallback(ctx, params)
	require.Equal(t, session.LoginPath, resolution.Location)
	require.ErrorIs(t, resolution.Err, autherrors.ErrFlowExpired)
	require.Equal(t, session.StatusError, c.State(ctx).Status)
	require.Equal(t, 0, f.idp.TokenRequests())
}

func TestHandleCallback_MissingCode(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	params := authorize(t, authURL)
	params.Code = ""

	resolution := c.HandleCallback(ctx, params)
	require.ErrorIs(t, resolution.Err, autherrors.ErrInvalidState)
	require.Equal(t, session.LoginPath, resolution.Location)
}

func TestHandleCallback_RejectedCode(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	params := authorize(t, authURL)
	params.Code = "forged"

	resolution := c.HandleCallback(ctx, params)
	require.ErrorIs(t, resolution.Err, autherrors.ErrProviderRejected)
	require.Equal(t, "Invalid authorization code", c.State(ctx).ErrorMessage())
	require.False(t, f.store.IsValid(ctx))
}

func TestNew_RestoresStoredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	idToken, err := f.idp.IDToken(testUser, "")
	require.NoError(t, err)
	require.NoError(t, f.store.Persist(ctx, "stored-access", idToken, time.Hour))

	c := f.controller(t)
	state := c.State(ctx)
	require.True(t, state.IsAuthenticated())
	require.Equal(t, testUser.Subject, state.User.Subject)
	require.Equal(t, 0, f.idp.TokenRequests())
}

func TestNew_DiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := redirect.New(context.Background(), redirect.Config{
		Domain:   server.URL,
		ClientID: testClientID,
		BaseURL:  testBaseURL,
	}, tokenstore.New(tokenstore.NewInMemoryStorage()))
	require.Error(t, err)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	c := f.controller(t)
	ctx := context.Background()

	authURL, err := c.BeginLogin(ctx, "/dashboard")
	require.NoError(t, err)
	c.HandleCallback(ctx, authorize(t, authURL))
	require.True(t, c.State(ctx).IsAuthenticated())

	nav := c.Logout(ctx)
	require.True(t, nav.External)

	parsed, err := url.Parse(nav.Location)
	require.NoError(t, err)
	require.Equal(t, fakeidp.RouteLogout, parsed.Path)
	require.Equal(t, testClientID, parsed.Query().Get("client_id"))
	require.Equal(t, testBaseURL+"/login", parsed.Query().Get("returnTo"))

	require.Equal(t, session.StatusUnauthenticated, c.State(ctx).Status)
	require.Equal(t, 0, f.storage.Len())
}
