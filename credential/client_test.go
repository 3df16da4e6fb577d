package credential_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/credential"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newProvider serves handler as the token endpoint and returns a client pointed at it
func newProvider(t *testing.T, handler http.HandlerFunc, opts ...credential.Option) *credential.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+credential.TokenPath, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return credential.New(credential.Config{
		Domain:   srv.URL,
		ClientID: "client-1",
		Scope:    "openid profile email",
	}, append([]credential.Option{credential.WithMetrics(metrics.Noop())}, opts...)...)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func requireAuthError(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.ErrorIs(t, err, kind)
	var authErr *autherrors.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, message, authErr.Message)
}

// TestExchange_Success tests that a complete 2xx response yields a grant
func TestExchange_Success(t *testing.T) {
	var received map[string]any
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		respond(http.StatusOK, `{"access_token":"at","id_token":"it","expires_in":3600,"token_type":"Bearer"}`)(w, r)
	})

	grant, err := client.Exchange(context.Background(), "ada@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "at", grant.AccessToken)
	require.Equal(t, "it", grant.IDToken)
	require.Equal(t, time.Hour, grant.ExpiresIn)

	require.Equal(t, "password", received["grant_type"])
	require.Equal(t, "ada@example.com", received["username"])
	require.Equal(t, "s3cret", received["password"])
	require.Equal(t, "client-1", received["client_id"])
	require.Equal(t, "openid profile email", received["scope"])
	require.NotContains(t, received, "audience")
	require.NotContains(t, received, "connection")
}

// TestExchange_OptionalParameters tests that audience and connection are sent only when configured
func TestExchange_OptionalParameters(t *testing.T) {
	var received map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+credential.TokenPath, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		respond(http.StatusOK, `{"access_token":"at","id_token":"it","expires_in":60}`)(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := credential.New(credential.Config{
		Domain:     srv.URL,
		ClientID:   "client-1",
		Scope:      "openid",
		Audience:   "https://api.example.com",
		Connection: "Username-Password-Authentication",
	})

	_, err := client.Exchange(context.Background(), "u", "p")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", received["audience"])
	require.Equal(t, "Username-Password-Authentication", received["connection"])
}

func TestExchange_MissingFields(t *testing.T) {
	cases := map[string]string{
		"no access token":  `{"id_token":"it","expires_in":3600}`,
		"no id token":      `{"access_token":"at","expires_in":3600}`,
		"no expiry":        `{"access_token":"at","id_token":"it"}`,
		"zero expiry":      `{"access_token":"at","id_token":"it","expires_in":0}`,
		"empty object":     `{}`,
		"empty id token":   `{"access_token":"at","id_token":"","expires_in":3600}`,
		"negative expires": `{"access_token":"at","id_token":"it","expires_in":-5}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			client := newProvider(t, respond(http.StatusOK, body))
			grant, err := client.Exchange(context.Background(), "u", "p")
			require.Nil(t, grant)
			requireAuthError(t, err, autherrors.ErrMalformedProviderResponse, autherrors.MessageLoginFailed)
		})
	}
}

func TestExchange_ProviderErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		kind      error
		message   string
		retryable bool
	}{
		{
			name:    "description wins",
			status:  http.StatusForbidden,
			body:    `{"error":"invalid_grant","error_description":"Wrong email or password."}`,
			kind:    autherrors.ErrInvalidCredentials,
			message: "Wrong email or password.",
		},
		{
			name:    "invalid grant without description",
			status:  http.StatusForbidden,
			body:    `{"error":"invalid_grant"}`,
			kind:    autherrors.ErrInvalidCredentials,
			message: autherrors.MessageInvalidCredentials,
		},
		{
			name:    "other code without description",
			status:  http.StatusUnauthorized,
			body:    `{"error":"unauthorized_client"}`,
			kind:    autherrors.ErrProviderRejected,
			message: autherrors.MessageLoginFailed,
		},
		{
			name:    "other code with description",
			status:  http.StatusTooManyRequests,
			body:    `{"error":"too_many_attempts","error_description":"Your account has been blocked."}`,
			kind:    autherrors.ErrProviderRejected,
			message: "Your account has been blocked.",
		},
		{
			name:      "unstructured body",
			status:    http.StatusBadGateway,
			body:      `<html>bad gateway</html>`,
			kind:      autherrors.ErrNetworkFailure,
			message:   autherrors.MessageUnexpected,
			retryable: true,
		},
		{
			name:      "empty body",
			status:    http.StatusServiceUnavailable,
			body:      ``,
			kind:      autherrors.ErrNetworkFailure,
			message:   autherrors.MessageUnexpected,
			retryable: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newProvider(t, respond(tc.status, tc.body))
			grant, err := client.Exchange(context.Background(), "u", "p")
			require.Nil(t, grant)
			requireAuthError(t, err, tc.kind, tc.message)

			var authErr *autherrors.AuthError
			require.ErrorAs(t, err, &authErr)
			require.Equal(t, tc.retryable, authErr.Retryable())
		})
	}
}

func TestExchange_NetworkFailures(t *testing.T) {
	t.Run("undecodable success body", func(t *testing.T) {
		client := newProvider(t, respond(http.StatusOK, `{"access_token":`))
		_, err := client.Exchange(context.Background(), "u", "p")
		requireAuthError(t, err, autherrors.ErrNetworkFailure, autherrors.MessageUnexpected)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client := credential.New(credential.Config{Domain: url, ClientID: "client-1"})
		_, err := client.Exchange(context.Background(), "u", "p")
		requireAuthError(t, err, autherrors.ErrNetworkFailure, autherrors.MessageUnexpected)

		var authErr *autherrors.AuthError
		require.ErrorAs(t, err, &authErr)
		require.True(t, authErr.Retryable())
	})

	t.Run("timeout", func(t *testing.T) {
		client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}, credential.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

		_, err := client.Exchange(context.Background(), "u", "p")
		requireAuthError(t, err, autherrors.ErrNetworkFailure, autherrors.MessageUnexpected)
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := newProvider(t, respond(http.StatusOK, `{}`))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Exchange(ctx, "u", "p")
		requireAuthError(t, err, autherrors.ErrNetworkFailure, autherrors.MessageUnexpected)
	})
}

// TestExchange_NeverLogsSecret tests that the password only appears redacted in logs
func TestExchange_NeverLogsSecret(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)

	client := newProvider(t, respond(http.StatusForbidden, `{"error":"invalid_grant"}`), credential.WithLogger(logger))
	_, err := client.Exchange(context.Background(), "ada@example.com", "hunter2-very-secret")
	require.Error(t, err)

	require.NotContains(t, logs.String(), "hunter2-very-secret")
	require.Contains(t, logs.String(), "********")
	require.Contains(t, logs.String(), "ada@example.com")
}
