// Package guard decides what a request for a protected view should produce given
// the current session state. Decide is pure, Middleware adapts it to net/http.
package guard

import (
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-session/session"
)

const (
	// DefaultReturnTo is where a login continues when no safe continuation is known
	DefaultReturnTo = "/dashboard"
	// CallbackPath is the redirect strategy's callback location
	CallbackPath = "/callback"
	// ReturnToParam carries the continuation through the login page
	ReturnToParam = "returnTo"
)

// Action is the outcome of a guard decision
type Action int

const (
	RenderLoading Action = iota
	RenderErrorAndRedirect
	RedirectToLogin
	RenderProtected
)

func (a Action) String() string {
	switch a {
	case RenderLoading:
		return "render-loading"
	case RenderErrorAndRedirect:
		return "render-error"
	case RedirectToLogin:
		return "redirect-login"
	case RenderProtected:
		return "render-protected"
	default:
		return "unknown"
	}
}

// Decision tells the caller what to render. Location is the login location
// carrying the continuation, set for RenderErrorAndRedirect and RedirectToLogin.
type Decision struct {
	Action   Action
	Location string
	Message  string
}

// Decide maps a session state and the requested location to a decision.
// Precedence: loading, then error, then unauthenticated, then protected content.
func Decide(state session.State, requested string) Decision {
	switch {
	case state.IsLoading():
		return Decision{Action: RenderLoading}
	case state.Status == session.StatusError:
		return Decision{
			Action:   RenderErrorAndRedirect,
			Location: LoginLocation(requested),
			Message:  state.ErrorMessage(),
		}
	case !state.IsAuthenticated():
		return Decision{Action: RedirectToLogin, Location: LoginLocation(requested)}
	default:
		return Decision{Action: RenderProtected}
	}
}

// LoginLocation returns the login location continuing to requested
func LoginLocation(requested string) string {
	return session.LoginPath + "?" + url.Values{ReturnToParam: {SafeReturnTo(requested)}}.Encode()
}

// SafeReturnTo sanitises a continuation. Only local absolute paths are kept, the
// login and callback pages are never continuation targets, anything else yields
// DefaultReturnTo.
func SafeReturnTo(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return DefaultReturnTo
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return DefaultReturnTo
	}

	switch u.Path {
	case "", "/", session.LoginPath, CallbackPath:
		return DefaultReturnTo
	}
	return u.RequestURI()
}
