package guard

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog/log"
)

// Renderer produces the non-redirect guard views
type Renderer interface {
	RenderLoading(w http.ResponseWriter, r *http.Request)
	RenderError(w http.ResponseWriter, r *http.Request, message, loginLocation string)
}

type stateContextKey struct{}

// WithState stores the state a request was admitted with
func WithState(ctx context.Context, state session.State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, state)
}

// StateFrom returns the state stored by the guard for a protected request
func StateFrom(ctx context.Context) (session.State, bool) {
	state, ok := ctx.Value(stateContextKey{}).(session.State)
	return state, ok
}

// Middleware guards next with the session state read from reader
func Middleware(reader session.StateReader, renderer Renderer) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state := reader.State(r.Context())
			decision := Decide(state, r.URL.RequestURI())

			log.Debug().
				Str("path", r.URL.Path).
				Str("status", string(state.Status)).
				Stringer("action", decision.Action).
				Msg("Guard decision")

			switch decision.Action {
			case RenderLoading:
				renderer.RenderLoading(w, r)
			case RenderErrorAndRedirect:
				renderer.RenderError(w, r, decision.Message, decision.Location)
			case RedirectToLogin:
				http.Redirect(w, r, decision.Location, http.StatusFound)
			default:
				next(w, r.WithContext(WithState(r.Context(), state)))
			}
		}
	}
}
