package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-session/redirect"
	"github.com/rs/zerolog"
)

// CallbackHandler completes the redirect login (GET /callback). Replays and
// unknown states resolve from the current session, so the user never loops
// between the callback and the login page.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := redirect.CallbackParamsFromQuery(r.URL.Query())
		resolution := s.redirect.HandleCallback(r.Context(), params)

		event := zerolog.Ctx(r.Context()).Info()
		if resolution.Err != nil {
			event = zerolog.Ctx(r.Context()).Warn().Err(resolution.Err)
		}
		event.Str("location", resolution.Location).Msg("Callback resolved")

		seeOther(w, r, resolution.Location)
	}
}
