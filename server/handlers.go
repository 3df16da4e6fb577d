package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/identity"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json; charset=utf-8"

// SessionResponse is the JSON view of the session state
type SessionResponse struct {
	Strategy        string           `json:"strategy"`
	Status          string           `json:"status"`
	IsAuthenticated bool             `json:"isAuthenticated"`
	IsLoading       bool             `json:"isLoading"`
	Error           string           `json:"error,omitempty"`
	User            *identity.Claims `json:"user,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
}

// SessionHandler reports the current session state (GET /api/session)
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := s.provider.State(r.Context())

		response := SessionResponse{
			Strategy:        s.provider.Strategy(),
			Status:          string(state.Status),
			IsAuthenticated: state.IsAuthenticated(),
			IsLoading:       state.IsLoading(),
			Error:           state.ErrorMessage(),
			User:            state.User,
		}
		if state.IsAuthenticated() && !state.ExpiresAt.IsZero() {
			response.ExpiresAt = &state.ExpiresAt
		}

		writeJSON(w, r, http.StatusOK, response)
	}
}

// HealthHandler reports liveness (GET /healthz)
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Err(err).Msg("Failed to encode response")
	}
}
