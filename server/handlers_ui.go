package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-session/guard"
	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// DashboardPageData contains data for rendering the protected dashboard
type DashboardPageData struct {
	AppName       string
	Name          string
	Initial       string
	Email         string
	EmailVerified bool
	Nickname      string
	Subject       string
	ExpiresAt     time.Time
}

// StatusPageData contains data for the loading and error pages
type StatusPageData struct {
	AppName  string
	Message  string
	Location string
}

var _ guard.Renderer = (*Server)(nil)

// DashboardHandler renders the signed in user's profile. It runs behind the
// route guard, which has already placed an authenticated state in the context.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, _ := guard.StateFrom(r.Context())

		data := DashboardPageData{
			AppName:   s.config.GetAppName(),
			Name:      "User",
			Initial:   "?",
			ExpiresAt: state.ExpiresAt,
		}
		if user := state.User; user != nil {
			data.Name = user.DisplayName()
			data.Initial = user.Initial()
			data.Email = utils.Value(user.Email)
			data.EmailVerified = utils.Value(user.EmailVerified)
			data.Nickname = utils.Value(user.Nickname)
			data.Subject = user.Subject
		}
		s.pages.render(w, r, pageDashboard, http.StatusOK, data)
	}
}

// RenderLoading shows the interim page while a login is being resolved
func (s *Server) RenderLoading(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, r, pageLoading, http.StatusOK, StatusPageData{
		AppName: s.config.GetAppName(),
	})
}

// RenderError shows the failure and points the user back to the login page
func (s *Server) RenderError(w http.ResponseWriter, r *http.Request, message, loginLocation string) {
	s.pages.render(w, r, pageError, http.StatusUnauthorized, StatusPageData{
		AppName:  s.config.GetAppName(),
		Message:  message,
		Location: loginLocation,
	})
}
