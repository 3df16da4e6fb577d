package server

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/jrsteele09/go-auth-session/guard"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/rs/zerolog"
)

const (
	formErrorRequired = "Please enter both email and password"
	formErrorEmail    = "Please enter a valid email address"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName     string
	Direct      bool
	ReturnTo    string
	FormError   string
	FieldErrors map[string]string
	Error       string // Failure of the last login attempt
	Email       string // Preserve email on error
}

// LoginForm is the direct strategy's login form submission
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks both fields are present and the email is well formed
func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required.Error("Email is required"), is.Email),
		validation.Field(&f.Password, validation.Required.Error("Password is required")),
	)
}

// formErrors turns a validation failure into the form level message and the
// per field messages shown on the login page
func formErrors(err error) (string, map[string]string) {
	fields := map[string]string{}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return formErrorRequired, fields
	}

	message := formErrorEmail
	for field, fieldErr := range errs {
		fields[field] = fieldErr.Error()
		if field == "password" || fieldErr.Error() == "Email is required" {
			message = formErrorRequired
		}
	}
	return message, fields
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnTo := guard.SafeReturnTo(r.URL.Query().Get(guard.ReturnToParam))

		state := s.provider.State(r.Context())
		if state.IsAuthenticated() {
			seeOther(w, r, returnTo)
			return
		}

		s.renderLogin(w, r, http.StatusOK, LoginPageData{
			ReturnTo: returnTo,
			Error:    state.ErrorMessage(),
			Email:    r.URL.Query().Get("email"),
		})
	}
}

// LoginSubmissionHandler processes the login form (POST /auth/login). The direct
// strategy exchanges the credentials, the redirect strategy hands over to the
// provider's hosted login.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		returnTo := guard.SafeReturnTo(r.FormValue(guard.ReturnToParam))
		logger := zerolog.Ctx(r.Context())

		req := session.LoginRequest{ReturnTo: returnTo}
		if s.provider.CollectsCredentials() {
			form := LoginForm{
				Email:    strings.TrimSpace(r.FormValue("email")),
				Password: r.FormValue("password"),
			}
			if err := form.Validate(); err != nil {
				message, fields := formErrors(err)
				s.renderLogin(w, r, http.StatusBadRequest, LoginPageData{
					ReturnTo:    returnTo,
					FormError:   message,
					FieldErrors: fields,
					Email:       form.Email,
				})
				return
			}
			req.Email, req.Password = form.Email, form.Password
		}

		nav, err := s.provider.StartLogin(r.Context(), req)
		switch {
		case err == nil:
			seeOther(w, r, nav.Location)
		case !s.provider.CollectsCredentials():
			logger.Err(err).Msg("Failed to start provider login")
			http.Error(w, autherrors.MessageUnexpected, http.StatusInternalServerError)
		default:
			if errors.Is(err, autherrors.ErrSuperseded) {
				logger.Info().Msg("Login superseded by a newer attempt")
			}
			seeOther(w, r, loginRetryLocation(returnTo, req.Email))
		}
	}
}

// LogoutHandler clears the session and follows the strategy's logout navigation
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav := s.provider.Logout(r.Context())
		zerolog.Ctx(r.Context()).Info().Bool("external", nav.External).Msg("Logged out")
		seeOther(w, r, nav.Location)
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, data LoginPageData) {
	data.AppName = s.config.GetAppName()
	data.Direct = s.provider.CollectsCredentials()
	if data.FieldErrors == nil {
		data.FieldErrors = map[string]string{}
	}
	s.pages.render(w, r, pageLogin, status, data)
}
