package session

import (
	"time"

	"github.com/jrsteele09/go-auth-session/identity"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// Status is the authentication state of a session
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusError           Status = "error"
)

// State is a snapshot of the session as observed by consumers.
// User is set only while Authenticated, and may still be nil then when the stored
// id token could not be decoded. Err is set only in StatusError.
type State struct {
	Status    Status
	User      *identity.Claims
	Err       *autherrors.AuthError
	ExpiresAt time.Time
}

func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s State) IsLoading() bool {
	return s.Status == StatusAuthenticating
}

// ErrorMessage returns the user-facing failure message, empty unless in StatusError
func (s State) ErrorMessage() string {
	if s.Status != StatusError {
		return ""
	}
	if s.Err == nil {
		return autherrors.MessageUnexpected
	}
	return s.Err.Message
}
