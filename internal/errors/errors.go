package errors

import (
	"errors"
	"fmt"
)

// Authentication failure kinds surfaced to the session controllers
var (
	// Credential exchange errors
	ErrNetworkFailure            = errors.New("network failure")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrProviderRejected          = errors.New("provider rejected login")
	ErrMalformedProviderResponse = errors.New("malformed provider response")

	// Token errors
	ErrTokenDecode    = errors.New("token decode failure")
	ErrSessionExpired = errors.New("session expired")

	// Controller errors
	ErrSuperseded = errors.New("login attempt superseded")
	ErrStorage    = errors.New("token storage failure")

	// Redirect flow errors
	ErrInvalidState      = errors.New("invalid state parameter")
	ErrFlowNotFound      = errors.New("login flow not found")
	ErrFlowExpired       = errors.New("login flow expired")
	ErrAuthorizationDeny = errors.New("authorization denied by provider")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// User-facing messages
const (
	MessageInvalidCredentials = "Invalid username or password"
	MessageLoginFailed        = "Login failed"
	MessageUnexpected         = "An unexpected error occurred during authentication. Please try again later."
	MessageStorage            = "Authentication failed. Please try again."
	MessageAuthorization      = "There was a problem verifying your identity. Please try logging in again."
)

// AuthError is a typed authentication failure. Kind is one of the sentinel errors
// above and Message is safe to show to the user. Err keeps the underlying cause
// for logs only.
type AuthError struct {
	Kind    error
	Message string
	Err     error
}

// NewAuthError builds an AuthError for kind with a user-facing message
func NewAuthError(kind error, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: cause}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches the kind sentinel so callers can use errors.Is(err, ErrInvalidCredentials)
func (e *AuthError) Is(target error) bool {
	return e.Kind == target
}

// Retryable reports whether a user re-submission may succeed without changing input
func (e *AuthError) Retryable() bool {
	return e.Kind == ErrNetworkFailure || e.Kind == ErrStorage
}

// UserMessage returns the message to render for err, falling back to a generic one
func UserMessage(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return MessageUnexpected
}

// AsAuthError converts any error into an AuthError, keeping typed ones as they are
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return NewAuthError(ErrNetworkFailure, MessageUnexpected, err)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
