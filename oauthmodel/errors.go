package oauthmodel

// ErrorResponse is the structured error body returned by the provider's token endpoint
type ErrorResponse struct {
	// Error is the machine readable error code.
	// Example: "invalid_grant"
	Error ErrorCode `json:"error"`

	// ErrorDescription is the human readable explanation, preferred for display.
	// Example: "Wrong email or password."
	ErrorDescription string `json:"error_description,omitempty"`
}

// ErrorCode is an OAuth2 token endpoint error code (RFC 6749 section 5.2)
type ErrorCode string

const (
	// ErrorInvalidGrant means the resource owner credentials are invalid.
	ErrorInvalidGrant ErrorCode = "invalid_grant"
	// ErrorInvalidRequest means a parameter is missing or malformed.
	ErrorInvalidRequest ErrorCode = "invalid_request"
	// ErrorInvalidClient means client authentication failed.
	ErrorInvalidClient ErrorCode = "invalid_client"
	// ErrorUnauthorizedClient means the client may not use this grant type.
	ErrorUnauthorizedClient ErrorCode = "unauthorized_client"
	// ErrorAccessDenied is returned by the authorization endpoint when the user declines.
	ErrorAccessDenied ErrorCode = "access_denied"
	// ErrorTooManyAttempts is the provider's brute force protection code.
	ErrorTooManyAttempts ErrorCode = "too_many_attempts"
)
