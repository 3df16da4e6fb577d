package oauthmodel

// PasswordGrantRequest is the JSON body sent to the provider's /oauth/token endpoint
// for the resource owner password grant.
type PasswordGrantRequest struct {
	// GrantType is always "password" for this request.
	// Example: "password"
	GrantType GrantType `json:"grant_type"`

	// Username identifies the resource owner, usually an email address.
	// Example: "john.doe@example.com"
	Username string `json:"username"`

	// Password is the resource owner's secret.
	// Security: Never log or expose this value, use Redacted() for logging
	Password string `json:"password"`

	// ClientID identifies this application at the provider.
	// Example: "DSLzzKxWUutNQtqk2tM5gi1uZyVZpNlD"
	ClientID string `json:"client_id"`

	// Scope is the space separated list of requested scopes.
	// Example: "openid profile email"
	// Note: "openid" must be present for the provider to issue an id_token
	Scope string `json:"scope"`

	// Audience is the API identifier the access token is issued for.
	// Required: Provider configuration dependent, omitted when empty
	// Example: "https://api.example.com"
	Audience string `json:"audience,omitempty"`

	// Connection names the provider's user store (Auth0 "realm" style parameter).
	// Required: Provider configuration dependent, omitted when empty
	// Example: "Username-Password-Authentication"
	Connection string `json:"connection,omitempty"`
}

// Redacted returns a copy that is safe to log
func (r PasswordGrantRequest) Redacted() PasswordGrantRequest {
	redacted := r
	if redacted.Password != "" {
		redacted.Password = RedactedValue
	}
	return redacted
}

// RedactedValue replaces secrets in logged request summaries
const RedactedValue = "********"
