package oauthmodel

// TokenResponse represents the success response of the provider's token endpoint.
// This is the standard OAuth2 token endpoint response format as defined in RFC 6749.
// Optional pointers distinguish a missing field from an empty one.
type TokenResponse struct {
	// AccessToken is the bearer credential used to access protected resources.
	// Example: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken *string `json:"access_token,omitempty"`

	// IdToken is the OpenID Connect ID token carrying the user's identity claims.
	// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."
	// Only present: When "openid" scope was requested
	IdToken *string `json:"id_token,omitempty"`

	// TokenType indicates how to use the access token.
	// Example: "Bearer"
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Example: 86400
	// Usage: The client computes an absolute expiry as now + expires_in
	ExpiresIn *int64 `json:"expires_in,omitempty"`

	// RefreshToken is returned when "offline_access" was granted.
	// Note: Stored by the provider SDK only, this client does not rotate it
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope indicates the granted permissions when they differ from the request.
	// Example: "openid profile email"
	Scope string `json:"scope,omitempty"`
}

// MissingFields lists the required fields absent from the response
func (t TokenResponse) MissingFields() []string {
	var missing []string
	if t.AccessToken == nil || *t.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if t.IdToken == nil || *t.IdToken == "" {
		missing = append(missing, "id_token")
	}
	if t.ExpiresIn == nil || *t.ExpiresIn <= 0 {
		missing = append(missing, "expires_in")
	}
	return missing
}
