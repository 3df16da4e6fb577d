package oauthmodel

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// PasswordGrant exchanges the resource owner's username and password for tokens.
	// Used in: direct credential login
	// Token request includes: username, password, client_id, scope
	// Returns: access_token, id_token, expires_in
	PasswordGrant GrantType = "password"

	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Used in: delegated redirect login (with PKCE)
	AuthorizationCodeGrant GrantType = "authorization_code"
)
