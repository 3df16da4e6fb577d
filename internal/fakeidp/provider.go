// Package fakeidp is an in-process OpenID Connect provider speaking the subset of
// the hosted provider's protocol the console uses: discovery, JWKS, the password
// and authorization code grants, the authorize redirect and logout. It backs the
// integration tests and local development without a real tenant.
package fakeidp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/oauthmodel"
)

// User is an account the provider accepts
type User struct {
	Username string
	Password string
	Subject  string
	Name     string
	Email    string
	Nickname string
	Picture  string
}

type pendingCode struct {
	user          User
	clientID      string
	redirectURI   string
	nonce         string
	codeChallenge string
	expiresAt     time.Time
}

// grantError is an OAuth2 token endpoint failure
type grantError struct {
	status int
	body   oauthmodel.ErrorResponse
}

func (e *grantError) Error() string {
	return fmt.Sprintf("%s: %s", e.body.Error, e.body.ErrorDescription)
}

// Provider is the fake identity provider
type Provider struct {
	mu            sync.Mutex
	issuer        string
	clientID      string
	keys          *KeyPair
	users         map[string]User
	codes         map[string]pendingCode
	tokenTTL      time.Duration
	nowTime       func() time.Time
	authorizeUser string
	tokenRequests int
}

// Option defines a function type to modify the Provider instance.
type Option func(*Provider)

// WithUser registers an account
func WithUser(user User) Option {
	return func(p *Provider) {
		p.users[user.Username] = user
	}
}

// WithTokenTTL sets the expires_in of issued tokens
func WithTokenTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.tokenTTL = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

// New creates a provider for clientID. Call SetIssuer once the provider's URL is
// known.
func New(clientID string, opts ...Option) (*Provider, error) {
	keys, err := GenerateKeyPair(uuid.NewString())
	if err != nil {
		return nil, err
	}

	p := &Provider{
		clientID: clientID,
		keys:     keys,
		users:    make(map[string]User),
		codes:    make(map[string]pendingCode),
		tokenTTL: time.Hour,
		nowTime:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// SetIssuer sets the issuer URL. Tokens carry it as "iss" and discovery serves it.
func (p *Provider) SetIssuer(issuer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuer = issuer
}

// Issuer returns the configured issuer URL
func (p *Provider) Issuer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issuer
}

// AuthorizeAs selects the account the authorize endpoint signs in
func (p *Provider) AuthorizeAs(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorizeUser = username
}

// TokenRequests returns the number of token endpoint calls served
func (p *Provider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// IDToken signs an id token for user, usable by tests that need a provider-issued token
func (p *Provider) IDToken(user User, nonce string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idToken(user, nonce)
}

func (p *Provider) passwordGrant(req oauthmodel.PasswordGrantRequest) (*oauthmodel.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenRequests++

	if req.ClientID != p.clientID {
		return nil, &grantError{status: 401, body: oauthmodel.ErrorResponse{Error: oauthmodel.ErrorInvalidClient}}
	}
	user, ok := p.users[req.Username]
	if !ok || user.Password != req.Password {
		return nil, &grantError{status: 403, body: oauthmodel.ErrorResponse{
			Error:            oauthmodel.ErrorInvalidGrant,
			ErrorDescription: "Wrong email or password.",
		}}
	}
	return p.tokens(user, "")
}

func (p *Provider) authorize(clientID, redirectURI, nonce, codeChallenge, method string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if clientID != p.clientID {
		return "", errors.New("unknown client")
	}
	if method != "S256" || codeChallenge == "" {
		return "", errors.New("PKCE S256 is required")
	}
	user, ok := p.users[p.authorizeUser]
	if !ok {
		for _, u := range p.users {
			user, ok = u, true
			break
		}
	}
	if !ok {
		return "", errors.New("no account to authorize")
	}

	code := randomString()
	p.codes[code] = pendingCode{
		user:          user,
		clientID:      clientID,
		redirectURI:   redirectURI,
		nonce:         nonce,
		codeChallenge: codeChallenge,
		expiresAt:     p.nowTime().Add(5 * time.Minute),
	}
	return code, nil
}

func (p *Provider) codeGrant(clientID, code, redirectURI, verifier string) (*oauthmodel.TokenResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenRequests++

	invalid := func(description string) error {
		return &grantError{status: 400, body: oauthmodel.ErrorResponse{Error: oauthmodel.ErrorInvalidGrant, ErrorDescription: description}}
	}

	pending, ok := p.codes[code]
	if !ok {
		return nil, invalid("Invalid authorization code")
	}
	delete(p.codes, code)

	switch {
	case p.nowTime().After(pending.expiresAt):
		return nil, invalid("Authorization code expired")
	case pending.clientID != clientID:
		return nil, invalid("Client mismatch")
	case pending.redirectURI != redirectURI:
		return nil, invalid("Redirect URI mismatch")
	case challengeS256(verifier) != pending.codeChallenge:
		return nil, invalid("Failed to verify code verifier")
	}
	return p.tokens(pending.user, pending.nonce)
}

func (p *Provider) tokens(user User, nonce string) (*oauthmodel.TokenResponse, error) {
	idToken, err := p.idToken(user, nonce)
	if err != nil {
		return nil, err
	}
	accessToken, err := p.keys.Sign(jwt.MapClaims{
		"iss":   p.issuer,
		"sub":   user.Subject,
		"aud":   p.clientID,
		"iat":   p.nowTime().Unix(),
		"exp":   p.nowTime().Add(p.tokenTTL).Unix(),
		"scope": "openid profile email",
	})
	if err != nil {
		return nil, err
	}

	return &oauthmodel.TokenResponse{
		AccessToken: utils.Ptr(accessToken),
		IdToken:     utils.Ptr(idToken),
		TokenType:   "Bearer",
		ExpiresIn:   utils.Ptr(int64(p.tokenTTL.Seconds())),
	}, nil
}

func (p *Provider) idToken(user User, nonce string) (string, error) {
	claims := jwt.MapClaims{
		"iss":            p.issuer,
		"sub":            user.Subject,
		"aud":            p.clientID,
		"iat":            p.nowTime().Unix(),
		"exp":            p.nowTime().Add(p.tokenTTL).Unix(),
		"email_verified": true,
	}
	optional := map[string]string{
		"name":     user.Name,
		"email":    user.Email,
		"nickname": user.Nickname,
		"picture":  user.Picture,
	}
	for k, v := range optional {
		if v != "" {
			claims[k] = v
		}
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	return p.keys.Sign(claims)
}

func challengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomString() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
