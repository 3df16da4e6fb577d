package fakeidp

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-session/oauthmodel"
	"github.com/rs/zerolog/log"
)

const (
	RouteDiscovery = "/.well-known/openid-configuration"
	RouteJWKS      = "/.well-known/jwks.json"
	RouteAuthorize = "/authorize"
	RouteToken     = "/oauth/token"
	RouteLogout    = "/v2/logout"

	contentTypeJSON = "application/json; charset=utf-8"
)

// Handler serves the provider's endpoints
func (p *Provider) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+RouteDiscovery, p.discovery)
	mux.HandleFunc("GET "+RouteJWKS, p.jwks)
	mux.HandleFunc("GET "+RouteAuthorize, p.authorizeHandler)
	mux.HandleFunc("POST "+RouteToken, p.token)
	mux.HandleFunc("GET "+RouteLogout, p.logout)
	return mux
}

func (p *Provider) discovery(w http.ResponseWriter, _ *http.Request) {
	issuer := p.Issuer()
	base := strings.TrimSuffix(issuer, "/")

	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                base + RouteAuthorize,
		"token_endpoint":                        base + RouteToken,
		"jwks_uri":                              base + RouteJWKS,
		"end_session_endpoint":                  base + RouteLogout,
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{RS256},
		"scopes_supported":                      []string{"openid", "profile", "email"},
		"code_challenge_methods_supported":      []string{"S256"},
		"grant_types_supported":                 []string{"authorization_code", "password"},
	})
}

func (p *Provider) jwks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, p.keys.JWKS())
}

// authorizeHandler approves the request for the selected account straight away
// and redirects back with a code, or with an error when the request is unusable.
func (p *Provider) authorizeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	callback, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	params := url.Values{}
	params.Set("state", q.Get("state"))

	code, err := p.authorize(q.Get("client_id"), redirectURI, q.Get("nonce"), q.Get("code_challenge"), q.Get("code_challenge_method"))
	if err != nil {
		log.Info().Err(err).Msg("Denying authorization request")
		params.Set("error", string(oauthmodel.ErrorAccessDenied))
		params.Set("error_description", err.Error())
	} else {
		params.Set("code", code)
	}

	callback.RawQuery = params.Encode()
	http.Redirect(w, r, callback.String(), http.StatusFound)
}

// token serves the password grant (JSON body) and the authorization code grant
// (form body, as sent by OAuth2 client libraries).
func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		tokens *oauthmodel.TokenResponse
		err    error
	)
	switch mediaType {
	case "application/json":
		var req oauthmodel.PasswordGrantRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			writeError(w, http.StatusBadRequest, oauthmodel.ErrorInvalidRequest, "Malformed JSON body")
			return
		}
		if req.GrantType != oauthmodel.PasswordGrant {
			writeError(w, http.StatusBadRequest, oauthmodel.ErrorInvalidRequest, "Unsupported grant type")
			return
		}
		tokens, err = p.passwordGrant(req)
	default:
		if parseErr := r.ParseForm(); parseErr != nil {
			writeError(w, http.StatusBadRequest, oauthmodel.ErrorInvalidRequest, "Failed to parse form data")
			return
		}
		if oauthmodel.GrantType(r.PostFormValue("grant_type")) != oauthmodel.AuthorizationCodeGrant {
			writeError(w, http.StatusBadRequest, oauthmodel.ErrorInvalidRequest, "Unsupported grant type")
			return
		}
		clientID := r.PostFormValue("client_id")
		if id, _, ok := r.BasicAuth(); ok {
			clientID = id
		}
		tokens, err = p.codeGrant(clientID, r.PostFormValue("code"), r.PostFormValue("redirect_uri"), r.PostFormValue("code_verifier"))
	}

	if err != nil {
		var ge *grantError
		if errors.As(err, &ge) {
			writeError(w, ge.status, ge.body.Error, ge.body.ErrorDescription)
			return
		}
		writeError(w, http.StatusInternalServerError, oauthmodel.ErrorInvalidRequest, "Token issuance failed")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, tokens)
}

func (p *Provider) logout(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Query().Get("returnTo")
	if returnTo == "" {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code oauthmodel.ErrorCode, description string) {
	writeJSON(w, status, oauthmodel.ErrorResponse{Error: code, ErrorDescription: description})
}
