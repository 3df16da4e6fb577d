package identity

import (
	"unicode"

	"github.com/jrsteele09/go-auth-session/internal/utils"
)

// Claims is the decoded identity claim set. Optional claims are nil when the token
// does not carry them.
type Claims struct {
	Subject       string   `json:"sub"`
	Name          *string  `json:"name,omitempty"`
	Email         *string  `json:"email,omitempty"`
	EmailVerified *bool    `json:"email_verified,omitempty"`
	Nickname      *string  `json:"nickname,omitempty"`
	Picture       *string  `json:"picture,omitempty"`
	Issuer        string   `json:"iss,omitempty"`
	Audience      Audience `json:"aud,omitempty"`
}

// DisplayName returns the best available name for the user: name, then nickname,
// then email, then the subject.
func (c *Claims) DisplayName() string {
	if c == nil {
		return ""
	}
	for _, candidate := range []*string{c.Name, c.Nickname, c.Email} {
		if v := utils.Value(candidate); v != "" {
			return v
		}
	}
	return c.Subject
}

// Initial returns the upper-cased first letter of the display name, used as an
// avatar fallback when there is no picture.
func (c *Claims) Initial() string {
	for _, r := range c.DisplayName() {
		return string(unicode.ToUpper(r))
	}
	return "?"
}
