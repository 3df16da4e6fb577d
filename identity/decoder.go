package identity

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// alphabet maps the standard base64 alphabet onto the URL-safe one so tokens from
// providers that emit either decode the same way.
var alphabet = strings.NewReplacer("+", "-", "/", "_")

// Decode returns the claims carried by the payload segment of compact.
// Any structural, encoding or JSON failure yields nil and an error wrapping
// ErrTokenDecode. The signature is not verified.
func Decode(compact string) (*Claims, error) {
	segments := strings.Split(strings.TrimSpace(compact), ".")
	if len(segments) != 3 {
		return nil, autherrors.Wrapf(autherrors.ErrTokenDecode, "[Identity Decode] expected 3 segments, got %d", len(segments))
	}

	payload, err := segmentParser.DecodeSegment(alphabet.Replace(segments[1]))
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrTokenDecode, "[Identity Decode] payload encoding: %v", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrTokenDecode, "[Identity Decode] payload JSON: %v", err)
	}
	return &claims, nil
}
