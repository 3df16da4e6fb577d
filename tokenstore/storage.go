package tokenstore

import "context"

// Storage keys written by Store. Every backend holds exactly these entries.
const (
	KeyAccessToken = "access_token"
	KeyIDToken     = "id_token"
	KeyExpiresAt   = "expires_at"
)

// Keys lists every key owned by the token store
var Keys = []string{KeyAccessToken, KeyIDToken, KeyExpiresAt}

// Storage is the durable key/value storage the token store persists into.
// Get reports a missing key with ok == false and a nil error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
