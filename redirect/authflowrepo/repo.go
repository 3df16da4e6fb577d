// Package authflowrepo keeps the pending state of redirect logins between the
// authorization request and its callback.
package authflowrepo

import "time"

// AuthFlowState is what the console must remember about one redirect login
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

// Expired reports whether the flow is older than ttl at now
func (s *AuthFlowState) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) >= ttl
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	// Consume returns the flow for state and removes it, so a callback can only be
	// evaluated once. Unknown states yield ErrFlowNotFound.
	Consume(state string) (*AuthFlowState, error)
	// Purge removes flows created before cutoff and returns how many were removed
	Purge(cutoff time.Time) int
}
