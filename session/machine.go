package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/credential"
	"github.com/jrsteele09/go-auth-session/identity"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/jrsteele09/go-auth-session/tokenstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Attempt identifies one login attempt. Seq orders attempts within a machine, ID
// correlates log events.
type Attempt struct {
	Seq uint64
	ID  string
}

// Machine is the session state machine shared by both strategies.
//
// Unauthenticated -> Authenticating -> Authenticated | Error
// Authenticated -> Unauthenticated (logout, or expiry detected at read time)
// Authenticated | Error -> Authenticating (new attempt, stored tokens cleared)
//
// The latest attempt wins: a resolution is applied only while its attempt is the
// newest one and no logout happened since it began. Store writes and the state
// update happen under the same lock.
type Machine struct {
	mu       sync.Mutex
	store    *tokenstore.Store
	state    State
	seq      uint64
	strategy string
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// MachineOption defines a function type to modify the Machine instance.
type MachineOption func(*Machine)

// WithMachineMetrics records transitions
func WithMachineMetrics(m *metrics.Metrics) MachineOption {
	return func(machine *Machine) {
		machine.metrics = m
	}
}

// WithMachineLogger replaces the global logger
func WithMachineLogger(logger zerolog.Logger) MachineOption {
	return func(machine *Machine) {
		machine.logger = logger
	}
}

// NewMachine restores the session from store. A valid stored session becomes
// Authenticated without any network call, anything else is cleared.
func NewMachine(ctx context.Context, store *tokenstore.Store, strategy string, opts ...MachineOption) *Machine {
	m := &Machine{
		store:    store,
		strategy: strategy,
		logger:   log.Logger,
		state:    State{Status: StatusUnauthenticated},
	}
	for _, opt := range opts {
		opt(m)
	}

	if !store.IsValid(ctx) {
		store.Clear(ctx)
		m.logger.Info().Str("strategy", strategy).Msg("No stored session")
		return m
	}

	expiresAt, _ := store.ExpiresAt(ctx)
	m.state = State{
		Status:    StatusAuthenticated,
		User:      m.storedUser(ctx),
		ExpiresAt: expiresAt,
	}
	m.logger.Info().Str("strategy", strategy).Time("expires_at", expiresAt).Msg("Restored stored session")
	return m
}

// Begin starts a new attempt and moves to Authenticating. Any attempt still in
// flight is superseded. A new attempt replaces the current session, so stored
// tokens are cleared: only a successful attempt leaves tokens in the store.
func (m *Machine) Begin(ctx context.Context) Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	attempt := Attempt{Seq: m.seq, ID: uuid.NewString()}
	m.store.Clear(ctx)
	m.state = State{Status: StatusAuthenticating}
	m.logger.Info().Str("strategy", m.strategy).Str("attempt_id", attempt.ID).Msg("Login attempt started")
	return attempt
}

// Succeed persists grant and moves to Authenticated. It returns ErrSuperseded when
// attempt is no longer current and ErrStorage when persisting failed.
func (m *Machine) Succeed(ctx context.Context, attempt Attempt, grant *credential.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isCurrent(attempt) {
		return m.superseded(attempt)
	}

	if err := m.store.Persist(ctx, grant.AccessToken, grant.IDToken, grant.ExpiresIn); err != nil {
		authErr := autherrors.NewAuthError(autherrors.ErrStorage, autherrors.MessageStorage, err)
		m.store.Clear(ctx)
		m.state = State{Status: StatusError, Err: authErr}
		m.metrics.IncrementLogin(m.strategy, metrics.OutcomeFailure)
		m.logger.Err(err).Str("attempt_id", attempt.ID).Msg("Failed to persist session")
		return authErr
	}

	expiresAt, _ := m.store.ExpiresAt(ctx)
	m.state = State{
		Status:    StatusAuthenticated,
		User:      m.decode(grant.IDToken),
		ExpiresAt: expiresAt,
	}
	m.metrics.IncrementLogin(m.strategy, metrics.OutcomeSuccess)
	m.logger.Info().Str("strategy", m.strategy).Str("attempt_id", attempt.ID).Time("expires_at", expiresAt).Msg("Login succeeded")
	return nil
}

// Fail moves to Error with the failure's user-facing message. It returns
// ErrSuperseded when attempt is no longer current, otherwise the typed failure.
func (m *Machine) Fail(attempt Attempt, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isCurrent(attempt) {
		return m.superseded(attempt)
	}

	authErr := autherrors.AsAuthError(err)
	m.state = State{Status: StatusError, Err: authErr}
	m.metrics.IncrementLogin(m.strategy, metrics.OutcomeFailure)
	m.logger.Warn().Err(err).Str("strategy", m.strategy).Str("attempt_id", attempt.ID).Msg("Login failed")
	return authErr
}

// Reset clears the store and moves to Unauthenticated. Attempts in flight can no
// longer resolve.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	m.store.Clear(ctx)
	m.state = State{Status: StatusUnauthenticated}
	m.metrics.IncrementLogout(m.strategy)
	m.logger.Info().Str("strategy", m.strategy).Msg("Logged out")
}

// State returns the current snapshot. An Authenticated session whose stored expiry
// has passed silently becomes Unauthenticated.
func (m *Machine) State(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Status == StatusAuthenticated && !m.store.IsValid(ctx) {
		m.store.Clear(ctx)
		m.state = State{Status: StatusUnauthenticated}
		m.metrics.IncrementExpired()
		m.logger.Info().Str("strategy", m.strategy).Msg("Session expired")
	}
	return m.state
}

// Strategy names the strategy driving this machine
func (m *Machine) Strategy() string {
	return m.strategy
}

// AccessToken returns the bearer credential while the session is valid
func (m *Machine) AccessToken(ctx context.Context) (string, bool) {
	if !m.State(ctx).IsAuthenticated() {
		return "", false
	}
	return m.store.AccessToken(ctx)
}

func (m *Machine) isCurrent(attempt Attempt) bool {
	return attempt.Seq == m.seq
}

func (m *Machine) superseded(attempt Attempt) error {
	m.metrics.IncrementLogin(m.strategy, metrics.OutcomeSuperseded)
	m.logger.Info().Str("strategy", m.strategy).Str("attempt_id", attempt.ID).Msg("Discarding superseded login attempt")
	return autherrors.ErrSuperseded
}

func (m *Machine) storedUser(ctx context.Context) *identity.Claims {
	idToken, ok := m.store.IDToken(ctx)
	if !ok {
		m.logger.Warn().Msg("Stored session has no id token")
		return nil
	}
	return m.decode(idToken)
}

// decode derives the user from idToken. Failures leave the user absent without
// affecting the authentication state.
func (m *Machine) decode(idToken string) *identity.Claims {
	claims, err := identity.Decode(idToken)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Could not decode id token, user identity unavailable")
		return nil
	}
	return claims
}
