package session

import "context"

// LoginPath is the local login location
const LoginPath = "/login"

// Navigation is where the user agent should go after a session operation.
// External locations leave the console (provider logout).
type Navigation struct {
	Location string
	External bool
}

// StateReader exposes the current session state
type StateReader interface {
	State(ctx context.Context) State
}

// LoginRequest is what the console's login form submits. ReturnTo must already be
// a safe local path. Strategies that hand over to the provider's hosted login
// ignore Email and Password.
type LoginRequest struct {
	Email    string
	Password string
	ReturnTo string
}

// Provider is the capability every strategy exposes to the rest of the console.
// The route guard and the views depend on it instead of on a concrete controller.
type Provider interface {
	StateReader
	Strategy() string
	// CollectsCredentials reports whether the console's own form gathers the
	// user's email and password
	CollectsCredentials() bool
	// StartLogin begins a login and returns where the browser goes next
	StartLogin(ctx context.Context, req LoginRequest) (Navigation, error)
	Logout(ctx context.Context) Navigation
	AccessToken(ctx context.Context) (string, bool)
}
