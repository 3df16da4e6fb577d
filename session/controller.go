package session

import (
	"context"
	"net/url"

	"github.com/jrsteele09/go-auth-session/credential"
	"github.com/jrsteele09/go-auth-session/tokenstore"
)

// StrategyDirect labels the direct credential controller in logs and metrics
const StrategyDirect = "direct"

// Exchanger acquires tokens for a username and secret
type Exchanger interface {
	Exchange(ctx context.Context, username, secret string) (*credential.Grant, error)
}

// Controller is the direct credential session controller: the console collects the
// user's credentials and exchanges them with the provider itself.
type Controller struct {
	*Machine
	exchanger      Exchanger
	providerLogout string
	machineOpts    []MachineOption
}

var _ Provider = (*Controller)(nil)

// Option defines a function type to modify the Controller instance.
type Option func(*Controller)

// WithProviderLogout makes Logout also navigate to the provider's logout endpoint
func WithProviderLogout(providerURL, clientID, returnTo string) Option {
	return func(c *Controller) {
		c.providerLogout = ProviderLogoutURL(providerURL, clientID, returnTo)
	}
}

// WithMachineOptions configures the underlying state machine
func WithMachineOptions(opts ...MachineOption) Option {
	return func(c *Controller) {
		c.machineOpts = append(c.machineOpts, opts...)
	}
}

// NewController restores any stored session synchronously, so callers can rely on
// State from the first request on.
func NewController(ctx context.Context, exchanger Exchanger, store *tokenstore.Store, opts ...Option) *Controller {
	c := &Controller{
		exchanger: exchanger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Machine = NewMachine(ctx, store, StrategyDirect, c.machineOpts...)
	return c
}

// Login exchanges the credentials and, when the attempt is still current, applies
// the outcome. Failures are also reflected in State. A login overtaken by a newer
// attempt or a logout returns ErrSuperseded and changes nothing.
func (c *Controller) Login(ctx context.Context, username, secret string) error {
	attempt := c.Begin(ctx)

	grant, err := c.exchanger.Exchange(ctx, username, secret)
	if err != nil {
		return c.Fail(attempt, err)
	}
	return c.Succeed(ctx, attempt, grant)
}

// CollectsCredentials is true: the console's form gathers the credentials
func (c *Controller) CollectsCredentials() bool {
	return true
}

// StartLogin runs Login with the submitted credentials and, on success, returns
// the requested page. The error is the same typed failure Login returns.
func (c *Controller) StartLogin(ctx context.Context, req LoginRequest) (Navigation, error) {
	if err := c.Login(ctx, req.Email, req.Password); err != nil {
		return Navigation{}, err
	}
	return Navigation{Location: req.ReturnTo}, nil
}

// Logout clears the session and returns where to go next
func (c *Controller) Logout(ctx context.Context) Navigation {
	c.Reset(ctx)
	if c.providerLogout != "" {
		return Navigation{Location: c.providerLogout, External: true}
	}
	return Navigation{Location: LoginPath}
}

// ProviderLogoutURL builds the provider's logout location
func ProviderLogoutURL(providerURL, clientID, returnTo string) string {
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("returnTo", returnTo)
	return providerURL + "/v2/logout?" + query.Encode()
}
