package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSuperseded = "superseded"
)

// Metrics provides observability for the session controllers.
// Tracks login outcomes per strategy, logouts, expiries and provider latency.
type Metrics struct {
	LoginAttempts    *prometheus.CounterVec
	Logouts          *prometheus.CounterVec
	SessionsExpired  prometheus.Counter
	CallbackOutcomes *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg. A nil reg uses the default
// prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authsession_login_attempts_total",
			Help: "Total number of login attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		Logouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authsession_logouts_total",
			Help: "Total number of logouts by strategy",
		}, []string{"strategy"}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "authsession_sessions_expired_total",
			Help: "Total number of sessions found expired at read time",
		}),
		CallbackOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authsession_callback_resolutions_total",
			Help: "Total number of redirect callbacks by resolved destination",
		}, []string{"destination"}),
		ProviderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authsession_provider_request_duration_seconds",
			Help:    "Duration of token endpoint requests (login critical path)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"grant_type"}),
	}
}

// Noop returns metrics registered with a private registry, for tests and tools
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}

// IncrementLogin records a login attempt outcome
func (m *Metrics) IncrementLogin(strategy, outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(strategy, outcome).Inc()
}

// IncrementLogout records a logout
func (m *Metrics) IncrementLogout(strategy string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(strategy).Inc()
}

// IncrementExpired records a session found expired
func (m *Metrics) IncrementExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

// IncrementCallback records where a redirect callback resolved to
func (m *Metrics) IncrementCallback(destination string) {
	if m == nil {
		return
	}
	m.CallbackOutcomes.WithLabelValues(destination).Inc()
}

// ObserveProvider records the duration of a token endpoint request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveProvider(grantType string, start time.Time) {
	if m == nil {
		return
	}
	m.ProviderDuration.WithLabelValues(grantType).Observe(time.Since(start).Seconds())
}
