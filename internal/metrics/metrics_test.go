package metrics_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.IncrementLogin("direct", metrics.OutcomeSuccess)
	m.IncrementLogin("direct", metrics.OutcomeSuccess)
	m.IncrementLogin("direct", metrics.OutcomeFailure)
	m.IncrementLogout("redirect")
	m.IncrementExpired()
	m.IncrementCallback("/dashboard")
	m.ObserveProvider("password", time.Now())

	require.Equal(t, 2.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("direct", metrics.OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("direct", metrics.OutcomeFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Logouts.WithLabelValues("redirect")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SessionsExpired))
	require.Equal(t, 1.0, testutil.ToFloat64(m.CallbackOutcomes.WithLabelValues("/dashboard")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.IncrementLogin("direct", metrics.OutcomeSuccess)
		m.IncrementLogout("direct")
		m.IncrementExpired()
		m.IncrementCallback("/login")
		m.ObserveProvider("password", time.Now())
	})
}

func TestNoop_RegistersPrivately(t *testing.T) {
	require.NotPanics(t, func() {
		metrics.Noop()
		metrics.Noop()
	})
}
