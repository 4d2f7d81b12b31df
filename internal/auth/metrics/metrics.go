package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authentication module.
type Metrics struct {
	LoginsSucceeded  prometheus.Counter
	LoginsFailed     prometheus.Counter
	SessionsSwept    prometheus.Counter
	ValidateDuration prometheus.Histogram
}

// New creates and registers all authentication metrics.
func New() *Metrics {
	return &Metrics{
		LoginsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factgate_logins_succeeded_total",
			Help: "Total number of successful authentications",
		}),
		LoginsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factgate_logins_failed_total",
			Help: "Total number of failed authentication attempts",
		}),
		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factgate_sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweep",
		}),
		ValidateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "factgate_session_validate_duration_seconds",
			Help:    "Duration of session validation (request hot path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementLogin(success bool) {
	if success {
		m.LoginsSucceeded.Inc()
		return
	}
	m.LoginsFailed.Inc()
}

func (m *Metrics) AddSessionsSwept(n int) {
	m.SessionsSwept.Add(float64(n))
}

// ObserveValidate records the duration of a ValidateSession call.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveValidate(start time.Time) {
	m.ValidateDuration.Observe(time.Since(start).Seconds())
}
