package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tenant module.
type Metrics struct {
	TenantCreated     prometheus.Counter
	TenantUserCreated prometheus.Counter
	LoginDuration     prometheus.Histogram
}

// New creates a Metrics instance with all tenant module metrics registered.
func New() *Metrics {
	return &Metrics{
		TenantCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factgate_tenants_created_total",
			Help: "Total number of tenants created",
		}),
		TenantUserCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factgate_tenant_users_created_total",
			Help: "Total number of tenant users provisioned",
		}),
		LoginDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "factgate_tenant_login_duration_seconds",
			Help:    "Duration of tenant user login operations",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementTenantCreated records a successful tenant creation.
func (m *Metrics) IncrementTenantCreated() {
	m.TenantCreated.Inc()
}

// IncrementTenantUserCreated records a successful user provisioning.
func (m *Metrics) IncrementTenantUserCreated() {
	m.TenantUserCreated.Inc()
}

// ObserveLogin records the duration of a tenant login.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLogin(start time.Time) {
	m.LoginDuration.Observe(time.Since(start).Seconds())
}
