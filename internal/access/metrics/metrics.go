package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the access-control module.
type Metrics struct {
	FiltersGenerated prometheus.Counter
	AccessAllowed    *prometheus.CounterVec
	AccessDenied     *prometheus.CounterVec
}

// New creates and registers all access-control metrics.
func New() *Metrics {
	return &Metrics{
		FiltersGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "factgate_rls_filters_generated_total",
			Help: "Total number of RLS filters derived from user contexts",
		}),
		AccessAllowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "factgate_access_allowed_total",
			Help: "Access attempts that passed permission validation",
		}, []string{"resource", "operation"}),
		AccessDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "factgate_access_denied_total",
			Help: "Access attempts rejected by permission validation",
		}, []string{"resource", "operation"}),
	}
}

func (m *Metrics) IncrementFiltersGenerated() {
	m.FiltersGenerated.Inc()
}

func (m *Metrics) IncrementDecision(resource, operation string, allowed bool) {
	if allowed {
		m.AccessAllowed.WithLabelValues(resource, operation).Inc()
		return
	}
	m.AccessDenied.WithLabelValues(resource, operation).Inc()
}
