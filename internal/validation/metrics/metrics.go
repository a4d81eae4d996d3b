package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the validation orchestrator.
type Metrics struct {
	// Cache effectiveness by field type
	CacheLookups *prometheus.CounterVec

	// Provider failures converted to degraded results
	ProviderFailures *prometheus.CounterVec

	// Per-field validation latency
	FieldLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all validation metrics registered.
func New() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_validation_cache_lookups_total",
			Help: "Validation cache lookups by field type and outcome",
		}, []string{"field", "outcome"}), // outcome: "hit", "miss"

		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_validation_provider_failures_total",
			Help: "Provider errors recovered into degraded results",
		}, []string{"field", "provider"}),

		FieldLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskgate_validation_field_duration_seconds",
			Help:    "Duration of single-field validation including provider call",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"field"}),
	}
}

// ObserveCacheLookup records a cache hit or miss for a field.
func (m *Metrics) ObserveCacheLookup(field string, hit bool) {
	if m != nil {
		outcome := "miss"
		if hit {
			outcome = "hit"
		}
		m.CacheLookups.WithLabelValues(field, outcome).Inc()
	}
}

// ObserveProviderFailure records a recovered provider error.
func (m *Metrics) ObserveProviderFailure(field, provider string) {
	if m != nil {
		m.ProviderFailures.WithLabelValues(field, provider).Inc()
	}
}

// ObserveFieldLatency records the duration of one field validation.
func (m *Metrics) ObserveFieldLatency(field string, d time.Duration) {
	if m != nil {
		m.FieldLatency.WithLabelValues(field).Observe(d.Seconds())
	}
}
