// Package metrics holds the transport-level Prometheus metrics. Domain
// packages carry their own metrics; this package only covers the HTTP edge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// New creates and registers the HTTP edge metrics.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_http_requests_total",
			Help: "HTTP requests by route and status class",
		}, []string{"route", "status"}),

		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskgate_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m != nil {
		m.Requests.WithLabelValues(route, status).Inc()
		m.Latency.WithLabelValues(route).Observe(d.Seconds())
	}
}
