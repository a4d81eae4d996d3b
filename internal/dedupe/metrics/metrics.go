package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dedupe matcher.
type Metrics struct {
	// Candidates discovered, by record type and lookup kind
	MatchesFound *prometheus.CounterVec

	// Suggested actions handed back to callers
	Suggestions *prometheus.CounterVec

	// Completed merge operations by record type
	Merges *prometheus.CounterVec

	// End-to-end match latency by record type
	MatchLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all dedupe metrics registered.
func New() *Metrics {
	return &Metrics{
		MatchesFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_dedupe_matches_found_total",
			Help: "Dedupe candidates discovered by record type and match type",
		}, []string{"record_type", "match_type"}),

		Suggestions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_dedupe_suggestions_total",
			Help: "Suggested actions by record type",
		}, []string{"record_type", "action"}),

		Merges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_dedupe_merges_total",
			Help: "Completed record merges by record type",
		}, []string{"record_type"}),

		MatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskgate_dedupe_match_duration_seconds",
			Help:    "Duration of one dedupe match including store queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"record_type"}),
	}
}

// ObserveMatch records one discovered candidate.
func (m *Metrics) ObserveMatch(recordType, matchType string) {
	if m != nil {
		m.MatchesFound.WithLabelValues(recordType, matchType).Inc()
	}
}

// ObserveSuggestion records the action a match call suggested.
func (m *Metrics) ObserveSuggestion(recordType, action string) {
	if m != nil {
		m.Suggestions.WithLabelValues(recordType, action).Inc()
	}
}

// ObserveMerge records a completed merge.
func (m *Metrics) ObserveMerge(recordType string) {
	if m != nil {
		m.Merges.WithLabelValues(recordType).Inc()
	}
}

// ObserveMatchLatency records the duration of one match call.
func (m *Metrics) ObserveMatchLatency(recordType string, d time.Duration) {
	if m != nil {
		m.MatchLatency.WithLabelValues(recordType).Observe(d.Seconds())
	}
}
