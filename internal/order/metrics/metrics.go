package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the order decision pipeline.
type Metrics struct {
	// Final dispositions handed back to callers
	Decisions *prometheus.CounterVec

	// Idempotent replays served without re-running the pipeline
	Replays prometheus.Counter

	// Rules that fired during evaluation
	RulesTriggered *prometheus.CounterVec

	// Per-stage pipeline latency
	StageLatency *prometheus.HistogramVec

	// End-to-end evaluation latency by action
	EvaluationLatency *prometheus.HistogramVec

	// Audit events dropped because the publisher buffer was full
	AuditDrops prometheus.Counter
}

// New creates a Metrics instance with all order pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_order_decisions_total",
			Help: "Order decisions by action",
		}, []string{"action"}),

		Replays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_order_idempotent_replays_total",
			Help: "Responses served from the idempotency store",
		}),

		RulesTriggered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgate_order_rules_triggered_total",
			Help: "Rule evaluations that triggered, by rule id",
		}, []string{"rule_id"}),

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskgate_order_stage_duration_seconds",
			Help:    "Duration of one pipeline stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}),

		EvaluationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskgate_order_evaluation_duration_seconds",
			Help:    "End-to-end order evaluation duration by final action",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),

		AuditDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "riskgate_order_audit_drops_total",
			Help: "Audit events dropped because the publisher buffer was full",
		}),
	}
}

// ObserveDecision records one final disposition.
func (m *Metrics) ObserveDecision(action string) {
	if m != nil {
		m.Decisions.WithLabelValues(action).Inc()
	}
}

// ObserveReplay records an idempotent replay.
func (m *Metrics) ObserveReplay() {
	if m != nil {
		m.Replays.Inc()
	}
}

// ObserveRuleTriggered records a fired rule.
func (m *Metrics) ObserveRuleTriggered(ruleID string) {
	if m != nil {
		m.RulesTriggered.WithLabelValues(ruleID).Inc()
	}
}

// ObserveStage records the duration of one pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveEvaluation records the end-to-end duration of one evaluation.
func (m *Metrics) ObserveEvaluation(action string, d time.Duration) {
	if m != nil {
		m.EvaluationLatency.WithLabelValues(action).Observe(d.Seconds())
	}
}

// ObserveAuditDrop records one dropped audit event.
func (m *Metrics) ObserveAuditDrop() {
	if m != nil {
		m.AuditDrops.Inc()
	}
}
