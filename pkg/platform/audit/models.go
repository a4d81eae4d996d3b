package audit

import (
	"context"
	"time"

	id "riskgate/pkg/domain"
)

// Event captures a key action taken by the decision core. Transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	Action    string            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	TenantID  id.TenantID       `json:"tenant_id"`
	RequestID string            `json:"request_id,omitempty"`
	OrderID   string            `json:"order_id,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	RiskScore int               `json:"risk_score,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

const (
	EventOrderEvaluated    = "order_evaluated"
	EventOrderReplayed     = "order_replayed"
	EventRecordsMerged     = "records_merged"
	EventRuleTriggered     = "rule_triggered"
	EventValidatorDegraded = "validator_degraded"
)

// Store persists audit events. Append must tolerate duplicates; audit writes
// are fire-and-forget and may be retried by callers.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Sink receives events for delivery outside the process (broker, SIEM).
// Failures are the sink's problem to report; they never block the publisher.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}
