package order

import (
	"context"
	"time"

	"riskgate/internal/rules"
	id "riskgate/pkg/domain"
)

// Record is the persisted form of a decision, keyed (tenant_id, order_id).
type Record struct {
	TenantID  id.TenantID
	OrderID   string
	Decision  Decision
	CreatedAt time.Time
}

// DecisionStore persists one record per (tenant, order). Insert is
// insert-if-absent: the first decision for an order wins and later
// evaluations of the same order never overwrite it.
type DecisionStore interface {
	// Insert stores the record unless one already exists for the key.
	// Returns true when this call created the record.
	Insert(ctx context.Context, record Record) (bool, error)
	// Get returns the stored record, or nil when the order is unseen.
	Get(ctx context.Context, tenantID id.TenantID, orderID string) (*Record, error)
}

// IdempotencyStore replays previously computed responses for retried
// submissions carrying the same idempotency key.
type IdempotencyStore interface {
	// FindResponse returns the saved decision for the key, or nil on miss.
	FindResponse(ctx context.Context, tenantID id.TenantID, key string) (*Decision, error)
	// SaveResponse stores the decision under the key with a TTL.
	SaveResponse(ctx context.Context, tenantID id.TenantID, key string, decision *Decision, ttl time.Duration) error
}

// RuleSource supplies the tenant's active ruleset at evaluation time, so
// rule edits take effect without a restart.
type RuleSource interface {
	RulesFor(ctx context.Context, tenantID id.TenantID) ([]rules.Rule, error)
}
