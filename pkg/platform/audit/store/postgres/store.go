package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	audit "riskgate/pkg/platform/audit"
)

// Store appends audit events to an append-only table. Events are immutable
// once written; there is no update path.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("encode audit detail: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events (action, occurred_at, tenant_id, request_id, order_id, decision, risk_score, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.Action, event.Timestamp, event.TenantID, event.RequestID,
		event.OrderID, event.Decision, event.RiskScore, detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
