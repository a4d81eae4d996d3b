package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "riskgate/pkg/domain"
	"riskgate/pkg/requestcontext"
)

// PostgresDecisionStore persists decision records with the decision body as
// jsonb. The (tenant_id, order_id) primary key enforces insert-if-absent.
type PostgresDecisionStore struct {
	pool *pgxpool.Pool
}

func NewPostgresDecisionStore(pool *pgxpool.Pool) *PostgresDecisionStore {
	return &PostgresDecisionStore{pool: pool}
}

func (s *PostgresDecisionStore) Insert(ctx context.Context, record Record) (bool, error) {
	body, err := json.Marshal(record.Decision)
	if err != nil {
		return false, fmt.Errorf("encode decision: %w", err)
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = requestcontext.Now(ctx)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO order_decisions (tenant_id, order_id, decision, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, order_id) DO NOTHING
	`, record.TenantID, record.OrderID, body, createdAt)
	if err != nil {
		return false, fmt.Errorf("insert order decision: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresDecisionStore) Get(ctx context.Context, tenantID id.TenantID, orderID string) (*Record, error) {
	record := Record{TenantID: tenantID, OrderID: orderID}
	var body []byte
	err := s.pool.QueryRow(ctx, `
		SELECT decision, created_at
		FROM order_decisions
		WHERE tenant_id = $1 AND order_id = $2
	`, tenantID, orderID).Scan(&body, &record.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order decision: %w", err)
	}
	if err := json.Unmarshal(body, &record.Decision); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	return &record, nil
}
