package dedupe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"riskgate/internal/match"
	id "riskgate/pkg/domain"
	"riskgate/pkg/requestcontext"
)

// PostgresCustomerStore persists customer records in PostgreSQL. Fuzzy
// matching relies on the pg_trgm extension's similarity() so candidate
// scoring happens inside the database, on the same trigram model the in-process
// matcher uses.
type PostgresCustomerStore struct {
	pool *pgxpool.Pool
}

func NewPostgresCustomerStore(pool *pgxpool.Pool) *PostgresCustomerStore {
	return &PostgresCustomerStore{pool: pool}
}

func (s *PostgresCustomerStore) Create(ctx context.Context, record *CustomerRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := requestcontext.Now(ctx)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.NormalizedEmail = match.NormalizeEmail(record.Email)
	record.NormalizedPhone = match.NormalizePhone(record.Phone)
	record.NormalizedName = match.NormalizeName(record.Name)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, tenant_id, email, normalized_email, phone, normalized_phone, name, normalized_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, record.ID, record.TenantID, record.Email, record.NormalizedEmail,
		record.Phone, record.NormalizedPhone, record.Name, record.NormalizedName,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

const customerColumns = `id, tenant_id, email, normalized_email, phone, normalized_phone, name, normalized_name, COALESCE(merged_to, ''), created_at, updated_at`

func (s *PostgresCustomerStore) FindByEmail(ctx context.Context, tenantID id.TenantID, normalizedEmail string) ([]CustomerRecord, error) {
	if normalizedEmail == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE tenant_id = $1 AND normalized_email = $2 AND merged_to IS NULL
		ORDER BY created_at, id
	`, tenantID, normalizedEmail)
	if err != nil {
		return nil, fmt.Errorf("find customers by email: %w", err)
	}
	return scanCustomers(rows)
}

func (s *PostgresCustomerStore) FindByPhone(ctx context.Context, tenantID id.TenantID, normalizedPhone string) ([]CustomerRecord, error) {
	if normalizedPhone == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE tenant_id = $1 AND normalized_phone = $2 AND merged_to IS NULL
		ORDER BY created_at, id
	`, tenantID, normalizedPhone)
	if err != nil {
		return nil, fmt.Errorf("find customers by phone: %w", err)
	}
	return scanCustomers(rows)
}

func (s *PostgresCustomerStore) FindByFuzzyName(ctx context.Context, tenantID id.TenantID, normalizedName string, threshold float64, limit int) ([]ScoredCustomer, error) {
	if normalizedName == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`, similarity(normalized_name, $2) AS score
		FROM customers
		WHERE tenant_id = $1 AND merged_to IS NULL
		  AND similarity(normalized_name, $2) > $3
		ORDER BY score DESC, created_at, id
		LIMIT $4
	`, tenantID, normalizedName, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy match customers: %w", err)
	}
	defer rows.Close()

	var scored []ScoredCustomer
	for rows.Next() {
		var sc ScoredCustomer
		if err := scanCustomer(rows, &sc.Record, &sc.Score); err != nil {
			return nil, fmt.Errorf("fuzzy match customers: %w", err)
		}
		scored = append(scored, sc)
	}
	return scored, rows.Err()
}

func (s *PostgresCustomerStore) Merge(ctx context.Context, tenantID id.TenantID, canonicalID string, ids []string) error {
	return mergeRows(ctx, s.pool, "customers", tenantID, canonicalID, ids)
}

func scanCustomers(rows pgx.Rows) ([]CustomerRecord, error) {
	defer rows.Close()
	var out []CustomerRecord
	for rows.Next() {
		var r CustomerRecord
		if err := scanCustomer(rows, &r); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanCustomer(rows pgx.Rows, r *CustomerRecord, extra ...any) error {
	dest := []any{
		&r.ID, &r.TenantID, &r.Email, &r.NormalizedEmail,
		&r.Phone, &r.NormalizedPhone, &r.Name, &r.NormalizedName,
		&r.MergedTo, &r.CreatedAt, &r.UpdatedAt,
	}
	return rows.Scan(append(dest, extra...)...)
}

// PostgresAddressStore persists address records, keyed for exact matching by
// the normalized-content hash and for fuzzy matching by trigram similarity
// over "line1 city".
type PostgresAddressStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAddressStore(pool *pgxpool.Pool) *PostgresAddressStore {
	return &PostgresAddressStore{pool: pool}
}

func (s *PostgresAddressStore) Create(ctx context.Context, record *AddressRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := requestcontext.Now(ctx)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.ContentHash = record.Address.ContentHash()

	a := record.Address
	_, err := s.pool.Exec(ctx, `
		INSERT INTO addresses (id, tenant_id, line1, line2, city, state, postal_code, country, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, record.ID, record.TenantID, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		record.ContentHash, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

const addressColumns = `id, tenant_id, line1, line2, city, state, postal_code, country, content_hash, COALESCE(merged_to, ''), created_at, updated_at`

func (s *PostgresAddressStore) FindByContentHash(ctx context.Context, tenantID id.TenantID, hash string) ([]AddressRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE tenant_id = $1 AND content_hash = $2 AND merged_to IS NULL
		ORDER BY created_at, id
	`, tenantID, hash)
	if err != nil {
		return nil, fmt.Errorf("find addresses by hash: %w", err)
	}
	return scanAddresses(rows)
}

func (s *PostgresAddressStore) FindByPostalCityCountry(ctx context.Context, tenantID id.TenantID, postal, city, country string) ([]AddressRecord, error) {
	if postal == "" || city == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE tenant_id = $1 AND postal_code = $2 AND city = $3 AND country = $4 AND merged_to IS NULL
		ORDER BY created_at, id
	`, tenantID, postal, city, country)
	if err != nil {
		return nil, fmt.Errorf("find addresses by postal: %w", err)
	}
	return scanAddresses(rows)
}

func (s *PostgresAddressStore) FindByFuzzy(ctx context.Context, tenantID id.TenantID, line1, city string, threshold float64, limit int) ([]ScoredAddress, error) {
	needle := fuzzyAddressText(line1, city)
	if needle == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+addressColumns+`, similarity(line1 || ' ' || city, $2) AS score
		FROM addresses
		WHERE tenant_id = $1 AND merged_to IS NULL
		  AND similarity(line1 || ' ' || city, $2) > $3
		ORDER BY score DESC, created_at, id
		LIMIT $4
	`, tenantID, needle, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("fuzzy match addresses: %w", err)
	}
	defer rows.Close()

	var scored []ScoredAddress
	for rows.Next() {
		var sa ScoredAddress
		if err := scanAddress(rows, &sa.Record, &sa.Score); err != nil {
			return nil, fmt.Errorf("fuzzy match addresses: %w", err)
		}
		scored = append(scored, sa)
	}
	return scored, rows.Err()
}

func (s *PostgresAddressStore) Merge(ctx context.Context, tenantID id.TenantID, canonicalID string, ids []string) error {
	return mergeRows(ctx, s.pool, "addresses", tenantID, canonicalID, ids)
}

func scanAddresses(rows pgx.Rows) ([]AddressRecord, error) {
	defer rows.Close()
	var out []AddressRecord
	for rows.Next() {
		var r AddressRecord
		if err := scanAddress(rows, &r); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanAddress(rows pgx.Rows, r *AddressRecord, extra ...any) error {
	a := &r.Address
	dest := []any{
		&r.ID, &r.TenantID, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&r.ContentHash, &r.MergedTo, &r.CreatedAt, &r.UpdatedAt,
	}
	return rows.Scan(append(dest, extra...)...)
}

// txBeginner is the slice of pgxpool.Pool that mergeRows needs. Narrowed so
// transaction outcome handling can be exercised without a database.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// mergeRows runs the merge as a single transaction: ownership verification,
// canonical touch, and merge-pointer updates either all land or none do. A
// crash mid-merge can therefore never strand non-canonical rows without a
// pointer. The named return lets the deferred commit surface its error.
func mergeRows(ctx context.Context, db txBeginner, table string, tenantID id.TenantID, canonicalID string, ids []string) (err error) {
	all := append([]string{canonicalID}, ids...)

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("merge %s: begin: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("merge %s: commit: %w", table, cerr)
		}
	}()

	var owned int
	err = tx.QueryRow(ctx, `
		SELECT count(DISTINCT id) FROM `+table+`
		WHERE tenant_id = $1 AND id = ANY($2)
	`, tenantID, all).Scan(&owned)
	if err != nil {
		return fmt.Errorf("merge %s: verify ownership: %w", table, err)
	}
	if owned != len(uniqueIDs(all)) {
		err = ErrForeignIDs
		return err
	}

	now := requestcontext.Now(ctx)
	if _, err = tx.Exec(ctx, `
		UPDATE `+table+` SET updated_at = $3
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, canonicalID, now); err != nil {
		return fmt.Errorf("merge %s: touch canonical: %w", table, err)
	}
	if _, err = tx.Exec(ctx, `
		UPDATE `+table+` SET merged_to = $2, updated_at = $4
		WHERE tenant_id = $1 AND id = ANY($3) AND id <> $2
	`, tenantID, canonicalID, ids, now); err != nil {
		return fmt.Errorf("merge %s: point at canonical: %w", table, err)
	}
	return
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, rid := range ids {
		if _, ok := seen[rid]; ok {
			continue
		}
		seen[rid] = struct{}{}
		out = append(out, rid)
	}
	return out
}
