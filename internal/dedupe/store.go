package dedupe

import (
	"context"
	"fmt"

	id "riskgate/pkg/domain"
	"riskgate/pkg/platform/sentinel"
)

// ErrForeignIDs is returned by a merge when any id in the set (canonical
// included) does not belong to the tenant. No mutation has happened when this
// is returned. Wraps sentinel.ErrInvalidState so callers outside this package
// can classify it without importing dedupe.
var ErrForeignIDs = fmt.Errorf("%w: record ids do not belong to tenant", sentinel.ErrInvalidState)

// ScoredCustomer pairs a fuzzy candidate with the similarity the store
// computed for it. Exact lookups return bare records; their score is 1.0 by
// definition.
type ScoredCustomer struct {
	Record CustomerRecord
	Score  float64
}

// ScoredAddress is the address counterpart of ScoredCustomer.
type ScoredAddress struct {
	Record AddressRecord
	Score  float64
}

// CustomerStore is the matcher's view of customer persistence. Lookup methods
// never return merged-away records. Swap with concrete storage without
// touching the service.
type CustomerStore interface {
	Create(ctx context.Context, record *CustomerRecord) error

	FindByEmail(ctx context.Context, tenantID id.TenantID, normalizedEmail string) ([]CustomerRecord, error)
	FindByPhone(ctx context.Context, tenantID id.TenantID, normalizedPhone string) ([]CustomerRecord, error)

	// FindByFuzzyName returns candidates with similarity strictly above the
	// threshold, scored and ordered descending, at most limit rows.
	FindByFuzzyName(ctx context.Context, tenantID id.TenantID, normalizedName string, threshold float64, limit int) ([]ScoredCustomer, error)

	// Merge atomically verifies tenant ownership of every id, touches the
	// canonical record, and points the rest at it. Returns ErrForeignIDs
	// without mutating when verification fails.
	Merge(ctx context.Context, tenantID id.TenantID, canonicalID string, ids []string) error
}

// AddressStore is the matcher's view of address persistence.
type AddressStore interface {
	Create(ctx context.Context, record *AddressRecord) error

	FindByContentHash(ctx context.Context, tenantID id.TenantID, hash string) ([]AddressRecord, error)
	FindByPostalCityCountry(ctx context.Context, tenantID id.TenantID, postal, city, country string) ([]AddressRecord, error)

	// FindByFuzzy matches on the combined line1/city text, same contract as
	// FindByFuzzyName.
	FindByFuzzy(ctx context.Context, tenantID id.TenantID, line1, city string, threshold float64, limit int) ([]ScoredAddress, error)

	Merge(ctx context.Context, tenantID id.TenantID, canonicalID string, ids []string) error
}
