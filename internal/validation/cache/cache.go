// Package cache provides the read-through store for enhanced field results.
//
// Keys are deterministic over (field_type, normalized_value, tenant_id); the
// raw value is hashed so PII never appears in cache keys. Entries are
// TTL-bound and never invalidated by the decision core. Concurrent duplicate
// misses for one key may both validate and both write; last write wins.
package cache

import (
	"context"
	"time"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// Store is the key-value contract the orchestrator depends on. A nil result
// with a nil error means "not cached".
type Store interface {
	Get(ctx context.Context, key string) (*validation.FieldResult, error)
	SetWithTTL(ctx context.Context, key string, result *validation.FieldResult, ttl time.Duration) error
}

// Key derives the deterministic cache key for a validation result.
func Key(field id.FieldType, normalizedValue string, tenantID id.TenantID) string {
	return validation.CacheKey(field, normalizedValue, tenantID)
}
