package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "riskgate/pkg/domain"
)

const idempotencyKeyPrefix = "idem:"

// RedisIdempotencyStore shares replayed responses across instances. Keys are
// tenant-scoped and expire with the configured TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func idempotencyRedisKey(tenantID id.TenantID, key string) string {
	return fmt.Sprintf("%s%s:%s", idempotencyKeyPrefix, tenantID, key)
}

func (s *RedisIdempotencyStore) FindResponse(ctx context.Context, tenantID id.TenantID, key string) (*Decision, error) {
	data, err := s.client.Get(ctx, idempotencyRedisKey(tenantID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	var decision Decision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, fmt.Errorf("decode idempotent response: %w", err)
	}
	return &decision, nil
}

func (s *RedisIdempotencyStore) SaveResponse(ctx context.Context, tenantID id.TenantID, key string, decision *Decision, ttl time.Duration) error {
	data, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode idempotent response: %w", err)
	}
	if err := s.client.Set(ctx, idempotencyRedisKey(tenantID, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save: %w", err)
	}
	return nil
}
