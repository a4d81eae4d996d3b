package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"riskgate/internal/validation"
)

// RedisStore shares validation results across instances. Results are value
// objects, so JSON round-tripping is safe.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*validation.FieldResult, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	var result validation.FieldResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry behaves as a miss; the fresh write repairs it.
		return nil, nil
	}
	return &result, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, result *validation.FieldResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
