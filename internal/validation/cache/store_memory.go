package cache

import (
	"context"
	"sync"
	"time"

	"riskgate/internal/validation"
)

// InMemoryStore keeps the single-process deployment and tests lightweight. It
// intentionally favors clarity over performance.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]cachedResult
}

type cachedResult struct {
	result    *validation.FieldResult
	expiresAt time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]cachedResult)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*validation.FieldResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cached, ok := s.entries[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.result, nil
	}
	return nil, nil
}

func (s *InMemoryStore) SetWithTTL(_ context.Context, key string, result *validation.FieldResult, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cachedResult{result: result, expiresAt: time.Now().Add(ttl)}
	return nil
}
