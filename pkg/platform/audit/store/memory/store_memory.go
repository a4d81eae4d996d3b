package memory

import (
	"context"
	"sync"

	id "riskgate/pkg/domain"
	audit "riskgate/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.TenantID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.TenantID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.TenantID] = append(s.events[event.TenantID], event)
	return nil
}

func (s *InMemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[tenantID]...), nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.TenantID][]audit.Event)
}
