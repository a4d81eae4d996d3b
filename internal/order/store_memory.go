package order

import (
	"context"
	"sync"
	"time"

	"riskgate/internal/rules"
	id "riskgate/pkg/domain"
	"riskgate/pkg/requestcontext"
)

type decisionKey struct {
	tenantID id.TenantID
	orderID  string
}

// InMemoryDecisionStore keeps decision records in process. Used by tests and
// single-node deployments without postgres.
type InMemoryDecisionStore struct {
	mu      sync.RWMutex
	records map[decisionKey]Record
}

func NewInMemoryDecisionStore() *InMemoryDecisionStore {
	return &InMemoryDecisionStore{records: make(map[decisionKey]Record)}
}

func (s *InMemoryDecisionStore) Insert(ctx context.Context, record Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := decisionKey{tenantID: record.TenantID, orderID: record.OrderID}
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = requestcontext.Now(ctx)
	}
	s.records[key] = record
	return true, nil
}

func (s *InMemoryDecisionStore) Get(_ context.Context, tenantID id.TenantID, orderID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[decisionKey{tenantID: tenantID, orderID: orderID}]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

type idemKey struct {
	tenantID id.TenantID
	key      string
}

type idemEntry struct {
	decision  Decision
	expiresAt time.Time
}

// InMemoryIdempotencyStore is the in-process IdempotencyStore. TTLs are
// honored lazily on read.
type InMemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[idemKey]idemEntry
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{entries: make(map[idemKey]idemEntry)}
}

func (s *InMemoryIdempotencyStore) FindResponse(ctx context.Context, tenantID id.TenantID, key string) (*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[idemKey{tenantID: tenantID, key: key}]
	if !ok || requestcontext.Now(ctx).After(entry.expiresAt) {
		return nil, nil
	}
	decision := entry.decision
	return &decision, nil
}

func (s *InMemoryIdempotencyStore) SaveResponse(ctx context.Context, tenantID id.TenantID, key string, decision *Decision, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[idemKey{tenantID: tenantID, key: key}] = idemEntry{
		decision:  *decision,
		expiresAt: requestcontext.Now(ctx).Add(ttl),
	}
	return nil
}

// StaticRuleSource serves a fixed per-tenant ruleset.
type StaticRuleSource struct {
	mu       sync.RWMutex
	rulesets map[id.TenantID][]rules.Rule
}

func NewStaticRuleSource() *StaticRuleSource {
	return &StaticRuleSource{rulesets: make(map[id.TenantID][]rules.Rule)}
}

func (s *StaticRuleSource) SetRules(tenantID id.TenantID, ruleset []rules.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rulesets[tenantID] = append([]rules.Rule(nil), ruleset...)
}

func (s *StaticRuleSource) RulesFor(_ context.Context, tenantID id.TenantID) ([]rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]rules.Rule(nil), s.rulesets[tenantID]...), nil
}
