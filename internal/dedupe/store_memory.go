package dedupe

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"riskgate/internal/match"
	id "riskgate/pkg/domain"
	"riskgate/pkg/requestcontext"
)

// In-memory stores keep the initial implementation lightweight and testable.
// They intentionally favor clarity over performance.
type InMemoryCustomerStore struct {
	mu      sync.RWMutex
	records map[string]CustomerRecord
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{records: make(map[string]CustomerRecord)}
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, record *CustomerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	s.records[record.ID] = *record
	return nil
}

func (s *InMemoryCustomerStore) FindByEmail(_ context.Context, tenantID id.TenantID, normalizedEmail string) ([]CustomerRecord, error) {
	if normalizedEmail == "" {
		return nil, nil
	}
	return s.filter(tenantID, func(r CustomerRecord) bool {
		return r.NormalizedEmail == normalizedEmail
	}), nil
}

func (s *InMemoryCustomerStore) FindByPhone(_ context.Context, tenantID id.TenantID, normalizedPhone string) ([]CustomerRecord, error) {
	if normalizedPhone == "" {
		return nil, nil
	}
	return s.filter(tenantID, func(r CustomerRecord) bool {
		return r.NormalizedPhone == normalizedPhone
	}), nil
}

func (s *InMemoryCustomerStore) FindByFuzzyName(_ context.Context, tenantID id.TenantID, normalizedName string, threshold float64, limit int) ([]ScoredCustomer, error) {
	if normalizedName == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredCustomer
	for _, r := range s.records {
		if r.TenantID != tenantID || r.MergedTo != "" || r.NormalizedName == "" {
			continue
		}
		score := match.Similarity(normalizedName, r.NormalizedName)
		if score > threshold {
			scored = append(scored, ScoredCustomer{Record: r, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *InMemoryCustomerStore) Merge(ctx context.Context, tenantID id.TenantID, canonicalID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Verify before any mutation; a partial merge must be impossible.
	for _, rid := range append([]string{canonicalID}, ids...) {
		record, ok := s.records[rid]
		if !ok || record.TenantID != tenantID {
			return ErrForeignIDs
		}
	}

	now := requestcontext.Now(ctx)
	canonical := s.records[canonicalID]
	canonical.UpdatedAt = now
	s.records[canonicalID] = canonical

	for _, rid := range ids {
		if rid == canonicalID {
			continue
		}
		record := s.records[rid]
		record.MergedTo = canonicalID
		record.UpdatedAt = now
		s.records[rid] = record
	}
	return nil
}

// Get returns a record by id, primarily for tests and merge inspection.
func (s *InMemoryCustomerStore) Get(id string) (CustomerRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *InMemoryCustomerStore) filter(tenantID id.TenantID, keep func(CustomerRecord) bool) []CustomerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CustomerRecord
	for _, r := range s.records {
		if r.TenantID == tenantID && r.MergedTo == "" && keep(r) {
			out = append(out, r)
		}
	}
	// Map iteration order is random; callers need stable discovery order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type InMemoryAddressStore struct {
	mu      sync.RWMutex
	records map[string]AddressRecord
}

func NewInMemoryAddressStore() *InMemoryAddressStore {
	return &InMemoryAddressStore{records: make(map[string]AddressRecord)}
}

func (s *InMemoryAddressStore) Create(ctx context.Context, record *AddressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := requestcontext.Now(ctx)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.ContentHash = record.Address.ContentHash()
	s.records[record.ID] = *record
	return nil
}

func (s *InMemoryAddressStore) FindByContentHash(_ context.Context, tenantID id.TenantID, hash string) ([]AddressRecord, error) {
	return s.filter(tenantID, func(r AddressRecord) bool {
		return r.ContentHash == hash
	}), nil
}

func (s *InMemoryAddressStore) FindByPostalCityCountry(_ context.Context, tenantID id.TenantID, postal, city, country string) ([]AddressRecord, error) {
	if postal == "" || city == "" {
		return nil, nil
	}
	return s.filter(tenantID, func(r AddressRecord) bool {
		return r.Address.PostalCode == postal && r.Address.City == city && r.Address.Country == country
	}), nil
}

func (s *InMemoryAddressStore) FindByFuzzy(_ context.Context, tenantID id.TenantID, line1, city string, threshold float64, limit int) ([]ScoredAddress, error) {
	needle := fuzzyAddressText(line1, city)
	if needle == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredAddress
	for _, r := range s.records {
		if r.TenantID != tenantID || r.MergedTo != "" {
			continue
		}
		score := match.Similarity(needle, fuzzyAddressText(r.Address.Line1, r.Address.City))
		if score > threshold {
			scored = append(scored, ScoredAddress{Record: r, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *InMemoryAddressStore) Merge(ctx context.Context, tenantID id.TenantID, canonicalID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rid := range append([]string{canonicalID}, ids...) {
		record, ok := s.records[rid]
		if !ok || record.TenantID != tenantID {
			return ErrForeignIDs
		}
	}

	now := requestcontext.Now(ctx)
	canonical := s.records[canonicalID]
	canonical.UpdatedAt = now
	s.records[canonicalID] = canonical

	for _, rid := range ids {
		if rid == canonicalID {
			continue
		}
		record := s.records[rid]
		record.MergedTo = canonicalID
		record.UpdatedAt = now
		s.records[rid] = record
	}
	return nil
}

func (s *InMemoryAddressStore) Get(id string) (AddressRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

func (s *InMemoryAddressStore) filter(tenantID id.TenantID, keep func(AddressRecord) bool) []AddressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AddressRecord
	for _, r := range s.records {
		if r.TenantID == tenantID && r.MergedTo == "" && keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fuzzyAddressText is the shared fuzzy-match input: line1 and city joined, so
// the memory store scores the same text the trigram SQL scores.
func fuzzyAddressText(line1, city string) string {
	switch {
	case line1 == "":
		return city
	case city == "":
		return line1
	default:
		return line1 + " " + city
	}
}
