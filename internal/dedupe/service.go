package dedupe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"riskgate/internal/dedupe/metrics"
	"riskgate/internal/match"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
	"riskgate/pkg/platform/audit"
	"riskgate/pkg/requestcontext"
)

// FuzzyLimit caps how many fuzzy candidates a lookup contributes.
const FuzzyLimit = 5

// Service is the deduplication matcher. Exact lookups are issued and merged
// before fuzzy candidates are considered, so an exact match is never ranked
// below a fuzzy match of the same score.
type Service struct {
	customers CustomerStore
	addresses AddressStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher *audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func NewService(customers CustomerStore, addresses AddressStore, opts ...Option) (*Service, error) {
	if customers == nil {
		return nil, fmt.Errorf("customer store is required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address store is required")
	}
	s := &Service{customers: customers, addresses: addresses}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MatchCustomer finds existing customers the query likely refers to. Both
// exact lookups run even when the first already yields matches; a record found
// by several lookups appears once, under the lookup that found it first.
func (s *Service) MatchCustomer(ctx context.Context, query CustomerQuery) (*Result, error) {
	if query.TenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	start := time.Now()
	defer func() {
		s.metrics.ObserveMatchLatency(string(id.RecordTypeCustomer), time.Since(start))
	}()

	set := newMatchSet()

	byEmail, err := s.customers.FindByEmail(ctx, query.TenantID, match.NormalizeEmail(query.Email))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "customer email lookup failed")
	}
	for _, r := range byEmail {
		set.add(Match{ID: r.ID, SimilarityScore: 1.0, MatchType: MatchExactEmail, Data: r})
	}

	byPhone, err := s.customers.FindByPhone(ctx, query.TenantID, match.NormalizePhone(query.Phone))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "customer phone lookup failed")
	}
	for _, r := range byPhone {
		set.add(Match{ID: r.ID, SimilarityScore: 1.0, MatchType: MatchExactPhone, Data: r})
	}

	if name := match.NormalizeName(query.Name); name != "" {
		fuzzy, err := s.customers.FindByFuzzyName(ctx, query.TenantID, name, match.FuzzyThreshold, FuzzyLimit)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "customer fuzzy lookup failed")
		}
		for _, sc := range fuzzy {
			set.add(Match{ID: sc.Record.ID, SimilarityScore: sc.Score, MatchType: MatchFuzzyName, Data: sc.Record})
		}
	}

	return s.finish(ctx, id.RecordTypeCustomer, set), nil
}

// MatchAddress finds existing addresses the query likely refers to: content
// hash first, then postal+city+country, then fuzzy line1/city.
func (s *Service) MatchAddress(ctx context.Context, query AddressQuery) (*Result, error) {
	if query.TenantID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	start := time.Now()
	defer func() {
		s.metrics.ObserveMatchLatency(string(id.RecordTypeAddress), time.Since(start))
	}()

	normalized := query.Normalized()
	set := newMatchSet()

	if !normalized.IsZero() {
		byHash, err := s.addresses.FindByContentHash(ctx, query.TenantID, normalized.ContentHash())
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "address hash lookup failed")
		}
		for _, r := range byHash {
			set.add(Match{ID: r.ID, SimilarityScore: 1.0, MatchType: MatchExactAddress, Data: r})
		}
	}

	byPostal, err := s.addresses.FindByPostalCityCountry(ctx, query.TenantID,
		normalized.PostalCode, normalized.City, normalized.Country)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "address postal lookup failed")
	}
	for _, r := range byPostal {
		set.add(Match{ID: r.ID, SimilarityScore: 1.0, MatchType: MatchExactPostal, Data: r})
	}

	fuzzy, err := s.addresses.FindByFuzzy(ctx, query.TenantID,
		normalized.Line1, normalized.City, match.FuzzyThreshold, FuzzyLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "address fuzzy lookup failed")
	}
	for _, sa := range fuzzy {
		set.add(Match{ID: sa.Record.ID, SimilarityScore: sa.Score, MatchType: MatchFuzzyAddress, Data: sa.Record})
	}

	return s.finish(ctx, id.RecordTypeAddress, set), nil
}

// MergeRecords collapses duplicate records onto a canonical one. Every id,
// canonical included, must belong to the tenant; otherwise the call fails
// with an invalid-ids error and nothing is mutated.
func (s *Service) MergeRecords(ctx context.Context, tenantID id.TenantID, recordType id.RecordType, ids []string, canonicalID string) error {
	if tenantID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	if !recordType.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown record type %q", recordType))
	}
	if canonicalID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "canonical_id is required")
	}
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "ids are required")
	}

	var err error
	switch recordType {
	case id.RecordTypeCustomer:
		err = s.customers.Merge(ctx, tenantID, canonicalID, ids)
	case id.RecordTypeAddress:
		err = s.addresses.Merge(ctx, tenantID, canonicalID, ids)
	}
	if errors.Is(err, ErrForeignIDs) {
		return dErrors.New(dErrors.CodeInvalidIDs, "records do not belong to tenant")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "merge failed")
	}

	s.metrics.ObserveMerge(string(recordType))
	if s.publisher != nil {
		s.publisher.Publish(ctx, audit.Event{
			Action:    audit.EventRecordsMerged,
			Timestamp: requestcontext.Now(ctx),
			TenantID:  tenantID,
			RequestID: requestID(ctx),
			Detail: map[string]string{
				"record_type":  string(recordType),
				"canonical_id": canonicalID,
				"merged":       strconv.Itoa(len(ids)),
			},
		})
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "records merged",
			"record_type", recordType, "canonical_id", canonicalID, "merged", len(ids))
	}
	return nil
}

// finish ranks the merged candidate set and derives the suggested action.
func (s *Service) finish(ctx context.Context, recordType id.RecordType, set *matchSet) *Result {
	matches := set.ranked()
	result := &Result{
		Matches:         matches,
		SuggestedAction: ActionCreateNew,
		RequestID:       requestID(ctx),
	}
	if len(matches) > 0 {
		best := matches[0]
		result.CanonicalID = best.ID
		if best.SimilarityScore == 1.0 {
			result.SuggestedAction = ActionMergeWith
		} else {
			result.SuggestedAction = ActionReview
		}
	}

	for _, m := range matches {
		s.metrics.ObserveMatch(string(recordType), string(m.MatchType))
	}
	s.metrics.ObserveSuggestion(string(recordType), string(result.SuggestedAction))
	return result
}

func requestID(ctx context.Context) string {
	if rid := requestcontext.RequestID(ctx); rid != "" {
		return rid
	}
	return uuid.NewString()
}

// matchSet accumulates candidates, dropping records already discovered by an
// earlier lookup and preserving discovery order for equal scores.
type matchSet struct {
	seen    map[string]struct{}
	matches []Match
}

func newMatchSet() *matchSet {
	return &matchSet{seen: make(map[string]struct{})}
}

func (ms *matchSet) add(m Match) {
	if _, ok := ms.seen[m.ID]; ok {
		return
	}
	ms.seen[m.ID] = struct{}{}
	ms.matches = append(ms.matches, m)
}

// ranked sorts by similarity descending. The sort is stable, so exact matches
// (discovered first) stay ahead of fuzzy matches with the same score.
func (ms *matchSet) ranked() []Match {
	sort.SliceStable(ms.matches, func(i, j int) bool {
		return ms.matches[i].SimilarityScore > ms.matches[j].SimilarityScore
	})
	return ms.matches
}
