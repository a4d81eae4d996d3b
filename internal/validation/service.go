package validation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"riskgate/internal/match"
	"riskgate/internal/validation/metrics"
	id "riskgate/pkg/domain"
	"riskgate/pkg/platform/circuit"
	"riskgate/pkg/requestcontext"
)

// DefaultCacheTTL bounds how long an enhanced result may be replayed. Field
// verdicts drift slowly (a domain rarely stops being disposable), so a day is
// a safe ceiling.
const DefaultCacheTTL = 24 * time.Hour

// circuitProbeInterval is how often an open circuit lets a call through to
// test whether the provider recovered.
const circuitProbeInterval = 8

// Service orchestrates field validations: cache-first lookups, concurrent
// provider calls for the externally-validated fields, placeholder synthesis,
// and result enhancement. Provider failures degrade per-field; only a
// malformed payload is a caller-visible error.
type Service struct {
	registry *Registry
	cache    CacheStore
	cacheTTL time.Duration
	breakers map[id.FieldType]*fieldBreaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// fieldBreaker pairs a circuit breaker with its probe counter. While the
// circuit is open most calls short-circuit to a degraded result; every
// circuitProbeInterval-th call still reaches the provider so the breaker can
// observe recovery.
type fieldBreaker struct {
	breaker *circuit.Breaker
	skipped int
	mu      sync.Mutex
}

func (f *fieldBreaker) allow() bool {
	if !f.breaker.IsOpen() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skipped++
	if f.skipped >= circuitProbeInterval {
		f.skipped = 0
		return true
	}
	return false
}

// CacheStore is re-declared here (rather than importing the cache package) so
// the service depends only on the operations it uses.
type CacheStore interface {
	Get(ctx context.Context, key string) (*FieldResult, error)
	SetWithTTL(ctx context.Context, key string, result *FieldResult, ttl time.Duration) error
}

// CacheKey derives the deterministic cache key for one field value. The raw
// value is hashed so PII never appears in keys.
func CacheKey(field id.FieldType, normalizedValue string, tenantID id.TenantID) string {
	sum := sha256.Sum256([]byte(normalizedValue))
	return fmt.Sprintf("validation:%s:%s:%s", tenantID, field, hex.EncodeToString(sum[:16]))
}

type Option func(*Service)

func WithCache(store CacheStore) Option {
	return func(s *Service) { s.cache = store }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCircuitBreakers guards provider calls per field. An open circuit
// degrades the field immediately instead of waiting on a failing provider.
func WithCircuitBreakers(breakers map[id.FieldType]*circuit.Breaker) Option {
	return func(s *Service) {
		s.breakers = make(map[id.FieldType]*fieldBreaker, len(breakers))
		for field, b := range breakers {
			if b != nil {
				s.breakers[field] = &fieldBreaker{breaker: b}
			}
		}
	}
}

// NewService builds the orchestrator. The registry is required; everything
// else is optional.
func NewService(registry *Registry, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fieldInput is one present field queued for validation.
type fieldInput struct {
	field      id.FieldType
	raw        string // value handed to the provider
	normalized string // value hashed into the cache key
	concurrent bool   // external-call fields run as concurrent tasks
}

// Validate runs the orchestration for one payload. All concurrent tasks are
// joined before returning; a single task's failure never cancels or blocks
// its siblings.
func (s *Service) Validate(ctx context.Context, payload *Payload, opts Options) (*Bundle, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	bundle := &Bundle{
		Results:   make(map[id.FieldType]*FieldResult),
		Metrics:   Metrics{ParallelValidations: true},
		RequestID: requestID,
	}
	pctx := ProviderContext{
		TenantID: payload.TenantID,
		Metadata: payload.Metadata,
	}
	if payload.Address != nil {
		pctx.Country = payload.Address.Normalized().Country
	}

	var mu sync.Mutex
	record := func(result *FieldResult, hit bool) {
		mu.Lock()
		defer mu.Unlock()
		bundle.Results[result.Field] = result
		if hit {
			bundle.Metrics.CacheHits++
		} else {
			bundle.Metrics.CacheMisses++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range s.presentFields(payload) {
		if !in.concurrent {
			result, hit := s.validateField(ctx, in, payload.TenantID, pctx, opts)
			record(result, hit)
			continue
		}
		in := in
		g.Go(func() error {
			result, hit := s.validateField(gctx, in, payload.TenantID, pctx, opts)
			record(result, hit)
			// Failures are already folded into the result; returning nil
			// keeps sibling validations running.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.FillMissing {
		for _, field := range id.AllFieldTypes {
			if _, ok := bundle.Results[field]; !ok {
				bundle.Results[field] = placeholderResult(field)
			}
		}
	}
	return bundle, nil
}

// presentFields lists the validations this payload warrants. Email, phone,
// and address require external calls and run concurrently; name, ip, and
// device are local checks and run inline.
func (s *Service) presentFields(p *Payload) []fieldInput {
	var fields []fieldInput
	if p.Email != "" {
		fields = append(fields, fieldInput{id.FieldEmail, p.Email, match.NormalizeEmail(p.Email), true})
	}
	if p.Phone != "" {
		fields = append(fields, fieldInput{id.FieldPhone, p.Phone, match.NormalizePhone(p.Phone), true})
	}
	if p.Address != nil {
		normalized := p.Address.Normalized()
		serialized := formatAddressValue(normalized)
		fields = append(fields, fieldInput{id.FieldAddress, serialized, normalized.ContentHash(), true})
	}
	if p.Name != "" {
		fields = append(fields, fieldInput{id.FieldName, p.Name, match.NormalizeName(p.Name), false})
	}
	if p.IP != "" {
		fields = append(fields, fieldInput{id.FieldIP, p.IP, p.IP, false})
	}
	if p.UserAgent != "" {
		fields = append(fields, fieldInput{id.FieldDevice, p.UserAgent, p.UserAgent, false})
	}
	return fields
}

// formatAddressValue serializes a normalized address for the string-valued
// validator contract.
func formatAddressValue(a match.Address) string {
	return a.Line1 + "|" + a.Line2 + "|" + a.City + "|" + a.State + "|" + a.PostalCode + "|" + a.Country
}

// validateField resolves one field: cache, then provider, then enhancement.
// The bool return reports a cache hit.
func (s *Service) validateField(ctx context.Context, in fieldInput, tenantID id.TenantID, pctx ProviderContext, opts Options) (*FieldResult, bool) {
	key := CacheKey(in.field, in.normalized, tenantID)

	if opts.UseCache && s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "validation cache read failed",
				"field", in.field, "error", err)
		}
		s.metrics.ObserveCacheLookup(in.field.String(), cached != nil)
		if cached != nil {
			return cached, true
		}
	}

	result := s.invokeProvider(ctx, in, pctx)

	// Degraded verdicts are never cached: the next request should retry the
	// provider instead of replaying the outage for the full TTL.
	if opts.UseCache && s.cache != nil && !isDegraded(result) {
		if err := s.cache.SetWithTTL(ctx, key, result, s.cacheTTL); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "validation cache write failed",
				"field", in.field, "error", err)
		}
	}
	return result, false
}

// invokeProvider calls the registered validator and converts any failure into
// a degraded, error-flagged result. Provider faults never escape.
func (s *Service) invokeProvider(ctx context.Context, in fieldInput, pctx ProviderContext) *FieldResult {
	validator, ok := s.registry.Get(in.field)
	if !ok {
		return degradedResult(in.field, "none")
	}

	fb := s.breakers[in.field]
	if fb != nil && !fb.allow() {
		s.metrics.ObserveProviderFailure(in.field.String(), validator.Name())
		return degradedResult(in.field, validator.Name())
	}

	start := time.Now()
	result, err := validator.Validate(ctx, in.raw, pctx)
	elapsed := time.Since(start)
	s.metrics.ObserveFieldLatency(in.field.String(), elapsed)

	if err != nil || result == nil {
		if fb != nil {
			if _, change := fb.breaker.RecordFailure(); change.Opened && s.logger != nil {
				s.logger.WarnContext(ctx, "validator circuit opened",
					"field", in.field, "provider", validator.Name())
			}
		}
		s.metrics.ObserveProviderFailure(in.field.String(), validator.Name())
		if s.logger != nil {
			s.logger.WarnContext(ctx, "validator failed, degrading result",
				"field", in.field, "provider", validator.Name(), "error", err)
		}
		degraded := degradedResult(in.field, validator.Name())
		degraded.ProcessingTimeMS = elapsed.Milliseconds()
		return degraded
	}

	if fb != nil {
		if _, change := fb.breaker.RecordSuccess(); change.Closed && s.logger != nil {
			s.logger.InfoContext(ctx, "validator circuit closed",
				"field", in.field, "provider", validator.Name())
		}
	}
	result.ProcessingTimeMS = elapsed.Milliseconds()
	return Enhance(result)
}

// isDegraded reports whether the result stands in for a failed provider call.
func isDegraded(r *FieldResult) bool {
	for _, code := range r.ReasonCodes {
		if code == ProviderErrorReason(r.Field) {
			return true
		}
	}
	return false
}

// degradedResult is the recovery shape for a failed provider call: invalid,
// with the field-specific error reason and its fixed penalty score.
func degradedResult(field id.FieldType, provider string) *FieldResult {
	penalty := 30
	if field == id.FieldAddress {
		penalty = 35
	}
	result := &FieldResult{
		Field:       field,
		Valid:       false,
		Confidence:  0,
		ReasonCodes: []string{ProviderErrorReason(field)},
		RiskScore:   penalty,
		Provider:    provider,
	}
	return result
}

// placeholderResult is synthesized for absent fields when FillMissing is set.
// Placeholders carry no risk; absence is scored by the order pipeline, not
// the validator layer.
func placeholderResult(field id.FieldType) *FieldResult {
	return &FieldResult{
		Field:       field,
		Valid:       false,
		Confidence:  50,
		ReasonCodes: []string{MissingFieldReason(field)},
		RiskScore:   0,
		Provider:    "none",
	}
}
