package order

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"riskgate/internal/dedupe"
	"riskgate/internal/order/metrics"
	"riskgate/internal/risk"
	"riskgate/internal/rules"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
	"riskgate/pkg/platform/audit"
	platformstrings "riskgate/pkg/platform/strings"
	"riskgate/pkg/requestcontext"
)

const (
	// DefaultHighValueThreshold marks orders above this amount as high value.
	DefaultHighValueThreshold = 1000.0

	// DefaultIdempotencyTTL bounds how long a replayed response stays servable.
	DefaultIdempotencyTTL = 24 * time.Hour
)

// Heuristic weights added to the validation risk score. The pipeline score is
// additive and clamped to [0, 100].
const (
	weightCustomerMatch  = 20
	weightAddressMatch   = 15
	weightPOBox          = 30
	weightPostalMismatch = 10
	weightVirtualAddress = 40
	weightNoGeocode      = 20
	weightInvalidAddress = 30
	weightDisposable     = 25
	weightInvalidPhone   = 25
	weightDuplicateOrder = 50
	weightCOD            = 20
	weightHighValue      = 15
	weightHighRiskRTO    = 50
)

// Action thresholds on the clamped score.
const (
	blockThreshold = 70
	holdThreshold  = 40
)

// Service runs the order decision pipeline: dedupe and validation feed
// additive heuristics and the rule engine, producing one persisted decision.
type Service struct {
	validator   *validation.Service
	deduper     *dedupe.Service
	engine      *rules.Engine
	ruleSource  RuleSource
	decisions   DecisionStore
	idempotency IdempotencyStore
	publisher   *audit.Publisher

	geoBounds          *GeoBounds
	highValueThreshold float64
	idempotencyTTL     time.Duration

	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithIdempotency enables response replay for submissions that carry an
// idempotency key.
func WithIdempotency(store IdempotencyStore) Option {
	return func(s *Service) { s.idempotency = store }
}

func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *Service) { s.idempotencyTTL = ttl }
}

// WithAudit publishes pipeline events through the given publisher.
func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithRuleSource enables rule evaluation against the tenant's ruleset.
func WithRuleSource(source RuleSource) Option {
	return func(s *Service) { s.ruleSource = source }
}

// WithRuleEngine replaces the default engine, usually to change its timeout.
func WithRuleEngine(engine *rules.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithGeoBounds fences plausible shipping geocodes. Unset, the virtual
// address check is skipped.
func WithGeoBounds(bounds GeoBounds) Option {
	return func(s *Service) { s.geoBounds = &bounds }
}

func WithHighValueThreshold(amount float64) Option {
	return func(s *Service) { s.highValueThreshold = amount }
}

func NewService(validator *validation.Service, deduper *dedupe.Service, decisions DecisionStore, opts ...Option) (*Service, error) {
	if validator == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "validation service is required")
	}
	if deduper == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "dedupe service is required")
	}
	if decisions == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "decision store is required")
	}
	s := &Service{
		validator:          validator,
		deduper:            deduper,
		engine:             rules.NewEngine(),
		decisions:          decisions,
		highValueThreshold: DefaultHighValueThreshold,
		idempotencyTTL:     DefaultIdempotencyTTL,
		tracer:             otel.Tracer("riskgate/internal/order"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// EvaluateOrder runs the full pipeline for one order. Payload schema
// violations are the only hard error; downstream failures degrade into the
// score or are logged and swallowed.
func (s *Service) EvaluateOrder(ctx context.Context, payload *Payload) (*Decision, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ctx, span := s.tracer.Start(ctx, "order.evaluate", trace.WithAttributes(
		attribute.String("order.id", payload.OrderID),
	))
	defer span.End()

	start := time.Now()

	if replayed := s.replay(ctx, payload, requestID); replayed != nil {
		return replayed, nil
	}

	// Duplicate detection reads the store before this evaluation persists,
	// so the first submission of an order never flags itself.
	duplicate := s.isDuplicate(ctx, payload)

	customerDedupe, addressDedupe := s.dedupeStage(ctx, payload)
	bundle := s.validationStage(ctx, payload)

	decision := &Decision{
		OrderID:        payload.OrderID,
		CustomerDedupe: customerDedupe,
		AddressDedupe:  addressDedupe,
		RequestID:      requestID,
		EvaluatedAt:    requestcontext.Now(ctx),
	}
	if bundle != nil {
		decision.Validations = bundle.Results
	}
	decision.Assessment = risk.Calculate(decision.Validations)

	score := s.applyHeuristics(payload, decision, duplicate)
	decision.RiskScore = clampScore(score)
	decision.Action = actionForScore(decision.RiskScore)

	s.rulesStage(ctx, payload, decision)

	decision.Tags = platformstrings.DedupeAndTrim(decision.Tags)
	decision.ReasonCodes = platformstrings.DedupeAndTrim(decision.ReasonCodes)

	s.persist(ctx, payload, decision)
	s.saveIdempotent(ctx, payload, decision)
	s.auditDecision(ctx, payload, decision, audit.EventOrderEvaluated)

	s.metrics.ObserveDecision(decision.Action.String())
	s.metrics.ObserveEvaluation(decision.Action.String(), time.Since(start))
	s.logInfo(ctx, "order evaluated",
		"tenant_id", payload.TenantID,
		"order_id", payload.OrderID,
		"risk_score", decision.RiskScore,
		"action", decision.Action,
		"tags", decision.Tags)
	return decision, nil
}

// GetDecision returns the persisted decision for an order.
func (s *Service) GetDecision(ctx context.Context, tenantID id.TenantID, orderID string) (*Decision, error) {
	if tenantID.IsZero() || orderID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant_id and order_id are required")
	}
	record, err := s.decisions.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "decision lookup failed")
	}
	if record == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no decision recorded for order")
	}
	return &record.Decision, nil
}

// replay serves a stored response when the idempotency key was seen before.
func (s *Service) replay(ctx context.Context, payload *Payload, requestID string) *Decision {
	if s.idempotency == nil || payload.IdempotencyKey == "" {
		return nil
	}
	stored, err := s.idempotency.FindResponse(ctx, payload.TenantID, payload.IdempotencyKey)
	if err != nil {
		s.logWarn(ctx, "idempotency lookup failed",
			"order_id", payload.OrderID, "error", err)
		return nil
	}
	if stored == nil {
		return nil
	}
	stored.RequestID = requestID
	s.metrics.ObserveReplay()
	if s.publisher != nil {
		s.publisher.Publish(ctx, audit.Event{
			Action:    audit.EventOrderReplayed,
			TenantID:  payload.TenantID,
			RequestID: requestID,
			OrderID:   payload.OrderID,
			Decision:  stored.Action.String(),
			RiskScore: stored.RiskScore,
		})
	}
	return stored
}

func (s *Service) isDuplicate(ctx context.Context, payload *Payload) bool {
	existing, err := s.decisions.Get(ctx, payload.TenantID, payload.OrderID)
	if err != nil {
		s.logWarn(ctx, "duplicate check failed",
			"order_id", payload.OrderID, "error", err)
		return false
	}
	return existing != nil
}

// dedupeStage matches customer and address concurrently. A matcher failure
// degrades to a nil result; the decision is still made.
func (s *Service) dedupeStage(ctx context.Context, payload *Payload) (*dedupe.Result, *dedupe.Result) {
	ctx, span := s.tracer.Start(ctx, "order.dedupe")
	defer span.End()
	defer func(start time.Time) { s.metrics.ObserveStage("dedupe", time.Since(start)) }(time.Now())

	var customer, address *dedupe.Result
	g, gctx := errgroup.WithContext(ctx)

	if payload.Email != "" || payload.Phone != "" || payload.Name != "" {
		g.Go(func() error {
			result, err := s.deduper.MatchCustomer(gctx, dedupe.CustomerQuery{
				TenantID: payload.TenantID,
				Email:    payload.Email,
				Phone:    payload.Phone,
				Name:     payload.Name,
			})
			if err != nil {
				s.logWarn(gctx, "customer dedupe degraded",
					"order_id", payload.OrderID, "error", err)
				return nil
			}
			customer = result
			return nil
		})
	}

	if payload.Address != nil {
		g.Go(func() error {
			result, err := s.deduper.MatchAddress(gctx, dedupe.AddressQuery{
				TenantID:   payload.TenantID,
				Line1:      payload.Address.Line1,
				Line2:      payload.Address.Line2,
				City:       payload.Address.City,
				State:      payload.Address.State,
				PostalCode: payload.Address.PostalCode,
				Country:    payload.Address.Country,
			})
			if err != nil {
				s.logWarn(gctx, "address dedupe degraded",
					"order_id", payload.OrderID, "error", err)
				return nil
			}
			address = result
			return nil
		})
	}

	_ = g.Wait() // goroutines always return nil
	return customer, address
}

// validationStage validates the order's contact fields with placeholders
// filled, so rule conditions can reference absent fields.
func (s *Service) validationStage(ctx context.Context, payload *Payload) *validation.Bundle {
	ctx, span := s.tracer.Start(ctx, "order.validate")
	defer span.End()
	defer func(start time.Time) { s.metrics.ObserveStage("validation", time.Since(start)) }(time.Now())

	bundle, err := s.validator.Validate(ctx, &validation.Payload{
		TenantID:  payload.TenantID,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Name:      payload.Name,
		IP:        payload.IP,
		UserAgent: payload.UserAgent,
		Address:   payload.Address,
		Amount:    payload.TotalAmount,
		Currency:  payload.Currency,
		Metadata:  payload.Metadata,
	}, validation.Options{FillMissing: true, UseCache: true})
	if err != nil {
		s.logWarn(ctx, "validation degraded",
			"order_id", payload.OrderID, "error", err)
		return nil
	}
	s.auditDegradedFields(ctx, payload, bundle)
	return bundle
}

// auditDegradedFields reports fields whose provider failed and was scored
// with a degraded penalty instead.
func (s *Service) auditDegradedFields(ctx context.Context, payload *Payload, bundle *validation.Bundle) {
	if s.publisher == nil || bundle == nil {
		return
	}
	for field, result := range bundle.Results {
		if result == nil || result.Provider == "none" {
			continue
		}
		if !hasReason(result.ReasonCodes, validation.ProviderErrorReason(field)) {
			continue
		}
		s.publisher.Publish(ctx, audit.Event{
			Action:   audit.EventValidatorDegraded,
			TenantID: payload.TenantID,
			OrderID:  payload.OrderID,
			Detail:   map[string]string{"field": field.String(), "provider": result.Provider},
		})
	}
}

func hasReason(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// applyHeuristics layers the pipeline's additive signals on top of the
// field-level risk score, collecting tags and reason codes as it goes.
func (s *Service) applyHeuristics(payload *Payload, decision *Decision, duplicate bool) int {
	defer func(start time.Time) { s.metrics.ObserveStage("heuristics", time.Since(start)) }(time.Now())

	score := decision.Assessment.Score
	decision.Tags = []string{}
	decision.ReasonCodes = []string{}

	tag := func(points int, t string) {
		score += points
		decision.Tags = append(decision.Tags, t)
	}
	reason := func(points int, code string) {
		score += points
		decision.ReasonCodes = append(decision.ReasonCodes, code)
	}

	customerMatched := decision.CustomerDedupe != nil && len(decision.CustomerDedupe.Matches) > 0
	if customerMatched {
		reason(weightCustomerMatch, ReasonCustomerDedupeMatch)
	}
	if decision.AddressDedupe != nil && len(decision.AddressDedupe.Matches) > 0 {
		reason(weightAddressMatch, ReasonAddressDedupeMatch)
	}

	var email *validation.FieldResult
	var phone *validation.FieldResult
	var address *validation.FieldResult
	if decision.Validations != nil {
		email = presentResult(decision.Validations[id.FieldEmail])
		phone = presentResult(decision.Validations[id.FieldPhone])
		address = presentResult(decision.Validations[id.FieldAddress])
	}

	postalMismatch := false
	if address != nil && address.Address != nil {
		attrs := address.Address
		if attrs.POBox {
			tag(weightPOBox, TagPOBox)
		}
		if !attrs.PostalCityMatch {
			postalMismatch = true
			reason(weightPostalMismatch, ReasonPostalCityMismatch)
		}
		switch {
		case attrs.Geocode == nil:
			reason(weightNoGeocode, ReasonGeocodeMissing)
		case s.geoBounds != nil && !s.geoBounds.Contains(attrs.Geocode.Lat, attrs.Geocode.Lng):
			tag(weightVirtualAddress, TagVirtual)
		}
	}
	if address != nil && !address.Valid {
		reason(weightInvalidAddress, ReasonInvalidAddress)
	}

	disposable := email != nil && email.Email != nil && email.Email.Disposable
	if disposable {
		tag(weightDisposable, TagDisposable)
	}
	if phone != nil && !phone.Valid {
		reason(weightInvalidPhone, ReasonInvalidPhone)
	}

	if duplicate {
		tag(weightDuplicateOrder, TagDupOrder)
	}
	cod := strings.EqualFold(payload.PaymentMethod, "cod")
	if cod {
		tag(weightCOD, TagCOD)
	}
	if payload.TotalAmount > s.highValueThreshold {
		tag(weightHighValue, TagHighValue)
	}

	// RTO composite: a fresh identity shipping to an inconsistent address
	// from a throwaway email.
	countryConflict := postalMismatch || phoneCountryConflict(phone, address)
	if !customerMatched && countryConflict && disposable {
		tag(weightHighRiskRTO, TagHighRiskRTO)
	}

	return score
}

func phoneCountryConflict(phone, address *validation.FieldResult) bool {
	if phone == nil || phone.Phone == nil || address == nil || address.Address == nil {
		return false
	}
	pc, ac := phone.Phone.Country, address.Address.Country
	return pc != "" && ac != "" && !strings.EqualFold(pc, ac)
}

// presentResult filters out placeholders for fields the order never carried.
func presentResult(r *validation.FieldResult) *validation.FieldResult {
	if r == nil || r.Provider == "none" {
		return nil
	}
	return r
}

// rulesStage evaluates the tenant's ruleset. A triggered rule can escalate
// the action but never downgrade it.
func (s *Service) rulesStage(ctx context.Context, payload *Payload, decision *Decision) {
	if s.ruleSource == nil {
		return
	}
	ctx, span := s.tracer.Start(ctx, "order.rules")
	defer span.End()
	defer func(start time.Time) { s.metrics.ObserveStage("rules", time.Since(start)) }(time.Now())

	ruleset, err := s.ruleSource.RulesFor(ctx, payload.TenantID)
	if err != nil {
		s.logWarn(ctx, "rule load failed",
			"order_id", payload.OrderID, "error", err)
		return
	}
	if len(ruleset) == 0 {
		return
	}

	byID := make(map[string]rules.Rule, len(ruleset))
	for _, rule := range ruleset {
		byID[rule.ID] = rule
	}

	ec := rules.NewContext(decision.Validations, s.ruleBindings(payload, decision))
	for _, result := range s.engine.EvaluateAll(ctx, ruleset, ec) {
		if !result.Triggered {
			continue
		}
		rule := byID[result.RuleID]
		decision.ReasonCodes = append(decision.ReasonCodes, "rule:"+rule.ID)
		s.metrics.ObserveRuleTriggered(rule.ID)
		if ruleAction, err := id.ParseAction(rule.Action); err == nil {
			if actionRank(ruleAction) > actionRank(decision.Action) {
				decision.Action = ruleAction
			}
		}
		if s.publisher != nil {
			s.publisher.Publish(ctx, audit.Event{
				Action:    audit.EventRuleTriggered,
				TenantID:  payload.TenantID,
				RequestID: decision.RequestID,
				OrderID:   payload.OrderID,
				Decision:  rule.Action,
				Detail:    map[string]string{"rule_id": rule.ID, "rule_name": rule.Name},
			})
		}
	}
}

// ruleBindings exposes order-level fields to rule conditions. Metadata is
// hoisted; explicit keys win on collision.
func (s *Service) ruleBindings(payload *Payload, decision *Decision) map[string]any {
	bindings := make(map[string]any, len(payload.Metadata)+8)
	for k, v := range payload.Metadata {
		bindings[k] = v
	}
	bindings["order_id"] = payload.OrderID
	bindings["payment_method"] = payload.PaymentMethod
	bindings["total_amount"] = payload.TotalAmount
	bindings["currency"] = payload.Currency
	bindings["risk_score"] = float64(decision.RiskScore)
	bindings["tags"] = append([]string(nil), decision.Tags...)
	return bindings
}

// persist stores the decision insert-if-absent; a re-scored order never
// overwrites the first record.
func (s *Service) persist(ctx context.Context, payload *Payload, decision *Decision) {
	ctx, span := s.tracer.Start(ctx, "order.persist")
	defer span.End()
	defer func(start time.Time) { s.metrics.ObserveStage("persist", time.Since(start)) }(time.Now())

	inserted, err := s.decisions.Insert(ctx, Record{
		TenantID: payload.TenantID,
		OrderID:  payload.OrderID,
		Decision: *decision,
	})
	if err != nil {
		s.logError(ctx, "decision persist failed",
			"order_id", payload.OrderID, "error", err)
		return
	}
	if !inserted {
		s.logInfo(ctx, "decision already recorded",
			"order_id", payload.OrderID)
	}
}

func (s *Service) saveIdempotent(ctx context.Context, payload *Payload, decision *Decision) {
	if s.idempotency == nil || payload.IdempotencyKey == "" {
		return
	}
	err := s.idempotency.SaveResponse(ctx, payload.TenantID, payload.IdempotencyKey, decision, s.idempotencyTTL)
	if err != nil {
		s.logWarn(ctx, "idempotency save failed",
			"order_id", payload.OrderID, "error", err)
	}
}

func (s *Service) auditDecision(ctx context.Context, payload *Payload, decision *Decision, action string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, audit.Event{
		Action:    action,
		TenantID:  payload.TenantID,
		RequestID: decision.RequestID,
		OrderID:   payload.OrderID,
		Decision:  decision.Action.String(),
		RiskScore: decision.RiskScore,
		Detail: map[string]string{
			"tags": strings.Join(decision.Tags, ","),
		},
	})
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *Service) logError(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, msg, args...)
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func actionForScore(score int) id.Action {
	switch {
	case score > blockThreshold:
		return id.ActionBlock
	case score > holdThreshold:
		return id.ActionHold
	default:
		return id.ActionApprove
	}
}

func actionRank(a id.Action) int {
	switch a {
	case id.ActionBlock:
		return 2
	case id.ActionHold:
		return 1
	default:
		return 0
	}
}
