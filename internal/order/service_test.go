package order

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"riskgate/internal/dedupe"
	"riskgate/internal/rules"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
	"riskgate/pkg/platform/audit"
)

// =============================================================================
// Order Pipeline Test Suite
// =============================================================================
// Justification for unit tests: the pipeline combines dedupe, validation,
// additive heuristics, rule escalation, and persistence. Each signal has a
// fixed weight and the composition is order-sensitive, so scenarios are pinned
// end to end against stub validators and in-memory stores.

type stubValidator struct {
	mu     sync.Mutex
	field  id.FieldType
	result validation.FieldResult
	calls  int
}

func (v *stubValidator) Field() id.FieldType { return v.field }
func (v *stubValidator) Name() string        { return "stub-" + v.field.String() }

func (v *stubValidator) Validate(_ context.Context, _ string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	result := v.result
	result.Field = v.field
	result.Provider = v.Name()
	return &result, nil
}

func (v *stubValidator) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type OrderServiceSuite struct {
	suite.Suite
	tenant    id.TenantID
	customers *dedupe.InMemoryCustomerStore
	addresses *dedupe.InMemoryAddressStore
	decisions *InMemoryDecisionStore
	idem      *InMemoryIdempotencyStore
	rulesrc   *StaticRuleSource
	publisher *audit.Publisher

	email   *stubValidator
	phone   *stubValidator
	name    *stubValidator
	address *stubValidator

	service *Service
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.tenant = id.TenantID("tenant-1")
	s.customers = dedupe.NewInMemoryCustomerStore()
	s.addresses = dedupe.NewInMemoryAddressStore()
	s.decisions = NewInMemoryDecisionStore()
	s.idem = NewInMemoryIdempotencyStore()
	s.rulesrc = NewStaticRuleSource()
	s.publisher = audit.NewPublisher(64)

	s.email = &stubValidator{field: id.FieldEmail, result: validation.FieldResult{
		Valid: true,
		Email: &validation.EmailAttrs{MXRecords: true, Domain: "example.com"},
	}}
	s.phone = &stubValidator{field: id.FieldPhone, result: validation.FieldResult{
		Valid: true,
		Phone: &validation.PhoneAttrs{Country: "IN"},
	}}
	s.name = &stubValidator{field: id.FieldName, result: validation.FieldResult{
		Valid: true,
	}}
	s.address = &stubValidator{field: id.FieldAddress, result: validation.FieldResult{
		Valid: true,
		Address: &validation.AddressAttrs{
			PostalCityMatch: true,
			Deliverable:     true,
			Country:         "IN",
			Geocode:         &validation.Geocode{Lat: 12.97, Lng: 77.59},
		},
	}}

	s.service = s.newService()
}

func (s *OrderServiceSuite) newService(opts ...Option) *Service {
	registry := validation.NewRegistry()
	s.Require().NoError(registry.Register(s.email))
	s.Require().NoError(registry.Register(s.phone))
	s.Require().NoError(registry.Register(s.name))
	s.Require().NoError(registry.Register(s.address))
	validator := validation.NewService(registry)

	deduper, err := dedupe.NewService(s.customers, s.addresses)
	s.Require().NoError(err)

	base := []Option{
		WithIdempotency(s.idem),
		WithAudit(s.publisher),
		WithRuleSource(s.rulesrc),
	}
	service, err := NewService(validator, deduper, s.decisions, append(base, opts...)...)
	s.Require().NoError(err)
	return service
}

func (s *OrderServiceSuite) basePayload(orderID string) *Payload {
	return &Payload{
		TenantID: s.tenant,
		OrderID:  orderID,
		Email:    "asha@example.com",
		Phone:    "+919876543210",
		Name:     "Asha Rao",
		Address: &validation.AddressInput{
			Line1:      "14 MG Road",
			City:       "Bengaluru",
			State:      "KA",
			PostalCode: "560001",
			Country:    "IN",
		},
		PaymentMethod: "prepaid",
		TotalAmount:   500,
		Currency:      "INR",
	}
}

func (s *OrderServiceSuite) drainEvents() []audit.Event {
	var events []audit.Event
	for {
		select {
		case e := <-s.publisher.Inbox():
			events = append(events, e)
		default:
			return events
		}
	}
}

// =============================================================================
// Payload Schema Tests
// =============================================================================

func (s *OrderServiceSuite) TestPayloadSchema() {
	ctx := context.Background()

	s.Run("nil payload rejected", func() {
		_, err := s.service.EvaluateOrder(ctx, nil)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("missing tenant rejected", func() {
		p := s.basePayload("ord-1")
		p.TenantID = ""
		_, err := s.service.EvaluateOrder(ctx, p)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("missing order id rejected", func() {
		p := s.basePayload("ord-1")
		p.OrderID = ""
		_, err := s.service.EvaluateOrder(ctx, p)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	s.Run("negative amount rejected", func() {
		p := s.basePayload("ord-1")
		p.TotalAmount = -1
		_, err := s.service.EvaluateOrder(ctx, p)
		s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})
}

// =============================================================================
// Scoring Scenarios
// =============================================================================

func (s *OrderServiceSuite) TestCleanOrderApproves() {
	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-1"))
	s.Require().NoError(err)

	s.Equal(0, decision.RiskScore)
	s.Equal(id.ActionApprove, decision.Action)
	s.Empty(decision.Tags)
	s.Empty(decision.ReasonCodes)
	s.NotEmpty(decision.RequestID)
	s.Equal(dedupe.ActionCreateNew, decision.CustomerDedupe.SuggestedAction)
	s.Equal(dedupe.ActionCreateNew, decision.AddressDedupe.SuggestedAction)
}

func (s *OrderServiceSuite) TestHighRiskCODOrderBlocks() {
	// Disposable email, postal/city mismatch, cash on delivery, high value,
	// and no known customer: the return-to-origin composite fires.
	s.email.result.Email.Disposable = true
	s.address.result.Address.PostalCityMatch = false

	p := s.basePayload("ord-2")
	p.Email = "throwaway@tempmail.io"
	p.PaymentMethod = "cod"
	p.TotalAmount = 1500

	decision, err := s.service.EvaluateOrder(context.Background(), p)
	s.Require().NoError(err)

	// Assessment: disposable 35 + mismatch 25. Heuristics: mismatch 10,
	// disposable 25, cod 20, high value 15, composite 50. Clamped.
	s.Equal(100, decision.RiskScore)
	s.Equal(id.ActionBlock, decision.Action)
	s.ElementsMatch([]string{TagDisposable, TagCOD, TagHighValue, TagHighRiskRTO}, decision.Tags)
	s.Contains(decision.ReasonCodes, ReasonPostalCityMismatch)
}

func (s *OrderServiceSuite) TestPOBoxHolds() {
	s.address.result.Address.POBox = true

	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-3"))
	s.Require().NoError(err)

	// Assessment 15 + heuristic 30.
	s.Equal(45, decision.RiskScore)
	s.Equal(id.ActionHold, decision.Action)
	s.Equal([]string{TagPOBox}, decision.Tags)
}

func (s *OrderServiceSuite) TestMissingGeocodeAddsReason() {
	s.address.result.Address.Geocode = nil

	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-4"))
	s.Require().NoError(err)

	s.Equal(20, decision.RiskScore)
	s.Equal(id.ActionApprove, decision.Action)
	s.Contains(decision.ReasonCodes, ReasonGeocodeMissing)
}

func (s *OrderServiceSuite) TestGeocodeOutsideBoundsTagsVirtual() {
	service := s.newService(WithGeoBounds(GeoBounds{
		MinLat: 6, MaxLat: 36, MinLng: 68, MaxLng: 98,
	}))
	s.address.result.Address.Geocode = &validation.Geocode{Lat: 40.71, Lng: -74.01}

	decision, err := service.EvaluateOrder(context.Background(), s.basePayload("ord-5"))
	s.Require().NoError(err)

	// 40 sits exactly on the hold threshold, which is strict.
	s.Equal(40, decision.RiskScore)
	s.Equal(id.ActionApprove, decision.Action)
	s.Equal([]string{TagVirtual}, decision.Tags)
}

func (s *OrderServiceSuite) TestInvalidPhoneHolds() {
	s.phone.result.Valid = false

	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-6"))
	s.Require().NoError(err)

	// Assessment 30 + heuristic 25.
	s.Equal(55, decision.RiskScore)
	s.Equal(id.ActionHold, decision.Action)
	s.Contains(decision.ReasonCodes, ReasonInvalidPhone)
}

func (s *OrderServiceSuite) TestDedupeMatchesRaiseScore() {
	ctx := context.Background()
	s.Require().NoError(s.customers.Create(ctx, &dedupe.CustomerRecord{
		TenantID: s.tenant, Email: "asha@example.com",
	}))

	decision, err := s.service.EvaluateOrder(ctx, s.basePayload("ord-7"))
	s.Require().NoError(err)

	s.Equal(20, decision.RiskScore)
	s.Equal(id.ActionApprove, decision.Action)
	s.Contains(decision.ReasonCodes, ReasonCustomerDedupeMatch)
	s.Equal(dedupe.ActionMergeWith, decision.CustomerDedupe.SuggestedAction)
}

// =============================================================================
// Duplicate Order Tests
// =============================================================================

func (s *OrderServiceSuite) TestDuplicateOrderIDFlagged() {
	ctx := context.Background()

	first, err := s.service.EvaluateOrder(ctx, s.basePayload("ord-8"))
	s.Require().NoError(err)
	s.Equal(id.ActionApprove, first.Action)

	second, err := s.service.EvaluateOrder(ctx, s.basePayload("ord-8"))
	s.Require().NoError(err)

	s.Equal(50, second.RiskScore)
	s.Equal(id.ActionHold, second.Action)
	s.Contains(second.Tags, TagDupOrder)

	// The first decision owns the persisted record.
	record, err := s.decisions.Get(ctx, s.tenant, "ord-8")
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal(0, record.Decision.RiskScore)
	s.Equal(id.ActionApprove, record.Decision.Action)
}

// =============================================================================
// Idempotency Tests
// =============================================================================

func (s *OrderServiceSuite) TestIdempotentReplay() {
	ctx := context.Background()
	p := s.basePayload("ord-9")
	p.IdempotencyKey = "key-1"

	first, err := s.service.EvaluateOrder(ctx, p)
	s.Require().NoError(err)

	firstEvents := s.drainEvents()
	s.Require().Len(firstEvents, 1)
	s.Equal(audit.EventOrderEvaluated, firstEvents[0].Action)

	callsAfterFirst := s.email.callCount()

	replayed, err := s.service.EvaluateOrder(ctx, p)
	s.Require().NoError(err)

	s.Equal(first.RiskScore, replayed.RiskScore)
	s.Equal(first.Action, replayed.Action)
	s.Equal(first.OrderID, replayed.OrderID)
	s.Equal(callsAfterFirst, s.email.callCount(), "replay must not re-run validators")

	replayEvents := s.drainEvents()
	s.Require().Len(replayEvents, 1)
	s.Equal(audit.EventOrderReplayed, replayEvents[0].Action)
}

func (s *OrderServiceSuite) TestIdempotencyKeysAreTenantScoped() {
	ctx := context.Background()
	p := s.basePayload("ord-10")
	p.IdempotencyKey = "shared-key"
	_, err := s.service.EvaluateOrder(ctx, p)
	s.Require().NoError(err)

	other := s.basePayload("ord-10")
	other.TenantID = "tenant-2"
	other.IdempotencyKey = "shared-key"
	_, err = s.service.EvaluateOrder(ctx, other)
	s.Require().NoError(err)

	// Both ran the full pipeline: two validator calls, no replay.
	s.Equal(2, s.email.callCount())
}

// =============================================================================
// Rule Evaluation Tests
// =============================================================================

func (s *OrderServiceSuite) TestTriggeredRuleEscalates() {
	s.rulesrc.SetRules(s.tenant, []rules.Rule{
		{ID: "r-cod", Name: "hold cod orders", Condition: "payment_method == 'cod'", Action: "hold", Priority: 10, Enabled: true},
	})

	p := s.basePayload("ord-11")
	p.PaymentMethod = "cod"

	decision, err := s.service.EvaluateOrder(context.Background(), p)
	s.Require().NoError(err)

	// Heuristic score alone (cod 20) would approve; the rule escalates.
	s.Equal(20, decision.RiskScore)
	s.Equal(id.ActionHold, decision.Action)
	s.Contains(decision.ReasonCodes, "rule:r-cod")

	events := s.drainEvents()
	var actions []string
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, audit.EventRuleTriggered)
}

func (s *OrderServiceSuite) TestRulesNeverDowngrade() {
	s.rulesrc.SetRules(s.tenant, []rules.Rule{
		{ID: "r-ok", Name: "approve anything", Condition: "total_amount > 100", Action: "approve", Priority: 5, Enabled: true},
	})
	s.address.result.Address.PostalCityMatch = false

	p := s.basePayload("ord-12")
	p.PaymentMethod = "cod"

	decision, err := s.service.EvaluateOrder(context.Background(), p)
	s.Require().NoError(err)

	// Mismatch 25+10 plus cod 20 holds; the approving rule cannot lower it.
	s.Equal(55, decision.RiskScore)
	s.Equal(id.ActionHold, decision.Action)
	s.Contains(decision.ReasonCodes, "rule:r-ok")
}

func (s *OrderServiceSuite) TestRulesSeeValidationContext() {
	s.rulesrc.SetRules(s.tenant, []rules.Rule{
		{ID: "r-disp", Name: "block disposable", Condition: "email.disposable == true", Action: "block", Priority: 100, Enabled: true},
	})
	s.email.result.Email.Disposable = true

	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-13"))
	s.Require().NoError(err)

	s.Equal(id.ActionBlock, decision.Action)
	s.Contains(decision.ReasonCodes, "rule:r-disp")
}

func (s *OrderServiceSuite) TestDisabledRulesSkipped() {
	s.rulesrc.SetRules(s.tenant, []rules.Rule{
		{ID: "r-off", Name: "disabled", Condition: "total_amount > 0", Action: "block", Priority: 1, Enabled: false},
	})

	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-14"))
	s.Require().NoError(err)

	s.Equal(id.ActionApprove, decision.Action)
	s.NotContains(decision.ReasonCodes, "rule:r-off")
}

// =============================================================================
// Audit Trail Tests
// =============================================================================

func (s *OrderServiceSuite) TestEvaluationPublishesAuditEvent() {
	decision, err := s.service.EvaluateOrder(context.Background(), s.basePayload("ord-15"))
	s.Require().NoError(err)

	events := s.drainEvents()
	s.Require().Len(events, 1)
	s.Equal(audit.EventOrderEvaluated, events[0].Action)
	s.Equal(s.tenant, events[0].TenantID)
	s.Equal("ord-15", events[0].OrderID)
	s.Equal(decision.Action.String(), events[0].Decision)
	s.Equal(decision.RiskScore, events[0].RiskScore)
}
