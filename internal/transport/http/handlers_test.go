package httptransport

// =============================================================================
// HTTP transport tests
// =============================================================================
//
// Justification for unit tests:
// The transport layer owns decoding, schema rejection, error-to-status
// mapping, and header propagation. These tests drive the full router so the
// middleware chain (request id, tenant, client metadata) is exercised exactly
// as in production, with the domain services stubbed at the interface seams.

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"riskgate/internal/dedupe"
	"riskgate/internal/order"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
	"riskgate/pkg/testutil"
)

type stubOrders struct {
	lastPayload  *order.Payload
	lastTenantID id.TenantID
	lastOrderID  string
	decision     *order.Decision
	err          error
}

func (s *stubOrders) EvaluateOrder(_ context.Context, payload *order.Payload) (*order.Decision, error) {
	s.lastPayload = payload
	return s.decision, s.err
}

func (s *stubOrders) GetDecision(_ context.Context, tenantID id.TenantID, orderID string) (*order.Decision, error) {
	s.lastTenantID = tenantID
	s.lastOrderID = orderID
	return s.decision, s.err
}

type stubDeduper struct {
	lastCustomerQuery dedupe.CustomerQuery
	lastAddressQuery  dedupe.AddressQuery
	lastRecordType    id.RecordType
	lastIDs           []string
	lastCanonicalID   string
	result            *dedupe.Result
	err               error
}

func (s *stubDeduper) MatchCustomer(_ context.Context, query dedupe.CustomerQuery) (*dedupe.Result, error) {
	s.lastCustomerQuery = query
	return s.result, s.err
}

func (s *stubDeduper) MatchAddress(_ context.Context, query dedupe.AddressQuery) (*dedupe.Result, error) {
	s.lastAddressQuery = query
	return s.result, s.err
}

func (s *stubDeduper) MergeRecords(_ context.Context, _ id.TenantID, recordType id.RecordType, ids []string, canonicalID string) error {
	s.lastRecordType = recordType
	s.lastIDs = ids
	s.lastCanonicalID = canonicalID
	return s.err
}

type stubValidation struct {
	lastPayload *validation.Payload
	lastOpts    validation.Options
	bundle      *validation.Bundle
	err         error
}

func (s *stubValidation) Validate(_ context.Context, payload *validation.Payload, opts validation.Options) (*validation.Bundle, error) {
	s.lastPayload = payload
	s.lastOpts = opts
	return s.bundle, s.err
}

type TransportSuite struct {
	suite.Suite

	orders    *stubOrders
	deduper   *stubDeduper
	validator *stubValidation
	router    http.Handler
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) SetupTest() {
	s.orders = &stubOrders{}
	s.deduper = &stubDeduper{}
	s.validator = &stubValidation{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(s.orders, s.deduper, s.validator, logger)
	s.router = NewRouter(h, nil)
}

func (s *TransportSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *TransportSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// =============================================================================
// Health and request id
// =============================================================================

func (s *TransportSuite) TestHealth() {
	w := s.do(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("ok", s.decode(w)["status"])
}

func (s *TransportSuite) TestRequestIDEchoed() {
	w := s.do(http.MethodGet, "/healthz", nil, map[string]string{"X-Request-ID": "req-77"})
	s.Equal("req-77", w.Header().Get("X-Request-ID"))

	w = s.do(http.MethodGet, "/healthz", nil, nil)
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

// =============================================================================
// Order evaluation
// =============================================================================

func (s *TransportSuite) TestEvaluateOrder() {
	s.orders.decision = &order.Decision{
		OrderID:   "ord-1",
		RiskScore: 45,
		Action:    id.ActionHold,
		Tags:      []string{order.TagPOBox},
	}

	w := s.do(http.MethodPost, "/v1/orders/evaluate", EvaluateOrderRequest{
		TenantID:    "tenant-1",
		OrderID:     "ord-1",
		Email:       "asha@example.com",
		TotalAmount: 500,
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("ord-1", resp["order_id"])
	s.Equal("hold", resp["action"])
	s.InDelta(45, resp["risk_score"], 0)

	s.Require().NotNil(s.orders.lastPayload)
	s.Equal(id.TenantID("tenant-1"), s.orders.lastPayload.TenantID)
}

func (s *TransportSuite) TestEvaluateOrderFillsClientIP() {
	s.orders.decision = &order.Decision{OrderID: "ord-1", Action: id.ActionApprove}

	w := s.do(http.MethodPost, "/v1/orders/evaluate", EvaluateOrderRequest{
		TenantID:    "tenant-1",
		OrderID:     "ord-1",
		TotalAmount: 100,
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	// httptest requests carry a RemoteAddr; the metadata middleware surfaces it.
	s.Require().NotNil(s.orders.lastPayload)
	s.NotEmpty(s.orders.lastPayload.IP)
}

func (s *TransportSuite) TestEvaluateOrderKeepsCallerIP() {
	s.orders.decision = &order.Decision{OrderID: "ord-1", Action: id.ActionApprove}

	w := s.do(http.MethodPost, "/v1/orders/evaluate", EvaluateOrderRequest{
		TenantID:    "tenant-1",
		OrderID:     "ord-1",
		IP:          "203.0.113.9",
		TotalAmount: 100,
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("203.0.113.9", s.orders.lastPayload.IP)
}

func (s *TransportSuite) TestEvaluateOrderRejectsSchema() {
	cases := map[string]EvaluateOrderRequest{
		"missing tenant":  {OrderID: "ord-1"},
		"missing order":   {TenantID: "tenant-1"},
		"negative amount": {TenantID: "tenant-1", OrderID: "ord-1", TotalAmount: -1},
	}
	for name, req := range cases {
		s.Run(name, func() {
			w := s.do(http.MethodPost, "/v1/orders/evaluate", req, nil)
			s.Equal(http.StatusBadRequest, w.Code)
			s.Equal("invalid_input", s.decode(w)["error"])
		})
	}
}

func (s *TransportSuite) TestEvaluateOrderRejectsMalformedJSON() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/orders/evaluate", "{not json")
	w := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TransportSuite) TestEvaluateOrderServiceUnavailable() {
	s.orders.err = dErrors.New(dErrors.CodeUnavailable, "decision store down")
	w := s.do(http.MethodPost, "/v1/orders/evaluate", EvaluateOrderRequest{
		TenantID: "tenant-1", OrderID: "ord-1",
	}, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

// =============================================================================
// Decision lookup
// =============================================================================

func (s *TransportSuite) TestGetDecision() {
	s.orders.decision = &order.Decision{OrderID: "ord-9", RiskScore: 10, Action: id.ActionApprove}

	w := s.do(http.MethodGet, "/v1/orders/ord-9/decision", nil, map[string]string{
		"X-Tenant-ID": "tenant-1",
	})

	s.Equal(http.StatusOK, w.Code)
	s.Equal("ord-9", s.decode(w)["order_id"])
	s.Equal(id.TenantID("tenant-1"), s.orders.lastTenantID)
	s.Equal("ord-9", s.orders.lastOrderID)
}

func (s *TransportSuite) TestGetDecisionNotFound() {
	s.orders.err = dErrors.New(dErrors.CodeNotFound, "no decision recorded for order")
	w := s.do(http.MethodGet, "/v1/orders/ord-9/decision", nil, map[string]string{
		"X-Tenant-ID": "tenant-1",
	})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("not_found", s.decode(w)["error"])
}

func (s *TransportSuite) TestGetDecisionWithoutTenantHeader() {
	s.orders.err = dErrors.New(dErrors.CodeInvalidInput, "tenant_id and order_id are required")
	w := s.do(http.MethodGet, "/v1/orders/ord-9/decision", nil, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

// =============================================================================
// Dedupe endpoints
// =============================================================================

func (s *TransportSuite) TestMatchCustomer() {
	s.deduper.result = &dedupe.Result{
		Matches:         []dedupe.Match{{ID: "cust-1", SimilarityScore: 1, MatchType: dedupe.MatchExactEmail}},
		SuggestedAction: dedupe.ActionMergeWith,
		CanonicalID:     "cust-1",
	}

	w := s.do(http.MethodPost, "/v1/dedupe/customers/match", MatchCustomerRequest{
		TenantID: "tenant-1",
		Email:    "asha@example.com",
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("merge_with", resp["suggested_action"])
	s.Equal("cust-1", resp["canonical_id"])
	s.Equal("asha@example.com", s.deduper.lastCustomerQuery.Email)
}

func (s *TransportSuite) TestMatchCustomerRequiresAField() {
	w := s.do(http.MethodPost, "/v1/dedupe/customers/match", MatchCustomerRequest{
		TenantID: "tenant-1",
	}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TransportSuite) TestMatchAddress() {
	s.deduper.result = &dedupe.Result{SuggestedAction: dedupe.ActionCreateNew}

	w := s.do(http.MethodPost, "/v1/dedupe/addresses/match", MatchAddressRequest{
		TenantID:   "tenant-1",
		Line1:      "14 MG Road",
		City:       "Bengaluru",
		PostalCode: "560001",
		Country:    "IN",
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("create_new", s.decode(w)["suggested_action"])
	s.Equal("Bengaluru", s.deduper.lastAddressQuery.City)
}

func (s *TransportSuite) TestMerge() {
	w := s.do(http.MethodPost, "/v1/dedupe/merge", MergeRequest{
		TenantID:    "tenant-1",
		RecordType:  "customer",
		IDs:         []string{"cust-1", "cust-2"},
		CanonicalID: "cust-1",
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("merged", s.decode(w)["status"])
	s.Equal(id.RecordTypeCustomer, s.deduper.lastRecordType)
	s.Equal([]string{"cust-1", "cust-2"}, s.deduper.lastIDs)
	s.Equal("cust-1", s.deduper.lastCanonicalID)
}

func (s *TransportSuite) TestMergeRejectsUnknownRecordType() {
	w := s.do(http.MethodPost, "/v1/dedupe/merge", MergeRequest{
		TenantID:    "tenant-1",
		RecordType:  "device",
		IDs:         []string{"a"},
		CanonicalID: "a",
	}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TransportSuite) TestMergeConflict() {
	s.deduper.err = dErrors.New(dErrors.CodeConflict, "record already merged")
	w := s.do(http.MethodPost, "/v1/dedupe/merge", MergeRequest{
		TenantID:    "tenant-1",
		RecordType:  "address",
		IDs:         []string{"addr-1", "addr-2"},
		CanonicalID: "addr-1",
	}, nil)
	s.Equal(http.StatusConflict, w.Code)
}

// =============================================================================
// Validation endpoint
// =============================================================================

func (s *TransportSuite) TestValidate() {
	s.validator.bundle = &validation.Bundle{
		Results: map[id.FieldType]*validation.FieldResult{
			id.FieldEmail: {Field: id.FieldEmail, Valid: true, Provider: "internal-email"},
		},
	}

	w := s.do(http.MethodPost, "/v1/validate", ValidateRequest{
		TenantID: "tenant-1",
		Email:    "asha@example.com",
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("asha@example.com", s.validator.lastPayload.Email)
	s.True(s.validator.lastOpts.UseCache, "caching defaults on")
	s.False(s.validator.lastOpts.FillMissing)
}

func (s *TransportSuite) TestValidateHonorsOptionFlags() {
	s.validator.bundle = &validation.Bundle{}
	useCache := false

	w := s.do(http.MethodPost, "/v1/validate", ValidateRequest{
		TenantID:    "tenant-1",
		Email:       "asha@example.com",
		FillMissing: true,
		UseCache:    &useCache,
	}, nil)

	s.Equal(http.StatusOK, w.Code)
	s.True(s.validator.lastOpts.FillMissing)
	s.False(s.validator.lastOpts.UseCache)
}

func (s *TransportSuite) TestValidateRejectsBadEmail() {
	w := s.do(http.MethodPost, "/v1/validate", ValidateRequest{
		TenantID: "tenant-1",
		Email:    "not-an-email",
	}, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}
