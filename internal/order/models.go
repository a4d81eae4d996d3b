package order

import (
	"time"

	"riskgate/internal/dedupe"
	"riskgate/internal/risk"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
)

// Payload is one order submitted for evaluation. Immutable input.
type Payload struct {
	TenantID       id.TenantID              `json:"tenant_id"`
	OrderID        string                   `json:"order_id"`
	IdempotencyKey string                   `json:"idempotency_key,omitempty"`
	Email          string                   `json:"email,omitempty"`
	Phone          string                   `json:"phone,omitempty"`
	Name           string                   `json:"name,omitempty"`
	IP             string                   `json:"ip,omitempty"`
	UserAgent      string                   `json:"user_agent,omitempty"`
	Address        *validation.AddressInput `json:"address,omitempty"`
	PaymentMethod  string                   `json:"payment_method,omitempty"`
	TotalAmount    float64                  `json:"total_amount"`
	Currency       string                   `json:"currency,omitempty"`
	Metadata       map[string]string        `json:"metadata,omitempty"`
}

// Validate enforces the payload schema, the pipeline's only hard error.
func (p *Payload) Validate() error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	if p.TenantID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	if p.OrderID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "order_id is required")
	}
	if p.TotalAmount < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "total_amount cannot be negative")
	}
	return nil
}

// Decision is the pipeline output, created once per evaluation call. The
// persisted audit record is keyed (tenant_id, order_id) insert-if-absent, so
// replayed submissions are re-scored for the response but never overwrite the
// first record.
type Decision struct {
	OrderID        string                                  `json:"order_id"`
	RiskScore      int                                     `json:"risk_score"`
	Action         id.Action                               `json:"action"`
	Tags           []string                                `json:"tags"`
	ReasonCodes    []string                                `json:"reason_codes"`
	CustomerDedupe *dedupe.Result                          `json:"customer_dedupe,omitempty"`
	AddressDedupe  *dedupe.Result                          `json:"address_dedupe,omitempty"`
	Validations    map[id.FieldType]*validation.FieldResult `json:"validations,omitempty"`
	Assessment     risk.Assessment                         `json:"assessment"`
	RequestID      string                                  `json:"request_id"`
	EvaluatedAt    time.Time                               `json:"evaluated_at"`
}

// Tags attached by the pipeline heuristics.
const (
	TagPOBox       = "po_box_detected"
	TagVirtual     = "virtual_address"
	TagDisposable  = "disposable_email"
	TagDupOrder    = "duplicate_order"
	TagCOD         = "cod_order"
	TagHighValue   = "high_value_order"
	TagHighRiskRTO = "high_risk_rto"
)

// Reason codes for heuristics that do not carry a dedicated tag.
const (
	ReasonCustomerDedupeMatch = "customer_dedupe_match"
	ReasonAddressDedupeMatch  = "address_dedupe_match"
	ReasonPostalCityMismatch  = "postal_city_mismatch"
	ReasonGeocodeMissing      = "geocode_missing"
	ReasonInvalidAddress      = "invalid_address"
	ReasonInvalidPhone        = "invalid_phone"
)

// GeoBounds is the configured plausibility fence for shipping geocodes. A
// geocode outside the fence marks the order as using a virtual address.
type GeoBounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether the coordinate falls inside the fence.
func (b GeoBounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
