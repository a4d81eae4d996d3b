package httptransport

import (
	"context"

	"riskgate/internal/dedupe"
	"riskgate/internal/order"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
)

// OrderService is the slice of the order pipeline the transport needs.
type OrderService interface {
	EvaluateOrder(ctx context.Context, payload *order.Payload) (*order.Decision, error)
	GetDecision(ctx context.Context, tenantID id.TenantID, orderID string) (*order.Decision, error)
}

// DedupeService is the slice of the dedupe service the transport needs.
type DedupeService interface {
	MatchCustomer(ctx context.Context, query dedupe.CustomerQuery) (*dedupe.Result, error)
	MatchAddress(ctx context.Context, query dedupe.AddressQuery) (*dedupe.Result, error)
	MergeRecords(ctx context.Context, tenantID id.TenantID, recordType id.RecordType, ids []string, canonicalID string) error
}

// ValidationService is the slice of the validation service the transport needs.
type ValidationService interface {
	Validate(ctx context.Context, payload *validation.Payload, opts validation.Options) (*validation.Bundle, error)
}

// EvaluateOrderRequest is the POST /v1/orders/evaluate body.
type EvaluateOrderRequest struct {
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

func (r *EvaluateOrderRequest) ToPayload() *order.Payload {
	return &order.Payload{
		TenantID:       r.TenantID,
		OrderID:        r.OrderID,
		IdempotencyKey: r.IdempotencyKey,
		Email:          r.Email,
		Phone:          r.Phone,
		Name:           r.Name,
		IP:             r.IP,
		UserAgent:      r.UserAgent,
		Address:        r.Address,
		PaymentMethod:  r.PaymentMethod,
		TotalAmount:    r.TotalAmount,
		Currency:       r.Currency,
		Metadata:       r.Metadata,
	}
}

// Validate defers to the pipeline payload schema so the transport and the
// service reject the same inputs.
func (r *EvaluateOrderRequest) Validate() error {
	return r.ToPayload().Validate()
}

// MatchCustomerRequest is the POST /v1/dedupe/customers/match body.
type MatchCustomerRequest struct {
	TenantID id.TenantID `json:"tenant_id"`
	Email    string      `json:"email,omitempty"`
	Phone    string      `json:"phone,omitempty"`
	Name     string      `json:"name,omitempty"`
}

func (r *MatchCustomerRequest) Validate() error {
	if r.TenantID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	if r.Email == "" && r.Phone == "" && r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one of email, phone, name is required")
	}
	return nil
}

func (r *MatchCustomerRequest) ToQuery() dedupe.CustomerQuery {
	return dedupe.CustomerQuery{
		TenantID: r.TenantID,
		Email:    r.Email,
		Phone:    r.Phone,
		Name:     r.Name,
	}
}

// MatchAddressRequest is the POST /v1/dedupe/addresses/match body.
type MatchAddressRequest struct {
	TenantID   id.TenantID `json:"tenant_id"`
	Line1      string      `json:"line1"`
	Line2      string      `json:"line2,omitempty"`
	City       string      `json:"city,omitempty"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postal_code,omitempty"`
	Country    string      `json:"country,omitempty"`
}

func (r *MatchAddressRequest) Validate() error {
	if r.TenantID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	if r.Line1 == "" && r.City == "" && r.PostalCode == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address requires line1, city, or postal_code")
	}
	return nil
}

func (r *MatchAddressRequest) ToQuery() dedupe.AddressQuery {
	return dedupe.AddressQuery{
		TenantID:   r.TenantID,
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}

// MergeRequest is the POST /v1/dedupe/merge body.
type MergeRequest struct {
	TenantID    id.TenantID `json:"tenant_id"`
	RecordType  string      `json:"record_type"`
	IDs         []string    `json:"ids"`
	CanonicalID string      `json:"canonical_id"`
}

func (r *MergeRequest) Validate() error {
	if r.TenantID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	if !r.ParsedRecordType().IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "record_type must be customer or address")
	}
	if len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeInvalidIDs, "ids are required")
	}
	if r.CanonicalID == "" {
		return dErrors.New(dErrors.CodeInvalidIDs, "canonical_id is required")
	}
	return nil
}

func (r *MergeRequest) ParsedRecordType() id.RecordType {
	return id.RecordType(r.RecordType)
}

// ValidateRequest is the POST /v1/validate body.
type ValidateRequest struct {
	TenantID    id.TenantID              `json:"tenant_id"`
	Email       string                   `json:"email,omitempty"`
	Phone       string                   `json:"phone,omitempty"`
	Name        string                   `json:"name,omitempty"`
	IP          string                   `json:"ip,omitempty"`
	UserAgent   string                   `json:"user_agent,omitempty"`
	Address     *validation.AddressInput `json:"address,omitempty"`
	FillMissing bool                     `json:"fill_missing,omitempty"`
	UseCache    *bool                    `json:"use_cache,omitempty"`
}

func (r *ValidateRequest) ToPayload() *validation.Payload {
	return &validation.Payload{
		TenantID:  r.TenantID,
		Email:     r.Email,
		Phone:     r.Phone,
		Name:      r.Name,
		IP:        r.IP,
		UserAgent: r.UserAgent,
		Address:   r.Address,
	}
}

// ToOptions maps the request flags; caching defaults on.
func (r *ValidateRequest) ToOptions() validation.Options {
	useCache := true
	if r.UseCache != nil {
		useCache = *r.UseCache
	}
	return validation.Options{
		FillMissing: r.FillMissing,
		UseCache:    useCache,
	}
}

func (r *ValidateRequest) Validate() error {
	return r.ToPayload().Validate()
}
