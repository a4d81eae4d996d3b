package validation

import (
	"strings"

	"riskgate/internal/match"
	id "riskgate/pkg/domain"
	dErrors "riskgate/pkg/domain-errors"
)

// Payload is the immutable validation input. All fields are optional; absent
// fields are either skipped or filled with placeholder results depending on
// Options.FillMissing. Never mutated after creation.
type Payload struct {
	TenantID  id.TenantID       `json:"tenant_id"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Name      string            `json:"name,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Address   *AddressInput     `json:"address,omitempty"`
	Amount    float64           `json:"amount,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AddressInput is the raw address as submitted; normalization happens inside
// the matcher and the address validator.
type AddressInput struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Normalized returns the canonical form used for cache keys and dedupe hashing.
func (a *AddressInput) Normalized() match.Address {
	if a == nil {
		return match.Address{}
	}
	return match.NormalizeAddress(a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country)
}

// Validate enforces the payload schema. This is the only hard caller-visible
// error in the validation path; provider failures degrade per-field instead.
func (p *Payload) Validate() error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "payload is required")
	}
	if p.TenantID.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is required")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "email is not addressable")
	}
	if p.Address != nil && p.Address.Line1 == "" && p.Address.City == "" && p.Address.PostalCode == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address requires line1, city, or postal_code")
	}
	return nil
}

// FieldResult is produced exactly once per validation call and never mutated.
// Kind-specific attributes live in the optional typed sub-structs so the risk
// calculator can stay exhaustive without map lookups.
type FieldResult struct {
	Field            id.FieldType      `json:"field"`
	Valid            bool              `json:"valid"`
	Confidence       int               `json:"confidence"` // 0-100, set by Enhance
	ReasonCodes      []string          `json:"reason_codes"`
	RiskScore        int               `json:"risk_score"`
	ProcessingTimeMS int64             `json:"processing_time_ms"`
	Provider         string            `json:"provider"`
	Metadata         map[string]string `json:"metadata,omitempty"`

	Email   *EmailAttrs   `json:"email,omitempty"`
	Phone   *PhoneAttrs   `json:"phone,omitempty"`
	Address *AddressAttrs `json:"address,omitempty"`
	IP      *IPAttrs      `json:"ip,omitempty"`
	Device  *DeviceAttrs  `json:"device,omitempty"`
}

// EmailAttrs carries email-specific verdict details.
type EmailAttrs struct {
	Disposable  bool   `json:"disposable"`
	FreeDomain  bool   `json:"free_domain"`
	RoleAccount bool   `json:"role_account"`
	MXRecords   bool   `json:"mx_records"`
	CatchAll    bool   `json:"catch_all"`
	Domain      string `json:"domain,omitempty"`
}

// PhoneAttrs carries phone-specific verdict details.
type PhoneAttrs struct {
	Unreachable bool   `json:"unreachable"`
	VOIP        bool   `json:"voip"`
	Ported      bool   `json:"ported"`
	Country     string `json:"country,omitempty"`
}

// AddressAttrs carries address-specific verdict details.
type AddressAttrs struct {
	POBox           bool     `json:"po_box"`
	Deliverable     bool     `json:"deliverable"`
	PostalCityMatch bool     `json:"postal_city_match"`
	Country         string   `json:"country,omitempty"`
	Geocode         *Geocode `json:"geocode,omitempty"`
}

// Geocode is a resolved coordinate for the validated address.
type Geocode struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IPAttrs carries ip-specific verdict details.
type IPAttrs struct {
	VPN        bool `json:"vpn"`
	Proxy      bool `json:"proxy"`
	Tor        bool `json:"tor"`
	Datacenter bool `json:"datacenter"`
}

// DeviceAttrs carries device/user-agent verdict details.
type DeviceAttrs struct {
	Bot     bool   `json:"bot"`
	Browser string `json:"browser,omitempty"`
	OS      string `json:"os,omitempty"`
}

// HasReason reports whether a reason code was recorded. Reason codes are
// order-preserving and unique within one field result.
func (r *FieldResult) HasReason(code string) bool {
	for _, c := range r.ReasonCodes {
		if c == code {
			return true
		}
	}
	return false
}

// AddReason appends a reason code, keeping within-field uniqueness.
func (r *FieldResult) AddReason(code string) {
	if !r.HasReason(code) {
		r.ReasonCodes = append(r.ReasonCodes, code)
	}
}

// Bundle is the orchestrator output: one enhanced result per field plus
// per-call cache metrics.
type Bundle struct {
	Results   map[id.FieldType]*FieldResult `json:"results"`
	Metrics   Metrics                       `json:"metrics"`
	RequestID string                        `json:"request_id"`
}

// Metrics summarizes orchestration behavior for one call.
type Metrics struct {
	CacheHits           int  `json:"cache_hits"`
	CacheMisses         int  `json:"cache_misses"`
	ParallelValidations bool `json:"parallel_validations"`
}

// Options controls orchestration behavior per call.
type Options struct {
	FillMissing bool
	UseCache    bool
}
