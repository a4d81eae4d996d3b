package providers

import (
	"context"
	"strings"

	"riskgate/internal/match"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// PhoneValidator is the reference phone verdict producer: shape checks plus a
// dial-prefix country table. Carrier-level flags (voip, ported, unreachable)
// need a vendor lookup and stay false here.
type PhoneValidator struct{}

func NewPhoneValidator() *PhoneValidator { return &PhoneValidator{} }

func (v *PhoneValidator) Field() id.FieldType { return id.FieldPhone }
func (v *PhoneValidator) Name() string        { return "heuristic-phone" }

// Longest-prefix-wins dial code table for the markets we ship in.
var dialPrefixes = []struct {
	prefix  string
	country string
}{
	{"+1", "US"},
	{"+44", "GB"},
	{"+49", "DE"},
	{"+61", "AU"},
	{"+81", "JP"},
	{"+91", "IN"},
}

func (v *PhoneValidator) Validate(_ context.Context, value string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	phone := match.NormalizePhone(value)
	result := &validation.FieldResult{
		Field:    id.FieldPhone,
		Provider: v.Name(),
		Phone:    &validation.PhoneAttrs{},
	}

	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 8 || len(digits) > 15 {
		result.AddReason(validation.ReasonPhoneInvalidFormat)
		return result, nil
	}

	result.Valid = true
	best := ""
	for _, p := range dialPrefixes {
		if strings.HasPrefix(phone, p.prefix) && len(p.prefix) > len(best) {
			best = p.prefix
			result.Phone.Country = p.country
		}
	}
	return result, nil
}
