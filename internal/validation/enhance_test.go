package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "riskgate/pkg/domain"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		result *FieldResult
		want   int
	}{
		{
			name:   "valid clean result from trusted provider",
			result: &FieldResult{Field: id.FieldEmail, Valid: true, Provider: "kickbox", Email: &EmailAttrs{MXRecords: true}},
			want:   100, // 50 + 30 + 10 no-reasons + 10 trusted
		},
		{
			name:   "valid clean result from heuristic provider",
			result: &FieldResult{Field: id.FieldEmail, Valid: true, Provider: "heuristic-email", Email: &EmailAttrs{MXRecords: true}},
			want:   90,
		},
		{
			name: "disposable email loses twenty",
			result: &FieldResult{
				Field: id.FieldEmail, Valid: true, Provider: "heuristic-email",
				Email:       &EmailAttrs{Disposable: true},
				ReasonCodes: []string{ReasonEmailDisposableDomain},
			},
			want: 60, // 50 + 30 - 20
		},
		{
			name:   "invalid with reasons bottoms out at base",
			result: &FieldResult{Field: id.FieldPhone, Provider: "heuristic-phone", ReasonCodes: []string{ReasonPhoneInvalidFormat}},
			want:   50,
		},
		{
			name:   "invalid without reasons keeps no-reason bonus",
			result: &FieldResult{Field: id.FieldName, Provider: "heuristic-name"},
			want:   60,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confidence(tt.result))
		})
	}
}

func TestFieldRisk(t *testing.T) {
	tests := []struct {
		name   string
		result *FieldResult
		want   int
	}{
		{
			name:   "clean valid email carries no risk",
			result: &FieldResult{Field: id.FieldEmail, Valid: true, Email: &EmailAttrs{MXRecords: true}},
			want:   0,
		},
		{
			name:   "invalid disposable email stacks penalties",
			result: &FieldResult{Field: id.FieldEmail, Email: &EmailAttrs{Disposable: true}},
			want:   75, // invalid 30 + disposable 25 + no MX 20
		},
		{
			name:   "invalid email without mx records",
			result: &FieldResult{Field: id.FieldEmail, Email: &EmailAttrs{}},
			want:   50, // invalid 30 + no MX 20
		},
		{
			name:   "valid email without mx records",
			result: &FieldResult{Field: id.FieldEmail, Valid: true, Email: &EmailAttrs{}},
			want:   20,
		},
		{
			name:   "free role account",
			result: &FieldResult{Field: id.FieldEmail, Valid: true, Email: &EmailAttrs{MXRecords: true, FreeDomain: true, RoleAccount: true}},
			want:   25,
		},
		{
			name:   "voip ported phone",
			result: &FieldResult{Field: id.FieldPhone, Valid: true, Phone: &PhoneAttrs{VOIP: true, Ported: true}},
			want:   35,
		},
		{
			name:   "postal city mismatch replaces invalid address penalty",
			result: &FieldResult{Field: id.FieldAddress, Valid: false, Address: &AddressAttrs{PostalCityMatch: false, Deliverable: true}},
			want:   25,
		},
		{
			name:   "invalid address with postal city match",
			result: &FieldResult{Field: id.FieldAddress, Valid: false, Address: &AddressAttrs{PostalCityMatch: true, Deliverable: true}},
			want:   35,
		},
		{
			name:   "invalid non-deliverable address stacks both",
			result: &FieldResult{Field: id.FieldAddress, Valid: false, Address: &AddressAttrs{PostalCityMatch: true}},
			want:   65, // invalid 35 + non-deliverable 30
		},
		{
			name:   "valid po box address is not deliverable",
			result: &FieldResult{Field: id.FieldAddress, Valid: true, Address: &AddressAttrs{PostalCityMatch: true, POBox: true}},
			want:   45, // po box 15 + non-deliverable 30
		},
		{
			name:   "tor exit through datacenter",
			result: &FieldResult{Field: id.FieldIP, Valid: true, IP: &IPAttrs{Tor: true, Datacenter: true}},
			want:   55,
		},
		{
			name:   "bot device",
			result: &FieldResult{Field: id.FieldDevice, Valid: true, Device: &DeviceAttrs{Bot: true}},
			want:   50,
		},
		{
			name:   "implausible name",
			result: &FieldResult{Field: id.FieldName, Valid: false},
			want:   10,
		},
		{
			name: "stacked penalties clamp at one hundred",
			result: &FieldResult{Field: id.FieldEmail, Valid: false, Email: &EmailAttrs{
				Disposable: true, RoleAccount: true, FreeDomain: true, CatchAll: true,
			}},
			want: 100, // 30+25+15+10+20+10, clamped
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldRisk(tt.result))
		})
	}
}

func TestEnhanceSetsBothScores(t *testing.T) {
	r := &FieldResult{
		Field:       id.FieldEmail,
		Valid:       true,
		Provider:    "heuristic-email",
		Email:       &EmailAttrs{Disposable: true, MXRecords: true},
		ReasonCodes: []string{ReasonEmailDisposableDomain},
	}
	out := Enhance(r)
	assert.Same(t, r, out)
	assert.Equal(t, 60, out.Confidence)
	assert.Equal(t, 25, out.RiskScore)
}
