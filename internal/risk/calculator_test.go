package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

func result(field id.FieldType, valid bool) *validation.FieldResult {
	return &validation.FieldResult{Field: field, Valid: valid, Provider: "test"}
}

func TestCalculate(t *testing.T) {
	t.Run("empty input scores zero and low", func(t *testing.T) {
		a := Calculate(nil)
		assert.Equal(t, 0, a.Score)
		assert.Equal(t, id.RiskLevelLow, a.Level)
		assert.Empty(t, a.Factors)
	})

	t.Run("clean results score zero", func(t *testing.T) {
		email := result(id.FieldEmail, true)
		email.Email = &validation.EmailAttrs{MXRecords: true}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldEmail: email})
		assert.Equal(t, 0, a.Score)
		assert.Empty(t, a.Factors)
	})

	t.Run("disposable email weighs thirty five here", func(t *testing.T) {
		email := result(id.FieldEmail, true)
		email.Email = &validation.EmailAttrs{Disposable: true, MXRecords: true}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldEmail: email})
		assert.Equal(t, 35, a.Score)
		assert.Equal(t, id.RiskLevelMedium, a.Level)
		assert.Equal(t, []string{"disposable email domain (+35)"}, a.Factors)
	})

	t.Run("postal city mismatch replaces the invalid address penalty", func(t *testing.T) {
		addr := result(id.FieldAddress, false)
		addr.Address = &validation.AddressAttrs{PostalCityMatch: false, Deliverable: true}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldAddress: addr})
		assert.Equal(t, 25, a.Score)
		assert.Equal(t, []string{"postal code and city do not match (+25)"}, a.Factors)
	})

	t.Run("invalid address without mismatch takes the blanket penalty", func(t *testing.T) {
		addr := result(id.FieldAddress, false)
		addr.Address = &validation.AddressAttrs{PostalCityMatch: true, Deliverable: true}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldAddress: addr})
		assert.Equal(t, 35, a.Score)
	})

	t.Run("invalid email with no mx records stacks both penalties", func(t *testing.T) {
		email := result(id.FieldEmail, false)
		email.Email = &validation.EmailAttrs{}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldEmail: email})
		assert.Equal(t, 50, a.Score)
		assert.Equal(t, id.RiskLevelHigh, a.Level)
		assert.Equal(t, []string{"invalid email (+30)", "email domain has no MX records (+20)"}, a.Factors)
	})

	t.Run("invalid non-deliverable address stacks both penalties", func(t *testing.T) {
		addr := result(id.FieldAddress, false)
		addr.Address = &validation.AddressAttrs{PostalCityMatch: true}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldAddress: addr})
		assert.Equal(t, 65, a.Score)
		assert.Equal(t, []string{"invalid address (+35)", "address not deliverable (+30)"}, a.Factors)
	})

	t.Run("penalties stack across fields", func(t *testing.T) {
		email := result(id.FieldEmail, false)
		email.Email = &validation.EmailAttrs{Disposable: true}
		phone := result(id.FieldPhone, true)
		phone.Phone = &validation.PhoneAttrs{VOIP: true}
		ip := result(id.FieldIP, true)
		ip.IP = &validation.IPAttrs{Tor: true}

		a := Calculate(map[id.FieldType]*validation.FieldResult{
			id.FieldEmail: email,
			id.FieldPhone: phone,
			id.FieldIP:    ip,
		})
		// 30 + 35 + 20 + 15 + 40, clamped
		assert.Equal(t, 100, a.Score)
		assert.Equal(t, id.RiskLevelCritical, a.Level)
	})

	t.Run("sum clamps at one hundred", func(t *testing.T) {
		email := result(id.FieldEmail, false)
		email.Email = &validation.EmailAttrs{Disposable: true, RoleAccount: true, FreeDomain: true, CatchAll: true}
		device := result(id.FieldDevice, true)
		device.Device = &validation.DeviceAttrs{Bot: true}

		a := Calculate(map[id.FieldType]*validation.FieldResult{
			id.FieldEmail:  email,
			id.FieldDevice: device,
		})
		assert.Equal(t, 100, a.Score)
	})

	t.Run("placeholder results are skipped", func(t *testing.T) {
		placeholder := &validation.FieldResult{Field: id.FieldEmail, Valid: false, Provider: "none"}
		a := Calculate(map[id.FieldType]*validation.FieldResult{id.FieldEmail: placeholder})
		assert.Equal(t, 0, a.Score)
		assert.Empty(t, a.Factors)
	})

	t.Run("factor order is deterministic by field", func(t *testing.T) {
		email := result(id.FieldEmail, false)
		device := result(id.FieldDevice, true)
		device.Device = &validation.DeviceAttrs{Bot: true}
		input := map[id.FieldType]*validation.FieldResult{
			id.FieldDevice: device,
			id.FieldEmail:  email,
		}

		a := Calculate(input)
		assert.Equal(t, []string{"invalid email (+30)", "automated client user agent (+50)"}, a.Factors)
	})

	t.Run("level thresholds", func(t *testing.T) {
		assert.Equal(t, id.RiskLevelLow, id.LevelForScore(24))
		assert.Equal(t, id.RiskLevelMedium, id.LevelForScore(25))
		assert.Equal(t, id.RiskLevelHigh, id.LevelForScore(50))
		assert.Equal(t, id.RiskLevelCritical, id.LevelForScore(75))
	})
}
