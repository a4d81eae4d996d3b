package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

func testContext() *Context {
	results := map[id.FieldType]*validation.FieldResult{
		id.FieldEmail: {
			Field:       id.FieldEmail,
			Valid:       true,
			Confidence:  90,
			RiskScore:   25,
			Provider:    "heuristic-email",
			ReasonCodes: []string{validation.ReasonEmailDisposableDomain},
			Email:       &validation.EmailAttrs{Disposable: true, MXRecords: true, Domain: "tempmail.io"},
		},
		id.FieldPhone: {
			Field:      id.FieldPhone,
			Valid:      true,
			Confidence: 90,
			RiskScore:  0,
			Provider:   "heuristic-phone",
			Phone:      &validation.PhoneAttrs{Country: "IN"},
		},
		id.FieldAddress: {
			Field:     id.FieldAddress,
			Valid:     false,
			RiskScore: 35,
			Provider:  "heuristic-address",
			Address:   &validation.AddressAttrs{Country: "US", PostalCityMatch: true},
		},
	}
	order := map[string]any{
		"payment_method": "cod",
		"total_amount":   1500.0,
		"currency":       "INR",
		"order_date":     "2026-08-01",
	}
	return NewContext(results, order)
}

func TestEvaluateConditions(t *testing.T) {
	engine := NewEngine()
	ec := testContext()

	tests := []struct {
		name      string
		condition string
		triggered bool
	}{
		{"simple comparison", "total_amount > 1000", true},
		{"comparison false", "total_amount > 2000", false},
		{"keyword conjunction", "email.disposable == true AND payment_method == 'cod'", true},
		{"disjunction short circuits", "payment_method == 'cod' OR would_fault > 5", true},
		{"explicit boolean identifier", "email.disposable", true},
		{"negation", "NOT phone.voip", true},
		{"flattened metadata path", "email.domain == 'tempmail.io'", true},
		{"in list", "payment_method IN ['cod', 'upi']", true},
		{"not in list", "currency IN ['USD', 'EUR']", false},
		{"is null on missing path", "device.bot IS NULL", true},
		{"is not null on present path", "phone.country IS NOT NULL", true},
		{"contains", "email.domain CONTAINS 'tempmail'", true},
		{"starts with", "email.domain STARTS_WITH 'temp'", true},
		{"ends with", "email.domain ENDS_WITH '.io'", true},
		{"matches regex", "email.domain MATCHES '^temp.*'", true},
		{"sql inequality", "payment_method <> 'card'", true},
		{"parentheses", "(total_amount > 2000 OR payment_method == 'cod') AND email.disposable", true},
		{"numeric context values", "email.risk_score >= 25 AND address.risk_score == 35", true},
		{"between helper", "between(total_amount, 1000, 2000)", true},
		{"exists helper", "exists(email) AND NOT exists(nonsense.path)", true},
		{"isEmpty helper", "isEmpty(device)", true},
		{"riskLevel helper", "riskLevel(address.risk_score) == 'medium'", true},
		{"addressHasIssue helper", "addressHasIssue(address)", true},
		{"inList helper", "inList(currency, 'INR', 'USD')", true},
		{"daysSince helper", "daysSince(order_date) >= 0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Evaluate(context.Background(), Rule{ID: "r1", Name: tt.name, Condition: tt.condition}, ec)
			if tt.triggered {
				assert.True(t, result.Triggered, "error: %s", result.Error)
				assert.Empty(t, result.Error)
			} else {
				assert.False(t, result.Triggered)
			}
		})
	}
}

func TestEvaluateFaults(t *testing.T) {
	engine := NewEngine()
	ec := testContext()

	tests := []struct {
		name      string
		condition string
	}{
		{"unknown function", "launchMissiles(1)"},
		{"syntax error", "total_amount >"},
		{"type mismatch", "payment_method > 100"},
		{"non boolean result", "total_amount"},
		{"unterminated string", "payment_method == 'cod"},
		{"bad regex", "email.domain MATCHES '['"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Evaluate(context.Background(), Rule{ID: "r1", Condition: tt.condition}, ec)
			assert.False(t, result.Triggered)
			assert.NotEmpty(t, result.Error)
			assert.Zero(t, result.Confidence)
		})
	}
}

func TestEvaluateTimeout(t *testing.T) {
	engine := NewEngine(WithTimeout(5 * time.Millisecond))
	engine.evalStarted = func() { time.Sleep(50 * time.Millisecond) }

	result := engine.Evaluate(context.Background(), Rule{ID: "slow", Condition: "true"}, testContext())
	assert.False(t, result.Triggered)
	assert.Equal(t, "Rule evaluation timeout", result.Error)
	assert.Zero(t, result.Confidence)
}

func TestEvaluateCannotMutateContext(t *testing.T) {
	engine := NewEngine()
	results := map[id.FieldType]*validation.FieldResult{
		id.FieldEmail: {Field: id.FieldEmail, Valid: true, Provider: "heuristic-email", Email: &validation.EmailAttrs{}},
	}
	order := map[string]any{"total_amount": 100.0}
	ec := NewContext(results, order)

	_ = engine.Evaluate(context.Background(), Rule{ID: "r1", Condition: "total_amount > 50"}, ec)
	assert.Equal(t, 100.0, order["total_amount"])
}

func TestConfidenceHeuristic(t *testing.T) {
	t.Run("clean validations push confidence to the cap", func(t *testing.T) {
		results := map[id.FieldType]*validation.FieldResult{
			id.FieldEmail: {Field: id.FieldEmail, Valid: true, RiskScore: 0, Provider: "heuristic-email"},
			id.FieldPhone: {Field: id.FieldPhone, Valid: true, RiskScore: 0, Provider: "heuristic-phone"},
		}
		ec := NewContext(results, nil)
		// 0.7 + 0.1 + 0.1, then +0.20 for mean risk below 10, clamped to 1.
		assert.InDelta(t, 1.0, confidence(true, ec), 1e-9)
	})

	t.Run("risky validations drag confidence down", func(t *testing.T) {
		results := map[id.FieldType]*validation.FieldResult{
			id.FieldEmail: {Field: id.FieldEmail, Valid: true, RiskScore: 60, Provider: "heuristic-email"},
			id.FieldPhone: {Field: id.FieldPhone, Valid: false, RiskScore: 60, Provider: "heuristic-phone"},
		}
		ec := NewContext(results, nil)
		// 0.7 + 0.1 for the valid email, then -0.10 for mean risk above 50.
		assert.InDelta(t, 0.7, confidence(true, ec), 1e-9)
	})

	t.Run("not triggered starts from the low base", func(t *testing.T) {
		ec := NewContext(nil, nil)
		assert.InDelta(t, 0.3, confidence(false, ec), 1e-9)
	})

	t.Run("placeholders do not count as present fields", func(t *testing.T) {
		results := map[id.FieldType]*validation.FieldResult{
			id.FieldEmail: {Field: id.FieldEmail, Valid: false, RiskScore: 0, Provider: "none"},
		}
		ec := NewContext(results, nil)
		assert.InDelta(t, 0.3, confidence(false, ec), 1e-9)
	})
}

func TestEvaluateAll(t *testing.T) {
	engine := NewEngine()
	ec := testContext()

	ruleset := []Rule{
		{ID: "low", Name: "low priority", Condition: "true", Priority: 1, Enabled: true},
		{ID: "off", Name: "disabled", Condition: "true", Priority: 99, Enabled: false},
		{ID: "high", Name: "high priority", Condition: "payment_method == 'cod'", Priority: 10, Enabled: true},
	}
	results := engine.EvaluateAll(context.Background(), ruleset, ec)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].RuleID)
	assert.Equal(t, "low", results[1].RuleID)
	assert.True(t, results[0].Triggered)
}
