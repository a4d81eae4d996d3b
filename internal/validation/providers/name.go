package providers

import (
	"context"

	"riskgate/internal/match"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// NameValidator checks names synchronously; it never touches the network, so
// the orchestrator runs it inline rather than as a concurrent task.
type NameValidator struct{}

func NewNameValidator() *NameValidator { return &NameValidator{} }

func (v *NameValidator) Field() id.FieldType { return id.FieldName }
func (v *NameValidator) Name() string        { return "heuristic-name" }

func (v *NameValidator) Validate(_ context.Context, value string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	name := match.NormalizeName(value)
	result := &validation.FieldResult{
		Field:    id.FieldName,
		Provider: v.Name(),
	}
	if len(name) < 2 {
		result.AddReason(validation.ReasonNameTooShort)
		return result, nil
	}
	result.Valid = true
	return result, nil
}
