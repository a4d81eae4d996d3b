package validation

import (
	"context"
	"fmt"

	id "riskgate/pkg/domain"
)

// ProviderContext carries the request-scoped hints a validator may use.
// Validators must treat it as read-only.
type ProviderContext struct {
	TenantID id.TenantID
	Country  string            // expected country, when known (e.g. from the address)
	Metadata map[string]string // free-form payload metadata
}

// Validator produces a verdict for one field kind. Implementations may fail;
// the orchestrator recovers failures into degraded results, so a returned
// error never aborts sibling validations.
type Validator interface {
	// Field returns the kind of value this validator checks.
	Field() id.FieldType

	// Name identifies the provider in results and metrics.
	Name() string

	// Validate performs the check. The returned result must be freshly
	// allocated per call; results are cached and must never be mutated after.
	Validate(ctx context.Context, value string, pctx ProviderContext) (*FieldResult, error)
}

// Registry maintains one validator per field kind.
type Registry struct {
	validators map[id.FieldType]Validator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[id.FieldType]Validator)}
}

// Register adds a validator; a second registration for the same field is a
// wiring bug and is rejected.
func (r *Registry) Register(v Validator) error {
	field := v.Field()
	if _, exists := r.validators[field]; exists {
		return fmt.Errorf("validator for %s already registered", field)
	}
	r.validators[field] = v
	return nil
}

// Get retrieves the validator for a field kind.
func (r *Registry) Get(field id.FieldType) (Validator, bool) {
	v, ok := r.validators[field]
	return v, ok
}
