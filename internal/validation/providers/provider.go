// Package providers holds the reference field-validator implementations so the
// service runs without external data vendors wired in. Each implements
// validation.Validator; vendor-backed providers drop in behind the same
// contract.
package providers

import (
	"riskgate/internal/validation"
)

// Defaults builds a registry with every reference validator registered.
func Defaults() *validation.Registry {
	r := validation.NewRegistry()
	for _, v := range []validation.Validator{
		NewEmailValidator(),
		NewPhoneValidator(),
		NewAddressValidator(),
		NewNameValidator(),
		NewIPValidator(),
		NewDeviceValidator(),
	} {
		// Defaults registers each field exactly once, so this cannot fail.
		_ = r.Register(v)
	}
	return r
}
