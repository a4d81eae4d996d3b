package providers

import (
	"context"
	"regexp"
	"strings"

	"riskgate/internal/match"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// EmailValidator is the reference email verdict producer. It is table-driven
// and offline: real deployments replace it with a vendor-backed validator
// implementing the same contract.
type EmailValidator struct{}

func NewEmailValidator() *EmailValidator { return &EmailValidator{} }

func (v *EmailValidator) Field() id.FieldType { return id.FieldEmail }
func (v *EmailValidator) Name() string        { return "heuristic-email" }

var emailSyntax = regexp.MustCompile(`^[a-z0-9][a-z0-9._%+\-]*@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Domains that hand out throwaway inboxes.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.dev":      true,
	"throwaway.email":   true,
	"yopmail.com":       true,
	"trashmail.com":     true,
}

var freeDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"aol.com":        true,
	"rediffmail.com": true,
}

var roleAccounts = map[string]bool{
	"admin":      true,
	"info":       true,
	"support":    true,
	"sales":      true,
	"billing":    true,
	"noreply":    true,
	"no-reply":   true,
	"postmaster": true,
}

// Domains known to accept any recipient.
var catchAllDomains = map[string]bool{
	"yopmail.com": true,
}

func (v *EmailValidator) Validate(_ context.Context, value string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	email := match.NormalizeEmail(value)
	result := &validation.FieldResult{
		Field:    id.FieldEmail,
		Provider: v.Name(),
		Email:    &validation.EmailAttrs{},
	}

	if !emailSyntax.MatchString(email) {
		result.AddReason(validation.ReasonEmailInvalidFormat)
		return result, nil
	}

	local, domain, _ := strings.Cut(email, "@")
	attrs := result.Email
	attrs.Domain = domain
	attrs.Disposable = disposableDomains[domain]
	attrs.FreeDomain = freeDomains[domain]
	attrs.RoleAccount = roleAccounts[local]
	attrs.CatchAll = catchAllDomains[domain]
	// The offline reference assumes MX exists unless the domain is a known
	// throwaway; vendor-backed validators do a live lookup here.
	attrs.MXRecords = !attrs.Disposable

	result.Valid = true
	if attrs.Disposable {
		result.AddReason(validation.ReasonEmailDisposableDomain)
	}
	if attrs.FreeDomain {
		result.AddReason(validation.ReasonEmailFreeProvider)
	}
	if attrs.RoleAccount {
		result.AddReason(validation.ReasonEmailRoleAccount)
	}
	if !attrs.MXRecords {
		result.AddReason(validation.ReasonEmailNoMXRecords)
	}
	if attrs.CatchAll {
		result.AddReason(validation.ReasonEmailCatchAll)
	}
	return result, nil
}
