package rules

import (
	"strings"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// Context is the data a condition can see: one map per validated field plus
// order-level fields, all JSON-shaped. The raw results ride along for the
// confidence heuristic; conditions never see them.
type Context struct {
	bindings map[string]any
	results  map[id.FieldType]*validation.FieldResult
}

// NewContext builds the evaluation context from validation results and
// order-level fields. Field metadata is hoisted one level, so conditions
// write email.domain rather than email.metadata.domain.
func NewContext(results map[id.FieldType]*validation.FieldResult, order map[string]any) *Context {
	bindings := make(map[string]any, len(results)+len(order))
	for field, result := range results {
		bindings[field.String()] = fieldBinding(result)
	}
	for k, v := range order {
		bindings[k] = v
	}
	return &Context{bindings: bindings, results: results}
}

// Bindings exposes the flattened map, for tests and logging.
func (c *Context) Bindings() map[string]any { return c.bindings }

func fieldBinding(r *validation.FieldResult) map[string]any {
	if r == nil {
		return nil
	}
	m := map[string]any{
		"valid":      r.Valid,
		"confidence": float64(r.Confidence),
		"risk_score": float64(r.RiskScore),
		"provider":   r.Provider,
	}
	codes := make([]any, len(r.ReasonCodes))
	for i, c := range r.ReasonCodes {
		codes[i] = c
	}
	m["reason_codes"] = codes

	switch {
	case r.Email != nil:
		m["disposable"] = r.Email.Disposable
		m["free_domain"] = r.Email.FreeDomain
		m["role_account"] = r.Email.RoleAccount
		m["mx_records"] = r.Email.MXRecords
		m["catch_all"] = r.Email.CatchAll
		if r.Email.Domain != "" {
			m["domain"] = r.Email.Domain
		}
	case r.Phone != nil:
		m["unreachable"] = r.Phone.Unreachable
		m["voip"] = r.Phone.VOIP
		m["ported"] = r.Phone.Ported
		if r.Phone.Country != "" {
			m["country"] = r.Phone.Country
		}
	case r.Address != nil:
		m["po_box"] = r.Address.POBox
		m["deliverable"] = r.Address.Deliverable
		m["postal_city_match"] = r.Address.PostalCityMatch
		if r.Address.Country != "" {
			m["country"] = r.Address.Country
		}
		if g := r.Address.Geocode; g != nil {
			m["geocode"] = map[string]any{"lat": g.Lat, "lng": g.Lng}
		}
	case r.IP != nil:
		m["vpn"] = r.IP.VPN
		m["proxy"] = r.IP.Proxy
		m["tor"] = r.IP.Tor
		m["datacenter"] = r.IP.Datacenter
	case r.Device != nil:
		m["bot"] = r.Device.Bot
		m["browser"] = r.Device.Browser
		m["os"] = r.Device.OS
	}

	// Hoist provider metadata; explicit keys above win on collision.
	for k, v := range r.Metadata {
		key := strings.TrimPrefix(k, "metadata.")
		if _, taken := m[key]; !taken {
			m[key] = v
		}
	}
	return m
}

// present reports whether a field carries a real verdict, as opposed to a
// synthesized missing-field placeholder.
func present(r *validation.FieldResult) bool {
	return r != nil && r.Provider != "none"
}
