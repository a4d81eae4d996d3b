package providers

import (
	"context"
	"net/netip"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// IPValidator classifies source addresses against small static range tables.
// A production deployment replaces the tables with a threat-intel feed behind
// the same contract.
type IPValidator struct {
	datacenter []netip.Prefix
	tor        []netip.Prefix
	vpn        []netip.Prefix
}

func NewIPValidator() *IPValidator {
	mustPrefixes := func(cidrs ...string) []netip.Prefix {
		out := make([]netip.Prefix, 0, len(cidrs))
		for _, c := range cidrs {
			out = append(out, netip.MustParsePrefix(c))
		}
		return out
	}
	return &IPValidator{
		// Representative cloud ranges; the full feed is vendor-supplied.
		datacenter: mustPrefixes("3.0.0.0/9", "13.52.0.0/14", "34.64.0.0/10", "52.0.0.0/10"),
		tor:        mustPrefixes("185.220.100.0/22", "199.87.154.0/24"),
		vpn:        mustPrefixes("146.70.0.0/16", "37.120.128.0/17"),
	}
}

func (v *IPValidator) Field() id.FieldType { return id.FieldIP }
func (v *IPValidator) Name() string        { return "heuristic-ip" }

func (v *IPValidator) Validate(_ context.Context, value string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	result := &validation.FieldResult{
		Field:    id.FieldIP,
		Provider: v.Name(),
		IP:       &validation.IPAttrs{},
	}

	addr, err := netip.ParseAddr(value)
	if err != nil {
		result.AddReason(validation.ReasonIPInvalid)
		return result, nil
	}

	result.Valid = true
	attrs := result.IP
	attrs.Datacenter = matchesAny(addr, v.datacenter)
	attrs.Tor = matchesAny(addr, v.tor)
	attrs.VPN = matchesAny(addr, v.vpn)

	if attrs.Datacenter {
		result.AddReason(validation.ReasonIPDatacenter)
	}
	if attrs.Tor {
		result.AddReason(validation.ReasonIPTor)
	}
	if attrs.VPN {
		result.AddReason(validation.ReasonIPVPN)
	}
	return result, nil
}

func matchesAny(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
