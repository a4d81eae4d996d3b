package providers

import (
	"context"
	"regexp"
	"strings"

	"riskgate/internal/match"
	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// AddressValidator is the reference address verdict producer. The orchestrator
// passes the address serialized as "line1|line2|city|state|postal|country".
// Postal/city consistency and geocoding come from small static tables; a real
// deployment swaps in a geocoding vendor behind the same contract.
type AddressValidator struct{}

func NewAddressValidator() *AddressValidator { return &AddressValidator{} }

func (v *AddressValidator) Field() id.FieldType { return id.FieldAddress }
func (v *AddressValidator) Name() string        { return "heuristic-address" }

var poBoxPattern = regexp.MustCompile(`(?i)\bp\.?\s*o\.?\s*box\b`)

// postalIndex maps known postal codes to their city and coordinates.
// Unknown postal codes pass the city check (no evidence of mismatch) but
// produce no geocode.
var postalIndex = map[string]struct {
	city string
	lat  float64
	lng  float64
}{
	"94043":   {"mountain view", 37.4056, -122.0775},
	"94105":   {"san francisco", 37.7898, -122.3942},
	"62701":   {"springfield", 39.7990, -89.6440},
	"10001":   {"new york", 40.7506, -73.9971},
	"560001":  {"bangalore", 12.9762, 77.6033},
	"110001":  {"new delhi", 28.6304, 77.2177},
	"SW1A1AA": {"london", 51.5010, -0.1416},
}

// postalShapes validates the postal code format per country.
var postalShapes = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-?\d{4})?$`),
	"IN": regexp.MustCompile(`^\d{6}$`),
	"GB": regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`),
	"DE": regexp.MustCompile(`^\d{5}$`),
}

// FormatAddress serializes an address input for the validator contract, which
// is string-valued across all field kinds.
func FormatAddress(a match.Address) string {
	return strings.Join([]string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country}, "|")
}

func parseAddress(value string) match.Address {
	parts := strings.Split(value, "|")
	for len(parts) < 6 {
		parts = append(parts, "")
	}
	return match.NormalizeAddress(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5])
}

func (v *AddressValidator) Validate(_ context.Context, value string, _ validation.ProviderContext) (*validation.FieldResult, error) {
	addr := parseAddress(value)
	attrs := &validation.AddressAttrs{Country: addr.Country, PostalCityMatch: true}
	result := &validation.FieldResult{
		Field:    id.FieldAddress,
		Provider: v.Name(),
		Address:  attrs,
	}

	if addr.Line1 == "" || addr.City == "" || addr.Country == "" {
		result.AddReason(validation.ReasonAddressInvalid)
		return result, nil
	}
	if shape, ok := postalShapes[addr.Country]; ok && !shape.MatchString(addr.PostalCode) {
		result.AddReason(validation.ReasonAddressInvalid)
		return result, nil
	}

	result.Valid = true
	attrs.POBox = poBoxPattern.MatchString(addr.Line1) || poBoxPattern.MatchString(addr.Line2)

	if known, ok := postalIndex[addr.PostalCode]; ok {
		attrs.Geocode = &validation.Geocode{Lat: known.lat, Lng: known.lng}
		if known.city != addr.City {
			attrs.PostalCityMatch = false
			result.AddReason(validation.ReasonAddressPostalCityMismatch)
		}
	} else {
		result.AddReason(validation.ReasonAddressGeocodeMissing)
	}

	// PO boxes and geocode-less addresses are not considered deliverable by
	// the offline reference.
	attrs.Deliverable = !attrs.POBox && attrs.Geocode != nil
	if attrs.POBox {
		result.AddReason(validation.ReasonAddressPOBox)
	}
	if !attrs.Deliverable && !attrs.POBox {
		result.AddReason(validation.ReasonAddressNonDeliverable)
	}
	return result, nil
}
