package validation

// Enhancement is pure domain logic: given a raw provider verdict, derive the
// confidence score and the per-field risk contribution. Applied exactly once,
// before a result is cached, so cache hits are returned verbatim.

// TrustedProviders lists vendor-grade providers whose verdicts earn the
// trusted-provider confidence bonus. The offline heuristic providers are
// deliberately absent.
var TrustedProviders = map[string]bool{
	"kickbox":          true,
	"twilio":           true,
	"smarty":           true,
	"maxmind":          true,
	"useragent-device": true,
}

// Enhance fills Confidence and RiskScore in place and returns the result for
// chaining.
func Enhance(r *FieldResult) *FieldResult {
	r.Confidence = confidence(r)
	r.RiskScore = fieldRisk(r)
	return r
}

// confidence implements the fixed formula
// 50 + 30·valid − 20·disposable + 10·(no reason codes) + 10·(trusted provider),
// clamped to [0,100].
func confidence(r *FieldResult) int {
	c := 50
	if r.Valid {
		c += 30
	}
	if r.Email != nil && r.Email.Disposable {
		c -= 20
	}
	if len(r.ReasonCodes) == 0 {
		c += 10
	}
	if TrustedProviders[r.Provider] {
		c += 10
	}
	return clamp(c)
}

// fieldRisk applies the per-field additive penalty table. The postal/city
// mismatch penalty replaces the blanket invalid-address penalty; both never
// apply to one result (see internal/risk for the cross-field variant of the
// same rule).
func fieldRisk(r *FieldResult) int {
	score := 0
	switch {
	case r.Email != nil:
		if !r.Valid {
			score += 30
		}
		if r.Email.Disposable {
			score += 25
		}
		if r.Email.RoleAccount {
			score += 15
		}
		if r.Email.FreeDomain {
			score += 10
		}
		if !r.Email.MXRecords {
			score += 20
		}
		if r.Email.CatchAll {
			score += 10
		}
	case r.Phone != nil:
		if !r.Valid {
			score += 30
		}
		if r.Phone.Unreachable {
			score += 25
		}
		if r.Phone.VOIP {
			score += 15
		}
		if r.Phone.Ported {
			score += 20
		}
	case r.Address != nil:
		switch {
		case !r.Address.PostalCityMatch:
			score += 25
		case !r.Valid:
			score += 35
		}
		if r.Address.POBox {
			score += 15
		}
		if !r.Address.Deliverable {
			score += 30
		}
	case r.IP != nil:
		if r.IP.VPN {
			score += 20
		}
		if r.IP.Proxy {
			score += 25
		}
		if r.IP.Tor {
			score += 40
		}
		if r.IP.Datacenter {
			score += 15
		}
	case r.Device != nil:
		if r.Device.Bot {
			score += 50
		}
	default:
		// Name has no external signal; an implausible name is a token penalty.
		if !r.Valid {
			score += 10
		}
	}
	return clamp(score)
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
