// Package risk turns a set of validation results into a single 0-100 score,
// a discrete level, and the list of factors that produced it. Pure and
// stateless: the same inputs always yield the same assessment.
package risk

import (
	"fmt"
	"sort"

	"riskgate/internal/validation"
	id "riskgate/pkg/domain"
)

// Assessment is the calculator output. Factors are human-readable and ordered
// by field, then by the order penalties were applied.
type Assessment struct {
	Score   int          `json:"score"`
	Level   id.RiskLevel `json:"level"`
	Factors []string     `json:"factors"`
}

// Calculate sums the penalty table over every present verdict and clamps to
// [0,100]. Placeholder results (provider "none") contribute nothing; absence
// of a field is scored by the order pipeline, not here.
func Calculate(results map[id.FieldType]*validation.FieldResult) Assessment {
	score := 0
	var factors []string
	add := func(points int, format string, args ...any) {
		score += points
		factors = append(factors, fmt.Sprintf(format+" (+%d)", append(args, points)...))
	}

	for _, field := range orderedFields(results) {
		r := results[field]
		if r == nil || r.Provider == "none" {
			continue
		}
		switch field {
		case id.FieldEmail:
			scoreEmail(r, add)
		case id.FieldPhone:
			scorePhone(r, add)
		case id.FieldAddress:
			scoreAddress(r, add)
		case id.FieldIP:
			scoreIP(r, add)
		case id.FieldDevice:
			scoreDevice(r, add)
		}
	}

	if score > 100 {
		score = 100
	}
	return Assessment{
		Score:   score,
		Level:   id.LevelForScore(score),
		Factors: factors,
	}
}

type addFunc func(points int, format string, args ...any)

func scoreEmail(r *validation.FieldResult, add addFunc) {
	if !r.Valid {
		add(30, "invalid email")
	}
	attrs := r.Email
	if attrs == nil {
		return
	}
	if attrs.Disposable {
		add(35, "disposable email domain")
	}
	if attrs.RoleAccount {
		add(15, "role account email")
	}
	if attrs.FreeDomain {
		add(10, "free email provider")
	}
	if !attrs.MXRecords {
		add(20, "email domain has no MX records")
	}
	if attrs.CatchAll {
		add(10, "catch-all email domain")
	}
}

func scorePhone(r *validation.FieldResult, add addFunc) {
	if !r.Valid {
		add(30, "invalid phone number")
	}
	attrs := r.Phone
	if attrs == nil {
		return
	}
	if attrs.Unreachable {
		add(25, "unreachable phone number")
	}
	if attrs.VOIP {
		add(15, "VOIP phone number")
	}
	if attrs.Ported {
		add(20, "recently ported phone number")
	}
}

func scoreAddress(r *validation.FieldResult, add addFunc) {
	attrs := r.Address
	mismatch := attrs != nil && !attrs.PostalCityMatch

	// A postal/city mismatch replaces the blanket invalid-address penalty.
	// Applying both would double-count one underlying problem and push an
	// otherwise-medium order into critical.
	switch {
	case mismatch:
		add(25, "postal code and city do not match")
	case !r.Valid:
		add(35, "invalid address")
	}
	if attrs == nil {
		return
	}
	if attrs.POBox {
		add(15, "PO box address")
	}
	if !attrs.Deliverable {
		add(30, "address not deliverable")
	}
}

func scoreIP(r *validation.FieldResult, add addFunc) {
	attrs := r.IP
	if attrs == nil {
		return
	}
	if attrs.VPN {
		add(20, "IP is a known VPN exit")
	}
	if attrs.Proxy {
		add(25, "IP is a known proxy")
	}
	if attrs.Tor {
		add(40, "IP is a Tor exit node")
	}
	if attrs.Datacenter {
		add(15, "IP belongs to a datacenter")
	}
}

func scoreDevice(r *validation.FieldResult, add addFunc) {
	if r.Device != nil && r.Device.Bot {
		add(50, "automated client user agent")
	}
}

// orderedFields yields present fields in canonical order so factor lists are
// deterministic regardless of map iteration.
func orderedFields(results map[id.FieldType]*validation.FieldResult) []id.FieldType {
	fields := make([]id.FieldType, 0, len(results))
	for f := range results {
		fields = append(fields, f)
	}
	rank := make(map[id.FieldType]int, len(id.AllFieldTypes))
	for i, f := range id.AllFieldTypes {
		rank[f] = i
	}
	sort.Slice(fields, func(i, j int) bool { return rank[fields[i]] < rank[fields[j]] })
	return fields
}
