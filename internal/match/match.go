// Package match provides the pure normalization and similarity primitives shared
// by the dedupe matcher and the order pipeline. No I/O, fully deterministic.
package match

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FuzzyThreshold is the similarity floor for a fuzzy candidate. Fixed by
// product policy; not tenant-configurable.
const FuzzyThreshold = 0.85

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything except digits and a leading +.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	b.Grow(len(phone))
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName lowercases, trims, and collapses internal whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Similarity computes trigram similarity between two strings in [0,1].
// Symmetric, and Similarity(x, x) == 1 for non-empty x. Inputs are normalized
// with NormalizeName first so callers can pass raw values.
func Similarity(a, b string) float64 {
	a, b = NormalizeName(a), NormalizeName(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

// IsExact reports equality after the given normalization.
func IsExact(a, b string, normalize func(string) string) bool {
	na, nb := normalize(a), normalize(b)
	return na != "" && na == nb
}

// IsFuzzy reports whether two strings are similar enough to be a fuzzy
// candidate without being byte-equal after normalization.
func IsFuzzy(a, b string) bool {
	return Similarity(a, b) > FuzzyThreshold
}

// trigrams extracts the padded trigram set of a string, matching the pg_trgm
// convention of two leading and one trailing space per word.
func trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(s) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = struct{}{}
		}
	}
	return set
}

// Address is a normalized postal address used for dedupe hashing and fuzzy
// comparison. Fields are already trimmed and lowercased by NormalizeAddress.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// NormalizeAddress lowercases and trims every component. Postal codes keep
// their internal characters; country codes are uppercased to ISO form.
func NormalizeAddress(line1, line2, city, state, postalCode, country string) Address {
	squash := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	return Address{
		Line1:      squash(line1),
		Line2:      squash(line2),
		City:       squash(city),
		State:      squash(state),
		PostalCode: strings.ToUpper(strings.Join(strings.Fields(postalCode), "")),
		Country:    strings.ToUpper(strings.TrimSpace(country)),
	}
}

// ContentHash returns a deterministic hash of the fully normalized address,
// used as the exact-match key in the dedupe store.
func (a Address) ContentHash() string {
	h := sha256.New()
	for _, part := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IsZero reports whether every component is empty.
func (a Address) IsZero() bool {
	return a == Address{}
}
