package dedupe

import (
	"time"

	"riskgate/internal/match"
	id "riskgate/pkg/domain"
)

// MatchType identifies which lookup discovered a candidate. Exact lookups run
// and merge before fuzzy lookups, so an exact match is never displaced by a
// fuzzy match of equal score.
type MatchType string

const (
	MatchExactEmail   MatchType = "exact_email"
	MatchExactPhone   MatchType = "exact_phone"
	MatchExactAddress MatchType = "exact_address"
	MatchExactPostal  MatchType = "exact_postal"
	MatchFuzzyName    MatchType = "fuzzy_name"
	MatchFuzzyAddress MatchType = "fuzzy_address"
)

// SuggestedAction is the matcher's verdict on what to do with the incoming
// record.
type SuggestedAction string

const (
	ActionCreateNew SuggestedAction = "create_new"
	ActionMergeWith SuggestedAction = "merge_with"
	ActionReview    SuggestedAction = "review"
)

// CustomerRecord is a stored customer identity. Normalized columns are
// maintained at write time so lookups never re-normalize stored data.
type CustomerRecord struct {
	ID              string      `json:"id"`
	TenantID        id.TenantID `json:"tenant_id"`
	Email           string      `json:"email,omitempty"`
	NormalizedEmail string      `json:"-"`
	Phone           string      `json:"phone,omitempty"`
	NormalizedPhone string      `json:"-"`
	Name            string      `json:"name,omitempty"`
	NormalizedName  string      `json:"-"`
	MergedTo        string      `json:"merged_to,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// AddressRecord is a stored address. The content hash covers the fully
// normalized address and is the primary exact-match key.
type AddressRecord struct {
	ID          string        `json:"id"`
	TenantID    id.TenantID   `json:"tenant_id"`
	Address     match.Address `json:"address"`
	ContentHash string        `json:"-"`
	MergedTo    string        `json:"merged_to,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Match is one candidate in a result set.
type Match struct {
	ID              string    `json:"id"`
	SimilarityScore float64   `json:"similarity_score"`
	MatchType       MatchType `json:"match_type"`
	Data            any       `json:"data"`
}

// Result is the matcher output: candidates sorted by similarity descending
// (ties keep discovery order), plus the suggested action and, when merging or
// reviewing, the canonical record id.
type Result struct {
	Matches         []Match         `json:"matches"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	CanonicalID     string          `json:"canonical_id,omitempty"`
	RequestID       string          `json:"request_id"`
}

// CustomerQuery is the matchCustomer input. All fields optional; absent
// fields skip their lookup.
type CustomerQuery struct {
	TenantID id.TenantID
	Email    string
	Phone    string
	Name     string
}

// AddressQuery is the matchAddress input.
type AddressQuery struct {
	TenantID   id.TenantID
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Normalized returns the canonical address form for hashing and lookups.
func (q AddressQuery) Normalized() match.Address {
	return match.NormalizeAddress(q.Line1, q.Line2, q.City, q.State, q.PostalCode, q.Country)
}
