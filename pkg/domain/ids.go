package domain

// TenantID scopes every record and cache key in the service. It is a plain
// string rather than a UUID so API-key-derived tenant handles work unchanged.
type TenantID string

func (t TenantID) IsZero() bool   { return t == "" }
func (t TenantID) String() string { return string(t) }

// RecordType distinguishes the two mergeable dedupe record families.
type RecordType string

const (
	RecordTypeCustomer RecordType = "customer"
	RecordTypeAddress  RecordType = "address"
)

// IsValid checks if the record type is one of the supported enum values.
func (r RecordType) IsValid() bool {
	return r == RecordTypeCustomer || r == RecordTypeAddress
}
