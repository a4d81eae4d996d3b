package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "boolean keywords",
			in:   "a AND b OR NOT c",
			want: "a && b || ! c",
		},
		{
			name: "case insensitive keywords",
			in:   "a and b or not c",
			want: "a && b || ! c",
		},
		{
			name: "null checks",
			in:   "email.domain IS NULL OR phone.country IS NOT NULL",
			want: "email.domain == null || phone.country != null",
		},
		{
			name: "sql style inequality",
			in:   "payment_method <> 'cod'",
			want: "payment_method != 'cod'",
		},
		{
			name: "string operators",
			in:   "email.domain CONTAINS 'temp' AND name STARTS_WITH 'test' AND ip ENDS_WITH '.1' AND email MATCHES '.*@x'",
			want: "email.domain contains 'temp' && name startsWith 'test' && ip endsWith '.1' && email matches '.*@x'",
		},
		{
			name: "html entities decoded",
			in:   "total_amount &gt; 100 AND currency == &quot;INR&quot;",
			want: `total_amount > 100 && currency == "INR"`,
		},
		{
			name: "identifiers containing keyword substrings survive",
			in:   "brand == 'x' AND origin == 'y' AND international == true",
			want: "brand == 'x' && origin == 'y' && international == true",
		},
		{
			name: "between is left to the helper",
			in:   "between(total_amount, 100, 500)",
			want: "between(total_amount, 100, 500)",
		},
		{
			name: "string literals are never rewritten",
			in:   "address.country == 'IN'",
			want: "address.country == 'IN'",
		},
		{
			name: "keywords inside literals survive while the rest is rewritten",
			in:   "note CONTAINS 'cash AND carry' AND address.country IN ['IN', 'GB']",
			want: "note contains 'cash AND carry' && address.country in ['IN', 'GB']",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
