// Package strings holds small string-slice helpers shared across services.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice, trimming
// whitespace from each element. Order is preserved. The decision pipeline runs
// its tag and reason-code lists through this before persisting them.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}
