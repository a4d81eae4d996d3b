package rules

import (
	"html"
	"regexp"
	"strings"
)

// Conditions arrive from web forms, so the raw text may be HTML-escaped and
// uses SQL-flavored keywords. Normalization rewrites it into the interpreter's
// native grammar before parsing. Rewrites are word-boundary so identifiers
// like "brand" or "origin" survive untouched.

type rewrite struct {
	pattern *regexp.Regexp
	with    string
}

var rewrites = []rewrite{
	// Multi-word forms first so their parts are not rewritten separately.
	{regexp.MustCompile(`(?i)\bIS\s+NOT\s+NULL\b`), "!= null"},
	{regexp.MustCompile(`(?i)\bIS\s+NULL\b`), "== null"},
	{regexp.MustCompile(`(?i)\bSTARTS_WITH\b`), "startsWith"},
	{regexp.MustCompile(`(?i)\bENDS_WITH\b`), "endsWith"},
	{regexp.MustCompile(`(?i)\bCONTAINS\b`), "contains"},
	{regexp.MustCompile(`(?i)\bMATCHES\b`), "matches"},
	{regexp.MustCompile(`(?i)\bAND\b`), "&&"},
	{regexp.MustCompile(`(?i)\bOR\b`), "||"},
	{regexp.MustCompile(`(?i)\bNOT\b`), "!"},
	{regexp.MustCompile(`(?i)\bIN\b`), "in"},
	{regexp.MustCompile(`<>`), "!="},
	{regexp.MustCompile(`(?i)\bTRUE\b`), "true"},
	{regexp.MustCompile(`(?i)\bFALSE\b`), "false"},
	{regexp.MustCompile(`(?i)\bNULL\b`), "null"},
}

// Normalize decodes HTML entities and rewrites keyword operators. Rewrites
// never reach inside single-quoted string literals, so the operand 'IN' stays
// a country code rather than becoming the in operator. BETWEEN is
// deliberately not rewritten; conditions use the injected between() helper.
func Normalize(condition string) string {
	parts := strings.Split(html.UnescapeString(condition), "'")
	// Even segments sit outside string literals, odd segments inside.
	for i := 0; i < len(parts); i += 2 {
		for _, r := range rewrites {
			parts[i] = r.pattern.ReplaceAllString(parts[i], r.with)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "'"))
}
