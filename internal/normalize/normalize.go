// Package normalize provides the single identifier-comparison rule used
// throughout the pipeline: case-insensitive, matching the teacher project's
// Dialect.NormalizeName / Scope.normalize pattern. Every package that
// compares table or column names — the catalog loader's reference map, the
// star expander's CTE scope, and the tracer's visited-set/table lookups —
// goes through Name so the rule only lives in one place.
package normalize

import "strings"

// Name lower-cases and trims an identifier for comparison. It is not a
// quoting-aware SQL identifier normalizer: the pipeline's Non-goals exclude
// dialect-specific identifier casing rules, so a single case fold is enough.
func Name(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
