package catalog

import (
	"html"
	"strings"

	"golang.org/x/text/cases"
)

// Normalize canonicalises a cell or on-screen text for comparison:
// HTML entities decoded, leading/trailing whitespace trimmed, internal
// whitespace runs collapsed to a single space. Blank cells normalize to
// the empty string, never to a null-ish marker.
func Normalize(s string) string {
	s = html.UnescapeString(s)
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}

// Fold returns the case-folded form of Normalize(s), the canonical
// lookup and equality key. Unicode case folding rather than a plain
// lower-casing so that non-ASCII English strings compare correctly;
// Khmer and Chinese have no case and pass through unchanged.
func Fold(s string) string {
	// cases.Caser is stateful; build one per call.
	return cases.Fold().String(Normalize(s))
}

// Equivalent reports whether two texts are equal under the comparison
// semantics of the checker: case-insensitive, whitespace-normalized,
// exact otherwise. No fuzzy matching.
func Equivalent(a, b string) bool {
	return Fold(a) == Fold(b)
}
