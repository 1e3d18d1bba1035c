package grading

import "strings"

// Normalize canonicalizes a free-text answer for comparison: surrounding
// whitespace is trimmed and the text is lower-cased. Normalize is idempotent.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeAll normalizes every entry, dropping nothing.
func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Normalize(s)
	}
	return out
}
