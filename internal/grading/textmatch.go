package grading

import "strings"

// normalize prepares free-text answers for comparison: surrounding
// whitespace is dropped and case is folded. Punctuation is significant —
// "Paris!" does not match "paris".
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
