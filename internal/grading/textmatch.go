package grading

import "strings"

// normalize trims surrounding whitespace and case-folds.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Match compares a submitted token with the stored answer after normalizing
// both sides identically.
func Match(submitted, correct string) bool {
	return normalize(submitted) == normalize(correct)
}
