package matcher

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeTitle lower-cases s, collapses every run of non-alphanumeric
// characters to one space and trims the result.
func NormalizeTitle(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// TitlesEqual reports whether a and b normalize to the same string.
func TitlesEqual(a, b string) bool {
	return NormalizeTitle(a) == NormalizeTitle(b)
}
