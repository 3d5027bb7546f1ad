// Package slug derives URL-safe category identifiers from display names.
package slug

import (
	"regexp"
	"strings"
)

var (
	nonWord    = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[\s_-]+`)
	edgeDashes = regexp.MustCompile(`^-+|-+$`)
	valid      = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Make lowercases and trims s, drops everything that is not a word
// character, whitespace or hyphen, collapses separator runs into a single
// hyphen and trims hyphens from both ends. Make(Make(s)) == Make(s).
func Make(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = nonWord.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return edgeDashes.ReplaceAllString(s, "")
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}
