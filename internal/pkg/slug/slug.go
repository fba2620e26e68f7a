// Package slug derives URL-safe identifiers from titles. Romanian titles
// carry diacritics (ș, ț, ă, î, â) that must fold to their ASCII base so
// the public URLs stay typeable.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Generate converts a title to a slug: lowercase, diacritics stripped,
// anything outside [a-z0-9 -] dropped, whitespace runs become single
// hyphens, consecutive and edge hyphens removed. Generate is idempotent.
func Generate(title string) string {
	s := strings.ToLower(title)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	s = strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}
