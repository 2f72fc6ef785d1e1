// Package textnorm produces the canonical comparison form of free-text names.
// Every lookup that compares school names, aliases, or search queries goes
// through Normalize so that human spelling variants collapse to one key.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// insignificant drops whitespace (including ideographic spaces), punctuation
// and symbols. Middle dots and brackets common in Japanese school names are
// punctuation, so "私立・東京高校" and "私立東京高校" compare equal.
var insignificant = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}))

// fold applies NFKC first so full-width ASCII and half-width kana collapse
// to their canonical forms before the rune filter runs.
var fold = transform.Chain(norm.NFKC, insignificant)

// Normalize returns the canonical comparison form of s. It is total (never
// fails, empty in gives empty out) and idempotent.
func Normalize(s string) string {
	out, _, err := transform.String(fold, s)
	if err != nil {
		// transform.String only errors on malformed encodings; fall back to
		// the raw input rather than dropping the name entirely.
		out = s
	}
	return strings.ToLower(out)
}
