// Package match turns stored coverage text into a SQL LIKE pattern that
// tolerates inconsistent HTML escaping around the text.
package match

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Wildcard is the LIKE wildcard used in every pattern.
const Wildcard = "%"

// markup matches an inline tag or an entity reference.
var markup = regexp.MustCompile(`<[^>]+?>|&\S+?;`)

// Key is the search key derived from a piece of free text.
type Key struct {
	RawSegment  string // longest run of text not broken by markup, untrimmed
	WholeString bool   // true when the text had no markup at all
	Pattern     string // LIKE pattern built from RawSegment
}

// NewKey derives the search key for text. Empty text yields an empty pattern.
//
// When text contains no markup the pattern is the whole text with a leading
// wildcard only. Otherwise the longest fragment between markup wins, the
// first one on ties, and it is trimmed and wrapped in wildcards.
func NewKey(text string) Key {
	if len(text) == 0 {
		return Key{WholeString: true}
	}

	parts := markup.Split(text, -1)
	if len(parts) == 1 {
		return Key{
			RawSegment:  text,
			WholeString: true,
			Pattern:     Wildcard + text,
		}
	}

	best, bestLen := "", -1
	for _, part := range parts {
		if n := utf8.RuneCountInString(part); n > bestLen {
			best, bestLen = part, n
		}
	}

	return Key{
		RawSegment: best,
		Pattern:    Wildcard + strings.TrimSpace(best) + Wildcard,
	}
}

// LongestPlainTextSpan returns the LIKE pattern for text.
func LongestPlainTextSpan(text string) string {
	return NewKey(text).Pattern
}
