// Optional match-key normalization for the songplays join. The default
// predicate is exact string equality on title and artist name; pipelines
// with feeds that disagree on accents or casing ("Beyoncé" vs "Beyonce")
// can opt in to folding both sides through the same chain before hashing:
// NFD, strip combining marks, NFC, then trim and lowercase.
package transform

import (
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unaccent strips diacritical marks: decompose, drop nonspacing marks,
// recompose.
var unaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// MatchKey returns the normalized comparison form of a title or artist name.
func MatchKey(s string) string {
	s = strings.TrimSpace(s)
	if out, _, err := transform.String(unaccent, s); err == nil {
		s = out
	}
	return strings.ToLower(s)
}

// matchHash fingerprints an (artist, title) pair. Candidates that collide in
// the index are verified by key equality before they can match.
func matchHash(artistKey, titleKey string) uint64 {
	return xxh3.HashString(artistKey + "\x00" + titleKey)
}
