// Package arabic canonicalizes participant names so that spelling
// variants of the same name compare equal: diacritics, hamza carriers,
// invisible formatting characters and whitespace runs all fold away.
package arabic

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Casual typing swaps these letter shapes freely, so they fold to one
// canonical form for comparison.
var letterFolds = map[rune]rune{
	'آ': 'ا', // alef madda -> alef
	'أ': 'ا', // alef hamza above -> alef
	'إ': 'ا', // alef hamza below -> alef
	'ى': 'ي', // alef maqsura -> ya
	'ة': 'ه', // taa marbuta -> haa
}

var normalizer = transform.Chain(
	runes.Remove(runes.In(unicode.Mn)), // tashkeel, shadda, sukun
	runes.Remove(runes.In(unicode.Cf)), // zero-width and bidi controls
	runes.Map(func(r rune) rune {
		if folded, ok := letterFolds[r]; ok {
			return folded
		}
		return r
	}),
)

// Normalize returns the comparison key for a display name. It is
// idempotent and never fails; empty input normalizes to "".
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}
