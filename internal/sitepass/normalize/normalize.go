// Package normalize canonicalizes presented identifiers (card serials,
// license plates) before archive comparison. The archive stores the same
// normalized form, so matching is symmetric regardless of how an operator
// typed the value.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes and removes combining marks. This folds the
// Hamza-bearing Alef forms (U+0622 Madda, U+0623 Hamza above, U+0625 Hamza
// below) to the bare Alef and drops any Arabic vowel marks an operator may
// have typed.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Tatweel is a typographic stretch character with no identity meaning.
const tatweel = 'ـ'

// Identifier strips all whitespace and tatweel, uppercases ASCII letters and
// folds Alef diacritic variants. Idempotent.
func Identifier(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Malformed UTF-8; fall back to the raw string so the character
		// filters below still apply.
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r) || r == tatweel:
			// skip
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// plateLetters maps the Arabic letters permitted on local vehicle plates to
// the Latin letter printed alongside them, so a plate reads the same whether
// the operator typed the Arabic or the Latin side.
var plateLetters = map[rune]rune{
	'ا': 'A',
	'ب': 'B',
	'ح': 'J',
	'د': 'D',
	'ر': 'R',
	'س': 'S',
	'ص': 'X',
	'ط': 'T',
	'ع': 'E',
	'ق': 'G',
	'ك': 'K',
	'ل': 'L',
	'م': 'Z',
	'ن': 'N',
	'ه': 'H',
	'و': 'U',
	'ى': 'V',
}

// Plate applies Identifier, then drops separator punctuation and transliterates
// Arabic plate letters to their Latin equivalents. Idempotent.
func Plate(s string) string {
	var b strings.Builder
	for _, r := range Identifier(s) {
		switch r {
		case '-', '_', '.', '/':
			continue
		}
		if l, ok := plateLetters[r]; ok {
			r = l
		}
		b.WriteRune(r)
	}
	return b.String()
}
