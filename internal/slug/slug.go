// Package slug builds psyfinder URL path segments from therapist names.
// The slug doubles as the join key against the Therapist url column, so it
// must stay byte-for-byte stable across runs.
package slug

import "strings"

// asciiMap covers the diacritics that actually occur in the source data.
// Every entry maps one-to-one onto its ASCII base letter (ß expands to ss).
var asciiMap = map[rune]string{
	'ä': "a", 'ö': "o", 'ü': "u", 'ß': "ss",
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'å': "a",
	'ç': "c", 'ć': "c", 'č': "c",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ñ': "n", 'ń': "n",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o",
	'ù': "u", 'ú': "u", 'û': "u",
	'ý': "y", 'ÿ': "y",
	'ż': "z", 'ź': "z", 'ž': "z",
}

// Normalize lowercases the text, hyphenates spaces, transliterates known
// diacritics and strips everything that is not alphanumeric, underscore or
// hyphen. It is pure and idempotent.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = strings.ReplaceAll(text, " ", "-")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if mapped, ok := asciiMap[r]; ok {
			b.WriteString(mapped)
			continue
		}
		switch {
		case r >= 'a' && r <= 'z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ForName builds the profile slug for a person, e.g.
// ("Jean-François", "Briefer") -> "jean-francois-briefer".
func ForName(firstName, lastName string) string {
	return Normalize(strings.TrimSpace(firstName)) + "-" + Normalize(strings.TrimSpace(lastName))
}
