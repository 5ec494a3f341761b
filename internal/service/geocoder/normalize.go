// internal/service/geocoder/normalize.go

package geocoder

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// punctuationReplacer turns each of the listed characters into a single
// space, per step 3 of the normalization pipeline.
var punctuationReplacer = strings.NewReplacer(
	"&", " ",
	"?", " ",
	"\"", " ",
	"'", " ",
	"(", " ",
	")", " ",
	"-", " ",
	"#", " ",
	"/", " ",
	"\\", " ",
	".", " ",
	"\n", " ",
)

// transliterator strips combining diacritical marks after NFD
// decomposition, the standard golang.org/x/text recipe for "café" -> "cafe".
var transliterator = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize applies the exact five-step pipeline a location string must go
// through before it is sent to the geocoding service:
//  1. transliterate diacritics to ASCII
//  2. strip remaining non-ASCII bytes
//  3. replace punctuation with spaces
//  4. collapse whitespace runs, trim
//  5. (caller's responsibility) treat an empty result as "no network call"
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	ascii, _, err := transform.String(transliterator, s)
	if err != nil {
		ascii = s
	}
	ascii = stripNonASCII(ascii)
	ascii = punctuationReplacer.Replace(ascii)
	return collapseWhitespace(ascii)
}

// Transliterate applies only steps 1-2 of the normalization pipeline
// (diacritics to ASCII, strip remaining non-ASCII) and trims surrounding
// whitespace, without touching punctuation. It is used by the alert
// assembler's word-count and filter-term checks, which operate on tweet
// body text rather than a location string.
func Transliterate(s string) string {
	ascii, _, err := transform.String(transliterator, s)
	if err != nil {
		ascii = s
	}
	ascii = stripNonASCII(ascii)
	return strings.TrimSpace(ascii)
}

func stripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
