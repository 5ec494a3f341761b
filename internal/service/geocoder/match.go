// internal/service/geocoder/match.go

package geocoder

import "strings"

// ampersandEquivalents normalizes "&" and "and" to the same token so the
// two spellings compare equal, per the non-US region matching rule.
func ampersandEquivalents(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	return collapseWhitespace(s)
}

// padded wraps the cleaned original location string with spaces and
// replaces commas with spaces, so whole-word matches can be done with a
// simple substring search against " word " tokens.
func padded(cleanedOriginal string) string {
	s := strings.ReplaceAll(cleanedOriginal, ",", " ")
	s = collapseWhitespace(s)
	return " " + strings.ToLower(s) + " "
}

// wholeWordMatch reports whether candidate appears as a whole word
// (case-insensitive) inside the cleaned, space-padded original location
// string.
func wholeWordMatch(paddedOriginal, candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	needle := " " + strings.ToLower(candidate) + " "
	return strings.Contains(paddedOriginal, needle)
}

// wholeWordMatchAny reports whether any candidate (the canonical name plus
// its aliases) whole-word matches the cleaned original string.
func wholeWordMatchAny(paddedOriginal, name string, aliases []string) bool {
	if wholeWordMatch(paddedOriginal, name) {
		return true
	}
	for _, a := range aliases {
		if wholeWordMatch(paddedOriginal, a) {
			return true
		}
	}
	return false
}

// stripParens removes a single parenthesized aside from a city candidate,
// e.g. "Springfield (IL)" -> "Springfield".
func stripParens(s string) string {
	start := strings.IndexByte(s, '(')
	if start < 0 {
		return strings.TrimSpace(s)
	}
	end := strings.IndexByte(s[start:], ')')
	if end < 0 {
		return strings.TrimSpace(s[:start])
	}
	return strings.TrimSpace(s[:start] + s[start+end+1:])
}
