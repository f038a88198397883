package matching

import (
	"strings"
	"unicode"
)

// NormalizeTitle lowers the case, strips parenthetical and bracketed
// qualifiers like "(Remastered 2011)" or "[Live]", removes punctuation, and
// collapses whitespace.
func NormalizeTitle(s string) string {
	s = stripQualifiers(s)
	return normalizeText(s)
}

// NormalizeArtist lowers the case, removes punctuation, and collapses
// whitespace. Qualifiers are kept; artist names rarely carry them.
func NormalizeArtist(s string) string {
	return normalizeText(s)
}

// stripQualifiers removes parenthesized and bracketed segments.
func stripQualifiers(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// normalizeText lower-cases, drops punctuation, and collapses runs of
// whitespace into single spaces.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r == '&':
			// "&" reads as "and" often enough that dropping it entirely
			// would merge adjacent words
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
