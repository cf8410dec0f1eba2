package game

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes text for answer comparison: lowercase, strip
// everything that is neither letter, digit nor whitespace, collapse
// whitespace runs to a single space, and trim. Idempotent.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeSet normalizes every answer and drops the ones that come out
// empty. Order of first appearance is preserved; duplicates collapse.
func NormalizeSet(answers []string) []string {
	seen := make(map[string]struct{}, len(answers))
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		n := Normalize(a)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
