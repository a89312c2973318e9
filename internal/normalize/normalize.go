// Package normalize implements the text normalization shared by the indexing
// and query paths. Both must use the exact same transformation: any
// divergence breaks keyword-overlap scoring.
package normalize

import "strings"

// Sinhala Unicode block, preserved so Sinhala descriptions survive
// normalization alongside English/Singlish text.
const (
	sinhalaLo = 0x0D80
	sinhalaHi = 0x0DFF
)

// Normalize lower-cases text, strips everything outside ASCII letters,
// digits, and the Sinhala block, and collapses whitespace runs (including
// runs created by stripped characters) to single spaces. Leading and
// trailing whitespace is removed. Idempotent.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range strings.ToLower(text) {
		if keep(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		// Whitespace and stripped characters both act as token separators.
		pendingSpace = true
	}
	return b.String()
}

// Tokens returns the whitespace-separated tokens of the normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

func keep(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= sinhalaLo && r <= sinhalaHi:
		return true
	}
	return false
}
