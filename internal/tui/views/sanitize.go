package views

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sanitizeForTerminal drops emoji modifiers and joiners that tcell measures
// wrongly along with control characters other than newline. Tabs become a
// space.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case isProblematicRune(r):
		case r == utf8.RuneError:
			b.WriteRune(unicode.ReplacementChar)
		case r == '\t':
			b.WriteByte(' ')
		case unicode.IsControl(r) && r != '\n':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	case r == 0x200D, r == 0x200B: // zero width joiner and space
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	default:
		return false
	}
}
