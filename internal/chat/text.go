package chat

import "unicode/utf8"

// DefaultPreviewLength is the maximum length of a conversation preview.
const DefaultPreviewLength = 100

// Preview truncates s to at most maxLen bytes without splitting a rune.
func Preview(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultPreviewLength
	}
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
