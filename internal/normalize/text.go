package normalize

import "unicode/utf8"

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// Truncate shortens s to its first maxLen runes followed by Ellipsis when it is
// longer than maxLen. maxLen <= 0 disables truncation. Truncate is idempotent.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + Ellipsis
}
