// Package stringutil shortens text for single-line terminal output.
package stringutil

import "strings"

// Ellipsis flattens s to one line and shortens it to at most maxLength
// runes, ending in "..." when truncated. With maxLength <= 3 the text is
// cut without an ellipsis.
func Ellipsis(s string, maxLength int) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")

	if maxLength <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

// ShortenPath keeps the end of a slash separated path, which carries the
// file name, and marks the cut with a leading "...".
func ShortenPath(p string, maxLength int) string {
	runes := []rune(strings.TrimSpace(p))
	if maxLength <= 0 {
		return ""
	}
	if len(runes) <= maxLength {
		return string(runes)
	}
	if maxLength <= 3 {
		return string(runes[len(runes)-maxLength:])
	}
	return "..." + string(runes[len(runes)-(maxLength-3):])
}
