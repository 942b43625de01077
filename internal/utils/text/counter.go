// Package text provides rune-aware helpers shared by the summarizer, the
// message processor and the summary validator.
package text

import (
	"strings"
	"unicode/utf8"
)

// CountRunes counts the number of Unicode characters (runes) in the given text.
//
//	CountRunes("hello")   // 5
//	CountRunes("привет")  // 6
//	CountRunes("")        // 0
func CountRunes(s string) int {
	return utf8.RuneCountInString(s)
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// Truncate returns at most maxRunes runes of s without splitting a
// multi-byte character. A non-positive maxRunes returns s unchanged.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// CollapseSpace replaces every run of whitespace with a single space and
// trims the result.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
