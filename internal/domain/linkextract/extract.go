// Package linkextract finds the source link of a channel message.
package linkextract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"channel-digest/internal/domain/entity"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"'` + "`" + `]+`)

// trailing characters that usually belong to the surrounding prose rather
// than the URL itself.
const trailingPunct = ".,;:!?)]}»\"'…"

// Extract returns the first valid http(s) URL of a message, or "" when none
// is found. A text_link entity wins over any URL appearing in the text.
// Extract never panics.
func Extract(text string, entities []entity.TextEntity) (link string) {
	defer func() {
		if r := recover(); r != nil {
			link = ""
		}
	}()

	for _, e := range entities {
		if e.Type != entity.EntityTypeTextLink {
			continue
		}
		if u, ok := normalize(e.URL); ok {
			return u
		}
	}

	for _, m := range urlPattern.FindAllString(text, -1) {
		if u, ok := normalize(trimTrailing(m)); ok {
			return u
		}
	}
	return ""
}

// trimTrailing drops sentence punctuation glued to the end of a match. A
// closing parenthesis is kept when the URL contains the matching opener.
func trimTrailing(s string) string {
	for s != "" {
		r, size := utf8.DecodeLastRuneInString(s)
		if !strings.ContainsRune(trailingPunct, r) {
			return s
		}
		if r == ')' && strings.Count(s, "(") >= strings.Count(s, ")") {
			return s
		}
		s = s[:len(s)-size]
	}
	return s
}

func normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if err := entity.ValidateURL(raw); err != nil {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
