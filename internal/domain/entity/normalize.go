package entity

import (
	"strings"

	"channel-digest/internal/utils/text"
)

// headlineStrip removes markdown emphasis and quotation marks wherever they
// occur in a headline.
var headlineStrip = strings.NewReplacer(
	"*", "", "_", "", "`", "", "~", "",
	`"`, "", "“", "", "”", "", "„", "", "«", "", "»", "",
)

// NormalizeHeadline strips markdown and quote punctuation, collapses
// whitespace and caps the result at MaxHeadlineRunes. A leading "Headline:"
// label and heading markers are dropped, as are trailing colons.
func NormalizeHeadline(s string) string {
	s = headlineStrip.Replace(s)
	s = text.CollapseSpace(s)
	s = strings.TrimLeft(s, "#> ")
	if lower := strings.ToLower(s); strings.HasPrefix(lower, "headline:") {
		s = strings.TrimSpace(s[len("headline:"):])
	}
	s = strings.Trim(s, "'‘’ ")
	s = strings.TrimRight(s, ":;, ")
	return strings.TrimSpace(text.Truncate(s, MaxHeadlineRunes))
}

// SanitizeBody trims the body, drops blank lines and collapses runs of
// spaces inside each line, then caps it at maxRunes on a word boundary when
// possible. A non-positive maxRunes disables the cap.
func SanitizeBody(s string, maxRunes int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = text.CollapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	body := strings.Join(lines, "\n")
	if maxRunes <= 0 || text.CountRunes(body) <= maxRunes {
		return body
	}
	cut := text.Truncate(body, maxRunes)
	if i := strings.LastIndexAny(cut, " \n"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
