package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Summary is the structured output of a summarizer.
type Summary struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
}

// SummaryRules holds the acceptance thresholds for summarizer output.
type SummaryRules struct {
	MinBodyRunes int
	MinBodyWords int
}

// Validate checks that a summary carries a headline and a body long enough
// to be worth publishing.
func (s Summary) Validate(rules SummaryRules) error {
	if strings.TrimSpace(s.Headline) == "" {
		return &ValidationError{Field: "headline", Message: "headline is required"}
	}
	body := strings.TrimSpace(s.Body)
	if body == "" {
		return &ValidationError{Field: "body", Message: "body is required"}
	}
	if n := utf8.RuneCountInString(body); n < rules.MinBodyRunes {
		return &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("body too short: %d characters, need %d", n, rules.MinBodyRunes),
		}
	}
	if n := len(strings.Fields(body)); n < rules.MinBodyWords {
		return &ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("body too short: %d words, need %d", n, rules.MinBodyWords),
		}
	}
	return nil
}
