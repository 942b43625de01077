package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"channel-digest/internal/domain/entity"
)

// ErrEmptyResponse is returned when the provider answered with no usable text.
var ErrEmptyResponse = errors.New("summarizer: empty response")

// buildPrompt asks for a JSON object so the headline and body come back
// separated.
func buildPrompt(cfg Config, text, sourceURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following channel post in %s.\n", cfg.Language)
	fmt.Fprintf(&b, "Reply with a single JSON object {\"headline\": string, \"body\": string} and nothing else.\n")
	fmt.Fprintf(&b, "The headline is one plain sentence of at most %d characters without markdown or quotes.\n", entity.MaxHeadlineRunes)
	fmt.Fprintf(&b, "The body is plain prose of at most %d characters.\n", cfg.CharacterLimit)
	if sourceURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", sourceURL)
	}
	b.WriteString("\nPost:\n")
	b.WriteString(text)
	return b.String()
}

// parseSummary extracts a Summary from a model reply. It accepts a bare JSON
// object, one wrapped in a code fence or surrounded by chatter, and falls
// back to treating the first line as the headline. The bool reports whether
// the fallback was used.
func parseSummary(raw string) (entity.Summary, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.Summary{}, false, ErrEmptyResponse
	}

	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		var s entity.Summary
		if err := json.Unmarshal([]byte(raw[start:end+1]), &s); err == nil && strings.TrimSpace(s.Headline) != "" {
			s.Headline = strings.TrimSpace(s.Headline)
			s.Body = strings.TrimSpace(s.Body)
			return s, false, nil
		}
	}

	lines := strings.Split(stripFence(raw), "\n")
	var headline string
	var rest []string
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		headline = strings.TrimSpace(l)
		rest = lines[i+1:]
		break
	}
	if headline == "" {
		return entity.Summary{}, true, ErrEmptyResponse
	}
	return entity.Summary{
		Headline: headline,
		Body:     strings.TrimSpace(strings.Join(rest, "\n")),
	}, true, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
