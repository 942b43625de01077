package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/domain/entity"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     entity.Summary
		fallback bool
	}{
		{
			name: "bare json",
			raw:  `{"headline":" H ","body":" B "}`,
			want: entity.Summary{Headline: "H", Body: "B"},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"headline\":\"H\",\"body\":\"B\"}\n```",
			want: entity.Summary{Headline: "H", Body: "B"},
		},
		{
			name: "json with chatter",
			raw:  "Here you go:\n{\"headline\":\"H\",\"body\":\"B\"}\nThanks",
			want: entity.Summary{Headline: "H", Body: "B"},
		},
		{
			name:     "plain text",
			raw:      "\n\nHeadline line\nBody one.\nBody two.",
			want:     entity.Summary{Headline: "Headline line", Body: "Body one.\nBody two."},
			fallback: true,
		},
		{
			name:     "json without headline falls back",
			raw:      `{"body":"B"}`,
			want:     entity.Summary{Headline: `{"body":"B"}`},
			fallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback, err := parseSummary(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fallback, fallback)
		})
	}
}

func TestParseSummary_Empty(t *testing.T) {
	_, _, err := parseSummary("   \n ")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, _, err = parseSummary("```\n```")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(Config{Language: "german", CharacterLimit: 400}, "the post", "https://s.example")

	assert.Contains(t, p, "in german")
	assert.Contains(t, p, "at most 400 characters")
	assert.Contains(t, p, "Source: https://s.example")
	assert.Contains(t, p, "the post")

	assert.NotContains(t, buildPrompt(Config{Language: "english"}, "x", ""), "Source:")
}
