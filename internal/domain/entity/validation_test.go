package entity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"channel-digest/internal/domain/entity"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.com/a?b=c", wantErr: false},
		{name: "http", url: "http://example.com", wantErr: false},
		{name: "uppercase scheme", url: "HTTPS://example.com", wantErr: false},
		{name: "empty", url: "", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/file", wantErr: true},
		{name: "javascript", url: "javascript:alert(1)", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "relative", url: "/path/only", wantErr: true},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", 2100), wantErr: true},
		{name: "bad escape", url: "https://example.com/%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := entity.ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSummaryValidate(t *testing.T) {
	rules := entity.SummaryRules{MinBodyRunes: 40, MinBodyWords: 8}
	long := "one two three four five six seven eight nine ten eleven twelve"

	tests := []struct {
		name    string
		summary entity.Summary
		field   string
	}{
		{name: "valid", summary: entity.Summary{Headline: "Title", Body: long}},
		{name: "missing headline", summary: entity.Summary{Headline: "  ", Body: long}, field: "headline"},
		{name: "empty body", summary: entity.Summary{Headline: "Title"}, field: "body"},
		{name: "too few runes", summary: entity.Summary{Headline: "Title", Body: "short body"}, field: "body"},
		{name: "too few words", summary: entity.Summary{Headline: "Title", Body: strings.Repeat("x", 60) + " y"}, field: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.summary.Validate(rules)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *entity.ValidationError
			if assert.ErrorAs(t, err, &ve) {
				assert.Equal(t, tt.field, ve.Field)
			}
		})
	}
}
