package summarizer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/infra/summarizer"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SUMMARIZER_MODEL", "")
	t.Setenv("SUMMARIZER_CHAR_LIMIT", "")
	t.Setenv("SUMMARIZER_TIMEOUT", "")

	cfg, err := summarizer.LoadConfig("model-x")

	require.NoError(t, err)
	assert.Equal(t, "model-x", cfg.Model)
	assert.Equal(t, 900, cfg.CharacterLimit)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, "english", cfg.Language)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SUMMARIZER_MODEL", "custom")
	t.Setenv("SUMMARIZER_CHAR_LIMIT", "1200")
	t.Setenv("SUMMARIZER_TIMEOUT", "15s")
	t.Setenv("SUMMARIZER_RPS", "0.5")

	cfg, err := summarizer.LoadConfig("model-x")

	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Model)
	assert.Equal(t, 1200, cfg.CharacterLimit)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.RequestsPerSecond)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "non-numeric limit", key: "SUMMARIZER_CHAR_LIMIT", val: "abc"},
		{name: "limit below minimum", key: "SUMMARIZER_CHAR_LIMIT", val: "50"},
		{name: "limit above maximum", key: "SUMMARIZER_CHAR_LIMIT", val: "6000"},
		{name: "bad timeout", key: "SUMMARIZER_TIMEOUT", val: "soon"},
		{name: "negative timeout", key: "SUMMARIZER_TIMEOUT", val: "-1s"},
		{name: "bad rps", key: "SUMMARIZER_RPS", val: "fast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := summarizer.LoadConfig("model-x")
			assert.Error(t, err)
		})
	}
}

func TestValidateCharacterLimit(t *testing.T) {
	assert.NoError(t, summarizer.ValidateCharacterLimit(100))
	assert.NoError(t, summarizer.ValidateCharacterLimit(5000))
	assert.EqualError(t, summarizer.ValidateCharacterLimit(50), "character limit 50 is below minimum 100")
	assert.EqualError(t, summarizer.ValidateCharacterLimit(6000), "character limit 6000 exceeds maximum 5000")
}
