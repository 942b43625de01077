package summarizer

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// minCharLimit is the minimum allowed body character limit.
	minCharLimit = 100

	// maxCharLimit is the maximum allowed body character limit.
	maxCharLimit = 5000

	defaultCharLimit = 900
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 1024
)

// Config holds the settings shared by every remote summarizer.
type Config struct {
	// Model is the provider model identifier.
	Model string

	// MaxTokens bounds the response size.
	MaxTokens int

	// CharacterLimit is the target maximum length of the summary body in runes.
	// Loaded from SUMMARIZER_CHAR_LIMIT. Valid range: 100-5000. Default: 900.
	CharacterLimit int

	// Language is the language the summary is written in.
	Language string

	// Timeout bounds one Summarize call, retries included.
	Timeout time.Duration

	// RequestsPerSecond throttles calls to the provider. Zero disables throttling.
	RequestsPerSecond float64

	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string
}

// ValidateCharacterLimit validates that the character limit is within the valid range (100-5000).
//
//	err := ValidateCharacterLimit(900)  // nil (valid)
//	err := ValidateCharacterLimit(50)   // error: "character limit 50 is below minimum 100"
func ValidateCharacterLimit(limit int) error {
	if limit < minCharLimit {
		return fmt.Errorf("character limit %d is below minimum %d", limit, minCharLimit)
	}
	if limit > maxCharLimit {
		return fmt.Errorf("character limit %d exceeds maximum %d", limit, maxCharLimit)
	}
	return nil
}

// Validate checks all fields and returns the first problem found.
func (c Config) Validate() error {
	if err := ValidateCharacterLimit(c.CharacterLimit); err != nil {
		return fmt.Errorf("invalid character limit: %w", err)
	}
	if c.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must not be negative, got %v", c.RequestsPerSecond)
	}
	return nil
}

// LoadConfig reads the summarizer configuration for a provider whose default
// model is defaultModel. Invalid values are rejected (fail-closed): a
// misconfigured summarizer would fail every message.
//
// Environment variables:
//   - SUMMARIZER_MODEL: model identifier (default: defaultModel)
//   - SUMMARIZER_CHAR_LIMIT: body character limit (default: 900, range: 100-5000)
//   - SUMMARIZER_LANGUAGE: summary language (default: english)
//   - SUMMARIZER_TIMEOUT: per-call timeout (default: 60s)
//   - SUMMARIZER_RPS: provider request rate (default: 1)
//   - SUMMARIZER_BASE_URL: endpoint override
func LoadConfig(defaultModel string) (Config, error) {
	cfg := Config{
		Model:             defaultModel,
		MaxTokens:         defaultMaxTokens,
		CharacterLimit:    defaultCharLimit,
		Language:          "english",
		Timeout:           defaultTimeout,
		RequestsPerSecond: 1,
		BaseURL:           os.Getenv("SUMMARIZER_BASE_URL"),
	}

	if v := os.Getenv("SUMMARIZER_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SUMMARIZER_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("SUMMARIZER_CHAR_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SUMMARIZER_CHAR_LIMIT format: %s: %w", v, err)
		}
		cfg.CharacterLimit = n
	}
	if v := os.Getenv("SUMMARIZER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SUMMARIZER_TIMEOUT: %s: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("SUMMARIZER_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SUMMARIZER_RPS: %s: %w", v, err)
		}
		cfg.RequestsPerSecond = f
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid summarizer configuration: %w", err)
	}
	return cfg, nil
}
