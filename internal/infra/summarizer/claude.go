// Package summarizer turns channel posts into a headline and a body using a
// hosted language model. Claude (Anthropic) and OpenAI adapters share the
// same timeout, throttling, retry and circuit breaker handling.
package summarizer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/resilience/circuitbreaker"
)

// DefaultClaudeModel is used when SUMMARIZER_MODEL is not set.
const DefaultClaudeModel = string(anthropic.ModelClaudeSonnet4_5_20250929)

// Claude implements summarization with Anthropic's Messages API.
type Claude struct {
	client anthropic.Client
	guard  *guard
}

// NewClaude creates a Claude summarizer. The SDK's own retries are disabled;
// retries are handled by the shared guard.
func NewClaude(apiKey string, cfg Config) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	slog.Info("Initialized Claude summarizer with configuration",
		slog.Int("character_limit", cfg.CharacterLimit),
		slog.String("language", cfg.Language),
		slog.String("model", cfg.Model))

	return &Claude{
		client: anthropic.NewClient(opts...),
		guard:  newGuard("claude", cfg, circuitbreaker.ClaudeAPIConfig()),
	}
}

// Summarize returns the headline and body for text.
func (c *Claude) Summarize(ctx context.Context, text, sourceURL string) (entity.Summary, error) {
	return c.guard.summarize(ctx, text, sourceURL, c.call)
}

func (c *Claude) call(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.guard.config.Model),
		MaxTokens: int64(c.guard.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", statusError("claude", apiErr.StatusCode, err)
		}
		return "", statusError("claude", 0, err)
	}

	if len(message.Content) == 0 {
		return "", ErrEmptyResponse
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", errors.New("claude api returned unexpected response type")
	}
	return textBlock.Text, nil
}
