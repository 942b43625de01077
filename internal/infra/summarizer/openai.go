package summarizer

import (
	"context"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/resilience/circuitbreaker"
)

// DefaultOpenAIModel is used when SUMMARIZER_MODEL is not set.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAI implements summarization with the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	guard  *guard
}

// NewOpenAI creates an OpenAI summarizer.
func NewOpenAI(apiKey string, cfg Config) *OpenAI {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	slog.Info("Initialized OpenAI summarizer with configuration",
		slog.Int("character_limit", cfg.CharacterLimit),
		slog.String("language", cfg.Language),
		slog.String("model", cfg.Model))

	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		guard:  newGuard("openai", cfg, circuitbreaker.OpenAIAPIConfig()),
	}
}

// Summarize returns the headline and body for text.
func (o *OpenAI) Summarize(ctx context.Context, text, sourceURL string) (entity.Summary, error) {
	return o.guard.summarize(ctx, text, sourceURL, o.call)
}

func (o *OpenAI) call(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.guard.config.Model,
		MaxTokens: o.guard.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError("openai", apiErr.HTTPStatusCode, err)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", statusError("openai", reqErr.HTTPStatusCode, err)
		}
		return "", statusError("openai", 0, err)
	}

	// safety check to prevent panic on array access
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
