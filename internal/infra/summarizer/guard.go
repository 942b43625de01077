package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/resilience/circuitbreaker"
	"channel-digest/internal/resilience/retry"
	"channel-digest/internal/utils/text"
)

// callFunc performs one provider request and returns the raw reply text.
type callFunc func(ctx context.Context, prompt string) (string, error)

// guard wraps a provider call with the timeout, throttling, retry, circuit
// breaker and metrics shared by all remote summarizers.
type guard struct {
	name            string
	config          Config
	limiter         *rate.Limiter
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	metricsRecorder SummaryMetricsRecorder
}

func newGuard(name string, cfg Config, cb circuitbreaker.Config) *guard {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &guard{
		name:            name,
		config:          cfg,
		limiter:         rate.NewLimiter(limit, 1),
		circuitBreaker:  circuitbreaker.New(cb),
		retryConfig:     retry.AIAPIConfig(),
		metricsRecorder: NewPrometheusSummaryMetrics(),
	}
}

func (g *guard) summarize(ctx context.Context, input, sourceURL string, call callFunc) (entity.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	requestID := uuid.New().String()
	prompt := buildPrompt(g.config, input, sourceURL)

	slog.InfoContext(ctx, "Starting summarization",
		slog.String("provider", g.name),
		slog.String("request_id", requestID),
		slog.Int("input_length", text.CountRunes(input)),
		slog.Int("character_limit", g.config.CharacterLimit))

	var raw string
	start := time.Now()
	err := retry.WithBackoff(ctx, g.retryConfig, func() error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		out, err := circuitbreaker.Do(g.circuitBreaker, func() (string, error) {
			return call(ctx, prompt)
		})
		if err != nil {
			if circuitbreaker.IsRejected(err) {
				slog.Warn("summarizer circuit breaker open, request rejected",
					slog.String("service", g.circuitBreaker.Name()),
					slog.String("state", g.circuitBreaker.State().String()))
				return fmt.Errorf("%s unavailable: %w", g.name, err)
			}
			return err
		}
		raw = out
		return nil
	})
	duration := time.Since(start)
	g.metricsRecorder.RecordDuration(duration)

	if err != nil {
		g.metricsRecorder.RecordOutcome("error")
		slog.ErrorContext(ctx, "Summarization failed",
			slog.String("provider", g.name),
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return entity.Summary{}, fmt.Errorf("%s summarize failed: %w", g.name, err)
	}

	summary, fallback, err := parseSummary(raw)
	if err != nil {
		g.metricsRecorder.RecordOutcome("empty")
		return entity.Summary{}, fmt.Errorf("%s: %w", g.name, err)
	}
	if fallback {
		g.metricsRecorder.RecordOutcome("unstructured")
		slog.WarnContext(ctx, "summarizer reply was not JSON, used first line as headline",
			slog.String("request_id", requestID))
	} else {
		g.metricsRecorder.RecordOutcome("ok")
	}

	bodyLength := text.CountRunes(summary.Body)
	withinLimit := bodyLength <= g.config.CharacterLimit
	g.metricsRecorder.RecordLength(bodyLength)
	g.metricsRecorder.RecordCompliance(withinLimit)
	if !withinLimit {
		g.metricsRecorder.RecordLimitExceeded()
		slog.WarnContext(ctx, "Summary exceeds character limit",
			slog.String("request_id", requestID),
			slog.Int("summary_length", bodyLength),
			slog.Int("limit", g.config.CharacterLimit),
			slog.Int("excess", bodyLength-g.config.CharacterLimit))
	}

	slog.InfoContext(ctx, "Summarization completed",
		slog.String("provider", g.name),
		slog.String("request_id", requestID),
		slog.Int("summary_length", bodyLength),
		slog.Bool("within_limit", withinLimit),
		slog.Duration("duration", duration))

	return summary, nil
}

// statusError converts a provider HTTP status into a retry.HTTPError so that
// 429 and 5xx replies are retried and everything else is not.
func statusError(provider string, status int, err error) error {
	if status == 0 {
		return fmt.Errorf("%s api error: %w", provider, err)
	}
	return fmt.Errorf("%s api error: %w", provider, &retry.HTTPError{StatusCode: status, Message: err.Error()})
}
