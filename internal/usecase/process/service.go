// Package process turns one channel message into at most one cached
// article. Every message ends in exactly one terminal state: stored,
// skipped (no link, already handled, or held by another worker) or failed
// (with an expiring failure record that makes it eligible for Retry).
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/domain/linkextract"
	"channel-digest/internal/handler/http/respond"
	"channel-digest/internal/observability/logging"
	"channel-digest/internal/observability/metrics"
	"channel-digest/internal/observability/tracing"
	"channel-digest/internal/repository"
	"channel-digest/internal/resilience/lease"
	"channel-digest/internal/utils/text"
)

// Outcome is the terminal state of one Process call.
type Outcome string

const (
	Stored  Outcome = "stored"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Failure reasons, also used as metric labels.
const (
	reasonSummarize  = "summarize"
	reasonValidation = "validation"
	reasonStore      = "store"
	reasonPanic      = "panic"
)

const maxReasonRunes = 500

// Summarizer produces a headline and body for a post.
type Summarizer interface {
	Summarize(ctx context.Context, text, sourceURL string) (entity.Summary, error)
}

// ContentFetcher returns the readable text of a linked page.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Config holds the processing thresholds.
type Config struct {
	MaxArticles          int
	LockTTL              time.Duration
	FailureTTL           time.Duration
	SummaryInputMaxChars int
	MaxBodyRunes         int
	Rules                entity.SummaryRules
	// FetchThreshold is the message length in runes below which the linked
	// page is fetched. Ignored without a ContentFetcher.
	FetchThreshold int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxArticles:          50,
		LockTTL:              2 * time.Minute,
		FailureTTL:           6 * time.Hour,
		SummaryInputMaxChars: 4000,
		MaxBodyRunes:         2000,
		Rules:                entity.SummaryRules{MinBodyRunes: 200, MinBodyWords: 30},
		FetchThreshold:       500,
	}
}

// Repositories groups the storage ports the processor writes to.
type Repositories struct {
	Articles  repository.ArticleRepository
	Committer repository.Committer
	Ledger    repository.LedgerRepository
	Failures  repository.FailureRepository
	Counter   repository.CounterRepository
}

// Service processes messages. It is safe for concurrent use; per-message
// exclusion across processes comes from the lease.
type Service struct {
	repos      Repositories
	leases     *lease.Manager
	summarizer Summarizer
	fetcher    ContentFetcher
	cfg        Config
}

// Option configures a Service.
type Option func(*Service)

// WithContentFetcher enables linked-page fetching for short posts.
func WithContentFetcher(f ContentFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// NewService creates a processor.
func NewService(repos Repositories, leases *lease.Manager, summarizer Summarizer, cfg Config, opts ...Option) *Service {
	s := &Service{
		repos:      repos,
		leases:     leases,
		summarizer: summarizer,
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockKey is the lease key guarding message id.
func LockKey(id int64) string {
	return fmt.Sprintf("%d", id)
}

// Process handles one message. A processed id is always skipped. The error
// is non-nil only when ctx was canceled; every other problem is folded into
// the outcome.
func (s *Service) Process(ctx context.Context, msg entity.Message) (Outcome, error) {
	return s.run(ctx, msg, false)
}

// Retry is Process for ids taken from the retry queue: a processed id is
// handled again while its failure record is active.
func (s *Service) Retry(ctx context.Context, msg entity.Message) (Outcome, error) {
	return s.run(ctx, msg, true)
}

func (s *Service) run(ctx context.Context, msg entity.Message, allowRetry bool) (Outcome, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "process.message",
		attribute.Int64("message.id", msg.ID),
		attribute.Bool("message.retry", allowRetry))
	defer span.End()

	outcome, err := s.process(ctx, msg, allowRetry)

	metrics.RecordMessageProcessed(string(outcome), time.Since(start))
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if outcome == Failed {
		span.SetStatus(codes.Error, "message failed")
	}
	return outcome, err
}

func (s *Service) process(ctx context.Context, msg entity.Message, allowRetry bool) (Outcome, error) {
	logger := logging.FromContext(ctx).With(slog.Int64("message_id", msg.ID))

	if err := ctx.Err(); err != nil {
		return Skipped, err
	}

	l, acquired, err := s.leases.Acquire(ctx, LockKey(msg.ID), s.cfg.LockTTL)
	if err != nil {
		if ctx.Err() != nil {
			return Skipped, ctx.Err()
		}
		logger.WarnContext(ctx, "lease unavailable, skipping message", slog.String("error", err.Error()))
		return Skipped, nil
	}
	if !acquired {
		logger.DebugContext(ctx, "message held by another worker")
		return Skipped, nil
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("lease release failed", slog.String("error", err.Error()))
		}
	}()

	g, err := s.alreadyHandled(ctx, msg.ID, allowRetry)
	if err != nil {
		if ctx.Err() != nil {
			return Skipped, ctx.Err()
		}
		// nothing is written: the id may already hold an article
		logger.WarnContext(ctx, "ledger unavailable, skipping message", slog.String("error", err.Error()))
		return Skipped, nil
	}
	if g == handled {
		return Skipped, nil
	}
	if g == retry {
		logger.InfoContext(ctx, "retrying previously failed message")
	}

	return s.handle(ctx, logger, msg)
}

type gate int

const (
	fresh gate = iota
	retry
	handled
)

// alreadyHandled checks the processed set. On the retry path a processed id
// whose failure record has not expired yet is let through again.
func (s *Service) alreadyHandled(ctx context.Context, id int64, allowRetry bool) (gate, error) {
	processed, err := s.repos.Ledger.IsProcessed(ctx, id)
	if err != nil {
		return handled, err
	}
	if !processed {
		return fresh, nil
	}
	if !allowRetry {
		return handled, nil
	}
	active, err := s.repos.Failures.Active(ctx, id)
	if err != nil {
		return handled, err
	}
	if active {
		return retry, nil
	}
	return handled, nil
}

func (s *Service) handle(ctx context.Context, logger *slog.Logger, msg entity.Message) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "panic while processing message", slog.Any("panic", r))
			outcome, err = s.fail(ctx, logger, msg.ID, reasonPanic, fmt.Errorf("panic: %v", r)), nil
		}
	}()

	sourceURL := linkextract.Extract(msg.Text, msg.Entities)
	if sourceURL == "" {
		if err := s.repos.Ledger.MarkProcessed(ctx, msg.ID, entity.StatusSkippedNoURL); err != nil {
			return s.fail(ctx, logger, msg.ID, reasonStore, err), nil
		}
		logger.DebugContext(ctx, "message has no link, skipped")
		return Skipped, nil
	}

	input := s.summaryInput(ctx, logger, msg.Text, sourceURL)
	summary, err := s.summarizer.Summarize(ctx, input, sourceURL)
	if err != nil {
		if ctx.Err() != nil {
			return Skipped, ctx.Err()
		}
		return s.fail(ctx, logger, msg.ID, reasonSummarize, err), nil
	}
	if err := summary.Validate(s.cfg.Rules); err != nil {
		return s.fail(ctx, logger, msg.ID, reasonValidation, err), nil
	}

	headline := entity.NormalizeHeadline(summary.Headline)
	if headline == "" {
		return s.fail(ctx, logger, msg.ID, reasonValidation,
			&entity.ValidationError{Field: "headline", Message: "headline is empty after normalization"}), nil
	}

	apiID, err := s.repos.Counter.NextAPIID(ctx)
	if err != nil {
		return s.fail(ctx, logger, msg.ID, reasonStore, fmt.Errorf("next api id: %w", err)), nil
	}

	article := entity.Article{
		ID:       msg.ID,
		APIID:    apiID,
		Headline: headline,
		Body:     entity.SanitizeBody(summary.Body, s.cfg.MaxBodyRunes),
		Source:   sourceURL,
		Date:     time.Now().UTC(),
		Status:   entity.ArticleStatusSummarized,
	}
	if err := s.repos.Committer.CommitArticle(ctx, article, s.cfg.MaxArticles); err != nil {
		return s.fail(ctx, logger, msg.ID, reasonStore, fmt.Errorf("commit article: %w", err)), nil
	}

	if n, err := s.repos.Articles.Count(ctx); err == nil {
		metrics.UpdateArticlesCached(n)
	}
	logger.InfoContext(ctx, "article stored",
		slog.Int64("api_id", apiID),
		slog.String("source", sourceURL))
	return Stored, nil
}

// summaryInput appends the linked page text to short posts when a fetcher is
// configured, then bounds the result.
func (s *Service) summaryInput(ctx context.Context, logger *slog.Logger, body, sourceURL string) string {
	input := strings.TrimSpace(body)
	if s.fetcher != nil && text.CountRunes(input) < s.cfg.FetchThreshold {
		start := time.Now()
		page, err := s.fetcher.FetchContent(ctx, sourceURL)
		switch {
		case err != nil:
			metrics.RecordContentFetchFailed(time.Since(start))
			logger.DebugContext(ctx, "linked page fetch failed, using post text only",
				slog.String("error", err.Error()))
		case strings.TrimSpace(page) != "":
			metrics.RecordContentFetchSuccess(time.Since(start))
			input = input + "\n\n" + strings.TrimSpace(page)
		}
	} else if s.fetcher != nil {
		metrics.RecordContentFetchSkipped()
	}
	return text.Truncate(input, s.cfg.SummaryInputMaxChars)
}

// fail writes the failure record and marks the id processed. Write errors
// are logged and the outcome stays Failed.
func (s *Service) fail(ctx context.Context, logger *slog.Logger, id int64, reason string, cause error) Outcome {
	metrics.RecordProcessingFailure(reason)
	detail := text.Truncate(reason+": "+respond.SanitizeError(cause), maxReasonRunes)

	var vErr *entity.ValidationError
	if errors.As(cause, &vErr) {
		logger.WarnContext(ctx, "summary rejected", slog.String("field", vErr.Field), slog.String("reason", vErr.Message))
	} else {
		logger.WarnContext(ctx, "message processing failed", slog.String("reason", reason), slog.String("error", detail))
	}

	writeCtx := context.WithoutCancel(ctx)
	if err := s.repos.Failures.Record(writeCtx, id, detail, s.cfg.FailureTTL); err != nil {
		logger.ErrorContext(ctx, "failed to write failure record", slog.String("error", err.Error()))
	}
	if err := s.repos.Ledger.MarkProcessed(writeCtx, id, entity.StatusFailed); err != nil {
		logger.ErrorContext(ctx, "failed to mark message processed", slog.String("error", err.Error()))
	}
	return Failed
}
