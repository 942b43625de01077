// Package poll drives the ingest loop: each cycle backfills history while
// the cache is under capacity, fetches messages above the high-water mark,
// retries recently failed ids and then advances the mark.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/channel"
	"channel-digest/internal/observability/logging"
	"channel-digest/internal/observability/metrics"
	"channel-digest/internal/observability/tracing"
	"channel-digest/internal/repository"
	"channel-digest/internal/usecase/process"
)

var (
	// ErrCycleInProgress is returned when RunCycle is called while another
	// cycle is still running. The call does not wait.
	ErrCycleInProgress = errors.New("poll: cycle already in progress")

	// ErrCyclePanic wraps a panic recovered at the cycle boundary.
	ErrCyclePanic = errors.New("poll: cycle panicked")
)

// Processor handles one message. Retry is used only for ids taken from the
// retry queue.
type Processor interface {
	Process(ctx context.Context, msg entity.Message) (process.Outcome, error)
	Retry(ctx context.Context, msg entity.Message) (process.Outcome, error)
}

// Config holds the cycle sizing.
type Config struct {
	MaxArticles    int
	FetchBatchSize int
	// CycleTimeout bounds one cycle. Zero means no bound.
	CycleTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxArticles:    50,
		FetchBatchSize: 50,
		CycleTimeout:   10 * time.Minute,
	}
}

// CycleStats summarizes one cycle.
type CycleStats struct {
	CycleID       string
	Backfilled    int
	Forwarded     int
	Retried       int
	Stored        int
	Skipped       int
	Failed        int
	FetchErrors   int
	HighWaterMark int64
	HWMAdvanced   bool
	Duration      time.Duration
}

func (s *CycleStats) count(o process.Outcome) {
	switch o {
	case process.Stored:
		s.Stored++
	case process.Skipped:
		s.Skipped++
	case process.Failed:
		s.Failed++
	}
}

// Scheduler runs poll cycles. RunCycle is safe to call from several
// goroutines; overlapping calls are rejected, not queued.
type Scheduler struct {
	channel   channel.Client
	processor Processor
	articles  repository.ArticleRepository
	failures  repository.FailureRepository
	cursor    repository.CursorRepository
	cfg       Config
	now       func() time.Time

	running atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used to select unexpired retry candidates.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a scheduler.
func NewScheduler(
	ch channel.Client,
	processor Processor,
	articles repository.ArticleRepository,
	failures repository.FailureRepository,
	cursor repository.CursorRepository,
	cfg Config,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		channel:   ch,
		processor: processor,
		articles:  articles,
		failures:  failures,
		cursor:    cursor,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Running reports whether a cycle is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunCycle executes one cycle. Channel errors are logged and the cycle
// continues with what it has; cache errors reading the cursor, context
// cancellation and panics end the cycle with an error.
func (s *Scheduler) RunCycle(ctx context.Context) (stats CycleStats, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return CycleStats{}, ErrCycleInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	stats.CycleID = uuid.NewString()
	logger := logging.FromContext(ctx).With(slog.String("cycle_id", stats.CycleID))
	ctx = logging.WithLogger(ctx, logger)

	if s.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CycleTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "poll.cycle", attribute.String("cycle.id", stats.CycleID))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("poll cycle panicked", slog.Any("panic", r))
			err = fmt.Errorf("%w: %v", ErrCyclePanic, r)
		}
		stats.Duration = time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.Int("cycle.stored", stats.Stored),
			attribute.Int("cycle.failed", stats.Failed),
			attribute.Int64("cycle.hwm", stats.HighWaterMark),
		)
	}()

	logger.Info("poll cycle started")

	hwm, err := s.cursor.HighWaterMark(ctx)
	if err != nil {
		return stats, fmt.Errorf("read high-water mark: %w", err)
	}
	stats.HighWaterMark = hwm

	c := &cycle{Scheduler: s, stats: &stats, logger: logger}

	if err := c.backfill(ctx, hwm); err != nil {
		return stats, err
	}
	if err := c.forward(ctx, hwm); err != nil {
		return stats, err
	}
	if err := c.advance(ctx, hwm); err != nil {
		return stats, err
	}

	logger.Info("poll cycle completed",
		slog.Int("backfilled", stats.Backfilled),
		slog.Int("forwarded", stats.Forwarded),
		slog.Int("retried", stats.Retried),
		slog.Int("stored", stats.Stored),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int("fetch_errors", stats.FetchErrors),
		slog.Int64("hwm", stats.HighWaterMark),
		slog.Duration("duration", time.Since(start)))
	return stats, nil
}

// cycle holds the per-run state.
type cycle struct {
	*Scheduler
	stats  *CycleStats
	logger *slog.Logger
	// highest id that ended stored or skipped
	maxHandled int64
	// the latest batch was read; only then may the mark jump to the
	// channel's latest id
	forwardOK bool
}

func (c *cycle) fetchFailed(op string, err error) {
	c.stats.FetchErrors++
	c.logger.Warn("channel request failed, continuing with partial results",
		slog.String("operation", op),
		slog.String("error", err.Error()))
}

func (c *cycle) handle(ctx context.Context, msg entity.Message, retry bool) (process.Outcome, error) {
	run := c.processor.Process
	if retry {
		run = c.processor.Retry
	}
	outcome, err := run(ctx, msg)
	if err != nil {
		return outcome, err
	}
	c.stats.count(outcome)
	if (outcome == process.Stored || outcome == process.Skipped) && msg.ID > c.maxHandled {
		c.maxHandled = msg.ID
	}
	return outcome, nil
}

// backfill fills the cache with older history while under capacity,
// oldest first.
func (c *cycle) backfill(ctx context.Context, hwm int64) error {
	count, err := c.articles.Count(ctx)
	if err != nil {
		c.logger.Warn("article count unavailable, skipping backfill", slog.String("error", err.Error()))
		return nil
	}
	metrics.UpdateArticlesCached(count)
	if count >= c.cfg.MaxArticles {
		return nil
	}

	offset := hwm + 1
	if count > 0 {
		if offset, err = c.articles.OldestID(ctx); err != nil {
			c.logger.Warn("oldest id unavailable, skipping backfill", slog.String("error", err.Error()))
			return nil
		}
	}
	if offset <= 1 {
		return nil
	}

	msgs, err := c.channel.FetchHistory(ctx, channel.FetchRequest{
		OffsetID:  offset,
		Limit:     c.cfg.FetchBatchSize,
		Direction: channel.Older,
	})
	metrics.RecordChannelRequest("history", err)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.fetchFailed("backfill", err)
		return nil
	}
	metrics.RecordMessagesFetched("backfill", len(msgs))

	candidates := msgs[:0:0]
	for _, m := range msgs {
		if m.ID < offset {
			candidates = append(candidates, m)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	c.logger.Debug("backfill candidates", slog.Int64("below", offset), slog.Int("count", len(candidates)))
	for _, m := range candidates {
		if count >= c.cfg.MaxArticles {
			break
		}
		outcome, err := c.handle(ctx, m, false)
		if err != nil {
			return err
		}
		c.stats.Backfilled++
		if outcome == process.Stored {
			count++
		}
	}
	return nil
}

// forward processes new messages above hwm together with queued retries,
// newest first.
func (c *cycle) forward(ctx context.Context, hwm int64) error {
	var (
		latest, retries       []entity.Message
		latestErr, retriesErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		latest, latestErr = c.channel.FetchHistory(gctx, channel.FetchRequest{
			Limit:     c.cfg.FetchBatchSize,
			Direction: channel.Older,
		})
		metrics.RecordChannelRequest("history", latestErr)
		return ctx.Err()
	})
	g.Go(func() error {
		ids, err := c.failures.RetryCandidates(gctx, hwm, c.now())
		if err != nil || len(ids) == 0 {
			retriesErr = err
			return ctx.Err()
		}
		retries, retriesErr = c.channel.FetchByIDs(gctx, ids)
		metrics.RecordChannelRequest("by_ids", retriesErr)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if latestErr != nil {
		c.fetchFailed("forward", latestErr)
		latest = nil
	} else {
		c.forwardOK = true
		metrics.RecordMessagesFetched("forward", len(latest))
	}
	if retriesErr != nil {
		c.fetchFailed("retry", retriesErr)
		retries = nil
	} else {
		metrics.RecordMessagesFetched("retry", len(retries))
	}

	seen := make(map[int64]bool, len(latest)+len(retries))
	retryIDs := make(map[int64]bool, len(retries))
	var candidates []entity.Message
	for _, m := range latest {
		if m.ID > hwm && !seen[m.ID] {
			seen[m.ID] = true
			candidates = append(candidates, m)
		}
	}
	for _, m := range retries {
		retryIDs[m.ID] = true
		if m.ID > hwm && !seen[m.ID] {
			seen[m.ID] = true
			candidates = append(candidates, m)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID > candidates[j].ID })

	for _, m := range candidates {
		if _, err := c.handle(ctx, m, retryIDs[m.ID]); err != nil {
			return err
		}
		if retryIDs[m.ID] {
			c.stats.Retried++
		} else {
			c.stats.Forwarded++
		}
	}
	return nil
}

// advance moves the mark to the highest id accounted for.
func (c *cycle) advance(ctx context.Context, hwm int64) error {
	next := max(hwm, c.maxHandled)
	if !c.forwardOK {
		return c.store(ctx, hwm, next)
	}

	latestID, err := c.channel.LatestID(ctx)
	metrics.RecordChannelRequest("latest", err)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.fetchFailed("latest", err)
	} else {
		next = max(next, latestID)
	}
	return c.store(ctx, hwm, next)
}

func (c *cycle) store(ctx context.Context, hwm, next int64) error {
	if next <= hwm {
		return nil
	}
	advanced, err := c.cursor.AdvanceHighWaterMark(ctx, next)
	if err != nil {
		return fmt.Errorf("advance high-water mark: %w", err)
	}
	c.stats.HWMAdvanced = advanced
	if advanced {
		c.stats.HighWaterMark = next
		c.logger.Info("high-water mark advanced", slog.Int64("from", hwm), slog.Int64("to", next))
	}
	return nil
}
