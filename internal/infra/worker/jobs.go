package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"channel-digest/internal/handler/http/respond"
	"channel-digest/internal/usecase/poll"
)

// CycleRunner runs one poll cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (poll.CycleStats, error)
}

// PriceRefresher refreshes the price snapshot.
type PriceRefresher interface {
	Refresh(ctx context.Context) error
}

// Jobs adapts the poll scheduler and price service to cron entries. Each
// job derives its context from the worker's root context so shutdown
// cancels in-flight work.
type Jobs struct {
	root    context.Context
	logger  *slog.Logger
	metrics *WorkerMetrics
	timeout time.Duration
}

// NewJobs creates job adapters. timeout bounds price refreshes.
func NewJobs(root context.Context, logger *slog.Logger, metrics *WorkerMetrics, timeout time.Duration) *Jobs {
	return &Jobs{root: root, logger: logger, metrics: metrics, timeout: timeout}
}

// Cycle returns a cron job running one poll cycle.
func (j *Jobs) Cycle(runner CycleRunner) cron.Job {
	return cron.FuncJob(func() {
		start := time.Now()
		stats, err := runner.RunCycle(j.root)
		j.RecordCycle(stats, err, time.Since(start))
	})
}

// RecordCycle logs and records the result of one cycle.
func (j *Jobs) RecordCycle(stats poll.CycleStats, err error, elapsed time.Duration) {
	switch {
	case errors.Is(err, poll.ErrCycleInProgress):
		j.metrics.RecordCycleRun("skipped")
		j.logger.Warn("previous cycle still running, skipping tick")
		return
	case err != nil:
		j.metrics.RecordCycleRun("failure")
		j.metrics.RecordCycleDuration(elapsed.Seconds())
		j.logger.Error("poll cycle failed",
			slog.String("cycle_id", stats.CycleID),
			slog.String("error", respond.SanitizeError(err)))
		return
	}

	j.metrics.RecordCycleRun("success")
	j.metrics.RecordCycleDuration(elapsed.Seconds())
	j.metrics.RecordArticlesStored(stats.Stored)
	j.metrics.SetHighWaterMark(stats.HighWaterMark)
	j.metrics.RecordLastSuccess()
}

// Price returns a cron job refreshing prices.
func (j *Jobs) Price(refresher PriceRefresher) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(j.root, j.timeout)
		defer cancel()
		if err := refresher.Refresh(ctx); err != nil {
			j.metrics.RecordPriceJob("failure")
			j.logger.Error("price refresh failed", slog.String("error", respond.SanitizeError(err)))
			return
		}
		j.metrics.RecordPriceJob("success")
	})
}

// CronLogger adapts slog to cron.Logger.
type CronLogger struct {
	Logger *slog.Logger
}

func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Debug("cron: "+msg, keysAndValues...)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Error("cron: "+msg, append([]interface{}{slog.Any("error", err)}, keysAndValues...)...)
}

// NewCron creates a cron scheduler in loc whose jobs recover from panics
// and skip a tick while the previous run of the same entry is still going.
func NewCron(loc *time.Location, logger *slog.Logger) *cron.Cron {
	cl := CronLogger{Logger: logger}
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}
