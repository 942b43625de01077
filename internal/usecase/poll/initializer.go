package poll

import (
	"context"
	"fmt"
	"log/slog"

	"channel-digest/internal/infra/channel"
	"channel-digest/internal/repository"
)

// Pinger checks cache connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Initializer seeds the system before steady-state polling starts. Any
// error it returns must abort startup.
type Initializer struct {
	Channel   channel.Client
	Cache     Pinger
	Counter   repository.CounterRepository
	Failures  repository.FailureRepository
	Scheduler *Scheduler
	// APIIDStart seeds the API-ID counter when it does not exist yet.
	APIIDStart int64
}

// Run connects, ensures the API-ID counter, rebuilds the retry queue and
// runs one full cycle synchronously.
func (i *Initializer) Run(ctx context.Context) (CycleStats, error) {
	if err := i.Cache.Ping(ctx); err != nil {
		return CycleStats{}, fmt.Errorf("cold start: cache unreachable: %w", err)
	}
	if err := i.Channel.Connect(ctx); err != nil {
		return CycleStats{}, fmt.Errorf("cold start: channel connect: %w", err)
	}

	created, err := i.Counter.EnsureAPIID(ctx, i.APIIDStart)
	if err != nil {
		return CycleStats{}, fmt.Errorf("cold start: ensure api id counter: %w", err)
	}
	if created {
		slog.Info("api id counter initialized", slog.Int64("start", i.APIIDStart))
	}

	queued, err := i.Failures.Rebuild(ctx)
	if err != nil {
		return CycleStats{}, fmt.Errorf("cold start: rebuild retry queue: %w", err)
	}
	slog.Info("retry queue rebuilt", slog.Int("queued", queued))

	stats, err := i.Scheduler.RunCycle(ctx)
	if err != nil {
		return stats, fmt.Errorf("cold start: seed cycle: %w", err)
	}
	slog.Info("cold start completed",
		slog.Int("stored", stats.Stored),
		slog.Int64("hwm", stats.HighWaterMark))
	return stats, nil
}
