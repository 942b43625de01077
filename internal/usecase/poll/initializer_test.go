package poll_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/usecase/poll"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestInitializer_Run(t *testing.T) {
	f := newFixture(t, poll.DefaultConfig(), plain(10), linked(11), linked(12))
	ctx := context.Background()
	require.NoError(t, f.repos.Failures.Record(ctx, 30, "summarize: timeout", time.Hour))

	in := &poll.Initializer{
		Channel:    f.ch,
		Cache:      f.store,
		Counter:    f.repos.Counter,
		Failures:   f.repos.Failures,
		Scheduler:  f.scheduler,
		APIIDStart: 5000,
	}
	stats, err := in.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Stored)
	assert.Equal(t, []int64{12, 11}, articleIDs(t, f))

	// the counter already existed, so ids continue from it
	a, err := f.repos.Articles.GetByAPIID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, int64(12), a.ID)
}

func TestInitializer_CacheUnreachable(t *testing.T) {
	f := newFixture(t, poll.DefaultConfig(), linked(11))

	in := &poll.Initializer{
		Channel:   f.ch,
		Cache:     pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		Counter:   f.repos.Counter,
		Failures:  f.repos.Failures,
		Scheduler: f.scheduler,
	}
	_, err := in.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache unreachable")
	assert.Zero(t, f.ch.Calls())
}

func TestInitializer_PropagatesCycleError(t *testing.T) {
	f := newFixture(t, poll.DefaultConfig(), linked(11))
	f.sum.started = make(chan struct{}, 1)
	f.sum.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.scheduler.RunCycle(context.Background())
		done <- err
	}()
	<-f.sum.started

	in := &poll.Initializer{
		Channel:   f.ch,
		Cache:     f.store,
		Counter:   f.repos.Counter,
		Failures:  f.repos.Failures,
		Scheduler: f.scheduler,
	}
	_, err := in.Run(context.Background())
	assert.ErrorIs(t, err, poll.ErrCycleInProgress)

	close(f.sum.release)
	require.NoError(t, <-done)
}
