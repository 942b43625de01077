package channel_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/channel"
	"channel-digest/internal/resilience/retry"
)

func fastLazyConfig() channel.LazyConfig {
	return channel.LazyConfig{
		Retry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

type countingDialer struct {
	dials atomic.Int32
	conns []*channel.Static
	err   error
}

func (d *countingDialer) Dial(context.Context) (channel.Conn, error) {
	n := d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.conns[int(n)-1], nil
}

func msgs(ids ...int64) []entity.Message {
	out := make([]entity.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.Message{ID: id, Text: "m"})
	}
	return out
}

func TestLazy_DialsOnFirstUse(t *testing.T) {
	d := &countingDialer{conns: []*channel.Static{channel.NewStatic(msgs(1, 2, 3)...)}}
	c := channel.NewLazy(d, fastLazyConfig())

	assert.Equal(t, int32(0), d.dials.Load())

	latest, err := c.LatestID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest)

	_, err = c.FetchHistory(context.Background(), channel.FetchRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(1), d.dials.Load())
}

func TestLazy_ReconnectsAfterDisconnect(t *testing.T) {
	first := channel.NewStatic(msgs(1, 2)...)
	first.FailNext(channel.ErrDisconnected)
	second := channel.NewStatic(msgs(1, 2, 5)...)
	d := &countingDialer{conns: []*channel.Static{first, second}}
	c := channel.NewLazy(d, fastLazyConfig())

	latest, err := c.LatestID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), latest)
	assert.Equal(t, int32(2), d.dials.Load())
	assert.True(t, first.Closed())
}

func TestLazy_RetriesFloodWait(t *testing.T) {
	conn := channel.NewStatic(msgs(4)...)
	conn.FailNext(&retry.HTTPError{StatusCode: 429, Message: "FLOOD_WAIT_1", Wait: time.Millisecond})
	c := channel.NewLazy(&countingDialer{conns: []*channel.Static{conn}}, fastLazyConfig())

	got, err := c.FetchByIDs(context.Background(), []int64{4, 9})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, 2, conn.Calls())
}

func TestLazy_PermanentErrorIsNotRetried(t *testing.T) {
	conn := channel.NewStatic()
	boom := errors.New("CHANNEL_PRIVATE")
	conn.FailNext(boom)
	c := channel.NewLazy(&countingDialer{conns: []*channel.Static{conn}}, fastLazyConfig())

	_, err := c.FetchHistory(context.Background(), channel.FetchRequest{Limit: 5})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, conn.Calls())
}

func TestLazy_DialFailure(t *testing.T) {
	d := &countingDialer{err: errors.New("auth failed")}
	c := channel.NewLazy(d, fastLazyConfig())

	err := c.Connect(context.Background())

	assert.ErrorContains(t, err, "auth failed")
}

func TestLazy_FetchByIDsEmpty(t *testing.T) {
	d := &countingDialer{}
	c := channel.NewLazy(d, fastLazyConfig())

	got, err := c.FetchByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(0), d.dials.Load())
}
