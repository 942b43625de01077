package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/resilience/retry"
)

// LazyConfig tunes Lazy.
type LazyConfig struct {
	// RequestsPerSecond throttles calls to the channel API. Zero disables
	// throttling.
	RequestsPerSecond float64
	Burst             int
	Retry             retry.Config
}

// DefaultLazyConfig returns settings that stay well inside the channel API
// flood limits.
func DefaultLazyConfig() LazyConfig {
	return LazyConfig{
		RequestsPerSecond: 2,
		Burst:             4,
		Retry:             retry.ChannelConfig(),
	}
}

// Lazy is a Client that dials on first use and redials when a call reports
// ErrDisconnected. It is safe for concurrent use.
type Lazy struct {
	dialer  Dialer
	limiter *rate.Limiter
	retry   retry.Config

	mu   sync.Mutex
	conn Conn
}

// NewLazy creates a Lazy client. No connection is made until the first call.
func NewLazy(dialer Dialer, cfg LazyConfig) *Lazy {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.ChannelConfig()
	}
	return &Lazy{
		dialer:  dialer,
		limiter: rate.NewLimiter(limit, burst),
		retry:   cfg.Retry,
	}
}

// reconnectError marks a dropped session as worth another attempt.
type reconnectError struct{ err error }

func (e *reconnectError) Error() string   { return e.err.Error() }
func (e *reconnectError) Unwrap() error   { return e.err }
func (e *reconnectError) Temporary() bool { return true }

func (l *Lazy) session(ctx context.Context) (Conn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return l.conn, nil
	}
	start := time.Now()
	conn, err := l.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial channel: %w", err)
	}
	slog.Info("channel connected", slog.Duration("duration", time.Since(start)))
	l.conn = conn
	return conn, nil
}

// drop forgets conn if it is still the current session.
func (l *Lazy) drop(conn Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != conn {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Debug("closing dropped channel session", slog.Any("error", err))
	}
	l.conn = nil
	slog.Warn("channel session dropped, will reconnect")
}

func (l *Lazy) do(ctx context.Context, op string, fn func(Conn) error) error {
	err := retry.WithBackoff(ctx, l.retry, func() error {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
		conn, err := l.session(ctx)
		if err != nil {
			if errors.Is(err, ErrDisconnected) {
				return &reconnectError{err: err}
			}
			return err
		}
		err = fn(conn)
		if errors.Is(err, ErrDisconnected) {
			l.drop(conn)
			return &reconnectError{err: err}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("channel %s: %w", op, err)
	}
	return nil
}

// Connect establishes the session eagerly.
func (l *Lazy) Connect(ctx context.Context) error {
	_, err := l.session(ctx)
	return err
}

func (l *Lazy) FetchHistory(ctx context.Context, req FetchRequest) ([]entity.Message, error) {
	var out []entity.Message
	err := l.do(ctx, "fetch history", func(c Conn) error {
		msgs, err := c.FetchHistory(ctx, req)
		out = msgs
		return err
	})
	return out, err
}

func (l *Lazy) FetchByIDs(ctx context.Context, ids []int64) ([]entity.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []entity.Message
	err := l.do(ctx, "fetch by ids", func(c Conn) error {
		msgs, err := c.FetchByIDs(ctx, ids)
		out = msgs
		return err
	})
	return out, err
}

func (l *Lazy) LatestID(ctx context.Context) (int64, error) {
	var id int64
	err := l.do(ctx, "latest id", func(c Conn) error {
		v, err := c.LatestID(ctx)
		id = v
		return err
	})
	return id, err
}

// Close tears down the current session, if any.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	return err
}

var _ Client = (*Lazy)(nil)
