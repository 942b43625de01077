package retry

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   5 * time.Millisecond,
		MaxDelay:       50 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

func TestWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_SuccessAfterRetry(t *testing.T) {
	attempts := 0
	err := WithBackoff(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return &HTTPError{StatusCode: 503, Message: "unavailable"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithBackoff_MaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	testErr := &HTTPError{StatusCode: 500, Message: "Server Error"}

	err := WithBackoff(context.Background(), fastConfig(), func() error {
		attempts++
		return testErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorIs(t, err, testErr)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestWithBackoff_NonRetryableError(t *testing.T) {
	attempts := 0
	testErr := errors.New("bad request")

	err := WithBackoff(context.Background(), fastConfig(), func() error {
		attempts++
		return testErr
	})

	assert.Equal(t, testErr, err)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	cfg := fastConfig()
	cfg.InitialDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithBackoff(ctx, cfg, func() error {
		attempts++
		cancel()
		return &HTTPError{StatusCode: 502}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWithBackoff_HonorsRetryAfterCappedAtMaxDelay(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 2
	cfg.MaxDelay = 30 * time.Millisecond

	start := time.Now()
	attempts := 0
	err := WithBackoff(context.Background(), cfg, func() error {
		attempts++
		if attempts == 1 {
			return &HTTPError{StatusCode: 429, Message: "FLOOD_WAIT", Wait: time.Hour}
		}
		return nil
	})

	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

type tempErr bool

func (e tempErr) Error() string   { return "temp" }
func (e tempErr) Temporary() bool { return bool(e) }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("x"), want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline wrapped", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: false},
		{name: "conn refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "conn reset", err: syscall.ECONNRESET, want: true},
		{name: "500", err: &HTTPError{StatusCode: 500}, want: true},
		{name: "429", err: &HTTPError{StatusCode: 429}, want: true},
		{name: "408", err: &HTTPError{StatusCode: 408}, want: true},
		{name: "404", err: &HTTPError{StatusCode: 404}, want: false},
		{name: "temporary marker", err: fmt.Errorf("w: %w", tempErr(true)), want: true},
		{name: "permanent marker", err: tempErr(false), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: 502, Message: "bad gateway"}
	assert.Equal(t, "HTTP 502: bad gateway", err.Error())
}

func TestAddJitter(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		got := addJitter(base, 0.5)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/2)
	}
	assert.Equal(t, base, addJitter(base, 0))
}

func TestPresetConfigs(t *testing.T) {
	for name, cfg := range map[string]Config{
		"default":   DefaultConfig(),
		"channel":   ChannelConfig(),
		"ai":        AIAPIConfig(),
		"scraper":   WebScraperConfig(),
		"pricefeed": PriceFeedConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Positive(t, cfg.MaxAttempts)
			assert.Positive(t, cfg.InitialDelay)
			assert.GreaterOrEqual(t, cfg.MaxDelay, cfg.InitialDelay)
			assert.GreaterOrEqual(t, cfg.Multiplier, 1.0)
		})
	}
}
