package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/handler/http/requestid"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger_UsesEnvLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.True(t, NewLogger().Enabled(context.Background(), slog.LevelDebug))

	t.Setenv("LOG_LEVEL", "")
	assert.False(t, NewLogger().Enabled(context.Background(), slog.LevelDebug))
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, false)

	logger.Debug("hidden")
	logger.Info("cycle finished", slog.Int("stored", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cycle finished", entry["msg"])
	assert.Equal(t, float64(3), entry["stored"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelInfo, true).Info("hello", slog.String("k", "v"))

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, slog.LevelInfo, false)

	ctx := requestid.WithRequestID(context.Background(), "req-123")
	WithRequestID(ctx, base).Info("handled")

	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestWithRequestID_Empty(t *testing.T) {
	base := New(&bytes.Buffer{}, slog.LevelInfo, false)
	assert.Same(t, base, WithRequestID(context.Background(), base))
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	logger := New(&bytes.Buffer{}, slog.LevelInfo, false)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
