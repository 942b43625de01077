package bootstrap_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-digest/internal/bootstrap"
	"channel-digest/internal/config"
	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/cache"
	"channel-digest/internal/infra/channel"
	"channel-digest/internal/infra/summarizer"
)

func localApp() config.App {
	return config.App{
		LogLevel:   "info",
		Cache:      config.CacheConfig{Driver: "memory", Prefix: "test:"},
		Channel:    config.ChannelConfig{Driver: "static"},
		Summarizer: config.SummarizerConfig{Type: "noop"},
		Pipeline: config.PipelineConfig{
			MaxArticles:          50,
			FetchBatchSize:       50,
			LockTTL:              2 * time.Minute,
			FailureTTL:           6 * time.Hour,
			RetryQueueMax:        500,
			MinBodyChars:         200,
			MinBodyWords:         30,
			SummaryInputMaxChars: 4000,
			APIIDStart:           1000,
		},
	}
}

func TestNewPipeline_ColdStart(t *testing.T) {
	ctx := context.Background()
	text := "Harbour reopens. " + strings.Repeat("ships queue outside the port waiting for berths ", 6) +
		"https://news.example/p/7"
	ch := channel.NewStatic(
		entity.Message{ID: 6, Text: "Good morning!"},
		entity.Message{ID: 7, Text: text},
	)

	p, err := bootstrap.NewPipeline(ctx, localApp(), bootstrap.Options{Channel: ch})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	stats, err := p.Initializer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stored)
	assert.Equal(t, int64(7), stats.HighWaterMark)

	articles, err := p.Articles.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, int64(1001), articles[0].APIID)
	assert.Equal(t, "Harbour reopens", articles[0].Headline)
	assert.Equal(t, "https://news.example/p/7", articles[0].Source)

	st, err := p.Articles.Status(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSkippedNoURL, st.Status)
}

func TestNewPipeline_ConfiguredDrivers(t *testing.T) {
	p, err := bootstrap.NewPipeline(context.Background(), localApp(), bootstrap.Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.IsType(t, &cache.Memory{}, p.Store)
	assert.IsType(t, &channel.Static{}, p.Channel)
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := bootstrap.OpenStore(context.Background(), config.CacheConfig{
		Driver:   "redis",
		RedisURL: "redis://" + mr.Addr(),
	})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "k", "v", 0))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestOpenStore_BadURL(t *testing.T) {
	_, err := bootstrap.OpenStore(context.Background(), config.CacheConfig{Driver: "redis", RedisURL: "::nope"})
	assert.Error(t, err)
}

func TestNewChannel_MissingCredentials(t *testing.T) {
	t.Setenv("TG_API_ID", "")

	_, err := bootstrap.NewChannel(config.ChannelConfig{Driver: "tdlib", Username: "news"})
	assert.ErrorIs(t, err, config.ErrMissingSetting)
}

func TestNewChannel_Lazy(t *testing.T) {
	t.Setenv("TG_API_ID", "12345")
	t.Setenv("TG_API_HASH", "abcdef")

	ch, err := bootstrap.NewChannel(config.ChannelConfig{Driver: "tdlib", Username: "news", StateDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &channel.Lazy{}, ch)
}

func TestNewSummarizer(t *testing.T) {
	tests := []struct {
		typ  string
		want any
	}{
		{"noop", &summarizer.NoOp{}},
		{"claude", &summarizer.Claude{}},
		{"openai", &summarizer.OpenAI{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			s, err := bootstrap.NewSummarizer(config.SummarizerConfig{Type: tt.typ, APIKey: "k"})
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestNewSummarizer_BadConfig(t *testing.T) {
	t.Setenv("SUMMARIZER_TIMEOUT", "soon")

	_, err := bootstrap.NewSummarizer(config.SummarizerConfig{Type: "claude", APIKey: "k"})
	assert.Error(t, err)
}
