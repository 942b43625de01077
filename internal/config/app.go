// Package config assembles the application configuration from the
// environment, an optional .env file and an optional YAML defaults file.
// Tunables fail open to their defaults; secrets and connection targets fail
// closed.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/infra/adapter/persistence/kv"
	pkgconfig "channel-digest/internal/pkg/config"
	"channel-digest/internal/usecase/poll"
	"channel-digest/internal/usecase/process"
)

// ErrMissingSetting is returned when a required setting is absent.
var ErrMissingSetting = errors.New("required setting missing")

// App is the configuration shared by the worker, the API and the CLI.
type App struct {
	LogLevel   string
	Cache      CacheConfig
	Channel    ChannelConfig
	Summarizer SummarizerConfig
	Pipeline   PipelineConfig
	HTTP       HTTPConfig
}

type CacheConfig struct {
	// Driver is "redis" or "memory". The memory store is process local and
	// only suits single-binary runs.
	Driver   string
	RedisURL string
	Prefix   string
}

type ChannelConfig struct {
	// Driver is "tdlib" or "static"; static serves an empty in-memory channel.
	Driver   string
	Username string
	StateDir string
}

type SummarizerConfig struct {
	// Type is "claude", "openai" or "noop".
	Type   string
	APIKey string
}

type PipelineConfig struct {
	MaxArticles          int
	FetchBatchSize       int
	LockTTL              time.Duration
	FailureTTL           time.Duration
	RetryQueueMax        int
	MinBodyChars         int
	MinBodyWords         int
	SummaryInputMaxChars int
	APIIDStart           int64
}

type HTTPConfig struct {
	Port      int
	RateLimit float64
	Burst     int
}

// Load reads the configuration for processes that run the pipeline. metrics
// may be nil. The error is non-nil only when a required setting is missing.
func Load(metrics *pkgconfig.Metrics) (App, error) {
	app := load(metrics)
	if err := app.requireCache(); err != nil {
		return App{}, err
	}
	if err := app.requireSecrets(); err != nil {
		return App{}, err
	}
	return app, nil
}

// LoadReadOnly reads the configuration for the read API, which only needs
// the cache.
func LoadReadOnly(metrics *pkgconfig.Metrics) (App, error) {
	app := load(metrics)
	if err := app.requireCache(); err != nil {
		return App{}, err
	}
	return app, nil
}

func load(metrics *pkgconfig.Metrics) App {
	c := pkgconfig.NewCollector(metrics)
	defProc := process.DefaultConfig()
	defPoll := poll.DefaultConfig()

	app := App{
		LogLevel: strings.ToLower(pkgconfig.Use(c, "log_level", pkgconfig.LoadString("LOG_LEVEL", "info", pkgconfig.OneOf("debug", "info", "warn", "error")))),
		Cache: CacheConfig{
			Driver:   strings.ToLower(pkgconfig.Use(c, "cache_driver", pkgconfig.LoadString("CACHE_DRIVER", "redis", pkgconfig.OneOf("redis", "memory")))),
			RedisURL: os.Getenv("REDIS_URL"),
			Prefix:   pkgconfig.Use(c, "cache_prefix", pkgconfig.LoadString("CACHE_PREFIX", kv.DefaultPrefix, nil)),
		},
		Channel: ChannelConfig{
			Driver:   strings.ToLower(pkgconfig.Use(c, "channel_driver", pkgconfig.LoadString("CHANNEL_DRIVER", "tdlib", pkgconfig.OneOf("tdlib", "static")))),
			Username: strings.TrimPrefix(strings.TrimSpace(os.Getenv("CHANNEL_USERNAME")), "@"),
			StateDir: pkgconfig.Use(c, "tg_state_dir", pkgconfig.LoadString("TG_STATE_DIR", ".tdlib", nil)),
		},
		Summarizer: SummarizerConfig{
			Type: strings.ToLower(pkgconfig.Use(c, "summarizer_type", pkgconfig.LoadString("SUMMARIZER_TYPE", "claude", pkgconfig.OneOf("claude", "openai", "noop")))),
		},
		Pipeline: PipelineConfig{
			MaxArticles:          pkgconfig.Use(c, "max_articles", pkgconfig.LoadInt("MAX_ARTICLES", defProc.MaxArticles, pkgconfig.IntRange(1, 10000))),
			FetchBatchSize:       pkgconfig.Use(c, "fetch_batch_size", pkgconfig.LoadInt("FETCH_BATCH_SIZE", defPoll.FetchBatchSize, pkgconfig.IntRange(1, 100))),
			LockTTL:              pkgconfig.Use(c, "lock_ttl", pkgconfig.LoadDuration("LOCK_TTL", defProc.LockTTL, pkgconfig.DurationRange(10*time.Second, time.Hour))),
			FailureTTL:           pkgconfig.Use(c, "failure_ttl", pkgconfig.LoadDuration("FAILURE_TTL", defProc.FailureTTL, pkgconfig.DurationRange(time.Minute, 7*24*time.Hour))),
			RetryQueueMax:        pkgconfig.Use(c, "retry_queue_max", pkgconfig.LoadInt("RETRY_QUEUE_MAX", kv.DefaultRetryQueueMax, pkgconfig.IntRange(1, 100000))),
			MinBodyChars:         pkgconfig.Use(c, "min_body_chars", pkgconfig.LoadInt("MIN_BODY_CHARS", defProc.Rules.MinBodyRunes, pkgconfig.IntRange(0, 5000))),
			MinBodyWords:         pkgconfig.Use(c, "min_body_words", pkgconfig.LoadInt("MIN_BODY_WORDS", defProc.Rules.MinBodyWords, pkgconfig.IntRange(0, 1000))),
			SummaryInputMaxChars: pkgconfig.Use(c, "summary_input_max_chars", pkgconfig.LoadInt("SUMMARY_INPUT_MAX_CHARS", defProc.SummaryInputMaxChars, pkgconfig.IntRange(100, 100000))),
			APIIDStart:           pkgconfig.Use(c, "api_id_start", pkgconfig.LoadInt64("API_ID_START", 1000, nonNegative)),
		},
		HTTP: HTTPConfig{
			Port:      pkgconfig.Use(c, "http_port", pkgconfig.LoadInt("HTTP_PORT", 8080, pkgconfig.IntRange(1, 65535))),
			RateLimit: pkgconfig.Use(c, "http_rate_limit", pkgconfig.LoadFloat("HTTP_RATE_LIMIT", 10, positiveFloat)),
			Burst:     pkgconfig.Use(c, "http_rate_burst", pkgconfig.LoadInt("HTTP_RATE_BURST", 20, pkgconfig.IntRange(1, 10000))),
		},
	}

	for _, w := range c.Warnings() {
		slog.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	c.Done()
	return app
}

func (a *App) requireCache() error {
	if a.Cache.Driver == "redis" && a.Cache.RedisURL == "" {
		return fmt.Errorf("%w: REDIS_URL is required when CACHE_DRIVER=redis", ErrMissingSetting)
	}
	return nil
}

func (a *App) requireSecrets() error {
	if a.Channel.Driver == "tdlib" && a.Channel.Username == "" {
		return fmt.Errorf("%w: CHANNEL_USERNAME is required when CHANNEL_DRIVER=tdlib", ErrMissingSetting)
	}
	switch a.Summarizer.Type {
	case "claude":
		a.Summarizer.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if a.Summarizer.APIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude", ErrMissingSetting)
		}
	case "openai":
		a.Summarizer.APIKey = os.Getenv("OPENAI_API_KEY")
		if a.Summarizer.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai", ErrMissingSetting)
		}
	}
	return nil
}

// ProcessConfig returns the processor settings. fetchThreshold comes from
// the content fetcher configuration.
func (p PipelineConfig) ProcessConfig(fetchThreshold int) process.Config {
	cfg := process.DefaultConfig()
	cfg.MaxArticles = p.MaxArticles
	cfg.LockTTL = p.LockTTL
	cfg.FailureTTL = p.FailureTTL
	cfg.SummaryInputMaxChars = p.SummaryInputMaxChars
	cfg.Rules = entity.SummaryRules{MinBodyRunes: p.MinBodyChars, MinBodyWords: p.MinBodyWords}
	cfg.FetchThreshold = fetchThreshold
	return cfg
}

// PollConfig returns the scheduler settings.
func (p PipelineConfig) PollConfig(cycleTimeout time.Duration) poll.Config {
	return poll.Config{
		MaxArticles:    p.MaxArticles,
		FetchBatchSize: p.FetchBatchSize,
		CycleTimeout:   cycleTimeout,
	}
}

func nonNegative(v int64) error {
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func positiveFloat(v float64) error {
	if v <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
