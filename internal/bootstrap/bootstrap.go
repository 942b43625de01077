// Package bootstrap builds the pipeline components shared by the worker,
// the API server and the operator CLI from a loaded config.App.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"channel-digest/internal/config"
	"channel-digest/internal/infra/adapter/persistence/kv"
	"channel-digest/internal/infra/cache"
	"channel-digest/internal/infra/channel"
	"channel-digest/internal/infra/channel/tdlib"
	"channel-digest/internal/infra/fetcher"
	"channel-digest/internal/infra/summarizer"
	pkgconfig "channel-digest/internal/pkg/config"
	"channel-digest/internal/resilience/lease"
	artUC "channel-digest/internal/usecase/article"
	"channel-digest/internal/usecase/poll"
	"channel-digest/internal/usecase/process"
)

const dialTimeout = 30 * time.Second

// OpenStore connects to the configured cache.
func OpenStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Driver == "memory" {
		slog.Warn("using in-process memory cache; state is lost on exit")
		return cache.NewMemory(), nil
	}
	return cache.OpenRedis(ctx, cfg.RedisURL)
}

// NewChannel returns the configured channel client. The tdlib client dials
// lazily, so this never blocks.
func NewChannel(cfg config.ChannelConfig) (channel.Client, error) {
	if cfg.Driver == "static" {
		return channel.NewStatic(), nil
	}
	creds, err := tdlib.CredentialsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrMissingSetting, err)
	}
	dialer := &tdlib.Dialer{
		Credentials: creds,
		Username:    cfg.Username,
		StateDir:    cfg.StateDir,
		DialTimeout: dialTimeout,
	}
	return channel.NewLazy(dialer, channel.DefaultLazyConfig()), nil
}

// NewSummarizer returns the configured summarizer.
func NewSummarizer(cfg config.SummarizerConfig) (process.Summarizer, error) {
	switch cfg.Type {
	case "noop":
		return summarizer.NewNoOp(), nil
	case "openai":
		sc, err := summarizer.LoadConfig(summarizer.DefaultOpenAIModel)
		if err != nil {
			return nil, err
		}
		return summarizer.NewOpenAI(cfg.APIKey, sc), nil
	default:
		sc, err := summarizer.LoadConfig(summarizer.DefaultClaudeModel)
		if err != nil {
			return nil, err
		}
		return summarizer.NewClaude(cfg.APIKey, sc), nil
	}
}

// Pipeline is everything needed to poll, process and read.
type Pipeline struct {
	Store       cache.Store
	Repos       *kv.Repositories
	Channel     channel.Client
	Processor   *process.Service
	Scheduler   *poll.Scheduler
	Initializer *poll.Initializer
	Articles    *artUC.Service
}

// Options override components, mostly for tests.
type Options struct {
	// Store replaces the configured cache.
	Store cache.Store
	// Channel replaces the configured channel client.
	Channel channel.Client
	// Summarizer replaces the configured summarizer.
	Summarizer process.Summarizer
	// Collector receives fetcher config fallbacks; nil creates one.
	Collector    *pkgconfig.Collector
	CycleTimeout time.Duration
}

// NewPipeline wires the pipeline for app.
func NewPipeline(ctx context.Context, app config.App, opts Options) (*Pipeline, error) {
	store := opts.Store
	if store == nil {
		var err error
		if store, err = OpenStore(ctx, app.Cache); err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}

	ch := opts.Channel
	if ch == nil {
		var err error
		if ch, err = NewChannel(app.Channel); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("channel: %w", err)
		}
	}

	sum := opts.Summarizer
	if sum == nil {
		var err error
		if sum, err = NewSummarizer(app.Summarizer); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("summarizer: %w", err)
		}
	}

	c := opts.Collector
	if c == nil {
		c = pkgconfig.NewCollector(nil)
		defer c.Done()
	}
	fcfg := fetcher.LoadConfigFromEnv(c)

	repos := kv.New(store, app.Cache.Prefix, app.Pipeline.RetryQueueMax)
	leases := lease.NewManager(store, repos.Keys.LockPrefix())

	var procOpts []process.Option
	if fcfg.Enabled {
		procOpts = append(procOpts, process.WithContentFetcher(fetcher.NewReadabilityFetcher(fcfg)))
	}
	proc := process.NewService(process.Repositories{
		Articles:  repos.Articles,
		Committer: repos.Articles,
		Ledger:    repos.Ledger,
		Failures:  repos.Failures,
		Counter:   repos.Counter,
	}, leases, sum, app.Pipeline.ProcessConfig(fcfg.Threshold), procOpts...)

	sched := poll.NewScheduler(ch, proc, repos.Articles, repos.Failures, repos.Cursor,
		app.Pipeline.PollConfig(opts.CycleTimeout))

	return &Pipeline{
		Store:     store,
		Repos:     repos,
		Channel:   ch,
		Processor: proc,
		Scheduler: sched,
		Initializer: &poll.Initializer{
			Channel:    ch,
			Cache:      store,
			Counter:    repos.Counter,
			Failures:   repos.Failures,
			Scheduler:  sched,
			APIIDStart: app.Pipeline.APIIDStart,
		},
		Articles: &artUC.Service{
			Repo:     repos.Articles,
			Ledger:   repos.Ledger,
			Failures: repos.Failures,
		},
	}, nil
}

// Close releases the channel session and the cache connection.
func (p *Pipeline) Close() error {
	if cl, ok := p.Channel.(interface{ Close() error }); ok {
		if err := cl.Close(); err != nil {
			slog.Warn("channel close failed", slog.Any("error", err))
		}
	}
	return p.Store.Close()
}
