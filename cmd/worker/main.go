// Command worker polls the channel on a schedule, summarizes linked posts
// into the article cache and refreshes the price snapshot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"channel-digest/internal/bootstrap"
	"channel-digest/internal/config"
	"channel-digest/internal/handler/http/respond"
	"channel-digest/internal/infra/pricefeed"
	workerPkg "channel-digest/internal/infra/worker"
	"channel-digest/internal/observability/logging"
	"channel-digest/internal/observability/tracing"
	pkgconfig "channel-digest/internal/pkg/config"
	"channel-digest/internal/usecase/price"
)

// priceJobTimeout bounds one price refresh, retries included.
const priceJobTimeout = time.Minute

func main() {
	if err := config.Bootstrap(); err != nil {
		slog.Error("failed to load configuration files", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("worker stopped with error", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, logger *slog.Logger) error {
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerCfg := workerPkg.LoadConfigFromEnv(logger, workerMetrics)

	app, err := config.Load(workerMetrics.Config)
	if err != nil {
		return err
	}
	logger.Info("worker configuration loaded",
		slog.Duration("poll_interval", workerCfg.PollInterval),
		slog.Duration("cycle_timeout", workerCfg.CycleTimeout),
		slog.Bool("price_enabled", workerCfg.PriceEnabled),
		slog.String("timezone", workerCfg.Timezone),
		slog.String("cache_driver", app.Cache.Driver),
		slog.String("channel", app.Channel.Username),
		slog.String("summarizer", app.Summarizer.Type),
		slog.Int("max_articles", app.Pipeline.MaxArticles))

	tp := tracing.Init("channel-digest-worker", 1.0)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	collector := pkgconfig.NewCollector(workerMetrics.Config)
	pipeline, err := bootstrap.NewPipeline(ctx, app, bootstrap.Options{
		Collector:    collector,
		CycleTimeout: workerCfg.CycleTimeout,
	})
	if err != nil {
		return err
	}
	priceCfg := pricefeed.LoadConfigFromEnv(collector)
	for _, w := range collector.Warnings() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	collector.Done()
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Error("failed to close cache", slog.Any("error", err))
		}
	}()

	health := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger, prometheus.DefaultGatherer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := health.Start(gctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("cold start beginning")
		start := time.Now()
		stats, err := pipeline.Initializer.Run(gctx)
		jobs := workerPkg.NewJobs(gctx, logger, workerMetrics, priceJobTimeout)
		jobs.RecordCycle(stats, err, time.Since(start))
		if err != nil {
			if gctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("cold start: %w", err)
		}
		health.SetReady(true)

		loc, err := time.LoadLocation(workerCfg.Timezone)
		if err != nil {
			logger.Warn("invalid timezone, using UTC", slog.String("timezone", workerCfg.Timezone))
			loc = time.UTC
		}
		c := workerPkg.NewCron(loc, logger)
		if _, err := c.AddJob(workerCfg.PollSchedule(), jobs.Cycle(pipeline.Scheduler)); err != nil {
			return fmt.Errorf("schedule poll job: %w", err)
		}
		if workerCfg.PriceEnabled {
			svc := price.NewService(pricefeed.NewHTTPSource(priceCfg, nil), pipeline.Repos.Prices)
			if _, err := c.AddJob(workerCfg.PriceSchedule, jobs.Price(svc)); err != nil {
				return fmt.Errorf("schedule price job: %w", err)
			}
			// first snapshot without waiting a full period
			go jobs.Price(svc).Run()
		}

		c.Start()
		logger.Info("worker started",
			slog.String("poll_schedule", workerCfg.PollSchedule()),
			slog.String("price_schedule", workerCfg.PriceSchedule))

		<-gctx.Done()
		health.SetReady(false)
		logger.Info("waiting for running jobs to finish")
		<-c.Stop().Done()
		return nil
	})

	return g.Wait()
}
