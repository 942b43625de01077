// Command api serves the cached articles, message statuses and prices over
// HTTP. It only reads the cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"channel-digest/internal/bootstrap"
	"channel-digest/internal/config"
	hhttp "channel-digest/internal/handler/http"
	"channel-digest/internal/handler/http/respond"
	"channel-digest/internal/infra/adapter/persistence/kv"
	"channel-digest/internal/observability/logging"
	"channel-digest/internal/observability/tracing"
	pkgconfig "channel-digest/internal/pkg/config"
	artUC "channel-digest/internal/usecase/article"
	"channel-digest/internal/usecase/price"
)

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
		logger.Error("server stopped with error", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	app, err := config.LoadReadOnly(pkgconfig.NewMetrics("api"))
	if err != nil {
		return err
	}
	version := getVersion()

	tp := tracing.Init("channel-digest-api", 1.0)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	store, err := bootstrap.OpenStore(ctx, app.Cache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close cache", slog.Any("error", err))
		}
	}()
	repos := kv.New(store, app.Cache.Prefix, app.Pipeline.RetryQueueMax)

	limiter := hhttp.NewRateLimiter(app.HTTP.RateLimit, app.HTTP.Burst)
	go limiter.RunCleanup(ctx, time.Minute)

	handler := hhttp.NewRouter(hhttp.Deps{
		Articles: &artUC.Service{Repo: repos.Articles, Ledger: repos.Ledger, Failures: repos.Failures},
		Prices:   price.NewService(nil, repos.Prices),
		Cache:    store,
		Limiter:  limiter,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
		Version:  version,
	})

	addr := fmt.Sprintf(":%d", app.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version),
			slog.Float64("rate_limit_rps", app.HTTP.RateLimit),
			slog.Int("rate_limit_burst", app.HTTP.Burst))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
