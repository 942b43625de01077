package worker

import (
	"fmt"
	"log/slog"
	"time"

	"channel-digest/internal/pkg/config"
)

// WorkerConfig controls the worker's schedules and health server.
//
// Environment variables:
//   - POLL_INTERVAL: time between poll cycles (default: 5m, range 10s-24h)
//   - CYCLE_TIMEOUT: upper bound of one cycle (default: 10m, range 1m-4h)
//   - PRICE_ENABLED: poll prices (default: true)
//   - PRICE_SCHEDULE: cron expression for price polls (default: "@every 15m")
//   - WORKER_TIMEZONE: IANA timezone for cron (default: "UTC")
//   - WORKER_HEALTH_PORT: health and metrics port (default: 9091, range 1024-65535)
type WorkerConfig struct {
	PollInterval  time.Duration
	CycleTimeout  time.Duration
	PriceEnabled  bool
	PriceSchedule string
	Timezone      string
	HealthPort    int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:  5 * time.Minute,
		CycleTimeout:  10 * time.Minute,
		PriceEnabled:  true,
		PriceSchedule: "@every 15m",
		Timezone:      "UTC",
		HealthPort:    9091,
	}
}

// PollSchedule returns the cron spec for poll cycles.
func (c WorkerConfig) PollSchedule() string {
	return "@every " + c.PollInterval.String()
}

// Validate reports every invalid field at once.
func (c WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateDuration(c.PollInterval, 10*time.Second, 24*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("poll interval: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errs = append(errs, fmt.Errorf("cycle timeout: %w", err))
	}
	if c.PriceEnabled {
		if err := config.ValidateCronSchedule(c.PriceSchedule); err != nil {
			errs = append(errs, fmt.Errorf("price schedule: %w", err))
		}
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration. It never fails: invalid
// values fall back to defaults, are logged, and are counted in metrics.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) WorkerConfig {
	def := DefaultConfig()
	c := config.NewCollector(metrics.Config)

	cfg := WorkerConfig{
		PollInterval:  config.Use(c, "poll_interval", config.LoadDuration("POLL_INTERVAL", def.PollInterval, config.DurationRange(10*time.Second, 24*time.Hour))),
		CycleTimeout:  config.Use(c, "cycle_timeout", config.LoadDuration("CYCLE_TIMEOUT", def.CycleTimeout, config.DurationRange(time.Minute, 4*time.Hour))),
		PriceEnabled:  config.Use(c, "price_enabled", config.LoadBool("PRICE_ENABLED", def.PriceEnabled)),
		PriceSchedule: config.Use(c, "price_schedule", config.LoadString("PRICE_SCHEDULE", def.PriceSchedule, config.ValidateCronSchedule)),
		Timezone:      config.Use(c, "timezone", config.LoadString("WORKER_TIMEZONE", def.Timezone, config.ValidateTimezone)),
		HealthPort:    config.Use(c, "health_port", config.LoadInt("WORKER_HEALTH_PORT", def.HealthPort, config.IntRange(1024, 65535))),
	}

	for _, w := range c.Warnings() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	c.Done()
	return cfg
}
