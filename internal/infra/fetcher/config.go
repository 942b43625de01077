package fetcher

import (
	"fmt"
	"time"

	"channel-digest/internal/pkg/config"
	"channel-digest/internal/resilience/retry"
)

// Config controls linked-page fetching.
type Config struct {
	// Enabled turns fetching on. Default: false.
	Enabled bool

	// Threshold is the message length in runes below which the linked page
	// is fetched. Default: 500
	Threshold int

	// Timeout bounds one HTTP request. Default: 10s
	Timeout time.Duration

	// MaxBodySize caps the response body in bytes. Default: 2MB
	MaxBodySize int64

	// MaxRedirects caps followed redirects; every target is re-validated. Default: 5
	MaxRedirects int

	// DenyPrivateIPs blocks hosts resolving to internal addresses. Default: true
	DenyPrivateIPs bool

	// Retry governs retries of 5xx and 429 replies.
	Retry retry.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		Threshold:      500,
		Timeout:        10 * time.Second,
		MaxBodySize:    2 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		Retry:          retry.WebScraperConfig(),
	}
}

// Validate checks ranges that would make the fetcher unsafe or useless.
func (c Config) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	const minBodySize, maxBodySize = int64(1024), int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv reads CONTENT_FETCH_* variables. Invalid values fall
// back to defaults and are reported through c.
//
//   - CONTENT_FETCH_ENABLED (default: false)
//   - CONTENT_FETCH_THRESHOLD (default: 500)
//   - CONTENT_FETCH_TIMEOUT (default: 10s, range 1s-1m)
//   - CONTENT_FETCH_MAX_BODY_SIZE (default: 2097152)
//   - CONTENT_FETCH_MAX_REDIRECTS (default: 5, range 0-10)
//   - CONTENT_FETCH_DENY_PRIVATE_IPS (default: true)
func LoadConfigFromEnv(c *config.Collector) Config {
	def := DefaultConfig()
	return Config{
		Enabled:        config.Use(c, "content_fetch_enabled", config.LoadBool("CONTENT_FETCH_ENABLED", def.Enabled)),
		Threshold:      config.Use(c, "content_fetch_threshold", config.LoadInt("CONTENT_FETCH_THRESHOLD", def.Threshold, config.IntRange(0, 100000))),
		Timeout:        config.Use(c, "content_fetch_timeout", config.LoadDuration("CONTENT_FETCH_TIMEOUT", def.Timeout, config.DurationRange(time.Second, time.Minute))),
		MaxBodySize:    config.Use(c, "content_fetch_max_body_size", config.LoadInt64("CONTENT_FETCH_MAX_BODY_SIZE", def.MaxBodySize, validBodySize)),
		MaxRedirects:   config.Use(c, "content_fetch_max_redirects", config.LoadInt("CONTENT_FETCH_MAX_REDIRECTS", def.MaxRedirects, config.IntRange(0, 10))),
		DenyPrivateIPs: config.Use(c, "content_fetch_deny_private_ips", config.LoadBool("CONTENT_FETCH_DENY_PRIVATE_IPS", def.DenyPrivateIPs)),
		Retry:          def.Retry,
	}
}

func validBodySize(n int64) error {
	return Config{Timeout: time.Second, MaxBodySize: n}.Validate()
}
