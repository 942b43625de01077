// Package pricefeed reads spot prices from a CoinGecko-compatible
// simple/price endpoint.
package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"channel-digest/internal/domain/entity"
	"channel-digest/internal/pkg/config"
	"channel-digest/internal/resilience/circuitbreaker"
	"channel-digest/internal/resilience/retry"
)

// ErrNoPrices is returned when the response carries none of the
// requested ids.
var ErrNoPrices = errors.New("pricefeed: no prices in response")

const maxResponseBytes = 1 << 20

// Config configures an HTTPSource.
type Config struct {
	URL      string
	IDs      []string
	Currency string
	Timeout  time.Duration
	Retry    retry.Config
}

// DefaultConfig returns the public CoinGecko endpoint for bitcoin and ether.
func DefaultConfig() Config {
	return Config{
		URL:      "https://api.coingecko.com/api/v3/simple/price",
		IDs:      []string{"bitcoin", "ethereum"},
		Currency: "usd",
		Timeout:  10 * time.Second,
		Retry:    retry.PriceFeedConfig(),
	}
}

// LoadConfigFromEnv reads PRICE_SOURCE_URL, PRICE_IDS, PRICE_CURRENCY and
// PRICE_TIMEOUT.
func LoadConfigFromEnv(c *config.Collector) Config {
	def := DefaultConfig()
	return Config{
		URL:      config.Use(c, "price_source_url", config.LoadString("PRICE_SOURCE_URL", def.URL, config.ValidateURL)),
		IDs:      config.Use(c, "price_ids", config.LoadStringList("PRICE_IDS", def.IDs)),
		Currency: strings.ToLower(config.Use(c, "price_currency", config.LoadString("PRICE_CURRENCY", def.Currency, nil))),
		Timeout:  config.Use(c, "price_timeout", config.LoadDuration("PRICE_TIMEOUT", def.Timeout, config.DurationRange(time.Second, time.Minute))),
		Retry:    def.Retry,
	}
}

// HTTPSource fetches snapshots over HTTP with retry and a circuit breaker.
type HTTPSource struct {
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	cfg     Config
	now     func() time.Time
}

// NewHTTPSource creates a source. A nil client uses one with cfg.Timeout.
func NewHTTPSource(cfg Config, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSource{
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.PriceFeedConfig()),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Fetch returns the current prices of the configured ids.
func (s *HTTPSource) Fetch(ctx context.Context) (entity.PriceSnapshot, error) {
	var snapshot entity.PriceSnapshot
	err := retry.WithBackoff(ctx, s.cfg.Retry, func() error {
		out, err := circuitbreaker.Do(s.breaker, func() (entity.PriceSnapshot, error) {
			return s.fetch(ctx)
		})
		if err != nil {
			return err
		}
		snapshot = out
		return nil
	})
	if err != nil {
		return entity.PriceSnapshot{}, fmt.Errorf("fetch prices: %w", err)
	}
	return snapshot, nil
}

func (s *HTTPSource) requestURL() (string, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse price source url: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(s.cfg.IDs, ","))
	q.Set("vs_currencies", s.cfg.Currency)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *HTTPSource) fetch(ctx context.Context) (entity.PriceSnapshot, error) {
	endpoint, err := s.requestURL()
	if err != nil {
		return entity.PriceSnapshot{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return entity.PriceSnapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return entity.PriceSnapshot{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return entity.PriceSnapshot{}, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
			Wait:       parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	// {"bitcoin":{"usd":64000.5},"ethereum":{"usd":3100.2}}
	var body map[string]map[string]float64
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return entity.PriceSnapshot{}, fmt.Errorf("decode price response: %w", err)
	}

	prices := make(map[string]float64, len(s.cfg.IDs))
	for _, id := range s.cfg.IDs {
		if quote, ok := body[id][s.cfg.Currency]; ok {
			prices[id] = quote
		}
	}
	if len(prices) == 0 {
		return entity.PriceSnapshot{}, ErrNoPrices
	}
	return entity.PriceSnapshot{
		Currency:  s.cfg.Currency,
		Prices:    prices,
		UpdatedAt: s.now().UTC(),
	}, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
