package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"channel-digest/internal/handler/http/article"
	"channel-digest/internal/handler/http/price"
	"channel-digest/internal/handler/http/requestid"
	"channel-digest/internal/observability/tracing"
)

// Deps are the read-side services behind the API.
type Deps struct {
	Articles article.Reader
	Prices   price.Reader
	Cache    Pinger
	Limiter  *RateLimiter
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Version  string
}

// NewRouter mounts every route and wraps them as
// request id → recover → security headers → logging → tracing → metrics →
// rate limit.
// /metrics and the probes bypass the rate limiter.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := http.NewServeMux()
	article.Register(api, d.Articles)
	price.Register(api, d.Prices)

	var limited http.Handler = api
	if d.Limiter != nil {
		limited = d.Limiter.Middleware(api)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", HealthHandler{Version: d.Version})
	mux.Handle("GET /ready", ReadyHandler{Cache: d.Cache})
	mux.Handle("GET /metrics", MetricsHandler(d.Gatherer))
	mux.Handle("/", limited)

	return Chain(mux,
		requestid.Middleware,
		Recover(logger),
		SecurityHeaders(APIPolicy),
		Logging(logger),
		tracing.Middleware,
		Metrics,
	)
}
