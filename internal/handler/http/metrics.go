package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"channel-digest/internal/handler/http/pathutil"
	"channel-digest/internal/handler/http/responsewriter"
	"channel-digest/internal/observability/metrics"
)

// Metrics records request count, latency and response size per normalized
// route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		path := pathutil.NormalizePath(r.URL.Path)
		rw := responsewriter.Wrap(w)
		start := time.Now()

		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.StatusCode())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rw.BytesWritten()))
	})
}

// MetricsHandler exposes g, or the default registry when g is nil.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
