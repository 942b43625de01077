package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Pipeline metrics.
var (
	// MessagesProcessedTotal counts Process outcomes: stored, skipped, failed.
	MessagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_messages_processed_total",
			Help: "Total number of channel messages processed by outcome",
		},
		[]string{"outcome"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_message_processing_duration_seconds",
			Help:    "Time spent processing one channel message",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// ProcessingFailuresTotal counts failure records written, by reason.
	ProcessingFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_processing_failures_total",
			Help: "Total number of failure records written by reason",
		},
		[]string{"reason"},
	)

	ArticlesCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digest_articles_cached",
			Help: "Number of articles currently held in the cache",
		},
	)

	ChannelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_channel_requests_total",
			Help: "Total number of channel history requests by operation and status",
		},
		[]string{"operation", "status"},
	)

	ChannelMessagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_channel_messages_fetched_total",
			Help: "Total number of messages returned by the channel by phase",
		},
		[]string{"phase"},
	)

	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_content_fetch_attempts_total",
			Help: "Total number of linked page fetch attempts by result",
		},
		[]string{"result"},
	)

	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "digest_content_fetch_duration_seconds",
			Help:    "Linked page fetch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	PriceRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digest_price_refresh_total",
			Help: "Total number of price refreshes by status",
		},
		[]string{"status"},
	)
)
