package summarizer

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SummaryMetricsRecorder records summary-related metrics. Tests inject their
// own implementation.
type SummaryMetricsRecorder interface {
	// RecordLength records the length of a generated summary body in runes.
	RecordLength(length int)

	// RecordLimitExceeded counts summaries whose body exceeds the configured limit.
	RecordLimitExceeded()

	// RecordCompliance records whether the last summary was within the limit.
	RecordCompliance(withinLimit bool)

	// RecordDuration records the time taken by one Summarize call, retries included.
	RecordDuration(duration time.Duration)

	// RecordOutcome counts calls by result: ok, unstructured, empty, error.
	RecordOutcome(outcome string)
}

// PrometheusSummaryMetrics implements SummaryMetricsRecorder using Prometheus metrics.
type PrometheusSummaryMetrics struct {
	lengthHistogram   prometheus.Histogram
	exceededCounter   prometheus.Counter
	complianceGauge   prometheus.Gauge
	durationHistogram prometheus.Histogram
	outcomes          *prometheus.CounterVec
}

var (
	prometheusMetricsInstance *PrometheusSummaryMetrics
	prometheusMetricsOnce     sync.Once
)

// getOrCreate registers c, returning the already registered collector when
// one with the same descriptor exists.
func getOrCreate[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// NewPrometheusSummaryMetrics returns the process-wide recorder, registering
// its metrics on first use.
func NewPrometheusSummaryMetrics() *PrometheusSummaryMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusSummaryMetrics{
			lengthHistogram: getOrCreate(prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "digest_summary_length_characters",
				Help:    "Distribution of summary body lengths in characters (Unicode runes)",
				Buckets: []float64{100, 200, 300, 500, 700, 900, 1200, 2000},
			})),
			exceededCounter: getOrCreate(prometheus.NewCounter(prometheus.CounterOpts{
				Name: "digest_summary_limit_exceeded_total",
				Help: "Total number of summaries exceeding the configured character limit",
			})),
			complianceGauge: getOrCreate(prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "digest_summary_limit_compliance",
				Help: "1 if the last summary was within the character limit, 0 otherwise",
			})),
			durationHistogram: getOrCreate(prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "digest_summarization_duration_seconds",
				Help:    "Time taken to generate a summary, retries included",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			})),
			outcomes: getOrCreate(prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "digest_summarizations_total",
				Help: "Summarizer calls by outcome",
			}, []string{"outcome"})),
		}
	})
	return prometheusMetricsInstance
}

func (p *PrometheusSummaryMetrics) RecordLength(length int) {
	p.lengthHistogram.Observe(float64(length))
}

func (p *PrometheusSummaryMetrics) RecordLimitExceeded() {
	p.exceededCounter.Inc()
}

func (p *PrometheusSummaryMetrics) RecordCompliance(withinLimit bool) {
	if withinLimit {
		p.complianceGauge.Set(1.0)
	} else {
		p.complianceGauge.Set(0.0)
	}
}

func (p *PrometheusSummaryMetrics) RecordDuration(duration time.Duration) {
	p.durationHistogram.Observe(duration.Seconds())
}

func (p *PrometheusSummaryMetrics) RecordOutcome(outcome string) {
	p.outcomes.WithLabelValues(outcome).Inc()
}

