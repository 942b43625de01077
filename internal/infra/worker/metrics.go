package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"channel-digest/internal/pkg/config"
)

// WorkerMetrics tracks poll cycles and price jobs alongside the worker's
// configuration metrics.
//
//   - worker_cycle_runs_total{status}: success, failure, skipped
//   - worker_cycle_duration_seconds
//   - worker_cycle_articles_stored_total
//   - worker_high_water_mark
//   - worker_cycle_last_success_timestamp
//   - worker_price_job_runs_total{status}
type WorkerMetrics struct {
	Config *config.Metrics

	CycleRunsTotal       *prometheus.CounterVec
	CycleDurationSeconds prometheus.Histogram
	ArticlesStoredTotal  prometheus.Counter
	HighWaterMark        prometheus.Gauge
	LastSuccessTimestamp prometheus.Gauge
	PriceJobRunsTotal    *prometheus.CounterVec
}

// NewWorkerMetrics registers the metrics with the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith registers the metrics with reg.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		Config: config.NewMetricsWith(reg, "worker"),

		CycleRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cycle_runs_total",
			Help: "Total number of poll cycles by status (success/failure/skipped)",
		}, []string{"status"}),

		CycleDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),

		ArticlesStoredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "worker_cycle_articles_stored_total",
			Help: "Total number of articles stored across all cycles",
		}),

		HighWaterMark: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_high_water_mark",
			Help: "Highest channel message id accounted for",
		}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful poll cycle",
		}),

		PriceJobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_price_job_runs_total",
			Help: "Total number of price refresh jobs by status (success/failure)",
		}, []string{"status"}),
	}
}

func (m *WorkerMetrics) RecordCycleRun(status string) {
	m.CycleRunsTotal.WithLabelValues(status).Inc()
}

func (m *WorkerMetrics) RecordCycleDuration(seconds float64) {
	m.CycleDurationSeconds.Observe(seconds)
}

func (m *WorkerMetrics) RecordArticlesStored(count int) {
	m.ArticlesStoredTotal.Add(float64(count))
}

func (m *WorkerMetrics) SetHighWaterMark(id int64) {
	m.HighWaterMark.Set(float64(id))
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccessTimestamp.SetToCurrentTime()
}

func (m *WorkerMetrics) RecordPriceJob(status string) {
	m.PriceJobRunsTotal.WithLabelValues(status).Inc()
}
