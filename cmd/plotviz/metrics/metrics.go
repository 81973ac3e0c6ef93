// Package metrics provides Prometheus instrumentation for plotviz.
//
// Metrics exposed:
//   - plotviz_plots_generated_total: Counter of successfully stored plots
//   - plotviz_render_duration_seconds: Histogram of PNG render time
//   - plotviz_validation_errors_total: Counter of rejected requests by reason
//   - plotviz_storage_errors_total: Counter of blob backend failures by operation
//   - plotviz_downloads_total: Counter of download attempts by outcome
//   - plotviz_stored_plots: Gauge of indexed plots
//   - plotviz_rate_limited_total: Counter of plot requests rejected by the rate limiter
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PlotsGenerated   prometheus.Counter
	RenderDuration   prometheus.Histogram
	ValidationErrors *prometheus.CounterVec
	StorageErrors    *prometheus.CounterVec
	Downloads        *prometheus.CounterVec
	StoredPlots      prometheus.Gauge
	RateLimited      prometheus.Counter
}

// New registers the plotviz metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PlotsGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "plotviz_plots_generated_total",
			Help: "Total number of plots rendered and stored",
		}),

		RenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "plotviz_render_duration_seconds",
			Help:    "Time spent rendering a plot to PNG",
			Buckets: prometheus.DefBuckets,
		}),

		ValidationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plotviz_validation_errors_total",
			Help: "Total number of rejected plot requests by reason",
		}, []string{"reason"}),

		StorageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plotviz_storage_errors_total",
			Help: "Total number of blob storage failures by operation",
		}, []string{"op"}),

		Downloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plotviz_downloads_total",
			Help: "Total number of plot downloads by outcome",
		}, []string{"status"}),

		StoredPlots: f.NewGauge(prometheus.GaugeOpts{
			Name: "plotviz_stored_plots",
			Help: "Number of plots currently in the index",
		}),

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "plotviz_rate_limited_total",
			Help: "Total number of plot requests rejected by the rate limiter",
		}),
	}
}

func (m *Metrics) RecordGenerated(storedPlots int) {
	m.PlotsGenerated.Inc()
	m.StoredPlots.Set(float64(storedPlots))
}

func (m *Metrics) ObserveRender(seconds float64) {
	m.RenderDuration.Observe(seconds)
}

func (m *Metrics) RecordValidationError(reason string) {
	m.ValidationErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordStorageError(op string) {
	m.StorageErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordDownload(status string) {
	m.Downloads.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}
