package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry         *prometheus.Registry
	RunsTotal        *prometheus.CounterVec
	ClicksTotal      prometheus.Counter
	StepDuration     *prometheus.HistogramVec
	IdentifiersTotal prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	Progress         prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total scrapes by terminal status.",
		},
		[]string{"status"},
	)
	clicks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_load_more_clicks_total",
			Help: "Total number of load more expansions triggered.",
		},
	)
	stepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_step_duration_seconds",
			Help:    "Latency of browser steps in the pagination loop.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)
	identifiers := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_identifiers_total",
			Help: "Total number of unique identifiers extracted.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	progress := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_progress_ratio",
			Help: "Loaded over total for the scrape in flight.",
		},
	)

	registry.MustRegister(runs, clicks, stepDuration, identifiers, errorsTotal, progress)

	return &Metrics{
		Registry:         registry,
		RunsTotal:        runs,
		ClicksTotal:      clicks,
		StepDuration:     stepDuration,
		IdentifiersTotal: identifiers,
		ErrorsTotal:      errorsTotal,
		Progress:         progress,
	}
}

// IncRun increments the runs counter for a terminal status.
func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// IncClicks increments the load more counter.
func (m *Metrics) IncClicks() {
	if m == nil {
		return
	}
	m.ClicksTotal.Inc()
}

// ObserveStep records how long a browser step took.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// AddIdentifiers adds n to the identifiers counter.
func (m *Metrics) AddIdentifiers(n int) {
	if m == nil {
		return
	}
	m.IdentifiersTotal.Add(float64(n))
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetProgress publishes the latest progress fraction.
func (m *Metrics) SetProgress(fraction float64) {
	if m == nil {
		return
	}
	m.Progress.Set(fraction)
}
