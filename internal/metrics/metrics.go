// Package metrics provides Prometheus metrics for the battle exporter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the exporter.
type Metrics struct {
	// Record outcomes
	GamesExported *prometheus.CounterVec
	GamesSkipped  *prometheus.CounterVec
	GamesFailed   *prometheus.CounterVec
	GamesPresent  *prometheus.CounterVec // dropped by the dedup check
	Duplicates    *prometheus.CounterVec // dropped as repeats within a run

	// Timing
	ExportDuration *prometheus.HistogramVec
	DedupDuration  *prometheus.HistogramVec

	// Auxiliary exports
	SummariesExported *prometheus.CounterVec
	StagesExported    *prometheus.CounterVec

	// Errors
	SourceErrors   prometheus.Counter
	MetadataErrors prometheus.Counter

	InFlightExporters prometheus.Gauge

	registry *prometheus.Registry
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init creates the exporter metrics on a fresh registry and makes them the
// package default. Call this once at startup.
func Init(namespace string) *Metrics {
	m := New(namespace)
	defaultMetrics = m
	return m
}

// New creates metrics on their own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "battle_exporter"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		GamesExported: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_exported_total",
				Help:      "Total number of records written to a destination",
			},
			[]string{"exporter", "kind"},
		),
		GamesSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_skipped_total",
				Help:      "Total number of records a destination declined",
			},
			[]string{"exporter", "kind"},
		),
		GamesFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_failed_total",
				Help:      "Total number of records that failed to export",
			},
			[]string{"exporter", "kind"},
		),
		GamesPresent: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_already_exported_total",
				Help:      "Total number of records found at the destination before export",
			},
			[]string{"exporter", "kind"},
		),
		Duplicates: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_duplicate_total",
				Help:      "Total number of records seen more than once in a run",
			},
			[]string{"exporter"},
		),
		ExportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_duration_seconds",
				Help:      "Time to translate and write one record",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"exporter", "kind"},
		),
		DedupDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dedup_duration_seconds",
				Help:      "Time to check a batch against a destination",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"exporter", "kind"},
		),
		SummariesExported: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summaries_exported_total",
				Help:      "Total number of player summaries exported",
			},
			[]string{"exporter"},
		),
		StagesExported: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stages_exported_total",
				Help:      "Total number of stage records exported",
			},
			[]string{"exporter"},
		),
		SourceErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_errors_total",
				Help:      "Total number of source read errors",
			},
		),
		MetadataErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_errors_total",
				Help:      "Total number of export ledger errors",
			},
		),
		InFlightExporters: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_exporters",
				Help:      "Number of exporters currently running",
			},
		),
		registry: reg,
	}
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics of m.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func (m *Metrics) StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// Labels is a convenience type for metric labels.
type Labels struct {
	Exporter string
	Kind     string
}

// Nil receivers are no-ops so callers can run without metrics.

func (m *Metrics) IncExported(l Labels) {
	if m != nil {
		m.GamesExported.WithLabelValues(l.Exporter, l.Kind).Inc()
	}
}

func (m *Metrics) IncSkipped(l Labels) {
	if m != nil {
		m.GamesSkipped.WithLabelValues(l.Exporter, l.Kind).Inc()
	}
}

func (m *Metrics) IncFailed(l Labels) {
	if m != nil {
		m.GamesFailed.WithLabelValues(l.Exporter, l.Kind).Inc()
	}
}

func (m *Metrics) AddAlreadyExported(l Labels, n int) {
	if m != nil {
		m.GamesPresent.WithLabelValues(l.Exporter, l.Kind).Add(float64(n))
	}
}

func (m *Metrics) IncDuplicate(exporter string) {
	if m != nil {
		m.Duplicates.WithLabelValues(exporter).Inc()
	}
}

// ObserveExportDuration records the time to export one record.
func (m *Metrics) ObserveExportDuration(l Labels, seconds float64) {
	if m != nil {
		m.ExportDuration.WithLabelValues(l.Exporter, l.Kind).Observe(seconds)
	}
}

// ObserveDedupDuration records the time of one NotExported call.
func (m *Metrics) ObserveDedupDuration(l Labels, seconds float64) {
	if m != nil {
		m.DedupDuration.WithLabelValues(l.Exporter, l.Kind).Observe(seconds)
	}
}

func (m *Metrics) IncSummaries(exporter string) {
	if m != nil {
		m.SummariesExported.WithLabelValues(exporter).Inc()
	}
}

func (m *Metrics) AddStages(exporter string, n int) {
	if m != nil {
		m.StagesExported.WithLabelValues(exporter).Add(float64(n))
	}
}

func (m *Metrics) IncSourceErrors() {
	if m != nil {
		m.SourceErrors.Inc()
	}
}

func (m *Metrics) IncMetadataErrors() {
	if m != nil {
		m.MetadataErrors.Inc()
	}
}

func (m *Metrics) AddInFlight(delta float64) {
	if m != nil {
		m.InFlightExporters.Add(delta)
	}
}
