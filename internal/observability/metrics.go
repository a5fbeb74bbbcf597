package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the triage pipeline.
type Metrics struct {
	ReportsConsumed prometheus.Counter
	ReportsProduced prometheus.Counter
	TransformErrors prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeResolutions *prometheus.CounterVec // labels: tier={landmark,district,province,external}, outcome={hit,miss,error,throttled}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	// Triage metrics.
	TrustScore          prometheus.Histogram
	DuplicatesRemoved   prometheus.Counter
	DuplicateCandidates prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "reports_consumed_total",
			Help:      "Total reports read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "reports_produced_total",
			Help:      "Total triaged reports written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "report_triage",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "report_triage",
			Name:      "batch_size",
			Help:      "Number of reports per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "report_triage",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "geocode_resolutions_total",
			Help:      "Geocoding cascade results by tier and outcome.",
		}, []string{"tier", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "geocode_cache_total",
			Help:      "External geocoder cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "report_triage",
			Name:      "geocode_api_duration_seconds",
			Help:      "External geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "report_triage",
			Name:      "geocode_enabled",
			Help:      "1 when the external geocoder fallback is enabled, 0 otherwise.",
		}),
		TrustScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "report_triage",
			Name:      "trust_score",
			Help:      "Distribution of computed trust scores.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}),
		DuplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "duplicates_removed_total",
			Help:      "Total reports dropped by within-batch deduplication.",
		}),
		DuplicateCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "report_triage",
			Name:      "duplicate_candidates_total",
			Help:      "Total cross-batch duplicate candidates flagged on reports.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsConsumed,
		m.ReportsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GeocodeResolutions,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.TrustScore,
		m.DuplicatesRemoved,
		m.DuplicateCandidates,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsConsumed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "report_triage", Name: "reports_consumed_total"}),
		ReportsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "report_triage", Name: "reports_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "report_triage", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "report_triage", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "report_triage", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "report_triage", Name: "batch_processing_duration_seconds"}),
		GeocodeResolutions:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "report_triage", Name: "geocode_resolutions_total"}, []string{"tier", "outcome"}),
		GeocodeCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "report_triage", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "report_triage", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "report_triage", Name: "geocode_enabled"}),
		TrustScore:              prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "report_triage", Name: "trust_score"}),
		DuplicatesRemoved:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "report_triage", Name: "duplicates_removed_total"}),
		DuplicateCandidates:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "report_triage", Name: "duplicate_candidates_total"}),
	}
}
