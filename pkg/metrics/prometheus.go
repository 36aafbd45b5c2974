// Package metrics provides Prometheus metrics for the peerval pipeline.
//
// A tabulation run is a batch process with no scrape endpoint, so the
// registry is dumped to a textfile at the end of the run (node_exporter
// textfile-collector format) when a metrics file is configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the peerval pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Discovery and parsing
	formsDiscovered prometheus.Counter
	formsParsed     prometheus.Counter
	formsFailed     prometheus.Counter
	parseLatency    prometheus.Histogram

	// Record disposition
	recordsKept     prometheus.Counter
	recordsExcluded prometheus.Counter

	// Issues by severity
	issues *prometheus.CounterVec

	// Stage durations
	stageDuration *prometheus.HistogramVec

	// Operational gauges
	queueSize   prometheus.Gauge
	workerCount prometheus.Gauge
	groupCount  prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "peerval",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.formsDiscovered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "forms_discovered_total",
		Help:      "Total number of form files discovered under the scan root",
	})

	m.formsParsed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "forms_parsed_total",
		Help:      "Total number of forms parsed successfully",
	})

	m.formsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "forms_failed_total",
		Help:      "Total number of forms that could not be read or parsed",
	})

	m.parseLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "parse_latency_milliseconds",
		Help:      "Histogram of per-form parse latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.recordsKept = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_kept_total",
		Help:      "Total number of response records admitted to aggregation",
	})

	m.recordsExcluded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_excluded_total",
		Help:      "Total number of response records excluded from aggregation",
	})

	m.issues = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "issues_total",
			Help:      "Total number of validation issues by severity and scope",
		},
		[]string{"severity", "scope"},
	)

	m.stageDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "stage_duration_milliseconds",
			Help:      "Duration of each pipeline stage in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"stage"},
	)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the form queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of parse workers in the pool",
	})

	m.groupCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "group_count",
		Help:      "Number of distinct groups observed in the batch",
	})
}

// RecordFormDiscovered increments the discovered forms counter.
func RecordFormDiscovered() {
	globalManager.formsDiscovered.Inc()
}

// RecordFormParsed increments the parsed forms counter.
func RecordFormParsed() {
	globalManager.formsParsed.Inc()
}

// RecordFormFailed increments the failed forms counter.
func RecordFormFailed() {
	globalManager.formsFailed.Inc()
}

// RecordParseLatency records per-form parse latency in milliseconds.
func RecordParseLatency(latencyMs float64) {
	globalManager.parseLatency.Observe(latencyMs)
}

// RecordRecordsKept adds to the kept records counter.
func RecordRecordsKept(n int) {
	globalManager.recordsKept.Add(float64(n))
}

// RecordRecordsExcluded adds to the excluded records counter.
func RecordRecordsExcluded(n int) {
	globalManager.recordsExcluded.Add(float64(n))
}

// RecordIssue increments the issue counter for a severity and scope.
func RecordIssue(severity, scope string) {
	globalManager.issues.WithLabelValues(severity, scope).Inc()
}

// RecordStageDuration records the duration of a pipeline stage in milliseconds.
func RecordStageDuration(stage string, durationMs float64) {
	globalManager.stageDuration.WithLabelValues(stage).Observe(durationMs)
}

// UpdateQueueSize sets the current form queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the parse worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateGroupCount sets the number of distinct groups in the batch.
func UpdateGroupCount(count int) {
	globalManager.groupCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
