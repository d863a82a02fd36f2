// Package metrics provides Prometheus metrics for the performance scoring
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Report pipeline
	reportsComputed prometheus.Counter
	reportsStale    prometheus.Counter
	computeLatency  prometheus.Histogram
	hrLookupLatency prometheus.Histogram
	hrLookupErrors  prometheus.Counter

	// Live sources
	snapshotPushes prometheus.CounterVec
	sourceDegraded prometheus.CounterVec

	// Scale
	activeWatchers   prometheus.Gauge
	employeesTracked prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scorecard",
		subsystem:        "performance",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.reportsComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_computed_total",
		Help:      "Total number of performance reports published",
	})

	m.reportsStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reports_stale_dropped_total",
		Help:      "Total number of computed reports discarded because a newer snapshot superseded them",
	})

	m.computeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compute_latency_milliseconds",
		Help:      "End-to-end report computation latency in milliseconds, HR lookup included",
		Buckets:   m.histogramBuckets,
	})

	m.hrLookupLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hr_lookup_latency_milliseconds",
		Help:      "HR feedback point-read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.hrLookupErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "hr_lookup_errors_total",
		Help:      "Total number of failed HR feedback lookups (treated as no feedback)",
	})

	m.snapshotPushes = *auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "snapshot_pushes_total",
			Help:      "Total number of snapshot pushes received, per collection",
		},
		[]string{"collection"},
	)

	m.sourceDegraded = *auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "source_degraded_total",
			Help:      "Total number of degraded-source signals, per collection",
		},
		[]string{"collection"},
	)

	m.activeWatchers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_watchers",
		Help:      "Current number of live per-employee report subscriptions",
	})

	m.employeesTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "employees_tracked",
		Help:      "Number of employees in the current snapshot",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers delegating to the global manager.

// RecordReportComputed counts a published report.
func RecordReportComputed() {
	globalManager.reportsComputed.Inc()
}

// RecordReportStale counts a computed report dropped as stale.
func RecordReportStale() {
	globalManager.reportsStale.Inc()
}

// RecordComputeLatency records end-to-end report computation latency.
func RecordComputeLatency(latencyMs float64) {
	globalManager.computeLatency.Observe(latencyMs)
}

// RecordHRLookupLatency records the HR feedback point-read latency.
func RecordHRLookupLatency(latencyMs float64) {
	globalManager.hrLookupLatency.Observe(latencyMs)
}

// RecordHRLookupError counts a failed HR feedback lookup.
func RecordHRLookupError() {
	globalManager.hrLookupErrors.Inc()
}

// RecordSnapshotPush counts a snapshot push for a collection.
func RecordSnapshotPush(collection string) {
	globalManager.snapshotPushes.WithLabelValues(collection).Inc()
}

// RecordSourceDegraded counts a degraded-source signal for a collection.
func RecordSourceDegraded(collection string) {
	globalManager.sourceDegraded.WithLabelValues(collection).Inc()
}

// UpdateActiveWatchers sets the live subscription gauge.
func UpdateActiveWatchers(count int) {
	globalManager.activeWatchers.Set(float64(count))
}

// UpdateEmployeesTracked sets the tracked-employee gauge.
func UpdateEmployeesTracked(count int) {
	globalManager.employeesTracked.Set(float64(count))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used by the global manager, for
// serving /metrics without the default Go collectors.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
