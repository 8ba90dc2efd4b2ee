// Package metrics provides Prometheus metrics for the mrelo rating service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ratings
	matchesProcessed   prometheus.Counter
	matchesDuplicate   prometheus.Counter
	matchesRejected    *prometheus.CounterVec
	ratingLatency      prometheus.Histogram
	leaderboardUpdates prometheus.Counter
	ratingErrors       prometheus.Counter
	teamsTracked       prometheus.Gauge

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueErrors      *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// SQLite query builder
	queryLatency *prometheus.HistogramVec
	queryErrors  *prometheus.CounterVec

	// Optimizer
	optimizerEvaluations prometheus.Counter
	optimizerInvalid     prometheus.Counter
	optimizerBestFitness prometheus.Gauge
	optimizerGeneration  prometheus.Gauge

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry the
// collectors are registered on prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mrelo",
		subsystem:        "ratings",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval returns how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.matchesProcessed = m.counter("matches_processed_total", "Matches rated and applied to the leaderboard")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Matches rejected as already seen")
	m.matchesRejected = m.counterVec("matches_rejected_total", "Matches rejected before rating", "reason")
	m.ratingLatency = m.histogram("rating_latency_milliseconds", "Time spent computing one Elo update")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Rating writes accepted by the leaderboard")
	m.ratingErrors = m.counter("rating_errors_total", "Matches that failed to rate")
	m.teamsTracked = m.gauge("teams_tracked", "Teams currently on the leaderboard")

	m.queueSize = m.gauge("queue_size", "Matches waiting to be rated")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queued matches")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "queue_size / queue_capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Matches enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Matches dequeued")
	m.queueErrors = m.counterVec("queue_enqueue_errors_total", "Enqueue failures", "reason")

	m.workerCount = m.gauge("worker_count", "Rating workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "End-to-end time per dequeued match")
	m.workerErrors = m.counterVec("worker_errors_total", "Worker failures", "stage")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.queryLatency = m.histogramVec("query_latency_milliseconds", "SQLite statement latency", "op")
	m.queryErrors = m.counterVec("query_errors_total", "SQLite statement failures", "op")

	m.optimizerEvaluations = m.counter("optimizer_evaluations_total", "Fitness evaluations run")
	m.optimizerInvalid = m.counter("optimizer_invalid_total", "Fitness evaluations that produced non-finite ratings")
	m.optimizerBestFitness = m.gauge("optimizer_best_fitness", "Best fitness seen by the running optimizer")
	m.optimizerGeneration = m.gauge("optimizer_generation", "Current optimizer generation")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Goroutines running")
}

// Rating metrics.

func RecordMatchProcessed()    { globalManager.matchesProcessed.Inc() }
func RecordMatchDuplicate()    { globalManager.matchesDuplicate.Inc() }
func RecordLeaderboardUpdate() { globalManager.leaderboardUpdates.Inc() }
func RecordRatingError()       { globalManager.ratingErrors.Inc() }

func RecordMatchRejected(reason string) {
	globalManager.matchesRejected.WithLabelValues(reason).Inc()
}

func RecordRatingLatency(latencyMs float64) {
	globalManager.ratingLatency.Observe(latencyMs)
}

func UpdateTeamsTracked(count int) {
	globalManager.teamsTracked.Set(float64(count))
}

// Queue metrics.

func UpdateQueueSize(size int)         { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }
func RecordQueueEnqueue()              { globalManager.queueEnqueued.Inc() }
func RecordQueueDequeue()              { globalManager.queueDequeued.Inc() }

func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueueError(reason string) {
	globalManager.queueErrors.WithLabelValues(reason).Inc()
}

// Worker metrics.

func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

func RecordWorkerError(stage string) {
	globalManager.workerErrors.WithLabelValues(stage).Inc()
}

// HTTP metrics.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Query builder metrics.

func RecordQueryLatency(op string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(op).Observe(latencyMs)
}

func RecordQueryError(op string) {
	globalManager.queryErrors.WithLabelValues(op).Inc()
}

// Optimizer metrics.

func RecordOptimizerEvaluation(valid bool) {
	globalManager.optimizerEvaluations.Inc()
	if !valid {
		globalManager.optimizerInvalid.Inc()
	}
}

func UpdateOptimizerBestFitness(fitness float64) {
	globalManager.optimizerBestFitness.Set(fitness)
}

func UpdateOptimizerGeneration(gen int) {
	globalManager.optimizerGeneration.Set(float64(gen))
}

// System metrics.

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry behind the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
