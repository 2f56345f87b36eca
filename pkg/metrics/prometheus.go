package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the varbox service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Frame pipeline
	framesProcessed    prometheus.Counter
	framesRejected     *prometheus.CounterVec
	frameLatency       prometheus.Histogram
	detectionsDropped  prometheus.Counter
	identitiesCreated  prometheus.Counter
	identitiesEvicted  prometheus.Counter
	identitiesActive   prometheus.Gauge
	rolesBootstrapped  prometheus.Counter
	strikesDetected    *prometheus.CounterVec
	strikesAccepted    *prometheus.CounterVec
	strikesRejected    *prometheus.CounterVec
	roundsJudged       prometheus.Counter
	boutsActive        prometheus.Gauge
	boutsFinished      prometheus.Counter
	scorecardsSaved    prometheus.Counter
	scorecardSaveError prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// DefaultLatencyBuckets are the histogram buckets, in milliseconds, used for
// frame, worker and HTTP latencies.
var DefaultLatencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // shared default

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager from opts on a fresh registry, which
// GetRegistry returns from then on. Call it once at startup, before any
// metric is recorded.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry, globalManager = registry, m
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "varbox",
		subsystem:        "scoring",
		histogramBuckets: DefaultLatencyBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.framesProcessed = m.counter("frames_processed_total", "Total number of frames advanced through a bout engine")
	m.framesRejected = m.counterVec("frames_rejected_total", "Frames rejected before processing", "reason")
	m.frameLatency = m.histogram("frame_latency_milliseconds", "Per-frame processing latency in milliseconds")
	m.detectionsDropped = m.counter("detections_dropped_total", "Detections dropped for an invalid pose signature")
	m.identitiesCreated = m.counter("identities_created_total", "Identities allocated by the registry")
	m.identitiesEvicted = m.counter("identities_evicted_total", "Identities evicted for age")
	m.identitiesActive = m.gauge("identities_active", "Identities currently held by the most recently stepped registry")
	m.rolesBootstrapped = m.counter("roles_bootstrapped_total", "Bouts whose roles were assigned by the bootstrap window")
	m.strikesDetected = m.counterVec("strikes_detected_total", "Landed strikes detected before cooldown", "role")
	m.strikesAccepted = m.counterVec("strikes_accepted_total", "Strikes accepted by the score tracker", "role")
	m.strikesRejected = m.counterVec("strikes_rejected_total", "Strikes rejected by the cooldown", "role")
	m.roundsJudged = m.counter("rounds_judged_total", "Rounds scored by the judge")
	m.boutsActive = m.gauge("bouts_active", "Bouts currently open")
	m.boutsFinished = m.counter("bouts_finished_total", "Bouts finished")
	m.scorecardsSaved = m.counter("scorecards_saved_total", "Scorecards persisted")
	m.scorecardSaveError = m.counter("scorecard_save_errors_total", "Scorecard persistence failures")

	m.queueSize = m.gauge("queue_size", "Current size of the frame queue (backlog indicator)")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Current number of shard workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker job latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Current heap allocation in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Current number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds")
}

// RecordFrameProcessed counts a processed frame and its latency.
func RecordFrameProcessed(latencyMs float64) {
	globalManager.framesProcessed.Inc()
	globalManager.frameLatency.Observe(latencyMs)
}

// RecordFrameRejected counts a frame refused before processing.
func RecordFrameRejected(reason string) {
	globalManager.framesRejected.WithLabelValues(reason).Inc()
}

// RecordDetectionDropped counts a detection with an unusable pose.
func RecordDetectionDropped() {
	globalManager.detectionsDropped.Inc()
}

// RecordIdentityCreated counts a newly allocated identity.
func RecordIdentityCreated() {
	globalManager.identitiesCreated.Inc()
}

// RecordIdentitiesEvicted counts evicted identities.
func RecordIdentitiesEvicted(n int) {
	globalManager.identitiesEvicted.Add(float64(n))
}

// UpdateActiveIdentities sets the active identity gauge.
func UpdateActiveIdentities(n int) {
	globalManager.identitiesActive.Set(float64(n))
}

// RecordRolesBootstrapped counts a finalized bootstrap.
func RecordRolesBootstrapped() {
	globalManager.rolesBootstrapped.Inc()
}

// RecordStrikeDetected counts a landed strike for role.
func RecordStrikeDetected(role string) {
	globalManager.strikesDetected.WithLabelValues(role).Inc()
}

// RecordStrikeAccepted counts a strike the tracker accepted.
func RecordStrikeAccepted(role string) {
	globalManager.strikesAccepted.WithLabelValues(role).Inc()
}

// RecordStrikeRejected counts a strike the cooldown rejected.
func RecordStrikeRejected(role string) {
	globalManager.strikesRejected.WithLabelValues(role).Inc()
}

// RecordRoundJudged counts a judged round.
func RecordRoundJudged() {
	globalManager.roundsJudged.Inc()
}

// UpdateActiveBouts sets the open bout gauge.
func UpdateActiveBouts(n int) {
	globalManager.boutsActive.Set(float64(n))
}

// RecordBoutFinished counts a finished bout.
func RecordBoutFinished() {
	globalManager.boutsFinished.Inc()
}

// RecordScorecardSaved counts a persisted scorecard.
func RecordScorecardSaved() {
	globalManager.scorecardsSaved.Inc()
}

// RecordScorecardSaveError counts a failed scorecard write.
func RecordScorecardSaveError() {
	globalManager.scorecardSaveError.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the current heap allocation.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
