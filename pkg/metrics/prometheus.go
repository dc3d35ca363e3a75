// Package metrics provides Prometheus metrics for the piggybank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the piggybank service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	frameBuckets   []float64
	delayBuckets   []float64
	registry       prometheus.Registerer

	// Simulation
	coinsEmitted       *prometheus.CounterVec
	dispensedTotal     prometheus.Gauge
	expectedTotal      prometheus.Gauge
	coinCount          prometheus.Gauge
	settledCount       prometheus.Gauge
	collisionsResolved prometheus.Counter
	terrainImprints    prometheus.Counter
	frameDuration      prometheus.Histogram
	emissionDelay      prometheus.Histogram
	sessionsStarted    prometheus.Counter
	invalidWages       prometheus.Counter

	// Emission pipeline
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	emissionsDuplicate      prometheus.Counter
	ledgerWrites            prometheus.Counter
	ledgerQueryLatency      prometheus.Histogram
	chimesPlayed            *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry; the service process adds the Go and process collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "piggybank",
		subsystem:      "sim",
		latencyBuckets: prometheus.DefBuckets,
		frameBuckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 33},
		delayBuckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.coinsEmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "coins_emitted_total",
		Help:      "Coins dropped by denomination",
	}, []string{"denomination"})
	m.dispensedTotal = m.gauge("dispensed_total", "Value dispensed in the active session")
	m.expectedTotal = m.gauge("expected_total", "Value earned so far in the active session")
	m.coinCount = m.gauge("coin_count", "Coins in the pile")
	m.settledCount = m.gauge("settled_count", "Coins at rest")
	m.collisionsResolved = m.counter("collisions_resolved_total", "Coin pairs found in contact")
	m.terrainImprints = m.counter("terrain_imprints_total", "Settled coins written into the terrain")
	m.frameDuration = m.histogram("frame_duration_milliseconds", "Time spent in one simulation step", m.frameBuckets)
	m.emissionDelay = m.histogram("emission_delay_seconds", "Pause scheduled after each drop", m.delayBuckets)
	m.sessionsStarted = m.counter("sessions_started_total", "Sessions started")
	m.invalidWages = m.counter("invalid_wage_total", "Session starts rejected for an invalid wage")

	m.queueSize = m.gauge("queue_size", "Emissions waiting for a worker")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queued emissions")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size over capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Emissions enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Emissions dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Emissions dropped at enqueue")
	m.workerActiveCount = m.gauge("worker_active_count", "Running ledger workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to record and announce one emission", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Emissions a worker failed to record")
	m.emissionsDuplicate = m.counter("emissions_duplicate_total", "Emissions delivered more than once")
	m.ledgerWrites = m.counter("ledger_writes_total", "Rows written to the ledger")
	m.ledgerQueryLatency = m.histogram("ledger_query_latency_milliseconds", "Ledger query latency", m.latencyBuckets)
	m.chimesPlayed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chimes_played_total",
		Help:      "Chimes played by denomination",
	}, []string{"denomination"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "type"})
}

// Simulation metrics.

// RecordCoinEmitted counts a dropped coin.
func RecordCoinEmitted(denomination string) {
	globalManager.coinsEmitted.WithLabelValues(denomination).Inc()
}

// UpdateTotals sets the dispensed and expected gauges.
func UpdateTotals(dispensed, expected float64) {
	globalManager.dispensedTotal.Set(dispensed)
	globalManager.expectedTotal.Set(expected)
}

// UpdatePile sets the coin and settled counts.
func UpdatePile(coins, settled int) {
	globalManager.coinCount.Set(float64(coins))
	globalManager.settledCount.Set(float64(settled))
}

// RecordCollisions adds resolved contacts.
func RecordCollisions(n int) {
	if n > 0 {
		globalManager.collisionsResolved.Add(float64(n))
	}
}

// RecordTerrainImprint counts a coin written into the terrain.
func RecordTerrainImprint() {
	globalManager.terrainImprints.Inc()
}

// RecordFrameDuration records one simulation step in milliseconds.
func RecordFrameDuration(ms float64) {
	globalManager.frameDuration.Observe(ms)
}

// RecordEmissionDelay records the scheduled pause in seconds.
func RecordEmissionDelay(seconds float64) {
	globalManager.emissionDelay.Observe(seconds)
}

// RecordSessionStarted counts a started session.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordInvalidWage counts a rejected session start.
func RecordInvalidWage() {
	globalManager.invalidWages.Inc()
}

// Queue metrics.

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker and ledger metrics.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordEmissionDuplicate counts a redelivered emission.
func RecordEmissionDuplicate() {
	globalManager.emissionsDuplicate.Inc()
}

// RecordLedgerWrite counts a ledger row.
func RecordLedgerWrite() {
	globalManager.ledgerWrites.Inc()
}

// RecordLedgerQueryLatency records ledger query latency.
func RecordLedgerQueryLatency(latencyMs float64) {
	globalManager.ledgerQueryLatency.Observe(latencyMs)
}

// RecordChime counts a played chime.
func RecordChime(denomination string) {
	globalManager.chimesPlayed.WithLabelValues(denomination).Inc()
}

// HTTP metrics.

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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
