// Package metrics provides Prometheus metrics for the leadops service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultPayoutBuckets cover per-job payouts in dollars.
var defaultPayoutBuckets = []float64{1, 5, 10, 20, 30, 45, 60, 90, 150} //nolint:gochecknoglobals // shared bucket layout

// Manager manages all Prometheus metrics for the leadops service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	payoutBuckets  []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Takeover settlement
	interventionsReceived  prometheus.Counter
	interventionsDuplicate prometheus.Counter
	takeovers              *prometheus.CounterVec
	compensationErrors     *prometheus.CounterVec
	payouts                *prometheus.HistogramVec
	settlementLatency      prometheus.Histogram
	ledgerSize             prometheus.Gauge

	// Evaluation and bonus
	evaluations  *prometheus.CounterVec
	strikes      *prometheus.CounterVec
	patternFlags *prometheus.CounterVec
	bonusAwards  *prometheus.CounterVec
	quotes       *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store and notifications
	storeRecords  *prometheus.GaugeVec
	storeLatency  *prometheus.HistogramVec
	notifications *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "leadops",
		subsystem:      "engine",
		latencyBuckets: prometheus.DefBuckets,
		payoutBuckets:  defaultPayoutBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.interventionsReceived = m.counter("interventions_received_total", "Intervention events accepted for settlement")
	m.interventionsDuplicate = m.counter("interventions_duplicate_total", "Intervention events rejected because the job was already settled")
	m.takeovers = m.counterVec("takeovers_total", "Settled takeovers by category", "category")
	m.compensationErrors = m.counterVec("compensation_errors_total", "Settlements that failed to compute compensation", "reason")
	m.payouts = m.histogramVec("payout_dollars", "Payout per settled takeover by party", m.payoutBuckets, "party")
	m.settlementLatency = m.histogram("settlement_latency_milliseconds", "Time to settle one intervention event", m.latencyBuckets)
	m.ledgerSize = m.gauge("ledger_claims", "Job claims currently held by the settlement ledger")

	m.evaluations = m.counterVec("evaluations_total", "Lead evaluations by resulting status", "status")
	m.strikes = m.counterVec("strikes_total", "Strikes issued by severity", "severity")
	m.patternFlags = m.counterVec("pattern_flags_total", "Pattern detector flags by kind", "kind")
	m.bonusAwards = m.counterVec("bonus_awards_total", "Bonus accelerator results by tier", "tier")
	m.quotes = m.counterVec("staffing_quotes_total", "Staffing quotes by crew tier", "tier")

	m.queueSize = m.gauge("queue_size", "Current size of the intervention queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the intervention queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Events enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Events rejected by a full or closed queue")

	m.workerCount = m.gauge("worker_count", "Configured settlement workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently settling an event")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker time spent per event", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Events a worker failed to settle")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by route, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	m.storeRecords = m.gaugeVec("store_records", "Records held by the store by kind", "kind")
	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency", m.latencyBuckets, "operation")
	m.notifications = m.counterVec("notifications_total", "Published notifications by subject and outcome", "subject", "outcome")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

// RecordInterventionReceived counts an accepted intervention event.
func RecordInterventionReceived() {
	globalManager.interventionsReceived.Inc()
}

// RecordInterventionDuplicate counts an intervention for an already settled job.
func RecordInterventionDuplicate() {
	globalManager.interventionsDuplicate.Inc()
}

// RecordTakeover counts a settled takeover.
func RecordTakeover(category string) {
	globalManager.takeovers.WithLabelValues(category).Inc()
}

// RecordCompensationError counts a failed compensation.
func RecordCompensationError(reason string) {
	globalManager.compensationErrors.WithLabelValues(reason).Inc()
}

// RecordPayout observes a payout amount for a party (lead, original, bonus).
func RecordPayout(party string, amount float64) {
	globalManager.payouts.WithLabelValues(party).Observe(amount)
}

// RecordSettlementLatency records settlement latency in milliseconds.
func RecordSettlementLatency(latencyMs float64) {
	globalManager.settlementLatency.Observe(latencyMs)
}

// UpdateLedgerSize sets the number of claims held by the ledger.
func UpdateLedgerSize(size int64) {
	globalManager.ledgerSize.Set(float64(size))
}

// RecordEvaluation counts a lead evaluation.
func RecordEvaluation(status string) {
	globalManager.evaluations.WithLabelValues(status).Inc()
}

// RecordStrike counts an issued strike.
func RecordStrike(severity string) {
	globalManager.strikes.WithLabelValues(severity).Inc()
}

// RecordPatternFlag counts a detector flag.
func RecordPatternFlag(kind string) {
	globalManager.patternFlags.WithLabelValues(kind).Inc()
}

// RecordBonusAward counts a bonus accelerator result. Ineligible results use tier "none".
func RecordBonusAward(tier string) {
	globalManager.bonusAwards.WithLabelValues(tier).Inc()
}

// RecordQuote counts a staffing quote.
func RecordQuote(tier string) {
	globalManager.quotes.WithLabelValues(tier).Inc()
}

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

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
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

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateStoreRecords sets the record count for one kind of stored record.
func UpdateStoreRecords(kind string, count int) {
	globalManager.storeRecords.WithLabelValues(kind).Set(float64(count))
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordNotification counts a publish attempt.
func RecordNotification(subject, outcome string) {
	globalManager.notifications.WithLabelValues(subject, outcome).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
