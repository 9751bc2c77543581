// Package metrics provides Prometheus metrics for the squad balancing service.
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

// Outcome labels shared by the engine counters.
const (
	OutcomeOK       = "ok"
	OutcomeInRange  = "in_range"
	OutcomeClosest  = "closest"
	EngineAssign    = "assignment"
	EngineComplete  = "completion"
	EngineMatchPair = "pairing"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Engine metrics
	assignments        *prometheus.CounterVec
	completions        *prometheus.CounterVec
	refinementSwaps    prometheus.Histogram
	refinementAttempts prometheus.Histogram
	ratingGap          prometheus.Gauge
	engineLatency      *prometheus.HistogramVec
	groupsCreated      prometheus.Counter
	matchesCreated     prometheus.Counter

	// Roster metrics
	participantsTotal prometheus.Gauge
	activitiesTotal   prometheus.Gauge
	storeLatency      *prometheus.HistogramVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squad",
		subsystem:        "balancer",
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

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.assignments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("assignments_total"),
		Help:        "Group assignment calls by outcome (ok or error code)",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.completions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("completions_total"),
		Help:        "Group completion calls by outcome (in_range, closest or error code)",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.refinementSwaps = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("refinement_swaps"),
		Help:        "Committed swaps per refinement pass",
		Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		ConstLabels: constLabels,
	})

	m.refinementAttempts = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("refinement_attempts"),
		Help:        "Swap attempts per refinement pass",
		Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
		ConstLabels: constLabels,
	})

	m.ratingGap = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("last_rating_gap"),
		Help:        "Largest rating gap between full groups of the last assignment",
		ConstLabels: constLabels,
	})

	m.engineLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("engine_latency_milliseconds"),
		Help:        "Engine call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"engine"})

	m.groupsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("groups_created_total"),
		Help:        "Groups returned by successful assignments",
		ConstLabels: constLabels,
	})

	m.matchesCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("matches_created_total"),
		Help:        "Matches produced by pairing groups",
		ConstLabels: constLabels,
	})

	m.participantsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("participants"),
		Help:        "Participants known to the roster store",
		ConstLabels: constLabels,
	})

	m.activitiesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("activities"),
		Help:        "Activities known to the roster store",
		ConstLabels: constLabels,
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_latency_milliseconds"),
		Help:        "Roster store operation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"backend", "op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_by_endpoint_total"),
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})
}

// RecordAssignment counts an assignment call by outcome.
func (m *Manager) RecordAssignment(outcome string) {
	if m.enabled {
		m.assignments.WithLabelValues(outcome).Inc()
	}
}

// RecordCompletion counts a completion call by outcome.
func (m *Manager) RecordCompletion(outcome string) {
	if m.enabled {
		m.completions.WithLabelValues(outcome).Inc()
	}
}

// RecordRefinement observes one refinement pass.
func (m *Manager) RecordRefinement(swaps, attempts, maxGap int) {
	if !m.enabled {
		return
	}
	m.refinementSwaps.Observe(float64(swaps))
	m.refinementAttempts.Observe(float64(attempts))
	m.ratingGap.Set(float64(maxGap))
}

// RecordEngineLatency observes an engine call duration.
func (m *Manager) RecordEngineLatency(engine string, latencyMs float64) {
	if m.enabled {
		m.engineLatency.WithLabelValues(engine).Observe(latencyMs)
	}
}

// RecordGroupsCreated adds n to the created groups counter.
func RecordGroupsCreated(n int) {
	if globalManager.enabled {
		globalManager.groupsCreated.Add(float64(n))
	}
}

// RecordMatchesCreated adds n to the created matches counter.
func RecordMatchesCreated(n int) {
	if globalManager.enabled {
		globalManager.matchesCreated.Add(float64(n))
	}
}

// RecordAssignment counts an assignment call on the global manager.
func RecordAssignment(outcome string) { globalManager.RecordAssignment(outcome) }

// RecordCompletion counts a completion call on the global manager.
func RecordCompletion(outcome string) { globalManager.RecordCompletion(outcome) }

// RecordRefinement observes a refinement pass on the global manager.
func RecordRefinement(swaps, attempts, maxGap int) {
	globalManager.RecordRefinement(swaps, attempts, maxGap)
}

// RecordEngineLatency observes an engine duration on the global manager.
func RecordEngineLatency(engine string, latencyMs float64) {
	globalManager.RecordEngineLatency(engine, latencyMs)
}

// UpdateRosterSize sets the participant and activity gauges.
func UpdateRosterSize(participants, activities int) {
	globalManager.participantsTotal.Set(float64(participants))
	globalManager.activitiesTotal.Set(float64(activities))
}

// RecordStoreLatency records a roster store operation latency.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns how often gauges fed by polling should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
