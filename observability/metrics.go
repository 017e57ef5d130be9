package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Provider metrics
	ProviderRequestsTotal *prometheus.CounterVec
	ProviderErrorsTotal   *prometheus.CounterVec
	ProviderDuration      *prometheus.HistogramVec

	// Snapshot fallback metrics
	SnapshotSourceTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheEntries     *prometheus.GaugeVec
	CacheEvictions   *prometheus.GaugeVec

	// Batch metrics
	BatchSymbolsTotal *prometheus.CounterVec
	BatchDuration     prometheus.Histogram

	// Risk scoring metrics
	RiskScores *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// riskBuckets are histogram buckets for risk scores (0 to 1)
var riskBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Provider metrics
		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "provider",
				Name:      "requests_total",
				Help:      "Total number of upstream provider requests",
			},
			[]string{"provider", "operation"},
		),
		ProviderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "provider",
				Name:      "errors_total",
				Help:      "Total number of upstream provider errors",
			},
			[]string{"provider", "operation", "error_type"},
		),
		ProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "finsage",
				Subsystem: "provider",
				Name:      "duration_seconds",
				Help:      "Duration of upstream provider calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"provider", "operation"},
		),

		// Snapshot fallback metrics
		SnapshotSourceTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "snapshot",
				Name:      "source_total",
				Help:      "Snapshots served by source tier",
			},
			[]string{"source"},
		),

		// Cache metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		CacheEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finsage",
				Subsystem: "cache",
				Name:      "entries",
				Help:      "Current number of cache entries",
			},
			[]string{"cache"},
		),
		CacheEvictions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finsage",
				Subsystem: "cache",
				Name:      "evictions",
				Help:      "Entries evicted by capacity pressure since start",
			},
			[]string{"cache"},
		),

		// Batch metrics
		BatchSymbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "batch",
				Name:      "symbols_total",
				Help:      "Symbols processed in batch requests by outcome",
			},
			[]string{"status"},
		),
		BatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "finsage",
				Subsystem: "batch",
				Name:      "duration_seconds",
				Help:      "Duration of batch enrichment requests in seconds",
				Buckets:   defaultBuckets,
			},
		),

		// Risk scoring metrics
		RiskScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "finsage",
				Subsystem: "risk",
				Name:      "score",
				Help:      "Distribution of risk scores",
				Buckets:   riskBuckets,
			},
			[]string{"model_version"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "finsage",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "finsage",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finsage",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finsage",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"breaker"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// SetGlobalMetrics overrides the global metrics instance (useful for testing)
func SetGlobalMetrics(m *Metrics) {
	globalMetrics = m
}

// RecordProviderRequest records an upstream provider request
func (m *Metrics) RecordProviderRequest(provider, operation string) {
	m.ProviderRequestsTotal.WithLabelValues(provider, operation).Inc()
}

// RecordProviderError records an upstream provider error
func (m *Metrics) RecordProviderError(provider, operation, errorType string) {
	m.ProviderErrorsTotal.WithLabelValues(provider, operation, errorType).Inc()
}

// RecordProviderDuration records the duration of an upstream provider call
func (m *Metrics) RecordProviderDuration(provider, operation string, duration time.Duration) {
	m.ProviderDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordSnapshotSource records which tier served a snapshot
func (m *Metrics) RecordSnapshotSource(source string) {
	m.SnapshotSourceTotal.WithLabelValues(source).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// SetCacheEntries sets the current entry count of a cache
func (m *Metrics) SetCacheEntries(cache string, entries int) {
	m.CacheEntries.WithLabelValues(cache).Set(float64(entries))
}

// SetCacheEvictions sets the cumulative eviction count of a cache
func (m *Metrics) SetCacheEvictions(cache string, evictions int64) {
	m.CacheEvictions.WithLabelValues(cache).Set(float64(evictions))
}

// RecordBatchSymbol records one symbol's outcome within a batch
func (m *Metrics) RecordBatchSymbol(status string) {
	m.BatchSymbolsTotal.WithLabelValues(status).Inc()
}

// RecordRiskScore records a computed risk score
func (m *Metrics) RecordRiskScore(modelVersion string, score float64) {
	m.RiskScores.WithLabelValues(modelVersion).Observe(score)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(breaker string, state int) {
	m.CircuitBreakerState.WithLabelValues(breaker).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(breaker string) {
	m.CircuitBreakerTrips.WithLabelValues(breaker).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveProvider records the provider call duration
func (t *Timer) ObserveProvider(provider, operation string) {
	t.metrics.RecordProviderDuration(provider, operation, time.Since(t.start))
}

// ObserveBatch records the batch request duration
func (t *Timer) ObserveBatch() {
	t.metrics.BatchDuration.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
