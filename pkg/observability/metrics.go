package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Adapter metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageErrorsTotal       *prometheus.CounterVec

	// Aggregated store metrics
	StoreSavesTotal      *prometheus.CounterVec
	StoreSaveDuration    prometheus.Histogram
	StoreReloadsTotal    prometheus.Counter
	StoreEntriesTotal    prometheus.Gauge
	StoreDocumentBytes   prometheus.Gauge

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stash_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_storage_operations_total",
				Help: "Total number of adapter operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stash_storage_operation_duration_seconds",
				Help:    "Adapter operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_storage_errors_total",
				Help: "Total number of adapter errors",
			},
			[]string{"operation", "backend"},
		),

		StoreSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_store_saves_total",
				Help: "Total number of aggregated store save cycles",
			},
			[]string{"status"},
		),
		StoreSaveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stash_store_save_duration_seconds",
				Help:    "Aggregated store save duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		StoreReloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stash_store_reloads_total",
				Help: "Total number of reloads caused by external file changes",
			},
		),
		StoreEntriesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stash_store_entries_total",
				Help: "Current number of entries across all namespaces",
			},
		),
		StoreDocumentBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stash_store_document_bytes",
				Help: "Size of the last persisted store document in bytes",
			},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_cache_hits_total",
				Help: "Total number of adapter cache hits",
			},
			[]string{"backend"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_cache_misses_total",
				Help: "Total number of adapter cache misses",
			},
			[]string{"backend"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.StorageErrorsTotal,
		m.StoreSavesTotal,
		m.StoreSaveDuration,
		m.StoreReloadsTotal,
		m.StoreEntriesTotal,
		m.StoreDocumentBytes,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// ObserveStorageOperation records one adapter operation outcome.
func (m *Metrics) ObserveStorageOperation(operation, backend string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.StorageErrorsTotal.WithLabelValues(operation, backend).Inc()
	}
	m.StorageOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// MetricsHandler returns the /metrics handler for the given registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
