// Package metrics instruments crypto and store operations with prometheus.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// defaultRegistry is the default Prometheus registry
	defaultRegistry = prometheus.DefaultRegisterer
)

// Metrics holds all application metrics.
type Metrics struct {
	cryptoOperations *prometheus.CounterVec
	cryptoDuration   *prometheus.HistogramVec
	cryptoErrors     *prometheus.CounterVec
	cryptoBytes      *prometheus.CounterVec
	storeOperations  *prometheus.CounterVec
	storeDuration    *prometheus.HistogramVec
	storeErrors      *prometheus.CounterVec
	goroutines       prometheus.Gauge
	memoryAllocBytes prometheus.Gauge
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return newMetricsWithRegistry(defaultRegistry)
}

// newMetricsWithRegistry creates a new metrics instance with a custom registry (for testing).
func newMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		cryptoOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packseal_crypto_operations_total",
				Help: "Total number of crypto operations",
			},
			[]string{"operation", "provider"}, // derive, fingerprint, encrypt, decrypt
		),
		cryptoDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "packseal_crypto_duration_seconds",
				Help:    "Crypto operation duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"operation", "provider"},
		),
		cryptoErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packseal_crypto_errors_total",
				Help: "Total number of crypto operation errors",
			},
			[]string{"operation", "error_type"},
		),
		cryptoBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packseal_crypto_bytes_total",
				Help: "Total bytes encrypted/decrypted",
			},
			[]string{"operation"},
		),
		storeOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packseal_store_operations_total",
				Help: "Total number of package store operations",
			},
			[]string{"operation", "bucket"},
		),
		storeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "packseal_store_duration_seconds",
				Help:    "Package store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "bucket"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "packseal_store_errors_total",
				Help: "Total number of package store operation errors",
			},
			[]string{"operation", "bucket", "error_type"},
		),
		goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "goroutines_total",
				Help: "Number of goroutines",
			},
		),
		memoryAllocBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "memory_alloc_bytes",
				Help: "Number of bytes allocated and not yet freed",
			},
		),
	}
}

// RecordCryptoOperation records a crypto operation metric.
func (m *Metrics) RecordCryptoOperation(operation, provider string, duration time.Duration, bytes int64) {
	m.cryptoOperations.WithLabelValues(operation, provider).Inc()
	m.cryptoDuration.WithLabelValues(operation, provider).Observe(duration.Seconds())
	if bytes > 0 {
		m.cryptoBytes.WithLabelValues(operation).Add(float64(bytes))
	}
}

// RecordCryptoError records a crypto operation error.
func (m *Metrics) RecordCryptoError(operation, errorType string) {
	m.cryptoErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordStoreOperation records a package store operation metric.
func (m *Metrics) RecordStoreOperation(operation, bucket string, duration time.Duration) {
	m.storeOperations.WithLabelValues(operation, bucket).Inc()
	m.storeDuration.WithLabelValues(operation, bucket).Observe(duration.Seconds())
}

// RecordStoreError records a package store operation error.
func (m *Metrics) RecordStoreError(operation, bucket, errorType string) {
	m.storeErrors.WithLabelValues(operation, bucket, errorType).Inc()
}

// UpdateSystemMetrics updates system-level metrics (goroutines, memory).
func (m *Metrics) UpdateSystemMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.memoryAllocBytes.Set(float64(memStats.Alloc))
}

// StartSystemMetricsCollector starts a goroutine that periodically updates
// system metrics. The gauges are populated once up front so the endpoint
// never scrapes zeros.
func (m *Metrics) StartSystemMetricsCollector(interval time.Duration) {
	m.UpdateSystemMetrics()
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
