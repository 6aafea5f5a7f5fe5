// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchTotal                 *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	fetchBytesTotal            prometheus.Counter
	cacheRequestsTotal         *prometheus.CounterVec
	cacheComputationsTotal     *prometheus.CounterVec
	cacheEntries               *prometheus.GaugeVec
	prefetchRunsTotal          *prometheus.CounterVec
	prefetchActive             prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melon_fetch_total",
				Help: "Total number of upstream page fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "melon_fetch_duration_seconds",
				Help:    "Histogram of upstream fetch latencies, labeled by outcome.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"outcome"},
		)

		fetchBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "melon_fetch_bytes_total",
				Help: "Total number of bytes read from upstream pages.",
			},
		)

		cacheRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melon_cache_requests_total",
				Help: "Total number of cache lookups, labeled by cache and result (hit, miss, shared).",
			},
			[]string{"cache", "result"},
		)

		cacheComputationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melon_cache_computations_total",
				Help: "Total number of cache computations, labeled by cache and outcome.",
			},
			[]string{"cache", "outcome"},
		)

		cacheEntries = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "melon_cache_entries",
				Help: "Number of entries currently held, labeled by cache.",
			},
			[]string{"cache"},
		)

		prefetchRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "melon_prefetch_runs_total",
				Help: "Total number of scheduled chart refreshes, labeled by chart and outcome.",
			},
			[]string{"chart", "outcome"},
		)

		prefetchActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "melon_prefetch_active",
				Help: "1 while the prefetch scheduler is running, 0 otherwise.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one upstream fetch.
func ObserveFetch(outcome string, bytesRead int, duration time.Duration) {
	fetchTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	if bytesRead > 0 {
		fetchBytesTotal.Add(float64(bytesRead))
	}
}

// ObserveCacheRequest counts a lookup result for the named cache.
func ObserveCacheRequest(cache, result string) {
	cacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

// ObserveCacheComputation counts a finished computation for the named cache.
func ObserveCacheComputation(cache, outcome string) {
	cacheComputationsTotal.WithLabelValues(cache, outcome).Inc()
}

// SetCacheEntries reports the current size of the named cache.
func SetCacheEntries(cache string, n int) {
	cacheEntries.WithLabelValues(cache).Set(float64(n))
}

// ObservePrefetch counts one scheduled refresh of a chart.
func ObservePrefetch(chart, outcome string) {
	prefetchRunsTotal.WithLabelValues(chart, outcome).Inc()
}

// SetPrefetchActive flips the scheduler state gauge.
func SetPrefetchActive(active bool) {
	if active {
		prefetchActive.Set(1)
		return
	}
	prefetchActive.Set(0)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
