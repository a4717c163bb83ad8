package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases, SLO breaches.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Dataset queries by query shape and outcome. Watch for: any error (the dataset is local and read-only).
	DatasetQueriesTotal *prometheus.CounterVec

	// Dataset query latency. Watch for: range queries growing with the requested window.
	DatasetQueryDuration *prometheus.HistogramVec

	// Response cache hits. Misses = datasetQueriesTotal for the same shape.
	CacheHitsTotal *prometheus.CounterVec

	// Cache backend failures by operation (get, set). Requests still fall through to the dataset.
	CacheErrorsTotal *prometheus.CounterVec

	// Concurrent misses that waited on another caller's query instead of issuing their own.
	RequestCoalescingHitsTotal prometheus.Counter

	// Date-range requests rejected by validation, by reason.
	ValidationRejectsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	DatasetQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasetQueriesTotal",
			Help: "Total number of dataset queries",
		},
		[]string{"query", "status"},
	)
	DatasetQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datasetQueryDurationSeconds",
			Help:    "Dataset query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of response cache hits",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"},
	)
	RequestCoalescingHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "requestCoalescingHitsTotal",
			Help: "Cache misses served by waiting on an identical in-flight query",
		},
	)
	ValidationRejectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validationRejectsTotal",
			Help: "Date-range requests rejected by validation",
		},
		[]string{"reason"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		DatasetQueriesTotal, DatasetQueryDuration,
		CacheHitsTotal, CacheErrorsTotal, RequestCoalescingHitsTotal,
		ValidationRejectsTotal,
	)
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
