package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Store fetch latency per collection, one observation per request or chunk
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadlens_fetch_duration_seconds",
			Help:    "Latency of store fetches by collection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadlens_fetch_failures_total",
			Help: "Store fetches that failed, by collection",
		},
		[]string{"collection"},
	)

	// Records skipped during reconciliation, by kind
	Anomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadlens_reconcile_anomalies_total",
			Help: "Inconsistent records skipped while reconciling",
		},
		[]string{"kind"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadlens_reference_cache_lookups_total",
			Help: "Reference data cache lookups by result",
		},
		[]string{"collection", "result"},
	)
)
