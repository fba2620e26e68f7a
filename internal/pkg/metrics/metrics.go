package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and path.
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concursuri_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concursuri_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// CacheHits counts entity/HTTP cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concursuri_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses counts entity/HTTP cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concursuri_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// UploadedBytes counts bytes shipped to the object store.
	UploadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concursuri_uploaded_bytes_total",
			Help: "Total bytes uploaded to object storage",
		},
	)
)
