// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of upstream fetch attempts by outcome",
		},
		[]string{"outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Duration of a single upstream fetch attempt in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	SourceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_source_resolutions_total",
			Help: "Source attempts made while resolving a resource",
		},
		[]string{"resource", "source", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_lookups_total",
			Help: "In-memory cache lookups by result (hit, miss, stale, bypass)",
		},
		[]string{"resource", "result"},
	)

	CachePersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_cache_persist_failures_total",
			Help: "Durable cache writes that failed and were dropped",
		},
		[]string{"backend"},
	)

	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_proxy_requests_total",
			Help: "Google reviews proxy requests by response status",
		},
		[]string{"status"},
	)
)
