package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "creatorpulse"

var (
	// CacheHits counts cache lookups served from a fresh entry.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total cache hits.",
	})

	// CacheMisses counts lookups that were absent or expired.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total cache misses, including expired entries.",
	})

	// UpstreamDuration observes upstream API latency by endpoint and status.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream API request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	// RequestDuration observes dashboard API latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request duration in seconds, by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	// RequestsInFlight is the number of requests currently being served.
	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being served.",
	})

	// ReportsBuilt counts creator reports by period and tier.
	ReportsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_built_total",
		Help:      "Creator reports built, by period and tier.",
	}, []string{"period", "tier"})
)
