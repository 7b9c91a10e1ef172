package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizly_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizly_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizly_upstream_requests_total",
			Help: "Total number of requests forwarded to upstream services",
		},
		[]string{"service", "method", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizly_upstream_request_duration_seconds",
			Help:    "Time taken by upstream services to answer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizly_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizly_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizly_cache_errors_total",
			Help: "Total number of cache errors",
		},
		[]string{"backend", "op"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizly_rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizly_emails_total",
			Help: "Total number of emails handed to a delivery provider",
		},
		[]string{"provider", "outcome"},
	)
)
