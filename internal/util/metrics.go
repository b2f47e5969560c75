package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PriceQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_queries_total",
		Help: "Total number of price queries by result",
	}, []string{"result"})

	PriceQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_query_latency_seconds",
		Help:    "Latency of end-to-end price queries",
		Buckets: prometheus.DefBuckets,
	})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Total number of cache lookups by cache and result",
	}, []string{"cache", "result"})

	CacheEvictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_evictions_total",
		Help: "Total number of entries evicted because the cache was full",
	}, []string{"cache"})

	CachePersistenceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_persistence_errors_total",
		Help: "Total number of failed persistent cache store operations",
	}, []string{"op"})

	VersionChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "version_checks_total",
		Help: "Total number of remote version manifest checks",
	}, []string{"result"})

	MarketRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "market_request_duration_seconds",
		Help:    "Latency of requests to the market API",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "status"})

	PriceEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_events_published_total",
		Help: "Total number of price events published",
	}, []string{"event_type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
