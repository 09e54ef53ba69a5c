package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InsightMetrics holds all Prometheus metrics for the insight service.
type InsightMetrics struct {
	RequestsTotal       *prometheus.CounterVec
	FilesLoadedTotal    *prometheus.CounterVec
	BytesLoadedTotal    *prometheus.CounterVec
	LoadDuration        *prometheus.HistogramVec
	ListingCacheHits    prometheus.Counter
	ListingCacheMisses  prometheus.Counter
	RateLimitedRequests prometheus.Counter
}

// NewInsightMetrics initializes and registers the metrics with the default registerer.
func NewInsightMetrics() *InsightMetrics {
	return NewInsightMetricsWith(prometheus.DefaultRegisterer)
}

// NewInsightMetricsWith registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewInsightMetricsWith(reg prometheus.Registerer) *InsightMetrics {
	factory := promauto.With(reg)
	return &InsightMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitor_insight",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of insight requests by outcome.",
		}, []string{"outcome"}), // outcome: ok or an error kind
		FilesLoadedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitor_insight",
			Subsystem: "loader",
			Name:      "files_total",
			Help:      "Total number of part files read per dataset.",
		}, []string{"dataset"}),
		BytesLoadedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "visitor_insight",
			Subsystem: "loader",
			Name:      "bytes_total",
			Help:      "Total number of bytes read per dataset.",
		}, []string{"dataset"}),
		LoadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "visitor_insight",
			Subsystem: "loader",
			Name:      "load_duration_seconds",
			Help:      "Time spent listing, reading and decoding a dataset.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"dataset"}),
		ListingCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "visitor_insight",
			Subsystem: "loader",
			Name:      "listing_cache_hits_total",
			Help:      "Total number of object listings served from the cache.",
		}),
		ListingCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "visitor_insight",
			Subsystem: "loader",
			Name:      "listing_cache_misses_total",
			Help:      "Total number of object listings fetched from the store.",
		}),
		RateLimitedRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "visitor_insight",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		}),
	}
}
