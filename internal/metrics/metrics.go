package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSize       *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	RateLimitExceededTotal *prometheus.CounterVec

	// Feed assembly
	FeedAssemblyDuration   prometheus.Histogram
	FeedFacetFailuresTotal *prometheus.CounterVec

	// Engagement
	LikesToggledTotal     *prometheus.CounterVec
	RatingsSubmittedTotal prometheus.Counter
	CommentsCreatedTotal  prometheus.Counter
	MessagesSentTotal     prometheus.Counter

	// Notifications
	NotificationsCreatedTotal *prometheus.CounterVec
	NotificationsDroppedTotal *prometheus.CounterVec

	MediaUploadsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics on the default registry
func Initialize() *Metrics {
	once.Do(func() {
		instance = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}

func newMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request body size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path", "status"},
		),
		HTTPActiveConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of in-flight HTTP requests",
			},
			[]string{"method"},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_name"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_name"},
		),
		RateLimitExceededTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_exceeded_total",
				Help: "Total number of rate limit violations",
			},
			[]string{"method"},
		),

		FeedAssemblyDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "feed_assembly_duration_seconds",
				Help:    "Time to load and enrich a page of posts",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		FeedFacetFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_facet_failures_total",
				Help: "Enrichment queries that failed and degraded to empty",
			},
			[]string{"facet"},
		),

		LikesToggledTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "likes_toggled_total",
				Help: "Like toggles by resulting action",
			},
			[]string{"action"},
		),
		RatingsSubmittedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ratings_submitted_total",
				Help: "Ratings created or updated",
			},
		),
		CommentsCreatedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "comments_created_total",
				Help: "Comments created",
			},
		),
		MessagesSentTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "messages_sent_total",
				Help: "Direct messages sent",
			},
		),

		NotificationsCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_created_total",
				Help: "Notifications persisted by type",
			},
			[]string{"type"},
		),
		NotificationsDroppedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_dropped_total",
				Help: "Notifications that failed to dispatch and were discarded",
			},
			[]string{"type"},
		),

		MediaUploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_uploads_total",
				Help: "Media uploads by kind and storage driver",
			},
			[]string{"kind", "driver"},
		),
	}
}
