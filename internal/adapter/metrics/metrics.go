package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "surveystack"

// Resolution outcomes.
const (
	OutcomeCacheHit = "cache_hit"
	OutcomeStoreHit = "store_hit"
	OutcomeCreated  = "created"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the platform.
type Metrics struct {
	TenantResolutions     *prometheus.CounterVec
	TenantResolveDuration prometheus.Histogram
	TenantCacheErrors     prometheus.Counter
	AnalyticsEvents       *prometheus.CounterVec
	TextGenRequests       *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TenantResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "resolutions_total",
			Help:      "Total number of tenant resolutions by outcome.",
		}, []string{"outcome"}), // outcome: cache_hit, store_hit, created, error
		TenantResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "resolve_duration_seconds",
			Help:      "Latency of tenant resolution.",
			Buckets:   prometheus.DefBuckets,
		}),
		TenantCacheErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tenant",
			Name:      "cache_errors_total",
			Help:      "Total number of tenant cache read or write failures.",
		}),
		AnalyticsEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_total",
			Help:      "Total number of analytics events by status.",
		}, []string{"status"}), // status: buffered, error_buffer, sunk, error_sink
		TextGenRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "textgen",
			Name:      "requests_total",
			Help:      "Total number of text generation requests by status.",
		}, []string{"status"}), // status: ok, unavailable, error
	}
}
