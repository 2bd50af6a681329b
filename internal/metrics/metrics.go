package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for PagePulse.
type Metrics struct {
	// Upstream gateway
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	UpstreamFailures *prometheus.CounterVec

	// Cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter

	// Comparison pipeline
	ComparisonRuns     *prometheus.CounterVec
	ComparisonDuration prometheus.Histogram
	StageTimeouts      *prometheus.CounterVec

	// Rate limiting
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		UpstreamRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total upstream API calls by surface and status",
			},
			[]string{"surface", "status"},
		),
		UpstreamLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream API call latency in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"surface"},
		),
		UpstreamFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_failures_total",
				Help:      "Upstream calls that degraded to zero results",
			},
			[]string{"surface", "reason"},
		),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Comparison cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Comparison cache misses",
		}),
		CacheErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Swallowed cache read/write errors",
		}),
		ComparisonRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comparison_runs_total",
				Help:      "Comparison pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		ComparisonDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "comparison_duration_seconds",
			Help:      "End-to-end comparison pipeline duration",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		StageTimeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_timeouts_total",
				Help:      "Pipeline stage timeout occurrences",
			},
			[]string{"stage"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the HTTP rate limiter",
			},
			[]string{"path"},
		),
	}
}

// RecordUpstream records one upstream call.
func (m *Metrics) RecordUpstream(surface, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(surface, status).Inc()
	m.UpstreamLatency.WithLabelValues(surface).Observe(elapsed.Seconds())
}

// RecordUpstreamFailure records a degraded upstream call.
func (m *Metrics) RecordUpstreamFailure(surface, reason string) {
	if m == nil {
		return
	}
	m.UpstreamFailures.WithLabelValues(surface, reason).Inc()
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// RecordCacheError increments the swallowed-cache-error counter.
func (m *Metrics) RecordCacheError() {
	if m == nil {
		return
	}
	m.CacheErrors.Inc()
}

// RecordComparison records one pipeline run.
func (m *Metrics) RecordComparison(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ComparisonRuns.WithLabelValues(outcome).Inc()
	m.ComparisonDuration.Observe(elapsed.Seconds())
}

// RecordStageTimeout records a stage exceeding its budget.
func (m *Metrics) RecordStageTimeout(stage string) {
	if m == nil {
		return
	}
	m.StageTimeouts.WithLabelValues(stage).Inc()
}

// RecordRateLimitHit records a rate-limited request.
func (m *Metrics) RecordRateLimitHit(path string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(path).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
