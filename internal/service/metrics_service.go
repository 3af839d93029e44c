package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and all service-level instruments.
type MetricsService struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec

	cacheLatency  prometheus.Histogram
	cacheWrite    prometheus.Histogram
	cacheHitRatio prometheus.Gauge
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	dbQueryDuration *prometheus.HistogramVec

	transitions *prometheus.CounterVec

	hitCount  atomic.Int64
	missCount atomic.Int64
}

// NewMetricsService constructs the registry and registers all collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request processing time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Cache read latency.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Cache write latency.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total lookups.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses.",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appeal_transitions_total",
			Help: "Total appeal status transitions by actor tier and target status.",
		}, []string{"tier", "status"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_count",
		Help: "Current number of goroutines.",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		s.httpDuration,
		s.httpRequests,
		s.cacheLatency,
		s.cacheWrite,
		s.cacheHitRatio,
		s.cacheHits,
		s.cacheMisses,
		s.dbQueryDuration,
		s.transitions,
		goroutines,
	)

	return s
}

// Handler exposes the registry over HTTP.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	code := strconv.Itoa(status)
	s.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.httpRequests.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a cache lookup outcome and refreshes the hit ratio.
func (s *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if s == nil {
		return
	}
	s.cacheLatency.Observe(duration.Seconds())
	if hit {
		s.cacheHits.Inc()
		s.hitCount.Add(1)
	} else {
		s.cacheMisses.Inc()
		s.missCount.Add(1)
	}
	total := s.hitCount.Load() + s.missCount.Load()
	if total > 0 {
		s.cacheHitRatio.Set(float64(s.hitCount.Load()) / float64(total))
	}
}

// ObserveCacheWrite records a cache write latency.
func (s *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if s == nil {
		return
	}
	s.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records a database query latency.
func (s *MetricsService) ObserveDBQuery(operation string, duration time.Duration) {
	if s == nil {
		return
	}
	s.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTransition counts a successful appeal status transition.
func (s *MetricsService) RecordTransition(tier, status string) {
	if s == nil {
		return
	}
	s.transitions.WithLabelValues(tier, status).Inc()
}
