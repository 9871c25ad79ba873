// Package metrics collects Prometheus metrics for content fetching, caching
// and degraded page renders.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements notion.Metrics and pubnotion.CacheStats.
type Collector struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	retries   *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	cacheMiss *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubnotion_source_requests_total",
			Help: "Content source requests by operation and HTTP status.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pubnotion_source_request_seconds",
			Help:    "Content source request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubnotion_source_retries_total",
			Help: "Content source retries by operation and reason.",
		}, []string{"operation", "reason"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubnotion_cache_hits_total",
			Help: "Cache lookups answered from memory.",
		}, []string{"key"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubnotion_cache_misses_total",
			Help: "Cache lookups that required a computation.",
		}, []string{"key"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pubnotion_fallback_renders_total",
			Help: "Responses served from the snapshot or defaults because the source was unavailable.",
		}, []string{"kind"}),
	}

	reg.MustRegister(c.requests, c.latency, c.retries, c.cacheHits, c.cacheMiss, c.fallbacks)
	return c
}

// ObserveRequest records one source request. Status 0 means the request
// never produced a response.
func (c *Collector) ObserveRequest(operation string, status int, d time.Duration) {
	c.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(operation).Observe(d.Seconds())
}

// IncRetry records one retry.
func (c *Collector) IncRetry(operation, reason string) {
	c.retries.WithLabelValues(operation, reason).Inc()
}

// CacheHit records a fresh cache hit. Per-post keys are folded into one
// label value to bound cardinality.
func (c *Collector) CacheHit(key string) {
	c.cacheHits.WithLabelValues(keyLabel(key)).Inc()
}

// CacheMiss records a cache miss.
func (c *Collector) CacheMiss(key string) {
	c.cacheMiss.WithLabelValues(keyLabel(key)).Inc()
}

// Fallback records a degraded response of the given kind ("snapshot" or
// "empty").
func (c *Collector) Fallback(kind string) {
	c.fallbacks.WithLabelValues(kind).Inc()
}

// keyLabel folds per-item keys such as "post:hello" into their class.
func keyLabel(key string) string {
	if class, _, ok := strings.Cut(key, ":"); ok {
		return class
	}
	return key
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
