// Package metrics provides Prometheus instrumentation for the proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/abdhe/animal-speech-proxy/pkg/resilience"
)

var (
	// KeyPoolSize is the number of configured API keys.
	KeyPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keypool_size",
			Help: "Number of API keys in the pool.",
		},
	)

	// KeyPoolAvailable is the number of keys with budget left in the current window.
	KeyPoolAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "keypool_available_keys",
			Help: "Number of API keys with remaining budget in the current window.",
		},
	)

	// KeyPoolAcquisitions counts key acquisition outcomes.
	KeyPoolAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keypool_acquisitions_total",
			Help: "Key acquisitions by result.",
		},
		[]string{"result"}, // "acquired", "exhausted", "cancelled"
	)

	// KeyUsage is the per-key usage in the current window.
	KeyUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keypool_key_usage",
			Help: "Requests counted against each key in the current window.",
		},
		[]string{"key"},
	)

	// UpstreamRateLimited counts 429 answers per key.
	UpstreamRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_rate_limited_total",
			Help: "Upstream 429 responses per key.",
		},
		[]string{"key"},
	)

	// RequestLatency tracks end-to-end transformation latency in seconds.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_latency_seconds",
			Help:    "End-to-end transformation latency in seconds.",
			Buckets: []float64{0.005, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "kind", "cache_status"},
	)

	// TokenUsageTotal tracks tokens consumed upstream.
	TokenUsageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_usage_total",
			Help: "Total number of tokens consumed.",
		},
		[]string{"backend", "direction"}, // direction: "input" or "output"
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of response cache hits.",
		},
	)

	CacheLookupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of response cache lookups.",
		},
	)

	// CircuitBreakerState is 0=closed, 1=open, 2=half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"backend"},
	)

	// ActiveRequests tracks the number of in-flight transformations.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_requests",
			Help: "Number of currently in-flight requests.",
		},
	)

	// RequestsTotal tracks HTTP requests by response status class.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests by status.",
		},
		[]string{"status"},
	)
)

// RecordCacheLookup records a cache lookup and whether it hit.
func RecordCacheLookup(hit bool) {
	CacheLookupsTotal.Inc()
	if hit {
		CacheHitsTotal.Inc()
	}
}

// RecordKeyPool publishes a pool snapshot.
func RecordKeyPool(size, available int, snapshot []resilience.KeyStatus) {
	KeyPoolSize.Set(float64(size))
	KeyPoolAvailable.Set(float64(available))
	for _, st := range snapshot {
		KeyUsage.WithLabelValues(st.ID).Set(float64(st.Used))
	}
}

// RecordBreakerState returns an OnStateChange hook that mirrors transitions
// into CircuitBreakerState for the given backend.
func RecordBreakerState(backend string) func(from, to resilience.CircuitState) {
	g := CircuitBreakerState.WithLabelValues(backend)
	g.Set(float64(resilience.StateClosed))
	return func(_, to resilience.CircuitState) {
		g.Set(float64(to))
	}
}
