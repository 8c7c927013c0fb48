// Package metrics defines the Prometheus collectors exported by onair.
//
// Collectors are registered with the default registry at init time through
// promauto, and the HTTP surface exposes them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_pipeline_runs_total",
			Help: "Total number of pipeline runs by result",
		},
		[]string{"result"}, // success, failure
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onair_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	PublishedSongs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onair_published_songs",
			Help: "Number of songs in the currently published document",
		},
	)

	PublishedVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onair_published_version",
			Help: "Number of successful publishes since start",
		},
	)

	// Push Listener Metrics
	PushMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_push_messages_total",
			Help: "Total number of inbound push messages",
		},
	)

	PushReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_push_reconnects_total",
			Help: "Total number of push reconnect attempts",
		},
	)

	PushConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onair_push_connected",
			Help: "Whether the push connection is open (1) or not (0)",
		},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_upstream_requests_total",
			Help: "Total number of upstream requests by upstream and result",
		},
		[]string{"upstream", "result"},
	)

	LookupCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_lookup_cache_hits_total",
			Help: "Total number of metadata records served from the lookup cache",
		},
	)

	LookupCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_lookup_cache_misses_total",
			Help: "Total number of identifiers that missed the lookup cache",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onair_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
