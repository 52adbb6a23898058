package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result (hit, miss)",
	}, []string{"family", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SweepRuns counts anonymization sweep passes by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_anonymize_sweep_runs_total",
		Help: "Anonymization sweep passes by result (ok, error)",
	}, []string{"result"})

	// UsersAnonymized counts accounts scrubbed by the sweep.
	UsersAnonymized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_users_anonymized_total",
		Help: "Total number of withdrawn accounts anonymized",
	})

	// SweepDuration records how long a sweep pass takes.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inkwell_anonymize_sweep_duration_seconds",
		Help:    "Duration of anonymization sweep passes",
		Buckets: prometheus.DefBuckets,
	})

	// AccountTransitions counts lifecycle transitions by target state.
	AccountTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_account_transitions_total",
		Help: "Account lifecycle transitions by target state",
	}, []string{"state"})

	// InvalidationsPublished counts cache invalidation targets emitted.
	InvalidationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_invalidations_total",
		Help: "Cache invalidation targets emitted by kind",
	}, []string{"kind"})

	// WebSocketConnectionsTotal is the gauge of connected invalidation listeners.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts events dropped for slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
