package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NOTE: All metrics are registered globally on the default registry.
// Embedding applications get them for free through promhttp.Handler().

// namespace defines the global prefix for all metrics (e.g., heimdall_...).
const namespace = "heimdall"

// decisionBuckets targets in-memory evaluations: 10µs up to 10ms.
var decisionBuckets = []float64{.00001, .000025, .00005, .0001, .00025, .0005, .001, .0025, .005, .010}

// lowLatencyBuckets is used for the relay HTTP surface. Range: 1ms to 500ms.
var lowLatencyBuckets = []float64{.001, .002, .005, .010, .015, .020, .025, .030, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// SDK (decision path)
	// -------------------------------------------------------------------------

	// SDKDecisionsTotal counts decisions by kind and reason.
	// Metric: heimdall_sdk_decisions_total
	SDKDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sdk",
		Name:      "decisions_total",
		Help:      "Total decisions returned by the SDK",
	}, []string{"kind", "reason"})

	// SDKDecisionDuration measures the synchronous decision latency.
	// Metric: heimdall_sdk_decision_duration_seconds
	SDKDecisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sdk",
		Name:      "decision_duration_seconds",
		Help:      "Time taken to compute a decision",
		Buckets:   decisionBuckets,
	}, []string{"kind"})

	// -------------------------------------------------------------------------
	// L1 CACHE (otter)
	// -------------------------------------------------------------------------

	// CacheHits counts lookups served from an in-memory cache, by cache name.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total in-memory cache hits",
	}, []string{"cache"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total in-memory cache misses",
	}, []string{"cache"})

	// CacheItems is sampled by MemoryCache.RunMetricsCollector.
	CacheItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "items_count",
		Help:      "Current number of items in the in-memory cache",
	}, []string{"cache"})

	CacheEvictions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "evictions",
		Help:      "Items evicted from the in-memory cache since start",
	}, []string{"cache"})

	// -------------------------------------------------------------------------
	// EVENTS (processor + dispatcher)
	// -------------------------------------------------------------------------

	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "enqueued_total",
		Help:      "Total user events accepted by the processor queue",
	})

	// EventsDropped tracks events that never reach a sink.
	// stage=queue: processor queue full. stage=dispatch: dispatcher pool full.
	// stage=encode: the event has no JSON form (e.g. a NaN property).
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Total user events dropped before delivery",
	}, []string{"stage"})

	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "queue_depth",
		Help:      "Current number of messages in the processor queue",
	})

	// EventBatchesTotal counts batches handed to sinks, by sink and status (success, fail).
	EventBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "batches_total",
		Help:      "Total event batches delivered to a sink",
	}, []string{"sink", "status"})

	EventBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "batch_delivery_seconds",
		Help:      "Time taken to deliver one event batch",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sink"})

	// -------------------------------------------------------------------------
	// WORKSPACE (fetching)
	// -------------------------------------------------------------------------

	// WorkspaceFetchTotal counts fetch attempts by result (updated, not_modified, error).
	WorkspaceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "workspace",
		Name:      "fetch_total",
		Help:      "Total workspace fetch attempts",
	}, []string{"source", "result"})

	WorkspaceLastUpdated = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "workspace",
		Name:      "last_updated_timestamp_seconds",
		Help:      "Unix time of the last workspace swap",
	})

	// -------------------------------------------------------------------------
	// REDIS (snapshot store pool)
	// -------------------------------------------------------------------------

	// RedisPoolConnections reports the pool state (total, idle, stale).
	RedisPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_connections",
		Help:      "Current Redis pool connections by state",
	}, []string{"state"})

	RedisPoolHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_hits_total",
		Help:      "Times a free connection was found in the pool",
	})

	RedisPoolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_misses_total",
		Help:      "Times a free connection was not found in the pool",
	})

	RedisPoolTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_timeouts_total",
		Help:      "Times a wait for a pool connection timed out",
	})

	// -------------------------------------------------------------------------
	// DATABASE (event archive pool)
	// -------------------------------------------------------------------------

	// DBPoolConnections reports the pool state (total, idle, in_use, max).
	DBPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Current PostgreSQL pool connections by state",
	}, []string{"state"})

	DBPoolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Successful connection acquisitions",
	})

	DBPoolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Total time spent acquiring connections",
	})

	DBPoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Acquisitions that had to wait for a connection",
	})

	// StoreArchivedRows counts rows written by the event archive.
	StoreArchivedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "archived_rows_total",
		Help:      "Events persisted to the PostgreSQL archive",
	})

	// -------------------------------------------------------------------------
	// READINESS
	// -------------------------------------------------------------------------

	// ReadinessCheckDuration measures each dependency check run by the readiness probe.
	ReadinessCheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "readiness",
		Name:      "check_duration_seconds",
		Help:      "Time taken by a readiness dependency check",
		Buckets:   lowLatencyBuckets,
	}, []string{"component"})

	// ReadinessCheckFailures counts failed readiness checks per dependency.
	ReadinessCheckFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "readiness",
		Name:      "check_failures_total",
		Help:      "Readiness checks that reported a dependency as down",
	}, []string{"component"})

	// -------------------------------------------------------------------------
	// RELAY (HTTP)
	// -------------------------------------------------------------------------

	// RelayReqDuration measures the latency of relay HTTP requests.
	// Metric: heimdall_relay_http_handling_seconds
	RelayReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the relay",
		Buckets:   lowLatencyBuckets,
	}, []string{"method", "path"})

	// RelayReqTotal counts the total number of relay HTTP requests.
	RelayReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in the relay",
	}, []string{"method", "path", "code"})
)
