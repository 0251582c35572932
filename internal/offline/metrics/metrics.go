package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks intercepted requests by class and where the answer came from
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_requests_total",
			Help: "Total number of intercepted requests",
		},
		[]string{"class", "source"},
	)

	// RequestLatency tracks end-to-end handling time per class
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outpost_request_latency_seconds",
			Help:    "Request handling latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class"},
	)

	// FallbacksTotal tracks how far down a fallback chain a request went
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_fallbacks_total",
			Help: "Total number of fallback answers",
		},
		[]string{"class", "step"},
	)

	// CacheLookups tracks cache hits and misses per region
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"region", "result"},
	)

	// RevalidationsTotal tracks background refreshes by outcome
	RevalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_revalidations_total",
			Help: "Total number of background revalidations",
		},
		[]string{"result"},
	)

	// UpstreamErrors tracks network failures reaching the origin
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_upstream_errors_total",
			Help: "Total number of upstream transport errors",
		},
		[]string{"class"},
	)

	// OutboxDepth tracks entries waiting to be replayed
	OutboxDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_outbox_depth",
			Help: "Number of mutations waiting in the outbox",
		},
	)

	// DrainsTotal tracks drain runs by result (complete, partial, failed, skipped)
	DrainsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_drains_total",
			Help: "Total number of outbox drains",
		},
		[]string{"result"},
	)

	// EntriesDelivered tracks outbox entries confirmed by the origin
	EntriesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_entries_delivered_total",
			Help: "Total number of replayed entries confirmed upstream",
		},
	)

	// RegionsEvicted tracks cache regions removed on activation
	RegionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outpost_regions_evicted_total",
			Help: "Total number of stale cache regions deleted",
		},
	)

	// NotificationsTotal tracks push payloads by channel and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outpost_notifications_total",
			Help: "Total number of push payloads handled",
		},
		[]string{"channel", "result"},
	)

	// UpstreamOnline is 1 while the last connectivity probe succeeded
	UpstreamOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_upstream_online",
			Help: "Whether the origin is reachable (1) or not (0)",
		},
	)

	// StoreConnectionPoolUsage tracks open/max connections for SQL backends
	StoreConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outpost_store_connection_pool_usage",
			Help: "Percentage of the storage connection pool in use",
		},
	)
)
