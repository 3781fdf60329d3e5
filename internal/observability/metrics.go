package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spsl_cache_hits_total",
		Help: "Total number of resource cache hits.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spsl_cache_misses_total",
		Help: "Total number of resource cache misses.",
	})

	ResourceReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spsl_resource_reloads_total",
		Help: "Total number of successful hot reloads, cascades included.",
	})

	ReloadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spsl_reload_failures_total",
		Help: "Total number of reload attempts that kept the stale value.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spsl_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	DirtyDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spsl_dirty_dropped_total",
		Help: "Total number of dirty events dropped due to a full queue.",
	})

	CompileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spsl_compile_seconds",
		Help:    "Time spent linking and emitting a shader program.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)
