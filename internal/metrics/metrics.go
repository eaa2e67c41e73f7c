// Package metrics exposes process-wide counters for discovery, sync and
// query activity. Exposition is left to the embedding command surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModulesDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "augext_modules_discovered_total",
		Help: "Modules successfully loaded across discovery passes.",
	})

	ModulesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "augext_modules_skipped_total",
		Help: "Module candidates skipped due to validation failures.",
	})

	SyncChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "augext_sync_changes_total",
		Help: "Manifest entries touched by sync runs.",
	}, []string{"store", "op"})

	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "augext_sync_runs_total",
		Help: "Completed sync runs by outcome.",
	}, []string{"store", "outcome"})

	QueryCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "augext_query_cache_hits_total",
		Help: "Query results served from the warm cache.",
	})

	QueryCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "augext_query_cache_misses_total",
		Help: "Query cache flushes caused by manifest version changes.",
	})
)
