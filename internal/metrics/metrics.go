// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chronolookup"

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by cache, namespace and result (hit, miss, expired).",
		},
		[]string{"cache", "namespace", "result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed by expiry checks and sweeps.",
		},
		[]string{"cache"},
	)

	SnapshotOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_snapshot_operations_total",
			Help:      "Snapshot persist/restore operations by outcome.",
		},
		[]string{"cache", "op", "outcome"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Attempts made by the retry controller, by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP requests by host and status code (0 for transport errors).",
		},
		[]string{"host", "status"},
	)

	IconResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "icon_resolutions_total",
			Help:      "Icon fallback chain results by kind and source.",
		},
		[]string{"kind", "source"},
	)

	StaleResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_stale_results_total",
			Help:      "Search results discarded because a newer search superseded them.",
		},
		[]string{"kind"},
	)
)
