// Package metrics declares the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MembershipMutations counts committed add, remove and move operations.
	MembershipMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubelists_membership_mutations_total",
		Help: "Committed playlist membership mutations",
	}, []string{"operation"})

	// TransientRetries counts store operations retried after a lock or
	// serialization conflict, by outcome.
	TransientRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubelists_transient_retries_total",
		Help: "Store operations retried after a transient conflict",
	}, []string{"outcome"})

	// Propagations counts search index writes by action and result.
	Propagations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubelists_search_propagations_total",
		Help: "Search projection writes issued after committed mutations",
	}, []string{"action", "result"})

	PropagationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tubelists_search_propagation_duration_seconds",
		Help:    "Time spent recomputing and writing one playlist projection",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// BreakerState reports 0 closed, 1 half-open, 2 open per breaker.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tubelists_search_breaker_state",
		Help: "Circuit breaker state of the search index sink",
	}, []string{"name"})
)

// Searches counts served playlist searches.
var Searches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tubelists_playlist_searches_total",
	Help: "Playlist searches served",
})
