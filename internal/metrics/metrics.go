// Package metrics exports search statistics and match results to Prometheus.
package metrics

import (
	"github.com/AntonJorg/general-tree-search/internal/generics"
	"github.com/AntonJorg/general-tree-search/internal/searchers"
	"github.com/AntonJorg/general-tree-search/internal/searchers/agents"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "gts"

	// unknownAgent is used as label for agents not in the catalog, to bound the metrics cardinality.
	unknownAgent = "unknown"
)

// Match results, used as label values.
const (
	ResultFirstWins  = "first_wins"
	ResultSecondWins = "second_wins"
	ResultDraw       = "draw"
)

// Recorder of search and match metrics. It is safe for concurrent use.
type Recorder struct {
	knownAgents generics.Set[string]

	searches      *prometheus.CounterVec
	iterations    *prometheus.CounterVec
	nodesExpanded *prometheus.CounterVec
	abPrunes      *prometheus.CounterVec
	prunedNodes   *prometheus.CounterVec
	lookupHits    *prometheus.CounterVec
	searchTime    *prometheus.HistogramVec
	depthReached  *prometheus.HistogramVec
	simulations   *prometheus.HistogramVec
	matches       *prometheus.CounterVec
}

// NewRecorder creates the metrics and registers them with reg. It panics if they are already registered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      name,
			Help:      help,
		}, labels)
	}
	return &Recorder{
		knownAgents:   generics.SetWith(agents.Names()...),
		searches:      counter("searches_total", "Total searches by agent.", "agent"),
		iterations:    counter("iterations_total", "Total search loop iterations by agent.", "agent"),
		nodesExpanded: counter("nodes_expanded_total", "Total tree nodes created by agent.", "agent"),
		abPrunes:      counter("ab_prunes_total", "Total alpha-beta cutoffs by agent.", "agent"),
		prunedNodes:   counter("pruned_nodes_total", "Total children removed by progressive pruning, by agent.", "agent"),
		lookupHits:    counter("lookup_hits_total", "Total evaluations served by a lookup table, by agent.", "agent"),
		searchTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Time spent per search, measured with the configured clock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"agent"}),
		depthReached: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "depth_reached",
			Help:      "Depth of the deepest node created per search.",
			Buckets:   prometheus.LinearBuckets(1, 2, 12),
		}, []string{"agent"}),
		simulations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "simulation_length",
			Help:      "Mean number of moves of the random playouts of a search.",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		}, []string{"agent"}),
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "results_total",
			Help:      "Total matches played, by result.",
		}, []string{"result"}),
	}
}

// agentLabel returns the agent name if it is a known one, or "unknown".
func (r *Recorder) agentLabel(agent string) string {
	if r.knownAgents.Has(agent) {
		return agent
	}
	return unknownAgent
}

// ObserveSearch records the statistics of one search made by the named agent.
func (r *Recorder) ObserveSearch(agent string, stats *searchers.Stats) {
	if stats == nil {
		return
	}
	label := r.agentLabel(agent)
	r.searches.WithLabelValues(label).Inc()
	r.iterations.WithLabelValues(label).Add(float64(stats.Iterations))
	r.nodesExpanded.WithLabelValues(label).Add(float64(stats.NodesExpanded))
	r.abPrunes.WithLabelValues(label).Add(float64(stats.ABPrunes))
	r.prunedNodes.WithLabelValues(label).Add(float64(stats.PrunedNodes))
	r.lookupHits.WithLabelValues(label).Add(float64(stats.LookupHits))
	r.searchTime.WithLabelValues(label).Observe(stats.TimeSpent.Seconds())
	r.depthReached.WithLabelValues(label).Observe(float64(stats.DepthReached))
	if len(stats.SimulationLengths) > 0 {
		r.simulations.WithLabelValues(label).Observe(stats.MeanSimulationLength())
	}
}

// ObserveMatch records the result of a match, one of ResultFirstWins, ResultSecondWins or ResultDraw.
func (r *Recorder) ObserveMatch(result string) {
	r.matches.WithLabelValues(result).Inc()
}
