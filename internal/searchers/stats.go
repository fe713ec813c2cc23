package searchers

import (
	"fmt"
	"strings"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/generics"
)

// Stats collected during a search: for benchmarking, monitoring and debugging purposes.
// Only the driver and the strategies of the Run that owns it update it.
type Stats struct {
	// Iterations of the select/expand/evaluate/backpropagate loop.
	Iterations int

	// TimeSpent measured with the configured clock.
	TimeSpent time.Duration

	// NodesExpanded is the number of nodes created (the root excluded).
	NodesExpanded int

	// Evaluations is the number of leaves effectively evaluated.
	Evaluations int

	// DepthReached is the depth of the deepest node created.
	DepthReached int

	// CompletedDepth is the last depth fully searched by iterative deepening.
	CompletedDepth int

	// SimulationLengths holds the number of moves of each rollout.
	SimulationLengths []int

	// ABPrunes counts alpha-beta cutoffs.
	ABPrunes int

	// PrunedNodes counts children removed by progressive pruning.
	PrunedNodes int

	// PartialExpansions counts descents into a child before its parent was fully expanded.
	PartialExpansions int

	// LookupHits counts evaluations served by a lookup table.
	LookupHits int

	// Exhausted is set if the search ended because the selector had nothing left to select.
	Exhausted bool
}

// MeanSimulationLength returns the average number of moves per rollout.
func (s *Stats) MeanSimulationLength() float64 {
	return generics.Mean(s.SimulationLengths)
}

// AsMap returns the statistics keyed by name.
func (s *Stats) AsMap() map[string]any {
	return map[string]any{
		"iterations":         s.Iterations,
		"time_spent":         s.TimeSpent.Seconds(),
		"nodes_expanded":     s.NodesExpanded,
		"evaluations":        s.Evaluations,
		"depth_reached":      s.DepthReached,
		"completed_depth":    s.CompletedDepth,
		"simulation_lengths": s.SimulationLengths,
		"ab_prunes":          s.ABPrunes,
		"pruned_nodes":       s.PrunedNodes,
		"partial_expansions": s.PartialExpansions,
		"lookup_hits":        s.LookupHits,
		"exhausted":          s.Exhausted,
	}
}

// String implements fmt.Stringer. Simulation lengths are summarized by their count and mean.
func (s *Stats) String() string {
	parts := make([]string, 0, 12)
	for key, value := range generics.SortedKeysAndValues(s.AsMap()) {
		if key == "simulation_lengths" {
			parts = append(parts, fmt.Sprintf("simulations=%d, mean_simulation_length=%.1f",
				len(s.SimulationLengths), s.MeanSimulationLength()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", key, value))
	}
	return strings.Join(parts, ", ")
}
