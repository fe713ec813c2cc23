package searchers

import (
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"k8s.io/klog/v2"
)

// Timed stops the search once Config.SearchTime has elapsed, but never before the first iteration.
type Timed[A comparable] struct{}

// ShouldTerminate implements Terminator.
func (Timed[A]) ShouldTerminate(r *Run[A]) bool {
	return r.Stats.Iterations > 0 && r.TimeIsUp()
}

// Budget stops the search once Config.ExpansionBudget nodes were expanded, or Config.IterationBudget
// iterations were run. Budgets set to 0 are ignored.
type Budget[A comparable] struct{}

// ShouldTerminate implements Terminator.
func (Budget[A]) ShouldTerminate(r *Run[A]) bool {
	cfg := r.Config
	return (cfg.ExpansionBudget > 0 && r.Stats.NodesExpanded >= cfg.ExpansionBudget) ||
		(cfg.IterationBudget > 0 && r.Stats.Iterations >= cfg.IterationBudget)
}

// FullyEvaluated stops the search once the root has a backed-up value.
type FullyEvaluated[A comparable] struct{}

// ShouldTerminate implements Terminator.
func (FullyEvaluated[A]) ShouldTerminate(r *Run[A]) bool {
	return r.Root().Evaluated
}

// Immediately stops the search before the first iteration.
type Immediately[A comparable] struct{}

// ShouldTerminate implements Terminator.
func (Immediately[A]) ShouldTerminate(*Run[A]) bool { return true }

// AnyOf stops the search as soon as any of its terminators would.
type AnyOf[A comparable] []Terminator[A]

// ShouldTerminate implements Terminator.
func (terminators AnyOf[A]) ShouldTerminate(r *Run[A]) bool {
	for _, t := range terminators {
		if t.ShouldTerminate(r) {
			return true
		}
	}
	return false
}

// Deepening is the terminator for iterative deepening: it stops once the search time is over, but only
// after at least one depth was completed. It also stops if the game tree was exhausted or the depth cap
// reached. Iteration and expansion budgets are honored too, with the same condition.
type Deepening[A comparable] struct{}

// ShouldTerminate implements Terminator.
func (Deepening[A]) ShouldTerminate(r *Run[A]) bool {
	if r.Solved {
		return true
	}
	return r.HasBestMove && (r.TimeIsUp() || Budget[A]{}.ShouldTerminate(r))
}

// NoTrim never trims.
type NoTrim[A comparable] struct{}

// ShouldTrim implements Trimmer.
func (NoTrim[A]) ShouldTrim(*Run[A]) bool { return false }

// Trim implements Trimmer.
func (NoTrim[A]) Trim(*Run[A]) {}

// ProgressivePruning periodically (every Config.PruneFrequency root visits) removes the children whose visit
// count falls below count(parent)/(branching_factor + Config.PruningFactor), recursively into the fully
// expanded children that are kept. The most visited child of a node is always kept.
//
// Pruned children's visits stay counted in their ancestors, so afterwards a node's Count may exceed its
// own evaluations plus its children's counts.
//
// This is a heuristic: it has no statistical grounding, and it often plays worse than plain MCTS.
type ProgressivePruning[A comparable] struct{}

// ShouldTrim implements Trimmer.
func (ProgressivePruning[A]) ShouldTrim(r *Run[A]) bool {
	count := r.Root().Count
	return count > 0 && count%max(r.Config.PruneFrequency, 1) == 0
}

// Trim implements Trimmer.
func (ProgressivePruning[A]) Trim(r *Run[A]) {
	pruned := prunePass(r, r.Root())
	r.Stats.PrunedNodes += pruned
	if pruned > 0 && klog.V(2).Enabled() {
		klog.Infof("progressive pruning: removed %d children (root count %d)", pruned, r.Root().Count)
	}
}

func prunePass[A comparable](r *Run[A], n *tree.Node[A]) (pruned int) {
	if len(n.Children) == 0 {
		return 0
	}
	threshold := float64(n.Count) / (float64(n.BranchingFactor) + r.Config.PruningFactor)
	mostVisited := n.Children[0]
	for _, child := range r.Tree.Children(n) {
		if child.Count > r.Node(mostVisited).Count {
			mostVisited = child.ID
		}
	}
	pruned = r.Tree.Prune(n.ID, func(child *tree.Node[A]) bool {
		return child.ID == mostVisited || float64(child.Count) >= threshold
	})
	for _, child := range r.Tree.Children(n) {
		if child.IsFullyExpanded() {
			pruned += prunePass(r, child)
		}
	}
	return
}

// DeepeningRestart implements iterative deepening as a trim: once the root is fully evaluated, it records
// the best move and the completed depth, increments the depth limit and restarts the search with a fresh
// tree. If the tree didn't reach the depth limit and nothing was cut off (the game tree was exhausted), or
// the depth cap is reached, the run is marked as solved instead.
//
// The search starts at depth 1. Config.DepthLimit, if set, caps the depth.
type DeepeningRestart[A comparable] struct{}

// InitRun implements RunInitializer.
func (DeepeningRestart[A]) InitRun(r *Run[A]) {
	r.DepthCap = r.Config.DepthLimit
	r.DepthLimit = 1
}

// ShouldTrim implements Trimmer.
func (DeepeningRestart[A]) ShouldTrim(r *Run[A]) bool {
	return r.Root().Evaluated
}

// Trim implements Trimmer.
func (DeepeningRestart[A]) Trim(r *Run[A]) {
	move, err := minimaxMove(r)
	if err != nil {
		// A fully evaluated root always has an evaluated child.
		klog.Errorf("iterative deepening: %+v", err)
		r.Solved = true
		return
	}
	deepest := r.Tree.MaxDepth()
	completed := min(r.DepthLimit, deepest)
	exhausted := deepest < r.DepthLimit && !hasDiscarded(r.Tree)
	r.BestMove, r.HasBestMove = move, true
	r.Stats.CompletedDepth = completed
	r.DepthMoves = append(r.DepthMoves, move)
	r.DepthValues = append(r.DepthValues, r.Root().Eval)
	if klog.V(2).Enabled() {
		klog.Infof("iterative deepening: completed depth %d, best move %v (value %.3f), %s elapsed",
			completed, move, r.Root().Eval, r.Elapsed())
	}
	if exhausted || (r.DepthCap > 0 && r.DepthLimit >= r.DepthCap) {
		r.Solved = true
		return
	}
	r.DepthLimit++
	r.Reset()
}

// hasDiscarded returns whether any action was cut off, filtered or pruned in the tree.
func hasDiscarded[A comparable](t *tree.Tree[A]) bool {
	for n := range t.Walk() {
		if len(n.Discarded) > 0 {
			return true
		}
	}
	return false
}

var (
	_ Terminator[int]     = Timed[int]{}
	_ Terminator[int]     = Budget[int]{}
	_ Terminator[int]     = FullyEvaluated[int]{}
	_ Terminator[int]     = Immediately[int]{}
	_ Terminator[int]     = AnyOf[int]{}
	_ Terminator[int]     = Deepening[int]{}
	_ Trimmer[int]        = NoTrim[int]{}
	_ Trimmer[int]        = ProgressivePruning[int]{}
	_ Trimmer[int]        = DeepeningRestart[int]{}
	_ RunInitializer[int] = DeepeningRestart[int]{}
)
