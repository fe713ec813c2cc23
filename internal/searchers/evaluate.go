package searchers

import (
	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/lookup"
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"k8s.io/klog/v2"
)

// staticValue returns the game's own heuristic if it has one, the utility otherwise. Terminal states
// always return their utility.
func staticValue[A comparable](state games.State[A]) float64 {
	if state.IsTerminal() {
		return state.Utility()
	}
	if h, ok := state.(games.Heuristic); ok {
		return h.Heuristic()
	}
	return state.Utility()
}

// rollout plays randomly from state until the game ends, records the simulation length and returns the
// terminal utility.
func rollout[A comparable](r *Run[A], state games.State[A]) float64 {
	final, length := games.Playout(state, r.Rand)
	r.Stats.SimulationLengths = append(r.Stats.SimulationLengths, length)
	return final.Utility()
}

// TerminalUtility evaluates only terminal states, to their utility.
type TerminalUtility[A comparable] struct{}

// Evaluate implements Evaluator.
func (TerminalUtility[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	state := r.Node(id).State
	if !state.IsTerminal() {
		return Evaluation{}, false
	}
	return ValueOf(state.Utility()), true
}

// Static evaluates states with the game's heuristic (see games.Heuristic).
type Static[A comparable] struct{}

// Evaluate implements Evaluator.
func (Static[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	return ValueOf(staticValue(r.Node(id).State)), true
}

// Rollout evaluates a state by the utility at the end of a uniformly random playout.
type Rollout[A comparable] struct{}

// Evaluate implements Evaluator.
func (Rollout[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	return ValueOf(rollout(r, r.Node(id).State)), true
}

// RolloutMany averages Config.NumSimulations random playouts.
type RolloutMany[A comparable] struct{}

// Evaluate implements Evaluator.
func (RolloutMany[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	n := max(r.Config.NumSimulations, 1)
	state := r.Node(id).State
	var sum float64
	for range n {
		sum += rollout(r, state)
	}
	return ValueOf(sum / float64(n)), true
}

// Combined returns both the static evaluation and a random playout result, for backups that use both.
type Combined[A comparable] struct{}

// Evaluate implements Evaluator.
func (Combined[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	state := r.Node(id).State
	return Evaluation{Value: staticValue(state), Rollout: rollout(r, state), Combined: true}, true
}

// Lookup evaluates positions found in a read-only lookup table, and delegates the others to Fallback.
// States must implement games.Keyed, otherwise Fallback is always used.
type Lookup[A comparable] struct {
	Table    lookup.Table
	Fallback Evaluator[A]
}

// Evaluate implements Evaluator.
func (l Lookup[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	if keyed, ok := r.Node(id).State.(games.Keyed); ok && l.Table != nil {
		value, found, err := l.Table.Lookup(keyed.Key())
		if err != nil {
			klog.Errorf("lookup table failed, using fallback evaluation: %+v", err)
		} else if found {
			r.Stats.LookupHits++
			return ValueOf(value), true
		}
	}
	return l.Fallback.Evaluate(r, id)
}

// DepthGated only evaluates nodes at the run's depth limit, or terminal nodes, delegating to Evaluator.
// Other nodes are left unevaluated, their values will be backed-up from their children.
//
// Each leaf is evaluated once: with a frontier, a new leaf is evaluated when created and again returned
// by the expander when popped, and the second time it is skipped.
type DepthGated[A comparable] struct {
	Evaluator[A]
}

// Evaluate implements Evaluator.
func (d DepthGated[A]) Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool) {
	n := r.Node(id)
	if (n.Depth < r.DepthLimit && !n.IsTerminal()) || n.Evaluated {
		return Evaluation{}, false
	}
	return d.Evaluator.Evaluate(r, id)
}

var (
	_ Evaluator[int] = TerminalUtility[int]{}
	_ Evaluator[int] = Static[int]{}
	_ Evaluator[int] = Rollout[int]{}
	_ Evaluator[int] = RolloutMany[int]{}
	_ Evaluator[int] = Combined[int]{}
	_ Evaluator[int] = Lookup[int]{}
	_ Evaluator[int] = DepthGated[int]{}
)
