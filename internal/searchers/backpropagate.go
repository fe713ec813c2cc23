package searchers

import (
	"math"
	"slices"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/tree"
)

// addSample folds value into the leaf and all its ancestors: each one counts it exactly once.
func addSample[A comparable](r *Run[A], id tree.NodeID, value float64) {
	n := r.Node(id)
	n.Evals++
	for ; n != nil; n = r.Tree.Parent(n) {
		n.Count++
		n.SumUtility += value
	}
}

// SumCount is the Monte Carlo backup: the evaluation is added to the count and cumulative utility of the
// leaf and of each of its ancestors, so the average utility of a node is SumUtility/Count.
//
// A node's Count is always its own number of evaluations (Evals) plus the sum of its children's counts.
type SumCount[A comparable] struct{}

// Backpropagate implements Backpropagator.
func (SumCount[A]) Backpropagate(r *Run[A], id tree.NodeID, evaluation Evaluation, evaluated bool) {
	if !evaluated {
		return
	}
	addSample(r, id, evaluation.Sample())
}

// evaluatedChildren returns the evaluations of the children of n that have one, and whether all children
// are evaluated.
func evaluatedChildren[A comparable](r *Run[A], n *tree.Node[A]) (evals []float64, all bool) {
	all = true
	evals = make([]float64, 0, len(n.Children))
	for _, child := range r.Tree.Children(n) {
		if child.Evaluated {
			evals = append(evals, child.Eval)
		} else {
			all = false
		}
	}
	return
}

// Minimax backs up minimax values. A node's value is updated only once it has no unexpanded actions
// (either fully expanded or cut off) and all of its children are evaluated; it becomes the max (or min,
// for minimizing nodes) of its children's values. Propagation stops at the first ancestor whose value
// doesn't change.
//
// Alpha (at maximizing nodes) and beta (at minimizing nodes) bounds are tightened with the values of the
// children evaluated so far, for use by the AlphaBeta expander.
//
// If called without an evaluation, the node itself is updated from its children: this happens after an
// alpha-beta cutoff.
type Minimax[A comparable] struct{}

// Backpropagate implements Backpropagator.
func (Minimax[A]) Backpropagate(r *Run[A], id tree.NodeID, evaluation Evaluation, evaluated bool) {
	n := r.Node(id)
	if !evaluated {
		minimaxUpdate(r, n)
		return
	}
	if !setEval(n, evaluation.Value) {
		return
	}
	if parent := r.Tree.Parent(n); parent != nil {
		minimaxUpdate(r, parent)
	}
}

// setEval sets the evaluation of the node, and returns whether it changed.
func setEval[A comparable](n *tree.Node[A], value float64) bool {
	changed := !n.Evaluated || n.Eval != value
	n.Eval, n.Evaluated = value, true
	return changed
}

// minimaxUpdate recomputes the value of n and its ancestors from their children.
func minimaxUpdate[A comparable](r *Run[A], n *tree.Node[A]) {
	for ; n != nil; n = r.Tree.Parent(n) {
		evals, all := evaluatedChildren(r, n)
		if len(evals) == 0 {
			return
		}
		var value float64
		if n.IsMaxNode() {
			value = slices.Max(evals)
			n.Alpha = math.Max(n.Alpha, value)
		} else {
			value = slices.Min(evals)
			n.Beta = math.Min(n.Beta, value)
		}
		if !all || !n.IsFullyExpanded() {
			return
		}
		if !setEval(n, value) {
			return
		}
	}
}

// Expectimax backs up max values at maximizing nodes, and probability weighted averages at the other
// nodes (chance nodes). The weights come from the game, see games.Stochastic; if the game provides none,
// children are weighted uniformly. Like Minimax, a node is only updated once fully expanded and with all
// children evaluated.
type Expectimax[A comparable] struct{}

// Backpropagate implements Backpropagator.
func (Expectimax[A]) Backpropagate(r *Run[A], id tree.NodeID, evaluation Evaluation, evaluated bool) {
	n := r.Node(id)
	if evaluated {
		if !setEval(n, evaluation.Value) {
			return
		}
		n = r.Tree.Parent(n)
	}
	for ; n != nil; n = r.Tree.Parent(n) {
		if !n.IsFullyExpanded() || len(n.Children) == 0 {
			return
		}
		evals, all := evaluatedChildren(r, n)
		if !all {
			return
		}
		var value float64
		if n.IsMaxNode() {
			value = slices.Max(evals)
		} else {
			value = expectedValue(r, n, evals)
		}
		if !setEval(n, value) {
			return
		}
	}
}

// expectedValue returns the average of the children evaluations (in children order), weighted by the
// probability of the child's action. Weights are renormalized over the existing children.
func expectedValue[A comparable](r *Run[A], n *tree.Node[A], evals []float64) float64 {
	var distribution []float64
	if stochastic, ok := n.State.(games.Stochastic); ok {
		distribution = stochastic.Distribution()
	}
	actions := n.State.Actions()
	var sum, totalWeight float64
	for ii, child := range r.Tree.Children(n) {
		weight := 1.0
		if distribution != nil {
			if idx := slices.Index(actions, child.Action); idx >= 0 {
				weight = distribution[idx]
			}
		}
		sum += weight * evals[ii]
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return sum / totalWeight
}

// StoreEvalAndSum stores the static part of a combined evaluation in the leaf, and backs up the rollout
// part with SumCount.
type StoreEvalAndSum[A comparable] struct{}

// Backpropagate implements Backpropagator.
func (StoreEvalAndSum[A]) Backpropagate(r *Run[A], id tree.NodeID, evaluation Evaluation, evaluated bool) {
	if !evaluated {
		return
	}
	setEval(r.Node(id), evaluation.Value)
	addSample(r, id, evaluation.Sample())
}

// SumAndMinimax backs up the rollout part of a combined evaluation with SumCount, and the static part
// with minimax over the children present in the tree, regardless of whether the node is fully expanded.
// Minimax propagation stops at the first ancestor whose value doesn't change.
type SumAndMinimax[A comparable] struct{}

// Backpropagate implements Backpropagator.
func (SumAndMinimax[A]) Backpropagate(r *Run[A], id tree.NodeID, evaluation Evaluation, evaluated bool) {
	if !evaluated {
		return
	}
	addSample(r, id, evaluation.Sample())
	n := r.Node(id)
	if !setEval(n, evaluation.Value) {
		return
	}
	for n = r.Tree.Parent(n); n != nil; n = r.Tree.Parent(n) {
		evals, _ := evaluatedChildren(r, n)
		if len(evals) == 0 {
			return
		}
		value := slices.Min(evals)
		if n.IsMaxNode() {
			value = slices.Max(evals)
		}
		if !setEval(n, value) {
			return
		}
	}
}

var (
	_ Backpropagator[int] = SumCount[int]{}
	_ Backpropagator[int] = Minimax[int]{}
	_ Backpropagator[int] = Expectimax[int]{}
	_ Backpropagator[int] = StoreEvalAndSum[int]{}
	_ Backpropagator[int] = SumAndMinimax[int]{}
)
