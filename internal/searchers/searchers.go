// Package searchers implements a generic game tree search driver, parametrized by interchangeable
// strategies.
//
// An Agent binds one implementation to each of the strategy slots (Selector, Expander, Evaluator,
// Backpropagator, Terminator, Trimmer and Extractor). Its search loop is always the same:
//
//	for !terminate {
//	    node := select()
//	    leaf := expand(node)
//	    value := evaluate(leaf)
//	    backpropagate(leaf, value)
//	    if shouldTrim { trim() }
//	}
//	return extract()
//
// MCTS, minimax, alpha-beta, iterative deepening, beam search, best-first minimax and progressive pruning
// are all different bindings of these slots. See package agents for the predefined ones.
//
// Strategies are stateless: everything that changes during a search lives in the Run record, so one
// Agent can be used for any number of searches, even concurrently.
package searchers

import (
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidState is returned when a search is requested on a terminal state.
	ErrInvalidState = errors.New("cannot search a terminal state")

	// ErrIncompleteAgent is returned by Builder.Build when some strategy slot is not bound.
	ErrIncompleteAgent = errors.New("incomplete agent")

	// ErrNoMove is returned by extractors that find no candidate move in the tree.
	ErrNoMove = errors.New("no move available")
)

// Evaluation of a leaf. Most evaluators produce a single Value. Combined evaluators produce both a
// static evaluation (Value) and a simulation result (Rollout).
type Evaluation struct {
	Value    float64
	Rollout  float64
	Combined bool
}

// ValueOf returns a single valued Evaluation.
func ValueOf(v float64) Evaluation {
	return Evaluation{Value: v}
}

// Sample returns the value to be averaged by Monte Carlo backups: the rollout result for combined
// evaluations, Value otherwise.
func (e Evaluation) Sample() float64 {
	if e.Combined {
		return e.Rollout
	}
	return e.Value
}

// Selector picks the node to expand next.
type Selector[A comparable] interface {
	// Select returns the node to expand. It returns false if there is nothing left to select,
	// which ends the search.
	Select(r *Run[A]) (tree.NodeID, bool)
}

// Expander materializes children of the selected node.
type Expander[A comparable] interface {
	// Expand returns the node to evaluate: usually a newly created child, or the node itself if it
	// can't (or shouldn't) be expanded.
	Expand(r *Run[A], id tree.NodeID) tree.NodeID
}

// Evaluator scores a leaf.
type Evaluator[A comparable] interface {
	// Evaluate returns the evaluation of the node, or false if the node should not be evaluated.
	Evaluate(r *Run[A], id tree.NodeID) (Evaluation, bool)
}

// Backpropagator folds a leaf's evaluation into the tree.
type Backpropagator[A comparable] interface {
	// Backpropagate is called after every evaluation attempt. If evaluated is false there is no
	// value, but the node may still need updating (e.g.: after an alpha-beta cutoff).
	Backpropagate(r *Run[A], id tree.NodeID, evaluation Evaluation, evaluated bool)
}

// Terminator decides when the search stops. It is checked once per iteration.
type Terminator[A comparable] interface {
	ShouldTerminate(r *Run[A]) bool
}

// Trimmer optionally reshapes the tree after each iteration.
type Trimmer[A comparable] interface {
	ShouldTrim(r *Run[A]) bool
	Trim(r *Run[A])
}

// Extractor chooses the final action once the search is over.
type Extractor[A comparable] interface {
	Extract(r *Run[A]) (A, error)
}

// RunInitializer can be implemented by any strategy that needs to set up the Run before the search starts.
type RunInitializer[A comparable] interface {
	InitRun(r *Run[A])
}

// FrontierUser is implemented by selectors that consume an explicit frontier of nodes. Expanders push
// new nodes to the frontier only when the selector uses one.
type FrontierUser interface {
	FrontierMode() FrontierMode
}
