package searchers

import (
	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/generics"
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"github.com/pkg/errors"
)

// MostRobust chooses the action of the most visited root child, the first one on ties.
type MostRobust[A comparable] struct{}

// Extract implements Extractor.
func (MostRobust[A]) Extract(r *Run[A]) (action A, err error) {
	children := r.Tree.ChildNodes(r.Root())
	if len(children) == 0 {
		return action, errors.Wrap(ErrNoMove, "root has no children")
	}
	idx := generics.ArgMax(children, func(child *tree.Node[A]) float64 { return float64(child.Count) })
	return children[idx].Action, nil
}

// minimaxMove returns the action of the first root child with the best evaluation for the root player.
func minimaxMove[A comparable](r *Run[A]) (action A, err error) {
	root := r.Root()
	var evaluated []*tree.Node[A]
	for _, child := range r.Tree.Children(root) {
		if child.Evaluated {
			evaluated = append(evaluated, child)
		}
	}
	if len(evaluated) == 0 {
		return action, errors.Wrap(ErrNoMove, "no evaluated root children")
	}
	eval := func(child *tree.Node[A]) float64 { return child.Eval }
	var idx int
	if root.IsMaxNode() {
		idx = generics.ArgMax(evaluated, eval)
	} else {
		idx = generics.ArgMin(evaluated, eval)
	}
	return evaluated[idx].Action, nil
}

// MinimaxMove chooses the action of the root child with the best backed-up value for the player at the root.
// Ties are broken deterministically in favor of the first child.
type MinimaxMove[A comparable] struct{}

// Extract implements Extractor.
func (MinimaxMove[A]) Extract(r *Run[A]) (A, error) {
	return minimaxMove(r)
}

// StoredBestMove returns the best move recorded by iterative deepening at its last completed depth.
type StoredBestMove[A comparable] struct{}

// Extract implements Extractor.
func (StoredBestMove[A]) Extract(r *Run[A]) (action A, err error) {
	if !r.HasBestMove {
		return action, errors.Wrap(ErrNoMove, "no depth was completed")
	}
	return r.BestMove, nil
}

// WeightedEvalUtility chooses the root child with the best interpolation between its stored static evaluation
// and its average utility, as WeightedUCT does but without the exploration term.
type WeightedEvalUtility[A comparable] struct{}

// Extract implements Extractor.
func (WeightedEvalUtility[A]) Extract(r *Run[A]) (action A, err error) {
	root := r.Root()
	var visited []*tree.Node[A]
	for _, child := range r.Tree.Children(root) {
		if child.Count > 0 {
			visited = append(visited, child)
		}
	}
	if len(visited) == 0 {
		return action, errors.Wrap(ErrNoMove, "no visited root children")
	}
	idx := generics.ArgMax(visited, func(child *tree.Node[A]) float64 { return weightedEval(root, child) })
	return visited[idx].Action, nil
}

// RandomMove chooses randomly among the actions applicable at the root: following the game's distribution
// at chance nodes (see games.Stochastic), uniformly otherwise.
type RandomMove[A comparable] struct{}

// Extract implements Extractor.
func (RandomMove[A]) Extract(r *Run[A]) (action A, err error) {
	actions := r.State.Actions()
	if len(actions) == 0 {
		return action, errors.Wrap(ErrNoMove, "root has no actions")
	}
	if stochastic, ok := r.State.(games.Stochastic); ok {
		if distribution := stochastic.Distribution(); distribution != nil {
			return actions[games.SampleIndex(distribution, r.Rand)], nil
		}
	}
	return actions[r.Rand.IntN(len(actions))], nil
}

var (
	_ Extractor[int] = MostRobust[int]{}
	_ Extractor[int] = MinimaxMove[int]{}
	_ Extractor[int] = StoredBestMove[int]{}
	_ Extractor[int] = WeightedEvalUtility[int]{}
	_ Extractor[int] = RandomMove[int]{}
)
