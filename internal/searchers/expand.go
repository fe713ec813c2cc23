package searchers

import (
	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"k8s.io/klog/v2"
)

// ExpandNext creates the child for the next unexpanded action of the node (actions are expanded in the
// order the game lists them). Terminal and fully expanded nodes are returned unchanged.
//
// If the run uses a frontier, the node is pushed back when it still has unexpanded actions, and then the
// new child is pushed: so with a depth-first frontier the child is explored before its siblings.
type ExpandNext[A comparable] struct{}

// Expand implements Expander.
func (ExpandNext[A]) Expand(r *Run[A], id tree.NodeID) tree.NodeID {
	n := r.Node(id)
	if n.IsTerminal() || n.IsFullyExpanded() {
		return id
	}
	childID := r.Tree.ExpandNext(id)
	r.noteExpansion(childID)
	if r.Frontier.Active() {
		if !n.IsFullyExpanded() {
			r.Frontier.Push(id)
		}
		r.Frontier.Push(childID)
	}
	return childID
}

// ExpandAll creates all the remaining children of the node at once, and returns the last one created.
// New children are pushed to the frontier, if one is used, such that they are popped in action order.
type ExpandAll[A comparable] struct{}

// Expand implements Expander.
func (ExpandAll[A]) Expand(r *Run[A], id tree.NodeID) tree.NodeID {
	n := r.Node(id)
	if n.IsTerminal() || n.IsFullyExpanded() {
		return id
	}
	first := len(n.Children)
	for !n.IsFullyExpanded() {
		r.noteExpansion(r.Tree.ExpandNext(id))
	}
	created := n.Children[first:]
	if r.Frontier.Active() {
		if r.Frontier.mode == DepthFirst {
			for ii := len(created) - 1; ii >= 0; ii-- {
				r.Frontier.Push(created[ii])
			}
		} else {
			for _, childID := range created {
				r.Frontier.Push(childID)
			}
		}
	}
	return created[len(created)-1]
}

// DepthLimited refuses to expand nodes at (or beyond) the run's depth limit, returning them unchanged.
// Otherwise it delegates to Expander.
type DepthLimited[A comparable] struct {
	Expander[A]
}

// Expand implements Expander.
func (d DepthLimited[A]) Expand(r *Run[A], id tree.NodeID) tree.NodeID {
	if r.Node(id).Depth >= r.DepthLimit {
		return id
	}
	return d.Expander.Expand(r, id)
}

// AlphaBeta checks, before expanding a node any further, whether the value of its most recently created
// child already falls outside the window inherited from its ancestors: above beta for a maximizing node,
// or below alpha for a minimizing node. If so, the remaining actions are discarded (a cutoff) and the node
// itself is returned, so that its backed-up value can be updated. Otherwise it delegates to Expander.
//
// Strict inequalities are used, so that pruned moves never tie with the best move.
type AlphaBeta[A comparable] struct {
	Expander[A]
}

// Expand implements Expander.
func (ab AlphaBeta[A]) Expand(r *Run[A], id tree.NodeID) tree.NodeID {
	n := r.Node(id)
	if len(n.Children) > 0 && !n.IsFullyExpanded() {
		last := r.Node(n.Children[len(n.Children)-1])
		if last.Evaluated && ((n.IsMaxNode() && last.Eval > n.Beta) || (!n.IsMaxNode() && last.Eval < n.Alpha)) {
			r.Stats.ABPrunes++
			discarded := r.Tree.Cutoff(id)
			if klog.V(3).Enabled() {
				klog.Infof("alpha-beta cutoff at node #%d (depth %d): eval=%g, alpha=%g, beta=%g, %d actions discarded",
					id, n.Depth, last.Eval, n.Alpha, n.Beta, discarded)
			}
			return id
		}
	}
	return ab.Expander.Expand(r, id)
}

// Beam restricts the unexpanded actions of the root, and of every new leaf, to the candidates given by the
// game (see games.BeamFilter), and delegates the expansion to Expander. Games that don't implement
// games.BeamFilter are searched without restriction.
type Beam[A comparable] struct {
	Expander[A]
}

// Expand implements Expander.
func (b Beam[A]) Expand(r *Run[A], id tree.NodeID) tree.NodeID {
	if id == tree.Root && len(r.Root().Children) == 0 {
		restrictToBeam(r, id)
	}
	leaf := b.Expander.Expand(r, id)
	if leaf != id && !r.Node(leaf).IsFullyExpanded() {
		restrictToBeam(r, leaf)
	}
	return leaf
}

func restrictToBeam[A comparable](r *Run[A], id tree.NodeID) {
	n := r.Node(id)
	filter, ok := n.State.(games.BeamFilter[A])
	if !ok {
		return
	}
	beam := filter.BeamActions()
	if len(beam) == 0 {
		return
	}
	r.Tree.Restrict(id, beam)
}

var (
	_ Expander[int] = ExpandNext[int]{}
	_ Expander[int] = ExpandAll[int]{}
	_ Expander[int] = DepthLimited[int]{}
	_ Expander[int] = AlphaBeta[int]{}
	_ Expander[int] = Beam[int]{}
)
