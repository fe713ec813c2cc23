// Package tree implements the search tree shared by all search strategies.
//
// Nodes live in an arena owned by the Tree and are addressed by NodeID. A node stores the ID of its
// parent (used only to walk up during backpropagation) and the IDs of its children, in the order they
// were created. Nodes are never freed individually: pruned subtrees become unreachable from the root,
// and iterative deepening replaces the whole Tree.
package tree

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/generics"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// NodeID addresses a node in its Tree.
type NodeID int32

const (
	// None is the parent of the root.
	None NodeID = -1

	// Root is always the first node of a Tree.
	Root NodeID = 0
)

// Values holds the statistics search strategies accumulate on a node. Which ones are used depends
// on the strategies bound to the agent.
type Values struct {
	// Count is the number of evaluations backpropagated through this node, its own included.
	Count int

	// SumUtility is the sum of the utilities counted in Count.
	SumUtility float64

	// Evals is the number of evaluations of this node itself (as opposed to its descendants).
	Evals int

	// Eval is the backed-up (minimax/expectimax) or stored static evaluation. Only valid if Evaluated.
	Eval      float64
	Evaluated bool

	// Alpha and Beta bounds, inherited from the parent at creation and tightened by minimax backups.
	Alpha, Beta float64
}

// Node of the search tree.
type Node[A comparable] struct {
	ID     NodeID
	State  games.State[A]
	Action A // Action that generated this node, the zero value for the root.
	Parent NodeID
	Depth  int

	Children   []NodeID
	Unexpanded []A

	// Discarded actions will not be expanded: they were cut off by alpha-beta, left out of a beam, or
	// their child was pruned.
	Discarded []A

	// BranchingFactor is the number of applicable actions at creation.
	BranchingFactor int

	Values
}

// IsRoot returns whether the node has no parent.
func (n *Node[A]) IsRoot() bool { return n.Parent == None }

// IsTerminal returns whether the node's state is terminal.
func (n *Node[A]) IsTerminal() bool { return n.State.IsTerminal() }

// IsFullyExpanded returns whether there are no more actions to expand.
func (n *Node[A]) IsFullyExpanded() bool { return len(n.Unexpanded) == 0 }

// IsMaxNode returns whether the maximizing player moves at this node.
func (n *Node[A]) IsMaxNode() bool { return games.IsMaxTurn(n.State.Moves()) }

// AverageUtility returns SumUtility/Count.
//
// It panics if the node was never counted: reading it before any backpropagation is a bug.
func (n *Node[A]) AverageUtility() float64 {
	if n.Count == 0 {
		exceptions.Panicf("tree: AverageUtility of node #%d (action %v) read before any evaluation", n.ID, n.Action)
	}
	return n.SumUtility / float64(n.Count)
}

// String implements fmt.Stringer.
func (n *Node[A]) String() string {
	var eval string
	if n.Evaluated {
		eval = fmt.Sprintf("%.3f", n.Eval)
	} else {
		eval = "-"
	}
	return fmt.Sprintf("Node(#%d, action=%v, depth=%d, count=%d, utility=%.3f, eval=%s, children=%d, unexpanded=%d)",
		n.ID, n.Action, n.Depth, n.Count, n.SumUtility, eval, len(n.Children), len(n.Unexpanded))
}

// Tree is an arena of nodes. It is not safe for concurrent use.
type Tree[A comparable] struct {
	nodes []*Node[A]
}

// New creates a tree with a root node for state.
func New[A comparable](state games.State[A]) *Tree[A] {
	t := &Tree[A]{}
	var noAction A
	t.add(state, noAction, None, 0, math.Inf(-1), math.Inf(1))
	return t
}

func (t *Tree[A]) add(state games.State[A], action A, parent NodeID, depth int, alpha, beta float64) NodeID {
	actions := state.Actions()
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node[A]{
		ID:              id,
		State:           state,
		Action:          action,
		Parent:          parent,
		Depth:           depth,
		Unexpanded:      slices.Clone(actions),
		BranchingFactor: len(actions),
		Values:          Values{Alpha: alpha, Beta: beta},
	})
	return id
}

// Root returns the root node.
func (t *Tree[A]) Root() *Node[A] { return t.nodes[Root] }

// Node returns the node with the given id.
func (t *Tree[A]) Node(id NodeID) *Node[A] { return t.nodes[id] }

// Len returns the number of nodes ever created, including pruned ones.
func (t *Tree[A]) Len() int { return len(t.nodes) }

// Parent returns the parent of the node, or nil for the root.
func (t *Tree[A]) Parent(n *Node[A]) *Node[A] {
	if n.Parent == None {
		return nil
	}
	return t.nodes[n.Parent]
}

// Children iterates over the children of the node, in creation order.
func (t *Tree[A]) Children(n *Node[A]) iter.Seq2[int, *Node[A]] {
	return func(yield func(int, *Node[A]) bool) {
		for ii, childID := range n.Children {
			if !yield(ii, t.nodes[childID]) {
				return
			}
		}
	}
}

// ChildNodes returns the children of the node, in creation order.
func (t *Tree[A]) ChildNodes(n *Node[A]) []*Node[A] {
	children := make([]*Node[A], len(n.Children))
	for ii, childID := range n.Children {
		children[ii] = t.nodes[childID]
	}
	return children
}

// CreateChild removes action from the parent's unexpanded actions, computes the resulting state and
// appends the new child to the parent. The child inherits the parent's alpha and beta bounds.
//
// It panics if action is not one of the parent's unexpanded actions.
func (t *Tree[A]) CreateChild(parentID NodeID, action A) NodeID {
	parent := t.nodes[parentID]
	idx := slices.Index(parent.Unexpanded, action)
	if idx < 0 {
		exceptions.Panicf("tree: action %v is not an unexpanded action of node #%d (unexpanded: %v)",
			action, parentID, parent.Unexpanded)
	}
	parent.Unexpanded = slices.Delete(parent.Unexpanded, idx, idx+1)
	state := parent.State.Result(action)
	childID := t.add(state, action, parentID, parent.Depth+1, parent.Alpha, parent.Beta)
	parent.Children = append(parent.Children, childID)
	return childID
}

// ExpandNext creates the child for the first unexpanded action of the node.
//
// It panics if the node is fully expanded.
func (t *Tree[A]) ExpandNext(parentID NodeID) NodeID {
	parent := t.nodes[parentID]
	if len(parent.Unexpanded) == 0 {
		exceptions.Panicf("tree: ExpandNext called on fully expanded node #%d", parentID)
	}
	return t.CreateChild(parentID, parent.Unexpanded[0])
}

// Cutoff discards all remaining unexpanded actions of the node, returning how many were discarded.
func (t *Tree[A]) Cutoff(id NodeID) int {
	n := t.nodes[id]
	count := len(n.Unexpanded)
	n.Discarded = append(n.Discarded, n.Unexpanded...)
	n.Unexpanded = nil
	return count
}

// Restrict keeps only the unexpanded actions that are also in keep, in the order given by keep.
// The others are discarded.
func (t *Tree[A]) Restrict(id NodeID, keep []A) {
	n := t.nodes[id]
	keepSet := generics.SetWith(keep...)
	unexpandedSet := generics.SetWith(n.Unexpanded...)
	var restricted []A
	for _, action := range keep {
		if unexpandedSet.Has(action) {
			restricted = append(restricted, action)
		}
	}
	for _, action := range n.Unexpanded {
		if !keepSet.Has(action) {
			n.Discarded = append(n.Discarded, action)
		}
	}
	n.Unexpanded = restricted
}

// Prune removes the children of node for which keep returns false. Their actions are discarded and
// their subtrees become unreachable. It returns the number of children removed.
func (t *Tree[A]) Prune(id NodeID, keep func(child *Node[A]) bool) int {
	n := t.nodes[id]
	kept := n.Children[:0]
	var removed int
	for _, childID := range n.Children {
		child := t.nodes[childID]
		if keep(child) {
			kept = append(kept, childID)
		} else {
			n.Discarded = append(n.Discarded, child.Action)
			removed++
		}
	}
	n.Children = kept
	return removed
}

// Walk iterates over all nodes reachable from the root, in depth-first pre-order.
func (t *Tree[A]) Walk() iter.Seq[*Node[A]] {
	return func(yield func(*Node[A]) bool) {
		stack := []NodeID{Root}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := t.nodes[id]
			if !yield(n) {
				return
			}
			for ii := len(n.Children) - 1; ii >= 0; ii-- {
				stack = append(stack, n.Children[ii])
			}
		}
	}
}

// MaxDepth returns the depth of the deepest node reachable from the root.
func (t *Tree[A]) MaxDepth() int {
	var depth int
	for n := range t.Walk() {
		depth = max(depth, n.Depth)
	}
	return depth
}

// CheckNode verifies that the node's children actions, unexpanded actions and discarded actions are
// pairwise disjoint and together equal the actions applicable to its state.
func (t *Tree[A]) CheckNode(n *Node[A]) error {
	seen := generics.MakeSet[A](n.BranchingFactor)
	addAll := func(kind string, actions ...A) error {
		for _, action := range actions {
			if seen.Has(action) {
				return errors.Errorf("node #%d: %s action %v is duplicated", n.ID, kind, action)
			}
			seen.Insert(action)
		}
		return nil
	}
	childActions := make([]A, len(n.Children))
	for ii, child := range t.Children(n) {
		childActions[ii] = child.Action
	}
	if err := addAll("child", childActions...); err != nil {
		return err
	}
	if err := addAll("unexpanded", n.Unexpanded...); err != nil {
		return err
	}
	if err := addAll("discarded", n.Discarded...); err != nil {
		return err
	}
	if !seen.Equal(generics.SetWith(n.State.Actions()...)) {
		return errors.Errorf("node #%d: children %v, unexpanded %v and discarded %v don't match the applicable actions %v",
			n.ID, childActions, n.Unexpanded, n.Discarded, n.State.Actions())
	}
	return nil
}

// CheckPartition runs CheckNode on every reachable node.
func (t *Tree[A]) CheckPartition() error {
	for n := range t.Walk() {
		if err := t.CheckNode(n); err != nil {
			return err
		}
	}
	return nil
}

// String returns an indented dump of the whole tree.
func (t *Tree[A]) String() string {
	return t.Dump(-1)
}

// Dump returns an indented representation of the tree, up to maxDepth (all nodes if maxDepth < 0).
func (t *Tree[A]) Dump(maxDepth int) string {
	var sb strings.Builder
	for n := range t.Walk() {
		if maxDepth >= 0 && n.Depth > maxDepth {
			continue
		}
		sb.WriteString(strings.Repeat("--", n.Depth))
		sb.WriteString(n.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
