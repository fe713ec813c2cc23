package searchers

import (
	"math"
	"slices"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/generics"
	"github.com/AntonJorg/general-tree-search/internal/tree"
)

// exploration returns the exploration constant: the strategy's own if set, or the configured one.
func exploration[A comparable](r *Run[A], c float64) float64 {
	if c > 0 {
		return c
	}
	return r.Config.Exploration
}

// exploitation returns the average utility of the child, from the perspective of the player moving at parent.
func exploitation[A comparable](parent, child *tree.Node[A]) float64 {
	avg := child.AverageUtility()
	if !parent.IsMaxNode() {
		return 1 - avg
	}
	return avg
}

// ucb1 returns the UCB1 score of child. Children never visited get +Inf.
func ucb1[A comparable](parent, child *tree.Node[A], c float64) float64 {
	if child.Count == 0 {
		return math.Inf(1)
	}
	explore := c * math.Sqrt(math.Log(float64(parent.Count))/float64(child.Count))
	return exploitation(parent, child) + explore
}

// bestUCB1Child returns the child with the highest UCB1 score, the first one found on ties.
func bestUCB1Child[A comparable](r *Run[A], n *tree.Node[A], c float64) (*tree.Node[A], float64) {
	children := r.Tree.ChildNodes(n)
	idx := generics.ArgMax(children, func(child *tree.Node[A]) float64 { return ucb1(n, child, c) })
	return children[idx], ucb1(n, children[idx], c)
}

// UCT implements the UCB1-for-trees selection of Monte Carlo Tree Search: starting from the root, it
// descends through fully expanded nodes into the child maximizing
//
//	exploit + c * sqrt(ln(N_parent) / N_child)
//
// where exploit is the child's average utility from the parent's player perspective. It stops at a
// node with unexpanded actions, or at a terminal node.
//
// C is the exploration constant, if 0 Config.Exploration is used (sqrt(2) by default).
type UCT[A comparable] struct {
	C float64
}

// Select implements Selector.
func (s UCT[A]) Select(r *Run[A]) (tree.NodeID, bool) {
	c := exploration(r, s.C)
	n := r.Root()
	for n.IsFullyExpanded() && !n.IsTerminal() && len(n.Children) > 0 {
		n, _ = bestUCB1Child(r, n, c)
	}
	return n.ID, true
}

// PartialExpansionUCT is like UCT, but it may descend into an existing child before its parent is fully
// expanded, if that child's UCB1 score beats the score estimated for a new child:
//
//	0.5 + c * sqrt(ln(N_parent) / (1 + num_children))
//
// See "Monte Mario: Platforming with MCTS", Jacobsen, Greve and Togelius, 2014.
type PartialExpansionUCT[A comparable] struct {
	C float64
}

// Select implements Selector.
func (s PartialExpansionUCT[A]) Select(r *Run[A]) (tree.NodeID, bool) {
	c := exploration(r, s.C)
	n := r.Root()
	for len(n.Children) > 0 && !n.IsTerminal() {
		best, bestScore := bestUCB1Child(r, n, c)
		if !n.IsFullyExpanded() {
			newChildScore := 0.5 + c*math.Sqrt(math.Log(float64(n.Count))/float64(1+len(n.Children)))
			if bestScore < newChildScore {
				break
			}
			r.Stats.PartialExpansions++
		}
		n = best
	}
	return n.ID, true
}

// WeightedUCT blends a stored static evaluation of each child with its average utility, trusting the
// static evaluation less as the child is visited more:
//
//	q = 1/sqrt(N_child)
//	score = q * eval + (1-q) * exploit + c * sqrt(ln(N_parent) / N_child)
//
// Children without a stored evaluation are scored by UCB1.
type WeightedUCT[A comparable] struct {
	C float64
}

// Select implements Selector.
func (s WeightedUCT[A]) Select(r *Run[A]) (tree.NodeID, bool) {
	c := exploration(r, s.C)
	n := r.Root()
	for n.IsFullyExpanded() && !n.IsTerminal() && len(n.Children) > 0 {
		parent := n
		children := r.Tree.ChildNodes(parent)
		idx := generics.ArgMax(children, func(child *tree.Node[A]) float64 {
			return weightedUCB(parent, child, c)
		})
		n = children[idx]
	}
	return n.ID, true
}

// weightedEval returns the child's stored evaluation and average utility from the parent's player perspective,
// interpolated by the confidence given by its visit count.
func weightedEval[A comparable](parent, child *tree.Node[A]) float64 {
	exploit := exploitation(parent, child)
	if !child.Evaluated {
		return exploit
	}
	eval := child.Eval
	if !parent.IsMaxNode() {
		eval = 1 - eval
	}
	q := 1 / math.Sqrt(float64(child.Count))
	return q*eval + (1-q)*exploit
}

func weightedUCB[A comparable](parent, child *tree.Node[A], c float64) float64 {
	if child.Count == 0 {
		return math.Inf(1)
	}
	explore := c * math.Sqrt(math.Log(float64(parent.Count))/float64(child.Count))
	return weightedEval(parent, child) + explore
}

// StochasticUCT selects for a single maximizing player acting in a random environment: the nodes where the
// maximizing player doesn't move are outcomes of the environment, not decisions of an opponent.
//
// At maximizing nodes it descends into the child maximizing
//
//	avg_child + c * sqrt(ln(N_parent) / N_child)
//
// with the exploration constant c set to the node's own average utility, so exploration scales with the
// rewards seen so far. At the other nodes it samples a child, following the game's distribution if it
// has one (see games.Stochastic), uniformly otherwise. It stops at a node with unexpanded actions, or at
// a terminal node.
type StochasticUCT[A comparable] struct{}

// Select implements Selector.
func (StochasticUCT[A]) Select(r *Run[A]) (tree.NodeID, bool) {
	n := r.Root()
	for n.IsFullyExpanded() && !n.IsTerminal() && len(n.Children) > 0 {
		if !n.IsMaxNode() {
			n = sampleChild(r, n)
			continue
		}
		parent := n
		var c float64
		if parent.Count > 0 {
			c = parent.AverageUtility()
		}
		children := r.Tree.ChildNodes(parent)
		idx := generics.ArgMax(children, func(child *tree.Node[A]) float64 {
			if child.Count == 0 {
				return math.Inf(1)
			}
			return child.AverageUtility() + c*math.Sqrt(math.Log(float64(parent.Count))/float64(child.Count))
		})
		n = children[idx]
	}
	return n.ID, true
}

// sampleChild returns a random child of n, weighted by the probability of its action if the game gives one.
func sampleChild[A comparable](r *Run[A], n *tree.Node[A]) *tree.Node[A] {
	children := r.Tree.ChildNodes(n)
	var distribution []float64
	if stochastic, ok := n.State.(games.Stochastic); ok {
		distribution = stochastic.Distribution()
	}
	if distribution == nil {
		return children[r.Rand.IntN(len(children))]
	}
	actions := n.State.Actions()
	weights := make([]float64, len(children))
	for ii, child := range children {
		if idx := slices.Index(actions, child.Action); idx >= 0 {
			weights[ii] = distribution[idx]
		}
	}
	return children[games.SampleIndex(weights, r.Rand)]
}

// PrincipalVariation descends, through fully expanded nodes, into the child whose backed-up value equals
// its parent's: the line of play the minimax backup currently considers best. It stops at the first node
// with unexpanded actions (or without children).
type PrincipalVariation[A comparable] struct{}

// Select implements Selector.
func (PrincipalVariation[A]) Select(r *Run[A]) (tree.NodeID, bool) {
	n := r.Root()
	for n.IsFullyExpanded() && len(n.Children) > 0 {
		n = principalChild(r, n)
	}
	return n.ID, true
}

// principalChild returns the first child whose evaluation matches the node's. If the node was not
// backed-up yet, it returns the best evaluated child for the node's player.
func principalChild[A comparable](r *Run[A], n *tree.Node[A]) *tree.Node[A] {
	children := r.Tree.ChildNodes(n)
	if n.Evaluated {
		for _, child := range children {
			if child.Evaluated && child.Eval == n.Eval {
				return child
			}
		}
	}
	idx := generics.ArgMax(children, func(child *tree.Node[A]) float64 {
		if !child.Evaluated {
			return math.Inf(-1)
		}
		if n.IsMaxNode() {
			return child.Eval
		}
		return -child.Eval
	})
	return children[idx]
}

// Queue selects the next node from the run's frontier, which expanders fill. It is used by exhaustive,
// depth-limited searches. The search ends when the frontier is empty.
type Queue[A comparable] struct {
	// BreadthFirst makes the frontier a queue. The default is a stack (depth-first).
	BreadthFirst bool
}

// FrontierMode implements FrontierUser.
func (q Queue[A]) FrontierMode() FrontierMode {
	if q.BreadthFirst {
		return BreadthFirst
	}
	return DepthFirst
}

// Select implements Selector.
func (Queue[A]) Select(r *Run[A]) (tree.NodeID, bool) {
	return r.Frontier.Pop()
}

var (
	_ Selector[int] = UCT[int]{}
	_ Selector[int] = PartialExpansionUCT[int]{}
	_ Selector[int] = WeightedUCT[int]{}
	_ Selector[int] = StochasticUCT[int]{}
	_ Selector[int] = PrincipalVariation[int]{}
	_ Selector[int] = Queue[int]{}
	_ FrontierUser  = Queue[int]{}
)
