package searchers

import (
	"math/rand/v2"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/cpuclock"
	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/tree"
)

// FrontierMode defines how nodes are popped from the Frontier.
type FrontierMode int

const (
	// NoFrontier disables the frontier: nothing is pushed to it.
	NoFrontier FrontierMode = iota

	// DepthFirst pops the most recently pushed node (a stack).
	DepthFirst

	// BreadthFirst pops the oldest pushed node (a queue).
	BreadthFirst
)

// Frontier of nodes waiting to be selected, used by queue based searches.
type Frontier struct {
	mode FrontierMode
	ids  []tree.NodeID
}

// Active returns whether nodes should be pushed to the frontier.
func (f *Frontier) Active() bool { return f.mode != NoFrontier }

// Len returns the number of nodes in the frontier.
func (f *Frontier) Len() int { return len(f.ids) }

// Push a node to the frontier. It is a no-op if the frontier is not active.
func (f *Frontier) Push(id tree.NodeID) {
	if f.mode == NoFrontier {
		return
	}
	f.ids = append(f.ids, id)
}

// Pop the next node, according to the frontier mode.
func (f *Frontier) Pop() (tree.NodeID, bool) {
	if len(f.ids) == 0 {
		return tree.None, false
	}
	var id tree.NodeID
	if f.mode == BreadthFirst {
		id = f.ids[0]
		f.ids = f.ids[1:]
	} else {
		id = f.ids[len(f.ids)-1]
		f.ids = f.ids[:len(f.ids)-1]
	}
	return id, true
}

// Clear empties the frontier.
func (f *Frontier) Clear() { f.ids = f.ids[:0] }

// Run holds everything that changes during one search: the tree, the frontier, statistics and the
// iterative deepening bookkeeping. It is owned by a single goroutine.
type Run[A comparable] struct {
	// State at the root of the search.
	State games.State[A]

	Tree     *tree.Tree[A]
	Frontier Frontier
	Config   Config
	Stats    *Stats
	Rand     *rand.Rand

	// DepthLimit is the current limit for depth-limited expansion.
	DepthLimit int

	// DepthCap, if > 0, is the maximum depth iterative deepening will go to.
	DepthCap int

	// BestMove found at the last completed depth of iterative deepening.
	BestMove    A
	HasBestMove bool

	// DepthMoves and DepthValues hold the best move and root value of each completed depth.
	DepthMoves  []A
	DepthValues []float64

	// Solved is set when iterative deepening has nothing left to deepen: the whole game tree below
	// the root was searched, or DepthCap was reached.
	Solved bool

	stopwatch cpuclock.Stopwatch
}

func newRun[A comparable](state games.State[A], cfg Config, mode FrontierMode) *Run[A] {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	r := &Run[A]{
		State:      state,
		Config:     cfg,
		Stats:      &Stats{},
		Rand:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		DepthLimit: cfg.DepthLimit,
		Frontier:   Frontier{mode: mode},
		stopwatch:  cpuclock.Start(cfg.Clock),
	}
	if r.DepthLimit <= 0 {
		r.DepthLimit = DefaultDepthLimit
	}
	r.Reset()
	return r
}

// Reset replaces the tree by a fresh one rooted at the search state. The frontier is reset to hold
// only the new root.
func (r *Run[A]) Reset() {
	r.Tree = tree.New(r.State)
	r.Frontier.Clear()
	r.Frontier.Push(tree.Root)
}

// Node returns the node with the given id.
func (r *Run[A]) Node(id tree.NodeID) *tree.Node[A] { return r.Tree.Node(id) }

// Root returns the root node of the current tree.
func (r *Run[A]) Root() *tree.Node[A] { return r.Tree.Root() }

// Elapsed returns the time since the search started.
func (r *Run[A]) Elapsed() time.Duration { return r.stopwatch.Elapsed() }

// TimeIsUp returns whether the configured search time was exceeded.
func (r *Run[A]) TimeIsUp() bool { return r.Elapsed() > r.Config.SearchTime }

// noteExpansion updates the statistics for a newly created node.
func (r *Run[A]) noteExpansion(id tree.NodeID) {
	r.Stats.NodesExpanded++
	r.Stats.DepthReached = max(r.Stats.DepthReached, r.Tree.Node(id).Depth)
}
