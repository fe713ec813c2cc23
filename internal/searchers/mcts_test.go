package searchers

import (
	"slices"
	"testing"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/games/connectfour"
	"github.com/AntonJorg/general-tree-search/internal/games/dummy"
	"github.com/AntonJorg/general-tree-search/internal/games/nim"
	"github.com/AntonJorg/general-tree-search/internal/lookup"
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupTableFor[A comparable](t *testing.T, state games.State[A], values map[A]float64) *lookup.MapTable {
	table := lookup.NewMapTable()
	for action, value := range values {
		keyed, ok := state.Result(action).(games.Keyed)
		require.True(t, ok)
		table.Put(keyed.Key(), value)
	}
	return table
}

// checkCounts verifies that every node counts its own evaluations plus its children's counts.
func checkCounts[A comparable](t *testing.T, r *Run[A]) {
	for n := range r.Tree.Walk() {
		sum := n.Evals
		for _, child := range r.Tree.Children(n) {
			sum += child.Count
		}
		require.Equal(t, sum, n.Count, "node %s", n)
	}
}

func TestMCTS(t *testing.T) {
	cfg := testConfig()
	cfg.IterationBudget = 500
	r, err := newMCTS[int]().Run(connectfour.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 500, r.Stats.Iterations)
	assert.Equal(t, 500, r.Root().Count)
	assert.Len(t, r.Stats.SimulationLengths, 500)
	assert.Positive(t, r.Stats.MeanSimulationLength())
	require.NoError(t, r.Tree.CheckPartition())
	checkCounts(t, r)

	action, err := MostRobust[int]{}.Extract(r)
	require.NoError(t, err)
	assert.Contains(t, r.State.Actions(), action)

	// Same seed, same search.
	r2, err := newMCTS[int]().Run(connectfour.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, r.Tree.Len(), r2.Tree.Len())
	assert.Equal(t, r.Stats.SimulationLengths, r2.Stats.SimulationLengths)
}

func TestMCTSFindsWin(t *testing.T) {
	// Max has three in column 0 and wins by playing it again.
	state := mustSequence(t, "060606")
	cfg := testConfig()
	cfg.IterationBudget = 2000
	action, stats, err := newMCTS[int]().Search(state, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, action)
	assert.Equal(t, 2000, stats.Iterations)
}

func TestExpansionBudget(t *testing.T) {
	cfg := testConfig()
	cfg.ExpansionBudget = 50
	r, err := newMCTS[int]().Run(connectfour.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 50, r.Stats.NodesExpanded)
	assert.Equal(t, 51, r.Tree.Len())
}

func TestTimedRunsAtLeastOnce(t *testing.T) {
	cfg := testConfig()
	cfg.SearchTime = time.Nanosecond
	action, stats, err := newMCTS[int]().Search(connectfour.New(), cfg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Iterations, 1)
	assert.Contains(t, connectfour.New().Actions(), action)
}

func TestMCTSVariants(t *testing.T) {
	base := newMCTS[int]()
	variants := []*Agent[int]{
		base.ToBuilder().WithEvaluate(Static[int]{}).MustBuild("mcts_evaluation"),
		base.ToBuilder().WithSelect(PartialExpansionUCT[int]{}).MustBuild("partial_expansion"),
		base.ToBuilder().
			WithSelect(WeightedUCT[int]{}).
			WithEvaluate(Combined[int]{}).
			WithBackpropagate(StoreEvalAndSum[int]{}).
			WithExtract(WeightedEvalUtility[int]{}).
			MustBuild("static_weighted_mcts"),
		base.ToBuilder().
			WithSelect(WeightedUCT[int]{}).
			WithEvaluate(Combined[int]{}).
			WithBackpropagate(SumAndMinimax[int]{}).
			WithExtract(MinimaxMove[int]{}).
			MustBuild("mcts_tree_minimax"),
	}
	cfg := testConfig()
	cfg.IterationBudget = 300
	for _, agent := range variants {
		r, err := agent.Run(mustSequence(t, "3322"), cfg)
		require.NoError(t, err, agent.Name())
		require.NoError(t, r.Tree.CheckPartition(), agent.Name())
		checkCounts(t, r)
		action, err := agent.extractor.Extract(r)
		require.NoError(t, err, agent.Name())
		assert.Contains(t, r.State.Actions(), action, agent.Name())
	}
}

func TestPartialExpansion(t *testing.T) {
	agent := newMCTS[int]().ToBuilder().WithSelect(PartialExpansionUCT[int]{}).MustBuild("partial_expansion")
	cfg := testConfig()
	cfg.IterationBudget = 1000
	r, err := agent.Run(connectfour.New(), cfg)
	require.NoError(t, err)
	// Existing children are revisited before their parents have all their children.
	assert.Positive(t, r.Stats.PartialExpansions)
	checkCounts(t, r)
}

func TestSumAndMinimax(t *testing.T) {
	agent := newMCTS[int]().ToBuilder().
		WithEvaluate(Combined[int]{}).
		WithBackpropagate(SumAndMinimax[int]{}).
		MustBuild("sum_and_minimax")
	cfg := testConfig()
	cfg.IterationBudget = 200
	r, err := agent.Run(connectfour.New(), cfg)
	require.NoError(t, err)
	for n := range r.Tree.Walk() {
		var evals []float64
		for _, child := range r.Tree.Children(n) {
			if child.Evaluated {
				evals = append(evals, child.Eval)
			}
		}
		if len(evals) == 0 {
			continue
		}
		expected := slices.Min(evals)
		if n.IsMaxNode() {
			expected = slices.Max(evals)
		}
		require.True(t, n.Evaluated)
		assert.Equal(t, expected, n.Eval, "node %s", n)
	}
}

func TestProgressivePruning(t *testing.T) {
	agent := newMCTS[int]().ToBuilder().WithTrim(ProgressivePruning[int]{}).MustBuild("progressive_pruning")
	cfg := testConfig()
	cfg.IterationBudget = 200
	cfg.PruneFrequency = 50
	cfg.PruningFactor = 0
	r, err := agent.Run(connectfour.New(), cfg)
	require.NoError(t, err)
	assert.Positive(t, r.Stats.PrunedNodes)
	root := r.Root()
	assert.Less(t, len(root.Children), 7)
	assert.NotEmpty(t, root.Discarded)
	require.NoError(t, r.Tree.CheckPartition())

	// Pruned children take their counts with them.
	for n := range r.Tree.Walk() {
		sum := n.Evals
		for _, child := range r.Tree.Children(n) {
			sum += child.Count
		}
		assert.GreaterOrEqual(t, n.Count, sum)
	}

	action, err := MostRobust[int]{}.Extract(r)
	require.NoError(t, err)
	assert.NotContains(t, root.Discarded, action)
}

func TestBeam(t *testing.T) {
	agent := newIterativeDeepening(newAlphaBeta[int]()).ToBuilder().
		WithExpand(Beam[int]{AlphaBeta[int]{DepthLimited[int]{ExpandNext[int]{}}}}).
		MustBuild("beam_search")
	cfg := testConfig()
	cfg.DepthLimit = 3

	r, err := agent.Run(connectfour.New(), cfg)
	require.NoError(t, err)
	require.NoError(t, r.Tree.CheckPartition())
	assert.Equal(t, []tree.NodeID{1}, r.Root().Children)
	assert.Equal(t, 3, r.BestMove)
	for n := range r.Tree.Walk() {
		if filter, ok := n.State.(games.BeamFilter[int]); ok && !n.IsTerminal() && n.Depth < r.DepthLimit {
			for _, child := range r.Tree.Children(n) {
				assert.Contains(t, filter.BeamActions(), child.Action)
			}
		}
	}

	// Games without a beam filter are searched in full.
	_, _, err = NewBuilder[nim.Action]().Merge(newMinimax[nim.Action]().ToBuilder()).
		WithExpand(Beam[nim.Action]{DepthLimited[nim.Action]{ExpandAll[nim.Action]{}}}).
		MustBuild("nim_beam").
		Search(nim.New(3, 4), cfg)
	require.NoError(t, err)
}

func TestRandomized(t *testing.T) {
	cfg := testConfig()
	cfg.DepthLimit = 10
	seen := make(map[int]int)
	for seed := range uint64(50) {
		cfg.Seed = seed + 1
		r, err := newMinimax[int]().Run(dummy.New(), cfg)
		require.NoError(t, err)
		action, err := Randomized[int]{Base: MinimaxMove[int]{}, Randomness: 1000}.Extract(r)
		require.NoError(t, err)
		seen[action]++

		// Without randomness, or past MaxMoveRandomness, the base move is returned.
		action, err = Randomized[int]{Base: MinimaxMove[int]{}}.Extract(r)
		require.NoError(t, err)
		assert.Equal(t, 1, action)
	}
	assert.Len(t, seen, 2)

	// A move that ends the game is never randomized away.
	state := nim.New(3)
	for seed := range uint64(20) {
		cfg.Seed = seed + 1
		r, err := newMinimax[nim.Action]().Run(state, cfg)
		require.NoError(t, err)
		action, err := Randomized[nim.Action]{Base: MinimaxMove[nim.Action]{}, Randomness: 1000}.Extract(r)
		require.NoError(t, err)
		assert.Equal(t, nim.Action{Pile: 0, Take: 3}, action)
	}
}

func TestRandomMove(t *testing.T) {
	agent := NewBuilder[int]().
		WithSelect(UCT[int]{}).
		WithExpand(ExpandNext[int]{}).
		WithEvaluate(TerminalUtility[int]{}).
		WithBackpropagate(SumCount[int]{}).
		WithTerminate(Immediately[int]{}).
		NoTrim().
		WithExtract(RandomMove[int]{}).
		MustBuild("random")
	cfg := testConfig()
	seen := make(map[int]bool)
	for seed := range uint64(100) {
		cfg.Seed = seed + 1
		action, stats, err := agent.Search(connectfour.New(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Iterations)
		seen[action] = true
	}
	assert.Len(t, seen, connectfour.Width)

	// At chance nodes the game's distribution is followed.
	chance := coinGame{node: coinChance, moves: 1}
	counts := make(map[int]int)
	for seed := range uint64(400) {
		cfg.Seed = seed + 1
		action, _, err := agent.Search(chance, cfg)
		require.NoError(t, err)
		counts[action]++
	}
	assert.Greater(t, counts[0], counts[1])
}

// coinGame: the max player either stops (action 0, utility 0.6) or tosses a biased coin (action 1) that
// gives utility 1 with probability 0.75, and 0.2 otherwise.
type coinGame struct {
	node, moves int
}

const (
	coinStart = iota
	coinStop
	coinChance
	coinHeads
	coinTails
)

var (
	_ games.State[int] = coinGame{}
	_ games.Stochastic = coinGame{}
)

func (g coinGame) Actions() []int {
	if g.node == coinStart || g.node == coinChance {
		return []int{0, 1}
	}
	return nil
}

func (g coinGame) IsTerminal() bool { return len(g.Actions()) == 0 }

func (g coinGame) Utility() float64 {
	switch g.node {
	case coinStop:
		return 0.6
	case coinHeads:
		return 1
	case coinTails:
		return 0.2
	}
	return 0.5
}

func (g coinGame) Moves() int { return g.moves }

func (g coinGame) Result(action int) games.State[int] {
	next := coinStop
	switch {
	case g.node == coinStart && action == 1:
		next = coinChance
	case g.node == coinChance && action == 0:
		next = coinHeads
	case g.node == coinChance:
		next = coinTails
	}
	return coinGame{node: next, moves: g.moves + 1}
}

func (g coinGame) Distribution() []float64 {
	if g.node == coinChance {
		return []float64{0.75, 0.25}
	}
	return nil
}

func TestExpectimax(t *testing.T) {
	cfg := testConfig()
	cfg.DepthLimit = 5
	expectimax := newMinimax[int]().ToBuilder().WithBackpropagate(Expectimax[int]{}).MustBuild("expectimax")
	r, err := expectimax.Run(coinGame{}, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, r.Root().Eval, 1e-12)
	action, err := MinimaxMove[int]{}.Extract(r)
	require.NoError(t, err)
	assert.Equal(t, 1, action)

	// Minimax assumes the worst coin toss.
	action, _, err = newMinimax[int]().Search(coinGame{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, action)
}

func TestStochasticUCT(t *testing.T) {
	cfg := testConfig()
	cfg.IterationBudget = 2000
	maximizer := newMCTS[int]().ToBuilder().WithSelect(StochasticUCT[int]{}).MustBuild("maximizer_mcts")
	r, err := maximizer.Run(coinGame{}, cfg)
	require.NoError(t, err)
	checkCounts(t, r)
	action, err := MostRobust[int]{}.Extract(r)
	require.NoError(t, err)
	assert.Equal(t, 1, action, "tossing the coin is worth 0.8 on average, stopping 0.6")

	// The coin toss node is sampled following the game's distribution (0.75/0.25).
	toss := r.Tree.ChildNodes(r.Root())[1]
	require.Equal(t, 1, toss.Action)
	outcomes := r.Tree.ChildNodes(toss)
	require.Len(t, outcomes, 2)
	heads, tails := outcomes[0], outcomes[1]
	assert.Greater(t, heads.Count, 2*tails.Count)
	assert.InDelta(t, 0.8, toss.AverageUtility(), 0.05)

	// UCT instead ranks the outcomes as if chosen by an opponent, and mostly visits the worst one.
	r, err = newMCTS[int]().Run(coinGame{}, cfg)
	require.NoError(t, err)
	outcomes = r.Tree.ChildNodes(r.Tree.ChildNodes(r.Root())[1])
	require.Len(t, outcomes, 2)
	assert.Greater(t, outcomes[1].Count, outcomes[0].Count)
}
