package searchers

import (
	"testing"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/games/connectfour"
	"github.com/AntonJorg/general-tree-search/internal/games/dummy"
	"github.com/AntonJorg/general-tree-search/internal/games/nim"
	"github.com/AntonJorg/general-tree-search/internal/parameters"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a deterministic configuration that never runs out of time.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SearchTime = time.Hour
	cfg.Seed = 42
	return cfg
}

func newMinimax[A comparable]() *Agent[A] {
	return NewBuilder[A]().
		WithSelect(Queue[A]{}).
		WithExpand(DepthLimited[A]{ExpandAll[A]{}}).
		WithEvaluate(DepthGated[A]{Static[A]{}}).
		WithBackpropagate(Minimax[A]{}).
		WithTerminate(FullyEvaluated[A]{}).
		NoTrim().
		WithExtract(MinimaxMove[A]{}).
		MustBuild("minimax")
}

func newAlphaBeta[A comparable]() *Agent[A] {
	return newMinimax[A]().ToBuilder().
		WithExpand(AlphaBeta[A]{DepthLimited[A]{ExpandNext[A]{}}}).
		MustBuild("alpha_beta")
}

func newIterativeDeepening[A comparable](base *Agent[A]) *Agent[A] {
	return base.ToBuilder().
		WithTerminate(Deepening[A]{}).
		WithTrim(DeepeningRestart[A]{}).
		WithExtract(StoredBestMove[A]{}).
		MustBuild("iterative_deepening_" + base.Name())
}

func newMCTS[A comparable]() *Agent[A] {
	return NewBuilder[A]().
		WithSelect(UCT[A]{}).
		WithExpand(ExpandNext[A]{}).
		WithEvaluate(Rollout[A]{}).
		WithBackpropagate(SumCount[A]{}).
		WithTerminate(AnyOf[A]{Timed[A]{}, Budget[A]{}}).
		NoTrim().
		WithExtract(MostRobust[A]{}).
		MustBuild("mcts")
}

// bruteForce computes the depth-limited minimax value of state by plain recursion, using the same leaf
// evaluation as the Static evaluator.
func bruteForce[A comparable](state games.State[A], depth int) float64 {
	if depth == 0 || state.IsTerminal() {
		return staticValue(state)
	}
	isMax := games.IsMaxTurn(state.Moves())
	var best float64
	for ii, action := range state.Actions() {
		value := bruteForce(state.Result(action), depth-1)
		if ii == 0 || (isMax && value > best) || (!isMax && value < best) {
			best = value
		}
	}
	return best
}

func mustSequence(t *testing.T, sequence string) *connectfour.State {
	state, err := connectfour.FromSequence(sequence)
	require.NoError(t, err)
	return state
}

func TestScenarioDummy(t *testing.T) {
	cfg := testConfig()
	cfg.DepthLimit = 10
	agent := newMinimax[int]()
	for range 3 {
		r, err := agent.Run(dummy.New(), cfg)
		require.NoError(t, err)
		assert.Equal(t, 0.5, r.Root().Eval)
		action, err := agent.extractor.Extract(r)
		require.NoError(t, err)
		assert.Equal(t, 1, action)
	}

	action, stats, err := agent.Search(dummy.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, action)
	assert.Equal(t, 7, stats.NodesExpanded)
	assert.Equal(t, 3, stats.DepthReached)
}

func TestTerminalState(t *testing.T) {
	terminal := dummy.New().Result(0).Result(0)
	require.True(t, terminal.IsTerminal())
	_, _, err := newMCTS[int]().Search(terminal, testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestMinimaxBruteForce(t *testing.T) {
	cfg := testConfig()
	for _, depth := range []int{1, 2, 3, 4} {
		cfg.DepthLimit = depth
		for _, state := range []*connectfour.State{mustSequence(t, ""), mustSequence(t, "3322"), mustSequence(t, "33224")} {
			r, err := newMinimax[int]().Run(state, cfg)
			require.NoError(t, err)
			require.True(t, r.Root().Evaluated)
			assert.InDelta(t, bruteForce[int](state, depth), r.Root().Eval, 1e-12,
				"state %q, depth %d", state.Sequence(), depth)
			require.NoError(t, r.Tree.CheckPartition())
		}
	}

	// Nim is small enough to be searched until the end.
	cfg.DepthLimit = 20
	for _, piles := range [][]int{{1, 2}, {1, 2, 3}, {2, 2, 1}} {
		state := nim.New(piles...)
		r, err := newMinimax[nim.Action]().Run(state, cfg)
		require.NoError(t, err)
		assert.Equal(t, bruteForce[nim.Action](state, 20), r.Root().Eval, "piles %v", piles)
		// With perfect play the player to move wins iff the nim-sum is not zero.
		assert.Equal(t, state.NimSum() != 0, r.Root().Eval == 1, "piles %v", piles)
	}
}

func TestAlphaBetaEqualsMinimax(t *testing.T) {
	cfg := testConfig()
	cfg.DepthLimit = 4
	for _, sequence := range []string{"", "3322", "332241", "0123456"} {
		state := mustSequence(t, sequence)
		minimaxRun, err := newMinimax[int]().Run(state, cfg)
		require.NoError(t, err)
		abRun, err := newAlphaBeta[int]().Run(state, cfg)
		require.NoError(t, err)
		assert.Equal(t, minimaxRun.Root().Eval, abRun.Root().Eval, "sequence %q", sequence)
		assert.LessOrEqual(t, abRun.Stats.NodesExpanded, minimaxRun.Stats.NodesExpanded)
		require.NoError(t, abRun.Tree.CheckPartition())

		// The chosen move must be optimal.
		action, err := MinimaxMove[int]{}.Extract(abRun)
		require.NoError(t, err)
		assert.Equal(t, minimaxRun.Root().Eval, bruteForce(state.Result(action), cfg.DepthLimit-1),
			"sequence %q, action %d", sequence, action)
	}

	// Some cutoff must have happened from the empty board.
	r, err := newAlphaBeta[int]().Run(connectfour.New(), cfg)
	require.NoError(t, err)
	assert.Positive(t, r.Stats.ABPrunes)
}

func TestIterativeDeepening(t *testing.T) {
	cfg := testConfig()
	agent := newIterativeDeepening(newMinimax[int]())
	r, err := agent.Run(dummy.New(), cfg)
	require.NoError(t, err)
	assert.True(t, r.Solved)
	assert.Equal(t, 3, r.Stats.CompletedDepth)
	assert.Equal(t, []int{0, 1, 1, 1}, r.DepthMoves)
	require.Len(t, r.DepthValues, 4)

	// The move of each completed depth is never worse than the one before.
	previous := -1.0
	for depth, move := range r.DepthMoves {
		value := bruteForce(dummy.New().Result(move), 10)
		assert.GreaterOrEqual(t, value, previous, "depth %d, move %d", depth+1, move)
		previous = value
	}

	action, _, err := agent.Search(dummy.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, action)
}

func TestIterativeDeepeningNim(t *testing.T) {
	// The nim-sum heuristic is exact, so every completed depth must keep a winning move.
	state := nim.New(1, 2, 4)
	require.NotZero(t, state.NimSum())
	cfg := testConfig()
	cfg.DepthLimit = 5
	for _, base := range []*Agent[nim.Action]{newMinimax[nim.Action](), newAlphaBeta[nim.Action]()} {
		agent := newIterativeDeepening(base)
		r, err := agent.Run(state, cfg)
		require.NoError(t, err)
		assert.True(t, r.Solved, agent.Name())
		require.Len(t, r.DepthMoves, 5, agent.Name())
		assert.GreaterOrEqual(t, r.Stats.CompletedDepth, 4, agent.Name())

		previous := -1.0
		for depth, move := range r.DepthMoves {
			value := bruteForce(state.Result(move), 20)
			assert.GreaterOrEqual(t, value, previous, "%s: depth %d, move %s", agent.Name(), depth+1, move)
			previous = value
		}
		assert.Equal(t, 1.0, previous, agent.Name())
	}
}

func TestLeavesEvaluatedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.DepthLimit = 3
	cfg.NumSimulations = 2
	simulation := newMinimax[int]().ToBuilder().
		WithEvaluate(DepthGated[int]{RolloutMany[int]{}}).
		MustBuild("minimax_simulation")
	for _, agent := range []*Agent[int]{newMinimax[int](), newAlphaBeta[int](), simulation} {
		for _, sequence := range []string{"", "332241", "0123456"} {
			r, err := agent.Run(mustSequence(t, sequence), cfg)
			require.NoError(t, err)
			var leaves int
			for n := range r.Tree.Walk() {
				if n.Depth >= r.DepthLimit || n.IsTerminal() {
					require.True(t, n.Evaluated, "%s: leaf %s", agent.Name(), n)
					leaves++
				}
			}
			assert.Equal(t, leaves, r.Stats.Evaluations, "%s, sequence %q", agent.Name(), sequence)
			if agent == simulation {
				assert.Len(t, r.Stats.SimulationLengths, leaves*cfg.NumSimulations, "sequence %q", sequence)
			}
		}
	}
}

func TestIterativeDeepeningDepthCap(t *testing.T) {
	cfg := testConfig()
	cfg.DepthLimit = 3
	for _, base := range []*Agent[int]{newMinimax[int](), newAlphaBeta[int]()} {
		agent := newIterativeDeepening(base)
		state := mustSequence(t, "3322")
		r, err := agent.Run(state, cfg)
		require.NoError(t, err)
		assert.True(t, r.Solved)
		assert.Equal(t, 3, r.Stats.CompletedDepth)
		require.Len(t, r.DepthValues, 3)
		for depth, value := range r.DepthValues {
			assert.InDelta(t, bruteForce[int](state, depth+1), value, 1e-12, "%s at depth %d", agent, depth+1)
		}
		assert.Equal(t, r.DepthMoves[2], r.BestMove)
	}
}

func TestIterativeDeepeningTimed(t *testing.T) {
	cfg := testConfig()
	cfg.SearchTime = time.Nanosecond
	agent := newIterativeDeepening(newAlphaBeta[int]())
	r, err := agent.Run(connectfour.New(), cfg)
	require.NoError(t, err)
	// At least the first depth is always completed.
	assert.True(t, r.HasBestMove)
	assert.GreaterOrEqual(t, r.Stats.CompletedDepth, 1)
}

func TestBuilder(t *testing.T) {
	_, err := NewBuilder[int]().WithSelect(UCT[int]{}).WithExpand(ExpandNext[int]{}).Build("incomplete")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteAgent))
	assert.Contains(t, err.Error(), "evaluate, backpropagate, terminate, trim, extract")
	assert.NotContains(t, err.Error(), "select")

	require.Panics(t, func() { NewBuilder[int]().MustBuild("empty") })

	base := newMCTS[int]()
	variant := base.ToBuilder().WithEvaluate(Static[int]{}).MustBuild("mcts_evaluation")
	assert.Equal(t, "mcts_evaluation", variant.Name())
	assert.IsType(t, Static[int]{}, variant.evaluator)
	assert.IsType(t, UCT[int]{}, variant.selector)
	assert.IsType(t, MostRobust[int]{}, variant.extractor)
	// The base agent is not changed.
	assert.IsType(t, Rollout[int]{}, base.evaluator)

	merged := base.ToBuilder().Merge(NewBuilder[int]().WithTrim(ProgressivePruning[int]{})).MustBuild("pruning")
	assert.IsType(t, ProgressivePruning[int]{}, merged.trimmer)
	assert.IsType(t, SumCount[int]{}, merged.backpropagator)
	assert.Contains(t, merged.Describe(), "searchers.ProgressivePruning[int]")
}

func TestConfigFromParams(t *testing.T) {
	cfg, err := ConfigFromParams(parameters.NewFromConfigString(
		"search_time=0.5,depth_limit=3,num_simulations=5,pruning_factor=2,prune_frequency=10," +
			"expansion_budget=100,iteration_budget=200,exploration=0.7,seed=7,clock=wall,unknown=1"))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.SearchTime)
	assert.Equal(t, 3, cfg.DepthLimit)
	assert.Equal(t, 5, cfg.NumSimulations)
	assert.Equal(t, 2.0, cfg.PruningFactor)
	assert.Equal(t, 10, cfg.PruneFrequency)
	assert.Equal(t, 100, cfg.ExpansionBudget)
	assert.Equal(t, 200, cfg.IterationBudget)
	assert.Equal(t, 0.7, cfg.Exploration)
	assert.Equal(t, uint64(7), cfg.Seed)

	cfg, err = ConfigFromParams(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SearchTime)
	assert.Equal(t, 10, cfg.NumSimulations)

	for _, config := range []string{"num_simulations=0", "search_time=-1", "clock=sundial", "depth_limit=x", "prune_frequency=0"} {
		_, err = ConfigFromParams(parameters.NewFromConfigString(config))
		assert.Error(t, err, "config %q", config)
	}
}

func TestFrontier(t *testing.T) {
	stack := Frontier{mode: DepthFirst}
	queue := Frontier{mode: BreadthFirst}
	disabled := Frontier{}
	for _, f := range []*Frontier{&stack, &queue, &disabled} {
		f.Push(1)
		f.Push(2)
		f.Push(3)
	}
	assert.Equal(t, 0, disabled.Len())
	_, ok := disabled.Pop()
	assert.False(t, ok)

	var popped []int
	for id, ok := stack.Pop(); ok; id, ok = stack.Pop() {
		popped = append(popped, int(id))
	}
	assert.Equal(t, []int{3, 2, 1}, popped)

	popped = nil
	for id, ok := queue.Pop(); ok; id, ok = queue.Pop() {
		popped = append(popped, int(id))
	}
	assert.Equal(t, []int{1, 2, 3}, popped)
}

func TestLookupEvaluator(t *testing.T) {
	state := nim.New(2, 1)
	table := lookupTableFor(t, state, map[nim.Action]float64{{Pile: 0, Take: 1}: 0.1, {Pile: 0, Take: 2}: 0.9, {Pile: 1, Take: 1}: 0.2})
	agent := newMinimax[nim.Action]().ToBuilder().
		WithEvaluate(DepthGated[nim.Action]{Lookup[nim.Action]{Table: table, Fallback: Static[nim.Action]{}}}).
		MustBuild("lookup_minimax")
	cfg := testConfig()
	cfg.DepthLimit = 1
	action, stats, err := agent.Search(state, cfg)
	require.NoError(t, err)
	assert.Equal(t, nim.Action{Pile: 0, Take: 2}, action)
	assert.Equal(t, 3, stats.LookupHits)

	// Missing positions fall back to the static evaluation.
	cfg.DepthLimit = 2
	_, stats, err = agent.Search(state, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.LookupHits)
}
