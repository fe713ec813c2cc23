// Package agents defines the predefined search agents, as bindings of the strategies in package searchers,
// and how to create them from a configuration string.
//
// Most agents are derived from one another: e.g. AlphaBetaMinimax is DepthLimitedMinimax with a different expansion, and
// BeamSearch is IterativeDeepeningAlphaBeta restricted to the beam of each position.
package agents

import (
	"slices"

	"github.com/AntonJorg/general-tree-search/internal/lookup"
	. "github.com/AntonJorg/general-tree-search/internal/searchers"
	"github.com/pkg/errors"
)

// Names of the predefined agents, as used in configuration strings.
const (
	MCTSName                         = "mcts"
	MCTSEvaluationName               = "mcts_evaluation"
	PartialExpansionName             = "partial_expansion"
	StaticWeightedMCTSName           = "static_weighted_mcts"
	MinimaxWeightedMCTSName          = "minimax_weighted_mcts"
	MCTSTreeMinimaxName              = "mcts_tree_minimax"
	ProgressivePruningName           = "progressive_pruning"
	MaximizerMCTSName                = "maximizer_mcts"
	MinimaxName                      = "minimax"
	AlphaBetaName                    = "alpha_beta"
	IterativeDeepeningName           = "iterative_deepening"
	IterativeDeepeningAlphaBetaName  = "iterative_deepening_alpha_beta"
	IterativeDeepeningSimulationName = "iterative_deepening_simulation"
	IterativeDeepeningExpectimaxName = "iterative_deepening_expectimax"
	BeamSearchName                   = "beam_search"
	BestFirstMinimaxName             = "best_first_minimax"
	LookupMinimaxName                = "lookup_minimax"
	RandomName                       = "random"
)

// Names returns the names of all predefined agents, sorted.
func Names() []string {
	names := []string{
		MCTSName, MCTSEvaluationName, PartialExpansionName, StaticWeightedMCTSName, MinimaxWeightedMCTSName,
		MCTSTreeMinimaxName, ProgressivePruningName, MaximizerMCTSName, MinimaxName, AlphaBetaName,
		IterativeDeepeningName, IterativeDeepeningAlphaBetaName, IterativeDeepeningSimulationName,
		IterativeDeepeningExpectimaxName, BeamSearchName, BestFirstMinimaxName, LookupMinimaxName, RandomName,
	}
	slices.Sort(names)
	return names
}

// ByName returns the builder of the predefined agent with the given name. The lookup_minimax agent
// requires a table, it is ignored by all others.
func ByName[A comparable](name string, table lookup.Table) (*Builder[A], error) {
	var agent *Agent[A]
	switch name {
	case MCTSName:
		agent = MCTS[A]()
	case MCTSEvaluationName:
		agent = MCTSEvaluation[A]()
	case PartialExpansionName:
		agent = PartialExpansion[A]()
	case StaticWeightedMCTSName:
		agent = StaticWeightedMCTS[A]()
	case MinimaxWeightedMCTSName:
		agent = MinimaxWeightedMCTS[A]()
	case MCTSTreeMinimaxName:
		agent = MCTSTreeMinimax[A]()
	case ProgressivePruningName:
		agent = ProgressivePruningMCTS[A]()
	case MaximizerMCTSName:
		agent = MaximizerMCTS[A]()
	case MinimaxName:
		agent = DepthLimitedMinimax[A]()
	case AlphaBetaName:
		agent = AlphaBetaMinimax[A]()
	case IterativeDeepeningName:
		agent = IterativeDeepening[A]()
	case IterativeDeepeningAlphaBetaName:
		agent = IterativeDeepeningAlphaBeta[A]()
	case IterativeDeepeningSimulationName:
		agent = IterativeDeepeningSimulation[A]()
	case IterativeDeepeningExpectimaxName:
		agent = IterativeDeepeningExpectimax[A]()
	case BeamSearchName:
		agent = BeamSearch[A]()
	case BestFirstMinimaxName:
		agent = BestFirstMinimax[A]()
	case LookupMinimaxName:
		if table == nil {
			return nil, errors.Errorf("agent %q requires a lookup table", name)
		}
		agent = LookupMinimax[A](table)
	case RandomName:
		agent = Random[A]()
	default:
		return nil, errors.Errorf("unknown agent %q, valid agents are: %v", name, Names())
	}
	return agent.ToBuilder(), nil
}

// MCTS implements Monte Carlo Tree Search as described by Rémi Coulom in "Efficient Selectivity and Backup
// Operators in Monte-Carlo Tree Search", 2006: UCT selection, one random playout per new node, and the most
// visited root child as the move.
func MCTS[A comparable]() *Agent[A] {
	return NewBuilder[A]().
		WithSelect(UCT[A]{}).
		WithExpand(ExpandNext[A]{}).
		WithEvaluate(Rollout[A]{}).
		WithBackpropagate(SumCount[A]{}).
		WithTerminate(AnyOf[A]{Timed[A]{}, Budget[A]{}}).
		NoTrim().
		WithExtract(MostRobust[A]{}).
		MustBuild(MCTSName)
}

// MCTSEvaluation replaces the playouts of MCTS by the static evaluation.
func MCTSEvaluation[A comparable]() *Agent[A] {
	return MCTS[A]().ToBuilder().
		WithEvaluate(Static[A]{}).
		MustBuild(MCTSEvaluationName)
}

// PartialExpansion is MCTS that can descend into existing children before their parent is fully expanded.
func PartialExpansion[A comparable]() *Agent[A] {
	return MCTS[A]().ToBuilder().
		WithSelect(PartialExpansionUCT[A]{}).
		MustBuild(PartialExpansionName)
}

// StaticWeightedMCTS adds a static evaluation alongside each playout. UCB1 scores, and the final move,
// blend it with the average utility.
func StaticWeightedMCTS[A comparable]() *Agent[A] {
	return MCTS[A]().ToBuilder().
		WithSelect(WeightedUCT[A]{}).
		WithEvaluate(Combined[A]{}).
		WithBackpropagate(StoreEvalAndSum[A]{}).
		WithExtract(WeightedEvalUtility[A]{}).
		MustBuild(StaticWeightedMCTSName)
}

// MinimaxWeightedMCTS is StaticWeightedMCTS with minimax backups of the static evaluations.
func MinimaxWeightedMCTS[A comparable]() *Agent[A] {
	return StaticWeightedMCTS[A]().ToBuilder().
		WithBackpropagate(SumAndMinimax[A]{}).
		MustBuild(MinimaxWeightedMCTSName)
}

// MCTSTreeMinimax chooses its move solely on the backed-up static evaluations of the weighted MCTS tree.
func MCTSTreeMinimax[A comparable]() *Agent[A] {
	return MinimaxWeightedMCTS[A]().ToBuilder().
		WithExtract(MinimaxMove[A]{}).
		MustBuild(MCTSTreeMinimaxName)
}

// ProgressivePruningMCTS periodically removes the least visited children from the MCTS tree.
func ProgressivePruningMCTS[A comparable]() *Agent[A] {
	return MCTS[A]().ToBuilder().
		WithTrim(ProgressivePruning[A]{}).
		MustBuild(ProgressivePruningName)
}

// DepthLimitedMinimax searches the whole tree up to the depth limit, depth-first, evaluating the positions
// at the depth limit statically.
func DepthLimitedMinimax[A comparable]() *Agent[A] {
	return NewBuilder[A]().
		WithSelect(Queue[A]{}).
		WithExpand(DepthLimited[A]{Expander: ExpandAll[A]{}}).
		WithEvaluate(DepthGated[A]{Evaluator: Static[A]{}}).
		WithBackpropagate(Minimax[A]{}).
		WithTerminate(FullyEvaluated[A]{}).
		NoTrim().
		WithExtract(MinimaxMove[A]{}).
		MustBuild(MinimaxName)
}

// alphaBetaExpander expands one child at a time, with alpha-beta cutoffs.
func alphaBetaExpander[A comparable]() Expander[A] {
	return AlphaBeta[A]{Expander: DepthLimited[A]{Expander: ExpandNext[A]{}}}
}

// AlphaBetaMinimax is DepthLimitedMinimax with alpha-beta pruning.
func AlphaBetaMinimax[A comparable]() *Agent[A] {
	return DepthLimitedMinimax[A]().ToBuilder().
		WithExpand(alphaBetaExpander[A]()).
		MustBuild(AlphaBetaName)
}

// iterativeDeepening returns the bindings shared by all iterative deepening agents.
func iterativeDeepening[A comparable]() *Builder[A] {
	return NewBuilder[A]().
		WithTerminate(Deepening[A]{}).
		WithTrim(DeepeningRestart[A]{}).
		WithExtract(StoredBestMove[A]{})
}

// IterativeDeepening runs DepthLimitedMinimax with depth limits 1, 2, 3, ... until the time is up, and plays the best
// move of the last completed depth.
func IterativeDeepening[A comparable]() *Agent[A] {
	return DepthLimitedMinimax[A]().ToBuilder().
		Merge(iterativeDeepening[A]()).
		MustBuild(IterativeDeepeningName)
}

// IterativeDeepeningAlphaBeta combines iterative deepening and alpha-beta pruning.
func IterativeDeepeningAlphaBeta[A comparable]() *Agent[A] {
	return IterativeDeepening[A]().ToBuilder().
		WithExpand(alphaBetaExpander[A]()).
		MustBuild(IterativeDeepeningAlphaBetaName)
}

// MaximizerMCTS is MCTS for a single player in a random environment: the moves of the other "player" are
// sampled instead of searched for the best reply, see StochasticUCT. Playouts follow the game's distribution
// at chance nodes.
func MaximizerMCTS[A comparable]() *Agent[A] {
	return MCTS[A]().ToBuilder().
		WithSelect(StochasticUCT[A]{}).
		WithEvaluate(Rollout[A]{}).
		MustBuild(MaximizerMCTSName)
}

// IterativeDeepeningSimulation evaluates the positions at the depth limit by the average of
// Config.NumSimulations random playouts.
func IterativeDeepeningSimulation[A comparable]() *Agent[A] {
	return IterativeDeepening[A]().ToBuilder().
		WithEvaluate(DepthGated[A]{Evaluator: RolloutMany[A]{}}).
		MustBuild(IterativeDeepeningSimulationName)
}

// IterativeDeepeningExpectimax backs up expected values at the nodes of the second player, weighted by the
// game's distribution for stochastic games, uniformly otherwise.
func IterativeDeepeningExpectimax[A comparable]() *Agent[A] {
	return IterativeDeepening[A]().ToBuilder().
		WithBackpropagate(Expectimax[A]{}).
		MustBuild(IterativeDeepeningExpectimaxName)
}

// BeamSearch is IterativeDeepeningAlphaBeta restricted to the candidate actions of each position, see
// games.BeamFilter.
func BeamSearch[A comparable]() *Agent[A] {
	return IterativeDeepeningAlphaBeta[A]().ToBuilder().
		WithExpand(Beam[A]{Expander: alphaBetaExpander[A]()}).
		MustBuild(BeamSearchName)
}

// BestFirstMinimax grows the tree at the end of the principal variation, backing-up the static evaluations
// of the new nodes with minimax.
//
// See "Best-first minimax search", Richard E. Korf and David Maxwell Chickering, Artificial Intelligence, 1996.
func BestFirstMinimax[A comparable]() *Agent[A] {
	return DepthLimitedMinimax[A]().ToBuilder().
		WithSelect(PrincipalVariation[A]{}).
		WithExpand(ExpandNext[A]{}).
		WithEvaluate(Static[A]{}).
		WithTerminate(AnyOf[A]{Timed[A]{}, Budget[A]{}}).
		MustBuild(BestFirstMinimaxName)
}

// LookupMinimax is DepthLimitedMinimax that evaluates the positions found in table by their stored value.
func LookupMinimax[A comparable](table lookup.Table) *Agent[A] {
	return DepthLimitedMinimax[A]().ToBuilder().
		WithEvaluate(DepthGated[A]{Evaluator: Lookup[A]{Table: table, Fallback: Static[A]{}}}).
		MustBuild(LookupMinimaxName)
}

// Random plays a random move without searching. At chance nodes it follows the game's distribution,
// so it can also be used to play the "environment" of stochastic games.
func Random[A comparable]() *Agent[A] {
	return NewBuilder[A]().
		WithSelect(UCT[A]{}).
		WithExpand(ExpandNext[A]{}).
		WithEvaluate(TerminalUtility[A]{}).
		WithBackpropagate(SumCount[A]{}).
		WithTerminate(Immediately[A]{}).
		NoTrim().
		WithExtract(RandomMove[A]{}).
		MustBuild(RandomName)
}
