// Package dummy implements a tiny fixed game with 7 positions, used to test search algorithms
// where the expected answer can be worked out by hand.
//
// Game graph (actions in brackets, terminal utilities in parenthesis):
//
//	0 -[0]-> 1 -[0]-> 3 (1: max wins)
//	         1 -[1]-> 4 (0: min wins)
//	0 -[1]-> 2 -[0]-> 5 -[0]-> 6 (0.5: draw)
//	                  5 -[1]-> 4 (0: min wins)
//
// With perfect play the max player should choose action 1 at position 0, and the game is a draw.
package dummy

import (
	"fmt"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/gomlx/exceptions"
)

type transition struct {
	position, action int
}

var (
	actions = map[int][]int{0: {0, 1}, 1: {0, 1}, 2: {0}, 3: nil, 4: nil, 5: {0, 1}, 6: nil}
	results = map[transition]int{
		{0, 0}: 1,
		{0, 1}: 2,
		{1, 0}: 3,
		{1, 1}: 4,
		{2, 0}: 5,
		{5, 0}: 6,
		{5, 1}: 4,
	}
	utilities = map[int]float64{3: 1, 4: 0, 6: 0.5}
)

// State of the dummy game: a position in the game graph and the number of moves played.
type State struct {
	position, moves int
}

var (
	_ games.State[int] = State{}
	_ games.Heuristic  = State{}
)

// New returns the initial state, at position 0.
func New() State { return State{} }

// Position in the game graph.
func (s State) Position() int { return s.position }

// Actions implements games.State.
func (s State) Actions() []int { return actions[s.position] }

// IsTerminal implements games.State.
func (s State) IsTerminal() bool { return len(actions[s.position]) == 0 }

// Utility implements games.State.
func (s State) Utility() float64 {
	if u, found := utilities[s.position]; found {
		return u
	}
	return 0.5
}

// Heuristic implements games.Heuristic. The dummy game has no real heuristic, so it returns the
// utility (0.5 for non-terminal positions).
func (s State) Heuristic() float64 { return s.Utility() }

// Moves implements games.State.
func (s State) Moves() int { return s.moves }

// Result implements games.State.
func (s State) Result(action int) games.State[int] {
	next, found := results[transition{s.position, action}]
	if !found {
		exceptions.Panicf("dummy: action %d not applicable at position %d", action, s.position)
	}
	return State{position: next, moves: s.moves + 1}
}

// String implements fmt.Stringer.
func (s State) String() string {
	return fmt.Sprintf("Dummy[position=%d, moves=%d]", s.position, s.moves)
}
