// Package nim implements the game of Nim (normal play: whoever takes the last object wins).
//
// Nim has a perfect heuristic (the nim-sum), which makes it useful to check that searchers
// using static evaluations find the optimal move.
package nim

import (
	"fmt"
	"slices"
	"strings"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/gomlx/exceptions"
)

// Action takes Take objects from pile Pile.
type Action struct {
	Pile, Take int
}

// String implements fmt.Stringer.
func (a Action) String() string {
	return fmt.Sprintf("%d@%d", a.Take, a.Pile)
}

// State of a Nim game.
type State struct {
	piles   []int
	moves   int
	actions []Action
}

var (
	_ games.State[Action] = (*State)(nil)
	_ games.Heuristic     = (*State)(nil)
	_ games.Keyed         = (*State)(nil)
)

// New creates a game with the given pile sizes.
func New(piles ...int) *State {
	for _, pile := range piles {
		if pile < 0 || pile > 255 {
			exceptions.Panicf("nim: invalid pile size %d, it must be between 0 and 255", pile)
		}
	}
	return newState(slices.Clone(piles), 0)
}

func newState(piles []int, moves int) *State {
	s := &State{piles: piles, moves: moves}
	for pile, size := range piles {
		for take := 1; take <= size; take++ {
			s.actions = append(s.actions, Action{Pile: pile, Take: take})
		}
	}
	return s
}

// Piles returns a copy of the current pile sizes.
func (s *State) Piles() []int { return slices.Clone(s.piles) }

// Actions implements games.State.
func (s *State) Actions() []Action { return s.actions }

// IsTerminal implements games.State.
func (s *State) IsTerminal() bool { return len(s.actions) == 0 }

// Utility implements games.State: the player who made the last move wins.
func (s *State) Utility() float64 {
	if !s.IsTerminal() {
		return 0.5
	}
	return float64(s.moves % 2)
}

// Moves implements games.State.
func (s *State) Moves() int { return s.moves }

// Result implements games.State.
func (s *State) Result(action Action) games.State[Action] {
	if action.Pile < 0 || action.Pile >= len(s.piles) || action.Take < 1 || action.Take > s.piles[action.Pile] {
		exceptions.Panicf("nim: action %s not applicable to piles %v", action, s.piles)
	}
	piles := slices.Clone(s.piles)
	piles[action.Pile] -= action.Take
	return newState(piles, s.moves+1)
}

// NimSum is the xor of all pile sizes: the player to move wins with perfect play iff it is not zero.
func (s *State) NimSum() int {
	var sum int
	for _, pile := range s.piles {
		sum ^= pile
	}
	return sum
}

// Heuristic implements games.Heuristic with the exact game value given by the nim-sum.
func (s *State) Heuristic() float64 {
	if s.IsTerminal() {
		return s.Utility()
	}
	toMoveWins := s.NimSum() != 0
	if games.IsMaxTurn(s.moves) == toMoveWins {
		return 1
	}
	return 0
}

// Key implements games.Keyed.
func (s *State) Key() []byte {
	key := make([]byte, 0, len(s.piles)+1)
	key = append(key, byte(s.moves%2))
	for _, pile := range s.piles {
		key = append(key, byte(pile))
	}
	return key
}

// String implements fmt.Stringer.
func (s *State) String() string {
	parts := make([]string, len(s.piles))
	for ii, pile := range s.piles {
		parts[ii] = strings.Repeat("|", pile)
	}
	return fmt.Sprintf("Nim[%s] moves=%d", strings.Join(parts, " "), s.moves)
}
