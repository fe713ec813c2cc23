// Package games defines the contract between game models and the tree search engine.
//
// A game state is an immutable value: every transition returns a new state. The search core only ever
// talks to games through State and, optionally, the capability interfaces below, which are discovered
// by type assertion.
package games

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
)

// State of a two-player alternating game, as seen by the search engine.
//
// Utilities are always reported from the perspective of the player that moves on even move counts
// (the "max" player): 1 is a win for that player, 0 a loss and 0.5 a draw (or undecided).
type State[A comparable] interface {
	// Actions returns the ordered list of applicable actions. No duplicates.
	// It is empty for terminal states.
	Actions() []A

	// IsTerminal returns whether the game is over.
	IsTerminal() bool

	// Utility of the state, in [0, 1], from the perspective of the max player.
	Utility() float64

	// Moves returns the number of moves played so far. Its parity defines the player to move.
	Moves() int

	// Result returns the state after taking action. It must not modify the receiver.
	//
	// It panics if action is not applicable or if the state is terminal.
	Result(action A) State[A]
}

// Heuristic is implemented by states that provide their own static evaluation.
type Heuristic interface {
	// Heuristic returns an estimate of the utility in [0, 1], from the max player perspective.
	Heuristic() float64
}

// Stochastic is implemented by games with chance nodes.
type Stochastic interface {
	// Distribution returns the weight of each action, aligned with Actions(), or nil if the
	// state is a decision node.
	Distribution() []float64
}

// BeamFilter is implemented by states that can narrow down the actions worth considering
// in a beam search.
type BeamFilter[A comparable] interface {
	// BeamActions returns a subset of Actions(), in preferred order.
	BeamActions() []A
}

// Keyed is implemented by states that have a stable binary key, used by lookup tables.
type Keyed interface {
	Key() []byte
}

// IsMaxTurn returns whether the player to move after the given number of moves is the maximizing player.
func IsMaxTurn(moves int) bool {
	return moves%2 == 0
}

// ApplyAll applies the actions in sequence, validating each one.
// It returns an error, instead of panicking, if an action is not applicable or the game ended early.
func ApplyAll[A comparable](state State[A], actions ...A) (State[A], error) {
	for ii, action := range actions {
		if state.IsTerminal() {
			return nil, errors.Errorf("cannot apply action #%d (%v): state is terminal", ii, action)
		}
		if !slices.Contains(state.Actions(), action) {
			return nil, errors.Errorf("action #%d (%v) not applicable, valid actions are %v", ii, action, state.Actions())
		}
		state = state.Result(action)
	}
	return state, nil
}

// Playout plays uniformly random actions until the game is over. It returns the terminal state
// reached and the number of moves played.
//
// For Stochastic states at chance nodes, actions are sampled from the distribution instead.
func Playout[A comparable](state State[A], rng *rand.Rand) (State[A], int) {
	length := 0
	for !state.IsTerminal() {
		actions := state.Actions()
		idx := -1
		if stochastic, ok := state.(Stochastic); ok {
			if dist := stochastic.Distribution(); dist != nil {
				idx = SampleIndex(dist, rng)
			}
		}
		if idx < 0 {
			idx = rng.IntN(len(actions))
		}
		state = state.Result(actions[idx])
		length++
	}
	return state, length
}

// SampleIndex returns an index of weights with probability proportional to its weight.
func SampleIndex(weights []float64, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	target := rng.Float64() * total
	for ii, w := range weights {
		target -= w
		if target < 0 {
			return ii
		}
	}
	return len(weights) - 1
}

// Describe returns a one-line description of a state, used in logs.
func Describe[A comparable](state State[A]) string {
	if stringer, ok := state.(fmt.Stringer); ok {
		return stringer.String()
	}
	return fmt.Sprintf("%T{moves=%d, actions=%v}", state, state.Moves(), state.Actions())
}
