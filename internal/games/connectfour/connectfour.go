// Package connectfour implements a bitboard Connect-Four game model.
//
// The board is 7 columns by 6 rows, encoded in two uint64 masks. Each column uses 7 bits, the
// top one being a sentinel that is never set, so that shifted patterns never wrap from the top of
// one column into the bottom of the next:
//
//	.  .  .  .  .  .  .
//	5 12 19 26 33 40 47
//	4 11 18 25 32 39 46
//	3 10 17 24 31 38 45
//	2  9 16 23 30 37 44
//	1  8 15 22 29 36 43
//	0  7 14 21 28 35 42
//
// The pieces mask holds every occupied cell, and the player mask holds the pieces of the player
// to move. Win checks, move generation and transitions are all constant time bit operations.
package connectfour

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Action is the column (0 to Width-1) where the piece is dropped.
type Action = int

const (
	Width  = 7
	Height = 6

	// stride is the number of bits per column, including the sentinel.
	stride = Height + 1

	// columnMask has the playable cells of column 0 set.
	columnMask uint64 = (1 << Height) - 1
)

var (
	// shifts to check the vertical, horizontal, diagonal and anti-diagonal directions.
	shifts = [4]uint{1, stride, Height, Height + 2}

	// centerOrder is the move ordering used for the applicable actions.
	centerOrder = [Width]Action{3, 2, 4, 1, 5, 0, 6}

	// columnWeights used by the position term of the heuristic.
	columnWeights = [Width]int{1, 2, 3, 4, 3, 2, 1}
)

// State of a Connect-Four game. It implements games.State[Action], games.Heuristic,
// games.BeamFilter[Action] and games.Keyed.
type State struct {
	pieces, player uint64
	moves          int
	sequence       string

	// resultDelay is an artificial delay added to every transition, used to model games with
	// expensive transition functions.
	resultDelay time.Duration

	// Derived at construction.
	actions  []Action
	utility  float64
	terminal bool
}

var (
	_ games.State[Action]      = (*State)(nil)
	_ games.Heuristic          = (*State)(nil)
	_ games.BeamFilter[Action] = (*State)(nil)
	_ games.Keyed              = (*State)(nil)
)

// Option configures the initial State created by New.
type Option func(s *State)

// WithResultDelay makes every transition sleep for the given duration.
func WithResultDelay(delay time.Duration) Option {
	return func(s *State) {
		s.resultDelay = delay
	}
}

// New returns the empty board, with the first player to move.
func New(options ...Option) *State {
	s := &State{}
	for _, option := range options {
		option(s)
	}
	s.derive()
	return s
}

// FromSequence returns the state reached by playing the columns in sequence, e.g.: "3342".
func FromSequence(sequence string, options ...Option) (*State, error) {
	return New(options...).ApplyAll(sequence)
}

// derive computes the applicable actions, utility and terminality.
func (s *State) derive() {
	s.actions = make([]Action, 0, Width)
	for _, col := range centerOrder {
		if s.pieces&topCell(col) == 0 {
			s.actions = append(s.actions, col)
		}
	}

	// Only the player who just moved can have won.
	s.utility = 0.5
	lastMover := s.player ^ s.pieces
	if hasFour(lastMover) {
		s.utility = float64(s.moves % 2)
	}
	s.terminal = len(s.actions) == 0 || s.utility != 0.5
}

func topCell(col Action) uint64 {
	return 1 << uint((Height-1)+col*stride)
}

func hasFour(pieces uint64) bool {
	for _, shift := range shifts {
		m := pieces & (pieces >> shift)
		if m&(m>>(2*shift)) != 0 {
			return true
		}
	}
	return false
}

// Actions implements games.State. The returned slice must not be modified.
func (s *State) Actions() []Action { return s.actions }

// IsTerminal implements games.State.
func (s *State) IsTerminal() bool { return s.terminal }

// Utility implements games.State: 1 if the first player won, 0 if the second player won and 0.5 otherwise.
func (s *State) Utility() float64 { return s.utility }

// Moves implements games.State.
func (s *State) Moves() int { return s.moves }

// Sequence returns the columns played so far, one digit per move.
func (s *State) Sequence() string { return s.sequence }

// Result implements games.State.
func (s *State) Result(action Action) games.State[Action] {
	return s.Play(action)
}

// Play is like Result, but returns the concrete type.
func (s *State) Play(col Action) *State {
	if s.terminal {
		exceptions.Panicf("connectfour: cannot play column %d on a terminal state (sequence %q)", col, s.sequence)
	}
	if col < 0 || col >= Width || s.pieces&topCell(col) != 0 {
		exceptions.Panicf("connectfour: column %d is not playable, valid actions are %v", col, s.actions)
	}
	if s.resultDelay > 0 {
		time.Sleep(s.resultDelay)
	}
	next := &State{
		player:      s.player ^ s.pieces,
		pieces:      s.pieces | (s.pieces + (1 << uint(col*stride))),
		moves:       s.moves + 1,
		sequence:    s.sequence + string(rune('0'+col)),
		resultDelay: s.resultDelay,
	}
	next.derive()
	return next
}

// ApplyAll plays each column of the sequence in turn. It returns an error if any of them is not
// a valid move.
func (s *State) ApplyAll(sequence string) (*State, error) {
	state := s
	for ii, r := range sequence {
		col := int(r - '0')
		if state.terminal {
			return nil, errors.Errorf("connectfour: move #%d (%q) played after the game ended", ii, r)
		}
		if col < 0 || col >= Width || state.pieces&topCell(col) != 0 {
			return nil, errors.Errorf("connectfour: move #%d (%q) is not a valid column, valid columns are %v",
				ii, r, state.actions)
		}
		state = state.Play(col)
	}
	return state, nil
}

// maxAndMinPieces returns the pieces of the first (max) and second (min) player.
func (s *State) maxAndMinPieces() (maxPieces, minPieces uint64) {
	if s.moves%2 == 0 {
		return s.player, s.player ^ s.pieces
	}
	return s.player ^ s.pieces, s.player
}

// Heuristic implements games.Heuristic.
//
// It scores the first player's pieces against the second player's, counting pairs and triples in
// the four line directions and weighting pieces by column centrality:
//
//	score = 0.01*position + 0.1*twos + threes   (each as a difference between players)
//
// The score is squashed to [0, 1] with a logistic function. Terminal states return their utility.
func (s *State) Heuristic() float64 {
	if s.terminal {
		return s.utility
	}
	maxPieces, minPieces := s.maxAndMinPieces()
	twos, threes := lineCounts(maxPieces)
	minTwos, minThrees := lineCounts(minPieces)
	position := positionScore(maxPieces) - positionScore(minPieces)
	score := 0.01*float64(position) + 0.1*float64(twos-minTwos) + float64(threes-minThrees)
	return 1 / (1 + math.Exp(-score))
}

func lineCounts(pieces uint64) (twos, threes int) {
	for _, shift := range shifts {
		m := pieces & (pieces >> shift)
		twos += bits.OnesCount64(m)
		threes += bits.OnesCount64(m & (m >> shift))
	}
	return
}

func positionScore(pieces uint64) (score int) {
	for col, weight := range columnWeights {
		score += weight * bits.OnesCount64(pieces&(columnMask<<uint(col*stride)))
	}
	return
}

// BeamActions implements games.BeamFilter: only columns adjacent to (or in between) columns already
// played are considered. On the empty board only the center column is considered.
func (s *State) BeamActions() []Action {
	if s.pieces == 0 {
		return []Action{Width / 2}
	}
	minCol, maxCol := Width, -1
	for col := range Width {
		if s.pieces&(1<<uint(col*stride)) != 0 {
			minCol = min(minCol, col)
			maxCol = max(maxCol, col)
		}
	}
	beam := make([]Action, 0, len(s.actions))
	for _, col := range s.actions {
		if col >= minCol-1 && col <= maxCol+1 {
			beam = append(beam, col)
		}
	}
	return beam
}

// Key implements games.Keyed: 16 bytes with the pieces and player masks.
func (s *State) Key() []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], s.pieces)
	binary.BigEndian.PutUint64(key[8:], s.player)
	return key
}

// Cell returns who occupies the cell at row (0 is the bottom) and col: 0 for empty, 1 for the first player
// and 2 for the second player.
func (s *State) Cell(row, col int) int {
	bit := uint64(1) << uint(row+col*stride)
	if s.pieces&bit == 0 {
		return 0
	}
	maxPieces, _ := s.maxAndMinPieces()
	if maxPieces&bit != 0 {
		return 1
	}
	return 2
}

// Winner returns 1 or 2 for the winning player, or 0 if there is no winner (yet).
func (s *State) Winner() int {
	switch {
	case s.utility == 1:
		return 1
	case s.utility == 0:
		return 2
	}
	return 0
}

// String implements fmt.Stringer.
func (s *State) String() string {
	var sb strings.Builder
	for row := Height - 1; row >= 0; row-- {
		for col := range Width {
			if col > 0 {
				sb.WriteByte(' ')
			}
			switch s.Cell(row, col) {
			case 0:
				sb.WriteByte('.')
			case 1:
				sb.WriteByte('1')
			case 2:
				sb.WriteByte('2')
			}
		}
		sb.WriteByte('\n')
	}
	_, _ = fmt.Fprintf(&sb, "moves=%d sequence=%q actions=%v winner=%d", s.moves, s.sequence, s.actions, s.Winner())
	return sb.String()
}
