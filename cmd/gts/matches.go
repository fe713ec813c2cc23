package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/games/connectfour"
	"github.com/AntonJorg/general-tree-search/internal/metrics"
	"github.com/AntonJorg/general-tree-search/internal/searchers"
	"github.com/AntonJorg/general-tree-search/internal/searchers/agents"
	"github.com/AntonJorg/general-tree-search/internal/ui/cli"
	"github.com/AntonJorg/general-tree-search/internal/ui/spinning"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// humanConfig is the player configuration for a human playing from the terminal.
const humanConfig = "human"

func isHuman(config string) bool { return strings.TrimSpace(config) == humanConfig }

// mover is anything that is able to play a game: an agent or a human.
type mover[A comparable] interface {
	// Play returns the action chosen at state. Stats may be nil.
	Play(state games.State[A]) (A, *searchers.Stats, error)

	// Name used in logs and metrics.
	Name() string

	// Finalize is called at the end of a match.
	Finalize() error
}

// agentPlayer adapts agents.Player to mover.
type agentPlayer[A comparable] struct {
	*agents.Player[A]
}

func (p agentPlayer[A]) Name() string { return p.Agent.Name() }

// humanPlayer reads its moves from the terminal.
type humanPlayer struct {
	ui *cli.UI
}

func (h *humanPlayer) Play(state games.State[connectfour.Action]) (connectfour.Action, *searchers.Stats, error) {
	action, err := h.ui.ReadCommand(state.(*connectfour.State))
	return action, nil, err
}

func (h *humanPlayer) Name() string { return humanConfig }

func (h *humanPlayer) Finalize() error { return nil }

// game defines how to start and print matches of a game.
type game[A comparable] struct {
	name        string
	initial     func() games.State[A]
	newHuman    func() mover[A]
	print       func(state games.State[A])
	printWinner func(state games.State[A])
}

// newMover creates a fresh player for one match.
func (g game[A]) newMover(config string) (mover[A], error) {
	if isHuman(config) {
		if g.newHuman == nil {
			return nil, errors.Errorf("human players are not supported for %s", g.name)
		}
		return g.newHuman(), nil
	}
	player, err := agents.NewPlayer[A](config)
	if err != nil {
		return nil, err
	}
	return agentPlayer[A]{player}, nil
}

type matchOptions struct {
	numMatches, parallelism int
	printSteps              bool
	recorder                *metrics.Recorder
}

// Results of the matches played so far. Player indices refer to the -first and -second flags, regardless of
// who started each match.
type Results struct {
	mu                   sync.Mutex
	start                time.Time
	winsAs1st, winsAs2nd [2]int
	draws                [2]int
	played, total        int
}

func (r *Results) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var parts []string
	parts = append(parts, fmt.Sprintf("Played %d of %d: ", r.played, r.total))
	for playerIdx := range 2 {
		parts = append(parts,
			fmt.Sprintf("Agent-%d: %d Wins (1st: %d, 2nd: %d) / ",
				playerIdx+1, r.winsAs1st[playerIdx]+r.winsAs2nd[playerIdx],
				r.winsAs1st[playerIdx], r.winsAs2nd[playerIdx]))
	}
	parts = append(parts, fmt.Sprintf("%d draws (%d Agent-1 as 1st, %d Agent-2 as 1st) - ",
		r.draws[0]+r.draws[1], r.draws[0], r.draws[1]))
	parts = append(parts, time.Since(r.start).Round(time.Millisecond).String())
	return strings.Join(parts, "")
}

// record the result of a match: winner is 0 for a draw, 1 or 2 for the player who moved first or second.
func (r *Results) record(winner int, swapped bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	first := 0
	if swapped {
		first = 1
	}
	switch winner {
	case 0:
		r.draws[first]++
	case 1:
		r.winsAs1st[first]++
	case 2:
		r.winsAs2nd[1-first]++
	}
	r.played++
}

// runMatches plays opts.numMatches matches, alternating who moves first, opts.parallelism at a time.
// Each match creates its own players, so no search state is shared among concurrent matches.
func runMatches[A comparable](ctx context.Context, configs [2]string, opts matchOptions, g game[A]) error {
	results := &Results{start: time.Now(), total: opts.numMatches}
	var spinner *spinning.Spinning
	if !opts.printSteps {
		spinner = spinning.New(ctx, spinning.ThemeClock, results.String)
	}

	var wg errgroup.Group
	wg.SetLimit(opts.parallelism)
	for matchIdx := range opts.numMatches {
		wg.Go(func() error {
			swapped := matchIdx%2 == 1
			matchConfigs := configs
			if swapped {
				matchConfigs[0], matchConfigs[1] = matchConfigs[1], matchConfigs[0]
			}
			winner, err := runMatch(ctx, matchIdx, matchConfigs, opts, g)
			if err != nil || ctx.Err() != nil {
				return err
			}
			results.record(winner, swapped)
			if opts.recorder != nil {
				opts.recorder.ObserveMatch(matchResult(winner, swapped))
			}
			return nil
		})
	}
	err := wg.Wait()
	if spinner != nil {
		spinner.Done()
	}
	fmt.Printf("%s: %s\n", g.name, results)
	if ctx.Err() != nil {
		fmt.Printf("Interrupted: %s\n", ctx.Err())
		return nil
	}
	return err
}

// matchResult converts the winner of a match, by order of play, to the metrics label, by -first/-second flags.
func matchResult(winner int, swapped bool) string {
	if winner == 0 {
		return metrics.ResultDraw
	}
	if (winner == 1) != swapped {
		return metrics.ResultFirstWins
	}
	return metrics.ResultSecondWins
}

var muPrint sync.Mutex

// runMatch plays one match and returns the winner: 1 or 2 by order of play, or 0 for a draw (or if interrupted).
func runMatch[A comparable](ctx context.Context, matchIdx int, configs [2]string, opts matchOptions, g game[A]) (winner int, err error) {
	var players [2]mover[A]
	defer func() {
		for _, player := range players {
			if player == nil {
				continue
			}
			if finalizeErr := player.Finalize(); finalizeErr != nil && err == nil {
				err = finalizeErr
			}
		}
	}()
	for idx, config := range configs {
		players[idx], err = g.newMover(config)
		if err != nil {
			return 0, err
		}
	}
	matchName := fmt.Sprintf("Match-%05d", matchIdx)
	klog.V(1).Infof("Starting %s: %s vs %s", matchName, players[0].Name(), players[1].Name())

	state := g.initial()
	for !state.IsTerminal() {
		if ctx.Err() != nil {
			klog.V(1).Infof("%s interrupted: %s", matchName, ctx.Err())
			return 0, nil
		}
		if opts.printSteps {
			muPrint.Lock()
			fmt.Printf("\n%s\n", matchName)
			g.print(state)
			muPrint.Unlock()
		}
		player := players[state.Moves()%2]
		action, stats, playErr := player.Play(state)
		if playErr != nil {
			return 0, errors.WithMessagef(playErr, "%s: %s failed to play at move #%d", matchName, player.Name(), state.Moves())
		}
		if stats != nil && opts.recorder != nil {
			opts.recorder.ObserveSearch(player.Name(), stats)
		}
		state = state.Result(action)
	}
	if opts.printSteps {
		muPrint.Lock()
		g.printWinner(state)
		muPrint.Unlock()
	}

	switch state.Utility() {
	case 1:
		winner = 1
	case 0:
		winner = 2
	}
	klog.V(1).Infof("Finished %s: winner=%d after %d moves", matchName, winner, state.Moves())
	return winner, nil
}
