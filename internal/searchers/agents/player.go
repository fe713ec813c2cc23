package agents

import (
	"strings"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/lookup"
	"github.com/AntonJorg/general-tree-search/internal/parameters"
	. "github.com/AntonJorg/general-tree-search/internal/searchers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// options for NewFromConfig.
type options struct {
	table lookup.Table
}

// Option for NewFromConfig.
type Option func(*options)

// WithTable sets the lookup table used by the lookup_minimax agent.
func WithTable(table lookup.Table) Option {
	return func(o *options) { o.table = table }
}

// NewFromConfig creates an agent and its search configuration from a configuration string.
//
// Args:
//
//   - config: a comma-separated list of parameters with optional values associated. The agent name
//     is either the first parameter (e.g.: "mcts,search_time=0.5") or given by "agent=<name>".
//
// Parameters:
//
//   - search_time, depth_limit, num_simulations, pruning_factor, prune_frequency, expansion_budget,
//     iteration_budget, exploration, seed, clock: see searchers.Config.
//   - randomness (float): Adds a layer of randomness to the chosen move: the move is sampled from a softmax
//     of the scores of the root children, divided by this value. So lower values (closer to 0) means less
//     randomness, higher value means more randomness, hence more exploration. Default is 0.
//   - max_move_randomness (int): If > 0, randomness is only used in the first max_move_randomness moves of
//     a game.
//
// Unknown parameters are ignored, since the same configuration can be shared among agents of different
// types.
func NewFromConfig[A comparable](config string, opts ...Option) (*Agent[A], Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	params := parameters.NewFromConfigString(config)
	name, err := agentName(config, params)
	if err != nil {
		return nil, Config{}, err
	}
	builder, err := ByName[A](name, o.table)
	if err != nil {
		return nil, Config{}, err
	}
	randomness, err := parameters.PopParamOr(params, "randomness", 0.0)
	if err != nil {
		return nil, Config{}, err
	}
	maxMoveRandomness, err := parameters.PopParamOr(params, "max_move_randomness", 0)
	if err != nil {
		return nil, Config{}, err
	}
	agent, err := builder.WithRandomness(randomness, maxMoveRandomness).Build(name)
	if err != nil {
		return nil, Config{}, err
	}
	cfg, err := ConfigFromParams(params)
	if err != nil {
		return nil, Config{}, errors.WithMessagef(err, "invalid configuration for agent %q", name)
	}
	return agent, cfg, nil
}

// agentName returns the agent name from the config, and removes it from params.
func agentName(config string, params parameters.Params) (string, error) {
	name, err := parameters.PopParamOr(params, "agent", "")
	if err != nil || name != "" {
		return name, err
	}
	first := strings.TrimSpace(strings.SplitN(config, ",", 2)[0])
	if first == "" || strings.Contains(first, "=") {
		return "", errors.Errorf("no agent name given in configuration %q", config)
	}
	delete(params, first)
	return first, nil
}

// Player plays moves in a game with a configured agent. It owns the lookup table it may have opened.
type Player[A comparable] struct {
	Agent  *Agent[A]
	Config Config

	table *lookup.BadgerTable
}

// NewPlayer creates a Player from a configuration string, see NewFromConfig for the parameters.
// Additionally, the parameter "lookup" gives the path to a BadgerDB lookup table to open (read-only) for
// the lookup_minimax agent.
//
// Call Finalize at the end to release the resources of the player.
func NewPlayer[A comparable](config string) (*Player[A], error) {
	player := &Player[A]{}
	var opts []Option
	path, err := parameters.GetParamOr(parameters.NewFromConfigString(config), "lookup", "")
	if err != nil {
		return nil, err
	}
	if path != "" {
		player.table, err = lookup.OpenBadger(lookup.BadgerConfig{Path: path, ReadOnly: true})
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTable(player.table))
	}
	player.Agent, player.Config, err = NewFromConfig[A](config, opts...)
	if err != nil {
		_ = player.Finalize()
		return nil, errors.WithMessagef(err, "failed to create player from %q", config)
	}
	return player, nil
}

// Play returns the action chosen by the agent at state, and the statistics of the search.
func (p *Player[A]) Play(state games.State[A]) (action A, stats *Stats, err error) {
	action, stats, err = p.Agent.Search(state, p.Config)
	if err == nil && klog.V(2).Enabled() {
		klog.Infof("Move #%d: %s playing %v at %s", state.Moves(), p.Agent, action, games.Describe(state))
	}
	return
}

// Finalize is called at the end of the player's matches.
func (p *Player[A]) Finalize() error {
	if p.table == nil {
		return nil
	}
	err := p.table.Close()
	p.table = nil
	return err
}
