package searchers

import (
	"fmt"
	"math"
	"time"

	"github.com/AntonJorg/general-tree-search/internal/cpuclock"
	"github.com/AntonJorg/general-tree-search/internal/parameters"
	"github.com/pkg/errors"
)

// DefaultDepthLimit is used by depth-limited searches when Config.DepthLimit is not set.
const DefaultDepthLimit = 4

// Config of a search. It is not changed during the search.
type Config struct {
	// SearchTime is the budget for time-limited searches (parameter "search_time", in seconds).
	SearchTime time.Duration

	// DepthLimit for depth-limited searches (parameter "depth_limit"). For iterative deepening
	// it is the maximum depth to deepen to. 0 means the default: DefaultDepthLimit for
	// depth-limited searches, and no limit for iterative deepening.
	DepthLimit int

	// NumSimulations per evaluation, for evaluators that average many rollouts ("num_simulations").
	NumSimulations int

	// PruningFactor for progressive pruning ("pruning_factor"): children with fewer visits than
	// count(parent)/(branching_factor+pruning_factor) are pruned.
	PruningFactor float64

	// PruneFrequency is the number of root visits between progressive prunings ("prune_frequency").
	PruneFrequency int

	// ExpansionBudget and IterationBudget stop the search once that many nodes were expanded, or
	// iterations run. 0 means no budget ("expansion_budget" and "iteration_budget").
	ExpansionBudget, IterationBudget int

	// Exploration constant used by UCT selectors ("exploration").
	Exploration float64

	// Seed for the random number generator. 0 means a random seed ("seed").
	Seed uint64

	// Clock used to measure SearchTime ("clock", either "cpu" or "wall").
	Clock cpuclock.Clock
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SearchTime:     time.Second,
		NumSimulations: 10,
		PruningFactor:  6,
		PruneFrequency: 100,
		Exploration:    math.Sqrt2,
		Clock:          cpuclock.Process,
	}
}

// ConfigFromParams creates a Config, starting from DefaultConfig, with the values set in params.
// Parameters that are not search configuration are ignored.
func ConfigFromParams(params parameters.Params) (Config, error) {
	cfg := DefaultConfig()
	var err error
	if cfg.SearchTime, err = parameters.GetParamOr(params, "search_time", cfg.SearchTime); err != nil {
		return cfg, err
	}
	if cfg.DepthLimit, err = parameters.GetParamOr(params, "depth_limit", cfg.DepthLimit); err != nil {
		return cfg, err
	}
	if cfg.NumSimulations, err = parameters.GetParamOr(params, "num_simulations", cfg.NumSimulations); err != nil {
		return cfg, err
	}
	if cfg.PruningFactor, err = parameters.GetParamOr(params, "pruning_factor", cfg.PruningFactor); err != nil {
		return cfg, err
	}
	if cfg.PruneFrequency, err = parameters.GetParamOr(params, "prune_frequency", cfg.PruneFrequency); err != nil {
		return cfg, err
	}
	if cfg.ExpansionBudget, err = parameters.GetParamOr(params, "expansion_budget", cfg.ExpansionBudget); err != nil {
		return cfg, err
	}
	if cfg.IterationBudget, err = parameters.GetParamOr(params, "iteration_budget", cfg.IterationBudget); err != nil {
		return cfg, err
	}
	if cfg.Exploration, err = parameters.GetParamOr(params, "exploration", cfg.Exploration); err != nil {
		return cfg, err
	}
	seed, err := parameters.GetParamOr(params, "seed", 0)
	if err != nil {
		return cfg, err
	}
	cfg.Seed = uint64(seed)
	clockName, err := parameters.GetParamOr(params, "clock", "cpu")
	if err != nil {
		return cfg, err
	}
	if cfg.Clock, err = cpuclock.ByName(clockName); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate returns an error if some value is out of range.
func (cfg Config) Validate() error {
	switch {
	case cfg.SearchTime < 0:
		return errors.Errorf("negative search_time (%s) not possible", cfg.SearchTime)
	case cfg.DepthLimit < 0:
		return errors.Errorf("negative depth_limit (%d) not possible", cfg.DepthLimit)
	case cfg.NumSimulations < 1:
		return errors.Errorf("num_simulations must be at least 1, got %d", cfg.NumSimulations)
	case cfg.PruningFactor < 0:
		return errors.Errorf("negative pruning_factor (%g) not possible", cfg.PruningFactor)
	case cfg.PruneFrequency < 1:
		return errors.Errorf("prune_frequency must be at least 1, got %d", cfg.PruneFrequency)
	case cfg.Exploration < 0:
		return errors.Errorf("negative exploration (%g) not possible", cfg.Exploration)
	}
	return nil
}

// String implements fmt.Stringer.
func (cfg Config) String() string {
	return fmt.Sprintf("search_time=%s, depth_limit=%d, num_simulations=%d, pruning_factor=%g, prune_frequency=%d, "+
		"expansion_budget=%d, iteration_budget=%d, exploration=%.3f, seed=%d",
		cfg.SearchTime, cfg.DepthLimit, cfg.NumSimulations, cfg.PruningFactor, cfg.PruneFrequency,
		cfg.ExpansionBudget, cfg.IterationBudget, cfg.Exploration, cfg.Seed)
}
