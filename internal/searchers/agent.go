package searchers

import (
	"fmt"
	"strings"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// strategies holds one implementation per slot. Unbound slots are nil.
type strategies[A comparable] struct {
	selector       Selector[A]
	expander       Expander[A]
	evaluator      Evaluator[A]
	backpropagator Backpropagator[A]
	terminator     Terminator[A]
	trimmer        Trimmer[A]
	extractor      Extractor[A]
}

// all returns the bound strategies, in slot order, along with the slot names.
func (s *strategies[A]) all() (names []string, values []any) {
	names = []string{"select", "expand", "evaluate", "backpropagate", "terminate", "trim", "extract"}
	values = []any{s.selector, s.expander, s.evaluator, s.backpropagator, s.terminator, s.trimmer, s.extractor}
	return
}

// Builder assembles an Agent. Create it with NewBuilder or Agent.ToBuilder, set the strategies with
// the With... methods, and finish with Build.
type Builder[A comparable] struct {
	strategies[A]
}

// NewBuilder returns an empty Builder.
func NewBuilder[A comparable]() *Builder[A] {
	return &Builder[A]{}
}

// WithSelect sets the Selector.
func (b *Builder[A]) WithSelect(s Selector[A]) *Builder[A] {
	b.selector = s
	return b
}

// WithExpand sets the Expander.
func (b *Builder[A]) WithExpand(e Expander[A]) *Builder[A] {
	b.expander = e
	return b
}

// WithEvaluate sets the Evaluator.
func (b *Builder[A]) WithEvaluate(e Evaluator[A]) *Builder[A] {
	b.evaluator = e
	return b
}

// WithBackpropagate sets the Backpropagator.
func (b *Builder[A]) WithBackpropagate(bp Backpropagator[A]) *Builder[A] {
	b.backpropagator = bp
	return b
}

// WithTerminate sets the Terminator.
func (b *Builder[A]) WithTerminate(t Terminator[A]) *Builder[A] {
	b.terminator = t
	return b
}

// WithTrim sets the Trimmer.
func (b *Builder[A]) WithTrim(t Trimmer[A]) *Builder[A] {
	b.trimmer = t
	return b
}

// NoTrim sets a Trimmer that never trims.
func (b *Builder[A]) NoTrim() *Builder[A] {
	return b.WithTrim(NoTrim[A]{})
}

// WithExtract sets the Extractor.
func (b *Builder[A]) WithExtract(e Extractor[A]) *Builder[A] {
	b.extractor = e
	return b
}

// WithRandomness wraps the current Extractor with Randomized, see its documentation for the meaning of the
// parameters. It is a no-op if randomness <= 0 or if no Extractor is set yet.
func (b *Builder[A]) WithRandomness(randomness float64, maxMoveRandomness int) *Builder[A] {
	if randomness <= 0 || b.extractor == nil {
		return b
	}
	return b.WithExtract(Randomized[A]{Base: b.extractor, Randomness: randomness, MaxMoveRandomness: maxMoveRandomness})
}

// Merge returns a new Builder with the strategies of b, overridden by those set in other.
// Neither b nor other are modified.
func (b *Builder[A]) Merge(other *Builder[A]) *Builder[A] {
	merged := &Builder[A]{strategies: b.strategies}
	if other.selector != nil {
		merged.selector = other.selector
	}
	if other.expander != nil {
		merged.expander = other.expander
	}
	if other.evaluator != nil {
		merged.evaluator = other.evaluator
	}
	if other.backpropagator != nil {
		merged.backpropagator = other.backpropagator
	}
	if other.terminator != nil {
		merged.terminator = other.terminator
	}
	if other.trimmer != nil {
		merged.trimmer = other.trimmer
	}
	if other.extractor != nil {
		merged.extractor = other.extractor
	}
	return merged
}

// Build returns the Agent with the given name. It fails with ErrIncompleteAgent if any strategy is unbound.
func (b *Builder[A]) Build(name string) (*Agent[A], error) {
	names, values := b.all()
	var missing []string
	for ii, v := range values {
		if v == nil {
			missing = append(missing, names[ii])
		}
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrIncompleteAgent, "agent %q has no strategy bound for %s", name, strings.Join(missing, ", "))
	}
	return &Agent[A]{name: name, strategies: b.strategies}, nil
}

// MustBuild is like Build, but panics on error. Used for statically defined agents.
func (b *Builder[A]) MustBuild(name string) *Agent[A] {
	return must.M1(b.Build(name))
}

// Agent is a complete binding of search strategies.
type Agent[A comparable] struct {
	name string
	strategies[A]
}

// Name of the agent.
func (a *Agent[A]) Name() string { return a.name }

// String implements fmt.Stringer.
func (a *Agent[A]) String() string { return fmt.Sprintf("Agent[%s]", a.name) }

// ToBuilder returns a Builder with the agent's strategies, to derive variants from it.
func (a *Agent[A]) ToBuilder() *Builder[A] {
	return &Builder[A]{strategies: a.strategies}
}

// Describe lists the strategy bound to each slot.
func (a *Agent[A]) Describe() string {
	var sb strings.Builder
	sb.WriteString(a.String())
	names, values := a.all()
	for ii, v := range values {
		_, _ = fmt.Fprintf(&sb, "\n\t- %s: %T", names[ii], v)
	}
	return sb.String()
}

// Run executes the search loop from state and returns the finished Run, from which the tree and statistics can
// be inspected. Most callers want Search instead.
func (a *Agent[A]) Run(state games.State[A], cfg Config) (*Run[A], error) {
	if state.IsTerminal() {
		return nil, errors.Wrapf(ErrInvalidState, "agent %s", a.name)
	}
	mode := NoFrontier
	if user, ok := a.selector.(FrontierUser); ok {
		mode = user.FrontierMode()
	}
	r := newRun(state, cfg, mode)
	_, values := a.all()
	for _, v := range values {
		if initializer, ok := v.(RunInitializer[A]); ok {
			initializer.InitRun(r)
		}
	}

	for !a.terminator.ShouldTerminate(r) {
		id, ok := a.selector.Select(r)
		if !ok {
			r.Stats.Exhausted = true
			break
		}
		leaf := a.expander.Expand(r, id)
		evaluation, evaluated := a.evaluator.Evaluate(r, leaf)
		if evaluated {
			r.Stats.Evaluations++
		}
		a.backpropagator.Backpropagate(r, leaf, evaluation, evaluated)
		r.Stats.Iterations++
		if a.trimmer.ShouldTrim(r) {
			a.trimmer.Trim(r)
		}
	}
	r.Stats.TimeSpent = r.Elapsed()

	if klog.V(3).Enabled() {
		klog.Infof("%s: final tree:\n%s", a, r.Tree.Dump(2))
	}
	return r, nil
}

// Search returns the action chosen from state, along with the search statistics.
func (a *Agent[A]) Search(state games.State[A], cfg Config) (action A, stats *Stats, err error) {
	r, err := a.Run(state, cfg)
	if err != nil {
		return
	}
	stats = r.Stats
	action, err = a.extractor.Extract(r)
	if err != nil {
		err = errors.WithMessagef(err, "agent %s failed to extract a move", a.name)
		return
	}
	if klog.V(1).Enabled() {
		klog.Infof("%s: action=%v, %s", a, action, stats)
	}
	return
}
