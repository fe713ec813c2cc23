package searchers

import (
	"math"
	"slices"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/AntonJorg/general-tree-search/internal/tree"
	"k8s.io/klog/v2"
)

// Randomized adds randomness to the action chosen by a base Extractor, to get varied games when agents
// play each other.
//
// Each root child is scored, from the perspective of the player at the root, by its backed-up value
// if it has one, or by its average utility otherwise. Scores are divided by Randomness and an action
// is sampled from their softmax. The larger Randomness, the more exploration. Zero means no randomness.
//
// Randomness is only applied to the first MaxMoveRandomness moves of a game (if > 0), and never when
// the base extractor picks a move that wins the game immediately.
type Randomized[A comparable] struct {
	Base              Extractor[A]
	Randomness        float64
	MaxMoveRandomness int
}

// Extract implements Extractor.
func (rz Randomized[A]) Extract(r *Run[A]) (action A, err error) {
	action, err = rz.Base.Extract(r)
	if err != nil || rz.Randomness <= 0 {
		return
	}
	if rz.MaxMoveRandomness > 0 && r.State.Moves() >= rz.MaxMoveRandomness {
		return
	}
	root := r.Root()
	var candidates []*tree.Node[A]
	var scores []float64
	for _, child := range r.Tree.Children(root) {
		score, ok := rootPerspectiveScore(root, child)
		if !ok {
			continue
		}
		if child.Action == action && child.IsTerminal() {
			// Never randomize away a winning (or final) move.
			return
		}
		candidates = append(candidates, child)
		scores = append(scores, score/rz.Randomness)
	}
	if len(candidates) <= 1 {
		return
	}
	probabilities := softmax(scores)
	idx := games.SampleIndex(probabilities, r.Rand)
	if klog.V(2).Enabled() {
		klog.Infof("randomized extraction: base action=%v, sampled action=%v (probability %.3f)",
			action, candidates[idx].Action, probabilities[idx])
	}
	return candidates[idx].Action, nil
}

// rootPerspectiveScore returns the value of child for the player moving at root.
func rootPerspectiveScore[A comparable](root, child *tree.Node[A]) (float64, bool) {
	var value float64
	switch {
	case child.Evaluated:
		value = child.Eval
	case child.Count > 0:
		value = child.AverageUtility()
	default:
		return 0, false
	}
	if !root.IsMaxNode() {
		value = 1 - value
	}
	return value, true
}

func softmax(values []float64) (probs []float64) {
	probs = make([]float64, len(values))
	var sum float64

	// Subtract maxValue from all values keep the probability the same, but makes for more numerically stable
	// values.
	maxValue := slices.Max(values)
	for ii, value := range values {
		probs[ii] = math.Exp(value - maxValue)
		sum += probs[ii]
	}
	for ii := range probs {
		probs[ii] /= sum
	}
	return
}

var _ Extractor[int] = Randomized[int]{}
