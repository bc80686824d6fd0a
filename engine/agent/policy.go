// Package agent implements automatic players for the Dog engine: policies
// that pick one of the legal actions, and playouts that drive a match with
// them.
package agent

import (
	"math/rand/v2"

	engine "github.com/jason-s-yu/dog/engine"
)

// Policy chooses an action for the active player of g from legal, which is
// g.ListActions(). A nil choice skips the turn and is only valid when legal
// is empty.
type Policy interface {
	Choose(g *engine.GameState, legal []engine.Action) *engine.Action
}

// RandomPolicy picks uniformly among the legal actions.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy returns a RandomPolicy whose choices are determined by seed.
func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

func (p *RandomPolicy) Choose(_ *engine.GameState, legal []engine.Action) *engine.Action {
	if len(legal) == 0 {
		return nil
	}
	a := legal[p.rng.IntN(len(legal))]
	return &a
}

// FirstPolicy always plays the first legal action in canonical order.
type FirstPolicy struct{}

func (FirstPolicy) Choose(_ *engine.GameState, legal []engine.Action) *engine.Action {
	if len(legal) == 0 {
		return nil
	}
	a := legal[0]
	return &a
}

// GreedyPolicy looks one action ahead and plays the one that maximises the
// mover's EvalProgress. Ties go to the earliest action in canonical order.
type GreedyPolicy struct{}

func (GreedyPolicy) Choose(g *engine.GameState, legal []engine.Action) *engine.Action {
	if len(legal) == 0 {
		return nil
	}
	mover := g.ActiveIdx
	snap := g.Save()
	best, bestVal := 0, float32(-2)
	for i := range legal {
		if err := g.Apply(&legal[i]); err != nil {
			g.Restore(snap)
			continue
		}
		if v := g.EvalProgress(mover); v > bestVal {
			best, bestVal = i, v
		}
		g.Restore(snap)
	}
	a := legal[best]
	return &a
}
