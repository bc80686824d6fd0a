package agent

import (
	"fmt"

	engine "github.com/jason-s-yu/dog/engine"
)

// Result summarises a playout.
type Result struct {
	Steps    int                        // actions applied, skips included
	Finished bool                       // a team brought all marbles home
	Winners  []uint8                    // seats of the winning team, nil if unfinished
	Eval     [engine.MaxPlayers]float32 // EvalProgress per seat at the end
}

// Step lets policy act once for the active player of g.
func Step(g *engine.GameState, policy Policy) (*engine.Action, error) {
	legal := g.ListActions()
	a := policy.Choose(g, legal)
	if err := g.Apply(a); err != nil {
		return a, fmt.Errorf("player %d: %w", g.ActiveIdx, err)
	}
	return a, nil
}

// Playout plays g until it is finished or maxSteps actions have been applied.
// policies[p] acts for seat p; a nil entry falls back to FirstPolicy.
func Playout(g *engine.GameState, policies [engine.MaxPlayers]Policy, maxSteps int) (Result, error) {
	var res Result
	for !g.IsTerminal() && res.Steps < maxSteps {
		policy := policies[g.ActiveIdx]
		if policy == nil {
			policy = FirstPolicy{}
		}
		if _, err := Step(g, policy); err != nil {
			return res, fmt.Errorf("step %d: %w", res.Steps, err)
		}
		res.Steps++
	}
	res.Finished = g.IsTerminal()
	res.Winners = g.Winners()
	for p := uint8(0); p < g.NumActivePlayers(); p++ {
		res.Eval[p] = g.EvalProgress(p)
	}
	return res, nil
}

// RandomPolicies returns one RandomPolicy per seat, seeded from seed.
func RandomPolicies(seed uint64) [engine.MaxPlayers]Policy {
	var out [engine.MaxPlayers]Policy
	for p := range out {
		out[p] = NewRandomPolicy(seed + uint64(p)*7919)
	}
	return out
}
