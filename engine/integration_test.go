//go:build integration

package engine

// integration_test.go: full-match tests through the public API only
// (NewMatch, ListActions, Apply, IsTerminal, Save/Restore, StateHash).
//
// Run: go test -tags integration -run TestIntegration -v ./engine

import (
	"math/rand"
	"testing"
)

// pickRand returns a uniformly chosen legal action, or nil to skip.
func pickRand(legal []Action, rng *rand.Rand) *Action {
	if len(legal) == 0 {
		return nil
	}
	a := legal[rng.Intn(len(legal))]
	return &a
}

// ---------------------------------------------------------------------------
// TestIntegrationRandomMatches: random play never breaks the rules engine.
// ---------------------------------------------------------------------------

func TestIntegrationRandomMatches(t *testing.T) {
	const numGames = 30
	const maxSteps = 20_000

	finished := 0
	for gameIdx := 0; gameIdx < numGames; gameIdx++ {
		gs := NewMatch(uint8(2+gameIdx%3), uint64(gameIdx))
		rng := rand.New(rand.NewSource(int64(gameIdx) + 999))

		for steps := 0; steps < maxSteps && !gs.IsTerminal(); steps++ {
			a := pickRand(gs.ListActions(), rng)
			if err := gs.Apply(a); err != nil {
				t.Fatalf("game %d step %d: Apply(%v): %v\n%s", gameIdx, steps, a, err, gs.String())
			}
		}
		if !gs.IsTerminal() {
			continue
		}
		finished++
		u := gs.Utilities()
		winners := 0
		for p := uint8(0); p < gs.NumActivePlayers(); p++ {
			if u[p] > 0 {
				winners++
			}
		}
		if winners != len(gs.Winners()) {
			t.Errorf("game %d: %d winners by utility, %v by seat list", gameIdx, winners, gs.Winners())
		}
	}
	t.Logf("%d of %d random matches finished", finished, numGames)
}

// ---------------------------------------------------------------------------
// TestIntegrationDeterministicReplay: same seed and choices → same states.
// ---------------------------------------------------------------------------

func TestIntegrationDeterministicReplay(t *testing.T) {
	const numGames = 10
	const maxSteps = 2_000

	for gameIdx := 0; gameIdx < numGames; gameIdx++ {
		var actions []*Action
		var hashes []uint64
		{
			gs := NewMatch(4, uint64(gameIdx))
			rng := rand.New(rand.NewSource(int64(gameIdx)))
			for steps := 0; steps < maxSteps && !gs.IsTerminal(); steps++ {
				a := pickRand(gs.ListActions(), rng)
				if err := gs.Apply(a); err != nil {
					t.Fatalf("game %d step %d: %v", gameIdx, steps, err)
				}
				actions = append(actions, a)
				hashes = append(hashes, gs.StateHash())
			}
		}

		gs := NewMatch(4, uint64(gameIdx))
		for i, a := range actions {
			if err := gs.Apply(a); err != nil {
				t.Fatalf("game %d replay step %d: %v", gameIdx, i, err)
			}
			if gs.StateHash() != hashes[i] {
				t.Fatalf("game %d replay diverged at step %d", gameIdx, i)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// TestIntegrationUndo: Save/Restore around every action restores the state.
// ---------------------------------------------------------------------------

func TestIntegrationUndo(t *testing.T) {
	gs := NewMatch(4, 4242)
	rng := rand.New(rand.NewSource(4242))
	for steps := 0; steps < 1_000 && !gs.IsTerminal(); steps++ {
		legal := gs.ListActions()
		snap := gs.Save()
		for i := range legal {
			if err := gs.Apply(&legal[i]); err != nil {
				t.Fatalf("step %d: listed action %v: %v", steps, legal[i], err)
			}
			gs.Restore(snap)
		}
		if gs != GameState(snap) {
			t.Fatalf("step %d: restore left a different state", steps)
		}
		if err := gs.Apply(pickRand(legal, rng)); err != nil {
			t.Fatalf("step %d: %v", steps, err)
		}
	}
}
