package engine

import (
	"strings"
	"testing"
)

func TestInvariantsDetectViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(g *GameState)
		want   string
	}{
		{"foreign kennel", func(g *GameState) { g.Players[0].Marbles[0].Pos = 72 }, "foreign area"},
		{"off board", func(g *GameState) { g.Players[1].Marbles[2].Pos = 200 }, "off the board"},
		{"safe off start", func(g *GameState) { g.Players[0].Marbles[0] = Marble{Pos: 5, Safe: true} }, "safe off its start"},
		{"shared cell", func(g *GameState) {
			g.Players[0].Marbles[0].Pos = 20
			g.Players[1].Marbles[0].Pos = 20
		}, "held by players"},
		{"lost card", func(g *GameState) { g.DrawLen-- }, "missing"},
		{"duplicated card", func(g *GameState) { g.discard(g.DrawPile[0]) }, "surplus"},
		{"stray budget", func(g *GameState) { g.SevenRemaining = 3 }, "without an active card"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newRunningGame(t)
			mustHold(t, g)
			tc.mutate(g)
			err := g.CheckInvariants()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("CheckInvariants = %v, want an error mentioning %q", err, tc.want)
			}
		})
	}
}

func TestInvariantsSevenBudget(t *testing.T) {
	g := newRunningGame(t)
	seven := card(t, "♠7")
	giveCard(t, g, 0, seven)
	g.removeFromHand(0, seven)
	g.ActiveCard = seven
	g.SevenRemaining = 3
	mustHold(t, g)

	g.SevenRemaining = 7
	if err := g.CheckInvariants(); err == nil {
		t.Error("full budget with an active seven accepted")
	}

	g.SevenRemaining = 3
	g.ActiveCard = card(t, "♠8")
	if err := g.CheckInvariants(); err == nil {
		t.Error("non-seven active card accepted")
	}
}
