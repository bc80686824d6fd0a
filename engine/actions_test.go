package engine

import (
	"errors"
	"testing"
)

func TestCollisionSendsOpponentHome(t *testing.T) {
	g := newRunningGame(t)
	three := card(t, "♥3")
	giveCard(t, g, 0, three)
	place(t, g, 0, 0, 10, false)
	place(t, g, 1, 0, 13, false)

	mustApply(t, g, &Action{Card: three, From: 10, To: 13, CardSwap: EmptyCard})
	if g.Players[0].Marbles[0].Pos != 13 {
		t.Fatalf("mover at %d, want 13", g.Players[0].Marbles[0].Pos)
	}
	if m := g.Players[1].Marbles[0]; m.Pos != 72 || m.Safe {
		t.Fatalf("hit marble = %+v, want kennel cell 72", m)
	}
}

func TestCollisionWithOwnMarble(t *testing.T) {
	g := newRunningGame(t)
	two := card(t, "♠2")
	giveCard(t, g, 0, two)
	place(t, g, 0, 0, 10, false)
	place(t, g, 0, 1, 12, false)

	mustApply(t, g, &Action{Card: two, From: 10, To: 12, CardSwap: EmptyCard})
	if g.Players[0].Marbles[0].Pos != 12 || g.Players[0].Marbles[1].Pos != 64 {
		t.Fatalf("marbles at %d and %d, want 12 and 64", g.Players[0].Marbles[0].Pos, g.Players[0].Marbles[1].Pos)
	}
}

func TestIllegalActionLeavesStateUnchanged(t *testing.T) {
	g := newRunningGame(t)
	three := card(t, "♥3")
	giveCard(t, g, 0, three)
	place(t, g, 0, 0, 10, false)
	before := *g

	bad := []Action{
		NewAction(three, 10, 14),
		NewAction(card(t, "♠3"), 10, 13),
		NewAction(three, 11, 14),
		{Card: three, From: 10, To: 13, CardSwap: StandIn(RankThree)},
	}
	for _, a := range bad {
		if err := g.Apply(&a); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("Apply(%v): err = %v, want ErrInvalidAction", a, err)
		}
		if *g != before {
			t.Fatalf("Apply(%v) modified the state", a)
		}
	}
	if err := g.Apply(nil); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("skip with legal actions: err = %v", err)
	}
}

func TestSafeFlagClearsWhenLeavingStart(t *testing.T) {
	g := newRunningGame(t)
	five := card(t, "♦5")
	giveCard(t, g, 0, five)
	place(t, g, 0, 0, 0, true)

	mustApply(t, g, &Action{Card: five, From: 0, To: 5, CardSwap: EmptyCard})
	if m := g.Players[0].Marbles[0]; m.Pos != 5 || m.Safe {
		t.Fatalf("marble = %+v, want {5 false}", m)
	}
}

func TestEnterFinishFromRing(t *testing.T) {
	g := newRunningGame(t)
	five := card(t, "♣5")
	giveCard(t, g, 0, five)
	place(t, g, 0, 0, 61, false)

	enter := NewAction(five, 61, 69)
	if !g.HasAction(enter) || !g.HasAction(NewAction(five, 61, 2)) {
		t.Fatalf("expected both the corridor and the ring, got %v", g.ListActions())
	}
	mustApply(t, g, &enter)
	if g.Players[0].Marbles[0].Pos != 69 {
		t.Fatalf("marble at %d, want 69", g.Players[0].Marbles[0].Pos)
	}
}

func TestExchangeDeliversToPartners(t *testing.T) {
	g := NewMatch(4, 77)
	before := [MaxPlayers][]Card{}
	for p := uint8(0); p < MaxPlayers; p++ {
		before[p] = g.HandOf(p)
	}
	starter := g.StarterIdx

	var given [MaxPlayers]Card
	for i := 0; i < MaxPlayers; i++ {
		p := g.ActiveIdx
		if p != (starter+uint8(i))%MaxPlayers {
			t.Fatalf("exchange turn %d went to player %d", i, p)
		}
		a := g.ListActions()[0]
		given[p] = a.Card
		mustApply(t, &g, &a)
	}

	if g.InExchange() || !g.CardExchanged {
		t.Fatal("exchange still open after every player gave a card")
	}
	if g.ActiveIdx != starter {
		t.Fatalf("active = %d, want starter %d", g.ActiveIdx, starter)
	}
	for p := uint8(0); p < MaxPlayers; p++ {
		want := countCards(before[p])
		want[given[p]]--
		want[given[g.Partner(p)]]++
		got := countCards(g.HandOf(p))
		for c, n := range want {
			if got[c] != n {
				t.Fatalf("player %d holds %d of %v, want %d", p, got[c], c, n)
			}
		}
		if g.Players[p].HandLen != 6 {
			t.Fatalf("player %d holds %d cards", p, g.Players[p].HandLen)
		}
	}
	mustHold(t, &g)
}

func countCards(cards []Card) map[Card]int {
	m := make(map[Card]int)
	for _, c := range cards {
		m[c]++
	}
	return m
}

func TestExchangeWithEmptyHand(t *testing.T) {
	g := newRunningGame(t)
	g.CardExchanged = false
	giveCard(t, g, 1, card(t, "♠9"))

	mustApply(t, g, nil)
	if g.ActiveIdx != 1 || g.ExchangeCount != 1 {
		t.Fatalf("active %d count %d after an empty exchange", g.ActiveIdx, g.ExchangeCount)
	}
	mustApply(t, g, &Action{Card: card(t, "♠9"), From: NoPos, To: NoPos, CardSwap: EmptyCard})
	mustApply(t, g, nil)
	mustApply(t, g, nil)
	if !g.CardExchanged {
		t.Fatal("exchange not closed")
	}
	if hand := g.HandOf(3); len(hand) != 1 || hand[0] != card(t, "♠9") {
		t.Fatalf("partner hand = %v", hand)
	}
}

func TestTeamWinEndsMatch(t *testing.T) {
	g := newRunningGame(t)
	two := card(t, "♠2")
	giveCard(t, g, 0, two)
	giveCard(t, g, 1, card(t, "♥2"))
	for i := uint8(0); i < MarblesPerPlayer; i++ {
		place(t, g, 2, i, 84+i, false)
	}
	for i := uint8(0); i < 3; i++ {
		place(t, g, 0, i, 69+i, false)
	}
	place(t, g, 0, 3, 63, false)

	finish := NewAction(two, 63, 68)
	mustApply(t, g, &finish)
	if !g.IsTerminal() || g.WinnerTeam != 0 {
		t.Fatalf("phase %s winner %d, want finished team 0", g.Phase, g.WinnerTeam)
	}
	if w := g.Winners(); len(w) != 2 || w[0] != 0 || w[1] != 2 {
		t.Fatalf("Winners = %v", w)
	}
	if acts := g.ListActions(); len(acts) != 0 {
		t.Fatalf("terminal state lists %v", acts)
	}
	if err := g.Apply(nil); !errors.Is(err, ErrGameOver) {
		t.Fatalf("err = %v, want ErrGameOver", err)
	}
}

func TestInvariantFailureRollsBack(t *testing.T) {
	g := newRunningGame(t)
	two := card(t, "♠2")
	giveCard(t, g, 0, two)
	place(t, g, 0, 0, 10, false)
	// A stray extra card breaks conservation; the next apply must refuse.
	g.Players[3].Hand[0] = two
	g.Players[3].HandLen = 1
	before := *g

	err := g.Apply(&Action{Card: two, From: 10, To: 12, CardSwap: EmptyCard})
	if !errors.Is(err, ErrInternalInvariant) {
		t.Fatalf("err = %v, want ErrInternalInvariant", err)
	}
	if *g != before {
		t.Fatal("failed apply was not rolled back")
	}
}
