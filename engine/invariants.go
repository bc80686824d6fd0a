package engine

import (
	"errors"
	"fmt"
)

// CheckInvariants verifies the structural invariants of the state:
// marble ownership and placement, the safe flag, card conservation and the
// consistency of a Seven in progress. It returns all violations joined.
func (g *GameState) CheckInvariants() error {
	var errs []error
	n := g.Rules.numPlayers()

	occupant := make(map[uint8]uint8, n*MarblesPerPlayer)
	for p := uint8(0); p < n; p++ {
		kennel, fin, start := KennelRange(p), FinishRange(p), StartCell(p)
		for i, m := range g.Players[p].Marbles {
			if m.Pos >= BoardSize {
				errs = append(errs, fmt.Errorf("player %d marble %d off the board at %d", p, i, m.Pos))
				continue
			}
			if !IsRing(m.Pos) && !kennel.Contains(m.Pos) && !fin.Contains(m.Pos) {
				errs = append(errs, fmt.Errorf("player %d marble %d in a foreign area at %d", p, i, m.Pos))
			}
			if m.Safe && m.Pos != start {
				errs = append(errs, fmt.Errorf("player %d marble %d safe off its start cell at %d", p, i, m.Pos))
			}
			if other, dup := occupant[m.Pos]; dup {
				errs = append(errs, fmt.Errorf("cell %d held by players %d and %d", m.Pos, other, p))
			}
			occupant[m.Pos] = p
		}
	}

	if err := g.checkCards(); err != nil {
		errs = append(errs, err)
	}

	if g.SevenActive() {
		if g.SevenRemaining == 0 || g.SevenRemaining >= SevenSteps {
			errs = append(errs, fmt.Errorf("seven in progress with %d steps left", g.SevenRemaining))
		}
		eff := g.ActiveCard
		if eff.IsJoker() {
			eff = g.ActiveAs
		}
		if eff.Rank() != RankSeven {
			errs = append(errs, fmt.Errorf("active card %s is not resolving a seven", g.ActiveCard))
		}
	} else if g.SevenRemaining != 0 || g.ActiveAs != EmptyCard {
		errs = append(errs, fmt.Errorf("seven budget %d without an active card", g.SevenRemaining))
	}

	return errors.Join(errs...)
}

// checkCards verifies that hands, piles, the exchange buffer and the active
// card together hold exactly the canonical deck.
func (g *GameState) checkCards() error {
	counts := make(map[Card]int, 64)
	for _, c := range CanonicalDeck() {
		counts[c]++
	}
	take := func(where string, c Card) error {
		if counts[c] == 0 {
			return fmt.Errorf("surplus card %s in %s", c, where)
		}
		counts[c]--
		return nil
	}

	var errs []error
	for p := uint8(0); p < MaxPlayers; p++ {
		ps := &g.Players[p]
		if ps.HandLen > MaxHandSize {
			errs = append(errs, fmt.Errorf("player %d holds %d cards", p, ps.HandLen))
			continue
		}
		for i := uint8(0); i < ps.HandLen; i++ {
			if err := take(fmt.Sprintf("hand of player %d", p), ps.Hand[i]); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if int(g.DrawLen)+int(g.DiscardLen) > DeckSize {
		return errors.Join(append(errs, fmt.Errorf("piles hold %d cards", int(g.DrawLen)+int(g.DiscardLen)))...)
	}
	for i := uint8(0); i < g.DrawLen; i++ {
		if err := take("draw pile", g.DrawPile[i]); err != nil {
			errs = append(errs, err)
		}
	}
	for i := uint8(0); i < g.DiscardLen; i++ {
		if err := take("discard pile", g.DiscardPile[i]); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range g.Exchange {
		if c != EmptyCard {
			if err := take("exchange buffer", c); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if g.ActiveCard != EmptyCard {
		if err := take("active card", g.ActiveCard); err != nil {
			errs = append(errs, err)
		}
	}
	for c, left := range counts {
		if left > 0 {
			errs = append(errs, fmt.Errorf("missing %d copies of %s", left, c))
		}
	}
	return errors.Join(errs...)
}
