package engine

import "fmt"

// Apply executes a for the active player. a must be one of ListActions();
// a nil action skips the turn and is accepted only when no action is legal,
// in which case the player's hand is discarded.
//
// On ErrInvalidAction the state is unchanged. If the resulting state fails
// the invariant check, the action is rolled back and ErrInternalInvariant is
// returned.
func (g *GameState) Apply(a *Action) error {
	if g.IsTerminal() {
		return ErrGameOver
	}
	if g.Phase != PhaseRunning {
		return fmt.Errorf("%w: match has not been dealt", ErrInvalidAction)
	}

	legal := g.ListActions()
	if a == nil {
		if len(legal) > 0 {
			return fmt.Errorf("%w: cannot skip while %d actions are legal", ErrInvalidAction, len(legal))
		}
	} else if !containsAction(legal, *a) {
		return fmt.Errorf("%w: %s is not legal for player %d", ErrInvalidAction, a, g.ActiveIdx)
	}

	before := g.Save()
	if a == nil {
		g.skip()
	} else {
		g.apply(*a)
	}

	if g.Rules.CheckInvariants {
		if err := g.CheckInvariants(); err != nil {
			g.Restore(before)
			return fmt.Errorf("%w: %v", ErrInternalInvariant, err)
		}
	}
	return nil
}

func containsAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// apply dispatches a legal action on the rank it is played as.
func (g *GameState) apply(a Action) {
	if g.InExchange() {
		g.exchange(a.Card)
		return
	}
	eff := a.Effective()
	if g.SevenActive() || eff.Rank() == RankSeven {
		g.sevenStepApply(a)
		return
	}

	b := g.board()
	from, to := uint8(a.From), uint8(a.To)
	r, _ := b.at(from)
	switch MovementOf(eff.Rank()).Kind {
	case MoveSwap:
		other, _ := b.at(to)
		b.swap(r, other)
	default:
		if IsKennel(from) {
			b.enter(r)
		} else {
			b.moveTo(r, to)
		}
	}
	g.setBoard(b)

	g.removeFromHand(g.ActiveIdx, a.Card)
	g.discard(a.Card)
	g.checkGameEnd()
	g.endTurn()
}

// exchange hands card to the active player's partner. The cards are held
// back until every player has given one, then delivered together.
func (g *GameState) exchange(card Card) {
	p := g.ActiveIdx
	if card != EmptyCard && g.removeFromHand(p, card) {
		g.Exchange[g.Partner(p)] = card
	}
	g.ExchangeCount++
	if g.ExchangeCount < g.Rules.numPlayers() {
		g.ActiveIdx = g.NextPlayer(p)
		return
	}
	for q := range g.Exchange {
		if g.Exchange[q] != EmptyCard {
			if !g.addToHand(uint8(q), g.Exchange[q]) {
				g.discard(g.Exchange[q])
			}
			g.Exchange[q] = EmptyCard
		}
	}
	g.CardExchanged = true
	g.ActiveIdx = g.StarterIdx
}

// sevenStepApply performs one step of a Seven split. The first step takes the
// card out of the hand into ActiveCard; the turn ends once the budget is spent
// or no further step is possible.
func (g *GameState) sevenStepApply(a Action) {
	if !g.SevenActive() {
		g.removeFromHand(g.ActiveIdx, a.Card)
		g.ActiveCard = a.Card
		g.ActiveAs = a.CardSwap
		g.SevenRemaining = SevenSteps
	}

	b := g.board()
	r, _ := b.at(uint8(a.From))
	dist, _ := b.stepDistance(r, uint8(a.To), g.SevenRemaining)
	b.moveTo(r, uint8(a.To))
	g.setBoard(b)
	g.SevenRemaining -= dist

	g.checkGameEnd()
	if g.IsTerminal() || g.SevenRemaining == 0 || len(g.sevenActions(g.ActiveCard, g.ActiveAs, g.SevenRemaining)) == 0 {
		g.finishSeven()
	}
}

// finishSeven discards the Seven being resolved and ends the turn.
func (g *GameState) finishSeven() {
	g.discard(g.ActiveCard)
	g.ActiveCard = EmptyCard
	g.ActiveAs = EmptyCard
	g.SevenRemaining = 0
	g.endTurn()
}

// skip handles a turn without a legal action.
func (g *GameState) skip() {
	switch {
	case g.InExchange():
		g.exchange(EmptyCard)
	case g.SevenActive():
		g.finishSeven()
	default:
		g.discardHand(g.ActiveIdx)
		g.endTurn()
	}
}
