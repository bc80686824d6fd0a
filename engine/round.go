package engine

// beginRound resets the per-round state and deals the round's hands,
// starting with the round's starter.
func (g *GameState) beginRound() {
	g.TurnsInRound = 0
	g.ActiveIdx = g.StarterIdx
	g.CardExchanged = !g.Rules.exchangeEnabled()
	g.ExchangeCount = 0
	for i := range g.Exchange {
		g.Exchange[i] = EmptyCard
	}
	g.dealHands(g.Rules.dealSize(g.Round))
}

// dealHands deals size cards to every player one at a time. When the draw
// pile runs out the discard pile is reshuffled into it; if both are empty
// the deal stops short.
func (g *GameState) dealHands(size uint8) {
	n := g.Rules.numPlayers()
	for c := uint8(0); c < size; c++ {
		for i := uint8(0); i < n; i++ {
			p := (g.StarterIdx + i) % n
			card, ok := g.drawCard()
			if !ok {
				return
			}
			if !g.addToHand(p, card) {
				g.discard(card)
			}
		}
	}
}

// drawCard pops the top of the draw pile, reshuffling the discard pile into
// it first when it is empty.
func (g *GameState) drawCard() (Card, bool) {
	if g.DrawLen == 0 {
		g.reshuffleDiscard()
	}
	if g.DrawLen == 0 {
		return EmptyCard, false
	}
	g.DrawLen--
	card := g.DrawPile[g.DrawLen]
	g.DrawPile[g.DrawLen] = EmptyCard
	return card, true
}

// reshuffleDiscard moves the whole discard pile into the draw pile and shuffles it.
func (g *GameState) reshuffleDiscard() {
	if g.DiscardLen == 0 {
		return
	}
	for i := uint8(0); i < g.DiscardLen; i++ {
		g.DrawPile[g.DrawLen] = g.DiscardPile[i]
		g.DrawLen++
		g.DiscardPile[i] = EmptyCard
	}
	g.DiscardLen = 0
	g.shuffle(g.DrawPile[:g.DrawLen])
}

// endTurn rotates to the next player, or to the next round once every
// player has had their turn (or, with FullHandRounds, every hand is empty).
func (g *GameState) endTurn() {
	if g.IsTerminal() {
		return
	}
	g.TurnsInRound++
	if g.roundOver() {
		g.nextRound()
		return
	}
	g.ActiveIdx = g.NextPlayer(g.ActiveIdx)
}

func (g *GameState) roundOver() bool {
	n := g.Rules.numPlayers()
	if !g.Rules.FullHandRounds {
		return g.TurnsInRound >= n
	}
	for p := uint8(0); p < n; p++ {
		if g.Players[p].HandLen > 0 {
			return false
		}
	}
	return true
}

// nextRound discards what is left in the hands, moves the dealer one seat
// anti-clockwise and deals the next round.
func (g *GameState) nextRound() {
	n := g.Rules.numPlayers()
	for p := uint8(0); p < n; p++ {
		g.discardHand(p)
	}
	g.Round++
	g.StarterIdx = (g.StarterIdx + n - 1) % n
	g.beginRound()
}

// checkGameEnd finishes the match once both members of a team have all
// their marbles in their finish corridors.
func (g *GameState) checkGameEnd() {
	if g.IsTerminal() {
		return
	}
	n := g.Rules.numPlayers()
	for p := uint8(0); p < n; p++ {
		q := g.Partner(p)
		if g.allInFinish(p) && g.allInFinish(q) {
			g.Phase = PhaseFinished
			g.WinnerTeam = int8(min(p, q))
			return
		}
	}
}

// Winners returns the seats of the winning team, or nil while the match runs.
func (g *GameState) Winners() []uint8 {
	if g.WinnerTeam < 0 {
		return nil
	}
	p := uint8(g.WinnerTeam)
	if q := g.Partner(p); q != p {
		return []uint8{p, q}
	}
	return []uint8{p}
}
