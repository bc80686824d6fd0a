package engine

import "slices"

// ListActions returns every legal action of the active player, sorted by
// (card, from, to, card_swap) and free of duplicates. It never fails; an
// empty result means the player must skip (Apply(nil)).
func (g *GameState) ListActions() []Action {
	if g.Phase != PhaseRunning {
		return nil
	}
	p := g.ActiveIdx

	var actions []Action
	switch {
	case g.InExchange():
		for i := uint8(0); i < g.Players[p].HandLen; i++ {
			actions = append(actions, ExchangeAction(g.Players[p].Hand[i]))
		}
	case g.SevenActive():
		actions = g.sevenActions(g.ActiveCard, g.ActiveAs, g.SevenRemaining)
	default:
		for _, card := range g.distinctHand(p) {
			actions = append(actions, g.cardActions(card)...)
		}
	}
	return canonical(actions)
}

// canonical sorts and deduplicates actions.
func canonical(actions []Action) []Action {
	slices.SortFunc(actions, compareActions)
	return slices.Compact(actions)
}

// HasAction reports whether a is currently legal.
func (g *GameState) HasAction(a Action) bool {
	_, found := slices.BinarySearchFunc(g.ListActions(), a, compareActions)
	return found
}

// distinctHand returns the distinct cards of p's hand in insertion order.
func (g *GameState) distinctHand(p uint8) []Card {
	ps := &g.Players[p]
	out := make([]Card, 0, ps.HandLen)
	for i := uint8(0); i < ps.HandLen; i++ {
		if !slices.Contains(out, ps.Hand[i]) {
			out = append(out, ps.Hand[i])
		}
	}
	return out
}

// cardActions enumerates the plays of a single hand card.
func (g *GameState) cardActions(card Card) []Action {
	if card.IsJoker() {
		var out []Action
		for _, rank := range StandInRanks() {
			out = append(out, g.rankActions(card, rank, StandIn(rank))...)
		}
		return out
	}
	return g.rankActions(card, card.Rank(), EmptyCard)
}

// rankActions enumerates the plays of card acting with the semantics of rank.
// swap is recorded in every action (EmptyCard unless card is a Joker).
func (g *GameState) rankActions(card Card, rank uint8, swap Card) []Action {
	mv := MovementOf(rank)
	switch mv.Kind {
	case MoveSplit:
		return g.sevenActions(card, swap, SevenSteps)
	case MoveSwap:
		return g.jackActions(card, swap)
	case MoveSteps:
		var out []Action
		if mv.Start {
			out = append(out, g.startActions(card, swap)...)
		}
		out = append(out, g.stepActions(card, swap, mv)...)
		return out
	}
	return nil
}

// startActions emits the kennel-to-start move for each controlled player whose
// start cell is not blocked by one of their own safe marbles.
func (g *GameState) startActions(card Card, swap Card) []Action {
	b := g.board()
	var out []Action
	for _, p := range b.controlled(g.ActiveIdx) {
		r, ok := b.firstKennelMarble(p)
		if !ok {
			continue
		}
		start := StartCell(p)
		if b.safeAt(start) {
			continue
		}
		out = append(out, Action{Card: card, From: int8(b.get(r).Pos), To: int8(start), CardSwap: swap})
	}
	return out
}

// stepActions emits forward and backward moves of every controlled marble.
func (g *GameState) stepActions(card Card, swap Card, mv Movement) []Action {
	b := g.board()
	var out []Action
	for _, r := range b.movable(b.controlled(g.ActiveIdx)) {
		from := int8(b.get(r).Pos)
		for _, d := range mv.Forward {
			for _, to := range b.forwardTargets(r, d) {
				out = append(out, Action{Card: card, From: from, To: int8(to), CardSwap: swap})
			}
		}
		for _, d := range mv.Backward {
			if to, ok := b.backwardTarget(r, d); ok {
				out = append(out, Action{Card: card, From: from, To: int8(to), CardSwap: swap})
			}
		}
	}
	return out
}

// jackActions emits swaps between a controlled marble on the ring and any
// other unsafe marble on the ring. A controlled marble may be safe on its
// start cell; marbles in kennels or finish corridors are never endpoints.
// When no such pair exists, swaps between two controlled marbles are offered
// instead.
func (g *GameState) jackActions(card Card, swap Card) []Action {
	b := g.board()
	ctrl := b.controlled(g.ActiveIdx)

	var own, others []uint8
	for p := uint8(0); p < b.n; p++ {
		for i := uint8(0); i < MarblesPerPlayer; i++ {
			m := b.m[p][i]
			if !IsRing(m.Pos) {
				continue
			}
			if slices.Contains(ctrl, p) {
				own = append(own, m.Pos)
			} else if !m.Safe {
				others = append(others, m.Pos)
			}
		}
	}

	var out []Action
	add := func(x, y uint8) {
		out = append(out,
			Action{Card: card, From: int8(x), To: int8(y), CardSwap: swap},
			Action{Card: card, From: int8(y), To: int8(x), CardSwap: swap})
	}
	if len(own) > 0 && len(others) > 0 {
		for _, x := range own {
			for _, y := range others {
				add(x, y)
			}
		}
		return out
	}
	for i := range own {
		for j := i + 1; j < len(own); j++ {
			add(own[i], own[j])
		}
	}
	return out
}
