package engine

// A Seven is played as a sequence of single-marble steps. Each step is its own
// Action; between steps ActiveCard holds the Seven and SevenRemaining the
// unspent budget. Only steps that keep the longest achievable spending within
// reach are offered: if all seven steps can be spent, every offered step
// leaves a way to spend the rest; if not, the player may still spend as many
// as the board allows.

// spendKey identifies a search node of the Seven budget search.
type spendKey struct {
	m      [MaxPlayers][MarblesPerPlayer]Marble
	budget uint8
}

// sevenStep is one candidate single-marble move of a split.
type sevenStep struct {
	ref  marbleRef
	from uint8
	to   uint8
	dist uint8
}

// sevenSteps lists every single-marble forward move of at most budget steps
// available to player p on b.
func (b *marbleBoard) sevenSteps(p uint8, budget uint8) []sevenStep {
	var out []sevenStep
	for _, r := range b.movable(b.controlled(p)) {
		from := b.get(r).Pos
		for d := uint8(1); d <= budget; d++ {
			for _, to := range b.forwardTargets(r, d) {
				out = append(out, sevenStep{ref: r, from: from, to: to, dist: d})
			}
		}
	}
	return out
}

// maxSpend returns the largest number of steps (≤ budget) player p can spend
// from b, where every step sends whatever it lands on home.
func (b *marbleBoard) maxSpend(p uint8, budget uint8, memo map[spendKey]uint8) uint8 {
	if budget == 0 {
		return 0
	}
	key := spendKey{m: b.m, budget: budget}
	if v, ok := memo[key]; ok {
		return v
	}
	var best uint8
	for _, s := range b.sevenSteps(p, budget) {
		next := *b
		next.moveTo(s.ref, s.to)
		if v := s.dist + next.maxSpend(p, budget-s.dist, memo); v > best {
			best = v
			if best == budget {
				break
			}
		}
	}
	memo[key] = best
	return best
}

// sevenActions returns the split steps the active player may take with card
// (played as a Seven) and budget steps left.
func (g *GameState) sevenActions(card Card, swap Card, budget uint8) []Action {
	b := g.board()
	p := g.ActiveIdx
	memo := make(map[spendKey]uint8)
	best := b.maxSpend(p, budget, memo)
	if best == 0 {
		return nil
	}
	var out []Action
	for _, s := range b.sevenSteps(p, budget) {
		next := b
		next.moveTo(s.ref, s.to)
		if s.dist+next.maxSpend(p, budget-s.dist, memo) == best {
			out = append(out, Action{Card: card, From: int8(s.from), To: int8(s.to), CardSwap: swap})
		}
	}
	return out
}
