package engine

// marbleBoard is the marble arena of a GameState, detached from the cards so
// the Seven search can copy and key it cheaply.
type marbleBoard struct {
	m [MaxPlayers][MarblesPerPlayer]Marble
	n uint8
}

func (g *GameState) board() marbleBoard {
	b := marbleBoard{n: g.Rules.numPlayers()}
	for p := uint8(0); p < MaxPlayers; p++ {
		b.m[p] = g.Players[p].Marbles
	}
	return b
}

func (g *GameState) setBoard(b marbleBoard) {
	for p := uint8(0); p < MaxPlayers; p++ {
		g.Players[p].Marbles = b.m[p]
	}
}

// marbleRef addresses one marble in the arena.
type marbleRef struct {
	player uint8
	idx    uint8
}

func (b *marbleBoard) get(r marbleRef) Marble { return b.m[r.player][r.idx] }

// at returns the marble on pos.
func (b *marbleBoard) at(pos uint8) (marbleRef, bool) {
	for p := uint8(0); p < b.n; p++ {
		for i := uint8(0); i < MarblesPerPlayer; i++ {
			if b.m[p][i].Pos == pos {
				return marbleRef{p, i}, true
			}
		}
	}
	return marbleRef{}, false
}

func (b *marbleBoard) occupied(pos uint8) bool {
	_, ok := b.at(pos)
	return ok
}

// safeAt reports whether pos holds a safe marble, which nobody may pass.
func (b *marbleBoard) safeAt(pos uint8) bool {
	r, ok := b.at(pos)
	return ok && b.get(r).Safe
}

func (b *marbleBoard) partner(p uint8) uint8 {
	if b.n != MaxPlayers {
		return p
	}
	return (p + 2) % MaxPlayers
}

func (b *marbleBoard) allInFinish(p uint8) bool {
	fin := FinishRange(p)
	for _, m := range b.m[p] {
		if !fin.Contains(m.Pos) {
			return false
		}
	}
	return true
}

// controlled returns the players whose marbles p may move.
func (b *marbleBoard) controlled(p uint8) []uint8 {
	if q := b.partner(p); q != p && b.allInFinish(p) {
		return []uint8{p, q}
	}
	return []uint8{p}
}

// firstKennelMarble returns p's marble in the lowest occupied kennel cell.
func (b *marbleBoard) firstKennelMarble(p uint8) (marbleRef, bool) {
	kennel := KennelRange(p)
	best, found := marbleRef{}, false
	for i := uint8(0); i < MarblesPerPlayer; i++ {
		pos := b.m[p][i].Pos
		if !kennel.Contains(pos) {
			continue
		}
		if !found || pos < b.m[p][best.idx].Pos {
			best, found = marbleRef{p, i}, true
		}
	}
	return best, found
}

// firstFreeKennel returns the lowest unoccupied cell of p's kennel.
func (b *marbleBoard) firstFreeKennel(p uint8) uint8 {
	kennel := KennelRange(p)
	for pos := kennel.First; pos <= kennel.Last; pos++ {
		if !b.occupied(pos) {
			return pos
		}
	}
	return kennel.Last // unreachable while the marble being sent home is outside
}

// sendHome returns a marble to the first free cell of its owner's kennel.
func (b *marbleBoard) sendHome(r marbleRef) {
	pos := b.firstFreeKennel(r.player)
	b.m[r.player][r.idx] = Marble{Pos: pos}
}

// moveTo moves r onto to. Any other marble on to is sent home.
func (b *marbleBoard) moveTo(r marbleRef, to uint8) {
	if hit, ok := b.at(to); ok && hit != r {
		b.sendHome(hit)
	}
	b.m[r.player][r.idx] = Marble{Pos: to}
}

// enter brings r from its kennel onto its owner's start cell and marks it safe.
func (b *marbleBoard) enter(r marbleRef) {
	start := StartCell(r.player)
	b.moveTo(r, start)
	b.m[r.player][r.idx].Safe = true
}

// swap exchanges the cells of two marbles.
func (b *marbleBoard) swap(x, y marbleRef) {
	px, py := b.get(x).Pos, b.get(y).Pos
	b.m[x.player][x.idx] = Marble{Pos: py}
	b.m[y.player][y.idx] = Marble{Pos: px}
}

// forwardTargets returns every cell marble r can reach by moving exactly d
// steps forward. A marble crossing its owner's start cell may either stay on
// the ring or turn into the finish corridor. No safe marble may be passed and
// nothing in the finish corridor may be passed or landed on.
func (b *marbleBoard) forwardTargets(r marbleRef, d uint8) []uint8 {
	if d == 0 {
		return nil
	}
	mb := b.get(r)
	pos := mb.Pos
	switch {
	case IsKennel(pos):
		return nil
	case IsFinish(pos):
		if t, ok := b.finishWalk(r.player, int(finishDepth(pos))+1, int(d)); ok {
			return []uint8{t}
		}
		return nil
	}

	var out []uint8
	start := StartCell(r.player)
	// A marble resting on its start after a lap may turn in immediately.
	if pos == start && !mb.Safe {
		if t, ok := b.finishWalk(r.player, 0, int(d)); ok {
			out = append(out, t)
		}
	}
	for i := uint8(1); i < d; i++ {
		cell := ringAdd(pos, int(i))
		if b.safeAt(cell) {
			return out
		}
		if cell == start {
			if t, ok := b.finishWalk(r.player, 0, int(d-i)); ok {
				out = append(out, t)
			}
		}
	}
	return append(out, ringAdd(pos, int(d)))
}

// finishWalk walks steps cells into p's finish corridor starting at depth
// from (the first cell entered). Every cell walked must be free.
func (b *marbleBoard) finishWalk(p uint8, from, steps int) (uint8, bool) {
	last := from + steps - 1
	if last >= MarblesPerPlayer {
		return 0, false
	}
	fin := FinishRange(p)
	for depth := from; depth <= last; depth++ {
		if b.occupied(fin.First + uint8(depth)) {
			return 0, false
		}
	}
	return fin.First + uint8(last), true
}

// backwardTarget returns the ring cell d steps behind r. Backward moves never
// leave the ring and marbles in the finish never move backward.
func (b *marbleBoard) backwardTarget(r marbleRef, d uint8) (uint8, bool) {
	pos := b.get(r).Pos
	if !IsRing(pos) || d == 0 {
		return 0, false
	}
	for i := 1; i < int(d); i++ {
		if b.safeAt(ringAdd(pos, -i)) {
			return 0, false
		}
	}
	return ringAdd(pos, -int(d)), true
}

// stepDistance returns the forward distance (1..limit) that takes r to to.
func (b *marbleBoard) stepDistance(r marbleRef, to uint8, limit uint8) (uint8, bool) {
	for d := uint8(1); d <= limit; d++ {
		for _, t := range b.forwardTargets(r, d) {
			if t == to {
				return d, true
			}
		}
	}
	return 0, false
}

// movable returns the marbles of the given players that are out of the kennel.
func (b *marbleBoard) movable(players []uint8) []marbleRef {
	var out []marbleRef
	for _, p := range players {
		for i := uint8(0); i < MarblesPerPlayer; i++ {
			if !IsKennel(b.m[p][i].Pos) {
				out = append(out, marbleRef{p, i})
			}
		}
	}
	return out
}
