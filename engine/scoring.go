package engine

// maxProgress is the progress of a player with every marble at the bottom of
// the finish corridor.
const maxProgress = MarblesPerPlayer * (RingSize + MarblesPerPlayer)

// marbleProgress returns how far a marble of player p has come: 0 in the
// kennel, 1..64 along the ring from p's start, 65..68 in the finish corridor.
func marbleProgress(p uint8, m Marble) int {
	switch {
	case IsKennel(m.Pos):
		return 0
	case IsFinish(m.Pos):
		return RingSize + 1 + int(finishDepth(m.Pos))
	}
	return (int(m.Pos)-int(StartCell(p))+RingSize)%RingSize + 1
}

// Progress returns the summed marble progress of player p.
func (g *GameState) Progress(p uint8) int {
	total := 0
	for _, m := range g.Players[p].Marbles {
		total += marbleProgress(p, m)
	}
	return total
}

// TeamProgress returns the progress of p's team, counting the partner in a
// four-player match.
func (g *GameState) TeamProgress(p uint8) int {
	total := g.Progress(p)
	if q := g.Partner(p); q != p {
		total += g.Progress(q)
	}
	return total
}

// Utilities returns the outcome per seat: +1 for the winning team, -1 for
// everybody else. Before the end all utilities are 0.
func (g *GameState) Utilities() [MaxPlayers]float32 {
	var u [MaxPlayers]float32
	if !g.IsTerminal() {
		return u
	}
	n := g.Rules.numPlayers()
	for p := uint8(0); p < n; p++ {
		u[p] = -1
	}
	for _, p := range g.Winners() {
		u[p] = 1
	}
	return u
}

// EvalProgress estimates the position for player p in [-1, 1] from team
// progress: the own team's share against the strongest other team. It is
// the exact utility once the match is over.
//
// For a truncated playout this stands in for the missing result.
func (g *GameState) EvalProgress(p uint8) float32 {
	if g.IsTerminal() {
		return g.Utilities()[p]
	}
	n := g.Rules.numPlayers()
	own := g.TeamProgress(p)
	best := 0
	for q := uint8(0); q < n; q++ {
		if q == p || q == g.Partner(p) {
			continue
		}
		best = max(best, g.TeamProgress(q))
	}
	scale := maxProgress
	if g.Partner(p) != p {
		scale *= 2
	}
	return float32(own-best) / float32(scale)
}
