package engine

// StateHash returns a fast 64-bit FNV-1a hash of the game state. Equal states
// hash equally, so the hash doubles as a version tag for stored snapshots and
// as a seed for deterministic agents.
func (g *GameState) StateHash() uint64 {
	h := uint64(14695981039346656037) // FNV-1a offset basis
	const prime = uint64(1099511628211)
	mix := func(v uint64) {
		h ^= v
		h *= prime
	}

	n := g.Rules.numPlayers()
	for p := uint8(0); p < n; p++ {
		ps := &g.Players[p]
		for i := uint8(0); i < ps.HandLen; i++ {
			mix(uint64(ps.Hand[i]))
		}
		mix(uint64(ps.HandLen) << 8)
		for _, m := range ps.Marbles {
			v := uint64(m.Pos)
			if m.Safe {
				v |= 1 << 8
			}
			mix(v << 16)
		}
	}
	for i := uint8(0); i < g.DrawLen; i++ {
		mix(uint64(g.DrawPile[i]))
	}
	for i := uint8(0); i < g.DiscardLen; i++ {
		mix(uint64(g.DiscardPile[i]) << 8)
	}
	for _, c := range g.Exchange[:n] {
		mix(uint64(c) << 24)
	}
	mix(uint64(g.Round)<<32 | uint64(g.TurnsInRound)<<16 | uint64(g.ExchangeCount))
	mix(uint64(g.StarterIdx)<<40 | uint64(g.ActiveIdx)<<32 | uint64(g.Phase)<<24)
	mix(uint64(g.ActiveCard)<<16 | uint64(g.ActiveAs)<<8 | uint64(g.SevenRemaining))
	mix(uint64(uint8(g.WinnerTeam)))
	if g.CardExchanged {
		mix(1 << 56)
	}
	mix(g.RNG)
	return h
}
