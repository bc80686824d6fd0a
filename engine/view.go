package engine

// MaskedView returns a copy of the state as player p may see it: every other
// player's hand and incoming exchange card become face-down placeholders of
// the same count, the draw pile keeps only its size, and the RNG is cleared
// so future shuffles cannot be predicted. Marbles, the discard pile and the
// active card are public.
func (g *GameState) MaskedView(p uint8) GameState {
	v := *g
	for q := uint8(0); q < MaxPlayers; q++ {
		if q == p {
			continue
		}
		ps := &v.Players[q]
		for i := uint8(0); i < ps.HandLen; i++ {
			ps.Hand[i] = HiddenCard
		}
		if v.Exchange[q] != EmptyCard {
			v.Exchange[q] = HiddenCard
		}
	}
	for i := uint8(0); i < v.DrawLen; i++ {
		v.DrawPile[i] = HiddenCard
	}
	v.RNG = 0
	return v
}
