package engine

import (
	"fmt"
	"io"
	"strings"
)

// String returns a human-readable dump of the state for debugging.
func (g *GameState) String() string {
	var sb strings.Builder
	g.PrintState(&sb)
	return sb.String()
}

// PrintState writes a human-readable dump of the state to w.
func (g *GameState) PrintState(w io.Writer) {
	fmt.Fprintf(w, "phase=%s round=%d starter=%d active=%d turns=%d exchanged=%t\n",
		g.Phase, g.Round, g.StarterIdx, g.ActiveIdx, g.TurnsInRound, g.CardExchanged)
	fmt.Fprintf(w, "draw=%d discard=%d top=%s\n", g.DrawLen, g.DiscardLen, g.DiscardTop())
	if g.SevenActive() {
		fmt.Fprintf(w, "active card %s", g.ActiveCard)
		if g.ActiveAs != EmptyCard {
			fmt.Fprintf(w, " as %s", g.ActiveAs.RankString())
		}
		fmt.Fprintf(w, ", %d steps left\n", g.SevenRemaining)
	}
	n := g.Rules.numPlayers()
	for p := uint8(0); p < n; p++ {
		ps := &g.Players[p]
		marker := " "
		if p == g.ActiveIdx {
			marker = "*"
		}
		cards := make([]string, ps.HandLen)
		for i := range cards {
			cards[i] = ps.Hand[i].String()
		}
		marbles := make([]string, MarblesPerPlayer)
		for i, m := range ps.Marbles {
			marbles[i] = fmt.Sprintf("%d", m.Pos)
			if m.Safe {
				marbles[i] += "!"
			}
		}
		fmt.Fprintf(w, "%s%d %-10s hand=[%s] marbles=[%s]\n",
			marker, p, ps.Name, strings.Join(cards, " "), strings.Join(marbles, " "))
	}
	if g.IsTerminal() {
		fmt.Fprintf(w, "winners=%v\n", g.Winners())
	}
}
