package engine

import (
	"encoding/json"
	"fmt"
)

// wireCard is the JSON form of a card. Face-down cards have empty fields.
type wireCard struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
}

// MarshalJSON encodes c as {"suit","rank"}; EmptyCard encodes as null.
func (c Card) MarshalJSON() ([]byte, error) {
	if c == EmptyCard {
		return []byte("null"), nil
	}
	return json.Marshal(wireCard{Suit: c.SuitString(), Rank: c.RankString()})
}

// UnmarshalJSON decodes the form written by MarshalJSON. Suitless non-joker
// ranks are accepted as Joker stand-ins.
func (c *Card) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = EmptyCard
		return nil
	}
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Suit == "" && w.Rank == "" {
		*c = HiddenCard
		return nil
	}
	suit, okSuit := parseSuit(w.Suit)
	rank, okRank := parseRank(w.Rank)
	if !okSuit || !okRank {
		return fmt.Errorf("unknown card %q%q", w.Suit, w.Rank)
	}
	card := NewCard(suit, rank)
	if !card.Valid() && suit != SuitNone {
		return fmt.Errorf("unknown card %q%q", w.Suit, w.Rank)
	}
	*c = card
	return nil
}

type wireAction struct {
	Card     Card  `json:"card"`
	PosFrom  *int  `json:"pos_from"`
	PosTo    *int  `json:"pos_to"`
	CardSwap *Card `json:"card_swap"`
}

func posPtr(p int8) *int {
	if p == NoPos {
		return nil
	}
	v := int(p)
	return &v
}

func posFromPtr(p *int) (int8, error) {
	if p == nil {
		return NoPos, nil
	}
	if *p < 0 || *p >= BoardSize {
		return NoPos, fmt.Errorf("position %d out of range", *p)
	}
	return int8(*p), nil
}

// MarshalJSON encodes a as {"card","pos_from","pos_to","card_swap"} with
// absent fields as null.
func (a Action) MarshalJSON() ([]byte, error) {
	w := wireAction{Card: a.Card, PosFrom: posPtr(a.From), PosTo: posPtr(a.To)}
	if a.CardSwap != EmptyCard {
		swap := a.CardSwap
		w.CardSwap = &swap
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w wireAction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	from, err := posFromPtr(w.PosFrom)
	if err != nil {
		return err
	}
	to, err := posFromPtr(w.PosTo)
	if err != nil {
		return err
	}
	*a = Action{Card: w.Card, From: from, To: to, CardSwap: EmptyCard}
	if w.CardSwap != nil {
		a.CardSwap = *w.CardSwap
	}
	return nil
}

type wireMarble struct {
	Position uint8 `json:"position"`
	Safe     bool  `json:"safe"`
}

type wirePlayer struct {
	Name    string       `json:"name"`
	Hand    []Card       `json:"hand"`
	Marbles []wireMarble `json:"marbles"`
}

type wireState struct {
	PlayerCount    uint8        `json:"player_count"`
	Phase          string       `json:"phase"`
	Round          uint16       `json:"round"`
	CardExchanged  bool         `json:"card_exchanged"`
	StarterIndex   uint8        `json:"starter_index"`
	ActiveIndex    uint8        `json:"active_index"`
	TurnsInRound   uint8        `json:"turns_in_round"`
	Players        []wirePlayer `json:"players"`
	DrawPile       []Card       `json:"draw_pile"`
	DiscardPile    []Card       `json:"discard_pile"`
	Exchange       []Card       `json:"exchange"`
	ExchangeCount  uint8        `json:"exchange_count"`
	ActiveCard     Card         `json:"active_card"`
	ActiveAs       Card         `json:"active_as"`
	SevenRemaining uint8        `json:"seven_remaining"`
	WinnerTeam     int8         `json:"winner_team"`
	RNG            uint64       `json:"rng,string"`
	Rules          HouseRules   `json:"rules"`
}

// MarshalJSON encodes the state with the field names of the data model.
func (g GameState) MarshalJSON() ([]byte, error) {
	n := g.Rules.numPlayers()
	w := wireState{
		PlayerCount:    n,
		Phase:          g.Phase.String(),
		Round:          g.Round,
		CardExchanged:  g.CardExchanged,
		StarterIndex:   g.StarterIdx,
		ActiveIndex:    g.ActiveIdx,
		TurnsInRound:   g.TurnsInRound,
		Players:        make([]wirePlayer, n),
		DrawPile:       append([]Card{}, g.DrawPile[:g.DrawLen]...),
		DiscardPile:    append([]Card{}, g.DiscardPile[:g.DiscardLen]...),
		Exchange:       append([]Card{}, g.Exchange[:n]...),
		ExchangeCount:  g.ExchangeCount,
		ActiveCard:     g.ActiveCard,
		ActiveAs:       g.ActiveAs,
		SevenRemaining: g.SevenRemaining,
		WinnerTeam:     g.WinnerTeam,
		RNG:            g.RNG,
		Rules:          g.Rules,
	}
	for p := uint8(0); p < n; p++ {
		ps := &g.Players[p]
		wp := wirePlayer{Name: ps.Name, Hand: ps.Cards(), Marbles: make([]wireMarble, MarblesPerPlayer)}
		for i, m := range ps.Marbles {
			wp.Marbles[i] = wireMarble{Position: m.Pos, Safe: m.Safe}
		}
		w.Players[p] = wp
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a state written by MarshalJSON. Capacities are
// checked; rule invariants are not (use CheckInvariants).
func (g *GameState) UnmarshalJSON(data []byte) error {
	w := wireState{ActiveCard: EmptyCard, ActiveAs: EmptyCard}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n := w.Rules.numPlayers()
	if w.PlayerCount != n || len(w.Players) != int(n) {
		return fmt.Errorf("player_count %d does not match %d players and rules for %d", w.PlayerCount, len(w.Players), n)
	}
	if len(w.DrawPile) > DeckSize || len(w.DiscardPile) > DeckSize || len(w.Exchange) > MaxPlayers {
		return fmt.Errorf("pile sizes exceed the deck")
	}

	out := NewGame(1, w.Rules)
	phase, ok := parsePhase(w.Phase)
	if !ok {
		return fmt.Errorf("unknown phase %q", w.Phase)
	}
	out.Phase = phase
	out.Round = w.Round
	out.CardExchanged = w.CardExchanged
	out.StarterIdx = w.StarterIndex
	out.ActiveIdx = w.ActiveIndex
	out.TurnsInRound = w.TurnsInRound
	out.ExchangeCount = w.ExchangeCount
	out.ActiveCard = w.ActiveCard
	out.ActiveAs = w.ActiveAs
	out.SevenRemaining = w.SevenRemaining
	out.WinnerTeam = w.WinnerTeam
	out.RNG = w.RNG

	for p, wp := range w.Players {
		if len(wp.Hand) > MaxHandSize || len(wp.Marbles) != MarblesPerPlayer {
			return fmt.Errorf("player %d: %d cards and %d marbles", p, len(wp.Hand), len(wp.Marbles))
		}
		ps := &out.Players[p]
		ps.Name = wp.Name
		copy(ps.Hand[:], wp.Hand)
		ps.HandLen = uint8(len(wp.Hand))
		for i, m := range wp.Marbles {
			ps.Marbles[i] = Marble{Pos: m.Position, Safe: m.Safe}
		}
	}
	for i := range out.DrawPile {
		out.DrawPile[i] = EmptyCard
	}
	copy(out.DrawPile[:], w.DrawPile)
	out.DrawLen = uint8(len(w.DrawPile))
	copy(out.DiscardPile[:], w.DiscardPile)
	out.DiscardLen = uint8(len(w.DiscardPile))
	copy(out.Exchange[:], w.Exchange)

	*g = out
	return nil
}

func parsePhase(s string) (Phase, bool) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), true
		}
	}
	return PhaseSetup, false
}
