package engine

import (
	"cmp"
	"strconv"
)

// Suit constants — packed into upper 4 bits of Card.
// The numeric order is the canonical suit order used for sorting actions.
const (
	SuitSpades   uint8 = 0
	SuitHearts   uint8 = 1
	SuitDiamonds uint8 = 2
	SuitClubs    uint8 = 3
	SuitNone     uint8 = 4 // jokers
)

// NumSuits counts the four standard suits (jokers excluded).
const NumSuits = 4

// Rank constants — packed into lower 4 bits of Card.
const (
	RankTwo   uint8 = 0
	RankThree uint8 = 1
	RankFour  uint8 = 2
	RankFive  uint8 = 3
	RankSix   uint8 = 4
	RankSeven uint8 = 5
	RankEight uint8 = 6
	RankNine  uint8 = 7
	RankTen   uint8 = 8
	RankJack  uint8 = 9
	RankQueen uint8 = 10
	RankKing  uint8 = 11
	RankAce   uint8 = 12
	RankJoker uint8 = 13
)

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
// Comparing two cards numerically yields the canonical (suit, rank) order.
type Card uint8

const (
	// EmptyCard represents the absence of a card.
	EmptyCard Card = 0xFF
	// HiddenCard is a face-down placeholder used in masked views.
	HiddenCard Card = 0xFE
)

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card((suit << 4) | (rank & 0x0F))
}

// Joker returns the joker card. All six jokers in the deck are identical.
func Joker() Card { return NewCard(SuitNone, RankJoker) }

// Suit returns the suit bits (upper 4).
func (c Card) Suit() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

// IsJoker reports whether c is a joker.
func (c Card) IsJoker() bool { return c.Valid() && c.Rank() == RankJoker }

// Valid reports whether c names a real card of the canonical deck.
func (c Card) Valid() bool {
	if c == EmptyCard || c == HiddenCard {
		return false
	}
	s, r := c.Suit(), c.Rank()
	if r == RankJoker {
		return s == SuitNone
	}
	return s < NumSuits && r < RankJoker
}

var suitSymbols = [...]string{"♠", "♥", "♦", "♣", ""}

var rankSymbols = [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A", "JKR"}

// SuitString returns the suit symbol ("" for jokers and unknown cards).
func (c Card) SuitString() string {
	if c == EmptyCard || c == HiddenCard || int(c.Suit()) >= len(suitSymbols) {
		return ""
	}
	return suitSymbols[c.Suit()]
}

// RankString returns the rank symbol ("" for unknown cards).
func (c Card) RankString() string {
	if c == EmptyCard || c == HiddenCard || int(c.Rank()) >= len(rankSymbols) {
		return ""
	}
	return rankSymbols[c.Rank()]
}

// String renders the card as suit followed by rank, e.g. "♦A" or "JKR".
func (c Card) String() string {
	switch c {
	case EmptyCard:
		return "--"
	case HiddenCard:
		return "??"
	}
	return c.SuitString() + c.RankString()
}

// parseSuit maps a suit symbol to its index.
func parseSuit(s string) (uint8, bool) {
	for i, sym := range suitSymbols {
		if sym == s {
			return uint8(i), true
		}
	}
	return 0, false
}

// parseRank maps a rank symbol to its index.
func parseRank(s string) (uint8, bool) {
	for i, sym := range rankSymbols {
		if sym == s {
			return uint8(i), true
		}
	}
	return 0, false
}

// CardFromStrings builds a card from its suit and rank symbols.
func CardFromStrings(suit, rank string) (Card, bool) {
	r, ok := parseRank(rank)
	if !ok {
		return EmptyCard, false
	}
	s, ok := parseSuit(suit)
	if !ok {
		return EmptyCard, false
	}
	c := NewCard(s, r)
	if !c.Valid() {
		return EmptyCard, false
	}
	return c, true
}

// ParseCard parses the String form of a card ("♣7", "♥10", "JKR").
func ParseCard(s string) (Card, bool) {
	if s == "JKR" {
		return Joker(), true
	}
	for i, sym := range suitSymbols[:NumSuits] {
		if len(s) > len(sym) && s[:len(sym)] == sym {
			return CardFromStrings(suitSymbols[i], s[len(sym):])
		}
	}
	return EmptyCard, false
}

// ---------------------------------------------------------------------------
// Movement semantics
// ---------------------------------------------------------------------------

// MoveKind classifies the effect a rank has on the board.
type MoveKind uint8

const (
	MoveSteps MoveKind = iota // move one marble by one of the listed distances
	MoveSplit                 // Seven: distribute seven forward steps
	MoveSwap                  // Jack: swap two marbles
	MoveWild                  // Joker: act as any other rank
)

// Movement describes what a rank allows.
type Movement struct {
	Kind     MoveKind
	Forward  []uint8 // forward distances
	Backward []uint8 // backward distances
	Start    bool    // may bring a marble out of the kennel
}

// SevenSteps is the budget a Seven distributes.
const SevenSteps = 7

var movements = [RankJoker + 1]Movement{
	RankTwo:   {Kind: MoveSteps, Forward: []uint8{2}},
	RankThree: {Kind: MoveSteps, Forward: []uint8{3}},
	RankFour:  {Kind: MoveSteps, Forward: []uint8{4}, Backward: []uint8{4}},
	RankFive:  {Kind: MoveSteps, Forward: []uint8{5}},
	RankSix:   {Kind: MoveSteps, Forward: []uint8{6}},
	RankSeven: {Kind: MoveSplit},
	RankEight: {Kind: MoveSteps, Forward: []uint8{8}},
	RankNine:  {Kind: MoveSteps, Forward: []uint8{9}},
	RankTen:   {Kind: MoveSteps, Forward: []uint8{10}},
	RankJack:  {Kind: MoveSwap},
	RankQueen: {Kind: MoveSteps, Forward: []uint8{12}},
	RankKing:  {Kind: MoveSteps, Forward: []uint8{13}, Start: true},
	RankAce:   {Kind: MoveSteps, Forward: []uint8{1, 11}, Start: true},
	RankJoker: {Kind: MoveWild, Start: true},
}

// MovementOf returns the movement semantics of a rank.
func MovementOf(rank uint8) Movement {
	if rank > RankJoker {
		return Movement{Kind: MoveSteps}
	}
	return movements[rank]
}

// StandInRanks lists the ranks a Joker may be played as, in canonical rank order.
func StandInRanks() []uint8 {
	out := make([]uint8, 0, RankJoker)
	for r := RankTwo; r < RankJoker; r++ {
		out = append(out, r)
	}
	return out
}

// StandIn returns the card recorded in Action.CardSwap when a Joker is played as rank.
func StandIn(rank uint8) Card { return NewCard(SuitNone, rank) }

// ---------------------------------------------------------------------------
// Action
// ---------------------------------------------------------------------------

// NoPos marks an absent board position in an Action.
const NoPos int8 = -1

// Action is one legal play of the active player.
//
//   - Exchange: From = To = NoPos, CardSwap = EmptyCard.
//   - Start / move: From is the marble's cell, To its destination.
//   - Jack: From and To are the cells of the two marbles being swapped.
//   - Joker: CardSwap holds the stand-in (suit ∅, stand-in rank).
type Action struct {
	Card     Card
	From     int8
	To       int8
	CardSwap Card
}

// NewAction builds a move action without a stand-in.
func NewAction(card Card, from, to int8) Action {
	return Action{Card: card, From: from, To: to, CardSwap: EmptyCard}
}

// ExchangeAction builds the round-start exchange action for card.
func ExchangeAction(card Card) Action {
	return Action{Card: card, From: NoPos, To: NoPos, CardSwap: EmptyCard}
}

// IsExchange reports whether a carries no positions.
func (a Action) IsExchange() bool { return a.From == NoPos && a.To == NoPos && a.CardSwap == EmptyCard }

// Effective returns the card whose semantics apply: the stand-in for a Joker, else the card.
func (a Action) Effective() Card {
	if a.Card.IsJoker() && a.CardSwap != EmptyCard {
		return a.CardSwap
	}
	return a.Card
}

func (a Action) String() string {
	s := a.Card.String()
	if a.CardSwap != EmptyCard {
		s += " as " + a.CardSwap.RankString()
	}
	if a.From != NoPos || a.To != NoPos {
		s += " " + posString(a.From) + "->" + posString(a.To)
	}
	return s
}

func posString(p int8) string {
	if p == NoPos {
		return "nil"
	}
	return strconv.Itoa(int(p))
}

// compareActions orders actions by (card, from, to, card_swap) with absent
// positions first and an absent card_swap before any stand-in.
func compareActions(a, b Action) int {
	if a.Card != b.Card {
		return cmp.Compare(int(a.Card), int(b.Card))
	}
	if a.From != b.From {
		return cmp.Compare(int(a.From), int(b.From))
	}
	if a.To != b.To {
		return cmp.Compare(int(a.To), int(b.To))
	}
	return cmp.Compare(swapKey(a.CardSwap), swapKey(b.CardSwap))
}

func swapKey(c Card) int {
	if c == EmptyCard {
		return -1
	}
	return int(c)
}
