// Package engine implements the rules of the board game Dog.
//
// The whole match is a flat value type (GameState): players, hands, marbles,
// draw and discard piles live in fixed arrays, so copying the struct is a
// deep copy. ListActions enumerates every legal play of the active player in
// canonical order and Apply executes one of them. The engine performs no I/O;
// all randomness comes from a seeded generator stored in the state, so a
// match is reproducible from its seed and action sequence.
package engine

import "strconv"

const (
	MaxPlayers  = 4
	MaxHandSize = 6
	DeckSize    = 110 // two 52-card decks plus six jokers
	NumJokers   = 6
)

// Phase is the lifecycle stage of a match.
type Phase uint8

const (
	PhaseSetup Phase = iota
	PhaseRunning
	PhaseFinished
)

var phaseNames = [...]string{"setup", "running", "finished"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Marble is one of a player's four pieces.
// Safe is set while the marble sits on its owner's start cell and has not moved since entering.
type Marble struct {
	Pos  uint8
	Safe bool
}

// PlayerState holds one player's hand and marbles.
type PlayerState struct {
	Name    string
	Hand    [MaxHandSize]Card
	HandLen uint8
	Marbles [MarblesPerPlayer]Marble
}

// Cards returns the player's hand in insertion order.
func (ps *PlayerState) Cards() []Card {
	out := make([]Card, ps.HandLen)
	copy(out, ps.Hand[:ps.HandLen])
	return out
}

// GameState holds the complete, self-contained state of a Dog match.
// It contains no pointers or slices, so plain assignment deep-copies it.
type GameState struct {
	Players     [MaxPlayers]PlayerState
	DrawPile    [DeckSize]Card
	DrawLen     uint8
	DiscardPile [DeckSize]Card
	DiscardLen  uint8

	// Exchange buffers the card each player receives from their partner
	// until all four exchanges are made. Indexed by recipient.
	Exchange      [MaxPlayers]Card
	ExchangeCount uint8

	Phase         Phase
	Round         uint16
	CardExchanged bool
	StarterIdx    uint8
	ActiveIdx     uint8
	TurnsInRound  uint8

	// ActiveCard is the card being resolved by a multi-step Seven. ActiveAs is
	// the stand-in when ActiveCard is a Joker; SevenRemaining the unspent steps.
	ActiveCard     Card
	ActiveAs       Card
	SevenRemaining uint8

	WinnerTeam int8 // lowest seat of the winning team, -1 while undecided
	RNG        uint64
	Rules      HouseRules
}

// ---------------------------------------------------------------------------
// xorshift64 RNG — inline, no interface
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// shuffle performs a Fisher-Yates shuffle of cards using the match RNG.
func (g *GameState) shuffle(cards []Card) {
	for i := len(cards) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

// ---------------------------------------------------------------------------
// NewGame and Deal
// ---------------------------------------------------------------------------

// NewGame initializes a new GameState with the given seed and rules.
// The draw pile holds the canonical deck in order and every marble is in its
// kennel; nothing is shuffled or dealt yet.
func NewGame(seed uint64, rules HouseRules) GameState {
	var g GameState
	g.RNG = seed
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
	g.Rules = rules
	g.Phase = PhaseSetup
	g.WinnerTeam = -1
	g.ActiveCard = EmptyCard
	g.ActiveAs = EmptyCard
	for i := range g.Exchange {
		g.Exchange[i] = EmptyCard
	}
	for i := range g.DiscardPile {
		g.DiscardPile[i] = EmptyCard
	}

	deck := CanonicalDeck()
	copy(g.DrawPile[:], deck)
	g.DrawLen = uint8(len(deck))

	for p := uint8(0); p < MaxPlayers; p++ {
		g.Players[p].Name = "Player " + strconv.Itoa(int(p)+1)
		for i := range g.Players[p].Hand {
			g.Players[p].Hand[i] = EmptyCard
		}
		kennel := KennelRange(p)
		for m := uint8(0); m < MarblesPerPlayer; m++ {
			g.Players[p].Marbles[m] = Marble{Pos: kennel.First + m}
		}
	}
	return g
}

// CanonicalDeck returns the 110-card multiset: two copies of each standard card and six jokers.
func CanonicalDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for copyIdx := 0; copyIdx < 2; copyIdx++ {
		for suit := uint8(0); suit < NumSuits; suit++ {
			for rank := RankTwo; rank <= RankAce; rank++ {
				deck = append(deck, NewCard(suit, rank))
			}
		}
	}
	for j := 0; j < NumJokers; j++ {
		deck = append(deck, Joker())
	}
	return deck
}

// Deal shuffles the deck, picks a random dealer who starts the first round,
// and deals the round-one hands.
func (g *GameState) Deal() {
	g.shuffle(g.DrawPile[:g.DrawLen])
	n := g.Rules.numPlayers()
	g.StarterIdx = uint8(g.randN(uint64(n)))
	g.Phase = PhaseRunning
	g.Round = 1
	g.beginRound()
}

// NewMatch creates a dealt, running match for numPlayers seats.
func NewMatch(numPlayers uint8, seed uint64) GameState {
	rules := DefaultHouseRules()
	rules.NumPlayers = numPlayers
	g := NewGame(seed, rules)
	g.Deal()
	return g
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// IsTerminal returns true when a team has brought all its marbles home.
func (g *GameState) IsTerminal() bool { return g.Phase == PhaseFinished }

// NumActivePlayers returns the number of seated players.
func (g *GameState) NumActivePlayers() uint8 { return g.Rules.numPlayers() }

// NextPlayer returns the player after current in turn order.
func (g *GameState) NextPlayer(current uint8) uint8 {
	return (current + 1) % g.Rules.numPlayers()
}

// Partner returns the seat two places away in a four-player match; players
// without a partner are their own team.
func (g *GameState) Partner(p uint8) uint8 {
	if g.Rules.numPlayers() != MaxPlayers {
		return p
	}
	return (p + 2) % MaxPlayers
}

// InExchange reports whether the round-start card exchange is still open.
func (g *GameState) InExchange() bool {
	return g.Phase == PhaseRunning && g.Rules.exchangeEnabled() && !g.CardExchanged
}

// SevenActive reports whether a Seven split is being resolved.
func (g *GameState) SevenActive() bool { return g.ActiveCard != EmptyCard }

// HandOf returns the given player's hand in insertion order.
func (g *GameState) HandOf(p uint8) []Card { return g.Players[p].Cards() }

// DiscardTop returns the top card of the discard pile, or EmptyCard if empty.
func (g *GameState) DiscardTop() Card {
	if g.DiscardLen == 0 {
		return EmptyCard
	}
	return g.DiscardPile[g.DiscardLen-1]
}

// MarbleAt returns the owner and index of the marble on pos.
func (g *GameState) MarbleAt(pos uint8) (player, idx uint8, ok bool) {
	n := g.Rules.numPlayers()
	for p := uint8(0); p < n; p++ {
		for m := uint8(0); m < MarblesPerPlayer; m++ {
			if g.Players[p].Marbles[m].Pos == pos {
				return p, m, true
			}
		}
	}
	return 0, 0, false
}

// allInFinish reports whether every marble of p is in p's finish corridor.
func (g *GameState) allInFinish(p uint8) bool {
	b := g.board()
	return b.allInFinish(p)
}

// controlled returns the players whose marbles the active player may move:
// their own, plus their partner's once all of their own marbles are home.
func (g *GameState) controlled(p uint8) []uint8 {
	b := g.board()
	return b.controlled(p)
}

// ---------------------------------------------------------------------------
// Hand and pile helpers
// ---------------------------------------------------------------------------

// handIndex returns the first index of card in p's hand, or -1.
func (g *GameState) handIndex(p uint8, card Card) int {
	ps := &g.Players[p]
	for i := uint8(0); i < ps.HandLen; i++ {
		if ps.Hand[i] == card {
			return int(i)
		}
	}
	return -1
}

// removeFromHand removes the first copy of card from p's hand, keeping order.
func (g *GameState) removeFromHand(p uint8, card Card) bool {
	i := g.handIndex(p, card)
	if i < 0 {
		return false
	}
	ps := &g.Players[p]
	copy(ps.Hand[i:ps.HandLen], ps.Hand[i+1:ps.HandLen])
	ps.HandLen--
	ps.Hand[ps.HandLen] = EmptyCard
	return true
}

// addToHand appends card to p's hand. Returns false when the hand is full.
func (g *GameState) addToHand(p uint8, card Card) bool {
	ps := &g.Players[p]
	if ps.HandLen >= MaxHandSize {
		return false
	}
	ps.Hand[ps.HandLen] = card
	ps.HandLen++
	return true
}

// discard places card on top of the discard pile.
func (g *GameState) discard(card Card) {
	g.DiscardPile[g.DiscardLen] = card
	g.DiscardLen++
}

// discardHand moves p's whole hand onto the discard pile.
func (g *GameState) discardHand(p uint8) {
	ps := &g.Players[p]
	for i := uint8(0); i < ps.HandLen; i++ {
		g.discard(ps.Hand[i])
		ps.Hand[i] = EmptyCard
	}
	ps.HandLen = 0
}

// ---------------------------------------------------------------------------
// Snapshot Undo (Save / Restore)
// ---------------------------------------------------------------------------

// Snapshot is a complete value-copy of GameState.
// No heap allocation, saving and restoring are plain struct copies.
type Snapshot GameState

// Save returns a snapshot of the current game state.
func (g *GameState) Save() Snapshot { return Snapshot(*g) }

// Restore replaces the game state with the given snapshot.
func (g *GameState) Restore(s Snapshot) { *g = GameState(s) }
