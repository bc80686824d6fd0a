package engine

// HouseRules holds configurable game rule settings.
type HouseRules struct {
	NumPlayers      uint8    `json:"num_players"`      // number of seated players (2–4); 0 treated as 4
	DealSchedule    [5]uint8 `json:"deal_schedule"`    // cards dealt in rounds 1..5, then repeating
	CardExchange    bool     `json:"card_exchange"`    // partners swap one card at the start of each round (four players only)
	FullHandRounds  bool     `json:"full_hand_rounds"` // if true, a round lasts until every hand is empty instead of one turn per player
	CheckInvariants bool     `json:"check_invariants"` // verify state invariants after every applied action
}

// DefaultHouseRules returns the standard Dog rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		NumPlayers:      4,
		DealSchedule:    [5]uint8{6, 5, 4, 3, 2},
		CardExchange:    true,
		FullHandRounds:  false,
		CheckInvariants: true,
	}
}

// numPlayers returns the effective number of players, treating 0 as 4.
func (r *HouseRules) numPlayers() uint8 {
	if r.NumPlayers == 0 || r.NumPlayers > MaxPlayers {
		return MaxPlayers
	}
	return r.NumPlayers
}

// dealSize returns how many cards each player receives in round (1-based).
func (r *HouseRules) dealSize(round uint16) uint8 {
	if round == 0 {
		round = 1
	}
	n := r.DealSchedule[(round-1)%uint16(len(r.DealSchedule))]
	if n > MaxHandSize {
		return MaxHandSize
	}
	return n
}

// exchangeEnabled reports whether the per-round card exchange takes place.
func (r *HouseRules) exchangeEnabled() bool {
	return r.CardExchange && r.numPlayers() == MaxPlayers
}
