// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
)

// ObfPlayerState is one seat as seen by the requesting player.
type ObfPlayerState struct {
	PlayerID      uuid.UUID     `json:"playerId"`
	Username      string        `json:"username"`
	Seat          uint8         `json:"seat"`
	HandSize      int           `json:"handSize"`
	Progress      int           `json:"progress"`
	Connected     bool          `json:"connected"`
	IsCurrentTurn bool          `json:"isCurrentTurn"`
	RevealedHand  []engine.Card `json:"revealedHand,omitempty"` // self only
}

// ObfGameState is the match as seen by one player. View is the engine state
// with every hidden card masked.
type ObfGameState struct {
	GameID          uuid.UUID         `json:"gameId"`
	Started         bool              `json:"started"`
	GameOver        bool              `json:"gameOver"`
	CurrentPlayerID uuid.UUID         `json:"currentPlayerId"`
	TurnID          int               `json:"turnId"`
	Round           uint16            `json:"round"`
	InExchange      bool              `json:"inExchange"`
	DrawSize        int               `json:"drawSize"`
	DiscardSize     int               `json:"discardSize"`
	DiscardTop      *engine.Card      `json:"discardTop,omitempty"`
	ActiveCard      *engine.Card      `json:"activeCard,omitempty"`
	SevenRemaining  int               `json:"sevenRemaining"`
	Players         []ObfPlayerState  `json:"players"`
	LegalActions    []engine.Action   `json:"legalActions,omitempty"`
	HouseRules      HouseRules        `json:"houseRules"`
	View            *engine.GameState `json:"view,omitempty"`
}

// GetCurrentObfuscatedGameState builds the state forUser may see. Users who
// are not seated see every hand face down.
// Assumes lock is held by caller.
func (g *DogGame) GetCurrentObfuscatedGameState(forUser uuid.UUID) ObfGameState {
	viewer, seated := g.PlayerToSeat[forUser]
	if !seated {
		viewer = engine.MaxPlayers
	}
	obf := ObfGameState{
		GameID:     g.ID,
		Started:    g.Started,
		GameOver:   g.GameOver || g.Engine.IsTerminal(),
		TurnID:     g.TurnID,
		HouseRules: g.HouseRules,
		Players:    make([]ObfPlayerState, 0, len(g.Players)),
	}
	if !g.Started {
		for _, p := range g.Players {
			obf.Players = append(obf.Players, ObfPlayerState{PlayerID: p.ID, Username: username(p), Seat: p.Seat, Connected: p.Connected})
		}
		return obf
	}

	e := &g.Engine
	obf.CurrentPlayerID = g.currentPlayerID()
	obf.Round = e.Round
	obf.InExchange = e.InExchange()
	obf.DrawSize = int(e.DrawLen)
	obf.DiscardSize = int(e.DiscardLen)
	if top := e.DiscardTop(); top != engine.EmptyCard {
		obf.DiscardTop = &top
	}
	if e.SevenActive() {
		active := e.ActiveCard
		obf.ActiveCard = &active
		obf.SevenRemaining = int(e.SevenRemaining)
	}
	view := e.MaskedView(viewer)
	obf.View = &view

	for _, p := range g.Players {
		ps := ObfPlayerState{
			PlayerID:      p.ID,
			Username:      username(p),
			Seat:          p.Seat,
			HandSize:      int(e.Players[p.Seat].HandLen),
			Progress:      e.Progress(p.Seat),
			Connected:     p.Connected,
			IsCurrentTurn: !obf.GameOver && p.Seat == e.ActiveIdx,
		}
		if p.ID == forUser {
			ps.RevealedHand = e.HandOf(p.Seat)
		}
		obf.Players = append(obf.Players, ps)
	}
	if seated && !obf.GameOver && viewer == e.ActiveIdx {
		obf.LegalActions = e.ListActions()
	}
	return obf
}

// sendSyncState sends playerID their current view.
// Assumes lock is held by caller.
func (g *DogGame) sendSyncState(playerID uuid.UUID) {
	state := g.GetCurrentObfuscatedGameState(playerID)
	g.fireEventToPlayer(playerID, GameEvent{Type: EventPrivateSyncState, State: &state})
}

// broadcastSyncStateToAll sends every connected player their view.
// Assumes lock is held by caller.
func (g *DogGame) broadcastSyncStateToAll() {
	for _, p := range g.Players {
		if p.Connected {
			g.sendSyncState(p.ID)
		}
	}
}
