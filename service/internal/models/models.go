// Package models holds the service-level types shared by the game, the
// transport and the persistence layers.
package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
)

// User is the account-level identity behind a seat.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Player is a seated participant of one match.
type Player struct {
	ID        uuid.UUID       // Player id; also the subject of the seat token.
	User      *User           // Display identity.
	Seat      uint8           // Engine seat index, assigned when the match starts.
	Conn      *websocket.Conn // Live connection, nil while disconnected.
	Connected bool
	Joined    bool // Set once the seat has connected at least once.
}

// GameActionType names a client request.
type GameActionType string

const (
	// ActionPlay submits an engine action; a null action skips a turn without legal moves.
	ActionPlay GameActionType = "action"
	// ActionSync asks for a fresh private state.
	ActionSync GameActionType = "sync"
)

// GameAction is a request sent by a client over the websocket.
type GameAction struct {
	ActionType GameActionType `json:"type"`
	Action     *engine.Action `json:"action,omitempty"`
}
