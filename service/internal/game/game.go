// internal/game/game.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
	"github.com/jason-s-yu/dog/engine/agent"
	"github.com/jason-s-yu/dog/service/internal/cache"
	"github.com/jason-s-yu/dog/service/internal/database"
	"github.com/jason-s-yu/dog/service/internal/models"
	"github.com/sirupsen/logrus"
)

// OnGameEndFunc is called once a match has finished or been abandoned.
// winners is empty for an abandoned match.
type OnGameEndFunc func(gameID uuid.UUID, winners []uuid.UUID, scores map[uuid.UUID]float32)

// GameEventType names an event sent to clients.
type GameEventType string

const (
	EventGameStart         GameEventType = "game_start"          // Public: match dealt and seats assigned.
	EventGameRoundStart    GameEventType = "game_round_start"    // Public: a new round was dealt.
	EventGamePlayerTurn    GameEventType = "game_player_turn"    // Public: the acting seat changed.
	EventPlayerAction      GameEventType = "player_action"       // Public: a card was played.
	EventPlayerSevenStep   GameEventType = "player_seven_step"   // Public: one step of a split Seven.
	EventPlayerExchange    GameEventType = "player_exchange"     // Public: a seat gave its exchange card (card hidden).
	EventPlayerSkip        GameEventType = "player_skip"         // Public: a seat without legal moves discarded its hand.
	EventPlayerTimeout     GameEventType = "player_timeout"      // Public: the server played for a seat.
	EventPrivateExchange   GameEventType = "private_exchange"    // Private: the card the player gave.
	EventPrivateLegal      GameEventType = "private_legal"       // Private: legal actions of the acting player.
	EventPrivateActionFail GameEventType = "private_action_fail" // Private: a request was rejected.
	EventPrivateSyncState  GameEventType = "private_sync_state"  // Private: full masked state.
	EventGameEnd           GameEventType = "game_end"            // Public: match finished, includes results.
)

// EventUser identifies a user within a GameEvent.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// GameEvent is the envelope of every message sent to clients.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	User    *EventUser             `json:"user,omitempty"`
	Seat    *int                   `json:"seat,omitempty"`
	Action  *engine.Action         `json:"action,omitempty"`
	Actions []engine.Action        `json:"actions,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *ObfGameState          `json:"state,omitempty"`
}

// HouseRules are the service settings of a match on top of the engine rules.
type HouseRules struct {
	TurnTimerSec         int               `json:"turnTimerSec"`         // 0 disables the turn timer
	AutoPlayDisconnected bool              `json:"autoPlayDisconnected"` // the server plays the turns of disconnected seats
	DisconnectGraceSec   int               `json:"disconnectGraceSec"`   // wait before playing for a disconnected seat
	Engine               engine.HouseRules `json:"engine"`
}

// DefaultHouseRules returns the standard match settings.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		TurnTimerSec:         30,
		AutoPlayDisconnected: true,
		DisconnectGraceSec:   10,
		Engine:               engine.DefaultHouseRules(),
	}
}

var (
	ErrNotStarted   = errors.New("match has not started")
	ErrStarted      = errors.New("match already in progress")
	ErrAlreadyOver  = errors.New("match is over")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrUnknownSeat  = errors.New("player is not seated in this match")
	ErrSeatCount    = errors.New("a match needs two to four players")
	ErrStateInvalid = errors.New("state cannot be resumed")
)

// DogGame is one match: the engine state plus seats, connections, turn timer
// and the event plumbing around it. Methods documented as assuming the lock
// expect the caller to hold Mu.
type DogGame struct {
	ID         uuid.UUID
	HouseRules HouseRules

	Players []*models.Player

	Engine       engine.GameState // Authoritative state.
	Seed         uint64
	PlayerToSeat map[uuid.UUID]uint8
	SeatToPlayer [engine.MaxPlayers]uuid.UUID

	TurnID       int           // Increments whenever the acting seat changes.
	TurnDuration time.Duration // 0 disables the timer.
	// DisconnectedDelay is how long a disconnected seat is waited for before
	// the server plays its turn.
	DisconnectedDelay time.Duration
	SnapshotTTL       time.Duration // Lifetime of the cached snapshot.
	turnTimer         *time.Timer
	actionIndex       int

	Started  bool
	GameOver bool

	// timeoutPolicy plays for timed-out and disconnected seats.
	timeoutPolicy agent.Policy

	Mu sync.Mutex

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc
}

// NewDogGame creates an empty match with the given rules.
func NewDogGame(rules HouseRules) *DogGame {
	return &DogGame{
		ID:                uuid.New(),
		HouseRules:        rules,
		PlayerToSeat:      make(map[uuid.UUID]uint8),
		TurnDuration:      time.Duration(rules.TurnTimerSec) * time.Second,
		DisconnectedDelay: time.Duration(max(rules.DisconnectGraceSec, 1)) * time.Second,
		SnapshotTTL:       24 * time.Hour,
		timeoutPolicy:     agent.GreedyPolicy{},
	}
}

func (g *DogGame) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"game": g.ID, "turn": g.TurnID})
}

// AddPlayer seats p, or refreshes the connection of an already seated player.
// New players are rejected once the match has started.
// Assumes lock is held by caller.
func (g *DogGame) AddPlayer(p *models.Player) error {
	for _, pl := range g.Players {
		if pl.ID == p.ID {
			pl.Conn = p.Conn
			pl.Connected = p.Conn != nil || p.Connected
			pl.Joined = pl.Joined || pl.Connected
			if p.User != nil {
				pl.User = p.User
			}
			g.logAction(p.ID, "player_rejoin", nil)
			return nil
		}
	}
	if g.Started {
		if p.Conn != nil {
			p.Conn.Close(websocket.StatusPolicyViolation, "match already in progress")
		}
		return fmt.Errorf("adding %s: %w", p.ID, ErrStarted)
	}
	if len(g.Players) == engine.MaxPlayers {
		return fmt.Errorf("adding %s: %w", p.ID, ErrSeatCount)
	}
	p.Seat = uint8(len(g.Players))
	p.Joined = p.Joined || p.Connected || p.Conn != nil
	g.Players = append(g.Players, p)
	g.logger().WithFields(logrus.Fields{"player": p.ID, "seat": p.Seat}).Info("player seated")
	g.logAction(p.ID, "player_add", map[string]interface{}{"seat": p.Seat, "username": username(p)})
	return nil
}

// Start deals the match with seed and gives the first turn.
// Assumes lock is held by caller.
func (g *DogGame) Start(seed uint64) error {
	if g.Started {
		return ErrStarted
	}
	n := len(g.Players)
	if n < 2 || n > engine.MaxPlayers {
		return ErrSeatCount
	}

	rules := g.HouseRules.Engine
	rules.NumPlayers = uint8(n)
	g.Seed = seed
	g.Engine = engine.NewGame(seed, rules)
	g.bindSeats()
	g.Engine.Deal()
	g.Started = true

	g.logger().WithFields(logrus.Fields{"players": n, "seed": seed}).Info("match started")
	g.logAction(uuid.Nil, string(EventGameStart), map[string]interface{}{"players": n, "seed": seed})
	g.persistInitialGameState()

	seats := make(map[string]interface{}, n)
	for _, p := range g.Players {
		seats[p.ID.String()] = p.Seat
	}
	g.fireEvent(GameEvent{Type: EventGameStart, Payload: map[string]interface{}{"seats": seats}})
	g.broadcastSyncStateToAll()
	g.beginTurn()
	return nil
}

// Resume replaces the engine state with state, typically a stored snapshot,
// and continues the match from it.
// Assumes lock is held by caller.
func (g *DogGame) Resume(state engine.GameState) error {
	if g.GameOver {
		return ErrAlreadyOver
	}
	if int(state.NumActivePlayers()) != len(g.Players) {
		return fmt.Errorf("%w: state has %d seats, match has %d players", ErrStateInvalid, state.NumActivePlayers(), len(g.Players))
	}
	if state.Phase != engine.PhaseRunning {
		return fmt.Errorf("%w: phase %s", ErrStateInvalid, state.Phase)
	}
	if err := state.CheckInvariants(); err != nil {
		return fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}
	g.Engine = state
	g.bindSeats()
	g.Started = true
	g.logAction(uuid.Nil, "game_resume", map[string]interface{}{"hash": fmt.Sprintf("%016x", state.StateHash())})
	g.broadcastSyncStateToAll()
	g.beginTurn()
	return nil
}

// bindSeats maps players to engine seats and copies their names into the state.
func (g *DogGame) bindSeats() {
	g.PlayerToSeat = make(map[uuid.UUID]uint8, len(g.Players))
	g.SeatToPlayer = [engine.MaxPlayers]uuid.UUID{}
	for i, p := range g.Players {
		p.Seat = uint8(i)
		g.PlayerToSeat[p.ID] = p.Seat
		g.SeatToPlayer[p.Seat] = p.ID
		g.Engine.Players[p.Seat].Name = username(p)
	}
}

// State returns a copy of the authoritative engine state.
// Assumes lock is held by caller.
func (g *DogGame) State() engine.GameState { return g.Engine }

// LegalActions returns the actions playerID may submit now; empty when it is
// not their turn.
// Assumes lock is held by caller.
func (g *DogGame) LegalActions(playerID uuid.UUID) ([]engine.Action, error) {
	seat, ok := g.PlayerToSeat[playerID]
	if !ok {
		return nil, ErrUnknownSeat
	}
	if !g.inProgress() || g.Engine.ActiveIdx != seat {
		return nil, nil
	}
	return g.Engine.ListActions(), nil
}

// HandlePlayerAction routes a client request. Rejections are reported to the
// player as EventPrivateActionFail.
// Assumes lock is held by caller.
func (g *DogGame) HandlePlayerAction(playerID uuid.UUID, req models.GameAction) {
	switch req.ActionType {
	case models.ActionSync:
		g.sendSyncState(playerID)
	case models.ActionPlay:
		if err := g.ApplyAction(playerID, req.Action); err != nil {
			g.failAction(playerID, err)
		}
	default:
		g.failAction(playerID, fmt.Errorf("unknown request type %q", req.ActionType))
	}
}

// ApplyAction plays a for playerID. A nil action skips a turn that has no
// legal action.
// Assumes lock is held by caller.
func (g *DogGame) ApplyAction(playerID uuid.UUID, a *engine.Action) error {
	seat, ok := g.PlayerToSeat[playerID]
	switch {
	case !ok:
		return ErrUnknownSeat
	case g.GameOver:
		return ErrAlreadyOver
	case !g.Started:
		return ErrNotStarted
	case g.Engine.ActiveIdx != seat:
		return ErrNotYourTurn
	}
	return g.applyEngineAction(playerID, a)
}

func (g *DogGame) inProgress() bool { return g.Started && !g.GameOver && !g.Engine.IsTerminal() }

func (g *DogGame) failAction(playerID uuid.UUID, err error) {
	g.logger().WithError(err).WithField("player", playerID).Debug("action rejected")
	g.fireEventToPlayer(playerID, GameEvent{
		Type:    EventPrivateActionFail,
		Payload: map[string]interface{}{"message": err.Error()},
	})
}

// fireEvent broadcasts ev to every connected player.
// Assumes lock is held by caller.
func (g *DogGame) fireEvent(ev GameEvent) {
	if g.BroadcastFn == nil {
		g.logger().WithField("event", ev.Type).Warn("BroadcastFn is nil")
		return
	}
	g.BroadcastFn(ev)
}

// fireEventToPlayer sends ev to playerID if they are connected.
// Assumes lock is held by caller.
func (g *DogGame) fireEventToPlayer(playerID uuid.UUID, ev GameEvent) {
	if g.BroadcastToPlayerFn == nil {
		g.logger().WithField("event", ev.Type).Warn("BroadcastToPlayerFn is nil")
		return
	}
	if p := g.getPlayerByID(playerID); p != nil && p.Connected {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// HandleDisconnect marks playerID as disconnected when conn is still the
// player's live connection; a stale connection closing after a reconnect is
// ignored. A match with nobody left connected is abandoned.
// Assumes lock is held by caller.
func (g *DogGame) HandleDisconnect(playerID uuid.UUID, conn *websocket.Conn) {
	p := g.getPlayerByID(playerID)
	if p == nil || !p.Connected || p.Conn != conn {
		return
	}
	p.Connected = false
	p.Conn = nil
	g.logger().WithField("player", playerID).Info("player disconnected")
	g.logAction(playerID, "player_disconnect", nil)

	if !g.inProgress() {
		return
	}
	if g.countConnectedPlayers() == 0 {
		g.EndGame()
		return
	}
	g.broadcastSyncStateToAll()
	if g.currentPlayerID() == playerID {
		g.scheduleNextTurnTimer()
	}
}

// HandleReconnect attaches conn to playerID and sends them the current state.
// Assumes lock is held by caller.
func (g *DogGame) HandleReconnect(playerID uuid.UUID, conn *websocket.Conn) {
	p := g.getPlayerByID(playerID)
	if p == nil {
		g.logger().WithField("player", playerID).Warn("reconnect for unknown player")
		if conn != nil {
			conn.Close(websocket.StatusPolicyViolation, "not seated in this match")
		}
		return
	}
	p.Conn = conn
	p.Connected = true
	p.Joined = true
	g.logAction(playerID, "player_reconnect", map[string]interface{}{"username": username(p)})

	g.sendSyncState(playerID)
	if g.inProgress() && g.currentPlayerID() == playerID {
		g.scheduleNextTurnTimer()
		g.sendLegalActions()
	}
}

// EndGame finishes the match: it stops the timer, announces the result and
// persists the final state. A match ended before a team finished is
// recorded as abandoned.
// Assumes lock is held by caller.
func (g *DogGame) EndGame() {
	if g.GameOver {
		return
	}
	g.GameOver = true
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}

	abandoned := !g.Engine.IsTerminal()
	var winners []uuid.UUID
	if !abandoned {
		for _, seat := range g.Engine.Winners() {
			winners = append(winners, g.SeatToPlayer[seat])
		}
	}
	utilities := g.Engine.Utilities()
	scores := make(map[uuid.UUID]float32, len(g.Players))
	progress := make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		scores[p.ID] = utilities[p.Seat]
		progress[p.ID.String()] = g.Engine.Progress(p.Seat)
	}
	scoresOut := make(map[string]float32, len(scores))
	for id, s := range scores {
		scoresOut[id.String()] = s
	}

	payload := map[string]interface{}{
		"winners":    winners,
		"winnerTeam": g.Engine.WinnerTeam,
		"scores":     scoresOut,
		"progress":   progress,
		"abandoned":  abandoned,
		"rounds":     g.Engine.Round,
	}
	g.logger().WithFields(logrus.Fields{"winners": winners, "abandoned": abandoned}).Info("match over")
	g.fireEvent(GameEvent{Type: EventGameEnd, Payload: payload})
	g.broadcastSyncStateToAll()
	g.logAction(uuid.Nil, string(EventGameEnd), payload)
	g.persistFinalGameState(payload)

	if g.OnGameEnd != nil {
		g.OnGameEnd(g.ID, winners, scores)
	}
}

// persistInitialGameState stores the dealt state in the database.
func (g *DogGame) persistInitialGameState() {
	if database.DB == nil {
		return
	}
	snap := struct {
		Seed  uint64           `json:"seed,string"`
		Seats []uuid.UUID      `json:"seats"`
		State engine.GameState `json:"state"`
	}{g.Seed, g.SeatToPlayer[:len(g.Players)], g.Engine}
	go database.UpsertInitialGameState(g.ID, snap)
}

// persistFinalGameState stores the final state and results in the database.
func (g *DogGame) persistFinalGameState(results map[string]interface{}) {
	if database.DB == nil {
		return
	}
	snap := struct {
		Results map[string]interface{} `json:"results"`
		State   engine.GameState       `json:"state"`
	}{results, g.Engine}
	id := g.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreFinalGameStateInDB(ctx, id, snap); err != nil {
			logrus.WithError(err).WithField("game", id).Error("storing final state")
		}
	}()
}

// persistSnapshot caches the current state so a match can be resumed.
func (g *DogGame) persistSnapshot() {
	if cache.Rdb == nil {
		return
	}
	id, turn, state, ttl := g.ID, g.TurnID, g.Engine, g.SnapshotTTL
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.SaveGameSnapshot(ctx, id, turn, state, ttl); err != nil {
			logrus.WithError(err).WithField("game", id).Warn("caching snapshot")
		}
	}()
}

// logAction publishes an action record to the Redis action log.
// Assumes lock is held by caller.
func (g *DogGame) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if cache.Rdb == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameID:        g.ID,
		ActionIndex:   g.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"game":   rec.GameID,
				"index":  rec.ActionIndex,
				"action": rec.ActionType,
			}).Error("publishing action")
		}
	}()
}

func (g *DogGame) getPlayerByID(id uuid.UUID) *models.Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *DogGame) countConnectedPlayers() int {
	n := 0
	for _, p := range g.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (g *DogGame) currentPlayerID() uuid.UUID { return g.SeatToPlayer[g.Engine.ActiveIdx] }

func username(p *models.Player) string {
	if p.User == nil {
		return ""
	}
	return p.User.Username
}
