// internal/game/engine_adapter.go
package game

import (
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
	"github.com/sirupsen/logrus"
)

// applyEngineAction applies a for the acting seat and emits the resulting
// events. The acting seat keeps the turn while a Seven is being split.
// Assumes lock is held by caller.
func (g *DogGame) applyEngineAction(actorID uuid.UUID, a *engine.Action) error {
	before := g.Engine
	seat := before.ActiveIdx
	if err := g.Engine.Apply(a); err != nil {
		g.logger().WithError(err).WithFields(logrus.Fields{"player": actorID, "action": a}).Debug("engine rejected action")
		return err
	}
	g.emitEventsForAction(actorID, seat, a, &before)

	if g.Engine.IsTerminal() {
		g.EndGame()
		return nil
	}
	if g.Engine.SevenActive() {
		g.persistSnapshot()
		g.sendLegalActions()
		return nil
	}
	g.onTurnAdvanced()
	return nil
}

// emitEventsForAction announces what a did. before is the state the action
// was applied to.
func (g *DogGame) emitEventsForAction(actorID uuid.UUID, seat uint8, a *engine.Action, before *engine.GameState) {
	s := int(seat)
	user := &EventUser{ID: actorID}
	switch {
	case a == nil:
		payload := map[string]interface{}{"discarded": before.Players[seat].HandLen}
		if before.SevenActive() {
			payload = map[string]interface{}{"sevenForfeited": before.SevenRemaining}
		}
		g.fireEvent(GameEvent{Type: EventPlayerSkip, User: user, Seat: &s, Payload: payload})
		g.logAction(actorID, string(EventPlayerSkip), payload)
	case before.InExchange():
		g.emitExchange(actorID, seat, *a)
	case before.SevenActive() || a.Effective().Rank() == engine.RankSeven:
		g.emitSevenStep(actorID, seat, *a, before)
	default:
		payload := map[string]interface{}{"sentHome": sentHome(before, &g.Engine)}
		g.fireEvent(GameEvent{Type: EventPlayerAction, User: user, Seat: &s, Action: a, Payload: payload})
		g.logAction(actorID, string(EventPlayerAction), map[string]interface{}{"action": a, "sentHome": payload["sentHome"]})
	}

	if g.Engine.Round != before.Round {
		g.fireEvent(GameEvent{Type: EventGameRoundStart, Payload: map[string]interface{}{
			"round":   g.Engine.Round,
			"starter": g.Engine.StarterIdx,
			"dealt":   g.Engine.Players[g.Engine.StarterIdx].HandLen,
		}})
		g.logAction(uuid.Nil, string(EventGameRoundStart), map[string]interface{}{"round": g.Engine.Round})
	}
	g.broadcastSyncStateToAll()
}

// sentHome lists the marbles that were on the track or a start cell in
// before and are back in a kennel in after.
func sentHome(before, after *engine.GameState) []map[string]int {
	out := []map[string]int{}
	for p := uint8(0); p < before.NumActivePlayers(); p++ {
		for i, m := range before.Players[p].Marbles {
			if engine.IsKennel(m.Pos) || !engine.IsKennel(after.Players[p].Marbles[i].Pos) {
				continue
			}
			out = append(out, map[string]int{"seat": int(p), "from": int(m.Pos)})
		}
	}
	return out
}

// beginTurn starts the turn of the acting seat without counting a new turn.
// Assumes lock is held by caller.
func (g *DogGame) beginTurn() {
	if !g.inProgress() {
		return
	}
	g.persistSnapshot()
	g.scheduleNextTurnTimer()
	g.broadcastPlayerTurn()
	g.sendLegalActions()
}

// onTurnAdvanced is called after the acting seat changed.
// Assumes lock is held by caller.
func (g *DogGame) onTurnAdvanced() {
	g.TurnID++
	g.beginTurn()
}

// scheduleNextTurnTimer arms the timer of the acting seat. A disconnected
// seat is played by the server after a short delay when the rules allow it.
// Assumes lock is held by caller.
func (g *DogGame) scheduleNextTurnTimer() {
	if g.turnTimer != nil {
		g.turnTimer.Stop()
		g.turnTimer = nil
	}
	if !g.inProgress() {
		return
	}

	playerID := g.currentPlayerID()
	delay := g.TurnDuration
	if p := g.getPlayerByID(playerID); p != nil && !p.Connected {
		// Seats that never connected wait for their player.
		if !g.HouseRules.AutoPlayDisconnected || !p.Joined {
			return
		}
		if delay <= 0 || delay > g.DisconnectedDelay {
			delay = g.DisconnectedDelay
		}
	}
	if delay <= 0 {
		return
	}

	turnID := g.TurnID
	g.turnTimer = time.AfterFunc(delay, func() {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		if g.inProgress() && g.TurnID == turnID {
			g.handleTimeout(playerID)
		}
	})
}

// handleTimeout plays the rest of playerID's turn with the timeout policy.
// Assumes lock is held by caller.
func (g *DogGame) handleTimeout(playerID uuid.UUID) {
	seat, ok := g.PlayerToSeat[playerID]
	if !ok || g.Engine.ActiveIdx != seat {
		return
	}
	s := int(seat)
	g.logger().WithField("player", playerID).Info("turn timed out")
	g.logAction(playerID, string(EventPlayerTimeout), map[string]interface{}{"turn": g.TurnID})
	g.fireEvent(GameEvent{Type: EventPlayerTimeout, User: &EventUser{ID: playerID}, Seat: &s})

	turn := g.TurnID
	for g.inProgress() && g.TurnID == turn {
		legal := g.Engine.ListActions()
		var choice *engine.Action
		if len(legal) > 0 {
			choice = g.timeoutPolicy.Choose(&g.Engine, legal)
		}
		if err := g.applyEngineAction(playerID, choice); err != nil {
			g.logger().WithError(err).Error("timeout policy produced an illegal action")
			return
		}
	}
}

// broadcastPlayerTurn announces the acting seat.
// Assumes lock is held by caller.
func (g *DogGame) broadcastPlayerTurn() {
	playerID := g.currentPlayerID()
	seat := int(g.Engine.ActiveIdx)
	payload := map[string]interface{}{
		"turn":       g.TurnID,
		"round":      g.Engine.Round,
		"exchange":   g.Engine.InExchange(),
		"durationMs": g.TurnDuration.Milliseconds(),
	}
	g.logger().WithFields(logrus.Fields{"player": playerID, "seat": seat}).Debug("turn starting")
	g.fireEvent(GameEvent{Type: EventGamePlayerTurn, User: &EventUser{ID: playerID}, Seat: &seat, Payload: payload})
	g.logAction(playerID, string(EventGamePlayerTurn), map[string]interface{}{"turn": g.TurnID, "seat": seat})
}

// sendLegalActions sends the acting player the actions they may submit.
// Assumes lock is held by caller.
func (g *DogGame) sendLegalActions() {
	legal := g.Engine.ListActions()
	g.fireEventToPlayer(g.currentPlayerID(), GameEvent{
		Type:    EventPrivateLegal,
		Actions: legal,
		Payload: map[string]interface{}{"mustSkip": len(legal) == 0, "turn": g.TurnID},
	})
}
