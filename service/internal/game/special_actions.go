// internal/game/special_actions.go
package game

import (
	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
)

// emitExchange announces a card given to the partner. Only the giver learns
// which card it was; the partner sees it in their hand once every seat has
// given.
func (g *DogGame) emitExchange(actorID uuid.UUID, seat uint8, a engine.Action) {
	s := int(seat)
	done := !g.Engine.InExchange()
	g.fireEvent(GameEvent{
		Type:    EventPlayerExchange,
		User:    &EventUser{ID: actorID},
		Seat:    &s,
		Payload: map[string]interface{}{"complete": done},
	})
	g.fireEventToPlayer(actorID, GameEvent{
		Type:    EventPrivateExchange,
		Seat:    &s,
		Action:  &a,
		Payload: map[string]interface{}{"partner": g.SeatToPlayer[g.Engine.Partner(seat)]},
	})
	g.logAction(actorID, string(EventPlayerExchange), map[string]interface{}{"card": a.Card.String(), "complete": done})
}

// emitSevenStep announces one step of a split Seven. remaining is the budget
// left for the next step and is zero once the card is done.
func (g *DogGame) emitSevenStep(actorID uuid.UUID, seat uint8, a engine.Action, before *engine.GameState) {
	s := int(seat)
	payload := map[string]interface{}{
		"first":     !before.SevenActive(),
		"remaining": g.Engine.SevenRemaining,
		"done":      !g.Engine.SevenActive(),
		"sentHome":  sentHome(before, &g.Engine),
	}
	g.fireEvent(GameEvent{Type: EventPlayerSevenStep, User: &EventUser{ID: actorID}, Seat: &s, Action: &a, Payload: payload})
	g.logAction(actorID, string(EventPlayerSevenStep), map[string]interface{}{"action": &a, "remaining": g.Engine.SevenRemaining})
}
