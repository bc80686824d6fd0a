// internal/game/game_test.go
package game

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
	"github.com/jason-s-yu/dog/engine/agent"
	"github.com/jason-s-yu/dog/service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster captures game events for assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[uuid.UUID][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[uuid.UUID][]GameEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID uuid.UUID, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[uuid.UUID][]GameEvent)
}

func (mb *mockBroadcaster) findEventByType(eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) countEvents(eventType GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.allEvents {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

func (mb *mockBroadcaster) findPlayerEvent(playerID uuid.UUID, eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

func newTestPlayers(n int) []*models.Player {
	players := make([]*models.Player, n)
	for i := range players {
		players[i] = &models.Player{
			ID:        uuid.New(),
			Connected: true,
			User:      &models.User{ID: uuid.New(), Username: "Player" + string(rune('A'+i))},
		}
	}
	return players
}

// setupTestGame seats n connected players and starts the match. A positive
// TurnTimerSec in rules becomes a 50ms turn timer.
func setupTestGame(t *testing.T, n int, rules *HouseRules) (*DogGame, []*models.Player, *mockBroadcaster) {
	t.Helper()
	r := DefaultHouseRules()
	r.TurnTimerSec = 0
	if rules != nil {
		r = *rules
	}
	g := NewDogGame(r)
	if r.TurnTimerSec > 0 {
		g.TurnDuration = 50 * time.Millisecond
	}
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	players := newTestPlayers(n)
	g.Mu.Lock()
	defer g.Mu.Unlock()
	for _, p := range players {
		require.NoError(t, g.AddPlayer(p))
	}
	require.NoError(t, g.Start(42))
	require.True(t, g.Started)
	mb.clear()
	return g, players, mb
}

func actingPlayer(g *DogGame) uuid.UUID { return g.SeatToPlayer[g.Engine.ActiveIdx] }

// playOne submits the first legal action of the acting player, or a skip.
func playOne(t *testing.T, g *DogGame) {
	t.Helper()
	id := actingPlayer(g)
	legal, err := g.LegalActions(id)
	require.NoError(t, err)
	var a *engine.Action
	if len(legal) > 0 {
		a = &legal[0]
	}
	require.NoError(t, g.ApplyAction(id, a))
}

func TestStartAnnouncesMatch(t *testing.T) {
	g := NewDogGame(DefaultHouseRules())
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	players := newTestPlayers(4)
	for _, p := range players {
		require.NoError(t, g.AddPlayer(p))
	}
	g.TurnDuration = 0
	require.NoError(t, g.Start(7))

	require.NotNil(t, mb.findEventByType(EventGameStart))
	turn := mb.findEventByType(EventGamePlayerTurn)
	require.NotNil(t, turn)
	assert.Equal(t, actingPlayer(g), turn.User.ID)
	assert.True(t, turn.Payload["exchange"].(bool), "four players start with the card exchange")

	for i, p := range players {
		assert.Equal(t, uint8(i), p.Seat)
		assert.Equal(t, p.User.Username, g.Engine.Players[i].Name)
		assert.NotNil(t, mb.findPlayerEvent(p.ID, EventPrivateSyncState), "player %d got no sync", i)
	}
	legal := mb.findPlayerEvent(actingPlayer(g), EventPrivateLegal)
	require.NotNil(t, legal)
	assert.NotEmpty(t, legal.Actions)
	assert.Equal(t, g.Engine.ListActions(), legal.Actions)

	assert.ErrorIs(t, g.Start(7), ErrStarted)
	assert.ErrorIs(t, g.AddPlayer(&models.Player{ID: uuid.New()}), ErrStarted)
}

func TestStartNeedsTwoPlayers(t *testing.T) {
	g := NewDogGame(DefaultHouseRules())
	require.NoError(t, g.AddPlayer(newTestPlayers(1)[0]))
	assert.ErrorIs(t, g.Start(1), ErrSeatCount)
	assert.False(t, g.Started)
}

func TestAddPlayerRejoinKeepsSeat(t *testing.T) {
	g := NewDogGame(DefaultHouseRules())
	players := newTestPlayers(2)
	for _, p := range players {
		require.NoError(t, g.AddPlayer(p))
	}
	again := &models.Player{ID: players[0].ID, Connected: true, User: &models.User{Username: "renamed"}}
	require.NoError(t, g.AddPlayer(again))
	require.Len(t, g.Players, 2)
	assert.Equal(t, "renamed", g.Players[0].User.Username)
	assert.Equal(t, uint8(0), g.Players[0].Seat)
}

func TestExchangeHidesCards(t *testing.T) {
	g, players, mb := setupTestGame(t, 4, nil)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	require.True(t, g.Engine.InExchange())
	for i := 0; i < 4; i++ {
		playOne(t, g)
	}
	assert.False(t, g.Engine.InExchange())
	assert.Equal(t, 4, g.TurnID)
	assert.Equal(t, 4, mb.countEvents(EventPlayerExchange))

	ev := mb.findEventByType(EventPlayerExchange)
	require.NotNil(t, ev)
	assert.Nil(t, ev.Action, "public exchange event must not reveal the card")
	assert.True(t, ev.Payload["complete"].(bool))

	for _, p := range players {
		priv := mb.findPlayerEvent(p.ID, EventPrivateExchange)
		require.NotNil(t, priv, "player %s", p.User.Username)
		assert.NotNil(t, priv.Action)
		assert.Equal(t, 6, int(g.Engine.Players[p.Seat].HandLen), "exchange keeps hand sizes")
	}
}

func TestActionRejections(t *testing.T) {
	g, players, mb := setupTestGame(t, 4, nil)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	before := g.Engine
	acting := actingPlayer(g)
	var other uuid.UUID
	for _, p := range players {
		if p.ID != acting {
			other = p.ID
			break
		}
	}

	legal, err := g.LegalActions(other)
	require.NoError(t, err)
	assert.Empty(t, legal, "no actions off turn")

	g.HandlePlayerAction(other, models.GameAction{ActionType: models.ActionPlay, Action: &engine.Action{Card: engine.Joker(), From: engine.NoPos, To: engine.NoPos, CardSwap: engine.EmptyCard}})
	fail := mb.findPlayerEvent(other, EventPrivateActionFail)
	require.NotNil(t, fail)
	assert.Equal(t, ErrNotYourTurn.Error(), fail.Payload["message"])

	bogus := engine.NewAction(engine.Joker(), 0, 5)
	err = g.ApplyAction(acting, &bogus)
	assert.True(t, errors.Is(err, engine.ErrInvalidAction), "got %v", err)

	assert.ErrorIs(t, g.ApplyAction(acting, nil), engine.ErrInvalidAction, "cannot skip with legal actions")
	assert.ErrorIs(t, g.ApplyAction(uuid.New(), nil), ErrUnknownSeat)

	g.HandlePlayerAction(acting, models.GameAction{ActionType: "dance"})
	require.NotNil(t, mb.findPlayerEvent(acting, EventPrivateActionFail))

	assert.Equal(t, before, g.Engine, "rejected requests leave the state unchanged")
	assert.Zero(t, g.TurnID)
}

func TestSyncRequest(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	g.HandlePlayerAction(players[1].ID, models.GameAction{ActionType: models.ActionSync})
	ev := mb.findPlayerEvent(players[1].ID, EventPrivateSyncState)
	require.NotNil(t, ev)
	require.NotNil(t, ev.State)
	assert.Equal(t, g.ID, ev.State.GameID)
}

func TestObfuscatedStateMasksOtherHands(t *testing.T) {
	g, players, _ := setupTestGame(t, 4, nil)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	for _, p := range players {
		obf := g.GetCurrentObfuscatedGameState(p.ID)
		require.Len(t, obf.Players, 4)
		require.NotNil(t, obf.View)
		for _, ps := range obf.Players {
			if ps.PlayerID == p.ID {
				assert.Equal(t, g.Engine.HandOf(p.Seat), ps.RevealedHand)
			} else {
				assert.Nil(t, ps.RevealedHand)
				for _, c := range obf.View.HandOf(ps.Seat) {
					assert.Equal(t, engine.HiddenCard, c)
				}
			}
			assert.Equal(t, 6, ps.HandSize)
		}
		assert.Zero(t, obf.View.RNG)
		if p.ID == actingPlayer(g) {
			assert.NotEmpty(t, obf.LegalActions)
		} else {
			assert.Empty(t, obf.LegalActions)
		}
	}

	spectator := g.GetCurrentObfuscatedGameState(uuid.New())
	for _, ps := range spectator.Players {
		assert.Nil(t, ps.RevealedHand)
	}
	assert.Equal(t, engine.HiddenCard, spectator.View.HandOf(0)[0])
}

func TestSevenKeepsTheTurn(t *testing.T) {
	g, _, mb := setupTestGame(t, 4, nil)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	// Play until some player can start a Seven that leaves steps to spend.
	for step := 0; step < 5000 && !g.GameOver; step++ {
		legal := g.Engine.ListActions()
		for i := range legal {
			if g.Engine.InExchange() || legal[i].Effective().Rank() != engine.RankSeven {
				continue
			}
			probe := g.Engine
			require.NoError(t, probe.Apply(&legal[i]))
			if !probe.SevenActive() {
				continue
			}

			mover, turn := actingPlayer(g), g.TurnID
			mb.clear()
			require.NoError(t, g.ApplyAction(mover, &legal[i]))
			assert.Equal(t, mover, actingPlayer(g), "the Seven is still being split")
			assert.Equal(t, turn, g.TurnID)
			ev := mb.findEventByType(EventPlayerSevenStep)
			require.NotNil(t, ev)
			assert.Equal(t, g.Engine.SevenRemaining, ev.Payload["remaining"])
			assert.False(t, ev.Payload["done"].(bool))
			next := mb.findPlayerEvent(mover, EventPrivateLegal)
			require.NotNil(t, next)
			assert.Equal(t, g.Engine.ListActions(), next.Actions)

			for g.Engine.SevenActive() {
				playOne(t, g)
			}
			assert.Equal(t, turn+1, g.TurnID)
			return
		}
		playOne(t, g)
	}
	t.Fatal("no multi-step Seven came up")
}

func TestMatchPlaysToTheEnd(t *testing.T) {
	g, players, mb := setupTestGame(t, 4, nil)
	var endWinners []uuid.UUID
	var endScores map[uuid.UUID]float32
	g.OnGameEnd = func(_ uuid.UUID, winners []uuid.UUID, scores map[uuid.UUID]float32) {
		endWinners, endScores = winners, scores
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()

	policy := agent.GreedyPolicy{}
	for step := 0; step < 100000 && !g.GameOver; step++ {
		id := actingPlayer(g)
		legal, err := g.LegalActions(id)
		require.NoError(t, err)
		var a *engine.Action
		if len(legal) > 0 {
			a = policy.Choose(&g.Engine, legal)
		}
		require.NoError(t, g.ApplyAction(id, a))
	}
	require.True(t, g.GameOver, "match did not finish")
	require.True(t, g.Engine.IsTerminal())

	ev := mb.findEventByType(EventGameEnd)
	require.NotNil(t, ev)
	assert.False(t, ev.Payload["abandoned"].(bool))
	require.Len(t, endWinners, 2)
	for _, p := range players {
		won := p.ID == endWinners[0] || p.ID == endWinners[1]
		if won {
			assert.Equal(t, float32(1), endScores[p.ID])
		} else {
			assert.Equal(t, float32(-1), endScores[p.ID])
		}
	}
	assert.Equal(t, g.Engine.Partner(g.PlayerToSeat[endWinners[0]]), g.PlayerToSeat[endWinners[1]])

	assert.ErrorIs(t, g.ApplyAction(players[0].ID, nil), ErrAlreadyOver)
}

func TestTimeoutPlaysForThePlayer(t *testing.T) {
	rules := DefaultHouseRules()
	rules.TurnTimerSec = 1
	g, _, mb := setupTestGame(t, 4, &rules)

	require.Eventually(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.TurnID >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotNil(t, mb.findEventByType(EventPlayerTimeout))
	assert.NotNil(t, mb.findEventByType(EventPlayerExchange))

	g.Mu.Lock()
	g.EndGame()
	g.Mu.Unlock()
}

func TestDisconnectedSeatIsAutoPlayed(t *testing.T) {
	g, _, mb := setupTestGame(t, 2, nil)
	g.Mu.Lock()
	g.DisconnectedDelay = 100 * time.Millisecond
	first := actingPlayer(g)
	g.HandleDisconnect(first, nil)
	g.Mu.Unlock()

	require.Eventually(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.TurnID >= 1
	}, 2*time.Second, 20*time.Millisecond)

	ev := mb.findEventByType(EventPlayerTimeout)
	require.NotNil(t, ev)
	assert.Equal(t, first, ev.User.ID)

	g.Mu.Lock()
	defer g.Mu.Unlock()
	g.HandleReconnect(first, nil)
	assert.True(t, g.getPlayerByID(first).Connected)
	assert.NotNil(t, mb.findPlayerEvent(first, EventPrivateSyncState))
	g.EndGame()
}

func TestUnjoinedSeatIsNotAutoPlayed(t *testing.T) {
	g := NewDogGame(DefaultHouseRules())
	g.TurnDuration = 0
	g.DisconnectedDelay = 20 * time.Millisecond
	mb := newMockBroadcaster()
	g.BroadcastFn = mb.broadcastFn
	g.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	g.Mu.Lock()
	for i := 0; i < 2; i++ {
		p := &models.Player{ID: uuid.New(), User: &models.User{ID: uuid.New(), Username: "idle"}}
		require.NoError(t, g.AddPlayer(p))
		assert.False(t, p.Joined)
	}
	require.NoError(t, g.Start(42))
	g.Mu.Unlock()

	assert.Never(t, func() bool {
		g.Mu.Lock()
		defer g.Mu.Unlock()
		return g.TurnID > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
	assert.Nil(t, mb.findEventByType(EventPlayerTimeout))

	g.Mu.Lock()
	defer g.Mu.Unlock()
	first := actingPlayer(g)
	g.HandleReconnect(first, nil)
	assert.True(t, g.getPlayerByID(first).Joined)
	g.EndGame()
}

func TestEveryoneLeavingAbandonsTheMatch(t *testing.T) {
	g, players, mb := setupTestGame(t, 2, nil)
	ended := false
	g.OnGameEnd = func(_ uuid.UUID, winners []uuid.UUID, _ map[uuid.UUID]float32) {
		ended = true
		assert.Empty(t, winners)
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()

	for _, p := range players {
		g.HandleDisconnect(p.ID, p.Conn)
	}
	assert.True(t, g.GameOver)
	assert.True(t, ended)
	ev := mb.findEventByType(EventGameEnd)
	require.NotNil(t, ev)
	assert.True(t, ev.Payload["abandoned"].(bool))
}

func TestResume(t *testing.T) {
	g, _, mb := setupTestGame(t, 4, nil)
	g.Mu.Lock()
	defer g.Mu.Unlock()

	for i := 0; i < 10; i++ {
		playOne(t, g)
	}
	saved := g.State()

	broken := saved
	broken.Players[0].Marbles[0] = broken.Players[0].Marbles[1]
	assert.ErrorIs(t, g.Resume(broken), ErrStateInvalid)

	other := engine.NewMatch(2, 1)
	assert.ErrorIs(t, g.Resume(other), ErrStateInvalid, "seat count mismatch")

	for i := 0; i < 5; i++ {
		playOne(t, g)
	}
	mb.clear()
	require.NoError(t, g.Resume(saved))
	assert.Equal(t, saved, g.Engine)
	assert.NotNil(t, mb.findEventByType(EventGamePlayerTurn))
}
