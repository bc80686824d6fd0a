// Package handlers exposes matches over HTTP and websockets.
package handlers

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/dog/service/internal/auth"
	"github.com/jason-s-yu/dog/service/internal/cache"
	"github.com/jason-s-yu/dog/service/internal/game"
	"github.com/jason-s-yu/dog/service/internal/models"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 2 * time.Second

// Server owns the live matches and their connections.
type Server struct {
	secret   []byte
	rules    game.HouseRules
	tokenTTL time.Duration
	snapTTL  time.Duration

	mu    sync.Mutex
	games map[uuid.UUID]*game.DogGame
}

// NewServer returns a Server signing seat tokens with secret and creating
// matches with rules.
func NewServer(secret []byte, rules game.HouseRules, snapshotTTL time.Duration) *Server {
	return &Server{
		secret:   secret,
		rules:    rules,
		tokenTTL: 12 * time.Hour,
		snapTTL:  snapshotTTL,
		games:    make(map[uuid.UUID]*game.DogGame),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("POST /matches", s.handleCreate)
	mux.HandleFunc("GET /matches/{id}", s.handleState)
	mux.HandleFunc("POST /matches/{id}/resume", s.handleResume)
	mux.HandleFunc("GET /matches/{id}/ws", s.handleConnect)
	return mux
}

type createRequest struct {
	Players []string         `json:"players"`
	Seed    string           `json:"seed,omitempty"` // decimal; random when empty
	Rules   *game.HouseRules `json:"rules,omitempty"`
}

type seatResponse struct {
	PlayerID uuid.UUID `json:"playerId"`
	Username string    `json:"username"`
	Seat     uint8     `json:"seat"`
	Token    string    `json:"token"`
}

type createResponse struct {
	GameID uuid.UUID      `json:"gameId"`
	Seed   string         `json:"seed"`
	Seats  []seatResponse `json:"seats"`
}

// handleCreate seats the named players, deals the match and returns one
// seat token per player.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	rules := s.rules
	if req.Rules != nil {
		rules = *req.Rules
	}
	seed := randomSeed()
	if req.Seed != "" {
		var err error
		if seed, err = strconv.ParseUint(req.Seed, 10, 64); err != nil {
			http.Error(w, "seed must be a decimal uint64", http.StatusBadRequest)
			return
		}
	}

	g := s.newGame(rules)
	resp := createResponse{GameID: g.ID, Seed: strconv.FormatUint(seed, 10)}

	g.Mu.Lock()
	for _, name := range req.Players {
		p := &models.Player{ID: uuid.New(), User: &models.User{ID: uuid.New(), Username: name}}
		if err := g.AddPlayer(p); err != nil {
			g.Mu.Unlock()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := g.Start(seed); err != nil {
		g.Mu.Unlock()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, p := range g.Players {
		tok, err := auth.IssueSeatToken(s.secret, g.ID, p.ID, p.Seat, s.tokenTTL)
		if err != nil {
			g.Mu.Unlock()
			http.Error(w, "issuing seat token", http.StatusInternalServerError)
			return
		}
		resp.Seats = append(resp.Seats, seatResponse{PlayerID: p.ID, Username: p.User.Username, Seat: p.Seat, Token: tok})
	}
	g.Mu.Unlock()

	s.mu.Lock()
	s.games[g.ID] = g
	s.mu.Unlock()
	logrus.WithFields(logrus.Fields{"game": g.ID, "players": len(req.Players)}).Info("match created")
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) newGame(rules game.HouseRules) *game.DogGame {
	g := game.NewDogGame(rules)
	g.SnapshotTTL = s.snapTTL
	g.BroadcastFn = func(ev game.GameEvent) {
		for _, p := range g.Players {
			if p.Connected && p.Conn != nil {
				send(p.Conn, ev)
			}
		}
	}
	g.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.GameEvent) {
		for _, p := range g.Players {
			if p.ID == playerID && p.Conn != nil {
				send(p.Conn, ev)
			}
		}
	}
	// Called under g.Mu; nothing takes g.Mu while holding s.mu.
	g.OnGameEnd = func(gameID uuid.UUID, winners []uuid.UUID, _ map[uuid.UUID]float32) {
		s.mu.Lock()
		delete(s.games, gameID)
		s.mu.Unlock()
		logrus.WithFields(logrus.Fields{"game": gameID, "winners": winners}).Info("match ended")
	}
	return g
}

// send writes ev to conn. Writes happen under the match lock so clients see
// events in order; a client slower than writeTimeout loses the event.
func send(conn *websocket.Conn, ev game.GameEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, ev); err != nil {
		logrus.WithError(err).WithField("event", ev.Type).Debug("websocket write failed")
	}
}

func (s *Server) lookup(r *http.Request) (*game.DogGame, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	return g, ok
}

// seatFor verifies the bearer or query token of r against g.
func (s *Server) seatFor(r *http.Request, g *game.DogGame) (auth.Seat, error) {
	tok := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
		tok = h[7:]
	}
	seat, err := auth.ParseSeatToken(s.secret, tok)
	if err != nil {
		return auth.Seat{}, err
	}
	if seat.GameID != g.ID {
		return auth.Seat{}, errors.New("token is for another match")
	}
	return seat, nil
}

// handleState returns the caller's masked view; without a token it returns
// the spectator view.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	viewer := uuid.Nil
	if r.URL.Query().Has("token") || r.Header.Get("Authorization") != "" {
		seat, err := s.seatFor(r, g)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		viewer = seat.PlayerID
	}
	g.Mu.Lock()
	state := g.GetCurrentObfuscatedGameState(viewer)
	g.Mu.Unlock()
	writeJSON(w, http.StatusOK, state)
}

// handleResume reloads the cached snapshot of a match.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, err := s.seatFor(r, g); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	snap, err := cache.LoadGameSnapshot(r.Context(), g.ID)
	switch {
	case errors.Is(err, cache.ErrSnapshotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, cache.ErrNoClient):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	g.Mu.Lock()
	err = g.Resume(snap.State)
	g.Mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"turnId": snap.TurnID, "hash": strconv.FormatUint(snap.Hash, 16)})
}

// handleConnect upgrades to a websocket for the seat named by the token and
// feeds the player's requests to the match until the connection closes.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookup(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	seat, err := s.seatFor(r, g)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logrus.WithError(err).Warn("websocket accept")
		return
	}
	defer conn.CloseNow()

	g.Mu.Lock()
	g.HandleReconnect(seat.PlayerID, conn)
	g.Mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"game": g.ID, "player": seat.PlayerID})
	log.Info("player connected")
	ctx := r.Context()
	for {
		var req models.GameAction
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				log.WithError(err).Debug("websocket read")
			}
			break
		}
		g.Mu.Lock()
		g.HandlePlayerAction(seat.PlayerID, req)
		g.Mu.Unlock()
	}

	g.Mu.Lock()
	g.HandleDisconnect(seat.PlayerID, conn)
	g.Mu.Unlock()
	log.Info("player disconnected")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("writing response")
	}
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}
