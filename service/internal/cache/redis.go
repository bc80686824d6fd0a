// Package cache holds the Redis client used for the live action stream and
// for match snapshots.
package cache

import (
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	engine "github.com/jason-s-yu/dog/engine"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// Rdb is the shared client; nil when Redis is not configured.
var Rdb *redis.Client

// ActionsChannel is the pub/sub channel every action record is published on.
const ActionsChannel = "dog:actions"

var (
	// ErrNoClient is returned when Rdb has not been connected.
	ErrNoClient = errors.New("redis client not connected")
	// ErrSnapshotNotFound is returned when no snapshot is stored for a match.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ConnectRedis dials addr and verifies the connection before storing the
// client in Rdb.
func ConnectRedis(ctx context.Context, addr, password string) error {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("redis ping %s: %w", addr, err)
	}
	Rdb = client
	logrus.WithField("addr", addr).Info("connected to redis")
	return nil
}

// GameActionRecord is one entry of a match's action log.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

func actionsKey(gameID uuid.UUID) string  { return "dog:game:" + gameID.String() + ":actions" }
func snapshotKey(gameID uuid.UUID) string { return "dog:game:" + gameID.String() + ":snapshot" }

// PublishGameAction appends rec to the match's action list and publishes it
// on ActionsChannel in one transaction.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return ErrNoClient
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding action record: %w", err)
	}
	_, err = Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, actionsKey(rec.GameID), data)
		pipe.Publish(ctx, ActionsChannel, data)
		return nil
	})
	return err
}

// GameActions returns the stored action log of a match in order.
func GameActions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	if Rdb == nil {
		return nil, ErrNoClient
	}
	raw, err := Rdb.LRange(ctx, actionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]GameActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec GameActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decoding action record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeActionRecord parses a record as published on ActionsChannel.
func DecodeActionRecord(payload string) (GameActionRecord, error) {
	var rec GameActionRecord
	err := json.Unmarshal([]byte(payload), &rec)
	return rec, err
}

// Snapshot is a stored match state. Hash is the engine state hash and lets a
// reader detect a torn or stale copy.
type Snapshot struct {
	GameID  uuid.UUID
	TurnID  int
	Hash    uint64
	State   engine.GameState
	SavedAt int64
}

// storedSnapshot is the Redis form of a Snapshot. MAC authenticates State
// when SigningKey is set.
type storedSnapshot struct {
	GameID  uuid.UUID       `json:"game_id"`
	TurnID  int             `json:"turn_id"`
	Hash    uint64          `json:"hash,string"`
	State   json.RawMessage `json:"state"`
	MAC     string          `json:"mac,omitempty"`
	SavedAt int64           `json:"saved_at"`
}

// SigningKey, when set, authenticates stored snapshots with a keyed BLAKE2b
// MAC so that a modified copy is refused on load.
var SigningKey []byte

func snapshotMAC(gameID uuid.UUID, state []byte) string {
	key := blake2b.Sum256(SigningKey)
	h, _ := blake2b.New256(key[:])
	h.Write(gameID[:])
	h.Write(state)
	return hex.EncodeToString(h.Sum(nil))
}

// EncodeSnapshot serialises state for storage.
func EncodeSnapshot(gameID uuid.UUID, turnID int, state engine.GameState) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	stored := storedSnapshot{
		GameID:  gameID,
		TurnID:  turnID,
		Hash:    state.StateHash(),
		State:   raw,
		SavedAt: time.Now().UnixMilli(),
	}
	if len(SigningKey) > 0 {
		stored.MAC = snapshotMAC(gameID, raw)
	}
	return json.Marshal(stored)
}

// DecodeSnapshot parses a stored snapshot and checks its MAC and hash.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var stored storedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	if len(SigningKey) > 0 {
		want := snapshotMAC(stored.GameID, stored.State)
		if !hmac.Equal([]byte(want), []byte(stored.MAC)) {
			return Snapshot{}, fmt.Errorf("snapshot of %s: bad MAC", stored.GameID)
		}
	}
	snap := Snapshot{GameID: stored.GameID, TurnID: stored.TurnID, Hash: stored.Hash, SavedAt: stored.SavedAt}
	if err := json.Unmarshal(stored.State, &snap.State); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot state: %w", err)
	}
	if got := snap.State.StateHash(); got != snap.Hash {
		return Snapshot{}, fmt.Errorf("snapshot of %s: hash %x does not match stored %x", snap.GameID, got, snap.Hash)
	}
	return snap, nil
}

// SaveGameSnapshot stores state as the latest snapshot of gameID.
func SaveGameSnapshot(ctx context.Context, gameID uuid.UUID, turnID int, state engine.GameState, ttl time.Duration) error {
	if Rdb == nil {
		return ErrNoClient
	}
	data, err := EncodeSnapshot(gameID, turnID, state)
	if err != nil {
		return err
	}
	return Rdb.Set(ctx, snapshotKey(gameID), data, ttl).Err()
}

// LoadGameSnapshot returns the latest snapshot of gameID.
func LoadGameSnapshot(ctx context.Context, gameID uuid.UUID) (Snapshot, error) {
	if Rdb == nil {
		return Snapshot{}, ErrNoClient
	}
	data, err := Rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(data)
}

// DeleteGame removes the action log and snapshot of a finished match.
func DeleteGame(ctx context.Context, gameID uuid.UUID) error {
	if Rdb == nil {
		return ErrNoClient
	}
	return Rdb.Del(ctx, actionsKey(gameID), snapshotKey(gameID)).Err()
}
