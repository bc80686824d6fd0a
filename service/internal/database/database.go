// Package database persists match records in Postgres. Every function is a
// no-op returning ErrNoDB while DB is nil, so the server runs without a
// database.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/dog/service/internal/cache"
	"github.com/sirupsen/logrus"
)

// DB is the shared pool; nil when no database is configured.
var DB *pgxpool.Pool

// ErrNoDB is returned while DB is nil.
var ErrNoDB = errors.New("database not connected")

const schema = `
CREATE TABLE IF NOT EXISTS dog_games (
	id            uuid PRIMARY KEY,
	initial_state jsonb NOT NULL,
	final_state   jsonb,
	created_at    timestamptz NOT NULL DEFAULT now(),
	finished_at   timestamptz
);
CREATE TABLE IF NOT EXISTS dog_game_actions (
	game_id      uuid NOT NULL,
	action_index integer NOT NULL,
	actor_id     uuid,
	action_type  text NOT NULL,
	payload      jsonb NOT NULL,
	created_at   timestamptz NOT NULL,
	PRIMARY KEY (game_id, action_index)
);`

// ConnectDB opens the pool, pings it and creates the schema.
func ConnectDB(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("opening pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return fmt.Errorf("creating schema: %w", err)
	}
	DB = pool
	logrus.Info("connected to postgres")
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// UpsertInitialGameState records the dealt state of a match. It is meant to
// run on its own goroutine and logs instead of returning errors.
func UpsertInitialGameState(gameID uuid.UUID, snapshot interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := upsertInitial(ctx, gameID, snapshot); err != nil {
		logrus.WithError(err).WithField("game", gameID).Error("storing initial state")
	}
}

func upsertInitial(ctx context.Context, gameID uuid.UUID, snapshot interface{}) error {
	if DB == nil {
		return ErrNoDB
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO dog_games (id, initial_state) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET initial_state = EXCLUDED.initial_state`,
		gameID.String(), data)
	return err
}

// StoreFinalGameStateInDB records the final state and results of a match.
func StoreFinalGameStateInDB(ctx context.Context, gameID uuid.UUID, snapshot interface{}) error {
	if DB == nil {
		return ErrNoDB
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	tag, err := DB.Exec(ctx, `
		UPDATE dog_games SET final_state = $2, finished_at = now() WHERE id = $1`,
		gameID.String(), data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %s has no initial record", gameID)
	}
	return nil
}

// InsertGameAction appends an action record; duplicates are ignored so the
// historian can replay a stream.
func InsertGameAction(ctx context.Context, rec cache.GameActionRecord) error {
	if DB == nil {
		return ErrNoDB
	}
	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor interface{}
	if rec.ActorUserID != uuid.Nil {
		actor = rec.ActorUserID.String()
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO dog_game_actions (game_id, action_index, actor_id, action_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		rec.GameID.String(), rec.ActionIndex, actor, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
	return err
}
