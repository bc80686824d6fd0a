package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/dog/service/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithoutDatabase(t *testing.T) {
	require.Nil(t, DB)
	ctx := context.Background()
	id := uuid.New()

	assert.ErrorIs(t, upsertInitial(ctx, id, map[string]int{"round": 1}), ErrNoDB)
	assert.ErrorIs(t, StoreFinalGameStateInDB(ctx, id, nil), ErrNoDB)
	assert.ErrorIs(t, InsertGameAction(ctx, cache.GameActionRecord{GameID: id}), ErrNoDB)

	assert.NotPanics(t, func() { UpsertInitialGameState(id, nil) })
	assert.NotPanics(t, Close)
}
