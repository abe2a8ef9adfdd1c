package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/dominohold/internal/engine"
)

func TestMemoryStoreGameRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetGame(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	game := engine.Game{
		ID:                1,
		PlayerCount:       3,
		StartingBalance:   100,
		CurrentHandNumber: 1,
		CurrentRound:      engine.PreFlop,
		CurrentPlayerTurn: 1,
		IsActive:          true,
		CreatedAt:         time.Now(),
	}
	require.NoError(t, s.PutGame(ctx, game))

	got, err := s.GetGame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, game, got)

	game.Pot = 50
	require.NoError(t, s.PutGame(ctx, game))
	got, err = s.GetGame(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Pot)
}

func TestMemoryStorePlayersOrderedByPosition(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.PutPlayers(ctx,
		engine.Player{ID: 3, GameID: 1, Name: "Player 3", Position: 3, Balance: 100},
		engine.Player{ID: 1, GameID: 1, Name: "Player 1", Position: 1, Balance: 100},
		engine.Player{ID: 2, GameID: 1, Name: "Player 2", Position: 2, Balance: 100},
		engine.Player{ID: 4, GameID: 2, Name: "Player 1", Position: 1, Balance: 100},
	))

	players, err := s.ListPlayers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, players, 3, "other games' players excluded")
	for i, p := range players {
		assert.Equal(t, i+1, p.Position)
	}
}

func TestMemoryStoreActionsOrderedByTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Appended out of order on purpose
	require.NoError(t, s.AppendAction(ctx, engine.ActionRecord{ID: 2, GameID: 1, Action: engine.Call, Timestamp: base.Add(2 * time.Second)}))
	require.NoError(t, s.AppendAction(ctx, engine.ActionRecord{ID: 1, GameID: 1, Action: engine.Bet, Timestamp: base}))
	require.NoError(t, s.AppendAction(ctx, engine.ActionRecord{ID: 3, GameID: 1, Action: engine.Fold, Timestamp: base.Add(2 * time.Second)}))

	actions, err := s.ListActions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, int64(1), actions[0].ID)
	assert.Equal(t, int64(2), actions[1].ID, "ties break on id")
	assert.Equal(t, int64(3), actions[2].ID)

	other, err := s.ListActions(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, other)
}
