// Package store defines the state-store collaborator contract for the
// bet manager and provides memory, redis and postgres backends.
//
// The store is deliberately dumb: three record collections (games,
// players, actions) keyed by caller-assigned ids. Players and actions
// reference their game by id. Games are never deleted, actions are
// append-only, and the store performs no betting logic of its own.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/lox/dominohold/internal/engine"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator. Implementations must be safe
// for concurrent use; serialization of read-modify-write sequences is
// the caller's responsibility (one critical section per game).
type Store interface {
	// PutGame upserts a game record.
	PutGame(ctx context.Context, game engine.Game) error
	// GetGame returns a game by id, or ErrNotFound.
	GetGame(ctx context.Context, id int64) (engine.Game, error)

	// PutPlayers upserts player records.
	PutPlayers(ctx context.Context, players ...engine.Player) error
	// ListPlayers returns a game's players in ascending position order.
	ListPlayers(ctx context.Context, gameID int64) ([]engine.Player, error)

	// AppendAction appends an immutable action record.
	AppendAction(ctx context.Context, record engine.ActionRecord) error
	// ListActions returns a game's actions in ascending timestamp order.
	ListActions(ctx context.Context, gameID int64) ([]engine.ActionRecord, error)

	// Close releases any underlying resources.
	Close() error
}

func sortPlayers(players []engine.Player) {
	sort.Slice(players, func(i, j int) bool { return players[i].Position < players[j].Position })
}

func sortActions(actions []engine.ActionRecord) {
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Timestamp.Equal(actions[j].Timestamp) {
			return actions[i].ID < actions[j].ID
		}
		return actions[i].Timestamp.Before(actions[j].Timestamp)
	})
}
