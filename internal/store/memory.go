package store

import (
	"context"
	"sync"

	"github.com/lox/dominohold/internal/engine"
)

// MemoryStore is the default in-process backend: mutex-guarded maps,
// suitable for single-node deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	games   map[int64]engine.Game
	players map[int64]engine.Player
	actions map[int64][]engine.ActionRecord // gameID -> append-only log
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:   make(map[int64]engine.Game),
		players: make(map[int64]engine.Player),
		actions: make(map[int64][]engine.ActionRecord),
	}
}

func (s *MemoryStore) PutGame(ctx context.Context, game engine.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
	return nil
}

func (s *MemoryStore) GetGame(ctx context.Context, id int64) (engine.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return engine.Game{}, ErrNotFound
	}
	return game, nil
}

func (s *MemoryStore) PutPlayers(ctx context.Context, players ...engine.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		s.players[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) ListPlayers(ctx context.Context, gameID int64) ([]engine.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.Player
	for _, p := range s.players {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out, nil
}

func (s *MemoryStore) AppendAction(ctx context.Context, record engine.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[record.GameID] = append(s.actions[record.GameID], record)
	return nil
}

func (s *MemoryStore) ListActions(ctx context.Context, gameID int64) ([]engine.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.actions[gameID]
	out := make([]engine.ActionRecord, len(log))
	copy(out, log)
	sortActions(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
