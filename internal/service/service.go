// Package service wires the betting engine to a state store and
// serializes access per game.
//
// Every mutating request runs a read-modify-write sequence: load the
// game and its players, let the engine derive next state, then commit.
// A per-game mutex makes that sequence atomic with respect to other
// requests for the same game; games never contend with each other.
// Engine rejections happen before any write, so a failed request leaves
// no partial state.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/dominohold/internal/engine"
	"github.com/lox/dominohold/internal/store"
)

// Snapshot is a read-only view of a game: players in position order,
// actions in timestamp order.
type Snapshot struct {
	Game    engine.Game           `json:"game"`
	Players []engine.Player       `json:"players"`
	Actions []engine.ActionRecord `json:"actions"`
}

// Notifier receives a fresh snapshot after every successful mutation.
type Notifier interface {
	GameChanged(snapshot Snapshot)
}

// Service coordinates engine, store, id allocation and timestamps.
type Service struct {
	store    store.Store
	engine   *engine.Engine
	ids      *snowflake.Node
	clock    quartz.Clock
	logger   *log.Logger
	notifier Notifier

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// New creates a service. The snowflake node supplies record ids and the
// clock supplies action timestamps, both injected so tests can pin them.
func New(st store.Store, eng *engine.Engine, ids *snowflake.Node, clock quartz.Clock, logger *log.Logger) *Service {
	return &Service{
		store:  st,
		engine: eng,
		ids:    ids,
		clock:  clock,
		logger: logger.WithPrefix("service"),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// SetNotifier registers the snapshot listener, typically the WebSocket hub.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// gameLock returns the mutex serializing one game's mutations.
func (s *Service) gameLock(gameID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[gameID] = lock
	}
	return lock
}

// CreateGame seeds a game with players named "Player i" at positions
// 1..playerCount, each holding the starting balance.
func (s *Service) CreateGame(ctx context.Context, playerCount, startingBalance int) (Snapshot, error) {
	if playerCount < 3 || playerCount > 6 {
		return Snapshot{}, fmt.Errorf("%w: player count must be 3..6, got %d", engine.ErrValidation, playerCount)
	}
	if startingBalance <= 0 {
		return Snapshot{}, fmt.Errorf("%w: starting balance must be positive, got %d", engine.ErrValidation, startingBalance)
	}

	game := engine.Game{
		ID:                s.ids.Generate().Int64(),
		PlayerCount:       playerCount,
		StartingBalance:   startingBalance,
		CurrentHandNumber: 1,
		CurrentRound:      engine.PreFlop,
		CurrentPlayerTurn: 1,
		IsActive:          true,
		CreatedAt:         s.clock.Now(),
	}
	players := make([]engine.Player, playerCount)
	for i := range players {
		players[i] = engine.Player{
			ID:       s.ids.Generate().Int64(),
			GameID:   game.ID,
			Name:     fmt.Sprintf("Player %d", i+1),
			Position: i + 1,
			Balance:  startingBalance,
			Status:   engine.StatusActive,
		}
	}

	if err := s.store.PutGame(ctx, game); err != nil {
		return Snapshot{}, fmt.Errorf("storing game: %w", err)
	}
	if err := s.store.PutPlayers(ctx, players...); err != nil {
		return Snapshot{}, fmt.Errorf("storing players: %w", err)
	}

	s.logger.Info("game created",
		"game", game.ID,
		"players", playerCount,
		"startingBalance", startingBalance)

	return Snapshot{Game: game, Players: players}, nil
}

// SubmitAction applies a betting action. When playerID is zero the actor
// is the player whose turn it is; when set, the engine rejects it with a
// turn violation unless it matches the current turn.
func (s *Service) SubmitAction(ctx context.Context, gameID, playerID int64, action engine.ActionType, amount int) error {
	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, players, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}

	if playerID == 0 {
		actor := playerAtTurn(game, players)
		if actor == nil {
			return fmt.Errorf("%w: no active player at position %d", engine.ErrTurnViolation, game.CurrentPlayerTurn)
		}
		playerID = actor.ID
	} else if findByID(players, playerID) == nil {
		return fmt.Errorf("player %d in game %d: %w", playerID, gameID, store.ErrNotFound)
	}

	res, err := s.engine.ApplyAction(game, players, playerID, action, amount)
	if err != nil {
		return err
	}

	if err := s.store.PutGame(ctx, res.Game); err != nil {
		return fmt.Errorf("storing game: %w", err)
	}
	if err := s.store.PutPlayers(ctx, res.Player); err != nil {
		return fmt.Errorf("storing player: %w", err)
	}
	if err := s.appendRecord(ctx, res.Record); err != nil {
		return err
	}

	s.logger.Info("action applied",
		"game", gameID,
		"player", res.Player.Name,
		"action", action.String(),
		"amount", res.Record.Amount,
		"pot", res.Game.Pot,
		"turn", res.Game.CurrentPlayerTurn)

	s.notify(ctx, gameID)
	return nil
}

// AdvanceRound moves the game to the next betting round.
func (s *Service) AdvanceRound(ctx context.Context, gameID int64) error {
	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, players, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}

	game, players, err = s.engine.AdvanceRound(game, players)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, game, players); err != nil {
		return err
	}

	s.logger.Info("round advanced", "game", gameID, "round", game.CurrentRound.String())
	s.notify(ctx, gameID)
	return nil
}

// StartNewHand rolls the game into its next hand.
func (s *Service) StartNewHand(ctx context.Context, gameID int64) error {
	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, players, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}

	game, players, err = s.engine.StartNewHand(game, players)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, game, players); err != nil {
		return err
	}

	s.logger.Info("new hand", "game", gameID, "hand", game.CurrentHandNumber)
	s.notify(ctx, gameID)
	return nil
}

// DeclareHandWinner awards the pot to the named player and starts the
// next hand.
func (s *Service) DeclareHandWinner(ctx context.Context, gameID, playerID int64) error {
	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, players, err := s.load(ctx, gameID)
	if err != nil {
		return err
	}
	if findByID(players, playerID) == nil {
		return fmt.Errorf("player %d in game %d: %w", playerID, gameID, store.ErrNotFound)
	}

	settle, err := s.engine.DeclareHandWinner(game, players, playerID)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, settle.Game, settle.Players); err != nil {
		return err
	}
	if err := s.appendRecord(ctx, settle.Record); err != nil {
		return err
	}

	s.logger.Info("hand winner declared",
		"game", gameID,
		"winner", settle.Record.PlayerName,
		"pot", settle.TotalWon,
		"hand", settle.Game.CurrentHandNumber)

	s.notify(ctx, gameID)
	return nil
}

// EndGame settles the whole game winner-takes-all and deactivates it.
// Returns the chips the winner gained.
func (s *Service) EndGame(ctx context.Context, gameID, winnerID int64) (int, error) {
	lock := s.gameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, players, err := s.load(ctx, gameID)
	if err != nil {
		return 0, err
	}
	if findByID(players, winnerID) == nil {
		return 0, fmt.Errorf("player %d in game %d: %w", winnerID, gameID, store.ErrNotFound)
	}

	settle, err := s.engine.EndGame(game, players, winnerID)
	if err != nil {
		return 0, err
	}
	if err := s.commit(ctx, settle.Game, settle.Players); err != nil {
		return 0, err
	}
	if err := s.appendRecord(ctx, settle.Record); err != nil {
		return 0, err
	}

	s.logger.Info("game ended",
		"game", gameID,
		"winner", settle.Record.PlayerName,
		"totalWon", settle.TotalWon)

	s.notify(ctx, gameID)
	return settle.TotalWon, nil
}

// GetGameState returns a read-only snapshot.
func (s *Service) GetGameState(ctx context.Context, gameID int64) (Snapshot, error) {
	game, players, err := s.load(ctx, gameID)
	if err != nil {
		return Snapshot{}, err
	}
	actions, err := s.store.ListActions(ctx, gameID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing actions: %w", err)
	}
	return Snapshot{Game: game, Players: players, Actions: actions}, nil
}

func (s *Service) load(ctx context.Context, gameID int64) (engine.Game, []engine.Player, error) {
	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return engine.Game{}, nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
		}
		return engine.Game{}, nil, fmt.Errorf("loading game: %w", err)
	}
	players, err := s.store.ListPlayers(ctx, gameID)
	if err != nil {
		return engine.Game{}, nil, fmt.Errorf("listing players: %w", err)
	}
	return game, players, nil
}

func (s *Service) commit(ctx context.Context, game engine.Game, players []engine.Player) error {
	if err := s.store.PutGame(ctx, game); err != nil {
		return fmt.Errorf("storing game: %w", err)
	}
	if err := s.store.PutPlayers(ctx, players...); err != nil {
		return fmt.Errorf("storing players: %w", err)
	}
	return nil
}

// appendRecord assigns the record's id and timestamp at commit time.
// Snowflake ids are monotonic, so id order breaks timestamp ties.
func (s *Service) appendRecord(ctx context.Context, record engine.ActionRecord) error {
	record.ID = s.ids.Generate().Int64()
	record.Timestamp = s.clock.Now()
	if err := s.store.AppendAction(ctx, record); err != nil {
		return fmt.Errorf("appending action: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, gameID int64) {
	if s.notifier == nil {
		return
	}
	snapshot, err := s.GetGameState(ctx, gameID)
	if err != nil {
		s.logger.Error("failed to snapshot for notify", "game", gameID, "error", err)
		return
	}
	s.notifier.GameChanged(snapshot)
}

func playerAtTurn(game engine.Game, players []engine.Player) *engine.Player {
	for i := range players {
		if players[i].Position == game.CurrentPlayerTurn && players[i].Status == engine.StatusActive {
			return &players[i]
		}
	}
	return nil
}

func findByID(players []engine.Player, id int64) *engine.Player {
	for i := range players {
		if players[i].ID == id {
			return &players[i]
		}
	}
	return nil
}
