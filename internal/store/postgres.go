package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/lox/dominohold/internal/engine"
)

// PostgresStore persists records in three tables mirroring the record
// collections. Ids are caller-assigned, so writes are plain upserts and
// the schema carries no sequences.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id                   BIGINT PRIMARY KEY,
	player_count         INTEGER NOT NULL,
	starting_balance     INTEGER NOT NULL,
	current_hand_number  INTEGER NOT NULL,
	current_round        TEXT NOT NULL,
	pot                  INTEGER NOT NULL,
	current_player_turn  INTEGER NOT NULL,
	current_bet_amount   INTEGER NOT NULL,
	is_active            BOOLEAN NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS players (
	id           BIGINT PRIMARY KEY,
	game_id      BIGINT NOT NULL,
	name         TEXT NOT NULL,
	position     INTEGER NOT NULL,
	balance      INTEGER NOT NULL,
	current_bet  INTEGER NOT NULL,
	status       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS players_game_id_idx ON players (game_id);
CREATE TABLE IF NOT EXISTS actions (
	id           BIGINT PRIMARY KEY,
	game_id      BIGINT NOT NULL,
	hand_number  INTEGER NOT NULL,
	round        TEXT NOT NULL,
	player_id    BIGINT NOT NULL,
	player_name  TEXT NOT NULL,
	action       TEXT NOT NULL,
	amount       INTEGER NOT NULL,
	timestamp    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS actions_game_id_idx ON actions (game_id);
`

// NewPostgresStore opens a connection pool for the given DSN and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) PutGame(ctx context.Context, game engine.Game) error {
	round, err := game.CurrentRound.MarshalText()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (id, player_count, starting_balance, current_hand_number,
			current_round, pot, current_player_turn, current_bet_amount, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			current_hand_number = EXCLUDED.current_hand_number,
			current_round = EXCLUDED.current_round,
			pot = EXCLUDED.pot,
			current_player_turn = EXCLUDED.current_player_turn,
			current_bet_amount = EXCLUDED.current_bet_amount,
			is_active = EXCLUDED.is_active`,
		game.ID, game.PlayerCount, game.StartingBalance, game.CurrentHandNumber,
		string(round), game.Pot, game.CurrentPlayerTurn, game.CurrentBetAmount,
		game.IsActive, game.CreatedAt)
	return err
}

func (s *PostgresStore) GetGame(ctx context.Context, id int64) (engine.Game, error) {
	var game engine.Game
	var round string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, player_count, starting_balance, current_hand_number, current_round,
			pot, current_player_turn, current_bet_amount, is_active, created_at
		FROM games WHERE id = $1`, id).Scan(
		&game.ID, &game.PlayerCount, &game.StartingBalance, &game.CurrentHandNumber,
		&round, &game.Pot, &game.CurrentPlayerTurn, &game.CurrentBetAmount,
		&game.IsActive, &game.CreatedAt)
	if err == sql.ErrNoRows {
		return engine.Game{}, ErrNotFound
	}
	if err != nil {
		return engine.Game{}, err
	}
	if err := game.CurrentRound.UnmarshalText([]byte(round)); err != nil {
		return engine.Game{}, err
	}
	return game, nil
}

func (s *PostgresStore) PutPlayers(ctx context.Context, players ...engine.Player) error {
	if len(players) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range players {
		status, err := p.Status.MarshalText()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO players (id, game_id, name, position, balance, current_bet, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				balance = EXCLUDED.balance,
				current_bet = EXCLUDED.current_bet,
				status = EXCLUDED.status`,
			p.ID, p.GameID, p.Name, p.Position, p.Balance, p.CurrentBet, string(status)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListPlayers(ctx context.Context, gameID int64) ([]engine.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, name, position, balance, current_bet, status
		FROM players WHERE game_id = $1 ORDER BY position ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Player
	for rows.Next() {
		var p engine.Player
		var status string
		if err := rows.Scan(&p.ID, &p.GameID, &p.Name, &p.Position, &p.Balance, &p.CurrentBet, &status); err != nil {
			return nil, err
		}
		if err := p.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendAction(ctx context.Context, record engine.ActionRecord) error {
	round, err := record.Round.MarshalText()
	if err != nil {
		return err
	}
	action, err := record.Action.MarshalText()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO actions (id, game_id, hand_number, round, player_id, player_name, action, amount, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.GameID, record.HandNumber, string(round), record.PlayerID,
		record.PlayerName, string(action), record.Amount, record.Timestamp)
	return err
}

func (s *PostgresStore) ListActions(ctx context.Context, gameID int64) ([]engine.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, hand_number, round, player_id, player_name, action, amount, timestamp
		FROM actions WHERE game_id = $1 ORDER BY timestamp ASC, id ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.ActionRecord
	for rows.Next() {
		var rec engine.ActionRecord
		var round, action string
		if err := rows.Scan(&rec.ID, &rec.GameID, &rec.HandNumber, &round, &rec.PlayerID,
			&rec.PlayerName, &action, &rec.Amount, &rec.Timestamp); err != nil {
			return nil, err
		}
		if err := rec.Round.UnmarshalText([]byte(round)); err != nil {
			return nil, err
		}
		if err := rec.Action.UnmarshalText([]byte(action)); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
