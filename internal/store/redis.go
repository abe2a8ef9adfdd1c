package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/lox/dominohold/internal/engine"
)

// RedisStore keeps each game's records in per-game keys: the game as a
// JSON string, players in a hash keyed by player id, and the action log
// in a list so append order is preserved for free.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store backed by the given redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func gameKey(id int64) string           { return fmt.Sprintf("dominohold:game:%d", id) }
func playersKey(gameID int64) string    { return fmt.Sprintf("dominohold:players:%d", gameID) }
func actionsKey(gameID int64) string    { return fmt.Sprintf("dominohold:actions:%d", gameID) }
func playerField(playerID int64) string { return strconv.FormatInt(playerID, 10) }

func (s *RedisStore) PutGame(ctx context.Context, game engine.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, gameKey(game.ID), data, 0).Err()
}

func (s *RedisStore) GetGame(ctx context.Context, id int64) (engine.Game, error) {
	data, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return engine.Game{}, ErrNotFound
	}
	if err != nil {
		return engine.Game{}, err
	}
	var game engine.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return engine.Game{}, err
	}
	return game, nil
}

func (s *RedisStore) PutPlayers(ctx context.Context, players ...engine.Player) error {
	if len(players) == 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	for _, p := range players {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, playersKey(p.GameID), playerField(p.ID), data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) ListPlayers(ctx context.Context, gameID int64) ([]engine.Player, error) {
	fields, err := s.rdb.HGetAll(ctx, playersKey(gameID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]engine.Player, 0, len(fields))
	for _, data := range fields {
		var p engine.Player
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sortPlayers(out)
	return out, nil
}

func (s *RedisStore) AppendAction(ctx context.Context, record engine.ActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, actionsKey(record.GameID), data).Err()
}

func (s *RedisStore) ListActions(ctx context.Context, gameID int64) ([]engine.ActionRecord, error) {
	items, err := s.rdb.LRange(ctx, actionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]engine.ActionRecord, 0, len(items))
	for _, data := range items {
		var rec engine.ActionRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortActions(out)
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
