package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loongtiles/go-server/internal/game"
)

const keyPrefix = "loong:game:"

// RedisStore keeps session snapshots in redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisStore wraps client. A ttl of zero keeps keys forever.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, log: logger}
}

func gameKey(id string) string { return keyPrefix + id }

func (s *RedisStore) Save(ctx context.Context, g *game.Game) error {
	data, err := g.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", g.ID, err)
	}
	if err := s.client.Set(ctx, gameKey(g.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", g.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*game.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return game.Restore(data, s.log)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, gameKey(id)).Err()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
