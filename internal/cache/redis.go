package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/viditforsv/quizplayer/internal/player"
)

const (
	keyPrefix  = "quizplayer:player:"
	DefaultTTL = 24 * time.Hour
)

// Redis stores snapshots as JSON strings with a TTL that is refreshed on
// every save.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to a Redis server. A zero ttl means DefaultTTL.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func playerKey(playerID string) string { return keyPrefix + playerID }

// Ping checks the connection.
func (c *Redis) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Close closes the underlying client.
func (c *Redis) Close() error { return c.rdb.Close() }

// Save stores snap under the player's key.
func (c *Redis) Save(ctx context.Context, playerID string, snap player.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return c.rdb.Set(ctx, playerKey(playerID), data, c.ttl).Err()
}

// Load returns the stored snapshot, or ErrMiss.
func (c *Redis) Load(ctx context.Context, playerID string) (player.Snapshot, error) {
	raw, err := c.rdb.Get(ctx, playerKey(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return player.Snapshot{}, ErrMiss
	}
	if err != nil {
		return player.Snapshot{}, err
	}

	var snap player.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return player.Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", playerID, err)
	}
	return snap, nil
}

// Delete removes the player's snapshot.
func (c *Redis) Delete(ctx context.Context, playerID string) error {
	return c.rdb.Del(ctx, playerKey(playerID)).Err()
}

// PlayerIDs lists the players that have a stored snapshot.
func (c *Redis) PlayerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, keyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}
