package cache

import (
	"context"
	"errors"

	"github.com/viditforsv/quizplayer/internal/player"
)

// ErrMiss is returned by Load when no snapshot is stored for a player.
var ErrMiss = errors.New("cache miss")

// Cache keeps player snapshots so a player survives a process restart.
type Cache interface {
	Save(ctx context.Context, playerID string, snap player.Snapshot) error
	Load(ctx context.Context, playerID string) (player.Snapshot, error)
	Delete(ctx context.Context, playerID string) error
	PlayerIDs(ctx context.Context) ([]string, error)
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Save(context.Context, string, player.Snapshot) error { return nil }

func (Nop) Load(context.Context, string) (player.Snapshot, error) {
	return player.Snapshot{}, ErrMiss
}

func (Nop) Delete(context.Context, string) error { return nil }

func (Nop) PlayerIDs(context.Context) ([]string, error) { return nil, nil }
