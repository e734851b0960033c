// internal/store/memory.go
//
// In-memory session store. Games are kept by pointer, so a Get returns the
// live session; callers serialise access per game. State is lost on
// restart.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/loongtiles/go-server/internal/game"
)

// ErrNotFound is returned by Get for an unknown or expired id.
var ErrNotFound = errors.New("store: game not found")

// Store persists live sessions.
type Store interface {
	Save(ctx context.Context, g *game.Game) error
	// Get returns ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*game.Game, error)
	Delete(ctx context.Context, id string) error
}

type memory struct {
	mu    sync.RWMutex
	games map[string]*game.Game
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

func (m *memory) Save(_ context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}
