package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/loongtiles/go-server/internal/future"
	"github.com/loongtiles/go-server/internal/hand"
	"github.com/loongtiles/go-server/internal/ledger"
	"github.com/loongtiles/go-server/internal/pool"
	"github.com/loongtiles/go-server/internal/tiles"
)

// EngineState is the persisted form of an Engine.
type EngineState struct {
	MaxSize        int          `json:"maxSize"`
	Ornament       int          `json:"ornament"`
	HatUnlockLevel int          `json:"hatUnlockLevel"`
	DotUnlockLevel int          `json:"dotUnlockLevel"`
	LoongLevel     int          `json:"loongLevel"`
	Pool           pool.State   `json:"pool"`
	Hand           hand.State   `json:"hand"`
	Ledger         ledger.State `json:"ledger"`
	Future         future.State `json:"future"`
}

// Snapshot captures the engine, PRNG position included.
func (e *Engine) Snapshot() (EngineState, error) {
	ps, err := e.pool.State()
	if err != nil {
		return EngineState{}, err
	}
	return EngineState{
		MaxSize:        e.hand.MaxSize(),
		Ornament:       e.ornament,
		HatUnlockLevel: e.cfg.HatUnlockLevel,
		DotUnlockLevel: e.cfg.DotUnlockLevel,
		LoongLevel:     e.cfg.LoongLevel,
		Pool:           ps,
		Hand:           e.hand.State(),
		Ledger:         e.discards.State(),
		Future:         e.queue.State(),
	}, nil
}

// RestoreEngine rebuilds an engine from st without dealing.
func RestoreEngine(st EngineState, logger zerolog.Logger) (*Engine, error) {
	cfg := Config{
		MaxSize:        st.MaxSize,
		OrnamentLevel:  st.Ornament,
		HatUnlockLevel: st.HatUnlockLevel,
		DotUnlockLevel: st.DotUnlockLevel,
		LoongLevel:     st.LoongLevel,
		Logger:         logger,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	h, err := hand.FromState(st.Hand)
	if err != nil {
		return nil, ErrInvalidState.WithCause(err)
	}
	if h.Len() != h.MaxSize() || h.MaxSize() != st.MaxSize {
		return nil, ErrInvalidState.WithCause(fmt.Errorf("hand holds %d of %d", h.Len(), st.MaxSize))
	}
	p := pool.New(pool.WithLogger(logger))
	if err := p.Restore(st.Pool); err != nil {
		return nil, ErrInvalidState.WithCause(err)
	}
	e := &Engine{
		cfg:      cfg,
		ornament: st.Ornament,
		pool:     p,
		hand:     h,
		discards: ledger.New(),
		log:      logger,
	}
	e.discards.Restore(st.Ledger)
	e.queue.Restore(st.Future)
	e.pool.SetHeld(e.hand.Tiles)
	return e, nil
}

type gameSnapshot struct {
	ID           string      `json:"id"`
	Difficulty   Difficulty  `json:"difficulty"`
	Daily        string      `json:"daily,omitempty"`
	Status       Status      `json:"status"`
	Wins         int         `json:"wins"`
	WinsRequired int         `json:"winsRequired"`
	TilesTaken   int         `json:"tilesTaken"`
	Kongs        int         `json:"kongs"`
	Bias         float64     `json:"bias"`
	Next         tiles.Tile  `json:"next"`
	StartedAt    time.Time   `json:"startedAt"`
	FinishedAt   time.Time   `json:"finishedAt"`
	Engine       EngineState `json:"engine"`
}

// Snapshot encodes the full session for an external store.
func (g *Game) Snapshot() ([]byte, error) {
	es, err := g.Engine.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(gameSnapshot{
		ID:           g.ID,
		Difficulty:   g.Difficulty,
		Daily:        g.Daily,
		Status:       g.Status,
		Wins:         g.Wins,
		WinsRequired: g.WinsRequired,
		TilesTaken:   g.TilesTaken,
		Kongs:        g.Kongs,
		Bias:         g.Bias,
		Next:         g.Next,
		StartedAt:    g.StartedAt,
		FinishedAt:   g.FinishedAt,
		Engine:       es,
	})
}

// Restore decodes a session produced by Snapshot.
func Restore(data []byte, logger zerolog.Logger) (*Game, error) {
	var s gameSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ErrInvalidState.WithCause(fmt.Errorf("decode snapshot: %w", err))
	}
	e, err := RestoreEngine(s.Engine, logger.With().Str("gameId", s.ID).Logger())
	if err != nil {
		return nil, err
	}
	return &Game{
		ID:           s.ID,
		Difficulty:   s.Difficulty,
		Daily:        s.Daily,
		Status:       s.Status,
		Wins:         s.Wins,
		WinsRequired: s.WinsRequired,
		TilesTaken:   s.TilesTaken,
		Kongs:        s.Kongs,
		Bias:         s.Bias,
		Next:         s.Next,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
		Engine:       e,
	}, nil
}
