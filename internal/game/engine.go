// internal/game/engine.go
//
// Tile pool and hand resolution engine for a single session.
// Responsibilities:
//   - Source tiles from the future queue, else the weighted pool.
//   - Run the tile-acquired transaction: kong check, win/loong check,
//     hand mutation, ledger update, strictly in that order.
//   - Grow or redeal the hand and ratchet suit unlocks.
//
// Notes:
//   - Engines are synchronous and not safe for concurrent use; callers
//     serialize access per session.
//   - Configuration is injected through Config; there is no package state.

package game

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/loongtiles/go-server/internal/future"
	"github.com/loongtiles/go-server/internal/hand"
	"github.com/loongtiles/go-server/internal/ledger"
	"github.com/loongtiles/go-server/internal/pool"
	"github.com/loongtiles/go-server/internal/resolver"
	"github.com/loongtiles/go-server/internal/tiles"
)

// MaxOrnament is the highest ornament level a run can reach.
const MaxOrnament = 3

// Config is everything an engine needs from its environment.
type Config struct {
	MaxSize        int
	OrnamentLevel  int
	HatUnlockLevel int
	DotUnlockLevel int
	LoongLevel     int
	// Seed for the pool PRNG; the zero value picks a random seed.
	Seed   [2]uint64
	Logger zerolog.Logger
}

// DefaultConfig is a four-tile hand with the standard unlock levels.
func DefaultConfig() Config {
	return Config{
		MaxSize:        4,
		HatUnlockLevel: 1,
		DotUnlockLevel: 2,
		LoongLevel:     3,
	}
}

func (c Config) validate() error {
	switch {
	case !hand.ValidSize(c.MaxSize):
		return ErrInvalidConfig.WithCause(fmt.Errorf("%w: %d", hand.ErrInvalidSize, c.MaxSize))
	case c.OrnamentLevel < 0 || c.OrnamentLevel > MaxOrnament:
		return ErrInvalidConfig.WithCause(fmt.Errorf("ornament level %d out of range", c.OrnamentLevel))
	case c.HatUnlockLevel < 0 || c.DotUnlockLevel < c.HatUnlockLevel:
		return ErrInvalidConfig.WithCause(fmt.Errorf("unlock levels hat=%d dot=%d", c.HatUnlockLevel, c.DotUnlockLevel))
	case c.LoongLevel < 0:
		return ErrInvalidConfig.WithCause(fmt.Errorf("loong level %d", c.LoongLevel))
	}
	return nil
}

// Engine owns the pool, the hand, the discard ledger and the future queue.
type Engine struct {
	cfg      Config
	ornament int

	pool     *pool.Allocator
	hand     *hand.Hand
	discards *ledger.Ledger
	queue    future.Queue

	log zerolog.Logger
}

// NewEngine validates cfg and deals the first hand.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := []pool.Option{pool.WithLogger(cfg.Logger)}
	if cfg.Seed != ([2]uint64{}) {
		opts = append(opts, pool.WithSeed(cfg.Seed[0], cfg.Seed[1]))
	}
	h, err := hand.New(cfg.MaxSize)
	if err != nil {
		return nil, ErrInvalidConfig.WithCause(err)
	}
	e := &Engine{
		cfg:      cfg,
		ornament: cfg.OrnamentLevel,
		pool:     pool.New(opts...),
		hand:     h,
		discards: ledger.New(),
		log:      cfg.Logger,
	}
	e.pool.SetHeld(e.hand.Tiles)
	e.pool.Unlock(cfg.MaxSize, cfg.OrnamentLevel, cfg.HatUnlockLevel, cfg.DotUnlockLevel)
	if err := e.hand.ExpandTo(cfg.MaxSize, hand.FullRedraw, e.dealer()); err != nil {
		return nil, ErrInvalidConfig.WithCause(err)
	}
	return e, nil
}

func (e *Engine) dealer() hand.Drawer {
	return func() tiles.Tile { return e.pool.Draw(0) }
}

// DrawNext serves the next preview tile.
func (e *Engine) DrawNext(bias float64) tiles.Tile {
	if t, ok := e.queue.Consume(); ok {
		return t
	}
	return e.pool.Draw(bias)
}

// Result describes one tile-acquired transaction.
type Result struct {
	// Displaced is the tile that left play: the replaced hand tile, the
	// candidate itself when kept, or the candidate exiled by a kong.
	Displaced tiles.Tile       `json:"displaced"`
	IsMahjong bool             `json:"isMahjong"`
	IsLoong   bool             `json:"isLoong"`
	IsKong    bool             `json:"isKong"`
	Kept      bool             `json:"kept"`
	Groups    []resolver.Group `json:"groups,omitempty"`
}

// SubmitTile accepts t into the hand at the cursor, or discards it when the
// keep slot is selected. Detection sees the hand before it is mutated.
// A kong exiles t and skips win detection.
func (e *Engine) SubmitTile(t tiles.Tile) (Result, error) {
	if !t.Valid() {
		return Result{}, ErrInvalidState.WithCause(fmt.Errorf("%w: %v", tiles.ErrBadTile, t.Identity))
	}
	if e.hand.Len() != e.hand.MaxSize() {
		err := ErrInvalidState.WithCause(fmt.Errorf("%w: holding %d of %d", hand.ErrInvalidSize, e.hand.Len(), e.hand.MaxSize()))
		e.log.Error().Err(err).Msg("submit on partial hand")
		return Result{}, err
	}
	t.FromKong = false

	var res Result
	held := e.hand.Tiles()

	res.IsKong = resolver.CheckKong(e.hand, t, e.pool)
	if !res.IsKong {
		groups, ok, err := resolver.Decompose(held, t)
		if err != nil {
			e.log.Error().Err(err).Int("size", len(held)).Msg("win check on invalid hand size")
			return Result{}, ErrInvalidState.WithCause(err)
		}
		res.IsMahjong, res.Groups = ok, groups
		if e.ornament >= e.cfg.LoongLevel {
			res.IsLoong = resolver.CheckLoong(held, t)
		}
	}

	switch {
	case res.IsKong:
		res.Displaced = t
		e.log.Debug().Str("tile", t.String()).Msg("kong")
	case e.hand.IsKeepSelected():
		res.Kept = true
		res.Displaced = t
	default:
		old, err := e.hand.ReplaceAt(e.hand.Cursor(), t)
		if err != nil {
			return Result{}, ErrInvalidState.WithCause(err)
		}
		res.Displaced = old
	}
	e.discards.Record(res.Displaced)
	return res, nil
}

// Reshuffle returns discarded copies to the pool. False when nothing has
// been discarded since the last reshuffle.
func (e *Engine) Reshuffle() bool {
	ok := e.discards.Reshuffle(e.pool, e.hand.Tiles())
	if !ok {
		e.log.Debug().Msg("reshuffle unavailable")
	}
	return ok
}

// ExpandHand grows the hand to newSize at the given ornament level. A full
// redraw starts a new hand lifecycle: pool counts and locks are cleared.
func (e *Engine) ExpandHand(newSize, ornament int, mode hand.ExpandMode) error {
	if !hand.ValidSize(newSize) || newSize < e.hand.MaxSize() {
		err := ErrInvalidConfig.WithCause(fmt.Errorf("%w: %d -> %d", hand.ErrInvalidSize, e.hand.MaxSize(), newSize))
		e.log.Error().Err(err).Msg("expand rejected")
		return err
	}
	if ornament < 0 || ornament > MaxOrnament {
		return ErrInvalidConfig.WithCause(fmt.Errorf("ornament level %d out of range", ornament))
	}
	if !mode.Valid() {
		return ErrInvalidConfig.WithCause(fmt.Errorf("%w: %s", hand.ErrUnknownExpandMode, mode))
	}
	e.ornament = ornament
	if mode == hand.FullRedraw {
		e.pool.Reset()
	}
	e.pool.Unlock(newSize, ornament, e.cfg.HatUnlockLevel, e.cfg.DotUnlockLevel)
	if err := e.hand.ExpandTo(newSize, mode, e.dealer()); err != nil {
		return ErrInvalidConfig.WithCause(err)
	}
	e.log.Debug().Int("size", newSize).Stringer("mode", mode).Msg("hand expanded")
	return nil
}

// CursorMove is a relative move, or a jump to either end.
type CursorMove struct {
	Delta   int  `json:"delta"`
	ToStart bool `json:"toStart"`
	ToEnd   bool `json:"toEnd"`
}

// MoveCursor applies m and returns the new cursor. Moves past either end are
// clamped.
func (e *Engine) MoveCursor(m CursorMove) int {
	switch {
	case m.ToStart:
		e.hand.ToStart()
	case m.ToEnd:
		e.hand.ToEnd()
	default:
		if e.hand.Move(m.Delta) {
			e.log.Warn().Int("delta", m.Delta).Int("cursor", e.hand.Cursor()).Msg("cursor move clamped")
		}
	}
	return e.hand.Cursor()
}

// RemainingCounts lists drawable identities with copies left.
func (e *Engine) RemainingCounts() []pool.Remaining { return e.pool.Remaining() }

func (e *Engine) Hand() []tiles.Tile { return e.hand.Tiles() }
func (e *Engine) Cursor() int { return e.hand.Cursor() }
func (e *Engine) MaxSize() int { return e.hand.MaxSize() }
func (e *Engine) KeepSelected() bool { return e.hand.IsKeepSelected() }
func (e *Engine) Ornament() int { return e.ornament }
func (e *Engine) LoongLevel() int { return e.cfg.LoongLevel }

func (e *Engine) Suits() []tiles.Suit { return e.pool.Suits() }
func (e *Engine) Locked() []tiles.Identity { return e.pool.Locked() }
func (e *Engine) Future() []tiles.Tile { return e.queue.Peek() }
func (e *Engine) ReshuffleAvailable() bool { return e.discards.Available() }
func (e *Engine) DiscardHistory() []tiles.Tile { return e.discards.History() }

// Discards returns the discard pile sorted by identity.
func (e *Engine) Discards() []tiles.Tile { return e.discards.Sorted() }

// Discard routes a tile that never entered the hand to the ledger.
func (e *Engine) Discard(t tiles.Tile) { e.discards.Record(t) }

// SetOrnamentLevel updates the level gating loong detection and unlocks.
func (e *Engine) SetOrnamentLevel(n int) error {
	if n < 0 || n > MaxOrnament {
		return ErrInvalidConfig.WithCause(fmt.Errorf("ornament level %d out of range", n))
	}
	e.ornament = n
	return nil
}

// ActivateFuture queues ts ahead of the pool.
func (e *Engine) ActivateFuture(ts [future.Capacity]tiles.Tile) { e.queue.Activate(ts) }
