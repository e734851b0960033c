// internal/pool/pool.go
//
// Weighted, depleting tile pool.
// Responsibilities:
//   - Track live copies per identity (the usage ledger) against the 4-copy cap.
//   - Keep kong'd identities out of circulation (the locked set).
//   - Draw tiles by weighted random sampling over the remaining identities,
//     biased toward tiles that extend what the hand already holds.
//   - Recover transparently from exhaustion by resetting and retrying once.
//
// Notes:
//   - The hand is read through a HeldFunc; the allocator never owns it.
//   - Randomness comes from a seedable PCG source so sessions can be
//     snapshotted and daily challenges replayed.

package pool

import (
	"errors"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/loongtiles/go-server/internal/tiles"
)

const (
	// DrawCap is the count at which an identity stops being drawable.
	// The fourth copy is reserved for kong completion.
	DrawCap = 3

	heldBonusCap     = 3.0
	adjacentBonusCap = 2.0
)

var ErrPoolExhausted = errors.New("tile pool exhausted")

// HeldFunc returns the tiles currently held in hand.
type HeldFunc func() []tiles.Tile

// Allocator owns the usage ledger, the locked set and the available suits.
type Allocator struct {
	counts [tiles.NumSlots]int
	locked [tiles.NumSlots]bool
	suits  []tiles.Suit

	held HeldFunc
	src  *rand.PCG
	rng  *rand.Rand
	log  zerolog.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithSeed seeds the PCG source. Without it the allocator is seeded randomly.
func WithSeed(s1, s2 uint64) Option {
	return func(a *Allocator) { a.src.Seed(s1, s2) }
}

// WithLogger sets the logger used for exhaustion and lock events.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Allocator) { a.log = l }
}

// WithSuits replaces the initial available suits (default: Plain only).
func WithSuits(s ...tiles.Suit) Option {
	return func(a *Allocator) {
		if len(s) > 0 {
			a.suits = append([]tiles.Suit(nil), s...)
		}
	}
}

// New constructs an Allocator with Plain tiles available.
func New(opts ...Option) *Allocator {
	src := rand.NewPCG(rand.Uint64(), rand.Uint64())
	a := &Allocator{
		suits: []tiles.Suit{tiles.Plain},
		held:  func() []tiles.Tile { return nil },
		src:   src,
		rng:   rand.New(src),
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// SetHeld wires the hand view used for draw bias.
func (a *Allocator) SetHeld(f HeldFunc) {
	if f == nil {
		f = func() []tiles.Tile { return nil }
	}
	a.held = f
}

type candidate struct {
	id     tiles.Identity
	weight float64
}

// Draw picks a tile by weighted random selection and counts it as live.
// bias scales the held and adjacency bonuses; 0 gives a uniform draw.
func (a *Allocator) Draw(bias float64) tiles.Tile {
	cands := a.candidates(bias)
	if len(cands) == 0 {
		a.log.Warn().Int("suits", len(a.suits)).Msg("no valid tiles left, resetting pool")
		a.resetExhausted()
		cands = a.candidates(bias)
		if len(cands) == 0 {
			// only reachable with no suits available
			a.log.Error().Err(ErrPoolExhausted).Msg("pool reset produced no candidates")
			return tiles.New(tiles.Plain, tiles.MinValue)
		}
	}

	total := 0.0
	for _, c := range cands {
		total += c.weight
	}
	// two-decimal granularity over [0, total]
	r := float64(a.rng.IntN(int(total*100)+1)) / 100

	chosen := cands[0].id
	cum := 0.0
	for _, c := range cands {
		cum += c.weight
		if r <= cum {
			chosen = c.id
			break
		}
	}
	a.counts[chosen.Index()]++
	return tiles.Tile{Identity: chosen}
}

func (a *Allocator) candidates(bias float64) []candidate {
	held := tiles.Counts(a.held())
	out := make([]candidate, 0, len(a.suits)*tiles.MaxValue)
	for _, s := range a.suits {
		for v := tiles.MinValue; v <= tiles.MaxValue; v++ {
			id := tiles.ID(s, v)
			i := id.Index()
			if a.locked[i] || a.counts[i] >= DrawCap {
				continue
			}
			w := 1.0
			if n := held[i]; n > 0 {
				w += min(heldBonusCap, bias/100*float64(n))
			}
			if held[i-1] > 0 || (v < tiles.MaxValue && held[i+1] > 0) {
				w += min(adjacentBonusCap, bias/200)
			}
			out = append(out, candidate{id: id, weight: w})
		}
	}
	return out
}

// resetExhausted clears counts for the available suits and evicts every
// non-blank locked identity.
func (a *Allocator) resetExhausted() {
	for _, s := range a.suits {
		for v := tiles.MinValue; v <= tiles.MaxValue; v++ {
			a.counts[tiles.ID(s, v).Index()] = 0
		}
	}
	for i := range a.locked {
		if !tiles.FromIndex(i).IsBlank() {
			a.locked[i] = false
		}
	}
}

// LockIdentity removes id from future draws. Blanks are never locked.
// The count is pinned to the cap so locked identities read as exhausted.
func (a *Allocator) LockIdentity(id tiles.Identity) {
	if id.IsBlank() || !id.Valid() {
		return
	}
	i := id.Index()
	a.locked[i] = true
	a.counts[i] = tiles.MaxCopies
	a.log.Debug().Str("tile", id.String()).Msg("identity locked")
}

// Take counts a tile that entered play without going through Draw.
func (a *Allocator) Take(id tiles.Identity) {
	if !id.Valid() {
		return
	}
	i := id.Index()
	if id.IsBlank() || a.counts[i] < tiles.MaxCopies {
		a.counts[i]++
	}
}

// Count returns the live-copy count for id.
func (a *Allocator) Count(id tiles.Identity) int { return a.counts[id.Index()] }

// IsLocked reports whether id has been kong'd out of the pool.
func (a *Allocator) IsLocked(id tiles.Identity) bool { return a.locked[id.Index()] }

// Locked lists locked identities in order.
func (a *Allocator) Locked() []tiles.Identity {
	var out []tiles.Identity
	for i, l := range a.locked {
		if l {
			out = append(out, tiles.FromIndex(i))
		}
	}
	return out
}

// Suits returns the available suits in unlock order.
func (a *Allocator) Suits() []tiles.Suit { return append([]tiles.Suit(nil), a.suits...) }

// Reset is the new-hand lifecycle reset: every count and lock is cleared.
// Available suits are kept.
func (a *Allocator) Reset() {
	a.counts = [tiles.NumSlots]int{}
	a.locked = [tiles.NumSlots]bool{}
}

// Unlock applies the suit ratchet for a hand growing to size at the given
// ornament level. It returns the newly unlocked suit, if any.
func (a *Allocator) Unlock(size, ornament, hatLevel, dotLevel int) (tiles.Suit, bool) {
	var next tiles.Suit
	switch {
	case size == 7 && len(a.suits) == 1 && ornament >= hatLevel:
		next = tiles.Hat
	case size == 10 && len(a.suits) == 2 && ornament >= dotLevel:
		next = tiles.Dot
	default:
		return 0, false
	}
	a.suits = append(a.suits, next)
	a.log.Info().Str("suit", next.String()).Int("size", size).Msg("suit unlocked")
	return next, true
}

// Restock rebuilds availability from the hand: every non-blank identity
// counts the copies still held, locked identities count as exhausted.
func (a *Allocator) Restock(held []tiles.Tile) {
	inHand := tiles.Counts(held)
	for _, s := range tiles.AllSuits() {
		for v := tiles.MinValue; v <= tiles.MaxValue; v++ {
			i := tiles.ID(s, v).Index()
			a.counts[i] = inHand[i]
			if a.locked[i] {
				a.counts[i] = tiles.MaxCopies
			}
		}
	}
}

// Remaining is one line of the pool depletion display.
type Remaining struct {
	Tile      tiles.Identity `json:"tile"`
	Remaining int            `json:"remaining"`
}

// Remaining lists identities of the available suits with copies left.
func (a *Allocator) Remaining() []Remaining {
	var out []Remaining
	for _, s := range a.suits {
		for v := tiles.MinValue; v <= tiles.MaxValue; v++ {
			id := tiles.ID(s, v)
			left := tiles.MaxCopies - a.counts[id.Index()]
			if a.locked[id.Index()] {
				left = 0
			}
			if left > 0 {
				out = append(out, Remaining{Tile: id, Remaining: left})
			}
		}
	}
	return out
}
