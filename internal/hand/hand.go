// internal/hand/hand.go
//
// The player's hand: an ordered tile sequence plus an insertion cursor.
// Responsibilities:
//   - Keep tiles sorted by (suit, value) after every mutation.
//   - Replace the tile under the cursor and follow the new tile with it.
//   - Grow the hand between the legal sizes 4, 7, 10 and 13.
//
// Notes:
//   - cursor == MaxSize() is the "keep" slot: the incoming tile is discarded.
//   - The hand never draws tiles itself; callers pass a Drawer.

package hand

import (
	"errors"
	"fmt"

	"github.com/loongtiles/go-server/internal/tiles"
)

var (
	ErrInvalidSize       = errors.New("invalid hand size")
	ErrCursorOutOfRange  = errors.New("cursor out of range")
	ErrIndexOutOfRange   = errors.New("tile index out of range")
	ErrUnknownExpandMode = errors.New("unknown expand mode")
)

// Sizes lists the legal hand sizes in growth order.
var Sizes = []int{4, 7, 10, 13}

// ValidSize reports whether n is a legal hand size.
func ValidSize(n int) bool {
	for _, s := range Sizes {
		if s == n {
			return true
		}
	}
	return false
}

// NextSize returns the size after n, or n itself at the top.
func NextSize(n int) int {
	for i, s := range Sizes {
		if s == n && i+1 < len(Sizes) {
			return Sizes[i+1]
		}
	}
	return n
}

// ExpandMode selects how ExpandTo fills the hand.
type ExpandMode int

const (
	// Incremental keeps the held tiles and draws only the difference.
	Incremental ExpandMode = iota
	// FullRedraw discards the held tiles and deals a fresh hand.
	FullRedraw
)

func (m ExpandMode) String() string {
	switch m {
	case Incremental:
		return "incremental"
	case FullRedraw:
		return "full_redraw"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is a known mode.
func (m ExpandMode) Valid() bool { return m == Incremental || m == FullRedraw }

// Drawer produces the next tile for the hand.
type Drawer func() tiles.Tile

// Hand is mutated in place and is not safe for concurrent use.
type Hand struct {
	tiles   []tiles.Tile
	cursor  int
	maxSize int
}

// New returns an empty hand of the given size. Fill it with ExpandTo.
func New(maxSize int) (*Hand, error) {
	if !ValidSize(maxSize) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, maxSize)
	}
	return &Hand{tiles: make([]tiles.Tile, 0, maxSize), maxSize: maxSize}, nil
}

// Tiles returns a copy of the hand in display order.
func (h *Hand) Tiles() []tiles.Tile { return tiles.Clone(h.tiles) }

// Len is the number of tiles currently held.
func (h *Hand) Len() int { return len(h.tiles) }

func (h *Hand) Cursor() int  { return h.cursor }
func (h *Hand) MaxSize() int { return h.maxSize }

// IsKeepSelected reports whether the cursor sits on the keep slot.
func (h *Hand) IsKeepSelected() bool { return h.cursor == h.maxSize }

// Count returns how many held tiles match id.
func (h *Hand) Count(id tiles.Identity) int { return tiles.Count(h.tiles, id) }

// ReplaceAt swaps the tile at cursor for t, re-sorts, and moves the cursor
// to the first tile equal to t. It returns the displaced tile.
func (h *Hand) ReplaceAt(cursor int, t tiles.Tile) (tiles.Tile, error) {
	if cursor < 0 || cursor >= h.maxSize || cursor >= len(h.tiles) {
		return tiles.Tile{}, fmt.Errorf("%w: %d", ErrCursorOutOfRange, cursor)
	}
	old := h.tiles[cursor]
	h.tiles[cursor] = t
	tiles.Sort(h.tiles)
	for i, x := range h.tiles {
		if x.Same(t) {
			h.cursor = i
			break
		}
	}
	return old, nil
}

// Set overwrites the tile at i and re-sorts. The cursor is left alone.
func (h *Hand) Set(i int, t tiles.Tile) (tiles.Tile, error) {
	if i < 0 || i >= len(h.tiles) {
		return tiles.Tile{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	old := h.tiles[i]
	h.tiles[i] = t
	tiles.Sort(h.tiles)
	return old, nil
}

// MarkKong flags every tile matching id as part of a kong.
func (h *Hand) MarkKong(id tiles.Identity) {
	for i := range h.tiles {
		if h.tiles[i].Identity == id {
			h.tiles[i].FromKong = true
		}
	}
}

// ExpandTo grows the hand to newSize. Incremental appends drawn tiles to the
// ones already held; FullRedraw empties the hand first and resets the cursor.
func (h *Hand) ExpandTo(newSize int, mode ExpandMode, draw Drawer) error {
	if !ValidSize(newSize) || newSize < h.maxSize {
		return fmt.Errorf("%w: %d -> %d", ErrInvalidSize, h.maxSize, newSize)
	}
	switch mode {
	case Incremental:
	case FullRedraw:
		h.tiles = h.tiles[:0]
		h.cursor = 0
	default:
		return fmt.Errorf("%w: %s", ErrUnknownExpandMode, mode)
	}
	h.maxSize = newSize
	// Append one at a time so draw bias sees the partial hand.
	for len(h.tiles) < newSize {
		h.tiles = append(h.tiles, draw())
	}
	tiles.Sort(h.tiles)
	h.cursor = min(h.cursor, h.maxSize)
	return nil
}

// Move shifts the cursor by delta, clamped to [0, MaxSize()].
// It reports whether clamping was needed.
func (h *Hand) Move(delta int) bool {
	want := h.cursor + delta
	h.cursor = max(0, min(want, h.maxSize))
	return h.cursor != want
}

// ToStart moves the cursor to the first tile.
func (h *Hand) ToStart() { h.cursor = 0 }

// ToEnd moves the cursor to the keep slot.
func (h *Hand) ToEnd() { h.cursor = h.maxSize }

// State is the serializable form of a hand.
type State struct {
	Tiles   []tiles.Tile `json:"tiles"`
	Cursor  int          `json:"cursor"`
	MaxSize int          `json:"maxSize"`
}

func (h *Hand) State() State {
	return State{Tiles: h.Tiles(), Cursor: h.cursor, MaxSize: h.maxSize}
}

// FromState rebuilds a hand, validating size and cursor.
func FromState(st State) (*Hand, error) {
	h, err := New(st.MaxSize)
	if err != nil {
		return nil, err
	}
	if len(st.Tiles) > st.MaxSize {
		return nil, fmt.Errorf("%w: %d tiles in a hand of %d", ErrInvalidSize, len(st.Tiles), st.MaxSize)
	}
	if st.Cursor < 0 || st.Cursor > st.MaxSize {
		return nil, fmt.Errorf("%w: %d", ErrCursorOutOfRange, st.Cursor)
	}
	h.tiles = append(h.tiles, st.Tiles...)
	tiles.Sort(h.tiles)
	h.cursor = st.Cursor
	return h, nil
}
