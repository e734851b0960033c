// internal/tiles/tiles.go
//
// Tile identities for the Loong Tiles engine.
// Defines:
//   - Suit: Plain, Hat, Dot (ordered; unlocked progressively by the pool).
//   - Identity: (suit, value) with value 0..9; value 0 is the blank wildcard.
//   - Tile: an Identity plus the cosmetic FromKong marker.
//
// Identities are totally ordered by suit, then value. Index() gives every
// identity a dense slot so counters can live in fixed arrays instead of maps.

package tiles

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Suit is the tile type tag.
type Suit int8

const (
	Plain Suit = iota
	Hat
	Dot
)

// NumSuits is the number of suits in the tile space.
const NumSuits = 3

const (
	// Blank is the wildcard face value.
	Blank = 0
	// MinValue and MaxValue bound the drawable face values.
	MinValue = 1
	MaxValue = 9
	// MaxCopies is the live-copy cap per non-blank identity.
	MaxCopies = 4
	// NumSlots is the size of an Index()-addressed counter array.
	NumSlots = NumSuits * (MaxValue + 1)
)

var (
	ErrBadSuit  = errors.New("unknown suit")
	ErrBadValue = errors.New("tile value out of range")
	ErrBadTile  = errors.New("malformed tile")
)

// AllSuits lists every suit in order.
func AllSuits() []Suit { return []Suit{Plain, Hat, Dot} }

// String returns the text form used in JSON and config.
func (s Suit) String() string {
	switch s {
	case Plain:
		return "plain"
	case Hat:
		return "hat"
	case Dot:
		return "dot"
	default:
		return "suit(" + strconv.Itoa(int(s)) + ")"
	}
}

// Symbol is the display suffix: "" for plain, "^" for hat, "." for dot.
func (s Suit) Symbol() string {
	switch s {
	case Hat:
		return "^"
	case Dot:
		return "."
	default:
		return ""
	}
}

// Valid reports whether s is one of the three suits.
func (s Suit) Valid() bool { return s >= Plain && s <= Dot }

func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, ErrBadSuit
	}
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	v, err := ParseSuit(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSuit accepts the text form ("plain", "hat", "dot"), case-insensitive.
func ParseSuit(s string) (Suit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return Plain, nil
	case "hat":
		return Hat, nil
	case "dot":
		return Dot, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadSuit, s)
}

// Identity is a tile face independent of which physical copy it is.
type Identity struct {
	Suit  Suit `json:"suit"`
	Value int  `json:"value"`
}

// ID is shorthand for Identity{Suit: s, Value: v}.
func ID(s Suit, v int) Identity { return Identity{Suit: s, Value: v} }

// IsBlank reports whether the identity is the wildcard blank.
func (id Identity) IsBlank() bool { return id.Value == Blank }

// Valid reports whether the identity lives in the tile space.
func (id Identity) Valid() bool {
	return id.Suit.Valid() && id.Value >= Blank && id.Value <= MaxValue
}

// Index maps the identity to [0, NumSlots).
func (id Identity) Index() int { return int(id.Suit)*(MaxValue+1) + id.Value }

// FromIndex is the inverse of Index.
func FromIndex(i int) Identity {
	return Identity{Suit: Suit(i / (MaxValue + 1)), Value: i % (MaxValue + 1)}
}

// Compare orders identities by suit, then value.
func (id Identity) Compare(o Identity) int {
	if id.Suit != o.Suit {
		if id.Suit < o.Suit {
			return -1
		}
		return 1
	}
	switch {
	case id.Value < o.Value:
		return -1
	case id.Value > o.Value:
		return 1
	}
	return 0
}

// Less reports whether id sorts before o.
func (id Identity) Less(o Identity) bool { return id.Compare(o) < 0 }

// String renders "5", "5^", "5." or "0" for blanks.
func (id Identity) String() string {
	if id.IsBlank() {
		return "0"
	}
	return strconv.Itoa(id.Value) + id.Suit.Symbol()
}

// Tile is one physical tile.
type Tile struct {
	Identity
	FromKong bool `json:"fromKong"` // display marker only
}

// New returns a fresh tile of the given identity.
func New(s Suit, v int) Tile { return Tile{Identity: ID(s, v)} }

// Same reports structural equality; FromKong is ignored.
func (t Tile) Same(o Tile) bool { return t.Identity == o.Identity }

// Parse reads the display form produced by String ("7", "3^", "9.", "0").
func Parse(s string) (Tile, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Tile{}, ErrBadTile
	}
	suit := Plain
	switch s[len(s)-1] {
	case '^':
		suit, s = Hat, s[:len(s)-1]
	case '.':
		suit, s = Dot, s[:len(s)-1]
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return Tile{}, fmt.Errorf("%w: %q", ErrBadTile, s)
	}
	if v < Blank || v > MaxValue {
		return Tile{}, fmt.Errorf("%w: %d", ErrBadValue, v)
	}
	return New(suit, v), nil
}

// MustParseAll parses a space separated list and panics on error.
// Intended for fixtures.
func MustParseAll(s string) []Tile {
	fields := strings.Fields(s)
	out := make([]Tile, 0, len(fields))
	for _, f := range fields {
		t, err := Parse(f)
		if err != nil {
			panic(err)
		}
		out = append(out, t)
	}
	return out
}

// Sort orders tiles by identity in place. Equal identities keep their order.
func Sort(ts []Tile) {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Less(ts[j].Identity) })
}

// Clone returns a copy of ts.
func Clone(ts []Tile) []Tile {
	out := make([]Tile, len(ts))
	copy(out, ts)
	return out
}

// Count returns how many tiles in ts match id.
func Count(ts []Tile, id Identity) int {
	n := 0
	for _, t := range ts {
		if t.Identity == id {
			n++
		}
	}
	return n
}

// Counts builds an Index()-addressed multiplicity array.
func Counts(ts []Tile) [NumSlots]int {
	var c [NumSlots]int
	for _, t := range ts {
		c[t.Index()]++
	}
	return c
}

// Join renders tiles as a space separated string.
func Join(ts []Tile) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
