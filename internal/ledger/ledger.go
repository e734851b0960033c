// internal/ledger/ledger.go
//
// Discard pile and reshuffle.
// Every tile that leaves play (displaced, kept-away or exiled by a kong) is
// recorded here. Recording arms a one-shot reshuffle that hands the pool
// back its discarded copies.

package ledger

import (
	"github.com/loongtiles/go-server/internal/tiles"
)

// Restocker rebuilds pool availability from the tiles still held.
type Restocker interface {
	Restock(held []tiles.Tile)
}

// Ledger is not safe for concurrent use.
type Ledger struct {
	history   []tiles.Tile
	counts    [tiles.NumSlots]int
	available bool
}

func New() *Ledger { return &Ledger{} }

// Record appends t to the pile and arms the reshuffle.
func (l *Ledger) Record(t tiles.Tile) {
	t.FromKong = false
	l.history = append(l.history, t)
	l.counts[t.Index()]++
	l.available = true
}

// Reshuffle restocks the pool from held and empties the pile.
// It is a no-op returning false when nothing was recorded since the last one.
func (l *Ledger) Reshuffle(r Restocker, held []tiles.Tile) bool {
	if !l.available {
		return false
	}
	r.Restock(held)
	l.history = nil
	l.counts = [tiles.NumSlots]int{}
	l.available = false
	return true
}

// Available reports whether a reshuffle would do anything.
func (l *Ledger) Available() bool { return l.available }

// History returns discarded tiles in the order they left play.
func (l *Ledger) History() []tiles.Tile { return tiles.Clone(l.history) }

// Sorted returns the pile ordered by identity.
func (l *Ledger) Sorted() []tiles.Tile {
	out := tiles.Clone(l.history)
	tiles.Sort(out)
	return out
}

// Discarded returns how many copies of id are in the pile.
func (l *Ledger) Discarded(id tiles.Identity) int { return l.counts[id.Index()] }

func (l *Ledger) Len() int { return len(l.history) }

// State is the serializable form of the ledger.
type State struct {
	History   []tiles.Tile `json:"history"`
	Available bool         `json:"available"`
}

func (l *Ledger) State() State {
	return State{History: l.History(), Available: l.available}
}

// Restore replaces the ledger contents; counts are rebuilt from History.
func (l *Ledger) Restore(st State) {
	l.history = tiles.Clone(st.History)
	l.counts = tiles.Counts(st.History)
	l.available = st.Available
}
