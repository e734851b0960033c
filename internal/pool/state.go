package pool

import (
	"fmt"

	"github.com/loongtiles/go-server/internal/tiles"
)

// State is a serializable copy of the allocator, RNG position included.
type State struct {
	Counts map[string]int `json:"counts"`
	Locked []string       `json:"locked"`
	Suits  []tiles.Suit   `json:"suits"`
	RNG    []byte         `json:"rng"`
}

// State captures the allocator for persistence.
func (a *Allocator) State() (State, error) {
	rng, err := a.src.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("marshal rng: %w", err)
	}
	st := State{Counts: map[string]int{}, Suits: a.Suits(), RNG: rng}
	for i, n := range a.counts {
		if n > 0 {
			st.Counts[tiles.FromIndex(i).String()+"@"+tiles.FromIndex(i).Suit.String()] = n
		}
	}
	for _, id := range a.Locked() {
		st.Locked = append(st.Locked, id.String()+"@"+id.Suit.String())
	}
	return st, nil
}

// Restore replaces the allocator contents with st.
func (a *Allocator) Restore(st State) error {
	var counts [tiles.NumSlots]int
	var locked [tiles.NumSlots]bool
	for k, n := range st.Counts {
		id, err := parseKey(k)
		if err != nil {
			return err
		}
		counts[id.Index()] = n
	}
	for _, k := range st.Locked {
		id, err := parseKey(k)
		if err != nil {
			return err
		}
		locked[id.Index()] = true
	}
	if len(st.RNG) > 0 {
		if err := a.src.UnmarshalBinary(st.RNG); err != nil {
			return fmt.Errorf("unmarshal rng: %w", err)
		}
	}
	a.counts, a.locked = counts, locked
	if len(st.Suits) > 0 {
		a.suits = append([]tiles.Suit(nil), st.Suits...)
	}
	return nil
}

// parseKey reads "<display>@<suit>"; the suit is spelled out so blanks of
// every suit survive the round trip.
func parseKey(k string) (tiles.Identity, error) {
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] != '@' {
			continue
		}
		s, err := tiles.ParseSuit(k[i+1:])
		if err != nil {
			return tiles.Identity{}, err
		}
		t, err := tiles.Parse(k[:i])
		if err != nil {
			return tiles.Identity{}, err
		}
		return tiles.ID(s, t.Value), nil
	}
	return tiles.Identity{}, fmt.Errorf("%w: %q", tiles.ErrBadTile, k)
}
