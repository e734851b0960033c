// internal/resolver/resolver.go
//
// Win and kong detection for a hand plus one candidate tile.
// Responsibilities:
//   - Mahjong: N groups (triplets or same-suit runs) plus exactly one pair,
//     found by exhaustive backtracking over a dense count array.
//   - Loong: any suit holding every value 1..9.
//   - Kong: the candidate completes four of a kind.
//
// Notes:
//   - The search mutates one [NumSlots]int in place and undoes each choice
//     on the way back; no per-branch copies.
//   - Blanks take part only as their own identity (triplet or pair of 0s);
//     runs start at value 1.

package resolver

import (
	"errors"
	"fmt"

	"github.com/loongtiles/go-server/internal/hand"
	"github.com/loongtiles/go-server/internal/tiles"
)

// ErrInvalidHandSize means the hand plus candidate has no mahjong shape.
// It signals broken engine state rather than a losing hand.
var ErrInvalidHandSize = errors.New("no mahjong shape for hand size")

// GroupKind classifies a group in a decomposition.
type GroupKind string

const (
	Triplet GroupKind = "triplet"
	Run     GroupKind = "run"
	Pair    GroupKind = "pair"
)

// Group is one part of a winning decomposition.
type Group struct {
	Kind  GroupKind        `json:"kind"`
	Tiles []tiles.Identity `json:"tiles"`
}

func (g Group) String() string {
	s := string(g.Kind)
	for _, id := range g.Tiles {
		s += " " + id.String()
	}
	return s
}

// Locker removes an identity from future draws.
type Locker interface {
	LockIdentity(id tiles.Identity)
}

// RequiredGroups maps the size of hand+candidate to the number of groups
// a mahjong needs besides the pair.
func RequiredGroups(n int) (int, error) {
	switch n {
	case 5:
		return 1, nil
	case 8:
		return 2, nil
	case 11:
		return 3, nil
	case 14:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidHandSize, n)
}

// CheckMahjong reports whether hand plus candidate forms a winning shape.
func CheckMahjong(held []tiles.Tile, candidate tiles.Tile) (bool, error) {
	_, ok, err := Decompose(held, candidate)
	return ok, err
}

// Decompose returns the first winning partition found, pair last.
func Decompose(held []tiles.Tile, candidate tiles.Tile) ([]Group, bool, error) {
	need, err := RequiredGroups(len(held) + 1)
	if err != nil {
		return nil, false, err
	}
	s := &search{need: need}
	s.counts = tiles.Counts(held)
	s.counts[candidate.Index()]++
	if !s.run(0) {
		return nil, false, nil
	}
	for i, n := range s.counts {
		if n == 2 {
			id := tiles.FromIndex(i)
			s.path = append(s.path, Group{Kind: Pair, Tiles: []tiles.Identity{id, id}})
		}
	}
	return s.path, true, nil
}

type search struct {
	counts [tiles.NumSlots]int
	need   int
	path   []Group
}

func (s *search) run(found int) bool {
	if found == s.need {
		return s.onePairLeft()
	}

	for i := range s.counts {
		if s.counts[i] < 3 {
			continue
		}
		id := tiles.FromIndex(i)
		s.counts[i] -= 3
		s.path = append(s.path, Group{Kind: Triplet, Tiles: []tiles.Identity{id, id, id}})
		if s.run(found + 1) {
			return true
		}
		s.path = s.path[:len(s.path)-1]
		s.counts[i] += 3
	}

	for _, suit := range tiles.AllSuits() {
		for start := tiles.MinValue; start <= tiles.MaxValue-2; start++ {
			a := tiles.ID(suit, start).Index()
			if s.counts[a] == 0 || s.counts[a+1] == 0 || s.counts[a+2] == 0 {
				continue
			}
			s.counts[a]--
			s.counts[a+1]--
			s.counts[a+2]--
			s.path = append(s.path, Group{Kind: Run, Tiles: []tiles.Identity{
				tiles.FromIndex(a), tiles.FromIndex(a + 1), tiles.FromIndex(a + 2),
			}})
			if s.run(found + 1) {
				return true
			}
			s.path = s.path[:len(s.path)-1]
			s.counts[a]++
			s.counts[a+1]++
			s.counts[a+2]++
		}
	}
	return false
}

// onePairLeft: exactly one slot holds 2 and every other slot is empty.
func (s *search) onePairLeft() bool {
	pairs := 0
	for _, n := range s.counts {
		switch {
		case n == 2:
			pairs++
		case n != 0:
			return false
		}
	}
	return pairs == 1
}

// CheckLoong reports whether some suit holds exactly the values 1..9
// across hand plus candidate.
func CheckLoong(held []tiles.Tile, candidate tiles.Tile) bool {
	var seen [tiles.NumSlots]bool
	for _, t := range held {
		seen[t.Index()] = true
	}
	seen[candidate.Index()] = true

	for _, suit := range tiles.AllSuits() {
		if seen[tiles.ID(suit, tiles.Blank).Index()] {
			continue
		}
		all := true
		for v := tiles.MinValue; v <= tiles.MaxValue; v++ {
			if !seen[tiles.ID(suit, v).Index()] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// CheckKong reports whether the hand already holds exactly three copies of
// candidate. On a kong the identity is locked (blanks never are) and the
// held copies are marked.
func CheckKong(h *hand.Hand, candidate tiles.Tile, locker Locker) bool {
	if h.Count(candidate.Identity) != 3 {
		return false
	}
	if !candidate.IsBlank() && locker != nil {
		locker.LockIdentity(candidate.Identity)
	}
	h.MarkKong(candidate.Identity)
	return true
}
