package game

import (
	"fmt"
	"strings"

	"github.com/loongtiles/go-server/internal/future"
	"github.com/loongtiles/go-server/internal/tiles"
)

// Ability is a player power that acts on the engine.
type Ability int

const (
	FutureSight Ability = iota + 1
	TileWisdom
	BurningTiles
	TidalShuffle
	ZeroMastery
	NightmareTiles
	Purification
)

// Capabilities classify an ability. Preview powers feed the future queue;
// shift powers rewrite the preview, the hand or the pool.
type Capabilities struct {
	IsPreviewPower bool `json:"isPreviewPower"`
	IsShiftPower   bool `json:"isShiftPower"`
}

type abilityInfo struct {
	name string
	caps Capabilities
}

var abilityTable = map[Ability]abilityInfo{
	FutureSight:    {"future_sight", Capabilities{IsPreviewPower: true}},
	TileWisdom:     {"tile_wisdom", Capabilities{IsShiftPower: true}},
	BurningTiles:   {"burning_tiles", Capabilities{IsShiftPower: true}},
	TidalShuffle:   {"tidal_shuffle", Capabilities{IsShiftPower: true}},
	ZeroMastery:    {"zero_mastery", Capabilities{IsShiftPower: true}},
	NightmareTiles: {"nightmare_tiles", Capabilities{IsShiftPower: true}},
	Purification:   {"purification", Capabilities{IsShiftPower: true}},
}

// AllAbilities lists abilities in declaration order.
func AllAbilities() []Ability {
	return []Ability{FutureSight, TileWisdom, BurningTiles, TidalShuffle, ZeroMastery, NightmareTiles, Purification}
}

func (a Ability) String() string {
	if info, ok := abilityTable[a]; ok {
		return info.name
	}
	return fmt.Sprintf("ability(%d)", int(a))
}

func (a Ability) Capabilities() Capabilities { return abilityTable[a].caps }

func (a Ability) Valid() bool {
	_, ok := abilityTable[a]
	return ok
}

// ParseAbility accepts the snake_case name, case-insensitive.
func ParseAbility(s string) (Ability, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, info := range abilityTable {
		if info.name == s {
			return a, nil
		}
	}
	return 0, ErrUnknownAbility.WithCause(fmt.Errorf("%q", s))
}

func (a Ability) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, ErrUnknownAbility
	}
	return []byte(a.String()), nil
}

func (a *Ability) UnmarshalText(b []byte) error {
	v, err := ParseAbility(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AbilityResult reports what an ability changed. Next is set when the
// preview tile was replaced.
type AbilityResult struct {
	Ability    Ability      `json:"ability"`
	Next       *tiles.Tile  `json:"next,omitempty"`
	Queued     []tiles.Tile `json:"queued,omitempty"`
	Reshuffled bool         `json:"reshuffled,omitempty"`
	Replaced   *tiles.Tile  `json:"replaced,omitempty"`
}

// CanUse reports whether a would act right now. A preview power cannot be
// used while an earlier activation still has tiles queued.
func (e *Engine) CanUse(a Ability) bool {
	if !a.Valid() {
		return false
	}
	return !(a.Capabilities().IsPreviewPower && e.queue.Active())
}

// AbilityStatus is an ability with its flags and whether it can be used now.
type AbilityStatus struct {
	Ability Ability `json:"ability"`
	Capabilities
	Ready bool `json:"ready"`
}

// Abilities lists every ability with its current readiness.
func (e *Engine) Abilities() []AbilityStatus {
	out := make([]AbilityStatus, 0, len(abilityTable))
	for _, a := range AllAbilities() {
		out = append(out, AbilityStatus{Ability: a, Capabilities: a.Capabilities(), Ready: e.CanUse(a)})
	}
	return out
}

// UseAbility applies a to the engine. preview is the tile currently shown
// to the player; abilities that discard it route it to the ledger.
func (e *Engine) UseAbility(a Ability, preview tiles.Tile, bias float64) (AbilityResult, error) {
	res := AbilityResult{Ability: a}
	if a.Valid() && !e.CanUse(a) {
		return res, ErrAbilityNoEffect.WithCause(fmt.Errorf("%s: %d tiles still queued", a, e.queue.Remaining()))
	}
	switch a {
	case FutureSight:
		var ts [future.Capacity]tiles.Tile
		for i := range ts {
			ts[i] = e.pool.Draw(bias)
		}
		e.queue.Activate(ts)
		res.Queued = ts[:]

	case TileWisdom:
		e.discards.Record(preview)
		next := e.DrawNext(bias)
		res.Next = &next

	case BurningTiles:
		id, ok := e.mostHeld()
		if !ok {
			return res, ErrAbilityNoEffect.WithCause(fmt.Errorf("%s: no unlocked tile in hand", a))
		}
		res.Next = e.conjure(preview, id)

	case TidalShuffle:
		res.Reshuffled = e.Reshuffle()

	case ZeroMastery:
		res.Next = e.conjure(preview, tiles.ID(tiles.Plain, tiles.Blank))

	case NightmareTiles:
		if e.hand.IsKeepSelected() {
			return res, ErrAbilityNoEffect.WithCause(fmt.Errorf("%s: keep slot selected", a))
		}
		pointed := e.hand.Tiles()[e.hand.Cursor()]
		if e.pool.IsLocked(pointed.Identity) {
			return res, ErrAbilityNoEffect.WithCause(fmt.Errorf("%s: %s is a kong tile", a, pointed))
		}
		res.Next = e.conjure(preview, pointed.Identity)

	case Purification:
		if e.hand.Len() == 0 {
			return res, ErrAbilityNoEffect.WithCause(fmt.Errorf("%s: empty hand", a))
		}
		blank := tiles.New(tiles.Plain, tiles.Blank)
		old, err := e.hand.Set(0, blank)
		if err != nil {
			return res, ErrInvalidState.WithCause(err)
		}
		e.pool.Take(blank.Identity)
		e.discards.Record(old)
		res.Replaced = &old

	default:
		return res, ErrUnknownAbility.WithCause(fmt.Errorf("%d", int(a)))
	}
	e.log.Debug().Stringer("ability", a).Msg("ability used")
	return res, nil
}

// conjure discards the preview and returns a fresh tile of id in its place.
func (e *Engine) conjure(preview tiles.Tile, id tiles.Identity) *tiles.Tile {
	e.discards.Record(preview)
	e.pool.Take(id)
	t := tiles.Tile{Identity: id}
	return &t
}

// mostHeld returns the identity with the most copies in hand, ignoring
// locked identities. Ties go to the lowest identity.
func (e *Engine) mostHeld() (tiles.Identity, bool) {
	counts := tiles.Counts(e.hand.Tiles())
	best, bestN := -1, 0
	for i, n := range counts {
		if n > bestN && !e.pool.IsLocked(tiles.FromIndex(i)) {
			best, bestN = i, n
		}
	}
	if best < 0 {
		return tiles.Identity{}, false
	}
	return tiles.FromIndex(best), true
}
