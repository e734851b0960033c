// internal/game/types.go
//
// Session-level type definitions.
// Defines:
//   - Status: playing → won/lost.
//   - Difficulty and Preset: starting hand size, wins required before a
//     loong ends the run, and starting ornament level.
//   - Event: what a single eaten tile did.

package game

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Difficulty names a starting preset.
type Difficulty string

const (
	Foundation   Difficulty = "foundation"
	GoldenCore   Difficulty = "golden_core"
	NascentSoul  Difficulty = "nascent_soul"
	Ascension    Difficulty = "ascension"
	ImmortalSage Difficulty = "immortal_sage"
)

// Preset configures how a session starts.
type Preset struct {
	Name         Difficulty `mapstructure:"name" json:"name"`
	HandSize     int        `mapstructure:"hand_size" json:"handSize"`
	WinsRequired int        `mapstructure:"wins_required" json:"winsRequired"`
	Ornament     int        `mapstructure:"ornament" json:"ornament"`
}

// DefaultPresets returns the built-in difficulty ladder.
func DefaultPresets() map[Difficulty]Preset {
	return map[Difficulty]Preset{
		Foundation:   {Name: Foundation, HandSize: 4},
		GoldenCore:   {Name: GoldenCore, HandSize: 4},
		NascentSoul:  {Name: NascentSoul, HandSize: 7, WinsRequired: 2},
		Ascension:    {Name: Ascension, HandSize: 10, WinsRequired: 5},
		ImmortalSage: {Name: ImmortalSage, HandSize: 13, WinsRequired: 5, Ornament: 2},
	}
}

// LookupPreset finds d in presets, case-insensitively. An empty name means
// Foundation.
func LookupPreset(presets map[Difficulty]Preset, d string) (Preset, error) {
	d = strings.ToLower(strings.TrimSpace(d))
	if d == "" {
		d = string(Foundation)
	}
	if p, ok := presets[Difficulty(d)]; ok {
		return p, nil
	}
	return Preset{}, ErrUnknownDifficulty.WithCause(fmt.Errorf("%q", d))
}

// Event is the headline of an eaten tile.
type Event string

const (
	EventPlaced  Event = "placed"
	EventKept    Event = "kept"
	EventKong    Event = "kong"
	EventMahjong Event = "mahjong"
	EventLoong   Event = "loong"
)
