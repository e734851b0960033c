// internal/game/session.go
//
// A single run: one engine plus the progression around it.
// Responsibilities:
//   - Hold the preview tile and feed it to the engine on every eat.
//   - Count mahjongs, raise the ornament level and redeal the next hand
//     size (4 → 7 → 10 → 13) after each one.
//   - End the run on a loong once enough mahjongs are in, or when the
//     client reports the snake died.

package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/loongtiles/go-server/internal/hand"
	"github.com/loongtiles/go-server/internal/tiles"
)

// Game is one session. It is not safe for concurrent use.
type Game struct {
	ID           string
	Difficulty   Difficulty
	Daily        string // date key for daily runs, empty otherwise
	Status       Status
	Wins         int
	WinsRequired int
	TilesTaken   int
	Kongs        int
	Bias         float64
	Next         tiles.Tile
	StartedAt    time.Time
	FinishedAt   time.Time

	Engine *Engine
}

type options struct {
	seed   [2]uint64
	daily  string
	bias   float64
	levels [3]int
	log    zerolog.Logger
}

// Option configures New.
type Option func(*options)

// WithSeed makes the run reproducible.
func WithSeed(s1, s2 uint64) Option { return func(o *options) { o.seed = [2]uint64{s1, s2} } }

// WithDaily tags the run with a daily date key.
func WithDaily(date string) Option { return func(o *options) { o.daily = date } }

// WithBias sets the draw bias strength used for previews.
func WithBias(b float64) Option { return func(o *options) { o.bias = b } }

// WithLevels overrides the hat, dot and loong ornament thresholds.
func WithLevels(hat, dot, loong int) Option {
	return func(o *options) { o.levels = [3]int{hat, dot, loong} }
}

func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// New starts a run from preset p and draws the first preview.
func New(p Preset, opts ...Option) (*Game, error) {
	def := DefaultConfig()
	o := options{
		levels: [3]int{def.HatUnlockLevel, def.DotUnlockLevel, def.LoongLevel},
	}
	for _, fn := range opts {
		fn(&o)
	}

	id := uuid.NewString()
	logger := o.log.With().Str("gameId", id).Logger()
	e, err := NewEngine(Config{
		MaxSize:        p.HandSize,
		OrnamentLevel:  p.Ornament,
		HatUnlockLevel: o.levels[0],
		DotUnlockLevel: o.levels[1],
		LoongLevel:     o.levels[2],
		Seed:           o.seed,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	g := &Game{
		ID:           id,
		Difficulty:   p.Name,
		Daily:        o.daily,
		Status:       StatusPlaying,
		WinsRequired: p.WinsRequired,
		Bias:         o.bias,
		StartedAt:    time.Now(),
		Engine:       e,
	}
	g.Next = e.DrawNext(g.Bias)
	return g, nil
}

// Finished reports whether the run is over.
func (g *Game) Finished() bool { return g.Status != StatusPlaying }

// Ornament is the current ornament level.
func (g *Game) Ornament() int { return g.Engine.Ornament() }

// Elapsed is the run time so far, or the final time once finished.
func (g *Game) Elapsed() time.Duration {
	if g.FinishedAt.IsZero() {
		return time.Since(g.StartedAt)
	}
	return g.FinishedAt.Sub(g.StartedAt)
}

// Outcome reports one eaten tile.
type Outcome struct {
	Tile   tiles.Tile `json:"tile"`
	Event  Event      `json:"event"`
	Result Result     `json:"result"`
	Status Status     `json:"status"`
	// Expanded is set when a mahjong redealt the hand.
	Expanded bool       `json:"expanded"`
	Next     tiles.Tile `json:"next"`
}

// Eat feeds the preview tile to the engine and applies progression.
//
// A kong only counts the kong. A loong ends the run once WinsRequired
// mahjongs are in; before that it counts as a mahjong. With the keep slot
// selected at the loong level, only a loong counts.
func (g *Game) Eat() (Outcome, error) {
	if g.Finished() {
		return Outcome{}, ErrGameFinished
	}
	t := g.Next
	keepFinal := g.Engine.KeepSelected() && g.Engine.Ornament() >= g.Engine.LoongLevel()

	res, err := g.Engine.SubmitTile(t)
	if err != nil {
		return Outcome{}, err
	}
	g.TilesTaken++
	out := Outcome{Tile: t, Result: res, Event: EventPlaced}
	if res.Kept {
		out.Event = EventKept
	}

	switch {
	case res.IsKong:
		g.Kongs++
		out.Event = EventKong

	case res.IsLoong && g.Wins >= g.WinsRequired:
		out.Event = EventLoong
		g.finish(StatusWon)

	case (res.IsMahjong || res.IsLoong) && !keepFinal:
		out.Event = EventMahjong
		g.Wins++
		ornament := max(g.Engine.Ornament(), min(g.Wins, MaxOrnament))
		if err := g.Engine.ExpandHand(hand.NextSize(g.Engine.MaxSize()), ornament, hand.FullRedraw); err != nil {
			return Outcome{}, err
		}
		out.Expanded = true
	}

	if !g.Finished() {
		g.Next = g.Engine.DrawNext(g.Bias)
	}
	out.Status = g.Status
	out.Next = g.Next
	return out, nil
}

// UseAbility applies a and swaps in a new preview when the ability made one.
func (g *Game) UseAbility(a Ability) (AbilityResult, error) {
	if g.Finished() {
		return AbilityResult{}, ErrGameFinished
	}
	res, err := g.Engine.UseAbility(a, g.Next, g.Bias)
	if err != nil {
		return res, err
	}
	if res.Next != nil {
		g.Next = *res.Next
	}
	return res, nil
}

// MoveCursor moves the hand cursor and returns its new position.
func (g *Game) MoveCursor(m CursorMove) (int, error) {
	if g.Finished() {
		return 0, ErrGameFinished
	}
	return g.Engine.MoveCursor(m), nil
}

// Reshuffle returns discarded tiles to the pool.
func (g *Game) Reshuffle() (bool, error) {
	if g.Finished() {
		return false, ErrGameFinished
	}
	return g.Engine.Reshuffle(), nil
}

// End records a loss reported by the client.
func (g *Game) End() error {
	if g.Finished() {
		return ErrGameFinished
	}
	g.finish(StatusLost)
	return nil
}

func (g *Game) finish(s Status) {
	g.Status = s
	g.FinishedAt = time.Now()
}
