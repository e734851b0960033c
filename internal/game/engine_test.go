package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loongtiles/go-server/internal/hand"
	"github.com/loongtiles/go-server/internal/ledger"
	"github.com/loongtiles/go-server/internal/tiles"
)

func newEngine(t *testing.T, size, ornament int) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxSize = size
	cfg.OrnamentLevel = ornament
	cfg.Seed = [2]uint64{2024, 7}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

// rig replaces the dealt hand with a fixed one and starts a clean pool.
func rig(t *testing.T, e *Engine, held string, cursor int) {
	t.Helper()
	ts := tiles.MustParseAll(held)
	h, err := hand.FromState(hand.State{Tiles: ts, MaxSize: len(ts), Cursor: cursor})
	require.NoError(t, err)
	e.hand = h
	e.pool.Reset()
	e.pool.SetHeld(e.hand.Tiles)
	e.discards = ledger.New()
}

func tile(s string) tiles.Tile { return tiles.MustParseAll(s)[0] }

func TestNewEngineValidatesConfig(t *testing.T) {
	bad := []Config{
		{MaxSize: 5, HatUnlockLevel: 1, DotUnlockLevel: 2, LoongLevel: 3},
		{MaxSize: 4, OrnamentLevel: 4, HatUnlockLevel: 1, DotUnlockLevel: 2, LoongLevel: 3},
		{MaxSize: 4, HatUnlockLevel: 2, DotUnlockLevel: 1, LoongLevel: 3},
	}
	for _, cfg := range bad {
		_, err := NewEngine(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestNewEngineDealsSortedHand(t *testing.T) {
	e := newEngine(t, 7, 0)
	h := e.Hand()
	assert.Len(t, h, 7)
	assert.True(t, isSorted(h))
	assert.Equal(t, []tiles.Suit{tiles.Plain}, e.Suits())

	e = newEngine(t, 7, 1)
	assert.Equal(t, []tiles.Suit{tiles.Plain, tiles.Hat}, e.Suits())
}

func isSorted(ts []tiles.Tile) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i].Less(ts[i-1].Identity) {
			return false
		}
	}
	return true
}

func TestSubmitReplacesAtCursor(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "1 2 8 9", 2)

	res, err := e.SubmitTile(tile("3"))
	require.NoError(t, err)
	assert.False(t, res.IsMahjong)
	assert.Equal(t, "8", res.Displaced.String())
	assert.Equal(t, "1 2 3 9", tiles.Join(e.Hand()))
	assert.Equal(t, 2, e.Cursor())
	assert.Equal(t, "8", tiles.Join(e.DiscardHistory()))
}

func TestWinCheckSeesHandBeforeReplace(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "4 4 5 6", 0)

	res, err := e.SubmitTile(tile("7"))
	require.NoError(t, err)
	assert.True(t, res.IsMahjong)
	assert.Len(t, res.Groups, 2)
	assert.Equal(t, "4", res.Displaced.String())
}

func TestKeepDiscardsCandidate(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "1 2 3 4", 0)
	e.MoveCursor(CursorMove{ToEnd: true})

	res, err := e.SubmitTile(tile("9"))
	require.NoError(t, err)
	assert.True(t, res.Kept)
	assert.Equal(t, "9", res.Displaced.String())
	assert.Equal(t, "1 2 3 4", tiles.Join(e.Hand()))
	assert.True(t, e.ReshuffleAvailable())
}

func TestKongLocksAndExiles(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "5 5 5 7", 3)

	res, err := e.SubmitTile(tile("5"))
	require.NoError(t, err)
	assert.True(t, res.IsKong)
	assert.False(t, res.IsMahjong)
	assert.Equal(t, "5", res.Displaced.String())
	assert.Equal(t, "5 5 5 7", tiles.Join(e.Hand()))
	assert.True(t, e.Hand()[0].FromKong)
	assert.Equal(t, []tiles.Identity{tiles.ID(tiles.Plain, 5)}, e.Locked())
	assert.Equal(t, "5", tiles.Join(e.Discards()))

	// 8 identities x 3 copies remain before an exhaustion reset.
	for i := 0; i < 24; i++ {
		require.NotEqual(t, tiles.ID(tiles.Plain, 5), e.DrawNext(80).Identity)
	}
}

func TestBlankKongRepeats(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "0 0 0 7", 3)
	for i := 0; i < 4; i++ {
		res, err := e.SubmitTile(tile("0"))
		require.NoError(t, err)
		assert.True(t, res.IsKong)
	}
	assert.Empty(t, e.Locked())
}

func TestLoongGatedByOrnament(t *testing.T) {
	held := "1 2 3 4 6 7 8 9 1^ 2^ 3^ 4^ 9^"

	e := newEngine(t, 13, 2)
	rig(t, e, held, 0)
	res, err := e.SubmitTile(tile("5"))
	require.NoError(t, err)
	assert.False(t, res.IsLoong)

	e = newEngine(t, 13, 3)
	rig(t, e, held, 0)
	res, err = e.SubmitTile(tile("5"))
	require.NoError(t, err)
	assert.True(t, res.IsLoong)
	assert.False(t, res.IsMahjong)
}

func TestSubmitOnPartialHandIsInvalidState(t *testing.T) {
	e := newEngine(t, 4, 0)
	h, err := hand.FromState(hand.State{Tiles: tiles.MustParseAll("1 2"), MaxSize: 4})
	require.NoError(t, err)
	e.hand = h

	_, err = e.SubmitTile(tile("3"))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "INVALID_STATE", CodeOf(err))

	_, err = e.SubmitTile(tiles.Tile{Identity: tiles.ID(tiles.Plain, 12)})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestReshuffleRestocksOnce(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "1 2 8 9", 2)
	assert.False(t, e.Reshuffle())

	_, err := e.SubmitTile(tile("3"))
	require.NoError(t, err)
	assert.True(t, e.Reshuffle())
	assert.False(t, e.Reshuffle(), "second reshuffle is a no-op")
	assert.Empty(t, e.Discards())

	left := map[string]int{}
	for _, r := range e.RemainingCounts() {
		left[r.Tile.String()] = r.Remaining
	}
	assert.Equal(t, 3, left["2"], "held copies still count")
	assert.Equal(t, 4, left["8"], "discarded copy returned")
}

func TestExpandHand(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "2 4 6 8", 1)
	before := e.Hand()

	require.NoError(t, e.ExpandHand(7, 0, hand.Incremental))
	after := e.Hand()
	assert.Len(t, after, 7)
	j := 0
	for _, x := range after {
		if j < len(before) && x.Same(before[j]) {
			j++
		}
	}
	assert.Equal(t, len(before), j, "prior tiles keep their relative order")
	assert.Equal(t, []tiles.Suit{tiles.Plain}, e.Suits(), "ornament 0 unlocks nothing")

	err := e.ExpandHand(4, 0, hand.Incremental)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	err = e.ExpandHand(8, 0, hand.Incremental)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExpandHandUnknownModeChangesNothing(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "5 5 5 7", 0)
	_, err := e.SubmitTile(tile("5"))
	require.NoError(t, err)

	err = e.ExpandHand(7, 2, hand.ExpandMode(9))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, hand.ErrUnknownExpandMode)
	assert.Equal(t, 0, e.Ornament())
	assert.Equal(t, []tiles.Suit{tiles.Plain}, e.Suits())
	assert.Len(t, e.Locked(), 1, "pool not reset")
	assert.Equal(t, 4, e.MaxSize())
}

func TestFullRedrawStartsNewLifecycle(t *testing.T) {
	e := newEngine(t, 4, 0)
	rig(t, e, "5 5 5 7", 0)
	_, err := e.SubmitTile(tile("5"))
	require.NoError(t, err)
	require.Len(t, e.Locked(), 1)

	require.NoError(t, e.ExpandHand(7, 1, hand.FullRedraw))
	assert.Empty(t, e.Locked())
	assert.Len(t, e.Hand(), 7)
	assert.Equal(t, 0, e.Cursor())
	assert.Equal(t, 1, e.Ornament())
	assert.Contains(t, e.Suits(), tiles.Hat)
	assert.Len(t, e.Discards(), 1, "discard pile survives a redeal")
}

func TestFutureQueueServesFirst(t *testing.T) {
	e := newEngine(t, 4, 0)
	e.ActivateFuture([3]tiles.Tile{tile("9"), tile("0"), tile("3")})
	assert.Equal(t, "9 0 3", tiles.Join(e.Future()))
	assert.Equal(t, "9", e.DrawNext(0).String())
	assert.Equal(t, "0", e.DrawNext(0).String())
	assert.Equal(t, "3", e.DrawNext(0).String())
	assert.Empty(t, e.Future())
	assert.False(t, e.DrawNext(0).IsBlank(), "pool draws resume")
}

func TestMoveCursorClamps(t *testing.T) {
	e := newEngine(t, 4, 0)
	assert.Equal(t, 3, e.MoveCursor(CursorMove{Delta: 3}))
	assert.Equal(t, 4, e.MoveCursor(CursorMove{Delta: 5}))
	assert.True(t, e.KeepSelected())
	assert.Equal(t, 0, e.MoveCursor(CursorMove{Delta: -9}))
	assert.Equal(t, 4, e.MoveCursor(CursorMove{ToEnd: true}))
	assert.Equal(t, 0, e.MoveCursor(CursorMove{ToStart: true}))
}

func TestEngineSnapshotRoundTrip(t *testing.T) {
	e := newEngine(t, 7, 1)
	_, err := e.SubmitTile(e.DrawNext(50))
	require.NoError(t, err)
	e.ActivateFuture([3]tiles.Tile{tile("1"), tile("2"), tile("3")})
	e.DrawNext(0)

	st, err := e.Snapshot()
	require.NoError(t, err)
	back, err := RestoreEngine(st, e.log)
	require.NoError(t, err)

	assert.Equal(t, e.Hand(), back.Hand())
	assert.Equal(t, e.Cursor(), back.Cursor())
	assert.Equal(t, e.Suits(), back.Suits())
	assert.Equal(t, e.DiscardHistory(), back.DiscardHistory())
	assert.Equal(t, e.Future(), back.Future())
	for i := 0; i < 5; i++ {
		assert.Equal(t, e.DrawNext(40), back.DrawNext(40))
	}

	st.Hand.Tiles = st.Hand.Tiles[:3]
	_, err = RestoreEngine(st, e.log)
	assert.ErrorIs(t, err, ErrInvalidState)
}
