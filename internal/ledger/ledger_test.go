package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loongtiles/go-server/internal/tiles"
)

type fakePool struct {
	calls int
	held  []tiles.Tile
}

func (f *fakePool) Restock(held []tiles.Tile) {
	f.calls++
	f.held = held
}

func TestRecordAndQueries(t *testing.T) {
	l := New()
	assert.False(t, l.Available())

	k := tiles.New(tiles.Hat, 2)
	k.FromKong = true
	for _, x := range append(tiles.MustParseAll("7 3 7"), k) {
		l.Record(x)
	}

	assert.True(t, l.Available())
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, "7 3 7 2^", tiles.Join(l.History()))
	assert.Equal(t, "3 7 7 2^", tiles.Join(l.Sorted()))
	assert.Equal(t, 2, l.Discarded(tiles.ID(tiles.Plain, 7)))
	assert.Equal(t, 0, l.Discarded(tiles.ID(tiles.Plain, 1)))
	assert.False(t, l.History()[3].FromKong, "pile stores plain copies")
}

func TestReshuffleIsOneShot(t *testing.T) {
	l := New()
	p := &fakePool{}
	held := tiles.MustParseAll("1 2 3 4")

	assert.False(t, l.Reshuffle(p, held), "nothing recorded yet")
	assert.Equal(t, 0, p.calls)

	l.Record(tiles.New(tiles.Plain, 9))
	assert.True(t, l.Reshuffle(p, held))
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, held, p.held)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Discarded(tiles.ID(tiles.Plain, 9)))

	assert.False(t, l.Reshuffle(p, held), "second reshuffle is a no-op")
	assert.Equal(t, 1, p.calls)
}

func TestStateRestore(t *testing.T) {
	l := New()
	l.Record(tiles.New(tiles.Dot, 4))
	l.Record(tiles.New(tiles.Dot, 4))

	back := New()
	back.Restore(l.State())
	assert.Equal(t, l.History(), back.History())
	assert.Equal(t, 2, back.Discarded(tiles.ID(tiles.Dot, 4)))
	assert.True(t, back.Available())
}
