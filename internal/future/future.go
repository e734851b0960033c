// Package future holds the preview-power override: a short queue of
// pre-drawn tiles served ahead of the pool.
package future

import "github.com/loongtiles/go-server/internal/tiles"

// Capacity is the number of tiles one activation queues.
const Capacity = 3

// Queue serves queued tiles in order. The zero value is inactive.
type Queue struct {
	tiles  [Capacity]tiles.Tile
	next   int
	active bool
}

// Activate loads ts and switches the override on.
func (q *Queue) Activate(ts [Capacity]tiles.Tile) {
	q.tiles = ts
	q.next = 0
	q.active = true
}

// Consume serves the next queued tile. Serving the last one switches the
// override off.
func (q *Queue) Consume() (tiles.Tile, bool) {
	if !q.active {
		return tiles.Tile{}, false
	}
	t := q.tiles[q.next]
	q.next++
	if q.next >= Capacity {
		q.Clear()
	}
	return t, true
}

func (q *Queue) Active() bool { return q.active }

// Remaining is the number of tiles still to be served.
func (q *Queue) Remaining() int {
	if !q.active {
		return 0
	}
	return Capacity - q.next
}

// Peek returns the tiles still queued, in serve order.
func (q *Queue) Peek() []tiles.Tile {
	if !q.active {
		return nil
	}
	return tiles.Clone(q.tiles[q.next:])
}

// Clear drops any queued tiles.
func (q *Queue) Clear() { *q = Queue{} }

// State is the serializable form of the queue.
type State struct {
	Pending []tiles.Tile `json:"pending,omitempty"`
}

func (q *Queue) State() State { return State{Pending: q.Peek()} }

// Restore rebuilds the queue so the pending tiles are served next.
func (q *Queue) Restore(st State) {
	q.Clear()
	n := len(st.Pending)
	if n == 0 || n > Capacity {
		return
	}
	q.next = Capacity - n
	copy(q.tiles[q.next:], st.Pending)
	q.active = true
}
