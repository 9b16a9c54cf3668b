package quadtree

import "github.com/gogpu/globe/internal/cache"

// ReplacementQueue orders resident tiles from most recently rendered
// (head) to least recently rendered (tail).
//
// MarkStartOfRenderFrame remembers the head. Every tile touched afterwards
// moves in front of it, so at trim time the tiles from the marker to the
// tail are exactly those not used in the current frame.
type ReplacementQueue struct {
	list                   cache.List[*Tile]
	lastBeforeStartOfFrame *Tile
}

// Count returns the number of tiles in the queue.
func (q *ReplacementQueue) Count() int { return q.list.Len() }

// Head returns the most recently rendered tile, or nil.
func (q *ReplacementQueue) Head() *Tile { return tileOf(q.list.Front()) }

// Tail returns the least recently rendered tile, or nil.
func (q *ReplacementQueue) Tail() *Tile { return tileOf(q.list.Back()) }

// Contains reports whether t is in the queue.
func (q *ReplacementQueue) Contains(t *Tile) bool { return t.replacement.Attached(&q.list) }

func tileOf(n *cache.Node[*Tile]) *Tile {
	if n == nil {
		return nil
	}
	return n.Value
}

// Next returns the tile behind t, toward the tail.
func (q *ReplacementQueue) Next(t *Tile) *Tile { return tileOf(t.replacement.Next()) }

// MarkStartOfRenderFrame records the current head as the last tile
// rendered before this frame.
func (q *ReplacementQueue) MarkStartOfRenderFrame() {
	q.lastBeforeStartOfFrame = q.Head()
}

// MarkTileRendered moves t to the head, adding it if needed.
func (q *ReplacementQueue) MarkTileRendered(t *Tile) {
	if t == q.lastBeforeStartOfFrame {
		q.lastBeforeStartOfFrame = q.Next(t)
	}
	q.list.MoveToFront(&t.replacement)
}

// TrimTiles frees tiles from the tail until at most maximumTiles remain
// or a tile rendered this frame is reached. A freed tile leaves the tree
// together with its descendants. Tiles whose subtree is not eligible for unloading are
// skipped. It returns the number of tiles freed, descendants included.
func (q *ReplacementQueue) TrimTiles(maximumTiles int) int {
	freed := 0
	t := q.Tail()
	keepTrimming := true
	for keepTrimming && q.lastBeforeStartOfFrame != nil && q.Count() > maximumTiles && t != nil {
		if !t.subtreeEligibleForUnloading() {
			keepTrimming = t != q.lastBeforeStartOfFrame
			t = tileOf(t.replacement.Prev())
			continue
		}
		freed += q.removeDescendants(t)
		// Removing descendants can move the marker onto t.
		keepTrimming = t != q.lastBeforeStartOfFrame
		previous := tileOf(t.replacement.Prev())
		t.FreeResources()
		t.detachFromParent()
		q.remove(t)
		freed++
		t = previous
	}
	return freed
}

// removeDescendants takes every descendant of t out of the queue and
// returns how many were queued.
func (q *ReplacementQueue) removeDescendants(t *Tile) int {
	n := 0
	for _, c := range t.children {
		if c == nil {
			continue
		}
		n += q.removeDescendants(c)
		if q.Contains(c) {
			q.remove(c)
			n++
		}
	}
	return n
}

func (q *ReplacementQueue) remove(t *Tile) {
	if t == q.lastBeforeStartOfFrame {
		q.lastBeforeStartOfFrame = q.Next(t)
	}
	q.list.Remove(&t.replacement)
}

// Clear empties the queue without freeing anything.
func (q *ReplacementQueue) Clear() {
	q.list.Clear()
	q.lastBeforeStartOfFrame = nil
}
