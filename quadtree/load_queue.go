package quadtree

import "fmt"

// Priority is a load queue tier. The zero value means not queued.
type Priority int

const (
	PriorityNone Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityNone:
		return "none"
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// drainOrder lists tiers from first to last processed.
var drainOrder = [...]Priority{PriorityHigh, PriorityMedium, PriorityLow}

// LoadQueue holds tiles waiting for the provider, in three tiers.
//
// A tile is in at most one tier. Pushing a queued tile again with a
// higher priority moves it; a lower or equal priority is ignored. Moved
// entries are left behind in their old tier and skipped when drained.
type LoadQueue struct {
	tiers  [PriorityHigh + 1][]*Tile
	counts [PriorityHigh + 1]int
}

// Push queues t at p and reports whether its tier changed.
func (q *LoadQueue) Push(t *Tile, p Priority) bool {
	if p <= PriorityNone || p > PriorityHigh || t.queued >= p {
		return false
	}
	if t.queued != PriorityNone {
		q.counts[t.queued]--
	}
	t.queued = p
	q.tiers[p] = append(q.tiers[p], t)
	q.counts[p]++
	return true
}

// PriorityOf returns the tier t is queued in.
func (q *LoadQueue) PriorityOf(t *Tile) Priority { return t.queued }

// Len returns the number of tiles queued at p.
func (q *LoadQueue) Len(p Priority) int {
	if p <= PriorityNone || p > PriorityHigh {
		return 0
	}
	return q.counts[p]
}

// Total returns the number of queued tiles across all tiers.
func (q *LoadQueue) Total() int {
	return q.counts[PriorityHigh] + q.counts[PriorityMedium] + q.counts[PriorityLow]
}

// Tiles returns the tiles queued at p in push order.
func (q *LoadQueue) Tiles(p Priority) []*Tile {
	if p <= PriorityNone || p > PriorityHigh {
		return nil
	}
	out := make([]*Tile, 0, q.counts[p])
	for _, t := range q.tiers[p] {
		if t.queued == p {
			out = append(out, t)
		}
	}
	return out
}

// Drain hands queued tiles to fn, high tier first and in push order
// within a tier, removing each one before the call. It stops as soon as
// fn returns false; the remaining tiles stay queued.
func (q *LoadQueue) Drain(fn func(t *Tile, p Priority) bool) {
	for _, p := range drainOrder {
		entries := q.tiers[p]
		i := 0
		for i < len(entries) {
			t := entries[i]
			i++
			if t.queued != p {
				continue
			}
			t.queued = PriorityNone
			q.counts[p]--
			if !fn(t, p) {
				q.tiers[p] = entries[i:]
				return
			}
		}
		q.tiers[p] = entries[:0]
	}
}

// Clear empties every tier.
func (q *LoadQueue) Clear() {
	for _, p := range drainOrder {
		for _, t := range q.tiers[p] {
			t.queued = PriorityNone
		}
		q.tiers[p] = q.tiers[p][:0]
		q.counts[p] = 0
	}
}
