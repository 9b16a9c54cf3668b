package quadtree

import "testing"

func TestLoadQueuePush(t *testing.T) {
	tiles := newTestTiles(2)
	a, b := tiles[0], tiles[1]
	var q LoadQueue

	tests := []struct {
		tile    *Tile
		p       Priority
		changed bool
	}{
		{a, PriorityLow, true},
		{a, PriorityLow, false},
		{a, PriorityMedium, true},
		{a, PriorityLow, false},
		{a, PriorityHigh, true},
		{b, PriorityNone, false},
		{b, PriorityMedium, true},
	}
	for i, tt := range tests {
		if got := q.Push(tt.tile, tt.p); got != tt.changed {
			t.Errorf("step %d: Push(%v, %v) = %v, want %v", i, tt.tile, tt.p, got, tt.changed)
		}
	}

	if q.PriorityOf(a) != PriorityHigh || q.PriorityOf(b) != PriorityMedium {
		t.Errorf("PriorityOf = %v, %v, want high, medium", q.PriorityOf(a), q.PriorityOf(b))
	}
	want := map[Priority]int{PriorityHigh: 1, PriorityMedium: 1, PriorityLow: 0}
	for p, n := range want {
		if got := q.Len(p); got != n {
			t.Errorf("Len(%v) = %d, want %d", p, got, n)
		}
		if got := len(q.Tiles(p)); got != n {
			t.Errorf("len(Tiles(%v)) = %d, want %d", p, got, n)
		}
	}
	if q.Total() != 2 {
		t.Errorf("Total() = %d, want 2", q.Total())
	}
}

func TestLoadQueueDrainOrder(t *testing.T) {
	tiles := newTestTiles(5)
	var q LoadQueue
	q.Push(tiles[0], PriorityLow)
	q.Push(tiles[1], PriorityMedium)
	q.Push(tiles[2], PriorityHigh)
	q.Push(tiles[3], PriorityLow)
	q.Push(tiles[4], PriorityHigh)
	q.Push(tiles[0], PriorityHigh) // promoted; its low entry goes stale

	var got []*Tile
	q.Drain(func(tile *Tile, p Priority) bool {
		if q.PriorityOf(tile) != PriorityNone {
			t.Errorf("%v still queued inside Drain", tile)
		}
		got = append(got, tile)
		return true
	})
	want := []*Tile{tiles[2], tiles[4], tiles[0], tiles[1], tiles[3]}
	if !sameTiles(got, want) {
		t.Errorf("drain order = %v, want %v", got, want)
	}
	if q.Total() != 0 {
		t.Errorf("Total() after Drain = %d, want 0", q.Total())
	}
}

func TestLoadQueueDrainStops(t *testing.T) {
	tiles := newTestTiles(4)
	var q LoadQueue
	q.Push(tiles[0], PriorityHigh)
	q.Push(tiles[1], PriorityHigh)
	q.Push(tiles[2], PriorityMedium)
	q.Push(tiles[3], PriorityLow)

	n := 0
	q.Drain(func(*Tile, Priority) bool {
		n++
		return n < 2
	})
	if n != 2 {
		t.Fatalf("fn called %d times, want 2", n)
	}
	if q.Total() != 2 {
		t.Errorf("Total() = %d, want 2", q.Total())
	}

	var rest []*Tile
	q.Drain(func(tile *Tile, _ Priority) bool {
		rest = append(rest, tile)
		return true
	})
	if want := []*Tile{tiles[2], tiles[3]}; !sameTiles(rest, want) {
		t.Errorf("remaining = %v, want %v", rest, want)
	}
}

func TestLoadQueueClear(t *testing.T) {
	tiles := newTestTiles(2)
	var q LoadQueue
	q.Push(tiles[0], PriorityHigh)
	q.Push(tiles[1], PriorityLow)
	q.Clear()

	if q.Total() != 0 {
		t.Errorf("Total() = %d, want 0", q.Total())
	}
	if q.PriorityOf(tiles[0]) != PriorityNone {
		t.Errorf("PriorityOf() = %v, want none", q.PriorityOf(tiles[0]))
	}
	if !q.Push(tiles[0], PriorityLow) {
		t.Error("Push after Clear = false, want true")
	}
}

func TestPriorityString(t *testing.T) {
	tests := []struct {
		p    Priority
		want string
	}{
		{PriorityNone, "none"},
		{PriorityLow, "low"},
		{PriorityMedium, "medium"},
		{PriorityHigh, "high"},
		{Priority(9), "Priority(9)"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
