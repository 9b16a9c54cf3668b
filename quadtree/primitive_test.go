package quadtree

import (
	"math"
	"testing"
	"time"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/scene"
)

// fakeProvider loads every tile in one step and culls against the view
// frustum only.
type fakeProvider struct {
	scheme         geo.TilingScheme
	ready          bool
	levelZeroError float64
	failRoots      bool

	loads       int
	initialized int
	sawOccluder bool
	shown       []*Tile
}

func newFakeProvider(scheme geo.TilingScheme) *fakeProvider {
	return &fakeProvider{
		scheme:         scheme,
		ready:          true,
		levelZeroError: geo.WGS84.MaximumRadius() * 2 * math.Pi * 0.25 / float64(65*scheme.NumberOfXTilesAtLevel(0)),
	}
}

func (p *fakeProvider) Ready() bool                    { return p.ready }
func (p *fakeProvider) TilingScheme() geo.TilingScheme { return p.scheme }
func (p *fakeProvider) LevelMaximumGeometricError(level int) float64 {
	return p.levelZeroError / float64(int(1)<<level)
}
func (p *fakeProvider) Initialize(*scene.FrameState)  { p.initialized++ }
func (p *fakeProvider) BeginUpdate(*scene.FrameState) { p.shown = p.shown[:0] }
func (p *fakeProvider) EndUpdate(*scene.FrameState)   {}

func (p *fakeProvider) LoadTile(_ *scene.FrameState, t *Tile) {
	p.loads++
	if p.failRoots && t.Level == 0 {
		t.State = LoadFailed
		return
	}
	t.Data = &fakeData{}
	t.State = LoadDone
	t.Renderable = true
}

func (p *fakeProvider) ComputeTileVisibility(t *Tile, fs *scene.FrameState, occluder *geo.EllipsoidalOccluder) Visibility {
	if occluder != nil {
		p.sawOccluder = true
	}
	region := geo.NewBoundingRegion(t.Rectangle, geo.WGS84, 0, 0)
	t.Distance = region.DistanceToCamera(fs.Camera.Position, fs.Camera.PositionCartographic)
	sphere := geo.BoundingSphereFromRectangle3D(t.Rectangle, geo.WGS84, 0, 0)
	switch fs.CullingVolume.ComputeVisibility(sphere) {
	case geo.Outside:
		return VisibilityNone
	case geo.Inside:
		return VisibilityFull
	}
	return VisibilityPartial
}

func (p *fakeProvider) ShowTileThisFrame(t *Tile, _ *scene.FrameState) {
	p.shown = append(p.shown, t)
}

func newTestFrame(lon, lat, height float64) *scene.FrameState {
	cam := scene.NewCamera(800, 600)
	cam.LookDown(geo.WGS84, geo.CartographicFromDegrees(lon, lat, height))
	return scene.NewFrameState(cam, 800, 600)
}

func runFrames(p *Primitive, fs *scene.FrameState, n int) {
	for i := 0; i < n; i++ {
		fs.BeginFrame(scene.Fog{})
		p.BeginFrame(fs)
		p.Render(fs)
		p.EndFrame(fs)
	}
}

func checkLeafDisjoint(t *testing.T, tiles []*Tile) {
	t.Helper()
	selected := make(map[*Tile]bool, len(tiles))
	for _, tile := range tiles {
		if selected[tile] {
			t.Errorf("%v selected twice", tile)
		}
		selected[tile] = true
	}
	for _, tile := range tiles {
		for a := tile.Parent(); a != nil; a = a.Parent() {
			if selected[a] {
				t.Errorf("%v selected together with its ancestor %v", tile, a)
			}
		}
	}
}

func TestPrimitiveProviderNotReady(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	provider.ready = false
	p := NewPrimitive(provider, Options{})
	runFrames(p, newTestFrame(10, 20, 1e6), 3)

	if p.LevelZeroTiles() != nil {
		t.Errorf("LevelZeroTiles() = %v, want nil", p.LevelZeroTiles())
	}
	if len(p.TilesToRender()) != 0 || provider.loads != 0 {
		t.Errorf("rendered %d, loaded %d, want 0, 0", len(p.TilesToRender()), provider.loads)
	}
	if provider.initialized != 3 {
		t.Errorf("Initialize called %d times, want 3", provider.initialized)
	}
}

func TestPrimitiveFirstFrame(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour})
	runFrames(p, newTestFrame(10, 20, 1e6), 1)

	if got := len(p.LevelZeroTiles()); got != 2 {
		t.Fatalf("len(LevelZeroTiles()) = %d, want 2", got)
	}
	if len(p.TilesToRender()) != 0 {
		t.Errorf("len(TilesToRender()) = %d, want 0", len(p.TilesToRender()))
	}
	if p.Debug.TilesWaitingForChildren != 2 {
		t.Errorf("TilesWaitingForChildren = %d, want 2", p.Debug.TilesWaitingForChildren)
	}
	if p.TileLoadQueueLength() != 2 {
		t.Errorf("TileLoadQueueLength() = %d, want 2", p.TileLoadQueueLength())
	}
	if provider.loads != 2 {
		t.Errorf("loads = %d, want 2", provider.loads)
	}
}

func TestPrimitiveConverges(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour, TileCacheSize: 10000})
	runFrames(p, newTestFrame(10, 20, 1e6), 40)

	tiles := p.TilesToRender()
	if len(tiles) == 0 {
		t.Fatal("no tiles selected")
	}
	checkLeafDisjoint(t, tiles)
	for _, tile := range tiles {
		if !tile.Renderable {
			t.Errorf("selected %v is not renderable", tile)
		}
	}
	if p.Debug.TilesWaitingForChildren != 0 {
		t.Errorf("TilesWaitingForChildren = %d, want 0", p.Debug.TilesWaitingForChildren)
	}
	if p.TileLoadQueueLength() != 0 {
		t.Errorf("TileLoadQueueLength() = %d, want 0", p.TileLoadQueueLength())
	}
	if p.Debug.MaxDepth < 3 {
		t.Errorf("MaxDepth = %d, want at least 3", p.Debug.MaxDepth)
	}
	if len(provider.shown) != len(tiles) {
		t.Errorf("provider shown %d tiles, want %d", len(provider.shown), len(tiles))
	}
	if !provider.sawOccluder {
		t.Error("horizon occluder not passed with two level-zero tiles")
	}
}

func TestPrimitiveSingleRootSkipsOccluder(t *testing.T) {
	provider := newFakeProvider(geo.NewWebMercatorTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour})
	runFrames(p, newTestFrame(10, 20, 1e6), 5)

	if provider.sawOccluder {
		t.Error("horizon occluder passed with a single level-zero tile")
	}
	checkLeafDisjoint(t, p.TilesToRender())
}

func TestPrimitiveFailedRootNotWaiting(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	provider.failRoots = true
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour})
	fs := newTestFrame(10, 20, 1e6)

	runFrames(p, fs, 1)
	if p.Debug.TilesWaitingForChildren != 2 {
		t.Errorf("frame 1: TilesWaitingForChildren = %d, want 2", p.Debug.TilesWaitingForChildren)
	}
	runFrames(p, fs, 1)
	if p.Debug.TilesWaitingForChildren != 0 {
		t.Errorf("frame 2: TilesWaitingForChildren = %d, want 0", p.Debug.TilesWaitingForChildren)
	}
	if p.TileLoadQueueLength() != 0 {
		t.Errorf("frame 2: TileLoadQueueLength() = %d, want 0", p.TileLoadQueueLength())
	}
	if provider.loads != 2 {
		t.Errorf("loads = %d, want 2", provider.loads)
	}
}

func TestPrimitiveInvalidateAllTiles(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour})
	fs := newTestFrame(10, 20, 1e6)
	runFrames(p, fs, 5)

	old := append([]*Tile(nil), p.LevelZeroTiles()...)
	p.InvalidateAllTiles()
	runFrames(p, fs, 1)

	roots := p.LevelZeroTiles()
	if len(roots) != len(old) {
		t.Fatalf("len(LevelZeroTiles()) = %d, want %d", len(roots), len(old))
	}
	for _, o := range old {
		for _, r := range roots {
			if o == r {
				t.Errorf("%v survived invalidation", o)
			}
		}
		if o.State != LoadStart || o.Data != nil {
			t.Errorf("old %v state %v data %v, want freed", o, o.State, o.Data)
		}
		if p.ReplacementQueue().Contains(o) {
			t.Errorf("old %v still in replacement queue", o)
		}
	}
}

func TestPrimitiveTrimsUnusedTiles(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour, TileCacheSize: 1})
	fs := newTestFrame(10, 20, 1e6)
	runFrames(p, fs, 20)

	var deep *Tile
	for _, tile := range p.TilesToRender() {
		if tile.Level >= 3 {
			deep = tile
			break
		}
	}
	if deep == nil {
		t.Fatal("no tile at level 3 or deeper selected")
	}

	// From far away only the first levels are needed.
	fs.Camera.LookDown(geo.WGS84, geo.CartographicFromDegrees(10, 20, 2e7))
	freedBefore := p.Debug.TilesFreed
	runFrames(p, fs, 1)

	if deep.State != LoadStart || deep.Data != nil {
		t.Errorf("%v state %v data %v, want freed", deep, deep.State, deep.Data)
	}
	if p.ReplacementQueue().Contains(deep) {
		t.Errorf("%v still in replacement queue", deep)
	}
	if p.Debug.TilesFreed <= freedBefore {
		t.Errorf("TilesFreed = %d, want more than %d", p.Debug.TilesFreed, freedBefore)
	}
	checkLeafDisjoint(t, p.TilesToRender())
}

func countTreeTiles(tiles []*Tile) int {
	n := 0
	for _, t := range tiles {
		n += 1 + countTreeTiles(t.CreatedChildren())
	}
	return n
}

func TestPrimitiveRoamingKeepsTreeBounded(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour, TileCacheSize: 10})
	fs := newTestFrame(0, 0, 2e5)

	maxResident := 0
	for i := range 40 {
		lon := float64(i*37%360) - 180
		lat := float64(i*23%140) - 70
		fs.Camera.LookDown(geo.WGS84, geo.CartographicFromDegrees(lon, lat, 2e5))
		runFrames(p, fs, 10)

		resident := p.ReplacementQueue().Count()
		maxResident = max(maxResident, resident)
		if nodes := countTreeTiles(p.LevelZeroTiles()); nodes != resident {
			t.Fatalf("stop %d: %d tiles in the tree, %d in the replacement queue", i, nodes, resident)
		}
	}
	var walk func(*Tile)
	walk = func(tile *Tile) {
		if !p.ReplacementQueue().Contains(tile) {
			t.Errorf("%v is in the tree but not in the replacement queue", tile)
		}
		for _, c := range tile.CreatedChildren() {
			if c.Parent() != tile {
				t.Errorf("%v parent = %v, want %v", c, c.Parent(), tile)
			}
			walk(c)
		}
	}
	for _, root := range p.LevelZeroTiles() {
		walk(root)
	}
	if p.Debug.TilesFreed == 0 {
		t.Error("TilesFreed = 0 after roaming")
	}
	t.Logf("largest replacement queue while roaming: %d", maxResident)
}

func TestPrimitiveChildLoadBudget(t *testing.T) {
	tests := []struct {
		budget    int
		high, low int // per waiting tile
	}{
		{1, 1, 3},
		{2, 2, 2},
		{4, 4, 0},
	}
	for _, tt := range tests {
		provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
		p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour, ChildLoadBudget: tt.budget})
		fs := newTestFrame(10, 20, 1e6)
		runFrames(p, fs, 1)

		// Roots are loaded; the second selection queues their children.
		fs.BeginFrame(scene.Fog{})
		p.BeginFrame(fs)
		p.Render(fs)

		waiting := p.Debug.TilesWaitingForChildren
		if waiting == 0 {
			t.Fatalf("budget %d: no tile waiting for children", tt.budget)
		}
		q := p.LoadQueue()
		if got := q.Len(PriorityHigh); got != tt.high*waiting {
			t.Errorf("budget %d: Len(high) = %d, want %d", tt.budget, got, tt.high*waiting)
		}
		if got := q.Len(PriorityLow); got != tt.low*waiting {
			t.Errorf("budget %d: Len(low) = %d, want %d", tt.budget, got, tt.low*waiting)
		}
	}
}

func TestNearToFar(t *testing.T) {
	root := NewTile(geo.NewGeographicTilingScheme(geo.WGS84), 1, 0, 0, nil)
	sw, se, nw, ne := root.SouthwestChild(), root.SoutheastChild(), root.NorthwestChild(), root.NortheastChild()

	tests := []struct {
		lon, lat    float64
		first, last *Tile
	}{
		{45, -45, sw, ne},
		{45, 45, nw, se},
		{135, -45, se, nw},
		{135, 45, ne, sw},
	}
	for _, tt := range tests {
		got := nearToFar(geo.CartographicFromDegrees(tt.lon, tt.lat, 0), sw, se, nw, ne)
		if got[0] != tt.first || got[3] != tt.last {
			t.Errorf("nearToFar(%v, %v) = %v, want first %v last %v", tt.lon, tt.lat, got, tt.first, tt.last)
		}
	}
}

func TestPrimitiveTileLoadProgress(t *testing.T) {
	var events []int
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{
		LoadingTimeSlice: time.Hour,
		TileCacheSize:    10000,
		TileLoadProgress: func(n int) { events = append(events, n) },
	})
	runFrames(p, newTestFrame(10, 20, 1e6), 40)

	if len(events) < 2 {
		t.Fatalf("progress events = %v, want at least 2", events)
	}
	if events[0] != 2 {
		t.Errorf("first event = %d, want 2", events[0])
	}
	if last := events[len(events)-1]; last != 0 {
		t.Errorf("last event = %d, want 0", last)
	}
	for i := 1; i < len(events); i++ {
		if events[i] == events[i-1] {
			t.Errorf("event %d repeats %d", i, events[i])
		}
	}
}

func TestPrimitiveMaximumLoadsPerFrame(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour, MaximumLoadsPerFrame: 1})
	runFrames(p, newTestFrame(10, 20, 1e6), 1)

	if provider.loads != 1 || p.Debug.TilesLoaded != 1 {
		t.Errorf("loads = %d, TilesLoaded = %d, want 1, 1", provider.loads, p.Debug.TilesLoaded)
	}
}

func TestPrimitiveSuspendLODUpdate(t *testing.T) {
	provider := newFakeProvider(geo.NewGeographicTilingScheme(geo.WGS84))
	p := NewPrimitive(provider, Options{LoadingTimeSlice: time.Hour, TileCacheSize: 10000})
	fs := newTestFrame(10, 20, 1e6)
	runFrames(p, fs, 20)

	before := append([]*Tile(nil), p.TilesToRender()...)
	p.Debug.SuspendLODUpdate = true
	fs.Camera.LookDown(geo.WGS84, geo.CartographicFromDegrees(10, 20, 2e7))
	runFrames(p, fs, 2)

	if !sameTiles(p.TilesToRender(), before) {
		t.Errorf("selection changed while suspended: %d tiles, want %d", len(p.TilesToRender()), len(before))
	}
	if len(provider.shown) != len(before) {
		t.Errorf("provider shown %d tiles, want %d", len(provider.shown), len(before))
	}
}
