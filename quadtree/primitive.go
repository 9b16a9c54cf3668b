package quadtree

import (
	"math"
	"slices"
	"time"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/internal/logging"
	"github.com/gogpu/globe/internal/metrics"
	"github.com/gogpu/globe/scene"
)

// Defaults for Options.
const (
	DefaultMaximumScreenSpaceError = 2.0
	DefaultTileCacheSize           = 100
	DefaultLoadingTimeSlice        = 5 * time.Millisecond
	DefaultChildLoadBudget         = 4
	DefaultMaximumLevel            = 30
)

// Options configures a Primitive. Zero fields take the defaults.
type Options struct {
	// MaximumScreenSpaceError is the pixel error above which a tile is
	// refined.
	MaximumScreenSpaceError float64
	// TileCacheSize is the number of tiles kept resident beyond those
	// used in the current frame.
	TileCacheSize int
	// LoadingTimeSlice bounds the time EndFrame spends loading. At least
	// one tile is processed every frame.
	LoadingTimeSlice time.Duration
	// MaximumLoadsPerFrame caps the tiles processed per frame. Zero means
	// no cap.
	MaximumLoadsPerFrame int
	// ChildLoadBudget is how many of a tile's unrenderable children, in
	// near-to-far order, are queued at high priority when the tile wants
	// to refine. The rest go to the low tier.
	ChildLoadBudget int
	// MaximumLevel stops refinement.
	MaximumLevel int
	// TileLoadProgress is called from EndFrame whenever the number of
	// queued tiles changes.
	TileLoadProgress func(queued int)
}

func (o Options) withDefaults() Options {
	if o.MaximumScreenSpaceError <= 0 {
		o.MaximumScreenSpaceError = DefaultMaximumScreenSpaceError
	}
	if o.TileCacheSize <= 0 {
		o.TileCacheSize = DefaultTileCacheSize
	}
	if o.LoadingTimeSlice <= 0 {
		o.LoadingTimeSlice = DefaultLoadingTimeSlice
	}
	if o.ChildLoadBudget <= 0 {
		o.ChildLoadBudget = DefaultChildLoadBudget
	}
	if o.MaximumLevel <= 0 {
		o.MaximumLevel = DefaultMaximumLevel
	}
	return o
}

// Debug holds the counters of the last selection pass.
type Debug struct {
	// SuspendLODUpdate freezes the selected tiles.
	SuspendLODUpdate bool

	TilesVisited            int
	TilesCulled             int
	TilesRendered           int
	TilesWaitingForChildren int
	MaxDepth                int
	TilesLoaded             int
	TilesFreed              int
}

func (d *Debug) reset() {
	d.TilesVisited = 0
	d.TilesCulled = 0
	d.TilesRendered = 0
	d.TilesWaitingForChildren = 0
	d.MaxDepth = 0
}

// Primitive renders a quadtree surface through a TileProvider.
//
// Primitive is not safe for concurrent use; every method must be called
// on the frame thread.
type Primitive struct {
	provider TileProvider
	opts     Options

	Debug Debug

	levelZeroTiles   []*Tile
	tilesToRender    []*Tile
	loadQueue        LoadQueue
	replacementQueue ReplacementQueue
	tilesInvalidated bool

	occluder            *geo.EllipsoidalOccluder
	queuedThisFrame     int
	lastLoadQueueLength int
	now                 func() time.Time
}

// NewPrimitive returns a primitive drawing the tiles of provider.
// A provider with a SetQuadtree(*Primitive) method is handed the new
// primitive.
func NewPrimitive(provider TileProvider, opts Options) *Primitive {
	p := &Primitive{
		provider: provider,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
	if a, ok := provider.(interface{ SetQuadtree(*Primitive) }); ok {
		a.SetQuadtree(p)
	}
	return p
}

// Provider returns the tile provider.
func (p *Primitive) Provider() TileProvider { return p.provider }

// Options returns the effective options.
func (p *Primitive) Options() Options { return p.opts }

// SetMaximumScreenSpaceError changes the refinement threshold.
func (p *Primitive) SetMaximumScreenSpaceError(v float64) {
	if v > 0 {
		p.opts.MaximumScreenSpaceError = v
	}
}

// SetTileCacheSize changes the number of tiles kept resident.
func (p *Primitive) SetTileCacheSize(n int) {
	if n > 0 {
		p.opts.TileCacheSize = n
	}
}

// LevelZeroTiles returns the root tiles, or nil before the provider is
// ready.
func (p *Primitive) LevelZeroTiles() []*Tile { return p.levelZeroTiles }

// TilesToRender returns the tiles selected in the last Render.
func (p *Primitive) TilesToRender() []*Tile { return p.tilesToRender }

// ReplacementQueue returns the queue of resident tiles.
func (p *Primitive) ReplacementQueue() *ReplacementQueue { return &p.replacementQueue }

// LoadQueue returns the tiles waiting to load.
func (p *Primitive) LoadQueue() *LoadQueue { return &p.loadQueue }

// InvalidateAllTiles frees every tile at the start of the next frame and
// rebuilds the tree from new level-zero tiles.
func (p *Primitive) InvalidateAllTiles() { p.tilesInvalidated = true }

// ForEachLoadedTile calls fn for every resident tile that has started
// loading, most recently rendered first.
func (p *Primitive) ForEachLoadedTile(fn func(*Tile)) {
	for t := p.replacementQueue.Head(); t != nil; t = p.replacementQueue.Next(t) {
		if t.State != LoadStart {
			fn(t)
		}
	}
}

// ForEachRenderedTile calls fn for every tile selected in the last Render.
func (p *Primitive) ForEachRenderedTile(fn func(*Tile)) {
	for _, t := range p.tilesToRender {
		fn(t)
	}
}

// BeginFrame applies a pending invalidation, lets the provider take in
// completed requests and starts a new replacement frame.
func (p *Primitive) BeginFrame(fs *scene.FrameState) {
	if p.tilesInvalidated {
		p.invalidateAllTiles()
		p.tilesInvalidated = false
	}
	p.provider.Initialize(fs)
	p.loadQueue.Clear()
	if p.Debug.SuspendLODUpdate {
		return
	}
	p.replacementQueue.MarkStartOfRenderFrame()
}

// Render selects the tiles to draw and hands them to the provider.
func (p *Primitive) Render(fs *scene.FrameState) {
	p.provider.BeginUpdate(fs)
	p.selectTilesForRendering(fs)
	p.createRenderCommandsForSelectedTiles(fs)
	p.provider.EndUpdate(fs)
}

// EndFrame trims the replacement queue and loads queued tiles.
func (p *Primitive) EndFrame(fs *scene.FrameState) {
	p.processTileLoadQueue(fs)
	p.updateTileLoadProgress()

	metrics.FramesTotal.Inc()
	metrics.TilesRendered.Set(float64(p.Debug.TilesRendered))
	metrics.TilesWaitingForChildren.Set(float64(p.Debug.TilesWaitingForChildren))
	metrics.ResidentTiles.Set(float64(p.replacementQueue.Count()))
}

func (p *Primitive) invalidateAllTiles() {
	p.replacementQueue.Clear()
	p.loadQueue.Clear()
	for _, t := range p.levelZeroTiles {
		t.FreeResources()
	}
	p.levelZeroTiles = nil
	p.tilesToRender = p.tilesToRender[:0]
	logging.L().Info("quadtree: all tiles invalidated")
}

func (p *Primitive) selectTilesForRendering(fs *scene.FrameState) {
	if p.Debug.SuspendLODUpdate {
		return
	}
	p.Debug.reset()
	p.tilesToRender = p.tilesToRender[:0]

	if p.levelZeroTiles == nil {
		if !p.provider.Ready() {
			return
		}
		scheme := p.provider.TilingScheme()
		p.levelZeroTiles = CreateLevelZeroTiles(scheme)
		p.occluder = geo.NewEllipsoidalOccluder(scheme.Ellipsoid())
		logging.L().Debug("quadtree: level zero tiles created", "count", len(p.levelZeroTiles))
	}

	camera := fs.Camera
	p.occluder.SetCameraPosition(camera.Position)
	var occluder *geo.EllipsoidalOccluder
	if len(p.levelZeroTiles) > 1 {
		occluder = p.occluder
	}

	// Roots nearest the camera go first so their loads are queued first.
	c := camera.PositionCartographic
	slices.SortStableFunc(p.levelZeroTiles, func(a, b *Tile) int {
		da, db := angularDistance(c, a.Rectangle.Center()), angularDistance(c, b.Rectangle.Center())
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})

	for _, t := range p.levelZeroTiles {
		p.replacementQueue.MarkTileRendered(t)
		switch {
		case !t.Renderable:
			if t.NeedsLoading() {
				p.loadQueue.Push(t, PriorityHigh)
			}
			if t.State != LoadFailed {
				p.Debug.TilesWaitingForChildren++
			}
		case p.provider.ComputeTileVisibility(t, fs, occluder) != VisibilityNone:
			p.visitTile(fs, t, occluder)
		default:
			if t.NeedsLoading() {
				p.loadQueue.Push(t, PriorityLow)
			}
			p.Debug.TilesCulled++
		}
	}
}

func angularDistance(a, b geo.Cartographic) float64 {
	return math.Hypot(geo.NegativePiToPi(a.Longitude-b.Longitude), a.Latitude-b.Latitude)
}

func (p *Primitive) visitTile(fs *scene.FrameState, t *Tile, occluder *geo.EllipsoidalOccluder) {
	p.Debug.TilesVisited++
	p.replacementQueue.MarkTileRendered(t)
	p.Debug.MaxDepth = max(p.Debug.MaxDepth, t.Level)

	if t.Level >= p.opts.MaximumLevel || p.screenSpaceError(fs, t) < p.opts.MaximumScreenSpaceError {
		if t.NeedsLoading() {
			p.loadQueue.Push(t, PriorityMedium)
		}
		p.addTileToRenderList(t)
		return
	}

	sw, se, nw, ne := t.SouthwestChild(), t.SoutheastChild(), t.NorthwestChild(), t.NortheastChild()
	allRenderable := sw.Renderable && se.Renderable && nw.Renderable && ne.Renderable
	allUpsampled := sw.UpsampledFromParent && se.UpsampledFromParent &&
		nw.UpsampledFromParent && ne.UpsampledFromParent

	switch {
	case allRenderable && allUpsampled:
		// The children add nothing yet. Keep drawing this tile and keep
		// loading them in case they gain detail.
		p.addTileToRenderList(t)
		p.queueChildLoadNearToFar(fs.Camera.PositionCartographic, sw, se, nw, ne)
		if t.NeedsLoading() {
			p.loadQueue.Push(t, PriorityMedium)
		}
	case allRenderable:
		p.visitVisibleChildrenNearToFar(fs, occluder, sw, se, nw, ne)
		if t.NeedsLoading() {
			p.loadQueue.Push(t, PriorityLow)
		}
	default:
		// Draw this tile until every child can be drawn.
		p.Debug.TilesWaitingForChildren++
		p.queueChildLoadNearToFar(fs.Camera.PositionCartographic, sw, se, nw, ne)
		p.addTileToRenderList(t)
		if t.NeedsLoading() {
			p.loadQueue.Push(t, PriorityMedium)
		}
	}
}

// nearToFar orders the four children of a tile so that the quadrant
// holding the camera comes first and the opposite one last.
func nearToFar(camera geo.Cartographic, sw, se, nw, ne *Tile) [4]*Tile {
	west := camera.Longitude < sw.Rectangle.East
	south := camera.Latitude < sw.Rectangle.North
	switch {
	case west && south:
		return [4]*Tile{sw, se, nw, ne}
	case west:
		return [4]*Tile{nw, sw, ne, se}
	case south:
		return [4]*Tile{se, sw, ne, nw}
	default:
		return [4]*Tile{ne, nw, se, sw}
	}
}

func (p *Primitive) queueChildLoadNearToFar(camera geo.Cartographic, sw, se, nw, ne *Tile) {
	budget := p.opts.ChildLoadBudget
	for _, c := range nearToFar(camera, sw, se, nw, ne) {
		p.replacementQueue.MarkTileRendered(c)
		if !c.NeedsLoading() {
			continue
		}
		if c.Renderable || budget == 0 {
			p.loadQueue.Push(c, PriorityLow)
			continue
		}
		// An unrenderable child blocks refinement.
		p.loadQueue.Push(c, PriorityHigh)
		budget--
	}
}

func (p *Primitive) visitVisibleChildrenNearToFar(fs *scene.FrameState, occluder *geo.EllipsoidalOccluder, sw, se, nw, ne *Tile) {
	for _, c := range nearToFar(fs.Camera.PositionCartographic, sw, se, nw, ne) {
		p.visitIfVisible(fs, c, occluder)
	}
}

func (p *Primitive) visitIfVisible(fs *scene.FrameState, t *Tile, occluder *geo.EllipsoidalOccluder) {
	if p.provider.ComputeTileVisibility(t, fs, occluder) != VisibilityNone {
		p.visitTile(fs, t, occluder)
		return
	}
	p.Debug.TilesCulled++
	p.replacementQueue.MarkTileRendered(t)
	// Visibility of a tile that is not loaded is a guess; load it anyway.
	if t.NeedsLoading() {
		p.loadQueue.Push(t, PriorityLow)
	}
}

func (p *Primitive) screenSpaceError(fs *scene.FrameState, t *Tile) float64 {
	if fs.Mode == scene.Mode2D {
		return p.screenSpaceError2D(fs, t)
	}
	maxGeometricError := p.provider.LevelMaximumGeometricError(t.Level)
	err := maxGeometricError * float64(fs.Height) / (t.Distance * fs.Camera.Frustum.SSEDenominator())
	if fs.Fog.Enabled {
		err -= geo.Fog(t.Distance, fs.Fog.Density) * fs.Fog.SSE
	}
	return err
}

func (p *Primitive) screenSpaceError2D(fs *scene.FrameState, t *Tile) float64 {
	maxGeometricError := p.provider.LevelMaximumGeometricError(t.Level)
	return maxGeometricError / fs.PixelSize()
}

func (p *Primitive) addTileToRenderList(t *Tile) {
	p.tilesToRender = append(p.tilesToRender, t)
	p.Debug.TilesRendered++
}

func (p *Primitive) createRenderCommandsForSelectedTiles(fs *scene.FrameState) {
	for _, t := range p.tilesToRender {
		p.provider.ShowTileThisFrame(t, fs)
		t.frameRendered = fs.FrameNumber
	}
}

func (p *Primitive) processTileLoadQueue(fs *scene.FrameState) {
	p.queuedThisFrame = p.loadQueue.Total()
	for _, pr := range drainOrder {
		metrics.LoadQueueLength.WithLabelValues(pr.String()).Set(float64(p.loadQueue.Len(pr)))
	}

	if freed := p.replacementQueue.TrimTiles(p.opts.TileCacheSize); freed > 0 {
		p.Debug.TilesFreed += freed
		metrics.TilesEvictedTotal.Add(float64(freed))
	}
	if p.loadQueue.Total() == 0 {
		return
	}

	endTime := p.now().Add(p.opts.LoadingTimeSlice)
	loaded := 0
	p.loadQueue.Drain(func(t *Tile, _ Priority) bool {
		p.replacementQueue.MarkTileRendered(t)
		p.provider.LoadTile(fs, t)
		loaded++
		if p.opts.MaximumLoadsPerFrame > 0 && loaded >= p.opts.MaximumLoadsPerFrame {
			return false
		}
		return p.now().Before(endTime)
	})
	p.Debug.TilesLoaded = loaded
}

func (p *Primitive) updateTileLoadProgress() {
	n := p.queuedThisFrame
	if n == p.lastLoadQueueLength {
		return
	}
	p.lastLoadQueueLength = n
	if p.opts.TileLoadProgress != nil {
		p.opts.TileLoadProgress(n)
	}
}

// TileLoadQueueLength returns the number of tiles the last selection pass
// queued for loading. Zero means every needed tile is loaded.
func (p *Primitive) TileLoadQueueLength() int { return p.queuedThisFrame }
