package globe

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/clipping"
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/internal/fetch"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/scene"
	"github.com/gogpu/globe/surface"
	"github.com/gogpu/globe/terrain"
)

// Globe is the terrain surface of a planet: a quadtree of tiles drawn
// through a surface provider.
//
// Globe is not safe for concurrent use; drive it from one goroutine.
type Globe struct {
	surface  *surface.Provider
	quadtree *quadtree.Primitive
	layers   *imagery.Collection

	// pool is the worker pool created by New, closed by Destroy. It is nil
	// when the caller supplied an executor.
	pool *fetch.WorkerPool

	fog       scene.Fog
	destroyed bool
}

// New creates a globe.
//
// Example:
//
//	g, err := globe.New(
//		globe.WithTerrainProvider(terrain.NewHTTPProvider("https://tiles.example.com/{z}/{x}/{y}.terrain")),
//		globe.WithImageryLayers(layers),
//	)
func New(opts ...Option) (*Globe, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	g := &Globe{
		layers: o.layers,
		fog:    o.fog,
	}
	exec := o.executor
	if exec == nil {
		g.pool = fetch.NewWorkerPool(2 * o.maximumRequests)
		exec = g.pool
	}

	sp, err := surface.New(surface.Options{
		TerrainProvider: o.terrainProvider,
		ImageryLayers:   o.layers,
		ShaderSet:       o.shaders,
		Textures:        o.textures,
		Scheduler:       fetch.NewScheduler(exec, o.maximumRequests),
	})
	if err != nil {
		g.closePool()
		return nil, fmt.Errorf("globe: create surface: %w", err)
	}
	g.surface = sp

	if err := g.configure(o); err != nil {
		sp.Destroy()
		g.closePool()
		return nil, err
	}

	g.quadtree = quadtree.NewPrimitive(sp, quadtree.Options{
		MaximumScreenSpaceError: o.maximumScreenSpaceError,
		TileCacheSize:           o.tileCacheSize,
		LoadingTimeSlice:        o.loadingTimeSlice,
		MaximumLoadsPerFrame:    o.maximumLoadsPerFrame,
		ChildLoadBudget:         o.childLoadBudget,
		TileLoadProgress:        o.tileLoadProgress,
	})

	Logger().Debug("globe: created",
		"layers", o.layers.Len(),
		"maximumRequests", o.maximumRequests,
		"tileCacheSize", g.quadtree.Options().TileCacheSize)
	return g, nil
}

func (g *Globe) configure(o options) error {
	if err := g.surface.SetBaseColor(o.baseColor); err != nil {
		return fmt.Errorf("globe: %w", err)
	}
	if o.limitRectangle != nil {
		if err := g.surface.SetCartographicLimitRectangle(o.limitRectangle); err != nil {
			return fmt.Errorf("globe: %w", err)
		}
	}
	if o.clippingPlanes != nil {
		if err := g.surface.SetClippingPlanes(o.clippingPlanes); err != nil {
			return fmt.Errorf("globe: clipping planes: %w", err)
		}
	}
	g.surface.ShowSkirts = o.showSkirts
	g.surface.EnableLighting = o.enableLighting
	return nil
}

func (g *Globe) closePool() {
	if g.pool != nil {
		g.pool.Close()
	}
}

// Surface returns the tile provider that loads, culls and draws tiles.
func (g *Globe) Surface() *surface.Provider { return g.surface }

// Quadtree returns the tile selection of the globe.
func (g *Globe) Quadtree() *quadtree.Primitive { return g.quadtree }

// ImageryLayers returns the imagery layers drawn on the globe.
func (g *Globe) ImageryLayers() *imagery.Collection { return g.layers }

// TerrainProvider returns the terrain.
func (g *Globe) TerrainProvider() terrain.Provider { return g.surface.TerrainProvider() }

// SetTerrainProvider replaces the terrain. Every tile is rebuilt on the
// next frame unless tp is the current provider.
func (g *Globe) SetTerrainProvider(tp terrain.Provider) error {
	if g.destroyed {
		return ErrDestroyed
	}
	if err := g.surface.SetTerrainProvider(tp); err != nil {
		return fmt.Errorf("globe: %w", err)
	}
	return nil
}

// Fog returns the fog settings.
func (g *Globe) Fog() scene.Fog { return g.fog }

// SetFog changes the fog used by Update.
func (g *Globe) SetFog(f scene.Fog) { g.fog = f }

// BaseColor returns the color drawn where no imagery covers the globe.
func (g *Globe) BaseColor() mgl64.Vec4 { return g.surface.BaseColor() }

// SetBaseColor changes the color drawn where no imagery covers the globe.
func (g *Globe) SetBaseColor(c mgl64.Vec4) error {
	if g.destroyed {
		return ErrDestroyed
	}
	if err := g.surface.SetBaseColor(c); err != nil {
		return fmt.Errorf("globe: %w", err)
	}
	return nil
}

// CartographicLimitRectangle returns the area outside of which nothing is
// drawn.
func (g *Globe) CartographicLimitRectangle() geo.Rectangle {
	return g.surface.CartographicLimitRectangle()
}

// SetCartographicLimitRectangle restricts drawing to r.
func (g *Globe) SetCartographicLimitRectangle(r *geo.Rectangle) error {
	if g.destroyed {
		return ErrDestroyed
	}
	if err := g.surface.SetCartographicLimitRectangle(r); err != nil {
		return fmt.Errorf("globe: %w", err)
	}
	return nil
}

// ClippingPlanes returns the clipping planes, or nil.
func (g *Globe) ClippingPlanes() *clipping.Collection { return g.surface.ClippingPlanes() }

// SetClippingPlanes attaches c, destroying the collection it replaces.
func (g *Globe) SetClippingPlanes(c *clipping.Collection) error {
	if g.destroyed {
		return ErrDestroyed
	}
	if err := g.surface.SetClippingPlanes(c); err != nil {
		return fmt.Errorf("globe: clipping planes: %w", err)
	}
	return nil
}

// SetMaximumScreenSpaceError changes the refinement threshold.
func (g *Globe) SetMaximumScreenSpaceError(v float64) { g.quadtree.SetMaximumScreenSpaceError(v) }

// SetTileCacheSize changes the number of tiles kept resident.
func (g *Globe) SetTileCacheSize(n int) { g.quadtree.SetTileCacheSize(n) }

// BeginFrame applies completed requests and starts a new frame. fs must
// already describe the frame.
func (g *Globe) BeginFrame(fs *scene.FrameState) {
	if g.destroyed {
		return
	}
	g.quadtree.BeginFrame(fs)
}

// Render selects the tiles to draw and pushes their commands to
// fs.Commands.
func (g *Globe) Render(fs *scene.FrameState) {
	if g.destroyed {
		return
	}
	g.quadtree.Render(fs)
}

// EndFrame evicts unused tiles and loads queued ones.
func (g *Globe) EndFrame(fs *scene.FrameState) {
	if g.destroyed {
		return
	}
	g.quadtree.EndFrame(fs)
}

// Update runs one whole frame: it starts fs with the globe's fog, then
// calls BeginFrame, Render and EndFrame.
func (g *Globe) Update(fs *scene.FrameState) {
	if g.destroyed {
		return
	}
	fs.BeginFrame(g.fog)
	g.BeginFrame(fs)
	g.Render(fs)
	g.EndFrame(fs)
}

// TilesLoaded reports whether every tile needed by the last frame is
// loaded and no request is outstanding.
func (g *Globe) TilesLoaded() bool {
	if g.destroyed || !g.surface.Ready() || g.quadtree.LevelZeroTiles() == nil {
		return false
	}
	return g.quadtree.TileLoadQueueLength() == 0 && g.surface.Scheduler().Pending() == 0
}

// IsDestroyed reports whether Destroy was called.
func (g *Globe) IsDestroyed() bool { return g.destroyed }

// Destroy frees every tile, destroys the imagery layers and the clipping
// planes, and stops the worker pool created by New.
func (g *Globe) Destroy() {
	if g.destroyed {
		return
	}
	g.surface.Destroy()
	g.layers.RemoveAll(true)
	g.closePool()
	g.destroyed = true
}
