package surface

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/clipping"
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/internal/fetch"
	"github.com/gogpu/globe/internal/logging"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/render"
	"github.com/gogpu/globe/scene"
	"github.com/gogpu/globe/terrain"
)

// DefaultMaximumRequests caps terrain and imagery requests in flight when
// Options.Scheduler is nil.
const DefaultMaximumRequests = 32

// DefaultBaseColor is drawn where no imagery covers a tile.
var DefaultBaseColor = mgl64.Vec4{0, 0, 1, 1}

// Options configures a Provider. TerrainProvider, ImageryLayers and
// ShaderSet are required.
type Options struct {
	TerrainProvider terrain.Provider
	ImageryLayers   *imagery.Collection
	ShaderSet       *render.ShaderSet
	// Textures uploads imagery. Nil means render.ImageTextureFactory.
	Textures render.TextureFactory
	// Scheduler runs requests. Nil means a scheduler with an inline
	// executor and DefaultMaximumRequests in flight.
	Scheduler *fetch.Scheduler
}

// Provider is the quadtree.TileProvider of the globe surface.
type Provider struct {
	terrainProvider terrain.Provider
	layers          *imagery.Collection
	shaders         *render.ShaderSet
	scheduler       *fetch.Scheduler
	loader          *imagery.Loader
	quadtree        *quadtree.Primitive
	occluder        *geo.EllipsoidalOccluder
	removeListener  func()

	// ctx is cancelled when the terrain provider is replaced, discarding
	// results still in flight.
	ctx    context.Context
	cancel context.CancelFunc

	baseColor                  mgl64.Vec4
	cartographicLimitRectangle geo.Rectangle
	clippingPlanes             *clipping.Collection

	// ShowSkirts draws the skirts hung below tile edges.
	ShowSkirts bool
	// EnableLighting shades the surface by the sun direction.
	EnableLighting bool

	Debug Debug

	tilesByTextureCount [][]*quadtree.Tile
	drawCommands        []*render.DrawCommand
	usedDrawCommands    int
	frameNumber         uint64
	destroyed           bool
}

var _ quadtree.TileProvider = (*Provider)(nil)

// New returns a provider over opts.
func New(opts Options) (*Provider, error) {
	switch {
	case opts.TerrainProvider == nil:
		return nil, ErrNoTerrainProvider
	case opts.ImageryLayers == nil:
		return nil, ErrNoImageryLayers
	case opts.ShaderSet == nil:
		return nil, ErrNoShaderSet
	}
	if opts.Textures == nil {
		opts.Textures = render.ImageTextureFactory{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = fetch.NewScheduler(nil, DefaultMaximumRequests)
	}

	p := &Provider{
		terrainProvider:            opts.TerrainProvider,
		layers:                     opts.ImageryLayers,
		shaders:                    opts.ShaderSet,
		scheduler:                  opts.Scheduler,
		loader:                     &imagery.Loader{Scheduler: opts.Scheduler, Textures: opts.Textures},
		occluder:                   geo.NewEllipsoidalOccluder(opts.TerrainProvider.TilingScheme().Ellipsoid()),
		baseColor:                  DefaultBaseColor,
		cartographicLimitRectangle: geo.MaxValue,
		ShowSkirts:                 true,
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.removeListener = p.layers.AddListener(layerListener{p})
	for _, layer := range p.layers.Layers() {
		if layer.Show {
			p.installReloadHandler(layer)
		}
	}
	return p, nil
}

// SetQuadtree is called by quadtree.NewPrimitive.
func (p *Provider) SetQuadtree(q *quadtree.Primitive) { p.quadtree = q }

// Quadtree returns the primitive driving the provider.
func (p *Provider) Quadtree() *quadtree.Primitive { return p.quadtree }

// ImageryLayers returns the layer collection.
func (p *Provider) ImageryLayers() *imagery.Collection { return p.layers }

// Scheduler returns the request scheduler.
func (p *Provider) Scheduler() *fetch.Scheduler { return p.scheduler }

// Ready reports whether the terrain provider and the bottom imagery layer
// are ready.
func (p *Provider) Ready() bool {
	if !p.terrainProvider.Ready() {
		return false
	}
	return p.layers.Len() == 0 || p.layers.Get(0).Provider().Ready()
}

// TilingScheme returns the terrain tiling scheme.
func (p *Provider) TilingScheme() geo.TilingScheme { return p.terrainProvider.TilingScheme() }

// LevelMaximumGeometricError returns the terrain error at level.
func (p *Provider) LevelMaximumGeometricError(level int) float64 {
	return p.terrainProvider.LevelMaximumGeometricError(level)
}

// TerrainProvider returns the current terrain provider.
func (p *Provider) TerrainProvider() terrain.Provider { return p.terrainProvider }

// SetTerrainProvider replaces the terrain. Setting the current provider
// again does nothing. Otherwise requests in flight are abandoned and every
// tile is rebuilt on the next frame.
func (p *Provider) SetTerrainProvider(tp terrain.Provider) error {
	if tp == nil {
		return fmt.Errorf("%w: terrain provider", ErrNilParameter)
	}
	if tp == p.terrainProvider {
		return nil
	}
	p.terrainProvider = tp
	p.cancel()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.occluder = geo.NewEllipsoidalOccluder(tp.TilingScheme().Ellipsoid())
	if p.quadtree != nil {
		p.quadtree.InvalidateAllTiles()
	}
	logging.L().Info("surface: terrain provider replaced")
	return nil
}

// BaseColor returns the color drawn under all imagery.
func (p *Provider) BaseColor() mgl64.Vec4 { return p.baseColor }

// SetBaseColor changes the color drawn under all imagery. Components must
// be finite.
func (p *Provider) SetBaseColor(c mgl64.Vec4) error {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: base color %v", ErrNilParameter, c)
		}
	}
	p.baseColor = c
	return nil
}

// CartographicLimitRectangle returns the area outside of which nothing is
// drawn.
func (p *Provider) CartographicLimitRectangle() geo.Rectangle { return p.cartographicLimitRectangle }

// SetCartographicLimitRectangle restricts drawing to r. A rectangle with
// West > East wraps the antimeridian.
func (p *Provider) SetCartographicLimitRectangle(r *geo.Rectangle) error {
	if r == nil {
		return fmt.Errorf("%w: cartographic limit rectangle", ErrNilParameter)
	}
	p.cartographicLimitRectangle = *r
	return nil
}

// ClippingPlanes returns the clipping planes, or nil.
func (p *Provider) ClippingPlanes() *clipping.Collection { return p.clippingPlanes }

// SetClippingPlanes attaches c, destroying the collection it replaces.
// It fails with clipping.ErrAlreadyOwned if c belongs to something else.
func (p *Provider) SetClippingPlanes(c *clipping.Collection) error {
	return clipping.SetOwner(&p.clippingPlanes, c, p)
}

// Initialize applies completed requests, picks up layer visibility changes
// and adds the terrain credit.
func (p *Provider) Initialize(fs *scene.FrameState) {
	p.scheduler.Drain()
	p.layers.Update()
	if fs.Credits != nil {
		fs.Credits.AddCredit(p.terrainProvider.Credit())
	}
}

// LoadTile advances t's terrain and imagery by one step.
func (p *Provider) LoadTile(fs *scene.FrameState, t *quadtree.Tile) {
	p.processStateMachine(t)
}

// IsDestroyed reports whether Destroy was called.
func (p *Provider) IsDestroyed() bool { return p.destroyed }

// Destroy abandons requests in flight, stops listening to the layer
// collection and destroys the clipping planes.
func (p *Provider) Destroy() {
	if p.destroyed {
		return
	}
	p.cancel()
	p.removeListener()
	for _, layer := range p.layers.Layers() {
		p.clearReloadHandler(layer)
	}
	if p.quadtree != nil {
		for _, t := range p.quadtree.LevelZeroTiles() {
			t.FreeResources()
		}
	}
	_ = clipping.SetOwner(&p.clippingPlanes, nil, p)
	p.destroyed = true
}
