package globe

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/clipping"
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/internal/fetch"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/render"
	"github.com/gogpu/globe/scene"
	"github.com/gogpu/globe/surface"
	"github.com/gogpu/globe/terrain"
)

// Option configures a Globe during creation.
// Use functional options to customize Globe behavior.
//
// Example:
//
//	// Flat terrain, no imagery, a worker pool for requests
//	g, err := globe.New()
//
//	// Heightmap terrain from a tile server
//	g, err := globe.New(globe.WithTerrainProvider(tp), globe.WithTileCacheSize(500))
type Option func(*options)

// options holds the configuration for Globe creation.
type options struct {
	terrainProvider terrain.Provider
	layers          *imagery.Collection
	shaders         *render.ShaderSet
	textures        render.TextureFactory
	executor        fetch.Executor
	maximumRequests int

	maximumScreenSpaceError float64
	tileCacheSize           int
	loadingTimeSlice        time.Duration
	maximumLoadsPerFrame    int
	childLoadBudget         int
	tileLoadProgress        func(queued int)

	baseColor      mgl64.Vec4
	fog            scene.Fog
	clippingPlanes *clipping.Collection
	limitRectangle *geo.Rectangle
	showSkirts     bool
	enableLighting bool
}

// defaultOptions returns the default globe options.
func defaultOptions() options {
	return options{
		terrainProvider:         terrain.NewEllipsoidProvider(nil),
		layers:                  imagery.NewCollection(),
		shaders:                 render.NewShaderSet(""),
		textures:                render.ImageTextureFactory{},
		executor:                nil, // A worker pool owned by the Globe is created if nil
		maximumRequests:         surface.DefaultMaximumRequests,
		maximumScreenSpaceError: quadtree.DefaultMaximumScreenSpaceError,
		tileCacheSize:           quadtree.DefaultTileCacheSize,
		loadingTimeSlice:        quadtree.DefaultLoadingTimeSlice,
		childLoadBudget:         quadtree.DefaultChildLoadBudget,
		baseColor:               surface.DefaultBaseColor,
		fog:                     scene.DefaultFog(),
		showSkirts:              true,
	}
}

// WithTerrainProvider sets the terrain. The default is flat terrain on the
// WGS84 ellipsoid.
func WithTerrainProvider(tp terrain.Provider) Option {
	return func(o *options) {
		o.terrainProvider = tp
	}
}

// WithImageryLayers sets the imagery layer collection. The collection may
// be shared with the application, which can add and reorder layers at any
// time.
func WithImageryLayers(c *imagery.Collection) Option {
	return func(o *options) {
		o.layers = c
	}
}

// WithShaderSet sets the shader variants handed to draw commands.
func WithShaderSet(s *render.ShaderSet) Option {
	return func(o *options) {
		o.shaders = s
	}
}

// WithTextureFactory sets how imagery is uploaded.
//
// Example:
//
//	// Keep decoded images in memory for the software preview
//	g, err := globe.New(globe.WithTextureFactory(render.ImageTextureFactory{}))
func WithTextureFactory(f render.TextureFactory) Option {
	return func(o *options) {
		o.textures = f
	}
}

// WithExecutor runs terrain and imagery requests on e instead of a worker
// pool owned by the Globe. The caller keeps ownership of e.
func WithExecutor(e fetch.Executor) Option {
	return func(o *options) {
		o.executor = e
	}
}

// WithMaximumRequests caps terrain and imagery requests in flight.
func WithMaximumRequests(n int) Option {
	return func(o *options) {
		o.maximumRequests = n
	}
}

// WithMaximumScreenSpaceError sets the pixel error above which a tile is
// refined. Lower values draw more detail.
func WithMaximumScreenSpaceError(v float64) Option {
	return func(o *options) {
		o.maximumScreenSpaceError = v
	}
}

// WithTileCacheSize sets the number of tiles kept beyond those drawn in
// the current frame.
func WithTileCacheSize(n int) Option {
	return func(o *options) {
		o.tileCacheSize = n
	}
}

// WithLoadingTimeSlice bounds the time spent loading tiles per frame.
func WithLoadingTimeSlice(d time.Duration) Option {
	return func(o *options) {
		o.loadingTimeSlice = d
	}
}

// WithMaximumLoadsPerFrame caps the tiles processed per frame.
func WithMaximumLoadsPerFrame(n int) Option {
	return func(o *options) {
		o.maximumLoadsPerFrame = n
	}
}

// WithChildLoadBudget sets how many unrenderable children of a refining
// tile are loaded at high priority.
func WithChildLoadBudget(n int) Option {
	return func(o *options) {
		o.childLoadBudget = n
	}
}

// WithTileLoadProgress registers fn to be called whenever the number of
// tiles waiting to load changes.
func WithTileLoadProgress(fn func(queued int)) Option {
	return func(o *options) {
		o.tileLoadProgress = fn
	}
}

// WithBaseColor sets the color drawn where no imagery covers the globe.
func WithBaseColor(c mgl64.Vec4) Option {
	return func(o *options) {
		o.baseColor = c
	}
}

// WithFog sets distance fog. Pass scene.Fog{} to disable it.
func WithFog(f scene.Fog) Option {
	return func(o *options) {
		o.fog = f
	}
}

// WithClippingPlanes attaches c to the globe.
func WithClippingPlanes(c *clipping.Collection) Option {
	return func(o *options) {
		o.clippingPlanes = c
	}
}

// WithCartographicLimitRectangle restricts drawing to r.
func WithCartographicLimitRectangle(r geo.Rectangle) Option {
	return func(o *options) {
		o.limitRectangle = &r
	}
}

// WithShowSkirts sets whether tile skirts are drawn.
func WithShowSkirts(show bool) Option {
	return func(o *options) {
		o.showSkirts = show
	}
}

// WithLighting enables sun lighting of the surface.
func WithLighting(enable bool) Option {
	return func(o *options) {
		o.enableLighting = enable
	}
}
