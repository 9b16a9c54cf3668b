package imagery

import (
	"context"
	"image"
	"math"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/internal/fetch"
	"github.com/gogpu/globe/internal/logging"
	"github.com/gogpu/globe/internal/metrics"
	"github.com/gogpu/globe/terrain"
)

// Default layer parameters.
const (
	DefaultAlpha                 = 1.0
	DefaultBrightness            = 1.0
	DefaultContrast              = 1.0
	DefaultHue                   = 0.0
	DefaultSaturation            = 1.0
	DefaultGamma                 = 1.0
	DefaultColorToAlphaThreshold = 0.004
)

// RequestError describes a failed image request.
type RequestError struct {
	Layer        *Layer
	X, Y, Level  int
	TimesRetried int
	Err          error
}

func (e *RequestError) Error() string { return e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// Layer is one imagery provider drawn with a set of display parameters.
//
// The exported parameters may be changed between frames. Show is picked up
// by the owning Collection on its next Update.
type Layer struct {
	id       uuid.UUID
	provider Provider

	Alpha      float64
	Brightness float64
	Contrast   float64
	Hue        float64
	Saturation float64
	Gamma      float64

	SplitDirection SplitDirection
	// ColorToAlpha, when set, makes texels within ColorToAlphaThreshold of
	// the color transparent.
	ColorToAlpha          *mgl64.Vec3
	ColorToAlphaThreshold float64
	// CutoutRectangle, when set, is a hole through the layer.
	CutoutRectangle *geo.Rectangle
	Show            bool

	rectangle     geo.Rectangle
	minTerrain    int
	maxTerrain    int
	discardPolicy DiscardPolicy
	onError       func(*RequestError) bool

	index     int
	baseLayer bool
	shown     bool
	showKnown bool

	cache       map[imageryKey]*Imagery
	placeholder *TileImagery

	ctx       context.Context
	cancel    context.CancelFunc
	destroyed bool
}

// LayerOption configures a Layer.
type LayerOption func(*Layer)

// WithAlpha sets the layer opacity in [0, 1].
func WithAlpha(a float64) LayerOption { return func(l *Layer) { l.Alpha = a } }

// WithBrightness sets the brightness; 1 leaves the image unchanged.
func WithBrightness(b float64) LayerOption { return func(l *Layer) { l.Brightness = b } }

// WithContrast sets the contrast; 1 leaves the image unchanged.
func WithContrast(c float64) LayerOption { return func(l *Layer) { l.Contrast = c } }

// WithHue shifts the hue in radians.
func WithHue(h float64) LayerOption { return func(l *Layer) { l.Hue = h } }

// WithSaturation sets the saturation; 1 leaves the image unchanged.
func WithSaturation(s float64) LayerOption { return func(l *Layer) { l.Saturation = s } }

// WithGamma sets the gamma correction; 1 leaves the image unchanged.
func WithGamma(g float64) LayerOption { return func(l *Layer) { l.Gamma = g } }

// WithSplitDirection shows the layer on one side of the split only.
func WithSplitDirection(d SplitDirection) LayerOption {
	return func(l *Layer) { l.SplitDirection = d }
}

// WithColorToAlpha makes texels close to rgb transparent.
func WithColorToAlpha(rgb mgl64.Vec3, threshold float64) LayerOption {
	return func(l *Layer) {
		l.ColorToAlpha = &rgb
		l.ColorToAlphaThreshold = threshold
	}
}

// WithCutoutRectangle punches a hole through the layer.
func WithCutoutRectangle(r geo.Rectangle) LayerOption {
	return func(l *Layer) { l.CutoutRectangle = &r }
}

// WithRectangle limits the layer to r.
func WithRectangle(r geo.Rectangle) LayerOption { return func(l *Layer) { l.rectangle = r } }

// WithShow sets the initial visibility.
func WithShow(show bool) LayerOption { return func(l *Layer) { l.Show = show } }

// WithTerrainLevels restricts the layer to terrain levels in [lo, hi].
// A negative bound is ignored.
func WithTerrainLevels(lo, hi int) LayerOption {
	return func(l *Layer) {
		l.minTerrain = lo
		l.maxTerrain = hi
	}
}

// WithDiscardPolicy rejects images matching p.
func WithDiscardPolicy(p DiscardPolicy) LayerOption {
	return func(l *Layer) { l.discardPolicy = p }
}

// WithErrorHandler is called for every failed request. Returning true
// retries the request on a later frame.
func WithErrorHandler(fn func(*RequestError) bool) LayerOption {
	return func(l *Layer) { l.onError = fn }
}

// NewLayer creates a layer drawing provider.
func NewLayer(provider Provider, opts ...LayerOption) *Layer {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Layer{
		id:                    uuid.New(),
		provider:              provider,
		Alpha:                 DefaultAlpha,
		Brightness:            DefaultBrightness,
		Contrast:              DefaultContrast,
		Hue:                   DefaultHue,
		Saturation:            DefaultSaturation,
		Gamma:                 DefaultGamma,
		ColorToAlphaThreshold: DefaultColorToAlphaThreshold,
		Show:                  true,
		rectangle:             geo.MaxValue,
		minTerrain:            -1,
		maxTerrain:            -1,
		index:                 -1,
		cache:                 make(map[imageryKey]*Imagery),
		ctx:                   ctx,
		cancel:                cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.placeholder = NewTileImagery(newPlaceholder(l), mgl64.Vec4{}, false)
	return l
}

// ID identifies the layer independently of its position.
func (l *Layer) ID() uuid.UUID { return l.id }

// Provider returns the layer's imagery provider.
func (l *Layer) Provider() Provider { return l.provider }

// Rectangle returns the layer's limit rectangle.
func (l *Layer) Rectangle() geo.Rectangle { return l.rectangle }

// Index returns the layer's position in its collection, or -1.
func (l *Layer) Index() int { return l.index }

// IsBaseLayer reports whether this is the bottom shown layer. The base
// layer stretches its edge texels over terrain outside its rectangle.
func (l *Layer) IsBaseLayer() bool { return l.baseLayer }

// IsDestroyed reports whether Destroy was called.
func (l *Layer) IsDestroyed() bool { return l.destroyed }

// Destroy cancels the layer's requests. Attached tiles must be freed by
// the surface before the layer is destroyed.
func (l *Layer) Destroy() {
	if l.destroyed {
		return
	}
	l.cancel()
	l.destroyed = true
}

// ImageryFromCache returns the arena entry for (x, y, level), creating it
// if needed, with one reference added for the caller.
func (l *Layer) ImageryFromCache(x, y, level int) *Imagery {
	key := imageryKey{x: x, y: y, level: level}
	img, ok := l.cache[key]
	if !ok {
		img = newImagery(l, x, y, level)
		l.cache[key] = img
	}
	img.AddReference()
	return img
}

// CacheLen returns the number of arena entries.
func (l *Layer) CacheLen() int { return len(l.cache) }

// ClearCache detaches every arena entry. Entries still referenced by tiles
// live on until released; new requests create fresh entries.
func (l *Layer) ClearCache() { clear(l.cache) }

func (l *Layer) removeImageryFromCache(img *Imagery) {
	key := imageryKey{x: img.X, y: img.Y, level: img.Level}
	if l.cache[key] == img {
		delete(l.cache, key)
	}
}

// TileRef is the part of a terrain tile needed to attach imagery.
type TileRef struct {
	X, Y, Level int
	Rectangle   geo.Rectangle
}

// CreateTileImagerySkeletons inserts unloaded TileImagery entries covering
// tile into *list at insertionPoint (negative appends). It reports whether
// anything was inserted. While the provider is not ready a shared
// placeholder is inserted instead.
func (l *Layer) CreateTileImagerySkeletons(tile TileRef, list *[]*TileImagery, terrainProvider terrain.Provider, insertionPoint int) bool {
	if l.minTerrain >= 0 && tile.Level < l.minTerrain {
		return false
	}
	if l.maxTerrain >= 0 && tile.Level > l.maxTerrain {
		return false
	}
	if insertionPoint < 0 || insertionPoint > len(*list) {
		insertionPoint = len(*list)
	}

	p := l.provider
	if !p.Ready() {
		l.placeholder.LoadingImagery.AddReference()
		*list = slices.Insert(*list, insertionPoint, l.placeholder)
		return true
	}

	scheme := p.TilingScheme()
	_, isMercator := scheme.(*geo.WebMercatorTilingScheme)
	useWebMercatorT := isMercator &&
		tile.Rectangle.North < geo.MaximumMercatorLatitude &&
		tile.Rectangle.South > -geo.MaximumMercatorLatitude

	imageryBounds, ok := p.Rectangle().Intersection(l.rectangle)
	if !ok {
		return false
	}
	rect, ok := tile.Rectangle.Intersection(imageryBounds)
	if !ok {
		if !l.baseLayer {
			return false
		}
		rect = stretchToEdge(tile.Rectangle, imageryBounds)
	}

	latitudeClosestToEquator := 0.0
	if rect.South > 0 {
		latitudeClosestToEquator = rect.South
	} else if rect.North < 0 {
		latitudeClosestToEquator = rect.North
	}

	targetError := terrainProvider.LevelMaximumGeometricError(tile.Level)
	level := max(0, l.levelWithMaximumTexelSpacing(targetError, latitudeClosestToEquator))
	level = min(level, p.MaximumLevel())
	level = max(level, p.MinimumLevel())

	nwX, nwY, _ := scheme.PositionToTileXY(rect.Northwest(), level)
	seX, seY, _ := scheme.PositionToTileXY(rect.Southeast(), level)

	// Skip imagery tiles that only touch the terrain tile within 1/512 of
	// its size.
	veryCloseX := tile.Rectangle.Width() / 512
	veryCloseY := tile.Rectangle.Height() / 512

	nwRect := scheme.TileXYToRectangle(nwX, nwY, level)
	if math.Abs(nwRect.South-tile.Rectangle.North) < veryCloseY && nwY < seY {
		nwY++
	}
	if math.Abs(nwRect.East-tile.Rectangle.West) < veryCloseX && nwX < seX {
		nwX++
	}
	seRect := scheme.TileXYToRectangle(seX, seY, level)
	if math.Abs(seRect.North-tile.Rectangle.South) < veryCloseY && seY > nwY {
		seY--
	}
	if math.Abs(seRect.West-tile.Rectangle.East) < veryCloseX && seX > nwX {
		seX--
	}

	terrainRect := tile.Rectangle
	imageryRect := scheme.TileXYToRectangle(nwX, nwY, level)
	clipped, _ := imageryRect.Intersection(imageryBounds)

	tileRect := scheme.TileXYToRectangle
	if useWebMercatorT {
		native := func(r geo.Rectangle) geo.Rectangle { return fromBound(scheme.RectangleToNativeRectangle(r)) }
		terrainRect = native(terrainRect)
		clipped = native(clipped)
		imageryBounds = native(imageryBounds)
		tileRect = func(x, y, level int) geo.Rectangle { return native(scheme.TileXYToRectangle(x, y, level)) }
		veryCloseX = terrainRect.Width() / 512
		veryCloseY = terrainRect.Height() / 512
	}

	var minU, maxV float64
	maxU := 0.0
	minV := 1.0

	// The first imagery tile may start inside the terrain tile.
	if !l.baseLayer && math.Abs(clipped.West-terrainRect.West) >= veryCloseX {
		maxU = math.Min(1, (clipped.West-terrainRect.West)/terrainRect.Width())
	}
	if !l.baseLayer && math.Abs(clipped.North-terrainRect.North) >= veryCloseY {
		minV = math.Max(0, (clipped.North-terrainRect.South)/terrainRect.Height())
	}
	initialMinV := minV

	for i := nwX; i <= seX; i++ {
		minU = maxU

		c, ok := tileRect(i, nwY, level).SimpleIntersection(imageryBounds)
		if !ok {
			continue
		}
		maxU = math.Min(1, (c.East-terrainRect.West)/terrainRect.Width())
		if i == seX && (l.baseLayer || math.Abs(c.East-terrainRect.East) < veryCloseX) {
			maxU = 1
		}

		minV = initialMinV
		for j := nwY; j <= seY; j++ {
			maxV = minV

			c, ok := tileRect(i, j, level).SimpleIntersection(imageryBounds)
			if !ok {
				continue
			}
			minV = math.Max(0, (c.South-terrainRect.South)/terrainRect.Height())
			if j == seY && (l.baseLayer || math.Abs(c.South-terrainRect.South) < veryCloseY) {
				minV = 0
			}

			texCoords := mgl64.Vec4{minU, minV, maxU, maxV}
			ti := NewTileImagery(l.ImageryFromCache(i, j, level), texCoords, useWebMercatorT)
			*list = slices.Insert(*list, insertionPoint, ti)
			insertionPoint++
		}
	}
	return true
}

// stretchToEdge returns the degenerate rectangle on the edge of bounds
// nearest to tile, so the base layer's edge texels cover tiles outside it.
func stretchToEdge(tile, bounds geo.Rectangle) geo.Rectangle {
	var r geo.Rectangle
	switch {
	case tile.South >= bounds.North:
		r.North, r.South = bounds.North, bounds.North
	case tile.North <= bounds.South:
		r.North, r.South = bounds.South, bounds.South
	default:
		r.South = math.Max(tile.South, bounds.South)
		r.North = math.Min(tile.North, bounds.North)
	}
	switch {
	case tile.West >= bounds.East:
		r.West, r.East = bounds.East, bounds.East
	case tile.East <= bounds.West:
		r.West, r.East = bounds.West, bounds.West
	default:
		r.West = math.Max(tile.West, bounds.West)
		r.East = math.Min(tile.East, bounds.East)
	}
	return r
}

func fromBound(b orb.Bound) geo.Rectangle {
	return geo.Rectangle{West: b.Min[0], South: b.Min[1], East: b.Max[0], North: b.Max[1]}
}

// levelWithMaximumTexelSpacing picks the imagery level whose texels are
// about texelSpacing meters apart.
func (l *Layer) levelWithMaximumTexelSpacing(texelSpacing, latitudeClosestToEquator float64) int {
	scheme := l.provider.TilingScheme()
	latitudeFactor := 1.0
	if _, geographic := scheme.(*geo.GeographicTilingScheme); !geographic {
		latitudeFactor = math.Cos(latitudeClosestToEquator)
	}
	levelZeroMaximumTexelSpacing := scheme.Ellipsoid().MaximumRadius() * scheme.Rectangle().Width() * latitudeFactor /
		float64(l.provider.TileWidth()*scheme.NumberOfXTilesAtLevel(0))
	return int(math.Round(math.Log2(levelZeroMaximumTexelSpacing / texelSpacing)))
}

// CalculateTextureTranslationAndScale maps a terrain tile's texture
// coordinates into the texture of t.ReadyImagery.
func (l *Layer) CalculateTextureTranslationAndScale(tileRect geo.Rectangle, t *TileImagery) mgl64.Vec4 {
	imageryRect := t.ReadyImagery.Rectangle
	terrainRect := tileRect
	if t.UseWebMercatorT {
		scheme := t.ReadyImagery.layer.provider.TilingScheme()
		imageryRect = fromBound(scheme.RectangleToNativeRectangle(imageryRect))
		terrainRect = fromBound(scheme.RectangleToNativeRectangle(terrainRect))
	}
	w, h := terrainRect.Width(), terrainRect.Height()
	sx := w / imageryRect.Width()
	sy := h / imageryRect.Height()
	return mgl64.Vec4{
		sx * (terrainRect.West - imageryRect.West) / w,
		sy * (terrainRect.South - imageryRect.South) / h,
		sx,
		sy,
	}
}

func (l *Layer) requestImagery(ld *Loader, img *Imagery) {
	ctx, cancel := context.WithCancel(l.ctx)
	img.State = StateTransitioning
	img.cancel = cancel

	provider := l.provider
	x, y, level := img.X, img.Y, img.Level
	start := time.Now()
	ok := fetch.Go(ld.Scheduler, ctx,
		func(ctx context.Context) (image.Image, error) {
			return provider.RequestImage(ctx, x, y, level)
		},
		func(ctx context.Context, im image.Image, err error) {
			if ctx.Err() != nil {
				return
			}
			cancel()
			img.cancel = nil
			metrics.FetchDurationMs.WithLabelValues("imagery").Observe(float64(time.Since(start).Milliseconds()))

			switch {
			case err != nil:
				l.requestFailed(img, err)
			case im == nil:
				metrics.ImageryRequestsTotal.WithLabelValues("throttled").Inc()
				img.State = StateUnloaded
			default:
				metrics.ImageryRequestsTotal.WithLabelValues("ok").Inc()
				img.Image = im
				img.State = StateReceived
			}
		})
	if !ok {
		cancel()
		img.cancel = nil
		img.State = StateUnloaded
	}
}

func (l *Layer) requestFailed(img *Imagery, err error) {
	metrics.ImageryRequestsTotal.WithLabelValues("error").Inc()
	img.State = StateFailed
	logging.L().Warn("imagery request failed",
		"layer", l.id, "level", img.Level, "x", img.X, "y", img.Y, "err", err)

	if l.onError == nil {
		return
	}
	rerr := &RequestError{Layer: l, X: img.X, Y: img.Y, Level: img.Level, TimesRetried: img.timesRetried, Err: err}
	if l.onError(rerr) {
		img.timesRetried++
		img.State = StateUnloaded
	}
}

func (l *Layer) createTexture(ld *Loader, img *Imagery) {
	if p := l.discardPolicy; p != nil {
		if !p.IsReady() {
			return
		}
		if p.ShouldDiscardImage(img.Image) {
			img.State = StateInvalid
			return
		}
	}
	tex, err := ld.Textures.CreateTexture(img.Image)
	if err != nil {
		logging.L().Warn("imagery texture upload failed", "layer", l.id, "level", img.Level, "x", img.X, "y", img.Y, "err", err)
		img.State = StateFailed
		return
	}
	img.Texture = tex
	img.Image = nil
	img.State = StateReady
}
