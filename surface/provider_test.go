package surface

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/clipping"
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/render"
	"github.com/gogpu/globe/scene"
	"github.com/gogpu/globe/terrain"
)

var solidColor = color.RGBA{255, 0, 0, 255}

func solidImage(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func newSingleTileLayer(c color.RGBA, credit string, opts ...imagery.LayerOption) *imagery.Layer {
	return imagery.NewLayer(imagery.NewSingleTileProvider(solidImage(c), geo.MaxValue, credit), opts...)
}

// creditedTerrain is flat terrain with an attribution.
type creditedTerrain struct {
	*terrain.EllipsoidProvider
	credit string
}

func (c creditedTerrain) Credit() string { return c.credit }

// failingTerrain is flat terrain that has no data from minLevel down.
type failingTerrain struct {
	*terrain.EllipsoidProvider
	minLevel int
}

func (f failingTerrain) RequestTileGeometry(ctx context.Context, x, y, level int) (terrain.Data, error) {
	if level >= f.minLevel {
		return nil, terrain.ErrTileNotFound
	}
	return f.EllipsoidProvider.RequestTileGeometry(ctx, x, y, level)
}

type harness struct {
	layers   *imagery.Collection
	provider *Provider
	prim     *quadtree.Primitive
	fs       *scene.FrameState
}

func newHarness(t *testing.T, tp terrain.Provider, layers ...*imagery.Layer) *harness {
	t.Helper()
	if tp == nil {
		tp = terrain.NewEllipsoidProvider(nil)
	}
	coll := imagery.NewCollection(layers...)
	p, err := New(Options{
		TerrainProvider: tp,
		ImageryLayers:   coll,
		ShaderSet:       render.NewShaderSet(""),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	prim := quadtree.NewPrimitive(p, quadtree.Options{LoadingTimeSlice: time.Hour})
	if p.Quadtree() != prim {
		t.Fatal("NewPrimitive did not hand the primitive to the provider")
	}
	h := &harness{layers: coll, provider: p, prim: prim}
	h.lookDown(0, 0, 5e7)
	return h
}

func (h *harness) lookDown(lon, lat, height float64) {
	cam := scene.NewCamera(800, 600)
	cam.LookDown(geo.WGS84, geo.CartographicFromDegrees(lon, lat, height))
	if h.fs == nil {
		h.fs = scene.NewFrameState(cam, 800, 600)
		return
	}
	h.fs.Camera = cam
}

func (h *harness) frame() {
	h.fs.BeginFrame(scene.Fog{})
	h.prim.BeginFrame(h.fs)
	h.prim.Render(h.fs)
	h.prim.EndFrame(h.fs)
}

func (h *harness) done() bool {
	return h.prim.LevelZeroTiles() != nil &&
		h.prim.TileLoadQueueLength() == 0 &&
		h.provider.Scheduler().Pending() == 0
}

func (h *harness) updateUntilDone(t *testing.T) {
	t.Helper()
	for range 100 {
		h.frame()
		if h.done() {
			return
		}
	}
	t.Fatalf("tiles still loading after 100 frames, queue = %d", h.prim.TileLoadQueueLength())
}

func (h *harness) renderedTiles(t *testing.T) []*quadtree.Tile {
	t.Helper()
	tiles := h.prim.TilesToRender()
	if len(tiles) == 0 {
		t.Fatal("no tiles rendered")
	}
	return tiles
}

func layersOf(st *SurfaceTile) []*imagery.Layer {
	out := make([]*imagery.Layer, len(st.Imagery))
	for i, ti := range st.Imagery {
		out[i] = ti.Layer()
	}
	return out
}

func TestNewRequiresDependencies(t *testing.T) {
	tp := terrain.NewEllipsoidProvider(nil)
	coll := imagery.NewCollection()
	shaders := render.NewShaderSet("")
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no terrain", Options{ImageryLayers: coll, ShaderSet: shaders}, ErrNoTerrainProvider},
		{"no layers", Options{TerrainProvider: tp, ShaderSet: shaders}, ErrNoImageryLayers},
		{"no shaders", Options{TerrainProvider: tp, ImageryLayers: coll}, ErrNoShaderSet},
	}
	for _, tt := range tests {
		p, err := New(tt.opts)
		if !errors.Is(err, tt.want) || p != nil {
			t.Errorf("%s: New() = %v, %v, want nil, %v", tt.name, p, err, tt.want)
		}
	}
}

func TestProviderDefaults(t *testing.T) {
	h := newHarness(t, nil)
	p := h.provider
	if p.BaseColor() != DefaultBaseColor {
		t.Errorf("BaseColor() = %v, want %v", p.BaseColor(), DefaultBaseColor)
	}
	if !p.CartographicLimitRectangle().Equals(geo.MaxValue, 0) {
		t.Errorf("CartographicLimitRectangle() = %v, want %v", p.CartographicLimitRectangle(), geo.MaxValue)
	}
	if !p.ShowSkirts || p.EnableLighting {
		t.Errorf("ShowSkirts, EnableLighting = %v, %v, want true, false", p.ShowSkirts, p.EnableLighting)
	}
	if p.ClippingPlanes() != nil {
		t.Errorf("ClippingPlanes() = %v, want nil", p.ClippingPlanes())
	}
	if !p.Ready() {
		t.Error("Ready() = false with flat terrain and no layers")
	}
}

func TestProviderLoadsRootTiles(t *testing.T) {
	h := newHarness(t, nil, newSingleTileLayer(solidColor, ""))
	h.updateUntilDone(t)

	tiles := h.renderedTiles(t)
	if len(tiles) != 2 {
		t.Fatalf("len(TilesToRender()) = %d, want 2", len(tiles))
	}
	for _, tile := range tiles {
		st := TileData(tile)
		if tile.State != quadtree.LoadDone || !tile.Renderable {
			t.Errorf("%v state %v renderable %v, want Done and renderable", tile, tile.State, tile.Renderable)
		}
		if got := st.GeometryState(); got != GeometryReady {
			t.Errorf("%v GeometryState() = %v, want %v", tile, got, GeometryReady)
		}
		if len(st.Imagery) != 1 || st.Imagery[0].ReadyImagery == nil {
			t.Errorf("%v imagery = %v, want one ready entry", tile, st.Imagery)
		}
		if st.Region.MinimumHeight != 0 || st.Region.MaximumHeight != 0 {
			t.Errorf("%v heights = %v, %v, want 0, 0", tile, st.Region.MinimumHeight, st.Region.MaximumHeight)
		}
	}
	if got := len(*h.fs.Commands); got != 2 {
		t.Errorf("len(Commands) = %d, want 2", got)
	}
	if h.provider.Debug.TilesRendered != 2 || h.provider.Debug.TexturesRendered != 2 {
		t.Errorf("Debug = %+v, want 2 tiles, 2 textures", h.provider.Debug)
	}
}

func TestImageryLayerAddedAfterLoad(t *testing.T) {
	h := newHarness(t, nil, newSingleTileLayer(solidColor, ""))
	h.updateUntilDone(t)

	second := newSingleTileLayer(color.RGBA{0, 255, 0, 255}, "")
	if err := h.layers.Add(second); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	for _, tile := range h.renderedTiles(t) {
		st := TileData(tile)
		if got := len(st.Imagery); got != 2 {
			t.Errorf("%v has %d imagery entries, want 2", tile, got)
			continue
		}
		if st.Imagery[1].Layer() != second {
			t.Errorf("%v second entry belongs to %v, want the new layer", tile, st.Imagery[1].Layer())
		}
		if tile.State != quadtree.LoadLoading {
			t.Errorf("%v state = %v, want Loading", tile, tile.State)
		}
		if !tile.Renderable {
			t.Errorf("%v stopped rendering while the new layer loads", tile)
		}
	}

	h.updateUntilDone(t)
	for _, tile := range h.renderedTiles(t) {
		st := TileData(tile)
		if len(st.Imagery) != 2 || st.Imagery[1].ReadyImagery == nil {
			t.Errorf("%v imagery = %v, want two ready entries", tile, st.Imagery)
		}
	}
}

func TestImageryLayerRemoved(t *testing.T) {
	first := newSingleTileLayer(solidColor, "")
	second := newSingleTileLayer(color.RGBA{0, 255, 0, 255}, "")
	h := newHarness(t, nil, first, second)
	h.updateUntilDone(t)

	h.layers.Remove(first, true)
	for _, tile := range h.renderedTiles(t) {
		st := TileData(tile)
		if got := layersOf(st); !slices.Equal(got, []*imagery.Layer{second}) {
			t.Errorf("%v layers = %v, want only the second layer", tile, got)
		}
	}
	if !first.IsDestroyed() {
		t.Error("removed layer not destroyed")
	}
}

func TestImageryLayerHidden(t *testing.T) {
	first := newSingleTileLayer(solidColor, "")
	second := newSingleTileLayer(color.RGBA{0, 255, 0, 255}, "")
	h := newHarness(t, nil, first, second)
	h.updateUntilDone(t)

	second.Show = false
	h.frame()
	for _, tile := range h.renderedTiles(t) {
		if got := layersOf(TileData(tile)); !slices.Equal(got, []*imagery.Layer{first}) {
			t.Errorf("%v layers after hide = %v, want only the first layer", tile, got)
		}
	}

	second.Show = true
	h.frame()
	for _, tile := range h.renderedTiles(t) {
		if got := layersOf(TileData(tile)); !slices.Equal(got, []*imagery.Layer{first, second}) {
			t.Errorf("%v layers after show = %v, want both layers in order", tile, got)
		}
	}
}

func TestImageryLayerReordered(t *testing.T) {
	first := newSingleTileLayer(solidColor, "")
	second := newSingleTileLayer(color.RGBA{0, 255, 0, 255}, "")
	h := newHarness(t, nil, first, second)
	h.updateUntilDone(t)

	if err := h.layers.RaiseToTop(first); err != nil {
		t.Fatalf("RaiseToTop() error = %v", err)
	}
	for _, tile := range h.renderedTiles(t) {
		if got := layersOf(TileData(tile)); !slices.Equal(got, []*imagery.Layer{second, first}) {
			t.Errorf("%v layers = %v, want second then first", tile, got)
		}
	}
}

func TestReloadReplacesImageryOnceLoaded(t *testing.T) {
	first := newSingleTileLayer(solidColor, "")
	second := newSingleTileLayer(color.RGBA{0, 255, 0, 255}, "")
	h := newHarness(t, nil, first, second)
	h.updateUntilDone(t)

	for _, tile := range h.renderedTiles(t) {
		if n, cbs := len(TileData(tile).Imagery), len(tile.LoadedCallbacks); n != 2 || cbs != 0 {
			t.Fatalf("%v before reload: %d entries, %d callbacks, want 2, 0", tile, n, cbs)
		}
	}

	reload := func(l *imagery.Layer) { l.Provider().(imagery.Reloadable).Reload() }
	reload(first)
	reload(second)
	// A tile already waiting on a layer ignores a second reload of it.
	reload(first)
	reload(second)

	for _, tile := range h.renderedTiles(t) {
		st := TileData(tile)
		if n, cbs := len(st.Imagery), len(tile.LoadedCallbacks); n != 4 || cbs != 2 {
			t.Errorf("%v after reload: %d entries, %d callbacks, want 4, 2", tile, n, cbs)
		}
		if got := layersOf(st); !slices.Equal(got, []*imagery.Layer{first, first, second, second}) {
			t.Errorf("%v layers = %v, want each layer twice in order", tile, got)
		}
	}

	h.updateUntilDone(t)
	for _, tile := range h.renderedTiles(t) {
		st := TileData(tile)
		if n, cbs := len(st.Imagery), len(tile.LoadedCallbacks); n != 2 || cbs != 0 {
			t.Errorf("%v after load: %d entries, %d callbacks, want 2, 0", tile, n, cbs)
		}
		for _, ti := range st.Imagery {
			if ti.ReadyImagery == nil {
				t.Errorf("%v entry for %v not ready", tile, ti.Layer())
			}
		}
	}
}

func TestReloadSharedProvider(t *testing.T) {
	shared := imagery.NewSingleTileProvider(solidImage(solidColor), geo.MaxValue, "")
	first := imagery.NewLayer(shared)
	second := imagery.NewLayer(shared, imagery.WithAlpha(0.5))
	h := newHarness(t, nil, first, second)
	h.updateUntilDone(t)

	h.layers.Remove(first, true)
	shared.Reload()

	for _, tile := range h.renderedTiles(t) {
		st := TileData(tile)
		if got := layersOf(st); !slices.Equal(got, []*imagery.Layer{second, second}) {
			t.Errorf("%v layers = %v, want the remaining layer twice", tile, got)
		}
		if cbs := len(tile.LoadedCallbacks); cbs != 1 {
			t.Errorf("%v callbacks = %d, want 1", tile, cbs)
		}
	}
}

func TestClippingPlanesVisibility(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		clipped  bool
		commands int
	}{
		{"everything clipped", -1e7, true, 0},
		{"intersecting", 0, true, 2},
		{"nothing clipped", 1e7, false, 2},
	}
	for _, tt := range tests {
		h := newHarness(t, nil, newSingleTileLayer(solidColor, ""))
		c := clipping.New(clipping.NewPlane(mgl64.Vec3{0, 0, 1}, tt.distance))
		if err := h.provider.SetClippingPlanes(c); err != nil {
			t.Fatalf("%s: SetClippingPlanes() error = %v", tt.name, err)
		}
		h.updateUntilDone(t)

		for _, tile := range h.prim.LevelZeroTiles() {
			if tile.IsClipped != tt.clipped {
				t.Errorf("%s: %v IsClipped = %v, want %v", tt.name, tile, tile.IsClipped, tt.clipped)
			}
		}
		if got := len(*h.fs.Commands); got != tt.commands {
			t.Errorf("%s: len(Commands) = %d, want %d", tt.name, got, tt.commands)
		}
		for _, cmd := range *h.fs.Commands {
			if got := len(cmd.Uniforms.ClippingPlanes); tt.clipped && got != 1 {
				t.Errorf("%s: command has %d clipping planes, want 1", tt.name, got)
			}
			if cmd.ShaderProgram.Options.EnableClippingPlanes != tt.clipped {
				t.Errorf("%s: EnableClippingPlanes = %v, want %v", tt.name,
					cmd.ShaderProgram.Options.EnableClippingPlanes, tt.clipped)
			}
		}
	}
}

func TestClippingPlanesOwnership(t *testing.T) {
	a := newHarness(t, nil)
	b := newHarness(t, nil)
	c := clipping.New(clipping.NewPlane(mgl64.Vec3{0, 0, 1}, 0))

	if err := a.provider.SetClippingPlanes(c); err != nil {
		t.Fatalf("SetClippingPlanes() error = %v", err)
	}
	if err := b.provider.SetClippingPlanes(c); !errors.Is(err, clipping.ErrAlreadyOwned) {
		t.Errorf("SetClippingPlanes() on a second provider error = %v, want %v", err, clipping.ErrAlreadyOwned)
	}
	if err := a.provider.SetClippingPlanes(c); err != nil {
		t.Errorf("SetClippingPlanes() with the current collection error = %v", err)
	}

	replacement := clipping.New()
	if err := a.provider.SetClippingPlanes(replacement); err != nil {
		t.Fatalf("SetClippingPlanes() error = %v", err)
	}
	if !c.IsDestroyed() {
		t.Error("replaced collection not destroyed")
	}

	a.provider.Destroy()
	if !replacement.IsDestroyed() || !a.provider.IsDestroyed() {
		t.Error("Destroy() left the provider or its clipping planes alive")
	}
}

func TestCartographicLimitRectangleCullsCommands(t *testing.T) {
	h := newHarness(t, nil, newSingleTileLayer(solidColor, ""))
	h.updateUntilDone(t)
	unculled := len(*h.fs.Commands)

	r := geo.RectangleFromDegrees(-2, -2, -1, -1)
	if err := h.provider.SetCartographicLimitRectangle(&r); err != nil {
		t.Fatalf("SetCartographicLimitRectangle() error = %v", err)
	}
	h.updateUntilDone(t)
	if got := len(*h.fs.Commands); got >= unculled {
		t.Errorf("len(Commands) = %d with a limit rectangle, want fewer than %d", got, unculled)
	}
	for _, cmd := range *h.fs.Commands {
		if !cmd.ShaderProgram.Options.ClippedByBoundaries {
			t.Error("command drawn without boundary clipping")
		}
	}
}

func TestSetters(t *testing.T) {
	h := newHarness(t, nil)
	p := h.provider

	if err := p.SetCartographicLimitRectangle(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("SetCartographicLimitRectangle(nil) error = %v, want %v", err, ErrNilParameter)
	}
	if err := p.SetBaseColor(mgl64.Vec4{math.NaN(), 0, 0, 1}); !errors.Is(err, ErrNilParameter) {
		t.Errorf("SetBaseColor(NaN) error = %v, want %v", err, ErrNilParameter)
	}
	if p.BaseColor() != DefaultBaseColor {
		t.Errorf("BaseColor() after a rejected set = %v, want %v", p.BaseColor(), DefaultBaseColor)
	}
	green := mgl64.Vec4{0, 1, 0, 1}
	if err := p.SetBaseColor(green); err != nil || p.BaseColor() != green {
		t.Errorf("SetBaseColor() = %v, BaseColor() = %v, want nil, %v", err, p.BaseColor(), green)
	}
	if err := p.SetTerrainProvider(nil); !errors.Is(err, ErrNilParameter) {
		t.Errorf("SetTerrainProvider(nil) error = %v, want %v", err, ErrNilParameter)
	}
}

func TestSetTerrainProvider(t *testing.T) {
	tp := terrain.NewEllipsoidProvider(nil)
	h := newHarness(t, tp, newSingleTileLayer(solidColor, ""))
	h.updateUntilDone(t)
	roots := slices.Clone(h.prim.LevelZeroTiles())

	if err := h.provider.SetTerrainProvider(tp); err != nil {
		t.Fatalf("SetTerrainProvider() error = %v", err)
	}
	h.frame()
	for _, tile := range h.prim.LevelZeroTiles() {
		if !slices.Contains(roots, tile) {
			t.Errorf("%v was rebuilt after setting the same terrain provider", tile)
		}
	}

	next := terrain.NewEllipsoidProvider(nil)
	if err := h.provider.SetTerrainProvider(next); err != nil {
		t.Fatalf("SetTerrainProvider() error = %v", err)
	}
	if h.provider.TerrainProvider() != next {
		t.Error("TerrainProvider() did not return the new provider")
	}
	h.frame()
	for _, tile := range h.prim.LevelZeroTiles() {
		if slices.Contains(roots, tile) {
			t.Errorf("%v survived a terrain provider change", tile)
		}
	}
	for _, tile := range roots {
		if tile.State != quadtree.LoadStart || tile.Data != nil {
			t.Errorf("old root %v not freed: state %v", tile, tile.State)
		}
	}
	h.updateUntilDone(t)
}

func TestUpsampledChildrenAreNotRefined(t *testing.T) {
	h := newHarness(t, failingTerrain{terrain.NewEllipsoidProvider(nil), 1})
	h.lookDown(45, 45, 1e6)
	h.updateUntilDone(t)

	for _, tile := range h.renderedTiles(t) {
		if tile.Level != 0 {
			t.Errorf("%v rendered, want only level zero", tile)
		}
	}
	var east *quadtree.Tile
	for _, tile := range h.prim.LevelZeroTiles() {
		if tile.X == 1 {
			east = tile
		}
	}
	if east == nil {
		t.Fatal("no eastern root")
	}
	for _, child := range east.Children() {
		st := TileData(child)
		if st == nil {
			t.Errorf("%v has no surface data", child)
			continue
		}
		if got := st.GeometryState(); got != GeometryUpsampled {
			t.Errorf("%v GeometryState() = %v, want %v", child, got, GeometryUpsampled)
		}
		if !child.UpsampledFromParent || !child.Renderable || child.State != quadtree.LoadDone {
			t.Errorf("%v upsampled %v renderable %v state %v, want upsampled, renderable, Done",
				child, child.UpsampledFromParent, child.Renderable, child.State)
		}
	}
}

func TestDrawCommandsCredits(t *testing.T) {
	tp := creditedTerrain{terrain.NewEllipsoidProvider(nil), "terrain credit"}
	h := newHarness(t, tp, newSingleTileLayer(solidColor, "imagery credit"))
	h.updateUntilDone(t)

	got := h.fs.Credits.Credits()
	for _, want := range []string{"terrain credit", "imagery credit"} {
		if !slices.Contains(got, want) {
			t.Errorf("Credits() = %v, missing %q", got, want)
		}
	}
}

func TestDrawCommandsWithoutCreditDisplay(t *testing.T) {
	tp := creditedTerrain{terrain.NewEllipsoidProvider(nil), "terrain credit"}
	h := newHarness(t, tp, newSingleTileLayer(solidColor, "imagery credit"))
	h.fs.Credits = nil
	h.updateUntilDone(t)

	if got := len(*h.fs.Commands); got != 2 {
		t.Errorf("len(Commands) = %d, want 2", got)
	}
}

func TestDrawCommandsProjectedModes(t *testing.T) {
	geographic := geo.NewGeographicProjection(geo.WGS84)
	mercator := geo.NewWebMercatorProjection(geo.WGS84)
	tests := []struct {
		name string
		mode scene.Mode
		proj geo.MapProjection
	}{
		{"2D geographic", scene.Mode2D, geographic},
		{"2D web mercator", scene.Mode2D, mercator},
		{"Columbus view geographic", scene.ModeColumbusView, geographic},
		{"Columbus view web mercator", scene.ModeColumbusView, mercator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, newSingleTileLayer(solidColor, ""))
			h.fs.Mode = tt.mode
			h.fs.MapProjection = tt.proj
			h.fs.Camera.LookDownProjected(tt.proj, geo.CartographicFromDegrees(0, 0, 2e7))
			h.updateUntilDone(t)

			cmds := *h.fs.Commands
			if len(cmds) == 0 {
				t.Fatal("len(Commands) = 0, want > 0")
			}
			for _, cmd := range cmds {
				if cmd.ShaderProgram.Options.SceneMode3D {
					t.Error("SceneMode3D = true for a projected command")
				}
				sw := tt.proj.Project(cmd.Rectangle.Southwest())
				ne := tt.proj.Project(cmd.Rectangle.Northeast())
				want := mgl64.Vec2{(sw[0] + ne[0]) * 0.5, (sw[1] + ne[1]) * 0.5}
				if got := cmd.ModelMatrix.Col(3).Vec2(); got != want {
					t.Errorf("ModelMatrix translation = %v, want projected tile center %v", got, want)
				}
			}
		})
	}
}

// failingImagery serves a single tile provider's tiling but fails every
// request.
type failingImagery struct {
	*imagery.SingleTileProvider
}

func (failingImagery) RequestImage(context.Context, int, int, int) (image.Image, error) {
	return nil, errors.New("imagery unavailable")
}

func TestDrawCommandsFailedImageryRoot(t *testing.T) {
	layer := imagery.NewLayer(failingImagery{imagery.NewSingleTileProvider(solidImage(solidColor), geo.MaxValue, "")})
	h := newHarness(t, nil, layer)
	h.updateUntilDone(t)

	cmds := *h.fs.Commands
	if len(cmds) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(cmds))
	}
	for _, cmd := range cmds {
		if n := cmd.Uniforms.TextureCount(); n != 0 {
			t.Errorf("TextureCount() = %d, want 0", n)
		}
	}
	for _, tile := range h.renderedTiles(t) {
		if tile.State != quadtree.LoadDone {
			t.Errorf("tile %v State = %v, want %v", tile, tile.State, quadtree.LoadDone)
		}
	}
}

func TestDrawCommandsTransparentLayer(t *testing.T) {
	h := newHarness(t, nil, newSingleTileLayer(solidColor, "", imagery.WithAlpha(0)))
	h.updateUntilDone(t)

	cmds := *h.fs.Commands
	if len(cmds) != 2 {
		t.Fatalf("len(Commands) = %d, want 2", len(cmds))
	}
	for _, cmd := range cmds {
		if n := cmd.Uniforms.TextureCount(); n != 0 {
			t.Errorf("TextureCount() = %d, want 0", n)
		}
		if cmd.Uniforms.InitialColor != DefaultBaseColor {
			t.Errorf("InitialColor = %v, want %v", cmd.Uniforms.InitialColor, DefaultBaseColor)
		}
	}
	if h.provider.Debug.TexturesRendered != 0 {
		t.Errorf("TexturesRendered = %d, want 0", h.provider.Debug.TexturesRendered)
	}
}

func TestDrawCommandsMultipass(t *testing.T) {
	h := newHarness(t, nil,
		newSingleTileLayer(solidColor, ""),
		newSingleTileLayer(color.RGBA{0, 255, 0, 255}, ""),
		newSingleTileLayer(color.RGBA{0, 0, 255, 255}, ""),
	)
	h.fs.MaximumTextureUnits = 2
	h.updateUntilDone(t)

	for _, tile := range h.renderedTiles(t) {
		cmds := h.fs.Commands.OwnedBy(tile)
		if len(cmds) != 2 {
			t.Errorf("%v has %d commands, want 2", tile, len(cmds))
			continue
		}
		first, second := cmds[0], cmds[1]
		if first.RenderState.Blended() || first.Uniforms.InitialColor != DefaultBaseColor {
			t.Errorf("%v first pass blended %v initial color %v, want opaque over the base color",
				tile, first.RenderState.Blended(), first.Uniforms.InitialColor)
		}
		if !second.RenderState.Blended() || second.Uniforms.InitialColor != (mgl64.Vec4{}) {
			t.Errorf("%v second pass blended %v initial color %v, want blended over transparent",
				tile, second.RenderState.Blended(), second.Uniforms.InitialColor)
		}
		if first.Uniforms.TextureCount() != 2 || second.Uniforms.TextureCount() != 1 {
			t.Errorf("%v textures per pass = %d, %d, want 2, 1",
				tile, first.Uniforms.TextureCount(), second.Uniforms.TextureCount())
		}
		if first.Pass != render.PassGlobe || first.Mesh != TileData(tile).Mesh {
			t.Errorf("%v pass %v, want the globe pass with the tile mesh", tile, first.Pass)
		}
	}
}

func TestDrawCommandsLayerUniforms(t *testing.T) {
	h := newHarness(t, nil, newSingleTileLayer(solidColor, "",
		imagery.WithGamma(2),
		imagery.WithSplitDirection(imagery.SplitLeft),
		imagery.WithColorToAlpha(mgl64.Vec3{1, 0, 0}, 0.1),
		imagery.WithBrightness(0.5),
	))
	h.updateUntilDone(t)

	cmds := *h.fs.Commands
	if len(cmds) == 0 {
		t.Fatal("no commands")
	}
	cmd := cmds[0]
	d := cmd.Uniforms.DayTextureAt(0)
	if d.OneOverGamma != 0.5 {
		t.Errorf("OneOverGamma = %v, want 0.5", d.OneOverGamma)
	}
	if d.Split != -1 {
		t.Errorf("Split = %v, want -1", d.Split)
	}
	if want := (mgl64.Vec4{1, 0, 0, 0.1}); d.ColorToAlpha != want {
		t.Errorf("ColorToAlpha = %v, want %v", d.ColorToAlpha, want)
	}
	if d.Brightness != 0.5 {
		t.Errorf("Brightness = %v, want 0.5", d.Brightness)
	}

	o := cmd.ShaderProgram.Options
	if !o.ApplyGamma || !o.ApplySplit || !o.ApplyColorToAlpha || !o.ApplyBrightness {
		t.Errorf("options %+v, want gamma, split, color to alpha and brightness applied", o)
	}
	if o.ApplyAlpha || o.ApplyContrast || o.ApplyHue || o.ApplySaturation || o.ApplyCutout {
		t.Errorf("options %+v apply a default layer setting", o)
	}
	if o.NumberOfDayTextures != 1 || !o.ShowSkirts || !o.SceneMode3D {
		t.Errorf("options %+v, want one texture, skirts and 3D", o)
	}
}

func TestDrawCommandsSkirts(t *testing.T) {
	h := newHarness(t, nil)
	h.updateUntilDone(t)

	for _, cmd := range *h.fs.Commands {
		if cmd.Count != len(cmd.Mesh.Indices) {
			t.Errorf("Count = %d with skirts, want %d", cmd.Count, len(cmd.Mesh.Indices))
		}
	}
	h.provider.ShowSkirts = false
	h.frame()
	for _, cmd := range *h.fs.Commands {
		if cmd.Count != cmd.Mesh.IndexCountWithoutSkirts {
			t.Errorf("Count = %d without skirts, want %d", cmd.Count, cmd.Mesh.IndexCountWithoutSkirts)
		}
		if cmd.ShaderProgram.Options.ShowSkirts {
			t.Error("ShowSkirts option set after disabling skirts")
		}
	}
}
