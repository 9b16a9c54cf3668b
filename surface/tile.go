package surface

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/internal/metrics"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/terrain"
)

// GeometryState summarizes where a tile's geometry is.
type GeometryState int

const (
	GeometryUnloaded GeometryState = iota
	GeometryLoading
	GeometryReady
	// GeometryUpsampled means the mesh was derived from an ancestor and
	// carries no detail of its own.
	GeometryUpsampled
	GeometryFailed
)

func (s GeometryState) String() string {
	switch s {
	case GeometryUnloaded:
		return "Unloaded"
	case GeometryLoading:
		return "Loading"
	case GeometryReady:
		return "Ready"
	case GeometryUpsampled:
		return "Upsampled"
	case GeometryFailed:
		return "Failed"
	default:
		return fmt.Sprintf("GeometryState(%d)", int(s))
	}
}

// SurfaceTile is the data the surface keeps on each quadtree tile.
type SurfaceTile struct {
	// Imagery is ordered by layer index, bottom layer first. Entries of
	// one layer are contiguous.
	Imagery []*imagery.TileImagery

	// TerrainData is the best data received so far. Children upsample
	// from it.
	TerrainData terrain.Data
	Mesh        *terrain.Mesh

	Region           *geo.BoundingRegion
	BoundingSphere3D geo.BoundingSphere
	// BoundingSphere2D is refreshed by visibility tests outside 3D.
	BoundingSphere2D geo.BoundingSphere

	OccludeePointInScaledSpace mgl64.Vec3
	HasOccludeePoint           bool

	// ClippedByBoundaries is set when the tile crosses the cartographic
	// limit rectangle.
	ClippedByBoundaries bool

	loadedTerrain    *tileTerrain
	upsampledTerrain *tileTerrain
	terrainFailed    bool
}

// TileData returns the SurfaceTile of t, or nil if t was never loaded by a
// surface Provider.
func TileData(t *quadtree.Tile) *SurfaceTile {
	st, _ := t.Data.(*SurfaceTile)
	return st
}

// GeometryState reports the state of the tile's geometry.
func (s *SurfaceTile) GeometryState() GeometryState {
	switch {
	case s.Mesh != nil && s.TerrainData != nil && s.TerrainData.WasCreatedByUpsampling():
		return GeometryUpsampled
	case s.Mesh != nil:
		return GeometryReady
	case s.loadedTerrain != nil || s.upsampledTerrain != nil:
		return GeometryLoading
	case s.terrainFailed:
		return GeometryFailed
	default:
		return GeometryUnloaded
	}
}

// EligibleForUnloading reports false while terrain or imagery requests are
// in flight.
func (s *SurfaceTile) EligibleForUnloading() bool {
	if s.loadedTerrain != nil && s.loadedTerrain.busy() {
		return false
	}
	if s.upsampledTerrain != nil && s.upsampledTerrain.busy() {
		return false
	}
	for _, ti := range s.Imagery {
		if ti.LoadingImagery != nil && ti.LoadingImagery.State == imagery.StateTransitioning {
			return false
		}
	}
	return true
}

// FreeResources cancels pending terrain work and releases the tile's
// imagery.
func (s *SurfaceTile) FreeResources() {
	if s.loadedTerrain != nil {
		s.loadedTerrain.freeResources()
		s.loadedTerrain = nil
	}
	if s.upsampledTerrain != nil {
		s.upsampledTerrain.freeResources()
		s.upsampledTerrain = nil
	}
	s.TerrainData = nil
	s.Mesh = nil
	s.terrainFailed = false
	for _, ti := range s.Imagery {
		ti.FreeResources()
	}
	s.Imagery = nil
}

// layerRange returns the first index and number of entries of layer.
func (s *SurfaceTile) layerRange(layer *imagery.Layer) (start, count int) {
	start = -1
	for i, ti := range s.Imagery {
		if ti.Layer() == layer {
			if start < 0 {
				start = i
			}
			count++
		} else if start >= 0 {
			break
		}
	}
	return start, count
}

// insertionPoint returns where entries of layer go to keep the list in
// layer order.
func (s *SurfaceTile) insertionPoint(layer *imagery.Layer) int {
	for i, ti := range s.Imagery {
		if l := ti.Layer(); l != nil && l.Index() > layer.Index() {
			return i
		}
	}
	return len(s.Imagery)
}

func tileRef(t *quadtree.Tile) imagery.TileRef {
	return imagery.TileRef{X: t.X, Y: t.Y, Level: t.Level, Rectangle: t.Rectangle}
}

// processStateMachine advances t by one step.
func (p *Provider) processStateMachine(t *quadtree.Tile) {
	st := TileData(t)
	if st == nil {
		st = p.newSurfaceTile(t)
		t.Data = st
	}

	if t.State == quadtree.LoadStart {
		p.prepareNewTile(t, st)
		t.State = quadtree.LoadLoading
	}
	if t.State == quadtree.LoadLoading {
		p.processTerrainStateMachine(t, st)
	}

	isRenderable := st.Mesh != nil
	isDoneLoading := st.loadedTerrain == nil && st.upsampledTerrain == nil
	// A tile whose terrain and imagery only repeat its parent's is not
	// worth refining into.
	isUpsampledOnly := st.TerrainData != nil && st.TerrainData.WasCreatedByUpsampling()

	for i := 0; i < len(st.Imagery); i++ {
		ti := st.Imagery[i]
		loading := ti.LoadingImagery
		if loading == nil {
			isUpsampledOnly = false
			continue
		}

		if loading.State == imagery.StatePlaceholder {
			layer := loading.Layer()
			if layer.Provider().Ready() {
				// Swap the placeholder for real skeletons and look at the
				// same index again.
				ti.FreeResources()
				st.Imagery = append(st.Imagery[:i], st.Imagery[i+1:]...)
				layer.CreateTileImagerySkeletons(tileRef(t), &st.Imagery, p.terrainProvider, i)
				i--
				continue
			}
			isUpsampledOnly = false
		}

		done := ti.ProcessStateMachine(t.Rectangle, p.loader, false)
		isDoneLoading = isDoneLoading && done
		isRenderable = isRenderable && (done || ti.ReadyImagery != nil)
		isUpsampledOnly = isUpsampledOnly && ti.LoadingImagery != nil &&
			(ti.LoadingImagery.State == imagery.StateFailed || ti.LoadingImagery.State == imagery.StateInvalid)
	}

	t.UpsampledFromParent = isUpsampledOnly
	if isRenderable {
		t.Renderable = true
	}
	if !isDoneLoading {
		return
	}

	if st.Mesh == nil {
		t.State = quadtree.LoadFailed
		return
	}
	if t.State != quadtree.LoadDone {
		metrics.TilesLoadedTotal.Inc()
	}
	t.State = quadtree.LoadDone
	for id, cb := range t.LoadedCallbacks {
		if cb(t) {
			delete(t.LoadedCallbacks, id)
		}
	}
}

func (p *Provider) newSurfaceTile(t *quadtree.Tile) *SurfaceTile {
	e := p.terrainProvider.TilingScheme().Ellipsoid()
	st := &SurfaceTile{
		Region:           geo.NewBoundingRegion(t.Rectangle, e, 0, 0),
		BoundingSphere3D: geo.BoundingSphereFromRectangle3D(t.Rectangle, e, 0, 0),
	}
	corners := geo.SampleRectangle(t.Rectangle, e, []float64{0}, 3)
	st.OccludeePointInScaledSpace, st.HasOccludeePoint = p.occluder.ComputeHorizonCullingPoint(st.BoundingSphere3D.Center, corners)
	return st
}

func (p *Provider) prepareNewTile(t *quadtree.Tile, st *SurfaceTile) {
	if src := upsampleSourceFor(t); src != nil {
		st.upsampledTerrain = newTileTerrain(src)
	}
	if p.isDataAvailable(t) {
		st.loadedTerrain = newTileTerrain(nil)
	}
	for _, layer := range p.layers.Layers() {
		if layer.Show {
			layer.CreateTileImagerySkeletons(tileRef(t), &st.Imagery, p.terrainProvider, -1)
		}
	}
}

// upsampleSourceFor finds the nearest ancestor holding terrain data.
func upsampleSourceFor(t *quadtree.Tile) *upsampleSource {
	src := t.Parent()
	for src != nil {
		st := TileData(src)
		if st == nil {
			return nil
		}
		if st.TerrainData != nil {
			return &upsampleSource{data: st.TerrainData, x: src.X, y: src.Y, level: src.Level}
		}
		src = src.Parent()
	}
	return nil
}

func (p *Provider) isDataAvailable(t *quadtree.Tile) bool {
	if available, known := p.terrainProvider.TileDataAvailable(t.X, t.Y, t.Level); known {
		return available
	}
	parent := t.Parent()
	if parent == nil {
		return true
	}
	pst := TileData(parent)
	if pst == nil || pst.TerrainData == nil {
		// Assume unavailable until the parent's child mask is known.
		return false
	}
	return pst.TerrainData.IsChildAvailable(parent.X, parent.Y, t.X, t.Y)
}

func (p *Provider) processTerrainStateMachine(t *quadtree.Tile, st *SurfaceTile) {
	suspendUpsampling := false

	if loaded := st.loadedTerrain; loaded != nil {
		loaded.processLoadStateMachine(p, t)

		// Publish the data early so children can upsample from it.
		if loaded.hasData() {
			if st.TerrainData != loaded.data {
				st.TerrainData = loaded.data
				propagateNewLoadedDataToChildren(t, st)
			}
			suspendUpsampling = true
		}

		switch loaded.state {
		case terrainReady:
			p.publishToTile(t, st, loaded)
			st.loadedTerrain = nil
			if st.upsampledTerrain != nil {
				st.upsampledTerrain.freeResources()
				st.upsampledTerrain = nil
			}
		case terrainFailed:
			st.loadedTerrain = nil
			st.terrainFailed = true
		}
	}

	if upsampled := st.upsampledTerrain; upsampled != nil && !suspendUpsampling {
		upsampled.processUpsampleStateMachine(p, t)

		// Nothing loaded has been received, so this cannot overwrite
		// better data.
		if upsampled.hasData() && st.TerrainData != upsampled.data {
			st.TerrainData = upsampled.data
			propagateNewUpsampledDataToChildren(t, st)
		}

		switch upsampled.state {
		case terrainReady:
			p.publishToTile(t, st, upsampled)
			st.upsampledTerrain = nil
		case terrainFailed:
			st.upsampledTerrain = nil
		}
	}
}

func (p *Provider) publishToTile(t *quadtree.Tile, st *SurfaceTile, tt *tileTerrain) {
	m := tt.mesh
	tt.mesh = nil
	st.Mesh = m
	st.terrainFailed = false
	st.Region = geo.NewBoundingRegion(t.Rectangle, p.terrainProvider.TilingScheme().Ellipsoid(), m.MinimumHeight, m.MaximumHeight)
	st.BoundingSphere3D = m.BoundingSphere
	st.OccludeePointInScaledSpace, st.HasOccludeePoint = m.OccludeePointInScaledSpace, m.HasOccludeePoint
}

// propagateNewLoadedDataToChildren restarts upsampling in children that
// have no data of their own, and starts loading children the new data
// says exist.
func propagateNewLoadedDataToChildren(t *quadtree.Tile, st *SurfaceTile) {
	for _, child := range t.CreatedChildren() {
		cst := restartUpsampling(t, st, child)
		if cst == nil {
			continue
		}
		if st.TerrainData.IsChildAvailable(t.X, t.Y, child.X, child.Y) && cst.loadedTerrain == nil {
			cst.loadedTerrain = newTileTerrain(nil)
		}
		child.State = quadtree.LoadLoading
	}
}

// propagateNewUpsampledDataToChildren re-upsamples children from better
// ancestor data.
func propagateNewUpsampledDataToChildren(t *quadtree.Tile, st *SurfaceTile) {
	for _, child := range t.CreatedChildren() {
		if restartUpsampling(t, st, child) != nil {
			child.State = quadtree.LoadLoading
		}
	}
}

// restartUpsampling points child's upsampling at t's data. It returns nil
// when the child is not loading or already has data of its own.
func restartUpsampling(t *quadtree.Tile, st *SurfaceTile, child *quadtree.Tile) *SurfaceTile {
	if child.State == quadtree.LoadStart {
		return nil
	}
	cst := TileData(child)
	if cst == nil {
		return nil
	}
	if cst.TerrainData != nil && !cst.TerrainData.WasCreatedByUpsampling() {
		return nil
	}
	// A step may still be in flight on the old one, so start afresh.
	if cst.upsampledTerrain != nil {
		cst.upsampledTerrain.freeResources()
	}
	cst.upsampledTerrain = newTileTerrain(&upsampleSource{data: st.TerrainData, x: t.X, y: t.Y, level: t.Level})
	return cst
}
