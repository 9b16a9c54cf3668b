package surface

import (
	"cmp"
	"slices"

	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/internal/logging"
	"github.com/gogpu/globe/quadtree"
)

// layerListener keeps tile imagery in step with the layer collection.
type layerListener struct{ p *Provider }

func (l layerListener) LayerAdded(layer *imagery.Layer, index int)   { l.p.onLayerAdded(layer) }
func (l layerListener) LayerRemoved(layer *imagery.Layer, index int) { l.p.onLayerRemoved(layer) }

func (l layerListener) LayerMoved(layer *imagery.Layer, newIndex, oldIndex int) {
	l.p.sortTileImagery()
}

func (l layerListener) LayerShownOrHidden(layer *imagery.Layer, index int, show bool) {
	if show {
		l.p.onLayerAdded(layer)
	} else {
		l.p.onLayerRemoved(layer)
	}
}

func (p *Provider) forEachLoadedTile(fn func(t *quadtree.Tile, st *SurfaceTile)) {
	if p.quadtree == nil {
		return
	}
	p.quadtree.ForEachLoadedTile(func(t *quadtree.Tile) {
		if st := TileData(t); st != nil {
			fn(t, st)
		}
	})
}

// onLayerAdded attaches a newly shown layer to every loaded tile.
func (p *Provider) onLayerAdded(layer *imagery.Layer) {
	if !layer.Show {
		return
	}
	p.installReloadHandler(layer)

	p.forEachLoadedTile(func(t *quadtree.Tile, st *SurfaceTile) {
		if start, _ := st.layerRange(layer); start >= 0 {
			return
		}
		if !layer.CreateTileImagerySkeletons(tileRef(t), &st.Imagery, p.terrainProvider, st.insertionPoint(layer)) {
			return
		}
		t.State = quadtree.LoadLoading
		// Tiles on screen keep drawing without the new layer until it
		// loads; hiding them would open holes in the globe.
		if t.Level != 0 && t.FrameRendered() != p.frameNumber {
			t.Renderable = false
		}
	})
	logging.L().Info("surface: imagery layer attached", "layer", layer.ID(), "index", layer.Index())
}

// onLayerRemoved detaches layer from every loaded tile.
func (p *Provider) onLayerRemoved(layer *imagery.Layer) {
	p.forEachLoadedTile(func(t *quadtree.Tile, st *SurfaceTile) {
		start, count := st.layerRange(layer)
		if start < 0 {
			return
		}
		for _, ti := range st.Imagery[start : start+count] {
			ti.FreeResources()
		}
		st.Imagery = slices.Delete(st.Imagery, start, start+count)
		delete(t.LoadedCallbacks, layer.ID())
	})
	p.clearReloadHandler(layer)
	logging.L().Info("surface: imagery layer detached", "layer", layer.ID())
}

// sortTileImagery restores layer order on every loaded tile.
func (p *Provider) sortTileImagery() {
	p.forEachLoadedTile(func(_ *quadtree.Tile, st *SurfaceTile) {
		slices.SortStableFunc(st.Imagery, func(a, b *imagery.TileImagery) int {
			return cmp.Compare(a.Layer().Index(), b.Layer().Index())
		})
	})
}

func (p *Provider) installReloadHandler(layer *imagery.Layer) {
	if r, ok := layer.Provider().(imagery.Reloadable); ok {
		r.SetReloadHandler(layer.ID(), func() { p.reloadLayer(layer) })
	}
}

func (p *Provider) clearReloadHandler(layer *imagery.Layer) {
	if r, ok := layer.Provider().(imagery.Reloadable); ok {
		r.SetReloadHandler(layer.ID(), nil)
	}
}

// reloadLayer requests fresh imagery for layer on every loaded tile. The
// new entries go right after the stale ones, which keep drawing until the
// tile finishes loading and a callback removes them. A tile still waiting
// on an earlier reload of the layer is left alone.
func (p *Provider) reloadLayer(layer *imagery.Layer) {
	layer.ClearCache()
	p.forEachLoadedTile(func(t *quadtree.Tile, st *SurfaceTile) {
		if _, pending := t.LoadedCallbacks[layer.ID()]; pending {
			return
		}
		start, count := st.layerRange(layer)
		if start < 0 {
			return
		}
		if layer.CreateTileImagerySkeletons(tileRef(t), &st.Imagery, p.terrainProvider, start+count) {
			t.LoadedCallbacks[layer.ID()] = p.tileReadyCallback(count, layer)
			t.State = quadtree.LoadLoading
		}
	})
	logging.L().Debug("surface: imagery layer reloaded", "layer", layer.ID())
}

// tileReadyCallback removes the stale entries of a reloaded layer once
// the tile has loaded the new ones.
func (p *Provider) tileReadyCallback(stale int, layer *imagery.Layer) quadtree.LoadedCallback {
	return func(t *quadtree.Tile) bool {
		st := TileData(t)
		if st == nil {
			return true
		}
		start, _ := st.layerRange(layer)
		if start < 0 {
			return true
		}
		end := start + stale
		if end >= len(st.Imagery) || st.Imagery[end].Layer() != layer {
			// The new entries are missing; create them and wait again.
			if layer.CreateTileImagerySkeletons(tileRef(t), &st.Imagery, p.terrainProvider, end) {
				t.State = quadtree.LoadLoading
				return false
			}
			return true
		}
		for _, ti := range st.Imagery[start:end] {
			ti.FreeResources()
		}
		st.Imagery = slices.Delete(st.Imagery, start, end)
		return true
	}
}
