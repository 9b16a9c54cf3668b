// Package globe renders a planet-scale terrain surface as a quadtree of
// tiles.
//
// # Overview
//
// Every frame the globe picks the smallest set of tiles whose geometric
// error, projected to the screen, stays under a pixel threshold. Tiles
// that are not loaded yet are queued in three priority tiers and loaded
// within a time budget; until then their nearest loaded ancestor is drawn.
// Tiles not drawn recently are evicted once the tile cache is full.
//
// Each drawn tile carries terrain geometry from a terrain.Provider and zero
// or more imagery layers from an imagery.Collection, reprojected onto the
// tile and composited bottom layer first.
//
// # Quick Start
//
//	import "github.com/gogpu/globe"
//
//	g, err := globe.New(globe.WithImageryLayers(layers))
//	if err != nil {
//		return err
//	}
//	defer g.Destroy()
//
//	fs := scene.NewFrameState(camera, 800, 600)
//	for !g.TilesLoaded() {
//		g.Update(fs)
//	}
//	// fs.Commands now holds one or more draw commands per drawn tile.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Globe and its options
//   - Selection: quadtree (tiles, load queue, replacement queue, traversal)
//   - Surface: surface (tile loading, culling, draw commands)
//   - Data: terrain, imagery, clipping
//   - Frame: scene (camera, fog, credits), render (commands, uniforms, preview)
//   - Math: geo (rectangles, ellipsoid, projections, tiling schemes)
//
// # Threading
//
// A Globe is driven from one goroutine, the frame thread. Terrain and
// imagery requests run on an executor and their results are applied at the
// start of the next frame.
package globe

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
