package quadtree

import (
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/scene"
)

// Visibility is the result of a tile visibility test.
type Visibility int

const (
	VisibilityNone Visibility = iota - 1
	VisibilityPartial
	VisibilityFull
)

func (v Visibility) String() string {
	switch v {
	case VisibilityNone:
		return "None"
	case VisibilityPartial:
		return "Partial"
	case VisibilityFull:
		return "Full"
	default:
		return "Visibility(?)"
	}
}

// TileProvider loads, culls and draws tiles for a Primitive. All methods
// are called on the frame thread.
type TileProvider interface {
	// Ready reports whether level-zero tiles can be created.
	Ready() bool
	TilingScheme() geo.TilingScheme
	LevelMaximumGeometricError(level int) float64

	// Initialize runs at the start of every frame, before any tile is
	// selected. Completed requests are applied here.
	Initialize(fs *scene.FrameState)
	BeginUpdate(fs *scene.FrameState)
	EndUpdate(fs *scene.FrameState)

	// LoadTile advances the tile's load state by one step.
	LoadTile(fs *scene.FrameState, t *Tile)
	// ComputeTileVisibility classifies t and stores its camera distance in
	// t.Distance. occluder is nil when horizon culling should be skipped.
	ComputeTileVisibility(t *Tile, fs *scene.FrameState, occluder *geo.EllipsoidalOccluder) Visibility
	// ShowTileThisFrame queues t for drawing in EndUpdate.
	ShowTileThisFrame(t *Tile, fs *scene.FrameState)
}
