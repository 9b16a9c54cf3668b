// Package terrain defines the terrain capability consumed by the globe
// surface and ships two implementations: a flat ellipsoid and an HTTP
// heightmap service.
package terrain

import (
	"context"
	"errors"
	"math"

	"github.com/gogpu/globe/geo"
)

var (
	// ErrInvalidHeightmap is returned when a payload cannot be decoded.
	ErrInvalidHeightmap = errors.New("terrain: invalid heightmap")
	// ErrTileNotFound is returned when the server has no data for a tile.
	ErrTileNotFound = errors.New("terrain: tile not found")
	// ErrNotReady is returned by requests issued before a provider is ready.
	ErrNotReady = errors.New("terrain: provider not ready")
)

// HeightmapTerrainQuality scales the estimated geometric error of
// heightmap terrain. Lower values produce more refinement.
const HeightmapTerrainQuality = 0.25

// Provider supplies terrain geometry for a tiling scheme.
//
// RequestTileGeometry is called from fetch workers and may block on I/O;
// every other method is called on the frame thread.
type Provider interface {
	Ready() bool
	TilingScheme() geo.TilingScheme
	RequestTileGeometry(ctx context.Context, x, y, level int) (Data, error)
	LevelMaximumGeometricError(level int) float64
	// TileDataAvailable reports whether the tile exists. When known is
	// false the surface falls back to the parent's child mask.
	TileDataAvailable(x, y, level int) (available, known bool)
	Credit() string
}

// Data is decoded terrain for one tile.
type Data interface {
	MinimumHeight() float64
	MaximumHeight() float64
	// IsChildAvailable reports whether the child (childX, childY) of tile
	// (thisX, thisY) has its own data.
	IsChildAvailable(thisX, thisY, childX, childY int) bool
	WasCreatedByUpsampling() bool
	// Upsample derives data for a descendant tile from this tile's data.
	Upsample(scheme geo.TilingScheme, thisX, thisY, thisLevel, descendantX, descendantY, descendantLevel int) (Data, error)
	// CreateMesh builds renderable geometry for the tile.
	CreateMesh(scheme geo.TilingScheme, x, y, level int, skirtHeight float64) (*Mesh, error)
	WaterMask() []byte
}

// EstimatedLevelZeroGeometricError estimates the geometric error of a
// level-zero heightmap tile with the given sample width.
func EstimatedLevelZeroGeometricError(e geo.Ellipsoid, tileImageWidth, numberOfTilesAtLevelZero int) float64 {
	return e.MaximumRadius() * 2 * math.Pi * HeightmapTerrainQuality /
		float64(tileImageWidth*numberOfTilesAtLevelZero)
}
