package terrain

import (
	"context"

	"github.com/gogpu/globe/geo"
)

const ellipsoidGridSize = 16

// EllipsoidProvider produces flat terrain at height zero. It never fails
// and every tile has all four children.
type EllipsoidProvider struct {
	scheme         geo.TilingScheme
	levelZeroError float64
}

// NewEllipsoidProvider returns flat terrain over scheme. A nil scheme uses
// the default geographic scheme on WGS84.
func NewEllipsoidProvider(scheme geo.TilingScheme) *EllipsoidProvider {
	if scheme == nil {
		scheme = geo.NewGeographicTilingScheme(geo.WGS84)
	}
	return &EllipsoidProvider{
		scheme:         scheme,
		levelZeroError: EstimatedLevelZeroGeometricError(scheme.Ellipsoid(), 64, scheme.NumberOfXTilesAtLevel(0)),
	}
}

func (p *EllipsoidProvider) Ready() bool                    { return true }
func (p *EllipsoidProvider) TilingScheme() geo.TilingScheme { return p.scheme }
func (p *EllipsoidProvider) Credit() string                 { return "" }

func (p *EllipsoidProvider) LevelMaximumGeometricError(level int) float64 {
	return p.levelZeroError / float64(int64(1)<<level)
}

func (p *EllipsoidProvider) TileDataAvailable(x, y, level int) (bool, bool) {
	return false, false
}

func (p *EllipsoidProvider) RequestTileGeometry(ctx context.Context, x, y, level int) (Data, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewHeightmap(ellipsoidGridSize, ellipsoidGridSize, make([]float64, ellipsoidGridSize*ellipsoidGridSize), 0x0f, nil)
}
