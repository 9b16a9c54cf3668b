package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// TilingScheme describes how the ellipsoid surface is divided into tiles at
// each level. Tile y grows southward from the north edge.
type TilingScheme interface {
	Ellipsoid() Ellipsoid
	Rectangle() Rectangle
	Projection() MapProjection
	NumberOfXTilesAtLevel(level int) int
	NumberOfYTilesAtLevel(level int) int
	TileXYToRectangle(x, y, level int) Rectangle
	// RectangleToNativeRectangle converts a geographic rectangle to the
	// scheme's native units (degrees or projected meters).
	RectangleToNativeRectangle(r Rectangle) orb.Bound
	// PositionToTileXY returns the tile containing c, or false when c is
	// outside the scheme's rectangle.
	PositionToTileXY(c Cartographic, level int) (x, y int, ok bool)
}

// GeographicTilingScheme tiles longitude and latitude directly. By default
// level zero has two tiles, west and east of the prime meridian.
type GeographicTilingScheme struct {
	ellipsoid  Ellipsoid
	rectangle  Rectangle
	projection GeographicProjection
	rootX      int
	rootY      int
}

// NewGeographicTilingScheme returns the default 2x1 geographic scheme.
func NewGeographicTilingScheme(e Ellipsoid) *GeographicTilingScheme {
	return NewGeographicTilingSchemeWith(e, MaxValue, 2, 1)
}

// NewGeographicTilingSchemeWith returns a geographic scheme over rect with
// the given number of level-zero tiles.
func NewGeographicTilingSchemeWith(e Ellipsoid, rect Rectangle, rootX, rootY int) *GeographicTilingScheme {
	return &GeographicTilingScheme{
		ellipsoid:  e,
		rectangle:  rect,
		projection: NewGeographicProjection(e),
		rootX:      max(rootX, 1),
		rootY:      max(rootY, 1),
	}
}

func (s *GeographicTilingScheme) Ellipsoid() Ellipsoid                { return s.ellipsoid }
func (s *GeographicTilingScheme) Rectangle() Rectangle                { return s.rectangle }
func (s *GeographicTilingScheme) Projection() MapProjection           { return s.projection }
func (s *GeographicTilingScheme) NumberOfXTilesAtLevel(level int) int { return s.rootX << level }
func (s *GeographicTilingScheme) NumberOfYTilesAtLevel(level int) int { return s.rootY << level }

func (s *GeographicTilingScheme) TileXYToRectangle(x, y, level int) Rectangle {
	r := s.rectangle
	xTileWidth := r.Width() / float64(s.NumberOfXTilesAtLevel(level))
	yTileHeight := r.Height() / float64(s.NumberOfYTilesAtLevel(level))
	return Rectangle{
		West:  float64(x)*xTileWidth + r.West,
		East:  float64(x+1)*xTileWidth + r.West,
		North: r.North - float64(y)*yTileHeight,
		South: r.North - float64(y+1)*yTileHeight,
	}
}

func (s *GeographicTilingScheme) RectangleToNativeRectangle(r Rectangle) orb.Bound {
	return orb.Bound{
		Min: orb.Point{ToDegrees(r.West), ToDegrees(r.South)},
		Max: orb.Point{ToDegrees(r.East), ToDegrees(r.North)},
	}
}

func (s *GeographicTilingScheme) PositionToTileXY(c Cartographic, level int) (int, int, bool) {
	r := s.rectangle
	if !r.Contains(c) {
		return 0, 0, false
	}
	xTiles := s.NumberOfXTilesAtLevel(level)
	yTiles := s.NumberOfYTilesAtLevel(level)
	xTileWidth := r.Width() / float64(xTiles)
	yTileHeight := r.Height() / float64(yTiles)

	lon := c.Longitude
	if r.East < r.West {
		lon += TwoPi
	}
	x := min(int(math.Floor((lon-r.West)/xTileWidth)), xTiles-1)
	y := min(int(math.Floor((r.North-c.Latitude)/yTileHeight)), yTiles-1)
	return max(x, 0), max(y, 0), true
}

// WebMercatorTilingScheme is the single-root-tile Web Mercator pyramid
// used by XYZ tile servers. Tile bounds come from orb/maptile.
type WebMercatorTilingScheme struct {
	ellipsoid  Ellipsoid
	rectangle  Rectangle
	projection WebMercatorProjection
}

// NewWebMercatorTilingScheme returns the standard Web Mercator scheme.
func NewWebMercatorTilingScheme(e Ellipsoid) *WebMercatorTilingScheme {
	return &WebMercatorTilingScheme{
		ellipsoid: e,
		rectangle: Rectangle{
			West:  -math.Pi,
			South: -MaximumMercatorLatitude,
			East:  math.Pi,
			North: MaximumMercatorLatitude,
		},
		projection: NewWebMercatorProjection(e),
	}
}

func (s *WebMercatorTilingScheme) Ellipsoid() Ellipsoid                { return s.ellipsoid }
func (s *WebMercatorTilingScheme) Rectangle() Rectangle                { return s.rectangle }
func (s *WebMercatorTilingScheme) Projection() MapProjection           { return s.projection }
func (s *WebMercatorTilingScheme) NumberOfXTilesAtLevel(level int) int { return 1 << level }
func (s *WebMercatorTilingScheme) NumberOfYTilesAtLevel(level int) int { return 1 << level }

func (s *WebMercatorTilingScheme) TileXYToRectangle(x, y, level int) Rectangle {
	b := maptile.New(uint32(x), uint32(y), maptile.Zoom(level)).Bound()
	r := RectangleFromBound(b)
	// Keep the outer edges exact so that tiles line up with the scheme.
	if x == 0 {
		r.West = s.rectangle.West
	}
	if x == s.NumberOfXTilesAtLevel(level)-1 {
		r.East = s.rectangle.East
	}
	if y == 0 {
		r.North = s.rectangle.North
	}
	if y == s.NumberOfYTilesAtLevel(level)-1 {
		r.South = s.rectangle.South
	}
	return r
}

func (s *WebMercatorTilingScheme) RectangleToNativeRectangle(r Rectangle) orb.Bound {
	sw := s.projection.Project(r.Southwest())
	ne := s.projection.Project(r.Northeast())
	return orb.Bound{Min: orb.Point{sw[0], sw[1]}, Max: orb.Point{ne[0], ne[1]}}
}

func (s *WebMercatorTilingScheme) PositionToTileXY(c Cartographic, level int) (int, int, bool) {
	if !s.rectangle.Contains(c) {
		return 0, 0, false
	}
	t := maptile.At(orb.Point{ToDegrees(c.Longitude), ToDegrees(c.Latitude)}, maptile.Zoom(level))
	n := s.NumberOfXTilesAtLevel(level)
	x := min(int(t.X), n-1)
	y := min(int(t.Y), n-1)
	return x, y, true
}
