package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Rectangle is a geographic extent in radians. East may be less than West,
// in which case the rectangle crosses the antimeridian.
type Rectangle struct {
	West  float64
	South float64
	East  float64
	North float64
}

// MaxValue is the rectangle covering the whole ellipsoid.
var MaxValue = Rectangle{West: -math.Pi, South: -PiOver2, East: math.Pi, North: PiOver2}

// RectangleFromDegrees builds a rectangle from degrees.
func RectangleFromDegrees(west, south, east, north float64) Rectangle {
	return Rectangle{
		West:  ToRadians(west),
		South: ToRadians(south),
		East:  ToRadians(east),
		North: ToRadians(north),
	}
}

// RectangleFromBound converts an orb bound in degrees. Bounds never wrap.
func RectangleFromBound(b orb.Bound) Rectangle {
	return RectangleFromDegrees(b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
}

// Bound returns the rectangle as an orb bound in degrees. A rectangle that
// crosses the antimeridian is returned with its east edge shifted past 180.
func (r Rectangle) Bound() orb.Bound {
	east := r.East
	if east < r.West {
		east += TwoPi
	}
	return orb.Bound{
		Min: orb.Point{ToDegrees(r.West), ToDegrees(r.South)},
		Max: orb.Point{ToDegrees(east), ToDegrees(r.North)},
	}
}

// Width returns the longitudinal extent, accounting for wrap.
func (r Rectangle) Width() float64 {
	east := r.East
	if east < r.West {
		east += TwoPi
	}
	return east - r.West
}

// Height returns the latitudinal extent.
func (r Rectangle) Height() float64 { return r.North - r.South }

// Center returns the midpoint of the rectangle at height zero.
func (r Rectangle) Center() Cartographic {
	east := r.East
	if east < r.West {
		east += TwoPi
	}
	return Cartographic{
		Longitude: NegativePiToPi((r.West + east) * 0.5),
		Latitude:  (r.South + r.North) * 0.5,
	}
}

// Southwest, Southeast, Northwest and Northeast return the corners.
func (r Rectangle) Southwest() Cartographic {
	return Cartographic{Longitude: r.West, Latitude: r.South}
}
func (r Rectangle) Southeast() Cartographic {
	return Cartographic{Longitude: r.East, Latitude: r.South}
}
func (r Rectangle) Northwest() Cartographic {
	return Cartographic{Longitude: r.West, Latitude: r.North}
}
func (r Rectangle) Northeast() Cartographic {
	return Cartographic{Longitude: r.East, Latitude: r.North}
}

// Contains reports whether c lies inside the rectangle, edges included.
func (r Rectangle) Contains(c Cartographic) bool {
	lon := c.Longitude
	east := r.East
	if east < r.West {
		east += TwoPi
		if lon < 0 {
			lon += TwoPi
		}
	}
	return (lon > r.West || EqualsEpsilon(lon, r.West, Epsilon14, Epsilon14)) &&
		(lon < east || EqualsEpsilon(lon, east, Epsilon14, Epsilon14)) &&
		c.Latitude >= r.South && c.Latitude <= r.North
}

// Intersection returns the overlap of r and other. Either rectangle may
// cross the antimeridian. The boolean is false when they do not overlap.
func (r Rectangle) Intersection(other Rectangle) (Rectangle, bool) {
	rEast, rWest := r.East, r.West
	oEast, oWest := other.East, other.West

	if rEast < rWest && oEast > 0 {
		rEast += TwoPi
	} else if oEast < oWest && rEast > 0 {
		oEast += TwoPi
	}
	if rEast < rWest && oWest < 0 {
		oWest += TwoPi
	} else if oEast < oWest && rWest < 0 {
		rWest += TwoPi
	}

	west := NegativePiToPi(math.Max(rWest, oWest))
	east := NegativePiToPi(math.Min(rEast, oEast))
	if (r.West < r.East || other.West < other.East) && east <= west {
		return Rectangle{}, false
	}

	south := math.Max(r.South, other.South)
	north := math.Min(r.North, other.North)
	if south >= north {
		return Rectangle{}, false
	}
	return Rectangle{West: west, South: south, East: east, North: north}, true
}

// SimpleIntersection is Intersection for rectangles that do not cross the
// antimeridian. Touching edges do not count as overlap.
func (r Rectangle) SimpleIntersection(other Rectangle) (Rectangle, bool) {
	west := math.Max(r.West, other.West)
	south := math.Max(r.South, other.South)
	east := math.Min(r.East, other.East)
	north := math.Min(r.North, other.North)
	if south >= north || west >= east {
		return Rectangle{}, false
	}
	return Rectangle{West: west, South: south, East: east, North: north}, true
}

// Equals compares two rectangles within an absolute epsilon.
func (r Rectangle) Equals(other Rectangle, epsilon float64) bool {
	return math.Abs(r.West-other.West) <= epsilon &&
		math.Abs(r.South-other.South) <= epsilon &&
		math.Abs(r.East-other.East) <= epsilon &&
		math.Abs(r.North-other.North) <= epsilon
}

func (r Rectangle) String() string {
	return fmt.Sprintf("[%.4f, %.4f, %.4f, %.4f]", ToDegrees(r.West), ToDegrees(r.South), ToDegrees(r.East), ToDegrees(r.North))
}
