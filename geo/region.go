package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BoundingRegion bounds a tile by its rectangle and height range. It gives
// a tighter camera distance than a bounding sphere, which matters for
// screen-space error on large tiles.
type BoundingRegion struct {
	Rectangle     Rectangle
	MinimumHeight float64
	MaximumHeight float64

	southwestCorner mgl64.Vec3
	northeastCorner mgl64.Vec3
	westNormal      mgl64.Vec3
	eastNormal      mgl64.Vec3
	southNormal     mgl64.Vec3
	northNormal     mgl64.Vec3
}

// NewBoundingRegion builds the edge planes of r on e.
func NewBoundingRegion(r Rectangle, e Ellipsoid, minHeight, maxHeight float64) *BoundingRegion {
	b := &BoundingRegion{Rectangle: r, MinimumHeight: minHeight, MaximumHeight: maxHeight}
	b.computeBox(e)
	return b
}

func (b *BoundingRegion) computeBox(e Ellipsoid) {
	r := b.Rectangle
	unitZ := mgl64.Vec3{0, 0, 1}
	midLat := (r.South + r.North) * 0.5

	b.southwestCorner = e.CartographicToCartesian(r.Southwest())
	b.northeastCorner = e.CartographicToCartesian(r.Northeast())

	westMid := e.CartographicToCartesian(Cartographic{Longitude: r.West, Latitude: midLat})
	b.westNormal = westMid.Cross(unitZ).Normalize()
	eastMid := e.CartographicToCartesian(Cartographic{Longitude: r.East, Latitude: midLat})
	b.eastNormal = unitZ.Cross(eastMid).Normalize()

	westVector := westMid.Sub(eastMid)
	eastWest := westVector.Normalize()

	// Edge planes of tiles away from the equator are built from the edge
	// closest to it so they do not cut through the tile.
	var southSurfaceNormal mgl64.Vec3
	if r.South > 0 {
		center := e.CartographicToCartesian(Cartographic{Longitude: (r.West + r.East) * 0.5, Latitude: r.South})
		westPlane := PlaneFromPointNormal(b.southwestCorner, b.westNormal)
		if p, ok := rayPlane(center, eastWest, westPlane); ok {
			b.southwestCorner = p
		}
		southSurfaceNormal = e.GeodeticSurfaceNormal(center)
	} else {
		southSurfaceNormal = e.GeodeticSurfaceNormalCartographic(r.Southeast())
	}
	b.southNormal = southSurfaceNormal.Cross(westVector).Normalize()

	var northSurfaceNormal mgl64.Vec3
	if r.North < 0 {
		center := e.CartographicToCartesian(Cartographic{Longitude: (r.West + r.East) * 0.5, Latitude: r.North})
		eastPlane := PlaneFromPointNormal(b.northeastCorner, b.eastNormal)
		if p, ok := rayPlane(center, eastWest.Mul(-1), eastPlane); ok {
			b.northeastCorner = p
		}
		northSurfaceNormal = e.GeodeticSurfaceNormal(center)
	} else {
		northSurfaceNormal = e.GeodeticSurfaceNormalCartographic(r.Northwest())
	}
	b.northNormal = westVector.Cross(northSurfaceNormal).Normalize()
}

// rayPlane intersects the ray origin + t*dir (t >= 0) with pl.
func rayPlane(origin, dir mgl64.Vec3, pl Plane) (mgl64.Vec3, bool) {
	denom := pl.Normal.Dot(dir)
	if math.Abs(denom) < Epsilon14 {
		return mgl64.Vec3{}, false
	}
	t := (-pl.Distance - pl.Normal.Dot(origin)) / denom
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return origin.Add(dir.Mul(t)), true
}

// DistanceToCamera returns the distance from a camera at position (Earth
// fixed) and cartographic c to the region. It is zero inside.
func (b *BoundingRegion) DistanceToCamera(position mgl64.Vec3, c Cartographic) float64 {
	var result float64
	if !b.Rectangle.Contains(c) {
		fromSW := position.Sub(b.southwestCorner)
		toWest := fromSW.Dot(b.westNormal)
		toSouth := fromSW.Dot(b.southNormal)

		fromNE := position.Sub(b.northeastCorner)
		toEast := fromNE.Dot(b.eastNormal)
		toNorth := fromNE.Dot(b.northNormal)

		if toWest > 0 {
			result += toWest * toWest
		} else if toEast > 0 {
			result += toEast * toEast
		}
		if toSouth > 0 {
			result += toSouth * toSouth
		} else if toNorth > 0 {
			result += toNorth * toNorth
		}
	}
	result += b.heightTerm(c.Height)
	return math.Sqrt(result)
}

// DistanceToCameraProjected is DistanceToCamera for 2D and Columbus view.
// position is in proj's (x, y, height) frame.
func (b *BoundingRegion) DistanceToCameraProjected(proj MapProjection, position mgl64.Vec3) float64 {
	r := b.Rectangle
	sw := proj.Project(r.Southwest())
	ne := proj.Project(Cartographic{Longitude: r.West + r.Width(), Latitude: r.North})

	var result float64
	switch {
	case position[0] < sw[0]:
		result += (sw[0] - position[0]) * (sw[0] - position[0])
	case position[0] > ne[0]:
		result += (position[0] - ne[0]) * (position[0] - ne[0])
	}
	switch {
	case position[1] < sw[1]:
		result += (sw[1] - position[1]) * (sw[1] - position[1])
	case position[1] > ne[1]:
		result += (position[1] - ne[1]) * (position[1] - ne[1])
	}
	result += b.heightTerm(position[2])
	return math.Sqrt(result)
}

func (b *BoundingRegion) heightTerm(h float64) float64 {
	switch {
	case h > b.MaximumHeight:
		d := h - b.MaximumHeight
		return d * d
	case h < b.MinimumHeight:
		d := b.MinimumHeight - h
		return d * d
	}
	return 0
}
