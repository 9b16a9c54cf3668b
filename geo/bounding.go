package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Intersect classifies a volume against a plane or a set of planes.
type Intersect int

const (
	Outside      Intersect = -1
	Intersecting Intersect = 0
	Inside       Intersect = 1
)

func (i Intersect) String() string {
	switch i {
	case Outside:
		return "Outside"
	case Inside:
		return "Inside"
	default:
		return "Intersecting"
	}
}

// Plane is the set of points p where Normal·p + Distance = 0. The normal
// side is the inside.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// PlaneFromPointNormal builds a plane through point with the given normal.
func PlaneFromPointNormal(point, normal mgl64.Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Distance: -n.Dot(point)}
}

// SignedDistance returns the distance of p from the plane, positive on the
// normal side.
func (pl Plane) SignedDistance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) + pl.Distance
}

// Vec4 packs the plane as (normal, distance).
func (pl Plane) Vec4() mgl64.Vec4 {
	return mgl64.Vec4{pl.Normal[0], pl.Normal[1], pl.Normal[2], pl.Distance}
}

// BoundingSphere is a sphere enclosing a tile's geometry.
type BoundingSphere struct {
	Center mgl64.Vec3
	Radius float64
}

// BoundingSphereFromPoints returns a sphere centered on the points' axis
// aligned bounds that encloses all of them.
func BoundingSphereFromPoints(points []mgl64.Vec3) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for i := range 3 {
			lo[i] = math.Min(lo[i], p[i])
			hi[i] = math.Max(hi[i], p[i])
		}
	}
	center := lo.Add(hi).Mul(0.5)
	radius := 0.0
	for _, p := range points {
		radius = math.Max(radius, p.Sub(center).Len())
	}
	return BoundingSphere{Center: center, Radius: radius}
}

// BoundingSphereFromRectangle3D encloses the region of the ellipsoid
// between minHeight and maxHeight over r.
func BoundingSphereFromRectangle3D(r Rectangle, e Ellipsoid, minHeight, maxHeight float64) BoundingSphere {
	return BoundingSphereFromPoints(SampleRectangle(r, e, []float64{minHeight, maxHeight}, 3))
}

// BoundingSphereFromRectangle2D encloses the projected rectangle, used in
// 2D and Columbus view.
func BoundingSphereFromRectangle2D(r Rectangle, proj MapProjection, minHeight, maxHeight float64) BoundingSphere {
	sw := proj.Project(Cartographic{Longitude: r.West, Latitude: r.South, Height: minHeight})
	ne := proj.Project(Cartographic{Longitude: r.West + r.Width(), Latitude: r.North, Height: maxHeight})
	center := sw.Add(ne).Mul(0.5)
	return BoundingSphere{Center: center, Radius: ne.Sub(center).Len()}
}

// SampleRectangle returns an n x n grid of positions over r at each of the
// given heights. n is at least 2.
func SampleRectangle(r Rectangle, e Ellipsoid, heights []float64, n int) []mgl64.Vec3 {
	n = max(n, 2)
	width := r.Width()
	out := make([]mgl64.Vec3, 0, n*n*len(heights))
	for _, h := range heights {
		for j := range n {
			lat := r.South + r.Height()*float64(j)/float64(n-1)
			for i := range n {
				lon := r.West + width*float64(i)/float64(n-1)
				out = append(out, e.CartographicToCartesian(Cartographic{Longitude: lon, Latitude: lat, Height: h}))
			}
		}
	}
	return out
}

// IntersectPlane classifies the sphere against pl.
func (s BoundingSphere) IntersectPlane(pl Plane) Intersect {
	d := pl.SignedDistance(s.Center)
	if d < -s.Radius {
		return Outside
	}
	if d < s.Radius {
		return Intersecting
	}
	return Inside
}

// DistanceTo returns the distance from p to the sphere surface, or zero if
// p is inside.
func (s BoundingSphere) DistanceTo(p mgl64.Vec3) float64 {
	return math.Max(0, p.Sub(s.Center).Len()-s.Radius)
}

// CullingVolume is a set of inward-facing planes, typically a view frustum.
type CullingVolume struct {
	Planes []Plane
}

// ComputeVisibility classifies s against every plane. Any Outside plane
// makes the sphere Outside.
func (cv CullingVolume) ComputeVisibility(s BoundingSphere) Intersect {
	intersecting := false
	for _, pl := range cv.Planes {
		switch s.IntersectPlane(pl) {
		case Outside:
			return Outside
		case Intersecting:
			intersecting = true
		}
	}
	if intersecting {
		return Intersecting
	}
	return Inside
}
