package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ellipsoid is a triaxial ellipsoid centered at the origin.
type Ellipsoid struct {
	Radii               mgl64.Vec3
	RadiiSquared        mgl64.Vec3
	OneOverRadii        mgl64.Vec3
	OneOverRadiiSquared mgl64.Vec3
}

// WGS84 is the World Geodetic System 1984 ellipsoid.
var WGS84 = NewEllipsoid(6378137.0, 6378137.0, 6356752.3142451793)

// NewEllipsoid creates an ellipsoid with the given radii in meters.
func NewEllipsoid(x, y, z float64) Ellipsoid {
	return Ellipsoid{
		Radii:               mgl64.Vec3{x, y, z},
		RadiiSquared:        mgl64.Vec3{x * x, y * y, z * z},
		OneOverRadii:        mgl64.Vec3{1 / x, 1 / y, 1 / z},
		OneOverRadiiSquared: mgl64.Vec3{1 / (x * x), 1 / (y * y), 1 / (z * z)},
	}
}

// MaximumRadius returns the largest radius.
func (e Ellipsoid) MaximumRadius() float64 {
	return math.Max(e.Radii[0], math.Max(e.Radii[1], e.Radii[2]))
}

// MinimumRadius returns the smallest radius.
func (e Ellipsoid) MinimumRadius() float64 {
	return math.Min(e.Radii[0], math.Min(e.Radii[1], e.Radii[2]))
}

// GeodeticSurfaceNormalCartographic returns the surface normal at c.
func (e Ellipsoid) GeodeticSurfaceNormalCartographic(c Cartographic) mgl64.Vec3 {
	cosLat := math.Cos(c.Latitude)
	return mgl64.Vec3{
		cosLat * math.Cos(c.Longitude),
		cosLat * math.Sin(c.Longitude),
		math.Sin(c.Latitude),
	}.Normalize()
}

// GeodeticSurfaceNormal returns the surface normal at a Cartesian position
// on the surface.
func (e Ellipsoid) GeodeticSurfaceNormal(p mgl64.Vec3) mgl64.Vec3 {
	return mulComponents(p, e.OneOverRadiiSquared).Normalize()
}

// CartographicToCartesian converts a geodetic position to ECEF.
func (e Ellipsoid) CartographicToCartesian(c Cartographic) mgl64.Vec3 {
	n := e.GeodeticSurfaceNormalCartographic(c)
	k := mulComponents(e.RadiiSquared, n)
	gamma := math.Sqrt(n.Dot(k))
	k = k.Mul(1 / gamma)
	return k.Add(n.Mul(c.Height))
}

// CartesianToCartographic converts an ECEF position to geodetic. It returns
// false for positions too close to the center to project.
func (e Ellipsoid) CartesianToCartographic(p mgl64.Vec3) (Cartographic, bool) {
	surface, ok := e.ScaleToGeodeticSurface(p)
	if !ok {
		return Cartographic{}, false
	}
	n := e.GeodeticSurfaceNormal(surface)
	h := p.Sub(surface)
	height := h.Len()
	if h.Dot(p) < 0 {
		height = -height
	}
	return Cartographic{
		Longitude: math.Atan2(n[1], n[0]),
		Latitude:  math.Asin(Clamp(n[2], -1, 1)),
		Height:    height,
	}, true
}

// ScaleToGeodeticSurface projects p along the geodetic normal onto the
// surface using Newton iteration.
func (e Ellipsoid) ScaleToGeodeticSurface(p mgl64.Vec3) (mgl64.Vec3, bool) {
	const centerToleranceSquared = Epsilon1

	px, py, pz := p[0], p[1], p[2]
	ox, oy, oz := e.OneOverRadii[0], e.OneOverRadii[1], e.OneOverRadii[2]

	x2 := px * px * ox * ox
	y2 := py * py * oy * oy
	z2 := pz * pz * oz * oz

	squaredNorm := x2 + y2 + z2
	ratio := math.Sqrt(1 / squaredNorm)
	intersection := p.Mul(ratio)

	if squaredNorm < centerToleranceSquared {
		if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
			return mgl64.Vec3{}, false
		}
		return intersection, true
	}

	rx, ry, rz := e.OneOverRadiiSquared[0], e.OneOverRadiiSquared[1], e.OneOverRadiiSquared[2]
	gradient := mgl64.Vec3{intersection[0] * rx * 2, intersection[1] * ry * 2, intersection[2] * rz * 2}
	lambda := (1 - ratio) * p.Len() / (0.5 * gradient.Len())
	correction := 0.0

	var xm, ym, zm float64
	for range 64 {
		lambda -= correction

		xm = 1 / (1 + lambda*rx)
		ym = 1 / (1 + lambda*ry)
		zm = 1 / (1 + lambda*rz)

		xm2, ym2, zm2 := xm*xm, ym*ym, zm*zm
		fn := x2*xm2 + y2*ym2 + z2*zm2 - 1
		if math.Abs(fn) <= Epsilon12 {
			break
		}
		denominator := x2*xm2*xm*rx + y2*ym2*ym*ry + z2*zm2*zm*rz
		correction = fn / (-2 * denominator)
	}
	return mgl64.Vec3{px * xm, py * ym, pz * zm}, true
}

// TransformPositionToScaledSpace divides p by the radii, mapping the
// ellipsoid to the unit sphere.
func (e Ellipsoid) TransformPositionToScaledSpace(p mgl64.Vec3) mgl64.Vec3 {
	return mulComponents(p, e.OneOverRadii)
}

func mulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
