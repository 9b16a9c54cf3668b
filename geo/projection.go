package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaximumMercatorLatitude is the latitude at which Web Mercator becomes
// square, about 85.05113 degrees.
var MaximumMercatorLatitude = MercatorAngleToGeodeticLatitude(math.Pi)

// MapProjection maps geodetic positions to a planar (x, y, height) frame.
type MapProjection interface {
	Ellipsoid() Ellipsoid
	Project(c Cartographic) mgl64.Vec3
	Unproject(v mgl64.Vec3) Cartographic
}

// GeographicProjection is the equirectangular projection: x and y are
// longitude and latitude scaled by the semimajor axis.
type GeographicProjection struct {
	ellipsoid Ellipsoid
}

// NewGeographicProjection returns a projection onto e.
func NewGeographicProjection(e Ellipsoid) GeographicProjection {
	return GeographicProjection{ellipsoid: e}
}

func (p GeographicProjection) Ellipsoid() Ellipsoid { return p.ellipsoid }

func (p GeographicProjection) Project(c Cartographic) mgl64.Vec3 {
	a := p.ellipsoid.MaximumRadius()
	return mgl64.Vec3{c.Longitude * a, c.Latitude * a, c.Height}
}

func (p GeographicProjection) Unproject(v mgl64.Vec3) Cartographic {
	inv := 1 / p.ellipsoid.MaximumRadius()
	return Cartographic{Longitude: v[0] * inv, Latitude: v[1] * inv, Height: v[2]}
}

// WebMercatorProjection is the spherical Mercator projection used by most
// web map tile services.
type WebMercatorProjection struct {
	ellipsoid Ellipsoid
}

// NewWebMercatorProjection returns a Web Mercator projection onto e.
func NewWebMercatorProjection(e Ellipsoid) WebMercatorProjection {
	return WebMercatorProjection{ellipsoid: e}
}

func (p WebMercatorProjection) Ellipsoid() Ellipsoid { return p.ellipsoid }

func (p WebMercatorProjection) Project(c Cartographic) mgl64.Vec3 {
	a := p.ellipsoid.MaximumRadius()
	return mgl64.Vec3{c.Longitude * a, GeodeticLatitudeToMercatorAngle(c.Latitude) * a, c.Height}
}

func (p WebMercatorProjection) Unproject(v mgl64.Vec3) Cartographic {
	inv := 1 / p.ellipsoid.MaximumRadius()
	return Cartographic{
		Longitude: v[0] * inv,
		Latitude:  MercatorAngleToGeodeticLatitude(v[1] * inv),
		Height:    v[2],
	}
}

// MercatorAngleToGeodeticLatitude converts a Mercator angle in [-Pi, Pi]
// to a latitude.
func MercatorAngleToGeodeticLatitude(angle float64) float64 {
	return PiOver2 - 2*math.Atan(math.Exp(-angle))
}

// GeodeticLatitudeToMercatorAngle converts a latitude to a Mercator angle,
// clamping to the Web Mercator limits.
func GeodeticLatitudeToMercatorAngle(lat float64) float64 {
	if lat > MaximumMercatorLatitude {
		lat = MaximumMercatorLatitude
	} else if lat < -MaximumMercatorLatitude {
		lat = -MaximumMercatorLatitude
	}
	s := math.Sin(lat)
	return 0.5 * math.Log((1+s)/(1-s))
}
