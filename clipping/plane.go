package clipping

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

// Plane is a half-space in the collection's model coordinates. Points with
// Normal·p + Distance > 0 are on the kept side.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlane returns a plane with a normalized normal.
func NewPlane(normal mgl64.Vec3, distance float64) Plane {
	return Plane{Normal: normal.Normalize(), Distance: distance}
}

// Transform maps the plane into world coordinates with m.
func (p Plane) Transform(m mgl64.Mat4) geo.Plane {
	n := m.Mul4x1(p.Normal.Vec4(0)).Vec3().Normalize()
	onPlane := p.Normal.Mul(-p.Distance)
	point := m.Mul4x1(onPlane.Vec4(1)).Vec3()
	return geo.PlaneFromPointNormal(point, n)
}
