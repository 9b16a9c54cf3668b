package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PerspectiveFrustum is a symmetric perspective view volume.
type PerspectiveFrustum struct {
	Fovy   float64 // vertical field of view, radians
	Aspect float64 // width / height
	Near   float64
	Far    float64
}

// SSEDenominator is the factor relating geometric error at unit distance
// to screen pixels: 2·tan(fovy/2).
func (f PerspectiveFrustum) SSEDenominator() float64 {
	return 2 * math.Tan(0.5*f.Fovy)
}

// ComputeCullingVolume returns the six planes of the frustum for a camera at
// position looking along direction with the given up vector.
func (f PerspectiveFrustum) ComputeCullingVolume(position, direction, up mgl64.Vec3) CullingVolume {
	direction = direction.Normalize()
	right := direction.Cross(up).Normalize()
	up = right.Cross(direction).Normalize()

	t := f.Near * math.Tan(0.5*f.Fovy)
	b := -t
	r := f.Aspect * t
	l := -r

	nearCenter := position.Add(direction.Mul(f.Near))
	farCenter := position.Add(direction.Mul(f.Far))

	side := func(edge mgl64.Vec3, cross func(mgl64.Vec3) mgl64.Vec3) Plane {
		n := cross(edge.Sub(position).Normalize()).Normalize()
		return Plane{Normal: n, Distance: -n.Dot(position)}
	}

	planes := []Plane{
		side(nearCenter.Add(right.Mul(l)), func(v mgl64.Vec3) mgl64.Vec3 { return v.Cross(up) }),
		side(nearCenter.Add(right.Mul(r)), func(v mgl64.Vec3) mgl64.Vec3 { return up.Cross(v) }),
		side(nearCenter.Add(up.Mul(b)), func(v mgl64.Vec3) mgl64.Vec3 { return right.Cross(v) }),
		side(nearCenter.Add(up.Mul(t)), func(v mgl64.Vec3) mgl64.Vec3 { return v.Cross(right) }),
		{Normal: direction, Distance: -direction.Dot(nearCenter)},
		{Normal: direction.Mul(-1), Distance: direction.Dot(farCenter)},
	}
	return CullingVolume{Planes: planes}
}

// OrthographicFrustum is an off-center orthographic view volume, used for
// the 2D scene mode.
type OrthographicFrustum struct {
	Left, Right, Bottom, Top float64
	Near, Far                float64
}

// PixelSize returns the size of one pixel in world units for a drawing
// buffer of the given dimensions.
func (f OrthographicFrustum) PixelSize(width, height int) float64 {
	return math.Max(f.Top-f.Bottom, f.Right-f.Left) / float64(max(width, height, 1))
}

// ComputeCullingVolume returns the six planes of the box.
func (f OrthographicFrustum) ComputeCullingVolume(position, direction, up mgl64.Vec3) CullingVolume {
	direction = direction.Normalize()
	right := direction.Cross(up).Normalize()
	up = right.Cross(direction).Normalize()

	nearCenter := position.Add(direction.Mul(f.Near))
	farCenter := position.Add(direction.Mul(f.Far))

	at := func(n mgl64.Vec3, p mgl64.Vec3) Plane { return Plane{Normal: n, Distance: -n.Dot(p)} }
	return CullingVolume{Planes: []Plane{
		at(right, position.Add(right.Mul(f.Left))),
		at(right.Mul(-1), position.Add(right.Mul(f.Right))),
		at(up, position.Add(up.Mul(f.Bottom))),
		at(up.Mul(-1), position.Add(up.Mul(f.Top))),
		at(direction, nearCenter),
		at(direction.Mul(-1), farCenter),
	}}
}
