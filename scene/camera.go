package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

// Default perspective parameters.
const (
	DefaultFovy = math.Pi / 3
	DefaultNear = 1.0
	DefaultFar  = 5e8
)

// Camera is a view into the scene. In 3D, Position and the axes are in
// Earth-fixed coordinates. In 2D and Columbus view they are in map
// projection coordinates with height along +Z.
type Camera struct {
	Position  mgl64.Vec3
	Direction mgl64.Vec3
	Up        mgl64.Vec3

	// PositionCartographic is the geodetic position of the camera. The
	// Look helpers keep it in sync.
	PositionCartographic geo.Cartographic

	Frustum      geo.PerspectiveFrustum
	Orthographic geo.OrthographicFrustum
}

// NewCamera returns a camera for a width x height viewport looking at the
// origin from +X.
func NewCamera(width, height int) *Camera {
	aspect := 1.0
	if width > 0 && height > 0 {
		aspect = float64(width) / float64(height)
	}
	return &Camera{
		Position:  mgl64.Vec3{1, 0, 0},
		Direction: mgl64.Vec3{-1, 0, 0},
		Up:        mgl64.Vec3{0, 0, 1},
		Frustum: geo.PerspectiveFrustum{
			Fovy:   DefaultFovy,
			Aspect: aspect,
			Near:   DefaultNear,
			Far:    DefaultFar,
		},
	}
}

// LookDown places the camera at c and points it straight at the
// ellipsoid with north up.
func (c *Camera) LookDown(e geo.Ellipsoid, at geo.Cartographic) {
	normal := e.GeodeticSurfaceNormalCartographic(at)
	east := mgl64.Vec3{-math.Sin(at.Longitude), math.Cos(at.Longitude), 0}

	c.Position = e.CartographicToCartesian(at)
	c.Direction = normal.Mul(-1)
	c.Up = normal.Cross(east).Normalize()
	c.PositionCartographic = at
}

// LookAt places the camera at eye and points it at target, keeping the
// local vertical as the up hint.
func (c *Camera) LookAt(e geo.Ellipsoid, eye geo.Cartographic, target mgl64.Vec3) {
	c.Position = e.CartographicToCartesian(eye)
	c.Direction = target.Sub(c.Position).Normalize()
	up := e.GeodeticSurfaceNormalCartographic(eye)
	right := c.Direction.Cross(up)
	if right.Len() < 1e-12 {
		// Looking straight down: fall back to north.
		right = c.Direction.Cross(mgl64.Vec3{0, 0, 1})
	}
	c.Up = right.Normalize().Cross(c.Direction).Normalize()
	c.PositionCartographic = eye
}

// LookDownProjected places the camera above at in projected coordinates
// for 2D and Columbus view. The orthographic frustum is sized to show what
// the perspective frustum would show from the same height.
func (c *Camera) LookDownProjected(proj geo.MapProjection, at geo.Cartographic) {
	p := proj.Project(at)
	c.Position = mgl64.Vec3{p[0], p[1], at.Height}
	c.Direction = mgl64.Vec3{0, 0, -1}
	c.Up = mgl64.Vec3{0, 1, 0}
	c.PositionCartographic = at

	halfHeight := at.Height * math.Tan(0.5*c.Frustum.Fovy)
	halfWidth := halfHeight * c.Frustum.Aspect
	c.Orthographic = geo.OrthographicFrustum{
		Left:   -halfWidth,
		Right:  halfWidth,
		Bottom: -halfHeight,
		Top:    halfHeight,
		Near:   c.Frustum.Near,
		Far:    c.Frustum.Far,
	}
}

// CullingVolume returns the view volume for mode.
func (c *Camera) CullingVolume(mode Mode) geo.CullingVolume {
	if mode == Mode2D {
		return c.Orthographic.ComputeCullingVolume(c.Position, c.Direction, c.Up)
	}
	return c.Frustum.ComputeCullingVolume(c.Position, c.Direction, c.Up)
}
