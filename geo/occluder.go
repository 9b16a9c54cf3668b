package geo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EllipsoidalOccluder decides whether points are hidden behind the
// ellipsoid's horizon as seen from a camera position.
type EllipsoidalOccluder struct {
	ellipsoid                Ellipsoid
	cameraPosition           mgl64.Vec3
	cameraScaledSpace        mgl64.Vec3
	distanceToLimbSquaredSSP float64
}

// NewEllipsoidalOccluder creates an occluder for e.
func NewEllipsoidalOccluder(e Ellipsoid) *EllipsoidalOccluder {
	return &EllipsoidalOccluder{ellipsoid: e}
}

// Ellipsoid returns the occluding ellipsoid.
func (o *EllipsoidalOccluder) Ellipsoid() Ellipsoid { return o.ellipsoid }

// SetCameraPosition moves the viewer.
func (o *EllipsoidalOccluder) SetCameraPosition(p mgl64.Vec3) {
	o.cameraPosition = p
	o.cameraScaledSpace = o.ellipsoid.TransformPositionToScaledSpace(p)
	o.distanceToLimbSquaredSSP = o.cameraScaledSpace.LenSqr() - 1
}

// IsScaledSpacePointVisible reports whether a point given in the
// ellipsoid's scaled space is above the horizon.
func (o *EllipsoidalOccluder) IsScaledSpacePointVisible(occludee mgl64.Vec3) bool {
	cv := o.cameraScaledSpace
	vhMagnitudeSquared := o.distanceToLimbSquaredSSP
	vt := occludee.Sub(cv)
	vtDotVc := -vt.Dot(cv)

	var occluded bool
	if vhMagnitudeSquared < 0 {
		occluded = vtDotVc > 0
	} else {
		occluded = vtDotVc > vhMagnitudeSquared &&
			vtDotVc*vtDotVc/vt.LenSqr() > vhMagnitudeSquared
	}
	return !occluded
}

// ComputeHorizonCullingPoint returns a scaled-space point along
// directionToPoint such that if the point is below the horizon, so are all
// positions. It returns false when no such point exists, for example when
// the positions span more than a hemisphere.
func (o *EllipsoidalOccluder) ComputeHorizonCullingPoint(directionToPoint mgl64.Vec3, positions []mgl64.Vec3) (mgl64.Vec3, bool) {
	dir := o.ellipsoid.TransformPositionToScaledSpace(directionToPoint)
	if dir.LenSqr() == 0 {
		return mgl64.Vec3{}, false
	}
	dir = dir.Normalize()

	result := 0.0
	for _, p := range positions {
		m, ok := o.computeMagnitude(p, dir)
		if !ok {
			return mgl64.Vec3{}, false
		}
		result = math.Max(result, m)
	}
	return dir.Mul(result), true
}

func (o *EllipsoidalOccluder) computeMagnitude(position, scaledDirection mgl64.Vec3) (float64, bool) {
	sp := o.ellipsoid.TransformPositionToScaledSpace(position)
	magnitudeSquared := sp.LenSqr()
	magnitude := math.Sqrt(magnitudeSquared)
	if magnitude == 0 {
		return 0, false
	}
	direction := sp.Mul(1 / magnitude)

	magnitudeSquared = math.Max(1, magnitudeSquared)
	magnitude = math.Max(1, magnitude)

	cosAlpha := direction.Dot(scaledDirection)
	sinAlpha := direction.Cross(scaledDirection).Len()
	cosBeta := 1 / magnitude
	sinBeta := math.Sqrt(magnitudeSquared-1) * cosBeta

	denom := cosAlpha*cosBeta - sinAlpha*sinBeta
	if denom <= 0 {
		return 0, false
	}
	return 1 / denom, true
}
