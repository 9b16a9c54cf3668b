package geo

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPerspectiveCullingVolume(t *testing.T) {
	f := PerspectiveFrustum{Fovy: math.Pi / 3, Aspect: 1, Near: 1, Far: 1000}
	cv := f.ComputeCullingVolume(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0})

	tests := []struct {
		name   string
		sphere BoundingSphere
		want   Intersect
	}{
		{"ahead", BoundingSphere{Center: mgl64.Vec3{0, 0, -100}, Radius: 1}, Inside},
		{"behind", BoundingSphere{Center: mgl64.Vec3{0, 0, 100}, Radius: 1}, Outside},
		{"far left", BoundingSphere{Center: mgl64.Vec3{-500, 0, -100}, Radius: 1}, Outside},
		{"on near plane", BoundingSphere{Center: mgl64.Vec3{0, 0, -1}, Radius: 0.5}, Intersecting},
		{"beyond far", BoundingSphere{Center: mgl64.Vec3{0, 0, -2000}, Radius: 1}, Outside},
	}
	for _, tt := range tests {
		if got := cv.ComputeVisibility(tt.sphere); got != tt.want {
			t.Errorf("%s: ComputeVisibility() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOrthographicCullingVolume(t *testing.T) {
	f := OrthographicFrustum{Left: -10, Right: 10, Bottom: -5, Top: 5, Near: 0, Far: 100}
	cv := f.ComputeCullingVolume(mgl64.Vec3{0, 0, 50}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0})

	if got := cv.ComputeVisibility(BoundingSphere{Center: mgl64.Vec3{0, 0, 0}, Radius: 1}); got != Inside {
		t.Errorf("center sphere = %v, want Inside", got)
	}
	if got := cv.ComputeVisibility(BoundingSphere{Center: mgl64.Vec3{20, 0, 0}, Radius: 1}); got != Outside {
		t.Errorf("off-screen sphere = %v, want Outside", got)
	}
	if got := f.PixelSize(200, 100); got != 0.1 {
		t.Errorf("PixelSize() = %v, want 0.1", got)
	}
}

func TestSphereIntersectPlane(t *testing.T) {
	pl := PlaneFromPointNormal(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})
	tests := []struct {
		x    float64
		want Intersect
	}{
		{5, Inside},
		{0.5, Intersecting},
		{-0.5, Intersecting},
		{-5, Outside},
	}
	for _, tt := range tests {
		s := BoundingSphere{Center: mgl64.Vec3{tt.x, 0, 0}, Radius: 1}
		if got := s.IntersectPlane(pl); got != tt.want {
			t.Errorf("IntersectPlane(x=%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestEllipsoidalOccluder(t *testing.T) {
	o := NewEllipsoidalOccluder(WGS84)
	o.SetCameraPosition(mgl64.Vec3{3 * WGS84.MaximumRadius(), 0, 0})

	near := WGS84.TransformPositionToScaledSpace(WGS84.CartographicToCartesian(CartographicFromDegrees(0, 0, 0)))
	if !o.IsScaledSpacePointVisible(near) {
		t.Error("point under the camera should be visible")
	}
	far := WGS84.TransformPositionToScaledSpace(WGS84.CartographicToCartesian(CartographicFromDegrees(180, 0, 0)))
	if o.IsScaledSpacePointVisible(far) {
		t.Error("antipodal point should be occluded")
	}

	rect := RectangleFromDegrees(170, -5, -170, 5)
	positions := SampleRectangle(rect, WGS84, []float64{0}, 3)
	center := WGS84.CartographicToCartesian(rect.Center())
	point, ok := o.ComputeHorizonCullingPoint(center, positions)
	if !ok {
		t.Fatal("ComputeHorizonCullingPoint() failed for a small tile")
	}
	if o.IsScaledSpacePointVisible(point) {
		t.Error("culling point of a tile on the far side should be occluded")
	}

	if _, ok := o.ComputeHorizonCullingPoint(center, SampleRectangle(MaxValue, WGS84, []float64{0}, 3)); ok {
		t.Error("ComputeHorizonCullingPoint() should fail for the whole globe")
	}
}
