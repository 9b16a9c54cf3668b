package geo

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestBoundingRegionDistanceToCamera(t *testing.T) {
	r := RectangleFromDegrees(0, 0, 10, 10)
	region := NewBoundingRegion(r, WGS84, 0, 100)

	tests := []struct {
		name   string
		camera Cartographic
		lo, hi float64
	}{
		{"above center", CartographicFromDegrees(5, 5, 1100), 999.999, 1000.001},
		{"inside height range", CartographicFromDegrees(5, 5, 50), 0, 0},
		{"west of tile", CartographicFromDegrees(-5, 5, 50), 500e3, 560e3},
		{"north east of tile", CartographicFromDegrees(15, 15, 50), 700e3, 1000e3},
	}
	for _, tt := range tests {
		pos := WGS84.CartographicToCartesian(tt.camera)
		got := region.DistanceToCamera(pos, tt.camera)
		if got < tt.lo || got > tt.hi {
			t.Errorf("%s: DistanceToCamera() = %v, want in [%v, %v]", tt.name, got, tt.lo, tt.hi)
		}
	}
}

func TestBoundingRegionSouthernTile(t *testing.T) {
	// Planes of a tile south of the equator must still bound it.
	r := RectangleFromDegrees(20, -40, 30, -30)
	region := NewBoundingRegion(r, WGS84, 0, 0)
	c := CartographicFromDegrees(25, -35, 0)
	if got := region.DistanceToCamera(WGS84.CartographicToCartesian(c), c); got != 0 {
		t.Errorf("DistanceToCamera(center) = %v, want 0", got)
	}
	south := CartographicFromDegrees(25, -45, 0)
	if got := region.DistanceToCamera(WGS84.CartographicToCartesian(south), south); got <= 0 {
		t.Errorf("DistanceToCamera(south) = %v, want > 0", got)
	}
}

func TestBoundingRegionProjected(t *testing.T) {
	proj := NewGeographicProjection(WGS84)
	r := RectangleFromDegrees(0, 0, 10, 10)
	region := NewBoundingRegion(r, WGS84, 0, 100)

	center := proj.Project(CartographicFromDegrees(5, 5, 600))
	if got := region.DistanceToCameraProjected(proj, center); math.Abs(got-500) > 1e-6 {
		t.Errorf("DistanceToCameraProjected(above) = %v, want 500", got)
	}
	sw := proj.Project(r.Southwest())
	left := mgl64.Vec3{sw[0] - 1000, sw[1] + 1, 50}
	if got := region.DistanceToCameraProjected(proj, left); math.Abs(got-1000) > 1e-6 {
		t.Errorf("DistanceToCameraProjected(left) = %v, want 1000", got)
	}
}

func TestRayPlane(t *testing.T) {
	pl := PlaneFromPointNormal(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 1})
	p, ok := rayPlane(mgl64.Vec3{1, 2, 0}, mgl64.Vec3{0, 0, 1}, pl)
	if !ok || !vecNear(p, mgl64.Vec3{1, 2, 5}, 1e-9) {
		t.Errorf("rayPlane() = %v, %v, want (1, 2, 5), true", p, ok)
	}
	if _, ok := rayPlane(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, pl); ok {
		t.Error("rayPlane(parallel) ok = true")
	}
	if _, ok := rayPlane(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, pl); ok {
		t.Error("rayPlane(away) ok = true")
	}
}
