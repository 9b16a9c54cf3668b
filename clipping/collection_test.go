package clipping

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

var unitX = mgl64.Vec3{1, 0, 0}

func vecNear(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestComputeIntersection(t *testing.T) {
	sphere := geo.BoundingSphere{Radius: 1}
	inside := NewPlane(unitX, 5)
	outside := NewPlane(unitX, -5)
	crossing := NewPlane(unitX, 0)

	tests := []struct {
		name   string
		union  bool
		planes []Plane
		want   geo.Intersect
	}{
		{"empty", false, nil, geo.Inside},
		{"empty union", true, nil, geo.Inside},
		{"inside", false, []Plane{inside}, geo.Inside},
		{"outside", false, []Plane{outside}, geo.Outside},
		{"crossing", false, []Plane{crossing}, geo.Intersecting},
		{"outside one of two", false, []Plane{outside, inside}, geo.Inside},
		{"outside all", false, []Plane{outside, NewPlane(mgl64.Vec3{0, 1, 0}, -3)}, geo.Outside},
		{"union outside one", true, []Plane{inside, outside}, geo.Outside},
		{"union all inside", true, []Plane{inside, NewPlane(mgl64.Vec3{0, 1, 0}, 3)}, geo.Inside},
		{"union crossing", true, []Plane{inside, crossing}, geo.Intersecting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.planes...)
			c.UnionClippingRegions = tt.union
			if got := c.ComputeIntersectionWithBoundingSphere(sphere); got != tt.want {
				t.Errorf("ComputeIntersectionWithBoundingSphere() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelMatrixMovesPlanes(t *testing.T) {
	sphere := geo.BoundingSphere{Radius: 1}
	c := New(NewPlane(unitX, 0))
	if got := c.ComputeIntersectionWithBoundingSphere(sphere); got != geo.Intersecting {
		t.Fatalf("untransformed = %v, want %v", got, geo.Intersecting)
	}
	c.ModelMatrix = mgl64.Translate3D(-10, 0, 0)
	if got := c.ComputeIntersectionWithBoundingSphere(sphere); got != geo.Inside {
		t.Errorf("translated away = %v, want %v", got, geo.Inside)
	}
	c.ModelMatrix = mgl64.Translate3D(10, 0, 0)
	if got := c.ComputeIntersectionWithBoundingSphere(sphere); got != geo.Outside {
		t.Errorf("translated past = %v, want %v", got, geo.Outside)
	}
}

func TestPlaneTransformRotation(t *testing.T) {
	p := NewPlane(unitX, -2)
	got := p.Transform(mgl64.HomogRotate3DZ(math.Pi / 2))
	want := mgl64.Vec3{0, 1, 0}
	if !vecNear(got.Normal, want, 1e-12) {
		t.Errorf("Transform().Normal = %v, want %v", got.Normal, want)
	}
	if math.Abs(got.Distance+2) > 1e-12 {
		t.Errorf("Transform().Distance = %v, want -2", got.Distance)
	}
}

func TestAddRemove(t *testing.T) {
	a := NewPlane(unitX, 1)
	b := NewPlane(unitX, 2)
	c := New(a)
	c.Add(b)
	if c.Len() != 2 || c.Get(1) != b {
		t.Fatalf("after Add: Len() = %d", c.Len())
	}
	if !c.Remove(a) {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove(a) {
		t.Error("second Remove(a) = true, want false")
	}
	if c.Contains(a) || !c.Contains(b) {
		t.Error("Contains mismatch after Remove")
	}
	c.RemoveAll()
	if c.Len() != 0 {
		t.Errorf("Len() after RemoveAll = %d, want 0", c.Len())
	}
}

func TestSetOwner(t *testing.T) {
	type consumer struct{ planes *Collection }
	first, second := &consumer{}, &consumer{}

	c := New(NewPlane(unitX, 0))
	if err := SetOwner(&first.planes, c, first); err != nil {
		t.Fatalf("SetOwner(first) error = %v", err)
	}
	if c.Owner() != first {
		t.Error("Owner() is not the first consumer")
	}
	if err := SetOwner(&first.planes, c, first); err != nil {
		t.Errorf("SetOwner(same) error = %v", err)
	}

	err := SetOwner(&second.planes, c, second)
	if !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("SetOwner(second) error = %v, want %v", err, ErrAlreadyOwned)
	}
	if second.planes != nil || c.IsDestroyed() {
		t.Error("failed SetOwner changed state")
	}

	replacement := New()
	if err := SetOwner(&first.planes, replacement, first); err != nil {
		t.Fatalf("SetOwner(replacement) error = %v", err)
	}
	if !c.IsDestroyed() {
		t.Error("replaced collection was not destroyed")
	}

	if err := SetOwner(&first.planes, nil, first); err != nil {
		t.Fatalf("SetOwner(nil) error = %v", err)
	}
	if !replacement.IsDestroyed() || first.planes != nil {
		t.Error("detaching did not destroy the sole owner's collection")
	}
}
