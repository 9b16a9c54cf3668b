package geo

import (
	"math"
	"testing"
)

func TestRectangleIntersection(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Rectangle
		want  Rectangle
		found bool
	}{
		{
			name:  "overlap",
			a:     RectangleFromDegrees(0, 0, 20, 20),
			b:     RectangleFromDegrees(10, 10, 30, 30),
			want:  RectangleFromDegrees(10, 10, 20, 20),
			found: true,
		},
		{
			name:  "disjoint",
			a:     RectangleFromDegrees(0, 0, 10, 10),
			b:     RectangleFromDegrees(20, 0, 30, 10),
			found: false,
		},
		{
			name:  "wrapped against east",
			a:     RectangleFromDegrees(170, -10, -170, 10),
			b:     RectangleFromDegrees(160, -5, 175, 5),
			want:  RectangleFromDegrees(170, -5, 175, 5),
			found: true,
		},
		{
			name:  "wrapped against west",
			a:     RectangleFromDegrees(170, -10, -170, 10),
			b:     RectangleFromDegrees(-175, -5, -160, 5),
			want:  RectangleFromDegrees(-175, -5, -170, 5),
			found: true,
		},
		{
			name:  "wrapped misses middle",
			a:     RectangleFromDegrees(170, -10, -170, 10),
			b:     RectangleFromDegrees(-10, -5, 10, 5),
			found: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Intersection(tt.b)
			if ok != tt.found {
				t.Fatalf("Intersection() ok = %v, want %v", ok, tt.found)
			}
			if ok && !got.Equals(tt.want, Epsilon10) {
				t.Errorf("Intersection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRectangleSimpleIntersectionTouching(t *testing.T) {
	a := RectangleFromDegrees(0, 0, 10, 10)
	b := RectangleFromDegrees(10, 0, 20, 10)
	if _, ok := a.SimpleIntersection(b); ok {
		t.Error("SimpleIntersection() of touching rectangles = true, want false")
	}
}

func TestRectangleWidthAndCenter(t *testing.T) {
	r := RectangleFromDegrees(170, 0, -170, 10)
	if got, want := r.Width(), ToRadians(20); math.Abs(got-want) > Epsilon12 {
		t.Errorf("Width() = %v, want %v", got, want)
	}
	c := r.Center()
	if math.Abs(math.Abs(c.Longitude)-math.Pi) > Epsilon12 {
		t.Errorf("Center().Longitude = %v, want ±Pi", c.Longitude)
	}
	if got, want := c.Latitude, ToRadians(5); math.Abs(got-want) > Epsilon12 {
		t.Errorf("Center().Latitude = %v, want %v", got, want)
	}
}

func TestRectangleContains(t *testing.T) {
	r := RectangleFromDegrees(170, -10, -170, 10)
	if !r.Contains(CartographicFromDegrees(175, 0, 0)) {
		t.Error("wrapped rectangle should contain 175E")
	}
	if !r.Contains(CartographicFromDegrees(-175, 0, 0)) {
		t.Error("wrapped rectangle should contain 175W")
	}
	if r.Contains(CartographicFromDegrees(0, 0, 0)) {
		t.Error("wrapped rectangle should not contain the prime meridian")
	}
	if !MaxValue.Contains(CartographicFromDegrees(-180, -90, 0)) {
		t.Error("MaxValue should contain its corner")
	}
}

func TestRectangleBoundRoundTrip(t *testing.T) {
	r := RectangleFromDegrees(-10, 20, 30, 40)
	back := RectangleFromBound(r.Bound())
	if !back.Equals(r, Epsilon12) {
		t.Errorf("RectangleFromBound(Bound()) = %v, want %v", back, r)
	}
}

func TestNegativePiToPi(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0},
		{math.Pi, math.Pi},
		{1.5 * math.Pi, -0.5 * math.Pi},
		{-1.5 * math.Pi, 0.5 * math.Pi},
		{3 * math.Pi, math.Pi},
	}
	for _, tt := range tests {
		if got := NegativePiToPi(tt.in); math.Abs(got-tt.want) > Epsilon12 {
			t.Errorf("NegativePiToPi(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFog(t *testing.T) {
	if got := Fog(0, 1e-4); got != 0 {
		t.Errorf("Fog(0) = %v, want 0", got)
	}
	if got := Fog(1e6, 1e-3); got < 1-Epsilon10 {
		t.Errorf("Fog(far) = %v, want ~1", got)
	}
}
