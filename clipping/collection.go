// Package clipping holds user-defined half-space sets that hide parts of
// the globe surface.
package clipping

import (
	"errors"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

// ErrAlreadyOwned is returned when a collection is attached to a second
// owner.
var ErrAlreadyOwned = errors.New("clipping: collection already has an owner")

// Collection is an ordered set of clipping planes.
//
// By default a region is clipped only when it lies outside every plane.
// With UnionClippingRegions set, a region is clipped when it lies outside
// any plane.
type Collection struct {
	planes []Plane

	Enabled              bool
	UnionClippingRegions bool
	// EdgeColor and EdgeWidth style the boundary of clipped tiles.
	EdgeColor   mgl64.Vec4
	EdgeWidth   float64
	ModelMatrix mgl64.Mat4

	owner     any
	destroyed bool
}

// New returns an enabled collection holding planes.
func New(planes ...Plane) *Collection {
	return &Collection{
		planes:      slices.Clone(planes),
		Enabled:     true,
		EdgeColor:   mgl64.Vec4{1, 1, 1, 1},
		ModelMatrix: mgl64.Ident4(),
	}
}

// Add appends a plane.
func (c *Collection) Add(p Plane) { c.planes = append(c.planes, p) }

// Remove deletes the first plane equal to p and reports whether one was
// found.
func (c *Collection) Remove(p Plane) bool {
	i := slices.Index(c.planes, p)
	if i < 0 {
		return false
	}
	c.planes = slices.Delete(c.planes, i, i+1)
	return true
}

// Contains reports whether p is in the collection.
func (c *Collection) Contains(p Plane) bool { return slices.Contains(c.planes, p) }

// Get returns the plane at index i.
func (c *Collection) Get(i int) Plane { return c.planes[i] }

// Set replaces the plane at index i.
func (c *Collection) Set(i int, p Plane) { c.planes[i] = p }

// Len returns the number of planes.
func (c *Collection) Len() int { return len(c.planes) }

// RemoveAll deletes every plane.
func (c *Collection) RemoveAll() { c.planes = c.planes[:0] }

// Owner returns the object the collection is attached to, or nil.
func (c *Collection) Owner() any { return c.owner }

// ComputeIntersectionWithBoundingSphere classifies s against the planes.
// Outside means the sphere is entirely clipped.
func (c *Collection) ComputeIntersectionWithBoundingSphere(s geo.BoundingSphere) geo.Intersect {
	result := geo.Inside
	if !c.UnionClippingRegions && len(c.planes) > 0 {
		result = geo.Outside
	}
	for _, p := range c.planes {
		v := s.IntersectPlane(p.Transform(c.ModelMatrix))
		if v == geo.Intersecting {
			result = v
			continue
		}
		if c.decisive(v) {
			return v
		}
	}
	return result
}

func (c *Collection) decisive(v geo.Intersect) bool {
	if c.UnionClippingRegions {
		return v == geo.Outside
	}
	return v == geo.Inside
}

// Destroy releases the collection. A destroyed collection has no owner and
// no planes.
func (c *Collection) Destroy() {
	c.planes = nil
	c.owner = nil
	c.destroyed = true
}

// IsDestroyed reports whether Destroy was called.
func (c *Collection) IsDestroyed() bool { return c.destroyed }

// SetOwner stores next in *slot on behalf of owner. The collection
// previously held in the slot is destroyed. If next already belongs to
// another object ErrAlreadyOwned is returned and nothing changes.
func SetOwner(slot **Collection, next *Collection, owner any) error {
	if *slot == next {
		return nil
	}
	if next != nil && next.owner != nil {
		return ErrAlreadyOwned
	}
	if old := *slot; old != nil {
		old.Destroy()
	}
	*slot = next
	if next != nil {
		next.owner = owner
	}
	return nil
}
