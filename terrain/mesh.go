package terrain

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

// Mesh is renderable tile geometry. Positions are relative to Center.
type Mesh struct {
	Center       mgl64.Vec3
	Positions    []mgl64.Vec3
	TexCoords    []mgl64.Vec2 // geographic u, v in [0, 1]
	WebMercatorT []float64
	Indices      []uint32

	// IndexCountWithoutSkirts is the number of indices before the skirt
	// triangles begin.
	IndexCountWithoutSkirts int

	MinimumHeight  float64
	MaximumHeight  float64
	BoundingSphere geo.BoundingSphere

	// OccludeePointInScaledSpace is the horizon culling point, valid when
	// HasOccludeePoint is true.
	OccludeePointInScaledSpace mgl64.Vec3
	HasOccludeePoint           bool
}

// VertexCount returns the number of vertices including skirts.
func (m *Mesh) VertexCount() int { return len(m.Positions) }
