package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/terrain"
)

// DrawCommand draws one tile mesh with one set of imagery textures. A tile
// with more imagery layers than texture units produces several commands.
type DrawCommand struct {
	// Owner is the tile that produced the command.
	Owner any
	Pass  Pass

	RenderState   *RenderState
	ShaderProgram *ShaderProgram
	Uniforms      *TileUniforms

	Mesh *terrain.Mesh
	// Count is the number of indices to draw; skirts are omitted when it
	// equals Mesh.IndexCountWithoutSkirts.
	Count int

	BoundingVolume geo.BoundingSphere
	// Rectangle is the tile extent, used by the software preview.
	Rectangle geo.Rectangle
	// ModelMatrix places the mesh in Columbus view and 2D.
	ModelMatrix mgl64.Mat4
}

// CommandList collects the commands of one frame.
type CommandList []*DrawCommand

// Push appends cmd.
func (l *CommandList) Push(cmd *DrawCommand) { *l = append(*l, cmd) }

// Reset empties the list for reuse.
func (l *CommandList) Reset() { *l = (*l)[:0] }

// OwnedBy returns the commands whose Owner is owner.
func (l CommandList) OwnedBy(owner any) []*DrawCommand {
	var out []*DrawCommand
	for _, c := range l {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out
}
