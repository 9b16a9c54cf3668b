package quadtree

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/internal/cache"
)

// LoadState is the load progress of a tile.
type LoadState int

const (
	// LoadStart means nothing has been requested.
	LoadStart LoadState = iota
	// LoadLoading means the provider is still working on the tile.
	LoadLoading
	// LoadDone means loading finished. The tile may still not be
	// renderable if its data turned out to be unavailable.
	LoadDone
	// LoadFailed means the tile has no geometry and never will for this
	// provider.
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStart:
		return "Start"
	case LoadLoading:
		return "Loading"
	case LoadDone:
		return "Done"
	case LoadFailed:
		return "Failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// Data is what a TileProvider stores on a tile.
type Data interface {
	// EligibleForUnloading reports whether the tile can be freed now.
	// Tiles with requests in flight usually cannot.
	EligibleForUnloading() bool
	// FreeResources releases everything the data holds.
	FreeResources()
}

// LoadedCallback runs on the frame thread when a tile finishes loading.
// It returns true once it is done and should be dropped.
type LoadedCallback func(t *Tile) bool

// Tile is one node of the quadtree.
//
// Children are created on first access. Freeing a tile releases its data
// and drops its descendants, which are recreated when the traversal next
// reaches them.
type Tile struct {
	X, Y, Level int
	Rectangle   geo.Rectangle

	scheme   geo.TilingScheme
	parent   *Tile
	children [4]*Tile

	State LoadState
	// Renderable is set by the provider once the tile can be drawn.
	Renderable bool
	// UpsampledFromParent marks tiles whose terrain and imagery carry no
	// more detail than their parent's. A parent is not refined into four
	// such children.
	UpsampledFromParent bool
	Data                Data

	// Distance is the camera distance computed during the last visibility
	// test.
	Distance float64
	// IsClipped is set when the tile is partly or fully cut by the
	// clipping planes.
	IsClipped bool

	// LoadedCallbacks are keyed by the id of whatever registered them so
	// that a second registration replaces the first.
	LoadedCallbacks map[uuid.UUID]LoadedCallback

	replacement   cache.Node[*Tile]
	queued        Priority
	frameRendered uint64
}

const (
	childNorthwest = iota
	childNortheast
	childSouthwest
	childSoutheast
)

// NewTile creates a tile of scheme. Only level-zero tiles have a nil
// parent.
func NewTile(scheme geo.TilingScheme, x, y, level int, parent *Tile) *Tile {
	t := &Tile{
		X:               x,
		Y:               y,
		Level:           level,
		Rectangle:       scheme.TileXYToRectangle(x, y, level),
		scheme:          scheme,
		parent:          parent,
		LoadedCallbacks: make(map[uuid.UUID]LoadedCallback),
	}
	t.replacement.Value = t
	return t
}

// CreateLevelZeroTiles returns the root tiles of scheme, row by row from
// the north.
func CreateLevelZeroTiles(scheme geo.TilingScheme) []*Tile {
	nx := scheme.NumberOfXTilesAtLevel(0)
	ny := scheme.NumberOfYTilesAtLevel(0)
	tiles := make([]*Tile, 0, nx*ny)
	for y := range ny {
		for x := range nx {
			tiles = append(tiles, NewTile(scheme, x, y, 0, nil))
		}
	}
	return tiles
}

// TilingScheme returns the scheme the tile belongs to.
func (t *Tile) TilingScheme() geo.TilingScheme { return t.scheme }

// Parent returns the parent tile, or nil for a root.
func (t *Tile) Parent() *Tile { return t.parent }

func (t *Tile) child(i int) *Tile {
	if c := t.children[i]; c != nil {
		return c
	}
	x, y := t.X*2, t.Y*2
	if i == childNortheast || i == childSoutheast {
		x++
	}
	if i == childSouthwest || i == childSoutheast {
		y++
	}
	c := NewTile(t.scheme, x, y, t.Level+1, t)
	t.children[i] = c
	return c
}

func (t *Tile) NorthwestChild() *Tile { return t.child(childNorthwest) }
func (t *Tile) NortheastChild() *Tile { return t.child(childNortheast) }
func (t *Tile) SouthwestChild() *Tile { return t.child(childSouthwest) }
func (t *Tile) SoutheastChild() *Tile { return t.child(childSoutheast) }

// Children returns the four children, creating them if needed, in the
// order northwest, northeast, southwest, southeast.
func (t *Tile) Children() [4]*Tile {
	for i := range t.children {
		t.child(i)
	}
	return t.children
}

// CreatedChildren returns the children that exist, without creating any.
func (t *Tile) CreatedChildren() []*Tile {
	var out []*Tile
	for _, c := range t.children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// NeedsLoading reports whether the provider still has work to do.
func (t *Tile) NeedsLoading() bool {
	return t.State == LoadStart || t.State == LoadLoading
}

// EligibleForUnloading reports whether the replacement queue may free the
// tile.
func (t *Tile) EligibleForUnloading() bool {
	if t.Data == nil {
		return true
	}
	return t.Data.EligibleForUnloading()
}

// FrameRendered returns the number of the last frame the tile was drawn
// in.
func (t *Tile) FrameRendered() uint64 { return t.frameRendered }

// FreeResources returns the tile to LoadStart, releases its data and
// drops all of its descendants. Dropped tiles are detached from the
// replacement queue and from the tree.
func (t *Tile) FreeResources() {
	t.State = LoadStart
	t.Renderable = false
	t.UpsampledFromParent = false
	t.IsClipped = false
	if t.Data != nil {
		t.Data.FreeResources()
		t.Data = nil
	}
	clear(t.LoadedCallbacks)
	for i, c := range t.children {
		if c == nil {
			continue
		}
		c.FreeResources()
		c.replacement.Detach()
		c.parent = nil
		t.children[i] = nil
	}
}

// detachFromParent removes t from its parent's child slots. Roots are left
// alone.
func (t *Tile) detachFromParent() {
	if t.parent == nil {
		return
	}
	for i, c := range t.parent.children {
		if c == t {
			t.parent.children[i] = nil
		}
	}
	t.parent = nil
}

// subtreeEligibleForUnloading reports whether t and every descendant that
// exists can be freed.
func (t *Tile) subtreeEligibleForUnloading() bool {
	if !t.EligibleForUnloading() {
		return false
	}
	for _, c := range t.children {
		if c != nil && !c.subtreeEligibleForUnloading() {
			return false
		}
	}
	return true
}

func (t *Tile) String() string {
	return fmt.Sprintf("tile %d/%d/%d", t.Level, t.X, t.Y)
}
