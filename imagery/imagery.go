package imagery

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/internal/fetch"
	"github.com/gogpu/globe/render"
)

// State is the load state of an Imagery tile.
type State int

const (
	StateUnloaded State = iota
	StateTransitioning
	StateReceived
	StateReady
	StateFailed
	// StateInvalid marks an image rejected by the layer's DiscardPolicy.
	StateInvalid
	// StatePlaceholder marks the stand-in used while a provider is not
	// ready.
	StatePlaceholder
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateTransitioning:
		return "Transitioning"
	case StateReceived:
		return "Received"
	case StateReady:
		return "Ready"
	case StateFailed:
		return "Failed"
	case StateInvalid:
		return "Invalid"
	case StatePlaceholder:
		return "Placeholder"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Loader carries what Imagery needs to fetch and upload tiles.
type Loader struct {
	Scheduler *fetch.Scheduler
	Textures  render.TextureFactory
}

type imageryKey struct {
	x, y, level int
}

// Imagery is one image of one layer. It is reference counted: every
// TileImagery pointing at it and every child Imagery holds a reference.
// At zero references it leaves its layer's arena, releases its parent and
// its texture, and cancels any request in flight.
type Imagery struct {
	layer       *Layer
	X, Y, Level int
	Rectangle   geo.Rectangle

	State   State
	Image   image.Image
	Texture render.Texture

	parent       *Imagery
	refCount     int
	cancel       context.CancelFunc
	timesRetried int
	destroyed    bool
}

func newImagery(layer *Layer, x, y, level int) *Imagery {
	img := &Imagery{layer: layer, X: x, Y: y, Level: level}
	if level != 0 {
		img.parent = layer.ImageryFromCache(x/2, y/2, level-1)
	}
	if layer.provider.Ready() {
		img.Rectangle = layer.provider.TilingScheme().TileXYToRectangle(x, y, level)
	}
	return img
}

func newPlaceholder(layer *Layer) *Imagery {
	img := &Imagery{layer: layer, State: StatePlaceholder}
	img.AddReference()
	return img
}

// Layer returns the layer the imagery belongs to.
func (i *Imagery) Layer() *Layer { return i.layer }

// Parent returns the imagery one level up, or nil at level zero.
func (i *Imagery) Parent() *Imagery { return i.parent }

// RefCount returns the number of live references.
func (i *Imagery) RefCount() int { return i.refCount }

// IsDestroyed reports whether the reference count reached zero.
func (i *Imagery) IsDestroyed() bool { return i.destroyed }

// AddReference increments the reference count.
func (i *Imagery) AddReference() { i.refCount++ }

// ReleaseReference decrements the reference count and destroys the imagery
// when it reaches zero. It returns the new count.
func (i *Imagery) ReleaseReference() int {
	i.refCount--
	if i.refCount > 0 {
		return i.refCount
	}

	i.layer.removeImageryFromCache(i)
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	if i.parent != nil {
		i.parent.ReleaseReference()
		i.parent = nil
	}
	if i.Texture != nil {
		i.Texture.Release()
		i.Texture = nil
	}
	i.Image = nil
	i.destroyed = true
	return 0
}

// processStateMachine advances loading by one step. With skipLoading set no
// new request is issued.
func (i *Imagery) processStateMachine(ld *Loader, skipLoading bool) {
	if i.State == StateUnloaded && !skipLoading {
		i.layer.requestImagery(ld, i)
	}
	if i.State == StateReceived {
		i.layer.createTexture(ld, i)
	}
}

func (i *Imagery) String() string {
	return fmt.Sprintf("imagery %d/%d/%d %s", i.Level, i.X, i.Y, i.State)
}
