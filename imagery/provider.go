// Package imagery drapes independently tiled images over terrain tiles.
//
// A Layer wraps a Provider and owns an arena of reference counted Imagery
// tiles keyed by (level, x, y) in the provider's tiling scheme. Terrain
// tiles hold TileImagery entries that point into that arena. A Collection
// orders layers and notifies listeners when the order changes.
//
// Everything except Provider.RequestImage runs on the frame thread.
package imagery

import (
	"context"
	"errors"
	"image"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/globe/geo"
)

var (
	// ErrLayerNotInCollection is returned when reordering a layer that
	// belongs to a different collection or none.
	ErrLayerNotInCollection = errors.New("imagery: layer is not in this collection")
	// ErrLayerDestroyed is returned when adding a destroyed layer.
	ErrLayerDestroyed = errors.New("imagery: layer is destroyed")
	// ErrIndexOutOfRange is returned by Collection.AddAt.
	ErrIndexOutOfRange = errors.New("imagery: index out of range")
	// ErrTileNotAvailable is returned by providers that have no image for a
	// tile.
	ErrTileNotAvailable = errors.New("imagery: tile not available")
)

// Provider supplies images in its own tiling scheme.
//
// RequestImage is called from fetch workers. Returning a nil image and a
// nil error means the request was throttled and will be retried.
type Provider interface {
	Ready() bool
	TilingScheme() geo.TilingScheme
	Rectangle() geo.Rectangle
	TileWidth() int
	TileHeight() int
	MinimumLevel() int
	MaximumLevel() int
	RequestImage(ctx context.Context, x, y, level int) (image.Image, error)
	Credit() string
}

// Reloadable is implemented by providers whose content can change. Each
// layer showing the provider installs a handler under its own ID; Reload
// runs every installed handler.
type Reloadable interface {
	SetReloadHandler(id uuid.UUID, fn func())
	Reload()
}

// Reloader implements Reloadable for embedding in providers.
type Reloader struct {
	mu       sync.Mutex
	handlers []reloadHandler
}

type reloadHandler struct {
	id uuid.UUID
	fn func()
}

// SetReloadHandler installs fn for id, replacing the handler id had. A nil
// fn removes it. Handlers of other IDs are untouched.
func (r *Reloader) SetReloadHandler(id uuid.UUID, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.handlers, func(h reloadHandler) bool { return h.id == id })
	switch {
	case fn == nil && i >= 0:
		r.handlers = slices.Delete(r.handlers, i, i+1)
	case fn == nil:
	case i >= 0:
		r.handlers[i].fn = fn
	default:
		r.handlers = append(r.handlers, reloadHandler{id: id, fn: fn})
	}
}

// Reload runs the installed handlers in installation order. It must be
// called on the frame thread.
func (r *Reloader) Reload() {
	r.mu.Lock()
	hs := slices.Clone(r.handlers)
	r.mu.Unlock()
	for _, h := range hs {
		h.fn()
	}
}

// DiscardPolicy rejects placeholder images some servers return instead of
// an error, such as "no data" tiles.
type DiscardPolicy interface {
	IsReady() bool
	ShouldDiscardImage(img image.Image) bool
}

// SplitDirection selects which side of the split position a layer shows
// on.
type SplitDirection int

const (
	SplitLeft  SplitDirection = -1
	SplitNone  SplitDirection = 0
	SplitRight SplitDirection = 1
)
