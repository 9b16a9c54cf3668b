package imagery

import (
	"context"
	"image"
	"sync"

	"github.com/gogpu/globe/geo"
)

// SingleTileProvider serves one image stretched over a rectangle.
type SingleTileProvider struct {
	Reloader

	mu     sync.RWMutex
	img    image.Image
	rect   geo.Rectangle
	scheme *geo.GeographicTilingScheme
	credit string
}

// NewSingleTileProvider covers rect with img.
func NewSingleTileProvider(img image.Image, rect geo.Rectangle, credit string) *SingleTileProvider {
	return &SingleTileProvider{
		img:    img,
		rect:   rect,
		scheme: geo.NewGeographicTilingSchemeWith(geo.WGS84, rect, 1, 1),
		credit: credit,
	}
}

// SetImage replaces the image and reloads attached tiles.
func (p *SingleTileProvider) SetImage(img image.Image) {
	p.mu.Lock()
	p.img = img
	p.mu.Unlock()
	p.Reload()
}

func (p *SingleTileProvider) Ready() bool                    { return true }
func (p *SingleTileProvider) TilingScheme() geo.TilingScheme { return p.scheme }
func (p *SingleTileProvider) Rectangle() geo.Rectangle       { return p.rect }
func (p *SingleTileProvider) TileWidth() int                 { return p.image().Bounds().Dx() }
func (p *SingleTileProvider) TileHeight() int                { return p.image().Bounds().Dy() }
func (p *SingleTileProvider) MinimumLevel() int              { return 0 }
func (p *SingleTileProvider) MaximumLevel() int              { return 0 }
func (p *SingleTileProvider) Credit() string                 { return p.credit }

func (p *SingleTileProvider) RequestImage(ctx context.Context, x, y, level int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.image(), nil
}

func (p *SingleTileProvider) image() image.Image {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.img
}
