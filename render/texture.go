package render

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
)

// ErrNilImage is returned when a texture is requested for a nil image.
var ErrNilImage = errors.New("render: nil image")

// Texture is an uploaded imagery tile.
type Texture interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
	// Release frees the texture. Further use is undefined.
	Release()
}

// TextureFactory uploads decoded images.
type TextureFactory interface {
	CreateTexture(img image.Image) (Texture, error)
}

// ImageTexture is a CPU-resident texture. It is what the software preview
// samples from and what tests inspect.
type ImageTexture struct {
	img      *image.RGBA
	released bool
}

// Width returns the texture width in pixels.
func (t *ImageTexture) Width() int { return t.img.Bounds().Dx() }

// Height returns the texture height in pixels.
func (t *ImageTexture) Height() int { return t.img.Bounds().Dy() }

// Format returns RGBA8.
func (t *ImageTexture) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// Image returns the pixels. Row 0 is the north edge.
func (t *ImageTexture) Image() *image.RGBA { return t.img }

func (t *ImageTexture) Release() { t.released = true }

// Released reports whether Release was called.
func (t *ImageTexture) Released() bool { return t.released }

// ImageTextureFactory converts images to RGBA ImageTextures.
type ImageTextureFactory struct{}

func (ImageTextureFactory) CreateTexture(img image.Image) (Texture, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return &ImageTexture{img: rgba}, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(rgba, image.Point{}, img, b, xdraw.Src, nil)
	return &ImageTexture{img: rgba}, nil
}
