// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
)

// PixmapTarget is a CPU-backed RGBA image the preview draws into.
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a target of the given size.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// Clear fills the entire target with the given color.
func (t *PixmapTarget) Clear(c color.Color) {
	xdraw.Draw(t.img, t.img.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
}

// GetPixel returns the color at the given coordinates.
func (t *PixmapTarget) GetPixel(x, y int) color.RGBA {
	return t.img.RGBAAt(x, y)
}

// Composite draws src over the target.
func (t *PixmapTarget) Composite(src *PixmapTarget) {
	xdraw.Draw(t.img, t.img.Bounds(), src.img, image.Point{}, xdraw.Over)
}
