package render

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/globe/geo"
)

// Preview rasterizes surface draw commands onto an equirectangular image.
// Tiles are drawn flat; only imagery placement, alpha and blending order
// are reproduced.
type Preview struct {
	extent  geo.Rectangle
	base    *PixmapTarget
	overlay *PixmapTarget

	// Outline draws tile borders on an overlay composited last.
	Outline      bool
	OutlineColor color.RGBA
	Background   color.RGBA
}

// NewPreview creates a width×height preview of extent.
func NewPreview(width, height int, extent geo.Rectangle) *Preview {
	return &Preview{
		extent:       extent,
		base:         NewPixmapTarget(width, height),
		overlay:      NewPixmapTarget(width, height),
		OutlineColor: color.RGBA{R: 255, G: 255, A: 255},
		Background:   color.RGBA{A: 255},
	}
}

// Target returns the composited image.
func (p *Preview) Target() *PixmapTarget { return p.base }

// Render clears the target and draws every globe-pass command in order.
func (p *Preview) Render(cmds CommandList) {
	p.base.Clear(p.Background)
	p.overlay.Clear(color.Transparent)
	for _, cmd := range cmds {
		if cmd.Pass != PassGlobe {
			continue
		}
		p.drawCommand(cmd)
	}
	if p.Outline {
		p.base.Composite(p.overlay)
	}
}

// pixelRect maps a geographic rectangle to image pixels.
func (p *Preview) pixelRect(r geo.Rectangle) image.Rectangle {
	w := float64(p.base.Width())
	h := float64(p.base.Height())
	sx := w / p.extent.Width()
	sy := h / p.extent.Height()
	return image.Rect(
		int(math.Floor((r.West-p.extent.West)*sx)),
		int(math.Floor((p.extent.North-r.North)*sy)),
		int(math.Ceil((r.East-p.extent.West)*sx)),
		int(math.Ceil((p.extent.North-r.South)*sy)),
	)
}

func (p *Preview) drawCommand(cmd *DrawCommand) {
	tile := p.pixelRect(cmd.Rectangle)
	if tile.Empty() {
		return
	}
	u := cmd.Uniforms
	if u == nil {
		return
	}
	if !cmd.RenderState.Blended() {
		xdraw.Draw(p.base.img, tile, image.NewUniform(toRGBA(u.InitialColor)), image.Point{}, xdraw.Over)
	}
	for i := range u.TextureCount() {
		p.drawDayTexture(tile, u.DayTextureAt(i))
	}
	if p.Outline {
		p.outline(tile)
	}
}

func (p *Preview) drawDayTexture(tile image.Rectangle, d DayTexture) {
	tex, ok := d.Texture.(*ImageTexture)
	if !ok || d.Alpha <= 0 {
		return
	}
	r := d.TexCoordsRectangle // terrain u/v covered by this texture
	tx, ty, sx, sy := d.TranslationAndScale[0], d.TranslationAndScale[1], d.TranslationAndScale[2], d.TranslationAndScale[3]

	tw, th := float64(tile.Dx()), float64(tile.Dy())
	dst := image.Rect(
		tile.Min.X+int(math.Floor(r[0]*tw)),
		tile.Min.Y+int(math.Floor((1-r[3])*th)),
		tile.Min.X+int(math.Ceil(r[2]*tw)),
		tile.Min.Y+int(math.Ceil((1-r[1])*th)),
	)

	iw, ih := float64(tex.Width()), float64(tex.Height())
	src := image.Rect(
		int(math.Floor((r[0]*sx+tx)*iw)),
		int(math.Floor((1-(r[3]*sy+ty))*ih)),
		int(math.Ceil((r[2]*sx+tx)*iw)),
		int(math.Ceil((1-(r[1]*sy+ty))*ih)),
	).Intersect(tex.img.Bounds())
	if dst.Empty() || src.Empty() {
		return
	}

	var opts *xdraw.Options
	if d.Alpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(d.Alpha * 255)})}
	}
	xdraw.ApproxBiLinear.Scale(p.base.img, dst, tex.img, src, xdraw.Over, opts)
}

func (p *Preview) outline(r image.Rectangle) {
	img := p.overlay.img
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, p.OutlineColor)
		img.SetRGBA(x, r.Max.Y-1, p.OutlineColor)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, p.OutlineColor)
		img.SetRGBA(r.Max.X-1, y, p.OutlineColor)
	}
}

func toRGBA(c mgl64.Vec4) color.RGBA {
	clamp := func(v float64) uint8 { return uint8(math.Round(geo.Clamp(v, 0, 1) * 255)) }
	a := geo.Clamp(c[3], 0, 1)
	return color.RGBA{R: clamp(c[0] * a), G: clamp(c[1] * a), B: clamp(c[2] * a), A: clamp(a)}
}
