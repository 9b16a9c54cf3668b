package render

import "github.com/go-gl/mathgl/mgl64"

// TileUniforms are the per-draw shader inputs of a surface command.
//
// The DayTexture slices are parallel: index i describes the i-th imagery
// texture sampled by the draw, bottom layer first.
type TileUniforms struct {
	InitialColor mgl64.Vec4

	// RTC is the mesh center in world coordinates (3D).
	RTC mgl64.Vec3
	// TileRectangle is the projected (west, south, east, north) of the
	// tile in Columbus view and 2D.
	TileRectangle                  mgl64.Vec4
	SouthAndNorthLatitude          mgl64.Vec2
	SouthMercatorYAndOneOverHeight mgl64.Vec2
	MinMaxHeight                   mgl64.Vec2

	DayTextures                   []Texture
	DayTextureTranslationAndScale []mgl64.Vec4
	DayTextureTexCoordsRectangle  []mgl64.Vec4
	DayTextureUseWebMercatorT     []bool
	DayTextureAlpha               []float64
	DayTextureBrightness          []float64
	DayTextureContrast            []float64
	DayTextureHue                 []float64
	DayTextureSaturation          []float64
	DayTextureOneOverGamma        []float64
	DayTextureSplit               []float64
	DayTextureCutoutRectangles    []mgl64.Vec4
	ColorsToAlpha                 []mgl64.Vec4
	CartographicLimitRectangle    mgl64.Vec4
	ClippingPlanes                []mgl64.Vec4
	ClippingPlanesEdgeColor       mgl64.Vec4
	ClippingPlanesEdgeWidth       float64
}

// TextureCount returns the number of imagery textures sampled.
func (u *TileUniforms) TextureCount() int { return len(u.DayTextures) }

// DayTexture is one imagery texture with its sampling parameters.
type DayTexture struct {
	Texture             Texture
	TranslationAndScale mgl64.Vec4
	TexCoordsRectangle  mgl64.Vec4
	UseWebMercatorT     bool
	Alpha               float64
	Brightness          float64
	Contrast            float64
	Hue                 float64
	Saturation          float64
	OneOverGamma        float64
	Split               float64
	CutoutRectangle     mgl64.Vec4
	ColorToAlpha        mgl64.Vec4
}

// AddDayTexture appends t to the parallel texture slices.
func (u *TileUniforms) AddDayTexture(t DayTexture) {
	u.DayTextures = append(u.DayTextures, t.Texture)
	u.DayTextureTranslationAndScale = append(u.DayTextureTranslationAndScale, t.TranslationAndScale)
	u.DayTextureTexCoordsRectangle = append(u.DayTextureTexCoordsRectangle, t.TexCoordsRectangle)
	u.DayTextureUseWebMercatorT = append(u.DayTextureUseWebMercatorT, t.UseWebMercatorT)
	u.DayTextureAlpha = append(u.DayTextureAlpha, t.Alpha)
	u.DayTextureBrightness = append(u.DayTextureBrightness, t.Brightness)
	u.DayTextureContrast = append(u.DayTextureContrast, t.Contrast)
	u.DayTextureHue = append(u.DayTextureHue, t.Hue)
	u.DayTextureSaturation = append(u.DayTextureSaturation, t.Saturation)
	u.DayTextureOneOverGamma = append(u.DayTextureOneOverGamma, t.OneOverGamma)
	u.DayTextureSplit = append(u.DayTextureSplit, t.Split)
	u.DayTextureCutoutRectangles = append(u.DayTextureCutoutRectangles, t.CutoutRectangle)
	u.ColorsToAlpha = append(u.ColorsToAlpha, t.ColorToAlpha)
}

// DayTextureAt returns the parameters of texture i.
func (u *TileUniforms) DayTextureAt(i int) DayTexture {
	return DayTexture{
		Texture:             u.DayTextures[i],
		TranslationAndScale: u.DayTextureTranslationAndScale[i],
		TexCoordsRectangle:  u.DayTextureTexCoordsRectangle[i],
		UseWebMercatorT:     u.DayTextureUseWebMercatorT[i],
		Alpha:               u.DayTextureAlpha[i],
		Brightness:          u.DayTextureBrightness[i],
		Contrast:            u.DayTextureContrast[i],
		Hue:                 u.DayTextureHue[i],
		Saturation:          u.DayTextureSaturation[i],
		OneOverGamma:        u.DayTextureOneOverGamma[i],
		Split:               u.DayTextureSplit[i],
		CutoutRectangle:     u.DayTextureCutoutRectangles[i],
		ColorToAlpha:        u.ColorsToAlpha[i],
	}
}

// Reset clears u for reuse, keeping the capacity of its slices.
func (u *TileUniforms) Reset() {
	*u = TileUniforms{
		DayTextures:                   u.DayTextures[:0],
		DayTextureTranslationAndScale: u.DayTextureTranslationAndScale[:0],
		DayTextureTexCoordsRectangle:  u.DayTextureTexCoordsRectangle[:0],
		DayTextureUseWebMercatorT:     u.DayTextureUseWebMercatorT[:0],
		DayTextureAlpha:               u.DayTextureAlpha[:0],
		DayTextureBrightness:          u.DayTextureBrightness[:0],
		DayTextureContrast:            u.DayTextureContrast[:0],
		DayTextureHue:                 u.DayTextureHue[:0],
		DayTextureSaturation:          u.DayTextureSaturation[:0],
		DayTextureOneOverGamma:        u.DayTextureOneOverGamma[:0],
		DayTextureSplit:               u.DayTextureSplit[:0],
		DayTextureCutoutRectangles:    u.DayTextureCutoutRectangles[:0],
		ColorsToAlpha:                 u.ColorsToAlpha[:0],
		ClippingPlanes:                u.ClippingPlanes[:0],
	}
}
