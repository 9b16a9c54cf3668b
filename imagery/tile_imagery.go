package imagery

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

// TileImagery attaches one Imagery to one terrain tile.
//
// LoadingImagery is the image the tile wants. While it loads,
// ReadyImagery holds the closest ready ancestor so something can be drawn.
// Once LoadingImagery is ready it moves to ReadyImagery.
type TileImagery struct {
	LoadingImagery *Imagery
	ReadyImagery   *Imagery

	// TextureCoordinateRectangle is the (minU, minV, maxU, maxV) part of
	// the terrain tile covered by this imagery.
	TextureCoordinateRectangle mgl64.Vec4
	// TextureTranslationAndScale maps terrain tile coordinates into
	// ReadyImagery's texture.
	TextureTranslationAndScale mgl64.Vec4
	UseWebMercatorT            bool
}

// NewTileImagery wraps img, which must already hold a reference for the
// new entry.
func NewTileImagery(img *Imagery, texCoords mgl64.Vec4, useWebMercatorT bool) *TileImagery {
	return &TileImagery{
		LoadingImagery:             img,
		TextureCoordinateRectangle: texCoords,
		UseWebMercatorT:            useWebMercatorT,
	}
}

// Imagery returns ReadyImagery if set, else LoadingImagery.
func (t *TileImagery) Imagery() *Imagery {
	if t.ReadyImagery != nil {
		return t.ReadyImagery
	}
	return t.LoadingImagery
}

// Layer returns the layer of the attached imagery.
func (t *TileImagery) Layer() *Layer {
	if img := t.Imagery(); img != nil {
		return img.layer
	}
	return nil
}

// FreeResources releases both imagery references.
func (t *TileImagery) FreeResources() {
	if t.ReadyImagery != nil {
		t.ReadyImagery.ReleaseReference()
	}
	if t.LoadingImagery != nil {
		t.LoadingImagery.ReleaseReference()
	}
}

// ProcessStateMachine advances loading for a terrain tile covering
// tileRect and reports whether this entry is done loading. A failed or
// invalid image counts as done once no loading ancestor remains.
func (t *TileImagery) ProcessStateMachine(tileRect geo.Rectangle, ld *Loader, skipLoading bool) bool {
	loading := t.LoadingImagery
	layer := loading.layer

	loading.processStateMachine(ld, skipLoading)

	if loading.State == StateReady {
		if t.ReadyImagery != nil {
			t.ReadyImagery.ReleaseReference()
		}
		t.ReadyImagery = loading
		t.LoadingImagery = nil
		t.TextureTranslationAndScale = layer.CalculateTextureTranslationAndScale(tileRect, t)
		return true
	}

	// Find ancestor imagery to show while this one loads.
	ancestor := loading.parent
	var closestLoading *Imagery
	for ancestor != nil && ancestor.State != StateReady {
		if ancestor.State != StateFailed && ancestor.State != StateInvalid && closestLoading == nil {
			closestLoading = ancestor
		}
		ancestor = ancestor.parent
	}

	if t.ReadyImagery != ancestor {
		if t.ReadyImagery != nil {
			t.ReadyImagery.ReleaseReference()
		}
		t.ReadyImagery = ancestor
		if ancestor != nil {
			ancestor.AddReference()
			t.TextureTranslationAndScale = layer.CalculateTextureTranslationAndScale(tileRect, t)
		}
	}

	if loading.State == StateFailed || loading.State == StateInvalid {
		if closestLoading != nil {
			// Ancestors not attached to any terrain tile only load if
			// pushed from here.
			closestLoading.processStateMachine(ld, skipLoading)
			return false
		}
		return true
	}
	return false
}
