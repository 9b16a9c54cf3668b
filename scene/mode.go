// Package scene holds the per-frame view state the globe surface reads:
// the camera, the scene mode, fog, the draw command sink and the credit
// display.
package scene

import "fmt"

// Mode selects how the globe is projected.
type Mode int

const (
	// Mode3D draws the ellipsoid in Earth-fixed Cartesian coordinates.
	Mode3D Mode = iota
	// ModeColumbusView draws the projected map as a 2.5D surface with a
	// perspective camera.
	ModeColumbusView
	// Mode2D draws the projected map with an orthographic camera.
	Mode2D
	// ModeMorphing is a transition between two modes. Tiles are culled
	// against their 3D bounds.
	ModeMorphing
)

func (m Mode) String() string {
	switch m {
	case Mode3D:
		return "3D"
	case ModeColumbusView:
		return "ColumbusView"
	case Mode2D:
		return "2D"
	case ModeMorphing:
		return "Morphing"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Projected reports whether tiles are drawn in map projection coordinates.
func (m Mode) Projected() bool {
	return m == ModeColumbusView || m == Mode2D
}
