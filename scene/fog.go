package scene

import (
	"math"

	"github.com/gogpu/globe/geo"
)

// Fog defaults.
const (
	DefaultFogDensity  = 2.0e-4
	DefaultFogSSE      = 2.0
	maxFogCameraHeight = 800000.0
)

// Fog configures distance fog. Fog hides far tiles and lowers their
// required detail.
type Fog struct {
	Enabled bool
	// Density scales the height-dependent density curve.
	Density float64
	// ScreenSpaceErrorFactor is subtracted from a tile's screen-space
	// error in proportion to how fogged it is.
	ScreenSpaceErrorFactor float64
}

// DefaultFog returns fog enabled with the default density and factor.
func DefaultFog() Fog {
	return Fog{Enabled: true, Density: DefaultFogDensity, ScreenSpaceErrorFactor: DefaultFogSSE}
}

// FogState is the fog in effect for one frame.
type FogState struct {
	Enabled bool
	Density float64
	SSE     float64
}

// Camera heights in meters and the relative fog density measured at each.
var (
	fogHeights = []float64{
		359.393, 800.749, 1275.6501, 2151.1192, 3141.7763, 4777.5198, 6281.2493,
		12364.307, 15900.765, 49889.0549, 78026.8259, 99260.7344, 120036.3873,
		151011.0158, 156091.1953, 203849.3112, 274866.9803, 319916.3149,
		493552.0528, 628733.5874,
	}
	fogDensities = normalizeDensities([]float64{
		2.0e-5, 2.0e-4, 1.0e-4, 7.0e-5, 5.0e-5, 4.0e-5, 3.0e-5, 1.9e-5, 1.0e-5,
		8.5e-6, 6.2e-6, 5.8e-6, 5.3e-6, 5.2e-6, 5.1e-6, 4.2e-6, 4.0e-6, 3.4e-6,
		2.6e-6, 2.2e-6,
	})
)

// normalizeDensities maps the table onto [0, 1] between its second and
// last entries.
func normalizeDensities(d []float64) []float64 {
	out := make([]float64, len(d))
	start, end := d[1]*1e6, d[len(d)-1]*1e6
	for i, v := range d {
		out[i] = (v*1e6 - end) / (start - end)
	}
	return out
}

func fogInterval(height float64) int {
	n := len(fogHeights)
	if height < fogHeights[0] {
		return 0
	}
	for i := 0; i < n-1; i++ {
		if height < fogHeights[i+1] {
			return i
		}
	}
	return n - 2
}

// Update computes the fog for the camera. Fog is off outside 3D and above
// 800 km, and fades out as the camera looks straight down.
func (f Fog) Update(c *Camera, mode Mode) FogState {
	if !f.Enabled || mode != Mode3D || c == nil {
		return FogState{}
	}
	height := c.PositionCartographic.Height
	if height > maxFogCameraHeight {
		return FogState{}
	}

	i := fogInterval(height)
	t := geo.Clamp((height-fogHeights[i])/(fogHeights[i+1]-fogHeights[i]), 0, 1)
	density := f.Density * (fogDensities[i] + t*(fogDensities[i+1]-fogDensities[i]))

	if n := c.Position.Len(); n > 0 {
		dot := math.Abs(c.Direction.Normalize().Dot(c.Position.Mul(1 / n)))
		density *= 1 - dot
	}
	return FogState{Enabled: true, Density: density, SSE: f.ScreenSpaceErrorFactor}
}
