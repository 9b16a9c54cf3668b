package terrain

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
)

// Heightmap-1.0 layout: 65x65 little-endian uint16 samples, one child mask
// byte, then an optional water mask of 1 or 256x256 bytes.
const (
	HeightmapSize   = 65
	heightmapScale  = 1.0 / 5.0
	heightmapOffset = -1000.0
	heightmapBytes  = HeightmapSize * HeightmapSize * 2
)

// Heightmap is a regular grid of heights covering a tile. Row 0 is the
// north edge, column 0 the west edge.
type Heightmap struct {
	width, height int
	heights       []float64
	childMask     uint8
	waterMask     []byte
	upsampled     bool
	minHeight     float64
	maxHeight     float64
}

// NewHeightmap validates and wraps a height grid. childMask bits are
// southwest, southeast, northwest, northeast from bit 0.
func NewHeightmap(width, height int, heights []float64, childMask uint8, waterMask []byte) (*Heightmap, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: grid %dx%d too small", ErrInvalidHeightmap, width, height)
	}
	if len(heights) != width*height {
		return nil, fmt.Errorf("%w: %d samples for a %dx%d grid", ErrInvalidHeightmap, len(heights), width, height)
	}
	h := &Heightmap{
		width:     width,
		height:    height,
		heights:   heights,
		childMask: childMask,
		waterMask: waterMask,
	}
	h.minHeight, h.maxHeight = math.Inf(1), math.Inf(-1)
	for _, v := range heights {
		h.minHeight = math.Min(h.minHeight, v)
		h.maxHeight = math.Max(h.maxHeight, v)
	}
	return h, nil
}

// ParseHeightmap decodes a heightmap-1.0 payload.
func ParseHeightmap(b []byte) (*Heightmap, error) {
	if len(b) < heightmapBytes+1 {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrInvalidHeightmap, len(b), heightmapBytes+1)
	}
	heights := make([]float64, HeightmapSize*HeightmapSize)
	for i := range heights {
		v := binary.LittleEndian.Uint16(b[i*2:])
		heights[i] = float64(v)*heightmapScale + heightmapOffset
	}
	mask := b[heightmapBytes]
	var water []byte
	if rest := b[heightmapBytes+1:]; len(rest) > 0 {
		water = append([]byte(nil), rest...)
	}
	return NewHeightmap(HeightmapSize, HeightmapSize, heights, mask, water)
}

// Width returns the number of samples per row.
func (h *Heightmap) Width() int { return h.width }

// Height returns the number of rows.
func (h *Heightmap) Height() int { return h.height }

func (h *Heightmap) MinimumHeight() float64       { return h.minHeight }
func (h *Heightmap) MaximumHeight() float64       { return h.maxHeight }
func (h *Heightmap) WasCreatedByUpsampling() bool { return h.upsampled }
func (h *Heightmap) WaterMask() []byte            { return h.waterMask }

func (h *Heightmap) IsChildAvailable(thisX, thisY, childX, childY int) bool {
	bit := 2 // northwest
	if childX != thisX*2 {
		bit++ // east
	}
	if childY != thisY*2 {
		bit -= 2 // south
	}
	return h.childMask&(1<<bit) != 0
}

// Sample returns the bilinearly interpolated height at (u, v), where u runs
// west to east and v south to north.
func (h *Heightmap) Sample(u, v float64) float64 {
	u = geo.Clamp(u, 0, 1)
	v = geo.Clamp(v, 0, 1)
	fx := u * float64(h.width-1)
	fy := (1 - v) * float64(h.height-1)

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := min(x0+1, h.width-1)
	y1 := min(y0+1, h.height-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	top := h.at(x0, y0)*(1-tx) + h.at(x1, y0)*tx
	bottom := h.at(x0, y1)*(1-tx) + h.at(x1, y1)*tx
	return top*(1-ty) + bottom*ty
}

func (h *Heightmap) at(x, y int) float64 { return h.heights[y*h.width+x] }

func (h *Heightmap) Upsample(scheme geo.TilingScheme, thisX, thisY, thisLevel, descendantX, descendantY, descendantLevel int) (Data, error) {
	if descendantLevel <= thisLevel {
		return nil, fmt.Errorf("terrain: cannot upsample level %d from level %d", descendantLevel, thisLevel)
	}
	src := scheme.TileXYToRectangle(thisX, thisY, thisLevel)
	dst := scheme.TileXYToRectangle(descendantX, descendantY, descendantLevel)

	heights := make([]float64, h.width*h.height)
	for j := range h.height {
		lat := dst.North - dst.Height()*float64(j)/float64(h.height-1)
		v := (lat - src.South) / src.Height()
		for i := range h.width {
			lon := dst.West + dst.Width()*float64(i)/float64(h.width-1)
			u := (lon - src.West) / src.Width()
			heights[j*h.width+i] = h.Sample(u, v)
		}
	}
	out, err := NewHeightmap(h.width, h.height, heights, 0, nil)
	if err != nil {
		return nil, err
	}
	out.upsampled = true
	return out, nil
}

func (h *Heightmap) CreateMesh(scheme geo.TilingScheme, x, y, level int, skirtHeight float64) (*Mesh, error) {
	e := scheme.Ellipsoid()
	rect := scheme.TileXYToRectangle(x, y, level)
	center := rect.Center()
	center.Height = (h.minHeight + h.maxHeight) * 0.5
	rtc := e.CartographicToCartesian(center)

	southMercator := geo.GeodeticLatitudeToMercatorAngle(rect.South)
	mercatorHeight := geo.GeodeticLatitudeToMercatorAngle(rect.North) - southMercator

	m := &Mesh{
		Center:        rtc,
		MinimumHeight: h.minHeight,
		MaximumHeight: h.maxHeight,
	}
	world := make([]mgl64.Vec3, 0, h.width*h.height)

	addVertex := func(c geo.Cartographic, u, v float64) {
		p := e.CartographicToCartesian(c)
		world = append(world, p)
		m.Positions = append(m.Positions, p.Sub(rtc))
		m.TexCoords = append(m.TexCoords, mgl64.Vec2{u, v})
		t := 0.0
		if mercatorHeight > 0 {
			t = (geo.GeodeticLatitudeToMercatorAngle(c.Latitude) - southMercator) / mercatorHeight
		}
		m.WebMercatorT = append(m.WebMercatorT, t)
	}

	for j := range h.height {
		v := 1 - float64(j)/float64(h.height-1)
		lat := rect.South + v*rect.Height()
		for i := range h.width {
			u := float64(i) / float64(h.width-1)
			lon := rect.West + u*rect.Width()
			addVertex(geo.Cartographic{Longitude: lon, Latitude: lat, Height: h.at(i, j)}, u, v)
		}
	}

	w := uint32(h.width)
	for j := range uint32(h.height - 1) {
		for i := range w - 1 {
			a := j*w + i
			b := a + 1
			c := a + w
			d := c + 1
			m.Indices = append(m.Indices, a, c, b, b, c, d)
		}
	}
	m.IndexCountWithoutSkirts = len(m.Indices)

	if skirtHeight > 0 {
		var west, south, east, north []uint32
		for j := range uint32(h.height) {
			west = append(west, j*w)
			east = append(east, (uint32(h.height)-1-j)*w+w-1)
		}
		for i := range w {
			south = append(south, (uint32(h.height)-1)*w+i)
			north = append(north, w-1-i)
		}
		for _, edge := range [][]uint32{west, south, east, north} {
			h.addSkirt(m, edge, skirtHeight, rtc, e)
		}
	}

	m.BoundingSphere = geo.BoundingSphereFromPoints(world)
	occluder := geo.NewEllipsoidalOccluder(e)
	m.OccludeePointInScaledSpace, m.HasOccludeePoint = occluder.ComputeHorizonCullingPoint(rtc, world)
	return m, nil
}

// addSkirt hangs a vertical strip below an edge to hide cracks between
// neighbouring tiles of different levels.
func (h *Heightmap) addSkirt(m *Mesh, edge []uint32, skirtHeight float64, rtc mgl64.Vec3, e geo.Ellipsoid) {
	first := uint32(len(m.Positions))
	for _, idx := range edge {
		p := m.Positions[idx].Add(rtc)
		n := e.GeodeticSurfaceNormal(p)
		m.Positions = append(m.Positions, p.Sub(n.Mul(skirtHeight)).Sub(rtc))
		m.TexCoords = append(m.TexCoords, m.TexCoords[idx])
		m.WebMercatorT = append(m.WebMercatorT, m.WebMercatorT[idx])
	}
	for k := 0; k+1 < len(edge); k++ {
		top0, top1 := edge[k], edge[k+1]
		bot0, bot1 := first+uint32(k), first+uint32(k+1)
		m.Indices = append(m.Indices, top0, bot0, top1, top1, bot0, bot1)
	}
}
