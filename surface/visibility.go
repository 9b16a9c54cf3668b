package surface

import (
	"math"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/scene"
)

// ComputeTileVisibility classifies t for the current frame and stores its
// camera distance. Tiles are culled when fully fogged, outside the
// cartographic limit rectangle, fully clipped, outside the view frustum,
// or, in 3D, below the horizon.
func (p *Provider) ComputeTileVisibility(t *quadtree.Tile, fs *scene.FrameState, occluder *geo.EllipsoidalOccluder) quadtree.Visibility {
	st := TileData(t)
	if st == nil {
		st = p.newSurfaceTile(t)
		t.Data = st
	}

	t.Distance = p.distanceToTile(st, fs)
	if fs.Fog.Enabled && geo.Fog(t.Distance, fs.Fog.Density) >= 1 {
		return quadtree.VisibilityNone
	}

	st.ClippedByBoundaries = false
	limit := clipRectangleAntimeridian(t.Rectangle, p.cartographicLimitRectangle)
	overlap, ok := limit.SimpleIntersection(t.Rectangle)
	if !ok {
		return quadtree.VisibilityNone
	}
	if !overlap.Equals(t.Rectangle, 0) {
		st.ClippedByBoundaries = true
	}

	volume := st.BoundingSphere3D
	if fs.Mode.Projected() {
		st.BoundingSphere2D = geo.BoundingSphereFromRectangle2D(t.Rectangle, fs.MapProjection, st.Region.MinimumHeight, st.Region.MaximumHeight)
		volume = st.BoundingSphere2D
	}

	if c := p.clippingPlanes; c != nil && c.Enabled {
		r := c.ComputeIntersectionWithBoundingSphere(volume)
		t.IsClipped = r != geo.Inside
		if r == geo.Outside {
			return quadtree.VisibilityNone
		}
	} else {
		t.IsClipped = false
	}

	intersection := fs.CullingVolume.ComputeVisibility(volume)
	if intersection == geo.Outside {
		return quadtree.VisibilityNone
	}

	if fs.Mode == scene.Mode3D && occluder != nil && st.HasOccludeePoint &&
		!occluder.IsScaledSpacePointVisible(st.OccludeePointInScaledSpace) {
		return quadtree.VisibilityNone
	}

	if intersection == geo.Inside {
		return quadtree.VisibilityFull
	}
	return quadtree.VisibilityPartial
}

func (p *Provider) distanceToTile(st *SurfaceTile, fs *scene.FrameState) float64 {
	cam := fs.Camera
	if fs.Mode.Projected() {
		return st.Region.DistanceToCameraProjected(fs.MapProjection, cam.Position)
	}
	return st.Region.DistanceToCamera(cam.Position, cam.PositionCartographic)
}

// clipRectangleAntimeridian returns limit unchanged unless it wraps the
// antimeridian. A wrapping limit is cut at ±π on the side of the tile
// center, so it can be intersected without wrap handling.
func clipRectangleAntimeridian(tile, limit geo.Rectangle) geo.Rectangle {
	if limit.West < limit.East {
		return limit
	}
	split := limit
	if tile.Center().Longitude > 0 {
		split.East = math.Pi
	} else {
		split.West = -math.Pi
	}
	return split
}
