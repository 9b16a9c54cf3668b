// Package surface draws the globe's terrain tiles with imagery layered on
// top. It implements quadtree.TileProvider.
//
// Every terrain tile carries a SurfaceTile. Loading a tile runs two state
// machines: one for the tile's own terrain and one that upsamples terrain
// from the nearest ancestor so something can be drawn early. Imagery is
// attached per layer as a list of imagery.TileImagery kept in layer order.
//
// A tile is drawn with one command per group of imagery textures that fit
// in the frame's texture units. The first command is opaque and paints the
// base color; later ones blend over it.
//
// Provider is not safe for concurrent use. Fetch results are applied in
// Initialize, on the frame thread.
package surface
