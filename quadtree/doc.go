// Package quadtree selects the tiles of a quadtree surface to draw each
// frame.
//
// A Primitive walks the tree from the level-zero tiles, refining wherever
// a tile's screen-space error is above the target and all four children
// can be drawn. Tiles that are not loaded yet are placed in one of three
// load queues. After selection the queues are worked through within a
// time slice and the replacement queue frees tiles that were not used in
// the current frame once more than TileCacheSize tiles are resident.
//
// What a tile holds and how it loads is up to the TileProvider; this
// package only tracks the load state and the tree.
//
// A frame is driven by three calls on the frame thread:
//
//	p.BeginFrame(fs)
//	p.Render(fs)
//	p.EndFrame(fs)
package quadtree
