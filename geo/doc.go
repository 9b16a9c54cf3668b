// Package geo provides the geodesy and culling math used by the globe
// surface: geographic rectangles in radians, the reference ellipsoid, map
// projections, tiling schemes, bounding spheres, culling volumes and the
// ellipsoidal horizon occluder.
//
// Cartesian values use mgl64 vectors in an Earth-centered, Earth-fixed
// frame for 3D, and projected (x, y, height) coordinates for 2D and
// Columbus view.
package geo
