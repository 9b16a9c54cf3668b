// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render describes what the globe surface asks the graphics layer
// to draw.
//
// The surface does not talk to a GPU. Each frame it appends DrawCommand
// values to the frame's command list and the host application submits
// them. This package defines those commands and the pieces they reference:
//
//   - DrawCommand: one draw of one terrain tile mesh
//   - RenderState: depth, culling and blending for a pass
//   - TileUniforms: per-draw values consumed by the surface shaders
//   - ShaderSet: shader variants keyed by ShaderOptions
//   - Texture and TextureFactory: imagery uploads
//
// # Software Preview
//
// Preview rasterizes a command list into a PixmapTarget using an
// equirectangular projection. It ignores terrain heights and lighting and
// is meant for tests, debugging and the globeview command:
//
//	p := render.NewPreview(1024, 512, geo.MaxValue)
//	p.Render(frameState.CommandList)
//	png.Encode(w, p.Target().Image())
package render
