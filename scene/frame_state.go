// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/render"
)

// DefaultMaximumTextureUnits is the texture unit limit assumed when the
// renderer does not report one.
const DefaultMaximumTextureUnits = 16

// FrameState is everything the surface needs to know about the frame being
// drawn. It is owned by the frame thread.
type FrameState struct {
	FrameNumber   uint64
	Mode          Mode
	MapProjection geo.MapProjection
	Camera        *Camera
	CullingVolume geo.CullingVolume
	Fog           FogState

	// Width and Height are the drawing buffer size in pixels.
	Width, Height int

	// MaximumTextureUnits bounds imagery textures per draw command.
	MaximumTextureUnits int

	Commands *render.CommandList
	Credits  *CreditDisplay
}

// NewFrameState returns a 3D frame state over a geographic projection of
// WGS84.
func NewFrameState(camera *Camera, width, height int) *FrameState {
	return &FrameState{
		Mode:                Mode3D,
		MapProjection:       geo.NewGeographicProjection(geo.WGS84),
		Camera:              camera,
		Width:               width,
		Height:              height,
		MaximumTextureUnits: DefaultMaximumTextureUnits,
		Commands:            &render.CommandList{},
		Credits:             NewCreditDisplay(),
	}
}

// BeginFrame advances the frame number, clears the command list and frame
// credits, and derives the culling volume and fog from the camera.
func (f *FrameState) BeginFrame(fog Fog) {
	f.FrameNumber++
	f.Commands.Reset()
	if f.Credits != nil {
		f.Credits.BeginFrame()
	}
	f.CullingVolume = f.Camera.CullingVolume(f.Mode)
	f.Fog = fog.Update(f.Camera, f.Mode)
}

// PixelSize is the world size of one pixel under the orthographic camera.
// It is only meaningful in 2D.
func (f *FrameState) PixelSize() float64 {
	return f.Camera.Orthographic.PixelSize(f.Width, f.Height)
}
