package render

import "github.com/gogpu/gputypes"

// Pass orders command execution. Globe commands draw before translucent
// geometry.
type Pass int

const (
	PassGlobe Pass = iota
	PassOpaque
	PassTranslucent
)

// RenderState is the fixed-function state of a draw.
type RenderState struct {
	CullFace     gputypes.CullMode
	DepthTest    bool
	DepthCompare gputypes.CompareFunction
	// Blend is nil for opaque draws.
	Blend *gputypes.BlendState
}

// Blended reports whether the state composites over the framebuffer.
func (s *RenderState) Blended() bool { return s.Blend != nil }

var (
	opaqueState = &RenderState{
		CullFace:     gputypes.CullModeBack,
		DepthTest:    true,
		DepthCompare: gputypes.CompareFunctionLess,
	}
	blendState = &RenderState{
		CullFace:     gputypes.CullModeBack,
		DepthTest:    true,
		DepthCompare: gputypes.CompareFunctionLessEqual,
		Blend: &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
		},
	}
)

// OpaqueRenderState is used by the first pass over a tile.
func OpaqueRenderState() *RenderState { return opaqueState }

// BlendRenderState is used by every later pass over the same tile.
func BlendRenderState() *RenderState { return blendState }
