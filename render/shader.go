package render

import (
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/globe/internal/cache"
)

//go:embed shaders/globe.wgsl
var globeShaderSource string

// ShaderOptions selects a surface shader variant. It is comparable and used
// as the program cache key.
type ShaderOptions struct {
	NumberOfDayTextures int

	ApplyAlpha        bool
	ApplyBrightness   bool
	ApplyContrast     bool
	ApplyHue          bool
	ApplySaturation   bool
	ApplyGamma        bool
	ApplySplit        bool
	ApplyCutout       bool
	ApplyColorToAlpha bool

	EnableClippingPlanes bool
	UnionClippingRegions bool
	ClippedByBoundaries  bool
	EnableFog            bool
	EnableLighting       bool
	ShowSkirts           bool
	SceneMode3D          bool
}

// Constants returns the pipeline-overridable constants for the variant.
func (o ShaderOptions) Constants() map[string]float64 {
	c := map[string]float64{
		"TEXTURE_UNITS": float64(o.NumberOfDayTextures),
	}
	flag := func(name string, v bool) {
		if v {
			c[name] = 1
		} else {
			c[name] = 0
		}
	}
	flag("APPLY_ALPHA", o.ApplyAlpha)
	flag("APPLY_BRIGHTNESS", o.ApplyBrightness)
	flag("APPLY_CONTRAST", o.ApplyContrast)
	flag("APPLY_HUE", o.ApplyHue)
	flag("APPLY_SATURATION", o.ApplySaturation)
	flag("APPLY_GAMMA", o.ApplyGamma)
	flag("APPLY_SPLIT", o.ApplySplit)
	flag("APPLY_CUTOUT", o.ApplyCutout)
	flag("APPLY_COLOR_TO_ALPHA", o.ApplyColorToAlpha)
	flag("ENABLE_CLIPPING_PLANES", o.EnableClippingPlanes)
	flag("UNION_CLIPPING_REGIONS", o.UnionClippingRegions)
	flag("TILE_LIMIT_RECTANGLE", o.ClippedByBoundaries)
	flag("FOG", o.EnableFog)
	flag("ENABLE_LIGHTING", o.EnableLighting)
	flag("SCENE_MODE_3D", o.SceneMode3D)
	return c
}

// ShaderProgram is one variant of the surface shader. Source keeps the
// override declarations for hosts that set pipeline constants; Specialized
// has them folded into const declarations.
type ShaderProgram struct {
	Options     ShaderOptions
	Source      string
	Constants   map[string]float64
	Specialized string

	once  sync.Once
	spirv []uint32
	err   error
}

// SPIRV compiles and validates the specialized source. The result, or the
// error, is kept with the program.
func (p *ShaderProgram) SPIRV() ([]uint32, error) {
	p.once.Do(func() {
		spirvBytes, err := naga.Compile(p.Specialized)
		if err != nil {
			p.err = fmt.Errorf("render: compile shader variant: %w", err)
			return
		}
		// SPIR-V is little-endian 32-bit words
		p.spirv = make([]uint32, len(spirvBytes)/4)
		for i := range p.spirv {
			p.spirv[i] = uint32(spirvBytes[i*4]) |
				uint32(spirvBytes[i*4+1])<<8 |
				uint32(spirvBytes[i*4+2])<<16 |
				uint32(spirvBytes[i*4+3])<<24
		}
	})
	return p.spirv, p.err
}

var overrideDecl = regexp.MustCompile(`(?m)^override\s+(\w+)\s*:\s*(\w+)\s*=\s*([^;]+);`)

// Specialize rewrites every override declaration in source as a const
// declaration, taking the value from constants when it names the override.
func Specialize(source string, constants map[string]float64) string {
	return overrideDecl.ReplaceAllStringFunc(source, func(decl string) string {
		m := overrideDecl.FindStringSubmatch(decl)
		name, typ, value := m[1], m[2], m[3]
		if v, ok := constants[name]; ok {
			value = constantLiteral(typ, v)
		}
		return "const " + name + ": " + typ + " = " + value + ";"
	})
}

func constantLiteral(typ string, v float64) string {
	switch typ {
	case "bool":
		return strconv.FormatBool(v != 0)
	case "u32":
		return strconv.FormatUint(uint64(math.Max(v, 0)), 10) + "u"
	case "i32":
		return strconv.FormatInt(int64(v), 10) + "i"
	default:
		s := strconv.FormatFloat(v, 'g', -1, 32)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	}
}

// ShaderSet hands out shader variants, building each at most once while it
// stays cached.
type ShaderSet struct {
	source   string
	programs *cache.Cache[ShaderOptions, *ShaderProgram]
}

// NewShaderSet returns a set over source. An empty source uses the built-in
// globe shader.
func NewShaderSet(source string) *ShaderSet {
	if source == "" {
		source = globeShaderSource
	}
	return &ShaderSet{
		source:   source,
		programs: cache.New[ShaderOptions, *ShaderProgram](64),
	}
}

// ShaderProgram returns the variant for opts.
func (s *ShaderSet) ShaderProgram(opts ShaderOptions) *ShaderProgram {
	return s.programs.GetOrCreate(opts, func() *ShaderProgram {
		c := opts.Constants()
		return &ShaderProgram{
			Options:     opts,
			Source:      s.source,
			Constants:   c,
			Specialized: Specialize(s.source, c),
		}
	})
}

// Len returns the number of cached variants.
func (s *ShaderSet) Len() int { return s.programs.Len() }

// Stats reports cache hits and misses.
func (s *ShaderSet) Stats() cache.Stats { return s.programs.Stats() }
