package surface

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/render"
	"github.com/gogpu/globe/scene"
)

// Debug counts what the last EndUpdate drew.
type Debug struct {
	TilesRendered    int
	TexturesRendered int
	Commands         int
}

// BeginUpdate empties the per-frame tile buckets.
func (p *Provider) BeginUpdate(fs *scene.FrameState) {
	for i := range p.tilesByTextureCount {
		p.tilesByTextureCount[i] = p.tilesByTextureCount[i][:0]
	}
	p.usedDrawCommands = 0
	p.frameNumber = fs.FrameNumber
	p.Debug = Debug{}
}

// ShowTileThisFrame queues t for drawing, bucketed by the number of
// textures it will sample so that tiles sharing a shader variant are
// drawn together.
func (p *Provider) ShowTileThisFrame(t *quadtree.Tile, fs *scene.FrameState) {
	st := TileData(t)
	if st == nil {
		return
	}
	n := 0
	for _, ti := range st.Imagery {
		if ti.ReadyImagery != nil && ti.ReadyImagery.Layer().Alpha != 0 {
			n++
		}
	}
	for len(p.tilesByTextureCount) <= n {
		p.tilesByTextureCount = append(p.tilesByTextureCount, nil)
	}
	p.tilesByTextureCount[n] = append(p.tilesByTextureCount[n], t)

	p.Debug.TilesRendered++
	p.Debug.TexturesRendered += n
}

// EndUpdate pushes the draw commands of every queued tile.
func (p *Provider) EndUpdate(fs *scene.FrameState) {
	for _, tiles := range p.tilesByTextureCount {
		for _, t := range tiles {
			p.addDrawCommandsForTile(t, fs)
		}
	}
}

func (p *Provider) nextDrawCommand() *render.DrawCommand {
	if p.usedDrawCommands == len(p.drawCommands) {
		p.drawCommands = append(p.drawCommands, &render.DrawCommand{Uniforms: &render.TileUniforms{}})
	}
	cmd := p.drawCommands[p.usedDrawCommands]
	p.usedDrawCommands++
	cmd.Uniforms.Reset()
	return cmd
}

func (p *Provider) addDrawCommandsForTile(t *quadtree.Tile, fs *scene.FrameState) {
	st := TileData(t)
	if st == nil || st.Mesh == nil {
		return
	}
	mesh := st.Mesh
	maxTextures := fs.MaximumTextureUnits
	if maxTextures <= 0 {
		maxTextures = scene.DefaultMaximumTextureUnits
	}

	rtc := mesh.Center
	modelMatrix := mgl64.Ident4()
	var tileRectangle mgl64.Vec4
	var southAndNorthLatitude, southMercatorYAndOneOverHeight mgl64.Vec2

	if fs.Mode != scene.Mode3D {
		proj := fs.MapProjection
		sw := proj.Project(t.Rectangle.Southwest())
		ne := proj.Project(t.Rectangle.Northeast())
		tileRectangle = mgl64.Vec4{sw[0], sw[1], ne[0], ne[1]}

		// Projected tiles are drawn relative to their center.
		if fs.Mode != scene.ModeMorphing {
			cx := (tileRectangle[0] + tileRectangle[2]) * 0.5
			cy := (tileRectangle[1] + tileRectangle[3]) * 0.5
			rtc = mgl64.Vec3{cx, cy, 0}
			tileRectangle = tileRectangle.Sub(mgl64.Vec4{cx, cy, cx, cy})
			modelMatrix = mgl64.Translate3D(cx, cy, 0)
		}

		if _, ok := proj.(geo.WebMercatorProjection); ok {
			south, north := t.Rectangle.South, t.Rectangle.North
			southMercatorY := geo.GeodeticLatitudeToMercatorAngle(south)
			southAndNorthLatitude = mgl64.Vec2{south, north}
			southMercatorYAndOneOverHeight = mgl64.Vec2{
				southMercatorY,
				1 / (geo.GeodeticLatitudeToMercatorAngle(north) - southMercatorY),
			}
		}
	}

	tileRect := t.Rectangle
	invWidth, invHeight := 1/tileRect.Width(), 1/tileRect.Height()
	localize := func(r geo.Rectangle) mgl64.Vec4 {
		return mgl64.Vec4{
			(r.West - tileRect.West) * invWidth,
			(r.South - tileRect.South) * invHeight,
			(r.East - tileRect.West) * invWidth,
			(r.North - tileRect.South) * invHeight,
		}
	}
	limit := localize(clipRectangleAntimeridian(tileRect, p.cartographicLimitRectangle))

	applyFog := fs.Fog.Enabled && geo.Fog(t.Distance, fs.Fog.Density) > geo.Epsilon3
	clip := p.clippingPlanes
	clippingEnabled := clip != nil && clip.Enabled && t.IsClipped

	renderState := render.OpaqueRenderState()
	initialColor := p.baseColor
	imageryIndex := 0

	for {
		cmd := p.nextDrawCommand()
		u := cmd.Uniforms
		u.InitialColor = initialColor
		u.RTC = rtc
		u.TileRectangle = tileRectangle
		u.SouthAndNorthLatitude = southAndNorthLatitude
		u.SouthMercatorYAndOneOverHeight = southMercatorYAndOneOverHeight
		u.CartographicLimitRectangle = limit
		u.MinMaxHeight = mgl64.Vec2{mesh.MinimumHeight, mesh.MaximumHeight}

		opts := render.ShaderOptions{
			EnableFog:            applyFog,
			EnableLighting:       p.EnableLighting,
			ShowSkirts:           p.ShowSkirts,
			SceneMode3D:          fs.Mode == scene.Mode3D,
			ClippedByBoundaries:  st.ClippedByBoundaries,
			EnableClippingPlanes: clippingEnabled,
		}

		for u.TextureCount() < maxTextures && imageryIndex < len(st.Imagery) {
			ti := st.Imagery[imageryIndex]
			imageryIndex++
			img := ti.ReadyImagery
			if img == nil || img.Layer().Alpha == 0 {
				continue
			}
			layer := img.Layer()
			p.addDayTexture(u, &opts, tileRect, localize, ti, layer)
			if credit := layer.Provider().Credit(); credit != "" && fs.Credits != nil {
				fs.Credits.AddCredit(credit)
			}
		}
		opts.NumberOfDayTextures = u.TextureCount()

		if clippingEnabled {
			for i := range clip.Len() {
				u.ClippingPlanes = append(u.ClippingPlanes, clip.Get(i).Transform(clip.ModelMatrix).Vec4())
			}
			u.ClippingPlanesEdgeColor = clip.EdgeColor
			u.ClippingPlanesEdgeWidth = clip.EdgeWidth
			opts.UnionClippingRegions = clip.UnionClippingRegions
		}

		cmd.Owner = t
		cmd.Pass = render.PassGlobe
		cmd.RenderState = renderState
		cmd.ShaderProgram = p.shaders.ShaderProgram(opts)
		cmd.Mesh = mesh
		cmd.Count = mesh.IndexCountWithoutSkirts
		if p.ShowSkirts {
			cmd.Count = len(mesh.Indices)
		}
		cmd.Rectangle = tileRect
		cmd.ModelMatrix = modelMatrix
		if fs.Mode.Projected() {
			cmd.BoundingVolume = geo.BoundingSphereFromRectangle2D(tileRect, fs.MapProjection, st.Region.MinimumHeight, st.Region.MaximumHeight)
		} else {
			cmd.BoundingVolume = st.BoundingSphere3D
		}
		fs.Commands.Push(cmd)
		p.Debug.Commands++

		renderState = render.BlendRenderState()
		initialColor = mgl64.Vec4{}
		if imageryIndex >= len(st.Imagery) {
			break
		}
	}
}

func (p *Provider) addDayTexture(u *render.TileUniforms, opts *render.ShaderOptions, tileRect geo.Rectangle,
	localize func(geo.Rectangle) mgl64.Vec4, ti *imagery.TileImagery, layer *imagery.Layer) {
	d := render.DayTexture{
		Texture:             ti.ReadyImagery.Texture,
		TranslationAndScale: ti.TextureTranslationAndScale,
		TexCoordsRectangle:  ti.TextureCoordinateRectangle,
		UseWebMercatorT:     ti.UseWebMercatorT,
		Alpha:               layer.Alpha,
		Brightness:          layer.Brightness,
		Contrast:            layer.Contrast,
		Hue:                 layer.Hue,
		Saturation:          layer.Saturation,
		OneOverGamma:        1 / layer.Gamma,
		Split:               float64(layer.SplitDirection),
		ColorToAlpha:        mgl64.Vec4{0, 0, 0, -1},
	}
	opts.ApplyAlpha = opts.ApplyAlpha || d.Alpha != 1
	opts.ApplyBrightness = opts.ApplyBrightness || d.Brightness != imagery.DefaultBrightness
	opts.ApplyContrast = opts.ApplyContrast || d.Contrast != imagery.DefaultContrast
	opts.ApplyHue = opts.ApplyHue || d.Hue != imagery.DefaultHue
	opts.ApplySaturation = opts.ApplySaturation || d.Saturation != imagery.DefaultSaturation
	opts.ApplyGamma = opts.ApplyGamma || d.OneOverGamma != 1/imagery.DefaultGamma
	opts.ApplySplit = opts.ApplySplit || d.Split != 0

	if r := layer.CutoutRectangle; r != nil {
		cutout := clipRectangleAntimeridian(tileRect, *r)
		if _, ok := cutout.SimpleIntersection(tileRect); ok {
			opts.ApplyCutout = true
		}
		d.CutoutRectangle = localize(cutout)
	}
	if c := layer.ColorToAlpha; c != nil && layer.ColorToAlphaThreshold > 0 {
		d.ColorToAlpha = mgl64.Vec4{c[0], c[1], c[2], layer.ColorToAlphaThreshold}
		opts.ApplyColorToAlpha = true
	}
	u.AddDayTexture(d)
}
