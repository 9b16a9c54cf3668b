package surface

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/globe/internal/fetch"
	"github.com/gogpu/globe/internal/logging"
	"github.com/gogpu/globe/internal/metrics"
	"github.com/gogpu/globe/quadtree"
	"github.com/gogpu/globe/terrain"
)

// maximumSkirtHeight caps the skirt hung below tile edges, in meters.
const maximumSkirtHeight = 1000.0

type terrainState int

// The order matters: every state from terrainReceived on has data.
const (
	terrainFailed terrainState = iota
	terrainUnloaded
	terrainReceiving
	terrainReceived
	terrainTransforming
	terrainTransformed
	terrainReady
)

func (s terrainState) String() string {
	switch s {
	case terrainFailed:
		return "Failed"
	case terrainUnloaded:
		return "Unloaded"
	case terrainReceiving:
		return "Receiving"
	case terrainReceived:
		return "Received"
	case terrainTransforming:
		return "Transforming"
	case terrainTransformed:
		return "Transformed"
	case terrainReady:
		return "Ready"
	default:
		return fmt.Sprintf("terrainState(%d)", int(s))
	}
}

// upsampleSource is the ancestor terrain a tile is upsampled from.
type upsampleSource struct {
	data        terrain.Data
	x, y, level int
}

// tileTerrain drives one tile's terrain from request (or upsampling) to a
// mesh. A tile may run two at once: its own data, and data upsampled from
// an ancestor to draw until its own arrives.
type tileTerrain struct {
	state  terrainState
	data   terrain.Data
	mesh   *terrain.Mesh
	source *upsampleSource
	cancel context.CancelFunc
}

func newTileTerrain(source *upsampleSource) *tileTerrain {
	return &tileTerrain{state: terrainUnloaded, source: source}
}

func (tt *tileTerrain) hasData() bool { return tt.state >= terrainReceived }

// busy reports whether a step is running on a fetch worker.
func (tt *tileTerrain) busy() bool {
	return tt.state == terrainReceiving || tt.state == terrainTransforming
}

func (tt *tileTerrain) freeResources() {
	if tt.cancel != nil {
		tt.cancel()
		tt.cancel = nil
	}
	tt.data = nil
	tt.mesh = nil
}

func (tt *tileTerrain) processLoadStateMachine(p *Provider, t *quadtree.Tile) {
	if tt.state == terrainUnloaded {
		tt.requestTileGeometry(p, t)
	}
	if tt.state == terrainReceived {
		tt.transform(p, t)
	}
	if tt.state == terrainTransformed {
		tt.state = terrainReady
	}
}

func (tt *tileTerrain) processUpsampleStateMachine(p *Provider, t *quadtree.Tile) {
	if tt.state == terrainUnloaded {
		tt.upsample(p, t)
	}
	if tt.state == terrainReceived {
		tt.transform(p, t)
	}
	if tt.state == terrainTransformed {
		tt.state = terrainReady
	}
}

func (tt *tileTerrain) requestTileGeometry(p *Provider, t *quadtree.Tile) {
	tp := p.terrainProvider
	x, y, level := t.X, t.Y, t.Level
	runStep(p, tt, t, terrainReceiving, "terrain",
		func(ctx context.Context) (terrain.Data, error) {
			return tp.RequestTileGeometry(ctx, x, y, level)
		},
		func(d terrain.Data) bool {
			if d == nil {
				return false
			}
			tt.data = d
			tt.state = terrainReceived
			return true
		})
}

func (tt *tileTerrain) upsample(p *Provider, t *quadtree.Tile) {
	src := tt.source
	scheme := p.terrainProvider.TilingScheme()
	x, y, level := t.X, t.Y, t.Level
	runStep(p, tt, t, terrainReceiving, "upsample",
		func(ctx context.Context) (terrain.Data, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return src.data.Upsample(scheme, src.x, src.y, src.level, x, y, level)
		},
		func(d terrain.Data) bool {
			if d == nil {
				return false
			}
			tt.data = d
			tt.state = terrainReceived
			return true
		})
}

func (tt *tileTerrain) transform(p *Provider, t *quadtree.Tile) {
	data := tt.data
	scheme := p.terrainProvider.TilingScheme()
	skirt := math.Min(p.terrainProvider.LevelMaximumGeometricError(t.Level)*4, maximumSkirtHeight)
	x, y, level := t.X, t.Y, t.Level
	runStep(p, tt, t, terrainTransforming, "mesh",
		func(ctx context.Context) (*terrain.Mesh, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return data.CreateMesh(scheme, x, y, level, skirt)
		},
		func(m *terrain.Mesh) bool {
			if m == nil {
				return false
			}
			tt.mesh = m
			tt.state = terrainTransformed
			return true
		})
}

// runStep puts tt in pending and runs work on the provider's scheduler.
// The result is applied on the frame thread unless the tile was freed or
// the terrain provider replaced in the meantime. When the scheduler is
// saturated, or apply rejects a throttled result, tt goes back to the
// state it was in and the step is retried on a later frame.
func runStep[T any](p *Provider, tt *tileTerrain, t *quadtree.Tile, pending terrainState, kind string,
	work func(context.Context) (T, error), apply func(T) bool) {
	ctx, cancel := context.WithCancel(p.ctx)
	prev := tt.state
	tt.state = pending
	tt.cancel = cancel
	start := time.Now()

	ok := fetch.Go(p.scheduler, ctx, work, func(ctx context.Context, v T, err error) {
		if ctx.Err() != nil {
			return
		}
		cancel()
		tt.cancel = nil
		metrics.FetchDurationMs.WithLabelValues(kind).Observe(float64(time.Since(start).Milliseconds()))

		switch {
		case err != nil:
			tt.state = terrainFailed
			metrics.TilesFailedTotal.Inc()
			if errors.Is(err, terrain.ErrTileNotFound) {
				logging.L().Debug("surface: terrain tile not found", "tile", t, "step", kind)
				return
			}
			logging.L().Warn("surface: terrain step failed", "tile", t, "step", kind, "err", err)
		case !apply(v):
			tt.state = prev
		}
	})
	if !ok {
		cancel()
		tt.cancel = nil
		tt.state = prev
	}
}
