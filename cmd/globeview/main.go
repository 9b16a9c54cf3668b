// Command globeview loads the globe surface for one camera position and
// writes a flat preview of the selected tiles as a PNG.
//
// Configuration comes from a .env file, the environment and flags, in
// increasing order of precedence:
//
//	GLOBE_TERRAIN_URL   heightmap tile template, empty for flat terrain
//	GLOBE_IMAGERY_URL   XYZ imagery tile template
//	GLOBE_MBTILES       MBTiles imagery file
//	GLOBE_REDIS_ADDR    redis address caching imagery payloads
//	GLOBE_METRICS_ADDR  address serving /metrics while loading
//	LOG_LEVEL           debug, info, warn or error
//	LOG_FORMAT          text or json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/globe"
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/imagery"
	"github.com/gogpu/globe/internal/metrics"
	"github.com/gogpu/globe/render"
	"github.com/gogpu/globe/scene"
	"github.com/gogpu/globe/terrain"
)

type config struct {
	terrainURL  string
	imageryURL  string
	mbtiles     string
	imagePath   string
	redisAddr   string
	metricsAddr string

	lon, lat, height float64
	width, heightPx  int
	sse              float64
	maxFrames        int
	timeout          time.Duration
	output           string
	outline          bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.terrainURL, "terrain", envOr("GLOBE_TERRAIN_URL", ""), "heightmap tile URL template, empty for flat terrain")
	flag.StringVar(&c.imageryURL, "imagery", envOr("GLOBE_IMAGERY_URL", ""), "XYZ imagery tile URL template")
	flag.StringVar(&c.mbtiles, "mbtiles", envOr("GLOBE_MBTILES", ""), "MBTiles imagery file")
	flag.StringVar(&c.imagePath, "image", "", "image stretched over the whole globe")
	flag.StringVar(&c.redisAddr, "redis", envOr("GLOBE_REDIS_ADDR", ""), "redis address for the imagery payload cache")
	flag.StringVar(&c.metricsAddr, "metrics", envOr("GLOBE_METRICS_ADDR", ""), "address serving /metrics, empty to disable")
	flag.Float64Var(&c.lon, "lon", 0, "camera longitude in degrees")
	flag.Float64Var(&c.lat, "lat", 0, "camera latitude in degrees")
	flag.Float64Var(&c.height, "alt", 2e7, "camera height in meters")
	flag.IntVar(&c.width, "width", 1024, "viewport and preview width")
	flag.IntVar(&c.heightPx, "height", 512, "viewport and preview height")
	flag.Float64Var(&c.sse, "sse", 2, "maximum screen space error in pixels")
	flag.IntVar(&c.maxFrames, "frames", 10000, "frame limit")
	flag.DurationVar(&c.timeout, "timeout", 2*time.Minute, "time limit for loading")
	flag.StringVar(&c.output, "output", "globe.png", "output PNG file")
	flag.BoolVar(&c.outline, "outline", true, "draw tile borders")
	flag.Parse()
	return c
}

// setupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func setupLogger() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

func main() {
	_ = godotenv.Load(".env")
	l := setupLogger()
	globe.SetLogger(l)
	c := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, c, l); err != nil {
		l.Error("globeview failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c config, l *slog.Logger) error {
	layers, closeLayers, err := buildLayers(ctx, c, l)
	if err != nil {
		return err
	}
	defer closeLayers()

	opts := []globe.Option{
		globe.WithImageryLayers(layers),
		globe.WithMaximumScreenSpaceError(c.sse),
	}
	if c.terrainURL != "" {
		opts = append(opts, globe.WithTerrainProvider(terrain.NewHTTPProvider(c.terrainURL)))
	}
	g, err := globe.New(opts...)
	if err != nil {
		return err
	}
	defer g.Destroy()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	loaded := make(chan struct{})
	if c.metricsAddr != "" {
		srv := &http.Server{Addr: c.metricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			l.Info("metrics listening", "addr", c.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			select {
			case <-ctx.Done():
			case <-loaded:
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	fs := newFrameState(c)
	eg.Go(func() error {
		defer close(loaded)
		return loadFrames(ctx, g, fs, c.maxFrames, l)
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := compileShaders(*fs.Commands, l); err != nil {
		return err
	}
	return writePreview(c, fs, l)
}

// compileShaders compiles every shader variant the frame uses.
func compileShaders(cmds render.CommandList, l *slog.Logger) error {
	seen := make(map[*render.ShaderProgram]bool)
	for _, cmd := range cmds {
		if cmd.ShaderProgram == nil || seen[cmd.ShaderProgram] {
			continue
		}
		seen[cmd.ShaderProgram] = true
		words, err := cmd.ShaderProgram.SPIRV()
		if err != nil {
			return err
		}
		l.Debug("shader variant compiled", "textures", cmd.ShaderProgram.Options.NumberOfDayTextures, "words", len(words))
	}
	l.Info("shader variants compiled", "count", len(seen))
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func newFrameState(c config) *scene.FrameState {
	cam := scene.NewCamera(c.width, c.heightPx)
	cam.LookDown(geo.WGS84, geo.CartographicFromDegrees(c.lon, c.lat, c.height))
	return scene.NewFrameState(cam, c.width, c.heightPx)
}

// loadFrames steps the globe until every tile the camera needs is loaded.
func loadFrames(ctx context.Context, g *globe.Globe, fs *scene.FrameState, maxFrames int, l *slog.Logger) error {
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	start := time.Now()
	for frame := 1; frame <= maxFrames; frame++ {
		g.Update(fs)
		if g.TilesLoaded() {
			q := g.Quadtree()
			l.Info("tiles loaded",
				"frames", frame,
				"elapsed", time.Since(start).Round(time.Millisecond),
				"rendered", q.Debug.TilesRendered,
				"maxDepth", q.Debug.MaxDepth,
				"resident", q.ReplacementQueue().Count(),
				"commands", len(*fs.Commands))
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("loading tiles: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return fmt.Errorf("tiles not loaded after %d frames", maxFrames)
}

// buildLayers assembles the imagery layers named by c, bottom first: a
// local image, then MBTiles, then XYZ tiles.
func buildLayers(ctx context.Context, c config, l *slog.Logger) (*imagery.Collection, func(), error) {
	layers := imagery.NewCollection()
	var closers []func()
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	if c.imagePath != "" {
		img, err := decodeImage(c.imagePath)
		if err != nil {
			return nil, closeAll, err
		}
		layers.AddProvider(imagery.NewSingleTileProvider(img, geo.MaxValue, ""))
	}
	if c.mbtiles != "" {
		p, err := imagery.OpenMBTiles(ctx, c.mbtiles)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open mbtiles: %w", err)
		}
		closers = append(closers, func() { _ = p.Close() })
		layers.AddProvider(p)
	}
	if c.imageryURL != "" {
		var urlOpts []imagery.URLOption
		if c.redisAddr != "" {
			rc := redis.NewClient(&redis.Options{Addr: c.redisAddr})
			closers = append(closers, func() { _ = rc.Close() })
			if err := rc.Ping(ctx).Err(); err != nil {
				l.Warn("redis unreachable, imagery payloads are not cached", "addr", c.redisAddr, "err", err)
			} else {
				urlOpts = append(urlOpts, imagery.WithPayloadCache(imagery.NewRedisPayloadCache(rc, "globe:imagery:", time.Hour)))
			}
		}
		layers.AddProvider(imagery.NewURLTemplateProvider(c.imageryURL, urlOpts...))
	}
	l.Debug("imagery layers", "count", layers.Len())
	return layers, closeAll, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func writePreview(c config, fs *scene.FrameState, l *slog.Logger) error {
	p := render.NewPreview(c.width, c.heightPx, geo.MaxValue)
	p.Outline = c.outline
	p.Render(*fs.Commands)

	f, err := os.Create(c.output)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := png.Encode(f, p.Target().Image()); err != nil {
		f.Close()
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close preview: %w", err)
	}
	l.Info("preview written", "path", c.output, "credits", strings.Join(fs.Credits.Credits(), "; "))
	return nil
}
