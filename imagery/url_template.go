package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/gogpu/globe/geo"
)

const tracerName = "github.com/gogpu/globe/imagery"

// URLTemplateProvider fetches tiles from a URL template such as
// "https://{s}.tile.example.com/{z}/{x}/{y}.png".
//
// Supported tokens are {z}, {x}, {y}, {reverseY} and {s}. Identical
// concurrent requests are merged and an optional limiter bounds the request
// rate.
type URLTemplateProvider struct {
	Reloader

	template   string
	subdomains []string
	client     *http.Client
	header     http.Header

	scheme     geo.TilingScheme
	rect       geo.Rectangle
	rectSet    bool
	tileWidth  int
	tileHeight int
	minLevel   int
	maxLevel   int
	credit     string

	limiter *rate.Limiter
	payload PayloadCache
	group   singleflight.Group

	// generation counts reloads. Payloads cached or in flight under an
	// older generation are not served after a reload.
	generation atomic.Uint64
}

// URLOption configures a URLTemplateProvider.
type URLOption func(*URLTemplateProvider)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) URLOption { return func(p *URLTemplateProvider) { p.client = c } }

// WithRequestHeader adds a header to every request.
func WithRequestHeader(key, value string) URLOption {
	return func(p *URLTemplateProvider) { p.header.Add(key, value) }
}

// WithSubdomains sets the values cycled through {s}.
func WithSubdomains(s ...string) URLOption {
	return func(p *URLTemplateProvider) { p.subdomains = s }
}

// WithTilingScheme overrides the default Web Mercator scheme.
func WithTilingScheme(s geo.TilingScheme) URLOption {
	return func(p *URLTemplateProvider) { p.scheme = s }
}

// WithProviderRectangle limits the provider to r.
func WithProviderRectangle(r geo.Rectangle) URLOption {
	return func(p *URLTemplateProvider) {
		p.rect = r
		p.rectSet = true
	}
}

// WithTileSize sets the pixel size of one tile.
func WithTileSize(w, h int) URLOption {
	return func(p *URLTemplateProvider) { p.tileWidth, p.tileHeight = w, h }
}

// WithLevels sets the available level range.
func WithLevels(lo, hi int) URLOption {
	return func(p *URLTemplateProvider) { p.minLevel, p.maxLevel = lo, hi }
}

// WithProviderCredit sets the attribution.
func WithProviderCredit(credit string) URLOption {
	return func(p *URLTemplateProvider) { p.credit = credit }
}

// WithRateLimit allows at most perSecond requests per second with the
// given burst.
func WithRateLimit(perSecond float64, burst int) URLOption {
	return func(p *URLTemplateProvider) { p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithPayloadCache caches encoded tiles in c.
func WithPayloadCache(c PayloadCache) URLOption {
	return func(p *URLTemplateProvider) { p.payload = c }
}

// NewURLTemplateProvider returns a provider for template.
func NewURLTemplateProvider(template string, opts ...URLOption) *URLTemplateProvider {
	p := &URLTemplateProvider{
		template:   template,
		client:     &http.Client{Timeout: 30 * time.Second},
		header:     make(http.Header),
		scheme:     geo.NewWebMercatorTilingScheme(geo.WGS84),
		tileWidth:  256,
		tileHeight: 256,
		maxLevel:   18,
	}
	for _, opt := range opts {
		opt(p)
	}
	if !p.rectSet {
		p.rect = p.scheme.Rectangle()
	}
	return p
}

func (p *URLTemplateProvider) Ready() bool                    { return true }
func (p *URLTemplateProvider) TilingScheme() geo.TilingScheme { return p.scheme }
func (p *URLTemplateProvider) Rectangle() geo.Rectangle       { return p.rect }
func (p *URLTemplateProvider) TileWidth() int                 { return p.tileWidth }
func (p *URLTemplateProvider) TileHeight() int                { return p.tileHeight }
func (p *URLTemplateProvider) MinimumLevel() int              { return p.minLevel }
func (p *URLTemplateProvider) MaximumLevel() int              { return p.maxLevel }
func (p *URLTemplateProvider) Credit() string                 { return p.credit }

// URL expands the template for a tile.
func (p *URLTemplateProvider) URL(x, y, level int) string {
	reverseY := p.scheme.NumberOfYTilesAtLevel(level) - 1 - y
	pairs := []string{
		"{z}", strconv.Itoa(level),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{reverseY}", strconv.Itoa(reverseY),
	}
	if len(p.subdomains) > 0 {
		pairs = append(pairs, "{s}", p.subdomains[(x+y+level)%len(p.subdomains)])
	}
	return strings.NewReplacer(pairs...).Replace(p.template)
}

// Reload discards cached payloads and runs the reload handlers.
func (p *URLTemplateProvider) Reload() {
	p.generation.Add(1)
	p.Reloader.Reload()
}

// payloadKey names the payload of url in the payload cache and among
// merged requests.
func (p *URLTemplateProvider) payloadKey(url string) string {
	gen := p.generation.Load()
	if gen == 0 {
		return url
	}
	return url + "#" + strconv.FormatUint(gen, 10)
}

func (p *URLTemplateProvider) RequestImage(ctx context.Context, x, y, level int) (image.Image, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "imagery.request",
		trace.WithAttributes(
			attribute.Int("tile.level", level),
			attribute.Int("tile.x", x),
			attribute.Int("tile.y", y),
		))
	defer span.End()

	url := p.URL(x, y, level)
	key := p.payloadKey(url)
	v, err, shared := p.group.Do(key, func() (any, error) {
		return p.payloadFor(ctx, url, key)
	})
	span.SetAttributes(attribute.Bool("request.shared", shared))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(v.([]byte)))
	if err != nil {
		err = fmt.Errorf("imagery: decode %s: %w", url, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return img, nil
}

func (p *URLTemplateProvider) payloadFor(ctx context.Context, url, key string) ([]byte, error) {
	if p.payload != nil {
		if b, ok := p.payload.Get(ctx, key); ok {
			return b, nil
		}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("imagery: build request: %w", err)
	}
	for k, vs := range p.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagery: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return nil, fmt.Errorf("%w: %s", ErrTileNotAvailable, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("imagery: request %s: status %s", url, resp.Status)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagery: read %s: %w", url, err)
	}
	if p.payload != nil {
		p.payload.Set(ctx, key, b)
	}
	return b, nil
}
