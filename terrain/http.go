package terrain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/globe/geo"
)

const tracerName = "github.com/gogpu/globe/terrain"

// HTTPProvider fetches heightmap-1.0 tiles from a URL template.
//
// The template may contain {z}, {x}, {y} and {reverseY}; {reverseY} counts
// rows from the south edge as TMS servers do.
type HTTPProvider struct {
	template       string
	client         *http.Client
	scheme         geo.TilingScheme
	levelZeroError float64
	credit         string
	header         http.Header
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = c }
}

// WithCredit sets the attribution shown while this terrain is in use.
func WithCredit(credit string) HTTPOption {
	return func(p *HTTPProvider) { p.credit = credit }
}

// WithHeader adds a request header, for example an access token.
func WithHeader(key, value string) HTTPOption {
	return func(p *HTTPProvider) { p.header.Add(key, value) }
}

// WithTilingScheme overrides the default geographic scheme.
func WithTilingScheme(s geo.TilingScheme) HTTPOption {
	return func(p *HTTPProvider) { p.scheme = s }
}

// NewHTTPProvider creates a provider for the given URL template.
func NewHTTPProvider(template string, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		template: template,
		client:   http.DefaultClient,
		scheme:   geo.NewGeographicTilingScheme(geo.WGS84),
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.levelZeroError = EstimatedLevelZeroGeometricError(p.scheme.Ellipsoid(), HeightmapSize, p.scheme.NumberOfXTilesAtLevel(0))
	return p
}

func (p *HTTPProvider) Ready() bool                    { return true }
func (p *HTTPProvider) TilingScheme() geo.TilingScheme { return p.scheme }
func (p *HTTPProvider) Credit() string                 { return p.credit }

func (p *HTTPProvider) LevelMaximumGeometricError(level int) float64 {
	return p.levelZeroError / float64(int64(1)<<level)
}

// TileDataAvailable is unknown for heightmap services; availability comes
// from each parent's child mask.
func (p *HTTPProvider) TileDataAvailable(x, y, level int) (bool, bool) {
	return false, false
}

// URL expands the template for a tile.
func (p *HTTPProvider) URL(x, y, level int) string {
	reverseY := p.scheme.NumberOfYTilesAtLevel(level) - 1 - y
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(level),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{reverseY}", strconv.Itoa(reverseY),
	)
	return r.Replace(p.template)
}

func (p *HTTPProvider) RequestTileGeometry(ctx context.Context, x, y, level int) (Data, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "terrain.request",
		trace.WithAttributes(
			attribute.Int("tile.level", level),
			attribute.Int("tile.x", x),
			attribute.Int("tile.y", y),
		))
	defer span.End()

	data, err := p.fetch(ctx, x, y, level)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return data, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, x, y, level int) (Data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(x, y, level), nil)
	if err != nil {
		return nil, fmt.Errorf("terrain: build request: %w", err)
	}
	for k, vs := range p.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("terrain: request %d/%d/%d: %w", level, x, y, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrTileNotFound, level, x, y)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("terrain: request %d/%d/%d: status %s", level, x, y, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("terrain: read %d/%d/%d: %w", level, x, y, err)
	}
	body, err = decompress(body)
	if err != nil {
		return nil, err
	}
	return ParseHeightmap(body)
}

// decompress inflates gzip payloads. Servers often store terrain gzipped
// without setting Content-Encoding, so the magic bytes decide.
func decompress(b []byte) ([]byte, error) {
	if len(b) < 2 || b[0] != 0x1f || b[1] != 0x8b {
		return b, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeightmap, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeightmap, err)
	}
	return out, nil
}
