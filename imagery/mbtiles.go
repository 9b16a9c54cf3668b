package imagery

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/gogpu/globe/geo"
)

// MBTilesProvider serves raster tiles from an MBTiles SQLite file.
// Rows are stored in TMS order and flipped on lookup.
type MBTilesProvider struct {
	db       *sql.DB
	scheme   *geo.WebMercatorTilingScheme
	rect     geo.Rectangle
	minLevel int
	maxLevel int
	tileSize int
	credit   string
	metadata map[string]string
}

// OpenMBTiles opens path read-only and reads its metadata table.
func OpenMBTiles(ctx context.Context, path string) (*MBTilesProvider, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("imagery: open mbtiles: %w", err)
	}
	p := &MBTilesProvider{
		db:       db,
		scheme:   geo.NewWebMercatorTilingScheme(geo.WGS84),
		maxLevel: 18,
		tileSize: 256,
		metadata: make(map[string]string),
	}
	p.rect = p.scheme.Rectangle()
	if err := p.readMetadata(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

func (p *MBTilesProvider) readMetadata(ctx context.Context) error {
	rows, err := p.db.QueryContext(ctx, "SELECT name, value FROM metadata")
	if err != nil {
		return fmt.Errorf("imagery: read mbtiles metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return fmt.Errorf("imagery: read mbtiles metadata: %w", err)
		}
		p.metadata[name] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("imagery: read mbtiles metadata: %w", err)
	}

	if v, ok := p.metadata["minzoom"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.minLevel = n
		}
	}
	if v, ok := p.metadata["maxzoom"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			p.maxLevel = n
		}
	}
	if v, ok := p.metadata["bounds"]; ok {
		if r, ok := parseBounds(v); ok {
			if clipped, ok := r.Intersection(p.scheme.Rectangle()); ok {
				p.rect = clipped
			}
		}
	}
	p.credit = p.metadata["attribution"]
	return nil
}

// parseBounds reads "west,south,east,north" in degrees.
func parseBounds(s string) (geo.Rectangle, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.Rectangle{}, false
	}
	var v [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geo.Rectangle{}, false
		}
		v[i] = f
	}
	return geo.RectangleFromDegrees(v[0], v[1], v[2], v[3]), true
}

// Metadata returns a value from the metadata table.
func (p *MBTilesProvider) Metadata(name string) string { return p.metadata[name] }

// Close closes the database.
func (p *MBTilesProvider) Close() error { return p.db.Close() }

func (p *MBTilesProvider) Ready() bool                    { return true }
func (p *MBTilesProvider) TilingScheme() geo.TilingScheme { return p.scheme }
func (p *MBTilesProvider) Rectangle() geo.Rectangle       { return p.rect }
func (p *MBTilesProvider) TileWidth() int                 { return p.tileSize }
func (p *MBTilesProvider) TileHeight() int                { return p.tileSize }
func (p *MBTilesProvider) MinimumLevel() int              { return p.minLevel }
func (p *MBTilesProvider) MaximumLevel() int              { return p.maxLevel }
func (p *MBTilesProvider) Credit() string                 { return p.credit }

func (p *MBTilesProvider) RequestImage(ctx context.Context, x, y, level int) (image.Image, error) {
	row := (1 << level) - 1 - y
	var data []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?",
		level, x, row).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d/%d/%d", ErrTileNotAvailable, level, x, y)
	}
	if err != nil {
		return nil, fmt.Errorf("imagery: query tile %d/%d/%d: %w", level, x, y, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imagery: decode tile %d/%d/%d: %w", level, x, y, err)
	}
	return img, nil
}
