// Package mapload assembles a ROSE map from its per-tile HIM, TIL and IFO
// files. Tiles are read and parsed concurrently; the stitched heightmap,
// brush weight layers and resolved object placements are built afterwards.
package mapload

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/roseimport/internal/config"
	"github.com/Faultbox/roseimport/pkg/formats"
)

// Source provides file contents by ROSE path. *vfs.Source implements it.
type Source interface {
	Contains(name string) bool
	Read(name string) ([]byte, error)
}

// Tile holds the parsed files of one map tile. Height is never nil for a
// loaded tile; Brushes and Objects are nil when their file is absent.
type Tile struct {
	X, Y    int
	Height  *formats.HIM
	Brushes *formats.TIL
	Objects *formats.IFO
}

// Loader loads the tile range described by a MapConfig.
type Loader struct {
	src     Source
	cfg     config.MapConfig
	workers int
	log     *zap.Logger
}

// New returns a Loader. A nil logger discards output.
func New(src Source, cfg config.MapConfig, workers int, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	if workers < 1 {
		workers = 1
	}
	return &Loader{src: src, cfg: cfg, workers: workers, log: log}
}

// Load reads every tile in range plus both object catalogs, then builds the
// terrain layers and placements. Missing tiles are skipped; any parse error
// aborts the load.
func (l *Loader) Load(ctx context.Context) (*Map, error) {
	tilesX, tilesY := l.cfg.TilesX(), l.cfg.TilesY()
	if tilesX < 1 || tilesY < 1 {
		return nil, fmt.Errorf("empty tile range %d,%d..%d,%d",
			l.cfg.StartX, l.cfg.StartY, l.cfg.EndX, l.cfg.EndY)
	}

	tiles := make([]*Tile, tilesX*tilesY)
	var buildings, decorations *formats.ZSC

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	g.Go(func() error {
		var err error
		buildings, err = l.loadCatalog(l.cfg.BuildingCatalog)
		return err
	})
	g.Go(func() error {
		var err error
		decorations, err = l.loadCatalog(l.cfg.DecorationCatalog)
		return err
	})

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			idx := ty*tilesX + tx
			x, y := l.cfg.StartX+tx, l.cfg.StartY+ty
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tile, err := l.loadTile(x, y)
				if err != nil {
					return fmt.Errorf("tile %d_%d: %w", x, y, err)
				}
				tiles[idx] = tile
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := newMap(l.cfg, tiles)
	m.buildTerrain()
	m.Placements = l.resolvePlacements(m.Tiles, buildings, decorations)

	l.log.Info("map loaded",
		zap.String("dir", l.cfg.Dir),
		zap.Int("tiles", m.LoadedTiles()),
		zap.Int("skipped", len(m.Tiles)-m.LoadedTiles()),
		zap.Int("placements", len(m.Placements)),
		zap.Float32("min_height", m.MinHeight),
		zap.Float32("max_height", m.MaxHeight),
	)
	return m, nil
}

func (l *Loader) loadTile(x, y int) (*Tile, error) {
	himPath := l.cfg.TilePath(x, y, "HIM")
	if !l.src.Contains(himPath) {
		l.log.Warn("tile missing, skipping", zap.Int("x", x), zap.Int("y", y), zap.String("path", himPath))
		return nil, nil
	}

	tile := &Tile{X: x, Y: y}
	var err error

	if tile.Height, err = parseFrom(l.src, himPath, formats.ParseHIM); err != nil {
		return nil, err
	}
	if tile.Brushes, err = parseOptional(l, l.cfg.TilePath(x, y, "TIL"), formats.ParseTIL); err != nil {
		return nil, err
	}
	if tile.Objects, err = parseOptional(l, l.cfg.TilePath(x, y, "IFO"), formats.ParseIFO); err != nil {
		return nil, err
	}

	l.log.Debug("tile loaded", zap.Int("x", x), zap.Int("y", y))
	return tile, nil
}

func (l *Loader) loadCatalog(path string) (*formats.ZSC, error) {
	if path == "" {
		return nil, nil
	}
	zsc, err := parseOptional(l, path, formats.ParseZSC)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if zsc != nil {
		l.log.Debug("catalog loaded", zap.String("path", path), zap.Int("models", len(zsc.Models)))
	}
	return zsc, nil
}

func parseFrom[T any](src Source, path string, parse func([]byte) (*T, error)) (*T, error) {
	data, err := src.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", formats.ErrIO, err)
	}
	v, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// parseOptional parses path if it exists and returns nil otherwise.
func parseOptional[T any](l *Loader, path string, parse func([]byte) (*T, error)) (*T, error) {
	if !l.src.Contains(path) {
		l.log.Debug("optional file missing", zap.String("path", path))
		return nil, nil
	}
	return parseFrom(l.src, path, parse)
}
