package mapload

import (
	"github.com/Faultbox/roseimport/internal/config"
	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// Terrain layout constants. A map tile is 16x16 TIL cells of 4x4 height
// quads, so its 65x65 heightmap shares one edge row and column with each
// neighbour.
const (
	QuadsPerCell   = 4
	CellsPerTile   = formats.TILSize
	QuadsPerTile   = QuadsPerCell * CellsPerTile // 64
	ComponentQuads = 63

	// FlatHeight is the landscape value for unloaded terrain (height 0).
	FlatHeight = 0x8000

	// BrushWeight is written into a brush layer under every cell using it.
	BrushWeight = 50

	// QuadSize is the world size of one height quad in centimetres.
	QuadSize = 250
	// TileWorldSize is the world size of one map tile in centimetres.
	TileWorldSize = QuadSize * QuadsPerTile // 16000
	// centreTile is the tile whose centre sits at the world origin.
	centreTile = 32
)

// Map is a loaded tile range.
type Map struct {
	Config config.MapConfig

	// Tiles is row-major over the configured range; skipped tiles are nil.
	Tiles  []*Tile
	TilesX int
	TilesY int

	// Width and Height are the landscape sample dimensions, padded up to a
	// whole number of 63-quad components plus one.
	Width  int
	Height int

	// Heights holds 16-bit landscape samples (see formats.HeightToLandscape).
	Heights []uint16
	// Weights holds one layer per brush, same dimensions as Heights.
	Weights [formats.NumBrushes][]uint8

	MinHeight float32
	MaxHeight float32

	Placements []Placement
}

func newMap(cfg config.MapConfig, tiles []*Tile) *Map {
	m := &Map{
		Config: cfg,
		Tiles:  tiles,
		TilesX: cfg.TilesX(),
		TilesY: cfg.TilesY(),
	}
	m.Width = landscapeSize(m.TilesX)
	m.Height = landscapeSize(m.TilesY)
	return m
}

// landscapeSize pads the quad count of n tiles to whole components.
func landscapeSize(n int) int {
	quads := QuadsPerTile * n
	return (quads/ComponentQuads+1)*ComponentQuads + 1
}

// Tile returns the tile at map coordinates (x, y), or nil.
func (m *Map) Tile(x, y int) *Tile {
	tx, ty := x-m.Config.StartX, y-m.Config.StartY
	if tx < 0 || ty < 0 || tx >= m.TilesX || ty >= m.TilesY {
		return nil
	}
	return m.Tiles[ty*m.TilesX+tx]
}

// LoadedTiles returns the number of tiles that were found.
func (m *Map) LoadedTiles() int {
	n := 0
	for _, t := range m.Tiles {
		if t != nil {
			n++
		}
	}
	return n
}

// Origin returns the world position of landscape sample (0, 0), in
// centimetres.
func (m *Map) Origin() math.Vec3 {
	return math.Vec3{
		X: float32((m.Config.StartX-centreTile)*TileWorldSize - TileWorldSize/2),
		Y: float32((m.Config.StartY-centreTile)*TileWorldSize - TileWorldSize/2),
	}
}

// HeightAt returns the landscape sample at (x, y).
func (m *Map) HeightAt(x, y int) uint16 {
	return m.Heights[y*m.Width+x]
}

func (m *Map) buildTerrain() {
	m.Heights = make([]uint16, m.Width*m.Height)
	for i := range m.Heights {
		m.Heights[i] = FlatHeight
	}
	for b := range m.Weights {
		m.Weights[b] = make([]uint8, m.Width*m.Height)
	}

	first := true
	for _, t := range m.Tiles {
		if t == nil {
			continue
		}
		tx, ty := t.X-m.Config.StartX, t.Y-m.Config.StartY
		if t.Brushes != nil {
			m.paintBrushes(t.Brushes, tx, ty)
		}
		lo, hi := m.stitchHeights(t.Height, tx, ty)
		if first || lo < m.MinHeight {
			m.MinHeight = lo
		}
		if first || hi > m.MaxHeight {
			m.MaxHeight = hi
		}
		first = false
	}
}

// stitchHeights copies one tile's heightmap into the landscape. Edge rows
// overlap the neighbour's; the later tile wins.
func (m *Map) stitchHeights(him *formats.HIM, tx, ty int) (lo, hi float32) {
	baseX, baseY := tx*QuadsPerTile, ty*QuadsPerTile
	for sy := 0; sy < him.Height; sy++ {
		for sx := 0; sx < him.Width; sx++ {
			ox, oy := baseX+sx, baseY+sy
			if ox >= m.Width || oy >= m.Height {
				continue
			}
			m.Heights[oy*m.Width+ox] = formats.HeightToLandscape(him.At(sx, sy))
		}
	}
	return him.MinMax()
}

// paintBrushes stamps each cell's brush onto a 5x5 block of its layer,
// overlapping the next cell by one sample so layers blend at the seams.
func (m *Map) paintBrushes(til *formats.TIL, tx, ty int) {
	cellX, cellY := tx*CellsPerTile, ty*CellsPerTile
	for sy := 0; sy < til.Height; sy++ {
		for sx := 0; sx < til.Width; sx++ {
			layer := m.Weights[til.At(sx, sy).Brush]
			for py := 0; py <= QuadsPerCell; py++ {
				for px := 0; px <= QuadsPerCell; px++ {
					x := (cellX+sx)*QuadsPerCell + px
					y := (cellY+sy)*QuadsPerCell + py
					if x >= m.Width || y >= m.Height {
						continue
					}
					layer[y*m.Width+x] = BrushWeight
				}
			}
		}
	}
}
