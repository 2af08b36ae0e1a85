package formats

import (
	"fmt"

	"github.com/Faultbox/roseimport/pkg/binreader"
)

// Tile info constants.
const (
	TILSize    = 16 // tiles per side of a map tile
	NumBrushes = 8
)

// ErrInvalidBrush reports a tile whose brush id is not below NumBrushes.
var ErrInvalidBrush = fmt.Errorf("%w: TIL brush out of range", ErrFormat)

// Tile is one cell of the brush grid.
type Tile struct {
	Brush      uint8
	TileIndex  uint8
	TileSet    uint8
	TileNumber int32
}

// TIL represents a parsed tile grid. Tiles are row-major.
type TIL struct {
	Width  int
	Height int
	Tiles  []Tile
}

// At returns the tile at column x, row y.
func (t *TIL) At(x, y int) Tile {
	return t.Tiles[y*t.Width+x]
}

// BrushCounts returns how many tiles use each brush.
func (t *TIL) BrushCounts() [NumBrushes]int {
	var counts [NumBrushes]int
	for _, tile := range t.Tiles {
		counts[tile.Brush]++
	}
	return counts
}

// ParseTIL parses a TIL tile grid from raw bytes.
func ParseTIL(data []byte) (*TIL, error) {
	r := binreader.New(data)

	w, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading width: %w", err)
	}
	h, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading height: %w", err)
	}
	if w <= 0 || h <= 0 || w > 1024 || h > 1024 {
		return nil, formatErrorf("invalid TIL dimensions %dx%d", w, h)
	}

	til := &TIL{Width: int(w), Height: int(h)}
	n := til.Width * til.Height
	if err := r.Fits(n, 7); err != nil {
		return nil, fmt.Errorf("reading tiles: %w", err)
	}

	til.Tiles = make([]Tile, n)
	for i := range til.Tiles {
		tile, err := parseTile(r)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		if tile.Brush >= NumBrushes {
			return nil, fmt.Errorf("%w: tile %d uses brush %d", ErrInvalidBrush, i, tile.Brush)
		}
		til.Tiles[i] = tile
	}
	return til, nil
}

func parseTile(r *binreader.Reader) (Tile, error) {
	var t Tile
	var err error
	if t.Brush, err = r.Uint8(); err != nil {
		return t, err
	}
	if t.TileIndex, err = r.Uint8(); err != nil {
		return t, err
	}
	if t.TileSet, err = r.Uint8(); err != nil {
		return t, err
	}
	if t.TileNumber, err = r.Int32(); err != nil {
		return t, err
	}
	return t, nil
}

// ParseTILFile parses a TIL file from disk.
func ParseTILFile(path string) (*TIL, error) {
	return parseFile("TIL", path, ParseTIL)
}
