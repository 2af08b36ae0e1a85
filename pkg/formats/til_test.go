package formats

import (
	"bytes"
	"errors"
	"testing"
)

// createTestTIL builds a 16x16 grid where tile i uses brush(i).
func createTestTIL(brush func(i int) uint8) []byte {
	buf := new(bytes.Buffer)
	writeLE(buf, int32(TILSize), int32(TILSize))
	for i := 0; i < TILSize*TILSize; i++ {
		writeLE(buf, brush(i), uint8(i%4), uint8(1), int32(i))
	}
	return buf.Bytes()
}

func TestParseTIL(t *testing.T) {
	til, err := ParseTIL(createTestTIL(func(i int) uint8 { return uint8(i % NumBrushes) }))
	if err != nil {
		t.Fatalf("ParseTIL failed: %v", err)
	}

	if til.Width != 16 || til.Height != 16 || len(til.Tiles) != 256 {
		t.Fatalf("unexpected grid %dx%d with %d tiles", til.Width, til.Height, len(til.Tiles))
	}

	tile := til.At(5, 2) // index 37
	if tile.Brush != 37%NumBrushes || tile.TileIndex != 1 || tile.TileSet != 1 || tile.TileNumber != 37 {
		t.Errorf("unexpected tile %+v", tile)
	}

	counts := til.BrushCounts()
	for b, c := range counts {
		if c != 32 {
			t.Errorf("brush %d: expected 32 tiles, got %d", b, c)
		}
	}
}

func TestParseTIL_InvalidBrush(t *testing.T) {
	data := createTestTIL(func(i int) uint8 {
		if i == 100 {
			return NumBrushes
		}
		return 0
	})

	_, err := ParseTIL(data)
	if !errors.Is(err, ErrInvalidBrush) {
		t.Errorf("expected ErrInvalidBrush, got %v", err)
	}
}

func TestParseTIL_Errors(t *testing.T) {
	bad := new(bytes.Buffer)
	writeLE(bad, int32(0), int32(16))

	data := createTestTIL(func(int) uint8 { return 0 })

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"zero width", bad.Bytes(), ErrFormat},
		{"truncated header", data[:6], ErrOutOfBounds},
		{"truncated tiles", data[:len(data)-3], ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTIL(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
