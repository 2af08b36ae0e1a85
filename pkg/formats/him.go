package formats

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/roseimport/pkg/binreader"
)

// Heightmap constants.
const (
	HIMSize = 65 // samples per side of a map tile

	HeightMin    = -25600.0
	HeightMax    = 25600.0
	LandscapeMax = 65535.0
)

// ErrHIMSize reports a header that disagrees with the expected grid size.
var ErrHIMSize = fmt.Errorf("%w: unexpected HIM dimensions", ErrFormat)

// HIM represents a parsed heightmap. Heights are row-major.
type HIM struct {
	Width     int
	Height    int
	GridCount int32
	GridSize  float32
	Heights   []float32
}

// At returns the sample at column x, row y.
func (h *HIM) At(x, y int) float32 {
	return h.Heights[y*h.Width+x]
}

// MinMax returns the lowest and highest samples.
func (h *HIM) MinMax() (lo, hi float32) {
	if len(h.Heights) == 0 {
		return 0, 0
	}
	lo, hi = h.Heights[0], h.Heights[0]
	for _, v := range h.Heights[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// ParseHIM parses a standard 65x65 heightmap.
func ParseHIM(data []byte) (*HIM, error) {
	return ParseHIMSize(data, HIMSize, HIMSize)
}

// ParseHIMSize parses a heightmap whose header must declare width x height.
func ParseHIMSize(data []byte, width, height int) (*HIM, error) {
	r := binreader.New(data)

	w, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading width: %w", err)
	}
	h, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading height: %w", err)
	}
	if int(w) != width || int(h) != height {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrHIMSize, w, h, width, height)
	}

	him := &HIM{Width: width, Height: height}
	if him.GridCount, err = r.Int32(); err != nil {
		return nil, fmt.Errorf("reading grid count: %w", err)
	}
	if him.GridSize, err = r.Float32(); err != nil {
		return nil, fmt.Errorf("reading grid size: %w", err)
	}

	n := width * height
	if err := r.Fits(n, 4); err != nil {
		return nil, fmt.Errorf("reading heights: %w", err)
	}
	if him.Heights, err = binreader.Array(r, n, binreader.ReadFloat32); err != nil {
		return nil, fmt.Errorf("reading heights: %w", err)
	}
	return him, nil
}

// ParseHIMFile parses a HIM file from disk.
func ParseHIMFile(path string) (*HIM, error) {
	return parseFile("HIM", path, ParseHIM)
}

// NormalizeHeight maps a raw height in [HeightMin, HeightMax] linearly onto
// [0, LandscapeMax]. Values outside the range extrapolate.
func NormalizeHeight(h float32) float32 {
	return float32((float64(h) - HeightMin) / (HeightMax - HeightMin) * LandscapeMax)
}

// DenormalizeHeight is the inverse of NormalizeHeight.
func DenormalizeHeight(v float32) float32 {
	return float32(float64(v)/LandscapeMax*(HeightMax-HeightMin) + HeightMin)
}

// HeightToLandscape converts a raw height to a 16-bit landscape sample,
// clamping out-of-range heights.
func HeightToLandscape(h float32) uint16 {
	v := stdmath.Round(float64(NormalizeHeight(h)))
	return uint16(max(0, min(LandscapeMax, v)))
}
