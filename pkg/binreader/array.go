package binreader

import "fmt"

// CountWidth is the encoded size of an array count prefix.
type CountWidth int

// Count prefix widths used by ROSE formats.
const (
	Count8  CountWidth = 1
	Count16 CountWidth = 2
	Count32 CountWidth = 4
)

// Count reads an unsigned count prefix of the given width.
func (r *Reader) Count(width CountWidth) (int, error) {
	switch width {
	case Count8:
		v, err := r.Uint8()
		return int(v), err
	case Count16:
		v, err := r.Uint16()
		return int(v), err
	case Count32:
		v, err := r.Uint32()
		if err != nil {
			return 0, err
		}
		if v > uint32(r.Remaining()) {
			// Every element takes at least one byte.
			r.off -= 4
			return 0, fmt.Errorf("%w: count %d at offset %d exceeds remaining %d bytes",
				ErrOutOfBounds, v, r.off, r.Remaining()-4)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("unsupported count width %d", width)
	}
}

// Array reads n elements with read.
func Array[T any](r *Reader, n int, read func(*Reader) (T, error)) ([]T, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative element count %d", ErrOutOfBounds, n)
	}
	out := make([]T, 0, min(n, r.Remaining()+1))
	for i := 0; i < n; i++ {
		v, err := read(r)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// CountedArray reads a count prefix of the given width followed by that many
// elements.
func CountedArray[T any](r *Reader, width CountWidth, read func(*Reader) (T, error)) ([]T, error) {
	n, err := r.Count(width)
	if err != nil {
		return nil, err
	}
	return Array(r, n, read)
}

// Element readers usable with Array and CountedArray.
var (
	ReadUint16  = (*Reader).Uint16
	ReadInt16   = (*Reader).Int16
	ReadInt32   = (*Reader).Int32
	ReadFloat32 = (*Reader).Float32
	ReadCString = (*Reader).CString
	ReadVec2    = (*Reader).Vec2
	ReadVec3    = (*Reader).Vec3
)
