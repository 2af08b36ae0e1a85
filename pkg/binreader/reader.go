// Package binreader provides a bounds-checked little-endian cursor over an
// in-memory byte buffer. Every ROSE format parser is built on it.
package binreader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/roseimport/pkg/encoding"
	rmath "github.com/Faultbox/roseimport/pkg/math"
)

// ErrOutOfBounds is returned when a read would pass the end of the buffer.
var ErrOutOfBounds = errors.New("read out of bounds")

// Reader is a sequential cursor over a fixed byte buffer.
// A failed read does not advance the cursor.
type Reader struct {
	data []byte
	off  int
}

// New returns a Reader positioned at the start of data.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Len returns the total buffer size.
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// need checks that n more bytes are available.
func (r *Reader) need(n int) error {
	if n < 0 || n > len(r.data)-r.off {
		return fmt.Errorf("%w: need %d bytes at offset %d, buffer size %d",
			ErrOutOfBounds, n, r.off, len(r.data))
	}
	return nil
}

// Fits checks that count elements of size bytes each can still be read.
// Parsers call it before allocating arrays sized by untrusted counts.
func (r *Reader) Fits(count, size int) error {
	if count < 0 {
		return fmt.Errorf("%w: negative element count %d at offset %d", ErrOutOfBounds, count, r.off)
	}
	if size > 0 && count > r.Remaining()/size {
		return fmt.Errorf("%w: %d elements of %d bytes at offset %d, %d bytes left",
			ErrOutOfBounds, count, size, r.off, r.Remaining())
	}
	return nil
}

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.data) {
		return fmt.Errorf("%w: seek to %d, buffer size %d", ErrOutOfBounds, off, len(r.data))
	}
	r.off = off
	return nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

// Bytes returns the next n bytes. The slice aliases the underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Sub returns a Reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int) (*Reader, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Uint8 reads one unsigned byte.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// Int8 reads one signed byte.
func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

// Int16 reads a little-endian int16.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Uint32 reads a little-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

// Int32 reads a little-endian int32.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Float32 reads a little-endian IEEE-754 float.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// FixedString reads an n-byte null-padded field and decodes it from EUC-KR.
func (r *Reader) FixedString(n int) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return encoding.FixedStringToUTF8(b), nil
}

// CString reads a null-terminated string and decodes it from EUC-KR.
// The terminator is consumed.
func (r *Reader) CString() (string, error) {
	idx := bytes.IndexByte(r.data[r.off:], 0)
	if idx < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrOutOfBounds, r.off)
	}
	s := encoding.EUCKRToUTF8(r.data[r.off : r.off+idx])
	r.off += idx + 1
	return s, nil
}

// LString8 reads a string prefixed by a uint8 length.
func (r *Reader) LString8() (string, error) {
	start := r.off
	n, err := r.Uint8()
	if err != nil {
		return "", err
	}
	return r.lstring(start, int(n))
}

// LString16 reads a string prefixed by a uint16 length.
func (r *Reader) LString16() (string, error) {
	start := r.off
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	return r.lstring(start, int(n))
}

// LString32 reads a string prefixed by a uint32 length.
func (r *Reader) LString32() (string, error) {
	start := r.off
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.off = start
		return "", fmt.Errorf("%w: string of %d bytes at offset %d", ErrOutOfBounds, n, start)
	}
	return r.lstring(start, int(n))
}

func (r *Reader) lstring(start, n int) (string, error) {
	s, err := r.FixedString(n)
	if err != nil {
		r.off = start
		return "", err
	}
	return s, nil
}

// Vec2 reads two float32 values.
func (r *Reader) Vec2() (rmath.Vec2, error) {
	if err := r.need(8); err != nil {
		return rmath.Vec2{}, err
	}
	x, _ := r.Float32()
	y, _ := r.Float32()
	return rmath.Vec2{X: x, Y: y}, nil
}

// Vec3 reads three float32 values.
func (r *Reader) Vec3() (rmath.Vec3, error) {
	if err := r.need(12); err != nil {
		return rmath.Vec3{}, err
	}
	x, _ := r.Float32()
	y, _ := r.Float32()
	z, _ := r.Float32()
	return rmath.Vec3{X: x, Y: y, Z: z}, nil
}

// Vec4 reads four float32 values.
func (r *Reader) Vec4() (rmath.Vec4, error) {
	if err := r.need(16); err != nil {
		return rmath.Vec4{}, err
	}
	x, _ := r.Float32()
	y, _ := r.Float32()
	z, _ := r.Float32()
	w, _ := r.Float32()
	return rmath.Vec4{X: x, Y: y, Z: z, W: w}, nil
}

// QuatWXYZ reads a quaternion stored scalar-first.
func (r *Reader) QuatWXYZ() (rmath.Quat, error) {
	v, err := r.Vec4()
	if err != nil {
		return rmath.Quat{}, err
	}
	return rmath.Quat{W: v.X, X: v.Y, Y: v.Z, Z: v.W}, nil
}

// QuatXYZW reads a quaternion stored scalar-last.
func (r *Reader) QuatXYZW() (rmath.Quat, error) {
	v, err := r.Vec4()
	if err != nil {
		return rmath.Quat{}, err
	}
	return rmath.Quat{X: v.X, Y: v.Y, Z: v.Z, W: v.W}, nil
}
