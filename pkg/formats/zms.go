package formats

import (
	"fmt"
	stdmath "math"
	"strings"

	"github.com/Faultbox/roseimport/pkg/binreader"
	"github.com/Faultbox/roseimport/pkg/math"
)

// ZMSMagicPrefix is the common part of every ZMS tag ("ZMS0005".."ZMS0008").
const ZMSMagicPrefix = "ZMS000"

// ZMS format errors.
var (
	ErrInvalidZMSMagic   = fmt.Errorf("%w: invalid ZMS magic", ErrFormat)
	ErrUnsupportedZMS    = fmt.Errorf("%w: unsupported ZMS version", ErrFormat)
	ErrInvalidZMSIndex   = fmt.Errorf("%w: ZMS index out of range", ErrFormat)
	ErrInvalidZMSBoneRef = fmt.Errorf("%w: ZMS bone slot out of range", ErrFormat)
)

// VertexFormat is the bitmask of vertex streams present in a ZMS file.
type VertexFormat uint32

// Vertex stream flags. Streams are stored in this order.
const (
	VertexPosition   VertexFormat = 1 << 1
	VertexNormal     VertexFormat = 1 << 2
	VertexColor      VertexFormat = 1 << 3
	VertexBoneWeight VertexFormat = 1 << 4
	VertexBoneIndex  VertexFormat = 1 << 5
	VertexTangent    VertexFormat = 1 << 6
	VertexUV1        VertexFormat = 1 << 7
	VertexUV2        VertexFormat = 1 << 8
	VertexUV3        VertexFormat = 1 << 9
	VertexUV4        VertexFormat = 1 << 10

	VertexSkinned = VertexBoneWeight | VertexBoneIndex
)

// MaxUVChannels is the number of UV streams a ZMS file can carry.
const MaxUVChannels = 4

// Has reports whether every flag in f2 is set.
func (f VertexFormat) Has(f2 VertexFormat) bool {
	return f&f2 == f2
}

// String returns the set stream names, e.g. "position|normal|uv1".
func (f VertexFormat) String() string {
	names := []struct {
		flag VertexFormat
		name string
	}{
		{VertexPosition, "position"}, {VertexNormal, "normal"}, {VertexColor, "color"},
		{VertexBoneWeight, "weight"}, {VertexBoneIndex, "index"}, {VertexTangent, "tangent"},
		{VertexUV1, "uv1"}, {VertexUV2, "uv2"}, {VertexUV3, "uv3"}, {VertexUV4, "uv4"},
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// BoneWeight holds up to four influences for one vertex. Slots index the
// mesh bone table, not the skeleton.
type BoneWeight struct {
	Weights [4]float32
	Slots   [4]int16
}

// ZMS represents a parsed mesh. Every non-nil stream has one entry per vertex.
// Indices form a triangle list over vertex indices.
type ZMS struct {
	Version   int
	Format    VertexFormat
	BoundsMin math.Vec3
	BoundsMax math.Vec3

	// Bones maps mesh bone slots to skeleton bone indices.
	Bones []int16

	Positions []math.Vec3
	Normals   []math.Vec3
	Colors    []math.Vec4
	Skin      []BoneWeight
	Tangents  []math.Vec3
	UVs       [MaxUVChannels][]math.Vec2

	Indices  []uint32
	Strips   []uint32
	PoolType int16
}

// VertexCount returns the number of vertices.
func (z *ZMS) VertexCount() int {
	return len(z.Positions)
}

// FaceCount returns the number of triangles.
func (z *ZMS) FaceCount() int {
	return len(z.Indices) / 3
}

// HasNormals reports whether the mesh carries normals.
func (z *ZMS) HasNormals() bool {
	return z.Normals != nil
}

// HasSkin reports whether the mesh carries bone weights.
func (z *ZMS) HasSkin() bool {
	return z.Skin != nil
}

// UVChannels returns how many UV channels are present.
func (z *ZMS) UVChannels() int {
	n := 0
	for _, uv := range z.UVs {
		if uv != nil {
			n++
		}
	}
	return n
}

// SkeletonBone returns the skeleton bone of influence k on vertex v, or -1
// when the mesh is not skinned or the influence is unused.
func (z *ZMS) SkeletonBone(v, k int) int {
	if z.Skin == nil || v < 0 || v >= len(z.Skin) || k < 0 || k >= 4 {
		return -1
	}
	w := z.Skin[v]
	if w.Weights[k] == 0 {
		return -1
	}
	return int(z.Bones[w.Slots[k]])
}

// CheckSkeleton reports an error wrapping ErrInvalidZMSBoneRef when a bone
// table entry does not name one of boneCount skeleton bones.
func (z *ZMS) CheckSkeleton(boneCount int) error {
	for i, b := range z.Bones {
		if b < 0 || int(b) >= boneCount {
			return fmt.Errorf("%w: bone table entry %d = %d, skeleton has %d bones",
				ErrInvalidZMSBoneRef, i, b, boneCount)
		}
	}
	return nil
}

// Wedge is one corner of a triangle with its own UV and normal.
type Wedge struct {
	Vertex uint32
	UV     math.Vec2
	Normal math.Vec3
}

// Wedges expands the index buffer into one wedge per triangle corner using
// the first UV channel. Missing streams leave zero values.
func (z *ZMS) Wedges() []Wedge {
	wedges := make([]Wedge, len(z.Indices))
	for i, idx := range z.Indices {
		w := Wedge{Vertex: idx}
		if z.UVs[0] != nil {
			w.UV = z.UVs[0][idx]
		}
		if z.Normals != nil {
			w.Normal = z.Normals[idx]
		}
		wedges[i] = w
	}
	return wedges
}

// zmsLayout captures the differences between the v5/6 and v7/8 encodings.
type zmsLayout struct {
	version int
}

func (l zmsLayout) legacy() bool {
	return l.version < 7
}

func (l zmsLayout) count(r *binreader.Reader) (int, error) {
	if l.legacy() {
		n, err := r.Int32()
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, formatErrorf("negative count %d", n)
		}
		return int(n), nil
	}
	n, err := r.Int16()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, formatErrorf("negative count %d", n)
	}
	return int(n), nil
}

// recordSize is the per-vertex prefix: legacy records carry an int32 id.
func (l zmsLayout) recordSize() int {
	if l.legacy() {
		return 4
	}
	return 0
}

func (l zmsLayout) boneIndex(r *binreader.Reader) (int16, error) {
	if l.legacy() {
		v, err := r.Int32()
		if err != nil {
			return 0, err
		}
		if v < stdmath.MinInt16 || v > stdmath.MaxInt16 {
			return 0, formatErrorf("bone slot %d does not fit 16 bits", v)
		}
		return int16(v), nil
	}
	return r.Int16()
}

func (l zmsLayout) index(r *binreader.Reader) (uint32, error) {
	if l.legacy() {
		v, err := r.Int32()
		return uint32(v), err
	}
	v, err := r.Uint16()
	return uint32(v), err
}

// vertexStream reads n per-vertex records of the given payload size.
func vertexStream[T any](r *binreader.Reader, l zmsLayout, n, size int, read func(*binreader.Reader) (T, error)) ([]T, error) {
	if err := r.Fits(n, size+l.recordSize()); err != nil {
		return nil, err
	}
	return binreader.Array(r, n, func(r *binreader.Reader) (T, error) {
		if err := r.Skip(l.recordSize()); err != nil {
			var zero T
			return zero, err
		}
		return read(r)
	})
}

// ParseZMS parses a ZMS mesh from raw bytes.
func ParseZMS(data []byte) (*ZMS, error) {
	r := binreader.New(data)

	magic, err := r.CString()
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if !strings.HasPrefix(magic, ZMSMagicPrefix) || len(magic) != len(ZMSMagicPrefix)+1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidZMSMagic, magic)
	}
	version := int(magic[len(magic)-1] - '0')
	if version < 5 || version > 8 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedZMS, magic)
	}

	zms := &ZMS{Version: version}
	layout := zmsLayout{version: version}

	format, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading vertex format: %w", err)
	}
	zms.Format = VertexFormat(format)

	if zms.BoundsMin, err = r.Vec3(); err != nil {
		return nil, fmt.Errorf("reading bounds: %w", err)
	}
	if zms.BoundsMax, err = r.Vec3(); err != nil {
		return nil, fmt.Errorf("reading bounds: %w", err)
	}

	if err := parseZMSBones(r, layout, zms); err != nil {
		return nil, fmt.Errorf("parsing bone table: %w", err)
	}

	vertexCount, err := layout.count(r)
	if err != nil {
		return nil, fmt.Errorf("reading vertex count: %w", err)
	}
	if err := parseZMSVertices(r, layout, zms, vertexCount); err != nil {
		return nil, err
	}

	if err := parseZMSFaces(r, layout, zms); err != nil {
		return nil, fmt.Errorf("parsing faces: %w", err)
	}

	if !layout.legacy() {
		stripCount, err := layout.count(r)
		if err != nil {
			return nil, fmt.Errorf("reading strip count: %w", err)
		}
		if zms.Strips, err = binreader.Array(r, stripCount, layout.index); err != nil {
			return nil, fmt.Errorf("reading strips: %w", err)
		}
		if version >= 8 {
			if zms.PoolType, err = r.Int16(); err != nil {
				return nil, fmt.Errorf("reading pool type: %w", err)
			}
		}
	}

	if err := zms.validate(); err != nil {
		return nil, err
	}
	return zms, nil
}

func parseZMSBones(r *binreader.Reader, l zmsLayout, zms *ZMS) error {
	n, err := l.count(r)
	if err != nil {
		return err
	}
	if l.legacy() {
		if err := r.Fits(n, 8); err != nil {
			return err
		}
		zms.Bones = make([]int16, n)
		for range zms.Bones {
			slot, err := r.Int32()
			if err != nil {
				return err
			}
			bone, err := r.Int32()
			if err != nil {
				return err
			}
			if slot < 0 || int(slot) >= n {
				return formatErrorf("bone slot %d outside table of %d", slot, n)
			}
			if bone < stdmath.MinInt16 || bone > stdmath.MaxInt16 {
				return formatErrorf("bone id %d in slot %d does not fit 16 bits", bone, slot)
			}
			zms.Bones[slot] = int16(bone)
		}
		return nil
	}
	zms.Bones, err = binreader.Array(r, n, binreader.ReadInt16)
	return err
}

func parseZMSVertices(r *binreader.Reader, l zmsLayout, zms *ZMS, n int) error {
	var err error

	if zms.Positions, err = vertexStream(r, l, n, 12, binreader.ReadVec3); err != nil {
		return fmt.Errorf("reading positions: %w", err)
	}
	if zms.Format.Has(VertexNormal) {
		if zms.Normals, err = vertexStream(r, l, n, 12, binreader.ReadVec3); err != nil {
			return fmt.Errorf("reading normals: %w", err)
		}
	}
	if zms.Format.Has(VertexColor) {
		if zms.Colors, err = vertexStream(r, l, n, 16, (*binreader.Reader).Vec4); err != nil {
			return fmt.Errorf("reading colors: %w", err)
		}
	}
	if zms.Format.Has(VertexSkinned) {
		skinSize := 24
		if l.legacy() {
			skinSize = 32
		}
		if zms.Skin, err = vertexStream(r, l, n, skinSize, func(r *binreader.Reader) (BoneWeight, error) {
			return readBoneWeight(r, l)
		}); err != nil {
			return fmt.Errorf("reading bone weights: %w", err)
		}
	}
	if zms.Format.Has(VertexTangent) {
		if zms.Tangents, err = vertexStream(r, l, n, 12, binreader.ReadVec3); err != nil {
			return fmt.Errorf("reading tangents: %w", err)
		}
	}
	for ch := 0; ch < MaxUVChannels; ch++ {
		if !zms.Format.Has(VertexUV1 << ch) {
			continue
		}
		if zms.UVs[ch], err = vertexStream(r, l, n, 8, binreader.ReadVec2); err != nil {
			return fmt.Errorf("reading uv%d: %w", ch+1, err)
		}
	}
	return nil
}

func readBoneWeight(r *binreader.Reader, l zmsLayout) (BoneWeight, error) {
	var bw BoneWeight
	for k := range bw.Weights {
		w, err := r.Float32()
		if err != nil {
			return BoneWeight{}, err
		}
		bw.Weights[k] = w
	}
	for k := range bw.Slots {
		s, err := l.boneIndex(r)
		if err != nil {
			return BoneWeight{}, err
		}
		bw.Slots[k] = s
	}
	return bw, nil
}

func parseZMSFaces(r *binreader.Reader, l zmsLayout, zms *ZMS) error {
	faceCount, err := l.count(r)
	if err != nil {
		return fmt.Errorf("reading face count: %w", err)
	}

	faceSize := 6
	if l.legacy() {
		faceSize = 16
	}
	if err := r.Fits(faceCount, faceSize); err != nil {
		return err
	}

	zms.Indices = make([]uint32, 0, faceCount*3)
	for i := 0; i < faceCount; i++ {
		if err := r.Skip(l.recordSize()); err != nil {
			return err
		}
		for k := 0; k < 3; k++ {
			idx, err := l.index(r)
			if err != nil {
				return err
			}
			zms.Indices = append(zms.Indices, idx)
		}
	}
	return nil
}

func (z *ZMS) validate() error {
	if len(z.Indices)%3 != 0 {
		return formatErrorf("index count %d is not a multiple of 3", len(z.Indices))
	}
	vc := uint32(len(z.Positions))
	for i, idx := range z.Indices {
		if idx >= vc {
			return fmt.Errorf("%w: index %d = %d, vertex count %d", ErrInvalidZMSIndex, i, idx, vc)
		}
	}
	for i, idx := range z.Strips {
		if idx >= vc {
			return fmt.Errorf("%w: strip index %d = %d, vertex count %d", ErrInvalidZMSIndex, i, idx, vc)
		}
	}
	for v, bw := range z.Skin {
		for k, slot := range bw.Slots {
			if bw.Weights[k] == 0 {
				continue
			}
			if slot < 0 || int(slot) >= len(z.Bones) {
				return fmt.Errorf("%w: vertex %d influence %d uses slot %d of %d", ErrInvalidZMSBoneRef, v, k, slot, len(z.Bones))
			}
		}
	}
	return nil
}

// ParseZMSFile parses a ZMS file from disk.
func ParseZMSFile(path string) (*ZMS, error) {
	return parseFile("ZMS", path, ParseZMS)
}
