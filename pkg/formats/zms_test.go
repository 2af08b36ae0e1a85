package formats

import (
	"bytes"
	"errors"
	"testing"
)

type testMesh struct {
	format  VertexFormat
	bones   []int16
	verts   [][3]float32
	skin    []BoneWeight
	indices []int
}

// createTestZMS builds a mesh in the v7/8 layout. Optional streams other
// than skin are filled with per-vertex values derived from the position.
func createTestZMS(version int, m testMesh) []byte {
	buf := new(bytes.Buffer)
	writeCString(buf, ZMSMagicPrefix+string(rune('0'+version)))

	writeLE(buf, int32(m.format|VertexPosition))
	writeVec3(buf, -1, -1, -1)
	writeVec3(buf, 1, 1, 1)

	writeLE(buf, int16(len(m.bones)))
	for _, b := range m.bones {
		writeLE(buf, b)
	}

	writeLE(buf, int16(len(m.verts)))
	for _, v := range m.verts {
		writeVec3(buf, v[0], v[1], v[2])
	}
	if m.format.Has(VertexNormal) {
		for range m.verts {
			writeVec3(buf, 0, 0, 1)
		}
	}
	if m.format.Has(VertexSkinned) {
		for _, s := range m.skin {
			writeLE(buf, s.Weights, s.Slots)
		}
	}
	for ch := 0; ch < MaxUVChannels; ch++ {
		if !m.format.Has(VertexUV1 << ch) {
			continue
		}
		for _, v := range m.verts {
			writeLE(buf, v[0], v[1])
		}
	}

	writeLE(buf, int16(len(m.indices)/3))
	for _, idx := range m.indices {
		writeLE(buf, int16(idx))
	}

	writeLE(buf, int16(0)) // strips
	if version >= 8 {
		writeLE(buf, int16(0)) // pool type
	}
	return buf.Bytes()
}

// createLegacyZMS builds a v6 mesh with positions only.
func createLegacyZMS(verts [][3]float32, indices []int) []byte {
	return createLegacyZMSBones(nil, verts, indices)
}

// createLegacyZMSBones is createLegacyZMS with a bone table. The table is
// written in order, so entry i carries slot i.
func createLegacyZMSBones(bones []int32, verts [][3]float32, indices []int) []byte {
	buf := new(bytes.Buffer)
	writeCString(buf, "ZMS0006")
	writeLE(buf, int32(VertexPosition))
	writeVec3(buf, 0, 0, 0)
	writeVec3(buf, 1, 1, 1)

	writeLE(buf, int32(len(bones)))
	for i, b := range bones {
		writeLE(buf, int32(i), b)
	}
	writeLE(buf, int32(len(verts)))
	for i, v := range verts {
		writeLE(buf, int32(i))
		writeVec3(buf, v[0], v[1], v[2])
	}

	writeLE(buf, int32(len(indices)/3))
	for i := 0; i < len(indices); i += 3 {
		writeLE(buf, int32(i/3), int32(indices[i]), int32(indices[i+1]), int32(indices[i+2]))
	}
	return buf.Bytes()
}

var quadVerts = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}

var quadIndices = []int{0, 1, 2, 1, 3, 2}

func TestParseZMS_Quad(t *testing.T) {
	data := createTestZMS(8, testMesh{
		format:  VertexNormal | VertexUV1,
		verts:   quadVerts,
		indices: quadIndices,
	})

	zms, err := ParseZMS(data)
	if err != nil {
		t.Fatalf("ParseZMS failed: %v", err)
	}

	if zms.Version != 8 {
		t.Errorf("expected version 8, got %d", zms.Version)
	}
	if zms.VertexCount() != 4 {
		t.Errorf("expected 4 vertices, got %d", zms.VertexCount())
	}
	if len(zms.Indices) != 6 {
		t.Errorf("expected 6 indices, got %d", len(zms.Indices))
	}
	if zms.FaceCount() != 2 {
		t.Errorf("expected 2 faces, got %d", zms.FaceCount())
	}
	for i, idx := range zms.Indices {
		if idx >= 4 || int(idx) != quadIndices[i] {
			t.Errorf("index %d: expected %d, got %d", i, quadIndices[i], idx)
		}
	}

	if !zms.HasNormals() {
		t.Error("expected normals")
	}
	if zms.UVChannels() != 1 {
		t.Errorf("expected 1 UV channel, got %d", zms.UVChannels())
	}
	if zms.Positions[3].X != 1 || zms.Positions[3].Y != 1 {
		t.Errorf("unexpected position %v", zms.Positions[3])
	}
	if zms.UVs[0][1].X != 1 {
		t.Errorf("unexpected uv %v", zms.UVs[0][1])
	}
	if zms.HasSkin() {
		t.Error("expected no skin")
	}
}

func TestParseZMS_Wedges(t *testing.T) {
	zms, err := ParseZMS(createTestZMS(7, testMesh{
		format:  VertexNormal | VertexUV1,
		verts:   quadVerts,
		indices: quadIndices,
	}))
	if err != nil {
		t.Fatalf("ParseZMS failed: %v", err)
	}

	wedges := zms.Wedges()
	if len(wedges) != 6 {
		t.Fatalf("expected 6 wedges, got %d", len(wedges))
	}
	// Corner 4 is vertex 3 at (1,1).
	w := wedges[4]
	if w.Vertex != 3 || w.UV.X != 1 || w.UV.Y != 1 || w.Normal.Z != 1 {
		t.Errorf("unexpected wedge %+v", w)
	}
}

func TestParseZMS_Skin(t *testing.T) {
	skin := []BoneWeight{
		{Weights: [4]float32{1, 0, 0, 0}, Slots: [4]int16{0, 0, 0, 0}},
		{Weights: [4]float32{0.5, 0.5, 0, 0}, Slots: [4]int16{0, 1, 0, 0}},
		{Weights: [4]float32{1, 0, 0, 0}, Slots: [4]int16{1, 0, 0, 0}},
		{Weights: [4]float32{1, 0, 0, 0}, Slots: [4]int16{1, 9, 9, 9}},
	}
	zms, err := ParseZMS(createTestZMS(8, testMesh{
		format:  VertexSkinned,
		bones:   []int16{4, 7},
		verts:   quadVerts,
		skin:    skin,
		indices: quadIndices,
	}))
	if err != nil {
		t.Fatalf("ParseZMS failed: %v", err)
	}

	if !zms.HasSkin() {
		t.Fatal("expected skin")
	}
	tests := []struct {
		vertex, influence, want int
	}{
		{0, 0, 4},
		{1, 1, 7},
		{2, 0, 7},
		{3, 1, -1}, // zero weight
	}
	for _, tt := range tests {
		if got := zms.SkeletonBone(tt.vertex, tt.influence); got != tt.want {
			t.Errorf("SkeletonBone(%d, %d) = %d, want %d", tt.vertex, tt.influence, got, tt.want)
		}
	}
}

func TestZMS_CheckSkeleton(t *testing.T) {
	tests := []struct {
		name      string
		bones     []int16
		boneCount int
		wantErr   bool
	}{
		{"in range", []int16{4, 7}, 8, false},
		{"no bone table", nil, 0, false},
		{"past the last bone", []int16{4, 8}, 8, true},
		{"negative", []int16{-1}, 8, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zms := &ZMS{Bones: tt.bones}
			err := zms.CheckSkeleton(tt.boneCount)
			if tt.wantErr && !errors.Is(err, ErrInvalidZMSBoneRef) {
				t.Errorf("expected ErrInvalidZMSBoneRef, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestParseZMS_Legacy(t *testing.T) {
	zms, err := ParseZMS(createLegacyZMS(quadVerts, quadIndices))
	if err != nil {
		t.Fatalf("ParseZMS failed: %v", err)
	}
	if zms.Version != 6 {
		t.Errorf("expected version 6, got %d", zms.Version)
	}
	if zms.VertexCount() != 4 || zms.FaceCount() != 2 {
		t.Errorf("expected 4 vertices and 2 faces, got %d and %d", zms.VertexCount(), zms.FaceCount())
	}
	if zms.Indices[4] != 3 {
		t.Errorf("expected index 4 to be 3, got %d", zms.Indices[4])
	}

	zms, err = ParseZMS(createLegacyZMSBones([]int32{5, 2}, quadVerts, quadIndices))
	if err != nil {
		t.Fatalf("ParseZMS with bones failed: %v", err)
	}
	if len(zms.Bones) != 2 || zms.Bones[0] != 5 || zms.Bones[1] != 2 {
		t.Errorf("unexpected bone table %v", zms.Bones)
	}
}

func TestParseZMS_Errors(t *testing.T) {
	badMagic := createTestZMS(8, testMesh{verts: quadVerts, indices: quadIndices})
	badMagic[0] = 'X'

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", badMagic, ErrInvalidZMSMagic},
		{"unsupported version", createTestZMS(9, testMesh{verts: quadVerts}), ErrUnsupportedZMS},
		{"index out of range", createTestZMS(8, testMesh{verts: quadVerts, indices: []int{0, 1, 4}}), ErrInvalidZMSIndex},
		{"legacy index out of range", createLegacyZMS(quadVerts, []int{0, 1, 7}), ErrInvalidZMSIndex},
		{"legacy bone id too large", createLegacyZMSBones([]int32{0, 1 << 16}, quadVerts, quadIndices), ErrFormat},
		{"legacy bone id negative wrap", createLegacyZMSBones([]int32{-40000}, quadVerts, quadIndices), ErrFormat},
		{"bone slot out of range", createTestZMS(8, testMesh{
			format: VertexSkinned,
			bones:  []int16{0},
			verts:  [][3]float32{{0, 0, 0}},
			skin:   []BoneWeight{{Weights: [4]float32{1}, Slots: [4]int16{3}}},
		}), ErrInvalidZMSBoneRef},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseZMS(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("expected error to wrap ErrFormat, got %v", err)
			}
		})
	}
}

func TestParseZMS_Truncated(t *testing.T) {
	data := createTestZMS(8, testMesh{format: VertexNormal, verts: quadVerts, indices: quadIndices})

	for n := 0; n < len(data); n += 7 {
		_, err := ParseZMS(data[:n])
		if !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("truncated at %d: expected ErrOutOfBounds, got %v", n, err)
		}
	}
}

func TestParseZMS_Idempotent(t *testing.T) {
	data := createTestZMS(8, testMesh{format: VertexUV1, verts: quadVerts, indices: quadIndices})

	a, err := ParseZMS(data)
	if err != nil {
		t.Fatalf("ParseZMS failed: %v", err)
	}
	b, err := ParseZMS(data)
	if err != nil {
		t.Fatalf("ParseZMS failed: %v", err)
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] || a.UVs[0][i] != b.UVs[0][i] {
			t.Errorf("vertex %d differs between parses", i)
		}
	}
}
