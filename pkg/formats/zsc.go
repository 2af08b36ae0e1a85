package formats

import (
	"fmt"

	"github.com/Faultbox/roseimport/pkg/binreader"
	"github.com/Faultbox/roseimport/pkg/math"
)

// ErrInvalidZSCIndex reports a part or effect referencing a missing table entry.
var ErrInvalidZSCIndex = fmt.Errorf("%w: ZSC index out of range", ErrFormat)

// ZSCMaterial describes a texture and the render state applied to it.
type ZSCMaterial struct {
	Path             string
	IsSkin           bool
	AlphaEnabled     bool
	TwoSided         bool
	AlphaTestEnabled bool
	AlphaRef         int16
	ZTest            bool
	ZWrite           bool
	BlendType        int16
	Specular         bool
	Alpha            float32
	GlowType         int16
	GlowColor        math.Vec3
}

// BlendMode is how a material composites.
type BlendMode int

// Blend modes.
const (
	BlendOpaque BlendMode = iota
	BlendMasked
	BlendTranslucent
)

// String returns the blend mode name.
func (b BlendMode) String() string {
	switch b {
	case BlendMasked:
		return "masked"
	case BlendTranslucent:
		return "translucent"
	default:
		return "opaque"
	}
}

// BlendMode picks the blend mode for this material. Alpha testing wins over
// alpha blending.
func (m *ZSCMaterial) BlendMode() BlendMode {
	switch {
	case m.AlphaTestEnabled:
		return BlendMasked
	case m.AlphaEnabled:
		return BlendTranslucent
	default:
		return BlendOpaque
	}
}

// OpacityClip returns the alpha test threshold in [0, 1]. The common
// reference value 128 maps to exactly 0.5.
func (m *ZSCMaterial) OpacityClip() float32 {
	if m.AlphaRef == 128 {
		return 0.5
	}
	return float32(m.AlphaRef) / 255
}

// CollisionMode is the shape part of a collision bitmask.
type CollisionMode uint16

// Collision modes.
const (
	CollisionNone CollisionMode = iota
	CollisionSphere
	CollisionAABB
	CollisionOBB
	CollisionPolygon
)

// CollisionModeMask selects the mode bits of a Collision value.
const CollisionModeMask = 0x7

// Collision flags.
const (
	CollisionNotMoveable     Collision = 1 << 3
	CollisionNotPickable     Collision = 1 << 4
	CollisionHeightOnly      Collision = 1 << 5
	CollisionNoCameraCollide Collision = 1 << 6
	CollisionPassthrough     Collision = 1 << 7
)

// Collision is the raw collision bitmask of a part.
type Collision uint16

// Mode returns the collision shape.
func (c Collision) Mode() CollisionMode {
	return CollisionMode(c & CollisionModeMask)
}

// Has reports whether flag is set.
func (c Collision) Has(flag Collision) bool {
	return c&flag != 0
}

// PartKind classifies a part by what it is attached to.
type PartKind int

// Part kinds.
const (
	PartGeometry PartKind = iota
	PartBoneAttached
	PartDummyAttached
)

// ZSCPart places one mesh with one material inside a model.
type ZSCPart struct {
	Mesh     int
	Material int

	Position     math.Vec3
	Rotation     math.Quat
	Scale        math.Vec3
	AxisRotation math.Quat

	// Bone and Dummy are 0xFFFF unless the part hangs off a skeleton.
	Bone  int
	Dummy int
	// Parent is 1-based; 0 means the part sits at the model root.
	Parent int

	Collision     Collision
	AnimationPath string
	Range         int16
	LightmapMode  int16
}

// Kind reports whether the part is plain geometry or an attachment.
func (p *ZSCPart) Kind() PartKind {
	switch {
	case p.Dummy != noIndex:
		return PartDummyAttached
	case p.Bone != noIndex:
		return PartBoneAttached
	default:
		return PartGeometry
	}
}

// ParentIndex returns the 0-based parent part, or -1.
func (p *ZSCPart) ParentIndex() int {
	return p.Parent - 1
}

// Transform returns the part's local transform.
func (p *ZSCPart) Transform() math.Mat4 {
	return math.TRS(p.Position, p.Rotation, p.Scale)
}

// ZSCEffect places a catalog effect inside a model.
type ZSCEffect struct {
	Effect   int
	Type     int16
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3
	Parent   int
}

// ZSCModel is an ordered list of parts plus effects and bounds.
type ZSCModel struct {
	CylinderRadius int32
	CylinderX      int32
	CylinderY      int32

	Parts     []ZSCPart
	Effects   []ZSCEffect
	BoundsMin math.Vec3
	BoundsMax math.Vec3
}

// Empty reports whether the model slot is unused.
func (m *ZSCModel) Empty() bool {
	return len(m.Parts) == 0
}

// RenderableParts returns the parts that contribute geometry, in file order.
func (m *ZSCModel) RenderableParts() []ZSCPart {
	var out []ZSCPart
	for _, p := range m.Parts {
		if p.Kind() == PartGeometry {
			out = append(out, p)
		}
	}
	return out
}

// ZSC represents a parsed scene catalog.
type ZSC struct {
	Meshes    []string
	Materials []ZSCMaterial
	Effects   []string
	Models    []ZSCModel
}

// Model returns model i, or nil if i is out of range.
func (z *ZSC) Model(i int) *ZSCModel {
	if i < 0 || i >= len(z.Models) {
		return nil
	}
	return &z.Models[i]
}

// Property ids in part and effect property streams.
const (
	zscPropEnd          = 0
	zscPropPosition     = 1
	zscPropRotation     = 2
	zscPropScale        = 3
	zscPropAxisRotation = 4
	zscPropBone         = 5
	zscPropDummy        = 6
	zscPropParent       = 7
	zscPropCollision    = 29
	zscPropAnimation    = 30
	zscPropRange        = 31
	zscPropLightmap     = 32
)

// ParseZSC parses a ZSC catalog from raw bytes.
func ParseZSC(data []byte) (*ZSC, error) {
	r := binreader.New(data)
	zsc := &ZSC{}
	var err error

	if zsc.Meshes, err = readZSCStrings(r); err != nil {
		return nil, fmt.Errorf("reading mesh table: %w", err)
	}

	materialCount, err := readZSCCount(r)
	if err != nil {
		return nil, fmt.Errorf("reading material count: %w", err)
	}
	if zsc.Materials, err = binreader.Array(r, materialCount, parseZSCMaterial); err != nil {
		return nil, fmt.Errorf("reading materials: %w", err)
	}

	if zsc.Effects, err = readZSCStrings(r); err != nil {
		return nil, fmt.Errorf("reading effect table: %w", err)
	}

	modelCount, err := readZSCCount(r)
	if err != nil {
		return nil, fmt.Errorf("reading model count: %w", err)
	}
	zsc.Models = make([]ZSCModel, 0, min(modelCount, r.Remaining()))
	for i := 0; i < modelCount; i++ {
		model, err := parseZSCModel(r)
		if err != nil {
			return nil, fmt.Errorf("parsing model %d: %w", i, err)
		}
		zsc.Models = append(zsc.Models, model)
	}

	if err := zsc.validate(); err != nil {
		return nil, err
	}
	return zsc, nil
}

func readZSCCount(r *binreader.Reader) (int, error) {
	n, err := r.Int16()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, formatErrorf("negative count %d", n)
	}
	return int(n), nil
}

func readZSCStrings(r *binreader.Reader) ([]string, error) {
	n, err := readZSCCount(r)
	if err != nil {
		return nil, err
	}
	return binreader.Array(r, n, binreader.ReadCString)
}

func readFlag(r *binreader.Reader) (bool, error) {
	v, err := r.Int16()
	return v != 0, err
}

func parseZSCMaterial(r *binreader.Reader) (ZSCMaterial, error) {
	var m ZSCMaterial
	var err error

	if m.Path, err = r.CString(); err != nil {
		return m, err
	}
	for _, f := range []*bool{&m.IsSkin, &m.AlphaEnabled, &m.TwoSided, &m.AlphaTestEnabled} {
		if *f, err = readFlag(r); err != nil {
			return m, err
		}
	}
	if m.AlphaRef, err = r.Int16(); err != nil {
		return m, err
	}
	for _, f := range []*bool{&m.ZTest, &m.ZWrite} {
		if *f, err = readFlag(r); err != nil {
			return m, err
		}
	}
	if m.BlendType, err = r.Int16(); err != nil {
		return m, err
	}
	if m.Specular, err = readFlag(r); err != nil {
		return m, err
	}
	if m.Alpha, err = r.Float32(); err != nil {
		return m, err
	}
	if m.GlowType, err = r.Int16(); err != nil {
		return m, err
	}
	if m.GlowColor, err = r.Vec3(); err != nil {
		return m, err
	}
	return m, nil
}

func parseZSCModel(r *binreader.Reader) (ZSCModel, error) {
	var m ZSCModel
	var err error

	if m.CylinderRadius, err = r.Int32(); err != nil {
		return m, err
	}
	if m.CylinderX, err = r.Int32(); err != nil {
		return m, err
	}
	if m.CylinderY, err = r.Int32(); err != nil {
		return m, err
	}

	partCount, err := readZSCCount(r)
	if err != nil {
		return m, fmt.Errorf("reading part count: %w", err)
	}
	if partCount == 0 {
		return m, nil
	}

	m.Parts = make([]ZSCPart, 0, min(partCount, r.Remaining()))
	for i := 0; i < partCount; i++ {
		part, err := parseZSCPart(r)
		if err != nil {
			return m, fmt.Errorf("part %d: %w", i, err)
		}
		m.Parts = append(m.Parts, part)
	}

	effectCount, err := readZSCCount(r)
	if err != nil {
		return m, fmt.Errorf("reading effect count: %w", err)
	}
	m.Effects = make([]ZSCEffect, 0, min(effectCount, r.Remaining()))
	for i := 0; i < effectCount; i++ {
		effect, err := parseZSCEffect(r)
		if err != nil {
			return m, fmt.Errorf("effect %d: %w", i, err)
		}
		m.Effects = append(m.Effects, effect)
	}

	if m.BoundsMin, err = r.Vec3(); err != nil {
		return m, fmt.Errorf("reading bounds: %w", err)
	}
	if m.BoundsMax, err = r.Vec3(); err != nil {
		return m, fmt.Errorf("reading bounds: %w", err)
	}
	return m, nil
}

func parseZSCPart(r *binreader.Reader) (ZSCPart, error) {
	p := ZSCPart{
		Rotation:     math.QuatIdentity(),
		Scale:        math.One(),
		AxisRotation: math.QuatIdentity(),
		Bone:         noIndex,
		Dummy:        noIndex,
	}

	mesh, err := r.Int16()
	if err != nil {
		return p, err
	}
	material, err := r.Int16()
	if err != nil {
		return p, err
	}
	p.Mesh, p.Material = int(mesh), int(material)

	err = readZSCProperties(r, func(id uint8, pr *binreader.Reader) error {
		var err error
		switch id {
		case zscPropPosition:
			p.Position, err = pr.Vec3()
		case zscPropRotation:
			p.Rotation, err = pr.QuatWXYZ()
		case zscPropScale:
			p.Scale, err = pr.Vec3()
		case zscPropAxisRotation:
			p.AxisRotation, err = pr.QuatWXYZ()
		case zscPropBone:
			p.Bone, err = readIndex(pr)
		case zscPropDummy:
			p.Dummy, err = readIndex(pr)
		case zscPropParent:
			p.Parent, err = readIndex(pr)
		case zscPropCollision:
			var v uint16
			v, err = pr.Uint16()
			p.Collision = Collision(v)
		case zscPropAnimation:
			p.AnimationPath, err = pr.FixedString(pr.Len())
		case zscPropRange:
			p.Range, err = pr.Int16()
		case zscPropLightmap:
			p.LightmapMode, err = pr.Int16()
		}
		return err
	})
	return p, err
}

func parseZSCEffect(r *binreader.Reader) (ZSCEffect, error) {
	e := ZSCEffect{Rotation: math.QuatIdentity(), Scale: math.One()}

	effect, err := r.Int16()
	if err != nil {
		return e, err
	}
	if e.Type, err = r.Int16(); err != nil {
		return e, err
	}
	e.Effect = int(effect)

	err = readZSCProperties(r, func(id uint8, pr *binreader.Reader) error {
		var err error
		switch id {
		case zscPropPosition:
			e.Position, err = pr.Vec3()
		case zscPropRotation:
			e.Rotation, err = pr.QuatWXYZ()
		case zscPropScale:
			e.Scale, err = pr.Vec3()
		case zscPropParent:
			e.Parent, err = readIndex(pr)
		}
		return err
	})
	return e, err
}

// readZSCProperties walks an (id, size, payload) stream up to the end
// marker. Each payload is decoded from its own bounded reader, so unknown
// or oversized properties never desynchronise the stream.
func readZSCProperties(r *binreader.Reader, apply func(id uint8, payload *binreader.Reader) error) error {
	for {
		id, err := r.Uint8()
		if err != nil {
			return fmt.Errorf("reading property id: %w", err)
		}
		if id == zscPropEnd {
			return nil
		}
		size, err := r.Uint8()
		if err != nil {
			return fmt.Errorf("reading property %d size: %w", id, err)
		}
		payload, err := r.Sub(int(size))
		if err != nil {
			return fmt.Errorf("reading property %d: %w", id, err)
		}
		if err := apply(id, payload); err != nil {
			return fmt.Errorf("decoding property %d: %w", id, err)
		}
	}
}

func readIndex(r *binreader.Reader) (int, error) {
	v, err := r.Uint16()
	return int(v), err
}

func (z *ZSC) validate() error {
	for mi := range z.Models {
		m := &z.Models[mi]
		for pi := range m.Parts {
			p := &m.Parts[pi]
			if p.Mesh < 0 || p.Mesh >= len(z.Meshes) {
				return fmt.Errorf("%w: model %d part %d mesh %d of %d", ErrInvalidZSCIndex, mi, pi, p.Mesh, len(z.Meshes))
			}
			if p.Material < 0 || p.Material >= len(z.Materials) {
				return fmt.Errorf("%w: model %d part %d material %d of %d", ErrInvalidZSCIndex, mi, pi, p.Material, len(z.Materials))
			}
			if p.Parent > len(m.Parts) {
				return fmt.Errorf("%w: model %d part %d parent %d of %d", ErrInvalidZSCIndex, mi, pi, p.Parent, len(m.Parts))
			}
		}
		for ei, e := range m.Effects {
			if e.Effect < 0 || e.Effect >= len(z.Effects) {
				return fmt.Errorf("%w: model %d effect %d index %d of %d", ErrInvalidZSCIndex, mi, ei, e.Effect, len(z.Effects))
			}
		}
	}
	return nil
}

// ParseZSCFile parses a ZSC file from disk.
func ParseZSCFile(path string) (*ZSC, error) {
	return parseFile("ZSC", path, ParseZSC)
}
