package formats

import (
	"fmt"

	"github.com/Faultbox/roseimport/pkg/binreader"
	"github.com/Faultbox/roseimport/pkg/math"
)

// ZMD format constants.
const (
	ZMDMagic2 = "ZMD0002"
	ZMDMagic3 = "ZMD0003"

	// MaxZMDBones bounds the declared bone count.
	MaxZMDBones = 1000
)

// ZMD format errors.
var (
	ErrInvalidZMDMagic = fmt.Errorf("%w: invalid ZMD magic", ErrFormat)
	ErrInvalidBoneTree = fmt.Errorf("%w: invalid ZMD bone hierarchy", ErrFormat)
)

// Bone is a named joint with a parent-relative transform.
// Rotation is stored in the file as (w, x, y, z).
type Bone struct {
	Name        string
	Parent      int32 // raw field; meaningless for bone 0
	Translation math.Vec3
	Rotation    math.Quat
}

// Dummy is an attachment point parented to a bone. ZSC parts reference
// dummies by index to hang weapons and effects off a skeleton.
type Dummy struct {
	Name        string
	Parent      int32
	Translation math.Vec3
	Rotation    math.Quat
}

// ZMD represents a parsed skeleton.
type ZMD struct {
	Version int // 2 or 3
	Bones   []Bone
	Dummies []Dummy
}

// ParentIndex returns the parent of bone i, or -1 for the root.
// Bone 0 is always the root, whatever its parent field says.
func (z *ZMD) ParentIndex(i int) int {
	if i <= 0 || i >= len(z.Bones) {
		return -1
	}
	return int(z.Bones[i].Parent)
}

// BoneIndex returns the index of the named bone, or -1.
func (z *ZMD) BoneIndex(name string) int {
	for i := range z.Bones {
		if z.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// Children returns the indices of bones whose parent is i.
func (z *ZMD) Children(i int) []int {
	var out []int
	for j := 1; j < len(z.Bones); j++ {
		if int(z.Bones[j].Parent) == i {
			out = append(out, j)
		}
	}
	return out
}

// BindPose returns the model-space transform of every bone.
func (z *ZMD) BindPose() []math.Mat4 {
	out := make([]math.Mat4, len(z.Bones))
	for i, b := range z.Bones {
		local := math.TRS(b.Translation, b.Rotation, math.One())
		if p := z.ParentIndex(i); p >= 0 {
			out[i] = out[p].Mul(local)
		} else {
			out[i] = local
		}
	}
	return out
}

// ParseZMD parses a ZMD skeleton from raw bytes.
func ParseZMD(data []byte) (*ZMD, error) {
	r := binreader.New(data)

	magic, err := r.FixedString(len(ZMDMagic2))
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}

	zmd := &ZMD{}
	switch magic {
	case ZMDMagic2:
		zmd.Version = 2
	case ZMDMagic3:
		zmd.Version = 3
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidZMDMagic, magic)
	}

	boneCount, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading bone count: %w", err)
	}
	if boneCount < 1 || boneCount > MaxZMDBones {
		return nil, formatErrorf("bone count %d outside [1, %d]", boneCount, MaxZMDBones)
	}

	zmd.Bones = make([]Bone, boneCount)
	for i := range zmd.Bones {
		bone, err := parseZMDBone(r)
		if err != nil {
			return nil, fmt.Errorf("parsing bone %d: %w", i, err)
		}
		if i > 0 && (bone.Parent < 0 || int(bone.Parent) >= i) {
			return nil, fmt.Errorf("%w: bone %d (%s) has parent %d", ErrInvalidBoneTree, i, bone.Name, bone.Parent)
		}
		zmd.Bones[i] = bone
	}

	dummyCount, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading dummy count: %w", err)
	}
	if dummyCount < 0 || dummyCount > MaxZMDBones {
		return nil, formatErrorf("dummy count %d outside [0, %d]", dummyCount, MaxZMDBones)
	}

	zmd.Dummies = make([]Dummy, dummyCount)
	for i := range zmd.Dummies {
		dummy, err := parseZMDDummy(r, zmd.Version)
		if err != nil {
			return nil, fmt.Errorf("parsing dummy %d: %w", i, err)
		}
		if dummy.Parent < 0 || int(dummy.Parent) >= len(zmd.Bones) {
			return nil, fmt.Errorf("%w: dummy %d (%s) has parent %d", ErrInvalidBoneTree, i, dummy.Name, dummy.Parent)
		}
		zmd.Dummies[i] = dummy
	}

	return zmd, nil
}

func parseZMDBone(r *binreader.Reader) (Bone, error) {
	var b Bone
	var err error

	if b.Parent, err = r.Int32(); err != nil {
		return Bone{}, fmt.Errorf("reading parent: %w", err)
	}
	if b.Name, err = r.CString(); err != nil {
		return Bone{}, fmt.Errorf("reading name: %w", err)
	}
	if b.Translation, err = r.Vec3(); err != nil {
		return Bone{}, fmt.Errorf("reading translation: %w", err)
	}
	if b.Rotation, err = r.QuatWXYZ(); err != nil {
		return Bone{}, fmt.Errorf("reading rotation: %w", err)
	}
	return b, nil
}

func parseZMDDummy(r *binreader.Reader, version int) (Dummy, error) {
	var d Dummy
	var err error

	if d.Name, err = r.CString(); err != nil {
		return Dummy{}, fmt.Errorf("reading name: %w", err)
	}
	if d.Parent, err = r.Int32(); err != nil {
		return Dummy{}, fmt.Errorf("reading parent: %w", err)
	}
	if d.Translation, err = r.Vec3(); err != nil {
		return Dummy{}, fmt.Errorf("reading translation: %w", err)
	}

	// ZMD0002 dummies carry no rotation.
	d.Rotation = math.QuatIdentity()
	if version >= 3 {
		if d.Rotation, err = r.QuatWXYZ(); err != nil {
			return Dummy{}, fmt.Errorf("reading rotation: %w", err)
		}
	}
	return d, nil
}

// ParseZMDFile parses a ZMD file from disk.
func ParseZMDFile(path string) (*ZMD, error) {
	return parseFile("ZMD", path, ParseZMD)
}
