package formats

import (
	"fmt"

	"github.com/Faultbox/roseimport/pkg/binreader"
	"github.com/Faultbox/roseimport/pkg/math"
)

// ZMOMagic is the motion file tag.
const ZMOMagic = "ZMO0002"

// ZMO format errors.
var (
	ErrInvalidZMOMagic = fmt.Errorf("%w: invalid ZMO magic", ErrFormat)
	ErrUnknownChannel  = fmt.Errorf("%w: unknown ZMO channel type", ErrFormat)
	ErrInvalidZMOBone  = fmt.Errorf("%w: ZMO channel bone out of range", ErrFormat)
)

// ChannelType tags the value stored by a motion channel.
type ChannelType int32

// Channel types.
const (
	ChannelPosition ChannelType = 1 << 1
	ChannelRotation ChannelType = 1 << 2
	ChannelScale    ChannelType = 1 << 10
)

// String returns the channel type name.
func (t ChannelType) String() string {
	switch t {
	case ChannelPosition:
		return "position"
	case ChannelRotation:
		return "rotation"
	case ChannelScale:
		return "scale"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// Channel is one animated property of one bone. The concrete type is one of
// *PositionChannel, *RotationChannel or *ScaleChannel.
type Channel interface {
	Type() ChannelType
	Bone() int
	isChannel()
}

// PositionChannel holds one translation per frame.
type PositionChannel struct {
	BoneIndex int
	Frames    []math.Vec3
}

// RotationChannel holds one rotation per frame, stored as (w, x, y, z).
type RotationChannel struct {
	BoneIndex int
	Frames    []math.Quat
}

// ScaleChannel holds one scale per frame. The file stores a single float,
// decoded here as a uniform vector.
type ScaleChannel struct {
	BoneIndex int
	Frames    []math.Vec3
}

func (c *PositionChannel) Type() ChannelType { return ChannelPosition }
func (c *RotationChannel) Type() ChannelType { return ChannelRotation }
func (c *ScaleChannel) Type() ChannelType    { return ChannelScale }

func (c *PositionChannel) Bone() int { return c.BoneIndex }
func (c *RotationChannel) Bone() int { return c.BoneIndex }
func (c *ScaleChannel) Bone() int    { return c.BoneIndex }

func (*PositionChannel) isChannel() {}
func (*RotationChannel) isChannel() {}
func (*ScaleChannel) isChannel()    {}

// ZMO represents a parsed motion.
type ZMO struct {
	FPS        int
	FrameCount int
	Channels   []Channel
}

// Duration returns the motion length in seconds.
func (z *ZMO) Duration() float32 {
	if z.FPS <= 0 {
		return 0
	}
	return float32(z.FrameCount) / float32(z.FPS)
}

// Validate checks every channel against a skeleton of boneCount bones.
func (z *ZMO) Validate(boneCount int) error {
	for i, ch := range z.Channels {
		if ch.Bone() < 0 || ch.Bone() >= boneCount {
			return fmt.Errorf("%w: channel %d (%s) targets bone %d, skeleton has %d",
				ErrInvalidZMOBone, i, ch.Type(), ch.Bone(), boneCount)
		}
	}
	return nil
}

// BoneTrack is the full animation of one bone. Every slice has FrameCount
// entries.
type BoneTrack struct {
	Positions []math.Vec3
	Rotations []math.Quat
	Scales    []math.Vec3
}

// BoneTracks builds one track per skeleton bone. Properties without a
// channel hold the bind pose value for every frame; scale defaults to one.
func (z *ZMO) BoneTracks(skel *ZMD) ([]BoneTrack, error) {
	if err := z.Validate(len(skel.Bones)); err != nil {
		return nil, err
	}

	tracks := make([]BoneTrack, len(skel.Bones))
	for _, ch := range z.Channels {
		t := &tracks[ch.Bone()]
		switch c := ch.(type) {
		case *PositionChannel:
			t.Positions = c.Frames
		case *RotationChannel:
			t.Rotations = c.Frames
		case *ScaleChannel:
			t.Scales = c.Frames
		}
	}

	for i := range tracks {
		t := &tracks[i]
		bone := skel.Bones[i]
		if t.Positions == nil {
			t.Positions = repeat(bone.Translation, z.FrameCount)
		}
		if t.Rotations == nil {
			t.Rotations = repeat(bone.Rotation, z.FrameCount)
		}
		if t.Scales == nil {
			t.Scales = repeat(math.One(), z.FrameCount)
		}
	}
	return tracks, nil
}

func repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ParseZMO parses a ZMO motion from raw bytes.
func ParseZMO(data []byte) (*ZMO, error) {
	r := binreader.New(data)

	magic, err := r.CString()
	if err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != ZMOMagic {
		return nil, fmt.Errorf("%w: %q", ErrInvalidZMOMagic, magic)
	}

	var header [3]int32 // fps, frames, channels
	for i := range header {
		if header[i], err = r.Int32(); err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		if header[i] < 0 {
			return nil, formatErrorf("negative header field %d", header[i])
		}
	}

	zmo := &ZMO{FPS: int(header[0]), FrameCount: int(header[1])}
	channelCount := int(header[2])

	if err := r.Fits(channelCount, 8); err != nil {
		return nil, fmt.Errorf("reading channel headers: %w", err)
	}
	headers := make([]zmoChannelHeader, channelCount)
	frameSize := 0
	for i := range headers {
		h, err := parseZMOChannelHeader(r)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		headers[i] = h
		frameSize += h.frameSize()
	}

	// All channels share the frame block; check it as a whole before any
	// per-channel allocation.
	if err := r.Fits(zmo.FrameCount, frameSize); err != nil {
		return nil, fmt.Errorf("reading frames: %w", err)
	}
	zmo.Channels = make([]Channel, channelCount)
	for i, h := range headers {
		zmo.Channels[i] = h.newChannel(zmo.FrameCount)
	}

	// Frame data is interleaved: every channel's value for frame 0, then
	// frame 1, and so on.
	for f := 0; f < zmo.FrameCount && channelCount > 0; f++ {
		for i, ch := range zmo.Channels {
			if err := readZMOFrame(r, ch, f); err != nil {
				return nil, fmt.Errorf("frame %d channel %d: %w", f, i, err)
			}
		}
	}

	return zmo, nil
}

type zmoChannelHeader struct {
	typ  ChannelType
	bone int
}

func parseZMOChannelHeader(r *binreader.Reader) (zmoChannelHeader, error) {
	typ, err := r.Int32()
	if err != nil {
		return zmoChannelHeader{}, fmt.Errorf("reading type: %w", err)
	}
	bone, err := r.Int32()
	if err != nil {
		return zmoChannelHeader{}, fmt.Errorf("reading bone: %w", err)
	}
	h := zmoChannelHeader{typ: ChannelType(typ), bone: int(bone)}
	if h.frameSize() == 0 {
		return zmoChannelHeader{}, fmt.Errorf("%w: %d", ErrUnknownChannel, typ)
	}
	return h, nil
}

// frameSize is the number of bytes one frame of the channel occupies.
func (h zmoChannelHeader) frameSize() int {
	switch h.typ {
	case ChannelPosition:
		return 12
	case ChannelRotation:
		return 16
	case ChannelScale:
		return 4
	}
	return 0
}

func (h zmoChannelHeader) newChannel(frames int) Channel {
	switch h.typ {
	case ChannelPosition:
		return &PositionChannel{BoneIndex: h.bone, Frames: make([]math.Vec3, frames)}
	case ChannelRotation:
		return &RotationChannel{BoneIndex: h.bone, Frames: make([]math.Quat, frames)}
	default:
		return &ScaleChannel{BoneIndex: h.bone, Frames: make([]math.Vec3, frames)}
	}
}

func readZMOFrame(r *binreader.Reader, ch Channel, f int) error {
	var err error
	switch c := ch.(type) {
	case *PositionChannel:
		c.Frames[f], err = r.Vec3()
	case *RotationChannel:
		c.Frames[f], err = r.QuatWXYZ()
	case *ScaleChannel:
		var s float32
		if s, err = r.Float32(); err == nil {
			c.Frames[f] = math.Vec3{X: s, Y: s, Z: s}
		}
	}
	return err
}

// ParseZMOFile parses a ZMO file from disk.
func ParseZMOFile(path string) (*ZMO, error) {
	return parseFile("ZMO", path, ParseZMO)
}
