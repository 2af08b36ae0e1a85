package export

import (
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// ErrEmptyMotion is returned for a motion with nothing to play.
var ErrEmptyMotion = errors.New("motion has no keyframes")

// AddAnimation writes zmo as a glTF animation of skel and returns its index.
// Only properties the motion has channels for are animated; the rest stay
// at the bind pose carried by the joint nodes.
func (e *Exporter) AddAnimation(name string, zmo *formats.ZMO, skel *Skeleton) (uint32, error) {
	if skel.zmd == nil {
		return 0, errors.New("skeleton was not built by AddSkeleton")
	}
	if err := checkMotion(zmo); err != nil {
		return 0, err
	}
	tracks, err := zmo.BoneTracks(skel.zmd)
	if err != nil {
		return 0, err
	}

	b := e.newAnimation(name, zmo)
	type target struct {
		bone int
		typ  formats.ChannelType
	}
	seen := make(map[target]bool)
	for _, ch := range zmo.Channels {
		t := target{ch.Bone(), ch.Type()}
		if seen[t] {
			continue
		}
		seen[t] = true

		track := tracks[t.bone]
		node := skel.Joints[t.bone]
		switch t.typ {
		case formats.ChannelPosition:
			b.add(node, gltf.TRSTranslation, e.writeVec3s(track.Positions, math.ZUpToYUp))
		case formats.ChannelRotation:
			b.add(node, gltf.TRSRotation, e.writeQuats(track.Rotations))
		case formats.ChannelScale:
			b.add(node, gltf.TRSScale, e.writeVec3s(track.Scales, math.ZUpToYUpScale))
		}
	}

	idx := b.finish()
	e.log.Debug("animation added",
		zap.String("name", name),
		zap.Int("frames", zmo.FrameCount),
		zap.Int("channels", len(b.anim.Channels)))
	return idx, nil
}

// addPartAnimation animates a single model part node. Every channel of a
// part motion drives bone 0; positions are in centimetres like the part
// offsets they replace.
func (e *Exporter) addPartAnimation(name string, zmo *formats.ZMO, node uint32) (uint32, error) {
	if err := checkMotion(zmo); err != nil {
		return 0, err
	}
	if err := zmo.Validate(1); err != nil {
		return 0, err
	}

	// Later channels of the same type win.
	byType := make(map[formats.ChannelType]formats.Channel)
	for _, ch := range zmo.Channels {
		byType[ch.Type()] = ch
	}

	b := e.newAnimation(name+"_anim", zmo)
	if c, ok := byType[formats.ChannelPosition].(*formats.PositionChannel); ok {
		b.add(node, gltf.TRSTranslation, e.writeVec3s(c.Frames, func(v math.Vec3) math.Vec3 {
			return math.ZUpToYUp(math.MapToMesh(v))
		}))
	}
	if c, ok := byType[formats.ChannelRotation].(*formats.RotationChannel); ok {
		b.add(node, gltf.TRSRotation, e.writeQuats(c.Frames))
	}
	if c, ok := byType[formats.ChannelScale].(*formats.ScaleChannel); ok {
		b.add(node, gltf.TRSScale, e.writeVec3s(c.Frames, math.ZUpToYUpScale))
	}
	return b.finish(), nil
}

func checkMotion(zmo *formats.ZMO) error {
	if zmo.FPS <= 0 || zmo.FrameCount == 0 || len(zmo.Channels) == 0 {
		return fmt.Errorf("%w: %d frames at %d fps, %d channels",
			ErrEmptyMotion, zmo.FrameCount, zmo.FPS, len(zmo.Channels))
	}
	return nil
}

// animationBuilder collects channels sharing one keyframe time accessor.
type animationBuilder struct {
	doc   *gltf.Document
	anim  *gltf.Animation
	input uint32
}

// newAnimation writes the keyframe times of zmo, one per frame.
func (e *Exporter) newAnimation(name string, zmo *formats.ZMO) *animationBuilder {
	times := make([]float32, zmo.FrameCount)
	for f := range times {
		times[f] = float32(f) / float32(zmo.FPS)
	}
	input := modeler.WriteAccessor(e.doc, gltf.TargetNone, times)

	// Sampler inputs must carry their bounds.
	acc := e.doc.Accessors[input]
	acc.Min = []float32{times[0]}
	acc.Max = []float32{times[len(times)-1]}

	return &animationBuilder{
		doc:   e.doc,
		anim:  &gltf.Animation{Name: name},
		input: input,
	}
}

func (b *animationBuilder) add(node uint32, path gltf.TRSProperty, output uint32) {
	b.anim.Samplers = append(b.anim.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(b.input),
		Output:        gltf.Index(output),
		Interpolation: gltf.InterpolationLinear,
	})
	b.anim.Channels = append(b.anim.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(b.anim.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

func (b *animationBuilder) finish() uint32 {
	b.doc.Animations = append(b.doc.Animations, b.anim)
	return uint32(len(b.doc.Animations) - 1)
}

func (e *Exporter) writeVec3s(frames []math.Vec3, convert func(math.Vec3) math.Vec3) uint32 {
	out := make([][3]float32, len(frames))
	for i, v := range frames {
		out[i] = convert(v).Array()
	}
	return modeler.WriteAccessor(e.doc, gltf.TargetNone, out)
}

func (e *Exporter) writeQuats(frames []math.Quat) uint32 {
	out := make([][4]float32, len(frames))
	for i, q := range frames {
		out[i] = math.ZUpToYUpQuat(q.Normalize()).Array()
	}
	return modeler.WriteAccessor(e.doc, gltf.TargetNone, out)
}
