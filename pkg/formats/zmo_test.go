package formats

import (
	"bytes"
	"errors"
	"runtime"
	"testing"
)

type testChannel struct {
	typ  ChannelType
	bone int32
}

// createTestZMO builds a motion where every value in frame f equals f.
func createTestZMO(fps, frames int32, channels []testChannel) []byte {
	buf := new(bytes.Buffer)
	writeCString(buf, ZMOMagic)
	writeLE(buf, fps, frames, int32(len(channels)))

	for _, ch := range channels {
		writeLE(buf, int32(ch.typ), ch.bone)
	}

	for f := int32(0); f < frames; f++ {
		v := float32(f)
		for _, ch := range channels {
			switch ch.typ {
			case ChannelPosition:
				writeVec3(buf, v, v, v)
			case ChannelRotation:
				writeLE(buf, float32(1), v, float32(0), float32(0))
			default:
				writeLE(buf, v)
			}
		}
	}
	return buf.Bytes()
}

func TestParseZMO_Channels(t *testing.T) {
	data := createTestZMO(30, 3, []testChannel{
		{ChannelPosition, 0},
		{ChannelRotation, 0},
		{ChannelRotation, 1},
		{ChannelScale, 2},
	})

	zmo, err := ParseZMO(data)
	if err != nil {
		t.Fatalf("ParseZMO failed: %v", err)
	}

	if zmo.FPS != 30 || zmo.FrameCount != 3 {
		t.Errorf("expected 30fps x 3 frames, got %dfps x %d", zmo.FPS, zmo.FrameCount)
	}
	if len(zmo.Channels) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(zmo.Channels))
	}

	pos, ok := zmo.Channels[0].(*PositionChannel)
	if !ok {
		t.Fatalf("expected *PositionChannel, got %T", zmo.Channels[0])
	}
	if len(pos.Frames) != 3 || pos.Frames[2].Y != 2 {
		t.Errorf("unexpected position frames %v", pos.Frames)
	}

	rot, ok := zmo.Channels[2].(*RotationChannel)
	if !ok {
		t.Fatalf("expected *RotationChannel, got %T", zmo.Channels[2])
	}
	if rot.Bone() != 1 || rot.Frames[1].W != 1 || rot.Frames[1].X != 1 {
		t.Errorf("unexpected rotation channel %+v", rot)
	}

	scale, ok := zmo.Channels[3].(*ScaleChannel)
	if !ok {
		t.Fatalf("expected *ScaleChannel, got %T", zmo.Channels[3])
	}
	if s := scale.Frames[2]; s.X != 2 || s.Y != 2 || s.Z != 2 {
		t.Errorf("expected uniform scale 2, got %v", s)
	}
}

func TestZMO_Duration(t *testing.T) {
	tests := []struct {
		fps, frames int
		want        float32
	}{
		{30, 60, 2},
		{10, 5, 0.5},
		{0, 10, 0},
	}
	for _, tt := range tests {
		zmo := &ZMO{FPS: tt.fps, FrameCount: tt.frames}
		if got := zmo.Duration(); got != tt.want {
			t.Errorf("Duration(%d fps, %d frames) = %v, want %v", tt.fps, tt.frames, got, tt.want)
		}
	}
}

func TestParseZMO_UnknownChannel(t *testing.T) {
	data := createTestZMO(30, 1, []testChannel{{ChannelType(8), 0}})

	_, err := ParseZMO(data)
	if !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestZMO_Validate(t *testing.T) {
	zmo, err := ParseZMO(createTestZMO(30, 2, []testChannel{{ChannelPosition, 0}, {ChannelRotation, 3}}))
	if err != nil {
		t.Fatalf("ParseZMO failed: %v", err)
	}

	if err := zmo.Validate(4); err != nil {
		t.Errorf("expected valid against 4 bones, got %v", err)
	}
	if err := zmo.Validate(3); !errors.Is(err, ErrInvalidZMOBone) {
		t.Errorf("expected ErrInvalidZMOBone, got %v", err)
	}
}

func TestZMO_BoneTracks(t *testing.T) {
	skel, err := ParseZMD(createTestZMD(ZMDMagic3, threeBones, nil))
	if err != nil {
		t.Fatalf("ParseZMD failed: %v", err)
	}
	zmo, err := ParseZMO(createTestZMO(30, 2, []testChannel{{ChannelRotation, 1}, {ChannelScale, 1}}))
	if err != nil {
		t.Fatalf("ParseZMO failed: %v", err)
	}

	tracks, err := zmo.BoneTracks(skel)
	if err != nil {
		t.Fatalf("BoneTracks failed: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(tracks))
	}

	for i, tr := range tracks {
		if len(tr.Positions) != 2 || len(tr.Rotations) != 2 || len(tr.Scales) != 2 {
			t.Errorf("track %d: expected 2 frames per property", i)
		}
	}

	// Bone 0 has no channels: bind pose everywhere.
	if tracks[0].Positions[1].Z != 90 {
		t.Errorf("expected bind translation z=90, got %v", tracks[0].Positions[1])
	}
	if tracks[0].Scales[0].X != 1 {
		t.Errorf("expected unit scale, got %v", tracks[0].Scales[0])
	}
	// Bone 1 keeps its bind translation but uses animated rotation.
	if tracks[1].Positions[0].Z != 10 {
		t.Errorf("expected bind translation z=10, got %v", tracks[1].Positions[0])
	}
	if tracks[1].Rotations[1].X != 1 {
		t.Errorf("expected animated rotation, got %v", tracks[1].Rotations[1])
	}
	if tracks[1].Scales[1].Y != 1 {
		t.Errorf("expected animated scale 1 at frame 1, got %v", tracks[1].Scales[1])
	}
}

func TestParseZMO_Truncated(t *testing.T) {
	data := createTestZMO(30, 4, []testChannel{{ChannelPosition, 0}, {ChannelRotation, 0}})

	for _, n := range []int{0, 8, 14, 30, len(data) - 2} {
		_, err := ParseZMO(data[:n])
		if !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("truncated at %d: expected ErrOutOfBounds, got %v", n, err)
		}
	}
}

// Each channel alone fits in the remaining bytes but all of them together do
// not. The parser must refuse before allocating any frame storage.
func TestParseZMO_FrameBlockTooLarge(t *testing.T) {
	const channels, frames = 2000, 1000

	buf := new(bytes.Buffer)
	writeCString(buf, ZMOMagic)
	writeLE(buf, int32(30), int32(frames), int32(channels))
	for i := 0; i < channels; i++ {
		writeLE(buf, int32(ChannelPosition), int32(0))
	}
	buf.Write(make([]byte, frames*12+4))
	data := buf.Bytes()

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	_, err := ParseZMO(data)
	runtime.ReadMemStats(&after)

	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	// Allocating every channel would take channels*frames*12 = 24 MB.
	if alloc := after.TotalAlloc - before.TotalAlloc; alloc > 4<<20 {
		t.Errorf("parser allocated %d bytes before rejecting the frame block", alloc)
	}
}

func TestParseZMO_BadMagic(t *testing.T) {
	buf := new(bytes.Buffer)
	writeCString(buf, "ZMO0003")
	writeLE(buf, int32(30), int32(0), int32(0))

	if _, err := ParseZMO(buf.Bytes()); !errors.Is(err, ErrInvalidZMOMagic) {
		t.Errorf("expected ErrInvalidZMOMagic, got %v", err)
	}
}
