package formats

import (
	"fmt"

	"github.com/Faultbox/roseimport/pkg/binreader"
	"github.com/Faultbox/roseimport/pkg/math"
)

// IFOBlockType identifies a block in the IFO block table.
type IFOBlockType int32

// Block types decoded by ParseIFO. Other block types are skipped.
const (
	IFOBlockObjects    IFOBlockType = 1
	IFOBlockBuildings  IFOBlockType = 3
	IFOBlockCollisions IFOBlockType = 11
)

// String returns the block type name.
func (t IFOBlockType) String() string {
	switch t {
	case IFOBlockObjects:
		return "objects"
	case IFOBlockBuildings:
		return "buildings"
	case IFOBlockCollisions:
		return "collisions"
	default:
		return fmt.Sprintf("block(%d)", int32(t))
	}
}

// IFOBlock is one entry of the block table.
type IFOBlock struct {
	Type   IFOBlockType
	Offset int32
}

// IFOObject places one catalog model on the map. ObjectID indexes the
// decoration or building ZSC, depending on the list it came from.
type IFOObject struct {
	Description string
	WarpID      int16
	EventID     int16
	ObjectType  int32
	ObjectID    int32
	MapX        int32
	MapY        int32
	Rotation    math.Quat // stored (x, y, z, w)
	Position    math.Vec3
	Scale       math.Vec3
}

// Transform returns the placement transform.
func (o *IFOObject) Transform() math.Mat4 {
	return math.TRS(o.Position, o.Rotation, o.Scale)
}

// IFO represents a parsed placement file.
type IFO struct {
	Blocks     []IFOBlock
	Objects    []IFOObject
	Buildings  []IFOObject
	Collisions []IFOObject
}

// ParseIFO parses an IFO placement file from raw bytes.
func ParseIFO(data []byte) (*IFO, error) {
	r := binreader.New(data)

	blockCount, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading block count: %w", err)
	}
	if err := r.Fits(int(blockCount), 8); err != nil {
		return nil, fmt.Errorf("reading block table: %w", err)
	}

	ifo := &IFO{Blocks: make([]IFOBlock, blockCount)}
	for i := range ifo.Blocks {
		typ, err := r.Int32()
		if err != nil {
			return nil, fmt.Errorf("reading block %d type: %w", i, err)
		}
		off, err := r.Int32()
		if err != nil {
			return nil, fmt.Errorf("reading block %d offset: %w", i, err)
		}
		ifo.Blocks[i] = IFOBlock{Type: IFOBlockType(typ), Offset: off}
	}

	// A well-formed file stores every record once, so the records decoded
	// across all blocks can never outnumber what the file could hold.
	budget := r.Len() / ifoRecordMinSize
	seen := make(map[int32]IFOBlockType)
	for _, b := range ifo.Blocks {
		var dst *[]IFOObject
		switch b.Type {
		case IFOBlockObjects:
			dst = &ifo.Objects
		case IFOBlockBuildings:
			dst = &ifo.Buildings
		case IFOBlockCollisions:
			dst = &ifo.Collisions
		default:
			continue
		}

		if prev, ok := seen[b.Offset]; ok {
			return nil, formatErrorf("%s block shares offset %d with %s block", b.Type, b.Offset, prev)
		}
		seen[b.Offset] = b.Type

		if err := r.Seek(int(b.Offset)); err != nil {
			return nil, fmt.Errorf("seeking to %s block: %w", b.Type, err)
		}
		objects, err := parseIFOBlock(r, budget)
		if err != nil {
			return nil, fmt.Errorf("parsing %s block: %w", b.Type, err)
		}
		budget -= len(objects)
		*dst = append(*dst, objects...)
	}

	return ifo, nil
}

// ifoRecordMinSize is the size of a record with an empty description.
const ifoRecordMinSize = 1 + 2 + 2 + 4*4 + 16 + 12 + 12

func parseIFOBlock(r *binreader.Reader, budget int) ([]IFOObject, error) {
	count, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("reading count: %w", err)
	}
	if err := r.Fits(int(count), ifoRecordMinSize); err != nil {
		return nil, err
	}
	if int(count) > budget {
		return nil, formatErrorf("%d records exceed the %d left for the file", count, budget)
	}

	objects := make([]IFOObject, count)
	for i := range objects {
		if objects[i], err = parseIFOObject(r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return objects, nil
}

func parseIFOObject(r *binreader.Reader) (IFOObject, error) {
	var o IFOObject
	var err error

	if o.Description, err = r.LString8(); err != nil {
		return o, fmt.Errorf("reading description: %w", err)
	}
	if o.WarpID, err = r.Int16(); err != nil {
		return o, err
	}
	if o.EventID, err = r.Int16(); err != nil {
		return o, err
	}
	for _, f := range []*int32{&o.ObjectType, &o.ObjectID, &o.MapX, &o.MapY} {
		if *f, err = r.Int32(); err != nil {
			return o, err
		}
	}
	if o.Rotation, err = r.QuatXYZW(); err != nil {
		return o, fmt.Errorf("reading rotation: %w", err)
	}
	if o.Position, err = r.Vec3(); err != nil {
		return o, fmt.Errorf("reading position: %w", err)
	}
	if o.Scale, err = r.Vec3(); err != nil {
		return o, fmt.Errorf("reading scale: %w", err)
	}
	return o, nil
}

// ParseIFOFile parses an IFO file from disk.
func ParseIFOFile(path string) (*IFO, error) {
	return parseFile("IFO", path, ParseIFO)
}
