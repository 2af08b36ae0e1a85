package mapload

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// PlacementKind says which IFO list a placement came from.
type PlacementKind int

// Placement kinds.
const (
	PlacementBuilding PlacementKind = iota
	PlacementDecoration
	PlacementCollision
)

// String returns the kind name.
func (k PlacementKind) String() string {
	switch k {
	case PlacementBuilding:
		return "building"
	case PlacementDecoration:
		return "decoration"
	default:
		return "collision"
	}
}

// CollisionBox is the size of an unscaled IFO collision volume.
var CollisionBox = math.Vec3{X: 120, Y: 6.8, Z: 252.2}

// Placement is one object on the map with its catalog model resolved.
type Placement struct {
	Kind   PlacementKind
	Name   string // e.g. "Bldg_31_30_0"
	Asset  string // e.g. "JDTC_12"; empty for collisions
	TileX  int
	TileY  int
	Index  int
	Object formats.IFOObject

	// Model is nil for collisions and for object ids missing from the
	// catalog.
	Model *formats.ZSCModel

	// Transform places the model (or the centre of the collision box).
	Transform math.Mat4
	// Extent is the scaled collision box; zero for models.
	Extent math.Vec3
}

func (l *Loader) resolvePlacements(tiles []*Tile, buildings, decorations *formats.ZSC) []Placement {
	var out []Placement
	unresolved := 0

	add := func(p Placement, catalog *formats.ZSC) {
		if catalog != nil {
			p.Model = catalog.Model(int(p.Object.ObjectID))
			if p.Model != nil && p.Model.Empty() {
				p.Model = nil
			}
		}
		if p.Model == nil {
			unresolved++
			l.log.Debug("placement has no model",
				zap.String("name", p.Name),
				zap.String("asset", p.Asset))
		}
		out = append(out, p)
	}

	for _, t := range tiles {
		if t == nil || t.Objects == nil {
			continue
		}
		for i, obj := range t.Objects.Buildings {
			add(Placement{
				Kind:      PlacementBuilding,
				Name:      fmt.Sprintf("Bldg_%d_%d_%d", t.X, t.Y, i),
				Asset:     fmt.Sprintf("JDTC_%d", obj.ObjectID),
				TileX:     t.X,
				TileY:     t.Y,
				Index:     i,
				Object:    obj,
				Transform: obj.Transform(),
			}, buildings)
		}
		for i, obj := range t.Objects.Objects {
			add(Placement{
				Kind:      PlacementDecoration,
				Name:      fmt.Sprintf("Deco_%d_%d_%d", t.X, t.Y, i),
				Asset:     fmt.Sprintf("JDTD_%d", obj.ObjectID),
				TileX:     t.X,
				TileY:     t.Y,
				Index:     i,
				Object:    obj,
				Transform: obj.Transform(),
			}, decorations)
		}
		for i, obj := range t.Objects.Collisions {
			out = append(out, collisionPlacement(t, i, obj))
		}
	}

	if unresolved > 0 {
		l.log.Warn("placements without a catalog model", zap.Int("count", unresolved))
	}
	return out
}

// collisionPlacement builds the box for an IFO collision record. The record
// position is the bottom centre of the box; Transform is moved to its centre.
func collisionPlacement(t *Tile, i int, obj formats.IFOObject) Placement {
	extent := CollisionBox.Mul(obj.Scale)
	offset := obj.Rotation.Rotate(math.Vec3{Z: extent.Z / 2})
	centre := obj.Position.Add(offset)

	return Placement{
		Kind:      PlacementCollision,
		Name:      fmt.Sprintf("Collision_%d_%d_%d", t.X, t.Y, i),
		TileX:     t.X,
		TileY:     t.Y,
		Index:     i,
		Object:    obj,
		Transform: math.TRS(centre, obj.Rotation, math.One()),
		Extent:    extent,
	}
}

// CountByKind returns how many placements of each kind the map has.
func (m *Map) CountByKind() map[PlacementKind]int {
	counts := make(map[PlacementKind]int)
	for _, p := range m.Placements {
		counts[p.Kind]++
	}
	return counts
}
