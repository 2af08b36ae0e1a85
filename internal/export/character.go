package export

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/roseimport/pkg/formats"
)

// AddCharacter writes character index of chr: its skeleton, the geometry
// parts of its catalog models skinned to that skeleton, and one animation
// per motion with a known action slot. Models index catalog.
func (e *Exporter) AddCharacter(name string, chr *formats.CHR, index int, catalog *formats.ZSC, src Source) (*Skeleton, error) {
	if index < 0 || index >= len(chr.Characters) {
		return nil, fmt.Errorf("%w: character %d of %d", formats.ErrInvalidCHRIndex, index, len(chr.Characters))
	}
	c := &chr.Characters[index]
	if !c.Enabled {
		return nil, fmt.Errorf("character %d is disabled", index)
	}

	skelPath := chr.Skeletons[c.Skeleton]
	zmd, err := src.Skeleton(skelPath)
	if err != nil {
		return nil, fmt.Errorf("character %d: %w", index, err)
	}
	skel := e.AddSkeleton(name, zmd)

	for _, m := range c.Models {
		model := catalog.Model(int(m))
		if model == nil {
			return nil, fmt.Errorf("character %d model %d: %w", index, m, formats.ErrInvalidZSCIndex)
		}
		for i := range model.Parts {
			part := &model.Parts[i]
			if part.Kind() != formats.PartGeometry {
				continue
			}
			if err := e.addCharacterPart(fmt.Sprintf("%s_model%d_part%d", name, m, i), catalog, part, skel, src); err != nil {
				return nil, fmt.Errorf("character %d model %d part %d: %w", index, m, i, err)
			}
		}
	}

	for _, m := range c.Motions {
		action := m.Action()
		if action == "" {
			e.log.Debug("skipping motion in unknown action slot",
				zap.String("character", name),
				zap.Int16("slot", m.Type))
			continue
		}
		motionPath := chr.Motions[m.Motion]
		zmo, err := src.Motion(motionPath)
		if err != nil {
			return nil, fmt.Errorf("character %d %s motion: %w", index, action, err)
		}
		if _, err := e.AddAnimation(name+"_"+action, zmo, skel); err != nil {
			return nil, fmt.Errorf("character %d %s motion %s: %w", index, action, motionPath, err)
		}
	}
	return skel, nil
}

// addCharacterPart binds one catalog part to the character skeleton.
// Parts without bone weights ride on the skeleton root unskinned.
func (e *Exporter) addCharacterPart(name string, catalog *formats.ZSC, part *formats.ZSCPart, skel *Skeleton, src Source) error {
	zms, err := src.Mesh(catalog.Meshes[part.Mesh])
	if err != nil {
		return err
	}
	if zms.HasSkin() {
		if err := zms.CheckSkeleton(len(skel.Joints)); err != nil {
			return err
		}
	}

	mesh, err := e.catalogMesh(catalog, part, src)
	if err != nil {
		return err
	}
	if !zms.HasSkin() {
		e.addNode(&gltf.Node{
			Name:     name,
			Mesh:     gltf.Index(mesh),
			Rotation: [4]float32{0, 0, 0, 1},
			Scale:    [3]float32{1, 1, 1},
		}, &skel.Root)
		return nil
	}
	e.AddSkinnedMeshNode(name, mesh, skel)
	return nil
}
