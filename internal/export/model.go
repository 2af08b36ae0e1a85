package export

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// Source resolves the file paths stored in catalogs and character lists.
// *assets.Manager implements it.
type Source interface {
	Mesh(path string) (*formats.ZMS, error)
	Skeleton(path string) (*formats.ZMD, error)
	Motion(path string) (*formats.ZMO, error)
}

// AddModel writes model index of catalog as a node tree and returns the
// model's root node. Each geometry part becomes a node carrying its mesh,
// nested under its parent part. A part with an animation path gets its own
// node animation. Bone and dummy attachments are skipped; they only make
// sense on a character skeleton.
func (e *Exporter) AddModel(name string, catalog *formats.ZSC, index int, src Source) (uint32, error) {
	model := catalog.Model(index)
	if model == nil {
		return 0, fmt.Errorf("model %d: %w", index, formats.ErrInvalidZSCIndex)
	}

	root := e.addNode(&gltf.Node{
		Name:     name,
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}, nil)

	nodes := make([]*uint32, len(model.Parts))
	for i := range model.Parts {
		part := &model.Parts[i]
		if part.Kind() != formats.PartGeometry {
			e.log.Debug("skipping attachment part",
				zap.String("model", name),
				zap.Int("part", i),
				zap.Int("bone", part.Bone),
				zap.Int("dummy", part.Dummy))
			continue
		}

		mesh, err := e.catalogMesh(catalog, part, src)
		if err != nil {
			return 0, fmt.Errorf("model %d part %d: %w", index, i, err)
		}

		partName := fmt.Sprintf("%s_part%d", name, i)
		node := trsNode(partName, math.MapToMesh(part.Position), part.Rotation, part.Scale)
		node.Mesh = gltf.Index(mesh)

		// Parents are normally earlier parts; anything else hangs off the
		// model root.
		parent := &root
		if p := part.ParentIndex(); p >= 0 && p < i && nodes[p] != nil {
			parent = nodes[p]
		}
		idx := e.addNode(node, parent)
		nodes[i] = &idx

		if part.AnimationPath == "" {
			continue
		}
		zmo, err := src.Motion(part.AnimationPath)
		if err != nil {
			return 0, fmt.Errorf("model %d part %d: %w", index, i, err)
		}
		if _, err := e.addPartAnimation(partName, zmo, idx); err != nil {
			return 0, fmt.Errorf("model %d part %d: %s: %w", index, i, part.AnimationPath, err)
		}
	}
	return root, nil
}

// catalogMesh exports the part's mesh with its material, reusing earlier
// exports of the same pair.
func (e *Exporter) catalogMesh(catalog *formats.ZSC, part *formats.ZSCPart, src Source) (uint32, error) {
	meshPath := catalog.Meshes[part.Mesh]
	mat := &catalog.Materials[part.Material]

	key := meshKey{path: meshPath, material: mat}
	if idx, ok := e.meshes[key]; ok {
		return idx, nil
	}

	zms, err := src.Mesh(meshPath)
	if err != nil {
		return 0, err
	}
	matIdx := e.AddMaterial(mat)
	idx := e.AddMesh(assetName(meshPath), zms, gltf.Index(matIdx))
	e.meshes[key] = idx
	return idx, nil
}
