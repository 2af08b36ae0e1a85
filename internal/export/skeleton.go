package export

import (
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// Skeleton is an exported ZMD: one node per bone and a skin over them.
type Skeleton struct {
	Root   uint32
	Joints []uint32
	Skin   uint32
	// Dummies holds one node per ZMD dummy, parented to its bone.
	Dummies []uint32

	zmd *formats.ZMD
}

// AddSkeleton writes the bone hierarchy of zmd under a scene root node and
// creates a skin whose joint order matches the ZMD bone order.
func (e *Exporter) AddSkeleton(name string, zmd *formats.ZMD) *Skeleton {
	doc := e.doc
	skel := &Skeleton{
		Joints: make([]uint32, len(zmd.Bones)),
		zmd:    zmd,
	}

	skel.Root = e.addNode(&gltf.Node{
		Name:     name,
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}, nil)

	// Bind pose in glTF space; parents always precede children.
	global := make([]math.Mat4, len(zmd.Bones))
	inverseBind := make([][4][4]float32, len(zmd.Bones))
	for i, b := range zmd.Bones {
		node := trsNode(b.Name, b.Translation, b.Rotation, math.One())
		local := math.TRS(math.ZUpToYUp(b.Translation), math.ZUpToYUpQuat(b.Rotation), math.One())

		parent := &skel.Root
		if p := zmd.ParentIndex(i); p >= 0 {
			parent = &skel.Joints[p]
			global[i] = global[p].Mul(local)
		} else {
			global[i] = local
		}
		skel.Joints[i] = e.addNode(node, parent)
		inverseBind[i] = global[i].InverseRigid().Columns()
	}

	for _, d := range zmd.Dummies {
		node := trsNode(d.Name, d.Translation, d.Rotation, math.One())
		skel.Dummies = append(skel.Dummies, e.addNode(node, &skel.Joints[d.Parent]))
	}

	ibm := modeler.WriteAccessor(doc, gltf.TargetNone, inverseBind)
	doc.Skins = append(doc.Skins, &gltf.Skin{
		Name:                name,
		Joints:              skel.Joints,
		Skeleton:            gltf.Index(skel.Joints[0]),
		InverseBindMatrices: gltf.Index(ibm),
	})
	skel.Skin = uint32(len(doc.Skins) - 1)
	return skel
}

// AddSkinnedMesh writes zms and a node deforming it with skel. The mesh bone
// table must only name bones of the skeleton.
func (e *Exporter) AddSkinnedMesh(name string, zms *formats.ZMS, material *uint32, skel *Skeleton) (uint32, error) {
	if err := zms.CheckSkeleton(len(skel.Joints)); err != nil {
		return 0, err
	}
	mesh := e.AddMesh(name, zms, material)
	return e.AddSkinnedMeshNode(name, mesh, skel), nil
}

// AddSkinnedMeshNode adds a node that deforms mesh with skel. The node is a
// child of the skeleton root.
func (e *Exporter) AddSkinnedMeshNode(name string, mesh uint32, skel *Skeleton) uint32 {
	return e.addNode(&gltf.Node{
		Name:     name,
		Mesh:     gltf.Index(mesh),
		Skin:     gltf.Index(skel.Skin),
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}, &skel.Root)
}
