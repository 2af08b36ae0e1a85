package export

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// AddMesh writes a ZMS mesh as a single-primitive glTF mesh and returns its
// index. material is a document material index, or nil.
//
// Skinned meshes get JOINTS_0 indices into the skeleton's bone list, so a
// node using the mesh must reference a skin built by AddSkeleton for the
// same ZMD.
func (e *Exporter) AddMesh(name string, zms *formats.ZMS, material *uint32) uint32 {
	doc := e.doc
	n := zms.VertexCount()

	positions := make([][3]float32, n)
	for i, p := range zms.Positions {
		positions[i] = math.ZUpToYUp(p).Array()
	}

	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(doc, positions),
	}

	if zms.HasNormals() {
		normals := make([][3]float32, n)
		for i, nm := range zms.Normals {
			normals[i] = math.ZUpToYUp(nm.Normalize()).Array()
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}

	if zms.Colors != nil {
		colors := make([][4]float32, n)
		for i, c := range zms.Colors {
			colors[i] = c.Array()
		}
		attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
	}

	layer := 0
	for _, uv := range zms.UVs {
		if uv == nil {
			continue
		}
		coords := make([][2]float32, n)
		for i, c := range uv {
			coords[i] = c.Array()
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", layer)] = modeler.WriteTextureCoord(doc, coords)
		layer++
	}

	if zms.HasSkin() {
		joints, weights := skinAttributes(zms)
		attributes["JOINTS_0"] = modeler.WriteJoints(doc, joints)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(doc, weights)
	}

	indices := modeler.WriteIndices(doc, zms.Indices)

	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices:    &indices,
			Attributes: attributes,
			Material:   material,
		}},
	})
	return uint32(len(doc.Meshes) - 1)
}

// AddMeshNode adds a scene root node showing mesh and returns its index.
func (e *Exporter) AddMeshNode(name string, mesh uint32) uint32 {
	return e.addNode(&gltf.Node{
		Name:     name,
		Mesh:     gltf.Index(mesh),
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}, nil)
}

// skinAttributes maps each vertex's bone slots through the mesh bone table
// to skeleton bone indices and normalizes the weights. Unused influences
// point at joint 0 with weight 0.
func skinAttributes(zms *formats.ZMS) ([][4]uint16, [][4]float32) {
	joints := make([][4]uint16, len(zms.Skin))
	weights := make([][4]float32, len(zms.Skin))
	for v, bw := range zms.Skin {
		var sum float32
		for k := 0; k < 4; k++ {
			bone := zms.SkeletonBone(v, k)
			if bone < 0 {
				continue
			}
			joints[v][k] = uint16(bone)
			weights[v][k] = bw.Weights[k]
			sum += bw.Weights[k]
		}
		if sum > 0 {
			for k := range weights[v] {
				weights[v][k] /= sum
			}
		} else {
			// Fully unweighted vertices follow the root bone.
			weights[v][0] = 1
		}
	}
	return joints, weights
}
