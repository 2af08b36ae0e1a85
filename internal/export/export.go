// Package export converts parsed ROSE assets into glTF 2.0 documents.
//
// ROSE geometry is Z-up; every position, normal and rotation is turned to
// glTF's Y-up convention on the way out. Mesh and skeleton data is written
// in metres as stored. ZSC part offsets are stored in centimetres and are
// scaled down to match.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/roseimport/pkg/formats"
	"github.com/Faultbox/roseimport/pkg/math"
)

// Exporter accumulates meshes, materials, skeletons and models into one
// glTF document. It is not safe for concurrent use.
type Exporter struct {
	doc *gltf.Document
	log *zap.Logger

	meshes    map[meshKey]uint32
	materials map[*formats.ZSCMaterial]uint32
	images    map[string]uint32
}

// meshKey identifies a mesh exported with a given material.
type meshKey struct {
	path     string
	material *formats.ZSCMaterial
}

// New returns an Exporter with an empty document. A nil logger discards
// output.
func New(log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		doc:       gltf.NewDocument(),
		log:       log,
		meshes:    make(map[meshKey]uint32),
		materials: make(map[*formats.ZSCMaterial]uint32),
		images:    make(map[string]uint32),
	}
}

// Document returns the document built so far.
func (e *Exporter) Document() *gltf.Document {
	return e.doc
}

// Write encodes the document to w, as GLB when binary is set.
func (e *Exporter) Write(w io.Writer, binary bool) error {
	if !binary {
		// JSON output has nowhere else to put buffer data.
		for _, b := range e.doc.Buffers {
			if b.URI == "" {
				b.EmbeddedResource()
			}
		}
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = binary
	if err := encoder.Encode(e.doc); err != nil {
		return fmt.Errorf("encoding glTF: %w", err)
	}
	return nil
}

// Save writes the document to path. A ".glb" extension selects the binary
// container.
func (e *Exporter) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	binary := strings.EqualFold(filepath.Ext(path), ".glb")
	if err := e.Write(f, binary); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	e.log.Debug("glTF written",
		zap.String("path", path),
		zap.Int("meshes", len(e.doc.Meshes)),
		zap.Int("nodes", len(e.doc.Nodes)))
	return nil
}

// addNode appends a node and returns its index. Parentless nodes go into
// the default scene.
func (e *Exporter) addNode(node *gltf.Node, parent *uint32) uint32 {
	idx := uint32(len(e.doc.Nodes))
	e.doc.Nodes = append(e.doc.Nodes, node)
	if parent != nil {
		p := e.doc.Nodes[*parent]
		p.Children = append(p.Children, idx)
	} else {
		e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, idx)
	}
	return idx
}

// trsNode builds a node from a ROSE-space local transform.
func trsNode(name string, t math.Vec3, r math.Quat, s math.Vec3) *gltf.Node {
	return &gltf.Node{
		Name:        name,
		Translation: math.ZUpToYUp(t).Array(),
		Rotation:    math.ZUpToYUpQuat(r.Normalize()).Array(),
		Scale:       math.ZUpToYUpScale(s).Array(),
	}
}
