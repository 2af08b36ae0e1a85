package export

import (
	"path"
	"strings"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/roseimport/pkg/formats"
)

// AddMaterial writes a ZSC material and returns its document index. The
// texture is referenced by URI relative to the data root; it is not
// embedded. Repeated calls with the same material return the same index.
func (e *Exporter) AddMaterial(mat *formats.ZSCMaterial) uint32 {
	if idx, ok := e.materials[mat]; ok {
		return idx
	}

	alpha := mat.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	color := &[4]float32{1, 1, 1, alpha}
	metallic := float32(0)

	m := &gltf.Material{
		Name:        assetName(mat.Path),
		DoubleSided: mat.TwoSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
			MetallicFactor:  &metallic,
		},
	}

	switch mat.BlendMode() {
	case formats.BlendMasked:
		cutoff := mat.OpacityClip()
		m.AlphaMode = gltf.AlphaMask
		m.AlphaCutoff = &cutoff
	case formats.BlendTranslucent:
		m.AlphaMode = gltf.AlphaBlend
	default:
		m.AlphaMode = gltf.AlphaOpaque
	}

	if mat.Path != "" {
		m.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: e.addTexture(mat.Path),
		}
	}

	idx := uint32(len(e.doc.Materials))
	e.doc.Materials = append(e.doc.Materials, m)
	e.materials[mat] = idx
	return idx
}

// addTexture returns a texture for the image at path, sharing images
// between materials.
func (e *Exporter) addTexture(texPath string) uint32 {
	uri := imageURI(texPath)
	img, ok := e.images[uri]
	if !ok {
		img = uint32(len(e.doc.Images))
		e.doc.Images = append(e.doc.Images, &gltf.Image{
			Name: path.Base(uri),
			URI:  uri,
		})
		e.images[uri] = img
	}
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{
		Source: gltf.Index(img),
	})
	return uint32(len(e.doc.Textures) - 1)
}

// imageURI converts a ROSE texture path to a relative URI.
func imageURI(texPath string) string {
	return strings.TrimLeft(strings.ReplaceAll(texPath, "\\", "/"), "/")
}

// assetName returns the file name of a ROSE path without its extension.
func assetName(texPath string) string {
	if texPath == "" {
		return "unnamed"
	}
	base := path.Base(imageURI(texPath))
	return strings.TrimSuffix(base, path.Ext(base))
}
