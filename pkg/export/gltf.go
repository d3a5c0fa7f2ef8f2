package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/gmakit/pkg/gma"
)

// GLTFBuilder renders archives into a glTF document. Every archive slot
// becomes a scene node; strips become triangle-strip primitives of the
// node's mesh.
type GLTFBuilder struct {
	doc  *gltf.Document
	node *gltf.Node
	mesh *gltf.Mesh
}

// NewGLTFBuilder returns a builder holding an empty document.
func NewGLTFBuilder() *GLTFBuilder {
	return &GLTFBuilder{doc: gltf.NewDocument()}
}

// Document returns the document built so far.
func (b *GLTFBuilder) Document() *gltf.Document {
	return b.doc
}

// BeginObject adds a scene node for the object.
func (b *GLTFBuilder) BeginObject(name string) {
	b.node = &gltf.Node{Name: name}
	b.mesh = &gltf.Mesh{Name: name}
	b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, uint32(len(b.doc.Nodes)))
	b.doc.Nodes = append(b.doc.Nodes, b.node)
}

// WriteTriangleStrip adds one primitive to the current object's mesh.
func (b *GLTFBuilder) WriteTriangleStrip(vertices []gma.ModelVertex) {
	if b.mesh == nil || len(vertices) == 0 {
		return
	}
	first := vertices[0]

	positions := make([][3]float32, len(vertices))
	for i, v := range vertices {
		positions[i] = v.Position.Array()
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(b.doc, positions),
	}

	if first.HasNormal() {
		normals := make([][3]float32, len(vertices))
		for i, v := range vertices {
			normals[i] = v.Normal.Normalize().Array()
		}
		attributes["NORMAL"] = modeler.WriteNormal(b.doc, normals)
	}
	if first.HasTexCoord() {
		uvs := make([][2]float32, len(vertices))
		for i, v := range vertices {
			uvs[i] = v.TexCoord.Array()
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(b.doc, uvs)
	}
	if first.HasColor() {
		colors := make([][4]uint8, len(vertices))
		for i, v := range vertices {
			colors[i] = v.Color
		}
		attributes["COLOR_0"] = modeler.WriteColor(b.doc, colors)
	}

	b.mesh.Primitives = append(b.mesh.Primitives, &gltf.Primitive{
		Mode:       gltf.PrimitiveTriangleStrip,
		Attributes: attributes,
	})
}

// EndObject attaches the mesh to the node. Objects without strips stay
// mesh-less nodes since glTF meshes need at least one primitive.
func (b *GLTFBuilder) EndObject() {
	if b.mesh != nil && len(b.mesh.Primitives) > 0 {
		b.doc.Meshes = append(b.doc.Meshes, b.mesh)
		b.node.Mesh = gltf.Index(uint32(len(b.doc.Meshes) - 1))
	}
	b.node, b.mesh = nil, nil
}

// embedBuffers moves buffer data into data URIs so a .gltf file stands
// alone.
func (b *GLTFBuilder) embedBuffers() {
	for _, buf := range b.doc.Buffers {
		if buf.URI == "" && len(buf.Data) > 0 {
			buf.EmbeddedResource()
		}
	}
}

// Encode writes the document as GLB when binary is set, JSON otherwise.
func (b *GLTFBuilder) Encode(w io.Writer, binary bool) error {
	if !binary {
		b.embedBuffers()
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	return errors.Wrap(enc.Encode(b.doc), "encoding glTF")
}

// Save writes the document to path.
func (b *GLTFBuilder) Save(path string, binary bool) error {
	if binary {
		return errors.Wrapf(gltf.SaveBinary(b.doc, path), "saving %s", path)
	}
	b.embedBuffers()
	return errors.Wrapf(gltf.Save(b.doc, path), "saving %s", path)
}
