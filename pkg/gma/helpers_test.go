package gma

import (
	"bytes"
	"testing"

	gmath "github.com/Faultbox/gmakit/pkg/math"
)

// recordingRenderer captures renderer calls.
type recordingRenderer struct {
	events  []string
	strips  [][]ModelVertex
	current string
}

func (r *recordingRenderer) BeginObject(name string) {
	r.current = name
	r.events = append(r.events, "begin:"+name)
}

func (r *recordingRenderer) WriteTriangleStrip(vertices []ModelVertex) {
	r.events = append(r.events, "strip:"+r.current)
	r.strips = append(r.strips, vertices)
}

func (r *recordingRenderer) EndObject() {
	r.events = append(r.events, "end")
}

func vec3(x, y, z float32) gmath.Vec3 { return gmath.Vec3{X: x, Y: y, Z: z} }
func vec2(x, y float32) gmath.Vec2    { return gmath.Vec2{X: x, Y: y} }

// makeSampleObject builds an object exercising every attribute, both strip
// kinds and matrix references. Pooled normals and texcoords are exact
// multiples of the 16-bit fixed-point steps.
func makeSampleObject(is16Bit bool) *Object {
	o := NewObject(is16Bit)
	o.TransformMatrices = []gmath.Mat34{
		gmath.Translate34(10, 0, 0),
		gmath.Scale34(2, 2, 2),
	}
	o.DefaultSlots[0] = 0

	lit := o.AddMesh(FlagNormal | FlagTexCoord)
	lit.AddStrip([]Vertex{
		NewVertex(vec3(0, 0, 0)).WithNormal(vec3(0, 1, 0)).WithTexCoord(vec2(0, 0)),
		NewVertex(vec3(1, 0, 0)).WithNormal(vec3(0, 1, 0)).WithTexCoord(vec2(1, 0)),
		NewVertex(vec3(0, 0, 1)).WithNormal(vec3(0, 1, 0)).WithTexCoord(vec2(0, 1)),
		NewVertex(vec3(1, 0, 1)).WithNormal(vec3(0, 1, 0)).WithTexCoord(vec2(1, 1)),
	})

	skinned := o.AddMesh(FlagColor | FlagMatrixRef)
	skinned.MatrixSlots[1] = 1
	a := NewVertex(vec3(0, 2, 0)).WithColor(Color{255, 0, 0, 255}).WithMatrixRef(3)
	b := NewVertex(vec3(1, 2, 0)).WithColor(Color{0, 255, 0, 255}).WithMatrixRef(6)
	c := NewVertex(vec3(0, 3, 0)).WithColor(Color{0, 0, 255, 128}).WithMatrixRef(0)
	skinned.AddIndexedStrip(o.Pool, []Vertex{a, b, c})
	skinned.AddIndexedStrip(o.Pool, []Vertex{c, b, a, b})

	return o
}

func encodeObject(t *testing.T, o *Object) []byte {
	t.Helper()
	data, err := o.EncodeBytes()
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	return data
}

// rawWriter builds hand-made fixtures with the codec's own primitives.
func rawWriter() (*bytes.Buffer, *writer) {
	var buf bytes.Buffer
	return &buf, newWriter(&buf)
}

// writeObjectHeader writes a GCMF header with the given counts.
func writeObjectHeader(w *writer, is16Bit bool, meshes, matrices, pool int, defaults MatrixSlots) {
	w.write([]byte(gcmfMagic))
	if is16Bit {
		w.u32(sectionFlag16Bit)
	} else {
		w.u32(0)
	}
	w.zeros(16) // bounding sphere
	w.u16(uint16(meshes))
	w.u8(uint8(matrices))
	w.u8(0)
	w.write(defaults[:])
	w.u32(uint32(pool))
	w.zeros(gcmfHeaderSize - 0x28)
}
