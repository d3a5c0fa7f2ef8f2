package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/gmakit/pkg/gma"
	gmath "github.com/Faultbox/gmakit/pkg/math"
)

func buildSample(t *testing.T) *GLTFBuilder {
	t.Helper()
	b := NewGLTFBuilder()

	colored := func(x, y float32) gma.ModelVertex {
		v := mv(x, y, 0)
		v.Flags |= gma.FlagColor | gma.FlagNormal
		v.Color = gma.Color{255, 0, 0, 255}
		v.Normal = gmath.Vec3{Y: 3}
		return v
	}

	b.BeginObject("quad")
	b.WriteTriangleStrip([]gma.ModelVertex{colored(0, 0), colored(1, 0), colored(0, 1), colored(1, 1)})
	b.WriteTriangleStrip([]gma.ModelVertex{mv(0, 0, 1), mv(1, 0, 1), mv(0, 1, 1)})
	b.EndObject()

	b.BeginObject("EmptyObject")
	b.EndObject()
	return b
}

func TestGLTFBuilder_Document(t *testing.T) {
	doc := buildSample(t).Document()

	if len(doc.Nodes) != 2 || len(doc.Scenes[0].Nodes) != 2 {
		t.Fatalf("nodes = %d, scene nodes = %d; want 2, 2", len(doc.Nodes), len(doc.Scenes[0].Nodes))
	}
	if doc.Nodes[0].Name != "quad" || doc.Nodes[0].Mesh == nil || *doc.Nodes[0].Mesh != 0 {
		t.Errorf("node 0 = %+v", doc.Nodes[0])
	}
	if doc.Nodes[1].Mesh != nil {
		t.Error("empty object got a mesh")
	}
	if len(doc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(doc.Meshes))
	}

	prims := doc.Meshes[0].Primitives
	if len(prims) != 2 {
		t.Fatalf("primitives = %d, want 2", len(prims))
	}
	for i, p := range prims {
		if p.Mode != gltf.PrimitiveTriangleStrip {
			t.Errorf("primitive %d mode = %v, want triangle strip", i, p.Mode)
		}
		if p.Indices != nil {
			t.Errorf("primitive %d is indexed", i)
		}
	}

	first := prims[0].Attributes
	for _, name := range []string{"POSITION", "NORMAL", "COLOR_0"} {
		if _, ok := first[name]; !ok {
			t.Errorf("first primitive lacks %s", name)
		}
	}
	if _, ok := first["TEXCOORD_0"]; ok {
		t.Error("first primitive has texture coordinates it never had")
	}
	if got := doc.Accessors[first["POSITION"]].Count; got != 4 {
		t.Errorf("position count = %d, want 4", got)
	}

	second := prims[1].Attributes
	if len(second) != 1 {
		t.Errorf("second primitive attributes = %v, want POSITION only", second)
	}
}

func TestGLTFBuilder_Encode(t *testing.T) {
	var glb bytes.Buffer
	if err := buildSample(t).Encode(&glb, true); err != nil {
		t.Fatalf("binary Encode: %v", err)
	}
	if !bytes.HasPrefix(glb.Bytes(), []byte("glTF")) {
		t.Errorf("GLB magic = %q", glb.Bytes()[:4])
	}

	var js bytes.Buffer
	if err := buildSample(t).Encode(&js, false); err != nil {
		t.Fatalf("JSON Encode: %v", err)
	}
	out := js.String()
	if !strings.Contains(out, `"asset"`) || !strings.Contains(out, "data:application/octet-stream;base64,") {
		t.Errorf("JSON output lacks asset or embedded buffer:\n%.200s", out)
	}
}

func TestGLTFBuilder_Save(t *testing.T) {
	dir := t.TempDir()
	for _, binary := range []bool{false, true} {
		path := filepath.Join(dir, "model"+FormatGLTF.Extension(binary))
		if err := buildSample(t).Save(path, binary); err != nil {
			t.Fatalf("Save(%s): %v", path, err)
		}
		doc, err := gltf.Open(path)
		if err != nil {
			t.Fatalf("Open(%s): %v", path, err)
		}
		if len(doc.Meshes) != 1 || len(doc.Nodes) != 2 {
			t.Errorf("%s: reopened with %d meshes, %d nodes", path, len(doc.Meshes), len(doc.Nodes))
		}
	}
}
