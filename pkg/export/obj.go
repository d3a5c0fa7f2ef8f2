package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/gmakit/pkg/gma"
)

// OBJWriter renders archives as Wavefront OBJ text. Triangle strips are
// expanded to faces; vertex colors are not representable and are dropped.
//
// Renderer methods cannot fail, so the first write error is kept and
// returned by Flush.
type OBJWriter struct {
	w   *bufio.Writer
	err error

	// next 1-based index per attribute list
	nextPos, nextTex, nextNrm int

	Objects int
	Faces   int
}

// NewOBJWriter writes OBJ text to w.
func NewOBJWriter(w io.Writer) *OBJWriter {
	return &OBJWriter{w: bufio.NewWriter(w), nextPos: 1, nextTex: 1, nextNrm: 1}
}

func (o *OBJWriter) printf(format string, args ...interface{}) {
	if o.err != nil {
		return
	}
	_, o.err = fmt.Fprintf(o.w, format, args...)
}

// BeginObject starts a named OBJ object.
func (o *OBJWriter) BeginObject(name string) {
	o.Objects++
	o.printf("o %s\n", strings.ReplaceAll(name, " ", "_"))
}

// WriteTriangleStrip writes the strip's vertices and its faces.
func (o *OBJWriter) WriteTriangleStrip(vertices []gma.ModelVertex) {
	if len(vertices) == 0 {
		return
	}
	hasTex := vertices[0].HasTexCoord()
	hasNrm := vertices[0].HasNormal()

	for _, v := range vertices {
		o.printf("v %f %f %f\n", v.Position.X, v.Position.Y, v.Position.Z)
	}
	if hasTex {
		for _, v := range vertices {
			// OBJ puts the texture origin at the bottom left
			o.printf("vt %f %f\n", v.TexCoord.X, 1-v.TexCoord.Y)
		}
	}
	if hasNrm {
		for _, v := range vertices {
			n := v.Normal.Normalize()
			o.printf("vn %f %f %f\n", n.X, n.Y, n.Z)
		}
	}

	ref := func(i int) string {
		switch {
		case hasTex && hasNrm:
			return fmt.Sprintf("%d/%d/%d", o.nextPos+i, o.nextTex+i, o.nextNrm+i)
		case hasTex:
			return fmt.Sprintf("%d/%d", o.nextPos+i, o.nextTex+i)
		case hasNrm:
			return fmt.Sprintf("%d//%d", o.nextPos+i, o.nextNrm+i)
		}
		return fmt.Sprint(o.nextPos + i)
	}
	stripTriangles(vertices, func(a, b, c int) {
		o.Faces++
		o.printf("f %s %s %s\n", ref(a), ref(b), ref(c))
	})

	o.nextPos += len(vertices)
	if hasTex {
		o.nextTex += len(vertices)
	}
	if hasNrm {
		o.nextNrm += len(vertices)
	}
}

// EndObject ends the current object.
func (o *OBJWriter) EndObject() {}

// Flush writes buffered output and reports the first error seen.
func (o *OBJWriter) Flush() error {
	if o.err != nil {
		return o.err
	}
	return o.w.Flush()
}
