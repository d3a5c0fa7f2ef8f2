// Package export provides gma.Renderer implementations that turn decoded
// model archives into interchange formats.
package export

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/gmakit/pkg/gma"
)

// Format names an export target.
type Format string

const (
	FormatOBJ  Format = "obj"
	FormatGLTF Format = "gltf"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatOBJ, FormatGLTF:
		return f, nil
	}
	return "", errors.Errorf("unknown export format %q (want obj or gltf)", s)
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension(binary bool) string {
	if f == FormatGLTF {
		if binary {
			return ".glb"
		}
		return ".gltf"
	}
	return ".obj"
}

// stripTriangles calls fn for each non-degenerate triangle of a strip, with
// the winding flipped on odd triangles so every face keeps the same
// orientation.
func stripTriangles(vertices []gma.ModelVertex, fn func(a, b, c int)) {
	for i := 2; i < len(vertices); i++ {
		a, b, c := i-2, i-1, i
		if i%2 == 1 {
			a, b = b, a
		}
		if vertices[a] == vertices[b] || vertices[b] == vertices[c] || vertices[a] == vertices[c] {
			continue
		}
		fn(a, b, c)
	}
}
