package main

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/gmakit/pkg/gma"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// truncated returns at most n vertices; n <= 0 keeps them all.
func truncated(vs []gma.Vertex, n int) []gma.Vertex {
	if n > 0 && len(vs) > n {
		return vs[:n]
	}
	return vs
}

func dumpEntry(w io.Writer, e *gma.Entry, maxVerts int) {
	o := e.Object
	fmt.Fprintf(w, "=== %s (%s, stride 0x%x, %d bytes)\n", e.Name, precision(o), o.Stride(), o.SizeOf())
	fmt.Fprintf(w, "bounding sphere: center=%v radius=%g\n", o.BoundingSphere.Center, o.BoundingSphere.Radius)
	fmt.Fprintf(w, "default slots:   %v\n", o.DefaultSlots)

	for i, m := range o.TransformMatrices {
		fmt.Fprintf(w, "matrix %d:\n", i)
		for row := 0; row < 3; row++ {
			fmt.Fprintf(w, "  % 10.4f % 10.4f % 10.4f % 10.4f\n", m[row*4], m[row*4+1], m[row*4+2], m[row*4+3])
		}
	}

	pool := o.Pool.Vertices()
	fmt.Fprintf(w, "pool: %d vertices\n", len(pool))
	spewConfig.Fdump(w, truncated(pool, maxVerts))

	for i, m := range o.Meshes {
		fmt.Fprintf(w, "mesh %d: flags=%s slots=%v\n", i, m.Flags, m.MatrixSlots)
		for j, s := range m.Strips {
			fmt.Fprintf(w, "  strip %d: %d vertices\n", j, len(s.Vertices))
			spewConfig.Fdump(w, truncated(s.Vertices, maxVerts))
		}
		for j, s := range m.IndexedStrips {
			fmt.Fprintf(w, "  indexed strip %d: %v\n", j, s.Indices)
		}
	}
}
