package gma

import (
	"github.com/pkg/errors"

	gmath "github.com/Faultbox/gmakit/pkg/math"
)

// Renderer consumes fully resolved geometry. It never sees pool indices or
// matrix references.
type Renderer interface {
	BeginObject(name string)
	WriteTriangleStrip(vertices []ModelVertex)
	EndObject()
}

// ModelVertex is a vertex handed to a Renderer. Flags tells which of
// Normal, Color and TexCoord are meaningful; FlagMatrixRef is never set.
type ModelVertex struct {
	Flags    VertexFlags
	Position gmath.Vec3
	Normal   gmath.Vec3
	Color    Color
	TexCoord gmath.Vec2
}

// HasNormal reports whether the normal is present.
func (v ModelVertex) HasNormal() bool { return v.Flags.Has(FlagNormal) }

// HasColor reports whether the vertex color is present.
func (v ModelVertex) HasColor() bool { return v.Flags.Has(FlagColor) }

// HasTexCoord reports whether the texture coordinate is present.
func (v ModelVertex) HasTexCoord() bool { return v.Flags.Has(FlagTexCoord) }

// Matrix references are multiples of 3 selecting one of the eight slots.
const (
	matrixRefStep = 3
	maxMatrixRef  = matrixRefStep * MatrixSlotCount
)

// MatrixRefSlot maps a transform matrix reference to its render context
// slot. References must be positive multiples of 3 not exceeding 24.
func MatrixRefSlot(ref uint8) (int, error) {
	if ref == 0 || ref > maxMatrixRef || ref%matrixRefStep != 0 {
		return 0, formatErrorf(ReasonInvalidTransformRef, -1, "reference %d", ref)
	}
	return int(ref)/matrixRefStep - 1, nil
}

// RenderContext binds matrix-group slots to the transform matrices of one
// object for the duration of a render pass.
type RenderContext struct {
	object *Object
	slots  MatrixSlots
}

// NewRenderContext returns a context holding the object's default bindings.
func NewRenderContext(o *Object) *RenderContext {
	return &RenderContext{object: o, slots: o.DefaultSlots}
}

// Apply rebinds every slot of overrides that is not UnboundSlot.
func (c *RenderContext) Apply(overrides MatrixSlots) {
	for i, idx := range overrides {
		if idx != UnboundSlot {
			c.slots[i] = idx
		}
	}
}

// Slots returns the current bindings.
func (c *RenderContext) Slots() MatrixSlots {
	return c.slots
}

// Matrix resolves a transform matrix reference to the bound matrix.
func (c *RenderContext) Matrix(ref uint8) (gmath.Mat34, error) {
	slot, err := MatrixRefSlot(ref)
	if err != nil {
		return gmath.Mat34{}, err
	}
	idx := c.slots[slot]
	if idx == UnboundSlot || int(idx) >= len(c.object.TransformMatrices) {
		return gmath.Mat34{}, formatErrorf(ReasonUnboundTransformRef, -1, "reference %d (slot %d)", ref, slot)
	}
	return c.object.TransformMatrices[idx], nil
}

// Resolve converts a vertex to its renderer form, applying the referenced
// transform matrix when the vertex carries a nonzero matrix reference.
func (c *RenderContext) Resolve(v Vertex) (ModelVertex, error) {
	mv := ModelVertex{
		Flags:    v.Flags &^ FlagMatrixRef,
		Position: v.Position,
		Normal:   v.Normal,
		Color:    v.Color,
		TexCoord: v.TexCoord,
	}
	if !v.Flags.Has(FlagMatrixRef) || v.MatrixRef == 0 {
		return mv, nil
	}
	mtx, err := c.Matrix(v.MatrixRef)
	if err != nil {
		return ModelVertex{}, err
	}
	mv.Position = mtx.TransformPosition(mv.Position)
	if mv.HasNormal() {
		mv.Normal = mtx.TransformNormal(mv.Normal)
	}
	return mv, nil
}

// Render emits every strip of the object, non-indexed strips of a mesh
// before its indexed strips, as flat vertex lists.
func (o *Object) Render(r Renderer) error {
	if r == nil {
		return errors.Wrap(ErrInvalidArgument, "nil renderer")
	}
	ctx := NewRenderContext(o)
	for i, m := range o.Meshes {
		ctx.Apply(m.MatrixSlots)
		if err := o.renderMesh(r, ctx, m); err != nil {
			return errors.Wrapf(err, "mesh %d", i)
		}
	}
	return nil
}

func (o *Object) renderMesh(r Renderer, ctx *RenderContext, m *Mesh) error {
	for i, s := range m.Strips {
		out := make([]ModelVertex, len(s.Vertices))
		for j, v := range s.Vertices {
			mv, err := ctx.Resolve(v)
			if err != nil {
				return errors.Wrapf(err, "strip %d vertex %d", i, j)
			}
			out[j] = mv
		}
		r.WriteTriangleStrip(out)
	}
	for i, s := range m.IndexedStrips {
		out := make([]ModelVertex, len(s.Indices))
		for j, idx := range s.Indices {
			if idx < 0 || idx >= o.Pool.Len() {
				return formatErrorf(ReasonVertexNotInPool, -1, "indexed strip %d vertex %d: index %d", i, j, idx)
			}
			mv, err := ctx.Resolve(o.Pool.At(idx))
			if err != nil {
				return errors.Wrapf(err, "indexed strip %d vertex %d", i, j)
			}
			out[j] = mv
		}
		r.WriteTriangleStrip(out)
	}
	return nil
}
