package gma

import (
	"bytes"
	"io"
	"math"

	"github.com/pkg/errors"

	gmath "github.com/Faultbox/gmakit/pkg/math"
)

const (
	gcmfMagic      = "GCMF"
	gcmfHeaderSize = 0x40
	gcmfAlignment  = 0x20
	matrixSize     = 12 * 4

	sectionFlag16Bit = 0x01
)

// BoundingSphere encloses every vertex of an object.
type BoundingSphere struct {
	Center gmath.Vec3
	Radius float32
}

// Object is a GCMF model object: transform matrices, a vertex pool and the
// meshes whose strips reference it.
type Object struct {
	Is16Bit           bool
	BoundingSphere    BoundingSphere
	DefaultSlots      MatrixSlots // render context bindings at the start of a pass
	TransformMatrices []gmath.Mat34
	Pool              *VertexPool
	Meshes            []*Mesh
}

// NewObject returns an empty object in the given precision mode.
func NewObject(is16Bit bool) *Object {
	return &Object{
		Is16Bit:      is16Bit,
		DefaultSlots: UnboundSlots(),
		Pool:         NewVertexPool(),
	}
}

// AddMesh appends an empty mesh with the given vertex flags.
func (o *Object) AddMesh(flags VertexFlags) *Mesh {
	m := NewMesh(flags)
	o.Meshes = append(o.Meshes, m)
	return m
}

// Stats summarizes the geometry of an object.
type Stats struct {
	Meshes        int
	Strips        int
	IndexedStrips int
	StripVertices int
	PoolVertices  int
	Matrices      int
}

// Stats returns mesh, strip and vertex counts.
func (o *Object) Stats() Stats {
	st := Stats{
		Meshes:       len(o.Meshes),
		PoolVertices: o.Pool.Len(),
		Matrices:     len(o.TransformMatrices),
	}
	for _, m := range o.Meshes {
		st.Strips += len(m.Strips)
		st.IndexedStrips += len(m.IndexedStrips)
		st.StripVertices += m.VertexCount()
	}
	return st
}

// UpdateBoundingSphere recomputes the bounding sphere from every strip and
// pool vertex: the centre of the bounding box and the farthest distance
// from it. Positions are taken untransformed.
func (o *Object) UpdateBoundingSphere() {
	var positions []gmath.Vec3
	for _, v := range o.Pool.Vertices() {
		positions = append(positions, v.Position)
	}
	for _, m := range o.Meshes {
		for _, s := range m.Strips {
			for _, v := range s.Vertices {
				positions = append(positions, v.Position)
			}
		}
	}
	if len(positions) == 0 {
		o.BoundingSphere = BoundingSphere{}
		return
	}

	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	center := lo.Add(hi).Scale(0.5)
	var radius float32
	for _, p := range positions {
		if d := center.Distance(p); d > radius {
			radius = d
		}
	}
	o.BoundingSphere = BoundingSphere{Center: center, Radius: radius}
}

// Stride returns the size of a vertex pool record.
func (o *Object) Stride() int {
	return poolStride(o.Is16Bit)
}

// SizeOf returns the encoded size of the object, padding included.
func (o *Object) SizeOf() int {
	size := gcmfHeaderSize + len(o.TransformMatrices)*matrixSize + o.Pool.Len()*o.Stride()
	for _, m := range o.Meshes {
		size += m.size(o.Is16Bit)
	}
	return alignUp(size, gcmfAlignment)
}

// DecodeObject decodes a single GCMF chunk.
func DecodeObject(r io.Reader) (*Object, error) {
	if r == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil reader")
	}
	return decodeObject(newReader(r, 0))
}

func decodeObject(r *reader) (*Object, error) {
	start := r.pos
	var magic [4]byte
	for i := range magic {
		magic[i] = r.u8()
	}
	sectionFlags := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	if string(magic[:]) != gcmfMagic {
		return nil, formatErrorf(ReasonBadMagic, start, "got %q", magic[:])
	}
	if sectionFlags&^sectionFlag16Bit != 0 {
		return nil, formatErrorf(ReasonUnknownSectionFlags, start+4, "flags 0x%08x", sectionFlags)
	}

	o := NewObject(sectionFlags&sectionFlag16Bit != 0)
	o.BoundingSphere.Center = readVec3(r)
	o.BoundingSphere.Radius = r.f32()
	meshCount := int(r.u16())
	matrixCount := int(r.u8())
	r.u8()
	for i := range o.DefaultSlots {
		o.DefaultSlots[i] = r.u8()
	}
	poolCount := r.u32()
	r.skip(gcmfHeaderSize - 0x28)
	if r.err != nil {
		return nil, r.err
	}
	if err := o.DefaultSlots.validate(matrixCount, start+0x1C); err != nil {
		return nil, err
	}

	for i := 0; i < matrixCount; i++ {
		var mtx gmath.Mat34
		for j := range mtx {
			mtx[j] = r.f32()
		}
		o.TransformMatrices = append(o.TransformMatrices, mtx)
	}

	for i := uint32(0); i < poolCount && r.err == nil; i++ {
		o.Pool.push(readPoolRecord(r, o.Is16Bit))
	}
	if r.err != nil {
		return nil, r.err
	}

	for i := 0; i < meshCount; i++ {
		m, err := decodeMesh(r, o.Is16Bit, o.Pool, matrixCount)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", i)
		}
		o.Meshes = append(o.Meshes, m)
	}

	r.skip(alignUp(int(r.pos-start), gcmfAlignment) - int(r.pos-start))
	if r.err != nil {
		return nil, r.err
	}
	return o, nil
}

// Encode writes the object as a GCMF chunk.
func (o *Object) Encode(w io.Writer) error {
	if w == nil {
		return errors.Wrap(ErrInvalidArgument, "nil writer")
	}
	return o.encode(newWriter(w))
}

// EncodeBytes returns the encoded GCMF chunk.
func (o *Object) EncodeBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(o.SizeOf())
	if err := o.encode(newWriter(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) encode(w *writer) error {
	if len(o.TransformMatrices) > math.MaxUint8 {
		return formatErrorf(ReasonValueOutOfRange, -1, "%d transform matrices", len(o.TransformMatrices))
	}
	if len(o.Meshes) > math.MaxUint16 {
		return formatErrorf(ReasonValueOutOfRange, -1, "%d meshes", len(o.Meshes))
	}
	if err := o.DefaultSlots.validate(len(o.TransformMatrices), -1); err != nil {
		return err
	}
	for i, m := range o.Meshes {
		if err := m.MatrixSlots.validate(len(o.TransformMatrices), -1); err != nil {
			return errors.Wrapf(err, "mesh %d", i)
		}
	}

	start := w.n
	w.write([]byte(gcmfMagic))
	var sectionFlags uint32
	if o.Is16Bit {
		sectionFlags |= sectionFlag16Bit
	}
	w.u32(sectionFlags)
	writeVec3(w, o.BoundingSphere.Center)
	w.f32(o.BoundingSphere.Radius)
	w.u16(uint16(len(o.Meshes)))
	w.u8(uint8(len(o.TransformMatrices)))
	w.u8(0)
	w.write(o.DefaultSlots[:])
	w.u32(uint32(o.Pool.Len()))
	w.zeros(gcmfHeaderSize - 0x28)

	for _, mtx := range o.TransformMatrices {
		for _, f := range mtx {
			w.f32(f)
		}
	}
	for i := 0; i < o.Pool.Len(); i++ {
		if err := writePoolRecord(w, o.Pool.At(i), o.Is16Bit); err != nil {
			return errors.Wrapf(err, "pool vertex %d", i)
		}
	}
	for i, m := range o.Meshes {
		if err := m.encode(w, o.Is16Bit, o.Pool); err != nil {
			return errors.Wrapf(err, "mesh %d", i)
		}
	}
	w.align(start, gcmfAlignment)
	return w.err
}
