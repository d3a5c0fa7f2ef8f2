package gma

// MatrixSlotCount is the number of matrix-group slots in a render context.
const MatrixSlotCount = 8

// UnboundSlot marks a matrix slot that is not bound to any transform matrix
// (or, in a mesh, a slot the mesh leaves unchanged).
const UnboundSlot = 0xFF

// MatrixSlots maps matrix-group slots to indices into the object's
// transform matrix list.
type MatrixSlots [MatrixSlotCount]uint8

// UnboundSlots returns slots with every entry set to UnboundSlot.
func UnboundSlots() MatrixSlots {
	var s MatrixSlots
	for i := range s {
		s[i] = UnboundSlot
	}
	return s
}

func (s MatrixSlots) validate(matrixCount int, offset int64) error {
	for slot, idx := range s {
		if idx != UnboundSlot && int(idx) >= matrixCount {
			return formatErrorf(ReasonMatrixBindingOutOfRange, offset, "slot %d bound to matrix %d of %d", slot, idx, matrixCount)
		}
	}
	return nil
}

// Mesh is a group of triangle strips sharing one set of vertex flags and
// one set of matrix slot overrides. Non-indexed strips always precede the
// indexed strips in the stream.
type Mesh struct {
	Flags         VertexFlags
	MatrixSlots   MatrixSlots // overrides applied to the render context, UnboundSlot = keep
	Strips        []Strip
	IndexedStrips []IndexedStrip
}

// NewMesh returns an empty mesh with the given vertex flags and no slot
// overrides.
func NewMesh(flags VertexFlags) *Mesh {
	return &Mesh{Flags: flags | FlagPosition, MatrixSlots: UnboundSlots()}
}

// AddStrip appends a non-indexed strip.
func (m *Mesh) AddStrip(vertices []Vertex) {
	vs := make([]Vertex, len(vertices))
	copy(vs, vertices)
	m.Strips = append(m.Strips, Strip{Vertices: vs})
}

// AddIndexedStrip pools the vertices (inserting unseen ones) and appends an
// indexed strip referencing them. The mesh flags are merged into every
// referenced pool vertex, as decoding would do.
func (m *Mesh) AddIndexedStrip(pool *VertexPool, vertices []Vertex) {
	s := IndexedStrip{Indices: make([]int, len(vertices))}
	for i, v := range vertices {
		idx := pool.Add(v)
		pool.MergeFlags(idx, m.Flags)
		s.Indices[i] = idx
	}
	m.IndexedStrips = append(m.IndexedStrips, s)
}

// IndexedStripFromPool maps vertices to indices of an already built pool.
// Every vertex must be pooled.
func IndexedStripFromPool(pool *VertexPool, vertices []Vertex) (IndexedStrip, error) {
	s := IndexedStrip{Indices: make([]int, len(vertices))}
	for i, v := range vertices {
		idx, ok := pool.Index(v)
		if !ok {
			return IndexedStrip{}, formatErrorf(ReasonVertexNotInPool, -1, "strip vertex %d at %v", i, v.Position)
		}
		s.Indices[i] = idx
	}
	return s, nil
}

// VertexCount returns the number of strip vertices in the mesh.
func (m *Mesh) VertexCount() int {
	n := 0
	for i := range m.Strips {
		n += len(m.Strips[i].Vertices)
	}
	for i := range m.IndexedStrips {
		n += len(m.IndexedStrips[i].Indices)
	}
	return n
}

func (m *Mesh) indexedInts() int {
	n := 0
	for i := range m.IndexedStrips {
		n += m.IndexedStrips[i].numInts()
	}
	return n
}

func (m *Mesh) size(is16Bit bool) int {
	size := 4 + MatrixSlotCount
	for i := range m.Strips {
		size += m.Strips[i].size(m.Flags)
	}
	size++ // strip terminator
	size += sizedIntWidth(is16Bit) * (1 + m.indexedInts())
	return size
}

func decodeMesh(r *reader, is16Bit bool, pool *VertexPool, matrixCount int) (*Mesh, error) {
	flagsPos := r.pos
	m := &Mesh{Flags: VertexFlags(r.u32())}
	for i := range m.MatrixSlots {
		m.MatrixSlots[i] = r.u8()
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := validateVertexFlags(m.Flags, flagsPos); err != nil {
		return nil, err
	}
	if err := m.MatrixSlots.validate(matrixCount, flagsPos+4); err != nil {
		return nil, err
	}

	for {
		s, ok, err := decodeStrip(r, m.Flags, is16Bit)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		m.Strips = append(m.Strips, s)
	}

	totalPos := r.pos
	total := readSizedInt(r, is16Bit)
	if r.err != nil {
		return nil, r.err
	}
	if total < 0 {
		return nil, formatErrorf(ReasonValueOutOfRange, totalPos, "indexed section of %d integers", total)
	}
	for read := 0; read < total; {
		s, n, err := decodeIndexedStrip(r, is16Bit, pool, m.Flags)
		if err != nil {
			return nil, err
		}
		read += n
		if read > total {
			return nil, formatErrorf(ReasonIndexedOverrun, totalPos, "read %d of %d integers", read, total)
		}
		m.IndexedStrips = append(m.IndexedStrips, s)
	}
	return m, nil
}

func (m *Mesh) encode(w *writer, is16Bit bool, pool *VertexPool) error {
	if err := validateVertexFlags(m.Flags, -1); err != nil {
		return err
	}
	w.u32(uint32(m.Flags))
	w.write(m.MatrixSlots[:])
	for i := range m.Strips {
		if err := m.Strips[i].encode(w, m.Flags, is16Bit); err != nil {
			return err
		}
	}
	w.u8(stripTagEnd)
	if err := writeSizedInt(w, is16Bit, m.indexedInts()); err != nil {
		return err
	}
	for i := range m.IndexedStrips {
		if err := m.IndexedStrips[i].encode(w, is16Bit, pool); err != nil {
			return err
		}
	}
	return w.err
}
