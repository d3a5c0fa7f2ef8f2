package gma

// VertexPool is the ordered, deduplicated vertex arena of one model object.
// Indexed strips hold indices into the pool; a vertex's index is the
// position of its first insertion.
type VertexPool struct {
	vertices []Vertex
	index    map[Vertex]int
}

// NewVertexPool returns an empty pool.
func NewVertexPool() *VertexPool {
	return &VertexPool{index: make(map[Vertex]int)}
}

// poolKey identifies a vertex by its attribute values. Flags are excluded:
// pool records store every attribute slot and the flags of a pooled vertex
// are the union of what its referencing meshes require.
func poolKey(v Vertex) Vertex {
	v.Flags = 0
	return v
}

// Len returns the number of pooled vertices. A nil pool is empty.
func (p *VertexPool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.vertices)
}

// At returns the vertex at index i.
func (p *VertexPool) At(i int) Vertex {
	return p.vertices[i]
}

// Index returns the index of a vertex with the same attribute values as v.
func (p *VertexPool) Index(v Vertex) (int, bool) {
	if p == nil {
		return 0, false
	}
	i, ok := p.index[poolKey(v)]
	return i, ok
}

// Add inserts v unless an equal vertex is already pooled, merges v's flags
// into the pooled vertex and returns its index.
func (p *VertexPool) Add(v Vertex) int {
	if i, ok := p.Index(v); ok {
		p.vertices[i].Flags |= v.Flags
		return i
	}
	return p.push(v)
}

// push appends v without deduplication. Decoded pools keep duplicate
// records so that the byte offsets used by indexed strips stay valid.
func (p *VertexPool) push(v Vertex) int {
	i := len(p.vertices)
	p.vertices = append(p.vertices, v)
	if p.index == nil {
		p.index = make(map[Vertex]int)
	}
	key := poolKey(v)
	if _, ok := p.index[key]; !ok {
		p.index[key] = i
	}
	return i
}

// MergeFlags ORs flags into the vertex at index i.
func (p *VertexPool) MergeFlags(i int, flags VertexFlags) {
	p.vertices[i].Flags |= flags
}

// Vertices returns a copy of the pooled vertices in index order.
func (p *VertexPool) Vertices() []Vertex {
	if p == nil {
		return nil
	}
	out := make([]Vertex, len(p.vertices))
	copy(out, p.vertices)
	return out
}
