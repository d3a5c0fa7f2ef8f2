package gma

import (
	"math"
)

// Non-indexed strip tags. The tag names the numeric format of the object,
// so it must agree with the object's precision mode.
const (
	stripTagEnd    = 0x00
	stripTagFloat  = 0x98
	stripTagUint16 = 0x99
)

// maxPrealloc bounds slice preallocation driven by untrusted counts.
const maxPrealloc = 1 << 12

// Strip is a non-indexed triangle strip: vertex records stored inline.
// Vertex order is the strip topology and is preserved exactly.
type Strip struct {
	Vertices []Vertex
}

// decodeStrip reads one non-indexed strip. It returns ok=false when the
// terminator tag is found.
func decodeStrip(r *reader, flags VertexFlags, is16Bit bool) (Strip, bool, error) {
	tagPos := r.pos
	tag := r.u8()
	if r.err != nil {
		return Strip{}, false, r.err
	}
	switch tag {
	case stripTagEnd:
		return Strip{}, false, nil
	case stripTagFloat, stripTagUint16:
	default:
		return Strip{}, false, formatErrorf(ReasonUnknownStripTag, tagPos, "tag 0x%02x", tag)
	}
	if is16Bit && tag != stripTagUint16 {
		return Strip{}, false, formatErrorf(ReasonPrecisionMismatch, tagPos, "16-bit object with float strip")
	}
	if !is16Bit && tag == stripTagUint16 {
		return Strip{}, false, formatErrorf(ReasonPrecisionMismatch, tagPos, "32-bit object with 16-bit strip")
	}

	count := int(r.u16())
	s := Strip{Vertices: make([]Vertex, 0, min(count, maxPrealloc))}
	for i := 0; i < count && r.err == nil; i++ {
		s.Vertices = append(s.Vertices, readVertexRecord(r, flags))
	}
	if r.err != nil {
		return Strip{}, false, r.err
	}
	return s, true, nil
}

func (s *Strip) encode(w *writer, flags VertexFlags, is16Bit bool) error {
	if len(s.Vertices) > math.MaxUint16 {
		return formatErrorf(ReasonValueOutOfRange, -1, "strip has %d vertices", len(s.Vertices))
	}
	if is16Bit {
		w.u8(stripTagUint16)
	} else {
		w.u8(stripTagFloat)
	}
	w.u16(uint16(len(s.Vertices)))
	for i := range s.Vertices {
		if err := writeVertexRecord(w, s.Vertices[i], flags); err != nil {
			return err
		}
	}
	return w.err
}

func (s *Strip) size(flags VertexFlags) int {
	return 3 + len(s.Vertices)*recordSize(flags)
}

// IndexedStrip is a triangle strip whose vertices live in the object's
// vertex pool.
type IndexedStrip struct {
	Indices []int
}

func sizedIntWidth(is16Bit bool) int {
	if is16Bit {
		return 2
	}
	return 4
}

func readSizedInt(r *reader, is16Bit bool) int {
	if is16Bit {
		return int(r.u16())
	}
	return int(r.i32())
}

func writeSizedInt(w *writer, is16Bit bool, v int) error {
	if is16Bit {
		if v < 0 || v > math.MaxUint16 {
			return formatErrorf(ReasonValueOutOfRange, -1, "%d does not fit 16 bits", v)
		}
		w.u16(uint16(v))
		return w.err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return formatErrorf(ReasonValueOutOfRange, -1, "%d does not fit 32 bits", v)
	}
	w.i32(int32(v))
	return w.err
}

// decodeIndexedStrip reads one indexed strip, merging flags into every pool
// vertex it references. It returns the number of sized integers consumed.
func decodeIndexedStrip(r *reader, is16Bit bool, pool *VertexPool, flags VertexFlags) (IndexedStrip, int, error) {
	lengthPos := r.pos
	length := readSizedInt(r, is16Bit)
	if r.err != nil {
		return IndexedStrip{}, 0, r.err
	}
	if length < 0 {
		return IndexedStrip{}, 0, formatErrorf(ReasonValueOutOfRange, lengthPos, "strip length %d", length)
	}

	stride := poolStride(is16Bit)
	s := IndexedStrip{Indices: make([]int, 0, min(length, maxPrealloc))}
	for i := 0; i < length; i++ {
		offPos := r.pos
		off := readSizedInt(r, is16Bit)
		if r.err != nil {
			return IndexedStrip{}, 0, r.err
		}
		if off%stride != 0 {
			return IndexedStrip{}, 0, formatErrorf(ReasonMisalignedOffset, offPos, "offset 0x%x not a multiple of 0x%x", off, stride)
		}
		idx := off / stride
		if idx < 0 || idx >= pool.Len() {
			return IndexedStrip{}, 0, formatErrorf(ReasonIndexOutOfRange, offPos, "index %d, pool has %d", idx, pool.Len())
		}
		pool.MergeFlags(idx, flags)
		s.Indices = append(s.Indices, idx)
	}
	return s, 1 + length, nil
}

func (s *IndexedStrip) encode(w *writer, is16Bit bool, pool *VertexPool) error {
	if err := writeSizedInt(w, is16Bit, len(s.Indices)); err != nil {
		return err
	}
	stride := poolStride(is16Bit)
	for _, idx := range s.Indices {
		if idx < 0 || idx >= pool.Len() {
			return formatErrorf(ReasonVertexNotInPool, -1, "index %d, pool has %d", idx, pool.Len())
		}
		if err := writeSizedInt(w, is16Bit, idx*stride); err != nil {
			return err
		}
	}
	return w.err
}

// numInts returns the number of sized integers the strip occupies.
func (s *IndexedStrip) numInts() int {
	return 1 + len(s.Indices)
}

func (s *IndexedStrip) size(is16Bit bool) int {
	return sizedIntWidth(is16Bit) * s.numInts()
}
