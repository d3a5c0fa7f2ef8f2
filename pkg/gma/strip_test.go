package gma

import (
	"bytes"
	"testing"
)

func stripReader(data []byte) *reader {
	return newReader(bytes.NewReader(data), 0)
}

func TestDecodeStrip_Tags(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		is16Bit bool
		wantOK  bool
		reason  Reason
	}{
		{"terminator", []byte{0x00}, false, false, 0},
		{"float empty", []byte{0x98, 0x00, 0x00}, false, true, 0},
		{"uint16 empty", []byte{0x99, 0x00, 0x00}, true, true, 0},
		{"uint16 tag in 32-bit object", []byte{0x99, 0x00, 0x00}, false, false, ReasonPrecisionMismatch},
		{"float tag in 16-bit object", []byte{0x98, 0x00, 0x00}, true, false, ReasonPrecisionMismatch},
		{"unknown tag", []byte{0x42, 0x00, 0x00}, false, false, ReasonUnknownStripTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := decodeStrip(stripReader(tt.data), FlagPosition, tt.is16Bit)
			if tt.reason != 0 {
				if !IsFormatError(err, tt.reason) {
					t.Errorf("got %v, want %s", err, tt.reason)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestStrip_EncodeDerivesTag(t *testing.T) {
	s := Strip{Vertices: []Vertex{NewVertex(vec3(1, 2, 3)), NewVertex(vec3(4, 5, 6))}}

	for _, tt := range []struct {
		is16Bit bool
		tag     byte
	}{
		{false, stripTagFloat},
		{true, stripTagUint16},
	} {
		buf, w := rawWriter()
		if err := s.encode(w, FlagPosition, tt.is16Bit); err != nil {
			t.Fatalf("encode: %v", err)
		}
		data := buf.Bytes()
		if data[0] != tt.tag {
			t.Errorf("16bit=%v: tag 0x%02x, want 0x%02x", tt.is16Bit, data[0], tt.tag)
		}
		if data[1] != 0 || data[2] != 2 {
			t.Errorf("count bytes = % x, want 00 02", data[1:3])
		}
		if len(data) != s.size(FlagPosition) {
			t.Errorf("encoded %d bytes, size() = %d", len(data), s.size(FlagPosition))
		}

		got, ok, err := decodeStrip(stripReader(data), FlagPosition, tt.is16Bit)
		if err != nil || !ok {
			t.Fatalf("decode: ok=%v err=%v", ok, err)
		}
		if len(got.Vertices) != 2 || got.Vertices[0] != s.Vertices[0] || got.Vertices[1] != s.Vertices[1] {
			t.Errorf("decoded %+v, want %+v", got.Vertices, s.Vertices)
		}
	}
}

func TestDecodeStrip_Truncated(t *testing.T) {
	_, _, err := decodeStrip(stripReader([]byte{0x98, 0x00, 0x02, 0x3F}), FlagPosition, false)
	if err == nil {
		t.Fatal("expected error for truncated strip")
	}
	if IsFormatError(err, 0) {
		t.Errorf("truncation should surface as an I/O error, got %v", err)
	}
}

func poolOf(n int) *VertexPool {
	p := NewVertexPool()
	for i := 0; i < n; i++ {
		p.push(NewVertex(vec3(float32(i), 0, 0)))
	}
	return p
}

func TestDecodeIndexedStrip_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		is16Bit bool
		offset  int
		reason  Reason
	}{
		{"full aligned", false, 0x80, 0},
		{"full misaligned", false, 0x41, ReasonMisalignedOffset},
		{"full half stride", false, 0x20, ReasonMisalignedOffset},
		{"full out of range", false, 3 * 0x40, ReasonIndexOutOfRange},
		{"full negative", false, -0x40, ReasonIndexOutOfRange},
		{"half aligned", true, 0x40, 0},
		{"half misaligned", true, 0x10, ReasonMisalignedOffset},
		{"half out of range", true, 3 * 0x20, ReasonIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, w := rawWriter()
			writeSizedInt(w, tt.is16Bit, 1)
			if tt.is16Bit {
				w.u16(uint16(tt.offset))
			} else {
				w.i32(int32(tt.offset))
			}

			pool := poolOf(3)
			s, n, err := decodeIndexedStrip(stripReader(buf.Bytes()), tt.is16Bit, pool, FlagPosition|FlagNormal)
			if tt.reason != 0 {
				if !IsFormatError(err, tt.reason) {
					t.Errorf("got %v, want %s", err, tt.reason)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != 2 {
				t.Errorf("consumed %d ints, want 2", n)
			}
			wantIdx := tt.offset / poolStride(tt.is16Bit)
			if len(s.Indices) != 1 || s.Indices[0] != wantIdx {
				t.Errorf("indices = %v, want [%d]", s.Indices, wantIdx)
			}
			if !pool.At(wantIdx).Flags.Has(FlagNormal) {
				t.Error("strip flags not merged into pool vertex")
			}
		})
	}
}

func TestIndexedStrip_EncodeBytes(t *testing.T) {
	s := IndexedStrip{Indices: []int{2, 0, 1}}
	pool := poolOf(3)

	tests := []struct {
		is16Bit bool
		want    []byte
	}{
		{false, []byte{
			0, 0, 0, 3,
			0, 0, 0, 0x80,
			0, 0, 0, 0,
			0, 0, 0, 0x40,
		}},
		{true, []byte{
			0, 3,
			0, 0x40,
			0, 0,
			0, 0x20,
		}},
	}

	for _, tt := range tests {
		buf, w := rawWriter()
		if err := s.encode(w, tt.is16Bit, pool); err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !bytes.Equal(buf.Bytes(), tt.want) {
			t.Errorf("16bit=%v: got % x, want % x", tt.is16Bit, buf.Bytes(), tt.want)
		}
		if got, want := s.size(tt.is16Bit), sizedIntWidth(tt.is16Bit)*(1+len(s.Indices)); got != want || got != len(tt.want) {
			t.Errorf("16bit=%v: size() = %d, want %d", tt.is16Bit, got, want)
		}
	}
}

func TestIndexedStrip_VertexNotInPool(t *testing.T) {
	s := IndexedStrip{Indices: []int{0, 5}}
	_, w := rawWriter()
	if err := s.encode(w, false, poolOf(2)); !IsFormatError(err, ReasonVertexNotInPool) {
		t.Errorf("got %v, want vertex not in pool", err)
	}

	_, err := IndexedStripFromPool(poolOf(2), []Vertex{NewVertex(vec3(0, 0, 0)), NewVertex(vec3(7, 7, 7))})
	if !IsFormatError(err, ReasonVertexNotInPool) {
		t.Errorf("IndexedStripFromPool: got %v, want vertex not in pool", err)
	}

	got, err := IndexedStripFromPool(poolOf(2), []Vertex{NewVertex(vec3(1, 0, 0)), NewVertex(vec3(0, 0, 0))})
	if err != nil {
		t.Fatalf("IndexedStripFromPool: %v", err)
	}
	if len(got.Indices) != 2 || got.Indices[0] != 1 || got.Indices[1] != 0 {
		t.Errorf("indices = %v, want [1 0]", got.Indices)
	}
}

func TestWriteSizedInt_Range(t *testing.T) {
	_, w := rawWriter()
	if err := writeSizedInt(w, true, 0x10000); !IsFormatError(err, ReasonValueOutOfRange) {
		t.Errorf("16-bit overflow: got %v", err)
	}
	if err := writeSizedInt(w, true, -1); !IsFormatError(err, ReasonValueOutOfRange) {
		t.Errorf("16-bit negative: got %v", err)
	}
	if err := writeSizedInt(w, false, 0x10000); err != nil {
		t.Errorf("32-bit: %v", err)
	}
}
