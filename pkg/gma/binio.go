package gma

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// reader is a big-endian reader with a sticky error and a position counter.
type reader struct {
	r   io.Reader
	pos int64
	err error
	buf [8]byte
}

func newReader(r io.Reader, pos int64) *reader {
	return &reader{r: r, pos: pos}
}

func (r *reader) fill(n int) []byte {
	if r.err != nil {
		return nil
	}
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		r.err = errors.Wrapf(err, "reading at 0x%x", r.pos)
		return nil
	}
	r.pos += int64(n)
	return r.buf[:n]
}

func (r *reader) u8() uint8 {
	b := r.fill(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.fill(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) i16() int16 {
	return int16(r.u16())
}

func (r *reader) u32() uint32 {
	b := r.fill(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) i32() int32 {
	return int32(r.u32())
}

func (r *reader) f32() float32 {
	var v float32
	if b := r.fill(4); b != nil {
		v = math.Float32frombits(binary.BigEndian.Uint32(b))
	}
	return v
}

func (r *reader) skip(n int) {
	for n > 0 && r.err == nil {
		chunk := n
		if chunk > len(r.buf) {
			chunk = len(r.buf)
		}
		r.fill(chunk)
		n -= chunk
	}
}

// seek moves to an absolute stream position. It requires the underlying
// reader to be an io.Seeker.
func (r *reader) seek(pos int64) {
	if r.err != nil {
		return
	}
	s, ok := r.r.(io.Seeker)
	if !ok {
		r.err = errors.New("gma: stream is not seekable")
		return
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		r.err = errors.Wrapf(err, "seeking to 0x%x", pos)
		return
	}
	r.pos = pos
}

// writer is a big-endian writer with a sticky error and a byte counter.
type writer struct {
	w   io.Writer
	n   int64
	err error
	buf [8]byte
}

func newWriter(w io.Writer) *writer {
	return &writer{w: w}
}

func (w *writer) write(b []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(b)
	w.n += int64(n)
	if err != nil {
		w.err = errors.Wrapf(err, "writing at 0x%x", w.n)
	}
}

func (w *writer) u8(v uint8) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

func (w *writer) u16(v uint16) {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	w.write(w.buf[:2])
}

func (w *writer) i16(v int16) {
	w.u16(uint16(v))
}

func (w *writer) u32(v uint32) {
	binary.BigEndian.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

func (w *writer) i32(v int32) {
	w.u32(uint32(v))
}

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) zeros(n int) {
	var pad [0x40]byte
	for n > 0 && w.err == nil {
		chunk := n
		if chunk > len(pad) {
			chunk = len(pad)
		}
		w.write(pad[:chunk])
		n -= chunk
	}
}

// align pads with zero bytes until the distance from start is a multiple of a.
func (w *writer) align(start int64, a int) {
	written := int(w.n - start)
	w.zeros(alignUp(written, a) - written)
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}
