// Package gma encodes and decodes GMA model archives and the GCMF model
// objects they contain.
//
// A GMA archive is a table of named slots, each holding one GCMF object or
// nothing. All values are big-endian:
//
//	int32 entryCount
//	int32 modelBaseOffset
//	entryCount x (int32 modelOffset, int32 nameOffset)   (-1, 0) = empty slot
//	name table: NUL-terminated ASCII names, one extra NUL, zero padding to 0x20
//	GCMF objects at modelBaseOffset + modelOffset
package gma

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	archiveAlignment = 0x20
	entrySize        = 8
	archiveHeader    = 8

	emptyModelOffset = -1
	emptyNameOffset  = 0

	// nameTableTrailer is the extra NUL written after the name table before
	// aligning. Archives whose name table ends exactly on a 0x20 boundary
	// therefore carry a whole extra block of padding, matching shipped game
	// files.
	nameTableTrailer = 1

	// emptyObjectName is announced to renderers for empty slots so renderer
	// object order matches slot order.
	emptyObjectName = "EmptyObject"
)

// Slot is one archive position: either an *Entry or an EmptySlot.
type Slot interface {
	isSlot()
}

// Entry is a named model object.
type Entry struct {
	Name   string
	Object *Object
}

// EmptySlot is an archive position without name or object. It is kept so
// indices referring to later slots stay valid.
type EmptySlot struct{}

func (*Entry) isSlot()    {}
func (EmptySlot) isSlot() {}

// Archive is an ordered sequence of slots.
type Archive struct {
	slots []Slot
}

// New returns an empty archive.
func New() *Archive {
	return &Archive{}
}

// Len returns the number of slots, empty ones included.
func (a *Archive) Len() int {
	return len(a.slots)
}

// Slot returns the slot at index i.
func (a *Archive) Slot(i int) Slot {
	return a.slots[i]
}

// Slots returns a copy of the slot list.
func (a *Archive) Slots() []Slot {
	out := make([]Slot, len(a.slots))
	copy(out, a.slots)
	return out
}

// Entry returns the first entry with the given name.
func (a *Archive) Entry(name string) (*Entry, bool) {
	for _, s := range a.slots {
		if e, ok := s.(*Entry); ok && e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// Add appends a named object.
func (a *Archive) Add(name string, obj *Object) error {
	e := &Entry{Name: name, Object: obj}
	if err := checkEntryArgs(e); err != nil {
		return err
	}
	a.slots = append(a.slots, e)
	return nil
}

// AddEmpty appends an empty slot.
func (a *Archive) AddEmpty() {
	a.slots = append(a.slots, EmptySlot{})
}

// Insert places a slot at index i, shifting later slots.
func (a *Archive) Insert(i int, s Slot) error {
	if i < 0 || i > len(a.slots) {
		return errors.Wrapf(ErrInvalidArgument, "slot index %d of %d", i, len(a.slots))
	}
	if s == nil {
		return errors.Wrap(ErrInvalidArgument, "nil slot")
	}
	if e, ok := s.(*Entry); ok {
		if err := checkEntryArgs(e); err != nil {
			return err
		}
	}
	a.slots = append(a.slots, nil)
	copy(a.slots[i+1:], a.slots[i:])
	a.slots[i] = s
	return nil
}

// Remove deletes the slot at index i, shifting later slots.
func (a *Archive) Remove(i int) error {
	if i < 0 || i >= len(a.slots) {
		return errors.Wrapf(ErrInvalidArgument, "slot index %d of %d", i, len(a.slots))
	}
	a.slots = append(a.slots[:i], a.slots[i+1:]...)
	return nil
}

func checkEntryArgs(e *Entry) error {
	if e == nil || e.Object == nil {
		return errors.Wrap(ErrInvalidArgument, "nil object")
	}
	if err := validateName(e.Name); err != nil {
		return errors.Wrap(ErrInvalidArgument, err.Error())
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return formatErrorf(ReasonInvalidName, -1, "empty name")
	}
	for i := 0; i < len(name); i++ {
		if name[i] == 0 || name[i] > 0x7F {
			return formatErrorf(ReasonInvalidName, -1, "%q is not NUL-free ASCII", name)
		}
	}
	return nil
}

// Option configures decoding.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger traces decoding at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

type entryOffsets struct {
	model int32
	name  int32
}

func (e entryOffsets) empty() bool {
	return e.model == emptyModelOffset && e.name == emptyNameOffset
}

// Decode reads an archive starting at the current position of r. Offsets
// inside the archive are relative to that position.
func Decode(r io.ReadSeeker, opts ...Option) (*Archive, error) {
	if r == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil reader")
	}
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "locating archive start")
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "locating archive end")
	}
	if _, err := r.Seek(base, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewinding to archive start")
	}

	rd := newReader(r, base)
	count := rd.i32()
	modelBase := int64(rd.i32())
	if rd.err != nil {
		return nil, errors.Wrap(rd.err, "reading archive header")
	}
	if count < 0 || archiveHeader+int64(count)*entrySize > end-base {
		return nil, formatErrorf(ReasonInvalidEntryCount, base, "%d entries in %d bytes", count, end-base)
	}

	offsets := make([]entryOffsets, count)
	for i := range offsets {
		offsets[i] = entryOffsets{model: rd.i32(), name: rd.i32()}
	}
	if rd.err != nil {
		return nil, errors.Wrap(rd.err, "reading entry table")
	}
	nameBase := rd.pos

	o.log.Debug("decoding archive",
		zap.Int32("entries", count),
		zap.Int64("model_base", modelBase),
		zap.Int64("name_base", nameBase-base))

	a := New()
	for i, off := range offsets {
		if off.empty() {
			a.slots = append(a.slots, EmptySlot{})
			o.log.Debug("empty slot", zap.Int("index", i))
			continue
		}

		rd.seek(nameBase + int64(off.name))
		name, err := readName(rd)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d name", i)
		}

		rd.seek(base + modelBase + int64(off.model))
		obj, err := decodeObject(rd)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d (%s)", i, name)
		}
		a.slots = append(a.slots, &Entry{Name: name, Object: obj})

		o.log.Debug("decoded entry",
			zap.Int("index", i),
			zap.String("name", name),
			zap.Bool("16bit", obj.Is16Bit),
			zap.Int("meshes", len(obj.Meshes)),
			zap.Int("pool", obj.Pool.Len()))
	}
	return a, nil
}

// DecodeBytes decodes an archive held in memory.
func DecodeBytes(data []byte, opts ...Option) (*Archive, error) {
	return Decode(bytes.NewReader(data), opts...)
}

func readName(r *reader) (string, error) {
	start := r.pos
	var name []byte
	for {
		c := r.u8()
		if r.err != nil {
			return "", r.err
		}
		if c == 0 {
			break
		}
		name = append(name, c)
	}
	if err := validateName(string(name)); err != nil {
		fe := err.(*FormatError)
		fe.Offset = start
		return "", fe
	}
	return string(name), nil
}

// headerSize returns the aligned size of the entry table and name table.
func (a *Archive) headerSize() int {
	size := archiveHeader + entrySize*len(a.slots)
	for _, s := range a.slots {
		if e, ok := s.(*Entry); ok {
			size += len(e.Name) + 1
		}
	}
	return alignUp(size+nameTableTrailer, archiveAlignment)
}

// SizeOf returns the encoded size of the archive.
func (a *Archive) SizeOf() int {
	size := a.headerSize()
	for _, s := range a.slots {
		if e, ok := s.(*Entry); ok {
			size += e.Object.SizeOf()
		}
	}
	return size
}

// Encode writes the archive. Every offset is recomputed from the current
// slots.
func (a *Archive) Encode(w io.Writer) error {
	if w == nil {
		return errors.Wrap(ErrInvalidArgument, "nil writer")
	}
	for i, s := range a.slots {
		e, ok := s.(*Entry)
		if !ok {
			continue
		}
		if err := validateName(e.Name); err != nil {
			return errors.Wrapf(err, "entry %d", i)
		}
		if e.Object == nil {
			return errors.Wrapf(ErrInvalidArgument, "entry %d (%s) has no object", i, e.Name)
		}
	}

	wr := newWriter(w)
	wr.i32(int32(len(a.slots)))
	wr.i32(int32(a.headerSize()))

	var nameOff, modelOff int
	for _, s := range a.slots {
		e, ok := s.(*Entry)
		if !ok {
			wr.i32(emptyModelOffset)
			wr.i32(emptyNameOffset)
			continue
		}
		wr.i32(int32(modelOff))
		wr.i32(int32(nameOff))
		nameOff += len(e.Name) + 1
		modelOff += e.Object.SizeOf()
	}

	for _, s := range a.slots {
		if e, ok := s.(*Entry); ok {
			wr.write([]byte(e.Name))
			wr.u8(0)
		}
	}
	wr.zeros(nameTableTrailer)
	wr.align(0, archiveAlignment)

	for i, s := range a.slots {
		if e, ok := s.(*Entry); ok {
			if err := e.Object.encode(wr); err != nil {
				return errors.Wrapf(err, "entry %d (%s)", i, e.Name)
			}
		}
	}
	return wr.err
}

// EncodeBytes returns the encoded archive.
func (a *Archive) EncodeBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(a.SizeOf())
	if err := a.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render emits every slot to r in order. Empty slots produce an empty
// object named "EmptyObject". Every BeginObject is paired with an EndObject,
// also when rendering an entry fails and Render returns early.
func (a *Archive) Render(r Renderer) error {
	if r == nil {
		return errors.Wrap(ErrInvalidArgument, "nil renderer")
	}
	for i, s := range a.slots {
		e, ok := s.(*Entry)
		if !ok {
			r.BeginObject(emptyObjectName)
			r.EndObject()
			continue
		}
		r.BeginObject(e.Name)
		if err := e.Object.Render(r); err != nil {
			r.EndObject()
			return errors.Wrapf(err, "entry %d (%s)", i, e.Name)
		}
		r.EndObject()
	}
	return nil
}
