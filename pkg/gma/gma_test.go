package gma

import (
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// makeSampleArchive returns cube, an empty slot, then ball.
func makeSampleArchive(t *testing.T) *Archive {
	t.Helper()
	a := New()
	if err := a.Add("cube", makeSampleObject(false)); err != nil {
		t.Fatal(err)
	}
	a.AddEmpty()
	if err := a.Add("ball", makeSampleObject(true)); err != nil {
		t.Fatal(err)
	}
	return a
}

func encodeArchive(t *testing.T, a *Archive) []byte {
	t.Helper()
	data, err := a.EncodeBytes()
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	return data
}

func be32(b []byte, off int) int32 {
	return int32(binary.BigEndian.Uint32(b[off:]))
}

func TestArchive_RoundTrip(t *testing.T) {
	a := makeSampleArchive(t)
	data := encodeArchive(t, a)

	if len(data) != a.SizeOf() {
		t.Errorf("encoded %d bytes, SizeOf() = %d", len(data), a.SizeOf())
	}

	got, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if got.Len() != 3 {
		t.Fatalf("Len = %d, want 3", got.Len())
	}
	if _, ok := got.Slot(1).(EmptySlot); !ok {
		t.Errorf("slot 1 = %T, want EmptySlot", got.Slot(1))
	}
	if !reflect.DeepEqual(got, a) {
		t.Error("decoded archive differs from the encoded one")
	}

	again := encodeArchive(t, got)
	if !bytes.Equal(again, data) {
		t.Error("re-encoding changed bytes")
	}
}

func TestArchive_HeaderLayout(t *testing.T) {
	a := makeSampleArchive(t)
	data := encodeArchive(t, a)
	cubeSize := a.Slot(0).(*Entry).Object.SizeOf()

	// 8 + 3*8 + "cube\0" + "ball\0" + trailer = 43, aligned to 64
	want := []struct {
		off   int
		value int32
	}{
		{0, 3},
		{4, 64},
		{8, 0}, {12, 0},
		{16, -1}, {20, 0},
		{24, int32(cubeSize)}, {28, 5},
	}
	for _, w := range want {
		if got := be32(data, w.off); got != w.value {
			t.Errorf("int32 at %d = %d, want %d", w.off, got, w.value)
		}
	}

	if got := string(data[32:42]); got != "cube\x00ball\x00" {
		t.Errorf("name table = %q", got)
	}
	for i := 42; i < 64; i++ {
		if data[i] != 0 {
			t.Fatalf("padding byte %d = 0x%02x", i, data[i])
		}
	}
	if string(data[64:68]) != gcmfMagic || string(data[64+cubeSize:68+cubeSize]) != gcmfMagic {
		t.Error("objects not found at model base + model offset")
	}
}

func TestArchive_NameTablePadding(t *testing.T) {
	tests := []struct {
		name      string
		modelBase int32
	}{
		{"a", 0x20},
		// 8 + 8 + 16 fills 0x20 exactly; the trailer NUL forces another block
		{"fifteen_chars__", 0x40},
		{"fourteen_chars", 0x20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			if err := a.Add(tt.name, makeSampleObject(false)); err != nil {
				t.Fatal(err)
			}
			data := encodeArchive(t, a)
			if got := be32(data, 4); got != tt.modelBase {
				t.Errorf("model base = 0x%x, want 0x%x", got, tt.modelBase)
			}
			for i := 16 + len(tt.name) + 1; i < int(tt.modelBase); i++ {
				if data[i] != 0 {
					t.Fatalf("padding byte %d = 0x%02x", i, data[i])
				}
			}
			if _, err := DecodeBytes(data); err != nil {
				t.Errorf("DecodeBytes: %v", err)
			}
		})
	}
}

func TestArchive_OffsetsRecomputed(t *testing.T) {
	a := makeSampleArchive(t)
	if err := a.Remove(0); err != nil {
		t.Fatal(err)
	}
	data := encodeArchive(t, a)

	if be32(data, 0) != 2 {
		t.Fatalf("count = %d, want 2", be32(data, 0))
	}
	if be32(data, 8) != -1 || be32(data, 12) != 0 {
		t.Errorf("slot 0 = (%d, %d), want empty", be32(data, 8), be32(data, 12))
	}
	if be32(data, 16) != 0 || be32(data, 20) != 0 {
		t.Errorf("ball offsets = (%d, %d), want (0, 0)", be32(data, 16), be32(data, 20))
	}

	got, err := DecodeBytes(data)
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := got.Entry("ball"); !ok || !e.Object.Is16Bit {
		t.Error("ball not decoded after removal")
	}
	if _, ok := got.Entry("cube"); ok {
		t.Error("removed entry still present")
	}
}

func TestArchive_Insert(t *testing.T) {
	a := makeSampleArchive(t)
	if err := a.Insert(1, &Entry{Name: "cone", Object: makeSampleObject(false)}); err != nil {
		t.Fatal(err)
	}
	if err := a.Insert(0, EmptySlot{}); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, s := range a.Slots() {
		if e, ok := s.(*Entry); ok {
			names = append(names, e.Name)
		} else {
			names = append(names, "-")
		}
	}
	if got := strings.Join(names, ","); got != "-,cube,cone,-,ball" {
		t.Errorf("slots = %s", got)
	}

	if err := a.Insert(9, EmptySlot{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("out of range insert: got %v", err)
	}
	if err := a.Insert(0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil slot: got %v", err)
	}
}

func TestArchive_InvalidArguments(t *testing.T) {
	a := New()
	if err := a.Add("", makeSampleObject(false)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty name: got %v", err)
	}
	if err := a.Add("bad\x00name", makeSampleObject(false)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NUL in name: got %v", err)
	}
	if err := a.Add("nothing", nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil object: got %v", err)
	}
	if err := a.Remove(0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("remove from empty archive: got %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("failed calls changed the archive: Len = %d", a.Len())
	}

	if err := a.Encode(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil writer: got %v", err)
	}
	if _, err := Decode(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil reader: got %v", err)
	}
	if err := a.Render(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil renderer: got %v", err)
	}
}

func TestArchive_EncodeRejectsBadName(t *testing.T) {
	a := makeSampleArchive(t)
	a.Slot(2).(*Entry).Name = "b\xffll"
	if _, err := a.EncodeBytes(); !IsFormatError(err, ReasonInvalidName) {
		t.Errorf("got %v, want invalid name", err)
	}
}

func TestDecode_Errors(t *testing.T) {
	single := New()
	if err := single.Add("a", makeSampleObject(false)); err != nil {
		t.Fatal(err)
	}
	valid := encodeArchive(t, single)

	tests := []struct {
		name   string
		data   func() []byte
		reason Reason
		detail string
	}{
		{
			name:   "negative count",
			data:   func() []byte { return []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0} },
			reason: ReasonInvalidEntryCount,
		},
		{
			name:   "count larger than stream",
			data:   func() []byte { return []byte{0, 0, 0x10, 0, 0, 0, 0, 0x20} },
			reason: ReasonInvalidEntryCount,
		},
		{
			name: "empty name",
			data: func() []byte {
				b := append([]byte(nil), valid...)
				b[15] = 2 // point at the trailer NUL
				return b
			},
			reason: ReasonInvalidName,
		},
		{
			name: "corrupt object",
			data: func() []byte {
				b := append([]byte(nil), valid...)
				b[0x20] = 'X'
				return b
			},
			reason: ReasonBadMagic,
			detail: "entry 0 (a)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes(tt.data())
			if !IsFormatError(err, tt.reason) {
				t.Fatalf("got %v, want %s", err, tt.reason)
			}
			if tt.detail != "" && !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q lacks %q", err, tt.detail)
			}
		})
	}

	if _, err := DecodeBytes([]byte{0, 0}); err == nil || IsFormatError(err, 0) {
		t.Errorf("short header: got %v, want I/O error", err)
	}
}

func TestDecode_NonZeroBase(t *testing.T) {
	data := encodeArchive(t, makeSampleArchive(t))
	prefix := bytes.Repeat([]byte{0xAB}, 0x30)
	r := bytes.NewReader(append(prefix, data...))
	if _, err := r.Seek(int64(len(prefix)), io.SeekStart); err != nil {
		t.Fatal(err)
	}

	got, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if e, ok := got.Entry("ball"); !ok || len(e.Object.Meshes) != 2 {
		t.Error("ball not decoded from offset stream")
	}
}

func TestDecode_WithLogger(t *testing.T) {
	data := encodeArchive(t, makeSampleArchive(t))
	core, logs := observer.New(zap.DebugLevel)

	if _, err := DecodeBytes(data, WithLogger(zap.New(core))); err != nil {
		t.Fatal(err)
	}
	if n := logs.FilterMessage("decoded entry").Len(); n != 2 {
		t.Errorf("%d decoded entry logs, want 2", n)
	}
	if n := logs.FilterMessage("empty slot").Len(); n != 1 {
		t.Errorf("%d empty slot logs, want 1", n)
	}
	entries := logs.FilterMessage("decoding archive").All()
	if len(entries) != 1 || entries[0].ContextMap()["entries"] != int32(3) {
		t.Errorf("archive header log = %+v", entries)
	}
}

func TestArchive_Render(t *testing.T) {
	a := makeSampleArchive(t)
	var r recordingRenderer
	if err := a.Render(&r); err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := []string{
		"begin:cube", "strip:cube", "strip:cube", "strip:cube", "end",
		"begin:EmptyObject", "end",
		"begin:ball", "strip:ball", "strip:ball", "strip:ball", "end",
	}
	if !reflect.DeepEqual(r.events, want) {
		t.Errorf("events = %v\nwant %v", r.events, want)
	}
}

func TestArchive_RenderClosesFailedObject(t *testing.T) {
	a := makeSampleArchive(t)
	ball, _ := a.Entry("ball")
	ball.Object.Meshes[1].MatrixSlots = UnboundSlots()

	var r recordingRenderer
	err := a.Render(&r)
	if !IsFormatError(err, ReasonUnboundTransformRef) {
		t.Fatalf("got %v, want unbound reference", err)
	}
	if !strings.Contains(err.Error(), "entry 2 (ball)") {
		t.Errorf("error %q lacks entry context", err)
	}

	want := []string{
		"begin:cube", "strip:cube", "strip:cube", "strip:cube", "end",
		"begin:EmptyObject", "end",
		"begin:ball", "strip:ball", "end",
	}
	if !reflect.DeepEqual(r.events, want) {
		t.Errorf("events = %v\nwant %v", r.events, want)
	}
}
