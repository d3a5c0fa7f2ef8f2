package gma

import (
	"fmt"
	"math"
	"strings"

	gmath "github.com/Faultbox/gmakit/pkg/math"
)

// VertexFlags declares which attributes are present in the vertices of a
// mesh. Bit numbering follows the GX vertex attribute enumeration.
type VertexFlags uint32

const (
	FlagMatrixRef VertexFlags = 1 << 0  // GX_VA_PNMTXIDX
	FlagPosition  VertexFlags = 1 << 9  // GX_VA_POS
	FlagNormal    VertexFlags = 1 << 10 // GX_VA_NRM
	FlagColor     VertexFlags = 1 << 11 // GX_VA_CLR0
	FlagTexCoord  VertexFlags = 1 << 13 // GX_VA_TEX0

	knownVertexFlags = FlagMatrixRef | FlagPosition | FlagNormal | FlagColor | FlagTexCoord
)

// Has reports whether all bits of other are set.
func (f VertexFlags) Has(other VertexFlags) bool {
	return f&other == other
}

// String lists the set attributes, e.g. "pos|nrm|tex0".
func (f VertexFlags) String() string {
	names := []struct {
		flag VertexFlags
		name string
	}{
		{FlagMatrixRef, "mtx"},
		{FlagPosition, "pos"},
		{FlagNormal, "nrm"},
		{FlagColor, "clr0"},
		{FlagTexCoord, "tex0"},
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if rest := f &^ knownVertexFlags; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

func validateVertexFlags(flags VertexFlags, offset int64) error {
	if flags&^knownVertexFlags != 0 {
		return formatErrorf(ReasonUnknownVertexFlags, offset, "flags 0x%08x", uint32(flags))
	}
	if !flags.Has(FlagPosition) {
		return formatErrorf(ReasonUnknownVertexFlags, offset, "flags 0x%08x lack position", uint32(flags))
	}
	return nil
}

// Color is an RGBA vertex color, 0-255 per channel.
type Color [4]uint8

// Vertex is one GCMF vertex. An attribute is present iff its bit is set in
// Flags; absent attributes of vertices built in memory are zero, so two
// vertices are equal exactly when their present attributes are.
type Vertex struct {
	Flags     VertexFlags
	Position  gmath.Vec3
	Normal    gmath.Vec3
	Color     Color
	TexCoord  gmath.Vec2
	MatrixRef uint8
}

// NewVertex returns a vertex carrying only a position.
func NewVertex(pos gmath.Vec3) Vertex {
	return Vertex{Flags: FlagPosition, Position: pos}
}

// WithNormal returns a copy of v with the normal set.
func (v Vertex) WithNormal(n gmath.Vec3) Vertex {
	v.Flags |= FlagNormal
	v.Normal = n
	return v
}

// WithColor returns a copy of v with the vertex color set.
func (v Vertex) WithColor(c Color) Vertex {
	v.Flags |= FlagColor
	v.Color = c
	return v
}

// WithTexCoord returns a copy of v with the primary texture coordinate set.
func (v Vertex) WithTexCoord(uv gmath.Vec2) Vertex {
	v.Flags |= FlagTexCoord
	v.TexCoord = uv
	return v
}

// WithMatrixRef returns a copy of v with the transform matrix reference set.
func (v Vertex) WithMatrixRef(ref uint8) Vertex {
	v.Flags |= FlagMatrixRef
	v.MatrixRef = ref
	return v
}

// recordSize returns the size of a packed vertex record under flags.
func recordSize(flags VertexFlags) int {
	size := 12
	if flags.Has(FlagNormal) {
		size += 12
	}
	if flags.Has(FlagColor) {
		size += 4
	}
	if flags.Has(FlagTexCoord) {
		size += 8
	}
	if flags.Has(FlagMatrixRef) {
		size++
	}
	return size
}

func readVec3(r *reader) gmath.Vec3 {
	return gmath.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func writeVec3(w *writer, v gmath.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func readColor(r *reader) Color {
	return Color{r.u8(), r.u8(), r.u8(), r.u8()}
}

func writeColor(w *writer, c Color) {
	w.write(c[:])
}

// readVertexRecord decodes one packed (non-indexed) vertex record.
// Field order: position, normal, color, texcoord, matrix reference.
func readVertexRecord(r *reader, flags VertexFlags) Vertex {
	v := Vertex{Flags: flags, Position: readVec3(r)}
	if flags.Has(FlagNormal) {
		v.Normal = readVec3(r)
	}
	if flags.Has(FlagColor) {
		v.Color = readColor(r)
	}
	if flags.Has(FlagTexCoord) {
		v.TexCoord = gmath.Vec2{X: r.f32(), Y: r.f32()}
	}
	if flags.Has(FlagMatrixRef) {
		v.MatrixRef = r.u8()
	}
	return v
}

// writeVertexRecord encodes v as a packed vertex record. The vertex must
// carry exactly the attributes the strip declares.
func writeVertexRecord(w *writer, v Vertex, flags VertexFlags) error {
	if v.Flags != flags {
		return formatErrorf(ReasonAttributeMismatch, -1, "vertex has %s, strip declares %s", v.Flags, flags)
	}
	writeVec3(w, v.Position)
	if flags.Has(FlagNormal) {
		writeVec3(w, v.Normal)
	}
	if flags.Has(FlagColor) {
		writeColor(w, v.Color)
	}
	if flags.Has(FlagTexCoord) {
		w.f32(v.TexCoord.X)
		w.f32(v.TexCoord.Y)
	}
	if flags.Has(FlagMatrixRef) {
		w.u8(v.MatrixRef)
	}
	return w.err
}

// Vertex pool record strides.
const (
	poolStride32 = 0x40
	poolStride16 = 0x20

	normalFixedScale   = 1 << 14
	texCoordFixedScale = 1 << 8
)

func poolStride(is16Bit bool) int {
	if is16Bit {
		return poolStride16
	}
	return poolStride32
}

// readPoolRecord decodes one fixed-slot vertex pool record. Every attribute
// slot is read; the returned vertex only claims a position until the meshes
// referencing it merge their flags in.
func readPoolRecord(r *reader, is16Bit bool) Vertex {
	v := Vertex{Flags: FlagPosition, Position: readVec3(r)}
	if is16Bit {
		v.Normal = gmath.Vec3{
			X: float32(r.i16()) / normalFixedScale,
			Y: float32(r.i16()) / normalFixedScale,
			Z: float32(r.i16()) / normalFixedScale,
		}
		v.Color = readColor(r)
		v.TexCoord = gmath.Vec2{
			X: float32(r.i16()) / texCoordFixedScale,
			Y: float32(r.i16()) / texCoordFixedScale,
		}
		v.MatrixRef = r.u8()
		r.skip(poolStride16 - 27)
		return v
	}
	v.Normal = readVec3(r)
	v.Color = readColor(r)
	v.TexCoord = gmath.Vec2{X: r.f32(), Y: r.f32()}
	v.MatrixRef = r.u8()
	r.skip(poolStride32 - 37)
	return v
}

func toFixed16(x float32, scale float32) (int16, error) {
	q := math.Round(float64(x * scale))
	if q < math.MinInt16 || q > math.MaxInt16 {
		return 0, formatErrorf(ReasonValueOutOfRange, -1, "%g does not fit 16-bit fixed point", x)
	}
	// the decoder divides by scale; anything it cannot reproduce is rejected
	if float32(q)/scale != x {
		return 0, formatErrorf(ReasonValueOutOfRange, -1, "%g is not a multiple of 1/%g", x, scale)
	}
	return int16(q), nil
}

// writePoolRecord encodes v as a fixed-slot pool record of poolStride bytes.
func writePoolRecord(w *writer, v Vertex, is16Bit bool) error {
	writeVec3(w, v.Position)
	if !is16Bit {
		writeVec3(w, v.Normal)
		writeColor(w, v.Color)
		w.f32(v.TexCoord.X)
		w.f32(v.TexCoord.Y)
		w.u8(v.MatrixRef)
		w.zeros(poolStride32 - 37)
		return w.err
	}

	var fixed [5]int16
	for i, f := range []struct {
		v     float32
		scale float32
	}{
		{v.Normal.X, normalFixedScale},
		{v.Normal.Y, normalFixedScale},
		{v.Normal.Z, normalFixedScale},
		{v.TexCoord.X, texCoordFixedScale},
		{v.TexCoord.Y, texCoordFixedScale},
	} {
		q, err := toFixed16(f.v, f.scale)
		if err != nil {
			return err
		}
		fixed[i] = q
	}
	w.i16(fixed[0])
	w.i16(fixed[1])
	w.i16(fixed[2])
	writeColor(w, v.Color)
	w.i16(fixed[3])
	w.i16(fixed[4])
	w.u8(v.MatrixRef)
	w.zeros(poolStride16 - 27)
	return w.err
}
