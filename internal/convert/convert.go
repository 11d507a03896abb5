package convert

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// Type identifies a sample value type.
type Type uint8

const (
	Invalid Type = iota
	U8
	I8
	U16
	I16
	U32
	I32
	U64
	I64
	F32
	F64
	C64
	C128
)

// Size returns the size of one sample in bytes, or 0 for Invalid.
func (t Type) Size() int {
	switch t {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64, C64:
		return 8
	case C128:
		return 16
	default:
		return 0
	}
}

// IsInteger returns true for the fixed-point types.
func (t Type) IsInteger() bool {
	return t >= U8 && t <= I64
}

// IsComplex returns true for the complex types.
func (t Type) IsComplex() bool {
	return t == C64 || t == C128
}

// Convert copies n samples from src to dst, converting value types with
// saturation. Strides are in bytes; both buffers must be large enough for the
// strided extent. Samples are in native machine byte order.
func Convert(dst []byte, dt Type, dstStride int, src []byte, st Type, srcStride int, n int) {
	// Fast path: same type, both packed.
	if dt == st && dstStride == dt.Size() && srcStride == st.Size() {
		copy(dst[:n*dt.Size()], src[:n*st.Size()])
		return
	}

	// Integer-to-integer keeps full 64-bit precision.
	if st.IsInteger() && dt.IsInteger() {
		for i := 0; i < n; i++ {
			mag, neg := loadInt(src[i*srcStride:], st)
			storeInt(dst[i*dstStride:], dt, mag, neg)
		}
		return
	}

	for i := 0; i < n; i++ {
		re, im := loadReal(src[i*srcStride:], st)
		storeReal(dst[i*dstStride:], dt, re, im)
	}
}

// loadInt reads one fixed-point sample as a sign/magnitude pair, which
// represents the full range of both int64 and uint64.
func loadInt(b []byte, t Type) (mag uint64, neg bool) {
	var v int64
	switch t {
	case U8:
		return uint64(b[0]), false
	case U16:
		return uint64(binary.NativeEndian.Uint16(b)), false
	case U32:
		return uint64(binary.NativeEndian.Uint32(b)), false
	case U64:
		return binary.NativeEndian.Uint64(b), false
	case I8:
		v = int64(int8(b[0]))
	case I16:
		v = int64(int16(binary.NativeEndian.Uint16(b)))
	case I32:
		v = int64(int32(binary.NativeEndian.Uint32(b)))
	case I64:
		v = int64(binary.NativeEndian.Uint64(b))
	}
	if v < 0 {
		// Written this way so math.MinInt64 does not overflow.
		return uint64(-(v + 1)) + 1, true
	}
	return uint64(v), false
}

func clampSigned(mag uint64, neg bool, min, max int64) int64 {
	if neg {
		lim := uint64(-(min + 1)) + 1
		if mag >= lim {
			return min
		}
		return -int64(mag)
	}
	if mag > uint64(max) {
		return max
	}
	return int64(mag)
}

func clampUnsigned(mag uint64, neg bool, max uint64) uint64 {
	if neg {
		return 0
	}
	if mag > max {
		return max
	}
	return mag
}

func storeInt(b []byte, t Type, mag uint64, neg bool) {
	switch t {
	case U8:
		b[0] = byte(clampUnsigned(mag, neg, math.MaxUint8))
	case I8:
		b[0] = byte(int8(clampSigned(mag, neg, math.MinInt8, math.MaxInt8)))
	case U16:
		binary.NativeEndian.PutUint16(b, uint16(clampUnsigned(mag, neg, math.MaxUint16)))
	case I16:
		binary.NativeEndian.PutUint16(b, uint16(int16(clampSigned(mag, neg, math.MinInt16, math.MaxInt16))))
	case U32:
		binary.NativeEndian.PutUint32(b, uint32(clampUnsigned(mag, neg, math.MaxUint32)))
	case I32:
		binary.NativeEndian.PutUint32(b, uint32(int32(clampSigned(mag, neg, math.MinInt32, math.MaxInt32))))
	case U64:
		binary.NativeEndian.PutUint64(b, clampUnsigned(mag, neg, math.MaxUint64))
	case I64:
		binary.NativeEndian.PutUint64(b, uint64(clampSigned(mag, neg, math.MinInt64, math.MaxInt64)))
	}
}

// loadReal reads one sample as a real/imaginary float64 pair. Complex types
// fill both parts; everything else has a zero imaginary part.
func loadReal(b []byte, t Type) (re, im float64) {
	switch t {
	case U8:
		return float64(b[0]), 0
	case I8:
		return float64(int8(b[0])), 0
	case U16:
		return float64(binary.NativeEndian.Uint16(b)), 0
	case I16:
		return float64(int16(binary.NativeEndian.Uint16(b))), 0
	case U32:
		return float64(binary.NativeEndian.Uint32(b)), 0
	case I32:
		return float64(int32(binary.NativeEndian.Uint32(b))), 0
	case U64:
		return float64(binary.NativeEndian.Uint64(b)), 0
	case I64:
		return float64(int64(binary.NativeEndian.Uint64(b))), 0
	case F32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b))), 0
	case F64:
		return math.Float64frombits(binary.NativeEndian.Uint64(b)), 0
	case C64:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b))),
			float64(math.Float32frombits(binary.NativeEndian.Uint32(b[4:])))
	case C128:
		return math.Float64frombits(binary.NativeEndian.Uint64(b)),
			math.Float64frombits(binary.NativeEndian.Uint64(b[8:]))
	default:
		return 0, 0
	}
}

// f2i64 truncates toward zero and clamps; NaN becomes 0. The comparisons are
// against float64(max/min) so values at or beyond the representable edge clamp
// instead of hitting an out-of-range float-to-int conversion.
func f2i64(f float64, min, max int64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Trunc(f)
	if f >= float64(max) {
		return max
	}
	if f <= float64(min) {
		return min
	}
	return int64(f)
}

func f2u64(f float64, max uint64) uint64 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	f = math.Trunc(f)
	if f >= float64(max) {
		return max
	}
	return uint64(f)
}

// f2f32 clamps a float64 into float32 range; NaN passes through.
func f2f32(f float64) float32 {
	if f > float64(math32.MaxFloat32) {
		return math32.MaxFloat32
	}
	if f < -float64(math32.MaxFloat32) {
		return -math32.MaxFloat32
	}
	return float32(f)
}

func storeReal(b []byte, t Type, re, im float64) {
	switch t {
	case U8:
		b[0] = byte(f2u64(re, math.MaxUint8))
	case I8:
		b[0] = byte(int8(f2i64(re, math.MinInt8, math.MaxInt8)))
	case U16:
		binary.NativeEndian.PutUint16(b, uint16(f2u64(re, math.MaxUint16)))
	case I16:
		binary.NativeEndian.PutUint16(b, uint16(f2i64(re, math.MinInt16, math.MaxInt16)))
	case U32:
		binary.NativeEndian.PutUint32(b, uint32(f2u64(re, math.MaxUint32)))
	case I32:
		binary.NativeEndian.PutUint32(b, uint32(f2i64(re, math.MinInt32, math.MaxInt32)))
	case U64:
		binary.NativeEndian.PutUint64(b, f2u64(re, math.MaxUint64))
	case I64:
		binary.NativeEndian.PutUint64(b, uint64(f2i64(re, math.MinInt64, math.MaxInt64)))
	case F32:
		binary.NativeEndian.PutUint32(b, math.Float32bits(f2f32(re)))
	case F64:
		binary.NativeEndian.PutUint64(b, math.Float64bits(re))
	case C64:
		binary.NativeEndian.PutUint32(b, math.Float32bits(f2f32(re)))
		binary.NativeEndian.PutUint32(b[4:], math.Float32bits(f2f32(im)))
	case C128:
		binary.NativeEndian.PutUint64(b, math.Float64bits(re))
		binary.NativeEndian.PutUint64(b[8:], math.Float64bits(im))
	}
}
