// Package convert implements strided, saturating sample conversion between
// the value types of the windowed transfer contract.
//
// Conversion rules:
//
//   - Integer narrowing clamps to the destination range, never wraps.
//   - Float to integer truncates toward zero, then clamps; NaN becomes 0.
//   - Float64 to Float32 clamps at the float32 range.
//   - Complex to real keeps the real part; real to complex zeroes the
//     imaginary part.
//
// Buffers hold native machine byte order samples. When source and destination
// share a type and both sides are tightly packed, conversion degrades to a
// single copy.
package convert
