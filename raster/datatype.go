package raster

import (
	"reflect"

	"github.com/robert-malhotra/go-raster/internal/convert"
)

// DataType identifies the value type of samples in a buffer or backend.
// The numeric values mirror convert.Type so the two can be cast directly.
type DataType uint8

const (
	Unknown DataType = iota
	Byte
	Int8
	UInt16
	Int16
	UInt32
	Int32
	UInt64
	Int64
	Float32
	Float64
	CFloat32
	CFloat64
)

// Size returns the size of one sample in bytes, or 0 for Unknown.
func (t DataType) Size() int {
	return convert.Type(t).Size()
}

// IsComplex returns true for the complex sample types.
func (t DataType) IsComplex() bool {
	return t == CFloat32 || t == CFloat64
}

// IsFloat returns true for the floating-point sample types, complex included.
func (t DataType) IsFloat() bool {
	return t == Float32 || t == Float64 || t.IsComplex()
}

func (t DataType) String() string {
	switch t {
	case Byte:
		return "Byte"
	case Int8:
		return "Int8"
	case UInt16:
		return "UInt16"
	case Int16:
		return "Int16"
	case UInt32:
		return "UInt32"
	case Int32:
		return "Int32"
	case UInt64:
		return "UInt64"
	case Int64:
		return "Int64"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	case CFloat32:
		return "CFloat32"
	case CFloat64:
		return "CFloat64"
	default:
		return "Unknown"
	}
}

// ParseDataType maps a DataType name back to its value. Unrecognized names
// return Unknown.
func ParseDataType(s string) DataType {
	for t := Byte; t <= CFloat64; t++ {
		if t.String() == s {
			return t
		}
	}
	return Unknown
}

// dataTypeOfKind maps a Go slice element kind to the corresponding DataType.
func dataTypeOfKind(k reflect.Kind) DataType {
	switch k {
	case reflect.Uint8:
		return Byte
	case reflect.Int8:
		return Int8
	case reflect.Uint16:
		return UInt16
	case reflect.Int16:
		return Int16
	case reflect.Uint32:
		return UInt32
	case reflect.Int32:
		return Int32
	case reflect.Uint64:
		return UInt64
	case reflect.Int64:
		return Int64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Complex64:
		return CFloat32
	case reflect.Complex128:
		return CFloat64
	default:
		return Unknown
	}
}
