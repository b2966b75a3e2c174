// Package dtype describes the scalar and vector value types carried by TIR.
package dtype

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Code is the base kind of a data type.
type Code uint8

const (
	// CodeVoid is the absence of a value.
	CodeVoid Code = iota
	// CodeHandle is an opaque pointer.
	CodeHandle
	// CodeBool is a one-bit boolean.
	CodeBool
	// CodeInt is a signed integer.
	CodeInt
	// CodeUInt is an unsigned integer.
	CodeUInt
	// CodeFloat is an IEEE floating point value.
	CodeFloat
)

func (c Code) String() string {
	switch c {
	case CodeVoid:
		return "void"
	case CodeHandle:
		return "handle"
	case CodeBool:
		return "bool"
	case CodeInt:
		return "int"
	case CodeUInt:
		return "uint"
	case CodeFloat:
		return "float"
	default:
		return fmt.Sprintf("code(%d)", uint8(c))
	}
}

// MaxLanes is the widest vector the descriptor admits.
const MaxLanes = 16

// DataType is an immutable {code, bits, lanes} triple.
// Lanes == 1 is a scalar.
type DataType struct {
	Code  Code
	Bits  uint8
	Lanes uint16
}

// Void returns the void type.
func Void() DataType { return DataType{Code: CodeVoid, Lanes: 1} }

// Handle returns the 64-bit opaque pointer type.
func Handle() DataType { return DataType{Code: CodeHandle, Bits: 64, Lanes: 1} }

// Bool returns the boolean type with the given lane count.
func Bool(lanes int) DataType { return make3(CodeBool, 1, lanes) }

// Int returns a signed integer type.
func Int(bits, lanes int) DataType { return make3(CodeInt, bits, lanes) }

// UInt returns an unsigned integer type.
func UInt(bits, lanes int) DataType { return make3(CodeUInt, bits, lanes) }

// Float returns a floating point type.
func Float(bits, lanes int) DataType { return make3(CodeFloat, bits, lanes) }

// Int32 is the default index type of TIR.
func Int32() DataType { return Int(32, 1) }

// Int64 is the type of packed-call argument bounds.
func Int64() DataType { return Int(64, 1) }

// Float32 is the default floating point type.
func Float32() DataType { return Float(32, 1) }

func make3(code Code, bits, lanes int) DataType {
	b, err := safecast.Conv[uint8](bits)
	if err != nil {
		panic(fmt.Errorf("dtype bits %d: %w", bits, err))
	}
	l, err := safecast.Conv[uint16](lanes)
	if err != nil {
		panic(fmt.Errorf("dtype lanes %d: %w", lanes, err))
	}
	return DataType{Code: code, Bits: b, Lanes: l}
}

// IsVoid reports whether t is void.
func (t DataType) IsVoid() bool { return t.Code == CodeVoid }

// IsHandle reports whether t is an opaque pointer.
func (t DataType) IsHandle() bool { return t.Code == CodeHandle }

// IsBool reports whether t is the scalar boolean.
func (t DataType) IsBool() bool { return t.Code == CodeBool && t.Bits == 1 && t.Lanes == 1 }

// IsFloat reports whether t is a float type of any width.
func (t DataType) IsFloat() bool { return t.Code == CodeFloat }

// IsInt reports whether t is a signed integer type.
func (t DataType) IsInt() bool { return t.Code == CodeInt }

// IsUInt reports whether t is an unsigned integer type.
func (t DataType) IsUInt() bool { return t.Code == CodeUInt }

// IsScalar reports whether t has a single lane.
func (t DataType) IsScalar() bool { return t.Lanes == 1 }

// IsZero reports whether t is the zero value, used as "not set".
func (t DataType) IsZero() bool { return t == DataType{} }

// Element returns the scalar type of a vector.
func (t DataType) Element() DataType {
	t.Lanes = 1
	return t
}

// WithLanes returns t with a new lane count.
func (t DataType) WithLanes(lanes int) DataType {
	return make3(t.Code, int(t.Bits), lanes)
}

// Bytes returns the storage size of one lane, rounded up to whole bytes.
func (t DataType) Bytes() int {
	return (int(t.Bits) + 7) / 8
}

// String renders the canonical spelling, for example "float32", "int32x4",
// "bool" or "handle".
func (t DataType) String() string {
	switch t.Code {
	case CodeVoid:
		return "void"
	case CodeHandle:
		if t.Lanes > 1 {
			return "handlex" + strconv.Itoa(int(t.Lanes))
		}
		return "handle"
	}
	var sb strings.Builder
	sb.WriteString(t.Code.String())
	if t.Code != CodeBool || t.Bits != 1 {
		sb.WriteString(strconv.Itoa(int(t.Bits)))
	}
	if t.Lanes != 1 {
		sb.WriteByte('x')
		sb.WriteString(strconv.Itoa(int(t.Lanes)))
	}
	return sb.String()
}

// Parse reads the spelling produced by String.
func Parse(s string) (DataType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DataType{}, fmt.Errorf("empty data type")
	}
	base, lanesText, hasLanes := strings.Cut(s, "x")
	lanes := 1
	if hasLanes {
		n, err := strconv.Atoi(lanesText)
		if err != nil || n <= 0 {
			return DataType{}, fmt.Errorf("invalid lane count in %q", s)
		}
		lanes = n
	}
	if _, err := safecast.Conv[uint16](lanes); err != nil {
		return DataType{}, fmt.Errorf("lane count in %q: %w", s, err)
	}

	switch base {
	case "void":
		if hasLanes {
			return DataType{}, fmt.Errorf("void cannot have lanes: %q", s)
		}
		return Void(), nil
	case "handle":
		return Handle().WithLanes(lanes), nil
	case "bool":
		return Bool(lanes), nil
	}

	var (
		code   Code
		digits string
	)
	switch {
	case strings.HasPrefix(base, "bool"):
		code, digits = CodeBool, strings.TrimPrefix(base, "bool")
	case strings.HasPrefix(base, "uint"):
		code, digits = CodeUInt, strings.TrimPrefix(base, "uint")
	case strings.HasPrefix(base, "int"):
		code, digits = CodeInt, strings.TrimPrefix(base, "int")
	case strings.HasPrefix(base, "float"):
		code, digits = CodeFloat, strings.TrimPrefix(base, "float")
	default:
		return DataType{}, fmt.Errorf("unknown data type %q", s)
	}
	bits, err := strconv.Atoi(digits)
	if err != nil || bits <= 0 {
		return DataType{}, fmt.Errorf("invalid bit width in %q", s)
	}
	if _, err := safecast.Conv[uint8](bits); err != nil {
		return DataType{}, fmt.Errorf("bit width in %q: %w", s, err)
	}
	return make3(code, bits, lanes), nil
}
