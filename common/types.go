package common

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

const (
	IntSize      int = 8
	StringLength int = 32
	// MaxRawTupleSize bounds the physical layout of a single stored row.
	MaxRawTupleSize int = 4064
)

type Type int8

const (
	// For unavailable Values
	DefaultType Type = iota
	IntType
	StringType
)

// Size returns the fixed-width storage size of the type in bytes
func (t Type) Size() int {
	switch t {
	case IntType:
		return IntSize
	case StringType:
		return StringLength
	default:
		panic("unknown type")
	}
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// ObjectID is a unique identifier for a table/index/etc. in the database.
type ObjectID uint32

const InvalidObjectID ObjectID = 0

// Direction is the sort direction of a single ordering column.
type Direction int8

const (
	Ascending Direction = iota
	Descending
)

// Apply orients the result of an ascending comparison according to the direction.
func (d Direction) Apply(cmp int) int {
	if d == Descending {
		return -cmp
	}
	return cmp
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Value represents a (deserialized) data item in a tuple.
//
// A Value is in one of three states:
//   - unavailable: the zero Value. The field was never produced, e.g. the right side of an unmatched
//     left outer join row or an extension table a row's subtype does not own.
//   - NULL: available, typed, but without content.
//   - a regular int or string value.
//
// In storage, math.MinInt64 represents a NULL int and a 0xFF first byte represents a NULL string.
type Value struct {
	t                Type
	safeString       bool
	null             bool
	underlyingInt    int64
	underlyingString string
}

// AsValue extracts a value from a raw storage buffer.
//
// SAFETY WARNING: For StringType, this function performs a ZERO-COPY read.
// The resulting Value holds a pointer to the provided `source` slice.
// You must call .Copy() if the Value needs to outlive the buffer.
func AsValue(t Type, source []byte) Value {
	val := Value{t: t}
	switch t {
	case IntType:
		val.underlyingInt = int64(binary.LittleEndian.Uint64(source))
		if val.underlyingInt == math.MinInt64 {
			val.null = true
		}
	case StringType:
		if source[0] == 0xFF {
			val.null = true
			val.safeString = true
		} else {
			Assert(len(source) >= StringLength, "string too short")
			realLen := StringLength
			for i := 0; i < StringLength; i++ {
				if source[i] == 0 {
					realLen = i
					break
				}
			}
			if realLen == 0 {
				val.underlyingString = ""
				val.safeString = true
			} else {
				val.underlyingString = unsafe.String(&source[0], realLen)
				val.safeString = false
			}
		}
	}
	return val
}

// Unavailable returns a Value that has not been produced.
func Unavailable() Value {
	return Value{}
}

// IsAvailable returns false for values that were never produced. This is NOT to be confused with NULL values,
// which are available.
func (v Value) IsAvailable() bool {
	return v.t != DefaultType
}

// Copy returns a safe, heap-allocated copy of the value. It decouples the value from the underlying byte buffer.
func (v Value) Copy() Value {
	if v.t == StringType && !v.null && !v.safeString {
		return Value{
			t:                StringType,
			underlyingString: string([]byte(v.underlyingString)),
			safeString:       true,
		}
	}
	return v
}

// NewIntValue creates a new integer Value.
func NewIntValue(v int64) Value {
	return Value{
		t:             IntType,
		underlyingInt: v,
	}
}

// NewStringValue creates a new string Value. Strings longer than StringLength can flow through
// operators but cannot be written to a physical row.
func NewStringValue(v string) Value {
	return Value{
		t:                StringType,
		underlyingString: v,
		safeString:       true,
	}
}

// NewNullInt creates a NULL integer Value.
func NewNullInt() Value {
	return Value{
		t:    IntType,
		null: true,
	}
}

// NewNullString creates a NULL string Value.
func NewNullString() Value {
	return Value{
		t:          StringType,
		null:       true,
		safeString: true,
	}
}

// Type returns the type of the Value. Unavailable values report DefaultType.
func (v Value) Type() Type {
	return v.t
}

// IsNull returns true if the Value is NULL or unavailable.
func (v Value) IsNull() bool {
	return v.null || v.t == DefaultType
}

// IntValue returns the underlying (non-NULL) integer.
func (v Value) IntValue() int64 {
	Assert(v.t == IntType, "type mismatch in IntValue")
	Assert(!v.null, "accessing value of NULL int")
	return v.underlyingInt
}

// StringValue returns the underlying (non-NULL) string.
func (v Value) StringValue() string {
	Assert(v.t == StringType, "type mismatch in StringValue")
	Assert(!v.null, "accessing value of NULL string")
	return v.underlyingString
}

// SizeInBytes returns the serialization size (fixed width).
func (v Value) SizeInBytes() int {
	return v.t.Size()
}

// WriteTo serializes the Value into storage format.
func (v Value) WriteTo(data []byte) {
	Assert(v.t != DefaultType, "cannot serialize an unavailable value")
	Assert(len(data) >= v.SizeInBytes(), "buffer too small")

	if v.null {
		switch v.t {
		case IntType:
			binary.LittleEndian.PutUint64(data, 0x8000000000000000)
		case StringType:
			data[0] = 0xFF
			for i := 1; i < StringLength; i++ {
				data[i] = 0
			}
		}
		return
	}

	switch v.t {
	case IntType:
		binary.LittleEndian.PutUint64(data, uint64(v.underlyingInt))
	case StringType:
		Assert(len(v.underlyingString) <= StringLength, "string too long for physical storage")
		n := copy(data, v.underlyingString)
		for i := n; i < StringLength; i++ {
			data[i] = 0
		}
	}
}

// Compare compares two Values.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// Unavailable sorts before NULL, and NULL sorts before every non-NULL value.
func (v Value) Compare(other Value) int {
	if v.t == DefaultType || other.t == DefaultType {
		switch {
		case v.t == other.t:
			return 0
		case v.t == DefaultType:
			return -1
		default:
			return 1
		}
	}
	Assert(v.t == other.t, "type mismatch in comparison")

	if v.null && other.null {
		return 0
	}
	if v.null {
		return -1
	}
	if other.null {
		return 1
	}

	switch v.t {
	case IntType:
		if v.underlyingInt < other.underlyingInt {
			return -1
		}
		if v.underlyingInt > other.underlyingInt {
			return 1
		}
		return 0
	case StringType:
		if v.underlyingString < other.underlyingString {
			return -1
		}
		if v.underlyingString > other.underlyingString {
			return 1
		}
		return 0
	}
	panic("unreachable")
}

func (v Value) String() string {
	switch {
	case v.t == DefaultType:
		return "∅"
	case v.null:
		return "NULL"
	case v.t == IntType:
		return fmt.Sprintf("%d", v.underlyingInt)
	default:
		return fmt.Sprintf("%q", v.underlyingString)
	}
}
