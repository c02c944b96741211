package storage

import (
	"fmt"
	"strings"

	"mit.edu/dsg/qexec/common"
)

// RawTuple represents the "Physical View" of a row.
// It is simply a compact slice of bytes corresponding to the layout of a stored row. It does not know what data it
// contains. You need a RawTupleDesc to read it.
type RawTuple []byte

// RawTupleDesc describes the physical binary layout of a RawTuple.
type RawTupleDesc struct {
	fields      []common.Type
	offsets     []int // Cache of column_id => physical offset of first byte in RawTuple
	bytesPerRow int
}

func (desc *RawTupleDesc) String() string {
	return fmt.Sprintf("%v", desc.fields)
}

// NumColumns returns the number of fields in the physical schema.
func (desc *RawTupleDesc) NumColumns() int {
	return len(desc.fields)
}

// BytesPerTuple returns the fixed size in bytes required to store this tuple.
func (desc *RawTupleDesc) BytesPerTuple() int {
	return desc.bytesPerRow
}

// GetFieldType returns the type of the field at index i.
func (desc *RawTupleDesc) GetFieldType(i int) common.Type {
	return desc.fields[i]
}

func (desc *RawTupleDesc) GetFieldTypes() []common.Type {
	return desc.fields
}

// GetValue deserializes the value at index i from the given physical byte slice.
func (desc *RawTupleDesc) GetValue(t RawTuple, i int) common.Value {
	return common.AsValue(desc.fields[i], t[desc.offsets[i]:])
}

// SetValue serializes the value val into the correct position in the physical byte slice t.
func (desc *RawTupleDesc) SetValue(t RawTuple, i int, val common.Value) {
	common.Assert(val.Type() == desc.fields[i], "type mismatch")
	val.WriteTo(t[desc.offsets[i]:])
}

// NewRawTupleDesc creates a descriptor for the given list of field types.
func NewRawTupleDesc(fields []common.Type) *RawTupleDesc {
	size := 0
	offsetOfField := make([]int, len(fields))
	for i := 0; i < len(fields); i++ {
		offsetOfField[i] = size
		switch fields[i] {
		case common.IntType:
			size += common.IntSize
		case common.StringType:
			size += common.StringLength
		default:
			common.Assert(false, "unknown field type")
		}
	}
	common.Assert(common.AlignedTo8(size), "tuple size should always be aligned to 8 bytes")
	common.Assert(size <= common.MaxRawTupleSize, "tuple size exceeds the physical row limit")
	return &RawTupleDesc{fields, offsetOfField, size}
}

// Tuple represents the "Logical View" of a row: the value exchanged between execution nodes.
//
// A Tuple is immutable once produced. Operators never modify a tuple they received; they build new ones
// with FromValues, Concat, Project or Extend.
//
// A Tuple is either backed by a RawTuple (rows read from a physical table, deserialized lazily on GetValue),
// purely virtual (extraValues only), or a mix of both when virtual columns were appended to a physical row.
type Tuple struct {
	// rawTuple holds the "Physical View" (raw bytes) if this tuple is backed by a stored row.
	rawTuple RawTuple
	rawDesc  *RawTupleDesc

	// extraValues holds columns that are not stored physically, including unavailable fields.
	extraValues []common.Value
}

// FromRawTuple creates a Tuple backed by physically stored bytes (Zero-Copy).
func FromRawTuple(rawTuple RawTuple, desc *RawTupleDesc) Tuple {
	return Tuple{rawTuple: rawTuple, rawDesc: desc}
}

// FromValues creates a purely virtual Tuple from a list of Go values.
func FromValues(values ...common.Value) Tuple {
	if values == nil {
		values = []common.Value{}
	}
	return Tuple{
		extraValues: values,
	}
}

// Unavailable returns a tuple of n fields, none of which is available.
func Unavailable(n int) Tuple {
	return FromValues(make([]common.Value, n)...)
}

// Extend returns a NEW Tuple consisting of the current tuple's fields
// followed by the provided newValues.
func (t Tuple) Extend(newValues []common.Value) Tuple {
	result := t
	result.extraValues = make([]common.Value, 0, len(t.extraValues)+len(newValues))
	result.extraValues = append(result.extraValues, t.extraValues...)
	result.extraValues = append(result.extraValues, newValues...)
	return result
}

// Concat returns a NEW Tuple with the fields of left followed by the fields of right.
func Concat(left Tuple, right Tuple) Tuple {
	return left.Extend(right.Values())
}

// Project returns a NEW Tuple whose i-th field is field columns[i] of t. A negative entry yields an
// unavailable field.
func (t Tuple) Project(columns []int) Tuple {
	values := make([]common.Value, len(columns))
	for i, c := range columns {
		if c >= 0 {
			values[i] = t.GetValue(c)
		}
	}
	return FromValues(values...)
}

// IsNil checks if the tuple is uninitialized.
func (t Tuple) IsNil() bool {
	return t.rawDesc == nil && t.extraValues == nil
}

// WriteToBuffer serializes the entire Tuple (Physical + Virtual fields) into a single byte buffer.
// Every field must be available and match desc.
func (t Tuple) WriteToBuffer(buf []byte, desc *RawTupleDesc) Tuple {
	common.Assert(len(buf) >= desc.BytesPerTuple(), "buffer too small")
	common.Assert(t.NumColumns() == desc.NumColumns(), "tuple descriptor mismatch")

	numPhysicalColumns := 0
	if t.rawDesc != nil {
		numPhysicalColumns = t.rawDesc.NumColumns()
		copy(buf, t.rawTuple)
	}

	for i := numPhysicalColumns; i < desc.NumColumns(); i++ {
		desc.SetValue(buf, i, t.extraValues[i-numPhysicalColumns])
	}
	return FromRawTuple(buf, desc)
}

// NumColumns returns the total number of fields (Physical + Virtual) in the tuple.
func (t Tuple) NumColumns() int {
	if t.rawDesc == nil {
		return len(t.extraValues)
	}
	return len(t.extraValues) + t.rawDesc.NumColumns()
}

// GetValue retrieves the value at index i.
func (t Tuple) GetValue(i int) common.Value {
	physCols := 0
	if t.rawDesc != nil {
		physCols = t.rawDesc.NumColumns()
	}
	if i < physCols {
		return t.rawDesc.GetValue(t.rawTuple, i)
	}
	return t.extraValues[i-physCols]
}

// Values returns all fields of the tuple as a fresh slice.
func (t Tuple) Values() []common.Value {
	values := make([]common.Value, t.NumColumns())
	for i := range values {
		values[i] = t.GetValue(i)
	}
	return values
}

// Copy creates a fully independent virtual copy of the Tuple. It is used when the original buffer might be
// reused (e.g. by a buffering operator holding rows past the producer's next call).
func (t Tuple) Copy() Tuple {
	values := make([]common.Value, t.NumColumns())
	for i := range values {
		values[i] = t.GetValue(i).Copy()
	}
	return FromValues(values...)
}

// Equals reports whether both tuples have the same fields, comparing values (and availability) positionally.
func (t Tuple) Equals(other Tuple) bool {
	if t.NumColumns() != other.NumColumns() {
		return false
	}
	for i := 0; i < t.NumColumns(); i++ {
		a, b := t.GetValue(i), other.GetValue(i)
		if a.Type() != b.Type() || a.Compare(b) != 0 {
			return false
		}
	}
	return true
}

func (t Tuple) String() string {
	parts := make([]string, t.NumColumns())
	for i := range parts {
		parts[i] = t.GetValue(i).String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
