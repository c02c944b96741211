package indexing

import (
	"strings"

	"mit.edu/dsg/qexec/common"
)

// Key represents a search key in an ordered index: the row projected onto the index's key columns.
// A Key may be shorter than the index key, in which case it addresses every entry sharing that prefix.
type Key []common.Value

// NilKey represents an open bound (Infinity) in range scans.
var NilKey Key

// IsNil checks if the key is the NilKey (sentinel value).
func (k Key) IsNil() bool {
	return k == nil
}

// Compare compares this key with another key over their common prefix, orienting each column by dirs
// (ascending where dirs is shorter). Returns -1, 0 or +1 in index order.
func (k Key) Compare(other Key, dirs []common.Direction) int {
	n := min(len(k), len(other))
	for i := 0; i < n; i++ {
		d := common.Ascending
		if i < len(dirs) {
			d = dirs[i]
		}
		if cmp := d.Apply(k[i].Compare(other[i])); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// HasNull reports whether any key column is NULL or unavailable. Such keys never match in an equality join.
func (k Key) HasNull() bool {
	for _, v := range k {
		if v.IsNull() {
			return true
		}
	}
	return false
}

// DeepCopy creates a copy of the key that does not reference any row buffer.
func (k Key) DeepCopy() Key {
	if k.IsNil() {
		return NilKey
	}
	out := make(Key, len(k))
	for i, v := range k {
		out[i] = v.Copy()
	}
	return out
}

func (k Key) String() string {
	if k.IsNil() {
		return "<nil>"
	}
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Bound is one end of a Range. A bound with a nil key is open.
type Bound struct {
	Key       Key
	Exclusive bool
}

// IsUnbounded reports whether the bound is open.
func (b Bound) IsUnbounded() bool {
	return b.Key.IsNil()
}

type ScanDirection int

const (
	ScanDirectionForward ScanDirection = iota
	ScanDirectionBackward
)

// Range is a contiguous interval of an index, expressed in index order (Low <= High). Direction selects
// whether a scan of the range starts at Low or at High.
type Range struct {
	Low       Bound
	High      Bound
	Direction ScanDirection
}

// FullRange covers the whole index in forward order.
var FullRange = Range{}

// PointRange covers every entry whose key starts with k.
func PointRange(k Key) Range {
	return Range{Low: Bound{Key: k}, High: Bound{Key: k}}
}

// Contains reports whether key lies within the range.
func (r Range) Contains(key Key, dirs []common.Direction) bool {
	if !r.Low.IsUnbounded() {
		cmp := key.Compare(r.Low.Key, dirs)
		if cmp < 0 || (cmp == 0 && r.Low.Exclusive) {
			return false
		}
	}
	if !r.High.IsUnbounded() {
		cmp := key.Compare(r.High.Key, dirs)
		if cmp > 0 || (cmp == 0 && r.High.Exclusive) {
			return false
		}
	}
	return true
}

// Intersect narrows r by other. The direction of r is kept.
func (r Range) Intersect(other Range, dirs []common.Direction) Range {
	return Range{
		Low:       tighterBound(r.Low, other.Low, dirs, 1),
		High:      tighterBound(r.High, other.High, dirs, -1),
		Direction: r.Direction,
	}
}

// tighterBound picks the more restrictive of two bounds. sign is +1 for low bounds (larger wins) and -1 for
// high bounds (smaller wins).
func tighterBound(a, b Bound, dirs []common.Direction, sign int) Bound {
	if a.IsUnbounded() {
		return b
	}
	if b.IsUnbounded() {
		return a
	}
	cmp := a.Key.Compare(b.Key, dirs) * sign
	if cmp > 0 {
		return a
	}
	if cmp < 0 {
		return b
	}
	if len(a.Key) == len(b.Key) {
		return Bound{Key: a.Key, Exclusive: a.Exclusive || b.Exclusive}
	}
	// Equal on the shared prefix. An exclusive shorter bound excludes the whole prefix group, otherwise the
	// longer key is the more specific one.
	shorter, longer := a, b
	if len(a.Key) > len(b.Key) {
		shorter, longer = b, a
	}
	if shorter.Exclusive {
		return shorter
	}
	return longer
}
