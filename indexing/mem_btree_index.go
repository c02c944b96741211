package indexing

import (
	"math"
	"sync/atomic"

	"github.com/tidwall/btree"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/storage"
)

type btreeItem struct {
	key Key
	seq uint64
	row storage.RawTuple
}

// MemBTreeIndex is a clustered B+-Tree index: it stores whole rows, in their physical layout, sorted by key.
// It is a wrapper around github.com/tidwall/btree, specialized for database Keys and rows.
type MemBTreeIndex struct {
	tree     *btree.BTreeG[btreeItem]
	metadata *IndexMetadata
	rowDesc  *storage.RawTupleDesc
	// nextSeq orders rows with equal keys by insertion. Sequence 0 is reserved for seek pivots.
	nextSeq atomic.Uint64
}

func NewMemBTreeIndex(schema []common.Type, keyColumns []int, directions []common.Direction) *MemBTreeIndex {
	// less function defines the ordering of items in the BTree.
	// Primary order by Key, secondary order by insertion sequence (to support non-unique keys).
	less := func(a, b btreeItem) bool {
		cmp := a.key.Compare(b.key, directions)
		if cmp != 0 {
			return cmp < 0
		}
		return a.seq < b.seq
	}

	return &MemBTreeIndex{
		tree: btree.NewBTreeG(less),
		metadata: &IndexMetadata{
			Schema:     schema,
			KeyColumns: keyColumns,
			Directions: directions,
		},
		rowDesc: storage.NewRawTupleDesc(schema),
	}
}

func (index *MemBTreeIndex) Metadata() *IndexMetadata {
	return index.metadata
}

// InsertTuple stores a copy of t. Every field must be available and match the index schema.
func (index *MemBTreeIndex) InsertTuple(t storage.Tuple) error {
	if t.NumColumns() != index.rowDesc.NumColumns() {
		return common.NewError(common.ColumnOutOfRangeError, "row has %d columns, index expects %d", t.NumColumns(), index.rowDesc.NumColumns())
	}
	for i := 0; i < t.NumColumns(); i++ {
		v := t.GetValue(i)
		if !v.IsAvailable() || v.Type() != index.rowDesc.GetFieldType(i) {
			return common.NewError(common.KeyTypeMismatchError, "column %d of row %v does not match type %v", i, t, index.rowDesc.GetFieldType(i))
		}
	}

	buf := make([]byte, index.rowDesc.BytesPerTuple())
	stored := t.WriteToBuffer(buf, index.rowDesc)
	item := btreeItem{
		key: index.metadata.KeyOf(stored).DeepCopy(),
		seq: index.nextSeq.Add(1),
		row: buf,
	}
	index.tree.Set(item)
	return nil
}

// DeleteTuple removes the first stored row equal to t. It reports whether a row was removed.
func (index *MemBTreeIndex) DeleteTuple(t storage.Tuple) bool {
	key := index.metadata.KeyOf(t)
	var victim btreeItem
	found := false
	index.tree.Ascend(btreeItem{key: key}, func(item btreeItem) bool {
		if item.key.Compare(key, index.metadata.Directions) != 0 {
			return false
		}
		if index.asTuple(item).Equals(t) {
			victim, found = item, true
			return false
		}
		return true
	})
	if found {
		index.tree.Delete(victim)
	}
	return found
}

func (index *MemBTreeIndex) Count() (int, error) {
	return index.tree.Len(), nil
}

func (index *MemBTreeIndex) Seek(key Key) (SeekResult, error) {
	iter := index.tree.Iter()
	defer iter.Release()

	if !iter.Seek(btreeItem{key: key}) {
		return SeekResult{Type: SeekNone}, nil
	}
	return Classify(index.metadata, index.asTuple(iter.Item()), key), nil
}

func (index *MemBTreeIndex) GetRange(r Range) (TupleIterator, error) {
	return index.newIterator(r), nil
}

func (index *MemBTreeIndex) GetKeys(r Range) (KeyIterator, error) {
	return KeysOf(index.newIterator(r), index.metadata), nil
}

func (index *MemBTreeIndex) CreateReader(r Range) (Reader, error) {
	return index.newIterator(r), nil
}

func (index *MemBTreeIndex) newIterator(r Range) *MemBTreeIndexIterator {
	// Use Copy-On-Write for a consistent snapshot iterator
	snapshot := index.tree.Copy()
	return &MemBTreeIndexIterator{
		parent: index,
		iter:   snapshot.Iter(),
		rng:    r,
	}
}

func (index *MemBTreeIndex) asTuple(item btreeItem) storage.Tuple {
	return storage.FromRawTuple(item.row, index.rowDesc)
}

// MemBTreeIndexIterator implements Reader for BTree range scans.
type MemBTreeIndexIterator struct {
	parent  *MemBTreeIndex
	iter    btree.IterG[btreeItem]
	rng     Range
	started bool
	hasMore bool
}

// position moves the cursor to the first entry of the scan, ignoring the far bound.
func (it *MemBTreeIndexIterator) position() bool {
	if it.rng.Direction == ScanDirectionForward {
		low := it.rng.Low
		if low.IsUnbounded() {
			return it.iter.First()
		}
		if low.Exclusive {
			// skip every entry sharing the bound's prefix
			return it.iter.Seek(btreeItem{key: low.Key, seq: math.MaxUint64})
		}
		return it.iter.Seek(btreeItem{key: low.Key, seq: 0})
	}

	high := it.rng.High
	if high.IsUnbounded() {
		return it.iter.Last()
	}
	pivot := btreeItem{key: high.Key, seq: math.MaxUint64}
	if high.Exclusive {
		pivot.seq = 0
	}
	if !it.iter.Seek(pivot) {
		// We went past the end, so everything in the tree precedes the pivot (or tree is empty)
		return it.iter.Last()
	}
	// We landed on the first item after the bound; step back into it.
	return it.iter.Prev()
}

func (it *MemBTreeIndexIterator) Next() bool {
	if !it.started {
		it.started = true
		it.hasMore = it.position()
	} else if it.hasMore {
		if it.rng.Direction == ScanDirectionForward {
			it.hasMore = it.iter.Next()
		} else {
			it.hasMore = it.iter.Prev()
		}
	}
	if it.hasMore && !it.withinFarBound(it.iter.Item().key) {
		it.hasMore = false
	}
	return it.hasMore
}

func (it *MemBTreeIndexIterator) withinFarBound(key Key) bool {
	dirs := it.parent.metadata.Directions
	if it.rng.Direction == ScanDirectionForward {
		return Range{High: it.rng.High}.Contains(key, dirs)
	}
	return Range{Low: it.rng.Low}.Contains(key, dirs)
}

func (it *MemBTreeIndexIterator) Current() storage.Tuple {
	return it.parent.asTuple(it.iter.Item())
}

func (it *MemBTreeIndexIterator) Error() error {
	return nil
}

func (it *MemBTreeIndexIterator) Rewind() error {
	it.started = false
	it.hasMore = false
	return nil
}

func (it *MemBTreeIndexIterator) Close() error {
	it.iter.Release()
	return nil
}
