package indexing

import (
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/storage"
)

// IndexMetadata describes the structure of an ordered source: the layout of the rows it yields and which of
// their columns form the key.
type IndexMetadata struct {
	// Schema describes the types of the row columns.
	Schema []common.Type
	// KeyColumns maps the index key field index to the row column index.
	// Entry i in KeyColumns means: "The i-th field in the Index Key corresponds to the row column at index KeyColumns[i]".
	KeyColumns []int
	// Directions holds the sort direction of each key field. Missing entries are ascending.
	Directions []common.Direction
}

// KeyOf projects a row onto the key columns.
func (md *IndexMetadata) KeyOf(t storage.Tuple) Key {
	key := make(Key, len(md.KeyColumns))
	for i, col := range md.KeyColumns {
		key[i] = t.GetValue(col)
	}
	return key
}

// KeyTypes returns the types of the key fields.
func (md *IndexMetadata) KeyTypes() []common.Type {
	types := make([]common.Type, len(md.KeyColumns))
	for i, col := range md.KeyColumns {
		types[i] = md.Schema[col]
	}
	return types
}

// Direction returns the direction of the i-th key field.
func (md *IndexMetadata) Direction(i int) common.Direction {
	if i < len(md.Directions) {
		return md.Directions[i]
	}
	return common.Ascending
}

type SeekResultType int

const (
	// SeekNone means no entry at or after the sought key exists.
	SeekNone SeekResultType = iota
	// SeekNearest means the cursor landed on the first entry after the sought key.
	SeekNearest
	// SeekExact means an entry with the sought key exists.
	SeekExact
)

func (t SeekResultType) String() string {
	switch t {
	case SeekNone:
		return "None"
	case SeekNearest:
		return "Nearest"
	case SeekExact:
		return "Exact"
	}
	return "Unknown"
}

// SeekResult is the outcome of a Seek. Tuple is nil for SeekNone.
type SeekResult struct {
	Type  SeekResultType
	Tuple storage.Tuple
}

// OrderedSource is the ordered-range access capability: a source whose rows are kept in key order and that
// supports seeking and range scans over that order. It is implemented by physical indexes and by every
// execution node that can preserve such access through its own transformation.
type OrderedSource interface {
	// Metadata returns the row layout and key description of the source.
	Metadata() *IndexMetadata

	// Seek positions on the first entry whose key is >= key in index order, comparing on the prefix given.
	Seek(key Key) (SeekResult, error)

	// GetRange returns an iterator over the rows of r, in r.Direction.
	// Forward Scan:
	//  - Starts at the first entry inside Low (or the beginning of the index if Low is open).
	//  - Stops after the last entry inside High.
	// Backward Scan:
	//  - Starts at the last entry inside High (or the end of the index if High is open).
	//  - Stops after the first entry inside Low.
	GetRange(r Range) (TupleIterator, error)

	// GetKeys is GetRange projected onto the key fields.
	GetKeys(r Range) (KeyIterator, error)
}

// Counter reports the number of rows of a source.
type Counter interface {
	Count() (int, error)
}

// ReaderFactory creates rewindable cursors over a range.
type ReaderFactory interface {
	CreateReader(r Range) (Reader, error)
}

// TupleIterator iterates over the results of a range scan.
// It follows the standard Iterator pattern (Next -> Current -> Close).
type TupleIterator interface {
	// Next advances the iterator to the next entry.
	// Returns true if an entry exists, false if the scan is exhausted or failed.
	Next() bool

	// Current returns the row at the cursor.
	Current() storage.Tuple

	// Error returns the first unexpected error encountered by the iterator.
	Error() error

	// Close releases any resources held by the iterator.
	Close() error
}

// KeyIterator iterates over the keys of a range scan.
type KeyIterator interface {
	Next() bool
	Key() Key
	Error() error
	Close() error
}

// Reader is a TupleIterator that can be restarted from the beginning of its range.
type Reader interface {
	TupleIterator
	Rewind() error
}

// SeekFirst implements Seek on top of a range scan: it opens the range starting at key and classifies the
// first row found. Sources that cannot position a cursor directly use it.
func SeekFirst(src OrderedSource, key Key) (SeekResult, error) {
	it, err := src.GetRange(Range{Low: Bound{Key: key}})
	if err != nil {
		return SeekResult{}, err
	}
	defer it.Close()
	if !it.Next() {
		return SeekResult{Type: SeekNone}, it.Error()
	}
	return Classify(src.Metadata(), it.Current(), key), nil
}

// Classify builds the SeekResult of a seek for key that landed on row t.
func Classify(md *IndexMetadata, t storage.Tuple, key Key) SeekResult {
	if md.KeyOf(t).Compare(key, md.Directions) == 0 {
		return SeekResult{Type: SeekExact, Tuple: t}
	}
	return SeekResult{Type: SeekNearest, Tuple: t}
}

// KeysOf adapts a row iterator into a key iterator over md's key columns.
func KeysOf(it TupleIterator, md *IndexMetadata) KeyIterator {
	return &keyIterator{TupleIterator: it, md: md}
}

type keyIterator struct {
	TupleIterator
	md *IndexMetadata
}

func (it *keyIterator) Key() Key {
	return it.md.KeyOf(it.Current())
}

// SliceIterator iterates over an in-memory list of rows. It is rewindable.
type SliceIterator struct {
	rows []storage.Tuple
	pos  int
}

// NewSliceIterator creates an iterator over rows. The slice is not copied.
func NewSliceIterator(rows []storage.Tuple) *SliceIterator {
	return &SliceIterator{rows: rows, pos: -1}
}

func (it *SliceIterator) Next() bool {
	if it.pos < len(it.rows) {
		it.pos++
	}
	return it.pos < len(it.rows)
}

func (it *SliceIterator) Current() storage.Tuple {
	return it.rows[it.pos]
}

func (it *SliceIterator) Error() error {
	return nil
}

func (it *SliceIterator) Close() error {
	return nil
}

func (it *SliceIterator) Rewind() error {
	it.pos = -1
	return nil
}
