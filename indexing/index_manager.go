package indexing

import (
	"github.com/puzpuzpuz/xsync/v3"
	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/storage"
)

// IndexManager manages the runtime lifecycle of index structures.
// Since schemas are static, we pre-load all indexes at startup. Lookups are safe from concurrent queries.
type IndexManager struct {
	// runtimeIndexes maps index oid -> Actual Index Implementation
	runtimeIndexes *xsync.MapOf[common.ObjectID, *MemBTreeIndex]
	catalog        *catalog.Catalog
}

// NewIndexManager initializes the IndexManager by creating empty runtime index
// structures for every index defined in the Catalog.
func NewIndexManager(c *catalog.Catalog) (*IndexManager, error) {
	im := &IndexManager{
		runtimeIndexes: xsync.NewMapOf[common.ObjectID, *MemBTreeIndex](),
		catalog:        c,
	}
	for _, table := range c.Tables {
		for i := range table.Indexes {
			if err := im.register(table, &table.Indexes[i]); err != nil {
				return nil, err
			}
		}
	}
	return im, nil
}

func (im *IndexManager) register(table *catalog.Table, def *catalog.Index) error {
	if def.Type != "btree" {
		return common.NewError(common.InvalidPlanError, "unsupported index type '%s' for index '%s'", def.Type, def.Name)
	}
	schema := make([]common.Type, len(table.Columns))
	for i, col := range table.Columns {
		schema[i] = col.Type
	}
	keyColumns := make([]int, len(def.KeySchema))
	directions := make([]common.Direction, len(def.KeySchema))
	for i, name := range def.KeySchema {
		col := table.ColumnIndex(name)
		if col < 0 {
			return common.NewError(common.NoSuchObjectError, "column '%s' in index definition does not exist in table '%s'", name, table.Name)
		}
		keyColumns[i] = col
		directions[i] = def.Direction(i)
	}
	im.runtimeIndexes.Store(def.Oid, NewMemBTreeIndex(schema, keyColumns, directions))
	return nil
}

// Sync creates runtime structures for catalog indexes added after the manager was built.
func (im *IndexManager) Sync() error {
	for _, table := range im.catalog.Tables {
		for i := range table.Indexes {
			if _, ok := im.runtimeIndexes.Load(table.Indexes[i].Oid); ok {
				continue
			}
			if err := im.register(table, &table.Indexes[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetIndex retrieves an active index by its oid.
func (im *IndexManager) GetIndex(oid common.ObjectID) (*MemBTreeIndex, error) {
	if idx, exists := im.runtimeIndexes.Load(oid); exists {
		return idx, nil
	}
	return nil, common.NewError(common.NoSuchObjectError, "index %d not found", oid)
}

// InsertTuple adds a row to every index of the named table.
func (im *IndexManager) InsertTuple(tableName string, t storage.Tuple) error {
	table, err := im.catalog.GetTableMetadata(tableName)
	if err != nil {
		return err
	}
	if len(table.Indexes) == 0 {
		return common.NewError(common.NoSuchObjectError, "table '%s' has no index to store rows in", tableName)
	}
	for _, def := range table.Indexes {
		idx, err := im.GetIndex(def.Oid)
		if err != nil {
			return err
		}
		if err := idx.InsertTuple(t); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTuple removes a row from every index of the named table. It reports whether the row was found.
func (im *IndexManager) DeleteTuple(tableName string, t storage.Tuple) (bool, error) {
	table, err := im.catalog.GetTableMetadata(tableName)
	if err != nil {
		return false, err
	}
	found := false
	for _, def := range table.Indexes {
		idx, err := im.GetIndex(def.Oid)
		if err != nil {
			return false, err
		}
		if idx.DeleteTuple(t) {
			found = true
		}
	}
	return found, nil
}

// NumIndexes returns the number of runtime indexes.
func (im *IndexManager) NumIndexes() int {
	return im.runtimeIndexes.Size()
}
