package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"mit.edu/dsg/qexec/common"
)

// Catalog describes the physical tables the execution layer reads from, the ordered indexes over them, and the
// type hierarchies mapped onto those tables. For simplicity, the catalog is serialized as a single JSON blob
// and treated as immutable while queries run: plans bound against it keep pointers into it.
type Catalog struct {
	catalogState

	// In-memory structures for fast lookups
	tableMap     map[string]*Table
	tableOidMap  map[common.ObjectID]*Table
	columnMap    map[string][]*Table
	hierarchyMap map[string]*Hierarchy
}

// Column represents the basic unit of a table schema.
type Column struct {
	Name string      `json:"name"`
	Type common.Type `json:"type"`
}

// ColumnRef is a back-reference from an execution column to the physical column it was read from.
// Virtual indexes use the column name to align per-subtype tables that store the same logical field.
type ColumnRef struct {
	TableOid common.ObjectID
	Table    string
	Column   string
}

func (r ColumnRef) String() string {
	return fmt.Sprintf("%s.%s", r.Table, r.Column)
}

// Index describes an ordered access path over a table. Rows of the table are kept in KeySchema order, each
// key column sorted in the matching entry of Directions (ascending when Directions is shorter).
type Index struct {
	Oid        common.ObjectID    `json:"oid"`
	TableOid   common.ObjectID    `json:"table_oid"`
	Name       string             `json:"name"`
	Type       string             `json:"type"`       // only "btree" is supported
	KeySchema  []string           `json:"key_schema"` // List of column names
	Directions []common.Direction `json:"directions,omitempty"`
}

// Direction returns the sort direction of the i-th key column.
func (idx *Index) Direction(i int) common.Direction {
	if i < len(idx.Directions) {
		return idx.Directions[i]
	}
	return common.Ascending
}

// Table is the primary metadata structure. It groups columns and their
// associated indexes under a unique ObjectID.
type Table struct {
	Oid     common.ObjectID `json:"oid"`
	Name    string          `json:"name"`
	Columns []Column        `json:"columns"`
	Indexes []Index         `json:"indexes"`
}

func (t *Table) String() string {
	b, _ := json.MarshalIndent(t, "", "  ")
	return string(b)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// PrimaryIndex returns the first index declared on the table. Tables participating in a hierarchy are
// required to have one, and it must be keyed identically across the hierarchy.
func (t *Table) PrimaryIndex() (*Index, error) {
	if len(t.Indexes) == 0 {
		return nil, common.NewError(common.NoSuchObjectError, "table '%s' has no index", t.Name)
	}
	return &t.Indexes[0], nil
}

// PersistenceProvider abstracts how the catalog is saved to and loaded from disk.
type PersistenceProvider interface {
	LoadCatalogState() (json string, err error)
	SaveCatalogState(json string) error
}

type catalogState struct {
	NextId      uint32       `json:"next_id"`
	Tables      []*Table     `json:"tables"`
	Hierarchies []*Hierarchy `json:"hierarchies"`
}

func (c *Catalog) String() string {
	b, _ := json.MarshalIndent(c, "", "  ")
	return string(b)
}

func (c *Catalog) toJSON() (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Catalog) fromJSON(jsonData string) error {
	if err := json.Unmarshal([]byte(jsonData), c); err != nil {
		return err
	}
	for _, t := range c.Tables {
		c.indexTable(t)
	}
	for _, h := range c.Hierarchies {
		c.hierarchyMap[h.Name] = h
	}
	return nil
}

func (c *Catalog) indexTable(t *Table) {
	c.tableMap[t.Name] = t
	c.tableOidMap[t.Oid] = t
	for _, f := range t.Columns {
		c.columnMap[f.Name] = append(c.columnMap[f.Name], t)
	}
}

func (c *Catalog) save(provider PersistenceProvider) error {
	jsonData, err := c.toJSON()
	if err != nil {
		return err
	}
	return provider.SaveCatalogState(jsonData)
}

// NewCatalog initializes a catalog. It attempts to load existing state
// from the provider; if no state exists, it starts with an empty database.
func NewCatalog(provider PersistenceProvider) (*Catalog, error) {
	result := &Catalog{
		catalogState: catalogState{
			Tables:      make([]*Table, 0),
			Hierarchies: make([]*Hierarchy, 0),
		},
		tableMap:     make(map[string]*Table),
		tableOidMap:  make(map[common.ObjectID]*Table),
		columnMap:    make(map[string][]*Table),
		hierarchyMap: make(map[string]*Hierarchy),
	}

	jsonData, err := provider.LoadCatalogState()
	if errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if err = result.fromJSON(jsonData); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog state")
	}
	return result, nil
}

// AddTable registers a new table in the catalog.
// It assigns a globally unique ObjectID to the table and persists the updated state. If the table with that name
// already exists, it returns DuplicateObjectError.
func (c *Catalog) AddTable(tableName string, columns []Column, provider PersistenceProvider) (*Table, error) {
	if _, exists := c.tableMap[tableName]; exists {
		return nil, common.NewError(common.DuplicateObjectError, "table '%s' already exists", tableName)
	}

	// oid 0 is reserved for INVALID
	c.NextId++
	t := &Table{
		Oid:     common.ObjectID(c.NextId),
		Name:    tableName,
		Columns: columns,
		Indexes: make([]Index, 0),
	}

	c.Tables = append(c.Tables, t)
	c.indexTable(t)
	return t, c.save(provider)
}

// GetTableMetadata fetches the schema for a specific table name.
func (c *Catalog) GetTableMetadata(tableName string) (*Table, error) {
	table, exists := c.tableMap[tableName]
	if !exists {
		return nil, common.NewError(common.NoSuchObjectError, "table '%s' does not exist", tableName)
	}
	return table, nil
}

// GetTableByOid fetches the schema for a table object id.
func (c *Catalog) GetTableByOid(oid common.ObjectID) (*Table, error) {
	table, exists := c.tableOidMap[oid]
	if !exists {
		return nil, common.NewError(common.NoSuchObjectError, "table oid %d does not exist", oid)
	}
	return table, nil
}

// FindTablesWithColumnName returns all tables that contain a column with the given name.
func (c *Catalog) FindTablesWithColumnName(columnName string) []*Table {
	return c.columnMap[columnName]
}

// AddIndex attaches a new ordered index definition to a table. If an index with that name
// already exists, it returns DuplicateObjectError.
func (c *Catalog) AddIndex(indexName string, tableName string, indexType string, columnNames []string, directions []common.Direction, provider PersistenceProvider) (*Index, error) {
	table, err := c.GetTableMetadata(tableName)
	if err != nil {
		return nil, err
	}
	if indexType != "btree" {
		return nil, common.NewError(common.InvalidPlanError, "unsupported index type '%s' for index '%s'", indexType, indexName)
	}
	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			return nil, common.NewError(common.DuplicateObjectError, "index '%s' already exists on table '%s'", indexName, tableName)
		}
	}
	if len(columnNames) == 0 {
		return nil, common.NewError(common.InvalidPlanError, "index '%s' has no key columns", indexName)
	}
	for _, colName := range columnNames {
		if table.ColumnIndex(colName) < 0 {
			return nil, common.NewError(common.NoSuchObjectError, "column '%s' does not exist in table '%s'", colName, tableName)
		}
	}

	c.NextId++
	idx := Index{
		Oid:        common.ObjectID(c.NextId),
		TableOid:   table.Oid,
		Name:       indexName,
		Type:       indexType,
		KeySchema:  columnNames,
		Directions: directions,
	}
	table.Indexes = append(table.Indexes, idx)
	return &idx, c.save(provider)
}

const CatalogFileName = "catalog.json"

type DiskCatalogManager struct {
	rootPath string
}

func NewDiskCatalogManager(rootPath string) *DiskCatalogManager {
	return &DiskCatalogManager{
		rootPath: rootPath,
	}
}

// LoadCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) LoadCatalogState() (string, error) {
	path := filepath.Join(dcm.rootPath, CatalogFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err // Let the caller (Catalog) handle os.ErrNotExist
	}
	return string(content), nil
}

// SaveCatalogState implements the catalog.PersistenceProvider interface.
func (dcm *DiskCatalogManager) SaveCatalogState(jsonData string) error {
	// atomic write through a temporary file
	tmpPath := filepath.Join(dcm.rootPath, CatalogFileName+".tmp")
	finalPath := filepath.Join(dcm.rootPath, CatalogFileName)

	if err := os.WriteFile(tmpPath, []byte(jsonData), 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

// MemCatalogManager keeps catalog state in memory. Useful for tests and for engines built from code.
type MemCatalogManager struct {
	state string
}

func (m *MemCatalogManager) LoadCatalogState() (string, error) {
	if m.state == "" {
		return "", os.ErrNotExist
	}
	return m.state, nil
}

func (m *MemCatalogManager) SaveCatalogState(jsonData string) error {
	m.state = jsonData
	return nil
}
