package qexec

import (
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	// Imports all sub-components
	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/execution"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// Engine is the top-level container for the query execution layer.
type Engine struct {
	Catalog      *catalog.Catalog
	IndexManager *indexing.IndexManager
	Binder       *execution.Binder
	Config       execution.Config
}

// NewEngine wires an engine over c. reg and logger may be nil.
func NewEngine(c *catalog.Catalog, cfg execution.Config, reg prometheus.Registerer, logger log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	indexManager, err := indexing.NewIndexManager(c)
	if err != nil {
		return nil, err
	}
	return &Engine{
		Catalog:      c,
		IndexManager: indexManager,
		Binder:       execution.NewBinder(indexManager, cfg, execution.NewMetrics(reg), logger),
		Config:       cfg,
	}, nil
}

// Sync creates the storage of indexes added to the catalog since the engine was created.
func (e *Engine) Sync() error {
	return e.IndexManager.Sync()
}

// Insert stores a row in every index of table.
func (e *Engine) Insert(table string, values ...common.Value) error {
	return e.IndexManager.InsertTuple(table, storage.FromValues(values...))
}

// Delete removes one row equal to values from every index of table.
func (e *Engine) Delete(table string, values ...common.Value) (bool, error) {
	return e.IndexManager.DeleteTuple(table, storage.FromValues(values...))
}

// Scan plans a scan of table through its primary index.
func (e *Engine) Scan(table string) (*planner.IndexScanNode, error) {
	t, err := e.Catalog.GetTableMetadata(table)
	if err != nil {
		return nil, err
	}
	return planner.NewPrimaryScanNode(t)
}

// ScanType plans the virtual index of one type of a hierarchy: its rows and those of all its descendants.
func (e *Engine) ScanType(hierarchy, typeName string) (planner.PlanNode, error) {
	h, err := e.Catalog.GetHierarchy(hierarchy)
	if err != nil {
		return nil, err
	}
	return planner.HierarchyScan(e.Catalog, h, typeName)
}

// Query binds plan and runs one pass of it with the given parameters.
func (e *Engine) Query(plan planner.PlanNode, params map[string]common.Value) ([]storage.Tuple, error) {
	exec, err := e.Binder.Bind(plan)
	if err != nil {
		return nil, err
	}
	return execution.Drain(execution.NewExecutorContext(params), exec)
}
