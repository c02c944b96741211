package planner

import (
	"fmt"

	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
)

// IndexScanNode represents a forward scan of a table through one of its indexes. The rows arrive in index
// order, and the node exposes the index as its ordered source.
type IndexScanNode struct {
	TableOid common.ObjectID
	IndexOid common.ObjectID
	name     string
	header   Header
}

func NewIndexScanNode(table *catalog.Table, idx *catalog.Index) *IndexScanNode {
	return &IndexScanNode{
		TableOid: table.Oid,
		IndexOid: idx.Oid,
		name:     idx.Name,
		header:   HeaderFromTable(table, idx),
	}
}

// NewPrimaryScanNode scans table through its primary index.
func NewPrimaryScanNode(table *catalog.Table) (*IndexScanNode, error) {
	idx, err := table.PrimaryIndex()
	if err != nil {
		return nil, err
	}
	return NewIndexScanNode(table, idx), nil
}

func (n *IndexScanNode) Kind() NodeKind {
	return KindIndexScan
}

func (n *IndexScanNode) Header() Header {
	return n.header
}

func (n *IndexScanNode) OutputSchema() []common.Type {
	return n.header.Types()
}

func (n *IndexScanNode) Children() []PlanNode {
	return nil
}

func (n *IndexScanNode) String() string {
	return fmt.Sprintf("IndexScan: %s (IndexOID(%d) on TableOID(%d))", n.name, n.IndexOid, n.TableOid)
}
