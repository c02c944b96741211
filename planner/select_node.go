package planner

import (
	"fmt"

	"mit.edu/dsg/qexec/common"
)

// SelectNode projects its child through a fixed positional column map: output column i is child column
// Columns[i]. Maps referencing columns the child does not have are rejected when the node is bound.
type SelectNode struct {
	unaryNode
	Columns []int
	header  Header
}

func NewSelectNode(child PlanNode, columns []int) *SelectNode {
	return &SelectNode{
		unaryNode: unaryNode{Child: child},
		Columns:   columns,
		header:    child.Header().Project(columns),
	}
}

// NewSelectByName projects child onto the named columns.
func NewSelectByName(child PlanNode, names ...string) (*SelectNode, error) {
	columns := make([]int, len(names))
	for i, name := range names {
		columns[i] = child.Header().ColumnIndex(name)
		if columns[i] < 0 {
			return nil, common.NewError(common.NoSuchObjectError, "column '%s' does not exist in %s", name, child.Header())
		}
	}
	return NewSelectNode(child, columns), nil
}

func (n *SelectNode) Kind() NodeKind {
	return KindSelect
}

func (n *SelectNode) Header() Header {
	return n.header
}

func (n *SelectNode) OutputSchema() []common.Type {
	return n.header.Types()
}

func (n *SelectNode) String() string {
	return fmt.Sprintf("Select: %v", n.Columns)
}
