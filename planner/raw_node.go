package planner

import (
	"fmt"

	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/storage"
)

// RawNode is a leaf over an in-memory list of rows. If the header declares an order, the rows must already
// be in it.
type RawNode struct {
	Rows   []storage.Tuple
	header Header
}

func NewRawNode(header Header, rows ...storage.Tuple) *RawNode {
	return &RawNode{
		Rows:   rows,
		header: header,
	}
}

func (n *RawNode) Kind() NodeKind {
	return KindRaw
}

func (n *RawNode) Header() Header {
	return n.header
}

func (n *RawNode) OutputSchema() []common.Type {
	return n.header.Types()
}

func (n *RawNode) Children() []PlanNode {
	return nil
}

func (n *RawNode) String() string {
	return fmt.Sprintf("Raw: %d rows", len(n.Rows))
}
