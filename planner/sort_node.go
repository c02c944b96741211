package planner

import (
	"fmt"
)

// SortNode orders the rows of its child by OrderBy. When the child already delivers rows in that order the
// node is a passthrough, otherwise it buffers the whole input.
type SortNode struct {
	unaryNode
	OrderBy []OrderItem
}

func NewSortNode(child PlanNode, orderBy []OrderItem) *SortNode {
	return &SortNode{
		unaryNode: unaryNode{Child: child},
		OrderBy:   orderBy,
	}
}

func (n *SortNode) Kind() NodeKind {
	return KindSort
}

func (n *SortNode) Header() Header {
	return n.Child.Header().WithOrder(n.OrderBy)
}

func (n *SortNode) String() string {
	return fmt.Sprintf("Sort: %v", n.OrderBy)
}
