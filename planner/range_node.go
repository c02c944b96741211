package planner

import (
	"fmt"

	"mit.edu/dsg/qexec/indexing"
)

// RangeNode restricts an ordered child to a sub-range of its key order. A forward range keeps the child's
// ordered access, restricted to the range; a backward range only enumerates.
type RangeNode struct {
	unaryNode
	Range indexing.Range
}

func NewRangeNode(child PlanNode, r indexing.Range) *RangeNode {
	return &RangeNode{
		unaryNode: unaryNode{Child: child},
		Range:     r,
	}
}

func (n *RangeNode) Kind() NodeKind {
	return KindRange
}

// Header keeps the child's order unless the range is scanned backward, which reverses it.
func (n *RangeNode) Header() Header {
	h := n.Child.Header()
	if n.Range.Direction == indexing.ScanDirectionForward {
		return h
	}
	order := make([]OrderItem, len(h.Order))
	for i, o := range h.Order {
		order[i] = o
		order[i].Direction = o.Direction.Reverse()
	}
	return h.WithOrder(order)
}

func (n *RangeNode) String() string {
	return fmt.Sprintf("Range: low=%v high=%v", n.Range.Low, n.Range.High)
}
