package planner

import (
	"fmt"
)

// FilterNode filters tuples from its child based on a predicate. The child's order is kept.
type FilterNode struct {
	unaryNode
	Predicate Expr
}

func NewFilterNode(child PlanNode, predicate Expr) *FilterNode {
	return &FilterNode{
		unaryNode: unaryNode{Child: child},
		Predicate: predicate,
	}
}

func (n *FilterNode) Kind() NodeKind {
	return KindFilter
}

func (n *FilterNode) Header() Header {
	return n.Child.Header()
}

func (n *FilterNode) String() string {
	return fmt.Sprintf("Filter: %s", n.Predicate.String())
}
