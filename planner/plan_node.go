package planner

import (
	"mit.edu/dsg/qexec/common"
)

// NodeKind tags the closed set of plan node kinds the binder understands.
type NodeKind int

const (
	KindIndexScan NodeKind = iota
	KindFilter
	KindSelect
	KindSort
	KindRange
	KindSkip
	KindTake
	KindRaw
	KindAlias
	KindTransparent
	KindSubstituting
	KindJoin
	KindFilterInheritors
	KindJoinInheritors
	KindMergeInheritors
)

func (k NodeKind) String() string {
	switch k {
	case KindIndexScan:
		return "index_scan"
	case KindFilter:
		return "filter"
	case KindSelect:
		return "select"
	case KindSort:
		return "sort"
	case KindRange:
		return "range"
	case KindSkip:
		return "skip"
	case KindTake:
		return "take"
	case KindRaw:
		return "raw"
	case KindAlias:
		return "alias"
	case KindTransparent:
		return "transparent"
	case KindSubstituting:
		return "substituting"
	case KindJoin:
		return "join"
	case KindFilterInheritors:
		return "filter_inheritors"
	case KindJoinInheritors:
		return "join_inheritors"
	case KindMergeInheritors:
		return "merge_inheritors"
	}
	return "unknown"
}

// PlanNode represents the static structure of a query plan.
// It is immutable and contains header information and the plan tree structure.
type PlanNode interface {
	// Kind returns the node kind.
	Kind() NodeKind

	// Header describes the rows produced by this node.
	Header() Header

	// OutputSchema returns the column types of the rows produced by this node.
	OutputSchema() []common.Type

	// Children returns the child plan nodes.
	Children() []PlanNode

	// String returns a string representation of the plan node.
	String() string
}

// unaryNode factors the child handling of single-input nodes.
type unaryNode struct {
	Child PlanNode
}

func (n *unaryNode) Children() []PlanNode {
	return []PlanNode{n.Child}
}

func (n *unaryNode) OutputSchema() []common.Type {
	return n.Child.Header().Types()
}
