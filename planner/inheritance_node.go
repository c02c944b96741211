package planner

import (
	"fmt"

	"mit.edu/dsg/qexec/common"
)

// FilterInheritorsNode keeps the rows of an ordered child whose type tag is one of Tags. It is the virtual
// index of a type over a single-table hierarchy.
type FilterInheritorsNode struct {
	unaryNode
	TagColumn int
	Tags      []int64
}

func NewFilterInheritorsNode(child PlanNode, tagColumn int, tags []int64) *FilterInheritorsNode {
	return &FilterInheritorsNode{
		unaryNode: unaryNode{Child: child},
		TagColumn: tagColumn,
		Tags:      tags,
	}
}

func (n *FilterInheritorsNode) Kind() NodeKind {
	return KindFilterInheritors
}

func (n *FilterInheritorsNode) Header() Header {
	return n.Child.Header()
}

func (n *FilterInheritorsNode) String() string {
	return fmt.Sprintf("FilterInheritors: #%d in %v", n.TagColumn, n.Tags)
}

// InheritorExtension is one per-type table joined to the root of a class-table hierarchy. Rows of the root
// whose tag is in Tags own a row in Source with the same key.
type InheritorExtension struct {
	Source PlanNode
	Tags   []int64
}

// JoinInheritorsNode widens each row of an ordered root with the matching row of every extension, in root
// order. Extensions a row's type does not own contribute unavailable fields.
type JoinInheritorsNode struct {
	Root       PlanNode
	TagColumn  int
	Extensions []InheritorExtension
	header     Header
}

func NewJoinInheritorsNode(root PlanNode, tagColumn int, extensions []InheritorExtension) *JoinInheritorsNode {
	header := root.Header()
	for _, ext := range extensions {
		header = header.Concat(ext.Source.Header())
	}
	return &JoinInheritorsNode{
		Root:       root,
		TagColumn:  tagColumn,
		Extensions: extensions,
		header:     header,
	}
}

func (n *JoinInheritorsNode) Kind() NodeKind {
	return KindJoinInheritors
}

func (n *JoinInheritorsNode) Header() Header {
	return n.header
}

func (n *JoinInheritorsNode) OutputSchema() []common.Type {
	return n.header.Types()
}

func (n *JoinInheritorsNode) Children() []PlanNode {
	children := []PlanNode{n.Root}
	for _, ext := range n.Extensions {
		children = append(children, ext.Source)
	}
	return children
}

func (n *JoinInheritorsNode) String() string {
	return fmt.Sprintf("JoinInheritors: %d extensions", len(n.Extensions))
}

// MergeInheritorsNode merges ordered sources holding disjoint rows of one hierarchy into a single ordered
// stream with the common header. ColumnMaps[s][c] is the column of source s that feeds common column c, or
// -1 when source s has no such column.
type MergeInheritorsNode struct {
	Sources    []PlanNode
	ColumnMaps [][]int
	header     Header
}

func NewMergeInheritorsNode(header Header, sources []PlanNode, columnMaps [][]int) *MergeInheritorsNode {
	return &MergeInheritorsNode{
		Sources:    sources,
		ColumnMaps: columnMaps,
		header:     header,
	}
}

// NewAlignedMergeInheritorsNode derives the column maps by matching each common column with the source
// column of the same stored name (or, for computed columns, the same header name).
func NewAlignedMergeInheritorsNode(header Header, sources []PlanNode) *MergeInheritorsNode {
	maps := make([][]int, len(sources))
	for s, src := range sources {
		maps[s] = AlignColumns(header, src.Header())
	}
	return NewMergeInheritorsNode(header, sources, maps)
}

// AlignColumns maps every column of target to the column of source storing the same field, or -1.
func AlignColumns(target, source Header) []int {
	m := make([]int, len(target.Columns))
	for c, col := range target.Columns {
		m[c] = -1
		for i, sc := range source.Columns {
			if fieldName(sc) == fieldName(col) {
				m[c] = i
				break
			}
		}
	}
	return m
}

func fieldName(c ColumnDescriptor) string {
	if c.Origin != nil {
		return c.Origin.Column
	}
	return c.Name
}

func (n *MergeInheritorsNode) Kind() NodeKind {
	return KindMergeInheritors
}

func (n *MergeInheritorsNode) Header() Header {
	return n.header
}

func (n *MergeInheritorsNode) OutputSchema() []common.Type {
	return n.header.Types()
}

func (n *MergeInheritorsNode) Children() []PlanNode {
	return n.Sources
}

func (n *MergeInheritorsNode) String() string {
	return fmt.Sprintf("MergeInheritors: %d sources", len(n.Sources))
}
