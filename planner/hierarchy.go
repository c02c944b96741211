package planner

import (
	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
)

// HierarchyScan builds the plan that reads every row of typeName, including rows of its descendants, from a
// hierarchy stored with any of the supported mappings. The result is ordered by the primary key of the
// hierarchy's tables.
//
//   - SingleTable: a FilterInheritors over the shared table, keeping the subtree's tags.
//   - ClassTable: a JoinInheritors of the root table with the extension table of every type below the root
//     on the path to (and under) typeName, filtered to the subtree's tags when typeName is not the root.
//   - ConcreteTable: a MergeInheritors over the tables of the subtree, aligned on column names to the
//     columns of typeName's own table.
func HierarchyScan(c *catalog.Catalog, h *catalog.Hierarchy, typeName string) (PlanNode, error) {
	target, err := h.Type(typeName)
	if err != nil {
		return nil, err
	}
	subtree := h.Subtree(typeName)

	switch h.Mapping {
	case catalog.SingleTable:
		scan, err := scanTable(c, target.Table)
		if err != nil {
			return nil, err
		}
		return NewFilterInheritorsNode(scan, scan.Header().ColumnIndex(h.TagColumn), h.SubtreeTags(typeName)), nil

	case catalog.ClassTable:
		return classTableScan(c, h, typeName, subtree)

	case catalog.ConcreteTable:
		header, err := scanTable(c, target.Table)
		if err != nil {
			return nil, err
		}
		var sources []PlanNode
		seen := make(map[string]bool)
		for _, t := range subtree {
			if seen[t.Table] {
				continue
			}
			seen[t.Table] = true
			scan, err := scanTable(c, t.Table)
			if err != nil {
				return nil, err
			}
			sources = append(sources, scan)
		}
		if len(sources) == 1 {
			return sources[0], nil
		}
		return NewAlignedMergeInheritorsNode(header.Header(), sources), nil
	}
	return nil, common.NewError(common.InvalidPlanError, "hierarchy '%s' has unknown mapping '%s'", h.Name, h.Mapping)
}

func classTableScan(c *catalog.Catalog, h *catalog.Hierarchy, typeName string, subtree []*catalog.TypeInfo) (PlanNode, error) {
	root := h.Root()
	rootScan, err := scanTable(c, root.Table)
	if err != nil {
		return nil, err
	}
	tagColumn := rootScan.Header().ColumnIndex(h.TagColumn)

	// Extensions: every table below the root on the path to typeName, then every table of its subtree.
	var tables []string
	seen := map[string]bool{root.Table: true}
	addTable := func(name string) {
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	for _, t := range h.Ancestors(typeName) {
		addTable(t.Table)
	}
	for _, t := range subtree {
		addTable(t.Table)
	}

	var extensions []InheritorExtension
	for _, table := range tables {
		scan, err := scanTable(c, table)
		if err != nil {
			return nil, err
		}
		// A row owns the extension when its type, or one of its ancestors, stores fields there.
		var tags []int64
		for _, t := range h.Types {
			for _, a := range h.Ancestors(t.Name) {
				if a.Table == table {
					tags = append(tags, t.Tag)
					break
				}
			}
		}
		extensions = append(extensions, InheritorExtension{Source: scan, Tags: tags})
	}

	var node PlanNode = rootScan
	if typeName != root.Name {
		node = NewFilterInheritorsNode(rootScan, tagColumn, h.SubtreeTags(typeName))
	}
	if len(extensions) == 0 {
		return node, nil
	}
	return NewJoinInheritorsNode(node, tagColumn, extensions), nil
}

func scanTable(c *catalog.Catalog, name string) (*IndexScanNode, error) {
	table, err := c.GetTableMetadata(name)
	if err != nil {
		return nil, err
	}
	return NewPrimaryScanNode(table)
}
