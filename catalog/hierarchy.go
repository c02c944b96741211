package catalog

import (
	"mit.edu/dsg/qexec/common"
)

// InheritanceMapping names how a type hierarchy is laid out over physical tables.
type InheritanceMapping string

const (
	// SingleTable stores every type of the hierarchy in one table, discriminated by a type-tag column.
	SingleTable InheritanceMapping = "single_table"
	// ClassTable stores the root type's fields (and the type tag) in a root table, and every other type's own
	// fields in an extension table keyed identically to the root.
	ClassTable InheritanceMapping = "class_table"
	// ConcreteTable stores each type's rows, including inherited fields, in a table of its own.
	ConcreteTable InheritanceMapping = "concrete_table"
)

// TypeInfo describes one type of a hierarchy.
type TypeInfo struct {
	Name   string `json:"name"`
	Tag    int64  `json:"tag"`
	Parent string `json:"parent,omitempty"` // empty for the root type
	// Table holds the type's rows (ConcreteTable), its own fields (ClassTable), or the whole hierarchy
	// (SingleTable, where every type names the same table).
	Table string `json:"table"`
}

// Hierarchy is a logical type hierarchy mapped onto one or more physical tables.
type Hierarchy struct {
	Name      string             `json:"name"`
	Mapping   InheritanceMapping `json:"mapping"`
	TagColumn string             `json:"tag_column"`
	Types     []TypeInfo         `json:"types"`
}

// Root returns the type without a parent.
func (h *Hierarchy) Root() *TypeInfo {
	for i := range h.Types {
		if h.Types[i].Parent == "" {
			return &h.Types[i]
		}
	}
	return nil
}

// Type looks a type up by name.
func (h *Hierarchy) Type(name string) (*TypeInfo, error) {
	for i := range h.Types {
		if h.Types[i].Name == name {
			return &h.Types[i], nil
		}
	}
	return nil, common.NewError(common.NoSuchObjectError, "type '%s' does not exist in hierarchy '%s'", name, h.Name)
}

// Subtree returns the named type followed by all of its descendants, in declaration order.
func (h *Hierarchy) Subtree(name string) []*TypeInfo {
	var out []*TypeInfo
	var visit func(string)
	visit = func(n string) {
		for i := range h.Types {
			if h.Types[i].Name == n {
				out = append(out, &h.Types[i])
			}
		}
		for i := range h.Types {
			if h.Types[i].Parent == n {
				visit(h.Types[i].Name)
			}
		}
	}
	visit(name)
	return out
}

// SubtreeTags returns the type tags of the named type and all of its descendants.
func (h *Hierarchy) SubtreeTags(name string) []int64 {
	subtree := h.Subtree(name)
	tags := make([]int64, len(subtree))
	for i, t := range subtree {
		tags[i] = t.Tag
	}
	return tags
}

// Ancestors returns the chain of types from the root down to (and including) the named type.
func (h *Hierarchy) Ancestors(name string) []*TypeInfo {
	var chain []*TypeInfo
	for name != "" {
		t, err := h.Type(name)
		if err != nil {
			return nil
		}
		chain = append([]*TypeInfo{t}, chain...)
		name = t.Parent
	}
	return chain
}

func (h *Hierarchy) validate(c *Catalog) error {
	switch h.Mapping {
	case SingleTable, ClassTable, ConcreteTable:
	default:
		return common.NewError(common.InvalidPlanError, "hierarchy '%s' has unknown mapping '%s'", h.Name, h.Mapping)
	}
	root := h.Root()
	if root == nil {
		return common.NewError(common.InvalidPlanError, "hierarchy '%s' has no root type", h.Name)
	}
	tags := make(map[int64]string)
	names := make(map[string]bool)
	for _, t := range h.Types {
		if names[t.Name] {
			return common.NewError(common.DuplicateObjectError, "type '%s' declared twice in hierarchy '%s'", t.Name, h.Name)
		}
		names[t.Name] = true
		if other, ok := tags[t.Tag]; ok {
			return common.NewError(common.DuplicateObjectError, "types '%s' and '%s' share tag %d", other, t.Name, t.Tag)
		}
		tags[t.Tag] = t.Name
	}
	for _, t := range h.Types {
		if t.Parent != "" && !names[t.Parent] {
			return common.NewError(common.NoSuchObjectError, "parent '%s' of type '%s' does not exist", t.Parent, t.Name)
		}
		table, err := c.GetTableMetadata(t.Table)
		if err != nil {
			return err
		}
		if _, err := table.PrimaryIndex(); err != nil {
			return err
		}
		if h.Mapping == SingleTable && t.Table != root.Table {
			return common.NewError(common.InvalidPlanError, "single-table hierarchy '%s' maps type '%s' to a second table", h.Name, t.Name)
		}
	}
	if h.Mapping != ConcreteTable {
		table, _ := c.GetTableMetadata(root.Table)
		if table.ColumnIndex(h.TagColumn) < 0 {
			return common.NewError(common.NoSuchObjectError, "tag column '%s' does not exist in table '%s'", h.TagColumn, table.Name)
		}
	}
	return nil
}

// AddHierarchy registers a type hierarchy. Every table it names must exist and have a primary index.
func (c *Catalog) AddHierarchy(h *Hierarchy, provider PersistenceProvider) error {
	if _, exists := c.hierarchyMap[h.Name]; exists {
		return common.NewError(common.DuplicateObjectError, "hierarchy '%s' already exists", h.Name)
	}
	if err := h.validate(c); err != nil {
		return err
	}
	c.Hierarchies = append(c.Hierarchies, h)
	c.hierarchyMap[h.Name] = h
	return c.save(provider)
}

// GetHierarchy fetches a hierarchy by name.
func (c *Catalog) GetHierarchy(name string) (*Hierarchy, error) {
	h, exists := c.hierarchyMap[name]
	if !exists {
		return nil, common.NewError(common.NoSuchObjectError, "hierarchy '%s' does not exist", name)
	}
	return h, nil
}
