package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/storage"
)

// ColumnDescriptor describes one positional output column.
type ColumnDescriptor struct {
	Name string
	Type common.Type
	// Origin points at the stored column the values were read from. It is nil for computed columns.
	Origin *catalog.ColumnRef
}

// OrderItem is one column of a sort order.
type OrderItem struct {
	Column    int
	Direction common.Direction
	// Collation is a BCP 47 language tag for string columns. Empty means binary order.
	Collation string
}

func (o OrderItem) String() string {
	s := fmt.Sprintf("#%d %s", o.Column, o.Direction)
	if o.Collation != "" {
		s += " collate " + o.Collation
	}
	return s
}

// Header describes the rows a node produces: their columns and, optionally, the order they arrive in.
// Every row a node yields has exactly Header.Columns fields, and a non-empty Order is a promise the node keeps.
type Header struct {
	Columns []ColumnDescriptor
	Order   []OrderItem
}

// NewHeader builds a header.
func NewHeader(columns []ColumnDescriptor, order ...OrderItem) Header {
	return Header{Columns: columns, Order: order}
}

// HeaderFromTable describes the rows of table as read through idx, which determines the order.
func HeaderFromTable(table *catalog.Table, idx *catalog.Index) Header {
	columns := make([]ColumnDescriptor, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = ColumnDescriptor{
			Name:   col.Name,
			Type:   col.Type,
			Origin: &catalog.ColumnRef{TableOid: table.Oid, Table: table.Name, Column: col.Name},
		}
	}
	var order []OrderItem
	if idx != nil {
		order = make([]OrderItem, len(idx.KeySchema))
		for i, name := range idx.KeySchema {
			order[i] = OrderItem{Column: table.ColumnIndex(name), Direction: idx.Direction(i)}
		}
	}
	return Header{Columns: columns, Order: order}
}

// NumColumns returns the row width.
func (h Header) NumColumns() int {
	return len(h.Columns)
}

// Types returns the positional column types.
func (h Header) Types() []common.Type {
	types := make([]common.Type, len(h.Columns))
	for i, c := range h.Columns {
		types[i] = c.Type
	}
	return types
}

// ColumnIndex returns the position of the first column with the given name, or -1.
func (h Header) ColumnIndex(name string) int {
	for i, c := range h.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// WithOrder returns a copy of h declaring the given order.
func (h Header) WithOrder(order []OrderItem) Header {
	return Header{Columns: h.Columns, Order: order}
}

// Unordered returns a copy of h without an order.
func (h Header) Unordered() Header {
	return Header{Columns: h.Columns}
}

// Concat appends the columns of right. The result keeps the order of h.
func (h Header) Concat(right Header) Header {
	columns := make([]ColumnDescriptor, 0, len(h.Columns)+len(right.Columns))
	columns = append(columns, h.Columns...)
	columns = append(columns, right.Columns...)
	return Header{Columns: columns, Order: h.Order}
}

// Project describes the rows produced by projecting h onto columns. Entries outside the header produce a
// placeholder column so that the mistake can be reported at bind time. The order is kept up to the first
// order column that is projected away.
func (h Header) Project(columns []int) Header {
	out := make([]ColumnDescriptor, len(columns))
	for i, c := range columns {
		if c >= 0 && c < len(h.Columns) {
			out[i] = h.Columns[c]
		} else {
			out[i] = ColumnDescriptor{Name: fmt.Sprintf("?%d", c)}
		}
	}
	var order []OrderItem
	for _, item := range h.Order {
		pos := -1
		for i, c := range columns {
			if c == item.Column {
				pos = i
				break
			}
		}
		if pos < 0 {
			break
		}
		order = append(order, OrderItem{Column: pos, Direction: item.Direction, Collation: item.Collation})
	}
	return Header{Columns: out, Order: order}
}

// Rename returns a copy of h whose columns carry the given names. Missing or empty names keep the old name.
func (h Header) Rename(names []string) Header {
	columns := make([]ColumnDescriptor, len(h.Columns))
	copy(columns, h.Columns)
	for i := range columns {
		if i < len(names) && names[i] != "" {
			columns[i].Name = names[i]
		}
	}
	return Header{Columns: columns, Order: h.Order}
}

// OrderMatch returns how many leading items of required are already guaranteed by the order of h.
func (h Header) OrderMatch(required []OrderItem) int {
	n := 0
	for n < len(required) && n < len(h.Order) && h.Order[n] == required[n] {
		n++
	}
	return n
}

// Satisfies reports whether rows in the order of h are also in the required order.
func (h Header) Satisfies(required []OrderItem) bool {
	return h.OrderMatch(required) == len(required)
}

// OrderColumns returns the column positions of the order.
func (h Header) OrderColumns() []int {
	cols := make([]int, len(h.Order))
	for i, o := range h.Order {
		cols[i] = o.Column
	}
	return cols
}

// OrderDirections returns the directions of the order.
func (h Header) OrderDirections() []common.Direction {
	dirs := make([]common.Direction, len(h.Order))
	for i, o := range h.Order {
		dirs[i] = o.Direction
	}
	return dirs
}

// IndexMetadata describes the header as an ordered source keyed by its order columns.
func (h Header) IndexMetadata() *indexing.IndexMetadata {
	return &indexing.IndexMetadata{
		Schema:     h.Types(),
		KeyColumns: h.OrderColumns(),
		Directions: h.OrderDirections(),
	}
}

// Validate checks that the order refers to existing columns.
func (h Header) Validate() error {
	for _, o := range h.Order {
		if o.Column < 0 || o.Column >= len(h.Columns) {
			return common.NewError(common.ColumnOutOfRangeError, "order column %d out of range for %d columns", o.Column, len(h.Columns))
		}
		if o.Collation != "" && h.Columns[o.Column].Type != common.StringType {
			return common.NewError(common.InvalidPlanError, "collation %q on non-string column %d", o.Collation, o.Column)
		}
	}
	return nil
}

// Conforms reports whether t has the shape of h. Unavailable fields conform to any column type.
func (h Header) Conforms(t storage.Tuple) bool {
	if t.NumColumns() != len(h.Columns) {
		return false
	}
	for i, c := range h.Columns {
		v := t.GetValue(i)
		if v.IsAvailable() && v.Type() != c.Type {
			return false
		}
	}
	return true
}

func (h Header) String() string {
	cols := make([]string, len(h.Columns))
	for i, c := range h.Columns {
		cols[i] = fmt.Sprintf("%s:%s", c.Name, c.Type)
	}
	s := "[" + strings.Join(cols, ", ") + "]"
	if len(h.Order) > 0 {
		order := make([]string, len(h.Order))
		for i, o := range h.Order {
			order[i] = o.String()
		}
		s += " order by " + strings.Join(order, ", ")
	}
	return s
}
