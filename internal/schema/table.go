package schema

import (
	"fmt"
	"slices"
	"strings"
)

// TableName identifies a destination table, optionally qualified by schema.
type TableName struct {
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table"`
}

// ParseTableName splits "schema.table" into its parts. A name without a dot
// has an empty schema.
func ParseTableName(s string) TableName {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return TableName{Schema: s[:i], Table: s[i+1:]}
	}
	return TableName{Table: s}
}

func (n TableName) String() string {
	if n.Schema == "" {
		return n.Table
	}
	return n.Schema + "." + n.Table
}

// UniqueConstraint is a primary key or unique constraint over a subset of
// columns.
type UniqueConstraint struct {
	Name          string   `json:"name"`
	Columns       []string `json:"columns"`
	CaseSensitive bool     `json:"case_sensitive"`
}

// Equal reports whether two constraints cover the same columns, ignoring
// declaration order. Case sensitivity must match; when it is off, column
// names are compared case-insensitively.
func (u UniqueConstraint) Equal(o UniqueConstraint) bool {
	if u.CaseSensitive != o.CaseSensitive || len(u.Columns) != len(o.Columns) {
		return false
	}
	return slices.Equal(u.normalized(), o.normalized())
}

func (u UniqueConstraint) normalized() []string {
	cols := slices.Clone(u.Columns)
	if !u.CaseSensitive {
		for i, c := range cols {
			cols[i] = strings.ToLower(c)
		}
	}
	slices.Sort(cols)
	return cols
}

// TableDefinition is an ordered set of columns plus the table's key
// constraints. T is ColumnDefinition for destination tables and
// SourceColumnDefinition for tables discovered in a source.
type TableDefinition[T Column] struct {
	Name              TableName          `json:"name"`
	Columns           []T                `json:"columns"`
	CaseSensitive     bool               `json:"case_sensitive"`
	PrimaryKey        *UniqueConstraint  `json:"primary_key,omitempty"`
	UniqueConstraints []UniqueConstraint `json:"unique_constraints,omitempty"`
}

// NewTable builds a table definition.
func NewTable[T Column](name TableName, columns []T) TableDefinition[T] {
	return TableDefinition[T]{Name: name, Columns: columns}
}

// NameEqual compares two column names under the table's case sensitivity.
func (t TableDefinition[T]) NameEqual(a, b string) bool {
	if t.CaseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// Column returns the column with the given name.
func (t TableDefinition[T]) Column(name string) (T, bool) {
	for _, c := range t.Columns {
		if t.NameEqual(c.Definition().Name, name) {
			return c, true
		}
	}
	var zero T
	return zero, false
}

// Index returns the position of the named column or -1.
func (t TableDefinition[T]) Index(name string) int {
	for i, c := range t.Columns {
		if t.NameEqual(c.Definition().Name, name) {
			return i
		}
	}
	return -1
}

// Names returns column names in order.
func (t TableDefinition[T]) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Definition().Name
	}
	return names
}

// Definitions projects the table onto plain column definitions.
func (t TableDefinition[T]) Definitions() TableDefinition[ColumnDefinition] {
	cols := make([]ColumnDefinition, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Definition()
	}
	return TableDefinition[ColumnDefinition]{
		Name:              t.Name,
		Columns:           cols,
		CaseSensitive:     t.CaseSensitive,
		PrimaryKey:        t.PrimaryKey,
		UniqueConstraints: t.UniqueConstraints,
	}
}

// Constraints returns the primary key (if any) followed by unique constraints.
func (t TableDefinition[T]) Constraints() []UniqueConstraint {
	var out []UniqueConstraint
	if t.PrimaryKey != nil {
		out = append(out, *t.PrimaryKey)
	}
	return append(out, t.UniqueConstraints...)
}

// Validate checks for empty and duplicate column names.
func (t TableDefinition[T]) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		name := c.Definition().Name
		if name == "" {
			return fmt.Errorf("column %d has no name", i)
		}
		key := name
		if !t.CaseSensitive {
			key = strings.ToLower(name)
		}
		if seen[key] {
			return fmt.Errorf("duplicate column %q", name)
		}
		seen[key] = true
	}
	return nil
}

// DataCell is one raw value of a row, positioned by column ordinal.
type DataCell struct {
	Index int `json:"index"`
	Value any `json:"value"`
}

// DataRow is one record produced by a reader. RowNo counts data rows from 0.
type DataRow struct {
	RowNo int64      `json:"row_no"`
	Cells []DataCell `json:"cells"`
}

// Value returns the value of the cell at ordinal i, or nil when the row is
// shorter than i.
func (r DataRow) Value(i int) any {
	if i < len(r.Cells) && r.Cells[i].Index == i {
		return r.Cells[i].Value
	}
	for _, c := range r.Cells {
		if c.Index == i {
			return c.Value
		}
	}
	return nil
}

// NewDataRow builds a row whose cells are indexed by position.
func NewDataRow(rowNo int64, values ...any) DataRow {
	cells := make([]DataCell, len(values))
	for i, v := range values {
		cells[i] = DataCell{Index: i, Value: v}
	}
	return DataRow{RowNo: rowNo, Cells: cells}
}
