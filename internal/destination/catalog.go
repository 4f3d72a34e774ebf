// Package destination reads and writes destination tables.
//
// A Catalog looks up a table's declared shape, creates or truncates tables,
// and opens RowWriters. Writers run inside one transaction and isolate each
// row: a failed row is rolled back to a savepoint and the next row carries
// on. Nothing is visible to other sessions until Commit.
package destination

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/schema"
)

var (
	// ErrTableNotFound is returned when a destination table does not exist.
	ErrTableNotFound = errors.New("table not found")
	// ErrTableExists is returned when creating a table that already exists.
	ErrTableExists = errors.New("table already exists")
	// ErrWriterClosed is returned when writing after Commit or Rollback.
	ErrWriterClosed = errors.New("writer closed")
)

// Catalog is a destination database.
type Catalog interface {
	TableDefinition(ctx context.Context, name schema.TableName) (schema.TableDefinition[schema.ColumnDefinition], error)
	CreateTable(ctx context.Context, def schema.TableDefinition[schema.ColumnDefinition]) error
	Truncate(ctx context.Context, name schema.TableName) error
	Writer(ctx context.Context, name schema.TableName, columns []schema.ColumnDefinition) (RowWriter, error)
}

// RowWriter inserts rows into one table. values are ordered like the
// columns the writer was opened with. A Write error affects that row only.
type RowWriter interface {
	Write(ctx context.Context, values []any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RowInsertError is a row rejected by the database.
type RowInsertError struct {
	Table schema.TableName
	Err   error
}

func (e *RowInsertError) Error() string {
	return fmt.Sprintf("insert into %s: %v", e.Table, e.Err)
}

func (e *RowInsertError) Unwrap() error { return e.Err }

// constraintRow is one row of a dialect ConstraintsQuery.
type constraintRow struct {
	Name   string
	Type   string
	Column string
}

// buildDefinition assembles catalog rows into a table definition. Names are
// matched case-insensitively, which is how every supported database
// resolves unquoted identifiers.
func buildDefinition(
	d dialect.Dialect,
	name schema.TableName,
	columns []dialect.ColumnInfo,
	constraints []constraintRow,
) (schema.TableDefinition[schema.ColumnDefinition], error) {
	if len(columns) == 0 {
		return schema.TableDefinition[schema.ColumnDefinition]{}, fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}

	cols := make([]schema.ColumnDefinition, len(columns))
	for i, info := range columns {
		cols[i] = d.ParseColumn(info)
	}
	def := schema.NewTable(name, cols)

	var order []string
	byName := make(map[string]*schema.UniqueConstraint)
	primary := make(map[string]bool)
	for _, c := range constraints {
		u, ok := byName[c.Name]
		if !ok {
			u = &schema.UniqueConstraint{Name: c.Name}
			byName[c.Name] = u
			order = append(order, c.Name)
		}
		u.Columns = append(u.Columns, c.Column)
		if c.Type == "PRIMARY KEY" {
			primary[c.Name] = true
		}
	}
	for _, n := range order {
		if primary[n] {
			def.PrimaryKey = byName[n]
			continue
		}
		def.UniqueConstraints = append(def.UniqueConstraints, *byName[n])
	}
	return def, def.Validate()
}

func columnNames(columns []schema.ColumnDefinition) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// savepointName is reused for every row; each savepoint is released or
// rolled back before the next row.
const savepointName = "tableload_row"
