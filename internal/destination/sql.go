package destination

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/JonMunkholm/tableload/internal/schema"
)

// SQLCatalog is a Catalog over database/sql. The dialect supplies the SQL
// that differs between databases.
type SQLCatalog struct {
	db      *sql.DB
	dialect dialect.Dialect
}

var _ Catalog = (*SQLCatalog)(nil)

// NewSQLCatalog returns a catalog over db.
func NewSQLCatalog(db *sql.DB, d dialect.Dialect) *SQLCatalog {
	return &SQLCatalog{db: db, dialect: d}
}

// Dialect returns the catalog's dialect.
func (c *SQLCatalog) Dialect() dialect.Dialect { return c.dialect }

// TableDefinition reads the table's columns and key constraints.
func (c *SQLCatalog) TableDefinition(ctx context.Context, name schema.TableName) (schema.TableDefinition[schema.ColumnDefinition], error) {
	var zero schema.TableDefinition[schema.ColumnDefinition]

	rows, err := c.db.QueryContext(ctx, c.dialect.ColumnsQuery(), name.Schema, name.Table)
	if err != nil {
		return zero, fmt.Errorf("query columns of %s: %w", name, err)
	}
	var columns []dialect.ColumnInfo
	for rows.Next() {
		var info dialect.ColumnInfo
		var dataType, nullable sql.NullString
		if err := rows.Scan(&info.Name, &dataType, &info.Length, &info.Precision, &info.Scale, &nullable); err != nil {
			rows.Close()
			return zero, fmt.Errorf("scan column of %s: %w", name, err)
		}
		info.DataType, info.Nullable = dataType.String, nullable.String
		columns = append(columns, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return zero, fmt.Errorf("iterate columns of %s: %w", name, err)
	}

	rows, err = c.db.QueryContext(ctx, c.dialect.ConstraintsQuery(), name.Schema, name.Table)
	if err != nil {
		return zero, fmt.Errorf("query constraints of %s: %w", name, err)
	}
	defer rows.Close()
	var constraints []constraintRow
	for rows.Next() {
		var r constraintRow
		if err := rows.Scan(&r.Name, &r.Type, &r.Column); err != nil {
			return zero, fmt.Errorf("scan constraint of %s: %w", name, err)
		}
		constraints = append(constraints, r)
	}
	if err := rows.Err(); err != nil {
		return zero, fmt.Errorf("iterate constraints of %s: %w", name, err)
	}

	return buildDefinition(c.dialect, name, columns, constraints)
}

// CreateTable creates the table and its constraints.
func (c *SQLCatalog) CreateTable(ctx context.Context, def schema.TableDefinition[schema.ColumnDefinition]) error {
	ddl, err := dialect.CreateTableSQL(c.dialect, def)
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", def.Name, err)
	}
	logging.FromContext(ctx).Info("table created", "table", def.Name.String(), "columns", len(def.Columns), "dialect", c.dialect.Name())
	return nil
}

// Truncate removes every row of the table.
func (c *SQLCatalog) Truncate(ctx context.Context, name schema.TableName) error {
	if _, err := c.db.ExecContext(ctx, c.dialect.TruncateSQL(dialect.QualifiedName(c.dialect, name))); err != nil {
		return fmt.Errorf("truncate %s: %w", name, err)
	}
	return nil
}

// Writer begins a transaction for inserting into the table.
func (c *SQLCatalog) Writer(ctx context.Context, name schema.TableName, columns []schema.ColumnDefinition) (RowWriter, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqlWriter{
		tx:      tx,
		dialect: c.dialect,
		table:   name,
		insert:  dialect.InsertSQL(c.dialect, name, columnNames(columns)),
	}, nil
}

type sqlWriter struct {
	tx      *sql.Tx
	dialect dialect.Dialect
	table   schema.TableName
	insert  string
	done    bool
}

// Write inserts one row under a savepoint so a rejected row leaves the
// transaction usable.
func (w *sqlWriter) Write(ctx context.Context, values []any) error {
	if w.done {
		return ErrWriterClosed
	}
	sp, rollback, release := w.dialect.Savepoint(savepointName)
	if _, err := w.tx.ExecContext(ctx, sp); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if _, err := w.tx.ExecContext(ctx, w.insert, values...); err != nil {
		_, _ = w.tx.ExecContext(ctx, rollback)
		return &RowInsertError{Table: w.table, Err: err}
	}
	if release != "" {
		_, _ = w.tx.ExecContext(ctx, release)
	}
	return nil
}

func (w *sqlWriter) Commit(context.Context) error {
	if w.done {
		return ErrWriterClosed
	}
	w.done = true
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (w *sqlWriter) Rollback(context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback()
}
