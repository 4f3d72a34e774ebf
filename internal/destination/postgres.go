package destination

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresCatalog is a Catalog over a pgx connection pool.
type PostgresCatalog struct {
	pool    *pgxpool.Pool
	dialect dialect.Postgres
}

var _ Catalog = (*PostgresCatalog)(nil)

// NewPostgresCatalog returns a catalog using pool.
func NewPostgresCatalog(pool *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

// TableDefinition reads the table's columns and key constraints from
// information_schema.
func (c *PostgresCatalog) TableDefinition(ctx context.Context, name schema.TableName) (schema.TableDefinition[schema.ColumnDefinition], error) {
	return pgTableDefinition(ctx, c.pool, c.dialect, name)
}

func pgTableDefinition(ctx context.Context, db DBTX, d dialect.Dialect, name schema.TableName) (schema.TableDefinition[schema.ColumnDefinition], error) {
	var zero schema.TableDefinition[schema.ColumnDefinition]

	rows, err := db.Query(ctx, d.ColumnsQuery(), name.Schema, name.Table)
	if err != nil {
		return zero, fmt.Errorf("query columns of %s: %w", name, err)
	}
	var columns []dialect.ColumnInfo
	for rows.Next() {
		var info dialect.ColumnInfo
		if err := rows.Scan(&info.Name, &info.DataType, &info.Length, &info.Precision, &info.Scale, &info.Nullable); err != nil {
			rows.Close()
			return zero, fmt.Errorf("scan column of %s: %w", name, err)
		}
		columns = append(columns, info)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return zero, fmt.Errorf("iterate columns of %s: %w", name, err)
	}

	rows, err = db.Query(ctx, d.ConstraintsQuery(), name.Schema, name.Table)
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

	return buildDefinition(d, name, columns, constraints)
}

// CreateTable creates the table and its constraints.
func (c *PostgresCatalog) CreateTable(ctx context.Context, def schema.TableDefinition[schema.ColumnDefinition]) error {
	ddl, err := dialect.CreateTableSQL(c.dialect, def)
	if err != nil {
		return err
	}
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", def.Name, err)
	}
	logging.FromContext(ctx).Info("table created", "table", def.Name.String(), "columns", len(def.Columns))
	return nil
}

// Truncate removes every row of the table.
func (c *PostgresCatalog) Truncate(ctx context.Context, name schema.TableName) error {
	if _, err := c.pool.Exec(ctx, c.dialect.TruncateSQL(dialect.QualifiedName(c.dialect, name))); err != nil {
		return fmt.Errorf("truncate %s: %w", name, err)
	}
	return nil
}

// Writer begins a transaction for inserting into the table.
func (c *PostgresCatalog) Writer(ctx context.Context, name schema.TableName, columns []schema.ColumnDefinition) (RowWriter, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &pgWriter{
		tx:      tx,
		table:   name,
		columns: columns,
		insert:  dialect.InsertSQL(c.dialect, name, columnNames(columns)),
	}, nil
}

type pgWriter struct {
	tx      pgx.Tx
	table   schema.TableName
	columns []schema.ColumnDefinition
	insert  string
	done    bool
}

// Write inserts one row under a savepoint so a rejected row leaves the
// transaction usable.
func (w *pgWriter) Write(ctx context.Context, values []any) error {
	if w.done {
		return ErrWriterClosed
	}
	args, err := pgValues(values, w.columns)
	if err != nil {
		return err
	}

	sp, rollback, release := dialect.Postgres{}.Savepoint(savepointName)
	if _, err := w.tx.Exec(ctx, sp); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if _, err := w.tx.Exec(ctx, w.insert, args...); err != nil {
		_, _ = w.tx.Exec(ctx, rollback)
		return &RowInsertError{Table: w.table, Err: err}
	}
	_, _ = w.tx.Exec(ctx, release)
	return nil
}

func (w *pgWriter) Commit(ctx context.Context) error {
	if w.done {
		return ErrWriterClosed
	}
	w.done = true
	if err := w.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (w *pgWriter) Rollback(ctx context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback(ctx)
}
