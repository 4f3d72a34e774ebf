// Package dialect holds the SQL that differs between destination databases:
// catalog queries, identifier quoting, placeholders, savepoints and the
// mapping between native column types and logical types.
package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// ErrUnsupportedType is returned when a logical type has no native
// equivalent in a database.
var ErrUnsupportedType = errors.New("type not supported by dialect")

// Dialect abstracts database-specific SQL.
//
// ColumnsQuery takes (schema, table) and returns one row per column in
// ordinal order: name, data type, character length, numeric precision,
// numeric scale and nullability as 'YES' or 'NO'. ConstraintsQuery takes the
// same arguments and returns (constraint name, 'PRIMARY KEY' or 'UNIQUE',
// column name) ordered by constraint and key position. An empty schema
// means the connection's current schema.
type Dialect interface {
	Name() string
	ColumnsQuery() string
	ConstraintsQuery() string

	QuoteIdent(name string) string
	Placeholder(index int) string // zero-based
	TruncateSQL(table string) string
	Savepoint(name string) (create, rollback, release string) // release may be empty

	NativeType(c schema.ColumnDefinition) (string, error)
	ParseColumn(info ColumnInfo) schema.ColumnDefinition
}

// ColumnInfo is one row of a ColumnsQuery.
type ColumnInfo struct {
	Name      string
	DataType  string
	Length    sql.NullInt64
	Precision sql.NullInt64
	Scale     sql.NullInt64
	Nullable  string
}

// Get returns the dialect for a database/sql driver name.
func Get(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "pgx", "postgresql":
		return Postgres{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "sqlserver", "mssql":
		return SQLServer{}, nil
	case "oracle":
		return Oracle{}, nil
	}
	return nil, fmt.Errorf("no dialect for driver %q", driver)
}

var (
	_ Dialect = Postgres{}
	_ Dialect = MySQL{}
	_ Dialect = SQLServer{}
	_ Dialect = Oracle{}
)

// QualifiedName quotes a table name and its schema, when present.
func QualifiedName(d Dialect, n schema.TableName) string {
	if n.Schema == "" {
		return d.QuoteIdent(n.Table)
	}
	return d.QuoteIdent(n.Schema) + "." + d.QuoteIdent(n.Table)
}

// Placeholders returns count comma-separated placeholders.
func Placeholders(d Dialect, count int) string {
	ph := make([]string, count)
	for i := range ph {
		ph[i] = d.Placeholder(i)
	}
	return strings.Join(ph, ", ")
}

// InsertSQL renders a single-row INSERT for the given columns.
func InsertSQL(d Dialect, n schema.TableName, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QualifiedName(d, n), strings.Join(quoted, ", "), Placeholders(d, len(columns)))
}

// CreateTableSQL renders CREATE TABLE for a definition, including its
// primary key and unique constraints.
func CreateTableSQL(d Dialect, def schema.TableDefinition[schema.ColumnDefinition]) (string, error) {
	if len(def.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", def.Name)
	}
	var lines []string
	for _, c := range def.Columns {
		native, err := d.NativeType(c)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", c.Name, err)
		}
		line := d.QuoteIdent(c.Name) + " " + native
		if !c.Modifier.Nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if pk := def.PrimaryKey; pk != nil {
		lines = append(lines, "PRIMARY KEY ("+quoteAll(d, pk.Columns)+")")
	}
	for _, u := range def.UniqueConstraints {
		lines = append(lines, "UNIQUE ("+quoteAll(d, u.Columns)+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", QualifiedName(d, def.Name), strings.Join(lines, ",\n\t")), nil
}

func quoteAll(d Dialect, names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = d.QuoteIdent(n)
	}
	return strings.Join(out, ", ")
}

// standardSavepoint is the SQL:1999 savepoint syntax.
func standardSavepoint(name string) (string, string, string) {
	return "SAVEPOINT " + name, "ROLLBACK TO SAVEPOINT " + name, "RELEASE SAVEPOINT " + name
}

// column builds a definition from catalog metadata.
func column(info ColumnInfo, t schema.LogicalType) schema.ColumnDefinition {
	c := schema.NewColumn(info.Name, t)
	c.Modifier.Nullable = !strings.EqualFold(info.Nullable, "NO")
	switch {
	case t.IsBoundedText() || t.IsBinary():
		if info.Length.Valid && info.Length.Int64 > 0 {
			c.Modifier.MaxLength = int(info.Length.Int64)
		}
	case t == schema.Decimal:
		if info.Precision.Valid {
			c.Modifier.Precision = int(info.Precision.Int64)
			c.Modifier.Scale = int(info.Scale.Int64)
		}
	}
	return c
}

// sized renders name(n), or name alone when n is zero.
func sized(name string, n int) string {
	if n <= 0 {
		return name
	}
	return fmt.Sprintf("%s(%d)", name, n)
}

// numeric renders a decimal type with its precision and scale when set.
func numeric(name string, m schema.TypeModifier) string {
	if m.Precision <= 0 {
		return name
	}
	return fmt.Sprintf("%s(%d,%d)", name, m.Precision, m.Scale)
}

func unsupported(d Dialect, t schema.LogicalType) error {
	return fmt.Errorf("%s %s: %w", d.Name(), t, ErrUnsupportedType)
}
