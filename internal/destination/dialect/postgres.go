package dialect

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/lib/pq"
)

// Postgres is the PostgreSQL dialect, shared by the pgx catalog and the
// database/sql catalog over lib/pq.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) ColumnsQuery() string {
	return `SELECT column_name::text, data_type::text, character_maximum_length::int,
	numeric_precision::int, numeric_scale::int, is_nullable::text
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
ORDER BY ordinal_position`
}

func (Postgres) ConstraintsQuery() string {
	return `SELECT tc.constraint_name::text, tc.constraint_type::text, kcu.column_name::text
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
	ON kcu.constraint_schema = tc.constraint_schema
	AND kcu.constraint_name = tc.constraint_name
	AND kcu.table_name = tc.table_name
WHERE tc.table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND tc.table_name = $2
	AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
ORDER BY tc.constraint_name, kcu.ordinal_position`
}

func (Postgres) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }

func (Postgres) Placeholder(index int) string { return fmt.Sprintf("$%d", index+1) }

func (Postgres) TruncateSQL(table string) string { return "TRUNCATE TABLE " + table }

func (Postgres) Savepoint(name string) (string, string, string) { return standardSavepoint(name) }

func (d Postgres) NativeType(c schema.ColumnDefinition) (string, error) {
	m := c.Modifier
	switch c.Type {
	case schema.TinyInt, schema.SmallInt:
		return "smallint", nil
	case schema.Integer:
		return "integer", nil
	case schema.BigInt:
		return "bigint", nil
	case schema.Float:
		return "real", nil
	case schema.Double:
		return "double precision", nil
	case schema.Decimal:
		return numeric("numeric", m), nil
	case schema.Boolean:
		return "boolean", nil
	case schema.Char, schema.NChar:
		return sized("char", m.MaxLength), nil
	case schema.Varchar, schema.NVarchar:
		return sized("varchar", m.MaxLength), nil
	case schema.Clob, schema.NClob:
		return "text", nil
	case schema.Date:
		return "date", nil
	case schema.Time:
		return "time", nil
	case schema.TimeWithZone:
		return "timetz", nil
	case schema.Timestamp:
		return "timestamp", nil
	case schema.TimestampWithZone:
		return "timestamptz", nil
	case schema.Binary, schema.VarBinary:
		return "bytea", nil
	}
	return "", unsupported(d, c.Type)
}

func (Postgres) ParseColumn(info ColumnInfo) schema.ColumnDefinition {
	var t schema.LogicalType
	switch strings.ToLower(info.DataType) {
	case "smallint", "int2", "smallserial":
		t = schema.SmallInt
	case "integer", "int", "int4", "serial":
		t = schema.Integer
	case "bigint", "int8", "bigserial":
		t = schema.BigInt
	case "real", "float4":
		t = schema.Float
	case "double precision", "float8":
		t = schema.Double
	case "numeric", "decimal", "money":
		t = schema.Decimal
	case "boolean", "bool":
		t = schema.Boolean
	case "character", "char", "bpchar":
		t = schema.Char
	case "character varying", "varchar":
		t = schema.Varchar
	case "text", "citext":
		t = schema.Clob
	case "date":
		t = schema.Date
	case "time without time zone", "time":
		t = schema.Time
	case "time with time zone", "timetz":
		t = schema.TimeWithZone
	case "timestamp without time zone", "timestamp":
		t = schema.Timestamp
	case "timestamp with time zone", "timestamptz":
		t = schema.TimestampWithZone
	case "bytea":
		t = schema.VarBinary
	}
	c := column(info, t)
	if t == schema.Varchar && c.Modifier.MaxLength == 0 {
		c.Type = schema.Clob
	}
	return c
}
