package dialect

import (
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// MySQL is the MySQL and MariaDB dialect.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, IS_NULLABLE
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`
}

func (MySQL) ConstraintsQuery() string {
	return `SELECT tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE, kcu.COLUMN_NAME
FROM information_schema.TABLE_CONSTRAINTS tc
JOIN information_schema.KEY_COLUMN_USAGE kcu
	ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
	AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
	AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND tc.TABLE_NAME = ?
	AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE')
ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`
}

func (MySQL) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) TruncateSQL(table string) string { return "TRUNCATE TABLE " + table }

func (MySQL) Savepoint(name string) (string, string, string) { return standardSavepoint(name) }

func (d MySQL) NativeType(c schema.ColumnDefinition) (string, error) {
	m := c.Modifier
	switch c.Type {
	case schema.TinyInt:
		return "tinyint", nil
	case schema.SmallInt:
		return "smallint", nil
	case schema.Integer:
		return "int", nil
	case schema.BigInt:
		return "bigint", nil
	case schema.Float:
		return "float", nil
	case schema.Double:
		return "double", nil
	case schema.Decimal:
		if m.Precision > 65 {
			return "", unsupported(d, c.Type)
		}
		return numeric("decimal", m), nil
	case schema.Boolean:
		return "boolean", nil
	case schema.Char:
		return sized("char", m.MaxLength), nil
	case schema.NChar:
		return sized("nchar", m.MaxLength), nil
	case schema.Varchar:
		return sized("varchar", defaultLength(m.MaxLength, 255)), nil
	case schema.NVarchar:
		return sized("nvarchar", defaultLength(m.MaxLength, 255)), nil
	case schema.Clob, schema.NClob:
		return "longtext", nil
	case schema.Date:
		return "date", nil
	case schema.Time:
		return "time(6)", nil
	case schema.Timestamp:
		return "datetime(6)", nil
	case schema.TimestampWithZone:
		return "timestamp(6)", nil
	case schema.Binary:
		return sized("binary", m.MaxLength), nil
	case schema.VarBinary:
		if m.MaxLength > 0 {
			return sized("varbinary", m.MaxLength), nil
		}
		return "longblob", nil
	}
	return "", unsupported(d, c.Type)
}

func (MySQL) ParseColumn(info ColumnInfo) schema.ColumnDefinition {
	var t schema.LogicalType
	switch strings.ToLower(info.DataType) {
	case "tinyint":
		t = schema.TinyInt
	case "smallint", "year":
		t = schema.SmallInt
	case "mediumint", "int", "integer":
		t = schema.Integer
	case "bigint":
		t = schema.BigInt
	case "float":
		t = schema.Float
	case "double", "real":
		t = schema.Double
	case "decimal", "numeric":
		t = schema.Decimal
	case "bit", "bool", "boolean":
		t = schema.Boolean
	case "char":
		t = schema.Char
	case "varchar":
		t = schema.Varchar
	case "tinytext", "text", "mediumtext", "longtext", "enum", "set", "json":
		t = schema.Clob
	case "date":
		t = schema.Date
	case "time":
		t = schema.Time
	case "datetime":
		t = schema.Timestamp
	case "timestamp":
		t = schema.TimestampWithZone
	case "binary":
		t = schema.Binary
	case "varbinary", "tinyblob", "blob", "mediumblob", "longblob":
		t = schema.VarBinary
	}
	return column(info, t)
}

// defaultLength is n, or def when n is unset. MySQL requires a length for
// VARCHAR.
func defaultLength(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
