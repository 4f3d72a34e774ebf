package dialect

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// SQLServer is the Microsoft SQL Server dialect. go-mssqldb binds @pN
// parameters.
type SQLServer struct{}

func (SQLServer) Name() string { return "sqlserver" }

func (SQLServer) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME()) AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`
}

func (SQLServer) ConstraintsQuery() string {
	return `SELECT tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
	ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
	AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
	AND kcu.TABLE_NAME = tc.TABLE_NAME
WHERE tc.TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME()) AND tc.TABLE_NAME = @p2
	AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE')
ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`
}

func (SQLServer) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (SQLServer) Placeholder(index int) string { return fmt.Sprintf("@p%d", index+1) }

func (SQLServer) TruncateSQL(table string) string { return "TRUNCATE TABLE " + table }

// Savepoint uses SAVE TRANSACTION; SQL Server has no release statement.
func (SQLServer) Savepoint(name string) (string, string, string) {
	return "SAVE TRANSACTION " + name, "ROLLBACK TRANSACTION " + name, ""
}

func (d SQLServer) NativeType(c schema.ColumnDefinition) (string, error) {
	m := c.Modifier
	switch c.Type {
	case schema.TinyInt, schema.SmallInt:
		// tinyint is unsigned in SQL Server
		return "smallint", nil
	case schema.Integer:
		return "int", nil
	case schema.BigInt:
		return "bigint", nil
	case schema.Float:
		return "real", nil
	case schema.Double:
		return "float", nil
	case schema.Decimal:
		if m.Precision > 38 {
			return "", unsupported(d, c.Type)
		}
		return numeric("decimal", m), nil
	case schema.Boolean:
		return "bit", nil
	case schema.Char:
		return sized("char", m.MaxLength), nil
	case schema.NChar:
		return sized("nchar", m.MaxLength), nil
	case schema.Varchar:
		return boundedOrMax("varchar", m.MaxLength, 8000), nil
	case schema.NVarchar:
		return boundedOrMax("nvarchar", m.MaxLength, 4000), nil
	case schema.Clob:
		return "varchar(max)", nil
	case schema.NClob:
		return "nvarchar(max)", nil
	case schema.Date:
		return "date", nil
	case schema.Time:
		return "time", nil
	case schema.Timestamp:
		return "datetime2", nil
	case schema.TimestampWithZone:
		return "datetimeoffset", nil
	case schema.Binary:
		return sized("binary", m.MaxLength), nil
	case schema.VarBinary:
		return boundedOrMax("varbinary", m.MaxLength, 8000), nil
	}
	return "", unsupported(d, c.Type)
}

func boundedOrMax(name string, n, limit int) string {
	if n <= 0 || n > limit {
		return name + "(max)"
	}
	return sized(name, n)
}

func (SQLServer) ParseColumn(info ColumnInfo) schema.ColumnDefinition {
	var t schema.LogicalType
	switch strings.ToLower(info.DataType) {
	case "tinyint", "smallint":
		// tinyint holds 0..255, which only fits SMALLINT
		t = schema.SmallInt
	case "int":
		t = schema.Integer
	case "bigint":
		t = schema.BigInt
	case "real":
		t = schema.Float
	case "float":
		t = schema.Double
	case "decimal", "numeric", "money", "smallmoney":
		t = schema.Decimal
	case "bit":
		t = schema.Boolean
	case "char":
		t = schema.Char
	case "varchar":
		t = schema.Varchar
	case "nchar":
		t = schema.NChar
	case "nvarchar":
		t = schema.NVarchar
	case "text":
		t = schema.Clob
	case "ntext", "xml":
		t = schema.NClob
	case "date":
		t = schema.Date
	case "time":
		t = schema.Time
	case "datetime", "datetime2", "smalldatetime":
		t = schema.Timestamp
	case "datetimeoffset":
		t = schema.TimestampWithZone
	case "binary":
		t = schema.Binary
	case "varbinary", "image":
		t = schema.VarBinary
	}

	// (max) columns report a length of -1
	if info.Length.Valid && info.Length.Int64 < 0 {
		switch t {
		case schema.Varchar:
			t = schema.Clob
		case schema.NVarchar:
			t = schema.NClob
		}
	}
	c := column(info, t)
	switch strings.ToLower(info.DataType) {
	case "money":
		c = c.WithPrecision(19, 4)
	case "smallmoney":
		c = c.WithPrecision(10, 4)
	}
	return c
}
