package dialect

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// Oracle is the Oracle Database dialect. Identifiers are folded to upper
// case, which is how Oracle stores unquoted names.
type Oracle struct{}

func (Oracle) Name() string { return "oracle" }

func (Oracle) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, DATA_TYPE, CHAR_LENGTH, DATA_PRECISION, DATA_SCALE,
	CASE NULLABLE WHEN 'Y' THEN 'YES' ELSE 'NO' END
FROM ALL_TAB_COLUMNS
WHERE OWNER = NVL(UPPER(:1), USER) AND TABLE_NAME = UPPER(:2)
ORDER BY COLUMN_ID`
}

func (Oracle) ConstraintsQuery() string {
	return `SELECT c.CONSTRAINT_NAME,
	CASE c.CONSTRAINT_TYPE WHEN 'P' THEN 'PRIMARY KEY' ELSE 'UNIQUE' END,
	cc.COLUMN_NAME
FROM ALL_CONSTRAINTS c
JOIN ALL_CONS_COLUMNS cc ON cc.OWNER = c.OWNER AND cc.CONSTRAINT_NAME = c.CONSTRAINT_NAME
WHERE c.OWNER = NVL(UPPER(:1), USER) AND c.TABLE_NAME = UPPER(:2)
	AND c.CONSTRAINT_TYPE IN ('P', 'U')
ORDER BY c.CONSTRAINT_NAME, cc.POSITION`
}

func (Oracle) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(name), `"`, `""`) + `"`
}

func (Oracle) Placeholder(index int) string { return fmt.Sprintf(":%d", index+1) }

func (Oracle) TruncateSQL(table string) string { return "TRUNCATE TABLE " + table }

// Savepoint has no release statement in Oracle.
func (Oracle) Savepoint(name string) (string, string, string) {
	return "SAVEPOINT " + name, "ROLLBACK TO SAVEPOINT " + name, ""
}

func (d Oracle) NativeType(c schema.ColumnDefinition) (string, error) {
	m := c.Modifier
	switch c.Type {
	case schema.TinyInt:
		return "NUMBER(3)", nil
	case schema.SmallInt:
		return "NUMBER(5)", nil
	case schema.Integer:
		return "NUMBER(10)", nil
	case schema.BigInt:
		return "NUMBER(19)", nil
	case schema.Float:
		return "BINARY_FLOAT", nil
	case schema.Double:
		return "BINARY_DOUBLE", nil
	case schema.Decimal:
		if m.Precision > 38 {
			return "", unsupported(d, c.Type)
		}
		return numeric("NUMBER", m), nil
	case schema.Boolean:
		return "NUMBER(1)", nil
	case schema.Char:
		return fmt.Sprintf("CHAR(%d CHAR)", defaultLength(m.MaxLength, 1)), nil
	case schema.NChar:
		return sized("NCHAR", m.MaxLength), nil
	case schema.Varchar:
		return fmt.Sprintf("VARCHAR2(%d CHAR)", defaultLength(m.MaxLength, 4000)), nil
	case schema.NVarchar:
		return sized("NVARCHAR2", defaultLength(m.MaxLength, 2000)), nil
	case schema.Clob:
		return "CLOB", nil
	case schema.NClob:
		return "NCLOB", nil
	case schema.Date:
		return "DATE", nil
	case schema.Timestamp:
		return "TIMESTAMP", nil
	case schema.TimestampWithZone:
		return "TIMESTAMP WITH TIME ZONE", nil
	case schema.Binary:
		if m.MaxLength > 0 && m.MaxLength <= 2000 {
			return sized("RAW", m.MaxLength), nil
		}
		return "BLOB", nil
	case schema.VarBinary:
		return "BLOB", nil
	}
	return "", unsupported(d, c.Type)
}

func (Oracle) ParseColumn(info ColumnInfo) schema.ColumnDefinition {
	dt := strings.ToUpper(info.DataType)
	var t schema.LogicalType
	switch {
	case dt == "NUMBER" || dt == "INTEGER":
		t = oracleNumber(info)
	case dt == "FLOAT" || dt == "BINARY_DOUBLE":
		t = schema.Double
	case dt == "BINARY_FLOAT":
		t = schema.Float
	case dt == "CHAR":
		t = schema.Char
	case dt == "VARCHAR2" || dt == "VARCHAR":
		t = schema.Varchar
	case dt == "NCHAR":
		t = schema.NChar
	case dt == "NVARCHAR2":
		t = schema.NVarchar
	case dt == "CLOB" || dt == "LONG":
		t = schema.Clob
	case dt == "NCLOB":
		t = schema.NClob
	case dt == "DATE":
		// Oracle DATE carries a time of day
		t = schema.Timestamp
	case strings.HasPrefix(dt, "TIMESTAMP") && strings.HasSuffix(dt, "TIME ZONE"):
		t = schema.TimestampWithZone
	case strings.HasPrefix(dt, "TIMESTAMP"):
		t = schema.Timestamp
	case dt == "RAW":
		t = schema.Binary
	case dt == "BLOB" || dt == "LONG RAW":
		t = schema.VarBinary
	}
	return column(info, t)
}

// oracleNumber maps NUMBER(p,s) onto the narrowest logical type that holds
// every value of the column.
func oracleNumber(info ColumnInfo) schema.LogicalType {
	if !info.Precision.Valid || (info.Scale.Valid && info.Scale.Int64 != 0) {
		return schema.Decimal
	}
	switch p := info.Precision.Int64; {
	case p <= 2:
		return schema.TinyInt
	case p <= 4:
		return schema.SmallInt
	case p <= 9:
		return schema.Integer
	case p <= 18:
		return schema.BigInt
	}
	return schema.Decimal
}
