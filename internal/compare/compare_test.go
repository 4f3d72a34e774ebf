package compare

import (
	"errors"
	"testing"

	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func src(t schema.LogicalType) schema.SourceColumnDefinition {
	return schema.SourceOf(schema.NewColumn("src", t))
}

func dst(t schema.LogicalType) schema.ColumnDefinition {
	return schema.NewColumn("dst", t)
}

var (
	matched      = schema.CompareColumnResult{TypeMatched: true, CanLoadDataFrom: true}
	matchedOnly  = schema.CompareColumnResult{TypeMatched: true, CanLoadDataFrom: false}
	loadableOnly = schema.CompareColumnResult{TypeMatched: false, CanLoadDataFrom: true}
	neither      = schema.CompareColumnResult{}
)

// ---- Boolean Source Tests ----

func TestBooleanSource(t *testing.T) {
	for _, d := range []schema.LogicalType{schema.TinyInt, schema.SmallInt, schema.Integer, schema.BigInt, schema.Boolean} {
		assert.Equal(t, matched, Column(src(schema.Boolean), dst(d)), "BOOLEAN -> %s", d)
	}
	for _, d := range []schema.LogicalType{schema.Date, schema.Time, schema.Timestamp} {
		assert.Equal(t, neither, Column(src(schema.Boolean), dst(d)), "BOOLEAN -> %s", d)
	}
	for _, d := range []schema.LogicalType{schema.Clob, schema.Char, schema.NVarchar} {
		assert.Equal(t, loadableOnly, Column(src(schema.Boolean), dst(d)), "BOOLEAN -> %s", d)
	}
}

// ---- Integer Source Tests ----

func TestIntegerToInteger(t *testing.T) {
	assert.Equal(t, matched, Column(src(schema.TinyInt), dst(schema.BigInt)))
	assert.Equal(t, matched, Column(src(schema.Integer), dst(schema.Integer)))
	assert.Equal(t, matchedOnly, Column(src(schema.BigInt), dst(schema.SmallInt)))
}

func TestIntegerToFloating(t *testing.T) {
	tests := []struct {
		name      string
		src       schema.LogicalType
		dst       schema.ColumnDefinition
		wantLoad  bool
	}{
		{"tinyint decimal(2,1)", schema.TinyInt, dst(schema.Decimal).WithPrecision(2, 1), false},
		{"tinyint decimal(3,0)", schema.TinyInt, dst(schema.Decimal).WithPrecision(3, 0), true},
		{"smallint decimal(5,0)", schema.SmallInt, dst(schema.Decimal).WithPrecision(5, 0), true},
		{"integer decimal(3,0)", schema.Integer, dst(schema.Decimal).WithPrecision(3, 0), false},
		{"bigint decimal(10,0)", schema.BigInt, dst(schema.Decimal).WithPrecision(10, 0), false},
		{"bigint decimal(21,2)", schema.BigInt, dst(schema.Decimal).WithPrecision(21, 2), true},
		{"bigint double", schema.BigInt, dst(schema.Double), false},
		{"bigint float", schema.BigInt, dst(schema.Float), false},
		{"integer float", schema.Integer, dst(schema.Float), false},
		{"integer double", schema.Integer, dst(schema.Double), true},
		{"smallint float", schema.SmallInt, dst(schema.Float), true},
		{"bigint unbounded decimal", schema.BigInt, dst(schema.Decimal), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Column(src(tt.src), tt.dst)
			assert.False(t, got.TypeMatched)
			assert.Equal(t, tt.wantLoad, got.CanLoadDataFrom)
		})
	}
}

func TestIntegerToText(t *testing.T) {
	tests := []struct {
		src  schema.LogicalType
		dst  schema.ColumnDefinition
		want schema.CompareColumnResult
	}{
		{schema.BigInt, dst(schema.Clob), loadableOnly},
		{schema.TinyInt, dst(schema.NClob), loadableOnly},
		{schema.TinyInt, dst(schema.Char).WithLength(4), loadableOnly},
		{schema.TinyInt, dst(schema.Char).WithLength(3), neither},
		{schema.SmallInt, dst(schema.Varchar).WithLength(6), loadableOnly},
		{schema.Integer, dst(schema.Varchar).WithLength(10), neither},
		{schema.Integer, dst(schema.NVarchar).WithLength(11), loadableOnly},
		{schema.BigInt, dst(schema.Varchar).WithLength(20), loadableOnly},
		{schema.BigInt, dst(schema.Varchar), neither},
	}

	for _, tt := range tests {
		got := Column(src(tt.src), tt.dst)
		assert.Equal(t, tt.want, got, "%s -> %s(%d)", tt.src, tt.dst.Type, tt.dst.Modifier.MaxLength)
	}
}

func TestIntegerToTemporalAndBoolean(t *testing.T) {
	for _, d := range []schema.LogicalType{schema.Date, schema.Time, schema.TimestampWithZone, schema.Boolean, schema.VarBinary} {
		assert.Equal(t, neither, Column(src(schema.Integer), dst(d)), "INTEGER -> %s", d)
	}
}

// ---- Floating Source Tests ----

func floatSrc(t schema.LogicalType, precision, scale int) schema.SourceColumnDefinition {
	c := src(t)
	c.Modifier.Precision = precision
	c.Modifier.Scale = scale
	return c
}

func TestFloatingToFloating(t *testing.T) {
	tests := []struct {
		name string
		src  schema.SourceColumnDefinition
		dst  schema.ColumnDefinition
		want schema.CompareColumnResult
	}{
		{"widening decimal", floatSrc(schema.Double, 5, 2), dst(schema.Decimal).WithPrecision(7, 3), matched},
		{"integral digits short", floatSrc(schema.Double, 5, 2), dst(schema.Decimal).WithPrecision(4, 2), matchedOnly},
		{"scale short", floatSrc(schema.Decimal, 6, 3), dst(schema.Decimal).WithPrecision(10, 2), matchedOnly},
		{"unknown source precision into bounded", floatSrc(schema.Double, 0, 0), dst(schema.Decimal).WithPrecision(38, 10), matchedOnly},
		{"float to double", floatSrc(schema.Float, 0, 0), dst(schema.Double), matched},
		{"double to float", floatSrc(schema.Double, 0, 0), dst(schema.Float), matchedOnly},
		{"small double to float", floatSrc(schema.Double, 6, 2), dst(schema.Float), matched},
		{"decimal to double", floatSrc(schema.Decimal, 10, 2), dst(schema.Double), matched},
		{"wide decimal to double", floatSrc(schema.Decimal, 20, 2), dst(schema.Double), matchedOnly},
		{"float to unbounded decimal", floatSrc(schema.Float, 0, 0), dst(schema.Decimal), matched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Column(tt.src, tt.dst))
		})
	}
}

func TestFloatingToOthers(t *testing.T) {
	s := floatSrc(schema.Double, 5, 2)

	assert.Equal(t, loadableOnly, Column(s, dst(schema.Clob)))
	assert.Equal(t, loadableOnly, Column(s, dst(schema.Varchar).WithLength(7)))
	assert.Equal(t, neither, Column(s, dst(schema.Varchar).WithLength(6)))
	assert.Equal(t, neither, Column(floatSrc(schema.Double, 0, 0), dst(schema.Varchar).WithLength(100)))

	for _, d := range []schema.LogicalType{schema.TinyInt, schema.BigInt, schema.Date, schema.Timestamp} {
		assert.Equal(t, neither, Column(s, dst(d)), "DOUBLE -> %s", d)
	}
}

// ---- Temporal Source Tests ----

func TestTemporalSource(t *testing.T) {
	assert.Equal(t, matched, Column(src(schema.Date), dst(schema.Date)))
	assert.Equal(t, matched, Column(src(schema.Timestamp), dst(schema.TimestampWithZone)))
	assert.Equal(t, matched, Column(src(schema.Time), dst(schema.TimeWithZone)))
	assert.Equal(t, loadableOnly, Column(src(schema.Date), dst(schema.Timestamp)))
	assert.Equal(t, neither, Column(src(schema.Timestamp), dst(schema.Date)))
	assert.Equal(t, neither, Column(src(schema.Date), dst(schema.Time)))

	for _, d := range []schema.LogicalType{schema.Integer, schema.Double, schema.Boolean} {
		assert.Equal(t, neither, Column(src(schema.Date), dst(d)), "DATE -> %s", d)
		assert.Equal(t, neither, Column(src(schema.Timestamp), dst(d)), "TIMESTAMP -> %s", d)
	}
}

func TestTemporalToText(t *testing.T) {
	assert.Equal(t, loadableOnly, Column(src(schema.Date), dst(schema.Clob)))
	assert.Equal(t, loadableOnly, Column(src(schema.Timestamp), dst(schema.NClob)))
	assert.Equal(t, loadableOnly, Column(src(schema.Date), dst(schema.Varchar).WithLength(10)))
	assert.Equal(t, neither, Column(src(schema.Date), dst(schema.Char).WithLength(9)))
	assert.Equal(t, loadableOnly, Column(src(schema.Time), dst(schema.NChar).WithLength(18)))
	assert.Equal(t, neither, Column(src(schema.TimestampWithZone), dst(schema.Varchar).WithLength(30)))
	assert.Equal(t, loadableOnly, Column(src(schema.TimestampWithZone), dst(schema.Varchar).WithLength(35)))

	compact := WithLayouts(timefmt.Layouts{Date: "20060102"})
	assert.Equal(t, loadableOnly, Column(src(schema.Date), dst(schema.Varchar).WithLength(8), compact))
}

// ---- Textual Source Tests ----

func textSrc(t schema.LogicalType, maxLen int) schema.SourceColumnDefinition {
	c := src(t)
	c.Modifier.MaxLength = maxLen
	return c
}

func TestTextToText(t *testing.T) {
	assert.Equal(t, matched, Column(textSrc(schema.Clob, 0), dst(schema.Clob)))
	assert.Equal(t, matched, Column(textSrc(schema.NClob, 0), dst(schema.Clob)))
	assert.Equal(t, matchedOnly, Column(textSrc(schema.Clob, 0), dst(schema.Varchar).WithLength(4000)))
	assert.Equal(t, matched, Column(textSrc(schema.Varchar, 10), dst(schema.NClob)))
	assert.Equal(t, matched, Column(textSrc(schema.Varchar, 10), dst(schema.Char).WithLength(10)))
	assert.Equal(t, matchedOnly, Column(textSrc(schema.Varchar, 10), dst(schema.Char).WithLength(5)))
}

func TestBoundedTextLengthRule(t *testing.T) {
	bounded := []schema.LogicalType{schema.Char, schema.Varchar, schema.NChar, schema.NVarchar}
	for _, s := range bounded {
		for _, d := range bounded {
			for l1 := 0; l1 <= 12; l1++ {
				for l2 := 0; l2 <= 12; l2++ {
					got := Column(textSrc(s, l1), dst(d).WithLength(l2))
					require.Equal(t, l2 >= l1, got.CanLoadDataFrom, "%s(%d) -> %s(%d)", s, l1, d, l2)
					require.True(t, got.TypeMatched)
				}
			}
		}
	}
}

func sampled(values ...string) schema.SourceColumnDefinition {
	acc := infer.NewAccumulator(0, "sampled")
	for _, v := range values {
		acc = acc.Observe(v)
	}
	return acc.FreezeAs(schema.Varchar)
}

func TestTextToTypedDestinations(t *testing.T) {
	small := sampled("-5", "100", "7")
	assert.Equal(t, loadableOnly, Column(small, dst(schema.TinyInt)))
	assert.Equal(t, loadableOnly, Column(small, dst(schema.BigInt)))

	wide := sampled("-5", "300")
	assert.Equal(t, neither, Column(wide, dst(schema.TinyInt)))
	assert.Equal(t, loadableOnly, Column(wide, dst(schema.SmallInt)))

	fractional := sampled("1.25", "10.5")
	assert.Equal(t, neither, Column(fractional, dst(schema.Integer)))
	assert.Equal(t, loadableOnly, Column(fractional, dst(schema.Double)))
	assert.Equal(t, loadableOnly, Column(fractional, dst(schema.Decimal).WithPrecision(6, 2)))
	assert.Equal(t, neither, Column(fractional, dst(schema.Decimal).WithPrecision(6, 1)))

	noExtrema := textSrc(schema.Varchar, 10)
	assert.Equal(t, neither, Column(noExtrema, dst(schema.Integer)))
	assert.Equal(t, neither, Column(noExtrema, dst(schema.Double)))

	assert.Equal(t, loadableOnly, Column(sampled("yes", "N"), dst(schema.Boolean)))
	assert.Equal(t, neither, Column(sampled("yes", "maybe"), dst(schema.Boolean)))
	assert.Equal(t, loadableOnly, Column(sampled("2024-01-01"), dst(schema.Date)))
	assert.Equal(t, loadableOnly, Column(sampled("10:15:00"), dst(schema.TimeWithZone)))
	assert.Equal(t, loadableOnly, Column(sampled("2024-01-01T10:00:00Z"), dst(schema.Timestamp)))
	assert.Equal(t, neither, Column(sampled("2024-01-01"), dst(schema.Timestamp)))
	assert.Equal(t, neither, Column(sampled("abc"), dst(schema.VarBinary)))
}

// ---- Binary Source Tests ----

func TestBinarySource(t *testing.T) {
	s := textSrc(schema.VarBinary, 10)
	assert.Equal(t, matched, Column(s, dst(schema.VarBinary)))
	assert.Equal(t, matched, Column(s, dst(schema.Binary).WithLength(16)))
	assert.Equal(t, matchedOnly, Column(s, dst(schema.Binary).WithLength(5)))
	assert.Equal(t, loadableOnly, Column(s, dst(schema.Clob)))
	assert.Equal(t, neither, Column(s, dst(schema.Varchar).WithLength(100)))
	assert.Equal(t, neither, Column(s, dst(schema.Integer)))
}

// ---- Totality Tests ----

func TestEveryPairHasAnAnswer(t *testing.T) {
	for _, s := range schema.AllLogicalTypes() {
		for _, d := range schema.AllLogicalTypes() {
			got := Column(src(s), dst(d))
			again := Column(src(s), dst(d))
			require.Equal(t, got, again, "%s -> %s not deterministic", s, d)

			if got.TypeMatched && s.Family() != d.Family() {
				require.True(t, s == schema.Boolean && d.IsInteger(),
					"%s -> %s matched across families", s, d)
			}
		}
	}
	assert.Equal(t, neither, Column(src(schema.Unknown), dst(schema.Clob)))
}

// ---- Table Comparison Tests ----

func TestTables(t *testing.T) {
	source := schema.NewTable(schema.TableName{Table: "file"}, []schema.SourceColumnDefinition{
		src(schema.BigInt),
		textSrc(schema.Varchar, 10),
		src(schema.Date),
	})
	source.Columns[0].Name = "id"
	source.Columns[1].Name = "name"
	source.Columns[2].Name = "created"

	dest := schema.NewTable(schema.TableName{Table: "t"}, []schema.ColumnDefinition{
		schema.NewColumn("ID", schema.BigInt),
		schema.NewColumn("name", schema.Varchar).WithLength(5),
		schema.NewColumn("extra", schema.Boolean),
	})

	cmp := Tables(source, dest)
	require.Len(t, cmp.Pairs, 2)
	require.Len(t, cmp.Missing, 1)
	require.Len(t, cmp.Superfluous, 1)
	assert.Equal(t, "created", cmp.Missing[0].Name)
	assert.Equal(t, "extra", cmp.Superfluous[0].Name)
	assert.Len(t, cmp.MayTruncate(), 1)
	assert.Empty(t, cmp.TypeConflicts())
	assert.False(t, cmp.SameSchema())
	assert.False(t, cmp.Identical())

	dest.CaseSensitive = true
	cmp = Tables(source, dest)
	assert.Len(t, cmp.Missing, 2, "ID does not match id case-sensitively")
}

func TestTablesIdentical(t *testing.T) {
	a := src(schema.Integer)
	a.Name = "a"
	source := schema.NewTable(schema.TableName{}, []schema.SourceColumnDefinition{a})
	dest := schema.NewTable(schema.TableName{}, []schema.ColumnDefinition{schema.NewColumn("a", schema.BigInt)})

	cmp := Tables(source, dest)
	assert.True(t, cmp.SameSchema())
	assert.True(t, cmp.Identical())
	assert.True(t, cmp.Loadable())

	dest.Columns[0].Type = schema.Clob
	cmp = Tables(source, dest)
	assert.False(t, cmp.Identical())
	assert.True(t, cmp.Loadable())
}

// ---- Unique Constraint Tests ----

func TestCheckUnique(t *testing.T) {
	cols := []schema.SourceColumnDefinition{
		schema.NewSourceColumn(0, "id"),
		schema.NewSourceColumn(1, "region"),
	}
	rows := []schema.DataRow{
		schema.NewDataRow(0, int64(1), "eu"),
		schema.NewDataRow(1, int64(2), "eu"),
		schema.NewDataRow(2, int64(1), "eu"),
		schema.NewDataRow(3, int64(1), "us"),
		schema.NewDataRow(4, int64(1), "eu"),
		schema.NewDataRow(5, nil, "eu"),
		schema.NewDataRow(6, nil, "eu"),
	}
	pk := schema.UniqueConstraint{Name: "pk", Columns: []string{"ID", "Region"}}

	conflicts, err := CheckUnique([]schema.UniqueConstraint{pk}, cols, rows)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, []int64{0, 2, 4}, conflicts[0].Rows)

	pk.CaseSensitive = true
	_, err = CheckUnique([]schema.UniqueConstraint{pk}, cols, rows)
	assert.Error(t, err)
}

func TestUniqueCheckerReturnsConflict(t *testing.T) {
	checker, err := NewUniqueChecker(schema.UniqueConstraint{Name: "u", Columns: []string{"k"}}, []schema.SourceColumnDefinition{schema.NewSourceColumn(0, "k")})
	require.NoError(t, err)

	require.NoError(t, checker.Check(schema.NewDataRow(0, decimal.NewFromInt(5))))
	err = checker.Check(schema.NewDataRow(1, decimal.NewFromInt(5)))

	var conflict *UniqueConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, []int64{0, 1}, conflict.Rows)
}
