package schema

import (
	"encoding/json"
	"testing"
)

// ---- LogicalType Tests ----

func TestParseLogicalType(t *testing.T) {
	tests := []struct {
		input string
		want  LogicalType
	}{
		{"integer", Integer},
		{"BIGINT", BigInt},
		{"timestamp with timezone", TimestampWithZone},
		{"TIME_WITH_TIMEZONE", TimeWithZone},
		{"numeric", Decimal},
		{" nvarchar ", NVarchar},
		{"text", Clob},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogicalType(tt.input)
			if err != nil {
				t.Fatalf("ParseLogicalType(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogicalType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseLogicalType("geometry"); err == nil {
		t.Error("ParseLogicalType(geometry) should fail")
	}
}

func TestLogicalTypeRoundTripsThroughName(t *testing.T) {
	for _, lt := range AllLogicalTypes() {
		got, err := ParseLogicalType(lt.String())
		if err != nil || got != lt {
			t.Errorf("ParseLogicalType(%s) = %v, %v", lt, got, err)
		}
	}
}

func TestFamilies(t *testing.T) {
	for _, lt := range AllLogicalTypes() {
		if lt.Family() == FamilyUnknown {
			t.Errorf("%s has no family", lt)
		}
	}
	if !Clob.IsUnboundedText() || Varchar.IsUnboundedText() {
		t.Error("unbounded text classification wrong")
	}
	if !TimeWithZone.IsTemporal() || Boolean.IsTemporal() {
		t.Error("temporal classification wrong")
	}
	if TinyInt.IntegerRank() >= BigInt.IntegerRank() {
		t.Error("integer ranks not ordered")
	}
}

func TestIntegerMetadata(t *testing.T) {
	tests := []struct {
		typ    LogicalType
		digits int
		width  int
	}{
		{TinyInt, 3, 4},
		{SmallInt, 5, 6},
		{Integer, 10, 11},
		{BigInt, 19, 20},
	}
	for _, tt := range tests {
		if got := tt.typ.DigitCount(); got != tt.digits {
			t.Errorf("%s.DigitCount() = %d, want %d", tt.typ, got, tt.digits)
		}
		if got := tt.typ.RenderedWidth(); got != tt.width {
			t.Errorf("%s.RenderedWidth() = %d, want %d", tt.typ, got, tt.width)
		}
	}
}

// ---- TypeSet Tests ----

func TestTypeSet(t *testing.T) {
	s := NewTypeSet(Integer, Double, Integer)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if !s.Has(Double) || s.Has(Boolean) {
		t.Errorf("membership wrong: %v", s)
	}
	if got := s.Intersect(NewTypeSet(Double, Boolean)); got != NewTypeSet(Double) {
		t.Errorf("Intersect = %v", got)
	}
	if got := s.Union(NewTypeSet(Boolean)).Len(); got != 3 {
		t.Errorf("Union len = %d, want 3", got)
	}
	if NewTypeSet(Unknown).Len() != 0 {
		t.Error("Unknown should not be added")
	}
	if only, ok := NewTypeSet(Date).Only(); !ok || only != Date {
		t.Errorf("Only = %v, %v", only, ok)
	}
}

func TestTypeSetJSON(t *testing.T) {
	s := NewTypeSet(Varchar, TinyInt)
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `["TINYINT","VARCHAR"]` {
		t.Errorf("Marshal = %s", b)
	}
	var back TypeSet
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != s {
		t.Errorf("Unmarshal = %v, want %v", back, s)
	}
}

// ---- Table Tests ----

func TestUniqueConstraintEqual(t *testing.T) {
	a := UniqueConstraint{Name: "a", Columns: []string{"id", "Region"}}
	b := UniqueConstraint{Name: "b", Columns: []string{"region", "ID"}}
	if !a.Equal(b) {
		t.Error("case-insensitive constraints with same columns should be equal")
	}

	a.CaseSensitive, b.CaseSensitive = true, true
	if a.Equal(b) {
		t.Error("case-sensitive constraints differ in case")
	}

	c := UniqueConstraint{Columns: []string{"id", "Region"}}
	if a.Equal(c) {
		t.Error("constraints with different case sensitivity should differ")
	}
}

func TestTableLookup(t *testing.T) {
	tbl := NewTable(TableName{Table: "t"}, []ColumnDefinition{
		NewColumn("ID", BigInt),
		NewColumn("name", Varchar),
	})

	if _, ok := tbl.Column("id"); !ok {
		t.Error("case-insensitive lookup failed")
	}
	tbl.CaseSensitive = true
	if _, ok := tbl.Column("id"); ok {
		t.Error("case-sensitive lookup should fail")
	}
	if got := tbl.Index("name"); got != 1 {
		t.Errorf("Index = %d, want 1", got)
	}
}

func TestTableValidate(t *testing.T) {
	tbl := NewTable(TableName{Table: "t"}, []ColumnDefinition{
		NewColumn("a", BigInt),
		NewColumn("A", BigInt),
	})
	if err := tbl.Validate(); err == nil {
		t.Error("duplicate columns should fail validation")
	}
	tbl.CaseSensitive = true
	if err := tbl.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestParseTableName(t *testing.T) {
	if got := ParseTableName("public.orders"); got != (TableName{Schema: "public", Table: "orders"}) {
		t.Errorf("ParseTableName = %+v", got)
	}
	if got := ParseTableName("orders").String(); got != "orders" {
		t.Errorf("String = %q", got)
	}
}

func TestDataRowValue(t *testing.T) {
	row := NewDataRow(3, "a", nil, 7)
	if row.Value(2) != 7 {
		t.Errorf("Value(2) = %v", row.Value(2))
	}
	if row.Value(5) != nil {
		t.Errorf("Value(5) = %v, want nil", row.Value(5))
	}
}
