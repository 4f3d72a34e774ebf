package schema

import (
	"github.com/shopspring/decimal"
)

// TypeModifier refines a LogicalType.
//
// MaxLength of 0 means unbounded or unset. Precision is the total number of
// significant digits for numeric types and a formatted-length proxy for
// temporal types. Scale is not required to be <= Precision.
type TypeModifier struct {
	MaxLength        int    `json:"max_length,omitempty"`
	Precision        int    `json:"precision,omitempty"`
	Scale            int    `json:"scale,omitempty"`
	Collation        string `json:"collation,omitempty"`          // textual types only
	ContainsNonASCII bool   `json:"contains_non_ascii,omitempty"` // observed, informational
	Nullable         bool   `json:"nullable"`
}

// NewTypeModifier returns a modifier for a nullable column with no bounds.
func NewTypeModifier() TypeModifier {
	return TypeModifier{Nullable: true}
}

// Column is satisfied by every column shape a TableDefinition can hold.
type Column interface {
	Definition() ColumnDefinition
}

// ColumnDefinition is the declared or inferred shape of a column. Identity is
// the name, compared according to the owning table's case sensitivity.
type ColumnDefinition struct {
	Name     string       `json:"name"`
	Type     LogicalType  `json:"type"`
	Modifier TypeModifier `json:"modifier"`
}

// NewColumn returns a nullable column of the given type.
func NewColumn(name string, t LogicalType) ColumnDefinition {
	return ColumnDefinition{Name: name, Type: t, Modifier: NewTypeModifier()}
}

// Definition implements Column.
func (c ColumnDefinition) Definition() ColumnDefinition { return c }

// WithLength returns a copy with MaxLength set.
func (c ColumnDefinition) WithLength(n int) ColumnDefinition {
	c.Modifier.MaxLength = n
	return c
}

// WithPrecision returns a copy with Precision and Scale set.
func (c ColumnDefinition) WithPrecision(precision, scale int) ColumnDefinition {
	c.Modifier.Precision = precision
	c.Modifier.Scale = scale
	return c
}

// SourceColumnDefinition is a column discovered in a source file. It carries
// the inference metadata gathered over the sample window.
//
// A source column starts with only Name and Ordinal. PossibleTypes and the
// modifier statistics are filled while sampling; once Type is set the column
// is frozen and must not be changed.
type SourceColumnDefinition struct {
	ColumnDefinition

	Ordinal       int              `json:"ordinal"`
	PossibleTypes TypeSet          `json:"possible_types"`
	Min           *decimal.Decimal `json:"min,omitempty"`
	Max           *decimal.Decimal `json:"max,omitempty"`
	ContainsEmpty bool             `json:"contains_empty,omitempty"`
}

// NewSourceColumn returns an undetermined source column.
func NewSourceColumn(ordinal int, name string) SourceColumnDefinition {
	return SourceColumnDefinition{
		ColumnDefinition: ColumnDefinition{Name: name, Modifier: NewTypeModifier()},
		Ordinal:          ordinal,
	}
}

// SourceOf wraps a plain column definition as a source column at ordinal 0
// with the column's own type as the only possible type.
func SourceOf(c ColumnDefinition) SourceColumnDefinition {
	return SourceColumnDefinition{
		ColumnDefinition: c,
		PossibleTypes:    NewTypeSet(c.Type),
	}
}

// Determined reports whether the column type has been frozen.
func (c SourceColumnDefinition) Determined() bool {
	return c.Type.Valid()
}

// WithRange returns a copy with the observed extrema set.
func (c SourceColumnDefinition) WithRange(min, max decimal.Decimal) SourceColumnDefinition {
	c.Min = &min
	c.Max = &max
	return c
}

// CompareColumnResult is the outcome of comparing a source column with a
// destination column.
type CompareColumnResult struct {
	// TypeMatched is true when the destination type is the canonical,
	// semantically identical target of the source type.
	TypeMatched bool `json:"type_matched"`
	// CanLoadDataFrom is true when every value of the source shape fits the
	// destination without truncation or overflow.
	CanLoadDataFrom bool `json:"can_load_data_from"`
}

// Result builders used by the comparators.
var (
	Matched      = CompareColumnResult{TypeMatched: true, CanLoadDataFrom: true}
	LoadableOnly = CompareColumnResult{TypeMatched: false, CanLoadDataFrom: true}
	Incompatible = CompareColumnResult{}
)

// MatchedIf returns a type-matched result whose loadability is ok.
func MatchedIf(ok bool) CompareColumnResult {
	return CompareColumnResult{TypeMatched: true, CanLoadDataFrom: ok}
}

// LoadableIf returns an unmatched result whose loadability is ok.
func LoadableIf(ok bool) CompareColumnResult {
	return CompareColumnResult{CanLoadDataFrom: ok}
}
