package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/shopspring/decimal"
)

// Materialize converts a raw reader cell into the typed representation of
// the source column's own type: a textual cell of an inferred BIGINT column
// becomes an int64. Blank text in a non-textual column becomes nil. Custom
// layouts apply when parsing temporal text.
func Materialize(raw any, src schema.SourceColumnDefinition, layouts timefmt.Layouts) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok {
		if src.Type.IsTextual() {
			return s, nil
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
	}
	from := schema.SourceOf(schema.NewColumn(src.Name, naturalType(raw, src.Type)))
	return Transform(raw, from, src.ColumnDefinition, layouts.Extra(src.Type)...)
}

// naturalType is the logical type a Go value arrives as from a reader.
func naturalType(raw any, column schema.LogicalType) schema.LogicalType {
	switch raw.(type) {
	case string:
		return schema.NClob
	case bool:
		return schema.Boolean
	case int8:
		return schema.TinyInt
	case int16, uint8:
		return schema.SmallInt
	case int32, uint16:
		return schema.Integer
	case int64, int, uint32:
		return schema.BigInt
	case float32:
		return schema.Float
	case float64:
		return schema.Double
	case decimal.Decimal:
		return schema.Decimal
	case []byte:
		return schema.VarBinary
	case time.Time:
		if column.IsTemporal() {
			return column
		}
		return schema.TimestampWithZone
	}
	return schema.Unknown
}

// Pair maps a source column to the destination column its values are
// written to.
type Pair struct {
	Source      schema.SourceColumnDefinition
	Destination schema.ColumnDefinition
	Extra       []string
}

// NewPair builds a pair whose extra arguments carry the custom layout that
// applies to it: the destination's when parsing text into a temporal
// column, the source's when rendering a temporal value as text.
func NewPair(src schema.SourceColumnDefinition, dst schema.ColumnDefinition, layouts timefmt.Layouts) Pair {
	p := Pair{Source: src, Destination: dst}
	switch {
	case src.Type.IsTextual() && dst.Type.IsTemporal():
		p.Extra = layouts.Extra(dst.Type)
	case src.Type.IsTemporal() && dst.Type.IsTextual():
		p.Extra = layouts.Extra(src.Type)
	}
	return p
}

// CellError wraps the failure of one cell of a row.
type CellError struct {
	Row    int64
	Index  int
	Column string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// Row transforms the cells named by pairs into destination order. The first
// failing cell is returned as a *CellError.
func Row(row schema.DataRow, pairs []Pair) ([]any, error) {
	out := make([]any, len(pairs))
	for i, p := range pairs {
		v, err := Transform(row.Value(p.Source.Ordinal), p.Source, p.Destination, p.Extra...)
		if err != nil {
			return nil, &CellError{Row: row.RowNo, Index: p.Source.Ordinal, Column: p.Destination.Name, Err: err}
		}
		out[i] = v
	}
	return out, nil
}
