package infer

// reduce.go turns a column's accumulated possible types into one declared
// type. Every reducer is a pure function of the set (and, for text, of the
// non-ASCII flag), so the result does not depend on iteration order.

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// Strategy selects a reducer.
type Strategy int

const (
	// Basic widens mixed numeric columns to DOUBLE or BIGINT and unknown
	// content to CLOB.
	Basic Strategy = iota
	// Most keeps the most specific family (integers stay integers, dates
	// stay dates) and picks its widest member.
	Most
	// Least keeps the most specific family and picks its narrowest member,
	// with bounded text for textual columns.
	Least
)

func (s Strategy) String() string {
	switch s {
	case Basic:
		return "basic"
	case Most:
		return "most"
	case Least:
		return "least"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy parses a strategy name. The empty string is Basic.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic":
		return Basic, nil
	case "most":
		return Most, nil
	case "least":
		return Least, nil
	}
	return Basic, fmt.Errorf("unknown inference strategy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	parsed, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Reducer decides a column type from its possible types.
type Reducer interface {
	Reduce(types schema.TypeSet, mod schema.TypeModifier) schema.LogicalType
}

// ReducerFunc adapts a function to Reducer.
type ReducerFunc func(schema.TypeSet, schema.TypeModifier) schema.LogicalType

// Reduce implements Reducer.
func (f ReducerFunc) Reduce(types schema.TypeSet, mod schema.TypeModifier) schema.LogicalType {
	return f(types, mod)
}

// ReducerFor returns the reducer for a strategy.
func ReducerFor(s Strategy) Reducer {
	switch s {
	case Most:
		return ReducerFunc(reduceMost)
	case Least:
		return ReducerFunc(reduceLeast)
	default:
		return ReducerFunc(reduceBasic)
	}
}

// Reduce applies the Basic strategy.
func Reduce(types schema.TypeSet) schema.LogicalType {
	return reduceBasic(types, schema.TypeModifier{})
}

func reduceBasic(types schema.TypeSet, _ schema.TypeModifier) schema.LogicalType {
	if types.IsEmpty() {
		return schema.Clob
	}
	if only, ok := types.Only(); ok {
		return only
	}
	switch {
	case types.HasAny(schema.Double, schema.Float, schema.Decimal):
		return schema.Double
	case types.HasAny(schema.Integer, schema.BigInt):
		return schema.BigInt
	case types.Has(schema.Boolean):
		return schema.Boolean
	case types.Has(schema.Timestamp):
		return schema.Timestamp
	default:
		return schema.Clob
	}
}

var (
	integerMembers = []schema.LogicalType{schema.TinyInt, schema.SmallInt, schema.Integer, schema.BigInt}
	floatMembers   = []schema.LogicalType{schema.Float, schema.Double, schema.Decimal}
)

// familyChoice applies the precedence shared by Most and Least. widest picks
// the last present member of an ordered family, otherwise the first.
func familyChoice(types schema.TypeSet, widest bool) (schema.LogicalType, bool) {
	pick := func(ordered []schema.LogicalType) schema.LogicalType {
		if widest {
			for i := len(ordered) - 1; i >= 0; i-- {
				if types.Has(ordered[i]) {
					return ordered[i]
				}
			}
		}
		for _, t := range ordered {
			if types.Has(t) {
				return t
			}
		}
		return schema.Unknown
	}

	switch {
	case types.HasAny(integerMembers...):
		return pick(integerMembers), true
	case types.HasAny(floatMembers...):
		return pick(floatMembers), true
	case types.Has(schema.Boolean):
		return schema.Boolean, true
	case types.HasAny(schema.Timestamp, schema.TimestampWithZone):
		return schema.TimestampWithZone, true
	case types.Has(schema.Date):
		return schema.Date, true
	case types.HasAny(schema.Time, schema.TimeWithZone):
		return schema.TimeWithZone, true
	}
	return schema.Unknown, false
}

func reduceMost(types schema.TypeSet, mod schema.TypeModifier) schema.LogicalType {
	text := schema.Clob
	if mod.ContainsNonASCII {
		text = schema.NClob
	}
	if types.IsEmpty() {
		return text
	}
	if only, ok := types.Only(); ok {
		return only
	}
	if t, ok := familyChoice(types, true); ok {
		return t
	}
	if types.HasAny(schema.Char, schema.Varchar, schema.Clob, schema.NChar, schema.NVarchar, schema.NClob) {
		return text
	}
	return schema.VarBinary
}

func reduceLeast(types schema.TypeSet, mod schema.TypeModifier) schema.LogicalType {
	text := schema.Varchar
	if mod.ContainsNonASCII {
		text = schema.NVarchar
	}
	if types.IsEmpty() {
		return text
	}
	if only, ok := types.Only(); ok {
		return only
	}
	if t, ok := familyChoice(types, false); ok {
		return t
	}
	if types.HasAny(schema.Char, schema.Varchar, schema.Clob, schema.NChar, schema.NVarchar, schema.NClob) {
		return text
	}
	return schema.VarBinary
}
