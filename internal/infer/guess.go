package infer

// guess.go computes, for a single cell, every logical type the value can be
// represented as. A column's possible types are the combination of these sets
// over the sample window.

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/shopspring/decimal"
)

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var (
	maxDouble = decimal.NewFromFloat(math.MaxFloat64)
	maxFloat  = decimal.NewFromFloat(math.MaxFloat32)
)

var (
	nationalText = schema.NewTypeSet(schema.NClob, schema.NVarchar, schema.NChar)
	asciiText    = schema.NewTypeSet(schema.Clob, schema.Varchar, schema.Char)
	binaryTypes  = schema.NewTypeSet(schema.Binary, schema.VarBinary)
)

// Boolean spellings, matched case-insensitively.
var (
	TrueWords  = []string{"true", "t", "yes", "y"}
	FalseWords = []string{"false", "f", "no", "n"}
)

// ParseBoolWord reports the boolean a word stands for. ok is false when the
// word is not one of TrueWords or FalseWords.
func ParseBoolWord(s string) (value, ok bool) {
	s = strings.TrimSpace(s)
	for _, w := range TrueWords {
		if strings.EqualFold(w, s) {
			return true, true
		}
	}
	for _, w := range FalseWords {
		if strings.EqualFold(w, s) {
			return false, true
		}
	}
	return false, false
}

// IsASCII reports whether s contains only 7-bit characters.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// ParseNumber parses a plain or scientific numeric literal. A leading plus
// sign is accepted.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// GuessTypes returns the set of logical types raw can be stored as. A blank
// value returns the empty set.
func GuessTypes(raw string) schema.TypeSet {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0
	}

	s := nationalText
	if IsASCII(v) {
		s = s.Union(asciiText)
	}
	s = s.Union(integerTypes(v)).Union(floatingTypes(v))
	if _, ok := ParseBoolWord(v); ok {
		s = s.Add(schema.Boolean)
	}
	return s.Union(temporalTypes(v))
}

func integerTypes(v string) schema.TypeSet {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return integerTypesOf(n)
}

func integerTypesOf(n int64) schema.TypeSet {
	var s schema.TypeSet
	for _, t := range []schema.LogicalType{schema.TinyInt, schema.SmallInt, schema.Integer, schema.BigInt} {
		lo, hi, _ := t.IntegerBounds()
		if n >= lo && n <= hi {
			s = s.Add(t)
		}
	}
	return s
}

func floatingTypes(v string) schema.TypeSet {
	d, ok := ParseNumber(v)
	if !ok {
		return 0
	}
	return floatingTypesOf(d)
}

func floatingTypesOf(d decimal.Decimal) schema.TypeSet {
	s := schema.NewTypeSet(schema.Decimal)
	abs := d.Abs()
	if abs.LessThanOrEqual(maxDouble) {
		s = s.Add(schema.Double)
	}
	if abs.LessThanOrEqual(maxFloat) {
		s = s.Add(schema.Float)
	}
	return s
}

func temporalTypes(v string) schema.TypeSet {
	var s schema.TypeSet
	if timefmt.IsTimestamp(v) {
		s = s.Add(schema.Timestamp).Add(schema.TimestampWithZone)
	}
	if timefmt.IsDate(v) {
		s = s.Add(schema.Date)
	}
	if timefmt.IsTime(v) {
		s = s.Add(schema.Time).Add(schema.TimeWithZone)
	}
	return s
}

// GuessValue is GuessTypes for cells that arrive already typed, as they do
// from columnar sources.
func GuessValue(v any) schema.TypeSet {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return GuessTypes(x)
	case []byte:
		return binaryTypes
	case bool:
		return asciiText.Union(nationalText).Add(schema.Boolean)
	case int8:
		return numericText().Union(integerTypesOf(int64(x)))
	case int16:
		return numericText().Union(integerTypesOf(int64(x)))
	case int32:
		return numericText().Union(integerTypesOf(int64(x)))
	case int64:
		return numericText().Union(integerTypesOf(x))
	case int:
		return numericText().Union(integerTypesOf(int64(x)))
	case uint8:
		return numericText().Union(integerTypesOf(int64(x)))
	case uint16:
		return numericText().Union(integerTypesOf(int64(x)))
	case uint32:
		return numericText().Union(integerTypesOf(int64(x)))
	case uint64:
		if x <= math.MaxInt64 {
			return numericText().Union(integerTypesOf(int64(x)))
		}
		return numericText().Union(floatingTypesOf(decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)))
	case float32:
		return numericText().Union(floatingTypesOf(decimal.NewFromFloat32(x)))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return numericText().Add(schema.Double)
		}
		return numericText().Union(floatingTypesOf(decimal.NewFromFloat(x)))
	case decimal.Decimal:
		return numericText().Union(floatingTypesOf(x))
	case time.Time:
		return numericText().Add(schema.Timestamp).Add(schema.TimestampWithZone)
	default:
		return nationalText
	}
}

// numericText is the text set for values whose rendering is always ASCII.
func numericText() schema.TypeSet {
	return asciiText.Union(nationalText)
}
