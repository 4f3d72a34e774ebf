package infer

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/shopspring/decimal"
)

// Combine merges the possible types of one more value into a column's
// accumulated set. An empty side carries no information and yields the other
// side. Otherwise the result is the intersection, since the column type must
// hold every value; when nothing is common the column falls back to NCLOB.
func Combine(acc, next schema.TypeSet) schema.TypeSet {
	switch {
	case acc.IsEmpty():
		return next
	case next.IsEmpty():
		return acc
	}
	if common := acc.Intersect(next); !common.IsEmpty() {
		return common
	}
	return schema.NewTypeSet(schema.NClob)
}

// Accumulator folds the sampled values of one column. It is a value: Observe
// returns the next state and leaves the receiver untouched, so a partially
// sampled column can be kept or discarded freely.
type Accumulator struct {
	column    schema.SourceColumnDefinition
	types     schema.TypeSet
	intDigits int
	observed  int
}

// NewAccumulator starts the fold for a discovered column.
func NewAccumulator(ordinal int, name string) Accumulator {
	return Accumulator{column: schema.NewSourceColumn(ordinal, name)}
}

// Observed returns the number of values folded so far, blanks included.
func (a Accumulator) Observed() int { return a.observed }

// PossibleTypes returns the types accumulated so far.
func (a Accumulator) PossibleTypes() schema.TypeSet { return a.types }

// Observe folds one raw cell value into the accumulator.
func (a Accumulator) Observe(raw any) Accumulator {
	a.observed++
	if raw == nil {
		return a
	}

	text, isText := raw.(string)
	if isText {
		text = strings.TrimSpace(text)
		if text == "" {
			a.column.ContainsEmpty = true
			a.column.Modifier.Nullable = true
			return a
		}
		a.types = Combine(a.types, GuessTypes(text))
	} else {
		a.types = Combine(a.types, GuessValue(raw))
		text = render(raw)
	}

	a = a.observeLength(text, raw)
	a = a.observeNumber(text, raw)
	if !a.column.Modifier.ContainsNonASCII && !IsASCII(text) {
		a.column.Modifier.ContainsNonASCII = true
	}
	return a
}

func (a Accumulator) observeLength(text string, raw any) Accumulator {
	m := &a.column.Modifier
	n := utf8.RuneCountInString(text)
	if b, ok := raw.([]byte); ok {
		n = len(b)
	}
	if n > m.MaxLength {
		m.MaxLength = n
	}
	if formatted := formattedTemporalLength(text); formatted > m.MaxLength {
		m.MaxLength = formatted
	}
	return a
}

// formattedTemporalLength returns the length a temporal text takes once
// rendered with the default layout, or 0 when text is not temporal.
func formattedTemporalLength(text string) int {
	var l timefmt.Layouts
	if p, err := timefmt.ParseTimestamp(text, ""); err == nil {
		t := schema.Timestamp
		if p.HasZone {
			t = schema.TimestampWithZone
		}
		return len(l.Format(t, p.Value))
	}
	if p, err := timefmt.ParseDate(text, ""); err == nil {
		return len(l.Format(schema.Date, p.Value))
	}
	if p, err := timefmt.ParseTime(text, ""); err == nil {
		return len(l.Format(schema.Time, p.Value))
	}
	return 0
}

func (a Accumulator) observeNumber(text string, raw any) Accumulator {
	d, ok := numberOf(text, raw)
	if !ok {
		return a
	}

	intDigits, scale := digits(d, text)
	if intDigits > a.intDigits {
		a.intDigits = intDigits
	}
	m := &a.column.Modifier
	if scale > m.Scale {
		m.Scale = scale
	}
	m.Precision = a.intDigits + m.Scale

	if a.column.Min == nil || d.LessThan(*a.column.Min) {
		lo := d
		a.column.Min = &lo
	}
	if a.column.Max == nil || d.GreaterThan(*a.column.Max) {
		hi := d
		a.column.Max = &hi
	}
	return a
}

func numberOf(text string, raw any) (decimal.Decimal, bool) {
	switch x := raw.(type) {
	case decimal.Decimal:
		return x, true
	case int8:
		return decimal.NewFromInt(int64(x)), true
	case int16:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case uint8:
		return decimal.NewFromInt(int64(x)), true
	case uint16:
		return decimal.NewFromInt(int64(x)), true
	case uint32:
		return decimal.NewFromInt(int64(x)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), true
	case float32, float64:
		return ParseNumber(text)
	case string:
		return ParseNumber(text)
	}
	return decimal.Decimal{}, false
}

// digits returns the integral and fractional digit counts of a number. Plain
// literals are measured as written so "1.50" has scale 2; scientific ones are
// measured on their expanded form.
func digits(d decimal.Decimal, text string) (intDigits, scale int) {
	lit := strings.TrimLeft(text, "+-")
	if strings.ContainsAny(lit, "eE") || !numericRegex.MatchString(lit) {
		lit = strings.TrimLeft(d.String(), "-")
	}
	whole, frac, _ := strings.Cut(lit, ".")
	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}
	return len(whole), len(frac)
}

// render gives the canonical text of a typed cell for length statistics.
func render(v any) string {
	switch x := v.(type) {
	case []byte:
		return hex.EncodeToString(x)
	case bool:
		return strconv.FormatBool(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(timefmt.TimestampTZLayout)
	}
	return ""
}

// Freeze reduces the accumulated types with r and returns the final column.
func (a Accumulator) Freeze(r Reducer) schema.SourceColumnDefinition {
	col := a.column
	col.PossibleTypes = a.types
	col.Type = r.Reduce(a.types, col.Modifier)
	return col
}

// FreezeAs returns the final column with an explicitly chosen type.
func (a Accumulator) FreezeAs(t schema.LogicalType) schema.SourceColumnDefinition {
	col := a.column
	col.PossibleTypes = a.types
	col.Type = t
	return col
}
