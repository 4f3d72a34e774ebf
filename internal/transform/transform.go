// Package transform converts cell values between logical types.
//
// Dispatch is on the source column's frozen type and picks exactly one
// strategy; there is no fallback chain. Every strategy passes nil through.
// Destination values use these Go types:
//
//	TINYINT int8, SMALLINT int16, INTEGER int32, BIGINT int64
//	FLOAT float32, DOUBLE float64, DECIMAL decimal.Decimal
//	BOOLEAN bool, textual types string, BINARY/VARBINARY []byte
//	DATE, TIME, TIMESTAMP (with or without zone) time.Time
//
// Bad data yields a *ConversionError. A value whose Go type does not match
// its declared source type, or a pair no strategy handles, yields a
// *ContractError.
package transform

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/shopspring/decimal"
)

// strategy converts a non-nil value of a source family.
type strategy func(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, extra []string) (any, error)

// Transform converts raw from the source column's type to the destination
// column's type. extra[0], when present, is a Go time layout used to parse or
// render temporal values in place of the defaults.
func Transform(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, extra ...string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	return strategyFor(src.Type, dst.Type)(raw, src, dst, extra)
}

func strategyFor(src, dst schema.LogicalType) strategy {
	if dst.IsTextual() && !src.IsTextual() && src.Valid() {
		return toString
	}
	switch src.Family() {
	case schema.FamilyBoolean:
		return fromBoolean
	case schema.FamilyInteger:
		return fromInteger
	case schema.FamilyFloating:
		return fromFloating
	case schema.FamilyText:
		return fromString
	case schema.FamilyDate:
		return fromDate
	case schema.FamilyTime:
		return fromTime
	case schema.FamilyTimestamp:
		return fromTimestamp
	case schema.FamilyBinary:
		return fromBinary
	default:
		return unsupported
	}
}

func unsupported(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
}

func layoutOf(extra []string) string {
	if len(extra) > 0 {
		return extra[0]
	}
	return ""
}

// ---- Boolean ----

func fromBoolean(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	var b bool
	switch x := raw.(type) {
	case bool:
		b = x
	case string:
		v, ok := infer.ParseBoolWord(x)
		if !ok {
			return nil, conversionErr(raw, src.Type, dst.Type, errNotBoolean)
		}
		b = v
	default:
		n, ok := asInt64(raw)
		if !ok {
			return nil, contractErr(raw, src.Type, dst.Type, "boolean source needs a bool, a word or an integer")
		}
		b = n > 0
	}
	return boolTo(b, src.Type, dst)
}

func boolTo(b bool, from schema.LogicalType, dst schema.ColumnDefinition) (any, error) {
	var n int64
	if b {
		n = 1
	}
	switch dst.Type.Family() {
	case schema.FamilyBoolean:
		return b, nil
	case schema.FamilyInteger:
		return intTo(n, from, dst.Type)
	case schema.FamilyFloating:
		return decimalTo(decimal.NewFromInt(n), from, dst)
	default:
		return nil, contractErr(b, from, dst.Type, "no strategy for this pair")
	}
}

// ---- Integer ----

func asInt64(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	}
	return 0, false
}

func fromInteger(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	n, ok := asInt64(raw)
	if !ok {
		return nil, contractErr(raw, src.Type, dst.Type, "integer source needs a Go integer")
	}
	switch dst.Type.Family() {
	case schema.FamilyInteger:
		return intTo(n, src.Type, dst.Type)
	case schema.FamilyFloating:
		return decimalTo(decimal.NewFromInt(n), src.Type, dst)
	case schema.FamilyBoolean:
		return n > 0, nil
	default:
		return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
	}
}

// intTo narrows n to the destination width.
func intTo(n int64, from, to schema.LogicalType) (any, error) {
	lo, hi, _ := to.IntegerBounds()
	if n < lo || n > hi {
		return nil, conversionErr(n, from, to, errOutOfRange)
	}
	switch to {
	case schema.TinyInt:
		return int8(n), nil
	case schema.SmallInt:
		return int16(n), nil
	case schema.Integer:
		return int32(n), nil
	default:
		return n, nil
	}
}

// ---- Floating ----

func fromFloating(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	switch x := raw.(type) {
	case float32:
		return floatTo(float64(x), raw, src.Type, dst)
	case float64:
		return floatTo(x, raw, src.Type, dst)
	case decimal.Decimal:
		return decimalFamilyTo(x, src.Type, dst)
	default:
		return nil, contractErr(raw, src.Type, dst.Type, "floating source needs float32, float64 or decimal.Decimal")
	}
}

func floatTo(f float64, raw any, from schema.LogicalType, dst schema.ColumnDefinition) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		switch dst.Type {
		case schema.Double:
			return f, nil
		case schema.Float:
			return float32(f), nil
		}
		return nil, conversionErr(raw, from, dst.Type, errNotFinite)
	}
	if dst.Type == schema.Double {
		return f, nil
	}
	return decimalFamilyTo(decimal.NewFromFloat(f), from, dst)
}

// decimalFamilyTo converts a finite floating value to any destination a
// floating source can reach.
func decimalFamilyTo(d decimal.Decimal, from schema.LogicalType, dst schema.ColumnDefinition) (any, error) {
	switch dst.Type.Family() {
	case schema.FamilyFloating:
		return decimalTo(d, from, dst)
	case schema.FamilyInteger:
		if !d.IsInteger() {
			return nil, conversionErr(d, from, dst.Type, errFractional)
		}
		lo, hi, _ := dst.Type.IntegerBounds()
		if d.LessThan(decimal.NewFromInt(lo)) || d.GreaterThan(decimal.NewFromInt(hi)) {
			return nil, conversionErr(d, from, dst.Type, errOutOfRange)
		}
		return intTo(d.IntPart(), from, dst.Type)
	case schema.FamilyBoolean:
		return d.IsPositive(), nil
	default:
		return nil, contractErr(d, from, dst.Type, "no strategy for this pair")
	}
}

var maxFloat32 = decimal.NewFromFloat(math.MaxFloat32)

// decimalTo converts an exact value to a floating destination. DECIMAL
// destinations with a declared precision round to their scale and reject
// values with too many integral digits.
func decimalTo(d decimal.Decimal, from schema.LogicalType, dst schema.ColumnDefinition) (any, error) {
	switch dst.Type {
	case schema.Float:
		if d.Abs().GreaterThan(maxFloat32) {
			return nil, conversionErr(d, from, dst.Type, errOutOfRange)
		}
		f, _ := d.Float64()
		return float32(f), nil
	case schema.Double:
		f, _ := d.Float64()
		if math.IsInf(f, 0) {
			return nil, conversionErr(d, from, dst.Type, errOutOfRange)
		}
		return f, nil
	case schema.Decimal:
		m := dst.Modifier
		if m.Precision <= 0 {
			return d, nil
		}
		d = d.Round(int32(m.Scale))
		if integralDigits(d) > m.Precision-m.Scale {
			return nil, conversionErr(d, from, dst.Type, errOutOfRange)
		}
		return d, nil
	default:
		return nil, contractErr(d, from, dst.Type, "no strategy for this pair")
	}
}

func integralDigits(d decimal.Decimal) int {
	whole := d.Abs().Truncate(0)
	if whole.IsZero() {
		return 0
	}
	return len(whole.String())
}

// ---- String ----

func fromString(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, extra []string) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, contractErr(raw, src.Type, dst.Type, "textual source needs a string")
	}
	if dst.Type.IsTextual() {
		return fitText(s, src.Type, dst)
	}

	v := strings.TrimSpace(s)
	if v == "" {
		return nil, nil
	}
	switch dst.Type.Family() {
	case schema.FamilyInteger:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, conversionErr(raw, src.Type, dst.Type, err)
		}
		return intTo(n, src.Type, dst.Type)
	case schema.FamilyFloating:
		return parseFloating(v, src.Type, dst)
	case schema.FamilyBoolean:
		b, ok := infer.ParseBoolWord(v)
		if !ok {
			return nil, conversionErr(raw, src.Type, dst.Type, errNotBoolean)
		}
		return b, nil
	case schema.FamilyDate:
		p, err := timefmt.ParseDate(v, layoutOf(extra))
		if err != nil {
			return nil, conversionErr(raw, src.Type, dst.Type, err)
		}
		return p.Value, nil
	case schema.FamilyTime:
		p, err := timefmt.ParseTime(v, layoutOf(extra))
		if err != nil {
			return nil, conversionErr(raw, src.Type, dst.Type, err)
		}
		return timefmt.TimeOfDay(p.Value), nil
	case schema.FamilyTimestamp:
		p, err := timefmt.ParseTimestamp(v, layoutOf(extra))
		if err != nil {
			return nil, conversionErr(raw, src.Type, dst.Type, err)
		}
		return p.Value, nil
	default:
		return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
	}
}

func parseFloating(v string, from schema.LogicalType, dst schema.ColumnDefinition) (any, error) {
	switch dst.Type {
	case schema.Float:
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, conversionErr(v, from, dst.Type, err)
		}
		return float32(f), nil
	case schema.Double:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, conversionErr(v, from, dst.Type, err)
		}
		return f, nil
	default:
		d, ok := infer.ParseNumber(v)
		if !ok {
			return nil, conversionErr(v, from, dst.Type, errNotNumber)
		}
		return decimalTo(d, from, dst)
	}
}

// fitText checks s against a bounded textual destination.
func fitText(s string, from schema.LogicalType, dst schema.ColumnDefinition) (any, error) {
	if dst.Type.IsBoundedText() && dst.Modifier.MaxLength > 0 && utf8.RuneCountInString(s) > dst.Modifier.MaxLength {
		return nil, conversionErr(s, from, dst.Type, errTooLong)
	}
	return s, nil
}

// ---- Temporal ----

func asTime(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition) (time.Time, error) {
	t, ok := raw.(time.Time)
	if !ok {
		return time.Time{}, contractErr(raw, src.Type, dst.Type, "temporal source needs a time.Time")
	}
	return t, nil
}

func fromDate(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	t, err := asTime(raw, src, dst)
	if err != nil {
		return nil, err
	}
	switch dst.Type.Family() {
	case schema.FamilyDate, schema.FamilyTimestamp:
		return timefmt.DateOf(t), nil
	default:
		return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
	}
}

func fromTime(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	t, err := asTime(raw, src, dst)
	if err != nil {
		return nil, err
	}
	if dst.Type.Family() != schema.FamilyTime {
		return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
	}
	return timefmt.TimeOfDay(t), nil
}

func fromTimestamp(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	t, err := asTime(raw, src, dst)
	if err != nil {
		return nil, err
	}
	if dst.Type.Family() != schema.FamilyTimestamp {
		return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
	}
	return t, nil
}

// ---- Binary ----

func fromBinary(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, _ []string) (any, error) {
	b, ok := raw.([]byte)
	if !ok {
		return nil, contractErr(raw, src.Type, dst.Type, "binary source needs []byte")
	}
	if !dst.Type.IsBinary() {
		return nil, contractErr(raw, src.Type, dst.Type, "no strategy for this pair")
	}
	if dst.Modifier.MaxLength > 0 && len(b) > dst.Modifier.MaxLength {
		return nil, conversionErr(raw, src.Type, dst.Type, errTooLong)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ---- ToString ----

// toString renders any non-textual value into a textual destination.
func toString(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, extra []string) (any, error) {
	s, err := render(raw, src, dst, extra)
	if err != nil {
		return nil, err
	}
	return fitText(s, src.Type, dst)
}

func render(raw any, src schema.SourceColumnDefinition, dst schema.ColumnDefinition, extra []string) (string, error) {
	switch src.Type.Family() {
	case schema.FamilyBoolean:
		if b, ok := raw.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	case schema.FamilyInteger:
		if n, ok := asInt64(raw); ok {
			return strconv.FormatInt(n, 10), nil
		}
	case schema.FamilyFloating:
		switch x := raw.(type) {
		case float32:
			return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case decimal.Decimal:
			return x.String(), nil
		}
	case schema.FamilyDate, schema.FamilyTime, schema.FamilyTimestamp:
		if t, ok := raw.(time.Time); ok {
			layout := layoutOf(extra)
			if layout == "" {
				layout = timefmt.DefaultLayout(src.Type)
			}
			return t.Format(layout), nil
		}
	case schema.FamilyBinary:
		if b, ok := raw.([]byte); ok {
			return hex.EncodeToString(b), nil
		}
	}
	return "", contractErr(raw, src.Type, dst.Type, "value does not match its source type")
}
