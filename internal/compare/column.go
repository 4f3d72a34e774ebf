// Package compare decides whether source columns fit destination columns.
//
// Column comparison is total and pure: every pair of logical types has an
// answer, computed from the frozen source type and both modifiers. It never
// looks at row values. A false result is not an error; callers use it to
// decide whether to alter the destination or reject the column.
package compare

import (
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/shopspring/decimal"
)

// Native significant decimal digits of binary floating types declared without
// a precision.
const (
	floatDigits  = 7
	doubleDigits = 15
)

type options struct {
	layouts timefmt.Layouts
}

// Option configures a comparison.
type Option func(*options)

// WithLayouts sets the temporal layouts used when a temporal value must be
// rendered into a bounded textual column.
func WithLayouts(l timefmt.Layouts) Option {
	return func(o *options) { o.layouts = l }
}

// Column compares a source column with a destination column. Dispatch is on
// the source type's family.
func Column(src schema.SourceColumnDefinition, dst schema.ColumnDefinition, opts ...Option) schema.CompareColumnResult {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch src.Type.Family() {
	case schema.FamilyBoolean:
		return fromBoolean(dst)
	case schema.FamilyInteger:
		return fromInteger(src, dst)
	case schema.FamilyFloating:
		return fromFloating(src, dst)
	case schema.FamilyText:
		return fromText(src, dst)
	case schema.FamilyDate, schema.FamilyTime, schema.FamilyTimestamp:
		return fromTemporal(src, dst, o.layouts)
	case schema.FamilyBinary:
		return fromBinary(src, dst)
	default:
		return schema.Incompatible
	}
}

// ---- Boolean source ----

func fromBoolean(dst schema.ColumnDefinition) schema.CompareColumnResult {
	switch dst.Type.Family() {
	case schema.FamilyBoolean, schema.FamilyInteger:
		return schema.Matched
	case schema.FamilyFloating:
		return schema.LoadableIf(floatingCapacity(dst) >= 1)
	case schema.FamilyText:
		return schema.LoadableOnly
	default:
		return schema.Incompatible
	}
}

// ---- Integer source ----

func fromInteger(src schema.SourceColumnDefinition, dst schema.ColumnDefinition) schema.CompareColumnResult {
	switch dst.Type.Family() {
	case schema.FamilyInteger:
		return schema.MatchedIf(src.Type.IntegerRank() <= dst.Type.IntegerRank())
	case schema.FamilyFloating:
		return schema.LoadableIf(floatingCapacity(dst) >= src.Type.DigitCount())
	case schema.FamilyText:
		return textHolds(dst, src.Type.RenderedWidth())
	case schema.FamilyBoolean:
		return schema.LoadableIf(src.PossibleTypes.Has(schema.Boolean))
	default:
		return schema.Incompatible
	}
}

// floatingCapacity returns how many integral digits a floating destination
// guarantees. An undeclared precision means native capacity for FLOAT and
// DOUBLE and arbitrary precision for DECIMAL.
func floatingCapacity(dst schema.ColumnDefinition) int {
	m := dst.Modifier
	if m.Precision > 0 {
		return m.Precision - m.Scale
	}
	return nativeDigits(dst.Type)
}

// textHolds checks a textual destination against the widest rendering of the
// source. Unbounded text always holds; bounded text needs the room.
func textHolds(dst schema.ColumnDefinition, width int) schema.CompareColumnResult {
	if dst.Type.IsUnboundedText() {
		return schema.LoadableOnly
	}
	return schema.LoadableIf(width > 0 && dst.Modifier.MaxLength >= width)
}

// ---- Floating source ----

func fromFloating(src schema.SourceColumnDefinition, dst schema.ColumnDefinition) schema.CompareColumnResult {
	switch dst.Type.Family() {
	case schema.FamilyFloating:
		return schema.MatchedIf(floatingFits(src.ColumnDefinition, dst))
	case schema.FamilyText:
		return textHolds(dst, floatingWidth(src.Modifier))
	case schema.FamilyBoolean:
		return schema.LoadableIf(src.PossibleTypes.Has(schema.Boolean))
	default:
		return schema.Incompatible
	}
}

// floatingFits applies the precision/scale rule between floating types.
//
// A bounded destination needs precision-scale to cover the source's integral
// digits and scale to cover its fractional digits; a source with unknown
// precision never fits a bounded destination. An unbounded destination fits
// when it ranks at least as wide as the source, or when the source's known
// precision is within the destination's native digits.
func floatingFits(src, dst schema.ColumnDefinition) bool {
	sp, ss := src.Modifier.Precision, src.Modifier.Scale
	dp, ds := dst.Modifier.Precision, dst.Modifier.Scale

	if dp > 0 {
		if sp <= 0 {
			return false
		}
		return dp-ds >= sp-ss && ds >= ss
	}
	if dst.Type.FloatRank() >= src.Type.FloatRank() {
		return true
	}
	return sp > 0 && sp <= nativeDigits(dst.Type)
}

func nativeDigits(t schema.LogicalType) int {
	switch t {
	case schema.Float:
		return floatDigits
	case schema.Double:
		return doubleDigits
	}
	return int(^uint(0) >> 1)
}

// floatingWidth is the longest rendering of a floating value with the given
// modifier: digits, sign and decimal point. Zero when precision is unknown.
func floatingWidth(m schema.TypeModifier) int {
	if m.Precision <= 0 {
		return 0
	}
	w := m.Precision + 1
	if m.Scale > 0 {
		w++
	}
	return w
}

// ---- Temporal source ----

func fromTemporal(src schema.SourceColumnDefinition, dst schema.ColumnDefinition, layouts timefmt.Layouts) schema.CompareColumnResult {
	if dst.Type.IsTextual() {
		return textHolds(dst, layouts.MaxFormattedLength(src.Type))
	}

	sf, df := src.Type.Family(), dst.Type.Family()
	switch {
	case sf == df:
		return schema.Matched
	case sf == schema.FamilyDate && df == schema.FamilyTimestamp:
		return schema.LoadableOnly
	default:
		return schema.Incompatible
	}
}

// ---- Textual source ----

func fromText(src schema.SourceColumnDefinition, dst schema.ColumnDefinition) schema.CompareColumnResult {
	switch dst.Type.Family() {
	case schema.FamilyText:
		if dst.Type.IsUnboundedText() {
			return schema.Matched
		}
		if src.Type.IsUnboundedText() {
			return schema.MatchedIf(false)
		}
		return schema.MatchedIf(dst.Modifier.MaxLength >= src.Modifier.MaxLength)
	case schema.FamilyInteger:
		return schema.LoadableIf(textFitsInteger(src, dst.Type))
	case schema.FamilyFloating:
		return schema.LoadableIf(textFitsFloating(src, dst))
	case schema.FamilyBoolean:
		return schema.LoadableIf(src.PossibleTypes.Has(schema.Boolean))
	case schema.FamilyDate:
		return schema.LoadableIf(src.PossibleTypes.Has(schema.Date))
	case schema.FamilyTime:
		return schema.LoadableIf(src.PossibleTypes.HasAny(schema.Time, schema.TimeWithZone))
	case schema.FamilyTimestamp:
		return schema.LoadableIf(src.PossibleTypes.HasAny(schema.Timestamp, schema.TimestampWithZone))
	default:
		return schema.Incompatible
	}
}

// textFitsInteger requires observed extrema within the destination width and
// every sampled value to have been an integer literal.
func textFitsInteger(src schema.SourceColumnDefinition, dst schema.LogicalType) bool {
	if src.Min == nil || src.Max == nil {
		return false
	}
	if !src.PossibleTypes.HasAny(schema.TinyInt, schema.SmallInt, schema.Integer, schema.BigInt) {
		return false
	}
	lo, hi, ok := dst.IntegerBounds()
	if !ok {
		return false
	}
	return src.Min.GreaterThanOrEqual(decimal.NewFromInt(lo)) &&
		src.Max.LessThanOrEqual(decimal.NewFromInt(hi)) &&
		src.Min.IsInteger() && src.Max.IsInteger()
}

// textFitsFloating requires observed extrema and, for a bounded destination,
// the sampled precision and scale to fit.
func textFitsFloating(src schema.SourceColumnDefinition, dst schema.ColumnDefinition) bool {
	if src.Min == nil || src.Max == nil {
		return false
	}
	if !src.PossibleTypes.Has(dst.Type) {
		return false
	}
	if dst.Modifier.Precision <= 0 {
		return true
	}
	return floatingFits(src.ColumnDefinition, dst)
}

// ---- Binary source ----

func fromBinary(src schema.SourceColumnDefinition, dst schema.ColumnDefinition) schema.CompareColumnResult {
	switch {
	case dst.Type.IsBinary():
		return schema.MatchedIf(dst.Modifier.MaxLength == 0 || dst.Modifier.MaxLength >= src.Modifier.MaxLength)
	case dst.Type.IsUnboundedText():
		return schema.LoadableOnly
	default:
		return schema.Incompatible
	}
}
