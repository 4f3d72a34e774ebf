package schema

// logical_type.go defines the closed set of relational column types the engine
// reasons about, grouped into families.
//
// Ordering inside the integer and floating families is significant: a higher
// rank can hold every value of a lower rank. Textual and temporal members have
// no widening order; their compatibility is decided by modifiers (length) and
// by the comparator rules.

import (
	"fmt"
	"strings"
)

// LogicalType is a relational column type independent of any database dialect.
type LogicalType int

const (
	Unknown LogicalType = iota

	TinyInt
	SmallInt
	Integer
	BigInt

	Float
	Double
	Decimal

	Boolean

	Char
	Varchar
	NChar
	NVarchar
	Clob
	NClob

	Date
	Time
	TimeWithZone
	Timestamp
	TimestampWithZone

	Binary
	VarBinary

	numLogicalTypes
)

// Family groups logical types that share conversion and comparison rules.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyInteger
	FamilyFloating
	FamilyBoolean
	FamilyText
	FamilyDate
	FamilyTime
	FamilyTimestamp
	FamilyBinary
)

var logicalTypeNames = [numLogicalTypes]string{
	Unknown:           "UNKNOWN",
	TinyInt:           "TINYINT",
	SmallInt:          "SMALLINT",
	Integer:           "INTEGER",
	BigInt:            "BIGINT",
	Float:             "FLOAT",
	Double:            "DOUBLE",
	Decimal:           "DECIMAL",
	Boolean:           "BOOLEAN",
	Char:              "CHAR",
	Varchar:           "VARCHAR",
	NChar:             "NCHAR",
	NVarchar:          "NVARCHAR",
	Clob:              "CLOB",
	NClob:             "NCLOB",
	Date:              "DATE",
	Time:              "TIME",
	TimeWithZone:      "TIME_WITH_ZONE",
	Timestamp:         "TIMESTAMP",
	TimestampWithZone: "TIMESTAMP_WITH_ZONE",
	Binary:            "BINARY",
	VarBinary:         "VARBINARY",
}

// typeAliases accepts the spellings commonly found in configuration files and
// JDBC-style type names.
var typeAliases = map[string]LogicalType{
	"INT":                      Integer,
	"INT2":                     SmallInt,
	"INT4":                     Integer,
	"INT8":                     BigInt,
	"REAL":                     Float,
	"FLOAT4":                   Float,
	"FLOAT8":                   Double,
	"DOUBLE_PRECISION":         Double,
	"NUMERIC":                  Decimal,
	"BOOL":                     Boolean,
	"TEXT":                     Clob,
	"STRING":                   NClob,
	"TIME_WITH_TIMEZONE":       TimeWithZone,
	"TIMETZ":                   TimeWithZone,
	"TIMESTAMP_WITH_TIMEZONE":  TimestampWithZone,
	"TIMESTAMPTZ":              TimestampWithZone,
	"DATETIME":                 Timestamp,
	"BYTES":                    VarBinary,
	"BLOB":                     VarBinary,
	"TIME_WITHOUT_TIME_ZONE":   Time,
	"TIMESTAMP_WITH_TIME_ZONE": TimestampWithZone,
}

// AllLogicalTypes returns every member of the enumeration in declaration order,
// excluding Unknown.
func AllLogicalTypes() []LogicalType {
	out := make([]LogicalType, 0, numLogicalTypes-1)
	for t := TinyInt; t < numLogicalTypes; t++ {
		out = append(out, t)
	}
	return out
}

// String returns the canonical upper-case name.
func (t LogicalType) String() string {
	if t < 0 || t >= numLogicalTypes {
		return fmt.Sprintf("LogicalType(%d)", int(t))
	}
	return logicalTypeNames[t]
}

// Valid reports whether t is a member of the enumeration other than Unknown.
func (t LogicalType) Valid() bool {
	return t > Unknown && t < numLogicalTypes
}

// ParseLogicalType parses a type name case-insensitively. Spaces and dashes
// are treated as underscores, so "timestamp with timezone" is accepted.
func ParseLogicalType(s string) (LogicalType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	for t := TinyInt; t < numLogicalTypes; t++ {
		if logicalTypeNames[t] == name {
			return t, nil
		}
	}
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("unknown logical type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t LogicalType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LogicalType) UnmarshalText(b []byte) error {
	parsed, err := ParseLogicalType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Family returns the family t belongs to.
func (t LogicalType) Family() Family {
	switch t {
	case TinyInt, SmallInt, Integer, BigInt:
		return FamilyInteger
	case Float, Double, Decimal:
		return FamilyFloating
	case Boolean:
		return FamilyBoolean
	case Char, Varchar, NChar, NVarchar, Clob, NClob:
		return FamilyText
	case Date:
		return FamilyDate
	case Time, TimeWithZone:
		return FamilyTime
	case Timestamp, TimestampWithZone:
		return FamilyTimestamp
	case Binary, VarBinary:
		return FamilyBinary
	default:
		return FamilyUnknown
	}
}

func (t LogicalType) IsInteger() bool  { return t.Family() == FamilyInteger }
func (t LogicalType) IsFloating() bool { return t.Family() == FamilyFloating }
func (t LogicalType) IsNumeric() bool  { return t.IsInteger() || t.IsFloating() }
func (t LogicalType) IsTextual() bool  { return t.Family() == FamilyText }
func (t LogicalType) IsBinary() bool   { return t.Family() == FamilyBinary }

// IsTemporal reports whether t is a date, time or timestamp type.
func (t LogicalType) IsTemporal() bool {
	switch t.Family() {
	case FamilyDate, FamilyTime, FamilyTimestamp:
		return true
	}
	return false
}

// IsUnboundedText reports whether t is CLOB or NCLOB.
func (t LogicalType) IsUnboundedText() bool {
	return t == Clob || t == NClob
}

// IsBoundedText reports whether t is a length-limited textual type.
func (t LogicalType) IsBoundedText() bool {
	return t.IsTextual() && !t.IsUnboundedText()
}

// IsNational reports whether t is a national (Unicode) character type.
func (t LogicalType) IsNational() bool {
	return t == NChar || t == NVarchar || t == NClob
}

// HasZone reports whether values of t carry an offset or zone.
func (t LogicalType) HasZone() bool {
	return t == TimeWithZone || t == TimestampWithZone
}

// IntegerRank orders the integer family from narrowest (1) to widest (4).
// Non-integer types return 0.
func (t LogicalType) IntegerRank() int {
	switch t {
	case TinyInt:
		return 1
	case SmallInt:
		return 2
	case Integer:
		return 3
	case BigInt:
		return 4
	}
	return 0
}

// FloatRank orders the floating family from narrowest (1) to widest (3).
// Non-floating types return 0.
func (t LogicalType) FloatRank() int {
	switch t {
	case Float:
		return 1
	case Double:
		return 2
	case Decimal:
		return 3
	}
	return 0
}

// IntegerBounds returns the smallest and largest value representable by an
// integer type. ok is false for types outside the integer family.
func (t LogicalType) IntegerBounds() (lo, hi int64, ok bool) {
	switch t {
	case TinyInt:
		return -1 << 7, 1<<7 - 1, true
	case SmallInt:
		return -1 << 15, 1<<15 - 1, true
	case Integer:
		return -1 << 31, 1<<31 - 1, true
	case BigInt:
		return -1 << 63, 1<<63 - 1, true
	}
	return 0, 0, false
}

// DigitCount returns the number of decimal digits of the largest value an
// integer type can hold (3 for TINYINT, 19 for BIGINT). Zero for other types.
func (t LogicalType) DigitCount() int {
	switch t {
	case TinyInt:
		return 3
	case SmallInt:
		return 5
	case Integer:
		return 10
	case BigInt:
		return 19
	}
	return 0
}

// RenderedWidth returns the length of the longest textual rendering of an
// integer type, which is its minimum value including the sign.
func (t LogicalType) RenderedWidth() int {
	lo, _, ok := t.IntegerBounds()
	if !ok {
		return 0
	}
	return len(fmt.Sprint(lo))
}

// String returns a lower-case family name.
func (f Family) String() string {
	switch f {
	case FamilyInteger:
		return "integer"
	case FamilyFloating:
		return "floating"
	case FamilyBoolean:
		return "boolean"
	case FamilyText:
		return "text"
	case FamilyDate:
		return "date"
	case FamilyTime:
		return "time"
	case FamilyTimestamp:
		return "timestamp"
	case FamilyBinary:
		return "binary"
	}
	return "unknown"
}
