// Package timefmt parses and renders dates, times and timestamps.
//
// A custom layout (Go reference-time syntax) takes precedence over the
// built-in ISO-8601 style layouts. Text without an offset is interpreted in
// the local zone; an explicit offset or zone is honored.
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// Default render layouts.
const (
	DateLayout         = "2006-01-02"
	TimeLayout         = "15:04:05.999999999"
	TimeZoneLayout     = "15:04:05.999999999Z07:00"
	TimestampLayout    = "2006-01-02T15:04:05.999999999"
	TimestampTZLayout  = time.RFC3339Nano
	referenceZoneDelta = -(9*3600 + 30*60)
)

// ErrNoLayout is returned when no layout parses the input.
var ErrNoLayout = errors.New("no matching layout")

// Parse layouts tried in order after any custom layout.
var (
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999 Z07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 03:04:05 PM",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		time.RFC1123Z,
		time.RFC1123,
	}
	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"20060102",
		"2006-01-02Z07:00",
	}
	timeLayouts = []string{
		"15:04:05.999999999",
		"15:04:05.999999999Z07:00",
		"15:04",
		"03:04:05 PM",
	}
)

// zoneLayout reports whether a layout carries offset or zone information.
func zoneLayout(layout string) bool {
	return strings.Contains(layout, "Z07") ||
		strings.Contains(layout, "-07") ||
		strings.Contains(layout, "MST")
}

// Layouts holds optional custom layouts per temporal family. Empty fields
// fall back to the defaults.
type Layouts struct {
	Date      string `json:"date,omitempty" mapstructure:"date"`
	Time      string `json:"time,omitempty" mapstructure:"time"`
	Timestamp string `json:"timestamp,omitempty" mapstructure:"timestamp"`
}

// For returns the custom layout configured for t's family, if any.
func (l Layouts) For(t schema.LogicalType) string {
	switch t.Family() {
	case schema.FamilyDate:
		return l.Date
	case schema.FamilyTime:
		return l.Time
	case schema.FamilyTimestamp:
		return l.Timestamp
	}
	return ""
}

// Extra returns the custom layout for t as a transformer argument list.
func (l Layouts) Extra(t schema.LogicalType) []string {
	if layout := l.For(t); layout != "" {
		return []string{layout}
	}
	return nil
}

// RenderLayout returns the layout used to render values of t.
func (l Layouts) RenderLayout(t schema.LogicalType) string {
	if custom := l.For(t); custom != "" {
		return custom
	}
	return DefaultLayout(t)
}

// DefaultLayout returns the built-in render layout for a temporal type.
func DefaultLayout(t schema.LogicalType) string {
	switch t {
	case schema.Date:
		return DateLayout
	case schema.Time:
		return TimeLayout
	case schema.TimeWithZone:
		return TimeZoneLayout
	case schema.Timestamp:
		return TimestampLayout
	case schema.TimestampWithZone:
		return TimestampTZLayout
	}
	return time.RFC3339Nano
}

// Format renders v as type t.
func (l Layouts) Format(t schema.LogicalType, v time.Time) string {
	return v.Format(l.RenderLayout(t))
}

// MaxFormattedLength returns the length of the longest rendering of type t:
// a reference instant with every field at its widest (Wednesday, September,
// nine fractional digits, a half-hour negative offset) formatted with the
// applicable layout.
func (l Layouts) MaxFormattedLength(t schema.LogicalType) int {
	ref := time.Date(2006, time.September, 27, 23, 59, 59, 999999999,
		time.FixedZone("ACDT", referenceZoneDelta))
	return len(l.Format(t, ref))
}

// Parsed is the outcome of a successful parse.
type Parsed struct {
	Value   time.Time
	HasZone bool
}

func parse(s string, custom string, layouts []string, loc *time.Location) (Parsed, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Parsed{}, fmt.Errorf("empty input: %w", ErrNoLayout)
	}
	if custom != "" {
		if v, err := time.ParseInLocation(custom, s, loc); err == nil {
			return Parsed{Value: v, HasZone: zoneLayout(custom)}, nil
		}
	}
	for _, layout := range layouts {
		if v, err := time.ParseInLocation(layout, s, loc); err == nil {
			return Parsed{Value: v, HasZone: zoneLayout(layout)}, nil
		}
	}
	return Parsed{}, fmt.Errorf("%q: %w", s, ErrNoLayout)
}

// ParseTimestamp parses a date-time. custom may be empty.
func ParseTimestamp(s, custom string) (Parsed, error) {
	return parse(s, custom, timestampLayouts, time.Local)
}

// ParseDate parses a calendar date. The result is midnight in the parsed
// zone (local when absent).
func ParseDate(s, custom string) (Parsed, error) {
	p, err := parse(s, custom, dateLayouts, time.Local)
	if err != nil {
		return p, err
	}
	y, m, d := p.Value.Date()
	p.Value = time.Date(y, m, d, 0, 0, 0, 0, p.Value.Location())
	return p, nil
}

// ParseTime parses a time of day. The date part of the result is 0000-01-01.
func ParseTime(s, custom string) (Parsed, error) {
	return parse(s, custom, timeLayouts, time.Local)
}

// IsTimestamp reports whether s parses as a date-time.
func IsTimestamp(s string) bool {
	_, err := ParseTimestamp(s, "")
	return err == nil
}

// IsDate reports whether s parses as a calendar date.
func IsDate(s string) bool {
	_, err := ParseDate(s, "")
	return err == nil
}

// IsTime reports whether s parses as a time of day.
func IsTime(s string) bool {
	_, err := ParseTime(s, "")
	return err == nil
}

// TimeOfDay strips the date from v, keeping the clock and zone.
func TimeOfDay(v time.Time) time.Time {
	return time.Date(0, time.January, 1, v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), v.Location())
}

// DateOf strips the clock from v, keeping the date and zone.
func DateOf(v time.Time) time.Time {
	y, m, d := v.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, v.Location())
}
