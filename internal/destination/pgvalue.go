package destination

// pgvalue.go converts transformed Go values into pgtype values for pgx.
//
// The transformer already produced the right Go type for each column; this
// only picks the pgtype wrapper whose codec matches the column:
//   - decimal.Decimal goes through pgtype.Numeric
//   - time.Time becomes Date, Time, Timestamp or Timestamptz by column type
//   - times with zone are sent as text, pgx has no timetz codec
//
// nil stays nil, which pgx sends as NULL.

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ToPgNumeric converts a decimal to pgtype.Numeric.
func ToPgNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{Valid: false}, fmt.Errorf("numeric %s: %w", d, err)
	}
	return n, nil
}

// ToPgTime converts the clock part of t to pgtype.Time.
func ToPgTime(t time.Time) pgtype.Time {
	us := int64(t.Hour())*int64(time.Hour/time.Microsecond) +
		int64(t.Minute())*int64(time.Minute/time.Microsecond) +
		int64(t.Second())*int64(time.Second/time.Microsecond) +
		int64(t.Nanosecond())/int64(time.Microsecond)
	return pgtype.Time{Microseconds: us, Valid: true}
}

// pgValue wraps v for the column it is written to.
func pgValue(v any, col schema.ColumnDefinition) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		return ToPgNumeric(x)
	case time.Time:
		switch col.Type {
		case schema.Date:
			return pgtype.Date{Time: time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC), Valid: true}, nil
		case schema.Time:
			return ToPgTime(x), nil
		case schema.TimeWithZone:
			return x.Format("15:04:05.999999Z07:00"), nil
		case schema.Timestamp:
			return pgtype.Timestamp{Time: time.Date(x.Year(), x.Month(), x.Day(), x.Hour(), x.Minute(), x.Second(), x.Nanosecond(), time.UTC), Valid: true}, nil
		default:
			return pgtype.Timestamptz{Time: x, Valid: true}, nil
		}
	}
	return v, nil
}

// pgValues converts a row for pgx.
func pgValues(values []any, columns []schema.ColumnDefinition) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		pv, err := pgValue(v, columns[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", columns[i].Name, err)
		}
		out[i] = pv
	}
	return out, nil
}
