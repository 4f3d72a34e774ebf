package scan

import (
	"context"
	"errors"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// ColumnHeader is a column as a reader discovers it: position and name only.
type ColumnHeader struct {
	Ordinal int    `json:"ordinal"`
	Name    string `json:"name"`
}

// Reader is a source of rows. Implementations are format specific; the
// pipeline consumes only column headers and raw cell values.
//
// Next returns io.EOF after the last row. A malformed row is reported by
// returning an error wrapped with NewRowError; any other error is treated
// as a failure of the source itself and aborts the scan.
type Reader interface {
	Open(ctx context.Context) error
	Columns() ([]ColumnHeader, error)
	Next() (schema.DataRow, error)
	Close() error
}

// Rewinder is implemented by readers that can restart from the first data
// row. The pipeline uses it to re-read after sampling instead of buffering
// the sample window.
type Rewinder interface {
	Rewind() error
}

// RowError marks a reader error that affects one row only.
type RowError struct {
	Err error
}

func (e *RowError) Error() string { return e.Err.Error() }

func (e *RowError) Unwrap() error { return e.Err }

// NewRowError wraps err as a per-row failure.
func NewRowError(err error) error {
	if err == nil {
		return nil
	}
	return &RowError{Err: err}
}

// IsRowError reports whether err is confined to a single row.
func IsRowError(err error) bool {
	var re *RowError
	return errors.As(err, &re)
}

// Headers builds headers from names in ordinal order.
func Headers(names ...string) []ColumnHeader {
	out := make([]ColumnHeader, len(names))
	for i, n := range names {
		out[i] = ColumnHeader{Ordinal: i, Name: n}
	}
	return out
}
