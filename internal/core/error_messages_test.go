package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/JonMunkholm/tableload/internal/transform"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "schema mismatch",
			err:      fmt.Errorf("load invoices.csv: %w", ErrSchemaMismatch),
			wantCode: "SCH001",
		},
		{
			name:     "not loadable",
			err:      fmt.Errorf("load: %w", ErrNotLoadable),
			wantCode: "SCH002",
		},
		{
			name:     "table not found",
			err:      fmt.Errorf("billing.invoices: %w", destination.ErrTableNotFound),
			wantCode: "SCH003",
		},
		{
			name:     "unsupported type",
			err:      fmt.Errorf("column %q: %w", "t", dialect.ErrUnsupportedType),
			wantCode: "SCH004",
		},
		{
			name:     "conversion wrapped in cell error",
			err:      &transform.CellError{Row: 3, Column: "amount", Err: &transform.ConversionError{Value: "x", From: schema.Clob, To: schema.Decimal}},
			wantCode: "CONV001",
		},
		{
			name:     "contract",
			err:      &transform.ContractError{Value: 1, From: schema.Clob, To: schema.Boolean, Reason: "not a string"},
			wantCode: "CONV002",
		},
		{
			name:     "duplicate key within file wins over pattern",
			err:      &compare.UniqueConflict{Constraint: schema.UniqueConstraint{Name: "pk"}, Key: []any{1}, Rows: []int64{0, 4}},
			wantCode: "CONV003",
		},
		{
			name:     "unknown format",
			err:      fmt.Errorf("report.xlsx: %w", source.ErrUnknownFormat),
			wantCode: "SRC001",
		},
		{
			name:     "too many loads",
			err:      ErrTooManyLoads,
			wantCode: "LOAD001",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("scan cancelled at row 512: %w", context.Canceled),
			wantCode: "LOAD002",
		},
		{
			name:     "database duplicate key",
			err:      errors.New("ERROR: duplicate key value violates unique constraint \"invoices_pkey\""),
			wantCode: "DB001",
		},
		{
			name:     "not null",
			err:      errors.New("insert into t: null value in column \"id\""),
			wantCode: "DB008",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp: connection refused"),
			wantCode: "DB004",
		},
		{
			name:     "empty file",
			err:      errors.New("data.csv: no header row"),
			wantCode: "SRC003",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("DEADLOCK detected"),
			wantCode: "DB007",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(fmt.Errorf("x: %w", ErrSchemaMismatch))

	expected := "The file's columns do not match the table's columns (Code: SCH001). Rename the file's headers or load into a new table"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: errors.New("duplicate key"), want: true},
		{name: "typed error is user facing", err: ErrNotLoadable, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("orders: %w", destination.ErrTableNotFound)
		userErr := NewUserError(techErr)

		if userErr.Error() != "The table does not exist" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if !errors.Is(userErr, destination.ErrTableNotFound) {
			t.Error("Unwrap() should return original error")
		}
	})
}
