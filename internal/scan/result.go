package scan

import (
	"slices"
	"time"

	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/google/uuid"
)

// MetadataRow is the row number under which open, column discovery and
// source failures are recorded.
const MetadataRow int64 = -1

// Result aggregates one scan.
type Result struct {
	RunID         uuid.UUID                       `json:"run_id"`
	Started       time.Time                       `json:"started"`
	Elapsed       time.Duration                   `json:"elapsed"`
	Columns       []schema.SourceColumnDefinition `json:"columns"`
	Errors        map[int64]error                 `json:"-"`
	RowsAttempted int64                           `json:"rows_attempted"`
	RowsSucceeded int64                           `json:"rows_succeeded"`
	State         State                           `json:"state"`
}

func newResult() *Result {
	return &Result{
		RunID:   uuid.New(),
		Started: time.Now(),
		Errors:  make(map[int64]error),
		State:   Idle,
	}
}

// Succeeded reports whether the scan completed without any error.
func (r *Result) Succeeded() bool {
	return r.State == Completed && len(r.Errors) == 0
}

// Err returns the fatal error of a failed scan.
func (r *Result) Err() error {
	return r.Errors[MetadataRow]
}

// RowsFailed returns the number of rows recorded with an error.
func (r *Result) RowsFailed() int64 {
	n := int64(len(r.Errors))
	if _, ok := r.Errors[MetadataRow]; ok {
		n--
	}
	return n
}

// ErrorRows returns the row numbers with errors in ascending order.
func (r *Result) ErrorRows() []int64 {
	rows := make([]int64, 0, len(r.Errors))
	for row := range r.Errors {
		rows = append(rows, row)
	}
	slices.Sort(rows)
	return rows
}
