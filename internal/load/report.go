package load

import (
	"time"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/google/uuid"
)

// Decision is what the loader did with the destination table.
type Decision string

const (
	// DecisionPending means the source columns were never determined.
	DecisionPending Decision = "pending"
	// DecisionAppended means rows were written to an existing table.
	DecisionAppended Decision = "appended"
	// DecisionReplaced means an existing table was truncated before writing.
	DecisionReplaced Decision = "replaced"
	// DecisionCreated means the table was created from the inferred columns.
	DecisionCreated Decision = "created"
	// DecisionSchemaMismatch means column names differ; nothing was written.
	DecisionSchemaMismatch Decision = "schema_mismatch"
	// DecisionNotLoadable means at least one column cannot hold the source
	// data; nothing was written.
	DecisionNotLoadable Decision = "not_loadable"
	// DecisionTableMissing means the table does not exist and creation is
	// disabled; nothing was written.
	DecisionTableMissing Decision = "table_missing"
	// DecisionFailed means the destination could not be prepared.
	DecisionFailed Decision = "failed"
)

// Writes reports whether rows are written under this decision.
func (d Decision) Writes() bool {
	switch d {
	case DecisionAppended, DecisionReplaced, DecisionCreated:
		return true
	}
	return false
}

// Report summarizes one load.
type Report struct {
	RunID       uuid.UUID                `json:"run_id"`
	Table       schema.TableName         `json:"table"`
	Decision    Decision                 `json:"decision"`
	DryRun      bool                     `json:"dry_run"`
	Batch       int64                    `json:"batch,omitempty"`
	Comparison  *compare.TableComparison `json:"comparison,omitempty"`
	RowsRead    int64                    `json:"rows_read"`
	RowsWritten int64                    `json:"rows_written"`
	RowsFailed  int64                    `json:"rows_failed"`
	Duplicates  int64                    `json:"duplicates"`
	Committed   bool                     `json:"committed"`
	Elapsed     time.Duration            `json:"elapsed"`
	Error       string                   `json:"error,omitempty"`
}

// Succeeded reports whether every row read was written and committed.
func (r Report) Succeeded() bool {
	return r.Decision.Writes() && r.Committed && r.RowsFailed == 0 && r.Error == ""
}
