// Package load writes scanned rows into a destination table.
//
// A Loader is a scan observer. When the source columns are known it
// decides what to do with the destination table:
//
//   - table exists, column names differ: nothing is written
//   - table exists, a column cannot hold the source data: nothing is written
//   - table exists and can take the data: optionally truncate, then append
//   - table missing: create it from the inferred columns when allowed
//
// Every row is then checked against the table's unique constraints,
// converted to the destination types and written. A failed row is reported
// to the pipeline and the load carries on. Rows are committed together when
// the scan completes and rolled back when it fails.
package load

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/JonMunkholm/tableload/internal/transform"
)

// DefaultBatchColumn is the name of the batch column when none is set.
const DefaultBatchColumn = "tableload_batch"

// ErrNotWriting is returned by ConsumeRow when a row arrives although the
// loader decided not to write.
var ErrNotWriting = errors.New("destination not accepting rows")

// Options configures a Loader.
type Options struct {
	Table schema.TableName
	// AddBatch appends a BIGINT column holding the load's start time in Unix
	// milliseconds to every row.
	AddBatch    bool
	BatchColumn string
	// ClearTable truncates an existing table before writing.
	ClearTable bool
	// CreateTableIfNeeded creates a missing table from the inferred columns.
	CreateTableIfNeeded bool
	// DryRun performs every check and conversion against an in-memory copy
	// of the destination table. The destination is only read.
	DryRun  bool
	Layouts timefmt.Layouts
	// Progress is called with the number of rows handled so far.
	Progress func(rows int64)
}

// Loader is a scan observer that writes rows into one table. It is bound to
// the context it was created with; database calls made from observer
// callbacks use it.
type Loader struct {
	scan.NopObserver

	ctx     context.Context
	catalog destination.Catalog
	opts    Options
	started time.Time
	logger  *slog.Logger

	source   []schema.SourceColumnDefinition
	pairs    []transform.Pair
	checkers []*compare.UniqueChecker
	writer   destination.RowWriter
	batch    int64

	read    atomic.Int64
	written int64
	report  Report
	err     error
}

var (
	_ scan.Observer    = (*Loader)(nil)
	_ scan.RowConsumer = (*Loader)(nil)
)

// New returns a loader writing into catalog.
func New(ctx context.Context, catalog destination.Catalog, opts Options) *Loader {
	if opts.AddBatch && opts.BatchColumn == "" {
		opts.BatchColumn = DefaultBatchColumn
	}
	return &Loader{
		ctx:     ctx,
		catalog: catalog,
		opts:    opts,
		started: time.Now(),
		logger:  logging.WithFields(ctx, "table", opts.Table.String()),
		report: Report{
			Table:    opts.Table,
			Decision: DecisionPending,
			DryRun:   opts.DryRun,
		},
	}
}

// Report returns the outcome so far. It is final once the scan returned.
func (l *Loader) Report() Report {
	r := l.report
	r.RowsRead = l.read.Load()
	r.RowsWritten = l.written
	return r
}

// OnTypesDetermined compares the source with the destination and prepares
// the writer.
func (l *Loader) OnTypesDetermined(columns []schema.SourceColumnDefinition) {
	l.source = columns
	if l.opts.AddBatch {
		l.batch = l.started.UnixMilli()
		l.report.Batch = l.batch
		batch := schema.NewSourceColumn(len(columns), l.opts.BatchColumn)
		batch.Type = schema.BigInt
		batch.PossibleTypes = schema.NewTypeSet(schema.BigInt)
		batch.Modifier.Nullable = false
		l.source = append(append([]schema.SourceColumnDefinition(nil), columns...), batch)
		l.logger.Info("batch column added", "column", l.opts.BatchColumn, "batch", l.batch)
	}

	if err := l.prepare(); err != nil {
		l.report.Decision = DecisionFailed
		l.fail(err)
		l.logger.Error("destination not prepared", "error", err)
	}
}

func (l *Loader) prepare() error {
	ctx := l.ctx
	src := schema.NewTable(l.opts.Table, l.source)

	dst, err := l.catalog.TableDefinition(ctx, l.opts.Table)
	switch {
	case errors.Is(err, destination.ErrTableNotFound):
		if !l.opts.CreateTableIfNeeded {
			l.report.Decision = DecisionTableMissing
			l.logger.Error("table does not exist and creation is disabled")
			return nil
		}
		dst = src.Definitions()
		dst.PrimaryKey, dst.UniqueConstraints = nil, nil
		l.report.Decision = DecisionCreated
	case err != nil:
		return fmt.Errorf("look up %s: %w", l.opts.Table, err)
	default:
		cmp := compare.Tables(src, dst, compare.WithLayouts(l.opts.Layouts))
		l.report.Comparison = &cmp
		switch {
		case !cmp.SameSchema():
			l.report.Decision = DecisionSchemaMismatch
			l.logger.Error("table differs from source, nothing will be written",
				"missing", len(cmp.Missing), "superfluous", len(cmp.Superfluous))
			return nil
		case !cmp.Loadable():
			l.report.Decision = DecisionNotLoadable
			for _, p := range cmp.Unloadable() {
				l.logger.Error("column cannot hold source data", "column", p.Destination.Name,
					"source_type", p.Source.Type.String(), "destination_type", p.Destination.Type.String())
			}
			return nil
		case !cmp.Identical():
			l.logger.Warn("column types differ, values will be converted",
				"type_conflicts", len(cmp.TypeConflicts()), "may_truncate", len(cmp.MayTruncate()))
		}
		l.report.Decision = DecisionAppended
		if l.opts.ClearTable {
			l.report.Decision = DecisionReplaced
		}
	}

	target := l.catalog
	if l.opts.DryRun {
		mem := destination.NewMemory()
		if err := mem.CreateTable(ctx, dst); err != nil {
			return fmt.Errorf("dry run copy of %s: %w", l.opts.Table, err)
		}
		target = mem
	} else {
		switch l.report.Decision {
		case DecisionCreated:
			if err := l.catalog.CreateTable(ctx, dst); err != nil {
				return fmt.Errorf("create %s: %w", l.opts.Table, err)
			}
		case DecisionReplaced:
			if err := l.catalog.Truncate(ctx, l.opts.Table); err != nil {
				return fmt.Errorf("clear %s: %w", l.opts.Table, err)
			}
			l.logger.Warn("table cleared")
		}
	}

	for _, c := range dst.Constraints() {
		checker, err := compare.NewUniqueChecker(c, l.source)
		if err != nil {
			return err
		}
		l.checkers = append(l.checkers, checker)
	}

	l.pairs = make([]transform.Pair, 0, len(l.source))
	columns := make([]schema.ColumnDefinition, 0, len(l.source))
	for _, s := range l.source {
		d, _ := dst.Column(s.Name)
		l.pairs = append(l.pairs, transform.NewPair(s, d, l.opts.Layouts))
		columns = append(columns, d)
	}

	w, err := target.Writer(ctx, l.opts.Table, columns)
	if err != nil {
		return fmt.Errorf("open writer on %s: %w", l.opts.Table, err)
	}
	l.writer = w
	l.logger.Info("destination ready", "decision", string(l.report.Decision), "dry_run", l.opts.DryRun,
		"constraints", len(l.checkers))
	return nil
}

// ConsumeRow checks, converts and writes one row.
func (l *Loader) ConsumeRow(ctx context.Context, row schema.DataRow) error {
	n := l.read.Add(1)
	if l.opts.Progress != nil {
		l.opts.Progress(n)
	}
	if l.writer == nil {
		return ErrNotWriting
	}

	if l.opts.AddBatch {
		cells := make([]schema.DataCell, len(row.Cells), len(row.Cells)+1)
		copy(cells, row.Cells)
		row.Cells = append(cells, schema.DataCell{Index: len(l.source) - 1, Value: l.batch})
	}

	for _, c := range l.checkers {
		if err := c.Check(row); err != nil {
			l.report.Duplicates++
			return err
		}
	}
	values, err := transform.Row(row, l.pairs)
	if err != nil {
		return err
	}
	if err := l.writer.Write(ctx, values); err != nil {
		return err
	}
	l.written++
	return nil
}

// OnRowError votes to continue unless nothing is being written.
func (l *Loader) OnRowError(rowNo int64, err error) bool {
	return l.writer != nil
}

// OnError records the fatal error of the scan.
func (l *Loader) OnError(err error) {
	l.fail(err)
}

func (l *Loader) fail(err error) {
	if l.err == nil {
		l.err = err
		l.report.Error = err.Error()
	}
}

// Err returns the first error that failed the load: preparing the
// destination, the scan itself or the commit. Refused tables are reported
// through the decision, not here.
func (l *Loader) Err() error { return l.err }

// OnComplete commits the written rows when the scan completed and rolls
// them back otherwise.
func (l *Loader) OnComplete(result *scan.Result) {
	l.report.RunID = result.RunID
	l.report.RowsFailed = result.RowsFailed()
	defer func() { l.report.Elapsed = time.Since(l.started) }()

	if l.writer == nil {
		return
	}
	if result.State != scan.Completed || l.ctx.Err() != nil {
		if err := l.writer.Rollback(context.WithoutCancel(l.ctx)); err != nil {
			l.logger.Error("rollback failed", "error", err)
		}
		l.written = 0
		l.logger.Warn("rows rolled back", "state", result.State.String())
		return
	}
	if err := l.writer.Commit(l.ctx); err != nil {
		l.fail(fmt.Errorf("commit %s: %w", l.opts.Table, err))
		l.written = 0
		l.logger.Error("commit failed", "error", err)
		return
	}
	l.report.Committed = true
	l.logger.Info("rows committed", "written", l.written, "failed", l.report.RowsFailed,
		"duration_ms", time.Since(l.started).Milliseconds())
}
