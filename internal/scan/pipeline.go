// Package scan drives a Reader through column discovery, type inference and
// row streaming, notifying observers at each step.
//
// A scan moves Idle → Opened → ColumnsDiscovered → TypesInferred →
// Scanning → Completed. Open, discovery and source failures move it to
// Failed instead and are recorded once under MetadataRow. Row failures are
// recorded per row and never fail the scan; it stops early only when no
// observer votes to continue. The reader is closed on every path.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/timefmt"
	"github.com/JonMunkholm/tableload/internal/transform"
)

// ContextCheckInterval is how many rows are read between checks for
// context cancellation.
const ContextCheckInterval = 256

// Options configures a scan.
type Options struct {
	SampleRows       int  // rows used for inference; <= 0 samples every row
	ReadData         bool // stream rows to observers after inference
	Strategy         infer.Strategy
	ColumnStrategies map[string]infer.Strategy
	ColumnTypes      map[string]schema.LogicalType
	Layouts          timefmt.Layouts
}

// Pipeline runs one scan. It is single-use and not safe for concurrent use.
type Pipeline struct {
	reader    Reader
	opts      Options
	observers []Observer
	state     State
}

// New returns an idle pipeline over reader.
func New(reader Reader, opts Options, observers ...Observer) *Pipeline {
	p := &Pipeline{reader: reader, opts: opts}
	for _, o := range observers {
		p.AddObserver(o)
	}
	return p
}

// AddObserver registers o. Nil observers are ignored.
func (p *Pipeline) AddObserver(o Observer) {
	if o != nil {
		p.observers = append(p.observers, o)
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state }

func (p *Pipeline) moveTo(s State) error {
	if !canTransition(p.state, s) {
		return fmt.Errorf("%s -> %s: %w", p.state, s, ErrInvalidTransition)
	}
	p.state = s
	return nil
}

// sampled is a row read during inference, kept for replay when the reader
// cannot rewind.
type sampled struct {
	row schema.DataRow
	err error
}

// Run executes the scan. The returned result is never nil once the scan has
// started; the error is the fatal failure of a Failed scan.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.state != Idle {
		return nil, fmt.Errorf("run in state %s: %w", p.state, ErrInvalidTransition)
	}

	res := newResult()
	ctx = logging.WithRun(ctx, res.RunID.String())
	logger := logging.FromContext(ctx)
	logger.Debug("scan started", "sample_rows", p.opts.SampleRows, "read_data", p.opts.ReadData)

	err := p.run(ctx, res)
	if closeErr := p.reader.Close(); closeErr != nil {
		logger.Warn("failed to close source", "error", closeErr)
	}
	res.Elapsed = time.Since(res.Started)

	if err != nil {
		res.Errors[MetadataRow] = err
		p.state = Failed
		for _, o := range p.observers {
			o.OnError(err)
		}
		logger.Error("scan failed", "error", err, "duration_ms", res.Elapsed.Milliseconds())
	} else {
		if moveErr := p.moveTo(Completed); moveErr != nil {
			return res, moveErr
		}
		logger.Info("scan completed",
			"rows", res.RowsAttempted,
			"failed", res.RowsFailed(),
			"duration_ms", res.Elapsed.Milliseconds(),
		)
	}
	res.State = p.state

	for _, o := range p.observers {
		o.OnComplete(res)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	if err := p.reader.Open(ctx); err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	if err := p.moveTo(Opened); err != nil {
		return err
	}

	headers, err := p.reader.Columns()
	if err != nil {
		return fmt.Errorf("discover columns: %w", err)
	}
	headers, err = orderHeaders(headers)
	if err != nil {
		return fmt.Errorf("discover columns: %w", err)
	}
	if err := p.moveTo(ColumnsDiscovered); err != nil {
		return err
	}
	for _, o := range p.observers {
		o.OnColumnsDiscovered(headers)
	}

	columns, window, eof, stopped, err := p.sample(ctx, res, headers)
	if err != nil {
		return err
	}
	res.Columns = columns
	if err := p.moveTo(TypesInferred); err != nil {
		return err
	}
	for _, o := range p.observers {
		o.OnTypesDetermined(columns)
	}

	if !p.opts.ReadData || stopped {
		return nil
	}
	if err := p.moveTo(Scanning); err != nil {
		return err
	}
	return p.scan(ctx, res, columns, window, eof)
}

// orderHeaders sorts headers by ordinal and requires ordinals 0..n-1.
func orderHeaders(headers []ColumnHeader) ([]ColumnHeader, error) {
	out := slices.Clone(headers)
	slices.SortFunc(out, func(a, b ColumnHeader) int { return a.Ordinal - b.Ordinal })
	for i, h := range out {
		if h.Ordinal != i {
			return nil, fmt.Errorf("column %q has ordinal %d, want %d", h.Name, h.Ordinal, i)
		}
	}
	return out, nil
}

// sample folds the sample window into inferred columns. When rows are not
// streamed afterwards, the sample pass is the only pass and its row errors
// are handled like scan row errors. Otherwise the window is kept for replay
// unless the reader can rewind.
func (p *Pipeline) sample(ctx context.Context, res *Result, headers []ColumnHeader) (
	columns []schema.SourceColumnDefinition, window []sampled, eof, stopped bool, err error,
) {
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = h.Name
	}
	acc := infer.NewColumns(names, infer.Options{
		Strategy:         p.opts.Strategy,
		ColumnStrategies: p.opts.ColumnStrategies,
		ColumnTypes:      p.opts.ColumnTypes,
	})

	_, canRewind := p.reader.(Rewinder)
	keep := p.opts.ReadData && !canRewind
	limit := int64(p.opts.SampleRows)

	for n := int64(0); limit <= 0 || n < limit; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, false, false, fmt.Errorf("sampling cancelled at row %d: %w", n, err)
			}
		}
		row, readErr := p.reader.Next()
		if errors.Is(readErr, io.EOF) {
			eof = true
			break
		}
		if readErr != nil && !IsRowError(readErr) {
			return nil, nil, false, false, fmt.Errorf("read row %d: %w", n, readErr)
		}
		row.RowNo = n

		if readErr == nil {
			acc.Observe(row)
		}
		switch {
		case keep:
			window = append(window, sampled{row: row, err: readErr})
		case !p.opts.ReadData:
			res.RowsAttempted++
			if readErr == nil {
				res.RowsSucceeded++
			} else if !p.rowFailed(ctx, res, n, readErr) {
				stopped = true
				return acc.Freeze(), nil, eof, stopped, nil
			}
		}
	}

	if p.opts.ReadData && canRewind {
		if err := p.reader.(Rewinder).Rewind(); err != nil {
			return nil, nil, false, false, fmt.Errorf("rewind source: %w", err)
		}
		eof = false
	}
	return acc.Freeze(), window, eof, false, nil
}

// scan streams every row, replaying the kept sample window first.
func (p *Pipeline) scan(ctx context.Context, res *Result, columns []schema.SourceColumnDefinition, window []sampled, eof bool) error {
	for n := int64(0); ; n++ {
		if n%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scan cancelled at row %d: %w", n, err)
			}
		}

		var row schema.DataRow
		var err error
		switch {
		case n < int64(len(window)):
			row, err = window[n].row, window[n].err
		case eof:
			return nil
		default:
			row, err = p.reader.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil && !IsRowError(err) {
				return fmt.Errorf("read row %d: %w", n, err)
			}
		}
		row.RowNo = n
		res.RowsAttempted++

		if err == nil {
			row, err = p.materialize(row, columns)
		}
		if err == nil {
			err = p.deliver(ctx, row)
		}
		if err != nil {
			if !p.rowFailed(ctx, res, n, err) {
				return nil
			}
			continue
		}
		res.RowsSucceeded++
	}
}

// materialize converts raw cells into their column types.
func (p *Pipeline) materialize(row schema.DataRow, columns []schema.SourceColumnDefinition) (schema.DataRow, error) {
	out := schema.DataRow{RowNo: row.RowNo, Cells: make([]schema.DataCell, len(row.Cells))}
	for i, cell := range row.Cells {
		if cell.Index < 0 || cell.Index >= len(columns) {
			return row, fmt.Errorf("cell %d outside %d discovered columns", cell.Index, len(columns))
		}
		col := columns[cell.Index]
		v, err := transform.Materialize(cell.Value, col, p.opts.Layouts)
		if err != nil {
			return row, &transform.CellError{Row: row.RowNo, Index: cell.Index, Column: col.Name, Err: err}
		}
		out.Cells[i] = schema.DataCell{Index: cell.Index, Value: v}
	}
	return out, nil
}

// deliver hands the row to every observer and returns the first consumer
// failure. Every observer sees the row even when an earlier one failed.
func (p *Pipeline) deliver(ctx context.Context, row schema.DataRow) error {
	var first error
	for _, o := range p.observers {
		if c, ok := o.(RowConsumer); ok {
			if err := c.ConsumeRow(ctx, row); err != nil && first == nil {
				first = err
			}
			continue
		}
		o.OnRowRead(row)
	}
	return first
}

// rowFailed records a row error and polls every observer. The scan goes on
// when at least one votes to continue; with no observers it stops.
func (p *Pipeline) rowFailed(ctx context.Context, res *Result, rowNo int64, err error) bool {
	res.Errors[rowNo] = err
	logging.FromContext(ctx).Debug("row failed", "row", rowNo, "error", err)

	cont := false
	for _, o := range p.observers {
		if o.OnRowError(rowNo, err) {
			cont = true
		}
	}
	return cont
}
