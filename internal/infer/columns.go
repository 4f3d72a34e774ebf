package infer

import (
	"github.com/JonMunkholm/tableload/internal/schema"
)

// Options controls how a set of columns is inferred.
type Options struct {
	Strategy         Strategy
	ColumnStrategies map[string]Strategy           // per-column override of Strategy
	ColumnTypes      map[string]schema.LogicalType // explicit type, skips reduction
}

// Columns folds sampled rows across every column of a table. It owns its
// accumulators and folds each row into them in place; Clone takes an
// independent snapshot. Each Accumulator stays a value.
type Columns struct {
	accs []Accumulator
	opts Options
}

// NewColumns starts inference for the given headers in ordinal order.
func NewColumns(names []string, opts Options) Columns {
	accs := make([]Accumulator, len(names))
	for i, name := range names {
		accs[i] = NewAccumulator(i, name)
	}
	return Columns{accs: accs, opts: opts}
}

// Observe folds one row. Cells beyond the known columns are ignored.
func (c *Columns) Observe(row schema.DataRow) {
	for _, cell := range row.Cells {
		if cell.Index >= 0 && cell.Index < len(c.accs) {
			c.accs[cell.Index] = c.accs[cell.Index].Observe(cell.Value)
		}
	}
}

// Clone returns a copy that later observations on c do not affect.
func (c Columns) Clone() Columns {
	accs := make([]Accumulator, len(c.accs))
	copy(accs, c.accs)
	return Columns{accs: accs, opts: c.opts}
}

// Freeze decides every column type and returns the columns sorted by ordinal.
func (c Columns) Freeze() []schema.SourceColumnDefinition {
	out := make([]schema.SourceColumnDefinition, len(c.accs))
	for i, acc := range c.accs {
		name := acc.column.Name
		if t, ok := c.opts.ColumnTypes[name]; ok && t.Valid() {
			out[i] = acc.FreezeAs(t)
			continue
		}
		strategy := c.opts.Strategy
		if s, ok := c.opts.ColumnStrategies[name]; ok {
			strategy = s
		}
		out[i] = acc.Freeze(ReducerFor(strategy))
	}
	return out
}
