package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
)

// compareObserver compares the inferred columns with a destination table
// and streams every row through the table's unique constraints.
type compareObserver struct {
	scan.NopObserver

	ctx     context.Context
	catalog destination.Catalog
	table   schema.TableName
	opts    scan.Options

	dst        *schema.TableDefinition[schema.ColumnDefinition]
	comparison *compare.TableComparison
	checkers   []*compare.UniqueChecker
	found      []compare.UniqueConflict
	index      map[string]int // conflict key -> position in found
	err        error
}

func newCompareObserver(ctx context.Context, catalog destination.Catalog, table schema.TableName, opts scan.Options) *compareObserver {
	return &compareObserver{
		ctx:     ctx,
		catalog: catalog,
		table:   table,
		opts:    opts,
		index:   make(map[string]int),
	}
}

func (o *compareObserver) OnTypesDetermined(columns []schema.SourceColumnDefinition) {
	logger := logging.WithFields(o.ctx, "table", o.table.String())

	dst, err := o.catalog.TableDefinition(o.ctx, o.table)
	if errors.Is(err, destination.ErrTableNotFound) {
		logger.Info("table does not exist")
		return
	}
	if err != nil {
		o.err = fmt.Errorf("look up %s: %w", o.table, err)
		return
	}
	o.dst = &dst

	cmp := compare.Tables(schema.NewTable(o.table, columns), dst, compare.WithLayouts(o.opts.Layouts))
	o.comparison = &cmp

	for _, c := range dst.Constraints() {
		checker, err := compare.NewUniqueChecker(c, columns)
		if err != nil {
			// The constraint spans a column the file does not have; the
			// comparison already reports it as superfluous.
			logger.Debug("constraint not checked", "constraint", c.Name, "error", err)
			continue
		}
		o.checkers = append(o.checkers, checker)
	}
	logger.Info("table compared",
		"same_schema", cmp.SameSchema(),
		"identical", cmp.Identical(),
		"loadable", cmp.Loadable(),
		"constraints", len(o.checkers),
	)
}

func (o *compareObserver) OnRowRead(row schema.DataRow) {
	for _, c := range o.checkers {
		var conflict *compare.UniqueConflict
		if !errors.As(c.Check(row), &conflict) {
			continue
		}
		k := conflict.Constraint.Name + "\x00" + fmt.Sprint(conflict.Key...)
		if i, ok := o.index[k]; ok {
			o.found[i].Rows = append(o.found[i].Rows, row.RowNo)
			continue
		}
		o.index[k] = len(o.found)
		o.found = append(o.found, *conflict)
	}
}

// OnRowError keeps scanning past malformed rows.
func (o *compareObserver) OnRowError(int64, error) bool { return true }

func (o *compareObserver) conflicts() []compare.UniqueConflict { return o.found }
