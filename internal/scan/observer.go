package scan

import (
	"context"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// Observer receives pipeline events. Observers are notified in registration
// order for every event. Embed NopObserver to implement only what you need.
type Observer interface {
	// OnColumnsDiscovered receives ordinal and name of every column.
	OnColumnsDiscovered(columns []ColumnHeader)
	// OnTypesDetermined receives the inferred columns sorted by ordinal.
	OnTypesDetermined(columns []schema.SourceColumnDefinition)
	// OnRowRead receives each row with values in their column types.
	OnRowRead(row schema.DataRow)
	// OnRowError is told about a failed row and votes on whether the scan
	// continues. The scan continues when at least one observer votes true.
	OnRowError(rowNo int64, err error) bool
	// OnComplete receives the final result, also after a failed scan.
	OnComplete(result *Result)
	// OnError receives the fatal error of a failed scan.
	OnError(err error)
}

// RowConsumer is implemented by observers whose handling of a row can fail,
// such as a writer. The pipeline calls ConsumeRow in place of OnRowRead and
// treats a returned error as a failure of that row.
type RowConsumer interface {
	ConsumeRow(ctx context.Context, row schema.DataRow) error
}

// NopObserver implements every Observer method as a no-op. OnRowError votes
// to stop.
type NopObserver struct{}

func (NopObserver) OnColumnsDiscovered([]ColumnHeader)                 {}
func (NopObserver) OnTypesDetermined([]schema.SourceColumnDefinition) {}
func (NopObserver) OnRowRead(schema.DataRow)                           {}
func (NopObserver) OnRowError(int64, error) bool                       { return false }
func (NopObserver) OnComplete(*Result)                                 {}
func (NopObserver) OnError(error)                                      {}

var _ Observer = NopObserver{}

// Collector keeps everything a scan produces in memory: the inferred
// columns and every successfully read row. It always votes to continue.
type Collector struct {
	NopObserver

	Columns   []schema.SourceColumnDefinition
	Rows      []schema.DataRow
	RowErrors map[int64]error
	Err       error
	Result    *Result
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{RowErrors: make(map[int64]error)}
}

func (c *Collector) OnTypesDetermined(columns []schema.SourceColumnDefinition) {
	c.Columns = columns
}

func (c *Collector) OnRowRead(row schema.DataRow) {
	c.Rows = append(c.Rows, row)
}

func (c *Collector) OnRowError(rowNo int64, err error) bool {
	c.RowErrors[rowNo] = err
	return true
}

func (c *Collector) OnComplete(result *Result) { c.Result = result }

func (c *Collector) OnError(err error) { c.Err = err }

// Table returns the collected columns as a table definition.
func (c *Collector) Table(name schema.TableName) schema.TableDefinition[schema.SourceColumnDefinition] {
	return schema.NewTable(name, c.Columns)
}
