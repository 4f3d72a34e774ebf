package load

import (
	"context"
	"testing"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payments = schema.TableName{Schema: "ledger", Table: "payments"}

const paymentsCSV = "id,name,amount\n1,ann,1.50\n2,bob,2.25\n"

func scanOptions() scan.Options {
	return scan.Options{
		ReadData: true,
		Strategy: infer.Most,
		ColumnTypes: map[string]schema.LogicalType{
			"id":     schema.BigInt,
			"name":   schema.Clob,
			"amount": schema.Decimal,
		},
	}
}

// paymentsTable is a destination table matching paymentsCSV.
func paymentsTable(extra ...schema.ColumnDefinition) schema.TableDefinition[schema.ColumnDefinition] {
	id := schema.NewColumn("id", schema.BigInt)
	id.Modifier.Nullable = false
	cols := append([]schema.ColumnDefinition{
		id,
		schema.NewColumn("name", schema.Clob),
		schema.NewColumn("amount", schema.Decimal),
	}, extra...)
	def := schema.NewTable(payments, cols)
	def.PrimaryKey = &schema.UniqueConstraint{Name: "payments_pkey", Columns: []string{"id"}}
	return def
}

func runLoad(t *testing.T, catalog destination.Catalog, data string, opts Options) (Report, *scan.Result) {
	t.Helper()
	ctx := context.Background()
	opts.Table = payments
	l := New(ctx, catalog, opts)
	reader := source.NewCSVReader(source.Bytes{Filename: "payments.csv", Data: []byte(data)}, source.CSVOptions{})
	res, err := scan.New(reader, scanOptions(), l).Run(ctx)
	require.NoError(t, err)
	return l.Report(), res
}

func TestLoaderCreatesTable(t *testing.T) {
	mem := destination.NewMemory()
	report, res := runLoad(t, mem, paymentsCSV, Options{CreateTableIfNeeded: true, AddBatch: true})

	assert.Equal(t, DecisionCreated, report.Decision)
	assert.True(t, report.Succeeded())
	assert.Equal(t, res.RunID, report.RunID)
	assert.Equal(t, int64(2), report.RowsRead)
	assert.Equal(t, int64(2), report.RowsWritten)
	assert.NotZero(t, report.Batch)

	def, err := mem.TableDefinition(context.Background(), payments)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "amount", DefaultBatchColumn}, def.Names())
	assert.Equal(t, schema.BigInt, def.Columns[3].Type)

	rows := mem.Rows(payments)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0][0])
	assert.Equal(t, "ann", rows[0][1])
	assert.True(t, decimal.RequireFromString("1.50").Equal(rows[0][2].(decimal.Decimal)))
	assert.Equal(t, report.Batch, rows[0][3])
	assert.Equal(t, report.Batch, rows[1][3])
}

func TestLoaderTableMissing(t *testing.T) {
	mem := destination.NewMemory()
	report, res := runLoad(t, mem, paymentsCSV, Options{})

	assert.Equal(t, DecisionTableMissing, report.Decision)
	assert.False(t, report.Succeeded())
	assert.Zero(t, report.RowsWritten)
	assert.Equal(t, int64(1), res.RowsAttempted, "scan stops at the first refused row")

	_, err := mem.TableDefinition(context.Background(), payments)
	assert.ErrorIs(t, err, destination.ErrTableNotFound)
}

func TestLoaderExistingTable(t *testing.T) {
	tests := []struct {
		name     string
		clear    bool
		decision Decision
		wantRows int
	}{
		{name: "append", clear: false, decision: DecisionAppended, wantRows: 3},
		{name: "clear first", clear: true, decision: DecisionReplaced, wantRows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := destination.NewMemory()
			def := paymentsTable()
			require.NoError(t, mem.CreateTable(ctx, def))
			w, err := mem.Writer(ctx, payments, def.Columns)
			require.NoError(t, err)
			require.NoError(t, w.Write(ctx, []any{int64(99), "old", nil}))
			require.NoError(t, w.Commit(ctx))

			report, _ := runLoad(t, mem, paymentsCSV, Options{ClearTable: tt.clear})

			assert.Equal(t, tt.decision, report.Decision)
			assert.True(t, report.Succeeded())
			require.NotNil(t, report.Comparison)
			assert.True(t, report.Comparison.Identical())
			assert.Len(t, mem.Rows(payments), tt.wantRows)
		})
	}
}

func TestLoaderRefusesIncompatibleTables(t *testing.T) {
	tests := []struct {
		name     string
		table    func() schema.TableDefinition[schema.ColumnDefinition]
		opts     Options
		decision Decision
	}{
		{
			name:     "extra destination column",
			table:    func() schema.TableDefinition[schema.ColumnDefinition] { return paymentsTable(schema.NewColumn("note", schema.Clob)) },
			decision: DecisionSchemaMismatch,
		},
		{
			name:     "batch column missing from destination",
			table:    func() schema.TableDefinition[schema.ColumnDefinition] { return paymentsTable() },
			opts:     Options{AddBatch: true},
			decision: DecisionSchemaMismatch,
		},
		{
			name: "column cannot hold text",
			table: func() schema.TableDefinition[schema.ColumnDefinition] {
				def := paymentsTable()
				def.Columns[1] = schema.NewColumn("name", schema.Boolean)
				return def
			},
			decision: DecisionNotLoadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := destination.NewMemory()
			require.NoError(t, mem.CreateTable(context.Background(), tt.table()))

			report, _ := runLoad(t, mem, paymentsCSV, tt.opts)

			assert.Equal(t, tt.decision, report.Decision)
			assert.False(t, report.Decision.Writes())
			assert.Zero(t, report.RowsWritten)
			assert.Empty(t, mem.Rows(payments))
		})
	}
}

func TestLoaderBatchColumnInDestination(t *testing.T) {
	mem := destination.NewMemory()
	batch := schema.NewColumn("load_batch", schema.BigInt)
	require.NoError(t, mem.CreateTable(context.Background(), paymentsTable(batch)))

	report, _ := runLoad(t, mem, paymentsCSV, Options{AddBatch: true, BatchColumn: "load_batch"})

	assert.Equal(t, DecisionAppended, report.Decision)
	rows := mem.Rows(payments)
	require.Len(t, rows, 2)
	assert.Equal(t, report.Batch, rows[1][3])
}

func TestLoaderDuplicateKeys(t *testing.T) {
	mem := destination.NewMemory()
	require.NoError(t, mem.CreateTable(context.Background(), paymentsTable()))

	report, res := runLoad(t, mem, paymentsCSV+"1,carl,3.00\n3,dan,4.00\n", Options{})

	assert.Equal(t, int64(4), report.RowsRead)
	assert.Equal(t, int64(3), report.RowsWritten)
	assert.Equal(t, int64(1), report.RowsFailed)
	assert.Equal(t, int64(1), report.Duplicates)
	assert.True(t, report.Committed)
	assert.False(t, report.Succeeded())

	var conflict *compare.UniqueConflict
	require.ErrorAs(t, res.Errors[2], &conflict)
	assert.Equal(t, []int64{0, 2}, conflict.Rows)
	assert.Len(t, mem.Rows(payments), 3)
}

func TestLoaderConversionFailure(t *testing.T) {
	mem := destination.NewMemory()
	require.NoError(t, mem.CreateTable(context.Background(), paymentsTable()))

	report, res := runLoad(t, mem, paymentsCSV+"3,carl,lots\n", Options{})

	assert.Equal(t, int64(2), report.RowsWritten)
	assert.Equal(t, int64(1), report.RowsFailed)
	assert.Contains(t, res.Errors, int64(2))
}

func TestLoaderDryRun(t *testing.T) {
	mem := destination.NewMemory()
	require.NoError(t, mem.CreateTable(context.Background(), paymentsTable()))

	report, _ := runLoad(t, mem, paymentsCSV, Options{DryRun: true, ClearTable: true})

	assert.True(t, report.DryRun)
	assert.Equal(t, DecisionReplaced, report.Decision)
	assert.Equal(t, int64(2), report.RowsWritten)
	assert.True(t, report.Committed)
	assert.Empty(t, mem.Rows(payments), "dry run leaves the destination untouched")

	fresh := destination.NewMemory()
	report, _ = runLoad(t, fresh, paymentsCSV, Options{DryRun: true, CreateTableIfNeeded: true})
	assert.Equal(t, DecisionCreated, report.Decision)
	_, err := fresh.TableDefinition(context.Background(), payments)
	assert.ErrorIs(t, err, destination.ErrTableNotFound)
}

func TestLoaderRollsBackFailedScan(t *testing.T) {
	ctx := context.Background()
	mem := destination.NewMemory()
	def := paymentsTable()
	require.NoError(t, mem.CreateTable(ctx, def))

	columns := []schema.SourceColumnDefinition{
		{ColumnDefinition: schema.NewColumn("id", schema.BigInt), Ordinal: 0},
		{ColumnDefinition: schema.NewColumn("name", schema.Clob), Ordinal: 1},
		{ColumnDefinition: schema.NewColumn("amount", schema.Decimal), Ordinal: 2},
	}
	var progress []int64
	l := New(ctx, mem, Options{Table: payments, Progress: func(n int64) { progress = append(progress, n) }})
	l.OnTypesDetermined(columns)
	require.NoError(t, l.ConsumeRow(ctx, schema.NewDataRow(0, int64(1), "ann", decimal.NewFromInt(1))))
	require.NoError(t, l.ConsumeRow(ctx, schema.NewDataRow(1, int64(2), "bob", nil)))

	l.OnError(assert.AnError)
	l.OnComplete(&scan.Result{State: scan.Failed, Errors: map[int64]error{scan.MetadataRow: assert.AnError}})

	report := l.Report()
	assert.False(t, report.Committed)
	assert.Zero(t, report.RowsWritten)
	assert.Equal(t, assert.AnError.Error(), report.Error)
	assert.Equal(t, []int64{1, 2}, progress)
	assert.Empty(t, mem.Rows(payments))
}
