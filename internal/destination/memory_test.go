package destination

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/tableload/internal/destination/dialect"
	"github.com/JonMunkholm/tableload/internal/schema"
)

func invoices() schema.TableDefinition[schema.ColumnDefinition] {
	id := schema.NewColumn("id", schema.Integer)
	id.Modifier.Nullable = false
	def := schema.NewTable(schema.TableName{Schema: "billing", Table: "invoices"}, []schema.ColumnDefinition{
		id,
		schema.NewColumn("number", schema.Varchar).WithLength(20),
		schema.NewColumn("note", schema.Clob),
	})
	def.PrimaryKey = &schema.UniqueConstraint{Name: "invoices_pkey", Columns: []string{"id"}}
	def.UniqueConstraints = []schema.UniqueConstraint{{Name: "invoices_number_key", Columns: []string{"number"}}}
	return def
}

func newMemoryWith(t *testing.T, def schema.TableDefinition[schema.ColumnDefinition]) *Memory {
	t.Helper()
	m := NewMemory()
	if err := m.CreateTable(context.Background(), def); err != nil {
		t.Fatalf("CreateTable() error: %v", err)
	}
	return m
}

func TestMemoryTables(t *testing.T) {
	ctx := context.Background()
	m := newMemoryWith(t, invoices())

	if err := m.CreateTable(ctx, invoices()); !errors.Is(err, ErrTableExists) {
		t.Errorf("CreateTable() twice error = %v, want ErrTableExists", err)
	}

	got, err := m.TableDefinition(ctx, schema.TableName{Schema: "BILLING", Table: "Invoices"})
	if err != nil {
		t.Fatalf("TableDefinition() error: %v", err)
	}
	if len(got.Columns) != 3 || got.PrimaryKey == nil {
		t.Errorf("TableDefinition() = %+v", got)
	}

	missing := schema.TableName{Table: "nope"}
	if _, err := m.TableDefinition(ctx, missing); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("TableDefinition(missing) error = %v, want ErrTableNotFound", err)
	}
	if err := m.Truncate(ctx, missing); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Truncate(missing) error = %v, want ErrTableNotFound", err)
	}
	if _, err := m.Writer(ctx, missing, nil); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Writer(missing) error = %v, want ErrTableNotFound", err)
	}
}

func TestMemoryCreateTableRejectsDuplicateColumns(t *testing.T) {
	def := schema.NewTable(schema.TableName{Table: "t"}, []schema.ColumnDefinition{
		schema.NewColumn("a", schema.Integer),
		schema.NewColumn("A", schema.Integer),
	})
	if err := NewMemory().CreateTable(context.Background(), def); err == nil {
		t.Error("CreateTable() expected error for duplicate columns")
	}
}

func TestMemoryWriter(t *testing.T) {
	ctx := context.Background()
	def := invoices()

	tests := []struct {
		name    string
		rows    [][]any
		wantErr []bool
		wantN   int
	}{
		{
			name:    "distinct rows",
			rows:    [][]any{{1, "A-1", nil}, {2, "A-2", "x"}},
			wantErr: []bool{false, false},
			wantN:   2,
		},
		{
			name:    "duplicate primary key",
			rows:    [][]any{{1, "A-1", nil}, {1, "A-2", nil}},
			wantErr: []bool{false, true},
			wantN:   1,
		},
		{
			name:    "duplicate unique key",
			rows:    [][]any{{1, "A-1", nil}, {2, "A-1", nil}},
			wantErr: []bool{false, true},
			wantN:   1,
		},
		{
			name:    "null unique key never conflicts",
			rows:    [][]any{{1, nil, nil}, {2, nil, nil}},
			wantErr: []bool{false, false},
			wantN:   2,
		},
		{
			name:    "null in not null column",
			rows:    [][]any{{nil, "A-1", nil}},
			wantErr: []bool{true},
			wantN:   0,
		},
		{
			name:    "wrong value count",
			rows:    [][]any{{1, "A-1"}},
			wantErr: []bool{true},
			wantN:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemoryWith(t, def)
			w, err := m.Writer(ctx, def.Name, def.Columns)
			if err != nil {
				t.Fatalf("Writer() error: %v", err)
			}
			for i, row := range tt.rows {
				err := w.Write(ctx, row)
				if (err != nil) != tt.wantErr[i] {
					t.Fatalf("Write(row %d) error = %v, wantErr %v", i, err, tt.wantErr[i])
				}
				var insertErr *RowInsertError
				if err != nil && !errors.As(err, &insertErr) {
					t.Errorf("Write(row %d) error = %T, want *RowInsertError", i, err)
				}
			}
			if err := w.Commit(ctx); err != nil {
				t.Fatalf("Commit() error: %v", err)
			}
			if got := len(m.Rows(def.Name)); got != tt.wantN {
				t.Errorf("rows = %d, want %d", got, tt.wantN)
			}
		})
	}
}

func TestMemoryWriterColumnSubset(t *testing.T) {
	ctx := context.Background()
	def := invoices()
	m := newMemoryWith(t, def)

	cols := []schema.ColumnDefinition{def.Columns[2], def.Columns[0]}
	w, err := m.Writer(ctx, def.Name, cols)
	if err != nil {
		t.Fatalf("Writer() error: %v", err)
	}
	if err := w.Write(ctx, []any{"note", 9}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	rows := m.Rows(def.Name)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0][0] != 9 || rows[0][1] != nil || rows[0][2] != "note" {
		t.Errorf("row = %v, want [9 <nil> note]", rows[0])
	}

	if _, err := m.Writer(ctx, def.Name, []schema.ColumnDefinition{schema.NewColumn("ghost", schema.Integer)}); err == nil {
		t.Error("Writer() expected error for unknown column")
	}
}

func TestMemoryWriterRollback(t *testing.T) {
	ctx := context.Background()
	def := invoices()
	m := newMemoryWith(t, def)

	w, _ := m.Writer(ctx, def.Name, def.Columns)
	if err := w.Write(ctx, []any{1, "A-1", nil}); err != nil {
		t.Fatal(err)
	}
	if err := w.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}
	if got := len(m.Rows(def.Name)); got != 0 {
		t.Errorf("rows after rollback = %d, want 0", got)
	}
	if err := w.Write(ctx, []any{2, "A-2", nil}); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("Write() after rollback error = %v, want ErrWriterClosed", err)
	}

	// A rolled back key is free again.
	w, _ = m.Writer(ctx, def.Name, def.Columns)
	if err := w.Write(ctx, []any{1, "A-1", nil}); err != nil {
		t.Errorf("Write() after rollback of same key error: %v", err)
	}
}

func TestMemoryCommittedKeysConflict(t *testing.T) {
	ctx := context.Background()
	def := invoices()
	m := newMemoryWith(t, def)

	w, _ := m.Writer(ctx, def.Name, def.Columns)
	_ = w.Write(ctx, []any{1, "A-1", nil})
	if err := w.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.Commit(ctx); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("second Commit() error = %v, want ErrWriterClosed", err)
	}

	w, _ = m.Writer(ctx, def.Name, def.Columns)
	if err := w.Write(ctx, []any{1, "B-1", nil}); err == nil {
		t.Error("Write() expected conflict with committed row")
	}

	if err := m.Truncate(ctx, def.Name); err != nil {
		t.Fatal(err)
	}
	w, _ = m.Writer(ctx, def.Name, def.Columns)
	if err := w.Write(ctx, []any{1, "B-1", nil}); err != nil {
		t.Errorf("Write() after truncate error: %v", err)
	}
}

// ----------------------------------------------------------------------------
// buildDefinition Tests
// ----------------------------------------------------------------------------

func TestBuildDefinition(t *testing.T) {
	name := schema.TableName{Schema: "public", Table: "orders"}
	columns := []dialect.ColumnInfo{
		{Name: "id", DataType: "integer", Nullable: "NO"},
		{Name: "region", DataType: "character varying", Nullable: "NO"},
		{Name: "code", DataType: "character varying", Nullable: "YES"},
	}
	columns[1].Length.Int64, columns[1].Length.Valid = 8, true
	columns[2].Length.Int64, columns[2].Length.Valid = 4, true
	constraints := []constraintRow{
		{Name: "orders_pkey", Type: "PRIMARY KEY", Column: "id"},
		{Name: "orders_region_code_key", Type: "UNIQUE", Column: "region"},
		{Name: "orders_region_code_key", Type: "UNIQUE", Column: "code"},
	}

	def, err := buildDefinition(dialect.Postgres{}, name, columns, constraints)
	if err != nil {
		t.Fatalf("buildDefinition() error: %v", err)
	}
	if def.Name != name {
		t.Errorf("Name = %v, want %v", def.Name, name)
	}
	if def.Columns[0].Type != schema.Integer || def.Columns[0].Modifier.Nullable {
		t.Errorf("id = %+v, want non-null INTEGER", def.Columns[0])
	}
	if def.Columns[1].Type != schema.Varchar || def.Columns[1].Modifier.MaxLength != 8 {
		t.Errorf("region = %+v, want VARCHAR(8)", def.Columns[1])
	}
	if def.PrimaryKey == nil || def.PrimaryKey.Name != "orders_pkey" {
		t.Fatalf("PrimaryKey = %+v", def.PrimaryKey)
	}
	if len(def.UniqueConstraints) != 1 || len(def.UniqueConstraints[0].Columns) != 2 {
		t.Errorf("UniqueConstraints = %+v, want one two-column constraint", def.UniqueConstraints)
	}

	if _, err := buildDefinition(dialect.Postgres{}, name, nil, nil); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("buildDefinition(no columns) error = %v, want ErrTableNotFound", err)
	}
}
