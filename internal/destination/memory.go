package destination

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/JonMunkholm/tableload/internal/schema"
)

// Memory is an in-process Catalog. It enforces NOT NULL, primary key and
// unique constraints on write, and is used for dry runs.
type Memory struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memTable struct {
	def  schema.TableDefinition[schema.ColumnDefinition]
	rows [][]any
	keys map[string]bool // constraint keys of committed rows
}

var _ Catalog = (*Memory)(nil)

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*memTable)}
}

func memKey(n schema.TableName) string { return strings.ToLower(n.String()) }

// TableDefinition returns the definition the table was created with.
func (m *Memory) TableDefinition(_ context.Context, name schema.TableName) (schema.TableDefinition[schema.ColumnDefinition], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[memKey(name)]
	if !ok {
		return schema.TableDefinition[schema.ColumnDefinition]{}, fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}
	return t.def, nil
}

// CreateTable adds an empty table.
func (m *Memory) CreateTable(_ context.Context, def schema.TableDefinition[schema.ColumnDefinition]) error {
	if err := def.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey(def.Name)
	if _, ok := m.tables[key]; ok {
		return fmt.Errorf("%s: %w", def.Name, ErrTableExists)
	}
	def.Columns = slices.Clone(def.Columns)
	m.tables[key] = &memTable{def: def, keys: make(map[string]bool)}
	return nil
}

// Truncate removes every row of the table.
func (m *Memory) Truncate(_ context.Context, name schema.TableName) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[memKey(name)]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}
	t.rows = nil
	t.keys = make(map[string]bool)
	return nil
}

// Rows returns a copy of the table's committed rows in table column order.
func (m *Memory) Rows(name schema.TableName) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[memKey(name)]
	if !ok {
		return nil
	}
	out := make([][]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Writer buffers rows until Commit.
func (m *Memory) Writer(_ context.Context, name schema.TableName, columns []schema.ColumnDefinition) (RowWriter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[memKey(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}
	index := make([]int, len(columns))
	for i, c := range columns {
		index[i] = t.def.Index(c.Name)
		if index[i] < 0 {
			return nil, fmt.Errorf("%s: column %q does not exist", name, c.Name)
		}
	}
	return &memWriter{m: m, t: t, index: index, keys: make(map[string]bool)}, nil
}

type memWriter struct {
	m       *Memory
	t       *memTable
	index   []int // writer column -> table column
	pending [][]any
	keys    map[string]bool // constraint keys of pending rows
	done    bool
}

func (w *memWriter) Write(_ context.Context, values []any) error {
	if w.done {
		return ErrWriterClosed
	}
	if len(values) != len(w.index) {
		return &RowInsertError{Table: w.t.def.Name, Err: fmt.Errorf("%d values for %d columns", len(values), len(w.index))}
	}
	row := make([]any, len(w.t.def.Columns))
	for i, v := range values {
		row[w.index[i]] = v
	}
	for i, c := range w.t.def.Columns {
		if row[i] == nil && !c.Modifier.Nullable {
			return &RowInsertError{Table: w.t.def.Name, Err: fmt.Errorf("null value in column %q", c.Name)}
		}
	}

	w.m.mu.Lock()
	defer w.m.mu.Unlock()

	keys := w.constraintKeys(row)
	for _, k := range keys {
		if w.keys[k] || w.t.keys[k] {
			return &RowInsertError{Table: w.t.def.Name, Err: fmt.Errorf("duplicate key %s", k[strings.IndexByte(k, 0)+1:])}
		}
	}
	for _, k := range keys {
		w.keys[k] = true
	}
	w.pending = append(w.pending, row)
	return nil
}

// constraintKeys renders one key per constraint, prefixed by the constraint
// name. Keys with a null part are skipped.
func (w *memWriter) constraintKeys(row []any) []string {
	var keys []string
outer:
	for _, c := range w.t.def.Constraints() {
		var b strings.Builder
		b.WriteString(c.Name)
		b.WriteByte(0)
		for i, col := range c.Columns {
			v := row[w.t.def.Index(col)]
			if v == nil {
				continue outer
			}
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%v", v)
		}
		keys = append(keys, b.String())
	}
	return keys
}

func (w *memWriter) Commit(context.Context) error {
	if w.done {
		return ErrWriterClosed
	}
	w.done = true

	w.m.mu.Lock()
	defer w.m.mu.Unlock()
	w.t.rows = append(w.t.rows, w.pending...)
	for k := range w.keys {
		w.t.keys[k] = true
	}
	w.pending = nil
	return nil
}

func (w *memWriter) Rollback(context.Context) error {
	w.done = true
	w.pending = nil
	return nil
}
