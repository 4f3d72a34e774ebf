package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
)

// CSVOptions configures delimited text parsing.
type CSVOptions struct {
	Delimiter rune   // field separator, ',' when zero
	Encoding  string // charset name, UTF-8 when empty
	NoHeader  bool   // first row is data; columns are named column_1..n
	Progress  func(read, total int64)
}

// CSVReader reads delimited text. Cells are trimmed strings; missing
// trailing cells are nil and extra cells fail the row.
type CSVReader struct {
	src  Source
	opts CSVOptions

	file    io.ReadCloser
	counter *CountingReader
	csv     *csv.Reader
	headers []scan.ColumnHeader
	pending []string
	rowNo   int64
}

var (
	_ scan.Reader   = (*CSVReader)(nil)
	_ scan.Rewinder = (*CSVReader)(nil)
)

// NewCSVReader returns a reader over src. Nothing is read until Open.
func NewCSVReader(src Source, opts CSVOptions) *CSVReader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &CSVReader{src: src, opts: opts}
}

// Open starts reading and consumes the header row.
func (r *CSVReader) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := r.src.Open()
	if err != nil {
		return err
	}
	decoded, counter, err := Wrap(f, r.src.Size(), r.opts.Encoding, r.opts.Progress)
	if err != nil {
		f.Close()
		return err
	}
	r.file, r.counter = f, counter

	r.csv = csv.NewReader(decoded)
	r.csv.Comma = r.opts.Delimiter
	r.csv.LazyQuotes = true
	r.csv.FieldsPerRecord = -1
	r.rowNo = 0
	r.pending = nil

	first, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: no header row", r.src.Name())
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", r.src.Name(), err)
	}

	if r.opts.NoHeader {
		names := make([]string, len(first))
		for i := range first {
			names[i] = fmt.Sprintf("column_%d", i+1)
		}
		r.headers = scan.Headers(names...)
		r.pending = first
		return nil
	}
	r.headers = scan.Headers(headerNames(first)...)
	return nil
}

// headerNames trims header cells, names blank ones after their position and
// suffixes repeated names so every column is addressable.
func headerNames(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		key := strings.ToLower(name)
		if n := seen[key]; n > 0 {
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[key]++
		names[i] = name
	}
	return names
}

// Columns returns the discovered headers.
func (r *CSVReader) Columns() ([]scan.ColumnHeader, error) {
	if r.csv == nil {
		return nil, errors.New("csv reader not open")
	}
	return r.headers, nil
}

// Next returns the next data row or io.EOF.
func (r *CSVReader) Next() (schema.DataRow, error) {
	if r.csv == nil {
		return schema.DataRow{}, errors.New("csv reader not open")
	}

	record := r.pending
	r.pending = nil
	if record == nil {
		var err error
		record, err = r.csv.Read()
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.rowNo++
				return schema.DataRow{}, scan.NewRowError(err)
			}
			return schema.DataRow{}, err
		}
	}

	rowNo := r.rowNo
	r.rowNo++
	if len(record) > len(r.headers) {
		line, _ := r.csv.FieldPos(0)
		return schema.DataRow{}, scan.NewRowError(fmt.Errorf("line %d: %d fields, header has %d", line, len(record), len(r.headers)))
	}

	row := schema.DataRow{RowNo: rowNo, Cells: make([]schema.DataCell, len(r.headers))}
	for i := range r.headers {
		var v any
		if i < len(record) {
			v = strings.TrimSpace(record[i])
		}
		row.Cells[i] = schema.DataCell{Index: i, Value: v}
	}
	return row, nil
}

// Rewind restarts from the first data row by reopening the source.
func (r *CSVReader) Rewind() error {
	if err := r.Close(); err != nil {
		return err
	}
	return r.Open(context.Background())
}

// BytesRead reports how much of the source has been consumed.
func (r *CSVReader) BytesRead() int64 {
	if r.counter == nil {
		return 0
	}
	return r.counter.BytesRead()
}

// Close releases the source. It is safe to call more than once.
func (r *CSVReader) Close() error {
	r.csv = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
