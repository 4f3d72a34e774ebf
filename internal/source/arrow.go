package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"time"

	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/apache/arrow/go/v7/arrow"
	"github.com/apache/arrow/go/v7/arrow/array"
	"github.com/apache/arrow/go/v7/arrow/ipc"
	"github.com/apache/arrow/go/v7/arrow/memory"
	"github.com/shopspring/decimal"
)

// ArrowReader reads Arrow IPC data, either the random access file format
// (.arrow, .feather v2) or the streaming format. Cells arrive typed, so
// inference works on Go values instead of text.
type ArrowReader struct {
	src   Source
	alloc memory.Allocator

	file   io.ReadCloser
	data   ipcReadSeeker
	fr     *ipc.FileReader
	sr     *ipc.Reader
	schema *arrow.Schema

	rec    arrow.Record
	recIdx int // next record of a file reader
	offset int // next row within rec
	rowNo  int64
}

type ipcReadSeeker interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

var (
	_ scan.Reader   = (*ArrowReader)(nil)
	_ scan.Rewinder = (*ArrowReader)(nil)
)

// NewArrowReader returns a reader over src using the Go allocator.
func NewArrowReader(src Source) *ArrowReader {
	return &ArrowReader{src: src, alloc: memory.NewGoAllocator()}
}

// Open detects the IPC format and reads the schema.
func (r *ArrowReader) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := r.src.Open()
	if err != nil {
		return err
	}
	r.file = f

	data, ok := f.(ipcReadSeeker)
	if !ok {
		b, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("%s: %w", r.src.Name(), err)
		}
		data = bytes.NewReader(b)
	}
	r.data = data
	return r.start()
}

func (r *ArrowReader) start() error {
	r.release()
	r.recIdx, r.offset, r.rowNo = 0, 0, 0

	if _, err := r.data.Seek(0, io.SeekStart); err != nil {
		return err
	}
	fr, err := ipc.NewFileReader(r.data, ipc.WithAllocator(r.alloc))
	if err == nil {
		r.fr, r.schema = fr, fr.Schema()
		return nil
	}

	if _, err := r.data.Seek(0, io.SeekStart); err != nil {
		return err
	}
	sr, streamErr := ipc.NewReader(r.data, ipc.WithAllocator(r.alloc))
	if streamErr != nil {
		return fmt.Errorf("%s: not an Arrow IPC file (%v) or stream: %w", r.src.Name(), err, streamErr)
	}
	r.sr, r.schema = sr, sr.Schema()
	return nil
}

// Columns returns one header per schema field.
func (r *ArrowReader) Columns() ([]scan.ColumnHeader, error) {
	if r.schema == nil {
		return nil, errors.New("arrow reader not open")
	}
	fields := r.schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return scan.Headers(names...), nil
}

// nextRecord advances to a record with rows left. It returns io.EOF after
// the last record.
func (r *ArrowReader) nextRecord() error {
	for r.rec == nil || r.offset >= int(r.rec.NumRows()) {
		r.offset = 0
		switch {
		case r.fr != nil:
			if r.recIdx >= r.fr.NumRecords() {
				return io.EOF
			}
			rec, err := r.fr.Record(r.recIdx)
			if err != nil {
				return err
			}
			r.recIdx++
			r.rec = rec
		case r.sr != nil:
			if !r.sr.Next() {
				if err := r.sr.Err(); err != nil {
					return err
				}
				return io.EOF
			}
			r.rec = r.sr.Record()
		default:
			return errors.New("arrow reader not open")
		}
	}
	return nil
}

// Next returns the next row or io.EOF. Values of unsupported column types
// fail the row.
func (r *ArrowReader) Next() (schema.DataRow, error) {
	if err := r.nextRecord(); err != nil {
		return schema.DataRow{}, err
	}
	i := r.offset
	r.offset++
	rowNo := r.rowNo
	r.rowNo++

	cols := r.rec.Columns()
	row := schema.DataRow{RowNo: rowNo, Cells: make([]schema.DataCell, len(cols))}
	for c, col := range cols {
		v, err := arrowValue(col, i)
		if err != nil {
			return schema.DataRow{}, scan.NewRowError(fmt.Errorf("column %q: %w", r.schema.Field(c).Name, err))
		}
		row.Cells[c] = schema.DataCell{Index: c, Value: v}
	}
	return row, nil
}

// arrowValue converts element i of an Arrow array to the Go value the
// transformer expects for its logical type.
func arrowValue(a arrow.Array, i int) (any, error) {
	if a.IsNull(i) {
		return nil, nil
	}
	switch aa := a.(type) {
	case *array.Boolean:
		return aa.Value(i), nil
	case *array.Int8:
		return aa.Value(i), nil
	case *array.Int16:
		return aa.Value(i), nil
	case *array.Int32:
		return aa.Value(i), nil
	case *array.Int64:
		return aa.Value(i), nil
	case *array.Uint8:
		return aa.Value(i), nil
	case *array.Uint16:
		return aa.Value(i), nil
	case *array.Uint32:
		return aa.Value(i), nil
	case *array.Uint64:
		v := aa.Value(i)
		if v <= math.MaxInt64 {
			return int64(v), nil
		}
		return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0), nil
	case *array.Float16:
		return aa.Value(i).Float32(), nil
	case *array.Float32:
		return aa.Value(i), nil
	case *array.Float64:
		return aa.Value(i), nil
	case *array.Decimal128:
		n := aa.Value(i)
		unscaled := big.NewInt(n.HighBits())
		unscaled.Lsh(unscaled, 64)
		unscaled.Add(unscaled, new(big.Int).SetUint64(n.LowBits()))
		scale := aa.DataType().(*arrow.Decimal128Type).Scale
		return decimal.NewFromBigInt(unscaled, -scale), nil
	case *array.String:
		return aa.Value(i), nil
	case *array.Binary:
		return bytes.Clone(aa.Value(i)), nil
	case *array.FixedSizeBinary:
		return bytes.Clone(aa.Value(i)), nil
	case *array.Date32:
		return time.Unix(int64(aa.Value(i))*86400, 0).UTC(), nil
	case *array.Date64:
		return time.UnixMilli(int64(aa.Value(i))).UTC(), nil
	case *array.Timestamp:
		return timestampValue(aa, i)
	}
	return nil, fmt.Errorf("unsupported arrow type %s", a.DataType())
}

func timestampValue(a *array.Timestamp, i int) (time.Time, error) {
	dt := a.DataType().(*arrow.TimestampType)
	v := int64(a.Value(i))

	var t time.Time
	switch dt.Unit {
	case arrow.Second:
		t = time.Unix(v, 0)
	case arrow.Millisecond:
		t = time.UnixMilli(v)
	case arrow.Microsecond:
		t = time.UnixMicro(v)
	default:
		t = time.Unix(0, v)
	}

	loc := time.UTC
	if dt.TimeZone != "" {
		l, err := time.LoadLocation(dt.TimeZone)
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	return t.In(loc), nil
}

// Rewind restarts from the first row. A file reader only resets its
// position; a stream is re-read from the start of the buffered data.
func (r *ArrowReader) Rewind() error {
	if r.data == nil {
		return errors.New("arrow reader not open")
	}
	if r.fr != nil {
		r.rec = nil
		r.recIdx, r.offset, r.rowNo = 0, 0, 0
		return nil
	}
	return r.start()
}

func (r *ArrowReader) release() {
	if r.sr != nil {
		r.sr.Release()
		r.sr = nil
	}
	if r.fr != nil {
		r.fr.Close()
		r.fr = nil
	}
	r.rec = nil
}

// Close releases the IPC reader and the source. It is safe to call more than
// once.
func (r *ArrowReader) Close() error {
	r.release()
	r.schema = nil
	r.data = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
