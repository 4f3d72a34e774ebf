package source

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/apache/arrow/go/v7/arrow"
	"github.com/apache/arrow/go/v7/arrow/array"
	"github.com/apache/arrow/go/v7/arrow/decimal128"
	"github.com/apache/arrow/go/v7/arrow/ipc"
	"github.com/apache/arrow/go/v7/arrow/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invoiceSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "paid", Type: arrow.FixedWidthTypes.Boolean},
	{Name: "customer", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "amount", Type: &arrow.Decimal128Type{Precision: 10, Scale: 2}},
	{Name: "issued", Type: arrow.FixedWidthTypes.Date32},
	{Name: "created", Type: &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}},
}, nil)

func invoiceRecord(t *testing.T, mem memory.Allocator) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(mem, invoiceSchema)
	defer b.Release()

	b.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	b.Field(1).(*array.BooleanBuilder).AppendValues([]bool{true, false}, nil)
	b.Field(2).(*array.StringBuilder).AppendValues([]string{"acme", ""}, []bool{true, false})
	b.Field(3).(*array.Decimal128Builder).AppendValues([]decimal128.Num{
		decimal128.FromI64(12345),
		decimal128.FromI64(-50),
	}, nil)
	b.Field(4).(*array.Date32Builder).AppendValues([]arrow.Date32{19723, 0}, nil)
	b.Field(5).(*array.TimestampBuilder).AppendValues([]arrow.Timestamp{1704067200000, 0}, nil)

	return b.NewRecord()
}

func arrowFile(t *testing.T, stream bool) []byte {
	t.Helper()
	mem := memory.NewGoAllocator()
	rec := invoiceRecord(t, mem)
	defer rec.Release()

	var buf bytes.Buffer
	if stream {
		w := ipc.NewWriter(&buf, ipc.WithSchema(invoiceSchema), ipc.WithAllocator(mem))
		require.NoError(t, w.Write(rec))
		require.NoError(t, w.Close())
	} else {
		f := writeSeeker(t)
		w, err := ipc.NewFileWriter(f, ipc.WithSchema(invoiceSchema), ipc.WithAllocator(mem))
		require.NoError(t, err)
		require.NoError(t, w.Write(rec))
		require.NoError(t, w.Close())
		return fileBytes(t, f)
	}
	return buf.Bytes()
}

// writeSeeker returns a temp file, since ipc.NewFileWriter needs an io.WriteSeeker.
func writeSeeker(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.arrow")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func fileBytes(t *testing.T, f *os.File) []byte {
	t.Helper()
	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return data
}

func TestArrowReaderFormats(t *testing.T) {
	for _, stream := range []bool{false, true} {
		name := "file"
		if stream {
			name = "stream"
		}
		t.Run(name, func(t *testing.T) {
			r := NewArrowReader(Bytes{Filename: "invoices.arrow", Data: arrowFile(t, stream)})
			require.NoError(t, r.Open(context.Background()))
			defer r.Close()

			cols, err := r.Columns()
			require.NoError(t, err)
			assert.Equal(t, scan.Headers("id", "paid", "customer", "amount", "issued", "created"), cols)

			rows, errs := readAll(t, r)
			assert.Empty(t, errs)
			require.Len(t, rows, 2)

			first := rows[0]
			assert.Equal(t, int64(1), first.Value(0))
			assert.Equal(t, true, first.Value(1))
			assert.Equal(t, "acme", first.Value(2))
			assert.True(t, decimal.RequireFromString("123.45").Equal(first.Value(3).(decimal.Decimal)))
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Value(4))
			assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(first.Value(5).(time.Time)))

			second := rows[1]
			assert.Nil(t, second.Value(2))
			assert.True(t, decimal.RequireFromString("-0.5").Equal(second.Value(3).(decimal.Decimal)))
			assert.Equal(t, int64(1), second.RowNo)
		})
	}
}

func TestArrowReaderRewind(t *testing.T) {
	for _, stream := range []bool{false, true} {
		r := NewArrowReader(Bytes{Filename: "invoices.arrow", Data: arrowFile(t, stream)})
		require.NoError(t, r.Open(context.Background()))

		first, _ := readAll(t, r)
		require.NoError(t, r.Rewind())
		second, _ := readAll(t, r)
		assert.Equal(t, first, second)
		require.NoError(t, r.Close())
		require.NoError(t, r.Close())
	}
}

func TestArrowReaderRejectsOtherData(t *testing.T) {
	r := NewArrowReader(Bytes{Filename: "bad.arrow", Data: []byte("id,name\n1,a\n")})
	err := r.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.arrow")
	require.NoError(t, r.Close())
}

func TestArrowTypesSurviveInference(t *testing.T) {
	r := NewArrowReader(Bytes{Filename: "invoices.arrow", Data: arrowFile(t, false)})
	collector := scan.NewCollector()

	res, err := scan.New(r, scan.Options{ReadData: true, Strategy: infer.Most}, collector).Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Succeeded(), "errors: %v", res.Errors)

	types := make(map[string]schema.LogicalType)
	for _, c := range collector.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, schema.BigInt, types["id"])
	assert.Equal(t, schema.Boolean, types["paid"])
	assert.Equal(t, schema.Decimal, types["amount"])
}

func TestArrowUnsignedColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	sch := arrow.NewSchema([]arrow.Field{
		{Name: "port", Type: arrow.PrimitiveTypes.Uint16},
		{Name: "flags", Type: arrow.PrimitiveTypes.Uint8},
	}, nil)

	b := array.NewRecordBuilder(mem, sch)
	defer b.Release()
	b.Field(0).(*array.Uint16Builder).AppendValues([]uint16{5, 60000}, nil)
	b.Field(1).(*array.Uint8Builder).AppendValues([]uint8{7, 200}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	f := writeSeeker(t)
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(sch), ipc.WithAllocator(mem))
	require.NoError(t, err)
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	collector := scan.NewCollector()
	r := NewArrowReader(Bytes{Filename: "ports.arrow", Data: fileBytes(t, f)})
	res, err := scan.New(r, scan.Options{Strategy: infer.Least}, collector).Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Succeeded(), "errors: %v", res.Errors)
	require.Len(t, collector.Columns, 2)

	port := collector.Columns[0]
	assert.Equal(t, schema.Integer, port.Type)
	require.NotNil(t, port.Min)
	require.NotNil(t, port.Max)
	assert.Equal(t, "5", port.Min.String())
	assert.Equal(t, "60000", port.Max.String())
	assert.Equal(t, 5, port.Modifier.MaxLength)

	flags := collector.Columns[1]
	assert.Equal(t, schema.SmallInt, flags.Type, "200 is beyond TINYINT")
	require.NotNil(t, flags.Max)
	assert.Equal(t, "200", flags.Max.String())
}
