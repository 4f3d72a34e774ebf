package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersCSV = "id,customer,total\n1,acme,10.50\n2,globex,7.25\n"

// isolate clears the environment variables the CLI reads.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "DB_URL", "DB_DRIVER", "LOG_LEVEL", "LOG_FORMAT", "SCAN_COLUMN_TYPES", "LOAD_CREATE_TABLE"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// ---- Infer Tests ----

func TestInferCommand(t *testing.T) {
	isolate(t)
	path := writeFile(t, "orders.csv", ordersCSV)

	out, err := run(t, "infer", "--type", "id=bigint,total=decimal", path)
	require.NoError(t, err)

	assert.Contains(t, out, "orders.csv -> orders")
	assert.Contains(t, out, "COLUMN")
	assert.Contains(t, out, "customer")
	assert.Contains(t, out, "BIGINT")
}

func TestInferCommandJSON(t *testing.T) {
	isolate(t)
	path := writeFile(t, "orders.csv", ordersCSV)

	out, err := run(t, "infer", "--json", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"file": "`+path+`"`)
}

func TestInferCommandErrors(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "no files", args: []string{"infer"}},
		{name: "unknown format", args: []string{"infer", writeFile(t, "orders.xlsx", "PK")}},
		{name: "unknown type", args: []string{"infer", "--type", "id=hugeint", writeFile(t, "orders.csv", ordersCSV)}},
		{name: "unknown strategy", args: []string{"infer", "--strategy", "median", writeFile(t, "orders.csv", ordersCSV)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

// ---- Compare Tests ----

func TestCompareCommandMissingTable(t *testing.T) {
	isolate(t)
	path := writeFile(t, "orders.csv", ordersCSV)

	out, err := run(t, "compare", "--driver", "memory", "--table", "sales.orders", path)
	require.NoError(t, err)
	assert.Contains(t, out, "-> sales.orders")
	assert.Contains(t, out, "table does not exist")
}

// ---- Load Tests ----

func TestLoadCommand(t *testing.T) {
	isolate(t)
	orders := writeFile(t, "orders.csv", ordersCSV)
	refunds := writeFile(t, "refunds.csv", ordersCSV)

	out, err := run(t, "load", "--driver", "memory", "--create", "--progress=false", orders, refunds)
	require.NoError(t, err)

	assert.Contains(t, out, "DECISION")
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "refunds")
}

func TestLoadCommandTableMissing(t *testing.T) {
	isolate(t)
	path := writeFile(t, "orders.csv", ordersCSV)

	out, err := run(t, "load", "--driver", "memory", "--create=false", "--progress=false", path)
	require.Error(t, err)
	assert.Contains(t, out, "table_missing")
}

func TestLoadCommandTableNeedsOneFile(t *testing.T) {
	isolate(t)
	a := writeFile(t, "a.csv", ordersCSV)
	b := writeFile(t, "b.csv", ordersCSV)

	_, err := run(t, "load", "--driver", "memory", "--table", "x", a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--table needs exactly one file")
}

func TestLoadCommandRequiresDSN(t *testing.T) {
	isolate(t)
	path := writeFile(t, "orders.csv", ordersCSV)

	_, err := run(t, "load", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}
