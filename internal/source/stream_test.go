package source

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		charset  string
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			expected: "hello,world",
		},
		{
			name:     "file without BOM",
			input:    []byte("hello,world"),
			expected: "hello,world",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'h', 'e', 0x80, 'l', 'o'},
			expected: "he�lo",
		},
		{
			name:     "windows-1252",
			input:    []byte{'c', 'a', 'f', 0xE9},
			charset:  "windows-1252",
			expected: "café",
		},
		{
			name:     "BOM overrides charset",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("café")...),
			charset:  "windows-1252",
			expected: "café",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := Decode(bytes.NewReader(tt.input), tt.charset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestDecodeUnknownCharset(t *testing.T) {
	if _, err := Decode(strings.NewReader("x"), "klingon-8"); err == nil {
		t.Fatal("expected error for unknown charset")
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	var calls int
	var last int64
	reader := NewCountingReader(strings.NewReader(input), int64(len(input)), func(read, total int64) {
		calls++
		last = read
	})

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead(), len(input))
	}
	if reader.Progress() != 100 {
		t.Errorf("Progress = %d, want 100", reader.Progress())
	}
	if calls != 10 || last != int64(len(input)) {
		t.Errorf("progress callback: calls = %d, last = %d", calls, last)
	}
}

func TestCountingReaderUnknownSize(t *testing.T) {
	reader := NewCountingReader(strings.NewReader("abc"), -1, nil)
	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.Progress() != 0 {
		t.Errorf("Progress = %d, want 0", reader.Progress())
	}
}

func TestWrap(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	reader, counter, err := Wrap(bytes.NewReader(input), int64(len(input)), "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(result) != "he�lo" {
		t.Errorf("got %q, want %q", string(result), "he�lo")
	}
	if counter.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", counter.BytesRead(), len(input))
	}
}

func TestExt(t *testing.T) {
	if got := Ext(File("/tmp/Orders.CSV")); got != ".csv" {
		t.Errorf("Ext = %q, want .csv", got)
	}
	if got := Ext(Bytes{Filename: "noext"}); got != "" {
		t.Errorf("Ext = %q, want empty", got)
	}
}
