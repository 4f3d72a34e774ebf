package source

// stream.go prepares raw file bytes for parsing without loading the whole
// file into memory:
//
//   - Decode: converts the named charset to UTF-8, drops a leading byte
//     order mark and replaces invalid sequences with U+FFFD
//   - CountingReader: tracks bytes read for progress reporting
//
// Use Wrap to apply both in the correct order.

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Source opens a fresh stream of a file's bytes. Opening again restarts
// from the first byte.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
	Size() int64 // -1 when unknown
}

// File is a Source backed by a path on disk.
type File string

func (f File) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

func (f File) Name() string { return string(f) }

func (f File) Size() int64 {
	info, err := os.Stat(string(f))
	if err != nil {
		return -1
	}
	return info.Size()
}

// Bytes is a Source held in memory, such as an uploaded file.
type Bytes struct {
	Filename string
	Data     []byte
}

func (b Bytes) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

func (b Bytes) Name() string { return b.Filename }

func (b Bytes) Size() int64 { return int64(len(b.Data)) }

// Ext returns the lower-cased extension of a source name, including the dot.
func Ext(src Source) string {
	return strings.ToLower(filepath.Ext(src.Name()))
}

// Decode returns a reader producing UTF-8 from r. charset is any name known
// to the WHATWG encoding index ("utf-8", "windows-1252", "shift_jis", ...);
// empty means UTF-8. A byte order mark, when present, overrides charset.
func Decode(r io.Reader, charset string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if name := strings.TrimSpace(charset); name != "" {
		e, err := htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("unknown encoding %q: %w", charset, err)
		}
		enc = e
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// CountingReader wraps an io.Reader to track bytes read. The count is safe
// to read from another goroutine, such as a progress bar.
type CountingReader struct {
	reader     io.Reader
	read       atomic.Int64
	total      int64
	onProgress func(read, total int64)
}

// NewCountingReader creates a counting reader. total is -1 when unknown;
// onProgress may be nil.
func NewCountingReader(r io.Reader, total int64, onProgress func(read, total int64)) *CountingReader {
	return &CountingReader{reader: r, total: total, onProgress: onProgress}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		read := r.read.Add(int64(n))
		if r.onProgress != nil {
			r.onProgress(read, r.total)
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *CountingReader) BytesRead() int64 { return r.read.Load() }

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.total <= 0 {
		return 0
	}
	p := int(r.read.Load() * 100 / r.total)
	if p > 100 {
		p = 100
	}
	return p
}

// Wrap counts raw bytes and then decodes them to UTF-8. Counting happens
// before decoding so progress is measured against the file size.
func Wrap(r io.Reader, total int64, charset string, onProgress func(read, total int64)) (io.Reader, *CountingReader, error) {
	counter := NewCountingReader(r, total, onProgress)
	decoded, err := Decode(counter, charset)
	if err != nil {
		return nil, nil, err
	}
	return decoded, counter, nil
}
