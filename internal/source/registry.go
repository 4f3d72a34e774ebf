package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/tableload/internal/scan"
)

// ErrUnknownFormat is returned when no reader is registered for a file
// extension.
var ErrUnknownFormat = errors.New("unknown source format")

// Options carries per-format settings to a Factory.
type Options struct {
	CSV CSVOptions
}

// Factory builds a reader for a source.
type Factory func(src Source, opts Options) scan.Reader

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// Register adds a reader factory for an extension such as ".csv".
// Panics if the extension is already registered.
func Register(ext string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[ext]; exists {
		panic(fmt.Sprintf("source format already registered: %s", ext))
	}
	registry[ext] = f
}

// Formats returns the registered extensions, sorted.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]string, 0, len(registry))
	for ext := range registry {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Open returns an unopened reader for src chosen by its extension.
func Open(src Source, opts Options) (scan.Reader, error) {
	ext := Ext(src)

	registryMu.RLock()
	f, ok := registry[ext]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w %q", src.Name(), ErrUnknownFormat, ext)
	}
	return f(src, opts), nil
}

func init() {
	csvFactory := func(src Source, opts Options) scan.Reader {
		return NewCSVReader(src, opts.CSV)
	}
	Register(".csv", csvFactory)
	Register(".txt", csvFactory)
	Register(".tsv", func(src Source, opts Options) scan.Reader {
		o := opts.CSV
		o.Delimiter = '\t'
		return NewCSVReader(src, o)
	})

	arrowFactory := func(src Source, _ Options) scan.Reader {
		return NewArrowReader(src)
	}
	Register(".arrow", arrowFactory)
	Register(".ipc", arrowFactory)
	Register(".feather", arrowFactory)
}
