package main

import (
	"fmt"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/spf13/pflag"
)

// scanFlags override the scan section of the configuration for one run.
type scanFlags struct {
	sampleRows int
	strategy   string
	types      map[string]string
}

func (f *scanFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&f.sampleRows, "sample-rows", -1, "rows sampled for inference; 0 samples every row (default from config)")
	fs.StringVar(&f.strategy, "strategy", "", "type reduction strategy: basic, most or least (default from config)")
	fs.StringToStringVar(&f.types, "type", nil, "force a column type, e.g. --type id=bigint,created=timestamp")
}

// apply returns a function adjusting service options, or an error for a
// malformed flag.
func (f *scanFlags) apply() (func(*core.Options), error) {
	var strategy *infer.Strategy
	if f.strategy != "" {
		st, err := infer.ParseStrategy(f.strategy)
		if err != nil {
			return nil, fmt.Errorf("--strategy: %w", err)
		}
		strategy = &st
	}

	types := make(map[string]schema.LogicalType, len(f.types))
	for col, name := range f.types {
		t, err := schema.ParseLogicalType(name)
		if err != nil {
			return nil, fmt.Errorf("--type %s: %w", col, err)
		}
		types[col] = t
	}

	return func(o *core.Options) {
		if f.sampleRows >= 0 {
			o.Scan.SampleRows = f.sampleRows
		}
		if strategy != nil {
			o.Scan.Strategy = *strategy
		}
		if len(types) == 0 {
			return
		}
		merged := make(map[string]schema.LogicalType, len(o.Scan.ColumnTypes)+len(types))
		for col, t := range o.Scan.ColumnTypes {
			merged[col] = t
		}
		for col, t := range types {
			merged[col] = t
		}
		o.Scan.ColumnTypes = merged
	}, nil
}
