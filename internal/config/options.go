package config

import (
	"fmt"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/infer"
	"github.com/JonMunkholm/tableload/internal/load"
	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/JonMunkholm/tableload/internal/timefmt"
)

// PoolOptions returns the connection pool settings.
func (c DatabaseConfig) PoolOptions() destination.PoolOptions {
	return destination.PoolOptions{
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
	}
}

// Layouts returns the custom date and time layouts.
func (s ScanConfig) Layouts() timefmt.Layouts {
	return timefmt.Layouts{Date: s.DateLayout, Time: s.TimeLayout, Timestamp: s.TimestampLayout}
}

func (s ScanConfig) options() (scan.Options, error) {
	opts := scan.Options{
		SampleRows: s.SampleRows,
		Layouts:    s.Layouts(),
	}

	strategy, err := infer.ParseStrategy(s.Strategy)
	if err != nil {
		return opts, fmt.Errorf("SCAN_STRATEGY: %w", err)
	}
	opts.Strategy = strategy

	if len(s.ColumnStrategies) > 0 {
		opts.ColumnStrategies = make(map[string]infer.Strategy, len(s.ColumnStrategies))
		for col, name := range s.ColumnStrategies {
			st, err := infer.ParseStrategy(name)
			if err != nil {
				return opts, fmt.Errorf("SCAN_COLUMN_STRATEGIES %s: %w", col, err)
			}
			opts.ColumnStrategies[col] = st
		}
	}

	if len(s.ColumnTypes) > 0 {
		opts.ColumnTypes = make(map[string]schema.LogicalType, len(s.ColumnTypes))
		for col, name := range s.ColumnTypes {
			t, err := schema.ParseLogicalType(name)
			if err != nil {
				return opts, fmt.Errorf("SCAN_COLUMN_TYPES %s: %w", col, err)
			}
			opts.ColumnTypes[col] = t
		}
	}
	return opts, nil
}

// ServiceOptions converts the scan and load sections into service options.
func (c *Config) ServiceOptions() (core.Options, error) {
	scanOpts, err := c.Scan.options()
	if err != nil {
		return core.Options{}, err
	}
	delim, err := c.Scan.delimiter()
	if err != nil {
		return core.Options{}, err
	}

	return core.Options{
		Scan: scanOpts,
		Source: source.Options{CSV: source.CSVOptions{
			Delimiter: delim,
			Encoding:  c.Scan.Encoding,
			NoHeader:  c.Scan.NoHeader,
		}},
		Load: load.Options{
			AddBatch:            c.Load.AddBatch,
			BatchColumn:         c.Load.BatchColumn,
			ClearTable:          c.Load.ClearTable,
			CreateTableIfNeeded: c.Load.CreateTable,
			DryRun:              c.Load.DryRun,
			Layouts:             scanOpts.Layouts,
		},
		Concurrency: c.Load.MaxConcurrent,
		MaxWait:     c.Load.MaxWaitTime,
		Timeout:     c.Load.Timeout,
		HistorySize: c.Load.HistorySize,
	}, nil
}
