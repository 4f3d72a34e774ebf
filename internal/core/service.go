package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/tableload/internal/compare"
	"github.com/JonMunkholm/tableload/internal/destination"
	"github.com/JonMunkholm/tableload/internal/load"
	"github.com/JonMunkholm/tableload/internal/logging"
	"github.com/JonMunkholm/tableload/internal/scan"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrSchemaMismatch is returned when a file's columns differ from the
	// destination table's columns.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrNotLoadable is returned when a destination column cannot hold the
	// file's data.
	ErrNotLoadable = errors.New("table cannot hold source data")
)

// Options configures a Service.
type Options struct {
	Scan   scan.Options
	Source source.Options
	// Load is the template for every load; Table and Progress are set per
	// job.
	Load load.Options
	// Concurrency bounds LoadMany and concurrent HTTP loads.
	Concurrency int
	// MaxWait is how long a load waits for a free slot.
	MaxWait time.Duration
	// Timeout bounds a single load. Zero means no limit.
	Timeout time.Duration
	// HistorySize is the number of finished loads kept for reporting.
	HistorySize int
}

// Service provides infer, compare and load over one destination catalog.
// It is safe for concurrent use.
type Service struct {
	catalog destination.Catalog
	opts    Options
	limiter *LoadLimiter
	history *History
}

// NewService returns a service writing to catalog.
func NewService(catalog destination.Catalog, opts Options) *Service {
	return &Service{
		catalog: catalog,
		opts:    opts,
		limiter: NewLoadLimiter(opts.Concurrency, opts.MaxWait),
		history: NewHistory(opts.HistorySize),
	}
}

// Limiter returns the limiter shared by every load.
func (s *Service) Limiter() *LoadLimiter { return s.limiter }

// History returns the finished loads.
func (s *Service) History() *History { return s.history }

// TableFor names the table a file loads into when none is given: the file's
// base name without extension.
func TableFor(src source.Source) schema.TableName {
	base := filepath.Base(src.Name())
	return schema.ParseTableName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// InferResult is the inferred shape of a file.
type InferResult struct {
	File   string                                                 `json:"file"`
	Table  schema.TableDefinition[schema.SourceColumnDefinition] `json:"table"`
	Result *scan.Result                                           `json:"result"`
}

// Infer samples src and returns its inferred columns. Malformed rows are
// recorded in the result and do not stop sampling.
func (s *Service) Infer(ctx context.Context, src source.Source) (*InferResult, error) {
	reader, err := source.Open(src, s.opts.Source)
	if err != nil {
		return nil, err
	}
	opts := s.opts.Scan
	opts.ReadData = false

	collector := scan.NewCollector()
	res, err := scan.New(reader, opts, collector).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("infer %s: %w", src.Name(), err)
	}
	return &InferResult{
		File:   src.Name(),
		Table:  collector.Table(TableFor(src)),
		Result: res,
	}, nil
}

// CompareResult is the comparison of a file with a destination table.
type CompareResult struct {
	File        string                                                 `json:"file"`
	Table       schema.TableName                                       `json:"table"`
	Exists      bool                                                   `json:"exists"`
	Source      schema.TableDefinition[schema.SourceColumnDefinition] `json:"source"`
	Destination *schema.TableDefinition[schema.ColumnDefinition]      `json:"destination,omitempty"`
	Comparison  *compare.TableComparison                               `json:"comparison,omitempty"`
	Conflicts   []compare.UniqueConflict                               `json:"conflicts,omitempty"`
	Result      *scan.Result                                           `json:"result"`
}

// Loadable reports whether a load of the file would write rows without
// conversion or key failures.
func (r *CompareResult) Loadable() bool {
	return r.Comparison != nil && r.Comparison.Loadable() && len(r.Conflicts) == 0
}

// Compare infers src, compares it with table and checks the file against the
// table's primary key and unique constraints.
func (s *Service) Compare(ctx context.Context, src source.Source, table schema.TableName) (*CompareResult, error) {
	reader, err := source.Open(src, s.opts.Source)
	if err != nil {
		return nil, err
	}
	opts := s.opts.Scan
	opts.ReadData = true

	obs := newCompareObserver(ctx, s.catalog, table, opts)
	res, err := scan.New(reader, opts, obs).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("compare %s: %w", src.Name(), err)
	}
	if obs.err != nil {
		return nil, obs.err
	}
	out := &CompareResult{
		File:       src.Name(),
		Table:      table,
		Exists:     obs.dst != nil,
		Source:     schema.NewTable(table, res.Columns),
		Comparison: obs.comparison,
		Conflicts:  obs.conflicts(),
		Result:     res,
	}
	if obs.dst != nil {
		out.Destination = obs.dst
	}
	return out, nil
}

// Load writes src into table.
func (s *Service) Load(ctx context.Context, src source.Source, table schema.TableName) (load.Report, error) {
	return s.run(ctx, Job{Source: src, Table: table})
}

// Run performs a single load job.
func (s *Service) Run(ctx context.Context, job Job) (load.Report, error) {
	return s.run(ctx, job)
}

// Job is one file to load. An empty Table is derived from the file name.
type Job struct {
	Source   source.Source
	Table    schema.TableName
	Progress func(rows int64)
	// Configure adjusts the service's load options for this job only.
	Configure func(*load.Options)
	// Done is called with the job's outcome when it finishes.
	Done func(load.Report, error)
}

// LoadMany loads every job, at most Concurrency at a time. Reports are in
// job order. A failing job does not stop the others; the returned error
// joins every failure.
func (s *Service) LoadMany(ctx context.Context, jobs []Job) ([]load.Report, error) {
	reports := make([]load.Report, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(s.limiter.MaxConcurrent())
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			reports[i], errs[i] = s.run(ctx, job)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("%s: %w", job.Source.Name(), errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return reports, errors.Join(errs...)
}

func (s *Service) run(ctx context.Context, job Job) (load.Report, error) {
	report, err := s.runJob(ctx, job)
	if job.Done != nil {
		job.Done(report, err)
	}
	return report, err
}

func (s *Service) runJob(ctx context.Context, job Job) (load.Report, error) {
	if job.Table.Table == "" {
		job.Table = TableFor(job.Source)
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return load.Report{Table: job.Table, Error: err.Error()}, err
	}
	defer s.limiter.Release()

	logger := logging.WithFields(ctx, "file", job.Source.Name(), "table", job.Table.String())
	logger.Info("load started")

	reader, err := source.Open(job.Source, s.opts.Source)
	if err != nil {
		return load.Report{Table: job.Table, Error: err.Error()}, err
	}
	opts := s.opts.Load
	if job.Configure != nil {
		job.Configure(&opts)
	}
	opts.Table = job.Table
	if job.Progress != nil {
		opts.Progress = job.Progress
	}
	scanOpts := s.opts.Scan
	scanOpts.ReadData = true

	loader := load.New(ctx, s.catalog, opts)
	_, err = scan.New(reader, scanOpts, loader).Run(ctx)
	report := loader.Report()
	s.history.Add(HistoryEntry{
		File:      job.Source.Name(),
		Finished:  time.Now(),
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		APIKey:    APIKeyFromContext(ctx),
		Report:    report,
	})
	if err == nil {
		err = loader.Err()
	}
	if err == nil {
		err = decisionErr(report)
	}
	if err != nil {
		logger.Error("load failed", "error", err, "decision", string(report.Decision))
		return report, err
	}
	logger.Info("load completed",
		"decision", string(report.Decision),
		"written", report.RowsWritten,
		"failed", report.RowsFailed,
		"duration_ms", report.Elapsed.Milliseconds(),
	)
	return report, nil
}

// decisionErr turns a refused or failed load into an error.
func decisionErr(r load.Report) error {
	switch r.Decision {
	case load.DecisionSchemaMismatch:
		return fmt.Errorf("%s: %w", r.Table, ErrSchemaMismatch)
	case load.DecisionNotLoadable:
		return fmt.Errorf("%s: %w", r.Table, ErrNotLoadable)
	case load.DecisionTableMissing:
		return fmt.Errorf("%s: %w", r.Table, destination.ErrTableNotFound)
	}
	return nil
}
