package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/load"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
)

// loadFlags override the load section of the configuration for one run.
type loadFlags struct {
	table  string
	create bool
	clear  bool
	dryRun bool
	batch  bool
}

func newLoadCmd(a *app) *cobra.Command {
	var (
		scanOpts scanFlags
		lf       loadFlags
		progress bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Load files into destination tables",
		Long: `load writes every FILE into a table, at most LOAD_MAX_CONCURRENT at a time.
Without --table each file loads into the table named after it, so
sales.orders.csv loads into sales.orders. A failing file does not stop
the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lf.table != "" && len(args) > 1 {
				return fmt.Errorf("--table needs exactly one file, got %d", len(args))
			}
			configure, err := scanOpts.apply()
			if err != nil {
				return err
			}
			svc, err := a.service(func(o *core.Options) {
				configure(o)
				lf.apply(cmd, &o.Load)
			})
			if err != nil {
				return err
			}
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			jobs := make([]core.Job, len(args))
			for i, path := range args {
				jobs[i] = core.Job{Source: source.File(path)}
				if lf.table != "" {
					jobs[i].Table = schema.ParseTableName(lf.table)
				}
			}

			var bars *uiprogress.Progress
			if progress && !asJSON {
				bars = startProgress(cmd.ErrOrStderr(), jobs)
			}
			reports, loadErr := svc.LoadMany(ctx, jobs)
			if bars != nil {
				bars.Stop()
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else if err := printReports(cmd.OutOrStdout(), args, reports); err != nil {
				return err
			}
			return loadErr
		},
	}
	scanOpts.register(cmd.Flags())
	f := cmd.Flags()
	f.StringVarP(&lf.table, "table", "t", "", "destination table as schema.table (single file only)")
	f.BoolVar(&lf.create, "create", false, "create a missing table from the inferred columns (default from config)")
	f.BoolVar(&lf.clear, "clear", false, "truncate the table before writing")
	f.BoolVar(&lf.dryRun, "dry-run", false, "check and convert every row without writing")
	f.BoolVar(&lf.batch, "batch", false, "add a batch column holding the load's start time")
	f.BoolVar(&progress, "progress", true, "show a progress bar per file")
	f.BoolVar(&asJSON, "json", false, "print JSON reports")
	return cmd
}

// apply copies the flags the user set onto o.
func (lf *loadFlags) apply(cmd *cobra.Command, o *load.Options) {
	changed := cmd.Flags().Changed
	if changed("create") {
		o.CreateTableIfNeeded = lf.create
	}
	if changed("clear") {
		o.ClearTable = lf.clear
	}
	if changed("dry-run") {
		o.DryRun = lf.dryRun
	}
	if changed("batch") {
		o.AddBatch = lf.batch
	}
}

// startProgress adds a bar per job showing its row count. The number of
// rows is unknown up front, so a bar fills when its load finishes.
func startProgress(w io.Writer, jobs []core.Job) *uiprogress.Progress {
	p := uiprogress.New()
	p.SetOut(w)
	p.SetRefreshInterval(200 * time.Millisecond)

	for i := range jobs {
		name := filepath.Base(jobs[i].Source.Name())
		rows := new(atomic.Int64)
		bar := p.AddBar(1).PrependElapsed()
		bar.PrependFunc(func(*uiprogress.Bar) string { return name })
		bar.AppendFunc(func(b *uiprogress.Bar) string {
			if b.Current() == b.Total {
				return fmt.Sprintf("%d rows, done", rows.Load())
			}
			return fmt.Sprintf("%d rows", rows.Load())
		})
		jobs[i].Progress = func(n int64) { rows.Store(n) }
		jobs[i].Done = func(load.Report, error) { bar.Set(1) }
	}
	p.Start()
	return p
}

func printReports(w io.Writer, files []string, reports []load.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tTABLE\tDECISION\tREAD\tWRITTEN\tFAILED\tCOMMITTED\tELAPSED\tRUN")
	for i, r := range reports {
		decision := string(r.Decision)
		if r.DryRun {
			decision += " (dry run)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			files[i], r.Table, decision, r.RowsRead, r.RowsWritten, r.RowsFailed,
			yesNo(r.Committed), r.Elapsed.Round(time.Millisecond), r.RunID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for i, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(w, "%s: %s\n", files[i], r.Error)
		}
	}
	return nil
}
