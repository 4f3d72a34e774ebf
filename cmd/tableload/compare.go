package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/spf13/cobra"
)

// errNotLoadable makes compare exit non-zero when the file would not load
// cleanly.
var errNotLoadable = errors.New("file does not load cleanly into the table")

func newCompareCmd(a *app) *cobra.Command {
	var (
		scanOpts scanFlags
		table    string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "compare FILE",
		Short: "Compare a file with a destination table",
		Long: `compare infers FILE and compares its columns with the destination table,
checking names, types, sizes and the table's primary key and unique
constraints. It exits non-zero when a load would not write every row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configure, err := scanOpts.apply()
			if err != nil {
				return err
			}
			svc, err := a.service(configure)
			if err != nil {
				return err
			}
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			src := source.File(args[0])
			name := core.TableFor(src)
			if table != "" {
				name = schema.ParseTableName(table)
			}
			res, err := svc.Compare(ctx, src, name)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else if err := printCompare(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Exists && !res.Loadable() {
				return errNotLoadable
			}
			return nil
		},
	}
	scanOpts.register(cmd.Flags())
	cmd.Flags().StringVarP(&table, "table", "t", "", "destination table as schema.table (default from the file name)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printCompare(w io.Writer, res *core.CompareResult) error {
	fmt.Fprintf(w, "%s -> %s\n", res.File, res.Table)
	if !res.Exists {
		fmt.Fprintln(w, "table does not exist; a load with --create creates it")
		return nil
	}

	cmp := res.Comparison
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tFILE TYPE\tTABLE TYPE\tMATCH\tLOADABLE")
	for _, p := range cmp.Pairs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Destination.Name, p.Source.Type, p.Destination.Type,
			yesNo(p.Result.TypeMatched), yesNo(p.Result.CanLoadDataFrom))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range cmp.Missing {
		fmt.Fprintf(w, "only in file: %s\n", c.Name)
	}
	for _, c := range cmp.Superfluous {
		fmt.Fprintf(w, "only in table: %s\n", c.Name)
	}
	for _, p := range cmp.MayTruncate() {
		fmt.Fprintf(w, "may not fit: %s\n", p.Destination.Name)
	}
	for _, c := range res.Conflicts {
		fmt.Fprintf(w, "duplicate key %v for %s on rows %v\n", c.Key, c.Constraint.Name, c.Rows)
	}

	switch {
	case cmp.Identical() && len(res.Conflicts) == 0:
		fmt.Fprintln(w, "identical")
	case res.Loadable():
		fmt.Fprintln(w, "loadable")
	default:
		fmt.Fprintln(w, "not loadable")
	}
	return nil
}
