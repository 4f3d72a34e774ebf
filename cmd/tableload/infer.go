package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JonMunkholm/tableload/internal/core"
	"github.com/JonMunkholm/tableload/internal/schema"
	"github.com/JonMunkholm/tableload/internal/source"
	"github.com/spf13/cobra"
)

func newInferCmd(a *app) *cobra.Command {
	var (
		scanOpts scanFlags
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:         "infer FILE...",
		Short:       "Print the inferred columns of each file",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{noCatalog: "true"},
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

			results := make([]*core.InferResult, 0, len(args))
			for _, path := range args {
				res, err := svc.Infer(ctx, source.File(path))
				if err != nil {
					return err
				}
				results = append(results, res)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := printInfer(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}
			return nil
		},
	}
	scanOpts.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printInfer(w io.Writer, res *core.InferResult) error {
	fmt.Fprintf(w, "%s -> %s (%d rows sampled, %d malformed)\n",
		res.File, res.Table.Name, res.Result.RowsAttempted, res.Result.RowsAttempted-res.Result.RowsSucceeded)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLUMN\tTYPE\tNULLABLE\tLENGTH\tMIN\tMAX\tCANDIDATES")
	for _, c := range res.Table.Columns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Ordinal, c.Name, c.Type, yesNo(c.Modifier.Nullable), length(c.ColumnDefinition),
			bound(c, true), bound(c, false), c.PossibleTypes)
	}
	return tw.Flush()
}

func length(c schema.ColumnDefinition) string {
	switch {
	case c.Modifier.Precision > 0:
		return fmt.Sprintf("%d,%d", c.Modifier.Precision, c.Modifier.Scale)
	case c.Modifier.MaxLength > 0:
		return fmt.Sprint(c.Modifier.MaxLength)
	}
	return "-"
}

func bound(c schema.SourceColumnDefinition, min bool) string {
	v := c.Max
	if min {
		v = c.Min
	}
	if v == nil {
		return "-"
	}
	return v.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
