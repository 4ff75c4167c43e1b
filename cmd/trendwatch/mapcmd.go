package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/trendwatch/internal/pipeline"
)

func newMapCmd(a *app) *cobra.Command {
	var opts pipeline.MapOptions
	cmd := &cobra.Command{
		Use:   "map [input] [output]",
		Short: "Fill a code column from free-text device problems",
		Long: `Resolves each row's device-problem text against the annex terms and
writes the deepest matching code to the target column. The output format
follows the output file extension (.csv, .tsv, .xlsx).

Example:
  trendwatch map --annex annex.xlsx maude.xlsx maude_mapped.xlsx`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ProblemColumn == "" {
				opts.ProblemColumn = a.cfg.Columns.Problem
			}
			if opts.TargetColumn == "" {
				opts.TargetColumn = a.cfg.Columns.Mapped
			}
			if opts.Separator == "" {
				opts.Separator = a.cfg.Engine.ProblemSeparator
			}

			eng, closeCap, err := buildEngine(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCap()
			if eng.Table().Len() == 0 {
				return fmt.Errorf("map needs an annex (--annex or TRENDWATCH_ANNEX)")
			}

			stats, err := pipeline.New(eng, nil, pipeline.WithLogger(a.logger)).Map(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mapped %d of %d rows into %q\n", stats.Resolved, stats.Rows, opts.TargetColumn)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&opts.ProblemColumn, "column", "", "device problem column (default from config)")
	fl.StringVar(&opts.TargetColumn, "target", "", "column to fill (default from config)")
	fl.StringVar(&opts.Separator, "separator", "", "separator between problem terms (default from config)")
	return cmd
}
