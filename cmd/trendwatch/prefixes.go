package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/trendwatch/internal/pipeline"
)

func newPrefixesCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "prefixes [dataset]",
		Short: "List the prefixes and manufacturers found in a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closeCap, err := buildEngine(a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCap()

			prof, err := pipeline.New(eng, nil, pipeline.WithLogger(a.logger)).Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty || a.cfg.Output.Pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(prof)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}
