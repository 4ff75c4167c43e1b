package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/trendwatch/internal/engine"
	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/pipeline"
)

type analyzeFlags struct {
	prefixes    []string
	entities    []string
	grain       string
	sensitivity float64
	topN        int
	output      string
	outputPath  string
	pretty      bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [dataset]",
		Short: "Aggregate events by code prefix and report baselines",
		Long: `Reads a CSV or XLSX adverse-event export, resolves every code and
manufacturer, and reports a dense per-manufacturer series for each requested
prefix together with universal and prefix baselines and threshold bands.

Example:
  trendwatch analyze --annex annex.xlsx --prefix A05 --grain monthly events.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.analyze(cmd, args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringSliceVarP(&f.prefixes, "prefix", "p", nil, "code prefix to analyze (repeatable; default: busiest)")
	fl.StringSliceVarP(&f.entities, "entity", "e", nil, "manufacturer to include (repeatable; default: top N)")
	fl.StringVarP(&f.grain, "grain", "g", "", "daily, weekly or monthly (default from config)")
	fl.Float64VarP(&f.sensitivity, "sensitivity", "k", 0, "threshold band multiplier (default from config)")
	fl.IntVar(&f.topN, "top", 0, "number of manufacturers when none are named (default from config)")
	fl.StringVarP(&f.output, "output", "o", "", "stdout, file, xlsx; comma-separated (default from config)")
	fl.StringVar(&f.outputPath, "output-path", "", "destination for file and xlsx outputs")
	fl.BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	return cmd
}

func (a *app) analyze(cmd *cobra.Command, path string, f *analyzeFlags) error {
	params, err := a.params(f)
	if err != nil {
		return err
	}

	format, outPath := a.cfg.Output.Format, a.cfg.Output.Path
	if f.output != "" {
		format = f.output
	}
	if f.outputPath != "" {
		outPath = f.outputPath
	}
	out, err := buildOutput(format, outPath, f.pretty || a.cfg.Output.Pretty)
	if err != nil {
		return err
	}

	eng, closeCap, err := buildEngine(a.cfg, a.logger)
	if err != nil {
		out.Close()
		return err
	}
	defer closeCap()

	p := pipeline.New(eng, out, pipeline.WithLogger(a.logger))
	defer p.Close()

	results, err := p.Analyze(cmd.Context(), path, params...)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.PrefixScoped.InsufficientData {
			a.logger.Warn("insufficient data for baseline",
				zap.String("prefix", res.Prefix),
				zap.Int("periods", res.PrefixScoped.Periods),
			)
		}
	}
	return nil
}

// params expands the flags into one Params per requested prefix.
func (a *app) params(f *analyzeFlags) ([]engine.Params, error) {
	grainName := a.cfg.Engine.Grain
	if f.grain != "" {
		grainName = f.grain
	}
	grain, err := model.ParseGrain(grainName)
	if err != nil {
		return nil, fmt.Errorf("--grain: %w", err)
	}
	k := a.cfg.Engine.Sensitivity
	if f.sensitivity != 0 {
		k = f.sensitivity
	}
	topN := a.cfg.Engine.TopN
	if f.topN > 0 {
		topN = f.topN
	}

	prefixes := f.prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	params := make([]engine.Params, len(prefixes))
	for i, pfx := range prefixes {
		params[i] = engine.Params{
			Prefix:      pfx,
			Entities:    f.entities,
			Grain:       grain,
			Sensitivity: k,
			TopN:        topN,
		}
	}
	return params, nil
}
