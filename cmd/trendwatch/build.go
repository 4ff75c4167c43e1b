package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/config"
	"github.com/crimson-sun/trendwatch/internal/engine"
	"github.com/crimson-sun/trendwatch/internal/engine/annex"
	"github.com/crimson-sun/trendwatch/internal/engine/normalize"
	"github.com/crimson-sun/trendwatch/internal/engine/series"
	"github.com/crimson-sun/trendwatch/internal/output"
	"github.com/crimson-sun/trendwatch/internal/output/file"
	"github.com/crimson-sun/trendwatch/internal/output/multi"
	"github.com/crimson-sun/trendwatch/internal/output/stdout"
	"github.com/crimson-sun/trendwatch/internal/output/xlsx"
)

// buildEngine loads the annex and capability named by cfg. The returned
// close func releases the capability.
func buildEngine(cfg config.Config, logger *zap.Logger) (*engine.Engine, func() error, error) {
	var table *annex.Table
	if cfg.Annex.Path != "" {
		t, err := annex.Load(cfg.Annex.Path)
		if err != nil {
			return nil, nil, err
		}
		table = t
		logger.Info("annex loaded", zap.String("path", cfg.Annex.Path), zap.Int("codes", t.Len()))
	} else {
		logger.Warn("no annex configured, running prefix-only")
	}

	capCfg := capability.Config{
		Provider: cfg.Capability.Provider,
		APIKey:   cfg.Capability.APIKey,
		Model:    cfg.Capability.Model,
		Endpoint: cfg.Capability.Endpoint,
		Timeout:  cfg.Engine.FallbackTimeout,
		Extra:    cfg.Capability.Extra,
	}
	capab, err := capability.Open(capCfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if capab != nil {
		closeFn = capab.Close
	}

	weekStart, _ := series.ParseWeekday(cfg.Engine.WeekStart)
	opts := []engine.Option{
		engine.WithNormalizer(normalize.New(normalize.Config{
			Columns: normalize.Columns{
				Code:                  cfg.Columns.Code,
				ManufacturerPrimary:   cfg.Columns.ManufacturerPrimary,
				ManufacturerSecondary: cfg.Columns.ManufacturerSecondary,
				Date:                  cfg.Columns.Date,
			},
			Separator:    cfg.Engine.Separator,
			DatePatterns: cfg.Engine.DatePatterns,
		})),
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithSuffixes(cfg.Engine.Suffixes),
		engine.WithVerifyLimit(cfg.Engine.VerifyLimit),
		engine.WithWeekStart(weekStart),
		engine.WithTopN(cfg.Engine.TopN),
		engine.WithLogger(logger),
	}
	if capab != nil {
		opts = append(opts, engine.WithCapability(capab, cfg.Engine.MinConfidence, cfg.Engine.FallbackTimeout))
	}
	eng := engine.New(table, opts...)
	logger.Debug("engine ready", zap.Stringer("engine", eng))
	return eng, closeFn, nil
}

// buildOutput creates the sinks named in format, a comma-separated list of
// "stdout", "file" and "xlsx". File sinks write to path.
func buildOutput(format, path string, pretty bool) (output.Output, error) {
	var outs []output.Output
	for _, name := range strings.Split(format, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "", "stdout":
			outs = append(outs, stdout.New(pretty))
		case "file", "json", "jsonl":
			if path == "" {
				return nil, fmt.Errorf("output %q needs a path", name)
			}
			f, err := file.New(path)
			if err != nil {
				return nil, err
			}
			outs = append(outs, f)
		case "xlsx":
			if path == "" {
				return nil, fmt.Errorf("output %q needs a path", name)
			}
			outs = append(outs, xlsx.New(path))
		default:
			multi.New(outs...).Close()
			return nil, fmt.Errorf("unknown output format: %s", name)
		}
	}
	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
