// Package pipeline wires dataset sources, the engine and result outputs.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/trendwatch/internal/engine"
	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/output"
	"github.com/crimson-sun/trendwatch/internal/source"
)

// Pipeline reads a dataset file, runs it through the engine and hands each
// result bundle to the output.
type Pipeline struct {
	engine *engine.Engine
	output output.Output
	logger *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. out may be nil for Profile and Map only use.
func New(eng *engine.Engine, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{engine: eng, output: out, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare loads path and prepares it for analysis.
func (p *Pipeline) Prepare(ctx context.Context, path string) (*engine.Run, error) {
	ds, err := source.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("pipeline load: %w", err)
	}
	run, err := p.engine.Prepare(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("pipeline prepare: %w", err)
	}
	return run, nil
}

// Analyze prepares path once and analyzes it for every params entry.
// Analyses run concurrently; results are written in params order and
// returned the same way. Nothing is written if any analysis fails.
func (p *Pipeline) Analyze(ctx context.Context, path string, params ...engine.Params) ([]*model.Result, error) {
	if p.output == nil {
		return nil, fmt.Errorf("pipeline analyze: no output configured")
	}
	if len(params) == 0 {
		params = []engine.Params{{Grain: model.Weekly}}
	}
	run, err := p.Prepare(ctx, path)
	if err != nil {
		return nil, err
	}

	results := make([]*model.Result, len(params))
	g, gctx := errgroup.WithContext(ctx)
	for i, prm := range params {
		g.Go(func() error {
			res, err := run.Analyze(gctx, prm)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline analyze: %w", err)
	}

	for _, res := range results {
		if err := p.output.Write(ctx, res); err != nil {
			return nil, fmt.Errorf("pipeline output: %w", err)
		}
	}
	p.logger.Info("analysis written",
		zap.String("run_id", run.ID),
		zap.String("path", path),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Profile prepares path and reports what it contains.
func (p *Pipeline) Profile(ctx context.Context, path string) (model.Profile, error) {
	run, err := p.Prepare(ctx, path)
	if err != nil {
		return model.Profile{}, err
	}
	return run.Profile(), nil
}

// MapOptions names the columns used by Map.
type MapOptions struct {
	ProblemColumn string
	TargetColumn  string
	Separator     string
}

// Map reads in, fills the target column with the deepest code resolved from
// the problem column, and saves the result to out. The output format
// follows out's extension.
func (p *Pipeline) Map(ctx context.Context, in, out string, opts MapOptions) (engine.MapStats, error) {
	if _, err := source.ForPath(out); err != nil {
		return engine.MapStats{}, fmt.Errorf("pipeline map: %w", err)
	}
	ds, err := source.ReadFile(ctx, in)
	if err != nil {
		return engine.MapStats{}, fmt.Errorf("pipeline load: %w", err)
	}
	mapped, stats, err := p.engine.Map(ctx, ds, opts.ProblemColumn, opts.TargetColumn, opts.Separator)
	if err != nil {
		return engine.MapStats{}, fmt.Errorf("pipeline map: %w", err)
	}
	if err := source.WriteFile(ctx, out, mapped); err != nil {
		return engine.MapStats{}, fmt.Errorf("pipeline save: %w", err)
	}
	p.logger.Info("mapped dataset written",
		zap.String("in", in),
		zap.String("out", out),
		zap.Int("rows", stats.Rows),
		zap.Int("resolved", stats.Resolved),
	)
	return stats, nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}
