package trendwatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/engine"
	"github.com/crimson-sun/trendwatch/internal/engine/annex"
	"github.com/crimson-sun/trendwatch/internal/engine/normalize"
	"github.com/crimson-sun/trendwatch/internal/engine/resolver"
	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/source"

	// Register dataset formats and capability providers.
	_ "github.com/crimson-sun/trendwatch/internal/capability/remote"
	_ "github.com/crimson-sun/trendwatch/internal/capability/semantic"
	_ "github.com/crimson-sun/trendwatch/internal/source/csv"
	_ "github.com/crimson-sun/trendwatch/internal/source/xlsx"
)

// Trendwatch resolves codes and analyzes adverse-event datasets.
// Safe for concurrent use.
type Trendwatch struct {
	engine     *engine.Engine
	capability capability.Capability

	once     sync.Once
	resolver *resolver.Resolver
}

// New loads the annex and opens the capability named by opts.
func New(opts ...Option) (*Trendwatch, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var table *annex.Table
	switch {
	case o.annexCSV != nil:
		t, err := annex.ReadCSV(o.annexCSV)
		if err != nil {
			return nil, fmt.Errorf("trendwatch: %w", err)
		}
		table = t
	case o.annexXLSX != nil:
		t, err := annex.ReadXLSX(o.annexXLSX)
		if err != nil {
			return nil, fmt.Errorf("trendwatch: %w", err)
		}
		table = t
	case o.annexPath != "":
		t, err := annex.Load(o.annexPath)
		if err != nil {
			return nil, fmt.Errorf("trendwatch: %w", err)
		}
		table = t
	}

	capab, err := capability.Open(capability.Config{
		Provider: o.provider,
		APIKey:   o.apiKey,
		Model:    o.model,
		Endpoint: o.endpoint,
		Timeout:  o.timeout,
		Extra:    o.extra,
	})
	if err != nil {
		return nil, fmt.Errorf("trendwatch: %w", err)
	}

	cols := normalize.DefaultColumns()
	if o.codeColumn != "" {
		cols.Code = o.codeColumn
	}
	if len(o.manufacturer) == 2 {
		if o.manufacturer[0] != "" {
			cols.ManufacturerPrimary = o.manufacturer[0]
		}
		if o.manufacturer[1] != "" {
			cols.ManufacturerSecondary = o.manufacturer[1]
		}
	}
	if len(o.dateColumns) > 0 {
		cols.Date = o.dateColumns
	}

	engOpts := []engine.Option{
		engine.WithNormalizer(normalize.New(normalize.Config{
			Columns:      cols,
			Separator:    o.separator,
			DatePatterns: o.datePatterns,
		})),
		engine.WithWeekStart(o.weekStart),
		engine.WithTopN(o.topN),
		engine.WithWorkers(o.workers),
		engine.WithSuffixes(o.suffixes),
		engine.WithVerifyLimit(o.verifyLimit),
		engine.WithLogger(o.logger),
	}
	if capab != nil {
		engOpts = append(engOpts, engine.WithCapability(capab, o.minConfidence, o.timeout))
	}
	return &Trendwatch{engine: engine.New(table, engOpts...), capability: capab}, nil
}

// Resolve resolves a single raw code. Results are cached for the lifetime
// of the instance.
func (tw *Trendwatch) Resolve(ctx context.Context, raw string) Code {
	tw.once.Do(func() { tw.resolver = tw.engine.Resolver() })
	return codeFromResolved(tw.resolver.Resolve(ctx, raw))
}

// Analyze prepares ds and reports on it. Run-level problems such as a
// missing column or no parsable dates are returned as errors; a prefix
// with no events is not an error.
func (tw *Trendwatch) Analyze(ctx context.Context, ds Dataset, q Query) (*Result, error) {
	p, err := q.params()
	if err != nil {
		return nil, err
	}
	return tw.engine.Analyze(ctx, ds.internal(), p)
}

// AnalyzeFile is Analyze over a .csv, .tsv or .xlsx file.
func (tw *Trendwatch) AnalyzeFile(ctx context.Context, path string, q Query) (*Result, error) {
	p, err := q.params()
	if err != nil {
		return nil, err
	}
	ds, err := source.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return tw.engine.Analyze(ctx, ds, p)
}

// Profile lists the prefixes and manufacturers present in ds.
func (tw *Trendwatch) Profile(ctx context.Context, ds Dataset) (Profile, error) {
	run, err := tw.engine.Prepare(ctx, ds.internal())
	if err != nil {
		return Profile{}, err
	}
	return run.Profile(), nil
}

// Map returns a copy of ds whose target column holds the deepest code
// resolved from the free-text problem column. sep splits multiple terms;
// empty means ";".
func (tw *Trendwatch) Map(ctx context.Context, ds Dataset, problemColumn, target, sep string) (Dataset, MapStats, error) {
	out, stats, err := tw.engine.Map(ctx, ds.internal(), problemColumn, target, sep)
	if err != nil {
		return Dataset{}, MapStats{}, err
	}
	return Dataset{Name: out.Name, Columns: out.Columns, Rows: out.Rows},
		MapStats{Rows: stats.Rows, Resolved: stats.Resolved}, nil
}

// Close releases the external capability, if any.
func (tw *Trendwatch) Close() error {
	if tw.capability == nil {
		return nil
	}
	return tw.capability.Close()
}

func (q Query) params() (engine.Params, error) {
	g, err := model.ParseGrain(q.Grain)
	if err != nil {
		return engine.Params{}, fmt.Errorf("trendwatch: %w", err)
	}
	k := q.Sensitivity
	if k == 0 {
		k = 2
	}
	return engine.Params{
		Prefix:      q.Prefix,
		Entities:    q.Entities,
		Grain:       g,
		Sensitivity: k,
		TopN:        q.TopN,
	}, nil
}
