// Package engine runs an analysis over a dataset: normalize, resolve codes
// and manufacturers, extract prefixes, then aggregate and compute baselines
// on request. The classification table is shared and read-only; every run
// owns its working set.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/engine/annex"
	"github.com/crimson-sun/trendwatch/internal/engine/baseline"
	"github.com/crimson-sun/trendwatch/internal/engine/classifier"
	"github.com/crimson-sun/trendwatch/internal/engine/entity"
	"github.com/crimson-sun/trendwatch/internal/engine/normalize"
	"github.com/crimson-sun/trendwatch/internal/engine/prefix"
	"github.com/crimson-sun/trendwatch/internal/engine/resolver"
	"github.com/crimson-sun/trendwatch/internal/engine/series"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// DefaultTopN is how many entities are pre-selected when none are given.
const DefaultTopN = 5

// Engine holds the process-wide, read-only pieces of an analysis.
type Engine struct {
	table       *annex.Table
	normalizer  *normalize.Normalizer
	capability  capability.Capability
	gate        *classifier.Classifier
	timeout     time.Duration
	workers     int
	suffixes    []string
	verifyLimit int
	weekStart   time.Weekday
	topN        int
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNormalizer sets the column mapping and parsing rules.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(e *Engine) { e.normalizer = n }
}

// WithCapability enables the external fallback tiers. A nil capability
// keeps the engine deterministic-only.
func WithCapability(c capability.Capability, minConfidence float64, timeout time.Duration) Option {
	return func(e *Engine) {
		e.capability = c
		e.gate = classifier.New(minConfidence)
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithWorkers bounds concurrent resolutions.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSuffixes sets the legal suffixes stripped from manufacturer names.
func WithSuffixes(s []string) Option {
	return func(e *Engine) { e.suffixes = s }
}

// WithVerifyLimit caps how many identities the entity verification pass compares.
func WithVerifyLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.verifyLimit = n
		}
	}
}

// WithWeekStart sets the first day of a weekly period.
func WithWeekStart(d time.Weekday) Option {
	return func(e *Engine) { e.weekStart = d }
}

// WithTopN sets the default entity pre-selection size.
func WithTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine over table. A nil or empty table runs in prefix-only
// mode: every code with a valid prefix aggregates, resolved or not.
func New(table *annex.Table, opts ...Option) *Engine {
	e := &Engine{
		table:       table,
		normalizer:  normalize.New(normalize.Config{}),
		gate:        classifier.New(classifier.DefaultThreshold),
		timeout:     resolver.DefaultTimeout,
		workers:     8,
		verifyLimit: entity.DefaultVerifyLimit,
		weekStart:   time.Monday,
		topN:        DefaultTopN,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the classification table.
func (e *Engine) Table() *annex.Table {
	return e.table
}

// Run is a prepared dataset: normalized, resolved and prefixed, ready for
// any number of Analyze calls.
type Run struct {
	ID string

	records   []*model.Record
	assocs    []prefix.Association
	entities  *entity.Resolver
	binding   normalize.Binding
	quality   model.Quality
	weekStart time.Weekday
	topN      int
	logger    *zap.Logger
}

// Prepare normalizes ds and resolves every distinct code and manufacturer.
// It returns a MissingColumnError, ErrNoParsableDates or ErrNoValidCodes
// for run-level failures, and ctx.Err() if canceled between stages.
func (e *Engine) Prepare(ctx context.Context, ds *model.Dataset) (*Run, error) {
	id := uuid.NewString()
	log := e.logger.With(zap.String("run_id", id))

	batch, err := e.normalizer.Normalize(ds)
	if err != nil {
		return nil, err
	}
	log.Debug("normalized",
		zap.Int("rows", batch.TotalRows),
		zap.Int("records", len(batch.Records)),
		zap.Int("excluded", batch.ExcludedRows),
		zap.Int("unparsable_dates", batch.UnparsableDates),
		zap.Stringer("columns", batch.Binding),
	)
	if err := checkBatch(batch); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        id,
		records:   batch.Records,
		binding:   batch.Binding,
		weekStart: e.weekStart,
		topN:      e.topN,
		logger:    log,
		quality: model.Quality{
			TotalRows:       batch.TotalRows,
			ExcludedRows:    batch.ExcludedRows,
			UnparsableDates: batch.UnparsableDates,
			SkippedCodes:    batch.SkippedCodes,
		},
	}

	res := e.newResolver(log)
	if err := e.resolveCodes(ctx, res, run.records); err != nil {
		return nil, err
	}
	run.tally(res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.entities = e.newEntityResolver(log)
	if err := run.resolveEntities(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run.assocs = prefix.Extractor{IncludeUnresolved: e.table.Len() == 0}.Extract(run.records)
	log.Info("prepared",
		zap.Int("records", len(run.records)),
		zap.Int("associations", len(run.assocs)),
		zap.Int("entities", len(run.entities.Identities())),
		zap.Int("fallback_failures", run.quality.FallbackFailures),
	)
	return run, nil
}

func checkBatch(b *normalize.Batch) error {
	var dated, coded bool
	for _, r := range b.Records {
		dated = dated || r.HasDate()
		coded = coded || len(r.Codes) > 0
		if dated && coded {
			return nil
		}
	}
	if !dated {
		return ErrNoParsableDates
	}
	return ErrNoValidCodes
}

// Resolver returns a new code resolver over the engine's table and
// capability. Its cache lives as long as the resolver.
func (e *Engine) Resolver() *resolver.Resolver {
	return e.newResolver(e.logger)
}

func (e *Engine) newResolver(log *zap.Logger) *resolver.Resolver {
	opts := []resolver.Option{resolver.WithLogger(log)}
	if e.capability != nil {
		opts = append(opts, resolver.WithFallback(e.capability, e.gate, e.timeout))
	}
	return resolver.New(e.table, opts...)
}

func (e *Engine) newEntityResolver(log *zap.Logger) *entity.Resolver {
	opts := []entity.Option{entity.WithLogger(log), entity.WithWorkers(e.workers)}
	if len(e.suffixes) > 0 {
		opts = append(opts, entity.WithSuffixes(e.suffixes))
	}
	if e.capability != nil {
		opts = append(opts, entity.WithVerifier(e.capability, e.verifyLimit, e.timeout))
	}
	return entity.New(opts...)
}

// resolveCodes resolves the distinct codes of records concurrently, then
// attaches the results in record order.
func (e *Engine) resolveCodes(ctx context.Context, res *resolver.Resolver, records []*model.Record) error {
	seen := make(map[string]struct{})
	var distinct []string
	for _, r := range records {
		for _, c := range r.Codes {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				distinct = append(distinct, c)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, c := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Resolve(gctx, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range records {
		r.Resolved = make([]model.ResolvedCode, len(r.Codes))
		for i, c := range r.Codes {
			r.Resolved[i] = res.Resolve(ctx, c)
		}
	}
	return nil
}

func (run *Run) tally(res *resolver.Resolver) {
	for _, r := range run.records {
		for _, rc := range r.Resolved {
			if !rc.Resolved() {
				run.quality.UnresolvedCodes++
			}
			if rc.Prefix == "" {
				run.quality.InvalidPrefixes++
			}
		}
	}
	run.quality.Tiers = res.Tiers()
	run.quality.FallbackFailures += res.Failures()
}

func (run *Run) resolveEntities(ctx context.Context) error {
	volume := make(map[string]int)
	for _, r := range run.records {
		id := run.entities.Resolve(r.Manufacturer)
		volume[id.CanonicalName]++
	}
	if _, err := run.entities.Verify(ctx, volume); err != nil {
		return err
	}
	run.quality.FallbackFailures += run.entities.Failures()
	for _, r := range run.records {
		r.Entity = run.entities.Canonical(r.Manufacturer)
	}
	return nil
}

// Profile describes the prepared data: prefixes, entities by volume, and
// the columns bound to each role.
func (run *Run) Profile() model.Profile {
	p := model.Profile{
		RunID:      run.ID,
		Columns:    make(map[string]string, len(run.binding.Names)),
		Entities:   series.Top(run.assocs, "", 0),
		Identities: run.entities.Identities(),
		TotalRows:  run.quality.TotalRows,
		Quality:    run.quality,
	}
	for role, col := range run.binding.Names {
		p.Columns[role] = col
	}
	seen := make(map[string]struct{})
	for _, as := range run.assocs {
		if _, ok := seen[as.Prefix]; !ok {
			seen[as.Prefix] = struct{}{}
			p.Prefixes = append(p.Prefixes, as.Prefix)
		}
	}
	sort.Strings(p.Prefixes)
	for _, r := range run.records {
		if len(r.Codes) > 0 {
			p.RowsWithCodes++
		}
		if r.HasDate() {
			p.RowsWithDates++
		}
	}
	return p
}

// Params selects what an analysis reports.
type Params struct {
	// Prefix to analyze. Empty selects the prefix with the most events.
	Prefix string
	// Entities to include. Empty selects the top TopN by volume under Prefix.
	Entities    []string
	Grain       model.Grain
	Sensitivity float64 // band multiplier k; clamped to [0.5, 5]
	TopN        int
}

// Analyze aggregates the prepared data for one prefix and computes the
// universal and prefix-scoped baselines. A prefix or entity set with no
// matching records yields an empty series and an insufficient baseline,
// not an error.
func (run *Run) Analyze(ctx context.Context, p Params) (*model.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pfx := prefix.Alnum(p.Prefix)
	if pfx == "" {
		pfx = run.busiestPrefix()
	}
	if len(pfx) > prefix.Width {
		pfx = pfx[:prefix.Width]
	}

	entities := run.selectEntities(pfx, p)
	agg := series.New(p.Grain, run.weekStart)

	var (
		s         model.Series
		universal model.Baseline
		scoped    model.Baseline
	)
	// Pure passes over the prepared data, independent of each other.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s = agg.Aggregate(run.assocs, pfx, entities)
	}()
	go func() {
		defer wg.Done()
		universal = baseline.Compute(agg.Totals(run.assocs, ""))
	}()
	go func() {
		defer wg.Done()
		scoped = baseline.Compute(agg.Totals(run.assocs, pfx))
	}()
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The selected entities have no dated events under pfx, even if others do.
	if len(s.Periods) == 0 {
		scoped.InsufficientData = true
	}

	res := &model.Result{
		RunID:         run.ID,
		Prefix:        pfx,
		Grain:         p.Grain,
		Entities:      entities,
		Universal:     universal,
		PrefixScoped:  scoped,
		Band:          baseline.Band(scoped, p.Sensitivity),
		UniversalBand: baseline.Band(universal, p.Sensitivity),
		Series:        s,
		Quality:       run.quality,
	}
	for _, es := range s.Entities {
		res.Stats = append(res.Stats, baseline.Stats(es))
	}
	res.Anomalies = baseline.Anomalies(s, scoped, res.Band)

	run.logger.Info("analyzed",
		zap.String("prefix", pfx),
		zap.Stringer("grain", p.Grain),
		zap.Int("entities", len(entities)),
		zap.Int("periods", len(s.Periods)),
		zap.Int("anomalies", len(res.Anomalies)),
		zap.Bool("insufficient_data", scoped.InsufficientData),
	)
	return res, nil
}

func (run *Run) busiestPrefix() string {
	counts := make(map[string]int)
	for _, as := range run.assocs {
		counts[as.Prefix]++
	}
	best := ""
	for p, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && p < best) {
			best = p
		}
	}
	return best
}

func (run *Run) selectEntities(pfx string, p Params) []string {
	if len(p.Entities) == 0 {
		n := p.TopN
		if n <= 0 {
			n = run.topN
		}
		var out []string
		for _, v := range series.Top(run.assocs, pfx, n) {
			out = append(out, v.Entity)
		}
		return out
	}
	seen := make(map[string]struct{}, len(p.Entities))
	var out []string
	for _, raw := range p.Entities {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		name, ok := run.entities.Lookup(raw)
		if !ok {
			name = strings.Join(strings.Fields(raw), " ")
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Analyze prepares ds and analyzes it in one call.
func (e *Engine) Analyze(ctx context.Context, ds *model.Dataset, p Params) (*model.Result, error) {
	run, err := e.Prepare(ctx, ds)
	if err != nil {
		return nil, err
	}
	return run.Analyze(ctx, p)
}

// MapStats summarizes a Map call.
type MapStats struct {
	Rows     int
	Resolved int
	Tiers    map[string]int
}

// Map returns a copy of ds with a target column holding the deepest code
// resolved from the problem column. The target column is inserted right
// after the problem column, or overwritten in place if it already exists.
func (e *Engine) Map(ctx context.Context, ds *model.Dataset, problemColumn, target, sep string) (*model.Dataset, MapStats, error) {
	src := ds.Column(problemColumn)
	if src < 0 {
		return nil, MapStats{}, &MissingColumnError{Role: "problem"}
	}
	res := e.newResolver(e.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range ds.Rows {
		text := ds.Value(i, src)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.ResolveText(gctx, text, sep)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, MapStats{}, err
	}

	out := &model.Dataset{Name: ds.Name}
	dst := ds.Column(target)
	insert := dst < 0
	if insert {
		dst = src + 1
		out.Columns = insertAt(ds.Columns, dst, target)
	} else {
		out.Columns = append([]string(nil), ds.Columns...)
	}

	stats := MapStats{Rows: len(ds.Rows)}
	for i, row := range ds.Rows {
		code := ""
		if rc, ok := res.ResolveText(ctx, ds.Value(i, src), sep); ok {
			code = rc.Deepest()
			stats.Resolved++
		}
		padded := make([]string, len(ds.Columns))
		copy(padded, row)
		if insert {
			out.Rows = append(out.Rows, insertAt(padded, dst, code))
		} else {
			padded[dst] = code
			out.Rows = append(out.Rows, padded)
		}
	}
	stats.Tiers = res.Tiers()
	e.logger.Info("mapped",
		zap.String("column", problemColumn),
		zap.Int("rows", stats.Rows),
		zap.Int("resolved", stats.Resolved),
		zap.Int("fallback_failures", res.Failures()),
	)
	return out, stats, nil
}

func insertAt(s []string, i int, v string) []string {
	out := make([]string, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, v)
	return append(out, s[i:]...)
}

// String describes the engine mode for logs.
func (e *Engine) String() string {
	mode := "deterministic"
	if e.capability != nil {
		mode = "fallback"
	}
	if e.table.Len() == 0 {
		mode += ",prefix-only"
	}
	return fmt.Sprintf("engine(%s, annex=%d)", mode, e.table.Len())
}
