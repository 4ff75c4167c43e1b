// Package resolver maps raw classification codes and problem texts onto the
// annex hierarchy through a fixed cascade of tiers: exact, heuristic, and an
// optional external fallback. Each distinct raw value is resolved once per
// Resolver.
package resolver

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/engine/annex"
	"github.com/crimson-sun/trendwatch/internal/engine/classifier"
	"github.com/crimson-sun/trendwatch/internal/engine/memo"
	"github.com/crimson-sun/trendwatch/internal/engine/prefix"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// DefaultTimeout bounds a single external fallback call.
const DefaultTimeout = 10 * time.Second

// Resolver resolves raw values against a Table. It is safe for concurrent use.
type Resolver struct {
	table    *annex.Table
	fallback capability.Classifier
	gate     *classifier.Classifier
	timeout  time.Duration
	logger   *zap.Logger
	external bool

	cache    *memo.Cache[model.ResolvedCode]
	failures atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback enables the external tier. A nil classifier leaves it off.
func WithFallback(c capability.Classifier, gate *classifier.Classifier, timeout time.Duration) Option {
	return func(r *Resolver) {
		r.fallback = c
		if gate != nil {
			r.gate = gate
		}
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver over table. A nil table resolves nothing and every
// value ends up unresolved with its raw prefix.
func New(table *annex.Table, opts ...Option) *Resolver {
	r := &Resolver{
		table:   table,
		gate:    classifier.New(classifier.DefaultThreshold),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		cache:   memo.New[model.ResolvedCode](),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.external = r.fallback != nil && r.table.Len() > 0
	return r
}

// FallbackEnabled reports whether the external tier is configured.
func (r *Resolver) FallbackEnabled() bool {
	return r.external
}

// Resolve returns the resolution for raw, computing it on first request.
// Concurrent requests for the same raw value share one computation. An
// unresolved value computed after ctx ended is returned but not cached.
func (r *Resolver) Resolve(ctx context.Context, raw string) model.ResolvedCode {
	return r.cache.GetIf(raw, func() (model.ResolvedCode, bool) {
		rc := r.resolve(ctx, raw)
		return rc, rc.Resolved() || ctx.Err() == nil
	})
}

// Failures returns how many external calls errored or timed out.
func (r *Resolver) Failures() int {
	return int(r.failures.Load())
}

// Computed returns how many distinct values were actually resolved.
func (r *Resolver) Computed() int64 {
	return r.cache.Computed()
}

// Tiers counts distinct resolved values by the tier that resolved them.
func (r *Resolver) Tiers() map[string]int {
	out := make(map[string]int)
	r.cache.Range(func(_ string, rc model.ResolvedCode) {
		out[rc.Tier.String()]++
	})
	return out
}

func (r *Resolver) resolve(ctx context.Context, raw string) model.ResolvedCode {
	unresolved := model.ResolvedCode{Raw: raw, Tier: model.TierUnresolved}
	if model.IsBlank(raw) || annex.NormTerm(raw) == annex.NormTerm(annex.NotAvailableTerm) {
		return unresolved
	}
	code := strings.ToUpper(strings.TrimSpace(raw))

	// Exact: code, then term.
	if e, ok := r.table.Lookup(code); ok {
		return fromEntry(raw, e, model.TierExact)
	}
	if e, ok := r.table.LookupTerm(raw); ok {
		return fromEntry(raw, e, model.TierExact)
	}

	// Heuristic: separators stripped, then Level-1 prefix.
	stripped := prefix.Alnum(code)
	if stripped != code {
		if e, ok := r.table.Lookup(stripped); ok {
			return fromEntry(raw, e, model.TierHeuristic)
		}
	}
	if p, ok := prefix.Of(stripped); ok && stripped != p {
		if e, ok := r.table.Lookup(p); ok && e.Level == 1 {
			return fromEntry(raw, e, model.TierHeuristic)
		}
	}

	if r.external {
		if rc, ok := r.classify(ctx, raw); ok {
			return rc
		}
	}

	unresolved.Prefix, _ = prefix.Of(stripped)
	return unresolved
}

func (r *Resolver) classify(ctx context.Context, raw string) (model.ResolvedCode, bool) {
	if ctx.Err() != nil {
		return model.ResolvedCode{}, false
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	guess, err := r.fallback.Classify(callCtx, raw, r.table.Roots())
	if err != nil {
		if ctx.Err() != nil {
			return model.ResolvedCode{}, false
		}
		r.failures.Add(1)
		r.logger.Warn("external classification failed", zap.String("raw", raw), zap.Error(err))
		return model.ResolvedCode{}, false
	}
	rc, ok := r.gate.Accept(raw, guess, r.table)
	if !ok {
		r.logger.Debug("external guess rejected",
			zap.String("raw", raw),
			zap.String("level1", guess.Level1),
			zap.Float64("confidence", guess.Confidence),
		)
	}
	return rc, ok
}

func fromEntry(raw string, e annex.Entry, tier model.Tier) model.ResolvedCode {
	l1, l2, l3 := model.Path(e.Code)
	return model.ResolvedCode{
		Raw:    raw,
		Level1: l1,
		Level2: l2,
		Level3: l3,
		Term:   e.Term,
		Prefix: l1,
		Tier:   tier,
	}
}

// ResolveText resolves a multi-problem text split on sep and returns the
// most specific resolution among its parts.
func (r *Resolver) ResolveText(ctx context.Context, text, sep string) (model.ResolvedCode, bool) {
	if sep == "" {
		sep = ";"
	}
	var parts []model.ResolvedCode
	for _, p := range strings.Split(text, sep) {
		p = strings.TrimSpace(p)
		if model.IsBlank(p) {
			continue
		}
		parts = append(parts, r.Resolve(ctx, p))
	}
	return Deepest(parts)
}

// Deepest picks the most specific resolved code: 7 characters beat 5 beat
// 3, ties go to the lexically smallest code.
func Deepest(codes []model.ResolvedCode) (model.ResolvedCode, bool) {
	var resolved []model.ResolvedCode
	for _, rc := range codes {
		if rc.Resolved() && rc.Deepest() != "" {
			resolved = append(resolved, rc)
		}
	}
	if len(resolved) == 0 {
		return model.ResolvedCode{}, false
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		a, b := resolved[i].Deepest(), resolved[j].Deepest()
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return resolved[0], true
}
