// Package entity canonicalizes manufacturer names. A deterministic pass
// collapses spelling variants onto a normalized key; an optional verification
// pass asks an external capability whether distinct high-volume identities
// are the same company and merges them.
package entity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/model"
)

const (
	// DefaultVerifyLimit caps how many identities the verification pass compares.
	DefaultVerifyLimit = 20
	// DefaultTimeout bounds a single verification call.
	DefaultTimeout = 10 * time.Second
)

// DefaultSuffixes are legal-form tokens removed from the end of a name.
var DefaultSuffixes = []string{
	"inc", "incorporated", "corp", "corporation", "co", "company",
	"llc", "ltd", "limited", "plc", "lp", "llp",
	"gmbh", "ag", "kg", "sa", "sas", "sarl", "srl", "spa", "bv", "nv", "ab", "as", "oy",
	"pty", "kk", "pte", "sdn", "bhd",
}

// Resolver maps raw manufacturer names to identities. It is safe for concurrent use.
type Resolver struct {
	suffixes    map[string]struct{}
	verifier    capability.Verifier
	verifyLimit int
	timeout     time.Duration
	workers     int
	logger      *zap.Logger

	mu       sync.Mutex
	byKey    map[string]*model.EntityIdentity
	aliases  map[string]map[string]struct{}
	parent   map[string]string
	byRaw    map[string]string
	failures int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSuffixes replaces the legal-suffix list.
func WithSuffixes(suffixes []string) Option {
	return func(r *Resolver) {
		r.suffixes = make(map[string]struct{}, len(suffixes))
		for _, s := range suffixes {
			r.suffixes[strings.ToLower(strings.Trim(s, ". "))] = struct{}{}
		}
	}
}

// WithVerifier enables the external verification pass.
func WithVerifier(v capability.Verifier, limit int, timeout time.Duration) Option {
	return func(r *Resolver) {
		r.verifier = v
		if limit > 0 {
			r.verifyLimit = limit
		}
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithWorkers bounds concurrent verification calls.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		verifyLimit: DefaultVerifyLimit,
		timeout:     DefaultTimeout,
		workers:     8,
		logger:      zap.NewNop(),
		byKey:       make(map[string]*model.EntityIdentity),
		aliases:     make(map[string]map[string]struct{}),
		parent:      make(map[string]string),
		byRaw:       make(map[string]string),
	}
	WithSuffixes(DefaultSuffixes)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Key returns the deterministic identity key of a raw name: accents removed,
// case folded, punctuation dropped, whitespace collapsed, and trailing legal
// suffixes stripped. A name made only of suffix tokens keeps its first token.
func (r *Resolver) Key(raw string) string {
	var b strings.Builder
	for _, c := range norm.NFD.String(raw) {
		if unicode.In(c, unicode.Mn) {
			continue
		}
		b.WriteRune(c)
	}
	s := cases.Fold().String(b.String())
	s = strings.NewReplacer(".", "", "'", "", "’", "").Replace(s)

	tokens := strings.FieldsFunc(s, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	for len(tokens) > 1 {
		if _, ok := r.suffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// Resolve returns the identity for raw, creating it on first sight. The
// canonical name of a new identity is the first raw spelling seen for its key.
func (r *Resolver) Resolve(raw string) model.EntityIdentity {
	name := strings.Join(strings.Fields(raw), " ")
	key := r.Key(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byKey[key]
	if !ok {
		id = &model.EntityIdentity{CanonicalName: name, Key: key, Tier: model.EntityDeterministic}
		r.byKey[key] = id
		r.aliases[key] = make(map[string]struct{})
		r.parent[key] = key
	}
	r.byRaw[name] = key
	root := r.find(key)
	r.aliases[root][name] = struct{}{}
	return r.snapshot(root)
}

// Canonical returns the canonical name raw maps to after any merges.
// Unseen names are resolved first.
func (r *Resolver) Canonical(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")
	r.mu.Lock()
	key, ok := r.byRaw[name]
	r.mu.Unlock()
	if !ok {
		return r.Resolve(raw).CanonicalName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byKey[r.find(key)].CanonicalName
}

// Lookup returns the canonical name for raw without creating an identity.
func (r *Resolver) Lookup(raw string) (string, bool) {
	key := r.Key(strings.Join(strings.Fields(raw), " "))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; !ok {
		return "", false
	}
	return r.byKey[r.find(key)].CanonicalName, true
}

// Identities returns every surviving identity sorted by canonical name.
func (r *Resolver) Identities() []model.EntityIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.EntityIdentity
	for key := range r.byKey {
		if r.find(key) == key {
			out = append(out, r.snapshot(key))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out
}

// Failures returns how many verification calls errored or timed out.
func (r *Resolver) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// Verify runs the external pass over the highest-volume identities. volume
// maps canonical names to event counts. Each pair among the top identities
// is checked once; confirmed pairs are merged into the higher-volume
// identity, and a merge is never undone. Failed calls leave the pair apart.
// Verify returns the number of merges applied.
func (r *Resolver) Verify(ctx context.Context, volume map[string]int) (int, error) {
	if r.verifier == nil {
		return 0, nil
	}
	top := r.top(volume)
	if len(top) < 2 {
		return 0, nil
	}

	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(top); i++ {
		for j := i + 1; j < len(top); j++ {
			pairs = append(pairs, pair{top[i], top[j]})
		}
	}

	same := make([]bool, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, p := range pairs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			callCtx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()
			ok, err := r.verifier.VerifyEntity(callCtx, p.a, p.b)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.mu.Lock()
				r.failures++
				r.mu.Unlock()
				r.logger.Warn("entity verification failed",
					zap.String("a", p.a), zap.String("b", p.b), zap.Error(err))
				return nil
			}
			same[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	vol := make(map[string]int, len(top))
	for _, name := range top {
		vol[r.find(r.byRaw[name])] += volume[name]
	}
	merges := 0
	for i, p := range pairs {
		if !same[i] {
			continue
		}
		if root, ok := r.union(r.byRaw[p.a], r.byRaw[p.b], vol); ok {
			merges++
			r.logger.Debug("entities merged",
				zap.String("into", r.byKey[root].CanonicalName),
				zap.String("a", p.a), zap.String("b", p.b))
		}
	}
	return merges, nil
}

// top returns the canonical names of the highest-volume identities, ordered
// by volume descending then name.
func (r *Resolver) top(volume map[string]int) []string {
	ids := r.Identities()
	sort.SliceStable(ids, func(i, j int) bool {
		vi, vj := volume[ids[i].CanonicalName], volume[ids[j].CanonicalName]
		if vi != vj {
			return vi > vj
		}
		return ids[i].CanonicalName < ids[j].CanonicalName
	})
	if len(ids) > r.verifyLimit {
		ids = ids[:r.verifyLimit]
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.CanonicalName
	}
	return names
}

// find returns the root key of key. Callers hold mu.
func (r *Resolver) find(key string) string {
	for r.parent[key] != key {
		r.parent[key] = r.parent[r.parent[key]]
		key = r.parent[key]
	}
	return key
}

// union merges the identities of a and b under the root with the larger
// volume, a's on a tie. It returns the surviving root. Callers hold mu.
func (r *Resolver) union(a, b string, vol map[string]int) (string, bool) {
	ra, rb := r.find(a), r.find(b)
	if ra == rb {
		return ra, false
	}
	if vol[rb] > vol[ra] {
		ra, rb = rb, ra
	}
	r.parent[rb] = ra
	vol[ra] += vol[rb]
	delete(vol, rb)
	for alias := range r.aliases[rb] {
		r.aliases[ra][alias] = struct{}{}
	}
	delete(r.aliases, rb)
	r.byKey[ra].Tier = model.EntityExternalVerified
	return ra, true
}

// snapshot copies the identity at root. Callers hold mu.
func (r *Resolver) snapshot(root string) model.EntityIdentity {
	id := *r.byKey[root]
	id.Aliases = make([]string, 0, len(r.aliases[root]))
	for a := range r.aliases[root] {
		id.Aliases = append(id.Aliases, a)
	}
	sort.Strings(id.Aliases)
	return id
}
