// Package semantic is a capability that classifies problem text by embedding
// similarity against the annex terms and verifies manufacturer identities
// with a generative model.
package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// DefaultTolerance is how much similarity a deeper level may lose relative to
// its parent and still be chosen.
const DefaultTolerance = 0.05

// ErrNoCandidates is returned when Classify has nothing to choose from.
var ErrNoCandidates = errors.New("semantic: no candidate codes")

// Capability implements capability.Capability over an Embedder and a Generator.
type Capability struct {
	emb       Embedder
	gen       Generator
	tolerance float64

	mu      sync.Mutex
	vectors map[string][]float32 // annex code → term embedding
}

var _ capability.Capability = (*Capability)(nil)

// New creates a Capability. gen may be nil, in which case VerifyEntity
// always reports an error and no merges happen.
func New(emb Embedder, gen Generator) *Capability {
	return &Capability{
		emb:       emb,
		gen:       gen,
		tolerance: DefaultTolerance,
		vectors:   make(map[string][]float32),
	}
}

// Classify descends the candidate hierarchy one level at a time, picking the
// child whose term is most similar to text. Descent stops when no child is
// within the tolerance of the parent's similarity. The confidence is the
// similarity of the deepest chosen node.
func (c *Capability) Classify(ctx context.Context, text string, candidates []*model.Node) (capability.Guess, error) {
	if len(candidates) == 0 {
		return capability.Guess{}, ErrNoCandidates
	}
	vec, err := c.emb.Embed(ctx, text)
	if err != nil {
		return capability.Guess{}, fmt.Errorf("semantic: embed text: %w", err)
	}

	var (
		guess capability.Guess
		chose bool
	)
	level := candidates
	for len(level) > 0 {
		vecs, err := c.termVectors(ctx, level)
		if err != nil {
			return capability.Guess{}, err
		}
		best, sim := -1, math.Inf(-1)
		for i, v := range vecs {
			if s := cosineSimilarity(vec, v); s > sim {
				best, sim = i, s
			}
		}
		if chose && sim < guess.Confidence-c.tolerance {
			break
		}
		n := level[best]
		switch n.Level {
		case 1:
			guess.Level1 = n.Code
		case 2:
			guess.Level2 = n.Code
		case 3:
			guess.Level3 = n.Code
		}
		guess.Confidence = sim
		chose = true
		level = n.Children
	}
	return guess, nil
}

// termVectors returns the term embedding of every node, embedding the ones
// not seen before in a single batch.
func (c *Capability) termVectors(ctx context.Context, nodes []*model.Node) ([][]float32, error) {
	c.mu.Lock()
	var missing []*model.Node
	for _, n := range nodes {
		if _, ok := c.vectors[n.Code]; !ok {
			missing = append(missing, n)
		}
	}
	c.mu.Unlock()

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, n := range missing {
			texts[i] = n.Term
		}
		vecs, err := c.emb.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("semantic: embed terms: %w", err)
		}
		if len(vecs) != len(missing) {
			return nil, fmt.Errorf("semantic: got %d term embeddings for %d terms", len(vecs), len(missing))
		}
		c.mu.Lock()
		for i, n := range missing {
			c.vectors[n.Code] = vecs[i]
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float32, len(nodes))
	for i, n := range nodes {
		out[i] = c.vectors[n.Code]
	}
	return out, nil
}

const verifyPrompt = `You compare medical device manufacturer names.
Do the two names below refer to the same company? Count successor companies,
subsidiaries and acquisitions as the same company.
Reply with JSON only: {"same_entity": true} or {"same_entity": false}.

A: %s
B: %s`

// VerifyEntity asks the generator whether nameA and nameB are the same company.
func (c *Capability) VerifyEntity(ctx context.Context, nameA, nameB string) (bool, error) {
	if c.gen == nil {
		return false, errors.New("semantic: no generator configured")
	}
	reply, err := c.gen.Generate(ctx, fmt.Sprintf(verifyPrompt, nameA, nameB))
	if err != nil {
		return false, fmt.Errorf("semantic: verify entity: %w", err)
	}
	return parseVerdict(reply)
}

func parseVerdict(reply string) (bool, error) {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	var v struct {
		SameEntity *bool `json:"same_entity"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return false, fmt.Errorf("semantic: parse verdict %q: %w", reply, err)
	}
	if v.SameEntity == nil {
		return false, fmt.Errorf("semantic: verdict %q has no same_entity field", reply)
	}
	return *v.SameEntity, nil
}

// Close is a no-op; the Gemini client holds no resources that need release.
func (c *Capability) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
