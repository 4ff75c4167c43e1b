// Package classifier gates external classification guesses: a guess is
// accepted only when its codes exist in the annex hierarchy and its
// confidence clears the floor.
package classifier

import (
	"math"

	"github.com/crimson-sun/trendwatch/internal/capability"
	"github.com/crimson-sun/trendwatch/internal/engine/annex"
	"github.com/crimson-sun/trendwatch/internal/engine/prefix"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// DefaultThreshold is the minimum confidence for an external guess.
const DefaultThreshold = 0.6

// Classifier validates capability guesses against an annex table.
type Classifier struct {
	Threshold float64
}

// New creates a Classifier with the given confidence threshold.
func New(threshold float64) *Classifier {
	return &Classifier{Threshold: threshold}
}

// Accept turns a guess into a resolved code for raw. Inconsistent deeper
// levels are dropped; an unknown Level-1 code, NaN, or a confidence below
// the threshold rejects the guess, in which case the returned code is
// unresolved with confidence 0.
func (c *Classifier) Accept(raw string, g capability.Guess, tab *annex.Table) (model.ResolvedCode, bool) {
	rejected := model.ResolvedCode{Raw: raw, Tier: model.TierUnresolved}
	if math.IsNaN(g.Confidence) || g.Confidence < c.Threshold {
		return rejected, false
	}

	l1 := prefix.Alnum(g.Level1)
	l2 := prefix.Alnum(g.Level2)
	l3 := prefix.Alnum(g.Level3)
	if !tab.Consistent(l1, "", "") {
		return rejected, false
	}
	if l2 != "" && !tab.Consistent(l1, l2, "") {
		l2, l3 = "", ""
	}
	if l3 != "" && (l2 == "" || !tab.Consistent(l1, l2, l3)) {
		l3 = ""
	}

	out := model.ResolvedCode{
		Raw:        raw,
		Level1:     l1,
		Level2:     l2,
		Level3:     l3,
		Prefix:     l1,
		Tier:       model.TierExternalFallback,
		Confidence: math.Min(g.Confidence, 1),
	}
	out.Term = tab.Term(out.Deepest())
	return out, true
}
