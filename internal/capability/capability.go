// Package capability defines the optional external collaborator the engine
// falls back to when deterministic resolution fails. The engine works the
// same with no capability at all.
package capability

import (
	"context"
	"time"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// Guess is a capability's Level-1/2/3 answer for a piece of text.
type Guess struct {
	Level1     string  `json:"level1"`
	Level2     string  `json:"level2"`
	Level3     string  `json:"level3"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps free text onto the candidate hierarchy.
type Classifier interface {
	Classify(ctx context.Context, text string, candidates []*model.Node) (Guess, error)
}

// Verifier decides whether two manufacturer names denote the same company,
// including successor and acquired-by relationships.
type Verifier interface {
	VerifyEntity(ctx context.Context, nameA, nameB string) (bool, error)
}

// Capability is a full external collaborator.
type Capability interface {
	Classifier
	Verifier
	Close() error
}

// Config holds provider settings.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
	Extra    map[string]string
}
