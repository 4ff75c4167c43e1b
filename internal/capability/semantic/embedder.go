package semantic

import "context"

// Embedder produces vector embeddings from text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator answers a prompt with text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
