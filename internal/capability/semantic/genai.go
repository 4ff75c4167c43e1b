package semantic

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/crimson-sun/trendwatch/internal/capability"
)

const (
	defaultEmbedModel    = "gemini-embedding-001"
	defaultGenerateModel = "gemini-2.5-flash"
)

// GenAI embeds and generates with Google's Gemini API.
type GenAI struct {
	client        *genai.Client
	embedModel    string
	generateModel string
}

// NewGenAI creates a Gemini client.
func NewGenAI(ctx context.Context, apiKey, embedModel, generateModel string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	if generateModel == "" {
		generateModel = defaultGenerateModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAI{client: client, embedModel: embedModel, generateModel: generateModel}, nil
}

// Embed generates an embedding for a single text.
func (g *GenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (g *GenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Generate answers prompt with a deterministic JSON reply.
func (g *GenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generateModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

func init() {
	capability.Register("semantic", func(cfg capability.Config) (capability.Capability, error) {
		g, err := NewGenAI(context.Background(), cfg.APIKey, cfg.Model, cfg.Extra["generate_model"])
		if err != nil {
			return nil, err
		}
		return New(g, g), nil
	})
}
