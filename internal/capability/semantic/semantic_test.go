package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// mockEmbedder maps known texts to fixed vectors; anything else is an error.
type mockEmbedder struct {
	vectors map[string][]float32
	batches int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := m.vectors[text]
	if !ok {
		return nil, errors.New("unknown text " + text)
	}
	return v, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type mockGenerator struct {
	reply string
	err   error
}

func (m *mockGenerator) Generate(context.Context, string) (string, error) {
	return m.reply, m.err
}

func hierarchy() []*model.Node {
	fracture := &model.Node{Code: "A050101", Term: "Fracture", Level: 3}
	brk := &model.Node{Code: "A0501", Term: "Break", Level: 2, Children: []*model.Node{fracture}}
	mech := &model.Node{Code: "A05", Term: "Mechanical Problem", Level: 1, Children: []*model.Node{brk}}
	power := &model.Node{Code: "A0703", Term: "Power Problem", Level: 2}
	elec := &model.Node{Code: "A07", Term: "Electrical Problem", Level: 1, Children: []*model.Node{power}}
	return []*model.Node{mech, elec}
}

func embedder() *mockEmbedder {
	return &mockEmbedder{vectors: map[string][]float32{
		"Mechanical Problem": {1, 0, 0},
		"Break":              {0.9, 0.1, 0},
		"Fracture":           {0.95, 0.05, 0},
		"Electrical Problem": {0, 1, 0},
		"Power Problem":      {0, 0.8, 0.6},
		"snapped in two":     {1, 0.05, 0},
		"burning smell":      {0, 0.99, 0.01},
	}}
}

func TestClassifyDescends(t *testing.T) {
	emb := embedder()
	c := New(emb, nil)

	g, err := c.Classify(context.Background(), "snapped in two", hierarchy())
	require.NoError(t, err)
	assert.Equal(t, "A05", g.Level1)
	assert.Equal(t, "A0501", g.Level2)
	assert.Equal(t, "A050101", g.Level3)
	assert.Greater(t, g.Confidence, 0.9)

	// Term vectors are cached across calls.
	batches := emb.batches
	_, err = c.Classify(context.Background(), "snapped in two", hierarchy())
	require.NoError(t, err)
	assert.Equal(t, batches, emb.batches)
}

func TestClassifyStopsWhenChildIsWorse(t *testing.T) {
	c := New(embedder(), nil)
	g, err := c.Classify(context.Background(), "burning smell", hierarchy())
	require.NoError(t, err)
	assert.Equal(t, "A07", g.Level1)
	assert.Empty(t, g.Level2)
	assert.Greater(t, g.Confidence, 0.99)
}

func TestClassifyOppositeTerms(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{
		"Mechanical Problem": {-1, 0},
		"Electrical Problem": {-1, 0},
		"no fault found":     {1, 0},
	}}
	roots := []*model.Node{
		{Code: "A05", Term: "Mechanical Problem", Level: 1},
		{Code: "A07", Term: "Electrical Problem", Level: 1},
	}
	c := New(emb, nil)

	g, err := c.Classify(context.Background(), "no fault found", roots)
	require.NoError(t, err)
	assert.Equal(t, "A05", g.Level1)
	assert.InDelta(t, -1.0, g.Confidence, 1e-9)
}

func TestClassifyErrors(t *testing.T) {
	c := New(embedder(), nil)
	_, err := c.Classify(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = c.Classify(context.Background(), "never embedded", hierarchy())
	assert.Error(t, err)
}

func TestVerifyEntity(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    bool
		wantErr bool
	}{
		{"true", `{"same_entity": true}`, true, false},
		{"false", `{"same_entity": false}`, false, false},
		{"fenced", "```json\n{\"same_entity\": true}\n```", true, false},
		{"missing field", `{"answer": "yes"}`, false, true},
		{"not json", "yes they are", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(embedder(), &mockGenerator{reply: tt.reply})
			got, err := c.VerifyEntity(context.Background(), "Acme", "Acme Holdings")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyEntityErrors(t *testing.T) {
	_, err := New(embedder(), nil).VerifyEntity(context.Background(), "a", "b")
	assert.Error(t, err)

	_, err = New(embedder(), &mockGenerator{err: errors.New("quota")}).VerifyEntity(context.Background(), "a", "b")
	assert.ErrorContains(t, err, "quota")
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
