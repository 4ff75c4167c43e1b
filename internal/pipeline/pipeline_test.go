package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trendwatch/internal/engine"
	"github.com/crimson-sun/trendwatch/internal/engine/testdata"
	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/source"

	_ "github.com/crimson-sun/trendwatch/internal/source/csv"
	_ "github.com/crimson-sun/trendwatch/internal/source/xlsx"
)

// mockOutput records results for test assertions.
type mockOutput struct {
	mu      sync.Mutex
	results []*model.Result
	closed  bool
	err     error
}

func (m *mockOutput) Write(_ context.Context, res *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, res)
	return nil
}

func (m *mockOutput) Close() error {
	m.closed = true
	return nil
}

func eventsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, testdata.EventsCSV(), 0o644))
	return path
}

func newPipeline(t *testing.T, out *mockOutput) *Pipeline {
	t.Helper()
	tab, err := testdata.Annex()
	require.NoError(t, err)
	if out == nil {
		return New(engine.New(tab), nil)
	}
	return New(engine.New(tab), out)
}

func TestAnalyzeWritesInParamsOrder(t *testing.T) {
	out := &mockOutput{}
	p := newPipeline(t, out)

	results, err := p.Analyze(context.Background(), eventsFile(t),
		engine.Params{Prefix: "A05", Grain: model.Weekly, Sensitivity: 2},
		engine.Params{Prefix: "A07", Grain: model.Monthly, Sensitivity: 2},
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, out.results, 2)

	assert.Equal(t, "A05", out.results[0].Prefix)
	assert.Equal(t, "A07", out.results[1].Prefix)
	assert.Equal(t, model.Monthly, out.results[1].Grain)
	assert.Len(t, out.results[0].Series.Periods, 4)
	assert.Equal(t, out.results[0].RunID, out.results[1].RunID, "one prepared run serves every analysis")
}

func TestAnalyzeDefaultsToBusiestPrefix(t *testing.T) {
	out := &mockOutput{}
	p := newPipeline(t, out)

	results, err := p.Analyze(context.Background(), eventsFile(t))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A05", results[0].Prefix)
	assert.Equal(t, model.Weekly, results[0].Grain)
}

func TestAnalyzeOutputError(t *testing.T) {
	boom := errors.New("sink down")
	p := newPipeline(t, &mockOutput{err: boom})

	_, err := p.Analyze(context.Background(), eventsFile(t), engine.Params{Grain: model.Weekly})
	assert.ErrorIs(t, err, boom)
}

func TestAnalyzeWithoutOutput(t *testing.T) {
	p := newPipeline(t, nil)
	_, err := p.Analyze(context.Background(), eventsFile(t))
	assert.Error(t, err)
}

func TestAnalyzeMissingFile(t *testing.T) {
	p := newPipeline(t, &mockOutput{})
	_, err := p.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestAnalyzeRunLevelError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("Report Number,Event Date\n1,02-01-2023\n"), 0o644))

	p := newPipeline(t, &mockOutput{})
	_, err := p.Analyze(context.Background(), path)
	var missing *engine.MissingColumnError
	assert.ErrorAs(t, err, &missing)
}

func TestProfile(t *testing.T) {
	p := newPipeline(t, nil)
	prof, err := p.Profile(context.Background(), eventsFile(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"A05", "A07", "A09"}, prof.Prefixes)
	assert.Equal(t, 12, prof.TotalRows)
}

func TestMapToWorkbook(t *testing.T) {
	p := newPipeline(t, nil)
	dst := filepath.Join(t.TempDir(), "mapped.xlsx")

	stats, err := p.Map(context.Background(), eventsFile(t), dst, MapOptions{
		ProblemColumn: "Device Problem",
		TargetColumn:  "IMDRF Code",
		Separator:     ";",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Rows)

	ds, err := source.ReadFile(context.Background(), dst)
	require.NoError(t, err)
	col := ds.Column("IMDRF Code")
	require.GreaterOrEqual(t, col, 0)
	assert.Equal(t, "A050101", ds.Value(0, col))
	assert.Equal(t, "A0703", ds.Value(2, col))
}

func TestMapUnknownOutputFormat(t *testing.T) {
	p := newPipeline(t, nil)
	_, err := p.Map(context.Background(), eventsFile(t), filepath.Join(t.TempDir(), "mapped.txt"), MapOptions{
		ProblemColumn: "Device Problem",
		TargetColumn:  "IMDRF Code",
	})
	assert.Error(t, err)
}

func TestCloseClosesOutput(t *testing.T) {
	out := &mockOutput{}
	p := newPipeline(t, out)
	require.NoError(t, p.Close())
	assert.True(t, out.closed)

	assert.NoError(t, newPipeline(t, nil).Close())
}
