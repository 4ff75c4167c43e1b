package csv

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/source"
)

func TestRead(t *testing.T) {
	in := "Event Date,Manufacturer,IMDRF Code\n05-01-2023,\"Acme, Inc.\",A05|A07\n06-01-2023,Globex\n"
	ds, err := New().Read(context.Background(), strings.NewReader(in), "events.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Event Date", "Manufacturer", "IMDRF Code"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Acme, Inc.", ds.Rows[0][1])
	assert.Equal(t, []string{"06-01-2023", "Globex", ""}, ds.Rows[1])
}

func TestWrite(t *testing.T) {
	ds := &model.Dataset{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "x,y"}},
	}
	var buf bytes.Buffer
	require.NoError(t, New().Write(context.Background(), &buf, ds))
	assert.Equal(t, "a,b\n1,\"x,y\"\n", buf.String())
}

func TestRegisteredRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tsv")
	ds := &model.Dataset{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3", "4"}}}
	require.NoError(t, source.WriteFile(context.Background(), path, ds))

	got, err := source.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, got.Columns)
	assert.Equal(t, ds.Rows, got.Rows)
	assert.Equal(t, "out.tsv", got.Name)
	assert.Contains(t, source.Extensions(), ".csv")
}
