package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trendwatch/internal/model"
)

func sampleResult() *model.Result {
	p := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	return &model.Result{
		RunID:        "run-1",
		Prefix:       "A05",
		Grain:        model.Weekly,
		Entities:     []string{"Acme Inc."},
		Universal:    model.Baseline{Mean: 2.254, StdDev: 1.0833, Periods: 4},
		PrefixScoped: model.Baseline{Mean: 1.25, StdDev: 0.829156, Periods: 4},
		Band:         model.ThresholdBand{K: 2, Upper: 2.908312, Lower: 0},
		Series: model.Series{
			Prefix:  "A05",
			Grain:   model.Weekly,
			Periods: []time.Time{p},
			Entities: []model.EntitySeries{
				{Entity: "Acme Inc.", Total: 2, Buckets: []model.Bucket{{Period: p, Count: 2}}},
			},
		},
		Stats:     []model.EntityStats{{Entity: "Acme Inc.", TotalEvents: 4, MeanPerPeriod: 1.3333}},
		Anomalies: []model.Anomaly{{Entity: "Acme Inc.", Period: p, Count: 2, Upper: 1.66458}},
	}
}

func TestFormatResultRounds(t *testing.T) {
	res := sampleResult()
	got := FormatResult(res)

	assert.Equal(t, 2.25, got.Universal.Mean)
	assert.Equal(t, 1.08, got.Universal.StdDev)
	assert.Equal(t, 1.25, got.PrefixScoped.Mean)
	assert.Equal(t, 0.83, got.PrefixScoped.StdDev)
	assert.Equal(t, 2.91, got.Band.Upper)
	assert.Equal(t, 1.33, got.Stats[0].MeanPerPeriod)
	assert.Equal(t, 1.66, got.Anomalies[0].Upper)
	assert.Equal(t, "run-1", got.RunID)
}

func TestFormatResultLeavesOriginal(t *testing.T) {
	res := sampleResult()
	got := FormatResult(res)

	got.Series.Entities[0].Buckets[0].Count = 99
	got.Stats[0].TotalEvents = 0

	require.Equal(t, 2, res.Series.Entities[0].Buckets[0].Count)
	assert.Equal(t, 4, res.Stats[0].TotalEvents)
	assert.Equal(t, 2.254, res.Universal.Mean)
}

func TestFormatResultNil(t *testing.T) {
	assert.Nil(t, FormatResult(nil))
}

func TestFormatResultNoAnomalies(t *testing.T) {
	res := sampleResult()
	res.Anomalies = nil
	assert.Nil(t, FormatResult(res).Anomalies)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.83, Round(0.829156))
	assert.Equal(t, 2.0, Round(2.004))
	assert.Equal(t, -1.5, Round(-1.499))
}
