package output

import (
	"math"
	"slices"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// Precision is the number of decimals kept by FormatResult.
const Precision = 2

// FormatResult returns a copy of res with baselines, bands and per-entity
// means rounded for display. Series buckets are copied so callers may keep
// mutating the original.
func FormatResult(res *model.Result) *model.Result {
	if res == nil {
		return nil
	}
	out := *res
	out.Entities = slices.Clone(res.Entities)
	out.Universal = roundBaseline(res.Universal)
	out.PrefixScoped = roundBaseline(res.PrefixScoped)
	out.Band = roundBand(res.Band)
	out.UniversalBand = roundBand(res.UniversalBand)

	out.Series.Periods = slices.Clone(res.Series.Periods)
	out.Series.Entities = make([]model.EntitySeries, len(res.Series.Entities))
	for i, es := range res.Series.Entities {
		es.Buckets = slices.Clone(es.Buckets)
		out.Series.Entities[i] = es
	}

	out.Stats = make([]model.EntityStats, len(res.Stats))
	for i, s := range res.Stats {
		s.MeanPerPeriod = Round(s.MeanPerPeriod)
		out.Stats[i] = s
	}
	if res.Anomalies != nil {
		out.Anomalies = make([]model.Anomaly, len(res.Anomalies))
		for i, a := range res.Anomalies {
			a.Upper = Round(a.Upper)
			out.Anomalies[i] = a
		}
	}
	return &out
}

// Round rounds v half away from zero to Precision decimals.
func Round(v float64) float64 {
	p := math.Pow(10, Precision)
	return math.Round(v*p) / p
}

func roundBaseline(b model.Baseline) model.Baseline {
	b.Mean = Round(b.Mean)
	b.StdDev = Round(b.StdDev)
	return b
}

func roundBand(b model.ThresholdBand) model.ThresholdBand {
	b.Upper = Round(b.Upper)
	b.Lower = Round(b.Lower)
	return b
}
