// Package baseline computes dispersion baselines over per-period totals and
// the threshold bands derived from them.
package baseline

import (
	"math"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// Sensitivity bounds and default for the band multiplier k.
const (
	DefaultK = 2.0
	MinK     = 0.5
	MaxK     = 5.0
)

// Compute returns the population mean and standard deviation of totals.
// Fewer than two periods yields a zero baseline flagged as insufficient.
func Compute(totals []int) model.Baseline {
	n := len(totals)
	if n <= 1 {
		return model.Baseline{Periods: n, InsufficientData: true}
	}
	var sum float64
	for _, v := range totals {
		sum += float64(v)
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range totals {
		d := float64(v) - mean
		sq += d * d
	}
	return model.Baseline{
		Mean:    mean,
		StdDev:  math.Sqrt(sq / float64(n)),
		Periods: n,
	}
}

// ClampK maps a requested sensitivity onto [MinK, MaxK]. Zero, negative and
// NaN values select DefaultK.
func ClampK(k float64) float64 {
	if math.IsNaN(k) || k <= 0 {
		return DefaultK
	}
	return math.Max(MinK, math.Min(MaxK, k))
}

// Band returns mean ± k·std with the lower bound floored at zero.
func Band(b model.Baseline, k float64) model.ThresholdBand {
	k = ClampK(k)
	return model.ThresholdBand{
		K:     k,
		Upper: b.Mean + k*b.StdDev,
		Lower: math.Max(0, b.Mean-k*b.StdDev),
	}
}

// Stats summarizes an entity series.
func Stats(es model.EntitySeries) model.EntityStats {
	st := model.EntityStats{Entity: es.Entity}
	for _, b := range es.Buckets {
		st.TotalEvents += b.Count
		if b.Count > st.MaxPerPeriod {
			st.MaxPerPeriod = b.Count
		}
		if b.Count > 0 {
			st.PeriodsWithEvents++
		}
	}
	if len(es.Buckets) > 0 {
		st.MeanPerPeriod = float64(st.TotalEvents) / float64(len(es.Buckets))
	}
	return st
}

// Anomalies returns every bucket above the band's upper bound, ordered by
// period then by the entity order of the series. An insufficient baseline
// yields none.
func Anomalies(s model.Series, b model.Baseline, band model.ThresholdBand) []model.Anomaly {
	if b.InsufficientData {
		return nil
	}
	var out []model.Anomaly
	for i := range s.Periods {
		for _, es := range s.Entities {
			if i >= len(es.Buckets) {
				continue
			}
			bk := es.Buckets[i]
			if float64(bk.Count) > band.Upper {
				out = append(out, model.Anomaly{Entity: es.Entity, Period: bk.Period, Count: bk.Count, Upper: band.Upper})
			}
		}
	}
	return out
}
