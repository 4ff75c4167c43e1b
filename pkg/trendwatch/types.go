package trendwatch

import (
	"github.com/crimson-sun/trendwatch/internal/model"
)

// Dataset is a table of raw cells. The first column set names every row.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

func (d Dataset) internal() *model.Dataset {
	return &model.Dataset{Name: d.Name, Columns: d.Columns, Rows: d.Rows}
}

// Grain is the width of an aggregation period.
type Grain = model.Grain

const (
	Daily   = model.Daily
	Weekly  = model.Weekly
	Monthly = model.Monthly
)

// ParseGrain maps "daily", "weekly" or "monthly" to a Grain.
func ParseGrain(s string) (Grain, error) {
	return model.ParseGrain(s)
}

// Query selects what Analyze reports. The zero Query analyzes the busiest
// prefix weekly at the default sensitivity.
type Query struct {
	Prefix      string   // empty: the prefix with most events
	Entities    []string // empty: top N manufacturers under Prefix
	Grain       string   // "daily", "weekly" (default) or "monthly"
	Sensitivity float64  // band multiplier; 0 means 2.0
	TopN        int      // 0 uses the instance default
}

// Result is the analysis bundle: baselines, bands, the dense series,
// per-manufacturer statistics, anomalies and data-quality counts.
type Result = model.Result

// Profile describes what a dataset contains.
type Profile = model.Profile

// Code is the outcome of resolving one raw classification code.
type Code struct {
	Raw        string  `json:"raw"`
	Level1     string  `json:"level1,omitempty"`
	Level2     string  `json:"level2,omitempty"`
	Level3     string  `json:"level3,omitempty"`
	Term       string  `json:"term,omitempty"`
	Prefix     string  `json:"prefix,omitempty"`
	Tier       string  `json:"tier"`                 // exact, heuristic, external_fallback, unresolved
	Confidence float64 `json:"confidence,omitempty"` // set for external_fallback only
}

func codeFromResolved(rc model.ResolvedCode) Code {
	return Code{
		Raw:        rc.Raw,
		Level1:     rc.Level1,
		Level2:     rc.Level2,
		Level3:     rc.Level3,
		Term:       rc.Term,
		Prefix:     rc.Prefix,
		Tier:       rc.Tier.String(),
		Confidence: rc.Confidence,
	}
}

// MapStats summarizes a Map call.
type MapStats struct {
	Rows     int
	Resolved int
}
