package model

import "time"

// EntityStats summarizes one entity's series.
type EntityStats struct {
	Entity            string  `json:"entity"`
	TotalEvents       int     `json:"total_events"`
	MeanPerPeriod     float64 `json:"mean_per_period"`
	MaxPerPeriod      int     `json:"max_per_period"`
	PeriodsWithEvents int     `json:"periods_with_events"`
}

// Anomaly is a bucket whose count exceeds the upper threshold band.
type Anomaly struct {
	Entity string    `json:"entity"`
	Period time.Time `json:"period"`
	Count  int       `json:"count"`
	Upper  float64   `json:"upper"`
}

// Quality carries the row-level data-quality tallies of a run.
type Quality struct {
	TotalRows        int            `json:"total_rows"`
	ExcludedRows     int            `json:"excluded_rows"`
	UnparsableDates  int            `json:"unparsable_dates"`
	SkippedCodes     int            `json:"skipped_codes"`
	InvalidPrefixes  int            `json:"invalid_prefixes"`
	UnresolvedCodes  int            `json:"unresolved_codes"`
	FallbackFailures int            `json:"fallback_failures"`
	Tiers            map[string]int `json:"tiers,omitempty"` // distinct codes per resolution tier
}

// Result is the bundle handed back to the caller for one analysis request.
type Result struct {
	RunID         string        `json:"run_id"`
	Prefix        string        `json:"prefix"`
	Grain         Grain         `json:"grain"`
	Entities      []string      `json:"entities"`
	Universal     Baseline      `json:"universal_baseline"`
	PrefixScoped  Baseline      `json:"prefix_baseline"`
	Band          ThresholdBand `json:"threshold_band"`
	UniversalBand ThresholdBand `json:"universal_band"`
	Series        Series        `json:"series"`
	Stats         []EntityStats `json:"statistics"`
	Anomalies     []Anomaly     `json:"anomalies,omitempty"`
	Quality       Quality       `json:"quality"`
}

// EntityVolume is an entity with its total prefixed-event count.
type EntityVolume struct {
	Entity string `json:"entity"`
	Total  int    `json:"total"`
}

// Profile describes a prepared dataset so a caller can pick a prefix and entities.
type Profile struct {
	RunID         string            `json:"run_id"`
	Columns       map[string]string `json:"columns"` // role → source column
	Prefixes      []string          `json:"prefixes"`
	Entities      []EntityVolume    `json:"entities"`
	Identities    []EntityIdentity  `json:"identities"`
	TotalRows     int               `json:"total_rows"`
	RowsWithCodes int               `json:"rows_with_codes"`
	RowsWithDates int               `json:"rows_with_dates"`
	Quality       Quality           `json:"quality"`
}
