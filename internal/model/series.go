package model

import (
	"fmt"
	"strings"
	"time"
)

// Grain is the time-bucketing granularity.
type Grain int

const (
	Daily Grain = iota
	Weekly
	Monthly
)

func (g Grain) String() string {
	switch g {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	default:
		return "weekly"
	}
}

// MarshalText renders the grain by name in JSON output.
func (g Grain) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Grain) UnmarshalText(b []byte) error {
	v, err := ParseGrain(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// ParseGrain accepts "daily"/"d", "weekly"/"w" and "monthly"/"m".
func ParseGrain(s string) (Grain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day", "daily":
		return Daily, nil
	case "w", "week", "weekly", "":
		return Weekly, nil
	case "m", "month", "monthly":
		return Monthly, nil
	}
	return Weekly, fmt.Errorf("unknown grain %q", s)
}

// Bucket is the event count for one entity in one period.
type Bucket struct {
	Period time.Time `json:"period"`
	Count  int       `json:"count"`
}

// EntitySeries is the dense per-period series of one entity.
type EntitySeries struct {
	Entity  string   `json:"entity"`
	Total   int      `json:"total"`
	Buckets []Bucket `json:"buckets"`
}

// Series is the dense grid for one prefix at one grain. Every entity has
// exactly one bucket per entry of Periods.
type Series struct {
	Prefix   string         `json:"prefix"`
	Grain    Grain          `json:"grain"`
	Periods  []time.Time    `json:"periods"`
	Entities []EntitySeries `json:"entities"`
}

// Baseline is the population mean and standard deviation of per-period totals.
type Baseline struct {
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"`
	Periods          int     `json:"periods"`
	InsufficientData bool    `json:"insufficient_data"`
}

// ThresholdBand is mean ± k·std for a baseline, with Lower floored at zero.
type ThresholdBand struct {
	K     float64 `json:"k"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}
