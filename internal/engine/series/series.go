// Package series buckets prefix associations into dense per-entity time
// series.
package series

import (
	"sort"
	"strings"
	"time"

	"github.com/crimson-sun/trendwatch/internal/engine/prefix"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// ParseWeekday accepts English weekday names or their three-letter forms.
// An empty string means Monday.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return time.Monday, true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return time.Monday, false
}

// Aggregator buckets associations at a fixed grain.
type Aggregator struct {
	Grain     model.Grain
	WeekStart time.Weekday
}

// New creates an Aggregator.
func New(grain model.Grain, weekStart time.Weekday) *Aggregator {
	return &Aggregator{Grain: grain, WeekStart: weekStart}
}

// Start returns the start of the period containing t, at UTC midnight.
func (a *Aggregator) Start(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch a.Grain {
	case model.Daily:
		return day
	case model.Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		back := (int(day.Weekday()) - int(a.WeekStart) + 7) % 7
		return day.AddDate(0, 0, -back)
	}
}

// Next returns the start of the period after the one starting at p.
func (a *Aggregator) Next(p time.Time) time.Time {
	switch a.Grain {
	case model.Daily:
		return p.AddDate(0, 0, 1)
	case model.Monthly:
		return p.AddDate(0, 1, 0)
	default:
		return p.AddDate(0, 0, 7)
	}
}

// Periods returns every period start from the period containing min through
// the period containing max, inclusive.
func (a *Aggregator) Periods(min, max time.Time) []time.Time {
	if max.Before(min) {
		return nil
	}
	last := a.Start(max)
	var out []time.Time
	for p := a.Start(min); !p.After(last); p = a.Next(p) {
		out = append(out, p)
	}
	return out
}

// Aggregate builds the dense series of one prefix. When entities is empty
// every entity with a dated association under the prefix is included,
// ordered by total descending then name; otherwise the given entities are
// kept in the given order. The grid spans the dated associations that pass
// both filters, and every entity gets one bucket per period, zero-filled.
func (a *Aggregator) Aggregate(assocs []prefix.Association, pfx string, entities []string) model.Series {
	out := model.Series{Prefix: pfx, Grain: a.Grain}

	var want map[string]struct{}
	if len(entities) > 0 {
		want = make(map[string]struct{}, len(entities))
		for _, e := range entities {
			want[e] = struct{}{}
		}
	}

	counts := make(map[string]map[time.Time]int)
	var min, max time.Time
	for _, as := range assocs {
		if as.Prefix != pfx || !as.Record.HasDate() {
			continue
		}
		if want != nil {
			if _, ok := want[as.Record.Entity]; !ok {
				continue
			}
		}
		d := as.Record.Date
		if min.IsZero() || d.Before(min) {
			min = d
		}
		if max.IsZero() || d.After(max) {
			max = d
		}
		byPeriod, ok := counts[as.Record.Entity]
		if !ok {
			byPeriod = make(map[time.Time]int)
			counts[as.Record.Entity] = byPeriod
		}
		byPeriod[a.Start(d)]++
	}

	if !min.IsZero() {
		out.Periods = a.Periods(min, max)
	}

	names := dedupe(entities)
	if len(names) == 0 {
		for e := range counts {
			names = append(names, e)
		}
	}

	for _, name := range names {
		es := model.EntitySeries{Entity: name, Buckets: make([]model.Bucket, len(out.Periods))}
		for i, p := range out.Periods {
			n := counts[name][p]
			es.Buckets[i] = model.Bucket{Period: p, Count: n}
			es.Total += n
		}
		out.Entities = append(out.Entities, es)
	}
	if len(entities) == 0 {
		sort.Slice(out.Entities, func(i, j int) bool {
			if out.Entities[i].Total != out.Entities[j].Total {
				return out.Entities[i].Total > out.Entities[j].Total
			}
			return out.Entities[i].Entity < out.Entities[j].Entity
		})
	}
	return out
}

// Totals returns the dense per-period association counts across all
// entities. An empty pfx counts every prefix. The grid spans the dated
// associations counted.
func (a *Aggregator) Totals(assocs []prefix.Association, pfx string) []int {
	byPeriod := make(map[time.Time]int)
	var min, max time.Time
	for _, as := range assocs {
		if (pfx != "" && as.Prefix != pfx) || !as.Record.HasDate() {
			continue
		}
		d := as.Record.Date
		if min.IsZero() || d.Before(min) {
			min = d
		}
		if max.IsZero() || d.After(max) {
			max = d
		}
		byPeriod[a.Start(d)]++
	}
	if min.IsZero() {
		return nil
	}
	periods := a.Periods(min, max)
	out := make([]int, len(periods))
	for i, p := range periods {
		out[i] = byPeriod[p]
	}
	return out
}

// Top returns up to n entities by association count under pfx, ordered by
// count descending then name. An empty pfx counts every prefix; n <= 0
// returns all of them. Undated associations are not counted.
func Top(assocs []prefix.Association, pfx string, n int) []model.EntityVolume {
	totals := make(map[string]int)
	for _, as := range assocs {
		if (pfx != "" && as.Prefix != pfx) || !as.Record.HasDate() {
			continue
		}
		totals[as.Record.Entity]++
	}
	out := make([]model.EntityVolume, 0, len(totals))
	for e, c := range totals {
		out = append(out, model.EntityVolume{Entity: e, Total: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Entity < out[j].Entity
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
