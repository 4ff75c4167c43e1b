package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/trendwatch/internal/engine/prefix"
	"github.com/crimson-sun/trendwatch/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assoc(pfx, entity string, date time.Time) prefix.Association {
	return prefix.Association{Prefix: pfx, Record: &model.Record{Entity: entity, Date: date}}
}

func TestStart(t *testing.T) {
	// 2023-01-05 is a Thursday.
	thu := day(2023, 1, 5)
	assert.Equal(t, day(2023, 1, 2), New(model.Weekly, time.Monday).Start(thu))
	assert.Equal(t, day(2023, 1, 1), New(model.Weekly, time.Sunday).Start(thu))
	assert.Equal(t, day(2023, 1, 5), New(model.Weekly, time.Thursday).Start(thu))
	assert.Equal(t, day(2023, 1, 1), New(model.Monthly, time.Monday).Start(thu))
	assert.Equal(t, thu, New(model.Daily, time.Monday).Start(thu.Add(13*time.Hour)))
}

func TestPeriods(t *testing.T) {
	a := New(model.Monthly, time.Monday)
	got := a.Periods(day(2023, 11, 20), day(2024, 2, 3))
	assert.Equal(t, []time.Time{day(2023, 11, 1), day(2023, 12, 1), day(2024, 1, 1), day(2024, 2, 1)}, got)

	assert.Nil(t, a.Periods(day(2024, 1, 1), day(2023, 1, 1)))
}

func TestAggregateDenseGrid(t *testing.T) {
	assocs := []prefix.Association{
		assoc("A05", "Acme", day(2023, 1, 2)),
		assoc("A05", "Acme", day(2023, 1, 3)),
		assoc("A05", "Globex", day(2023, 1, 23)),
		assoc("A05", "Acme", time.Time{}),
		assoc("A07", "Initech", day(2022, 6, 1)),
	}
	s := New(model.Weekly, time.Monday).Aggregate(assocs, "A05", nil)

	require.Equal(t, []time.Time{day(2023, 1, 2), day(2023, 1, 9), day(2023, 1, 16), day(2023, 1, 23)}, s.Periods)
	require.Len(t, s.Entities, 2)
	for _, es := range s.Entities {
		assert.Len(t, es.Buckets, len(s.Periods))
		for i, b := range es.Buckets {
			assert.Equal(t, s.Periods[i], b.Period)
		}
	}
	assert.Equal(t, "Acme", s.Entities[0].Entity)
	assert.Equal(t, 2, s.Entities[0].Total)
	assert.Equal(t, []int{2, 0, 0, 0}, counts(s.Entities[0]))
	assert.Equal(t, []int{0, 0, 0, 1}, counts(s.Entities[1]))
}

func TestAggregateEntityFilter(t *testing.T) {
	assocs := []prefix.Association{
		assoc("A05", "Acme", day(2023, 3, 1)),
		assoc("A05", "Globex", day(2023, 1, 1)),
		assoc("A05", "Globex", day(2023, 3, 15)),
	}
	s := New(model.Monthly, time.Monday).Aggregate(assocs, "A05", []string{"Acme", "Umbrella", "Acme"})

	assert.Equal(t, []time.Time{day(2023, 3, 1)}, s.Periods)
	require.Len(t, s.Entities, 2)
	assert.Equal(t, "Acme", s.Entities[0].Entity)
	assert.Equal(t, []int{1}, counts(s.Entities[0]))
	assert.Equal(t, "Umbrella", s.Entities[1].Entity)
	assert.Equal(t, []int{0}, counts(s.Entities[1]))
}

func TestAggregateEmpty(t *testing.T) {
	s := New(model.Weekly, time.Monday).Aggregate(nil, "A05", []string{"Acme"})
	assert.Empty(t, s.Periods)
	require.Len(t, s.Entities, 1)
	assert.Empty(t, s.Entities[0].Buckets)
	assert.Zero(t, s.Entities[0].Total)
}

func TestTotals(t *testing.T) {
	assocs := []prefix.Association{
		assoc("A05", "Acme", day(2023, 1, 1)),
		assoc("A07", "Acme", day(2023, 1, 1)),
		assoc("A05", "Globex", day(2023, 1, 3)),
		assoc("A05", "Globex", time.Time{}),
	}
	a := New(model.Daily, time.Monday)
	assert.Equal(t, []int{2, 0, 1}, a.Totals(assocs, ""))
	assert.Equal(t, []int{1, 0, 1}, a.Totals(assocs, "A05"))
	assert.Nil(t, a.Totals(assocs, "Z99"))
}

func TestTop(t *testing.T) {
	assocs := []prefix.Association{
		assoc("A05", "Globex", day(2023, 1, 1)),
		assoc("A05", "Acme", day(2023, 1, 1)),
		assoc("A05", "Initech", day(2023, 1, 1)),
		assoc("A05", "Initech", day(2023, 1, 2)),
		assoc("A07", "Acme", day(2023, 1, 2)),
		assoc("A05", "Acme", time.Time{}),
	}
	assert.Equal(t, []model.EntityVolume{{Entity: "Initech", Total: 2}, {Entity: "Acme", Total: 1}}, Top(assocs, "A05", 2))
	assert.Equal(t, []model.EntityVolume{{Entity: "Acme", Total: 2}, {Entity: "Initech", Total: 2}, {Entity: "Globex", Total: 1}}, Top(assocs, "", 0))
}

func TestParseWeekday(t *testing.T) {
	d, ok := ParseWeekday("Sunday")
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, d)
	d, ok = ParseWeekday("wed")
	assert.True(t, ok)
	assert.Equal(t, time.Wednesday, d)
	d, ok = ParseWeekday("")
	assert.True(t, ok)
	assert.Equal(t, time.Monday, d)
	_, ok = ParseWeekday("someday")
	assert.False(t, ok)
}

func counts(es model.EntitySeries) []int {
	out := make([]int, len(es.Buckets))
	for i, b := range es.Buckets {
		out[i] = b.Count
	}
	return out
}
