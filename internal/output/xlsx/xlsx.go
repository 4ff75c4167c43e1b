// Package xlsx renders result bundles as Excel reports.
package xlsx

import (
	"context"
	"fmt"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/output"
)

// Sheet names, in workbook order.
const (
	SummarySheet    = "Summary"
	SeriesSheet     = "Series"
	StatisticsSheet = "Statistics"
	AnomaliesSheet  = "Anomalies"
)

const dateLayout = "2006-01-02"

// Output saves each result bundle as a workbook at path. A later Write
// replaces the report left by an earlier one.
type Output struct {
	mu   sync.Mutex
	path string
}

// New creates an Output that writes to path.
func New(path string) *Output {
	return &Output{path: path}
}

func (o *Output) Write(ctx context.Context, res *model.Result) error {
	wb, err := Render(ctx, res)
	if err != nil {
		return fmt.Errorf("xlsx output: %w", err)
	}
	defer wb.Close()

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := wb.SaveAs(o.path); err != nil {
		return fmt.Errorf("xlsx output: save %s: %w", o.path, err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

// Render builds the report workbook for res. Values are rounded the same
// way as the JSON outputs.
func Render(ctx context.Context, res *model.Result) (*excelize.File, error) {
	res = output.FormatResult(res)
	if res == nil {
		return nil, fmt.Errorf("nil result")
	}

	wb := excelize.NewFile()
	if err := wb.SetSheetName("Sheet1", SummarySheet); err != nil {
		wb.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	r := &report{wb: wb}
	style, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	r.header = style

	steps := []func(*model.Result) error{r.summary, r.series, r.statistics, r.anomalies}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			wb.Close()
			return nil, err
		}
		if err := step(res); err != nil {
			wb.Close()
			return nil, err
		}
	}
	return wb, nil
}

type report struct {
	wb     *excelize.File
	header int
}

func (r *report) summary(res *model.Result) error {
	rows := [][]any{
		{"Field", "Value"},
		{"Run ID", res.RunID},
		{"Prefix", res.Prefix},
		{"Grain", res.Grain.String()},
		{"Entities", len(res.Entities)},
		{"Periods", len(res.Series.Periods)},
		{"Universal mean", res.Universal.Mean},
		{"Universal std dev", res.Universal.StdDev},
		{"Universal upper", res.UniversalBand.Upper},
		{"Universal lower", res.UniversalBand.Lower},
		{"Prefix mean", res.PrefixScoped.Mean},
		{"Prefix std dev", res.PrefixScoped.StdDev},
		{"Sensitivity (k)", res.Band.K},
		{"Prefix upper", res.Band.Upper},
		{"Prefix lower", res.Band.Lower},
		{"Insufficient data", res.PrefixScoped.InsufficientData},
		{"Anomalies", len(res.Anomalies)},
		{"Total rows", res.Quality.TotalRows},
		{"Excluded rows", res.Quality.ExcludedRows},
		{"Unparsable dates", res.Quality.UnparsableDates},
		{"Skipped codes", res.Quality.SkippedCodes},
		{"Invalid prefixes", res.Quality.InvalidPrefixes},
		{"Unresolved codes", res.Quality.UnresolvedCodes},
		{"Fallback failures", res.Quality.FallbackFailures},
	}
	for _, tier := range []model.Tier{model.TierExact, model.TierHeuristic, model.TierExternalFallback, model.TierUnresolved} {
		if n, ok := res.Quality.Tiers[tier.String()]; ok {
			rows = append(rows, []any{"Tier " + tier.String(), n})
		}
	}
	return r.table(SummarySheet, rows)
}

// series lays periods out as rows and entities as columns.
func (r *report) series(res *model.Result) error {
	head := []any{"Period"}
	for _, es := range res.Series.Entities {
		head = append(head, es.Entity)
	}
	rows := [][]any{head}
	for i, p := range res.Series.Periods {
		row := []any{p.Format(dateLayout)}
		for _, es := range res.Series.Entities {
			count := 0
			if i < len(es.Buckets) {
				count = es.Buckets[i].Count
			}
			row = append(row, count)
		}
		rows = append(rows, row)
	}
	return r.table(SeriesSheet, rows)
}

func (r *report) statistics(res *model.Result) error {
	rows := [][]any{{"Entity", "Total Events", "Mean per Period", "Max per Period", "Periods with Events"}}
	for _, s := range res.Stats {
		rows = append(rows, []any{s.Entity, s.TotalEvents, s.MeanPerPeriod, s.MaxPerPeriod, s.PeriodsWithEvents})
	}
	return r.table(StatisticsSheet, rows)
}

func (r *report) anomalies(res *model.Result) error {
	rows := [][]any{{"Period", "Entity", "Count", "Upper"}}
	for _, a := range res.Anomalies {
		rows = append(rows, []any{a.Period.Format(dateLayout), a.Entity, a.Count, a.Upper})
	}
	return r.table(AnomaliesSheet, rows)
}

// table writes rows to sheet, creating it if needed, with a bold frozen
// header row.
func (r *report) table(sheet string, rows [][]any) error {
	if idx, _ := r.wb.GetSheetIndex(sheet); idx < 0 {
		if _, err := r.wb.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := r.wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := r.wb.SetCellStyle(sheet, "A1", last, r.header); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	if err := r.wb.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
