// Package xlsx reads and writes Excel workbook datasets.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/source"
)

// DefaultSheet names the sheet written by Write.
const DefaultSheet = "Data"

// Format reads one sheet of a workbook.
type Format struct {
	// Sheet to read; empty reads the first sheet.
	Sheet string
}

// New creates a Format that reads the first sheet.
func New() *Format {
	return &Format{}
}

// Read loads the rows of the configured sheet.
func (f *Format) Read(ctx context.Context, r io.Reader, name string) (*model.Dataset, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	sheet := f.Sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return source.FromRows(name, rows)
}

// Write saves the dataset as a single-sheet workbook with a bold, frozen
// header row.
func (f *Format) Write(ctx context.Context, w io.Writer, ds *model.Dataset) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := DefaultSheet
	if err := wb.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := writeRow(wb, sheet, 1, ds.Columns); err != nil {
		return err
	}
	if len(ds.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(ds.Columns), 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, row := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeRow(wb, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := wb.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return wb.Write(w)
}

func writeRow(wb *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := wb.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func init() {
	source.Register(".xlsx", func() source.Format { return New() })
	source.Register(".xlsm", func() source.Format { return New() })
}
