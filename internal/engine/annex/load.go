package annex

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/crimson-sun/trendwatch/internal/model"
)

const (
	colLevel1 = "Level 1 Term"
	colLevel2 = "Level 2 Term"
	colLevel3 = "Level 3 Term"
	colCode   = "Code"

	// headerScanRows bounds how far down a sheet the header row is searched.
	headerScanRows = 50
)

// Load reads an annex workbook (.xlsx) or CSV file, chosen by extension.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("annex: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("annex: open %s: %w", path, err)
		}
		defer f.Close()
		return fromWorkbook(f)
	}
	return nil, fmt.Errorf("annex: unsupported file type %q", filepath.Ext(path))
}

// ReadXLSX reads an annex workbook. Every sheet with a recognizable header
// row contributes entries.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("annex: parse workbook: %w", err)
	}
	defer f.Close()
	return fromWorkbook(f)
}

func fromWorkbook(f *excelize.File) (*Table, error) {
	var entries []Entry
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("annex: read sheet %s: %w", sheet, err)
		}
		entries = append(entries, parseRows(rows)...)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("annex: no sheet has the %q, %q, %q and %q columns", colLevel1, colLevel2, colLevel3, colCode)
	}
	return New(entries), nil
}

// ReadCSV reads an annex exported as CSV.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("annex: parse csv: %w", err)
	}
	entries := parseRows(rows)
	if len(entries) == 0 {
		return nil, fmt.Errorf("annex: csv has no coded rows")
	}
	return New(entries), nil
}

// parseRows locates the header row, forward-fills the Level-1 and Level-2
// term columns and returns one entry per coded row.
func parseRows(rows [][]string) []Entry {
	header := -1
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if indexOf(rows[i], colLevel1) >= 0 {
			header = i
			break
		}
	}
	if header < 0 {
		return nil
	}
	h := rows[header]
	i1, i2, i3, ic := indexOf(h, colLevel1), indexOf(h, colLevel2), indexOf(h, colLevel3), indexOf(h, colCode)
	if i1 < 0 || i2 < 0 || i3 < 0 || ic < 0 {
		return nil
	}

	var entries []Entry
	var l1, l2 string
	for _, row := range rows[header+1:] {
		if v := cell(row, i1); !model.IsBlank(v) {
			l1 = v
		}
		if v := cell(row, i2); !model.IsBlank(v) {
			l2 = v
		}
		code := strings.TrimSpace(cell(row, ic))
		if model.IsBlank(code) {
			continue
		}
		var term string
		switch len(code) {
		case 3:
			term = l1
		case 5:
			term = l2
		case 7:
			term = cell(row, i3)
		default:
			continue
		}
		if model.IsBlank(term) {
			continue
		}
		entries = append(entries, Entry{Code: code, Term: term})
	}
	return entries
}

func indexOf(row []string, name string) int {
	for i, v := range row {
		if strings.TrimSpace(v) == name {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
