package model

import "strings"

// Dataset is a tabular input as handed over by a source: one header row and
// string cells. Rows may be shorter than Columns; missing cells read as "".
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Column returns the index of the column whose trimmed, case-insensitive name
// equals name, or -1 when no such column exists.
func (d *Dataset) Column(name string) int {
	target := strings.ToLower(strings.TrimSpace(name))
	for i, c := range d.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == target {
			return i
		}
	}
	return -1
}

// Value returns the cell at row, col, or "" when out of range.
func (d *Dataset) Value(row, col int) string {
	if row < 0 || row >= len(d.Rows) || col < 0 {
		return ""
	}
	r := d.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// Fields returns the named cells of a row.
func (d *Dataset) Fields(row int) map[string]string {
	m := make(map[string]string, len(d.Columns))
	for i, c := range d.Columns {
		m[c] = d.Value(row, i)
	}
	return m
}

// IsBlank reports whether a cell value carries no data. Spreadsheet exports
// frequently spell empty cells as "nan", "none" or "nat".
func IsBlank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "nat":
		return true
	}
	return false
}
