// Package normalize turns raw dataset rows into normalized records.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/crimson-sun/trendwatch/internal/engine/prefix"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// Column roles.
const (
	RoleCode         = "code"
	RoleManufacturer = "manufacturer"
	RoleDate         = "date"
)

// DefaultDatePattern is day-first DD-MM-YYYY.
const DefaultDatePattern = "02-01-2006"

// MissingColumnError reports a mandatory column role with no matching column.
type MissingColumnError struct {
	Role string
}

func (e *MissingColumnError) Error() string {
	return "MissingColumn: " + e.Role
}

// Columns maps roles to source column names.
type Columns struct {
	Code                  string
	ManufacturerPrimary   string
	ManufacturerSecondary string
	Date                  []string // candidates, first present wins
}

// DefaultColumns returns the column names of a MAUDE-style export.
func DefaultColumns() Columns {
	return Columns{
		Code:                  "IMDRF Code",
		ManufacturerPrimary:   "Manufacturer",
		ManufacturerSecondary: "Manufacturer Name",
		Date:                  []string{"Event Date", "Date Received"},
	}
}

// Config controls normalization.
type Config struct {
	Columns      Columns
	Separator    string   // multi-code separator, default "|"
	DatePatterns []string // time layouts tried in order, default DD-MM-YYYY
}

// Normalizer converts rows to records.
type Normalizer struct {
	cols     Columns
	sep      string
	patterns []string
}

// New creates a Normalizer, filling unset config with defaults.
func New(cfg Config) *Normalizer {
	def := DefaultColumns()
	if cfg.Columns.Code == "" {
		cfg.Columns.Code = def.Code
	}
	if cfg.Columns.ManufacturerPrimary == "" {
		cfg.Columns.ManufacturerPrimary = def.ManufacturerPrimary
	}
	if cfg.Columns.ManufacturerSecondary == "" {
		cfg.Columns.ManufacturerSecondary = def.ManufacturerSecondary
	}
	if len(cfg.Columns.Date) == 0 {
		cfg.Columns.Date = def.Date
	}
	if cfg.Separator == "" {
		cfg.Separator = "|"
	}
	if len(cfg.DatePatterns) == 0 {
		cfg.DatePatterns = []string{DefaultDatePattern}
	}
	return &Normalizer{cols: cfg.Columns, sep: cfg.Separator, patterns: cfg.DatePatterns}
}

// Binding holds the column index chosen for each role.
type Binding struct {
	Code, Manufacturer, Date int
	Names                    map[string]string // role → column name
}

// Bind resolves every mandatory role against the dataset header.
func (n *Normalizer) Bind(ds *model.Dataset) (Binding, error) {
	b := Binding{Names: make(map[string]string, 3)}

	if b.Code = ds.Column(n.cols.Code); b.Code < 0 {
		return b, &MissingColumnError{Role: RoleCode}
	}
	b.Names[RoleCode] = ds.Columns[b.Code]

	b.Manufacturer = ds.Column(n.cols.ManufacturerPrimary)
	if b.Manufacturer < 0 {
		b.Manufacturer = ds.Column(n.cols.ManufacturerSecondary)
	}
	if b.Manufacturer < 0 {
		return b, &MissingColumnError{Role: RoleManufacturer}
	}
	b.Names[RoleManufacturer] = ds.Columns[b.Manufacturer]

	b.Date = -1
	for _, name := range n.cols.Date {
		if b.Date = ds.Column(name); b.Date >= 0 {
			break
		}
	}
	if b.Date < 0 {
		return b, &MissingColumnError{Role: RoleDate}
	}
	b.Names[RoleDate] = ds.Columns[b.Date]
	return b, nil
}

// Batch is the normalized working set of a dataset plus its tallies.
type Batch struct {
	Binding         Binding
	Records         []*model.Record
	TotalRows       int
	ExcludedRows    int // rows without a manufacturer value
	UnparsableDates int
	SkippedCodes    int
}

// Normalize binds the dataset columns and normalizes every row. Only a
// missing column role is an error; row problems are tallied.
func (n *Normalizer) Normalize(ds *model.Dataset) (*Batch, error) {
	b, err := n.Bind(ds)
	if err != nil {
		return nil, err
	}
	batch := &Batch{Binding: b, TotalRows: len(ds.Rows)}
	for i := range ds.Rows {
		mfr := strings.TrimSpace(ds.Value(i, b.Manufacturer))
		if model.IsBlank(mfr) {
			batch.ExcludedRows++
			continue
		}

		date, ok := n.ParseDate(ds.Value(i, b.Date))
		if !ok {
			batch.UnparsableDates++
		}

		codes, skipped := prefix.Split(ds.Value(i, b.Code), n.sep)
		batch.SkippedCodes += skipped

		batch.Records = append(batch.Records, &model.Record{
			Index:        i,
			Fields:       ds.Fields(i),
			Date:         date,
			Codes:        codes,
			Manufacturer: mfr,
		})
	}
	return batch, nil
}

// ParseDate parses s with each configured layout in turn and returns the
// calendar date at UTC midnight.
func (n *Normalizer) ParseDate(s string) (time.Time, bool) {
	if model.IsBlank(s) {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range n.patterns {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// String describes the binding for logs.
func (b Binding) String() string {
	return fmt.Sprintf("code=%q manufacturer=%q date=%q", b.Names[RoleCode], b.Names[RoleManufacturer], b.Names[RoleDate])
}
