// Package testdata embeds a small adverse-event export and classification
// annex shared by engine and pipeline tests.
package testdata

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"

	"github.com/crimson-sun/trendwatch/internal/engine/annex"
	"github.com/crimson-sun/trendwatch/internal/model"
)

//go:embed events.csv
var eventsCSV []byte

//go:embed annex.csv
var annexCSV []byte

// EventsCSV returns the raw events export.
func EventsCSV() []byte {
	return append([]byte(nil), eventsCSV...)
}

// AnnexCSV returns the raw annex export.
func AnnexCSV() []byte {
	return append([]byte(nil), annexCSV...)
}

// Events parses the embedded events export.
func Events() (*model.Dataset, error) {
	rows, err := csv.NewReader(bytes.NewReader(eventsCSV)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse events.csv: %w", err)
	}
	return &model.Dataset{Name: "events.csv", Columns: rows[0], Rows: rows[1:]}, nil
}

// Annex parses the embedded annex.
func Annex() (*annex.Table, error) {
	t, err := annex.ReadCSV(bytes.NewReader(annexCSV))
	if err != nil {
		return nil, fmt.Errorf("parse annex.csv: %w", err)
	}
	return t, nil
}
