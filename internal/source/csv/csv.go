// Package csv reads and writes delimited text datasets.
package csv

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/source"
)

// Format is a delimited text format.
type Format struct {
	Comma rune
}

// New creates a comma-separated Format.
func New() *Format {
	return &Format{Comma: ','}
}

// Read parses every record. Ragged rows and bare quotes are tolerated.
func (f *Format) Read(ctx context.Context, r io.Reader, name string) (*model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = f.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return source.FromRows(name, rows)
}

// Write emits the header then every row.
func (f *Format) Write(ctx context.Context, w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	cw.Comma = f.Comma
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	for _, row := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func init() {
	source.Register(".csv", func() source.Format { return New() })
	source.Register(".tsv", func() source.Format { return &Format{Comma: '\t'} })
}
