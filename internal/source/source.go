// Package source reads and writes tabular datasets. Formats register
// themselves by file extension.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// Format reads and writes one tabular file format.
type Format interface {
	// Read parses a dataset. name is recorded as the dataset name.
	Read(ctx context.Context, r io.Reader, name string) (*model.Dataset, error)

	// Write serializes a dataset, header first.
	Write(ctx context.Context, w io.Writer, ds *model.Dataset) error
}

// Constructor is a function that creates a new Format instance.
type Constructor func() Format

var registry = map[string]Constructor{}

// Register adds a format constructor under a file extension such as ".csv".
func Register(ext string, ctor Constructor) {
	registry[strings.ToLower(ext)] = ctor
}

// Get returns the format constructor for the given extension.
func Get(ext string) (Constructor, error) {
	ctor, ok := registry[strings.ToLower(ext)]
	if !ok {
		return nil, fmt.Errorf("unknown dataset format: %s", ext)
	}
	return ctor, nil
}

// Extensions returns every registered extension, sorted.
func Extensions() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForPath returns the format matching a file's extension.
func ForPath(path string) (Format, error) {
	ctor, err := Get(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return ctor(), nil
}

// ReadFile loads a dataset from path.
func ReadFile(ctx context.Context, path string) (*model.Dataset, error) {
	f, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	defer fh.Close()
	ds, err := f.Read(ctx, fh, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", path, err)
	}
	return ds, nil
}

// WriteFile saves a dataset to path, replacing any existing file.
func WriteFile(ctx context.Context, path string, ds *model.Dataset) error {
	f, err := ForPath(path)
	if err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := f.Write(ctx, fh, ds); err != nil {
		fh.Close()
		return fmt.Errorf("source: write %s: %w", path, err)
	}
	return fh.Close()
}

// FromRows builds a dataset from raw rows whose first row is the header.
// Header cells are trimmed, short rows are padded, and rows with no
// non-blank cell are dropped.
func FromRows(name string, rows [][]string) (*model.Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	ds := &model.Dataset{Name: name, Columns: header}
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
