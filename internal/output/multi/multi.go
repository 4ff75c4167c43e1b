package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/output"
)

// Multi hands each result bundle to several outputs in order.
// A failing output does not stop delivery to the ones after it.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over outputs. Nil entries are skipped.
func New(outputs ...output.Output) *Multi {
	m := &Multi{}
	for _, o := range outputs {
		if o != nil {
			m.outputs = append(m.outputs, o)
		}
	}
	return m
}

// Len reports the number of wrapped outputs.
func (m *Multi) Len() int { return len(m.outputs) }

func (m *Multi) Write(ctx context.Context, res *model.Result) error {
	var errs []error
	for _, o := range m.outputs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := o.Write(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every wrapped output and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
