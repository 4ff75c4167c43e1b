package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/trendwatch/internal/model"
	"github.com/crimson-sun/trendwatch/internal/output"
)

// Output writes JSON-encoded result bundles to a writer, stdout by default.
type Output struct {
	enc *json.Encoder
}

// New creates a stdout Output. Pretty switches to indented JSON.
func New(pretty bool) *Output {
	return NewWriter(os.Stdout, pretty)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, pretty bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc}
}

func (o *Output) Write(_ context.Context, res *model.Result) error {
	if err := o.enc.Encode(output.FormatResult(res)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
