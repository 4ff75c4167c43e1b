package output

import (
	"context"

	"github.com/crimson-sun/trendwatch/internal/model"
)

// Output defines the interface for result bundle destinations.
type Output interface {
	Write(ctx context.Context, res *model.Result) error
	Close() error
}
