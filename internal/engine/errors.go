package engine

import (
	"errors"

	"github.com/crimson-sun/trendwatch/internal/engine/normalize"
)

// MissingColumnError reports a mandatory column role absent from the dataset.
type MissingColumnError = normalize.MissingColumnError

// Run-level failures. No partial result accompanies them.
var (
	ErrNoParsableDates = errors.New("no parsable dates in dataset")
	ErrNoValidCodes    = errors.New("no valid classification codes in dataset")
)
