package model

import "time"

// Record is one reported incident after field normalization. Resolution
// fills Entity and Resolved; nothing else changes after normalization.
type Record struct {
	Index        int               // zero-based source row
	Fields       map[string]string // raw cells keyed by column name
	Date         time.Time         // zero when the date could not be parsed
	Codes        []string          // trimmed, upper-cased classification codes
	Manufacturer string            // raw manufacturer value

	Entity   string         // canonical manufacturer name
	Resolved []ResolvedCode // parallel to Codes
}

// HasDate reports whether the record carries a parsed calendar date.
func (r *Record) HasDate() bool {
	return !r.Date.IsZero()
}
