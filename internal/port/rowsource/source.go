// Package rowsource defines the port interface for fetching raw rows from a
// remote tabular data source.
package rowsource

import (
	"context"
	"errors"
	"strings"

	"github.com/bandungair/udara/internal/domain/reading"
)

// Source fetches all data rows of one worksheet within a spreadsheet.
// Row order and header casing must be preserved.
type Source interface {
	Fetch(ctx context.Context, spreadsheetID, worksheet string) ([]reading.Record, error)
}

// RateLimitError marks an upstream throttling failure. It is the only error
// kind for which the cache may serve stale data.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err represents upstream throttling. Besides
// the typed error, the error text is matched for "429" or "Quota exceeded",
// which is how the sheets API surfaces throttling.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Quota exceeded")
}
