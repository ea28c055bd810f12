// Package sheets defines the spreadsheet ports used to pull statement rows.
package sheets

import (
	"context"
	"errors"
)

// ErrRangeNotFound is returned when a reader has no data for the requested range.
var ErrRangeNotFound = errors.New("range not found")

type (
	// StatementReader returns the raw cell values of a statement range in A1 notation.
	// An empty range selects the reader's default. The first row is the header.
	StatementReader interface {
		ReadStatement(ctx context.Context, rangeA1 string) ([][]interface{}, error)
	}
)
