package msglog

import "context"

// Table is the tabular store the log is written to. Ranges are A1 notation
// relative to the log's tab. Cell values are strings.
type Table interface {
	// ReadRange returns the rows of a range; trailing empty cells and rows
	// may be omitted.
	ReadRange(ctx context.Context, a1 string) ([][]string, error)
	// Append inserts row after the last non-empty row.
	Append(ctx context.Context, row []string) error
	// UpdateRange overwrites the cells of an explicit range.
	UpdateRange(ctx context.Context, a1 string, row []string) error
	// EnsureTab creates the tab if it is missing and writes the header row.
	EnsureTab(ctx context.Context) error
}
