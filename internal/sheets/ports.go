package sheets

import (
	"context"
	"errors"

	"takings/internal/core"
	"takings/internal/grid"
)

// ErrSheetUnreadable marks a read the spreadsheet side rejected: an
// unknown spreadsheet, a bad range or missing access. Retrying the same
// request will not help.
var ErrSheetUnreadable = errors.New("sheet not readable")

// Ports for outbound spreadsheet adapters.
type (
	// TakingsWriter mirrors stored takings to a spreadsheet.
	TakingsWriter interface {
		AppendTakings(ctx context.Context, takings []core.Taking) error
	}

	// GridReader loads a hosted sheet as a cell grid so the same template
	// extraction applies to it.
	GridReader interface {
		ReadGrid(ctx context.Context, spreadsheetID, readRange string) (*grid.Grid, error)
	}
)
