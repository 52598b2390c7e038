// Package extract turns a daily takings spreadsheet into store-attributed
// records.
//
// The layout is a fixed template agreed with the stores' back office:
//
//	C5          store name
//	A11:A…      day (text or date cell)
//	C11:C…      takings for that day
//
// Positions are trusted, never searched for. Weekly subtotal rows are
// interleaved with daily rows and are dropped by label.
package extract

// Template cell positions, zero based.
const (
	StoreNameRow = 4
	StoreNameCol = 2

	FirstDataRow = 10
	DateCol      = 0
	AmountCol    = 2
)

// weeklyMarker labels subtotal rows in the date column (case-insensitive).
const weeklyMarker = "weekly"
