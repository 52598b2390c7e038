// Package grid provides a typed, read-only view over spreadsheet contents.
//
// Readers for the supported formats (xlsx via excelize, legacy xls, csv)
// all produce the same Grid of Cells so that downstream extraction never
// has to care about where a value came from.
package grid

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which variant of the Cell union is populated.
type Kind int

const (
	Empty Kind = iota
	Text
	Number
	Date
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Date:
		return "date"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet value. Only the field matching Kind is set.
type Cell struct {
	Kind Kind
	Text string
	Num  float64
	Time time.Time
}

// TextCell, NumberCell and DateCell build populated cells.
func TextCell(s string) Cell { return Cell{Kind: Text, Text: s} }
func NumberCell(f float64) Cell { return Cell{Kind: Number, Num: f} }
func DateCell(t time.Time) Cell { return Cell{Kind: Date, Time: t} }

// IsBlank reports whether the cell is empty or holds only whitespace.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case Empty:
		return true
	case Text:
		return strings.TrimSpace(c.Text) == ""
	default:
		return false
	}
}

// String renders the cell the way a dataframe stringifies it: numbers
// without trailing zeros and dates as "YYYY-MM-DD HH:MM:SS".
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case Date:
		return c.Time.Format(time.DateTime)
	default:
		return ""
	}
}

// inferCell types a raw textual value: numbers become Number cells,
// blanks become Empty, everything else stays Text.
func inferCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Cell{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return NumberCell(f)
	}
	return TextCell(raw)
}
