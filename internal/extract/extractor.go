package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"takings/internal/core"
	"takings/internal/grid"
)

// ErrMalformedTemplate means the sheet does not follow the template well
// enough to attribute any record to a store.
var ErrMalformedTemplate = errors.New("malformed template")

// dateLayouts are tried in order against the trimmed date text. Single digit
// days, months and clock fields are accepted, as strptime does.
var dateLayouts = []string{
	"2006-1-2",
	"2006-1-2 15:4:5",
	"Monday, 2 January 2006",
}

// SkipReason explains why a data row produced no record.
type SkipReason string

const (
	SkipBlank     SkipReason = "blank"
	SkipWeekly    SkipReason = "weekly_subtotal"
	SkipBadAmount SkipReason = "invalid_amount"
	SkipBadDate   SkipReason = "invalid_date"
)

// IsError reports whether the skip reflects bad data rather than layout.
func (r SkipReason) IsError() bool {
	return r == SkipBadAmount || r == SkipBadDate
}

// RowOutcome is the per-row result of extraction. Exactly one of Record or
// Skip is meaningful, selected by OK.
type RowOutcome struct {
	Row    int // zero-based grid row
	OK     bool
	Record core.Taking
	Skip   SkipReason
	Err    error
}

// Result is everything extracted from one sheet.
type Result struct {
	StoreName string
	Records   []core.Taking
	Outcomes  []RowOutcome
}

// Skipped returns the outcomes that produced no record.
func (r Result) Skipped() []RowOutcome {
	var out []RowOutcome
	for _, o := range r.Outcomes {
		if !o.OK {
			out = append(out, o)
		}
	}
	return out
}

// ErrorCount is the number of rows dropped for unparseable data.
// Blank separators and weekly subtotals are not counted.
func (r Result) ErrorCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK && o.Skip.IsError() {
			n++
		}
	}
	return n
}

// Extractor reads takings out of template sheets. It holds no state
// between calls and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// New returns an Extractor logging row diagnostics at debug level to
// logger. A nil logger discards them.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{logger: logger}
}

// Extract resolves the store name and then every data row.
func (e *Extractor) Extract(g *grid.Grid) (Result, error) {
	name, err := ExtractStoreName(g)
	if err != nil {
		return Result{}, err
	}
	return e.ExtractRecords(g, name), nil
}

// ExtractStoreName reads the store name from its fixed cell.
func ExtractStoreName(g *grid.Grid) (string, error) {
	if g == nil || g.Rows() <= StoreNameRow || g.Cols() <= StoreNameCol {
		return "", fmt.Errorf("%w: sheet smaller than %d rows x %d columns", ErrMalformedTemplate, StoreNameRow+1, StoreNameCol+1)
	}
	cell := g.At(StoreNameRow, StoreNameCol)
	if cell.IsBlank() {
		return "", fmt.Errorf("%w: store name cell C%d is empty", ErrMalformedTemplate, StoreNameRow+1)
	}
	return strings.TrimSpace(cell.String()), nil
}

// ExtractRecords walks the data region and parses each row independently.
// A bad row never aborts the batch. Records keep sheet order and are not
// deduplicated.
func (e *Extractor) ExtractRecords(g *grid.Grid, storeName string) Result {
	res := Result{StoreName: storeName}
	for row := FirstDataRow; row < g.Rows(); row++ {
		out := parseRow(g, row, storeName)
		res.Outcomes = append(res.Outcomes, out)
		if out.OK {
			res.Records = append(res.Records, out.Record)
			continue
		}
		if out.Skip.IsError() {
			e.logger.Debug("Skipping takings row",
				"row", row+1,
				"reason", string(out.Skip),
				"error", out.Err)
		}
	}

	e.logger.Debug("Extracted takings",
		"store", storeName,
		"records", len(res.Records),
		"error_rows", res.ErrorCount())
	return res
}

func parseRow(g *grid.Grid, row int, storeName string) RowOutcome {
	dateCell := g.At(row, DateCol)
	amountCell := g.At(row, AmountCol)

	if dateCell.IsBlank() && amountCell.IsBlank() {
		return RowOutcome{Row: row, Skip: SkipBlank}
	}

	dateText := strings.TrimSpace(dateCell.String())
	if strings.Contains(strings.ToLower(dateText), weeklyMarker) {
		return RowOutcome{Row: row, Skip: SkipWeekly}
	}

	amount, err := parseAmount(amountCell)
	if err != nil {
		return RowOutcome{Row: row, Skip: SkipBadAmount, Err: err}
	}
	date, err := parseDate(dateText)
	if err != nil {
		return RowOutcome{Row: row, Skip: SkipBadDate, Err: err}
	}

	rec := core.Taking{
		Store:  storeName,
		Date:   date,
		Amount: core.RoundAmount(amount),
	}
	if _, err := core.AmountToCents(rec.Amount); err != nil {
		return RowOutcome{Row: row, Skip: SkipBadAmount, Err: err}
	}
	return RowOutcome{Row: row, OK: true, Record: rec}
}

func parseAmount(c grid.Cell) (decimal.Decimal, error) {
	switch c.Kind {
	case grid.Number:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", core.ErrInvalidAmount, c.Num)
		}
		return decimal.NewFromFloat(c.Num), nil
	case grid.Text:
		return core.ParseAmount(c.Text)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s cell", core.ErrInvalidAmount, c.Kind)
	}
}

func parseDate(s string) (core.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, fmt.Errorf("%w %q", core.ErrInvalidDate, s)
}
