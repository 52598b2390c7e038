package grid

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX loads the first sheet of an OOXML workbook. Values are read raw
// so numeric cells keep full precision; numbers carrying a date number
// format are converted to Date cells.
func readXLSX(data []byte) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	styles := map[int]bool{}
	cells := make([][]Cell, len(rows))
	for r, row := range rows {
		cells[r] = make([]Cell, len(row))
		for c, raw := range row {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cells[r][c] = xlsxCell(f, sheet, name, raw, date1904, styles)
		}
	}
	return New(cells), nil
}

func xlsxCell(f *excelize.File, sheet, name, raw string, date1904 bool, styles map[int]bool) Cell {
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return inferCell(raw)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool, excelize.CellTypeError:
		return TextCell(raw)
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return TextCell(raw)
	}

	styleID, err := f.GetCellStyle(sheet, name)
	if err != nil {
		return NumberCell(num)
	}
	isDate, seen := styles[styleID]
	if !seen {
		isDate = isDateStyle(f, styleID)
		styles[styleID] = isDate
	}
	if !isDate && typ != excelize.CellTypeDate {
		return NumberCell(num)
	}
	t, err := excelize.ExcelDateToTime(num, date1904)
	if err != nil {
		return NumberCell(num)
	}
	return DateCell(t)
}

func isDateStyle(f *excelize.File, styleID int) bool {
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateNumFmt(*style.CustomNumFmt)
	}
	return isBuiltinDateNumFmt(style.NumFmt)
}

// isBuiltinDateNumFmt reports whether a built-in number format id renders
// a date or date-time, including the East Asian locale ranges.
func isBuiltinDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	case id >= 71 && id <= 81:
		return true
	}
	return false
}

// isDateNumFmt inspects a custom format code for date tokens, ignoring
// quoted literals and bracketed sections such as colours or locales.
func isDateNumFmt(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "general" {
		return false
	}
	return strings.ContainsAny(s, "yd")
}
