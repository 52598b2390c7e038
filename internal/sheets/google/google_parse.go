package google

import (
	"fmt"
	"strconv"
	"strings"

	"takings/internal/core"
	"takings/internal/grid"
)

// valuesToGrid converts a Sheets API values matrix into cells. JSON numbers
// become Number cells and everything else is text.
func valuesToGrid(values [][]interface{}) *grid.Grid {
	rows := make([][]grid.Cell, len(values))
	for i, row := range values {
		cells := make([]grid.Cell, len(row))
		for j, v := range row {
			cells[j] = toCell(v)
		}
		rows[i] = cells
	}
	return grid.New(rows)
}

func toCell(v interface{}) grid.Cell {
	switch x := v.(type) {
	case nil:
		return grid.Cell{}
	case float64:
		return grid.NumberCell(x)
	case string:
		if strings.TrimSpace(x) == "" {
			return grid.Cell{}
		}
		return grid.TextCell(x)
	case bool:
		return grid.TextCell(strings.ToUpper(strconv.FormatBool(x)))
	default:
		return grid.TextCell(fmt.Sprint(x))
	}
}

func takingsToValues(takings []core.Taking) [][]interface{} {
	out := make([][]interface{}, len(takings))
	for i, t := range takings {
		out[i] = []interface{}{t.Date.String(), t.Store, t.Amount.StringFixed(core.AmountPlaces)}
	}
	return out
}
