package grid

// Grid is a rectangular, zero-indexed view of one worksheet.
// Rows may be ragged internally; At pads missing cells with Empty.
type Grid struct {
	rows [][]Cell
	cols int
}

// New builds a Grid from rows of cells. The slices are copied so later
// mutation by the caller does not leak into the grid.
func New(rows [][]Cell) *Grid {
	g := &Grid{rows: make([][]Cell, len(rows))}
	for i, row := range rows {
		g.rows[i] = append([]Cell(nil), row...)
		if len(row) > g.cols {
			g.cols = len(row)
		}
	}
	return g
}

// FromStrings builds a Grid from raw strings, inferring numeric cells.
func FromStrings(rows [][]string) *Grid {
	cells := make([][]Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]Cell, len(row))
		for j, v := range row {
			cells[i][j] = inferCell(v)
		}
	}
	return New(cells)
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return len(g.rows) }

// Cols returns the width of the widest row.
func (g *Grid) Cols() int { return g.cols }

// At returns the cell at (row, col), or an Empty cell when out of bounds.
func (g *Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g.rows) || col < 0 || col >= len(g.rows[row]) {
		return Cell{}
	}
	return g.rows[row][col]
}
