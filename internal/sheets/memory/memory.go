// Package memory provides in-process sheet adapters for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"takings/internal/core"
	"takings/internal/grid"
	ports "takings/internal/sheets"
)

// Store keeps mirrored takings rows and serves registered grids.
type Store struct {
	mu    sync.Mutex
	rows  []core.Taking
	grids map[string]*grid.Grid
}

func New() *Store {
	return &Store{grids: make(map[string]*grid.Grid)}
}

// AppendTakings records the rows in arrival order.
func (s *Store) AppendTakings(_ context.Context, takings []core.Taking) error {
	for _, t := range takings {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("taking %s: %w", t.Date, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, takings...)
	return nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Taking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Taking(nil), s.rows...)
}

// PutGrid registers g under (spreadsheetID, readRange).
func (s *Store) PutGrid(spreadsheetID, readRange string, g *grid.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[spreadsheetID+"|"+readRange] = g
}

func (s *Store) ReadGrid(_ context.Context, spreadsheetID, readRange string) (*grid.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grids[spreadsheetID+"|"+readRange]
	if !ok {
		return nil, fmt.Errorf("%w: no sheet %s range %s", ports.ErrSheetUnreadable, spreadsheetID, readRange)
	}
	return g, nil
}
