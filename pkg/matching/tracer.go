package matching

import (
	"errors"
	"fmt"

	"scanstereo/internal/models"
)

// ErrInconsistentTrace signals that no transition reproduces a cell's cost.
// It can only happen if the matrix was corrupted or built with different
// inputs than the ones it is traced with.
var ErrInconsistentTrace = errors.New("cost matrix traceback is inconsistent")

// InconsistencyError records the cell at which traceback got stuck
type InconsistencyError struct {
	Row, Col int
	Cost     int
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v at cell [%d][%d] (cost %d)", ErrInconsistentTrace, e.Row, e.Col, e.Cost)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistentTrace
}

// TraceMode selects where traceback stops
type TraceMode int

const (
	// TraceCompat stops once row or column reaches 1, so the first pixel is
	// never traced and a row yields at most W-1 disparities
	TraceCompat TraceMode = iota

	// TraceFull continues down to row or column 0 and covers every pixel
	TraceFull
)

func (t TraceMode) String() string {
	switch t {
	case TraceCompat:
		return "compat"
	case TraceFull:
		return "full"
	default:
		return fmt.Sprintf("TraceMode(%d)", int(t))
	}
}

// Trace walks the matrix from [W][W] back towards the origin and returns
// the disparity sequence in left-to-right order, along with the extrema of
// the emitted values.
//
// Transitions are tried in a fixed order: a diagonal match, then a
// horizontal occlusion (the right pixel is unmatched, so it is emitted and
// the disparity grows), then a vertical occlusion (the left pixel is
// unmatched, so nothing is emitted and the disparity shrinks).
func (m *CostMatrix) Trace(mode TraceMode) (models.DisparityRow, models.Extrema, error) {
	floor := 1
	if mode == TraceFull {
		floor = 0
	}

	var ext models.Extrema
	out := make(models.DisparityRow, 0, m.width)
	row, col := m.width, m.width
	disparity := 0
	occ := m.Occlusion
	m.occlusions = 0

	for row > floor && col > floor {
		cost := m.At(row, col)
		switch {
		case cost-m.match(row, col) == m.At(row-1, col-1):
			out = append(out, disparity)
			ext = ext.Observe(disparity)
			row--
			col--
		case cost-occ == m.At(row-1, col):
			out = append(out, disparity)
			ext = ext.Observe(disparity)
			disparity++
			row--
			m.occlusions++
		case cost-occ == m.At(row, col-1):
			disparity--
			col--
			m.occlusions++
		default:
			return nil, models.Extrema{}, &InconsistencyError{Row: row, Col: col, Cost: cost}
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out, ext, nil
}

// Occlusions returns how many pixels of either scanline the most recent
// Trace left unmatched
func (m *CostMatrix) Occlusions() int {
	return m.occlusions
}
