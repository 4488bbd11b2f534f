package matching

import "scanstereo/internal/models"

// Matcher runs build and traceback for successive scanline pairs, reusing
// its matrix and intensity buffers between calls. A Matcher is not safe for
// concurrent use.
type Matcher struct {
	mode   TraceMode
	matrix *CostMatrix

	leftBuf  []int
	rightBuf []int
}

// NewMatcher creates a matcher with the given occlusion cost and trace mode
func NewMatcher(occlusion int, mode TraceMode) *Matcher {
	return &Matcher{
		mode:   mode,
		matrix: NewCostMatrix(occlusion),
	}
}

// Match returns the disparity sequence of one scanline pair and the
// extrema of its values
func (m *Matcher) Match(left, right models.Scanline) (models.DisparityRow, models.Extrema, error) {
	m.leftBuf = ReduceScanline(m.leftBuf, left)
	m.rightBuf = ReduceScanline(m.rightBuf, right)

	if err := m.matrix.Build(m.leftBuf, m.rightBuf); err != nil {
		return nil, models.Extrema{}, err
	}
	return m.matrix.Trace(m.mode)
}

// Matrix exposes the matrix built by the most recent Match
func (m *Matcher) Matrix() *CostMatrix {
	return m.matrix
}
