// Package matching implements dynamic-programming correspondence between
// two scanlines of a rectified stereo pair.
//
// For scanlines of width W the cost matrix has (W+1)x(W+1) cells. Cell
// [row][col] holds the cheapest alignment of the first row pixels of the
// right scanline with the first col pixels of the left scanline, where a
// matched pair costs the absolute intensity difference and every pixel left
// unmatched costs a fixed occlusion penalty. Tracing the matrix back from
// its far corner yields the disparity of each traced pixel.
package matching

import (
	"errors"
	"fmt"
)

// DefaultOcclusionCost is the penalty for leaving a pixel unmatched
const DefaultOcclusionCost = 40

var (
	// ErrLengthMismatch is returned when the two scanlines differ in width
	ErrLengthMismatch = errors.New("scanlines differ in length")

	// ErrInvalidOcclusion is returned for a non-positive occlusion cost
	ErrInvalidOcclusion = errors.New("occlusion cost must be positive")
)

// CostMatrix is the dynamic-programming table for one pair of scanlines.
// The cells are kept in a single flat buffer with a row stride of W+1 so a
// matrix can be rebuilt for the next scanline without reallocating.
type CostMatrix struct {
	// Occlusion is the cost of leaving a single pixel unmatched
	Occlusion int

	width int
	cells []int

	// intensities of the scanlines the matrix was built from
	left  []int
	right []int

	// occlusion steps taken by the most recent Trace
	occlusions int
}

// NewCostMatrix creates an empty matrix using the given occlusion cost
func NewCostMatrix(occlusion int) *CostMatrix {
	return &CostMatrix{Occlusion: occlusion}
}

// BuildCostMatrix allocates a new matrix and fills it for left and right
func BuildCostMatrix(left, right []int, occlusion int) (*CostMatrix, error) {
	m := NewCostMatrix(occlusion)
	if err := m.Build(left, right); err != nil {
		return nil, err
	}
	return m, nil
}

// Build fills the matrix for a pair of equal-length intensity scanlines.
// The matrix keeps references to left and right until the next Build.
func (m *CostMatrix) Build(left, right []int) error {
	if len(left) != len(right) {
		return fmt.Errorf("%w: left %d, right %d", ErrLengthMismatch, len(left), len(right))
	}
	if m.Occlusion <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOcclusion, m.Occlusion)
	}

	w := len(left)
	stride := w + 1
	size := stride * stride
	if cap(m.cells) < size {
		m.cells = make([]int, size)
	}
	m.cells = m.cells[:size]
	m.width = w
	m.left = left
	m.right = right

	occ := m.Occlusion

	// Pure occlusion along the first row and column
	for k := 0; k <= w; k++ {
		m.cells[k] = k * occ
		m.cells[k*stride] = k * occ
	}

	for row := 1; row <= w; row++ {
		cur := row * stride
		prev := cur - stride
		for col := 1; col <= w; col++ {
			best := m.match(row, col) + m.cells[prev+col-1]
			if c := occ + m.cells[prev+col]; c < best {
				best = c
			}
			if c := occ + m.cells[cur+col-1]; c < best {
				best = c
			}
			m.cells[cur+col] = best
		}
	}

	return nil
}

// Width returns the scanline width W the matrix was last built for
func (m *CostMatrix) Width() int {
	return m.width
}

// At returns cell [row][col], both in [0, W]
func (m *CostMatrix) At(row, col int) int {
	return m.cells[row*(m.width+1)+col]
}

// match is the cost of pairing right pixel row-1 with left pixel col-1
func (m *CostMatrix) match(row, col int) int {
	d := m.right[row-1] - m.left[col-1]
	if d < 0 {
		return -d
	}
	return d
}
