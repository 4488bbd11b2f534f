package models

// Pixel is a single RGB sample with 8-bit channels
type Pixel [3]uint8

// Scanline is one horizontal row of pixels
type Scanline []Pixel

// Grid represents a decoded image as a row-major pixel buffer
type Grid struct {
	// Width is the number of pixels per scanline
	Width int

	// Height is the number of scanlines
	Height int

	// Pixels holds Width*Height samples in row-major order
	Pixels []Pixel
}

// NewGrid allocates a zeroed grid of the given dimensions
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Pixels: make([]Pixel, width*height),
	}
}

// Row returns scanline y. The returned slice shares memory with the grid.
func (g *Grid) Row(y int) Scanline {
	start := y * g.Width
	return Scanline(g.Pixels[start : start+g.Width])
}

// Set stores p at column x of scanline y
func (g *Grid) Set(x, y int, p Pixel) {
	g.Pixels[y*g.Width+x] = p
}

// SameSize reports whether two grids have identical dimensions
func (g *Grid) SameSize(other *Grid) bool {
	return g.Width == other.Width && g.Height == other.Height
}

// DisparityRow is the traced disparity sequence of one scanline,
// in left-to-right pixel order
type DisparityRow []int

// DisparityMap collects the disparity sequences of every scanline of an
// image pair, indexed by row
type DisparityMap struct {
	// Width and Height are the dimensions of the source images
	Width, Height int

	// Rows holds one sequence per scanline; Rows[y] belongs to row y
	Rows []DisparityRow

	// Occlusions[y] is the number of pixels of either image that row y
	// left unmatched
	Occlusions []int
}

// NewDisparityMap creates an empty map with one slot per scanline
func NewDisparityMap(width, height int) *DisparityMap {
	return &DisparityMap{
		Width:      width,
		Height:     height,
		Rows:       make([]DisparityRow, height),
		Occlusions: make([]int, height),
	}
}

// Count returns the total number of traced disparities across all rows
func (m *DisparityMap) Count() int {
	n := 0
	for _, row := range m.Rows {
		n += len(row)
	}
	return n
}

// TotalOcclusions returns the number of unmatched pixels across all rows
func (m *DisparityMap) TotalOcclusions() int {
	n := 0
	for _, o := range m.Occlusions {
		n += o
	}
	return n
}

// Extrema tracks the smallest and largest disparity observed.
// The zero value has seen nothing.
type Extrema struct {
	Min, Max int

	// Valid is false until at least one disparity has been observed
	Valid bool
}

// Observe returns e widened to include d
func (e Extrema) Observe(d int) Extrema {
	if !e.Valid {
		return Extrema{Min: d, Max: d, Valid: true}
	}
	if d < e.Min {
		e.Min = d
	}
	if d > e.Max {
		e.Max = d
	}
	return e
}

// Merge returns the union of two extrema
func (e Extrema) Merge(other Extrema) Extrema {
	if !other.Valid {
		return e
	}
	if !e.Valid {
		return other
	}
	return e.Observe(other.Min).Observe(other.Max)
}

// Range returns Max-Min, or 0 when nothing has been observed
func (e Extrema) Range() int {
	if !e.Valid {
		return 0
	}
	return e.Max - e.Min
}
