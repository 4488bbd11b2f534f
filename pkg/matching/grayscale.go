package matching

import "scanstereo/internal/models"

// Grayscale reduces an RGB pixel to a single intensity by averaging its
// channels with truncating integer division. The result does not depend on
// channel order.
func Grayscale(p models.Pixel) int {
	return (int(p[0]) + int(p[1]) + int(p[2])) / 3
}

// ReduceScanline converts a scanline to intensities, reusing dst when it has
// enough capacity
func ReduceScanline(dst []int, line models.Scanline) []int {
	if cap(dst) < len(line) {
		dst = make([]int, len(line))
	}
	dst = dst[:len(line)]
	for i, p := range line {
		dst[i] = Grayscale(p)
	}
	return dst
}
