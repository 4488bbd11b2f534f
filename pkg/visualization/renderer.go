package visualization

import (
	"image"
	"image/color"

	"scanstereo/internal/models"
	"scanstereo/pkg/matching"
)

// DefaultFlatLevel is the gray level of a depth map with a single disparity
const DefaultFlatLevel = 128

// Renderer turns a disparity map into a grayscale depth image using global
// min-max normalization
type Renderer struct {
	// FlatLevel is written everywhere when all disparities are equal, since
	// there is no range to normalize against
	FlatLevel uint8

	// Background is written at positions a row did not trace
	Background uint8
}

// NewRenderer creates a renderer with a mid-gray flat level and black background
func NewRenderer() *Renderer {
	return &Renderer{
		FlatLevel:  DefaultFlatLevel,
		Background: 0,
	}
}

// Degenerate reports whether ext has no usable range
func (r *Renderer) Degenerate(ext models.Extrema) bool {
	return !ext.Valid || ext.Max == ext.Min
}

// Intensity maps a disparity to a gray level. The scale is 256/(max-min),
// so the maximum disparity lands on 256 and is clamped to 255.
func (r *Renderer) Intensity(d int, ext models.Extrema) uint8 {
	if r.Degenerate(ext) {
		return r.FlatLevel
	}

	v := (d - ext.Min) * 256 / (ext.Max - ext.Min)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Render writes one gray pixel per traced disparity. Row y of the map fills
// image row y from the left edge; the rest of the row gets the background.
func (r *Renderer) Render(m *models.DisparityMap, ext models.Extrema) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))

	if r.Degenerate(ext) {
		for i := range img.Pix {
			img.Pix[i] = r.FlatLevel
		}
		return img
	}

	for y := 0; y < m.Height; y++ {
		var row models.DisparityRow
		if y < len(m.Rows) {
			row = m.Rows[y]
		}
		for x := 0; x < m.Width; x++ {
			value := r.Background
			if x < len(row) {
				value = r.Intensity(row[x], ext)
			}
			img.SetGray(x, y, color.Gray{Y: value})
		}
	}

	return img
}

// GrayscaleImage renders the intensities the matcher sees for a grid
func GrayscaleImage(grid *models.Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x, p := range grid.Row(y) {
			img.SetGray(x, y, color.Gray{Y: uint8(matching.Grayscale(p))})
		}
	}
	return img
}

// HeightField returns the depth image as values in [0, 1], row-major
func HeightField(img *image.Gray) []float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	result := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			result[y*width+x] = float64(img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / 255.0
		}
	}

	return result
}
