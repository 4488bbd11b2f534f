// Package imageio decodes and encodes raster images and converts them to
// and from the pixel grids used by the matcher.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"scanstereo/internal/models"
)

// ErrUnsupportedFormat is returned when an output extension has no encoder
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Load decodes an image file in any registered format
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// LoadGrid decodes an image file straight into a pixel grid
func LoadGrid(path string) (*models.Grid, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ToGrid(img), nil
}

// ToGrid copies an image into a row-major RGB grid. Color channels are
// taken unpremultiplied and alpha is dropped.
func ToGrid(img image.Image) *models.Grid {
	bounds := img.Bounds()
	grid := models.NewGrid(bounds.Dx(), bounds.Dy())

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			grid.Set(x, y, models.Pixel{c.R, c.G, c.B})
		}
	}

	return grid
}

// FormatFor returns the encoder name for a file path based on its extension
func FormatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	case ".bmp":
		return "bmp", nil
	case ".tif", ".tiff":
		return "tiff", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Encode writes img to w using the named format
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Save encodes img to path, choosing the format from the file extension.
// Parent directories are created as needed.
func Save(path string, img image.Image) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := Encode(file, img, format); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return file.Close()
}
