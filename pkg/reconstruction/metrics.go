package reconstruction

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"scanstereo/internal/models"
)

// Metrics summarizes the disparities of one image pair
type Metrics struct {
	// Width and Height are the image dimensions
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Traced is the number of disparities produced across all rows
	Traced int `yaml:"traced"`

	// Coverage is Traced divided by the number of pixels
	Coverage float64 `yaml:"coverage"`

	// MinRowCoverage is the smallest fraction of a single scanline that was traced
	MinRowCoverage float64 `yaml:"minRowCoverage"`

	// Occlusions counts pixels of either image left unmatched by traceback,
	// and OcclusionRatio divides it by the pixel count of both images
	Occlusions     int     `yaml:"occlusions"`
	OcclusionRatio float64 `yaml:"occlusionRatio"`

	// Min and Max are the global extrema used for normalization
	Min int `yaml:"min"`
	Max int `yaml:"max"`

	// Mean, StdDev and Median describe the disparity distribution
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
	Median float64 `yaml:"median"`

	// Discontinuities counts neighbouring traced pixels whose disparity differs
	Discontinuities int `yaml:"discontinuities"`
}

// ComputeMetrics derives summary statistics from a disparity map
func ComputeMetrics(m *models.DisparityMap, ext models.Extrema) Metrics {
	metrics := Metrics{
		Width:  m.Width,
		Height: m.Height,
		Min:    ext.Min,
		Max:    ext.Max,
	}

	values := make([]float64, 0, m.Count())
	for _, row := range m.Rows {
		for i, d := range row {
			values = append(values, float64(d))
			if i > 0 && row[i-1] != d {
				metrics.Discontinuities++
			}
		}
	}

	metrics.Traced = len(values)
	metrics.Occlusions = m.TotalOcclusions()
	if pixels := m.Width * m.Height; pixels > 0 {
		metrics.Coverage = float64(metrics.Traced) / float64(pixels)
		metrics.OcclusionRatio = float64(metrics.Occlusions) / float64(2*pixels)
	}
	if m.Width > 0 && len(m.Rows) > 0 {
		rowCoverage := make([]float64, len(m.Rows))
		for y, row := range m.Rows {
			rowCoverage[y] = float64(len(row)) / float64(m.Width)
		}
		metrics.MinRowCoverage = floats.Min(rowCoverage)
	}
	if len(values) == 0 {
		return metrics
	}

	if len(values) > 1 {
		metrics.Mean, metrics.StdDev = stat.MeanStdDev(values, nil)
	} else {
		metrics.Mean = values[0]
	}
	sort.Float64s(values)
	metrics.Median = stat.Quantile(0.5, stat.Empirical, values, nil)

	return metrics
}

// report is the document written by WriteReport
type report struct {
	Left          string  `yaml:"left"`
	Right         string  `yaml:"right"`
	Output        string  `yaml:"output"`
	OcclusionCost int     `yaml:"occlusionCost"`
	TraceMode     string  `yaml:"traceMode"`
	Metrics       Metrics `yaml:"metrics"`
}

// WriteReport saves the run parameters and metrics as YAML
func WriteReport(path string, params *Params, metrics Metrics) error {
	doc := report{
		Left:          params.LeftPath,
		Right:         params.RightPath,
		Output:        params.OutputFile,
		OcclusionCost: params.OcclusionCost,
		TraceMode:     params.traceMode().String(),
		Metrics:       metrics,
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
