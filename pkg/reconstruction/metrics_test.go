package reconstruction

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"scanstereo/internal/models"
)

func TestComputeMetrics(t *testing.T) {
	m := models.NewDisparityMap(4, 2)
	m.Rows[0] = models.DisparityRow{0, 0, 2}
	m.Rows[1] = models.DisparityRow{-1, 0, 3}
	m.Occlusions = []int{1, 3}

	ext := models.Extrema{Min: -1, Max: 3, Valid: true}
	metrics := ComputeMetrics(m, ext)

	if metrics.Traced != 6 {
		t.Errorf("Expected 6 traced disparities, got %d", metrics.Traced)
	}
	if math.Abs(metrics.Coverage-0.75) > 1e-9 {
		t.Errorf("Expected coverage 0.75, got %f", metrics.Coverage)
	}
	if math.Abs(metrics.Mean-4.0/6.0) > 1e-9 {
		t.Errorf("Expected mean %f, got %f", 4.0/6.0, metrics.Mean)
	}
	if metrics.StdDev <= 0 {
		t.Errorf("Expected a positive standard deviation, got %f", metrics.StdDev)
	}
	if metrics.Median != 0 {
		t.Errorf("Expected median 0, got %f", metrics.Median)
	}
	if metrics.Discontinuities != 3 {
		t.Errorf("Expected 3 discontinuities, got %d", metrics.Discontinuities)
	}
	if metrics.Min != -1 || metrics.Max != 3 {
		t.Errorf("Expected extrema -1..3, got %d..%d", metrics.Min, metrics.Max)
	}
	if metrics.Occlusions != 4 {
		t.Errorf("Expected 4 occlusions, got %d", metrics.Occlusions)
	}
	// 4 unmatched pixels out of 2*4*2
	if math.Abs(metrics.OcclusionRatio-0.25) > 1e-9 {
		t.Errorf("Expected occlusion ratio 0.25, got %f", metrics.OcclusionRatio)
	}
	if math.Abs(metrics.MinRowCoverage-0.75) > 1e-9 {
		t.Errorf("Expected minimum row coverage 0.75, got %f", metrics.MinRowCoverage)
	}
}

// TestComputeMetricsRowCoverage checks that a single short row shows up in
// the per-row figure even when overall coverage is high
func TestComputeMetricsRowCoverage(t *testing.T) {
	m := models.NewDisparityMap(4, 3)
	m.Rows[0] = models.DisparityRow{0, 0, 0, 0}
	m.Rows[1] = models.DisparityRow{1}
	m.Rows[2] = models.DisparityRow{0, 0, 0, 0}

	metrics := ComputeMetrics(m, models.Extrema{Min: 0, Max: 1, Valid: true})
	if math.Abs(metrics.Coverage-0.75) > 1e-9 {
		t.Errorf("Expected coverage 0.75, got %f", metrics.Coverage)
	}
	if math.Abs(metrics.MinRowCoverage-0.25) > 1e-9 {
		t.Errorf("Expected minimum row coverage 0.25, got %f", metrics.MinRowCoverage)
	}
	if metrics.Occlusions != 0 || metrics.OcclusionRatio != 0 {
		t.Errorf("Expected no occlusions, got %d (%f)", metrics.Occlusions, metrics.OcclusionRatio)
	}
}

func TestComputeMetricsEmpty(t *testing.T) {
	metrics := ComputeMetrics(models.NewDisparityMap(1, 1), models.Extrema{})
	if metrics.Traced != 0 || metrics.Coverage != 0 {
		t.Errorf("Expected empty metrics, got %+v", metrics)
	}
	if math.IsNaN(metrics.Mean) || math.IsNaN(metrics.StdDev) {
		t.Errorf("Metrics should not contain NaN: %+v", metrics)
	}
}

func TestComputeMetricsSingleValue(t *testing.T) {
	m := models.NewDisparityMap(2, 1)
	m.Rows[0] = models.DisparityRow{4}

	metrics := ComputeMetrics(m, models.Extrema{Min: 4, Max: 4, Valid: true})
	if metrics.Mean != 4 || metrics.StdDev != 0 || metrics.Median != 4 {
		t.Errorf("Unexpected metrics for a single value: %+v", metrics)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	params := &Params{
		LeftPath:      "left.png",
		RightPath:     "right.png",
		OutputFile:    "depth.png",
		OcclusionCost: 40,
		FullCoverage:  true,
	}
	metrics := Metrics{Width: 3, Height: 2, Traced: 4, Min: -1, Max: 2}

	if err := WriteReport(path, params, metrics); err != nil {
		t.Fatalf("Failed to write report: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}

	var doc report
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Report is not valid YAML: %v", err)
	}
	if doc.TraceMode != "full" {
		t.Errorf("Expected trace mode full, got %q", doc.TraceMode)
	}
	if doc.Metrics.Traced != 4 || doc.Metrics.Min != -1 {
		t.Errorf("Unexpected metrics in report: %+v", doc.Metrics)
	}
}
