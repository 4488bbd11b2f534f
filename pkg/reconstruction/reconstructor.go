// Package reconstruction recovers a depth map from a rectified stereo pair.
//
// The pipeline consists of several steps:
// 1. Loading both images and checking that their dimensions agree
// 2. Matching every scanline pair with dynamic programming
// 3. Normalizing the disparities into a grayscale depth map
// 4. Calculating disparity metrics and writing optional extras
package reconstruction

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"scanstereo/internal/models"
	"scanstereo/pkg/imageio"
	"scanstereo/pkg/matching"
	"scanstereo/pkg/stl"
	"scanstereo/pkg/visualization"
)

// Params holds the reconstruction parameters
type Params struct {
	// LeftPath and RightPath are the rectified input images
	LeftPath  string
	RightPath string

	// OutputFile is where the depth map is written; the extension selects the format
	OutputFile string

	// OcclusionCost is the penalty for leaving a pixel unmatched
	OcclusionCost int

	// FullCoverage also traces the first pixel of every scanline
	FullCoverage bool

	// NumWorkers is how many scanlines are matched concurrently
	NumWorkers int

	// FlatLevel and Background configure the depth map renderer
	FlatLevel  uint8
	Background uint8

	// SaveIntermediaryResults determines whether to save intermediary processing results.
	SaveIntermediaryResults bool

	// IntermediaryDir is the directory where intermediary results will be saved.
	// Only used when SaveIntermediaryResults is true.
	IntermediaryDir string

	// ReportFile, when set, receives a YAML metrics report
	ReportFile string

	// STLFile, when set, receives the depth map as a relief mesh whose
	// white pixels are STLScale units high
	STLFile  string
	STLScale float64
}

func (p *Params) traceMode() matching.TraceMode {
	if p.FullCoverage {
		return matching.TraceFull
	}
	return matching.TraceCompat
}

// Reconstructor runs the stereo pipeline for one image pair
type Reconstructor struct {
	params *Params
	logger *logrus.Logger

	left  *models.Grid
	right *models.Grid

	disparities *models.DisparityMap
	extrema     models.Extrema
	depth       *image.Gray

	metrics Metrics
}

// NewReconstructor creates a new reconstructor instance with the provided
// parameters. A zero occlusion cost is replaced by the default, so later
// stages and the report see the cost that is actually used.
func NewReconstructor(params *Params, logger *logrus.Logger) *Reconstructor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if params.OcclusionCost == 0 {
		params.OcclusionCost = matching.DefaultOcclusionCost
	}
	return &Reconstructor{
		params: params,
		logger: logger,
	}
}

// Process runs the complete pipeline. Nothing is written if the inputs
// fail to load or differ in size.
func (r *Reconstructor) Process(ctx context.Context) error {
	r.logger.Info("Step 1: Loading stereo pair...")
	if err := r.loadImages(); err != nil {
		return err
	}

	if r.params.SaveIntermediaryResults {
		r.saveIntermediaryResult("01_grayscale", "left.png", visualization.GrayscaleImage(r.left))
		r.saveIntermediaryResult("01_grayscale", "right.png", visualization.GrayscaleImage(r.right))
	}

	r.logger.Info("Step 2: Matching scanlines...")
	if err := r.matchScanlines(ctx); err != nil {
		return err
	}

	r.logger.Info("Step 3: Rendering depth map...")
	if err := r.renderDepthMap(); err != nil {
		return err
	}

	r.logger.Info("Step 4: Calculating disparity metrics...")
	r.metrics = ComputeMetrics(r.disparities, r.extrema)

	if r.params.ReportFile != "" {
		if err := WriteReport(r.params.ReportFile, r.params, r.metrics); err != nil {
			return err
		}
		r.logger.WithField("path", r.params.ReportFile).Info("Report written")
	}

	if r.params.STLFile != "" {
		if err := r.exportRelief(); err != nil {
			return err
		}
	}

	return nil
}

// loadImages decodes both inputs and rejects pairs of different sizes
func (r *Reconstructor) loadImages() error {
	left, err := imageio.LoadGrid(r.params.LeftPath)
	if err != nil {
		return fmt.Errorf("failed to load left image: %w", err)
	}
	right, err := imageio.LoadGrid(r.params.RightPath)
	if err != nil {
		return fmt.Errorf("failed to load right image: %w", err)
	}

	if !left.SameSize(right) {
		return fmt.Errorf("%w: left %dx%d, right %dx%d",
			ErrDimensionMismatch, left.Width, left.Height, right.Width, right.Height)
	}

	r.left = left
	r.right = right

	r.logger.WithFields(logrus.Fields{
		"width":  left.Width,
		"height": left.Height,
	}).Info("Loaded stereo pair")
	return nil
}

func (r *Reconstructor) matchScanlines(ctx context.Context) error {
	opts := AggregateOptions{
		OcclusionCost: r.params.OcclusionCost,
		Mode:          r.params.traceMode(),
		Workers:       r.params.NumWorkers,
		Progress:      r.progressLogger(),
	}

	r.logger.WithFields(logrus.Fields{
		"occlusion_cost": opts.OcclusionCost,
		"trace_mode":     opts.Mode.String(),
		"workers":        opts.Workers,
	}).Debug("Matching parameters")

	disparities, extrema, err := Aggregate(ctx, r.left, r.right, opts)
	if err != nil {
		return fmt.Errorf("failed to match scanlines: %w", err)
	}

	r.disparities = disparities
	r.extrema = extrema
	return nil
}

// progressLogger reports completion in steps of ten percent
func (r *Reconstructor) progressLogger() Observer {
	lastDecile := -1
	return func(done, total int) {
		decile := done * 10 / total
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		r.logger.Infof("%d%% Completed", decile*10)
	}
}

func (r *Reconstructor) renderDepthMap() error {
	renderer := &visualization.Renderer{
		FlatLevel:  r.params.FlatLevel,
		Background: r.params.Background,
	}

	if renderer.Degenerate(r.extrema) {
		r.logger.WithFields(logrus.Fields{
			"min":   r.extrema.Min,
			"max":   r.extrema.Max,
			"level": renderer.FlatLevel,
		}).Warn("Disparity range is empty, writing a flat depth map")
	}

	r.depth = renderer.Render(r.disparities, r.extrema)

	if r.params.SaveIntermediaryResults {
		r.saveIntermediaryResult("02_depth_map", "depth.png", r.depth)
	}

	if err := imageio.Save(r.params.OutputFile, r.depth); err != nil {
		return fmt.Errorf("failed to save depth map: %w", err)
	}
	r.logger.WithField("path", r.params.OutputFile).Info("Depth map written")
	return nil
}

func (r *Reconstructor) exportRelief() error {
	bounds := r.depth.Bounds()
	relief := stl.NewRelief(visualization.HeightField(r.depth), bounds.Dx(), bounds.Dy())
	relief.SetScale(1, 1, float32(r.params.STLScale))

	triangles := relief.GenerateTriangles()
	if err := stl.SaveBinary(r.params.STLFile, triangles); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"path":      r.params.STLFile,
		"triangles": len(triangles),
	}).Info("Relief mesh written")
	return nil
}

// saveIntermediaryResult writes an image under the intermediary directory.
// Failures are logged and do not stop the pipeline.
func (r *Reconstructor) saveIntermediaryResult(stage, name string, img image.Image) {
	path := filepath.Join(r.params.IntermediaryDir, stage, name)
	if err := imageio.Save(path, img); err != nil {
		r.logger.WithError(err).WithField("stage", stage).Warn("Failed to save intermediary result")
	}
}

// GetMetrics returns the metrics of the last run
func (r *Reconstructor) GetMetrics() Metrics {
	return r.metrics
}

// GetDisparities returns the disparity map and its extrema
func (r *Reconstructor) GetDisparities() (*models.DisparityMap, models.Extrema) {
	return r.disparities, r.extrema
}

// GetDepthMap returns the rendered depth image
func (r *Reconstructor) GetDepthMap() *image.Gray {
	return r.depth
}
