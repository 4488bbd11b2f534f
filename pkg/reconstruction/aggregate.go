package reconstruction

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"scanstereo/internal/models"
	"scanstereo/pkg/matching"
)

// ErrDimensionMismatch is returned when the two images differ in size
var ErrDimensionMismatch = errors.New("images have incompatible sizes")

// Observer is notified after each scanline finishes. Calls are serialized
// and done increases by one on every call.
type Observer func(done, total int)

// AggregateOptions controls how scanlines are matched
type AggregateOptions struct {
	// OcclusionCost is the unmatched-pixel penalty; zero selects the default
	OcclusionCost int

	// Mode selects compatibility or full-coverage traceback
	Mode matching.TraceMode

	// Workers is the number of scanlines matched at once; values below one
	// match sequentially
	Workers int

	// Progress is optional
	Progress Observer
}

// Aggregate matches every scanline pair of left and right and returns the
// disparity sequences in row order, together with the extrema over all of
// them.
//
// Rows are independent, so they are matched by a bounded pool of
// goroutines, each with its own reusable matcher. Per-row extrema are kept
// separately and reduced once every row has finished.
func Aggregate(ctx context.Context, left, right *models.Grid, opts AggregateOptions) (*models.DisparityMap, models.Extrema, error) {
	if !left.SameSize(right) {
		return nil, models.Extrema{}, fmt.Errorf("%w: left %dx%d, right %dx%d",
			ErrDimensionMismatch, left.Width, left.Height, right.Width, right.Height)
	}

	occlusion := opts.OcclusionCost
	if occlusion == 0 {
		occlusion = matching.DefaultOcclusionCost
	}
	if occlusion < 0 {
		return nil, models.Extrema{}, fmt.Errorf("%w: %d", matching.ErrInvalidOcclusion, occlusion)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	height := left.Height
	result := models.NewDisparityMap(left.Width, height)
	rowExtrema := make([]models.Extrema, height)

	matchers := sync.Pool{
		New: func() any {
			return matching.NewMatcher(occlusion, opts.Mode)
		},
	}

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for y := 0; y < height; y++ {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			m := matchers.Get().(*matching.Matcher)
			defer matchers.Put(m)

			row, ext, err := m.Match(left.Row(y), right.Row(y))
			if err != nil {
				return fmt.Errorf("scanline %d: %w", y, err)
			}
			result.Rows[y] = row
			result.Occlusions[y] = m.Matrix().Occlusions()
			rowExtrema[y] = ext

			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, height)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, models.Extrema{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.Extrema{}, err
	}

	var total models.Extrema
	for _, ext := range rowExtrema {
		total = total.Merge(ext)
	}

	return result, total, nil
}
