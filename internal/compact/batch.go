package compact

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/simtree/internal/ir"
)

// Job is one FilterK invocation in a batch.
type Job struct {
	Tree ir.Value
	Mask []bool
	K    int
}

// FilterKBatch runs independent FilterK jobs with at most the engine's
// worker count in flight. Results are in job order. The first failing job
// cancels the jobs not yet started.
func (e *Engine) FilterKBatch(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.FilterK(job.Tree, job.Mask, job.K)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FilterKBatch runs a batch on the default engine.
func FilterKBatch(ctx context.Context, jobs []Job) ([]Result, error) {
	return defaultEngine.FilterKBatch(ctx, jobs)
}
