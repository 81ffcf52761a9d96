package trajectory

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/statespace/internal/statespace"
)

// Job is one member of an ensemble. Each job needs its own Runner.
type Job struct {
	Name   string
	Runner *Runner
	X0     statespace.Vector
	U      statespace.Vector
	Config Config
}

// RunEnsemble runs independent jobs concurrently, at most limit at a time
// (no limit when limit <= 0). Results are in job order. The first failing
// job cancels the others.
func RunEnsemble(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			res, err := job.Runner.Run(ctx, job.X0, job.U, job.Config)
			if err != nil {
				return fmt.Errorf("job %d (%s): %w", i, job.Name, err)
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
