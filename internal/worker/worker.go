// Package worker runs queued analysis jobs on a bounded pool.
package worker

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/triptomat/trip-analyzer/internal/model"
	"github.com/triptomat/trip-analyzer/internal/pipeline"
	"github.com/triptomat/trip-analyzer/internal/store"
)

// Runner executes one job end to end and records its terminal status.
type Runner struct {
	pipeline *pipeline.Pipeline
	store    store.Store
}

// NewRunner creates a Runner.
func NewRunner(p *pipeline.Pipeline, st store.Store) *Runner {
	return &Runner{pipeline: p, store: st}
}

// Execute processes a job and transitions its record to completed or
// failed. Jobs with nothing to analyze complete with an empty result.
func (r *Runner) Execute(ctx context.Context, job *model.Job) {
	payload, err := r.pipeline.Process(ctx, job)
	if err != nil {
		zap.L().Error("worker: job failed",
			zap.String("job_id", job.ID),
			zap.String("url", job.URL),
			zap.Error(err),
		)
		if storeErr := r.store.MarkFailed(ctx, job.URL, job.ID, err.Error()); storeErr != nil {
			zap.L().Warn("worker: failed to record job failure",
				zap.String("job_id", job.ID),
				zap.Error(storeErr),
			)
		}
		return
	}

	if storeErr := r.store.MarkCompleted(ctx, job.URL, job.ID, payload, job.Metadata); storeErr != nil {
		zap.L().Warn("worker: failed to record job completion",
			zap.String("job_id", job.ID),
			zap.Error(storeErr),
		)
	}
}

// Pool is a bounded in-process job queue with a fixed number of workers.
// Jobs share no state; each runs on its own goroutine from the pool.
type Pool struct {
	jobs        chan *model.Job
	concurrency int
	runner      *Runner
}

// NewPool creates a Pool with the given concurrency and queue depth.
func NewPool(runner *Runner, concurrency, depth int) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if depth <= 0 {
		depth = 64
	}
	return &Pool{
		jobs:        make(chan *model.Job, depth),
		concurrency: concurrency,
		runner:      runner,
	}
}

// Submit enqueues a job without blocking. Returns an error when the queue
// is full so ingestion can push back on the client.
func (p *Pool) Submit(job *model.Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return eris.New("worker: queue full")
	}
}

// Run consumes jobs until the context is canceled. It always returns nil
// aside from context cancellation; individual job failures are recorded in
// the store, never propagated.
func (p *Pool) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gCtx.Done():
					return gCtx.Err()
				case job := <-p.jobs:
					p.runner.Execute(gCtx, job)
				}
			}
		})
	}

	err := g.Wait()
	if err != nil && !eris.Is(err, context.Canceled) {
		return eris.Wrap(err, "worker: pool")
	}
	return nil
}
