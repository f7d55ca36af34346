// Package tasks runs periodic background jobs.
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one periodic unit of work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner drives a set of jobs until its context ends.
type Runner struct {
	Jobs   []Job
	Logger *zap.Logger
}

// Start runs every job once immediately and then on its interval.  A
// failing run is logged and retried on the next tick; Start only returns
// when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range r.Jobs {
		job := job
		g.Go(func() error {
			r.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	r.runOnce(ctx, job)
	t := time.NewTicker(job.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.runOnce(ctx, job)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil && ctx.Err() == nil {
		r.Logger.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	r.Logger.Debug("job finished", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
}
