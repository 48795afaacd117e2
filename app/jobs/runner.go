// Package jobs holds the central's periodic maintenance loops: the
// liveness sweep and the retention cleanups.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 10 * time.Second
)

// Job is one bounded unit of maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner executes a job on a fixed interval. A failing run is retried a
// bounded number of times with a fixed delay; after that the failure is
// logged and the runner waits for the next tick. A bad round never stops
// future rounds.
type Runner struct {
	job      Job
	interval time.Duration
	log      zerolog.Logger

	maxAttempts int
	retryDelay  time.Duration
}

// NewRunner creates a runner for a job with the default retry policy.
func NewRunner(job Job, interval time.Duration, log zerolog.Logger) *Runner {
	return &Runner{
		job:         job,
		interval:    interval,
		log:         log.With().Str("job", job.Name()).Logger(),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Start runs the job immediately and then on every tick until the context
// is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err = r.job.Run(ctx); err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		r.log.Warn().Err(err).Int("attempt", attempt).Msg("job run failed")
		if attempt < r.maxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.retryDelay):
			}
		}
	}
	r.log.Error().Err(err).Msg("job run abandoned until next tick")
}
