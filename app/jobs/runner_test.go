package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyJob fails until failures is exhausted, counting every attempt.
type flakyJob struct {
	attempts atomic.Int32
	failures int32
}

func (j *flakyJob) Name() string { return "flaky" }

func (j *flakyJob) Run(context.Context) error {
	if j.attempts.Add(1) <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func newTestRunner(job Job, interval time.Duration) *Runner {
	r := NewRunner(job, interval, zerolog.Nop())
	r.retryDelay = time.Millisecond
	return r
}

func TestRunnerDefaults(t *testing.T) {
	r := NewRunner(&flakyJob{}, time.Minute, zerolog.Nop())
	assert.Equal(t, 3, r.maxAttempts)
	assert.Equal(t, 10*time.Second, r.retryDelay)
}

func TestRunnerSucceedsFirstAttempt(t *testing.T) {
	job := &flakyJob{}
	newTestRunner(job, time.Minute).runOnce(context.Background())
	assert.Equal(t, int32(1), job.attempts.Load())
}

func TestRunnerRetriesThenSucceeds(t *testing.T) {
	job := &flakyJob{failures: 2}
	newTestRunner(job, time.Minute).runOnce(context.Background())
	assert.Equal(t, int32(3), job.attempts.Load())
}

func TestRunnerGivesUpAfterMaxAttempts(t *testing.T) {
	job := &flakyJob{failures: 100}
	newTestRunner(job, time.Minute).runOnce(context.Background())
	assert.Equal(t, int32(3), job.attempts.Load())
}

func TestRunnerKeepsTickingAfterExhaustion(t *testing.T) {
	job := &flakyJob{failures: 100}
	r := newTestRunner(job, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	// Wait for at least two full rounds of 3 attempts each.
	require.Eventually(t, func() bool {
		return job.attempts.Load() >= 6
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunnerStopsMidRetryOnCancel(t *testing.T) {
	job := &flakyJob{failures: 100}
	r := newTestRunner(job, time.Minute)
	r.retryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.runOnce(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return job.attempts.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on context cancellation")
	}
	assert.Equal(t, int32(1), job.attempts.Load())
}
