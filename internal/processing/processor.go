// Package processing is the in-process dispatcher: a small goroutine pool fed
// through a buffered channel. It runs imports inside the API process when no
// Redis-backed worker is deployed.
package processing

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/queue"
)

// Job represents one queued import run.
type Job struct {
	JobID string
}

// Pool consumes Jobs and hands them to the Runner.
type Pool struct {
	runner  queue.Runner
	queue   chan Job
	workers int
	once    sync.Once
	wg      sync.WaitGroup
}

// New builds a Pool with queue capacity tied to worker count.
func New(runner queue.Runner, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		runner: runner,
		// A buffered channel lets Enqueue return without waiting for a
		// worker, keeping start requests responsive.
		queue:   make(chan Job, workers*4),
		workers: workers,
	}
}

// Start launches worker goroutines. Calling it more than once is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx)
		}
	})
}

// Wait blocks until every worker has exited after ctx was cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Enqueue queues a job for async processing. When the buffer is full the job
// is not dropped silently: ErrUnavailable tells the caller it stays pending.
func (p *Pool) Enqueue(_ context.Context, jobID string) error {
	select {
	case p.queue <- Job{JobID: jobID}:
		return nil
	default:
		return fmt.Errorf("%w: processing queue full", queue.ErrUnavailable)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.process(ctx, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, job Job) {
	// Runs are not cancelled mid-flight; a shutdown waits for the current row
	// loop to finish writing the job's outcome.
	runCtx := context.WithoutCancel(ctx)
	if err := p.runner.Run(runCtx, job.JobID); err != nil {
		logging.WithFields(ctx, "job_id", job.JobID).Error("import run failed", "error", err)
	}
}
