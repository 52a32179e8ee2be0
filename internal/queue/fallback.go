package queue

import (
	"context"

	"github.com/dharsanguruparan/staffdrop/internal/logging"
)

// Runner executes one import run.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// Inline runs the job synchronously inside Enqueue. It suits tests and the
// CLI, where there is no worker process to hand the job to.
type Inline struct {
	Runner Runner
}

// Enqueue runs the job and logs, rather than returns, run failures: the run
// outcome is recorded on the job, not on the enqueue step.
func (d Inline) Enqueue(ctx context.Context, jobID string) error {
	if err := d.Runner.Run(ctx, jobID); err != nil {
		logging.WithFields(ctx, "job_id", jobID).Error("inline import run failed", "error", err)
	}
	return nil
}

// Unavailable is the explicit degraded mode: nothing executes jobs, so started
// jobs stay pending until someone runs them directly.
type Unavailable struct{}

// Enqueue always reports ErrUnavailable.
func (Unavailable) Enqueue(context.Context, string) error {
	return ErrUnavailable
}
