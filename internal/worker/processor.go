package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/queue"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	runner queue.Runner
}

// NewProcessor constructs a worker processor.
func NewProcessor(runner queue.Runner) *Processor {
	return &Processor{runner: runner}
}

// Handler registers the import task handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ImportEmployeesTask, p.handleImport)
	return mux
}

func (p *Processor) handleImport(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeImportPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := logging.WithFields(ctx, "job_id", payload.JobID)
	err = p.runner.Run(ctx, payload.JobID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrJobBusy), errors.Is(err, model.ErrInvalidState):
		// The job is gone, owned by another run or was never started.
		log.Warn("import task dropped", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		log.Error("import task failed, will retry", "error", err)
		return err
	}
}

// RetryDelay is an exponential backoff with full jitter: a random delay in
// [0, min(initial*2^(n-1), ceiling)].
func RetryDelay(initial, ceiling time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n < 1 {
			n = 1
		}
		base := float64(initial) * math.Pow(2, float64(n-1))
		if ceiling > 0 && base > float64(ceiling) {
			base = float64(ceiling)
		}
		return time.Duration(rand.Float64() * base) //nolint:gosec // jitter does not need crypto rand
	}
}
