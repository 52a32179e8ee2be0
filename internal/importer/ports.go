// Package importer implements the asynchronous employee bulk import: upload
// and start of import jobs, the per-row processing rules and the run state
// machine that a worker drives.
package importer

import (
	"context"
	"time"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// JobStore persists import jobs. MarkPending and Claim are conditional
// updates so concurrent callers observe each other.
type JobStore interface {
	Create(ctx context.Context, job *model.ImportJob) error
	Get(ctx context.Context, id string) (*model.ImportJob, error)
	// List returns jobs newest first; an empty ownerID lists every job.
	List(ctx context.Context, ownerID string) ([]*model.ImportJob, error)
	// MarkPending moves a draft job to pending, or fails with
	// model.ErrInvalidState when the job is not a draft.
	MarkPending(ctx context.Context, id string) (*model.ImportJob, error)
	// Claim moves a started job to running and resets its counters. It fails
	// with model.ErrInvalidState for a draft, and with model.ErrJobBusy while
	// another run holds the job and that run was updated more recently than
	// staleAfter.
	Claim(ctx context.Context, id string, staleAfter time.Duration) (*model.ImportJob, error)
	// Finish stores the terminal state, counters and error text of a run.
	Finish(ctx context.Context, job *model.ImportJob) error
	// Release moves a running job back to pending. Runs call it when Finish
	// fails so a retry does not wait out the claim lease.
	Release(ctx context.Context, id string) error
}

// FileStore keeps uploaded documents. Get returns an error wrapping
// model.ErrNotFound when the object does not exist.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Dispatcher hands a started job to whatever executes runs asynchronously.
// Enqueue must not wait for the run itself.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobID string) error
}

// Notifier reports a finished run to the job owner. It never fails the run.
type Notifier interface {
	Notify(ctx context.Context, job *model.ImportJob)
}
