package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

const jobColumns = `id, name, owner_id, file_name, object_key, state, total, processed, errors, created_at, updated_at`

// JobRepository wraps all SQL touching import_jobs. It is shared by the API
// (submit, start, query) and the worker (claim, finish).
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository constructs a repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// Create inserts a draft job.
func (r *JobRepository) Create(ctx context.Context, job *model.ImportJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO import_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, job.ID, job.Name, job.OwnerID, job.FileName, job.ObjectKey, job.State,
		job.Total, job.Processed, job.Errors, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

// Get returns a job by id.
func (r *JobRepository) Get(ctx context.Context, id string) (*model.ImportJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id=$1`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, notFound(err, id)
	}
	return job, nil
}

// List returns jobs newest first. An empty ownerID lists every job.
func (r *JobRepository) List(ctx context.Context, ownerID string) ([]*model.ImportJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM import_jobs
		WHERE $1 = '' OR owner_id = $1
		ORDER BY created_at DESC
		LIMIT 500
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()
	var out []*model.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// MarkPending moves a draft job to pending. The WHERE clause makes the
// transition atomic: of two concurrent starts only one updates the row.
func (r *JobRepository) MarkPending(ctx context.Context, id string) (*model.ImportJob, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE import_jobs SET state=$2, updated_at=$3
		WHERE id=$1 AND state=$4
		RETURNING `+jobColumns,
		id, model.StatePending, time.Now().UTC(), model.StateDraft)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark job pending: %w", err)
	}
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("start job %s in state %s: %w", id, current.State, model.ErrInvalidState)
}

// Claim moves a started job to running and resets its counters, unless another
// run holds it and was updated within staleAfter. Drafts are never claimed.
func (r *JobRepository) Claim(ctx context.Context, id string, staleAfter time.Duration) (*model.ImportJob, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		UPDATE import_jobs
		SET state=$2, total=0, processed=0, errors=NULL, updated_at=$3
		WHERE id=$1 AND state <> $5 AND (state <> $2 OR updated_at < $4)
		RETURNING `+jobColumns,
		id, model.StateRunning, now, now.Add(-staleAfter), model.StateDraft)
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if current.State == model.StateDraft {
		return nil, fmt.Errorf("run job %s in state %s: %w", id, current.State, model.ErrInvalidState)
	}
	return nil, fmt.Errorf("job %s: %w", id, model.ErrJobBusy)
}

// Release hands a running job back to pending so the next attempt can claim it.
func (r *JobRepository) Release(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE import_jobs SET state=$2, updated_at=$3
		WHERE id=$1 AND state=$4
	`, id, model.StatePending, time.Now().UTC(), model.StateRunning)
	if err != nil {
		return fmt.Errorf("release import job: %w", err)
	}
	return nil
}

// Finish stores the terminal state of a run.
func (r *JobRepository) Finish(ctx context.Context, job *model.ImportJob) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE import_jobs
		SET state=$2, total=$3, processed=$4, errors=$5, updated_at=$6
		WHERE id=$1
	`, job.ID, job.State, job.Total, job.Processed, job.Errors, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", job.ID, model.ErrNotFound)
	}
	return nil
}

func scanJob(row pgx.Row) (*model.ImportJob, error) {
	var (
		job    model.ImportJob
		errMsg sql.NullString
	)
	if err := row.Scan(&job.ID, &job.Name, &job.OwnerID, &job.FileName, &job.ObjectKey, &job.State,
		&job.Total, &job.Processed, &errMsg, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		msg := errMsg.String
		job.Errors = &msg
	}
	return &job, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	return fmt.Errorf("select import job: %w", err)
}
