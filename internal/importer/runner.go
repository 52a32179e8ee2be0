package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dharsanguruparan/staffdrop/internal/employee"
	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
	"github.com/dharsanguruparan/staffdrop/internal/spreadsheet"
)

// Messages stored on a job when the whole file is rejected.
const (
	MsgEmptyFile      = "Empty file"
	msgReadFilePrefix = "Failed to read file: "
)

// DefaultStaleAfter is the claim lease used when RunnerConfig leaves it unset.
const DefaultStaleAfter = 30 * time.Minute

// RunnerConfig tunes a Runner.
type RunnerConfig struct {
	StaleAfter time.Duration
}

// Runner executes import runs. It is what a dispatcher ultimately calls.
type Runner struct {
	jobs       JobStore
	files      FileStore
	processor  *Processor
	notifier   Notifier
	staleAfter time.Duration
}

// NewRunner constructs a Runner.
func NewRunner(jobs JobStore, files FileStore, directory employee.Directory, notifier Notifier, cfg RunnerConfig) *Runner {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Runner{
		jobs:       jobs,
		files:      files,
		processor:  NewProcessor(directory),
		notifier:   notifier,
		staleAfter: cfg.StaleAfter,
	}
}

// Run performs one import run for a started job. Row and file problems end up
// in the job's state and error text. The returned error covers storage
// outages and persistence failures, which a retry may fix, and a draft or busy
// job, which it cannot.
//
// Run may be called again on a finished job. The claim resets the counters
// and rows already imported are reported as duplicates, so a rerun never
// creates the same employee twice.
func (r *Runner) Run(ctx context.Context, id string) error {
	job, err := r.jobs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load job %s: %w", id, err)
	}
	// Fetch before claiming so a transient storage error leaves the job
	// untouched for the retry.
	data, fetchErr := r.files.Get(ctx, job.ObjectKey)
	if fetchErr != nil && !errors.Is(fetchErr, model.ErrNotFound) {
		return fmt.Errorf("fetch upload for job %s: %w", id, fetchErr)
	}

	job, err = r.jobs.Claim(ctx, id, r.staleAfter)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", id, err)
	}
	log := logging.WithFields(ctx, "job_id", job.ID, "file_name", job.FileName)
	log.Info("import started")

	if fetchErr != nil {
		abort(job, msgReadFilePrefix+fetchErr.Error())
	} else {
		r.process(ctx, job, data)
	}

	if err := r.jobs.Finish(ctx, job); err != nil {
		log.Error("store import result", "error", err)
		// Hand the job back so a retry can claim it before the lease expires.
		if relErr := r.jobs.Release(context.WithoutCancel(ctx), id); relErr != nil {
			log.Error("release import job", "error", relErr)
		}
		return fmt.Errorf("finish job %s: %w", id, err)
	}
	log.Info("import finished",
		"state", job.State,
		"processed", job.Processed,
		"total", job.Total,
	)
	r.notifier.Notify(ctx, job)
	return nil
}

// RunBatch runs every job independently; one failing run never stops the
// others. The returned error joins the individual failures.
func (r *Runner) RunBatch(ctx context.Context, ids ...string) error {
	var errs []error
	for _, id := range ids {
		if err := r.Run(ctx, id); err != nil {
			logging.FromContext(ctx).Error("import run failed", "job_id", id, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) process(ctx context.Context, job *model.ImportJob, data []byte) {
	sheet, err := spreadsheet.Open(data)
	if err != nil {
		abort(job, readFailure(err))
		return
	}
	defer sheet.Close()

	header, err := sheet.Header()
	if err != nil {
		if errors.Is(err, spreadsheet.ErrEmptyFile) {
			abort(job, MsgEmptyFile)
		} else {
			abort(job, readFailure(err))
		}
		return
	}

	var (
		created int
		lines   []string
	)
	// Row 1 is the header; rows are strictly sequential so that a duplicate
	// created by an earlier row is visible to later rows.
	rowNum := 1
	for sheet.Next() {
		rowNum++
		out := r.processor.Process(ctx, header, rowNum, sheet.Row())
		if out.Skipped() {
			lines = append(lines, out.Message())
			continue
		}
		created++
	}
	if err := sheet.Err(); err != nil {
		lines = append(lines, fmt.Sprintf("Row %d: read error - %s", rowNum+1, cause(err)))
	}
	if created == 0 && len(lines) == 0 {
		abort(job, MsgEmptyFile)
		return
	}

	job.Processed = created
	job.Total = created + len(lines)
	job.SetErrors(lines)
	if len(lines) == 0 {
		job.State = model.StateDone
	} else {
		job.State = model.StateFailed
	}
}

// abort fails the job without processing any row.
func abort(job *model.ImportJob, msg string) {
	job.State = model.StateFailed
	job.Total = 0
	job.Processed = 0
	job.SetErrors([]string{msg})
}

func readFailure(err error) string {
	return msgReadFilePrefix + cause(err)
}

// cause drops the sentinel prefix so operators see the decoder's own message.
func cause(err error) string {
	return strings.TrimPrefix(err.Error(), spreadsheet.ErrUnreadableFile.Error()+": ")
}
