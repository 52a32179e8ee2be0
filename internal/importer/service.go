package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/staffdrop/internal/logging"
	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// XLSXContentType is stored with uploaded workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	// ErrEmptyUpload rejects a submit without file content.
	ErrEmptyUpload = errors.New("uploaded file is empty")
	// ErrMissingOwner rejects a submit without an owning user.
	ErrMissingOwner = errors.New("import job needs an owner")
)

// Service is the caller-facing side of the pipeline: upload, start, query.
type Service struct {
	jobs       JobStore
	files      FileStore
	dispatcher Dispatcher
}

// NewService constructs a Service.
func NewService(jobs JobStore, files FileStore, dispatcher Dispatcher) *Service {
	return &Service{jobs: jobs, files: files, dispatcher: dispatcher}
}

// SubmitInput carries an uploaded document.
type SubmitInput struct {
	OwnerID  string
	Name     string
	FileName string
	Data     []byte
}

// Submit stores the document and creates a draft job for it.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*model.ImportJob, error) {
	if in.OwnerID == "" {
		return nil, ErrMissingOwner
	}
	if len(in.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = model.DefaultJobName
	}
	fileName := filepath.Base(strings.TrimSpace(in.FileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "upload.xlsx"
	}

	now := time.Now().UTC()
	job := &model.ImportJob{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   in.OwnerID,
		FileName:  fileName,
		State:     model.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.ObjectKey = fmt.Sprintf("imports/%s/%s", job.ID, fileName)
	if err := s.files.Put(ctx, job.ObjectKey, in.Data, XLSXContentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	logging.WithFields(ctx, "job_id", job.ID, "owner_id", job.OwnerID).
		Info("import job submitted", "file_name", fileName, "bytes", len(in.Data))
	return job, nil
}

// StartResult reports what happened to one job on Start. Enqueued=false with
// State=pending and no Error is the degraded mode: the job waits until a
// worker or an operator runs it.
type StartResult struct {
	JobID    string         `json:"job_id"`
	State    model.JobState `json:"state,omitempty"`
	Enqueued bool           `json:"enqueued"`
	Warning  string         `json:"warning,omitempty"`
	Error    string         `json:"error,omitempty"`
	err      error
}

// Err returns the underlying error of a failed start.
func (r StartResult) Err() error {
	return r.err
}

// Start moves each draft job to pending and enqueues it. Only the enqueue
// step is reported; the run's own outcome lands on the job later. A job that
// is not a draft is rejected, so repeated or concurrent starts enqueue once.
func (s *Service) Start(ctx context.Context, actor model.User, ids ...string) []StartResult {
	results := make([]StartResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, s.start(ctx, actor, id))
	}
	return results
}

func (s *Service) start(ctx context.Context, actor model.User, id string) StartResult {
	res := StartResult{JobID: id}
	fail := func(err error) StartResult {
		res.err = err
		res.Error = err.Error()
		return res
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return fail(err)
	}
	job, err := s.jobs.MarkPending(ctx, id)
	if err != nil {
		return fail(err)
	}
	res.State = job.State

	log := logging.WithFields(ctx, "job_id", id)
	if err := s.dispatcher.Enqueue(ctx, id); err != nil {
		log.Warn("import job left pending, enqueue unavailable", "error", err)
		res.Warning = err.Error()
		return res
	}
	res.Enqueued = true
	log.Info("import job enqueued")
	return res
}

// Get returns the job when actor owns it or is an administrator.
func (s *Service) Get(ctx context.Context, actor model.User, id string) (*model.ImportJob, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanRead(job.OwnerID) {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	return job, nil
}

// List returns the actor's jobs, or every job for administrators.
func (s *Service) List(ctx context.Context, actor model.User) ([]*model.ImportJob, error) {
	owner := actor.ID
	if actor.Admin {
		owner = ""
	}
	return s.jobs.List(ctx, owner)
}
