// Package queue hands started import jobs to workers. Every dispatcher here
// implements importer.Dispatcher; which one a binary uses is configuration.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ImportEmployeesTask is scheduled each time an import job is started.
	ImportEmployeesTask = "employee:import"
)

// ErrUnavailable means the job could not be handed to a worker. Callers leave
// the job pending; it is not an error state of the job.
var ErrUnavailable = errors.New("dispatch unavailable")

// ImportPayload is serialized into the task so the worker knows which job to run.
type ImportPayload struct {
	JobID string `json:"job_id"`
}

// NewImportTask builds the asynq task for a job.
func NewImportTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(ImportPayload{JobID: jobID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ImportEmployeesTask, data), nil
}

// DecodeImportPayload reads the payload of an import task.
func DecodeImportPayload(task *asynq.Task) (ImportPayload, error) {
	var payload ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode payload: %w", err)
	}
	if payload.JobID == "" {
		return payload, errors.New("decode payload: missing job_id")
	}
	return payload, nil
}

// TaskID is the asynq task id for a job. Asynq refuses a second task with the
// same id while the first is still queued, retrying or running.
func TaskID(jobID string) string {
	return "import:" + jobID
}

// ClientOptions tunes how import tasks are enqueued.
type ClientOptions struct {
	Queue    string
	MaxRetry int
}

// Client enqueues import tasks on Redis through asynq.
type Client struct {
	client *asynq.Client
	opts   ClientOptions
}

// NewClient wraps an asynq client.
func NewClient(client *asynq.Client, opts ClientOptions) *Client {
	if opts.Queue == "" {
		opts.Queue = "default"
	}
	return &Client{client: client, opts: opts}
}

// Enqueue schedules the job. A job that already has a live task is treated as
// enqueued; any other failure is reported as ErrUnavailable.
func (c *Client) Enqueue(ctx context.Context, jobID string) error {
	task, err := NewImportTask(jobID)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.TaskID(TaskID(jobID)),
		asynq.Queue(c.opts.Queue),
		asynq.MaxRetry(c.opts.MaxRetry),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("%w: enqueue import task: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
