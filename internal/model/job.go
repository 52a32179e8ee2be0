// Package model contains simple struct definitions shared across packages.
package model

import (
	"strings"
	"time"
)

// JobState describes the import lifecycle:
// draft -> pending -> running -> done | failed.
type JobState string

const (
	StateDraft   JobState = "draft"
	StatePending JobState = "pending"
	StateRunning JobState = "running"
	StateDone    JobState = "done"
	StateFailed  JobState = "failed"
)

// DefaultJobName is used when an upload does not carry a display name.
const DefaultJobName = "Employee Import"

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ImportJob is one bulk-import run attached to one uploaded document. It is
// never deleted by the import pipeline; finished jobs stay as an audit record.
type ImportJob struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"ownerId"`
	FileName  string   `json:"fileName"`
	ObjectKey string   `json:"-"`
	State     JobState `json:"state"`
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	// Errors holds one line per failed row. nil means no errors, which keeps
	// the JSON field absent rather than an empty string.
	Errors    *string   `json:"errors,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrorLines splits the stored error text back into individual lines.
func (j *ImportJob) ErrorLines() []string {
	if j.Errors == nil || *j.Errors == "" {
		return nil
	}
	return strings.Split(*j.Errors, "\n")
}

// SetErrors stores lines newline-joined, or nil when there are none.
func (j *ImportJob) SetErrors(lines []string) {
	if len(lines) == 0 {
		j.Errors = nil
		return
	}
	joined := strings.Join(lines, "\n")
	j.Errors = &joined
}

// Reset clears the counters at the start of a run.
func (j *ImportJob) Reset() {
	j.State = StateRunning
	j.Total = 0
	j.Processed = 0
	j.Errors = nil
}
