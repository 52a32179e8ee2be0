// Package storage contains in-memory job, file and user stores. Each store
// guards its map with a RWMutex so handlers and runs can share it.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// MemoryStore keeps import jobs in memory and implements importer.JobStore.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.ImportJob
	now  func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*model.ImportJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a job, stamping its timestamps when unset.
func (m *MemoryStore) Create(_ context.Context, job *model.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	now := m.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

// Get returns a copy so callers cannot mutate stored state.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.ImportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	cp := *job
	return &cp, nil
}

// List returns jobs newest first; an empty ownerID returns all jobs.
func (m *MemoryStore) List(_ context.Context, ownerID string) ([]*model.ImportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.ImportJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if ownerID != "" && job.OwnerID != ownerID {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkPending moves a draft job to pending.
func (m *MemoryStore) MarkPending(_ context.Context, id string) (*model.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if job.State != model.StateDraft {
		return nil, fmt.Errorf("start job %s in state %s: %w", id, job.State, model.ErrInvalidState)
	}
	job.State = model.StatePending
	job.UpdatedAt = m.now()
	cp := *job
	return &cp, nil
}

// Claim moves a started job to running unless a fresh run already holds it.
func (m *MemoryStore) Claim(_ context.Context, id string, staleAfter time.Duration) (*model.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if job.State == model.StateDraft {
		return nil, fmt.Errorf("run job %s in state %s: %w", id, job.State, model.ErrInvalidState)
	}
	now := m.now()
	if job.State == model.StateRunning && now.Sub(job.UpdatedAt) < staleAfter {
		return nil, fmt.Errorf("job %s: %w", id, model.ErrJobBusy)
	}
	job.Reset()
	job.UpdatedAt = now
	cp := *job
	return &cp, nil
}

// Finish stores the outcome of a run.
func (m *MemoryStore) Finish(_ context.Context, result *model.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[result.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", result.ID, model.ErrNotFound)
	}
	job.State = result.State
	job.Total = result.Total
	job.Processed = result.Processed
	job.Errors = result.Errors
	job.UpdatedAt = m.now()
	return nil
}

// Release hands a running job back to pending so the next attempt can claim it.
func (m *MemoryStore) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}
	if job.State == model.StateRunning {
		job.State = model.StatePending
		job.UpdatedAt = m.now()
	}
	return nil
}
