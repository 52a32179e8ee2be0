package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// MemoryFiles is an in-memory stand-in for the object store.
type MemoryFiles struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryFiles constructs a MemoryFiles.
func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{objects: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (f *MemoryFiles) Put(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the object stored under key.
func (f *MemoryFiles) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, model.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes an object. Missing keys are ignored.
func (f *MemoryFiles) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
}
