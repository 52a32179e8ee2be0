package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dharsanguruparan/staffdrop/internal/model"
)

// MemoryUsers keeps users in memory.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]model.User
}

// NewMemoryUsers constructs a MemoryUsers seeded with users.
func NewMemoryUsers(users ...model.User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[string]model.User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// Create adds or replaces a user.
func (m *MemoryUsers) Create(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// GetUser returns the user with id.
func (m *MemoryUsers) GetUser(_ context.Context, id string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return u, nil
}
